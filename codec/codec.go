// Copyright Peznauts <kevin@peznauts.com>. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package codec defines the injected serialization boundary between a
// dictdisk.Map and the bytes it persists. Storage implementations never
// interpret payloads directly; they always go through a Codec.
package codec

import (
	"bytes"
	"encoding/gob"
)

// A Codec defines the capability to turn an arbitrary Go value into bytes
// and back. An implementation must round-trip any value it accepts: for all
// v accepted by Encode, Decode(Encode(v)) must equal v.
type Codec interface {
	// Encode serializes v to bytes.
	Encode(v any) ([]byte, error)

	// Decode deserializes bytes produced by Encode back into a value.
	Decode(data []byte) (any, error)
}

// GobCodec implements Codec using encoding/gob. Concrete types that will
// flow through Encode/Decode as the dynamic type of an any value must be
// registered with gob.Register before use (gob needs this to recover the
// concrete type on Decode); primitive types, strings, and built-in
// collections thereof do not require registration.
type GobCodec struct{}

// Encode implements Codec.
func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (GobCodec) Decode(data []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// StringCodec implements Codec for the common case where keys (not values)
// need only a reversible byte encoding and are already strings. It is used
// by entryname when a key must be serialized prior to hashing, and avoids
// requiring gob registration for the overwhelmingly common case of a string
// key.
type StringCodec struct{}

// Encode implements Codec. It requires v to be a string.
func (StringCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, &TypeError{Value: v}
	}
	return []byte(s), nil
}

// Decode implements Codec. It always succeeds, returning a string.
func (StringCodec) Decode(data []byte) (any, error) {
	return string(data), nil
}

// TypeError reports that a value was not of the type a Codec expects.
type TypeError struct{ Value any }

func (e *TypeError) Error() string { return "codec: unsupported value type" }
