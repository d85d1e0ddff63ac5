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

// Package dictdisk defines the shared error taxonomy and the mapping
// interface implemented by a directory-backed associative store. Concrete
// storage, naming, locking, and queueing live in the subpackages of this
// module; this package only fixes the vocabulary they share.
package dictdisk

import (
	"context"
	"errors"
)

// Sentinel errors surfaced to callers. Storage implementations should wrap
// these with fmt.Errorf("%w: ...") or a *KeyError rather than returning new
// error values, so callers can match with errors.Is.
var (
	// ErrMissing reports that no entry exists for the requested key.
	ErrMissing = errors.New("no such key")

	// ErrEmpty reports that an operation requiring at least one entry (for
	// example PopItem, or a queue Get) found the store empty.
	ErrEmpty = errors.New("store is empty")

	// ErrInvalidArgument reports that a caller-supplied argument (such as a
	// negative queue timeout) is not valid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIO reports a filesystem error other than "not found" propagated from
	// the underlying storage.
	ErrIO = errors.New("i/o error")

	// ErrDecode reports that the injected codec failed to decode a stored
	// payload. The store does not attempt repair.
	ErrDecode = errors.New("decode error")
)

// KeyError is the concrete type of errors involving a specific key. Callers
// may type-assert to *KeyError to recover the implicated key.
type KeyError struct {
	Key string // the key implicated by the error
	Err error  // the underlying sentinel error (ErrMissing, ErrIO, ...)
}

// Error implements the error interface. The default message omits the key,
// since keys are often logged by default and may be sensitive.
func (e *KeyError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying sentinel error, to support errors.Is/As.
func (e *KeyError) Unwrap() error { return e.Err }

// Missing returns an ErrMissing error reporting that key was not found.
func Missing(key string) error { return &KeyError{Key: key, Err: ErrMissing} }

// IsMissing reports whether err is or wraps ErrMissing.
func IsMissing(err error) bool { return err != nil && errors.Is(err, ErrMissing) }

// IsEmpty reports whether err is or wraps ErrEmpty.
func IsEmpty(err error) bool { return err != nil && errors.Is(err, ErrEmpty) }

// Map is the mapping contract implemented by a directory-backed associative
// store. Values flow through as opaque Go values; a Map implementation never
// interprets payloads, it only round-trips them through an injected codec.
//
// Implementations must be safe for concurrent use by multiple goroutines,
// and — unless explicitly configured with an in-process lock — by multiple
// cooperating processes sharing the same directory.
type Map interface {
	// Insert writes V under K, atomically replacing any prior entry for K.
	Insert(ctx context.Context, key string, value any) error

	// Get returns the most recently inserted value for key. It reports
	// ErrMissing if no entry exists.
	Get(ctx context.Context, key string) (any, error)

	// Delete removes the entry for key. It reports ErrMissing if no entry
	// exists.
	Delete(ctx context.Context, key string) error

	// Contains reports whether an entry exists for key.
	Contains(ctx context.Context, key string) (bool, error)

	// Len reports the number of entries currently present.
	Len(ctx context.Context) (int, error)

	// Clear deletes every entry. Individual deletions that race with
	// external removal are ignored.
	Clear(ctx context.Context) error

	// Keys calls f with each key in ascending insertion order, starting
	// after the fromIndex leading entries. Missing entries encountered
	// during the scan are silently skipped. Iteration stops, without error,
	// if f returns false.
	Keys(ctx context.Context, fromIndex int, f func(key string) bool) error
}
