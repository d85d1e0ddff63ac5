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

// Package entryname maps between a dictdisk logical key and the on-disk
// file representing it, and persists the per-entry key and birth-time as
// extended attributes when the underlying filesystem supports them.
//
// When xattrs are supported, the on-disk name is the hex-encoded SHA3-224
// digest of the encoded key, and the original key is recovered from the
// user.key extended attribute. When xattrs are not supported (determined
// once, at store-open time, by probing with xattr.List), the on-disk name
// is the key itself, which limits the key alphabet to filename-legal bytes.
package entryname

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"os"
	"time"

	"github.com/pkg/xattr"
	"golang.org/x/crypto/sha3"

	"github.com/cloudnull/dictdisk/codec"
)

const (
	xattrKey       = "user.key"
	xattrBirthtime = "user.birthtime"
)

// ProbeXattr reports whether the filesystem underlying dir supports
// extended attributes. It is called once, at store-open time; the result
// must be captured by the caller and never re-evaluated for the lifetime of
// the store handle.
func ProbeXattr(dir string) bool {
	_, err := xattr.List(dir)
	return err == nil
}

// Config carries the settings needed to encode and decode entry names and
// metadata for one store directory.
type Config struct {
	// XattrSupported selects hash-based naming with xattr metadata (true)
	// or identity naming with ctime-derived ordering (false). Set once from
	// ProbeXattr at store-open time.
	XattrSupported bool

	// KeyCodec serializes the logical key before hashing. Most callers use
	// codec.StringCodec{}.
	KeyCodec codec.Codec
}

// Encode computes the on-disk file name for key. Without xattr support the
// name is key itself; a key that is not a legal file name, or that collides
// with another entry's file name, is a caller error and is not checked.
func (c Config) Encode(key string) (string, error) {
	if !c.XattrSupported {
		return key, nil
	}
	enc, err := c.KeyCodec.Encode(key)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum224(enc)
	return hex.EncodeToString(sum[:]), nil
}

// ReadKey recovers the logical key for the entry at path. If xattrs are
// supported, it reads user.key; otherwise it returns the base name
// unchanged (the identity encoding used when xattrs are unavailable).
// It reports dictdisk-style missing errors by returning os.ErrNotExist
// unchanged, for the caller to translate.
func (c Config) ReadKey(path, baseName string) (string, error) {
	if !c.XattrSupported {
		return baseName, nil
	}
	raw, err := xattr.Get(path, xattrKey)
	if err != nil {
		var xerr *xattr.Error
		if errors.As(err, &xerr) && os.IsNotExist(xerr.Err) {
			return "", os.ErrNotExist // the file itself is gone
		}
		if isXattrNotFound(err) {
			// No key attribute recorded: fall back to the name unchanged,
			// mirroring the source's behavior when name-decoding fails.
			return baseName, nil
		}
		return "", err
	}
	return string(raw), nil
}

// ReadBirthtime recovers the creation time of the entry at path. It prefers
// the packed user.birthtime attribute; otherwise it falls back to the
// file's ctime (the closest portable approximation to birth-time that
// os.Stat exposes on all platforms).
func (c Config) ReadBirthtime(path string) (time.Time, error) {
	if c.XattrSupported {
		raw, err := xattr.Get(path, xattrBirthtime)
		if err == nil && len(raw) == 8 {
			bits := binary.LittleEndian.Uint64(raw)
			sec := math.Float64frombits(bits)
			return timeFromSeconds(sec), nil
		}
		if err != nil && !isXattrNotFound(err) {
			return time.Time{}, err
		}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return statCtime(fi), nil
}

// WriteMetadata records the logical key and the current time on the entry
// at path. On systems without xattr support this is a no-op: order is then
// derived solely from ctime, and the key is recovered from the file name.
func (c Config) WriteMetadata(path, key string) error {
	if !c.XattrSupported {
		return nil
	}
	if err := xattr.Set(path, xattrKey, []byte(key)); err != nil {
		return err
	}
	bits := math.Float64bits(secondsFromTime(time.Now()))
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, bits)
	return xattr.Set(path, xattrBirthtime, buf)
}

func isXattrNotFound(err error) bool {
	var xerr *xattr.Error
	if errors.As(err, &xerr) {
		return errors.Is(xerr.Err, xattr.ENOATTR) || os.IsNotExist(xerr.Err)
	}
	return os.IsNotExist(err)
}

func secondsFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*1e9))
}
