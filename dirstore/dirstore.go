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

// Package dirstore implements dictdisk.Map using one regular file per key in
// a directory, similar to a Git local object store. The file's contents
// hold the codec-encoded value; the file's name encodes (or, with xattr
// metadata, references) the key; file-system metadata preserves insertion
// order.
package dirstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/creachadair/atomicfile"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/codec"
	"github.com/cloudnull/dictdisk/dictlock"
	"github.com/cloudnull/dictdisk/entryname"
)

// lockFileName is the advisory lock file kept alongside entries; it is
// always excluded from directory scans.
const lockFileName = ".dictdisk.lock"

// Options configures a Store at open time. A zero Options is ready for use
// and selects sensible defaults: a cross-process file lock, a string key
// codec, and a gob value codec.
type Options struct {
	// Lock is the concurrency guard for mutating operations. Defaults to a
	// FileLock rooted at the store directory, making the store safe to
	// share between cooperating processes. Inject a MutexLock when only
	// in-process safety is required.
	Lock dictlock.Lock

	// KeyCodec serializes keys before hashing, when xattrs are supported.
	// Defaults to codec.StringCodec{}.
	KeyCodec codec.Codec

	// ValueCodec serializes stored values. Defaults to codec.GobCodec{}.
	ValueCodec codec.Codec

	// Logger receives diagnostic messages (scope-guard errors, and similar).
	// Defaults to log.Default().
	Logger *log.Logger
}

// Store is a directory-backed dictdisk.Map.
type Store struct {
	dir        string
	lock       dictlock.Lock
	name       entryname.Config
	valueCodec codec.Codec
	logger     *log.Logger
}

var _ dictdisk.Map = (*Store)(nil)

// Open opens (creating if necessary) a Store rooted at dir. If dir exists
// as a regular file, Open unlinks it and retries mkdir, matching the
// process lifecycle described for the underlying on-disk layout.
func Open(dir string, opts Options) (*Store, error) {
	clean := filepath.Clean(dir)
	if err := ensureDir(clean); err != nil {
		return nil, err
	}

	keyCodec := opts.KeyCodec
	if keyCodec == nil {
		keyCodec = codec.StringCodec{}
	}
	valueCodec := opts.ValueCodec
	if valueCodec == nil {
		valueCodec = codec.GobCodec{}
	}
	lock := opts.Lock
	if lock == nil {
		lock = dictlock.NewFileLock(filepath.Join(clean, lockFileName))
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Store{
		dir:  clean,
		lock: lock,
		name: entryname.Config{
			XattrSupported: entryname.ProbeXattr(clean),
			KeyCodec:       keyCodec,
		},
		valueCodec: valueCodec,
		logger:     logger,
	}, nil
}

func ensureDir(dir string) error {
	fi, err := os.Stat(dir)
	switch {
	case err == nil && fi.IsDir():
		return nil
	case err == nil:
		if rmErr := os.Remove(dir); rmErr != nil {
			return rmErr
		}
		return os.MkdirAll(dir, 0700)
	case os.IsNotExist(err):
		return os.MkdirAll(dir, 0700)
	default:
		return err
	}
}

// Dir reports the directory path backing s.
func (s *Store) Dir() string { return s.dir }

// Copy returns a handle to the same underlying directory. This is a
// handle-level alias, not a deep copy: s and its Copy share one lock and
// one directory, and compare equal as the same Go pointer.
func (s *Store) Copy() *Store { return s }

// Insert implements dictdisk.Map.
func (s *Store) Insert(ctx context.Context, key string, value any) error {
	if err := s.lock.Acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Release()
	return s.insertLocked(key, value)
}

func (s *Store) insertLocked(key string, value any) error {
	data, err := s.valueCodec.Encode(value)
	if err != nil {
		return fmt.Errorf("%w: %v", dictdisk.ErrDecode, err)
	}
	name, err := s.name.Encode(key)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	if err := atomicfile.WriteData(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
	}
	return s.name.WriteMetadata(path, key)
}

// Get implements dictdisk.Map.
func (s *Store) Get(ctx context.Context, key string) (any, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	return s.getLocked(key)
}

func (s *Store) getLocked(key string) (any, error) {
	name, err := s.name.Encode(key)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dictdisk.Missing(key)
		}
		return nil, fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
	}
	value, err := s.valueCodec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dictdisk.ErrDecode, err)
	}
	return value, nil
}

// Delete implements dictdisk.Map.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.lock.Acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Release()
	return s.deleteLocked(key)
}

func (s *Store) deleteLocked(key string) error {
	name, err := s.name.Encode(key)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return dictdisk.Missing(key)
		}
		return fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
	}
	return nil
}

// Contains implements dictdisk.Map. It reports an error only when the lock
// cannot be acquired: an I/O error other than "not found" is treated the
// same as absence, matching the source's exception-free existence probe.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return false, err
	}
	defer s.lock.Release()
	return s.containsLocked(key), nil
}

func (s *Store) containsLocked(key string) bool {
	name, err := s.name.Encode(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

// Len implements dictdisk.Map.
func (s *Store) Len(ctx context.Context) (int, error) {
	recs, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Clear implements dictdisk.Map. Entries that race with external removal
// are treated as already gone.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.lock.Acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Release()
	recs, err := s.scanSorted()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := s.deleteLocked(r.key); err != nil && !dictdisk.IsMissing(err) {
			s.logger.Printf("dictdisk: clear: %v", err)
		}
	}
	return nil
}

// Pop removes and returns the value for key. It reports ErrMissing if no
// entry exists.
func (s *Store) Pop(ctx context.Context, key string) (any, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	v, err := s.getLocked(key)
	if err != nil {
		return nil, err
	}
	if err := s.deleteLocked(key); err != nil && !dictdisk.IsMissing(err) {
		return nil, err
	}
	return v, nil
}

// PopOr removes and returns the value for key, or def if no entry exists
// (in which case no error is reported, matching the source's Pop(K,
// default) form).
func (s *Store) PopOr(ctx context.Context, key string, def any) (any, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	v, err := s.getLocked(key)
	if dictdisk.IsMissing(err) {
		return def, nil
	} else if err != nil {
		return nil, err
	}
	if err := s.deleteLocked(key); err != nil && !dictdisk.IsMissing(err) {
		return nil, err
	}
	return v, nil
}

// PopItem pops and returns the value of the oldest entry — not a
// key/value pair, diverging deliberately from the usual mapping
// convention to preserve the source's behavior. It reports ErrEmpty when
// the store is empty.
func (s *Store) PopItem(ctx context.Context) (any, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	recs, err := s.scanSorted()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		v, err := s.getLocked(r.key)
		if dictdisk.IsMissing(err) {
			continue // raced with an external deletion; try the next oldest
		} else if err != nil {
			return nil, err
		}
		if err := s.deleteLocked(r.key); err != nil && !dictdisk.IsMissing(err) {
			return nil, err
		}
		return v, nil
	}
	return nil, dictdisk.ErrEmpty
}

// SetDefault returns the existing value for key if present; otherwise it
// inserts value and returns it.
func (s *Store) SetDefault(ctx context.Context, key string, value any) (any, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	if v, err := s.getLocked(key); err == nil {
		return v, nil
	} else if !dictdisk.IsMissing(err) {
		return nil, err
	}
	if err := s.insertLocked(key, value); err != nil {
		return nil, err
	}
	return value, nil
}

// FromKeys inserts each of keys with value (which may be nil).
func (s *Store) FromKeys(ctx context.Context, keys []string, value any) error {
	if err := s.lock.Acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Release()
	for _, k := range keys {
		if err := s.insertLocked(k, value); err != nil {
			return err
		}
	}
	return nil
}

// Update inserts each key/value pair in pairs.
func (s *Store) Update(ctx context.Context, pairs map[string]any) error {
	if err := s.lock.Acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Release()
	for k, v := range pairs {
		if err := s.insertLocked(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Keys implements dictdisk.Map.
func (s *Store) Keys(ctx context.Context, fromIndex int, f func(string) bool) error {
	recs, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	for _, r := range dropLeading(recs, fromIndex) {
		if !f(r.key) {
			return nil
		}
	}
	return nil
}

// Items calls f with each key and its current value, in ascending
// insertion order starting after the fromIndex leading entries. Because
// the key list is a snapshot but values are re-read per key, a value
// yielded may be stale relative to a concurrent Insert, and a key deleted
// after the snapshot is silently skipped.
func (s *Store) Items(ctx context.Context, fromIndex int, f func(key string, value any) bool) error {
	recs, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	for _, r := range dropLeading(recs, fromIndex) {
		v, err := s.Get(ctx, r.key)
		if dictdisk.IsMissing(err) {
			continue
		} else if err != nil {
			return err
		}
		if !f(r.key, v) {
			return nil
		}
	}
	return nil
}

// Values calls f with each current value, in ascending insertion order.
// See Items for the staleness caveat.
func (s *Store) Values(ctx context.Context, fromIndex int, f func(value any) bool) error {
	return s.Items(ctx, fromIndex, func(_ string, v any) bool { return f(v) })
}

type record struct {
	key   string
	birth time.Time
}

func dropLeading(recs []record, fromIndex int) []record {
	if fromIndex <= 0 {
		return recs
	}
	if fromIndex >= len(recs) {
		return nil
	}
	return recs[fromIndex:]
}

// snapshot acquires the lock, takes a sorted snapshot of the directory, and
// releases the lock before returning. Per-key reads made from the result
// must re-acquire the lock themselves.
func (s *Store) snapshot(ctx context.Context) ([]record, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Release()
	return s.scanSorted()
}

// scanSorted assumes the caller already holds the lock.
func (s *Store) scanSorted() ([]record, error) {
	recs, err := s.scanOnce()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The directory listing itself raced with a concurrent external
			// removal (not a single entry, which scanOnce already tolerates
			// on its own); re-enumerate once rather than fail outright.
			return s.scanOnce()
		}
		return nil, err
	}
	return recs, nil
}

func (s *Store) scanOnce() ([]record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		// Wrapping err too (not just %v) keeps it in the error chain so
		// errors.Is(_, os.ErrNotExist) in scanSorted can still see it.
		return nil, fmt.Errorf("%w: %w", dictdisk.ErrIO, err)
	}
	recs := make([]record, 0, len(entries))
	for _, de := range entries {
		if de.IsDir() || de.Name() == lockFileName {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue // concurrently deleted; tolerated
			}
			return nil, fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
		}
		key, err := s.name.ReadKey(path, de.Name())
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
		}
		birth, err := s.name.ReadBirthtime(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
		}
		recs = append(recs, record{key: key, birth: birth})
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].birth.Equal(recs[j].birth) {
			return recs[i].birth.Before(recs[j].birth)
		}
		return recs[i].key < recs[j].key
	})
	return recs, nil
}

// WithScope runs fn against s and always calls Clear on exit, mirroring the
// source's scope-guarded lifecycle (opening a store with a scope guard
// implies ephemeral use). An error from fn is not suppressed; it is
// returned after Clear has run, alongside a logged diagnostic. A Clear
// failure is logged and, if fn otherwise succeeded, returned in its place.
func WithScope(ctx context.Context, s *Store, fn func(*Store) error) (err error) {
	defer func() {
		if cerr := s.Clear(ctx); cerr != nil {
			s.logger.Printf("dictdisk: scope clear failed: %v", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()
	err = fn(s)
	if err != nil {
		s.logger.Printf("dictdisk: scope exited with error: %v", err)
	}
	return err
}
