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

// Package dictlock defines the locking capability used by a dirstore.Store
// to serialize mutating operations. Two implementations are provided: a
// cross-process lock backed by flock(2), and an in-process mutex for
// callers that do not need cross-process safety. The choice is made once,
// at store-open time, and does not change for the lifetime of the handle.
package dictlock

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// A Lock is an exclusive section guard held for the duration of a single
// store operation.
type Lock interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context) error

	// Release releases a lock held by a prior successful Acquire.
	Release() error
}

// retryDelay is how often FileLock polls for the underlying file lock while
// waiting on Acquire. flock(2) has no native blocking-with-context wait, so
// this mirrors the common retry-poll idiom used around gofrs/flock.
const retryDelay = 5 * time.Millisecond

// FileLock is a cross-process Lock backed by an advisory flock(2) lock file
// (dirstore keeps it inside the store directory, next to the entries). It
// is the default lock for a
// dirstore.Store, since stores are designed to be safely shared between
// cooperating processes on one host.
//
// A single *flock.Flock already holds the underlying OS lock once acquired,
// so a second goroutine in the same process calling TryLockContext on it
// would short-circuit to success instead of blocking. The in-process mu
// guards against that: only one goroutine at a time is ever inside the
// flock acquire/release section, matching the cross-process guarantee with
// an in-process one.
type FileLock struct {
	mu sync.Mutex
	fl *flock.Flock
}

// NewFileLock constructs a FileLock using path as the lock file. The file
// need not exist; flock creates it on first use.
func NewFileLock(path string) *FileLock {
	return &FileLock{fl: flock.New(path)}
}

// Acquire implements Lock.
func (l *FileLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	ok, err := l.fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if !ok {
		l.mu.Unlock()
		return ctx.Err()
	}
	return nil
}

// Release implements Lock.
func (l *FileLock) Release() error {
	err := l.fl.Unlock()
	l.mu.Unlock()
	return err
}

// MutexLock is an in-process Lock backed by a sync.Mutex. Callers inject
// this instead of FileLock when cross-process safety is not needed (for
// example a store directory private to one process).
type MutexLock struct {
	mu sync.Mutex
}

// NewMutexLock constructs a ready-to-use MutexLock.
func NewMutexLock() *MutexLock { return &MutexLock{} }

// Acquire implements Lock. It ignores ctx cancellation once blocked, since
// sync.Mutex has no cancellable wait; in-process contention is expected to
// be brief.
func (l *MutexLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	return nil
}

// Release implements Lock.
func (l *MutexLock) Release() error {
	l.mu.Unlock()
	return nil
}
