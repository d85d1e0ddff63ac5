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

// Package queue implements a durable FIFO layered directly over a
// dirstore.Store: Put writes a fresh entry, Get pops the oldest. The
// queue's order is exactly the store's insertion order, so ordering across
// a single process is total; across cooperating processes it is
// best-effort, tie-broken lexicographically by key.
package queue

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/dirstore"
	"github.com/cloudnull/dictdisk/internal/edgecond"
)

// Options configures a Queue at open time.
type Options struct {
	// Store configures the underlying directory store. The Lock, KeyCodec,
	// and ValueCodec fields behave exactly as for dirstore.Open.
	Store dirstore.Options
}

// Queue is a durable FIFO backed by one dirstore.Store directory.
type Queue struct {
	store  *dirstore.Store
	wake   *edgecond.Cond
	logger *log.Logger
}

// Open opens (creating if necessary) a Queue rooted at dir.
func Open(dir string, opts Options) (*Queue, error) {
	store, err := dirstore.Open(dir, opts.Store)
	if err != nil {
		return nil, err
	}
	logger := opts.Store.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{store: store, wake: edgecond.New(), logger: logger}, nil
}

// Put enqueues value under a fresh unique key and wakes every waiter blocked
// in Get; each rechecks the store, and those that find it empty wait again.
func (q *Queue) Put(ctx context.Context, value any) error {
	key := uuid.New().String()
	if err := q.store.Insert(ctx, key, value); err != nil {
		return err
	}
	q.wake.Signal()
	return nil
}

// PutNowait is equivalent to Put: the queue is unbounded, so there is no
// capacity to wait for.
func (q *Queue) PutNowait(ctx context.Context, value any) error {
	return q.Put(ctx, value)
}

// GetNowait pops the oldest value without waiting. It reports ErrEmpty
// immediately if the queue is empty.
func (q *Queue) GetNowait(ctx context.Context) (any, error) {
	return q.store.PopItem(ctx)
}

// Get pops the oldest value, waiting up to timeout if the queue is
// currently empty. A nil timeout waits indefinitely (until ctx ends). A
// timeout of zero is equivalent to GetNowait. A negative timeout reports
// ErrInvalidArgument. Timeout expiry reports ErrEmpty.
func (q *Queue) Get(ctx context.Context, timeout *time.Duration) (any, error) {
	if timeout != nil {
		if *timeout < 0 {
			return nil, dictdisk.ErrInvalidArgument
		}
		if *timeout == 0 {
			return q.GetNowait(ctx)
		}
	}

	var deadline <-chan time.Time
	if timeout != nil {
		timer := time.NewTimer(*timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		// Subscribe before checking, not after: a Put landing between the
		// check and the subscribe would close/replace the channel before
		// this waiter captured it, stranding the waiter on the next round.
		ready := q.wake.Ready()

		v, err := q.store.PopItem(ctx)
		if err == nil {
			return v, nil
		}
		if !dictdisk.IsEmpty(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ready:
			// Something was Put; loop around and try again.
		case <-deadline:
			return nil, dictdisk.ErrEmpty
		}
	}
}

// Qsize reports the number of values currently queued.
func (q *Queue) Qsize(ctx context.Context) (int, error) { return q.store.Len(ctx) }

// Empty reports whether the queue is currently empty.
func (q *Queue) Empty(ctx context.Context) (bool, error) {
	n, err := q.Qsize(ctx)
	return n == 0, err
}

// Close removes the queue directory. It tolerates the directory already
// being gone. Pending waiters in Get are not woken; the caller is expected
// to have quiesced them first.
func (q *Queue) Close(context.Context) error {
	if err := os.RemoveAll(q.store.Dir()); err != nil {
		return fmt.Errorf("%w: %v", dictdisk.ErrIO, err)
	}
	return nil
}

// Dir reports the directory path backing the queue.
func (q *Queue) Dir() string { return q.store.Dir() }
