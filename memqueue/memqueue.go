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

// Package memqueue implements the thread-safe, in-process unbounded FIFO
// that flushqueue composes with. No repo in this module's retrieval pack
// ships an importable generic FIFO, so this is a small, direct
// implementation rather than an adapter over a third-party one; see
// DESIGN.md for that judgment call.
package memqueue

import (
	"context"
	"sync"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/internal/edgecond"
)

// Queue is an in-memory FIFO of values of type T. The zero Queue is not
// ready for use; construct one with New.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  *edgecond.Cond
}

// New returns an empty Queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{wake: edgecond.New()}
}

// Put appends value to the tail of the queue and wakes every waiter blocked
// in Get; each rechecks the queue, and those that find it empty wait again.
func (q *Queue[T]) Put(value T) {
	q.mu.Lock()
	q.items = append(q.items, value)
	q.mu.Unlock()
	q.wake.Signal()
}

// GetNowait pops the value at the head of the queue without waiting. It
// reports ErrEmpty immediately if the queue is empty.
func (q *Queue[T]) GetNowait() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, dictdisk.ErrEmpty
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v, nil
}

// Get pops the value at the head of the queue, blocking until one is
// available or ctx ends.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		// Subscribe before checking, not after: a Put landing between the
		// check and the subscribe would close/replace the channel before
		// this waiter captured it, stranding the waiter on the next round.
		ready := q.wake.Ready()

		v, err := q.GetNowait()
		if err == nil {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ready:
		}
	}
}

// Qsize reports the number of values currently queued.
func (q *Queue[T]) Qsize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue is currently empty.
func (q *Queue[T]) Empty() bool { return q.Qsize() == 0 }
