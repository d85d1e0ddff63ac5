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

// Package flushqueue bridges an in-memory FIFO with a durable queue, for
// overflowing memory to disk under backpressure and reloading on restart
// or once capacity recovers. Go has no mixin mechanism, so where the
// source mixes the adapter into an in-memory FIFO implementation, Queue
// here embeds one instead.
package flushqueue

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/dirstore"
	"github.com/cloudnull/dictdisk/memqueue"
	"github.com/cloudnull/dictdisk/queue"
)

// Queue is an in-memory FIFO with explicit overflow-to-disk (Flush) and
// reload (Ingest) operations. The directory backing the durable side is
// materialized only when Flush is first called.
type Queue[T any] struct {
	*memqueue.Queue[T]

	dir       string
	storeOpts dirstore.Options
}

// New returns a Queue whose in-memory side is empty and whose durable side
// will be rooted at dir once Flush or Ingest materializes it.
func New[T any](dir string, opts dirstore.Options) *Queue[T] {
	return &Queue[T]{Queue: memqueue.New[T](), dir: dir, storeOpts: opts}
}

// Flush drains the in-memory FIFO to the durable queue at dir, preserving
// order. After Flush returns successfully, Qsize() == 0 and every value is
// on disk.
func (q *Queue[T]) Flush(ctx context.Context) error {
	dq, err := queue.Open(q.dir, queue.Options{Store: q.storeOpts})
	if err != nil {
		return err
	}
	for {
		v, err := q.Queue.GetNowait()
		if dictdisk.IsEmpty(err) {
			return nil
		} else if err != nil {
			return err
		}
		if err := dq.Put(ctx, v); err != nil {
			return err
		}
	}
}

// Ingest reloads every value from the durable queue at dir into the
// in-memory FIFO, then removes the durable queue's directory. If dir does
// not exist, Ingest does nothing.
func (q *Queue[T]) Ingest(ctx context.Context) error {
	if _, err := os.Stat(q.dir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	dq, err := queue.Open(q.dir, queue.Options{Store: q.storeOpts})
	if err != nil {
		return err
	}
	for {
		v, err := dq.GetNowait(ctx)
		if dictdisk.IsEmpty(err) || dictdisk.IsMissing(err) {
			break
		} else if err != nil {
			return err
		}
		tv, ok := v.(T)
		if !ok {
			return fmt.Errorf("%w: unexpected queued value type", dictdisk.ErrDecode)
		}
		q.Queue.Put(tv)
	}
	return dq.Close(ctx)
}
