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

package memqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/memqueue"
)

func TestFIFOOrder(t *testing.T) {
	q := memqueue.New[int]()
	for _, v := range []int{1, 2, 3} {
		q.Put(v)
	}
	for _, want := range []int{1, 2, 3} {
		got, err := q.GetNowait()
		if err != nil {
			t.Fatalf("GetNowait(): %v", err)
		}
		if got != want {
			t.Errorf("GetNowait(): got %d, want %d", got, want)
		}
	}
}

func TestGetNowaitEmpty(t *testing.T) {
	q := memqueue.New[string]()
	_, err := q.GetNowait()
	if !dictdisk.IsEmpty(err) {
		t.Errorf("GetNowait() on empty queue: got %v, want ErrEmpty", err)
	}
}

func TestQsizeAndEmpty(t *testing.T) {
	q := memqueue.New[int]()
	if !q.Empty() {
		t.Errorf("Empty(): got false on a new queue")
	}
	q.Put(1)
	if q.Qsize() != 1 {
		t.Errorf("Qsize(): got %d, want 1", q.Qsize())
	}
	if q.Empty() {
		t.Errorf("Empty(): got true after Put")
	}
}

func TestGetBlocksUntilPut(t *testing.T) {
	q := memqueue.New[string]()
	ctx := context.Background()

	result := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		v, err := q.Get(ctx)
		result <- v
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put("woken")

	select {
	case v := <-result:
		if err := <-errc; err != nil {
			t.Fatalf("Get: %v", err)
		}
		if v != "woken" {
			t.Errorf("Get: got %v, want woken", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("Get never returned after Put")
	}
}

func TestGetRespectsContextCancellation(t *testing.T) {
	q := memqueue.New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Get: got %v, want context.DeadlineExceeded", err)
	}
}
