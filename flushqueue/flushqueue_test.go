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

package flushqueue_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/dictlock"
	"github.com/cloudnull/dictdisk/dirstore"
	"github.com/cloudnull/dictdisk/flushqueue"
)

func open(t *testing.T) (*flushqueue.Queue[string], string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "overflow")
	opts := dirstore.Options{Lock: dictlock.NewMutexLock()}
	return flushqueue.New[string](dir, opts), dir
}

func TestFlushMovesValuesToDisk(t *testing.T) {
	ctx := context.Background()
	q, dir := open(t)

	for _, v := range []string{"a", "b", "c"} {
		q.Put(v)
	}
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !q.Empty() {
		t.Errorf("Empty() after Flush: got false")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("durable directory missing after Flush: %v", err)
	}
}

func TestIngestRestoresValuesAndRemovesDir(t *testing.T) {
	ctx := context.Background()
	q, dir := open(t)

	for _, v := range []string{"a", "b", "c"} {
		q.Put(v)
	}
	if err := q.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	q2 := flushqueue.New[string](dir, dirstore.Options{Lock: dictlock.NewMutexLock()})
	if err := q2.Ingest(ctx); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if q2.Qsize() != 3 {
		t.Fatalf("Qsize() after Ingest: got %d, want 3", q2.Qsize())
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q2.GetNowait()
		if err != nil {
			t.Fatalf("GetNowait: %v", err)
		}
		if got != want {
			t.Errorf("GetNowait: got %v, want %v", got, want)
		}
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("durable directory still present after Ingest: %v", err)
	}
}

func TestIngestNoopWhenDirMissing(t *testing.T) {
	ctx := context.Background()
	q, _ := open(t)
	if err := q.Ingest(ctx); err != nil {
		t.Fatalf("Ingest on missing directory: %v", err)
	}
	if !q.Empty() {
		t.Errorf("Empty() after no-op Ingest: got false")
	}
}

func TestGetNowaitEmptyAfterIngestNoop(t *testing.T) {
	q, _ := open(t)
	if err := q.Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest on missing directory: %v", err)
	}
	_, err := q.GetNowait()
	if !dictdisk.IsEmpty(err) {
		t.Errorf("GetNowait(): got %v, want ErrEmpty", err)
	}
}
