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

package dictlock_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudnull/dictdisk/dictlock"
)

func TestMutexLockExcludes(t *testing.T) {
	l := dictlock.NewMutexLock()
	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := l.Acquire(ctx); err != nil {
			t.Errorf("second Acquire: %v", err)
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second Acquire returned before Release")
	case <-time.After(20 * time.Millisecond):
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	<-acquired
}

func TestFileLockExcludesAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	a := dictlock.NewFileLock(path)
	b := dictlock.NewFileLock(path)

	ctx := context.Background()
	if err := a.Acquire(ctx); err != nil {
		t.Fatalf("a.Acquire: %v", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx2); err == nil {
		t.Fatalf("b.Acquire: succeeded while a held the lock")
	}

	if err := a.Release(); err != nil {
		t.Fatalf("a.Release: %v", err)
	}
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("b.Acquire after release: %v", err)
	}
	if err := b.Release(); err != nil {
		t.Fatalf("b.Release: %v", err)
	}
}

// TestFileLockExcludesWithinProcess guards against a single *flock.Flock
// short-circuiting a second same-process Acquire while the first goroutine
// still holds it.
func TestFileLockExcludesWithinProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	l := dictlock.NewFileLock(path)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := l.Acquire(ctx); err != nil {
			t.Errorf("second Acquire: %v", err)
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second goroutine's Acquire returned before Release")
	case <-time.After(20 * time.Millisecond):
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	<-acquired
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}
