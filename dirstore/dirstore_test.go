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

package dirstore_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/dictlock"
	"github.com/cloudnull/dictdisk/dirstore"
	"github.com/cloudnull/dictdisk/dirstore/dirstoretest"
)

func open(t *testing.T) *dirstore.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := dirstore.Open(dir, dirstore.Options{Lock: dictlock.NewMutexLock()})
	if err != nil {
		t.Fatalf("Open(%q): %v", dir, err)
	}
	return s
}

func TestStore(t *testing.T) {
	dirstoretest.Run(t, open(t))
}

func TestPopItemOrder(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Insert(ctx, key, key); err != nil {
			t.Fatalf("Insert(%q): %v", key, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := s.PopItem(ctx)
		if err != nil {
			t.Fatalf("PopItem(): %v", err)
		}
		if got != want {
			t.Errorf("PopItem(): got %v, want %v", got, want)
		}
	}

	if _, err := s.PopItem(ctx); !dictdisk.IsEmpty(err) {
		t.Errorf("PopItem() on empty store: got %v, want ErrEmpty", err)
	}
}

func TestPopOr(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	got, err := s.PopOr(ctx, "nonesuch", "fallback")
	if err != nil {
		t.Fatalf("PopOr(nonesuch): %v", err)
	}
	if got != "fallback" {
		t.Errorf("PopOr(nonesuch): got %v, want fallback", got)
	}

	if err := s.Insert(ctx, "k", "v"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err = s.PopOr(ctx, "k", "fallback")
	if err != nil {
		t.Fatalf("PopOr(k): %v", err)
	}
	if got != "v" {
		t.Errorf("PopOr(k): got %v, want v", got)
	}
	if ok, _ := s.Contains(ctx, "k"); ok {
		t.Errorf("Contains(k) after PopOr: got true, want false")
	}
}

func TestWithScopeClearsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	err := dirstore.WithScope(ctx, s, func(s *dirstore.Store) error {
		return s.Insert(ctx, "k", "v")
	})
	if err != nil {
		t.Fatalf("WithScope: %v", err)
	}
	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Len() after WithScope: got %d, want 0", n)
	}
}

func TestWithScopeClearsOnError(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	sentinel := errors.New("boom")

	err := dirstore.WithScope(ctx, s, func(s *dirstore.Store) error {
		if ierr := s.Insert(ctx, "k", "v"); ierr != nil {
			return ierr
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithScope: got %v, want %v", err, sentinel)
	}
	n, lerr := s.Len(ctx)
	if lerr != nil {
		t.Fatalf("Len: %v", lerr)
	}
	if n != 0 {
		t.Errorf("Len() after failing WithScope: got %d, want 0", n)
	}
}

func TestKeysFromIndex(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	for _, key := range []string{"c", "a", "b"} {
		if err := s.Insert(ctx, key, nil); err != nil {
			t.Fatalf("Insert(%q): %v", key, err)
		}
	}

	var got []string
	if err := s.Keys(ctx, 1, func(key string) bool {
		got = append(got, key)
		return true
	}); err != nil {
		t.Fatalf("Keys(1): %v", err)
	}
	want := []string{"a", "b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Keys(1): got %v, want %v", got, want)
	}
}

func TestCopyAliasesSameDirectory(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	c := s.Copy()

	if err := s.Insert(ctx, "k", "v"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get via copy: %v", err)
	}
	if got != "v" {
		t.Errorf("Get via copy: got %v, want v", got)
	}
	if c.Dir() != s.Dir() {
		t.Errorf("Copy().Dir() = %q, want %q", c.Dir(), s.Dir())
	}
}

func TestReopenSurvivesDirReplacedByFile(t *testing.T) {
	dir := t.TempDir() + "/store"
	if err := os.WriteFile(dir, []byte("not a directory"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := dirstore.Open(dir, dirstore.Options{Lock: dictlock.NewMutexLock()})
	if err != nil {
		t.Fatalf("Open() over a regular file: %v", err)
	}
	if ok, _ := s.Contains(context.Background(), "anything"); ok {
		t.Errorf("Contains() on freshly-replaced dir: got true, want false")
	}
}
