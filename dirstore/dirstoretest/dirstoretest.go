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

// Package dirstoretest provides a correctness script for implementations of
// dictdisk.Map, exercised against dirstore.Store and any future
// implementation of the interface.
package dirstoretest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/creachadair/mds/mapset"
	"github.com/google/go-cmp/cmp"

	"github.com/cloudnull/dictdisk"
)

type op = func(context.Context, *testing.T, dictdisk.Map)

var script = []op{
	opLen(0),
	opKeys(0),

	opGet("nonesuch", nil, dictdisk.ErrMissing),
	opDelete("nonesuch", dictdisk.ErrMissing),
	opContains("nonesuch", false),

	opInsert("fruit", "apple"),
	opLen(1),
	opContains("fruit", true),
	opGet("fruit", "apple", nil),

	opInsert("fruit", "pear"),
	opGet("fruit", "pear", nil),
	opLen(1),

	opInsert("nut", "hazelnut"),
	opInsert("animal", "cat"),
	opInsert("beverage", "piña colada"),
	opLen(4),
	opKeys(0, "fruit", "nut", "animal", "beverage"),

	opDelete("animal", nil),
	opDelete("animal", dictdisk.ErrMissing),
	opGet("animal", nil, dictdisk.ErrMissing),
	opLen(3),

	opSetDefault("animal", "badger", "badger"),
	opSetDefault("animal", "ignored", "badger"),
	opLen(4),

	opDelete("beverage", nil),
	opLen(3),
	opKeys(0, "fruit", "nut", "animal"),

	opClear(),
	opLen(0),
	opKeys(0),
}

func opInsert(key string, value any) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		if err := m.Insert(ctx, key, value); err != nil {
			t.Errorf("Insert(%q, %v): unexpected error: %v", key, value, err)
		}
	}
}

func opGet(key string, want any, werr error) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		got, err := m.Get(ctx, key)
		if !errorOK(err, werr) {
			t.Errorf("Get(%q): got error %v, want %v", key, err, werr)
		} else if werr == nil {
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Get(%q): wrong value (-want, +got):\n%s", key, diff)
			}
		}
	}
}

func opDelete(key string, werr error) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		err := m.Delete(ctx, key)
		if !errorOK(err, werr) {
			t.Errorf("Delete(%q): got error %v, want %v", key, err, werr)
		}
	}
}

func opContains(key string, want bool) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		got, err := m.Contains(ctx, key)
		if err != nil {
			t.Errorf("Contains(%q): unexpected error: %v", key, err)
		} else if got != want {
			t.Errorf("Contains(%q): got %v, want %v", key, got, want)
		}
	}
}

func opLen(want int) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		got, err := m.Len(ctx)
		if err != nil {
			t.Errorf("Len(): unexpected error: %v", err)
		} else if got != want {
			t.Errorf("Len(): got %d, want %d", got, want)
		}
	}
}

func opClear() op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		if err := m.Clear(ctx); err != nil {
			t.Errorf("Clear(): unexpected error: %v", err)
		}
	}
}

func opSetDefault(key string, value, want any) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		store, ok := m.(interface {
			SetDefault(context.Context, string, any) (any, error)
		})
		if !ok {
			t.Fatalf("SetDefault: %T does not implement it", m)
		}
		got, err := store.SetDefault(ctx, key, value)
		if err != nil {
			t.Errorf("SetDefault(%q, %v): unexpected error: %v", key, value, err)
		} else if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("SetDefault(%q, %v): wrong value (-want, +got):\n%s", key, value, diff)
		}
	}
}

// opKeys verifies that Keys, started at fromIndex, yields exactly want in
// order, using a mapset.Set to confirm there are no duplicates and nothing
// extra along the way.
func opKeys(fromIndex int, want ...string) op {
	return func(ctx context.Context, t *testing.T, m dictdisk.Map) {
		seen := mapset.New[string]()
		var got []string
		err := m.Keys(ctx, fromIndex, func(key string) bool {
			if seen.Contains(key) {
				t.Errorf("Keys(%d): duplicate key %q", fromIndex, key)
			}
			seen.Add(key)
			got = append(got, key)
			return true
		})
		if err != nil {
			t.Errorf("Keys(%d): unexpected error: %v", fromIndex, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Keys(%d): wrong keys (-want, +got):\n%s", fromIndex, diff)
		}
		if seen.Len() != len(want) {
			t.Errorf("Keys(%d): got %d distinct keys, want %d", fromIndex, seen.Len(), len(want))
		}
	}
}

func errorOK(err, werr error) bool {
	if werr == nil {
		return err == nil
	}
	return errors.Is(err, werr)
}

// Run applies the conformance script to empty map m, then exercises
// concurrent access from multiple goroutines. After Run returns, the
// contents of m are garbage.
func Run(t *testing.T, m dictdisk.Map) {
	ctx := context.Background()
	for _, step := range script {
		step(ctx, t, m)
	}

	const numWorkers = 8
	const numKeys = 16

	taskKey := func(task, key int) string {
		return fmt.Sprintf("task-%d-key-%d", task, key)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()

			for k := 1; k <= numKeys; k++ {
				key := taskKey(i, k)
				value := strconv.Itoa(k)
				if err := m.Insert(ctx, key, value); err != nil {
					t.Errorf("Task %d: Insert(%q, %q) failed: %v", i, key, value, err)
				}
			}

			mine := mapset.New[string]()
			for k := 1; k <= numKeys; k++ {
				mine.Add(taskKey(i, k))
			}
			seen := mapset.New[string]()
			if err := m.Keys(ctx, 0, func(key string) bool {
				if mine.Contains(key) {
					seen.Add(key)
				}
				return true
			}); err != nil {
				t.Errorf("Task %d: Keys failed: %v", i, err)
			}

			for k := 1; k <= numKeys; k++ {
				key := taskKey(i, k)
				if _, err := m.Get(ctx, key); err != nil {
					t.Errorf("Task %d: Get(%q) failed: %v", i, key, err)
				}
				if !seen.Contains(key) {
					t.Errorf("Task %d: Keys missed key %q", i, key)
				}
			}

			for k := 1; k <= numKeys; k++ {
				key := taskKey(i, k)
				if err := m.Delete(ctx, key); err != nil {
					t.Errorf("Task %d: Delete(%q) failed: %v", i, key, err)
				}
			}
		}()
	}
	wg.Wait()
}
