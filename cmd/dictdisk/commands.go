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

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creachadair/command"

	"github.com/cloudnull/dictdisk"
	"github.com/cloudnull/dictdisk/dirstore"
	"github.com/cloudnull/dictdisk/queue"
)

func getContext(env *command.Env) context.Context {
	return env.Config.(*settings).Context
}

func storeFromEnv(env *command.Env) (*dirstore.Store, error) {
	cfg := env.Config.(*settings)
	if cfg.Dir == "" {
		return nil, errors.New("no -dir was specified")
	}
	return dirstore.Open(cfg.Dir, dirstore.Options{})
}

func queueFromEnv(env *command.Env) (*queue.Queue, error) {
	cfg := env.Config.(*settings)
	if cfg.Dir == "" {
		return nil, errors.New("no -dir was specified")
	}
	return queue.Open(cfg.Dir, queue.Options{})
}

func putCmd(env *command.Env, args []string) error {
	if len(args) != 2 {
		return errors.New("usage is: put <key> <value>")
	}
	s, err := storeFromEnv(env)
	if err != nil {
		return err
	}
	return s.Insert(getContext(env), args[0], args[1])
}

func getCmd(env *command.Env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage is: get <key>")
	}
	s, err := storeFromEnv(env)
	if err != nil {
		return err
	}
	v, err := s.Get(getContext(env), args[0])
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

func deleteCmd(env *command.Env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage is: delete <key>")
	}
	s, err := storeFromEnv(env)
	if err != nil {
		return err
	}
	err = s.Delete(getContext(env), args[0])
	if dictdisk.IsMissing(err) && env.Config.(*settings).MissingOK {
		return nil
	}
	return err
}

func listCmd(env *command.Env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage is: list")
	}
	s, err := storeFromEnv(env)
	if err != nil {
		return err
	}
	return s.Keys(getContext(env), 0, func(key string) bool {
		fmt.Println(key)
		return true
	})
}

func lenCmd(env *command.Env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage is: len")
	}
	s, err := storeFromEnv(env)
	if err != nil {
		return err
	}
	n, err := s.Len(getContext(env))
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func clearCmd(env *command.Env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage is: clear")
	}
	s, err := storeFromEnv(env)
	if err != nil {
		return err
	}
	return s.Clear(getContext(env))
}

func queuePutCmd(env *command.Env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage is: queue put <value>")
	}
	q, err := queueFromEnv(env)
	if err != nil {
		return err
	}
	return q.Put(getContext(env), args[0])
}

func queueGetCmd(env *command.Env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage is: queue get")
	}
	q, err := queueFromEnv(env)
	if err != nil {
		return err
	}
	var timeout *time.Duration
	if raw := env.Config.(*settings).Timeout; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid -timeout: %w", err)
		}
		timeout = &d
	}
	v, err := q.Get(getContext(env), timeout)
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

func queueLenCmd(env *command.Env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage is: queue len")
	}
	q, err := queueFromEnv(env)
	if err != nil {
		return err
	}
	n, err := q.Qsize(getContext(env))
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}
