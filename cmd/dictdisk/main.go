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

// Program dictdisk provides basic command-line access to a directory-backed
// associative store and its durable FIFO queue.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/creachadair/command"
)

type settings struct {
	Context context.Context

	// Flag targets
	Dir       string // global
	Timeout   string // queue get
	MissingOK bool   // delete
}

func main() {
	if err := command.Execute(tool.NewEnv(&settings{
		Context: context.Background(),
	}), os.Args[1:]); err != nil {
		if errors.Is(err, command.ErrUsage) {
			os.Exit(2)
		}
		log.Fatalf("Error: %v", err)
	}
}

var tool = &command.C{
	Name: filepath.Base(os.Args[0]),
	Usage: `[options] command [args...]
help [command]`,
	Help: `Manipulate the contents of a directory-backed associative store.

The DICTDISK_DIR environment variable is read to choose a default store
directory; otherwise -dir must be set.
`,

	SetFlags: func(env *command.Env, fs *flag.FlagSet) {
		cfg := env.Config.(*settings)
		fs.StringVar(&cfg.Dir, "dir", os.Getenv("DICTDISK_DIR"), "Store directory (required)")
	},

	Init: func(env *command.Env) error {
		cfg := env.Config.(*settings)
		cfg.Dir = os.ExpandEnv(cfg.Dir)
		return nil
	},

	Commands: []*command.C{
		{
			Name:  "put",
			Usage: "put <key> <value>",
			Help:  "Insert a string value under a key",
			Run:   putCmd,
		},
		{
			Name:  "get",
			Usage: "get <key>",
			Help:  "Print the value stored under a key",
			Run:   getCmd,
		},
		{
			Name:  "delete",
			Usage: "delete <key>",
			Help:  "Delete a key",

			SetFlags: func(env *command.Env, fs *flag.FlagSet) {
				cfg := env.Config.(*settings)
				fs.BoolVar(&cfg.MissingOK, "missing-ok", false, "Do not report an error for missing keys")
			},
			Run: deleteCmd,
		},
		{
			Name: "list",
			Help: "List keys in the store, one per line",
			Run:  listCmd,
		},
		{
			Name: "len",
			Help: "Print the number of stored keys",
			Run:  lenCmd,
		},
		{
			Name: "clear",
			Help: "Delete every entry in the store",
			Run:  clearCmd,
		},
		{
			Name: "queue",
			Help: "Operate on the durable FIFO rooted at -dir",

			Commands: []*command.C{
				{
					Name:  "put",
					Usage: "queue put <value>",
					Help:  "Enqueue a string value",
					Run:   queuePutCmd,
				},
				{
					Name: "get",
					Help: "Dequeue and print the oldest value",

					SetFlags: func(env *command.Env, fs *flag.FlagSet) {
						cfg := env.Config.(*settings)
						fs.StringVar(&cfg.Timeout, "timeout", "", "Maximum time to wait for a value (blocks forever if unset)")
					},
					Run: queueGetCmd,
				},
				{
					Name: "len",
					Help: "Print the number of queued values",
					Run:  queueLenCmd,
				},
			},
		},
		command.HelpCommand(nil),
	},
}
