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

//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package entryname

import (
	"os"
	"time"
)

// statCtime falls back to ModTime on platforms (Windows and anything else
// not covered by stat_linux.go/stat_bsd.go) where syscall.Stat_t's
// ctime field is unavailable or named differently.
func statCtime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
