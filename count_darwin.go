// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package cputopo

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func numCPU() uint { return sysctlCount("hw.ncpu") }

func numCPUOnline() uint { return sysctlCount("hw.activecpu") }

func sysctlCount(name string) uint {
	n, err := unix.SysctlUint32(name)
	if err != nil || n == 0 {
		return uint(runtime.NumCPU())
	}
	return uint(n)
}
