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

//go:build !linux && !windows && !(freebsd && (amd64 || arm64 || riscv64)) && !darwin

package cputopo

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

func numCPU() uint {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return uint(runtime.NumCPU())
	}
	return uint(n)
}

// numCPUOnline returns the number of CPUs available to this process, as
// there is no portable way to tell offline CPUs.
func numCPUOnline() uint { return min(uint(runtime.NumCPU()), numCPU()) }
