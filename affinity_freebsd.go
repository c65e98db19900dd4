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

//go:build freebsd && (amd64 || arm64 || riscv64)

package cputopo

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// cpuset(2) level and which selectors, see sys/cpuset.h.
const (
	cpuLevelWhich = 3
	cpuWhichTID   = 1
	currentThread = ^uintptr(0) // id -1
)

type platform struct{}

func (platform) NumCPU() uint {
	maxid, err := unix.SysctlUint32("kern.smp.maxid")
	if err != nil {
		return uint(runtime.NumCPU())
	}
	return uint(maxid) + 1
}

func (platform) NumCPUOnline() uint {
	ncpu, err := unix.SysctlUint32("hw.ncpu")
	if err != nil {
		return uint(runtime.NumCPU())
	}
	return uint(ncpu)
}

// Affinity returns the affinity of the calling thread, growing the Set
// until the kernel accepts its size.
func (platform) Affinity() (Set, error) {
	for setlen := uint64(1); ; setlen *= 2 {
		set := make(Set, setlen)
		_, _, e := unix.RawSyscall6(unix.SYS_CPUSET_GETAFFINITY,
			cpuLevelWhich, cpuWhichTID, currentThread,
			uintptr(setlen*wordbytesize), uintptr(unsafe.Pointer(&set[0])), 0)
		if e != 0 {
			if e == unix.ERANGE {
				continue
			}
			return nil, e
		}
		return set, nil
	}
}

func (p platform) SetAffinity(cpus Set) error {
	if err := checkAffinity(cpus, p.NumCPU()); err != nil {
		return err
	}
	_, _, e := unix.RawSyscall6(unix.SYS_CPUSET_SETAFFINITY,
		cpuLevelWhich, cpuWhichTID, currentThread,
		uintptr(uint64(len(cpus))*wordbytesize), uintptr(unsafe.Pointer(&cpus[0])), 0)
	if e != 0 {
		return e
	}
	return nil
}
