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
	"math/bits"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask  = modkernel32.NewProc("SetThreadAffinityMask")
	procGetProcessAffinityMask = modkernel32.NewProc("GetProcessAffinityMask")
)

// Thread affinity masks cover only the CPUs of the processor group the
// thread belongs to, at most one machine word.
var maskbits = uint(bits.UintSize)

// platform manages thread affinities within the processor group of the
// calling thread only.
type platform struct{}

// NumCPU returns the number of configured logical CPUs, capped at the 32 or
// 64 CPUs a thread affinity mask can address. Hosts with more CPUs thus
// report fewer CPUs than they actually have.
func (platform) NumCPU() uint {
	return min(uint(windows.GetMaximumProcessorCount(windows.ALL_PROCESSOR_GROUPS)), maskbits)
}

// NumCPUOnline returns the number of active logical CPUs, capped at the 32 or
// 64 CPUs a thread affinity mask can address, same as NumCPU.
func (platform) NumCPUOnline() uint {
	return min(uint(windows.GetActiveProcessorCount(windows.ALL_PROCESSOR_GROUPS)), maskbits)
}

// Affinity returns the affinity of the calling thread. As there is no
// GetThreadAffinityMask, the thread's mask is temporarily replaced by the
// process mask, which returns the previous thread mask, and then restored.
func (platform) Affinity() (Set, error) {
	var procmask, sysmask uintptr
	r, _, err := procGetProcessAffinityMask.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&procmask)),
		uintptr(unsafe.Pointer(&sysmask)))
	if r == 0 {
		return nil, err
	}
	old, err := setThreadAffinityMask(procmask)
	if err != nil {
		return nil, err
	}
	if _, err := setThreadAffinityMask(old); err != nil {
		return nil, err
	}
	return Set{uint64(old)}, nil
}

func (p platform) SetAffinity(cpus Set) error {
	if err := checkAffinity(cpus, p.NumCPU()); err != nil {
		return err
	}
	_, err := setThreadAffinityMask(uintptr(cpus[0]))
	return err
}

// setThreadAffinityMask sets the affinity mask of the calling thread,
// returning its previous mask.
func setThreadAffinityMask(mask uintptr) (uintptr, error) {
	old, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if old == 0 {
		if errno, ok := err.(syscall.Errno); ok && errno != 0 {
			return 0, errno
		}
		return 0, syscall.EINVAL
	}
	return old, nil
}
