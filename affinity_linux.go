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
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// setsize reflects the dynamically determined size of CPU Sets on this system
// (size in uint64 words). This is usually smaller than the fixed-sized
// [unix.CPUSet] that Go's [unix.SchedGetaffinity] uses.
var setsize atomic.Uint64

func init() {
	setsize.Store(1)
}

const (
	sysfsPossibleCPUs = "/sys/devices/system/cpu/possible"
	sysfsOnlineCPUs   = "/sys/devices/system/cpu/online"
)

type platform struct{}

// NumCPU returns one more than the highest possible CPU number.
func (platform) NumCPU() uint {
	return sysfsCPUCount(sysfsPossibleCPUs, func(l List) uint {
		return l[len(l)-1][1] + 1
	})
}

func (platform) NumCPUOnline() uint {
	return sysfsCPUCount(sysfsOnlineCPUs, List.Count)
}

func (platform) Affinity() (Set, error) {
	return TaskAffinity(0)
}

func (p platform) SetAffinity(cpus Set) error {
	if err := checkAffinity(cpus, p.NumCPU()); err != nil {
		return err
	}
	return SetTaskAffinity(0, cpus)
}

// sysfsCPUCount returns the CPU count derived from the CPU list in the
// specified sysfs file, falling back to the number of CPUs Go thinks are
// usable if the file cannot be read.
func sysfsCPUCount(path string, count func(List) uint) uint {
	l, err := readList(path)
	if err != nil || len(l) == 0 {
		return uint(runtime.NumCPU())
	}
	return count(l)
}

// TaskAffinity returns the affinity CPU Set of the task or process with the
// passed ID. If tid is zero, then the affinity of the calling thread is
// returned (make sure to have the OS-level thread locked to the calling go
// routine in this case).
//
// We don't use [unix.SchedGetaffinity] as this is tied to the fixed size
// [unix.CPUSet] type; instead, we dynamically figure out the size needed and
// cache the size internally.
func TaskAffinity(tid int) (Set, error) {
	var set Set

	setlenStart := setsize.Load()
	setlen := setlenStart
	for {
		set = make(Set, setlen)
		// RawSyscall as SYS_SCHED_GETAFFINITY does not block, following Go's
		// stdlib implementation.
		_, _, e := unix.RawSyscall(unix.SYS_SCHED_GETAFFINITY,
			uintptr(tid), uintptr(setlen*wordbytesize), uintptr(unsafe.Pointer(&set[0])))
		if e != 0 {
			if e == unix.EINVAL {
				setlen *= 2
				continue
			}
			return nil, e
		}
		// Another go routine might have upped the set size in the meantime;
		// only ever grow the cached size.
		for !setsize.CompareAndSwap(setlenStart, setlen) {
			setlenStart = setsize.Load()
			if setlenStart >= setlen {
				break
			}
		}
		return set, nil
	}
}

// SetTaskAffinity sets the CPU affinities for the specified task/process, or
// the calling thread if tid is zero. It is an error trying to set no
// affinities.
func SetTaskAffinity(tid int, cpus Set) error {
	if len(cpus) == 0 {
		return syscall.EINVAL
	}
	_, _, e := unix.RawSyscall(unix.SYS_SCHED_SETAFFINITY,
		uintptr(tid), uintptr(uint64(len(cpus))*wordbytesize), uintptr(unsafe.Pointer(&cpus[0])))
	if e != 0 {
		return e
	}
	return nil
}
