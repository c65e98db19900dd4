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

import "syscall"

// AffinityManager gets and sets the CPU affinity of the calling thread, and
// tells the number of logical CPUs.
//
// Affinity changes only concern the OS-level thread the calling go routine
// currently runs on, so callers must lock their go routine to its thread
// using [runtime.LockOSThread] beforehand. Callers that don't restore the
// original affinity should not unlock, so that the tainted thread gets thrown
// away when the go routine terminates.
type AffinityManager interface {
	// NumCPU returns the number of configured logical CPUs. Valid CPU numbers
	// are in the range [0...NumCPU()).
	NumCPU() uint
	// NumCPUOnline returns the number of logical CPUs currently online.
	NumCPUOnline() uint
	// Affinity returns the set of CPUs the calling thread is allowed to run
	// on.
	Affinity() (Set, error)
	// SetAffinity restricts the calling thread to the specified CPUs. OS
	// errors are returned unmodified and never retried.
	SetAffinity(cpus Set) error
}

// Pinner is optionally implemented by an [AffinityManager] to tell whether
// setting the affinity actually pins a thread to the CPUs specified. An
// AffinityManager not implementing Pinner is assumed to be able to pin.
type Pinner interface {
	CanPin() bool
}

// Platform is the AffinityManager for the operating system this package was
// built for. On Windows, Platform only covers the up to 64 CPUs of a single
// processor group, so its CPU counts are capped at 64 (32 on 32 bit
// architectures).
var Platform AffinityManager = platform{}

// CanPin returns true if the specified AffinityManager is able to pin threads
// to CPUs.
func CanPin(m AffinityManager) bool {
	if p, ok := m.(Pinner); ok {
		return p.CanPin()
	}
	return true
}

// NopManager is the AffinityManager for platforms without user-settable thread
// affinity: threads always run on all CPUs, and setting the affinity is a
// no-op that always succeeds, whatever the CPUs.
type NopManager struct {
	CPUs   uint // number of configured CPUs
	Online uint // number of online CPUs
}

var (
	_ AffinityManager = NopManager{}
	_ Pinner          = NopManager{}
)

func (m NopManager) NumCPU() uint       { return m.CPUs }
func (m NopManager) NumCPUOnline() uint { return m.Online }
func (NopManager) CanPin() bool         { return false }

// Affinity returns all CPUs.
func (m NopManager) Affinity() (Set, error) {
	if m.CPUs == 0 {
		return Set{}, nil
	}
	return Set{}.AddRange(0, m.CPUs-1), nil
}

// SetAffinity does nothing.
func (NopManager) SetAffinity(Set) error { return nil }

// NumCPU returns the number of configured logical CPUs of this system.
func NumCPU() uint { return Platform.NumCPU() }

// NumCPUOnline returns the number of logical CPUs of this system currently
// online.
func NumCPUOnline() uint { return Platform.NumCPUOnline() }

// Affinity returns the CPU affinity Set of the calling thread.
func Affinity() (Set, error) { return Platform.Affinity() }

// SetAffinity sets the CPU affinity of the calling thread.
func SetAffinity(cpus Set) error { return Platform.SetAffinity(cpus) }

// checkAffinity returns EINVAL if cpus is empty or contains a CPU numbered
// numcpu or higher.
func checkAffinity(cpus Set, numcpu uint) error {
	highest, ok := uint(0), false
	for cpu := range cpus.CPUs() {
		highest, ok = cpu, true
	}
	if !ok || highest >= numcpu {
		return syscall.EINVAL
	}
	return nil
}
