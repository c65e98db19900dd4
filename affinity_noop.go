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

//go:build !linux && !windows && !(freebsd && (amd64 || arm64 || riscv64))

package cputopo

// platform has no user-settable thread affinity.
type platform struct{}

func (platform) manager() NopManager {
	return NopManager{CPUs: numCPU(), Online: numCPUOnline()}
}

func (p platform) Affinity() (Set, error) { return p.manager().Affinity() }

func (p platform) SetAffinity(cpus Set) error { return p.manager().SetAffinity(cpus) }

func (platform) CanPin() bool { return false }

func (platform) NumCPU() uint { return numCPU() }

func (platform) NumCPUOnline() uint { return numCPUOnline() }
