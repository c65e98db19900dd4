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
	kcpuid "github.com/klauspost/cpuid/v2"
	"github.com/shoenig/go-m1cpu"
)

// HostInfo summarizes the processor(s) of this host.
type HostInfo struct {
	Brand          string // marketing name, such as “AMD EPYC 7402P 24-Core Processor”
	Vendor         string // vendor identification, such as “AuthenticAMD”
	LogicalCores   int
	PhysicalCores  int
	ThreadsPerCore int
	// Apple Silicon only.
	PerformanceCores int
	EfficiencyCores  int
}

// Host returns information about the processor(s) of this host, as far as
// known. Fields that cannot be determined are left zero.
func Host() HostInfo {
	info := HostInfo{
		Brand:          kcpuid.CPU.BrandName,
		Vendor:         kcpuid.CPU.VendorString,
		LogicalCores:   kcpuid.CPU.LogicalCores,
		PhysicalCores:  kcpuid.CPU.PhysicalCores,
		ThreadsPerCore: kcpuid.CPU.ThreadsPerCore,
	}
	if m1cpu.IsAppleSilicon() {
		info.Brand = m1cpu.ModelName()
		info.Vendor = "Apple"
		info.PerformanceCores = m1cpu.PCoreCount()
		info.EfficiencyCores = m1cpu.ECoreCount()
		if info.LogicalCores == 0 {
			info.LogicalCores = info.PerformanceCores + info.EfficiencyCores
			info.PhysicalCores = info.LogicalCores
			info.ThreadsPerCore = 1
		}
	}
	return info
}
