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

/*
Package apic decomposes x86 APIC IDs into topology coordinates: the hardware
thread (SMT) inside a core, the core inside a package, and the package
(socket) itself.

The bit layout of APIC IDs differs between vendors. [Probe] determines the
vendor once and returns either an [AMD] or an [Intel] [Decomposer], whose
bit field widths have been derived from the CPUID leaves of the probed CPU.
Decomposing then is a matter of masking and shifting:

	d, err := apic.Probe(cpuid.Hardware)
	if err != nil {
	    return err // topology unknown
	}
	coord := d.Decompose(cpuid.InitialAPICID(cpuid.Hardware))

CPUs from other vendors or lacking the necessary leaves are reported as
[ErrUnsupported] instead of guessing.
*/
package apic
