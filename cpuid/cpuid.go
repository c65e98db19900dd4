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
Package cpuid issues x86 CPUID queries and interprets the few leaves needed
to locate a logical CPU inside its package.

A [Querier] abstracts the CPUID instruction: [Hardware] executes it on
whatever logical CPU the calling OS thread currently runs on, while [Table]
replays register values captured elsewhere, such as in unit tests.

Please note that CPUID always answers for the logical CPU currently executing
the instruction. Callers needing the identifiers of other logical CPUs thus
first have to lock their go routine to its OS thread and then pin that thread
to the logical CPU in question.
*/
package cpuid

// Leaves (and extended leaves) used when decomposing APIC IDs.
const (
	LeafVendor          uint32 = 0x0        // highest base leaf, vendor string
	LeafFeatures        uint32 = 0x1        // initial APIC ID, logical CPUs per package
	LeafCacheParams     uint32 = 0x4        // deterministic cache parameters, cores per package
	LeafExtMax          uint32 = 0x80000000 // highest extended leaf
	LeafExtAddressSizes uint32 = 0x80000008 // AMD: APIC ID core id size
	LeafExtTopology     uint32 = 0x8000001e // AMD: threads per compute unit
)

// Regs contains the registers returned by a single CPUID query.
type Regs struct {
	EAX, EBX, ECX, EDX uint32
}

// Querier executes CPUID queries for a leaf and sub-leaf.
type Querier interface {
	Query(leaf, subleaf uint32) Regs
}

// Hardware queries the CPU the calling OS thread is currently running on.
// On non-x86 architectures all queries return zeroed registers.
var Hardware Querier = hardware{}

type hardware struct{}

func (hardware) Query(leaf, subleaf uint32) Regs {
	eax, ebx, ecx, edx := cpuid(leaf, subleaf)
	return Regs{EAX: eax, EBX: ebx, ECX: ecx, EDX: edx}
}

// Available reports whether this architecture supports CPUID queries at all.
func Available() bool {
	return available
}

// Leaf identifies a CPUID query by its leaf and sub-leaf.
type Leaf struct {
	ID  uint32
	Sub uint32
}

// Table is a Querier replaying canned register values. Queries for leaves
// missing from the table return zeroed registers, which is also what real
// CPUs do for most out-of-range leaves.
type Table map[Leaf]Regs

// Query returns the registers stored for the specified leaf and sub-leaf.
func (t Table) Query(leaf, subleaf uint32) Regs {
	return t[Leaf{ID: leaf, Sub: subleaf}]
}

// InitialAPICID returns the 8 bit initial APIC ID of the logical CPU
// currently executing the query, taken from leaf 1 EBX[31:24].
func InitialAPICID(q Querier) uint32 {
	return q.Query(LeafFeatures, 0).EBX >> 24
}
