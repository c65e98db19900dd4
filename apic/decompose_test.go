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

package apic

import (
	"github.com/thediveo/cputopo/cpuid"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/ginkgo/v2/dsl/table"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// intelCPU returns CPUID leaves of an Intel CPU with the specified maximum
// number of addressable logical CPUs and cores per package.
func intelCPU(maxLogical, maxCores uint32) cpuid.Table {
	return cpuid.Table{
		{ID: cpuid.LeafVendor}:      cpuid.VendorRegs(cpuid.IntelVendorString, 0x16),
		{ID: cpuid.LeafFeatures}:    {EBX: maxLogical << 16},
		{ID: cpuid.LeafCacheParams}: {EAX: (maxCores - 1) << 26},
	}
}

// amdCPU returns CPUID leaves of an AMD CPU with the specified number of APIC
// ID core bits and threads per core; threads per core of zero leave out the
// extended topology leaf.
func amdCPU(coreBits, threadsPerCore uint32) cpuid.Table {
	t := cpuid.Table{
		{ID: cpuid.LeafVendor}:          cpuid.VendorRegs(cpuid.AMDVendorString, 0x10),
		{ID: cpuid.LeafExtMax}:          {EAX: cpuid.LeafExtAddressSizes},
		{ID: cpuid.LeafExtAddressSizes}: {ECX: coreBits << 12},
	}
	if threadsPerCore > 0 {
		t[cpuid.Leaf{ID: cpuid.LeafExtMax}] = cpuid.Regs{EAX: 0x80000023}
		t[cpuid.Leaf{ID: cpuid.LeafExtTopology}] = cpuid.Regs{EBX: (threadsPerCore - 1) << 8}
	}
	return t
}

var _ = Describe("decomposing APIC IDs", func() {

	It("stringifies coordinates", func() {
		Expect(Coordinate{SMT: 1, Core: 2, Socket: 3}.String()).To(Equal("3/2/1"))
	})

	When("probing Intel CPUs", func() {

		It("derives the bit layout", func() {
			d := Successful(Probe(intelCPU(16, 8)))
			Expect(d.Vendor()).To(Equal(cpuid.Intel))
			Expect(d).To(Equal(Intel{SMTBits: 1, CoreBits: 3}))

			smt, core, pkg := d.(Intel).Masks()
			Expect(smt).To(Equal(uint32(0b1)))
			Expect(core).To(Equal(uint32(0b1110)))
			Expect(pkg).To(Equal(^uint32(0) &^ 0b111))
		})

		It("decomposes", func() {
			Expect(Decompose(intelCPU(16, 8), 0b0_101_1)).To(
				Equal(Coordinate{SMT: 1, Core: 5, Socket: 0}))
			Expect(Decompose(intelCPU(16, 8), 0b11_010_0)).To(
				Equal(Coordinate{SMT: 0, Core: 2, Socket: 3}))
		})

		It("handles CPUs without SMT", func() {
			d := Successful(Probe(intelCPU(8, 8)))
			Expect(d).To(Equal(Intel{SMTBits: 0, CoreBits: 3}))
			Expect(d.Decompose(0b1_011)).To(Equal(Coordinate{SMT: 0, Core: 3, Socket: 1}))
		})

		It("rejects CPUs lacking leaf 4", func() {
			t := intelCPU(16, 8)
			t[cpuid.Leaf{ID: cpuid.LeafVendor}] = cpuid.VendorRegs(cpuid.IntelVendorString, 3)
			Expect(Probe(t)).Error().To(MatchError(ErrUnsupported))
		})

	})

	When("probing AMD CPUs", func() {

		It("derives the bit layout", func() {
			d := Successful(Probe(amdCPU(4, 2)))
			Expect(d.Vendor()).To(Equal(cpuid.AMD))
			Expect(d).To(Equal(AMD{CoreBits: 4, ThreadsPerCore: 2}))
		})

		It("defaults to a single thread per core without the topology leaf", func() {
			Expect(Probe(amdCPU(3, 0))).To(Equal(AMD{CoreBits: 3, ThreadsPerCore: 1}))
		})

		It("decomposes", func() {
			Expect(Decompose(amdCPU(4, 2), 0x23)).To(
				Equal(Coordinate{SMT: 1, Core: 1, Socket: 2}))
			Expect(Decompose(amdCPU(3, 0), 0b10_101)).To(
				Equal(Coordinate{SMT: 0, Core: 5, Socket: 2}))
		})

		It("rejects CPUs lacking extended leaf 0x80000008", func() {
			t := amdCPU(4, 2)
			t[cpuid.Leaf{ID: cpuid.LeafExtMax}] = cpuid.Regs{EAX: 0x80000007}
			Expect(Probe(t)).Error().To(MatchError(ErrUnsupported))
		})

	})

	DescribeTable("rejecting unsupported CPUs",
		func(t cpuid.Table) {
			d, err := Probe(t)
			Expect(err).To(MatchError(ErrUnsupported))
			Expect(d).To(BeNil())
			coord, err := Decompose(t, 42)
			Expect(err).To(MatchError(ErrUnsupported))
			Expect(coord).To(BeZero())
		},
		Entry("no CPUID leaves at all", cpuid.Table{}),
		Entry("unknown vendor", cpuid.Table{
			{ID: cpuid.LeafVendor}: cpuid.VendorRegs("UnknownVendorX", 0x16),
		}),
		Entry("only leaf 0", cpuid.Table{
			{ID: cpuid.LeafVendor}: cpuid.VendorRegs(cpuid.IntelVendorString, 0),
		}),
	)

	DescribeTable("round-tripping coordinates",
		func(d Decomposer, sockets, cores, threads uint32) {
			for socket := range sockets {
				for core := range cores {
					for smt := range threads {
						coord := Coordinate{SMT: smt, Core: core, Socket: socket}
						apicid := d.Compose(coord)
						Expect(d.Decompose(apicid)).To(Equal(coord), "APIC ID %#x", apicid)
						Expect(d.Compose(d.Decompose(apicid))).To(Equal(apicid))
					}
				}
			}
		},
		Entry("Intel 2 sockets, 8 cores, 2 threads", Intel{SMTBits: 1, CoreBits: 3}, uint32(2), uint32(8), uint32(2)),
		Entry("Intel 4 sockets, 6 of 8 cores, no SMT", NewIntel(8, 8), uint32(4), uint32(6), uint32(1)),
		Entry("AMD 2 sockets, 8 cores, 2 threads", AMD{CoreBits: 4, ThreadsPerCore: 2}, uint32(2), uint32(8), uint32(2)),
		Entry("AMD 1 socket, 64 cores, 2 threads", AMD{CoreBits: 7, ThreadsPerCore: 2}, uint32(1), uint32(64), uint32(2)),
	)

})
