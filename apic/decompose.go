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
	"errors"
	"fmt"

	"github.com/thediveo/cputopo/cpuid"
)

// ErrUnsupported signals that the CPU either comes from an unknown vendor or
// lacks the CPUID leaves needed to decompose its APIC IDs.
var ErrUnsupported = errors.New("unsupported processor")

// Coordinate locates a logical CPU by its hardware thread inside a core, the
// core inside a package, and the package (socket).
type Coordinate struct {
	SMT    uint32
	Core   uint32
	Socket uint32
}

// String returns the coordinate in “socket/core/smt” notation.
func (c Coordinate) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Socket, c.Core, c.SMT)
}

// Decomposer splits APIC IDs into their topology coordinates, using the
// vendor-specific APIC ID bit layout.
type Decomposer interface {
	Vendor() cpuid.Vendor
	Decompose(apicid uint32) Coordinate
	// Compose is the inverse of Decompose, as long as the coordinate fields
	// fit into the bit fields of the layout.
	Compose(c Coordinate) uint32
}

// AMD describes the APIC ID layout of AMD processors: the low CoreBits encode
// the thread number inside the package, with ThreadsPerCore consecutive
// thread numbers sharing the same core. The remaining high bits form the
// package (socket) number.
type AMD struct {
	CoreBits       uint32
	ThreadsPerCore uint32
}

var _ Decomposer = (*AMD)(nil)

// Vendor returns [cpuid.AMD].
func (AMD) Vendor() cpuid.Vendor { return cpuid.AMD }

// Decompose the specified APIC ID.
func (a AMD) Decompose(apicid uint32) Coordinate {
	threads := max(a.ThreadsPerCore, 1)
	threadID := apicid & (uint32(1)<<a.CoreBits - 1)
	return Coordinate{
		SMT:    threadID % threads,
		Core:   threadID / threads,
		Socket: apicid >> a.CoreBits,
	}
}

// Compose an APIC ID from the specified coordinate.
func (a AMD) Compose(c Coordinate) uint32 {
	threads := max(a.ThreadsPerCore, 1)
	return c.Socket<<a.CoreBits | (c.Core*threads + c.SMT)
}

// Intel describes the APIC ID layout of Intel processors as derived from
// leaves 1 and 4: the lowest SMTBits number the hardware thread inside its
// core, the next CoreBits the core inside its package, and the remaining high
// bits the package.
type Intel struct {
	SMTBits  uint32
	CoreBits uint32
}

var _ Decomposer = (*Intel)(nil)

// NewIntel returns the Intel APIC ID layout for the maximum number of
// addressable logical CPUs and cores per package.
func NewIntel(maxLogicalPerPackage, maxCoresPerPackage uint32) Intel {
	return Intel{
		SMTBits:  MaskWidth(maxLogicalPerPackage / max(maxCoresPerPackage, 1)),
		CoreBits: ILog2(maxCoresPerPackage),
	}
}

// Masks returns the SMT, core, and package masks of this layout.
//
// Please note that the package mask covers all bits above the SMT field; the
// package number nevertheless only starts above the core field, so that the
// overlapping bits get shifted out when extracting the package number.
func (i Intel) Masks() (smt, core, pkg uint32) {
	smt = uint32(1)<<i.SMTBits - 1
	core = (uint32(1)<<(i.CoreBits+i.SMTBits) - 1) ^ smt
	pkg = ^uint32(0) << i.CoreBits
	return
}

// Vendor returns [cpuid.Intel].
func (Intel) Vendor() cpuid.Vendor { return cpuid.Intel }

// Decompose the specified APIC ID.
func (i Intel) Decompose(apicid uint32) Coordinate {
	smtMask, coreMask, pkgMask := i.Masks()
	return Coordinate{
		SMT:    apicid & smtMask,
		Core:   (apicid & coreMask) >> i.SMTBits,
		Socket: (apicid & pkgMask) >> (i.CoreBits + i.SMTBits),
	}
}

// Compose an APIC ID from the specified coordinate.
func (i Intel) Compose(c Coordinate) uint32 {
	return c.Socket<<(i.CoreBits+i.SMTBits) | c.Core<<i.SMTBits | c.SMT
}

// Probe determines the vendor of the CPU answering q's queries and returns the
// matching Decomposer, or an error wrapping [ErrUnsupported]. The vendor and
// layout are assumed to be the same for all logical CPUs of a host, so Probe
// needs to be run only once.
func Probe(q cpuid.Querier) (Decomposer, error) {
	vendor, maxLeaf := cpuid.DetectVendor(q)
	if maxLeaf < cpuid.LeafFeatures {
		return nil, fmt.Errorf("%w: highest CPUID leaf %#x lacks APIC ID",
			ErrUnsupported, maxLeaf)
	}
	switch vendor {
	case cpuid.AMD:
		return probeAMD(q)
	case cpuid.Intel:
		return probeIntel(q, maxLeaf)
	}
	return nil, fmt.Errorf("%w: unknown vendor %q",
		ErrUnsupported, cpuid.VendorString(q.Query(cpuid.LeafVendor, 0)))
}

func probeAMD(q cpuid.Querier) (Decomposer, error) {
	maxExtLeaf := q.Query(cpuid.LeafExtMax, 0).EAX
	if maxExtLeaf < cpuid.LeafExtAddressSizes {
		return nil, fmt.Errorf("%w: AMD highest extended CPUID leaf %#x lacks core id size",
			ErrUnsupported, maxExtLeaf)
	}
	amd := AMD{
		CoreBits:       (q.Query(cpuid.LeafExtAddressSizes, 0).ECX >> 12) & 0xf,
		ThreadsPerCore: 1,
	}
	if maxExtLeaf >= cpuid.LeafExtTopology {
		amd.ThreadsPerCore = (q.Query(cpuid.LeafExtTopology, 0).EBX>>8)&0xff + 1
	}
	return amd, nil
}

func probeIntel(q cpuid.Querier, maxLeaf uint32) (Decomposer, error) {
	if maxLeaf < cpuid.LeafCacheParams {
		return nil, fmt.Errorf("%w: Intel highest CPUID leaf %#x lacks cores per package",
			ErrUnsupported, maxLeaf)
	}
	maxLogical := (q.Query(cpuid.LeafFeatures, 0).EBX >> 16) & 0xff
	maxCores := (q.Query(cpuid.LeafCacheParams, 0).EAX>>26)&0x3f + 1
	return NewIntel(maxLogical, maxCores), nil
}

// Decompose probes the CPU answering q's queries and then decomposes the
// specified APIC ID. When decomposing multiple APIC IDs, use [Probe] once and
// then the returned Decomposer instead.
func Decompose(q cpuid.Querier, apicid uint32) (Coordinate, error) {
	d, err := Probe(q)
	if err != nil {
		return Coordinate{}, err
	}
	return d.Decompose(apicid), nil
}
