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

package cpuid

import "encoding/binary"

// Vendor identifies the CPU manufacturers whose APIC ID layouts we know.
type Vendor int

const (
	Unknown Vendor = iota
	AMD
	Intel
)

// Vendor strings as returned in leaf 0.
const (
	AMDVendorString   = "AuthenticAMD"
	IntelVendorString = "GenuineIntel"
)

// String returns the vendor string for known vendors, and “unknown” otherwise.
func (v Vendor) String() string {
	switch v {
	case AMD:
		return AMDVendorString
	case Intel:
		return IntelVendorString
	default:
		return "unknown"
	}
}

// VendorString returns the 12 character vendor string contained in the
// registers of a leaf 0 query. The string is spread over EBX, EDX, and ECX,
// in this order, with each register holding four little-endian characters.
func VendorString(r Regs) string {
	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:4], r.EBX)
	binary.LittleEndian.PutUint32(b[4:8], r.EDX)
	binary.LittleEndian.PutUint32(b[8:12], r.ECX)
	return string(b[:])
}

// ParseVendor returns the Vendor matching the specified vendor string, or
// Unknown.
func ParseVendor(s string) Vendor {
	switch s {
	case AMDVendorString:
		return AMD
	case IntelVendorString:
		return Intel
	default:
		return Unknown
	}
}

// DetectVendor queries leaf 0, returning the vendor as well as the highest
// supported base leaf.
func DetectVendor(q Querier) (v Vendor, maxLeaf uint32) {
	r := q.Query(LeafVendor, 0)
	return ParseVendor(VendorString(r)), r.EAX
}

// VendorRegs returns the leaf 0 registers for the specified vendor string and
// highest base leaf, as a CPU would report them. It complements [Table] when
// synthesizing CPUs.
func VendorRegs(vendor string, maxLeaf uint32) Regs {
	var b [12]byte
	copy(b[:], vendor)
	return Regs{
		EAX: maxLeaf,
		EBX: binary.LittleEndian.Uint32(b[0:4]),
		EDX: binary.LittleEndian.Uint32(b[4:8]),
		ECX: binary.LittleEndian.Uint32(b[8:12]),
	}
}
