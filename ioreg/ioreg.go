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
Package ioreg discovers logical CPUs by walking the children of the
“IODeviceTree:/cpus” entry in the macOS I/O registry.

On Intel Macs, each CPU entry carries its local APIC ID (“processor-lapic”)
and logical CPU number (“processor-index”), see [WalkX86]. Apple Silicon
doesn't have APIC IDs; instead, its CPU entries carry their logical CPU
number (“logical-cpu-id”) and cluster type (“cluster-type”), telling
performance from efficiency cores, see [WalkARM].

Entries lacking the expected properties, or having malformed ones, are
skipped, so the number of CPUs discovered might be lower than the number of
CPUs the system actually has.
*/
package ioreg

import (
	"cmp"
	"encoding/binary"
	"errors"
	"math"
	"slices"

	"github.com/hashicorp/go-hclog"
)

// Path of the registry entry whose children are the CPUs.
const Path = "IODeviceTree:/cpus"

// MaxEntries limits the number of CPU entries a walk returns.
const MaxEntries = 128

// CPU entry property names.
const (
	PropProcessorLAPIC = "processor-lapic"
	PropProcessorIndex = "processor-index"
	PropLogicalCPUID   = "logical-cpu-id"
	PropClusterType    = "cluster-type"
)

// ErrUnavailable signals that there is no I/O registry on this platform.
var ErrUnavailable = errors.New("I/O registry not available")

// Node is a single registry entry, giving access to its properties. Numeric
// properties are returned as int64 values, raw data properties as []byte.
type Node interface {
	Property(name string) (any, bool)
}

// Registry walks the child entries of registry entries.
type Registry interface {
	// Walk calls fn for each child entry of the entry at path, until either
	// fn returns false or there are no more children. The Node passed to fn
	// is valid only until fn returns. Walk returns an error if it cannot
	// locate the entry at path or iterate its children.
	Walk(path string, fn func(Node) bool) error
}

// noRegistry is the Registry of systems without an I/O registry.
type noRegistry struct{}

func (noRegistry) Walk(string, func(Node) bool) error {
	return ErrUnavailable
}

// Cluster is the type of an Apple Silicon CPU cluster.
type Cluster int

const (
	NoCluster   Cluster = iota // not an Apple Silicon CPU
	Efficiency                 // “E” cluster
	Performance                // “P” cluster
)

// String returns the single letter cluster type tag.
func (c Cluster) String() string {
	switch c {
	case Efficiency:
		return "E"
	case Performance:
		return "P"
	default:
		return ""
	}
}

// X86Record is an Intel Mac CPU with its logical CPU number and APIC ID.
type X86Record struct {
	Index  uint
	APICID uint32
}

// ARMRecord is an Apple Silicon CPU with its logical CPU number and the
// cluster type it belongs to.
type ARMRecord struct {
	Index   uint
	Cluster Cluster
}

// WalkX86 returns the logical CPUs of an Intel Mac found in the registry,
// ordered by ascending logical CPU number.
func WalkX86(r Registry, log hclog.Logger) ([]X86Record, error) {
	log = orNullLogger(log)
	return walk(r, log, func(e Node, idx int) (X86Record, bool) {
		apicid, ok := uint32Property(e, PropProcessorLAPIC)
		if !ok {
			log.Debug("skipping CPU entry", "entry", idx, "property", PropProcessorLAPIC)
			return X86Record{}, false
		}
		index, ok := indexProperty(e, PropProcessorIndex)
		if !ok {
			log.Debug("skipping CPU entry", "entry", idx, "property", PropProcessorIndex)
			return X86Record{}, false
		}
		log.Trace("found CPU entry", "entry", idx, "index", index, "apicid", apicid)
		return X86Record{Index: index, APICID: apicid}, true
	}, func(a, b X86Record) int { return cmp.Compare(a.Index, b.Index) })
}

// WalkARM returns the logical CPUs of an Apple Silicon Mac found in the
// registry, ordered by ascending logical CPU number.
func WalkARM(r Registry, log hclog.Logger) ([]ARMRecord, error) {
	log = orNullLogger(log)
	return walk(r, log, func(e Node, idx int) (ARMRecord, bool) {
		index, ok := indexProperty(e, PropLogicalCPUID)
		if !ok {
			log.Debug("skipping CPU entry", "entry", idx, "property", PropLogicalCPUID)
			return ARMRecord{}, false
		}
		cluster, ok := clusterType(e)
		if !ok {
			log.Debug("skipping CPU entry", "entry", idx, "property", PropClusterType)
			return ARMRecord{}, false
		}
		log.Trace("found CPU entry", "entry", idx, "index", index, "cluster", cluster)
		return ARMRecord{Index: index, Cluster: cluster}, true
	}, func(a, b ARMRecord) int { return cmp.Compare(a.Index, b.Index) })
}

// walk the CPU entries, converting them into records using the specified
// record function and finally sorting them. A failing walk returns nil
// records, as any partial results would be misleading.
func walk[R any](
	r Registry,
	log hclog.Logger,
	record func(e Node, idx int) (R, bool),
	order func(a, b R) int,
) ([]R, error) {
	var records []R
	idx := 0
	err := r.Walk(Path, func(e Node) bool {
		defer func() { idx++ }()
		rec, ok := record(e, idx)
		if !ok {
			return true
		}
		records = append(records, rec)
		return len(records) < MaxEntries
	})
	if err != nil {
		log.Debug("cannot walk CPU entries", "path", Path, "error", err)
		return nil, err
	}
	slices.SortStableFunc(records, order)
	return records, nil
}

func orNullLogger(log hclog.Logger) hclog.Logger {
	if log == nil {
		return hclog.NewNullLogger()
	}
	return log
}

// numericProperty returns the named property as an int64, accepting CFNumber
// values as well as 4 and 8 byte little-endian raw data values.
func numericProperty(e Node, name string) (int64, bool) {
	v, ok := e.Property(name)
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case int64:
		return v, true
	case []byte:
		switch len(v) {
		case 4:
			return int64(int32(binary.LittleEndian.Uint32(v))), true
		case 8:
			return int64(binary.LittleEndian.Uint64(v)), true
		}
	}
	return 0, false
}

// uint32Property returns the named property as a 32 bit number, rejecting
// properties outside the 32 bit range.
func uint32Property(e Node, name string) (uint32, bool) {
	v, ok := numericProperty(e, name)
	if !ok || v < math.MinInt32 || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

// indexProperty returns the named logical CPU number property, which must be
// non-negative and fit into 31 bits.
func indexProperty(e Node, name string) (uint, bool) {
	v, ok := numericProperty(e, name)
	if !ok || v < 0 || v > math.MaxInt32 {
		return 0, false
	}
	return uint(v), true
}

// clusterType returns the cluster type, which is a NUL-terminated single
// letter tag.
func clusterType(e Node) (Cluster, bool) {
	v, ok := e.Property(PropClusterType)
	if !ok {
		return NoCluster, false
	}
	b, ok := v.([]byte)
	if !ok || len(b) != 2 || b[1] != 0 {
		return NoCluster, false
	}
	switch b[0] {
	case 'E':
		return Efficiency, true
	case 'P':
		return Performance, true
	}
	return NoCluster, false
}
