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
	"cmp"
	"slices"

	"github.com/hashicorp/go-set/v3"
	"github.com/thediveo/cputopo/apic"
	"github.com/thediveo/cputopo/ioreg"
)

// Coordinate locates a logical CPU by its socket, core within its socket, and
// hardware thread (SMT) within its core.
type Coordinate = apic.Coordinate

// CPU describes the topology of a single logical CPU.
type CPU struct {
	ID         uint          // logical CPU number as enumerated by the OS
	APICID     uint32        // raw hardware identifier; zero on Apple Silicon
	Cluster    ioreg.Cluster // Apple Silicon core cluster type
	Coordinate               // socket, core, and SMT position
}

// Topology is the list of logical CPUs of a system, ordered by ascending
// logical CPU number.
//
// A Topology might be incomplete when some CPUs could not be discovered.
type Topology []CPU

// Lookup returns the CPU with the specified logical CPU number and true, or
// false if there is no such CPU in this Topology.
func (t Topology) Lookup(id uint) (CPU, bool) {
	idx, ok := slices.BinarySearchFunc(t, id, func(c CPU, id uint) int {
		return cmp.Compare(c.ID, id)
	})
	if !ok {
		return CPU{}, false
	}
	return t[idx], true
}

// CPUs returns the logical CPUs of this Topology as a CPU Set.
func (t Topology) CPUs() Set {
	var s Set
	for _, c := range t {
		s = s.Add(c.ID)
	}
	return s
}

// Sockets returns the distinct socket numbers in ascending order.
func (t Topology) Sockets() []uint32 {
	sockets := set.New[uint32](1)
	for _, c := range t {
		sockets.Insert(c.Socket)
	}
	s := sockets.Slice()
	slices.Sort(s)
	return s
}

// BySocket groups the CPUs by their socket numbers.
func (t Topology) BySocket() map[uint32]Topology {
	m := map[uint32]Topology{}
	for _, c := range t {
		m[c.Socket] = append(m[c.Socket], c)
	}
	return m
}

// Siblings returns the CPUs sharing the same physical core with the specified
// logical CPU, including this CPU itself. It returns nil if there is no such
// CPU.
func (t Topology) Siblings(id uint) Topology {
	cpu, ok := t.Lookup(id)
	if !ok {
		return nil
	}
	return slices.DeleteFunc(slices.Clone(t), func(c CPU) bool {
		return c.Socket != cpu.Socket || c.Core != cpu.Core
	})
}

// Primaries returns the logical CPU numbers that are the first logical CPU in
// each physical core.
func (t Topology) Primaries() []uint {
	return t.hyperThreads(false)
}

// Secondaries returns the logical CPU numbers that are not in Primaries.
func (t Topology) Secondaries() []uint {
	return t.hyperThreads(true)
}

func (t Topology) hyperThreads(secondary bool) []uint {
	cores := set.New[[2]uint32](len(t))
	var ids []uint
	for _, c := range t {
		if cores.Insert([2]uint32{c.Socket, c.Core}) != secondary {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Cluster returns the CPUs belonging to the specified Apple Silicon cluster
// type.
func (t Topology) Cluster(cluster ioreg.Cluster) Topology {
	var cpus Topology
	for _, c := range t {
		if c.Cluster == cluster {
			cpus = append(cpus, c)
		}
	}
	return cpus
}

// Collisions returns those CPUs that share their topology coordinate with a
// CPU having a lower logical CPU number. A correctly working decomposition
// never yields collisions. Apple Silicon topologies don't carry coordinates
// and thus always collide.
func (t Topology) Collisions() Topology {
	seen := set.New[Coordinate](len(t))
	var collisions Topology
	for _, c := range t {
		if !seen.Insert(c.Coordinate) {
			collisions = append(collisions, c)
		}
	}
	return collisions
}
