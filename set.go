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
	"fmt"
	"iter"
	"math/bits"
	"slices"
	"unsafe"
)

// Set is a CPU affinity mask: a bit string where bit n being set means that
// logical CPU n is part of the set. The words are in the same format as the
// CPU masks of [sched_getaffinity(2)], so Sets can be passed to the kernel
// unchanged.
//
// [sched_getaffinity(2)]: https://man7.org/linux/man-pages/man2/sched_getaffinity.2.html
type Set []uint64

var wordbytesize = uint64(unsafe.Sizeof(Set{0}[0]))
var bitsperword = uint(wordbytesize * 8)

func setBitIndex(cpu uint) int {
	return int(cpu / bitsperword)
}

func setBitMask(cpu uint) uint64 {
	return uint64(1) << (cpu % bitsperword)
}

// IsSet reports whether cpu is in this CPU set.
func (s Set) IsSet(cpu uint) bool {
	if cpu >= uint(len(s))*bitsperword {
		return false
	}
	return s[setBitIndex(cpu)]&setBitMask(cpu) != 0
}

// Add the specified CPU, returning an updated Set that may or may not share
// its words with the original Set.
func (s Set) Add(cpu uint) Set {
	return s.AddRange(cpu, cpu)
}

// AddRange adds the CPUs from the specified range, returning an updated Set
// that may or may not share its words with the original Set. AddRange panics
// when from is larger than to.
func (s Set) AddRange(from, to uint) Set {
	if from > to {
		panic(fmt.Sprintf("invalid range %d-%d", from, to))
	}
	if needed := setBitIndex(to) + 1; needed > len(s) {
		s = slices.Grow(s, needed-len(s))[:needed]
	}
	for cpu := from; cpu <= to; cpu++ {
		s[setBitIndex(cpu)] |= setBitMask(cpu)
	}
	return s
}

// Count returns the number of CPUs in this set.
func (s Set) Count() int {
	n := 0
	for _, word := range s {
		n += bits.OnesCount64(word)
	}
	return n
}

// Single returns the only CPU in this set and true, or false if the set is
// either empty or contains more than a single CPU.
func (s Set) Single() (uint, bool) {
	cpu := uint(0)
	found := false
	for idx, word := range s {
		if word == 0 {
			continue
		}
		if found || word&(word-1) != 0 {
			return 0, false
		}
		cpu = uint(idx)*bitsperword + uint(bits.TrailingZeros64(word))
		found = true
	}
	return cpu, found
}

// CPUs returns an iterator over the CPUs in this set, in ascending order.
func (s Set) CPUs() iter.Seq[uint] {
	return func(yield func(uint) bool) {
		for idx, word := range s {
			for word != 0 {
				bit := uint(bits.TrailingZeros64(word))
				if !yield(uint(idx)*bitsperword + bit) {
					return
				}
				word &= word - 1
			}
		}
	}
}

// IsOverlapping returns true if this Set and another Set share at least one
// CPU.
func (s Set) IsOverlapping(another Set) bool {
	for idx := range min(len(s), len(another)) {
		if s[idx]&another[idx] != 0 {
			return true
		}
	}
	return false
}

// Overlap returns the CPUs common to both this Set and another Set.
func (s Set) Overlap(another Set) Set {
	overlap := make(Set, min(len(s), len(another)))
	for idx := range overlap {
		overlap[idx] = s[idx] & another[idx]
	}
	return overlap
}

// String returns the CPUs in this set in textual list format, such as
// “0-3,8”.
func (s Set) String() string {
	return s.List().String()
}

// List returns the list of CPU ranges corresponding with this CPU Set.
//
// This implementation fast-forwards through all-0s and all-1s CPU Set words
// (uint64's) wherever possible, only inspecting individual bits in words
// where CPU ranges start or end.
func (s Set) List() List {
	l := List{}
	// inRange is true while we're inside a CPU range that started at CPU
	// number from and still awaits its end.
	inRange := false
	var from uint
	for idx, word := range s {
		base := uint(idx) * bitsperword
		switch {
		case word == 0:
			// A completely unset word terminates any CPU range we're
			// currently in, at the last CPU of the previous word. Then
			// there's nothing more to see here, move along.
			if inRange {
				l = append(l, [2]uint{from, base - 1})
				inRange = false
			}
			continue
		case word == ^uint64(0):
			// A completely set word either continues the current CPU range
			// or starts a new one at its first CPU.
			if !inRange {
				from = base
				inRange = true
			}
			continue
		}
		// A mixed word, so we need to look at the individual CPU bits in
		// order to find where CPU ranges start and end. Please note that a
		// range still open at the end of this word might well continue into
		// the next word.
		for bit := uint(0); bit < bitsperword; bit++ {
			isSet := word&(uint64(1)<<bit) != 0
			switch {
			case isSet && !inRange:
				from = base + bit
				inRange = true
			case !isSet && inRange:
				l = append(l, [2]uint{from, base + bit - 1})
				inRange = false
			}
		}
	}
	// If we fell off the end of the Set while inside a CPU range, then this
	// range ends with the very last CPU of the Set.
	if inRange {
		l = append(l, [2]uint{from, uint(len(s))*bitsperword - 1})
	}
	return l
}
