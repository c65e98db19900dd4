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
	"bytes"
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/thediveo/faf"
)

// List is a list of CPU [from...to] ranges, in ascending order and not
// overlapping. CPU numbers are starting from zero.
type List [][2]uint

// String returns the CPU list in textual format, with the individual ranges
// “x-y” separated by “,” and single CPU ranges collapsed into “x” (instead of
// “x-x”).
func (l List) String() string {
	var b strings.Builder
	for idx, cpurange := range l {
		if idx > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(cpurange[0]), 10))
		if cpurange[0] != cpurange[1] {
			b.WriteByte('-')
			b.WriteString(strconv.FormatUint(uint64(cpurange[1]), 10))
		}
	}
	return b.String()
}

// NewList returns a new CPU List for the given textual list format, such as
// found in “/sys/devices/system/cpu/online”. Leading and trailing white space
// is ignored. If the text is malformed then an error is returned instead.
func NewList(b []byte) (List, error) {
	bs := faf.NewBytestring(bytes.TrimSpace(b))
	l := List{}
	for !bs.EOL() {
		// we expect a CPU number and if there is nothing else following,
		// we're done, adding the CPU number as a single CPU range to our
		// list.
		from, ok := bs.Uint64()
		if !ok {
			return nil, errors.New("expected unsigned integer number")
		}
		if bs.EOL() {
			return append(l, [2]uint{uint(from), uint(from)}), nil
		}
		// Either this is a from-to range or another range should follow...
		switch ch, _ := bs.Next(); ch {
		case ',':
			// a single CPU number, and more to follow; so add this single CPU
			// range and then rinse and repeat.
			l = append(l, [2]uint{uint(from), uint(from)})
		case '-':
			// a range, so get the end of the range and then add the range to
			// our list. If nothing else follows, then we're done; otherwise,
			// a "," must separate the next CPU number or range.
			to, ok := bs.Uint64()
			if !ok {
				return nil, errors.New("expected unsigned integer number")
			}
			if to < from {
				return nil, errors.New("invalid descending range")
			}
			l = append(l, [2]uint{uint(from), uint(to)})
			if bs.EOL() {
				return l, nil
			}
			if ch, _ := bs.Next(); ch != ',' {
				return nil, errors.New("expected ','")
			}
		default:
			return nil, errors.New("expected '-' or ','")
		}
	}
	return l, nil
}

// readList reads a CPU list from the specified file.
func readList(path string) (List, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewList(b)
}

// Count returns the number of CPUs in this list.
func (l List) Count() uint {
	n := uint(0)
	for _, cpurange := range l {
		n += cpurange[1] - cpurange[0] + 1
	}
	return n
}

// Set returns the CPU Set corresponding with this list.
func (l List) Set() Set {
	if len(l) == 0 {
		return Set{}
	}
	s := make(Set, 0, setBitIndex(l[len(l)-1][1])+1)
	for _, cpurange := range l {
		s = s.AddRange(cpurange[0], cpurange[1])
	}
	return s
}

// IsOverlapping returns true if this List overlaps with another List.
//
// Both lists must be in canonical form where all ranges are ordered from lowest
// to highest and never overlap within the same list.
func (l List) IsOverlapping(another List) bool {
	// Walk both lists in lockstep, with i and j indexing the current range
	// in the first and second list respectively.
	i, j := 0, 0
	for i < len(l) && j < len(another) {
		a, b := l[i], another[j]
		// We're positively done if the current ranges overlap.
		if a[1] >= b[0] && a[0] <= b[1] {
			return true
		}
		// Otherwise, move on with the range that ends first, as it cannot
		// overlap with any later range of the other list.
		if a[1] < b[1] {
			i++
		} else {
			j++
		}
	}
	return false
}

// Overlap returns the overlap of this List with another List as a new List. If
// the lists are not overlapping, then an empty new List is returned.
func (l List) Overlap(another List) List {
	overlaps := List{}
	i, j := 0, 0
	for i < len(l) && j < len(another) {
		a, b := l[i], another[j]
		// If we have overlap, then add the range where the lists overlap to
		// the result. In contrast to just detecting an overlap we then
		// carry on, as there might be more overlaps in store for us.
		if a[1] >= b[0] && a[0] <= b[1] {
			overlaps = append(overlaps, [2]uint{max(a[0], b[0]), min(a[1], b[1])})
		}
		// Depending on which of the current ranges ends first, we need to
		// move on to the next range in the first or second list,
		// respectively.
		if a[1] < b[1] {
			i++
		} else {
			j++
		}
	}
	return overlaps
}

// Remove the lowest CPU from the specified List, returning the CPU number
// together with a new List of remaining CPUs. Remove panics on an empty List.
func (l List) Remove() (cpu uint, remaining List) {
	if len(l) == 0 {
		panic("cannot remove from empty List")
	}
	lowest := l[0]
	// If we've exhausted the lowest range by removing its only CPU, throw
	// away this now empty range.
	if lowest[0] == lowest[1] {
		return lowest[0], slices.Clone(l[1:])
	}
	return lowest[0], append(List{{lowest[0] + 1, lowest[1]}}, l[1:]...)
}
