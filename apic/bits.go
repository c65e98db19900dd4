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

import "math/bits"

// ILog2 returns the base 2 logarithm of x, rounded down. Contrary to
// mathematical convention, ILog2(0) is 0.
func ILog2(x uint32) uint32 {
	if x == 0 {
		return 0
	}
	return uint32(bits.Len32(x)) - 1
}

// MaskWidth returns the width in bits of the smallest all-ones mask that is
// able to hold the values 0..x-1; that is, x gets rounded up to the next power
// of two and then the base 2 logarithm taken. MaskWidth returns 0 for x≤1.
func MaskWidth(x uint32) uint32 {
	if x <= 1 {
		return 0
	}
	return uint32(bits.Len32(x - 1))
}
