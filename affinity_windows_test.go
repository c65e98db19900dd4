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
	"math/bits"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/gomega"
)

var _ = Describe("windows thread affinity", func() {

	It("caps CPU counts to what an affinity mask can address", func() {
		Expect(Platform.NumCPU()).To(BeNumerically("<=", bits.UintSize))
		Expect(Platform.NumCPUOnline()).To(BeNumerically("<=", Platform.NumCPU()))
	})

})
