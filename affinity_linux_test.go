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
	"iter"
	"os"
	"runtime"
	"strconv"

	"github.com/thediveo/cputopo/cpuid"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func lines(b []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(b) > 0 {
			var line []byte
			if nlIdx := bytes.IndexByte(b, '\n'); nlIdx >= 0 {
				line, b = b[:nlIdx+1], b[nlIdx+1:]
			} else {
				line, b = b, nil
			}
			if !yield(line[:len(line):len(line)]) {
				return
			}
		}
	}
}

var _ = Describe("linux task affinity", func() {

	It("gets this process's CPU affinity list, consistent with /proc/self/status data", func() {
		Expect(wordbytesize).To(Equal(uint64(64 /* bits in uint64 */ / 8 /* bits/byte*/)))
		cpulist := Successful(TaskAffinity(os.Getpid())).List()
		Expect(cpulist).NotTo(BeEmpty())
		Expect(setsize.Load()).NotTo(BeZero())

		var prefix = []byte("Cpus_allowed_list:\t")
		var allowedList List
		for line := range lines(Successful(os.ReadFile("/proc/self/status"))) {
			if !bytes.HasPrefix(line, prefix) {
				continue
			}
			allowedList = Successful(NewList(line[len(prefix):]))
		}
		Expect(cpulist).To(Equal(allowedList))
	})

	It("changes this task's CPU affinity", func() {
		runtime.LockOSThread() // don't unlock, throw away the tainted task

		affs := Successful(TaskAffinity(0))
		oneonly, _ := affs.List().Remove()
		Expect(SetTaskAffinity(0, Set{}.Add(oneonly))).To(Succeed())

		reducedaffs := Successful(TaskAffinity(0)).List()
		Expect(reducedaffs).To(Equal(List{{oneonly, oneonly}}))

		Expect(SetTaskAffinity(0, affs)).To(Succeed())
	})

	It("cannot set empty affinities", func() {
		Expect(SetTaskAffinity(0, Set{})).NotTo(Succeed())
		Expect(SetTaskAffinity(0, Set{0})).NotTo(Succeed())
	})

	It("counts CPUs as sysfs does", func() {
		online := Successful(readList(sysfsOnlineCPUs))
		Expect(Platform.NumCPUOnline()).To(Equal(online.Count()))
		possible := Successful(readList(sysfsPossibleCPUs))
		Expect(Platform.NumCPU()).To(Equal(possible[len(possible)-1][1] + 1))
	})

	It("falls back to Go's CPU count without sysfs", func() {
		Expect(sysfsCPUCount("/nonexisting", List.Count)).To(
			Equal(uint(runtime.NumCPU())))
	})

	It("discovers this system's topology", func() {
		if !cpuid.Available() {
			Skip("needs CPUID")
		}
		topo, err := Discover()
		if err != nil {
			Skip("unsupported CPU: " + err.Error())
		}
		Expect(topo).NotTo(BeEmpty())
		for idx := 1; idx < len(topo); idx++ {
			Expect(topo[idx].ID).To(BeNumerically(">", topo[idx-1].ID),
				"unordered CPU "+strconv.FormatUint(uint64(topo[idx].ID), 10))
		}
	})

})
