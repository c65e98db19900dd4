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

package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/thediveo/cputopo"
	"github.com/thediveo/cputopo/ioreg"

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/ginkgo/v2/dsl/table"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("cputopo command", func() {

	When("loading the configuration", func() {

		It("defaults", func() {
			cfg := Successful(loadConfig(viper.New(), ""))
			Expect(cfg.Source).To(Equal("auto"))
			Expect(cfg.LogLevel).To(Equal("warn"))
			Expect(cfg.NoColor).To(BeFalse())
			Expect(cfg.TopologySource()).To(Equal(cputopo.SourceAuto))
		})

		It("reads a config file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "cputopo.yaml")
			Expect(os.WriteFile(path, []byte("source: ioreg-arm\nlog_level: debug\n"), 0o644)).To(Succeed())
			cfg := Successful(loadConfig(viper.New(), path))
			Expect(cfg.TopologySource()).To(Equal(cputopo.SourceRegistryARM))
			Expect(cfg.LogLevel).To(Equal("debug"))
		})

		It("lets environment variables override", func() {
			GinkgoT().Setenv("CPUTOPO_SOURCE", "cpuid")
			cfg := Successful(loadConfig(viper.New(), ""))
			Expect(cfg.TopologySource()).To(Equal(cputopo.SourceCPUID))
		})

		It("fails on a missing config file", func() {
			Expect(loadConfig(viper.New(), "/nonexisting/cputopo.yaml")).Error().
				To(MatchError(ContainSubstring("failed to read config file")))
		})

		DescribeTable("rejecting invalid settings",
			func(key, value string) {
				v := viper.New()
				v.Set(key, value)
				Expect(loadConfig(v, "")).Error().
					To(MatchError(ContainSubstring("invalid configuration")))
			},
			Entry(nil, "source", "foobar"),
			Entry(nil, "log_level", "chatty"),
		)

	})

	When("rendering topologies", func() {

		It("renders APIC IDs and coordinates", func() {
			var out bytes.Buffer
			Expect(renderTopology(&out, cputopo.Topology{
				{ID: 0, APICID: 0x20, Coordinate: cputopo.Coordinate{Socket: 2}},
				{ID: 7, APICID: 0x23, Coordinate: cputopo.Coordinate{Socket: 2, Core: 1, SMT: 1}},
			})).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`(?i)cpu.*apic id.*socket.*core.*smt`))
			Expect(out.String()).To(MatchRegexp(`\b0\b.*0x20.*\b2\b.*\b0\b.*\b0\b`))
			Expect(out.String()).To(MatchRegexp(`\b7\b.*0x23.*\b2\b.*\b1\b.*\b1\b`))
			Expect(out.String()).NotTo(MatchRegexp(`(?i)cluster`))
		})

		It("renders Apple Silicon clusters", func() {
			var out bytes.Buffer
			Expect(renderTopology(&out, cputopo.Topology{
				{ID: 0, Cluster: ioreg.Efficiency},
				{ID: 1, Cluster: ioreg.Performance},
			})).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`(?i)cpu.*cluster`))
			Expect(out.String()).To(MatchRegexp(`\b0\b.*\bE\b`))
			Expect(out.String()).To(MatchRegexp(`\b1\b.*\bP\b`))
			Expect(out.String()).NotTo(MatchRegexp(`(?i)apic id`))
		})

	})

	It("shows the topology or why it is unknown", func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--no-color", "show"})
		if err := cmd.Execute(); err != nil {
			Expect(out.String()).To(ContainSubstring("topology unknown"))
			return
		}
		Expect(out.String()).To(MatchRegexp(`\d+ CPUs in \d+ socket\(s\)`))
	})

	It("rejects an invalid source flag", func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--source", "foobar", "show"})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring(`"foobar"`)))
	})

	It("rejects an invalid CPU list", func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"affinity", "--set", "1-"})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("invalid CPU list")))
	})

	It("shows the affinity", func() {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--no-color", "affinity"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(MatchRegexp(`affinity: \d`))
		Expect(out.String()).To(ContainSubstring("CPUs online"))
	})

})
