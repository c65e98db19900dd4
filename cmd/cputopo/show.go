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
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/thediveo/cputopo"
	"github.com/thediveo/cputopo/ioreg"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the topology of all logical CPUs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.show(cmd.OutOrStdout())
		},
	}
}

func (a *app) show(w io.Writer) error {
	host := cputopo.Host()
	if host.Brand != "" {
		bold.Fprintln(w, host.Brand)
	}
	topo, err := cputopo.Discover(
		cputopo.WithSource(a.cfg.TopologySource()),
		cputopo.WithLogger(a.log))
	if err != nil {
		yellow.Fprintf(w, "topology unknown: %s\n", err)
		return err
	}
	if err := renderTopology(w, topo); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d CPUs in %d socket(s), %d of %d CPUs online\n",
		len(topo), len(topo.Sockets()), cputopo.NumCPUOnline(), cputopo.NumCPU())
	if collisions := topo.Collisions(); len(collisions) > 0 && topo[0].Cluster == ioreg.NoCluster {
		red.Fprintf(w, "colliding coordinates: %s\n", collisions.CPUs())
	}
	return nil
}

// renderTopology renders the topology as a table, with the Apple Silicon
// cluster types instead of the APIC IDs and coordinates.
func renderTopology(w io.Writer, topo cputopo.Topology) error {
	table := tablewriter.NewWriter(w)
	if len(topo) > 0 && topo[0].Cluster != ioreg.NoCluster {
		table.Header("CPU", "Cluster")
		for _, cpu := range topo {
			if err := table.Append(
				strconv.FormatUint(uint64(cpu.ID), 10),
				cpu.Cluster.String()); err != nil {
				return err
			}
		}
		return table.Render()
	}
	table.Header("CPU", "APIC ID", "Socket", "Core", "SMT")
	for _, cpu := range topo {
		if err := table.Append(
			strconv.FormatUint(uint64(cpu.ID), 10),
			fmt.Sprintf("%#x", cpu.APICID),
			strconv.FormatUint(uint64(cpu.Socket), 10),
			strconv.FormatUint(uint64(cpu.Core), 10),
			strconv.FormatUint(uint64(cpu.SMT), 10)); err != nil {
			return err
		}
	}
	return table.Render()
}
