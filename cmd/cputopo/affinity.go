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
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/thediveo/cputopo"
)

var green = color.New(color.FgGreen)

func newAffinityCmd(a *app) *cobra.Command {
	var cpulist string
	cmd := &cobra.Command{
		Use:   "affinity",
		Short: "Show and optionally set the CPU affinity of this command's thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cpus cputopo.Set
			if cpulist != "" {
				l, err := cputopo.NewList([]byte(cpulist))
				if err != nil {
					return fmt.Errorf("invalid CPU list %q: %w", cpulist, err)
				}
				cpus = l.Set()
			}
			return a.affinity(cmd.OutOrStdout(), cpus)
		},
	}
	cmd.Flags().StringVar(&cpulist, "set", "", "pin to the CPUs in this list, such as \"0-3,8\"")
	return cmd
}

// affinity prints the affinity of the current thread and, if cpus isn't
// empty, first pins the thread to these CPUs.
func (a *app) affinity(w io.Writer, cpus cputopo.Set) error {
	// The thread's affinity might get tainted; the process exits afterwards
	// anyway.
	runtime.LockOSThread()

	if cpus.Count() > 0 {
		if err := cputopo.SetAffinity(cpus); err != nil {
			a.log.Error("cannot set affinity", "cpus", cpus.String(), "error", err)
			return err
		}
		if !cputopo.CanPin(cputopo.Platform) {
			yellow.Fprintln(w, "setting CPU affinity has no effect on this platform")
		}
	}
	current, err := cputopo.Affinity()
	if err != nil {
		return err
	}
	fmt.Fprint(w, "affinity: ")
	green.Fprintln(w, current.String())
	fmt.Fprintf(w, "%d of %d CPUs online\n", cputopo.NumCPUOnline(), cputopo.NumCPU())
	return nil
}
