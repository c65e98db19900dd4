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
	"errors"
	"fmt"
	"runtime"

	"github.com/hashicorp/go-hclog"
	kcpuid "github.com/klauspost/cpuid/v2"
	"github.com/shoenig/go-m1cpu"
	"github.com/thediveo/cputopo/apic"
	"github.com/thediveo/cputopo/cpuid"
	"github.com/thediveo/cputopo/ioreg"
)

var (
	// ErrNoPinning signals that CPUID-based discovery is impossible, because
	// the AffinityManager cannot pin the probing thread to individual CPUs.
	ErrNoPinning = errors.New("cannot pin threads to CPUs")
	// ErrNoCPUs signals that discovery succeeded, yet found no CPUs.
	ErrNoCPUs = errors.New("no CPUs discovered")
)

// Aggregator discovers the Topology of the logical CPUs of a system.
type Aggregator struct {
	source   Source
	manager  AffinityManager
	querier  cpuid.Querier
	registry ioreg.Registry
	log      hclog.Logger
}

// New returns a new Aggregator, configured using the specified options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		source:   SourceAuto,
		manager:  Platform,
		querier:  cpuid.Hardware,
		registry: ioreg.System,
		log:      hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.source == SourceAuto {
		a.source = platformSource()
	}
	return a
}

// Discover returns the Topology of this system, using an Aggregator
// configured with the specified options.
func Discover(opts ...Option) (Topology, error) {
	return New(opts...).Aggregate()
}

// Source returns the identifier source this Aggregator uses.
func (a *Aggregator) Source() Source { return a.source }

// Aggregate discovers the logical CPUs and their topology coordinates,
// returning them ordered by ascending logical CPU number. CPUs that cannot be
// discovered are left out, so the Topology might be incomplete. If discovery
// fails altogether, Aggregate returns an error and no Topology.
func (a *Aggregator) Aggregate() (Topology, error) {
	var t Topology
	var err error
	switch a.source {
	case SourceCPUID:
		t, err = a.fromCPUID()
	case SourceRegistryX86:
		t, err = a.fromRegistryX86()
	case SourceRegistryARM:
		t, err = a.fromRegistryARM()
	default:
		err = fmt.Errorf("invalid topology source %s", a.source)
	}
	if err != nil {
		a.log.Debug("topology discovery failed", "source", a.source, "error", err)
		return nil, err
	}
	if len(t) == 0 {
		return nil, ErrNoCPUs
	}
	if a.source != SourceRegistryARM {
		if collisions := t.Collisions(); len(collisions) > 0 {
			a.log.Warn("CPUs with colliding topology coordinates",
				"cpus", collisions.CPUs().String())
		}
	}
	a.log.Debug("discovered topology", "source", a.source, "cpus", len(t))
	return t, nil
}

// fromCPUID pins a dedicated OS thread to each logical CPU in turn and then
// reads the APIC ID of the CPU it is running on. CPUs the thread cannot be
// pinned to, such as offline CPUs or those outside the cpuset of this process,
// are skipped.
func (a *Aggregator) fromCPUID() (Topology, error) {
	if !CanPin(a.manager) {
		return nil, ErrNoPinning
	}
	d, err := apic.Probe(a.querier)
	if err != nil {
		return nil, err
	}
	a.log.Debug("probed CPU", "vendor", d.Vendor())
	if a.querier == cpuid.Hardware {
		if v := cpuid.ParseVendor(kcpuid.CPU.VendorString); v != d.Vendor() {
			a.log.Warn("inconsistent CPU vendors",
				"probed", d.Vendor(), "reported", kcpuid.CPU.VendorString)
		}
	}

	numcpu := a.manager.NumCPU()
	results := make(chan Topology)
	go func() {
		// The thread's affinity gets tainted, so never unlock: the thread then
		// terminates together with this go routine.
		runtime.LockOSThread()
		var t Topology
		for id := range numcpu {
			if err := a.manager.SetAffinity(Set{}.Add(id)); err != nil {
				a.log.Debug("skipping unpinnable CPU", "cpu", id, "error", err)
				continue
			}
			apicid := cpuid.InitialAPICID(a.querier)
			t = append(t, CPU{
				ID:         id,
				APICID:     apicid,
				Coordinate: d.Decompose(apicid),
			})
		}
		results <- t
	}()
	return <-results, nil
}

func (a *Aggregator) fromRegistryX86() (Topology, error) {
	records, err := ioreg.WalkX86(a.registry, a.log)
	if err != nil {
		return nil, err
	}
	d, err := apic.Probe(a.querier)
	if err != nil {
		return nil, err
	}
	t := make(Topology, 0, len(records))
	for _, rec := range records {
		t = append(t, CPU{
			ID:         rec.Index,
			APICID:     rec.APICID,
			Coordinate: d.Decompose(rec.APICID),
		})
	}
	return t, nil
}

// fromRegistryARM returns the Apple Silicon CPUs with their cluster types;
// their coordinates are left zero.
func (a *Aggregator) fromRegistryARM() (Topology, error) {
	records, err := ioreg.WalkARM(a.registry, a.log)
	if err != nil {
		return nil, err
	}
	t := make(Topology, 0, len(records))
	for _, rec := range records {
		t = append(t, CPU{ID: rec.Index, Cluster: rec.Cluster})
	}
	if a.registry == ioreg.System && m1cpu.IsAppleSilicon() {
		a.checkClusters(t)
	}
	return t, nil
}

// checkClusters logs a warning when the numbers of performance and efficiency
// CPUs found in the registry differ from what the system reports.
func (a *Aggregator) checkClusters(t Topology) {
	pcores, ecores := len(t.Cluster(ioreg.Performance)), len(t.Cluster(ioreg.Efficiency))
	if pcores != m1cpu.PCoreCount() || ecores != m1cpu.ECoreCount() {
		a.log.Warn("inconsistent Apple Silicon cluster sizes",
			"registry-p", pcores, "registry-e", ecores,
			"system-p", m1cpu.PCoreCount(), "system-e", m1cpu.ECoreCount())
	}
}
