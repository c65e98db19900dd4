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
	"runtime"

	"github.com/hashicorp/go-hclog"
	"github.com/thediveo/cputopo/cpuid"
	"github.com/thediveo/cputopo/ioreg"
)

// Option configures an [Aggregator].
type Option func(*Aggregator)

// Source selects the mechanism for discovering the raw hardware identifiers
// of logical CPUs.
type Source int

const (
	SourceAuto        Source = iota // pick the source fitting this platform
	SourceCPUID                     // CPUID instruction on each pinned CPU
	SourceRegistryX86               // I/O registry of Intel Macs
	SourceRegistryARM               // I/O registry of Apple Silicon Macs
)

var sourceNames = map[Source]string{
	SourceAuto:        "auto",
	SourceCPUID:       "cpuid",
	SourceRegistryX86: "ioreg-x86",
	SourceRegistryARM: "ioreg-arm",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// ParseSource returns the Source with the specified name, such as “cpuid”.
func ParseSource(name string) (Source, error) {
	for s, n := range sourceNames {
		if n == name {
			return s, nil
		}
	}
	return SourceAuto, fmt.Errorf("unknown topology source %q", name)
}

// platformSource returns the Source fitting the platform this package was
// built for: the I/O registry on macOS, CPUID everywhere else.
func platformSource() Source {
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return SourceRegistryARM
		}
		return SourceRegistryX86
	}
	return SourceCPUID
}

// WithSource sets the identifier source; defaults to [SourceAuto].
func WithSource(s Source) Option {
	return func(a *Aggregator) {
		a.source = s
	}
}

// WithAffinityManager sets the AffinityManager used for counting and pinning
// CPUs; defaults to [Platform].
func WithAffinityManager(m AffinityManager) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.manager = m
		}
	}
}

// WithQuerier sets the CPUID querier; defaults to [cpuid.Hardware].
func WithQuerier(q cpuid.Querier) Option {
	return func(a *Aggregator) {
		if q != nil {
			a.querier = q
		}
	}
}

// WithRegistry sets the I/O registry to walk; defaults to [ioreg.System].
func WithRegistry(r ioreg.Registry) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithLogger sets the logger; by default, nothing gets logged.
func WithLogger(log hclog.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}
