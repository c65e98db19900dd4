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

// cputopo shows the topology of this system's logical CPUs, as well as the
// CPU affinity of its own thread.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the configuration and logger shared by all subcommands.
type app struct {
	v   *viper.Viper
	cfg *Config
	log hclog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "cputopo",
		Short: "Show CPU topology and affinity",
		Long: `cputopo shows the socket, core, and hardware thread of each logical CPU
of this system, as discovered using CPUID on x86 or the I/O registry on macOS.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = hclog.New(&hclog.LoggerOptions{
				Name:   "cputopo",
				Level:  hclog.LevelFromString(cfg.LogLevel),
				Output: cmd.ErrOrStderr(),
			})
			if cfg.NoColor {
				color.NoColor = true
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.show(cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file path")
	flags.String("source", "auto", "topology source: auto, cpuid, ioreg-x86, ioreg-arm")
	flags.String("log-level", "warn", "log level: trace, debug, info, warn, error")
	flags.Bool("no-color", false, "disable colored output")
	_ = a.v.BindPFlag("source", flags.Lookup("source"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("no_color", flags.Lookup("no-color"))

	rootCmd.AddCommand(newShowCmd(a), newAffinityCmd(a))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
