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
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/viper"
	"github.com/thediveo/cputopo"
)

// envPrefix prefixes the environment variables overriding the configuration,
// such as CPUTOPO_SOURCE.
const envPrefix = "CPUTOPO"

// Config is the configuration of the cputopo command, from defaults, an
// optional configuration file, environment variables, and finally flags.
type Config struct {
	Source   string `mapstructure:"source"`
	LogLevel string `mapstructure:"log_level"`
	NoColor  bool   `mapstructure:"no_color"`
}

// loadConfig loads the configuration into the specified viper instance,
// reading the config file at configPath, if not empty.
func loadConfig(v *viper.Viper, configPath string) (*Config, error) {
	v.SetDefault("source", cputopo.SourceAuto.String())
	v.SetDefault("log_level", "warn")
	v.SetDefault("no_color", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate the configuration.
func (c *Config) Validate() error {
	if _, err := cputopo.ParseSource(c.Source); err != nil {
		return err
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// TopologySource returns the configured topology source.
func (c *Config) TopologySource() cputopo.Source {
	s, _ := cputopo.ParseSource(c.Source)
	return s
}
