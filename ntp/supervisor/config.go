/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package supervisor owns system-wide state (SystemSnapshot/SystemConfig),
// spawns one Peer Task per configured server, and demultiplexes the
// messages they emit. It is explicitly not a clock-selection/steering
// implementation — see Supervisor.handle.
package supervisor

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/facebook/ntpd/ntp/proto"
)

// Config specifies ntpd run options.
type Config struct {
	Servers               []string      `yaml:"servers"`
	MinPollInterval       int8          `yaml:"min_poll_interval"`
	MaxPollInterval       int8          `yaml:"max_poll_interval"`
	FrequencyTolerancePPM float64       `yaml:"frequency_tolerance_ppm"`
	MetricsPort           int           `yaml:"metrics_port"`
	MetricsInterval       time.Duration `yaml:"metrics_interval"`
}

// DefaultConfig returns Config initialized with default values.
func DefaultConfig() *Config {
	return &Config{
		MinPollInterval:       6,
		MaxPollInterval:       10,
		FrequencyTolerancePPM: float64(proto.DefaultFrequencyTolerance),
		MetricsPort:           8080,
		MetricsInterval:       10 * time.Second,
	}
}

// Validate checks that c is sane.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("at least one server must be specified")
	}
	if c.MinPollInterval > c.MaxPollInterval {
		return fmt.Errorf("min_poll_interval must be <= max_poll_interval")
	}
	if c.FrequencyTolerancePPM <= 0 {
		return fmt.Errorf("frequency_tolerance_ppm must be positive")
	}
	if c.MetricsPort < 0 {
		return fmt.Errorf("metrics_port must be 0 or positive")
	}
	if c.MetricsInterval <= 0 {
		return fmt.Errorf("metrics_interval must be greater than zero")
	}
	return nil
}

// SystemSnapshot derives the initial SystemSnapshot this config implies.
func (c *Config) SystemSnapshot() proto.SystemSnapshot {
	return proto.SystemSnapshot{
		MinPollInterval: proto.PollInterval(c.MinPollInterval),
		MaxPollInterval: proto.PollInterval(c.MaxPollInterval),
	}
}

// SystemConfig derives the initial SystemConfig this config implies.
func (c *Config) SystemConfig() proto.SystemConfig {
	return proto.SystemConfig{
		FrequencyTolerance: proto.FrequencyTolerance(c.FrequencyTolerancePPM),
	}
}

// ReadConfig reads config from the file at path, applying defaults for
// anything the file doesn't set.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
