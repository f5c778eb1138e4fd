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

// Package cmd is the cobra command tree for the ntpd binary. It's exported
// so ntpd could be easily extended without touching core functionality.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/ntpd/ntp/daemon"
	"github.com/facebook/ntpd/ntp/stats"
	"github.com/facebook/ntpd/ntp/supervisor"
)

// RootCmd is the main entry point.
var RootCmd = &cobra.Command{
	Use:   "ntpd",
	Short: "NTPv4 client association daemon",
	RunE:  runNtpd,
}

var (
	configFlag  string
	verboseFlag bool
	metricsFlag int
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "/etc/ntpd.yaml", "path to the config file")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().IntVar(&metricsFlag, "metricsport", 0, "override config's metrics_port, 0 means use config value")
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func configureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if verboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

func runNtpd(_ *cobra.Command, _ []string) error {
	configureVerbosity()

	cfg, err := supervisor.ReadConfig(configFlag)
	if err != nil {
		return fmt.Errorf("reading config from %q: %w", configFlag, err)
	}
	if metricsFlag != 0 {
		log.Warningf("overriding metrics_port from CLI flag")
		cfg.MetricsPort = metricsFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	counters := stats.NewCounters()
	exporter := stats.NewPrometheusExporter(counters, cfg.MetricsPort, cfg.MetricsInterval)
	go exporter.Start()

	sup := supervisor.New(cfg, daemon.NewSystemClock(), counters)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("starting ntpd with %d configured server(s)", len(cfg.Servers))
	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor exited: %w", err)
	}
	return nil
}
