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

package supervisor

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig("/does/not/exist")
	require.Error(t, err)
}

func TestReadConfigAppliesOverFileValues(t *testing.T) {
	f, err := os.CreateTemp("", "ntpd-config")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	_, err = f.WriteString("servers:\n  - time.example.com\n  - time2.example.com\nmin_poll_interval: 4\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := ReadConfig(f.Name())
	require.NoError(t, err)
	require.Equal(t, []string{"time.example.com", "time2.example.com"}, cfg.Servers)
	require.Equal(t, int8(4), cfg.MinPollInterval)
	// untouched by the file, still the default
	require.Equal(t, int8(10), cfg.MaxPollInterval)
}

func TestValidateRequiresAtLeastOneServer(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate())

	cfg.Servers = []string{"time.example.com"}
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvertedPollBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Servers = []string{"time.example.com"}
	cfg.MinPollInterval = 12
	cfg.MaxPollInterval = 6

	require.Error(t, cfg.Validate())
}

func TestSystemSnapshotAndConfigDerivation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Servers = []string{"time.example.com"}

	snapshot := cfg.SystemSnapshot()
	require.EqualValues(t, cfg.MinPollInterval, snapshot.MinPollInterval)
	require.EqualValues(t, cfg.MaxPollInterval, snapshot.MaxPollInterval)

	config := cfg.SystemConfig()
	require.EqualValues(t, cfg.FrequencyTolerancePPM, config.FrequencyTolerance)
}
