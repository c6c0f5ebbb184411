// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shedsolar/shedsolar/internal/heater"
)

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.Heater.HeaterTempLimit = 1000
	cfg.Light.SOCThreshold = -5
	cfg.MQTT.Broker = ""

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "heater_temp_limit")
	assert.Contains(t, msg, "soc_threshold")
	assert.Contains(t, msg, "mqtt.broker")
}

func TestValidate_RejectsOverlappingBands(t *testing.T) {
	cfg := Default()
	// Each band is individually well-formed, but dark overlaps light.
	cfg.Heater.DarkBand = heater.Band{Low: 0, High: 8}
	cfg.Heater.LightBand = heater.Band{Low: 6, High: 20}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dark_band.high")
}

func TestValidate_AcceptsBothDocumentedNormalIntervalDefaults(t *testing.T) {
	for _, interval := range []time.Duration{7 * time.Second, 3 * time.Second} {
		cfg := Default()
		cfg.TempReader.NormalInterval = interval
		cfg.TempReader.FaultInterval = interval
		assert.NoError(t, cfg.Validate(), interval)
	}
}

func TestValidate_AcceptsBothDocumentedHeaterTempLimitDefaults(t *testing.T) {
	for _, limit := range []float64{50, 100} {
		cfg := Default()
		cfg.Heater.HeaterTempLimit = limit
		assert.NoError(t, cfg.Validate(), limit)
	}
}

func TestLoad_RoundTripsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shedsolar.yaml")
	const doc = `
heater:
  heater_temp_limit: 100
light:
  latitude_deg: 44.98
  longitude_deg: -93.27
mqtt:
  broker: "tcp://weather.local:1883"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cfg.Heater.HeaterTempLimit)
	assert.Equal(t, 44.98, cfg.Light.LatitudeDeg)
	assert.Equal(t, "tcp://weather.local:1883", cfg.MQTT.Broker)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().TempReader.NormalInterval, cfg.TempReader.NormalInterval)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shedsolar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("heater:\n  heater_temp_limit: 5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
