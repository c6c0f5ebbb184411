// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads and validates ShedSolar's on-disk configuration:
// a YAML document decoded over the defaults with gopkg.in/yaml.v3, then
// range-checked once, with errors.Join reporting every violation in one
// pass instead of stopping at the first.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shedsolar/shedsolar/internal/heater"
	"github.com/shedsolar/shedsolar/internal/light"
	"github.com/shedsolar/shedsolar/internal/noisefilter"
)

// TempReader holds the temperature-reader tunables. Deployed enclosures
// have run NormalInterval at both 7s and 3s, so it is range-checked
// configuration rather than a constant.
type TempReader struct {
	NormalInterval time.Duration      `yaml:"normal_interval"`
	FaultInterval  time.Duration      `yaml:"fault_interval"`
	Filter         noisefilter.Config `yaml:"filter"`
}

// Heater holds the heater supervisor's tunables. HeaterTempLimit is
// likewise configuration: both 50°C and 100°C heaters are in the field.
type Heater struct {
	TickInterval    time.Duration           `yaml:"tick_interval"`
	SenseTimeout    time.Duration           `yaml:"sense_timeout"`
	HeaterTempLimit float64                 `yaml:"heater_temp_limit"`
	LightBand       heater.Band             `yaml:"light_band"`
	DarkBand        heater.Band             `yaml:"dark_band"`
	LED             heater.LEDConfig        `yaml:"led"`
	HeaterOnly      heater.HeaterOnlyConfig `yaml:"heater_only"`
	NoTemps         heater.NoTempsConfig    `yaml:"no_temps"`
}

// Light holds the light detector's tunables.
type Light struct {
	Interval           time.Duration `yaml:"interval"`
	SOCThreshold       float64       `yaml:"soc_threshold"`
	PanelThresholdW    float64       `yaml:"panel_threshold_watts"`
	PyrometerThreshold float64       `yaml:"pyrometer_threshold"`
	LatitudeDeg        float64       `yaml:"latitude_deg"`
	LongitudeDeg       float64       `yaml:"longitude_deg"`
	ToLightDelay       int           `yaml:"to_light_delay_ticks"`
	ToDarkDelay        int           `yaml:"to_dark_delay_ticks"`
}

// MQTT holds the outside-weather bridge's connection parameters.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// Metrics holds the Prometheus exporter's listen address.
type Metrics struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is ShedSolar's complete, validated runtime configuration. It is
// immutable once returned by Load: callers read it directly, never mutate
// it in place.
type Config struct {
	TempReader TempReader `yaml:"temp_reader"`
	Heater     Heater     `yaml:"heater"`
	Light      Light      `yaml:"light"`
	MQTT       MQTT       `yaml:"mqtt"`
	Metrics    Metrics    `yaml:"metrics"`
}

// Default returns the documented defaults for every tunable.
func Default() Config {
	return Config{
		TempReader: TempReader{
			NormalInterval: 7 * time.Second,
			FaultInterval:  3 * time.Second,
			Filter:         noisefilter.DefaultConfig(),
		},
		Heater: Heater{
			TickInterval:    5 * time.Second,
			SenseTimeout:    2 * time.Second,
			HeaterTempLimit: 100,
			LightBand:       heater.Band{Low: 15, High: 20},
			DarkBand:        heater.Band{Low: 0, High: 5},
			LED:             heater.DefaultLEDConfig(),
			HeaterOnly:      heater.DefaultHeaterOnlyConfig(),
			NoTemps:         heater.DefaultNoTempsConfig(),
		},
		Light: fromLightConfig(light.DefaultConfig()),
		MQTT: MQTT{
			Broker:   "tcp://localhost:1883",
			ClientID: "shedsolar",
			Topic:    "weather/outside",
		},
		Metrics: Metrics{ListenAddr: ":8080"},
	}
}

func fromLightConfig(c light.Config) Light {
	return Light{
		Interval:           c.Interval,
		SOCThreshold:       c.SOCThreshold,
		PanelThresholdW:    c.PanelThresholdW,
		PyrometerThreshold: c.PyrometerThreshold,
		LatitudeDeg:        c.LatitudeDeg,
		LongitudeDeg:       c.LongitudeDeg,
		ToLightDelay:       c.ToLightDelay,
		ToDarkDelay:        c.ToDarkDelay,
	}
}

// ToLightConfig converts the validated configuration fields back into a
// light.Config for light.New.
func (l Light) ToLightConfig() light.Config {
	return light.Config{
		Interval:           l.Interval,
		SOCThreshold:       l.SOCThreshold,
		PanelThresholdW:    l.PanelThresholdW,
		PyrometerThreshold: l.PyrometerThreshold,
		LatitudeDeg:        l.LatitudeDeg,
		LongitudeDeg:       l.LongitudeDeg,
		ToLightDelay:       l.ToLightDelay,
		ToDarkDelay:        l.ToDarkDelay,
	}
}

// ToHeaterConfig converts the validated configuration fields into a
// heater.Config for heater.NewSupervisor.
func (h Heater) ToHeaterConfig() heater.Config {
	return heater.Config{
		TickInterval:  h.TickInterval,
		LightBand:     h.LightBand,
		DarkBand:      h.DarkBand,
		SenseTimeout:  h.SenseTimeout,
		LED:           h.LED,
		HeaterOnly:    h.HeaterOnly,
		NoTemps:       h.NoTemps,
		OverTempLimit: h.HeaterTempLimit,
	}
}

// Load reads and parses the YAML file at path over Default(), then
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate range-checks every tunable, collecting every violation with
// errors.Join rather than stopping at the first.
func (c Config) Validate() error {
	var errs []error
	check := func(cond bool, format string, args ...any) {
		if !cond {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.TempReader.NormalInterval >= time.Second && c.TempReader.NormalInterval <= time.Minute,
		"temp_reader.normal_interval %s out of range [1s, 1m]", c.TempReader.NormalInterval)
	check(c.TempReader.FaultInterval >= time.Second && c.TempReader.FaultInterval <= c.TempReader.NormalInterval,
		"temp_reader.fault_interval %s out of range [1s, normal_interval]", c.TempReader.FaultInterval)

	check(c.Heater.TickInterval >= time.Second && c.Heater.TickInterval <= time.Minute,
		"heater.tick_interval %s out of range [1s, 1m]", c.Heater.TickInterval)
	check(c.Heater.SenseTimeout > 0 && c.Heater.SenseTimeout <= 30*time.Second,
		"heater.sense_timeout %s out of range (0, 30s]", c.Heater.SenseTimeout)
	check(c.Heater.HeaterTempLimit >= 50 && c.Heater.HeaterTempLimit <= 150,
		"heater.heater_temp_limit %.1f out of range [50, 150]", c.Heater.HeaterTempLimit)
	check(c.Heater.LightBand.Low < c.Heater.LightBand.High, "heater.light_band %s is not low < high", c.Heater.LightBand)
	check(c.Heater.DarkBand.Low < c.Heater.DarkBand.High, "heater.dark_band %s is not low < high", c.Heater.DarkBand)
	check(c.Heater.DarkBand.High < c.Heater.LightBand.Low,
		"heater: dark_band.high %.1f must be < light_band.low %.1f", c.Heater.DarkBand.High, c.Heater.LightBand.Low)

	check(c.Light.Interval >= time.Second, "light.interval %s must be at least 1s", c.Light.Interval)
	check(c.Light.SOCThreshold > 0 && c.Light.SOCThreshold <= 100,
		"light.soc_threshold %.1f out of range (0, 100]", c.Light.SOCThreshold)
	check(c.Light.LatitudeDeg >= -90 && c.Light.LatitudeDeg <= 90, "light.latitude_deg %.4f out of range [-90, 90]", c.Light.LatitudeDeg)
	check(c.Light.LongitudeDeg >= -180 && c.Light.LongitudeDeg <= 180, "light.longitude_deg %.4f out of range [-180, 180]", c.Light.LongitudeDeg)
	check(c.Light.ToLightDelay > 0, "light.to_light_delay_ticks must be positive")
	check(c.Light.ToDarkDelay > 0, "light.to_dark_delay_ticks must be positive")

	check(c.MQTT.Broker != "", "mqtt.broker must not be empty")
	check(c.MQTT.Topic != "", "mqtt.topic must not be empty")

	check(c.Metrics.ListenAddr != "", "metrics.listen_addr must not be empty")

	return errors.Join(errs...)
}
