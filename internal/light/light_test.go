// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package light

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shedsolar/shedsolar/internal/collab"
	"github.com/shedsolar/shedsolar/internal/infoview"
)

func newDetector(cfg Config) (*Detector, *infoview.View[collab.OutbackSnapshot], *infoview.View[collab.WeatherSnapshot], *infoview.View[State]) {
	ob := infoview.New[collab.OutbackSnapshot]("outback", time.Minute, nil)
	w := infoview.New[collab.WeatherSnapshot]("weather", time.Minute, nil)
	out := infoview.New[State]("light", time.Minute, nil)
	d := New(cfg, ob, w, out, zerolog.Nop())
	return d, ob, w, out
}

// TestSourcePriority: panel power, when trusted, wins over the pyrometer
// even when they disagree.
func TestSourcePriority(t *testing.T) {
	cfg := DefaultConfig()
	d, ob, w, _ := newDetector(cfg)

	ob.Set(collab.OutbackSnapshot{SOCPercent: 95, PVVoltageV: 30, PVCurrentA: 5}) // 150W
	w.Set(collab.WeatherSnapshot{IrradianceWM2: 900})

	bright, source := d.classify()
	assert.Equal(t, SourcePanelPower, source)
	assert.False(t, bright, "150W panel power is below the 200W threshold")

	ob.Set(collab.OutbackSnapshot{SOCPercent: 99, PVVoltageV: 30, PVCurrentA: 5})
	bright, source = d.classify()
	assert.Equal(t, SourcePyrometer, source, "SOC above threshold defers to the pyrometer")
	assert.True(t, bright)
}

func TestHysteresis_DarkToLight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToLightDelay = 5
	cfg.ToDarkDelay = 60
	d, _, w, out := newDetector(cfg)
	w.Set(collab.WeatherSnapshot{IrradianceWM2: 900})

	for i := 0; i < 4; i++ {
		d.Tick()
		assert.Equal(t, Dark, out.Get().Value.Mode, "must not flip before to_light_delay ticks")
	}
	d.Tick()
	assert.Equal(t, Light, out.Get().Value.Mode)
}

// TestHysteresis_SingleBrightTickDoesNotFlip: a single bright tick in an
// otherwise-dark run does not flip the mode unless to_light_delay == 1.
func TestHysteresis_SingleBrightTickDoesNotFlip(t *testing.T) {
	cfg := DefaultConfig()
	require.Greater(t, cfg.ToLightDelay, 1)
	d, _, w, out := newDetector(cfg)

	w.Set(collab.WeatherSnapshot{IrradianceWM2: 900}) // one bright tick
	d.Tick()
	w.Set(collab.WeatherSnapshot{IrradianceWM2: 0}) // back to dark
	d.Tick()

	assert.Equal(t, Dark, out.Get().Value.Mode)
}

func TestHysteresis_LightToDark(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToLightDelay = 1
	cfg.ToDarkDelay = 3
	d, _, w, out := newDetector(cfg)

	w.Set(collab.WeatherSnapshot{IrradianceWM2: 900})
	d.Tick()
	require.Equal(t, Light, out.Get().Value.Mode)

	w.Set(collab.WeatherSnapshot{IrradianceWM2: 0})
	d.Tick()
	d.Tick()
	assert.Equal(t, Light, out.Get().Value.Mode, "must not flip before to_dark_delay ticks")
	d.Tick()
	assert.Equal(t, Dark, out.Get().Value.Mode)
}

func TestAlmanac_FallsBackWhenNoLiveTelemetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LatitudeDeg = 45
	cfg.LongitudeDeg = 0
	d, _, _, _ := newDetector(cfg)

	noon := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return noon })
	bright, source := d.classify()
	assert.Equal(t, SourceAlmanac, source)
	assert.True(t, bright, "summer solstice noon must be bright")

	midnight := time.Date(2024, 6, 21, 0, 30, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return midnight })
	bright, source = d.classify()
	assert.Equal(t, SourceAlmanac, source)
	assert.False(t, bright)
}
