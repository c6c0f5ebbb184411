// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import (
	"time"

	"github.com/rs/zerolog"
)

// NormalController is the fully-sensed controller: both thermocouples are
// live, confirmation is measured on the heater channel, and start/stop is
// decided by the battery band.
type NormalController struct {
	fsm *ConfirmFSM
}

// NewNormalController builds a NormalController in its initial Idle state.
func NewNormalController(overTempLimit float64, now func() time.Time, log zerolog.Logger) *NormalController {
	return &NormalController{fsm: NewConfirmFSM(NormalPolicy(overTempLimit), now, log.With().Str("controller", "normal").Logger())}
}

// Step advances the controller by one tick.
func (c *NormalController) Step(batteryTemp, heaterTemp float64, band Band) {
	start := batteryTemp < band.Low
	stop := batteryTemp >= band.High
	c.fsm.Step(start, stop, heaterTemp)
}

// SSROn reports whether the SSR should be energized.
func (c *NormalController) SSROn() bool { return c.fsm.SSROn() }

// State returns the underlying ConfirmFSM state.
func (c *NormalController) State() ConfirmState { return c.fsm.State() }

// Reset returns the controller to its initial state.
func (c *NormalController) Reset() { c.fsm.Reset() }

// BatteryOnlyController handles the case where only the battery
// thermocouple is live, so both the band decision and the confirmation
// delta are measured on it.
type BatteryOnlyController struct {
	fsm *ConfirmFSM
}

// NewBatteryOnlyController builds a BatteryOnlyController in its initial
// Idle state.
func NewBatteryOnlyController(now func() time.Time, log zerolog.Logger) *BatteryOnlyController {
	return &BatteryOnlyController{fsm: NewConfirmFSM(BatteryOnlyPolicy(), now, log.With().Str("controller", "battery_only").Logger())}
}

// Step advances the controller by one tick.
func (c *BatteryOnlyController) Step(batteryTemp float64, band Band) {
	start := batteryTemp < band.Low
	stop := batteryTemp >= band.High
	c.fsm.Step(start, stop, batteryTemp)
}

// SSROn reports whether the SSR should be energized.
func (c *BatteryOnlyController) SSROn() bool { return c.fsm.SSROn() }

// State returns the underlying ConfirmFSM state.
func (c *BatteryOnlyController) State() ConfirmState { return c.fsm.State() }

// Reset returns the controller to its initial state.
func (c *BatteryOnlyController) Reset() { c.fsm.Reset() }

// HeaterOnlyOuterState is the outer equilibration/duty-planning state
// HeaterOnlyController wraps around the generic ConfirmFSM.
type HeaterOnlyOuterState int

// Possible HeaterOnlyOuterState values.
const (
	HOWaitForEquilibration HeaterOnlyOuterState = iota
	HOHeatFixed
)

func (s HeaterOnlyOuterState) String() string {
	if s == HOHeatFixed {
		return "heat_fixed"
	}
	return "wait_for_equilibration"
}

// HeaterOnlyConfig holds the equilibration tunables not already covered by
// the inner ConfirmFSM's Policy.
type HeaterOnlyConfig struct {
	// CoolingTime is how long the SSR must be off before the heater-output
	// thermocouple is trusted to read battery-box air temperature.
	CoolingTime time.Duration
	// TickTime is how often WaitForEquilibration re-samples once the
	// cooling time has elapsed but air_temp was not yet below low_band.
	TickTime time.Duration
	// DegreesPerSecond is the assumed heating rate used to plan a HeatFixed
	// cycle's duration.
	DegreesPerSecond float64
}

// DefaultHeaterOnlyConfig returns the default equilibration tunables.
func DefaultHeaterOnlyConfig() HeaterOnlyConfig {
	return HeaterOnlyConfig{
		CoolingTime:      3 * time.Minute,
		TickTime:         7 * time.Second,
		DegreesPerSecond: 0.05,
	}
}

// HeaterOnlyController handles the case where the battery thermocouple is
// unavailable, so the heater-output thermocouple doubles as an air-
// temperature proxy once it's had time to equilibrate with the SSR off.
type HeaterOnlyController struct {
	cfg   HeaterOnlyConfig
	inner *ConfirmFSM
	now   func() time.Time
	log   zerolog.Logger

	outer          HeaterOnlyOuterState
	waitUntil      time.Time
	plannedStart   time.Time
	plannedElapsed time.Duration
	startedInner   bool
}

// NewHeaterOnlyController builds a HeaterOnlyController in its initial
// WaitForEquilibration state.
func NewHeaterOnlyController(cfg HeaterOnlyConfig, overTempLimit float64, now func() time.Time, log zerolog.Logger) *HeaterOnlyController {
	c := &HeaterOnlyController{
		cfg:   cfg,
		inner: NewConfirmFSM(HeaterOnlyInnerPolicy(overTempLimit), now, log.With().Str("controller", "heater_only").Logger()),
		now:   now,
		log:   log,
	}
	c.outer = HOWaitForEquilibration
	c.waitUntil = now().Add(cfg.CoolingTime)
	return c
}

// Step advances the controller by one tick. band.Low/High bound the
// planned HeatFixed target the way the battery band does for Normal.
func (c *HeaterOnlyController) Step(heaterTemp float64, band Band) {
	switch c.outer {
	case HOWaitForEquilibration:
		if !c.now().Before(c.waitUntil) {
			if heaterTemp < band.Low {
				duration := time.Duration((band.High - heaterTemp) / c.cfg.DegreesPerSecond * float64(time.Second))
				c.plannedStart = c.now()
				c.plannedElapsed = duration
				c.outer = HOHeatFixed
				c.startedInner = false
				c.log.Info().Dur("planned", duration).Msg("heater-only: planning fixed heat cycle")
			} else {
				c.waitUntil = c.now().Add(c.cfg.TickTime)
			}
		}
	case HOHeatFixed:
		if !c.startedInner {
			c.inner.Step(true, false, heaterTemp)
			c.startedInner = true
		} else {
			elapsed := c.now().Sub(c.plannedStart) >= c.plannedElapsed
			c.inner.Step(false, elapsed, heaterTemp)
		}
		if c.inner.State() == StateIdle {
			c.outer = HOWaitForEquilibration
			c.waitUntil = c.now().Add(c.cfg.CoolingTime)
		}
	}
}

// SSROn reports whether the SSR should be energized.
func (c *HeaterOnlyController) SSROn() bool { return c.inner.SSROn() }

// OuterState returns the outer equilibration/drive state.
func (c *HeaterOnlyController) OuterState() HeaterOnlyOuterState { return c.outer }

// InnerState returns the wrapped ConfirmFSM's state.
func (c *HeaterOnlyController) InnerState() ConfirmState { return c.inner.State() }

// Reset returns the controller to its initial WaitForEquilibration state.
func (c *HeaterOnlyController) Reset() {
	c.inner.Reset()
	c.outer = HOWaitForEquilibration
	c.waitUntil = c.now().Add(c.cfg.CoolingTime)
	c.startedInner = false
}
