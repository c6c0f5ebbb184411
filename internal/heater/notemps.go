// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import (
	"time"

	"github.com/rs/zerolog"
)

// NoTempsConfig holds the open-loop thermal-model tunables.
type NoTempsConfig struct {
	// K is the Newtonian cooling rate constant, calibrated by observation.
	K float64
	// DegreesPerSecond is the assumed heating rate.
	DegreesPerSecond float64
	// SafetyTweak inflates the planned heating duration to err warm.
	SafetyTweak float64
}

// DefaultNoTempsConfig returns the default thermal-model tunables.
func DefaultNoTempsConfig() NoTempsConfig {
	return NoTempsConfig{K: 0.0004, DegreesPerSecond: 0.05, SafetyTweak: 1.03}
}

// NoTempsPhase is NoTempsController's duty-cycle phase.
type NoTempsPhase int

// Possible NoTempsPhase values.
const (
	NoTempsCooling NoTempsPhase = iota
	NoTempsHeating
)

func (p NoTempsPhase) String() string {
	if p == NoTempsHeating {
		return "heating"
	}
	return "cooling"
}

// NoTempsController is the open-loop controller: no thermocouples are live,
// so the duty cycle is entirely planned from the thermal model rather than
// measured, alternating SSR-on for the planned heating time and SSR-off for
// the planned cooling time.
type NoTempsController struct {
	cfg NoTempsConfig
	now func() time.Time
	log zerolog.Logger

	phase NoTempsPhase
	until time.Time
}

// NewNoTempsController builds a NoTempsController. It starts in Cooling
// with the transition already due, so the first Step immediately plans and
// begins a heating pulse — with no sensor at all there is no way to know
// the batteries' actual phase at mode entry, so this assumes a cooling
// period has just ended and a heat pulse is due, and lets the duty cycle
// settle from there.
func NewNoTempsController(cfg NoTempsConfig, now func() time.Time, log zerolog.Logger) *NoTempsController {
	return &NoTempsController{
		cfg:   cfg,
		now:   now,
		log:   log.With().Str("controller", "no_temps").Logger(),
		phase: NoTempsCooling,
		until: now(),
	}
}

// Step advances the controller by one tick. outsideC is the best available
// outside-temperature reading (weather, falling back to the
// reference-junction ambient).
func (c *NoTempsController) Step(outsideC float64, band Band) {
	now := c.now()
	if now.Before(c.until) {
		return
	}
	switch c.phase {
	case NoTempsCooling:
		if _, ok := CoolingTime(outsideC, band.High, band.Low, c.cfg.K); !ok {
			// t_cool is undefined exactly when outside is at or above the low
			// band, meaning the box never cools out of range on its own; no
			// heat pulse is needed. Re-evaluate next tick.
			c.until = now
			return
		}
		seconds := HeatingTime(band.Low, band.High, c.cfg.DegreesPerSecond, c.cfg.SafetyTweak)
		c.phase = NoTempsHeating
		c.until = now.Add(time.Duration(seconds * float64(time.Second)))
		c.log.Info().Float64("planned_seconds", seconds).Msg("no-temps: beginning planned heat pulse")
	case NoTempsHeating:
		seconds, ok := CoolingTime(outsideC, band.High, band.Low, c.cfg.K)
		c.phase = NoTempsCooling
		if !ok {
			// Hold the heater off and re-evaluate next tick rather than
			// planning an undefined cooling period.
			c.until = now
			return
		}
		c.until = now.Add(time.Duration(seconds * float64(time.Second)))
		c.log.Info().Float64("planned_seconds", seconds).Msg("no-temps: beginning planned cooling period")
	}
}

// SSROn reports whether the SSR should be energized.
func (c *NoTempsController) SSROn() bool { return c.phase == NoTempsHeating }

// Phase returns the controller's current duty-cycle phase.
func (c *NoTempsController) Phase() NoTempsPhase { return c.phase }

// Reset returns the controller to its initial state.
func (c *NoTempsController) Reset() {
	c.phase = NoTempsCooling
	c.until = c.now()
}
