// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package heater implements the heater controller supervisor and its four
// sub-controller FSMs. Three of the four — Normal, BatteryOnly, and
// HeaterOnly's inner drive loop — are one generic FSM parameterized by a
// Policy record; NoTemps is a distinct FSM with no confirmation step,
// driven purely by the thermal model in thermal.go.
package heater

import (
	"fmt"
	"time"
)

// ActiveMode is the supervisor's top-level sub-controller selection,
// derived from which thermocouples are currently live.
type ActiveMode int

// Possible ActiveMode values.
const (
	ModeIdle ActiveMode = iota
	ModeNormal
	ModeBatteryOnly
	ModeHeaterOnly
	ModeNoTemps
)

func (m ActiveMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeBatteryOnly:
		return "battery_only"
	case ModeHeaterOnly:
		return "heater_only"
	case ModeNoTemps:
		return "no_temps"
	default:
		return "idle"
	}
}

// Band is a (low, high) battery-temperature hysteresis pair.
type Band struct {
	Low  float64
	High float64
}

func (b Band) String() string {
	return fmt.Sprintf("[%.1f, %.1f]", b.Low, b.High)
}

// Cycle tracks one heater on/off episode, for the external thermal-cycle
// recorder to consume.
type Cycle struct {
	OnAt            time.Time
	OffAt           time.Time
	StartAttempts   int
	TotalOnDuration time.Duration
}

// SSRFault describes a latched drive/sense disagreement: what was
// commanded, what the sense relay reported, and when the fault was latched.
type SSRFault struct {
	Commanded bool
	Observed  bool
	Since     time.Time
}

// Failure describes a latched heater-side fault (Failed or StuckOn), for the
// HeaterFailure InfoView.
type Failure struct {
	Mode  ActiveMode
	State ConfirmState
	Since time.Time
}
