// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import (
	"time"

	"github.com/rs/zerolog"
)

// ConfirmState is a state of the generic confirmation-policy FSM.
type ConfirmState int

// Possible ConfirmState values.
const (
	StateIdle ConfirmState = iota
	StateConfirmingOn
	StateHeating
	StateConfirmingOff
	StatePostCooldown
	StateCooldown
	StateFailed
	StateStuckOn
)

func (s ConfirmState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfirmingOn:
		return "confirming_on"
	case StateHeating:
		return "heating"
	case StateConfirmingOff:
		return "confirming_off"
	case StatePostCooldown:
		return "post_cooldown"
	case StateCooldown:
		return "cooldown"
	case StateFailed:
		return "failed"
	case StateStuckOn:
		return "stuck_on"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the FSM's latched terminal states.
func (s ConfirmState) Terminal() bool {
	return s == StateFailed || s == StateStuckOn
}

// Policy parameterizes the generic confirmation FSM. Name is
// used only for logging.
type Policy struct {
	Name string

	// OnDelta/OffDelta are the temperature change required on the source
	// sensor to prove the heater actually turned on/off. OffDelta is
	// negative.
	OnDelta  float64
	OffDelta float64

	OnTimeout  time.Duration
	OffTimeout time.Duration

	MaxAttempts int
	// InitialCooldown scales by min(attempts, 5) on each failed start.
	InitialCooldown time.Duration
	PostCooldown    time.Duration

	// OverTempLimit is the safety shutoff threshold measured on the source
	// sensor; zero disables the check (BatteryOnly has no heater sensor to
	// measure it on).
	OverTempLimit float64
}

// NormalPolicy returns the defaults for the both-sensors case: confirmation
// is measured on the heater-output thermocouple. overTempLimit is the
// configured safety shutoff threshold; deployed enclosures run either 50°C
// or 100°C depending on the heater fitted, so it is configuration rather
// than a constant here.
func NormalPolicy(overTempLimit float64) Policy {
	return Policy{
		Name:            "normal",
		OnDelta:         10,
		OffDelta:        -10,
		OnTimeout:       45 * time.Second,
		OffTimeout:      45 * time.Second,
		MaxAttempts:     4,
		InitialCooldown: 60 * time.Second,
		PostCooldown:    3 * time.Minute,
		OverTempLimit:   overTempLimit,
	}
}

// BatteryOnlyPolicy returns the defaults for the battery-only case:
// confirmation is
// measured on the battery thermocouple itself, with a smaller delta and a
// longer timeout since the battery mass responds to heat more slowly than
// the heater's own output air. No over-temperature safety branch.
func BatteryOnlyPolicy() Policy {
	return Policy{
		Name:            "battery_only",
		OnDelta:         5,
		OffDelta:        -5,
		OnTimeout:       4 * time.Minute,
		OffTimeout:      4 * time.Minute,
		MaxAttempts:     4,
		InitialCooldown: 60 * time.Second,
		PostCooldown:    3 * time.Minute,
		OverTempLimit:   0,
	}
}

// HeaterOnlyInnerPolicy returns the defaults for the inner
// drive loop HeaterOnlyController wraps: confirmation is measured on the
// heater thermocouple, same deltas and timeouts as Normal.
func HeaterOnlyInnerPolicy(overTempLimit float64) Policy {
	p := NormalPolicy(overTempLimit)
	p.Name = "heater_only"
	return p
}

// ConfirmFSM is the generic confirmation state machine: it handles
// the Idle -> ConfirmingOn -> Heating -> ConfirmingOff -> PostCooldown
// -> Idle happy path, the ConfirmingOn -> Cooldown -> ConfirmingOn retry
// loop, and the two latched failure states.
//
// It does not decide *when* to start or stop heating — Step takes those as
// parameters — because that decision differs between a band comparison
// (Normal, BatteryOnly) and an elapsed-duration comparison (HeaterOnly's
// duty-planned drive loop).
type ConfirmFSM struct {
	policy Policy
	now    func() time.Time
	log    zerolog.Logger

	state     ConfirmState
	enteredAt time.Time
	sourceT0  float64
	attempts  int
	cooldown  time.Duration
}

// NewConfirmFSM returns a ConfirmFSM in its initial Idle state.
func NewConfirmFSM(policy Policy, now func() time.Time, log zerolog.Logger) *ConfirmFSM {
	return &ConfirmFSM{policy: policy, now: now, log: log, state: StateIdle, enteredAt: now()}
}

// Reset returns the FSM to its initial state. The supervisor calls it on
// every mode change so no state bleeds between modes. The latched Failed
// and StuckOn states are kept.
func (f *ConfirmFSM) Reset() {
	if f.state.Terminal() {
		return
	}
	f.state = StateIdle
	f.enteredAt = f.now()
	f.attempts = 0
	f.cooldown = 0
}

// State returns the FSM's current state.
func (f *ConfirmFSM) State() ConfirmState {
	return f.state
}

// Attempts returns the number of start attempts made since the last
// successful PostCooldown completion.
func (f *ConfirmFSM) Attempts() int {
	return f.attempts
}

// SSROn reports whether the FSM's current state demands the SSR be
// energized.
func (f *ConfirmFSM) SSROn() bool {
	return f.state == StateConfirmingOn || f.state == StateHeating
}

// Step advances the FSM by one supervisor tick.
//
// start is consulted only while Idle: it is the condition for leaving Idle
// toward ConfirmingOn (e.g. "battery_temp < low_band"). stop is consulted
// only while Heating, in addition to the policy's own OverTempLimit check:
// it is the condition for leaving Heating toward ConfirmingOff (e.g.
// "battery_temp >= high_band", or "planned heating duration elapsed" for
// HeaterOnly). sourceTemp is the current reading of the policy's
// confirmation source sensor; it must be valid whenever the FSM is not Idle.
func (f *ConfirmFSM) Step(start, stop bool, sourceTemp float64) {
	switch f.state {
	case StateIdle:
		if start {
			f.enterConfirmingOn(sourceTemp)
		}
	case StateConfirmingOn:
		if sourceTemp >= f.sourceT0+f.policy.OnDelta {
			f.state = StateHeating
			f.enteredAt = f.now()
			f.log.Info().Str("policy", f.policy.Name).Msg("heater confirmed on")
			return
		}
		if f.now().Sub(f.enteredAt) >= f.policy.OnTimeout {
			f.attempts++
			if f.attempts >= f.policy.MaxAttempts {
				f.state = StateFailed
				f.enteredAt = f.now()
				f.log.Error().Str("policy", f.policy.Name).Int("attempts", f.attempts).Msg("heater failed to start")
				return
			}
			n := f.attempts
			if n > 5 {
				n = 5
			}
			f.cooldown = f.policy.InitialCooldown * time.Duration(n)
			f.state = StateCooldown
			f.enteredAt = f.now()
			f.log.Warn().Str("policy", f.policy.Name).Int("attempts", f.attempts).Dur("cooldown", f.cooldown).Msg("heater start not confirmed, cooling down before retry")
		}
	case StateHeating:
		overTemp := f.policy.OverTempLimit > 0 && sourceTemp > f.policy.OverTempLimit
		if overTemp || stop {
			f.enterConfirmingOff(sourceTemp)
		}
	case StateConfirmingOff:
		if sourceTemp <= f.sourceT0+f.policy.OffDelta {
			f.state = StatePostCooldown
			f.enteredAt = f.now()
			f.log.Info().Str("policy", f.policy.Name).Msg("heater confirmed off")
			return
		}
		if f.now().Sub(f.enteredAt) >= f.policy.OffTimeout {
			f.state = StateStuckOn
			f.enteredAt = f.now()
			f.log.Error().Str("policy", f.policy.Name).Msg("heater stuck on")
		}
	case StatePostCooldown:
		if f.now().Sub(f.enteredAt) >= f.policy.PostCooldown {
			f.attempts = 0
			f.state = StateIdle
			f.enteredAt = f.now()
		}
	case StateCooldown:
		if f.now().Sub(f.enteredAt) >= f.cooldown {
			f.enterConfirmingOn(sourceTemp)
		}
	case StateFailed, StateStuckOn:
		// Latched; only a process restart (a fresh ConfirmFSM) clears these.
	}
}

func (f *ConfirmFSM) enterConfirmingOn(sourceTemp float64) {
	f.sourceT0 = sourceTemp
	f.enteredAt = f.now()
	f.state = StateConfirmingOn
}

func (f *ConfirmFSM) enterConfirmingOff(sourceTemp float64) {
	f.sourceT0 = sourceTemp
	f.enteredAt = f.now()
	f.state = StateConfirmingOff
}
