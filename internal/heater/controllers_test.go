// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClock() (*time.Time, func() time.Time) {
	clock := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	return &clock, func() time.Time { return clock }
}

// TestConfirmFSM_RetriesThenFails walks the full retry ladder: each
// unconfirmed start costs a cooldown scaled by the attempt count, and the
// fourth failed attempt latches Failed.
func TestConfirmFSM_RetriesThenFails(t *testing.T) {
	clock, now := testClock()
	f := NewConfirmFSM(NormalPolicy(100), now, zerolog.Nop())

	f.Step(true, false, 20)
	require.Equal(t, StateConfirmingOn, f.State())

	for attempt := 1; attempt <= 3; attempt++ {
		*clock = clock.Add(45 * time.Second)
		f.Step(false, false, 20) // no rise, on_timeout expires
		require.Equal(t, StateCooldown, f.State(), "attempt %d", attempt)
		require.Equal(t, attempt, f.Attempts())
		require.False(t, f.SSROn())

		*clock = clock.Add(time.Duration(attempt) * 60 * time.Second)
		f.Step(false, false, 20)
		require.Equal(t, StateConfirmingOn, f.State())
	}

	*clock = clock.Add(45 * time.Second)
	f.Step(false, false, 20)
	assert.Equal(t, StateFailed, f.State())
	assert.True(t, f.State().Terminal())
	assert.False(t, f.SSROn())
}

// TestConfirmFSM_OverTempForcesShutoff checks the Heating safety branch: the
// source sensor exceeding OverTempLimit forces ConfirmingOff even though no
// stop condition was requested.
func TestConfirmFSM_OverTempForcesShutoff(t *testing.T) {
	clock, now := testClock()
	f := NewConfirmFSM(NormalPolicy(100), now, zerolog.Nop())

	f.Step(true, false, 20)
	f.Step(false, false, 31) // +10 over t0 confirms the start
	require.Equal(t, StateHeating, f.State())

	f.Step(false, false, 101)
	require.Equal(t, StateConfirmingOff, f.State())
	require.False(t, f.SSROn())

	f.Step(false, false, 90) // fell 10+ below the ConfirmingOff snapshot
	assert.Equal(t, StatePostCooldown, f.State())

	*clock = clock.Add(3 * time.Minute)
	f.Step(false, false, 90)
	assert.Equal(t, StateIdle, f.State())
	assert.Zero(t, f.Attempts(), "attempts reset after a completed cycle")
}

func TestConfirmFSM_StuckOnLatches(t *testing.T) {
	clock, now := testClock()
	f := NewConfirmFSM(NormalPolicy(100), now, zerolog.Nop())

	f.Step(true, false, 20)
	f.Step(false, false, 31)
	require.Equal(t, StateHeating, f.State())

	f.Step(false, true, 50) // stop requested, enter ConfirmingOff at t0=50
	*clock = clock.Add(45 * time.Second)
	f.Step(false, false, 50) // never fell, off_timeout expires
	assert.Equal(t, StateStuckOn, f.State())
	assert.True(t, f.State().Terminal())
	assert.False(t, f.SSROn())
}

// TestBatteryOnly_ConfirmsOnBatterySensor checks the same FSM topology
// as Normal, but both the band decision and the ±5°C confirmation deltas are
// measured on the battery thermocouple itself.
func TestBatteryOnly_ConfirmsOnBatterySensor(t *testing.T) {
	_, now := testClock()
	c := NewBatteryOnlyController(now, zerolog.Nop())
	band := Band{Low: 0, High: 5}

	c.Step(-2, band) // below low band: start
	require.Equal(t, StateConfirmingOn, c.State())
	require.True(t, c.SSROn())

	c.Step(3.5, band) // rose 5+ from the -2 snapshot
	require.Equal(t, StateHeating, c.State())

	c.Step(5, band) // reached high band: stop
	require.Equal(t, StateConfirmingOff, c.State())
	require.False(t, c.SSROn())

	c.Step(-0.5, band) // fell 5+ below the snapshot of 5
	assert.Equal(t, StatePostCooldown, c.State())
}

// TestHeaterOnly_PlansFixedHeatCycle: after the equilibration wait the air
// reading plans a fixed-duration pulse at the assumed heating rate, driven
// through the inner confirmation FSM.
func TestHeaterOnly_PlansFixedHeatCycle(t *testing.T) {
	clock, now := testClock()
	c := NewHeaterOnlyController(DefaultHeaterOnlyConfig(), 100, now, zerolog.Nop())
	band := Band{Low: 15, High: 20}

	// Still equilibrating: nothing happens.
	c.Step(10, band)
	require.Equal(t, HOWaitForEquilibration, c.OuterState())
	require.False(t, c.SSROn())

	// Equilibrated and cold: plan (20-10)/0.05 = 200s.
	*clock = clock.Add(3 * time.Minute)
	c.Step(10, band)
	require.Equal(t, HOHeatFixed, c.OuterState())

	// The next tick starts the pulse through the inner confirmation FSM.
	*clock = clock.Add(5 * time.Second)
	c.Step(10, band)
	require.Equal(t, StateConfirmingOn, c.InnerState())
	require.True(t, c.SSROn())

	// The heater output rising confirms the start.
	*clock = clock.Add(5 * time.Second)
	c.Step(21, band)
	require.Equal(t, StateHeating, c.InnerState())

	// Planned duration elapsed: commanded off, confirmed by the fall.
	*clock = clock.Add(200 * time.Second)
	c.Step(21, band)
	require.Equal(t, StateConfirmingOff, c.InnerState())
	require.False(t, c.SSROn())
	c.Step(10, band)
	require.Equal(t, StatePostCooldown, c.InnerState())

	// Once the inner FSM is back to Idle the outer state returns to
	// equilibration for the next round.
	*clock = clock.Add(3 * time.Minute)
	c.Step(10, band)
	assert.Equal(t, HOWaitForEquilibration, c.OuterState())
}

func TestHeaterOnly_WarmAirJustRechecks(t *testing.T) {
	clock, now := testClock()
	c := NewHeaterOnlyController(DefaultHeaterOnlyConfig(), 100, now, zerolog.Nop())
	band := Band{Low: 15, High: 20}

	*clock = clock.Add(3 * time.Minute)
	c.Step(18, band) // air above low band: no pulse
	assert.Equal(t, HOWaitForEquilibration, c.OuterState())
	assert.False(t, c.SSROn())
}
