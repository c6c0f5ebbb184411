// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoolingTime_CalibratedCase pins the field-calibrated numbers:
// T_outside=-4°C, cooling from 20°C down to 10°C with K=0.000841 takes
// about 641s.
func TestCoolingTime_CalibratedCase(t *testing.T) {
	seconds, ok := CoolingTime(-4, 20, 10, 0.000841)
	require.True(t, ok)
	assert.InDelta(t, 641, seconds, 641*0.05)
}

func TestCoolingTime_UndefinedWhenOutsideWarmerThanHighBand(t *testing.T) {
	_, ok := CoolingTime(25, 20, 15, 0.0004)
	assert.False(t, ok, "T_d >= 0 means the box never cools toward the band")
}

func TestCoolingTime_UndefinedWhenOutsideAboveLowBand(t *testing.T) {
	// Outside sits between the low and high band: the box cools toward
	// outside but never reaches the low band, so the log argument goes
	// non-positive.
	_, ok := CoolingTime(2, 5, 0, 0.0004)
	assert.False(t, ok)
}

func TestHeatingTime_AppliesSafetyTweak(t *testing.T) {
	seconds := HeatingTime(15, 20, 0.05, 1.03)
	assert.InDelta(t, 103, seconds, 1e-9)
}
