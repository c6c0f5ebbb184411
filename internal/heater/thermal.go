// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import "math"

// CoolingTime solves the Newtonian cooling model for the time to
// cool from highC down to lowC given an outside temperature of outsideC and
// the calibrated rate constant k.
//
// T_b(t) = T_i + T_d*(1 - e^(-t*k)), T_d = outsideC - highC, T_i = highC.
//
// ok is false when T_d >= 0 (outside is as warm or warmer than the band the
// batteries just finished heating to, so they never cool toward lowC) or
// when the argument to log is non-positive (lowC is not reachable from
// highC at this outside temperature). In both cases the caller runs the
// heater for zero time and re-evaluates next tick.
func CoolingTime(outsideC, highC, lowC, k float64) (seconds float64, ok bool) {
	td := outsideC - highC
	if td >= 0 {
		return 0, false
	}
	arg := 1 - (lowC-highC)/td
	if arg <= 0 {
		return 0, false
	}
	return -math.Log(arg) / k, true
}

// HeatingTime is the planned duration of a heating pulse from lowC to
// highC at the assumed heating rate degreesPerSecond, inflated by
// safetyTweak to err warm.
func HeatingTime(lowC, highC, degreesPerSecond, safetyTweak float64) float64 {
	return (highC - lowC) / degreesPerSecond * safetyTweak
}
