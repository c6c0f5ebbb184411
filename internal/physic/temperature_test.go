// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package physic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemperature_CelsiusRoundTrip(t *testing.T) {
	for _, c := range []float64{-40, -0.25, 0, 0.0625, 21.5, 100} {
		assert.InDelta(t, c, FromCelsius(c).Celsius(), 1e-6)
	}
}

func TestTemperature_String(t *testing.T) {
	assert.Equal(t, "23.5°C", FromCelsius(23.5).String())
	assert.Equal(t, "0°C", ZeroCelsius.String())
}

func TestFrequency_String(t *testing.T) {
	assert.Equal(t, "1000000Hz", (1 * MegaHertz).String())
	assert.Equal(t, "0.5Hz", (500 * MilliHertz).String())
}
