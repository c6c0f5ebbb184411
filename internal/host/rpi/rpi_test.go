// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shedsolar/shedsolar/internal/conn/gpio/gpioreg"
	"github.com/shedsolar/shedsolar/internal/conn/spi/spireg"
	"github.com/shedsolar/shedsolar/internal/ioctl"
)

func TestRegister_ExposesAllNamedPinsAndPortsThenRefusesDoubleRegistration(t *testing.T) {
	ioctl.Inhibit()
	require.NoError(t, Register())

	for _, name := range []string{BatteryLED, HeaterLED, StatusLED, SSRSense, SSRDrive} {
		p := gpioreg.ByName(name)
		require.NotNil(t, p, name)
		assert.Equal(t, name, p.Name())
	}

	for _, name := range []string{BatterySPI, HeaterSPI} {
		_, err := spireg.Open(name)
		// The opener runs; it fails only because Inhibit blocks the real
		// device node, not because the name was never registered.
		assert.Error(t, err)
	}

	assert.Error(t, Register())
}
