// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package core

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shedsolar/shedsolar/internal/config"
	"github.com/shedsolar/shedsolar/internal/conn/gpio"
	"github.com/shedsolar/shedsolar/internal/conn/gpio/gpiotest"
	"github.com/shedsolar/shedsolar/internal/conn/spi/spitest"
)

func testHW() (HW, *gpiotest.Pin, *gpiotest.Pin, *gpiotest.Pin) {
	ssrDrive := &gpiotest.Pin{N: "SSR_DRIVE", Num: 5}
	heaterLED := &gpiotest.Pin{N: "HEATER_LED", Num: 3}
	batteryLED := &gpiotest.Pin{N: "BATTERY_LED", Num: 2}
	hw := HW{
		BatterySPI: &spitest.Port{},
		HeaterSPI:  &spitest.Port{},
		SSRDrive:   ssrDrive,
		SSRSense:   &gpiotest.Pin{N: "SSR_SENSE", Num: 0},
		HeaterLED:  heaterLED,
		BatteryLED: batteryLED,
	}
	return hw, ssrDrive, heaterLED, batteryLED
}

func TestNew_WiresEveryView(t *testing.T) {
	hw, _, _, _ := testHW()
	c, err := New(config.Default(), hw, zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, c.Views.BatteryTemperature)
	assert.NotNil(t, c.Views.HeaterTemperature)
	assert.NotNil(t, c.Views.AmbientTemperature)
	assert.NotNil(t, c.Views.Outback)
	assert.NotNil(t, c.Views.Weather)
	assert.NotNil(t, c.Views.Light)
	assert.NotNil(t, c.Views.HeaterOn)
	assert.NotNil(t, c.Views.SSRFault)
	assert.NotNil(t, c.MetricsRegistry())

	// The light detector publishes its initial Dark state at construction.
	snap := c.Views.Light.Get()
	assert.True(t, snap.HasValue)
}

func TestRun_ShutdownDeEnergizesSSRAndLEDs(t *testing.T) {
	hw, ssrDrive, heaterLED, batteryLED := testHW()
	c, err := New(config.Default(), hw, zerolog.Nop())
	require.NoError(t, err)

	// Pretend a previous cycle left everything driven on (active low).
	require.NoError(t, ssrDrive.Out(gpio.Low))
	require.NoError(t, heaterLED.Out(gpio.Low))
	require.NoError(t, batteryLED.Out(gpio.Low))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Run(ctx))

	for _, p := range []*gpiotest.Pin{ssrDrive, heaterLED, batteryLED} {
		l, rerr := p.Read()
		require.NoError(t, rerr)
		assert.Equal(t, gpio.High, l, "%s must be released high (off) after Run returns", p.Name())
	}
}
