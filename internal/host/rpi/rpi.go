// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rpi registers ShedSolar's fixed board wiring against the gpio and
// spi registries, trimmed from periph.io's host/rpi to the handful of named
// pins this one enclosure uses rather than the full 40-pin header.
package rpi

import (
	"fmt"

	"github.com/shedsolar/shedsolar/internal/conn/gpio/gpioreg"
	"github.com/shedsolar/shedsolar/internal/conn/spi"
	"github.com/shedsolar/shedsolar/internal/conn/spi/spireg"
	"github.com/shedsolar/shedsolar/internal/host/sysfs"
)

// Named pins, BCM numbering. See the enclosure wiring diagram: GPIO0 is the
// SSR sense input (pull-up, low = conducting), GPIO5 drives the SSR
// (low = on), GPIO2/3/4 drive the three status LEDs (low = on).
const (
	BatteryLED = "BATTERY_LED"
	HeaterLED  = "HEATER_LED"
	StatusLED  = "STATUS_LED"
	SSRSense   = "SSR_SENSE"
	SSRDrive   = "SSR_DRIVE"

	BatterySPI = "BATTERY_TC" // CE0
	HeaterSPI  = "HEATER_TC"  // CE1
)

// Register exports the board's fixed pin map into gpioreg/spireg. It is
// called once at startup by cmd/shedsolar; tests build their own fixtures
// against gpiotest/conntest instead of calling this.
func Register() error {
	pins := []struct {
		name   string
		number int
	}{
		{SSRSense, 0},
		{BatteryLED, 2},
		{HeaterLED, 3},
		{StatusLED, 4},
		{SSRDrive, 5},
	}
	for _, p := range pins {
		if err := gpioreg.Register(p.name, sysfs.NewPin(p.number, p.name)); err != nil {
			return fmt.Errorf("rpi: %w", err)
		}
	}

	spiPorts := []struct {
		name       string
		chipSelect int
	}{
		{BatterySPI, 0},
		{HeaterSPI, 1},
	}
	for _, s := range spiPorts {
		cs := s.chipSelect
		opener := func() (spi.PortCloser, error) { return sysfs.NewSPI(0, cs) }
		if err := spireg.Register(s.name, opener); err != nil {
			return fmt.Errorf("rpi: %w", err)
		}
	}
	return nil
}
