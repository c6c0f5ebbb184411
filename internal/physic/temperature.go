// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package physic defines the small set of physical quantities ShedSolar
// needs to move between the SPI layer, the sensor drivers and the control
// loops. It is a deliberately narrow cut of periph.io's conn/physic: only
// the units this firmware actually measures or drives.
package physic

import "strconv"

// Temperature is a measurement of hotness stored as nano kelvin.
//
// Negative values are invalid.
type Temperature int64

// String returns the temperature formatted as a string in °Celsius.
func (t Temperature) String() string {
	return nanoAsString(int64(t-ZeroCelsius)) + "°C"
}

// Celsius returns the temperature as a floating point number of degrees
// Celsius. It is a convenience accessor for control-loop math; the canonical
// representation remains the fixed-point nano-kelvin integer.
func (t Temperature) Celsius() float64 {
	return float64(t-ZeroCelsius) / float64(Celsius)
}

// FromCelsius converts a floating point number of degrees Celsius into a
// Temperature.
func FromCelsius(c float64) Temperature {
	return ZeroCelsius + Temperature(c*float64(Celsius))
}

const (
	NanoKelvin  Temperature = 1
	MicroKelvin Temperature = 1000 * NanoKelvin
	MilliKelvin Temperature = 1000 * MicroKelvin
	Kelvin      Temperature = 1000 * MilliKelvin

	// Conversion between Kelvin and Celsius.
	ZeroCelsius  Temperature = 273150 * MilliKelvin
	MilliCelsius Temperature = MilliKelvin
	Celsius      Temperature = Kelvin
)

// Frequency is a measurement of cycles per second, stored as nano hertz.
//
// Used to express the SPI bus clock rate.
type Frequency int64

const (
	MilliHertz Frequency = 1000 * 1000
	Hertz      Frequency = 1000 * 1000 * 1000
	KiloHertz            = 1000 * Hertz
	MegaHertz            = 1000 * KiloHertz
)

func (f Frequency) String() string {
	return nanoAsString(int64(f)) + "Hz"
}

// nanoAsString renders a nano-unit fixed point integer as a decimal string
// with up to 3 fractional digits, the way periph.io's conn/physic does for
// its unit types.
func nanoAsString(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / 1000000000
	frac := (v % 1000000000) / 1000000
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	fracStr := strconv.FormatInt(frac, 10)
	for len(fracStr) < 3 {
		fracStr = "0" + fracStr
	}
	for len(fracStr) > 1 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}
	return sign + strconv.FormatInt(whole, 10) + "." + fracStr
}
