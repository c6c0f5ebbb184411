// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpio defines digital pins, trimmed from periph.io's conn/gpio to
// the subset ShedSolar needs: plain digital in/out with an optional pull
// resistor. There is no WaitForEdge() or PWM() here — every pin this
// firmware touches (thermocouple chip-selects, the SSR drive line, the SSR
// sense input, the three status LEDs) is read or written by a polling tick,
// never by an interrupt, and the heater LED's PWM-like duty cycle is a
// software toggle over Out(), not a hardware PWM peripheral.
package gpio

import "fmt"

// Level is the level of a pin: Low or High.
type Level bool

const (
	// Low represents 0V.
	Low Level = false
	// High represents Vin, generally 3.3V.
	High Level = true
)

func (l Level) String() string {
	if l == Low {
		return "Low"
	}
	return "High"
}

// Pull specifies the internal pull-up or pull-down for a pin set as input.
type Pull uint8

// Acceptable pull values.
const (
	Float        Pull = 0 // Let the input float.
	Down         Pull = 1 // Apply pull-down.
	Up           Pull = 2 // Apply pull-up.
	PullNoChange Pull = 3 // Do not change the previous pull resistor setting.
)

func (p Pull) String() string {
	switch p {
	case Float:
		return "Float"
	case Down:
		return "Down"
	case Up:
		return "Up"
	default:
		return "PullNoChange"
	}
}

// Pin is the minimal interface shared by every digital pin: its name, its
// logical number (-1 if not applicable) and a human readable description of
// its current function.
type Pin interface {
	fmt.Stringer
	Name() string
	Number() int
}

// PinIn is an input GPIO pin.
type PinIn interface {
	Pin
	// In sets up the pin as an input with the given pull resistor.
	In(pull Pull) error
	// Read returns the current level of the pin.
	//
	// Behavior is undefined if In() wasn't called first.
	Read() (Level, error)
}

// PinOut is an output GPIO pin.
type PinOut interface {
	Pin
	// Out sets the pin as output, if it wasn't already, and drives it to l.
	Out(l Level) error
}

// PinIO is a GPIO pin that supports both input and output, such as the SSR
// sense line (input) or the SSR drive line (output) depending on board
// wiring.
type PinIO interface {
	Pin
	In(pull Pull) error
	Read() (Level, error)
	Out(l Level) error
}

// INVALID implements PinIO and fails on all access. Use it as the pin of
// last resort where a nil PinIO would otherwise flow into code that doesn't
// check, so misuse fails loudly instead of silently touching pin 0.
var INVALID PinIO = invalidPin{}

type invalidPin struct{}

func (invalidPin) String() string {
	return "INVALID"
}

func (invalidPin) Name() string {
	return "INVALID"
}

func (invalidPin) Number() int {
	return -1
}

func (invalidPin) In(Pull) error {
	return fmt.Errorf("gpio: INVALID cannot be used as input")
}

func (invalidPin) Read() (Level, error) {
	return Low, fmt.Errorf("gpio: INVALID cannot be read")
}

func (invalidPin) Out(Level) error {
	return fmt.Errorf("gpio: INVALID cannot be used as output")
}
