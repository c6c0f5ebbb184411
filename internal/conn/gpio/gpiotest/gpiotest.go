// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiotest is meant to be used to test drivers using fake Pins, the
// way periph.io's conn/gpio/gpiotest is used by devices/bmxx80's tests. It
// lets heater/SSR and LED tests run without a real Raspberry Pi.
package gpiotest

import (
	"fmt"
	"sync"

	"github.com/shedsolar/shedsolar/internal/conn/gpio"
)

// Pin implements gpio.PinIO.
//
// Modify its members, or call Set, to simulate hardware events such as the
// SSR sense relay changing state independently of the commanded drive line.
type Pin struct {
	N   string // Should be immutable.
	Num int    // Should be immutable.

	mu sync.Mutex
	l  gpio.Level
	p  gpio.Pull
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return fmt.Sprintf("%s(%d)", p.N, p.Num)
}

// Halt implements conn.Resource. It has no effect.
func (p *Pin) Halt() error {
	return nil
}

// Name implements gpio.Pin.
func (p *Pin) Name() string {
	return p.N
}

// Number implements gpio.Pin.
func (p *Pin) Number() int {
	return p.Num
}

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.p = pull
	switch pull {
	case gpio.Down:
		p.l = gpio.Low
	case gpio.Up:
		p.l = gpio.High
	}
	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() (gpio.Level, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.l, nil
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.l = l
	return nil
}

// Pull returns the pull resistor configured by the last call to In.
func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.p
}

// Set simulates an external actor (like the SSR's sense relay) driving the
// pin to l, independently of whatever Out last requested.
func (p *Pin) Set(l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.l = l
}

var _ gpio.PinIO = &Pin{}
