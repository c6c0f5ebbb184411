// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpioreg defines a registry for the board's named digital pins,
// trimmed from periph.io's conn/gpio/gpioreg to a flat name table — ShedSolar
// targets exactly one board family (BCM283x-numbered headers, see
// internal/host/rpi) so there is no need for the alias/header-position
// resolution the original registry supports.
package gpioreg

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shedsolar/shedsolar/internal/conn/gpio"
)

var (
	mu     sync.Mutex
	byName = map[string]gpio.PinIO{}
)

// Register registers a pin by its canonical name. It is called once at
// startup by the host driver (internal/host/rpi) for each pin the board
// exposes.
//
// Registering the same name twice is an error, the same way periph.io's
// registry refuses silent shadowing of hardware pins.
func Register(name string, p gpio.PinIO) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		return fmt.Errorf("gpioreg: can't register a pin with no name")
	}
	if _, ok := byName[name]; ok {
		return fmt.Errorf("gpioreg: pin %q was already registered", name)
	}
	byName[name] = p
	return nil
}

// ByName returns the pin registered under name, or nil if not found.
func ByName(name string) gpio.PinIO {
	mu.Lock()
	defer mu.Unlock()
	return byName[name]
}

// All returns every registered pin, sorted by name, mostly for diagnostics
// (periph-info style tooling).
func All() []gpio.PinIO {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]gpio.PinIO, len(names))
	for i, n := range names {
		out[i] = byName[n]
	}
	return out
}
