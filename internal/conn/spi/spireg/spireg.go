// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spireg defines the SPI registry for ports discovered on the host,
// trimmed from periph.io's conn/spi/spireg to a flat name table for the two
// chip-selects ShedSolar uses (battery and heater thermocouples).
package spireg

import (
	"fmt"
	"sync"

	"github.com/shedsolar/shedsolar/internal/conn/spi"
)

// Opener opens a handle to a port. It is provided by the actual port driver,
// e.g. internal/host/sysfs.
type Opener func() (spi.PortCloser, error)

var (
	mu      sync.Mutex
	openers = map[string]Opener{}
)

// Register registers a named SPI port with the registry.
func Register(name string, o Opener) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		return fmt.Errorf("spireg: can't register a port with no name")
	}
	if _, ok := openers[name]; ok {
		return fmt.Errorf("spireg: port %q was already registered", name)
	}
	openers[name] = o
	return nil
}

// Open opens a SPI port by name.
func Open(name string) (spi.PortCloser, error) {
	mu.Lock()
	o, ok := openers[name]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("spireg: no SPI port registered as %q", name)
	}
	return o()
}
