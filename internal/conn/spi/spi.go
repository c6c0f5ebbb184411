// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spi defines the SPI protocol, trimmed from periph.io's conn/spi to
// the single mode ShedSolar drives a MAX31855 with: full-duplex, MSB first,
// Mode0, one chip-select per thermocouple.
//
// As in periph.io, 'Port' is the uninitialized bus+CS pair; Port.Connect()
// turns it into a Conn that can Tx.
package spi

import (
	"github.com/shedsolar/shedsolar/internal/conn"
	"github.com/shedsolar/shedsolar/internal/physic"
)

// Mode determines how communication is done.
type Mode int

// Mode0 is the only mode the MAX31855 supports: CPOL=0, CPHA=0, clock idle
// low, data sampled on the rising edge.
const Mode0 Mode = 0

func (m Mode) String() string {
	if m == Mode0 {
		return "Mode0"
	}
	return "ModeInvalid"
}

// Conn is an SPI connection, already configured for a specific chip-select.
type Conn interface {
	conn.Conn
}

// Port is an SPI port that can be converted into a Conn by calling Connect.
type Port interface {
	// Connect sets the communication parameters and returns a ready-to-use
	// Conn. It must be called exactly once.
	Connect(f physic.Frequency, mode Mode, bits int) (Conn, error)
}

// PortCloser is a Port that can be closed, for the real devfs-backed
// implementation (internal/host/sysfs).
type PortCloser interface {
	Port
	Close() error
}
