// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package conn defines the interfaces shared by every bus-level connection
// (SPI, digital pin) in this firmware, following periph.io's conn/conn.go
// layering: a Resource can be queried for its name, and a Conn can transfer
// bytes. Splitting this out keeps spi.Conn and gpio.PinIO from each
// redeclaring the same Stringer contract.
package conn

import "fmt"

// Resource is the interface shared by all SPI ports and GPIO pins.
type Resource interface {
	fmt.Stringer
	// Halt stops a continuous operation, if any is in progress, and returns
	// the resource to an idle state.
	Halt() error
}

// Duplex declares whether communication can happen simultaneously both ways.
type Duplex int

const (
	// DuplexUnknown means the duplex of the connection is unknown.
	DuplexUnknown Duplex = 0
	// Half means the Conn is half-duplex: data is either transmitted one way
	// or the other, not both at the same time.
	Half Duplex = 1
	// Full means the Conn is full-duplex: data can simultaneously be sent and
	// received at the same time.
	Full Duplex = 2
)

func (d Duplex) String() string {
	switch d {
	case Half:
		return "Half"
	case Full:
		return "Full"
	default:
		return "Unknown"
	}
}

// Conn defines the interface for a connection on a point-to-point bus, such
// as one SPI chip-select line wired to a MAX31855.
type Conn interface {
	fmt.Stringer
	// Tx does a single transaction: writing the bytes in w and simultaneously
	// reading len(r) bytes into r. Either w or r may be empty.
	Tx(w, r []byte) error
	// Duplex returns the current duplex setting for this connection.
	Duplex() Duplex
}
