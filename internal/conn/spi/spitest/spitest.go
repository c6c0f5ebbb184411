// Copyright 2016 Google Inc. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spitest is meant to be used to test drivers over a fake SPI bus,
// the way periph.io's conn/spi/spitest backs devices/bmxx80's tests. The
// max31855 driver tests feed a recorded 32-bit frame through Playback and
// assert on the decoded Sample.
package spitest

import (
	"github.com/shedsolar/shedsolar/internal/conn/conntest"
	"github.com/shedsolar/shedsolar/internal/conn/spi"
	"github.com/shedsolar/shedsolar/internal/physic"
)

// Playback implements spi.Conn and plays back a recorded I/O flow.
type Playback struct {
	conntest.Playback
}

var _ spi.Conn = &Playback{}

// Port implements spi.Port around a Playback, for tests that exercise the
// Port.Connect path (e.g. core wiring) rather than handing the Conn to the
// driver directly.
type Port struct {
	Playback
}

// Connect implements spi.Port. The parameters are ignored; the embedded
// Playback is the resulting connection.
func (p *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	return &p.Playback, nil
}

// Close verifies that all the expected Ops have been consumed.
func (p *Port) Close() error {
	return p.Playback.Close()
}

var _ spi.PortCloser = &Port{}
