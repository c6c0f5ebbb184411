// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package max31855 decodes the 32-bit SPI frame produced by a Maxim
// MAX31855 thermocouple-to-digital converter into a Sample, following the
// same conn.Conn-backed layering periph.io's devices/bmxx80 driver uses
// for its I2C/SPI reads.
//
// https://datasheets.maximintegrated.com/en/ds/MAX31855.pdf
package max31855

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/shedsolar/shedsolar/internal/conn/spi"
)

// Fault classifies why a Sample's ThermoC is not usable.
type Fault uint8

// Possible fault values, per the MAX31855 fault register and the driver's
// own bus-health check.
const (
	// FaultOK means the reading is usable.
	FaultOK Fault = iota
	// FaultOpen means the thermocouple input is open circuit.
	FaultOpen
	// FaultShortGND means the thermocouple is shorted to GND.
	FaultShortGND
	// FaultShortVCC means the thermocouple is shorted to VCC.
	FaultShortVCC
	// FaultIOError means the SPI transaction itself failed, or returned an
	// all-zero frame with no fault bit set, which only happens when the bus
	// is stuck low.
	FaultIOError
)

func (f Fault) String() string {
	switch f {
	case FaultOK:
		return "ok"
	case FaultOpen:
		return "open"
	case FaultShortGND:
		return "short_gnd"
	case FaultShortVCC:
		return "short_vcc"
	case FaultIOError:
		return "io_error"
	default:
		return "unknown"
	}
}

// Sample is a single thermocouple read.
//
// If Fault is not FaultOK, ThermoC must not be used downstream, though it is
// still populated from the raw frame for diagnostics.
type Sample struct {
	ThermoC float32
	RefC    float32
	Fault   Fault
	TakenAt time.Time
}

// Dev is a MAX31855 wired on one SPI chip-select.
type Dev struct {
	c    spi.Conn
	name string
	now  func() time.Time
}

// New returns a Dev that reads frames over c. name identifies the channel
// (e.g. "battery", "heater") in errors and logs.
func New(c spi.Conn, name string) *Dev {
	return &Dev{c: c, name: name, now: time.Now}
}

// String identifies the device by its name and the wrapped Conn.
func (d *Dev) String() string {
	return fmt.Sprintf("max31855{%s, %s}", d.name, d.c)
}

// Read performs one SPI transaction and decodes the resulting frame.
//
// A non-nil error means the SPI transaction itself failed; the returned
// Sample still carries Fault == FaultIOError in that case so callers that
// only look at Sample.Fault, rather than the error, behave correctly.
func (d *Dev) Read() (Sample, error) {
	w := make([]byte, 4)
	r := make([]byte, 4)
	now := d.now()
	if err := d.c.Tx(w, r); err != nil {
		return Sample{Fault: FaultIOError, TakenAt: now}, fmt.Errorf("max31855: %s: %w", d.name, err)
	}
	s := decodeFrame(binary.BigEndian.Uint32(r))
	s.TakenAt = now
	return s, nil
}

// decodeFrame applies the datasheet bit layout to one 32-bit MAX31855 frame.
func decodeFrame(raw uint32) Sample {
	const faultBit = 1 << 16

	if raw&faultBit == 0 && raw == 0 {
		// Bus stuck low: neither the fault bit nor any data bit is set,
		// which a real sensor never produces on its own.
		return Sample{Fault: FaultIOError}
	}

	// Bits 31..18: 14-bit signed thermocouple reading, 0.25°C/LSB. Go's
	// arithmetic right shift on a signed int32 sign-extends for us.
	thermoC := float32(int32(raw)>>18) / 4

	// Bits 15..4: 12-bit signed reference-junction reading, 0.0625°C/LSB.
	refRaw := int32((raw >> 4) & 0xfff)
	if refRaw&0x800 != 0 {
		refRaw |= ^int32(0xfff)
	}
	refC := float32(refRaw) / 16

	fault := FaultOK
	if raw&faultBit != 0 {
		switch {
		case raw&0x1 != 0:
			fault = FaultOpen
		case raw&0x2 != 0:
			fault = FaultShortGND
		case raw&0x4 != 0:
			fault = FaultShortVCC
		default:
			// The fault bit is set but no specific cause bit is; treat
			// conservatively as an open circuit, the most common cause.
			fault = FaultOpen
		}
	}

	return Sample{ThermoC: thermoC, RefC: refC, Fault: fault}
}
