// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sysfs implements ShedSolar's real hardware backends: an SPI port
// over /dev/spidev and a digital pin over the legacy /sys/class/gpio
// interface, trimmed from periph.io's host/sysfs. Both are cut down to
// exactly what a single MAX31855 chip-select and a handful of plain digital
// lines need: no half-duplex, no packet batching, no edge detection.
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/shedsolar/shedsolar/internal/conn"
	"github.com/shedsolar/shedsolar/internal/conn/spi"
	"github.com/shedsolar/shedsolar/internal/ioctl"
	"github.com/shedsolar/shedsolar/internal/physic"
)

const spiIOCMagic uint = 'k'

var (
	spiIOCMode        = ioctl.IOW(spiIOCMagic, 1, 1)
	spiIOCBitsPerWord = ioctl.IOW(spiIOCMagic, 3, 1)
	spiIOCMaxSpeedHz  = ioctl.IOW(spiIOCMagic, 4, 4)
)

func spiIOCTx(l int) uint {
	return ioctl.IOW(spiIOCMagic, 0, uint(l)*32)
}

// spiIOCTransfer mirrors struct spi_ioc_transfer in linux/spi/spidev.h.
type spiIOCTransfer struct {
	tx          uint64
	rx          uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNBits     uint8
	rxNBits     uint8
	pad         uint16
}

// SPI is an SPI port opened over /dev/spidevB.C.
type SPI struct {
	name string
	f    *ioctl.File

	mu        sync.Mutex
	connected bool
}

// NewSPI opens /dev/spidev<busNumber>.<chipSelect>.
func NewSPI(busNumber, chipSelect int) (*SPI, error) {
	path := fmt.Sprintf("/dev/spidev%d.%d", busNumber, chipSelect)
	f, err := ioctl.Open(path, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("sysfs-spi: %w", err)
	}
	return &SPI{name: path, f: f}, nil
}

// String implements conn.Resource.
func (s *SPI) String() string { return s.name }

// Halt implements conn.Resource. It has no effect; there is no continuous
// operation to stop on a SPI port.
func (s *SPI) Halt() error { return nil }

// Close releases the device node.
func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Connect implements spi.Port. ShedSolar only ever uses Mode0, full duplex,
// 8 bits per word, so those are the only parameters validated.
func (s *SPI) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if mode != spi.Mode0 {
		return nil, fmt.Errorf("sysfs-spi: unsupported mode %s", mode)
	}
	if bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("sysfs-spi: invalid bits %d", bits)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil, errors.New("sysfs-spi: Connect() can only be called once")
	}
	s.connected = true

	var mode8 uint8
	if err := s.f.Ioctl(spiIOCMode, uintptr(unsafe.Pointer(&mode8))); err != nil {
		return nil, fmt.Errorf("sysfs-spi: setting mode: %w", err)
	}
	bpw := uint8(bits)
	if err := s.f.Ioctl(spiIOCBitsPerWord, uintptr(unsafe.Pointer(&bpw))); err != nil {
		return nil, fmt.Errorf("sysfs-spi: setting bits per word: %w", err)
	}
	hz := uint32((f + 500*physic.MilliHertz) / physic.Hertz)
	if err := s.f.Ioctl(spiIOCMaxSpeedHz, uintptr(unsafe.Pointer(&hz))); err != nil {
		return nil, fmt.Errorf("sysfs-spi: setting max speed: %w", err)
	}
	return &spiConn{name: s.name, f: s.f, hz: hz, bpw: bpw}, nil
}

var _ spi.PortCloser = &SPI{}

type spiConn struct {
	name string
	f    *ioctl.File
	hz   uint32
	bpw  uint8

	mu sync.Mutex
}

// String implements conn.Resource.
func (c *spiConn) String() string { return c.name }

// Halt implements conn.Resource. It has no effect.
func (c *spiConn) Halt() error { return nil }

// Duplex implements conn.Conn.
func (c *spiConn) Duplex() conn.Duplex { return conn.Full }

// Tx performs one full-duplex SPI transaction, the only primitive ShedSolar
// needs: 4 bytes out (don't-care), 4 bytes back, for a MAX31855 read.
func (c *spiConn) Tx(w, r []byte) error {
	l := len(w)
	if l == 0 {
		l = len(r)
	}
	if l == 0 {
		return errors.New("sysfs-spi: Tx() with empty buffers")
	}
	if len(w) != 0 && len(r) != 0 && len(w) != len(r) {
		return fmt.Errorf("sysfs-spi: Tx(): w and r must be the same length; got %d and %d", len(w), len(r))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var xfer spiIOCTransfer
	if len(w) != 0 {
		xfer.tx = uint64(uintptr(unsafe.Pointer(&w[0])))
	}
	if len(r) != 0 {
		xfer.rx = uint64(uintptr(unsafe.Pointer(&r[0])))
	}
	xfer.length = uint32(l)
	xfer.speedHz = c.hz
	xfer.bitsPerWord = c.bpw

	if err := c.f.Ioctl(spiIOCTx(1), uintptr(unsafe.Pointer(&xfer))); err != nil {
		return fmt.Errorf("sysfs-spi: Tx() failed: %w", err)
	}
	return nil
}

var _ spi.Conn = &spiConn{}
