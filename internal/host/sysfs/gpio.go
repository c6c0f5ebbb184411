// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/shedsolar/shedsolar/internal/conn/gpio"
	"github.com/shedsolar/shedsolar/internal/ioctl"
)

const gpioRoot = "/sys/class/gpio"

// Pin is a digital line exported over /sys/class/gpio/gpioN. It implements
// gpio.PinIO: whichever of In/Out is called first decides the direction,
// same as every other pin on the board.
type Pin struct {
	number int
	name   string
	root   string

	mu         sync.Mutex
	err        error
	direction  direction
	fDirection *ioctl.File
	fValue     *ioctl.File
	buf        [4]byte
}

type direction int

const (
	dUnknown direction = iota
	dIn
	dOut
)

// NewPin returns a Pin for the given BCM/SoC line number. The pin is not
// exported until the first In() or Out() call.
func NewPin(number int, name string) *Pin {
	return &Pin{
		number: number,
		name:   name,
		root:   fmt.Sprintf("%s/gpio%d/", gpioRoot, number),
	}
}

// String implements conn.Resource.
func (p *Pin) String() string { return p.name }

// Halt implements conn.Resource. There is no continuous operation to stop;
// this board polls every pin rather than waiting on edges.
func (p *Pin) Halt() error { return nil }

// Name implements gpio.Pin.
func (p *Pin) Name() string { return p.name }

// Number implements gpio.Pin.
func (p *Pin) Number() int { return p.number }

// In implements gpio.PinIn. pull is accepted for interface compatibility but
// ignored: legacy sysfs gpio has no way to drive an internal pull resistor,
// so pull-up/pull-down wiring on the sense line has to be external.
func (p *Pin) In(pull gpio.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.direction == dIn {
		return nil
	}
	if err := p.open(); err != nil {
		return p.wrap(err)
	}
	if err := p.seekWrite(p.fDirection, bIn); err != nil {
		return p.wrap(err)
	}
	p.direction = dIn
	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() (gpio.Level, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fValue == nil {
		return gpio.Low, p.wrap(fmt.Errorf("pin not open"))
	}
	if _, err := p.seekRead(p.fValue, p.buf[:]); err != nil {
		return gpio.Low, p.wrap(err)
	}
	return p.buf[0] == '1', nil
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.direction != dOut {
		if err := p.open(); err != nil {
			return p.wrap(err)
		}
		// Writing "low"/"high" to direction sets the pin as an output with
		// that initial value in one step, avoiding a glitch on the line.
		d := bLow
		if l {
			d = bHigh
		}
		if err := p.seekWrite(p.fDirection, d); err != nil {
			return p.wrap(err)
		}
		p.direction = dOut
		return nil
	}
	v := []byte{'0'}
	if l {
		v[0] = '1'
	}
	return p.wrap(p.seekWrite(p.fValue, v))
}

// open exports the pin if needed and opens its value/direction files. mu
// must be held.
func (p *Pin) open() error {
	if p.fDirection != nil || p.err != nil {
		return p.err
	}

	if p.fValue, p.err = ioctl.Open(p.root+"value", os.O_RDWR); p.err != nil {
		if !os.IsNotExist(p.err) {
			return p.err
		}
		exportFile, err := ioctl.Open(gpioRoot+"/export", os.O_WRONLY)
		if err != nil {
			p.err = err
			return p.err
		}
		_, werr := exportFile.Write([]byte(strconv.Itoa(p.number)))
		exportFile.Close()
		if werr != nil && !isErrBusy(werr) {
			p.err = werr
			return p.err
		}

		// The udev rule that relaxes the permissions on the newly created
		// value file runs asynchronously; poll for it briefly rather than
		// failing the first attempt.
		for start := time.Now(); time.Since(start) < 5*time.Second; {
			if p.fValue, p.err = ioctl.Open(p.root+"value", os.O_RDWR); p.err == nil || !os.IsPermission(p.err) {
				break
			}
		}
		if p.err != nil {
			return p.err
		}
	}

	if p.fDirection, p.err = ioctl.Open(p.root+"direction", os.O_RDWR); p.err != nil {
		p.fValue.Close()
		p.fValue = nil
	}
	return p.err
}

func (p *Pin) seekRead(f *ioctl.File, b []byte) (int, error) {
	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		return 0, err
	}
	return f.Read(b)
}

func (p *Pin) seekWrite(f *ioctl.File, b []byte) error {
	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

func (p *Pin) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("sysfs-gpio(%s): %w", p.name, err)
}

var (
	bIn   = []byte("in")
	bLow  = []byte("low")
	bHigh = []byte("high")
)

func isErrBusy(err error) bool {
	e, ok := err.(*os.PathError)
	return ok && e.Err == syscall.EBUSY
}

var _ gpio.PinIO = &Pin{}
