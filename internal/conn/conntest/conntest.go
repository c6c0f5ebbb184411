// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package conntest implements a conn.Conn fake, trimmed from periph.io's
// conn/conntest to the one shape ShedSolar's driver tests need: Playback, to
// feed a recorded SPI frame back to the max31855 driver under test.
package conntest

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/shedsolar/shedsolar/internal/conn"
)

// IO registers one expected write/read pair.
type IO struct {
	Write []byte
	Read  []byte
}

// Playback implements conn.Conn and plays back a recorded I/O flow.
//
// While "replay" type unit tests are of limited value on their own, they are
// an easy way to pin the exact bytes a MAX31855 frame decodes to.
type Playback struct {
	sync.Mutex
	Ops   []IO
	D     conn.Duplex
	Count int
}

func (p *Playback) String() string {
	return "playback"
}

// Halt implements conn.Resource. It has no effect.
func (p *Playback) Halt() error {
	return nil
}

// Close verifies that all the expected Ops have been consumed.
func (p *Playback) Close() error {
	p.Lock()
	defer p.Unlock()
	if len(p.Ops) != p.Count {
		return fmt.Errorf("conntest: expected playback to be empty: I/O count %d; expected %d", p.Count, len(p.Ops))
	}
	return nil
}

// Tx implements conn.Conn.
func (p *Playback) Tx(w, r []byte) error {
	p.Lock()
	defer p.Unlock()
	if len(p.Ops) <= p.Count {
		return fmt.Errorf("conntest: unexpected Tx() (count #%d)", p.Count)
	}
	if !bytes.Equal(p.Ops[p.Count].Write, w) {
		return fmt.Errorf("conntest: unexpected write (count #%d) %#v != %#v", p.Count, w, p.Ops[p.Count].Write)
	}
	if len(p.Ops[p.Count].Read) != len(r) {
		return fmt.Errorf("conntest: unexpected read buffer length (count #%d) %d != %d", p.Count, len(r), len(p.Ops[p.Count].Read))
	}
	copy(r, p.Ops[p.Count].Read)
	p.Count++
	return nil
}

// Duplex implements conn.Conn.
func (p *Playback) Duplex() conn.Duplex {
	p.Lock()
	defer p.Unlock()
	return p.D
}

var _ conn.Conn = &Playback{}
