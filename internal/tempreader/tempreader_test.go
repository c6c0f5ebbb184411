// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempreader

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shedsolar/shedsolar/internal/conn/conntest"
	"github.com/shedsolar/shedsolar/internal/conn/spi/spitest"
	"github.com/shedsolar/shedsolar/internal/infoview"
	"github.com/shedsolar/shedsolar/internal/max31855"
	"github.com/shedsolar/shedsolar/internal/noisefilter"
)

func frame(thermoC, refC float32, faultBits uint32) []byte {
	tcRaw := uint32(int32(thermoC*4)) & 0x3fff
	refRaw := uint32(int32(refC*16)) & 0xfff
	raw := (tcRaw << 18) | (refRaw << 4) | faultBits
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, raw)
	return buf
}

func fakeDev(t *testing.T, name string, frames ...[]byte) *max31855.Dev {
	t.Helper()
	ops := make([]conntest.IO, len(frames))
	for i, f := range frames {
		ops[i] = conntest.IO{Write: []byte{0, 0, 0, 0}, Read: f}
	}
	p := &spitest.Playback{Playback: conntest.Playback{Ops: ops}}
	return max31855.New(p, name)
}

func newViews() Views {
	return Views{
		BatteryTemperature:       infoview.New[float64]("battery_temperature", 2*time.Minute, nil),
		BatteryTemperatureStatus: infoview.New[Status]("battery_status", 2*time.Minute, nil),
		HeaterTemperature:        infoview.New[float64]("heater_temperature", 2*time.Minute, nil),
		HeaterTemperatureStatus:  infoview.New[Status]("heater_status", 2*time.Minute, nil),
		AmbientTemperature:       infoview.New[float64]("ambient_temperature", 2*time.Minute, nil),
	}
}

func TestReader_PublishesOnOK(t *testing.T) {
	views := newViews()
	batt := fakeDev(t, "battery", frame(10, 21, 0), frame(10.1, 21, 0))
	heat := fakeDev(t, "heater", frame(20, 22, 0), frame(20.1, 22, 0))
	r := New(batt, heat, noisefilter.DefaultConfig(), views, zerolog.Nop())

	r.Tick()
	r.Tick()

	bt := views.BatteryTemperature.Get()
	require.True(t, bt.HasValue)
	assert.InDelta(t, 10.05, bt.Value, 0.2)

	amb := views.AmbientTemperature.Get()
	require.True(t, amb.HasValue)
	assert.InDelta(t, 21.5, amb.Value, 0.2)
}

func TestReader_FaultLeavesTemperatureStale(t *testing.T) {
	views := newViews()
	batt := fakeDev(t, "battery", frame(10, 21, 1<<16|0x1))
	heat := fakeDev(t, "heater", frame(20, 22, 0))
	r := New(batt, heat, noisefilter.DefaultConfig(), views, zerolog.Nop())

	r.Tick()

	bt := views.BatteryTemperature.Get()
	assert.False(t, bt.HasValue, "a faulted channel must not publish a temperature")

	status := views.BatteryTemperatureStatus.Get()
	require.True(t, status.HasValue)
	assert.Equal(t, max31855.FaultOpen, status.Value.Fault)

	// The cold-junction reference is still usable even though the
	// thermocouple itself is open, so ambient still gets a value.
	amb := views.AmbientTemperature.Get()
	require.True(t, amb.HasValue)
	assert.InDelta(t, 21.5, amb.Value, 0.01)
}

func TestReader_IOErrorSuppressesAmbientForThatChannel(t *testing.T) {
	views := newViews()
	batt := fakeDev(t, "battery", []byte{0, 0, 0, 0})
	heat := fakeDev(t, "heater", frame(20, 22, 0))
	r := New(batt, heat, noisefilter.DefaultConfig(), views, zerolog.Nop())

	r.Tick()

	amb := views.AmbientTemperature.Get()
	require.True(t, amb.HasValue)
	assert.InDelta(t, 22.0, amb.Value, 0.01, "only the heater channel's reference should count")
}
