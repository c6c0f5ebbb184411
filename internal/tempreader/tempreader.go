// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tempreader is the periodic task that samples both thermocouples,
// runs each through its own noisefilter.Filter, and publishes the results as
// infoview.Views for the heater supervisor and light detector to consume.
package tempreader

import (
	"github.com/rs/zerolog"

	"github.com/shedsolar/shedsolar/internal/infoview"
	"github.com/shedsolar/shedsolar/internal/max31855"
	"github.com/shedsolar/shedsolar/internal/noisefilter"
)

// Status is published alongside a temperature View whenever a channel's
// fault state changes; FaultOK means the published temperature is being
// refreshed, anything else explains why it has gone stale.
type Status struct {
	Fault max31855.Fault
}

// Views is the InfoView surface tempreader publishes.
type Views struct {
	BatteryTemperature       *infoview.View[float64]
	BatteryTemperatureStatus *infoview.View[Status]
	HeaterTemperature        *infoview.View[float64]
	HeaterTemperatureStatus  *infoview.View[Status]
	AmbientTemperature       *infoview.View[float64]
}

type channel struct {
	name    string
	dev     *max31855.Dev
	filter  *noisefilter.Filter
	temp    *infoview.View[float64]
	status  *infoview.View[Status]
	lastRef float64
	haveRef bool
}

// Reader is the tempreader periodic task.
type Reader struct {
	battery channel
	heater  channel
	ambient *infoview.View[float64]
	log     zerolog.Logger
}

// New builds a Reader. batteryDev and heaterDev are the two MAX31855
// drivers; filterCfg configures both channels' noisefilter.Filter
// identically.
func New(batteryDev, heaterDev *max31855.Dev, filterCfg noisefilter.Config, views Views, log zerolog.Logger) *Reader {
	return &Reader{
		battery: channel{
			name:   "battery",
			dev:    batteryDev,
			filter: noisefilter.New(filterCfg),
			temp:   views.BatteryTemperature,
			status: views.BatteryTemperatureStatus,
		},
		heater: channel{
			name:   "heater",
			dev:    heaterDev,
			filter: noisefilter.New(filterCfg),
			temp:   views.HeaterTemperature,
			status: views.HeaterTemperatureStatus,
		},
		ambient: views.AmbientTemperature,
		log:     log,
	}
}

// Tick reads both thermocouples once and republishes their Views. It never
// returns an error: every fault kind it can observe is transient, and the
// next tick naturally retries.
func (r *Reader) Tick() {
	r.sample(&r.battery)
	r.sample(&r.heater)
	r.publishAmbient()
}

func (r *Reader) sample(c *channel) {
	s, err := c.dev.Read()
	if err != nil {
		r.log.Warn().Err(err).Str("channel", c.name).Msg("thermocouple read failed")
	}

	if s.Fault != max31855.FaultIOError {
		c.lastRef = float64(s.RefC)
		c.haveRef = true
	}

	if s.Fault == max31855.FaultOK {
		c.filter.Push(float64(s.ThermoC))
		if v, ok := c.filter.Value(); ok {
			c.temp.Set(v)
		}
		c.status.Set(Status{Fault: max31855.FaultOK})
		return
	}

	r.log.Warn().Str("channel", c.name).Stringer("fault", s.Fault).Msg("thermocouple fault")
	c.status.Set(Status{Fault: s.Fault})
}

func (r *Reader) publishAmbient() {
	switch {
	case r.battery.haveRef && r.heater.haveRef:
		r.ambient.Set((r.battery.lastRef + r.heater.lastRef) / 2)
	case r.battery.haveRef:
		r.ambient.Set(r.battery.lastRef)
	case r.heater.haveRef:
		r.ambient.Set(r.heater.lastRef)
	}
}
