// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package core wires ShedSolar's components into one running process: an
// explicit New(cfg, hw, log) builds a value-typed *Core (there is no
// package-level singleton to reach for), and Run's deferred shutdown drives
// the SSR and the battery and heater LEDs to their off level on every exit
// path, panics included. GPIO lines are not unexported or released.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/cskr/pubsub"
	"github.com/rs/zerolog"

	"github.com/shedsolar/shedsolar/internal/collab"
	"github.com/shedsolar/shedsolar/internal/config"
	"github.com/shedsolar/shedsolar/internal/conn/gpio"
	"github.com/shedsolar/shedsolar/internal/conn/spi"
	"github.com/shedsolar/shedsolar/internal/heater"
	"github.com/shedsolar/shedsolar/internal/infoview"
	"github.com/shedsolar/shedsolar/internal/light"
	"github.com/shedsolar/shedsolar/internal/max31855"
	"github.com/shedsolar/shedsolar/internal/metrics"
	"github.com/shedsolar/shedsolar/internal/physic"
	"github.com/shedsolar/shedsolar/internal/scheduler"
	"github.com/shedsolar/shedsolar/internal/tempreader"
)

// staleWindow is the InfoView liveness threshold, shared by every
// sensor-derived view.
const staleWindow = 2 * time.Minute

// HW is the board-specific handles Core needs: two SPI ports (one per
// thermocouple) and the four digital pins the supervisor drives or reads.
// cmd/shedsolar builds this from internal/host/rpi's registry; tests build
// it from spitest/gpiotest/conntest fakes.
type HW struct {
	BatterySPI spi.Port
	HeaterSPI  spi.Port

	SSRDrive   gpio.PinOut
	SSRSense   gpio.PinIn
	HeaterLED  gpio.PinOut
	BatteryLED gpio.PinOut

	// Outback and Weather are optional; a nil producer simply never
	// publishes to its InfoView, leaving it permanently stale.
	Outback collab.OutbackProducer
	Weather collab.WeatherProducer
}

// Core holds every wired component plus the InfoView surface a caller (or
// test) may want to observe directly.
type Core struct {
	cfg config.Config
	hw  HW
	log zerolog.Logger
	bus *pubsub.PubSub

	Views struct {
		BatteryTemperature        *infoview.View[float64]
		BatteryTemperatureStatus  *infoview.View[tempreader.Status]
		HeaterTemperature         *infoview.View[float64]
		HeaterTemperatureStatus   *infoview.View[tempreader.Status]
		AmbientTemperature        *infoview.View[float64]
		Outback                   *infoview.View[collab.OutbackSnapshot]
		Weather                   *infoview.View[collab.WeatherSnapshot]
		Light                     *infoview.View[light.State]
		HeaterOn                  *infoview.View[bool]
		HeaterOnSecondsThisMinute *infoview.View[float64]
		SSRFault                  *infoview.View[heater.SSRFault]
		Failure                   *infoview.View[heater.Failure]
		HeaterStartAttemptsTotal  *infoview.View[int]
	}

	reader     *tempreader.Reader
	supervisor *heater.Supervisor
	detector   *light.Detector
	metrics    *metrics.Registry
	sched      *scheduler.Scheduler
}

// New connects both SPI ports, builds every InfoView and component, and
// assembles the fixed-interval scheduler. It does not start anything; call
// Run to do that.
func New(cfg config.Config, hw HW, log zerolog.Logger) (*Core, error) {
	c := &Core{cfg: cfg, hw: hw, log: log, bus: pubsub.New(64)}

	c.Views.BatteryTemperature = infoview.New[float64]("battery_temperature", staleWindow, c.bus)
	c.Views.BatteryTemperatureStatus = infoview.New[tempreader.Status]("battery_temperature_status", staleWindow, c.bus)
	c.Views.HeaterTemperature = infoview.New[float64]("heater_temperature", staleWindow, c.bus)
	c.Views.HeaterTemperatureStatus = infoview.New[tempreader.Status]("heater_temperature_status", staleWindow, c.bus)
	c.Views.AmbientTemperature = infoview.New[float64]("ambient_temperature", staleWindow, c.bus)
	c.Views.Outback = infoview.New[collab.OutbackSnapshot]("outback", staleWindow, c.bus)
	c.Views.Weather = infoview.New[collab.WeatherSnapshot]("weather", staleWindow, c.bus)
	c.Views.Light = infoview.New[light.State]("light_mode", staleWindow, c.bus)
	c.Views.HeaterOn = infoview.New[bool]("heater_on", staleWindow, c.bus)
	c.Views.HeaterOnSecondsThisMinute = infoview.New[float64]("heater_on_seconds_this_minute", staleWindow, c.bus)
	c.Views.SSRFault = infoview.New[heater.SSRFault]("ssr_fault", staleWindow, c.bus)
	c.Views.Failure = infoview.New[heater.Failure]("heater_failure", staleWindow, c.bus)
	c.Views.HeaterStartAttemptsTotal = infoview.New[int]("heater_start_attempts_total", staleWindow, c.bus)

	batteryDev, err := newThermocouple(hw.BatterySPI, "battery")
	if err != nil {
		return nil, err
	}
	heaterDev, err := newThermocouple(hw.HeaterSPI, "heater")
	if err != nil {
		return nil, err
	}

	c.reader = tempreader.New(batteryDev, heaterDev, cfg.TempReader.Filter, tempreader.Views{
		BatteryTemperature:       c.Views.BatteryTemperature,
		BatteryTemperatureStatus: c.Views.BatteryTemperatureStatus,
		HeaterTemperature:        c.Views.HeaterTemperature,
		HeaterTemperatureStatus:  c.Views.HeaterTemperatureStatus,
		AmbientTemperature:       c.Views.AmbientTemperature,
	}, log)

	c.supervisor = heater.NewSupervisor(cfg.Heater.ToHeaterConfig(), heater.Deps{
		BatteryTemperature:        c.Views.BatteryTemperature,
		HeaterTemperature:         c.Views.HeaterTemperature,
		AmbientTemperature:        c.Views.AmbientTemperature,
		Weather:                   c.Views.Weather,
		Light:                     c.Views.Light,
		SSRDrive:                  hw.SSRDrive,
		SSRSense:                  hw.SSRSense,
		HeaterLED:                 hw.HeaterLED,
		BatteryLED:                hw.BatteryLED,
		HeaterOn:                  c.Views.HeaterOn,
		HeaterOnSecondsThisMinute: c.Views.HeaterOnSecondsThisMinute,
		SSRFault:                  c.Views.SSRFault,
		Failure:                   c.Views.Failure,
		HeaterStartAttemptsTotal:  c.Views.HeaterStartAttemptsTotal,
	}, log)

	c.detector = light.New(cfg.Light.ToLightConfig(), c.Views.Outback, c.Views.Weather, c.Views.Light, log)
	c.metrics = metrics.New(c.bus, log)

	c.sched = scheduler.New(log,
		scheduler.Task{Name: "tempreader", Interval: cfg.TempReader.NormalInterval, Run: func(context.Context) { c.reader.Tick() }},
		scheduler.Task{Name: "heater", Interval: cfg.Heater.TickInterval, Run: func(context.Context) { c.supervisor.Tick() }},
		scheduler.Task{Name: "light", Interval: cfg.Light.Interval, Run: func(context.Context) { c.detector.Tick() }},
	)

	return c, nil
}

func newThermocouple(port spi.Port, name string) (*max31855.Dev, error) {
	// 1MHz is comfortably inside the MAX31855's conversion rate and every
	// board this firmware targets; there is no tunable here because the
	// part has no other valid speed to pick.
	conn, err := port.Connect(1*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("core: connecting %s thermocouple: %w", name, err)
	}
	return max31855.New(conn, name), nil
}

// Run starts the scheduler and any configured collaborator producers, and
// blocks until ctx is canceled. On return, the SSR is de-energized and both
// status LEDs are turned off regardless of how Run exited, including a
// panic from a scheduled task's Run func escaping the scheduler's own
// recover (defense in depth: the scheduler already isolates panics per
// task, this is the belt for the whole process).
func (c *Core) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("core: panic: %v", r)
		}
		c.shutdown()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.hw.Outback != nil {
		go func() {
			if rerr := c.hw.Outback.Run(ctx, c.Views.Outback); rerr != nil && rerr != context.Canceled {
				c.log.Warn().Err(rerr).Msg("outback producer stopped")
			}
		}()
	}
	if c.hw.Weather != nil {
		go func() {
			if rerr := c.hw.Weather.Run(ctx, c.Views.Weather); rerr != nil && rerr != context.Canceled {
				c.log.Warn().Err(rerr).Msg("weather producer stopped")
			}
		}()
	}

	c.sched.Run(ctx)
	return nil
}

// shutdown de-energizes the SSR and turns off both status LEDs. It must
// never be skipped on any exit path, so Run defers it unconditionally.
func (c *Core) shutdown() {
	if c.hw.SSRDrive != nil {
		if err := c.hw.SSRDrive.Out(gpio.High); err != nil {
			c.log.Error().Err(err).Msg("failed to de-energize SSR on shutdown")
		}
	}
	if c.hw.HeaterLED != nil {
		_ = c.hw.HeaterLED.Out(gpio.High)
	}
	if c.hw.BatteryLED != nil {
		_ = c.hw.BatteryLED.Out(gpio.High)
	}
}

// MetricsRegistry exposes the Prometheus mirror for cmd/shedsolar to run
// alongside the scheduler.
func (c *Core) MetricsRegistry() *metrics.Registry { return c.metrics }
