// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports ShedSolar's InfoViews as Prometheus gauges and
// counters, grounded on the promauto/promhttp pattern the automatedhome
// solar controller uses for its own circuit metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/cskr/pubsub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/shedsolar/shedsolar/internal/heater"
	"github.com/shedsolar/shedsolar/internal/infoview"
	"github.com/shedsolar/shedsolar/internal/light"
)

var (
	batteryTemperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_battery_temperature_celsius",
		Help: "Last known battery bank temperature.",
	})
	heaterTemperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_heater_temperature_celsius",
		Help: "Last known heater output air temperature.",
	})
	ambientTemperature = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_ambient_temperature_celsius",
		Help: "Last known cold-junction-derived ambient temperature.",
	})
	lightMode = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_light_mode",
		Help: "1 if the shed is judged to be in daylight, 0 otherwise.",
	})
	heaterOn = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_heater_on",
		Help: "1 if the SSR is currently commanded on, 0 otherwise.",
	})
	heaterOnSecondsThisMinute = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_heater_on_seconds_this_minute",
		Help: "Cumulative seconds the SSR has been commanded on during the current minute.",
	})
	heaterStartAttemptsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shedsolar_heater_start_attempts_total",
		Help: "Monotonically increasing count of heater start-confirmation attempts.",
	})
	ssrFaultTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shedsolar_ssr_fault_total",
		Help: "Count of latched SSR commanded/observed mismatches.",
	})
	heaterFailureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shedsolar_heater_failure_total",
		Help: "Count of latched heater Failed/StuckOn terminal states.",
	})
)

// Registry drains InfoView Change events off a pubsub bus and mirrors them
// onto the package's Prometheus collectors.
type Registry struct {
	bus *pubsub.PubSub
	sub chan any
	log zerolog.Logger
}

// New subscribes to bus's changes topic. bus must be the same *pubsub.PubSub
// passed to every infoview.New call the caller wants reflected in metrics.
func New(bus *pubsub.PubSub, log zerolog.Logger) *Registry {
	return &Registry{
		bus: bus,
		sub: bus.Sub(infoview.ChangesTopic),
		log: log.With().Str("component", "metrics").Logger(),
	}
}

// Run drains Change events until ctx is canceled.
func (r *Registry) Run(ctx context.Context) {
	defer r.bus.Unsub(r.sub)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.sub:
			if !ok {
				return
			}
			c, ok := msg.(infoview.Change)
			if !ok {
				continue
			}
			r.apply(c)
		}
	}
}

func (r *Registry) apply(c infoview.Change) {
	switch c.Name {
	case "battery_temperature":
		if v, ok := c.New.(float64); ok {
			batteryTemperature.Set(v)
		}
	case "heater_temperature":
		if v, ok := c.New.(float64); ok {
			heaterTemperature.Set(v)
		}
	case "ambient_temperature":
		if v, ok := c.New.(float64); ok {
			ambientTemperature.Set(v)
		}
	case "light_mode":
		if v, ok := c.New.(light.State); ok {
			if v.Mode == light.Light {
				lightMode.Set(1)
			} else {
				lightMode.Set(0)
			}
		}
	case "heater_on":
		if v, ok := c.New.(bool); ok {
			if v {
				heaterOn.Set(1)
			} else {
				heaterOn.Set(0)
			}
		}
	case "heater_on_seconds_this_minute":
		if v, ok := c.New.(float64); ok {
			heaterOnSecondsThisMinute.Set(v)
		}
	case "heater_start_attempts_total":
		if v, ok := c.New.(int); ok {
			heaterStartAttemptsTotal.Set(float64(v))
		}
	case "ssr_fault":
		if _, ok := c.New.(heater.SSRFault); ok {
			ssrFaultTotal.Inc()
		}
	case "heater_failure":
		if _, ok := c.New.(heater.Failure); ok {
			heaterFailureTotal.Inc()
		}
	default:
		r.log.Debug().Str("name", c.Name).Msg("unhandled infoview change")
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
