// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package light implements the three-source daylight classifier: panel
// power, pyrometer, and almanac, ranked in that order, each with its
// own precondition for being trusted, plus a hysteresis counter so a single
// noisy tick can't flip the mode.
package light

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/shedsolar/shedsolar/internal/collab"
	"github.com/shedsolar/shedsolar/internal/infoview"
)

// Mode is the detector's output.
type Mode int

// Possible Mode values.
const (
	Dark Mode = iota
	Light
)

func (m Mode) String() string {
	if m == Light {
		return "Light"
	}
	return "Dark"
}

// State is the published light InfoView's value.
type State struct {
	Mode  Mode
	Since time.Time
}

// Source identifies which of the three inputs decided the current reading,
// for logging and metrics.
type Source int

// Possible Source values.
const (
	SourceNone Source = iota
	SourcePanelPower
	SourcePyrometer
	SourceAlmanac
)

func (s Source) String() string {
	switch s {
	case SourcePanelPower:
		return "panel_power"
	case SourcePyrometer:
		return "pyrometer"
	case SourceAlmanac:
		return "almanac"
	default:
		return "none"
	}
}

// Config holds the detector's tunables.
type Config struct {
	Interval           time.Duration
	SOCThreshold       float64 // percent; below this, panel power is trusted
	PanelThresholdW    float64
	PyrometerThreshold float64 // W/m²
	LatitudeDeg        float64
	LongitudeDeg       float64
	ToLightDelay       int // ticks
	ToDarkDelay        int // ticks
}

// DefaultConfig returns the documented defaults. Latitude/longitude have
// no sane default and must be set by the caller from Config.
func DefaultConfig() Config {
	return Config{
		Interval:           60 * time.Second,
		SOCThreshold:       98,
		PanelThresholdW:    200,
		PyrometerThreshold: 200,
		ToLightDelay:       5,
		ToDarkDelay:        60,
	}
}

// Detector runs the ranked-source classification and hysteresis on each
// Tick.
type Detector struct {
	cfg     Config
	outback *infoview.View[collab.OutbackSnapshot]
	weather *infoview.View[collab.WeatherSnapshot]
	out     *infoview.View[State]
	log     zerolog.Logger
	now     func() time.Time

	mode        Mode
	since       time.Time
	ticksBright int
	ticksDark   int
}

// New builds a Detector in its initial Dark state.
func New(cfg Config, outback *infoview.View[collab.OutbackSnapshot], weather *infoview.View[collab.WeatherSnapshot], out *infoview.View[State], log zerolog.Logger) *Detector {
	d := &Detector{
		cfg:     cfg,
		outback: outback,
		weather: weather,
		out:     out,
		log:     log,
		now:     time.Now,
		mode:    Dark,
	}
	d.since = d.now()
	d.out.Set(State{Mode: Dark, Since: d.since})
	return d
}

// SetClock overrides the clock used for almanac math and the Since stamp,
// for tests.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// Tick re-evaluates the light source hierarchy and steps the hysteresis
// counters, publishing a new State only when the mode actually changes.
func (d *Detector) Tick() {
	bright, source := d.classify()

	if bright {
		d.ticksBright++
		d.ticksDark = 0
	} else {
		d.ticksDark++
		d.ticksBright = 0
	}

	switch d.mode {
	case Dark:
		if d.ticksBright >= d.cfg.ToLightDelay {
			d.transition(Light)
		}
	case Light:
		if d.ticksDark >= d.cfg.ToDarkDelay {
			d.transition(Dark)
		}
	}

	d.log.Debug().
		Bool("bright", bright).
		Stringer("source", source).
		Stringer("mode", d.mode).
		Msg("light tick")
}

func (d *Detector) transition(m Mode) {
	d.mode = m
	d.since = d.now()
	d.out.Set(State{Mode: m, Since: d.since})
}

// classify picks the first source whose precondition holds, in ranked
// order: panel power, then pyrometer, then almanac.
func (d *Detector) classify() (bright bool, source Source) {
	if ob := d.outback.Get(); ob.Live && ob.Value.SOCPercent < d.cfg.SOCThreshold {
		return ob.Value.PVPowerW() > d.cfg.PanelThresholdW, SourcePanelPower
	}
	if w := d.weather.Get(); w.Live {
		return w.Value.IrradianceWM2 > d.cfg.PyrometerThreshold, SourcePyrometer
	}
	return d.almanacBright(d.now()), SourceAlmanac
}

// almanacBright computes whether t falls between local sunrise and sunset at
// the configured latitude/longitude, using the standard NOAA solar-position
// approximation. No library in the retrieved pack computes sunrise/sunset
// (see DESIGN.md), so this is the one piece of the light detector built
// directly on math/time.
func (d *Detector) almanacBright(t time.Time) bool {
	sunrise, sunset, ok := sunriseSunset(t, d.cfg.LatitudeDeg, d.cfg.LongitudeDeg)
	if !ok {
		// Polar day/night: fall back to whichever is more plausible for the
		// computed solar elevation rather than leaving the heater blind.
		return solarElevation(t, d.cfg.LatitudeDeg, d.cfg.LongitudeDeg) > 0
	}
	return !t.Before(sunrise) && t.Before(sunset)
}

// sunriseSunset returns the local sunrise/sunset instants on the same
// calendar day as t. ok is false for latitudes currently in continuous
// day or night.
func sunriseSunset(t time.Time, latDeg, lonDeg float64) (sunrise, sunset time.Time, ok bool) {
	const degToRad = math.Pi / 180
	lat := latDeg * degToRad

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	n := float64(dayStart.YearDay())

	// Fractional year, radians (NOAA simplified solar calc).
	gamma := 2 * math.Pi / 365 * (n - 1)

	eqTime := 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
	decl := 0.006918 - 0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	cosH := (math.Cos(90.833*degToRad) / (math.Cos(lat) * math.Cos(decl))) - math.Tan(lat)*math.Tan(decl)
	if cosH > 1 || cosH < -1 {
		return time.Time{}, time.Time{}, false
	}
	haDeg := math.Acos(cosH) / degToRad

	_, offsetSec := t.Zone()
	tzOffsetMin := float64(offsetSec) / 60

	sunriseMin := 720 - 4*(lonDeg+haDeg) - eqTime + tzOffsetMin
	sunsetMin := 720 - 4*(lonDeg-haDeg) - eqTime + tzOffsetMin

	sunrise = dayStart.Add(time.Duration(sunriseMin * float64(time.Minute)))
	sunset = dayStart.Add(time.Duration(sunsetMin * float64(time.Minute)))
	return sunrise, sunset, true
}

// solarElevation gives a coarse sign-only estimate of whether the sun is
// above the horizon, used only in the polar day/night fallback.
func solarElevation(t time.Time, latDeg, lonDeg float64) float64 {
	const degToRad = math.Pi / 180
	lat := latDeg * degToRad
	dayStart := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	n := float64(dayStart.YearDay())
	gamma := 2 * math.Pi / 365 * (n - 1)
	decl := 0.006918 - 0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma)
	hourAngle := (t.Sub(dayStart).Hours() - 12) * 15 * degToRad
	sinElev := math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Cos(hourAngle)
	return sinElev
}
