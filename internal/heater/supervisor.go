// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package heater

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/shedsolar/shedsolar/internal/collab"
	"github.com/shedsolar/shedsolar/internal/conn/gpio"
	"github.com/shedsolar/shedsolar/internal/infoview"
	"github.com/shedsolar/shedsolar/internal/light"
)

// LEDConfig tunes the heater-power LED's battery-temperature-driven duty
// cycle.
type LEDConfig struct {
	MinTemp       float64
	MaxTemp       float64
	Period        time.Duration
	ErrorInterval time.Duration
}

// DefaultLEDConfig returns the default LED tuning.
func DefaultLEDConfig() LEDConfig {
	return LEDConfig{MinTemp: 0, MaxTemp: 45, Period: 2 * time.Second, ErrorInterval: 400 * time.Millisecond}
}

// Config holds the supervisor's tunables. NewSupervisor builds every
// sub-controller from it; their confirmation Policies come from
// NormalPolicy, BatteryOnlyPolicy and HeaterOnlyInnerPolicy.
type Config struct {
	TickInterval time.Duration
	LightBand    Band
	DarkBand     Band
	SenseTimeout time.Duration
	LED          LEDConfig
	HeaterOnly   HeaterOnlyConfig
	NoTemps      NoTempsConfig

	// OverTempLimit is the Normal/HeaterOnly safety shutoff threshold.
	// Deployed enclosures run either 50°C or 100°C depending on the heater
	// fitted; internal/config range-checks it to [50, 150].
	OverTempLimit float64
}

// DefaultConfig returns the supervisor's default tunables.
func DefaultConfig() Config {
	return Config{
		TickInterval:  5 * time.Second,
		LightBand:     Band{Low: 15, High: 20},
		DarkBand:      Band{Low: 0, High: 5},
		SenseTimeout:  2 * time.Second,
		LED:           DefaultLEDConfig(),
		HeaterOnly:    DefaultHeaterOnlyConfig(),
		NoTemps:       DefaultNoTempsConfig(),
		OverTempLimit: 100,
	}
}

// Deps is the supervisor's InfoView and GPIO surface. Any pin may be nil in
// tests that don't care about that side effect.
type Deps struct {
	BatteryTemperature *infoview.View[float64]
	HeaterTemperature  *infoview.View[float64]
	AmbientTemperature *infoview.View[float64]
	Weather            *infoview.View[collab.WeatherSnapshot]
	Light              *infoview.View[light.State]

	SSRDrive   gpio.PinOut
	SSRSense   gpio.PinIn
	HeaterLED  gpio.PinOut
	BatteryLED gpio.PinOut

	HeaterOn                  *infoview.View[bool]
	HeaterOnSecondsThisMinute *infoview.View[float64]
	SSRFault                  *infoview.View[SSRFault]
	Failure                   *infoview.View[Failure]
	HeaterStartAttemptsTotal  *infoview.View[int]
}

// Supervisor is the heater controller supervisor. It selects one of the
// four sub-controllers based on sensor liveness, drives the SSR and LEDs,
// cross-checks the SSR sense relay, and tracks per-minute heater-on time.
type Supervisor struct {
	cfg  Config
	deps Deps
	now  func() time.Time
	log  zerolog.Logger

	mode        ActiveMode
	normal      *NormalController
	batteryOnly *BatteryOnlyController
	heaterOnly  *HeaterOnlyController
	noTemps     *NoTempsController

	commanded       bool
	haveCommanded   bool
	mismatchSince   time.Time
	ssrFaultLatched bool

	minuteStart time.Time
	accumulated time.Duration
	lastTick    time.Time

	lastAttempts  int
	totalAttempts int
}

// NewSupervisor builds a Supervisor. It starts in ModeIdle; the first Tick
// picks the real mode from sensor liveness.
func NewSupervisor(cfg Config, deps Deps, log zerolog.Logger) *Supervisor {
	s := &Supervisor{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
		log:  log.With().Str("component", "heater").Logger(),
		mode: ModeIdle,
	}
	// Sub-controllers read the clock through s.now, so SetClock reaches
	// their timers too.
	now := func() time.Time { return s.now() }
	s.normal = NewNormalController(cfg.OverTempLimit, now, s.log)
	s.batteryOnly = NewBatteryOnlyController(now, s.log)
	s.heaterOnly = NewHeaterOnlyController(cfg.HeaterOnly, cfg.OverTempLimit, now, s.log)
	s.noTemps = NewNoTempsController(cfg.NoTemps, now, s.log)
	if deps.SSRSense != nil {
		_ = deps.SSRSense.In(gpio.Up)
	}
	return s
}

// SetClock overrides the clock used for timers, for tests.
func (s *Supervisor) SetClock(now func() time.Time) {
	s.now = now
}

// Mode returns the currently active sub-controller mode.
func (s *Supervisor) Mode() ActiveMode {
	return s.mode
}

// Tick runs one full supervisor cycle: read InfoViews, decide band, step
// the active sub-controller, drive the SSR, re-read sense, publish
// heater-on-time — always in that order, so band and mode changes never
// race an SSR write.
func (s *Supervisor) Tick() {
	now := s.now()
	battery := s.safeGet(s.deps.BatteryTemperature)
	heater := s.safeGet(s.deps.HeaterTemperature)

	if !s.ssrFaultLatched {
		desired := selectMode(battery.Live, heater.Live)
		if desired != s.mode {
			s.switchMode(desired)
		}
	}

	band := s.selectBand()

	wantOn := false
	if !s.ssrFaultLatched {
		wantOn = s.step(battery, heater, band)
	}

	s.driveSSR(wantOn, now)
	s.driveHeaterLED(battery, now)
	s.driveBatteryLED(battery)
	s.accumulateOnSeconds(now)

	if s.deps.HeaterOn != nil {
		s.deps.HeaterOn.Set(wantOn)
	}
}

func (s *Supervisor) safeGet(v *infoview.View[float64]) infoview.Snapshot[float64] {
	if v == nil {
		return infoview.Snapshot[float64]{}
	}
	return v.Get()
}

// step runs the active sub-controller and returns the SSR demand.
func (s *Supervisor) step(battery, heater infoview.Snapshot[float64], band Band) bool {
	var attempts int
	var on bool
	switch s.mode {
	case ModeNormal:
		s.normal.Step(battery.Value, heater.Value, band)
		s.checkLatchedFault(ModeNormal, s.normal.State())
		attempts, on = s.normal.fsm.Attempts(), s.normal.SSROn()
	case ModeBatteryOnly:
		s.batteryOnly.Step(battery.Value, band)
		s.checkLatchedFault(ModeBatteryOnly, s.batteryOnly.State())
		attempts, on = s.batteryOnly.fsm.Attempts(), s.batteryOnly.SSROn()
	case ModeHeaterOnly:
		s.heaterOnly.Step(heater.Value, band)
		s.checkLatchedFault(ModeHeaterOnly, s.heaterOnly.InnerState())
		attempts, on = s.heaterOnly.inner.Attempts(), s.heaterOnly.SSROn()
	case ModeNoTemps:
		outside, ok := s.outsideTemp()
		if !ok {
			// With no outside reading at all the thermal model has no input;
			// hold the heater off until one of the sources comes back.
			return false
		}
		s.noTemps.Step(outside, band)
		return s.noTemps.SSROn()
	default:
		return false
	}
	s.trackStartAttempts(attempts)
	return on
}

// trackStartAttempts turns the active controller's per-cycle attempt
// counter (which resets to zero on every success) into a monotonically
// increasing total, for the shedsolar_heater_start_attempts_total metric.
func (s *Supervisor) trackStartAttempts(attempts int) {
	if attempts > s.lastAttempts {
		s.totalAttempts += attempts - s.lastAttempts
		if s.deps.HeaterStartAttemptsTotal != nil {
			s.deps.HeaterStartAttemptsTotal.Set(s.totalAttempts)
		}
	}
	s.lastAttempts = attempts
}

func selectMode(batteryLive, heaterLive bool) ActiveMode {
	switch {
	case batteryLive && heaterLive:
		return ModeNormal
	case batteryLive:
		return ModeBatteryOnly
	case heaterLive:
		return ModeHeaterOnly
	default:
		return ModeNoTemps
	}
}

// switchMode resets every sub-controller, not just the one about to become
// active: the one being abandoned must not retain state either, or a later
// switch back to it would resume mid-cycle instead of starting fresh.
func (s *Supervisor) switchMode(m ActiveMode) {
	s.normal.Reset()
	s.batteryOnly.Reset()
	s.heaterOnly.Reset()
	s.noTemps.Reset()
	s.log.Info().Stringer("from", s.mode).Stringer("to", m).Msg("mode change")
	s.mode = m
}

func (s *Supervisor) selectBand() Band {
	if s.deps.Light == nil {
		return s.cfg.DarkBand
	}
	snap := s.deps.Light.Get()
	if snap.HasValue && snap.Value.Mode == light.Light {
		return s.cfg.LightBand
	}
	return s.cfg.DarkBand
}

func (s *Supervisor) checkLatchedFault(mode ActiveMode, st ConfirmState) {
	if !st.Terminal() || s.deps.Failure == nil {
		return
	}
	if prev := s.deps.Failure.Get(); prev.HasValue && prev.Value.Mode == mode && prev.Value.State == st {
		return
	}
	s.deps.Failure.Set(Failure{Mode: mode, State: st, Since: s.now()})
}

// outsideTemp picks NoTempsController's outside-temperature source:
// weather, falling back to the reference-junction-derived ambient reading.
func (s *Supervisor) outsideTemp() (float64, bool) {
	if s.deps.Weather != nil {
		if w := s.deps.Weather.Get(); w.Live {
			return w.Value.OutsideTempC, true
		}
	}
	if s.deps.AmbientTemperature != nil {
		if a := s.deps.AmbientTemperature.Get(); a.Live {
			return a.Value, true
		}
	}
	return 0, false
}

// driveSSR commands the SSR and cross-checks the sense relay against the
// commanded level, folded into this single tick rather than a second
// debounce goroutine racing the pin.
func (s *Supervisor) driveSSR(wantOn bool, now time.Time) {
	if s.deps.SSRDrive == nil {
		return
	}
	if !s.haveCommanded || wantOn != s.commanded {
		if err := s.deps.SSRDrive.Out(ssrLevel(wantOn)); err != nil {
			s.log.Warn().Err(err).Bool("on", wantOn).Msg("ssr drive write failed")
		}
		s.commanded = wantOn
		s.haveCommanded = true
		s.mismatchSince = time.Time{}
	}

	if s.deps.SSRSense == nil {
		return
	}
	level, err := s.deps.SSRSense.Read()
	if err != nil {
		s.log.Warn().Err(err).Msg("ssr sense read failed")
		return
	}
	energized := level == gpio.Low
	if energized == s.commanded {
		s.mismatchSince = time.Time{}
		return
	}
	if s.mismatchSince.IsZero() {
		s.mismatchSince = now
		return
	}
	if !s.ssrFaultLatched && now.Sub(s.mismatchSince) >= s.cfg.SenseTimeout {
		s.latchSSRFault(energized, now)
	}
}

func (s *Supervisor) latchSSRFault(observed bool, now time.Time) {
	commanded := s.commanded
	s.ssrFaultLatched = true
	s.mode = ModeIdle
	if s.deps.SSRDrive != nil {
		if err := s.deps.SSRDrive.Out(ssrLevel(false)); err != nil {
			s.log.Error().Err(err).Msg("failed to force SSR off while latching fault")
		}
	}
	s.commanded = false
	s.log.Error().Bool("commanded", commanded).Bool("observed", observed).Msg("ssr sense mismatch, latching fault and forcing off")
	if s.deps.SSRFault != nil {
		s.deps.SSRFault.Set(SSRFault{Commanded: commanded, Observed: observed, Since: now})
	}
}

func (s *Supervisor) driveHeaterLED(battery infoview.Snapshot[float64], now time.Time) {
	if s.deps.HeaterLED == nil {
		return
	}
	cfg := s.cfg.LED
	if !battery.Live {
		period := int64(2 * cfg.ErrorInterval)
		phase := now.UnixNano() % period
		_ = s.deps.HeaterLED.Out(ledLevel(phase < int64(cfg.ErrorInterval)))
		return
	}
	duty := clamp((battery.Value-cfg.MinTemp)/(cfg.MaxTemp-cfg.MinTemp), 0, 1)
	period := int64(cfg.Period)
	phase := now.UnixNano() % period
	_ = s.deps.HeaterLED.Out(ledLevel(phase < int64(float64(period)*duty)))
}

func (s *Supervisor) driveBatteryLED(battery infoview.Snapshot[float64]) {
	if s.deps.BatteryLED == nil {
		return
	}
	_ = s.deps.BatteryLED.Out(ledLevel(battery.Live))
}

func (s *Supervisor) accumulateOnSeconds(now time.Time) {
	if s.minuteStart.IsZero() || now.Sub(s.minuteStart) >= time.Minute {
		s.minuteStart = now
		s.accumulated = 0
	}
	if !s.lastTick.IsZero() && s.commanded {
		s.accumulated += now.Sub(s.lastTick)
	}
	s.lastTick = now
	if s.deps.HeaterOnSecondsThisMinute != nil {
		s.deps.HeaterOnSecondsThisMinute.Set(s.accumulated.Seconds())
	}
}

// ssrLevel and ledLevel both honor the board's active-low wiring: low = on
// for every driven pin this firmware touches.
func ssrLevel(on bool) gpio.Level { return ledLevel(on) }

func ledLevel(on bool) gpio.Level {
	if on {
		return gpio.Low
	}
	return gpio.High
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
