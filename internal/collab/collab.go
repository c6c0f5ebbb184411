// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package collab defines the contracts the external collaborators satisfy:
// the Outback inverter/charger feed and the weather feed.
// ShedSolar's core only ever depends on these two interfaces and the
// infoview.View they write into; it does not know or care whether a given
// build wires in the reference MQTT adapter or an in-memory fake.
package collab

import (
	"context"

	"github.com/shedsolar/shedsolar/internal/infoview"
)

// OutbackSnapshot is one reading of the Outback inverter/charger's state.
type OutbackSnapshot struct {
	PVVoltageV       float64
	PVCurrentA       float64
	SOCPercent       float64
	BattVoltageV     float64
	InverterCurrentA [2]float64
	ACOutV           [2]float64
	Fresh            bool
}

// PVPowerW is the instantaneous PV power, derived from panel voltage and
// current.
func (o OutbackSnapshot) PVPowerW() float64 {
	return o.PVVoltageV * o.PVCurrentA
}

// WeatherSnapshot is one reading of outdoor conditions.
type WeatherSnapshot struct {
	IrradianceWM2 float64
	OutsideTempC  float64
}

// OutbackProducer feeds an OutbackSnapshot InfoView. Run blocks until ctx is
// canceled, publishing via out.Set on whatever cadence the implementation
// fetches at (at least 30s apart; 60s is typical).
type OutbackProducer interface {
	Run(ctx context.Context, out *infoview.View[OutbackSnapshot]) error
}

// WeatherProducer feeds a WeatherSnapshot InfoView, analogous to
// OutbackProducer (fetches at least 60s apart).
type WeatherProducer interface {
	Run(ctx context.Context, out *infoview.View[WeatherSnapshot]) error
}
