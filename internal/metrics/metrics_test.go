// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/cskr/pubsub"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shedsolar/shedsolar/internal/infoview"
)

func TestRegistry_MirrorsBatteryTemperature(t *testing.T) {
	bus := pubsub.New(1)
	reg := New(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		reg.Run(ctx)
		close(done)
	}()

	v := infoview.New[float64]("battery_temperature", time.Minute, bus)
	v.Set(21.5)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(batteryTemperature) == 21.5
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestRegistry_StopsOnContextCancel(t *testing.T) {
	bus := pubsub.New(1)
	reg := New(bus, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("registry did not stop after context cancellation")
	}
}

func TestHandler_ReturnsNonNil(t *testing.T) {
	assert.NotNil(t, Handler())
}
