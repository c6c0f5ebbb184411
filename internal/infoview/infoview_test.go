// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package infoview

import (
	"testing"
	"time"

	"github.com/cskr/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_LivenessDerivedFromClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v := New[float64]("battery_temperature", 2*time.Minute, nil)
	v.SetClock(func() time.Time { return now })

	assert.False(t, v.Live(), "never-set view must not be live")

	v.Set(12.5)
	assert.True(t, v.Live())

	now = now.Add(3 * time.Minute)
	assert.False(t, v.Live(), "view must go stale after stale_window elapses")

	snap := v.Get()
	assert.Equal(t, 12.5, snap.Value)
	assert.True(t, snap.HasValue)
	assert.False(t, snap.Live)
}

func TestView_SetPublishesOnlyOnChange(t *testing.T) {
	bus := pubsub.New(4)
	defer bus.Shutdown()
	ch := bus.Sub(ChangesTopic)

	v := New[int]("light", time.Minute, bus)
	v.Set(1)
	first := (<-ch).(Change)
	require.Equal(t, "light", first.Name)
	require.Nil(t, first.Old)
	require.Equal(t, 1, first.New)

	v.Set(1) // no change, must not publish again
	v.Set(2)
	second := (<-ch).(Change)
	assert.Equal(t, 1, second.Old)
	assert.Equal(t, 2, second.New)
}

func TestView_GetBeforeSet(t *testing.T) {
	v := New[string]("ambient_temperature", time.Minute, nil)
	snap := v.Get()
	assert.False(t, snap.HasValue)
	assert.False(t, snap.Live)
}
