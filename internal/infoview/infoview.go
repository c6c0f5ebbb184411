// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package infoview implements the single observable-slot abstraction used
// throughout ShedSolar: a named, single-writer/many-reader value with a
// last-update timestamp and a derived liveness flag.
//
// There is deliberately no separate event bus with one type per event.
// View[T].Set diffs the incoming value against the last one and, on a
// meaningful change, fans a Change out over an internal pubsub topic so the
// metrics and logging layers can react without every producer hand-rolling
// its own notification path.
package infoview

import (
	"sync"
	"time"

	"github.com/cskr/pubsub"
)

// Change is published on the "changes" topic of the PubSub passed to New
// whenever a View's value changes meaningfully.
type Change struct {
	Name string
	At   time.Time
	Old  any
	New  any
}

// ChangesTopic is the topic name Change events are published under.
const ChangesTopic = "changes"

// Snapshot is an immutable copy of a View's state at the instant it was
// read, so a consumer never observes a torn value/timestamp/liveness triple.
type Snapshot[T any] struct {
	Value     T
	HasValue  bool
	UpdatedAt time.Time
	Live      bool
}

// View is a named observable slot holding the latest value of type T.
//
// The zero value is not usable; construct with New. A View is safe for
// concurrent use: one goroutine calls Set, any number call Get.
type View[T comparable] struct {
	name        string
	staleWindow time.Duration
	bus         *pubsub.PubSub
	now         func() time.Time

	mu        sync.RWMutex
	value     T
	hasValue  bool
	updatedAt time.Time
}

// New creates a View. bus may be nil, in which case Set never publishes a
// Change (used by tests that don't care about notifications).
func New[T comparable](name string, staleWindow time.Duration, bus *pubsub.PubSub) *View[T] {
	return &View[T]{
		name:        name,
		staleWindow: staleWindow,
		bus:         bus,
		now:         time.Now,
	}
}

// Set publishes a new value, stamping it with the current time. It is the
// only way a View's value changes; callers other than the owning producer
// must not call Set.
func (v *View[T]) Set(value T) {
	v.mu.Lock()
	old := v.value
	hadValue := v.hasValue
	changed := !hadValue || old != value
	v.value = value
	v.hasValue = true
	v.updatedAt = v.now()
	v.mu.Unlock()

	if changed && v.bus != nil {
		var oldAny any
		if hadValue {
			oldAny = old
		}
		v.bus.Pub(Change{Name: v.name, At: v.now(), Old: oldAny, New: value}, ChangesTopic)
	}
}

// Get returns a consistent snapshot of the View's current state.
func (v *View[T]) Get() Snapshot[T] {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot[T]{
		Value:     v.value,
		HasValue:  v.hasValue,
		UpdatedAt: v.updatedAt,
		Live:      v.liveLocked(),
	}
}

// Live reports whether the View received a value within staleWindow.
func (v *View[T]) Live() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.liveLocked()
}

func (v *View[T]) liveLocked() bool {
	if !v.hasValue {
		return false
	}
	return v.now().Sub(v.updatedAt) < v.staleWindow
}

// Name returns the View's name, as published in Change events.
func (v *View[T]) Name() string {
	return v.name
}

// SetClock overrides the clock used for timestamps and liveness, for tests.
func (v *View[T]) SetClock(now func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = now
}
