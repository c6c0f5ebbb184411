// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package noisefilter rejects the MAX31855's periodic outliers: the sensor
// reports anomalously low readings for roughly 2s out of every 10s, and a
// plain moving average would let that noise leak into the control loop.
// Instead this implements a median-error outlier rejection filter over a
// sliding window of recent readings.
package noisefilter

import "sort"

// Config holds the filter's tunables.
type Config struct {
	// NumSamples bounds the sliding window (N).
	NumSamples int
	// MaxIgnoreFraction caps how many of the N samples may be ignored, as a
	// fraction of N.
	MaxIgnoreFraction float64
	// MaxTotalErrorIgnoreFraction caps the summed error of ignored samples,
	// as a fraction of the window's total error E. 1.0 means unlimited.
	MaxTotalErrorIgnoreFraction float64
	// MinSampleErrorIgnore is the minimum |error| a sample must have before
	// it is even considered for ignoring.
	MinSampleErrorIgnore float64
}

// DefaultConfig returns the filter's field-proven defaults.
func DefaultConfig() Config {
	return Config{
		NumSamples:                  41,
		MaxIgnoreFraction:           0.25,
		MaxTotalErrorIgnoreFraction: 1.0,
		MinSampleErrorIgnore:        0.75,
	}
}

// Window is a bounded, insertion-ordered ring of the last N items of any
// type; it backs Filter's sample buffer and is reused verbatim by any
// consumer that needs "last N of T" semantics without the median-error math.
type Window[T any] struct {
	items []T
	n     int
}

// NewWindow returns a Window bounded to n items.
func NewWindow[T any](n int) *Window[T] {
	if n < 1 {
		n = 1
	}
	return &Window[T]{n: n}
}

// Push appends item, dropping the oldest entry if the window is full.
func (w *Window[T]) Push(item T) {
	w.items = append(w.items, item)
	if len(w.items) > w.n {
		w.items = w.items[len(w.items)-w.n:]
	}
}

// Items returns the window's contents, oldest first. The returned slice
// aliases internal storage and must not be modified by the caller.
func (w *Window[T]) Items() []T {
	return w.items
}

// Len returns the number of items currently held.
func (w *Window[T]) Len() int {
	return len(w.items)
}

// Filter applies the median-error outlier rejection algorithm to a sliding
// window of thermocouple readings.
type Filter struct {
	cfg    Config
	window *Window[float64]
}

// New returns a Filter configured per cfg.
func New(cfg Config) *Filter {
	return &Filter{cfg: cfg, window: NewWindow[float64](cfg.NumSamples)}
}

// Push adds a new accepted (fault == ok) reading to the window.
func (f *Filter) Push(thermoC float64) {
	f.window.Push(thermoC)
}

// Len returns how many readings are currently in the window.
func (f *Filter) Len() int {
	return f.window.Len()
}

// Value computes the filtered output. ok is false until the window holds at
// least 2 samples.
func (f *Filter) Value() (value float64, ok bool) {
	items := f.window.Items()
	n := len(items)
	if n < 2 {
		return 0, false
	}

	m := median(items)

	type errSample struct {
		value float64
		err   float64
	}
	errs := make([]errSample, n)
	total := 0.0
	for i, v := range items {
		e := v - m
		if e < 0 {
			e = -e
		}
		errs[i] = errSample{value: v, err: e}
		total += e
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].err > errs[j].err })

	maxIgnore := int(f.cfg.MaxIgnoreFraction * float64(n)) // rounds down
	maxIgnoreErr := f.cfg.MaxTotalErrorIgnoreFraction * total

	ignored := make([]bool, n)
	ignoredCount := 0
	ignoredErr := 0.0
	for i := range errs {
		if ignoredCount >= maxIgnore {
			break
		}
		if ignoredErr >= maxIgnoreErr {
			break
		}
		if errs[i].err < f.cfg.MinSampleErrorIgnore {
			break
		}
		ignored[i] = true
		ignoredCount++
		ignoredErr += errs[i].err
	}

	sum := 0.0
	kept := 0
	for i, e := range errs {
		if ignored[i] {
			continue
		}
		sum += e.value
		kept++
	}
	if kept == 0 {
		// Every sample was ignored, which the configured fractions should
		// never allow; fall back to the plain mean rather than divide by
		// zero.
		for _, e := range errs {
			sum += e.value
		}
		return sum / float64(n), true
	}
	return sum / float64(kept), true
}

// median returns the median of vs without mutating vs.
func median(vs []float64) float64 {
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
