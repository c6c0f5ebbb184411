// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scheduler drives the fixed-interval component ticks: the
// temperature reader, the heater supervisor, and the light detector each
// run on their own period, and a single component's ticks never overlap
// each other even if one tick runs long.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one independently-scheduled component tick.
type Task struct {
	// Name identifies the task in logs.
	Name string
	// Interval is the fixed period between ticks.
	Interval time.Duration
	// Run is invoked once per tick. It should return promptly; if it runs
	// longer than Interval, the next tick is simply delayed rather than
	// overlapping it.
	Run func(ctx context.Context)
}

// Scheduler runs a fixed set of Tasks, each on its own ticker, until its
// context is canceled.
type Scheduler struct {
	tasks []Task
	log   zerolog.Logger
}

// New builds a Scheduler for the given tasks.
func New(log zerolog.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{tasks: tasks, log: log.With().Str("component", "scheduler").Logger()}
}

// Run blocks until ctx is canceled, running every task concurrently, each
// on its own interval.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(len(s.tasks))
	for _, task := range s.tasks {
		task := task
		go func() {
			defer wg.Done()
			s.runTask(ctx, task)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	log := s.log.With().Str("task", task.Name).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, log, task)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, log zerolog.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("task tick panicked, continuing on next interval")
		}
	}()
	start := time.Now()
	task.Run(ctx)
	if d := time.Since(start); d > task.Interval {
		log.Warn().Dur("took", d).Dur("interval", task.Interval).Msg("tick ran longer than its interval")
	}
}
