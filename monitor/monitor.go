// day-night-cycle - publish whether it is currently day or night
//  Copyright (C) 2026, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package monitor keeps an external store up to date with the current
// day/night phase, checking for a change once every minute.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/juju/ratelimit"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/TheCacophonyProject/day-night-cycle/phase"
)

// Names used in the store. Fields are kept under Collection and each one is
// also broadcast on the channel "<Collection>/<field>".
const (
	Collection      = "day-night-cycle"
	FieldDayStart   = "start_time_day"
	FieldNightStart = "start_time_night"
	FieldPhase      = "current_phase"
)

// Channel returns the broadcast channel for a field.
func Channel(field string) string {
	return Collection + "/" + field
}

// Checks happen at the start of every minute.
var everyMinute = mustParseSchedule("* * * * *")

func mustParseSchedule(expr string) cron.Schedule {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Sink is the store the phase is published to.
type Sink interface {
	// SetFields sets several fields of a collection at once.
	SetFields(ctx context.Context, collection string, fields map[string]string) error
	// SetField sets a single field of a collection.
	SetField(ctx context.Context, collection, field, value string) error
	// Broadcast publishes message on channel.
	Broadcast(ctx context.Context, channel, message string) error
}

// Transition describes the monitor entering a phase. The first transition
// after startup has Initial set and From equal to To.
type Transition struct {
	From        phase.Phase
	To          phase.Phase
	Initial     bool
	At          time.Time
	UntilChange time.Duration
}

// Listener is told about every transition once it has been published.
// An error from a listener stops the monitor.
type Listener interface {
	PhaseChanged(t Transition) error
}

// Monitor tracks the current phase and publishes it to a Sink.
// It is not safe for concurrent use.
type Monitor struct {
	schedule  *phase.Schedule
	sink      Sink
	clock     ratelimit.Clock
	log       zerolog.Logger
	listeners []Listener
	tickFunc  func()

	started bool
	current phase.Phase
}

// New returns a Monitor using the system clock.
func New(schedule *phase.Schedule, sink Sink, logger zerolog.Logger) *Monitor {
	return NewWithClock(schedule, sink, logger, new(realClock))
}

// NewWithClock returns a Monitor using the given clock.
func NewWithClock(schedule *phase.Schedule, sink Sink, logger zerolog.Logger, clock ratelimit.Clock) *Monitor {
	return &Monitor{
		schedule: schedule,
		sink:     sink,
		clock:    clock,
		log:      logger.With().Str("component", "monitor").Logger(),
	}
}

// AddListener registers l to be told about transitions. Listeners must be
// added before Start.
func (m *Monitor) AddListener(l Listener) {
	m.listeners = append(m.listeners, l)
}

// SetTickFunc sets a function to be called after every minute check.
func (m *Monitor) SetTickFunc(f func()) {
	m.tickFunc = f
}

// Phase returns the phase the monitor last published.
func (m *Monitor) Phase() phase.Phase {
	return m.current
}

// Run checks for a phase change at the start of every minute, calling
// Start first if that hasn't been done. It only returns on error.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.started {
		if err := m.Start(ctx); err != nil {
			return err
		}
	}
	for {
		if err := m.sleepUntilNextCheck(); err != nil {
			return err
		}
		if _, err := m.Check(ctx); err != nil {
			return err
		}
		if m.tickFunc != nil {
			m.tickFunc()
		}
	}
}

// Start works out the current phase and publishes the full schedule.
func (m *Monitor) Start(ctx context.Context) error {
	if m.started {
		return errors.New("monitor already started")
	}

	now := m.clock.Now()
	current, err := m.schedule.CurrentPhase(now)
	if err != nil {
		return err
	}

	fields := []struct{ name, value string }{
		{FieldDayStart, m.schedule.DayStart().String()},
		{FieldNightStart, m.schedule.NightStart().String()},
		{FieldPhase, current.String()},
	}
	fieldMap := make(map[string]string, len(fields))
	for _, f := range fields {
		fieldMap[f.name] = f.value
	}
	if err := m.sink.SetFields(ctx, Collection, fieldMap); err != nil {
		return &SinkError{Op: "set fields", Target: Collection, Err: err}
	}
	for _, f := range fields {
		if err := m.broadcast(ctx, f.name, f.value); err != nil {
			return err
		}
	}

	m.current = current
	m.started = true

	untilChange, err := m.schedule.UntilChange(now)
	if err != nil {
		return err
	}
	if err := m.notify(Transition{
		From:        current,
		To:          current,
		Initial:     true,
		At:          now,
		UntilChange: untilChange,
	}); err != nil {
		return err
	}

	m.log.Info().
		Stringer("day_start", m.schedule.DayStart()).
		Stringer("night_start", m.schedule.NightStart()).
		Dur("until_change", untilChange).
		Msgf("we start at %s", current)
	return nil
}

// Check recomputes the phase and publishes it if it has changed. It
// reports whether there was a change.
func (m *Monitor) Check(ctx context.Context) (bool, error) {
	if !m.started {
		return false, errors.New("monitor not started")
	}

	now := m.clock.Now()
	next, err := m.schedule.CurrentPhase(now)
	if err != nil {
		return false, err
	}
	if next == m.current {
		m.log.Debug().Msgf("it's still %s", m.current)
		return false, nil
	}

	prev := m.current
	m.current = next

	if err := m.sink.SetField(ctx, Collection, FieldPhase, next.String()); err != nil {
		return true, &SinkError{Op: "set field", Target: Collection + "." + FieldPhase, Err: err}
	}
	if err := m.broadcast(ctx, FieldPhase, next.String()); err != nil {
		return true, err
	}

	untilChange, err := m.schedule.UntilChange(now)
	if err != nil {
		return true, err
	}
	if err := m.notify(Transition{
		From:        prev,
		To:          next,
		At:          now,
		UntilChange: untilChange,
	}); err != nil {
		return true, err
	}

	m.log.Info().
		Dur("until_change", untilChange).
		Msgf("%s changed to %s", prev, next)
	return true, nil
}

func (m *Monitor) broadcast(ctx context.Context, field, value string) error {
	channel := Channel(field)
	if err := m.sink.Broadcast(ctx, channel, value); err != nil {
		return &SinkError{Op: "broadcast", Target: channel, Err: err}
	}
	return nil
}

func (m *Monitor) notify(t Transition) error {
	for _, l := range m.listeners {
		if err := l.PhaseChanged(t); err != nil {
			return err
		}
	}
	return nil
}

// untilNextCheck returns the time left until the start of the next minute.
func (m *Monitor) untilNextCheck() (time.Duration, error) {
	now := m.clock.Now()
	next := everyMinute.Next(now)
	if next.IsZero() {
		return 0, ErrClock
	}
	delay := next.Sub(now)
	if delay < 0 {
		delay = 0
	}
	return delay, nil
}

func (m *Monitor) sleepUntilNextCheck() error {
	delay, err := m.untilNextCheck()
	if err != nil {
		return err
	}
	m.clock.Sleep(delay)
	return nil
}
