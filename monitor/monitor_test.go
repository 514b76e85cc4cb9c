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

package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/ratelimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheCacophonyProject/day-night-cycle/phase"
)

func TestStartPublishesFullState(t *testing.T) {
	sink := new(recordingSink)
	clock := newTestClock(12, 0)
	m := NewWithClock(wraparoundSchedule(), sink, zerolog.Nop(), clock)

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, phase.Day, m.Phase())
	assert.Equal(t, []sinkOp{
		{op: "fields", target: "day-night-cycle", fields: map[string]string{
			"start_time_day":   "06:00",
			"start_time_night": "22:00",
			"current_phase":    "Day",
		}},
		{op: "broadcast", target: "day-night-cycle/start_time_day", value: "06:00"},
		{op: "broadcast", target: "day-night-cycle/start_time_night", value: "22:00"},
		{op: "broadcast", target: "day-night-cycle/current_phase", value: "Day"},
	}, sink.ops)
}

func TestStartAtNight(t *testing.T) {
	sink := new(recordingSink)
	m := NewWithClock(wraparoundSchedule(), sink, zerolog.Nop(), newTestClock(0, 30))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, phase.Night, m.Phase())
	assert.Equal(t, "Night", sink.ops[0].fields["current_phase"])
}

func TestStartTwice(t *testing.T) {
	m := NewWithClock(wraparoundSchedule(), new(recordingSink), zerolog.Nop(), newTestClock(12, 0))
	require.NoError(t, m.Start(context.Background()))
	assert.Error(t, m.Start(context.Background()))
}

func TestCheckBeforeStart(t *testing.T) {
	m := NewWithClock(wraparoundSchedule(), new(recordingSink), zerolog.Nop(), newTestClock(12, 0))
	_, err := m.Check(context.Background())
	assert.Error(t, err)
}

func TestTransitionDetection(t *testing.T) {
	sink := new(recordingSink)
	clock := newTestClock(21, 57)
	m := NewWithClock(wraparoundSchedule(), sink, zerolog.Nop(), clock)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	require.Equal(t, phase.Day, m.Phase())
	sink.reset()

	// Still day; nothing written.
	for i := 0; i < 2; i++ {
		clock.Sleep(time.Minute)
		changed, err := m.Check(ctx)
		require.NoError(t, err)
		assert.False(t, changed)
	}
	assert.Empty(t, sink.ops)

	// 22:00 - night starts.
	clock.Sleep(time.Minute)
	changed, err := m.Check(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, phase.Night, m.Phase())
	assert.Equal(t, []sinkOp{
		{op: "field", target: "day-night-cycle", field: "current_phase", value: "Night"},
		{op: "broadcast", target: "day-night-cycle/current_phase", value: "Night"},
	}, sink.ops)

	// Staying in the night phase writes nothing more.
	sink.reset()
	for i := 0; i < 5; i++ {
		clock.Sleep(time.Minute)
		changed, err := m.Check(ctx)
		require.NoError(t, err)
		assert.False(t, changed)
	}
	assert.Empty(t, sink.ops)
}

func TestListenersSeeTransitions(t *testing.T) {
	clock := newTestClock(5, 59)
	m := NewWithClock(wraparoundSchedule(), new(recordingSink), zerolog.Nop(), clock)
	listener := new(recordingListener)
	m.AddListener(listener)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	clock.Sleep(time.Minute)
	_, err := m.Check(ctx)
	require.NoError(t, err)

	require.Len(t, listener.transitions, 2)
	assert.Equal(t, Transition{
		From:        phase.Night,
		To:          phase.Night,
		Initial:     true,
		At:          mkTime(5, 59),
		UntilChange: time.Minute,
	}, listener.transitions[0])
	assert.Equal(t, Transition{
		From:        phase.Night,
		To:          phase.Day,
		At:          mkTime(6, 0),
		UntilChange: 16 * time.Hour,
	}, listener.transitions[1])
}

func TestListenerErrorStopsMonitor(t *testing.T) {
	m := NewWithClock(wraparoundSchedule(), new(recordingSink), zerolog.Nop(), newTestClock(12, 0))
	listenerErr := errors.New("pin stuck")
	m.AddListener(&recordingListener{err: listenerErr})

	assert.Equal(t, listenerErr, m.Start(context.Background()))
}

func TestSinkErrors(t *testing.T) {
	ctx := context.Background()
	sinkErr := errors.New("connection refused")

	m := NewWithClock(wraparoundSchedule(), &recordingSink{failOn: "fields", err: sinkErr}, zerolog.Nop(), newTestClock(12, 0))
	err := m.Start(ctx)
	var se *SinkError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "set fields", se.Op)
	assert.ErrorIs(t, err, sinkErr)

	m = NewWithClock(wraparoundSchedule(), &recordingSink{failOn: "broadcast", err: sinkErr}, zerolog.Nop(), newTestClock(12, 0))
	err = m.Start(ctx)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "broadcast", se.Op)
	assert.Equal(t, "day-night-cycle/start_time_day", se.Target)

	clock := newTestClock(21, 59)
	m = NewWithClock(wraparoundSchedule(), &recordingSink{failOn: "field", err: sinkErr}, zerolog.Nop(), clock)
	require.NoError(t, m.Start(ctx))
	clock.Sleep(time.Minute)
	_, err = m.Check(ctx)
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "set field", se.Op)
	assert.Equal(t, "set field day-night-cycle.current_phase: connection refused", err.Error())
}

func TestBrokenScheduleIsFatal(t *testing.T) {
	m := NewWithClock(new(phase.Schedule), new(recordingSink), zerolog.Nop(), newTestClock(12, 0))
	assert.ErrorIs(t, m.Start(context.Background()), phase.ErrInvariant)
}

func TestUntilNextCheck(t *testing.T) {
	clock := newTestClock(12, 0)
	m := NewWithClock(wraparoundSchedule(), new(recordingSink), zerolog.Nop(), clock)

	// Exactly on a minute boundary waits for the next one.
	delay, err := m.untilNextCheck()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, delay)

	clock.now = clock.now.Add(59*time.Second + 999*time.Millisecond)
	delay, err = m.untilNextCheck()
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, delay)

	clock.now = mkTime(23, 59).Add(30 * time.Second)
	delay, err = m.untilNextCheck()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, delay)
}

func TestRunChecksEveryMinute(t *testing.T) {
	sinkErr := errors.New("gone away")
	clock := newTestClock(21, 57)
	clock.now = clock.now.Add(30*time.Second + 500*time.Millisecond)
	sink := &recordingSink{failOn: "field", err: sinkErr}
	m := NewWithClock(wraparoundSchedule(), sink, zerolog.Nop(), clock)
	ticks := 0
	m.SetTickFunc(func() { ticks++ })

	// Run only returns on error; here the first phase change fails.
	err := m.Run(context.Background())
	assert.ErrorIs(t, err, sinkErr)

	assert.Equal(t, []time.Duration{
		29*time.Second + 500*time.Millisecond,
		time.Minute,
		time.Minute,
	}, clock.sleeps)
	assert.Equal(t, 2, ticks)
	assert.Equal(t, mkTime(22, 0), clock.now)
}

func wraparoundSchedule() *phase.Schedule {
	return phase.NewSchedule(phase.MustParseTimeOfDay("06:00"), phase.MustParseTimeOfDay("22:00"))
}

type sinkOp struct {
	op     string
	target string
	field  string
	value  string
	fields map[string]string
}

type recordingSink struct {
	ops    []sinkOp
	failOn string
	err    error
}

func (s *recordingSink) reset() {
	s.ops = nil
}

func (s *recordingSink) record(op sinkOp) error {
	if op.op == s.failOn {
		return s.err
	}
	s.ops = append(s.ops, op)
	return nil
}

func (s *recordingSink) SetFields(_ context.Context, collection string, fields map[string]string) error {
	return s.record(sinkOp{op: "fields", target: collection, fields: fields})
}

func (s *recordingSink) SetField(_ context.Context, collection, field, value string) error {
	return s.record(sinkOp{op: "field", target: collection, field: field, value: value})
}

func (s *recordingSink) Broadcast(_ context.Context, channel, message string) error {
	return s.record(sinkOp{op: "broadcast", target: channel, value: message})
}

type recordingListener struct {
	transitions []Transition
	err         error
}

func (l *recordingListener) PhaseChanged(t Transition) error {
	if l.err != nil {
		return l.err
	}
	l.transitions = append(l.transitions, t)
	return nil
}

var _ ratelimit.Clock = new(testClock)

// testClock implements a fake ratelimit.Clock for testing.
type testClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newTestClock(hour, minute int) *testClock {
	return &testClock{now: mkTime(hour, minute)}
}

// Now implements Clock.Now.
func (c *testClock) Now() time.Time {
	return c.now
}

// Sleep implements Clock.Sleep by moving the clock forward.
func (c *testClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func mkTime(hour, minute int) time.Time {
	return time.Date(2017, 1, 2, hour, minute, 0, 0, time.UTC)
}
