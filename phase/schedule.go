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

package phase

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/TheCacophonyProject/window"
)

// ErrInvariant is returned when a Schedule is used without holding exactly
// two sorted triggers, with the earliest at midnight. It indicates a bug.
var ErrInvariant = errors.New("phase schedule invariant violated")

// Trigger marks the time of day at which a phase starts.
type Trigger struct {
	Start TimeOfDay
	Phase Phase
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s@%s", t.Phase, t.Start)
}

// Schedule maps any time of day to the active phase. Its triggers are
// rotated so the earliest one starts at midnight; comparisons then never
// need to deal with the cycle wrapping around.
//
// A Schedule is immutable once built and is safe for concurrent use.
type Schedule struct {
	dayStart   TimeOfDay
	nightStart TimeOfDay
	triggers   []Trigger
	zeroOffset time.Duration
}

// NewSchedule builds the schedule for the given phase start times. If both
// phases start at the same time, Day is active for the whole cycle.
func NewSchedule(dayStart, nightStart TimeOfDay) *Schedule {
	triggers := []Trigger{
		{Start: dayStart, Phase: Day},
		{Start: nightStart, Phase: Night},
	}
	sort.SliceStable(triggers, func(i, j int) bool {
		a, b := triggers[i], triggers[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Phase.tieRank() < b.Phase.tieRank()
	})

	zeroOffset := -triggers[0].Start.Duration()
	for i := range triggers {
		triggers[i].Start = triggers[i].Start.Add(zeroOffset)
	}

	return &Schedule{
		dayStart:   dayStart,
		nightStart: nightStart,
		triggers:   triggers,
		zeroOffset: zeroOffset,
	}
}

// DayStart returns the configured start of the day phase.
func (s *Schedule) DayStart() TimeOfDay {
	return s.dayStart
}

// NightStart returns the configured start of the night phase.
func (s *Schedule) NightStart() TimeOfDay {
	return s.nightStart
}

// ZeroOffset returns the shift that moves the earliest trigger to
// midnight. It is never positive.
func (s *Schedule) ZeroOffset() time.Duration {
	return s.zeroOffset
}

// Triggers returns the rotated triggers in ascending order.
func (s *Schedule) Triggers() []Trigger {
	return append([]Trigger(nil), s.triggers...)
}

// CurrentPhase returns the phase active at now.
func (s *Schedule) CurrentPhase(now time.Time) (Phase, error) {
	return s.PhaseAt(TimeOfDayOf(now))
}

// PhaseAt returns the phase active at the given time of day. A phase is
// active from its start time inclusive.
func (s *Schedule) PhaseAt(t TimeOfDay) (Phase, error) {
	if err := s.check(); err != nil {
		return Day, err
	}

	normalized := t.Add(s.zeroOffset)
	phase := s.triggers[0].Phase
	for _, trigger := range s.triggers {
		if !normalized.Before(trigger.Start) {
			phase = trigger.Phase
		}
	}
	return phase, nil
}

// UntilChange returns how long it is from now until the active phase next
// changes. It returns 0 if both phases start at the same time, in which case
// the phase never changes.
func (s *Schedule) UntilChange(now time.Time) (time.Duration, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if s.dayStart == s.nightStart {
		return 0, nil
	}

	// The day phase is the window from dayStart until nightStart. Both are
	// clock times so no location is needed.
	w, err := window.New(s.dayStart.String(), s.nightStart.String(), 0, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: day window: %v", ErrInvariant, err)
	}
	w.Now = func() time.Time { return now }
	if w.Active() {
		return w.UntilEnd(), nil
	}
	return w.Until(), nil
}

func (s *Schedule) check() error {
	if len(s.triggers) != 2 {
		return fmt.Errorf("%w: have %d triggers, want 2", ErrInvariant, len(s.triggers))
	}
	if s.triggers[0].Start != 0 {
		return fmt.Errorf("%w: first trigger starts at %s", ErrInvariant, s.triggers[0].Start)
	}
	if s.triggers[1].Start.Before(s.triggers[0].Start) {
		return fmt.Errorf("%w: triggers out of order", ErrInvariant)
	}
	return nil
}
