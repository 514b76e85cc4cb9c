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
	"fmt"
	"time"
)

const (
	// Cycle is the length of one full day/night cycle.
	Cycle = 24 * time.Hour

	timeLayout = "15:04"
)

// TimeOfDay is a point in the daily cycle, held as the time elapsed since
// midnight. Values are always within [0, Cycle).
type TimeOfDay time.Duration

// NewTimeOfDay returns the TimeOfDay for the given clock reading. Values
// outside the normal ranges wrap around the cycle.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	d := time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second
	return wrap(d)
}

// TimeOfDayOf returns the time of day of t in t's location, keeping
// sub-second precision.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second()).
		Add(time.Duration(t.Nanosecond()))
}

// ParseTimeOfDay parses a 24 hour "HH:MM" string. A single digit hour such
// as "6:00" is accepted.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute(), 0), nil
}

// MustParseTimeOfDay is like ParseTimeOfDay but panics on a bad value.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int {
	return int(time.Duration(t) / time.Hour)
}

func (t TimeOfDay) Minute() int {
	return int(time.Duration(t) % time.Hour / time.Minute)
}

func (t TimeOfDay) Second() int {
	return int(time.Duration(t) % time.Minute / time.Second)
}

// Duration returns the time elapsed since midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t)
}

// Add shifts t by d, wrapping around midnight in either direction.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return wrap(time.Duration(t) + d%Cycle)
}

// Before reports whether t comes earlier in the cycle than u.
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t < u
}

// String formats t as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// UnmarshalYAML reads a "HH:MM" string.
func (t *TimeOfDay) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var val string
	if err := unmarshal(&val); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(val)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func wrap(d time.Duration) TimeOfDay {
	d %= Cycle
	if d < 0 {
		d += Cycle
	}
	return TimeOfDay(d)
}
