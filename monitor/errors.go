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
	"errors"
	"fmt"
)

// ErrClock is returned when the time of the next check can't be worked out.
var ErrClock = errors.New("unable to compute next check time")

// SinkError reports a failed write to, or broadcast through, the sink.
type SinkError struct {
	Op     string
	Target string
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
