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

// Package phase models the two recurring daily phases, day and night, and
// works out which one is active at a given time.
package phase

import "fmt"

// Phase is one of the two recurring daily phases.
type Phase int

const (
	Day Phase = iota
	Night
)

// Phases lists every phase.
var Phases = []Phase{Day, Night}

func (p Phase) String() string {
	switch p {
	case Day:
		return "Day"
	case Night:
		return "Night"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Parse returns the phase with the given name.
func Parse(name string) (Phase, error) {
	for _, p := range Phases {
		if p.String() == name {
			return p, nil
		}
	}
	return Day, fmt.Errorf("unknown phase %q", name)
}

// tieRank orders phases whose triggers start at the same time. The trigger
// sorted last wins the whole cycle, so Day ranks after Night.
func (p Phase) tieRank() int {
	if p == Day {
		return 1
	}
	return 0
}
