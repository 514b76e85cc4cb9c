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

// Package phasepin drives a GPIO pin to follow the current phase, so a
// relay or light can be switched directly at day and night.
package phasepin

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/TheCacophonyProject/day-night-cycle/monitor"
	"github.com/TheCacophonyProject/day-night-cycle/phase"
)

// Pin sets an output level for each phase.
type Pin struct {
	pin     gpio.PinOut
	dayHigh bool
	log     zerolog.Logger
}

var _ monitor.Listener = new(Pin)

// Open initialises the host and looks up the named pin. If dayHigh is
// set the pin is high during the day, otherwise it is high at night.
func Open(name string, dayHigh bool, logger zerolog.Logger) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host initialisation: %v", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no gpio pin named %q", name)
	}
	return New(p, dayHigh, logger), nil
}

func New(pin gpio.PinOut, dayHigh bool, logger zerolog.Logger) *Pin {
	return &Pin{
		pin:     pin,
		dayHigh: dayHigh,
		log:     logger.With().Str("component", "phasepin").Stringer("pin", pin).Logger(),
	}
}

// Level returns the output level for p.
func (pin *Pin) Level(p phase.Phase) gpio.Level {
	return gpio.Level((p == phase.Day) == pin.dayHigh)
}

// PhaseChanged implements monitor.Listener.
func (pin *Pin) PhaseChanged(t monitor.Transition) error {
	level := pin.Level(t.To)
	pin.log.Debug().Stringer("level", level).Msgf("setting pin for %s", t.To)
	if err := pin.pin.Out(level); err != nil {
		return fmt.Errorf("failed to set phase pin %s: %v", level, err)
	}
	return nil
}
