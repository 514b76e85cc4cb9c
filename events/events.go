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

// Package events records phase changes with the Cacophony event reporter
// over D-Bus.
package events

import (
	"encoding/json"

	"github.com/godbus/dbus"
	"github.com/rs/zerolog"

	"github.com/TheCacophonyProject/day-night-cycle/monitor"
)

const (
	eventsName   = "org.cacophony.Events"
	eventsPath   = "/org/cacophony/Events"
	eventsMethod = eventsName + ".Queue"

	EventType = "dayNightCycle"
)

type busObject interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Reporter queues an event for every phase change. Failing to queue an
// event is logged and otherwise ignored.
type Reporter struct {
	connect func() (busObject, error)
	log     zerolog.Logger
}

var _ monitor.Listener = new(Reporter)

func NewReporter(logger zerolog.Logger) *Reporter {
	return &Reporter{
		connect: systemBusEvents,
		log:     logger.With().Str("component", "events").Logger(),
	}
}

func systemBusEvents() (busObject, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, err
	}
	return conn.Object(eventsName, eventsPath), nil
}

// PhaseChanged implements monitor.Listener. The initial phase is not
// reported.
func (r *Reporter) PhaseChanged(t monitor.Transition) error {
	if t.Initial {
		return nil
	}

	eventDetails := map[string]interface{}{
		"description": map[string]interface{}{
			"type": EventType,
			"details": map[string]interface{}{
				"from": t.From.String(),
				"to":   t.To.String(),
			},
		},
	}
	detailsJSON, err := json.Marshal(&eventDetails)
	if err != nil {
		r.log.Warn().Err(err).Msg("could not record phase change event")
		return nil
	}

	obj, err := r.connect()
	if err != nil {
		r.log.Warn().Err(err).Msg("could not record phase change event")
		return nil
	}
	call := obj.Call(eventsMethod, 0, detailsJSON, t.At.UnixNano())
	if call.Err != nil {
		r.log.Warn().Err(call.Err).Msg("could not record phase change event")
		return nil
	}
	return nil
}
