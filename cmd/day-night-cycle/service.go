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

package main

import (
	"errors"
	"time"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/TheCacophonyProject/day-night-cycle/phase"
)

const (
	dbusName = "org.cacophony.daynightcycle"
	dbusPath = "/org/cacophony/daynightcycle"
)

// service answers from the schedule alone so it never shares state with
// the monitor loop.
type service struct {
	schedule *phase.Schedule
	now      func() time.Time
}

func startService(schedule *phase.Schedule) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		schedule: schedule,
		now:      time.Now,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// CurrentPhase returns "Day" or "Night".
func (s *service) CurrentPhase() (string, *dbus.Error) {
	p, err := s.schedule.CurrentPhase(s.now())
	if err != nil {
		return "", makeDbusError("CurrentPhase", err)
	}
	return p.String(), nil
}

// Schedule returns the day and night start times as HH:MM.
func (s *service) Schedule() (string, string, *dbus.Error) {
	return s.schedule.DayStart().String(), s.schedule.NightStart().String(), nil
}

// UntilChange returns the number of seconds until the phase next changes,
// or 0 if it never does.
func (s *service) UntilChange() (int64, *dbus.Error) {
	d, err := s.schedule.UntilChange(s.now())
	if err != nil {
		return 0, makeDbusError("UntilChange", err)
	}
	return int64(d / time.Second), nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + "." + name,
		Body: []interface{}{err.Error()},
	}
}
