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
	"fmt"
	"io/ioutil"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/TheCacophonyProject/day-night-cycle/phase"
	"github.com/TheCacophonyProject/day-night-cycle/sink"
)

type Config struct {
	DayStart        phase.TimeOfDay  `yaml:"day-start"`
	NightStart      phase.TimeOfDay  `yaml:"night-start"`
	Redis           sink.RedisConfig `yaml:"redis"`
	DbusService     bool             `yaml:"dbus-service"`
	ReportEvents    bool             `yaml:"report-events"`
	PhasePin        string           `yaml:"phase-pin"`
	PhasePinDayHigh bool             `yaml:"phase-pin-day-high"`
}

var defaultConfig = Config{
	DayStart:        phase.MustParseTimeOfDay("06:00"),
	NightStart:      phase.MustParseTimeOfDay("02:00"),
	Redis:           sink.DefaultRedisConfig(),
	DbusService:     true,
	ReportEvents:    true,
	PhasePin:        "",
	PhasePinDayHigh: true,
}

func (conf *Config) Validate() error {
	return conf.Redis.Validate()
}

// ParseConfigFile reads the config file. A missing file gives the default
// config.
func ParseConfigFile(filename string) (*Config, error) {
	buf, err := ioutil.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	conf := defaultConfig
	if err := yaml.UnmarshalStrict(buf, &conf); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// ApplyArgs overrides the phase start times with any given on the command
// line.
func (conf *Config) ApplyArgs(day, night string) error {
	if day != "" {
		t, err := phase.ParseTimeOfDay(day)
		if err != nil {
			return fmt.Errorf("invalid day-start: %v", err)
		}
		conf.DayStart = t
	}
	if night != "" {
		t, err := phase.ParseTimeOfDay(night)
		if err != nil {
			return fmt.Errorf("invalid night-start: %v", err)
		}
		conf.NightStart = t
	}
	return nil
}
