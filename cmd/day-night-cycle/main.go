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
	"context"
	"fmt"
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/TheCacophonyProject/day-night-cycle/events"
	"github.com/TheCacophonyProject/day-night-cycle/monitor"
	"github.com/TheCacophonyProject/day-night-cycle/phase"
	"github.com/TheCacophonyProject/day-night-cycle/phasepin"
	"github.com/TheCacophonyProject/day-night-cycle/sink"
)

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	Day        string `arg:"--day" help:"start of the day phase as HH:MM, overrides the config file"`
	Night      string `arg:"--night" help:"start of the night phase as HH:MM, overrides the config file"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Verbose    bool   `arg:"-v,--verbose" help:"log every minute check"`
	Quiet      bool   `arg:"-q,--quiet" help:"only log warnings and errors"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/cacophony/day-night-cycle.yaml"
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal().Err(err).Msg("day-night-cycle stopped")
	}
}

func runMain() error {
	args := procArgs()
	logger := newLogger(args)
	log.Logger = logger

	logger.Info().Msgf("running version: %s", version)
	conf, err := ParseConfigFile(args.ConfigFile)
	if err != nil {
		return fmt.Errorf("config %s: %w", args.ConfigFile, err)
	}
	if err := conf.ApplyArgs(args.Day, args.Night); err != nil {
		return err
	}
	logConfig(logger, conf)

	schedule := phase.NewSchedule(conf.DayStart, conf.NightStart)

	ctx := context.Background()
	redisSink, err := sink.NewRedis(ctx, conf.Redis, logger)
	if err != nil {
		return err
	}
	defer redisSink.Close()

	m := monitor.New(schedule, redisSink, logger)
	if conf.PhasePin != "" {
		pin, err := phasepin.Open(conf.PhasePin, conf.PhasePinDayHigh, logger)
		if err != nil {
			return err
		}
		m.AddListener(pin)
	}
	if conf.ReportEvents {
		m.AddListener(events.NewReporter(logger))
	}

	if conf.DbusService {
		logger.Info().Msg("starting d-bus service")
		if err := startService(schedule); err != nil {
			return err
		}
	}

	if err := m.Start(ctx); err != nil {
		return err
	}
	daemon.SdNotify(false, "READY=1")
	m.SetTickFunc(func() { daemon.SdNotify(false, "WATCHDOG=1") })

	return m.Run(ctx)
}

func newLogger(args Args) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}
	if args.Timestamps {
		w.TimeFormat = "2006-01-02 15:04:05"
	} else {
		w.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	level := zerolog.InfoLevel
	switch {
	case args.Quiet:
		level = zerolog.WarnLevel
	case args.Verbose:
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func logConfig(logger zerolog.Logger, conf *Config) {
	logger.Info().Msgf("day starts: %s", conf.DayStart)
	logger.Info().Msgf("night starts: %s", conf.NightStart)
	if conf.DayStart == conf.NightStart {
		logger.Warn().Msg("day and night start at the same time, it will always be day")
	}
	logger.Info().Msgf("redis: %s", conf.Redis.RedactedURL())
	logger.Info().Msgf("d-bus service: %t", conf.DbusService)
	logger.Info().Msgf("report events: %t", conf.ReportEvents)
	if conf.PhasePin != "" {
		logger.Info().Msgf("phase pin: %s (high during the day: %t)", conf.PhasePin, conf.PhasePinDayHigh)
	}
}
