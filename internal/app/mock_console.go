// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/orientation"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

// RunMockConsole runs the whole pipeline locally: a static location, the
// rotating mock orientation source and the tracker, printed to stdout.
func RunMockConsole() error {
	cfg := config.Get()
	if cfg == nil {
		cfg = config.Default()
	}
	return runMockConsole(os.Stdout, cfg)
}

func runMockConsole(w io.Writer, cfg *config.Config) error {
	ctx, stop := signalContext()
	defer stop()

	origin := cfg.StaticPoint()
	if cfg.LocationSource != config.LocationStatic {
		origin = defaultConsoleOrigin
	}
	params, _ := cfg.PrayerParams()
	sess := session.New(session.Options{
		Target:   cfg.Target(),
		Provider: gps.StaticProvider{Point: origin},
		Tracker:  cfg.TrackerConfig(),
		Prayer:   params,
	})
	qibla, err := sess.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, FormatQibla(qibla))
	if qibla.Prayer != nil {
		fmt.Fprintln(w, FormatPrayer(*qibla.Prayer, cfg.TrackerConfig().Language, time.Local))
	}

	src := orientation.NewMockSource(time.Duration(cfg.MockSampleInterval) * time.Millisecond)
	return runPipeline(ctx, sess, src, func(u compass.Update) error {
		_, err := fmt.Fprintln(w, FormatUpdate(u, cfg.TrackerConfig().Language))
		return err
	})
}
