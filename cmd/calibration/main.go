// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibration/main.go
//
// Compass calibration against a known reference bearing.
//
// Point the device at a landmark whose true bearing you know and run:
//
//	go run ./cmd/calibration -reference 123.4
//
// The current heading is taken from the next update on TOPIC_HEADING (or from
// -observed) and the correction is published on TOPIC_CALIBRATION, where the
// compass pipeline adds it to its calibration offset.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/app"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the KEY=VALUE config file")
	reference := flag.Float64("reference", -1, "true bearing of the landmark the device points at, degrees [0,360)")
	observed := flag.Float64("observed", -1, "heading currently shown; read from MQTT when omitted")
	wait := flag.Duration("wait", 10*time.Second, "how long to wait for a heading update")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Setup(config.Get().LogLevel, true)

	if *reference < 0 || *reference >= 360 {
		log.Fatal().Float64("reference", *reference).Msg("-reference must be in [0,360)")
	}

	req := app.CalibrationRequest{ReferenceDeg: *reference, Wait: *wait}
	if *observed >= 0 {
		req.Observed = observed
	}

	msg, err := app.RunCalibration(req)
	if err != nil {
		log.Fatal().Err(err).Msg("calibration failed")
	}
	fmt.Printf("published correction of %+.2f°\n", msg.OffsetDeg)
}
