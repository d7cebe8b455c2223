// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/app"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/logging"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the KEY=VALUE config file")
	flag.Parse()

	level := "info"
	if err := config.InitGlobal(*configPath); err != nil {
		logging.Setup(level, true)
		log.Warn().Err(err).Msg("no usable config, running with defaults")
	} else {
		logging.Setup(config.Get().LogLevel, true)
	}

	log.Info().Msg("starting qibla-compass (mock console)")

	if err := app.RunMockConsole(); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
