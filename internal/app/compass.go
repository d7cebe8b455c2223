// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/orientation"
	"github.com/relabs-tech/qibla_compass/internal/session"
)

// CalibrationMessage is published on TOPIC_CALIBRATION. A relative message
// adjusts the current offset; otherwise the offset is replaced.
type CalibrationMessage struct {
	OffsetDeg float64 `json:"offset_deg"`
	Relative  bool    `json:"relative,omitempty"`
}

// applyCalibration applies msg to sess and returns the resulting offset.
func applyCalibration(sess *session.Session, msg CalibrationMessage) (float64, error) {
	if msg.Relative {
		return sess.AdjustCalibration(msg.OffsetDeg)
	}
	if err := sess.Recalibrate(msg.OffsetDeg); err != nil {
		return 0, err
	}
	return msg.OffsetDeg, nil
}

// runPipeline pulls samples from src into sess until ctx ends or src fails.
// Every accepted update is handed to emit; skipped samples are dropped silently.
func runPipeline(ctx context.Context, sess *session.Session, src orientation.Source, emit func(compass.Update) error) error {
	for {
		sample, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("orientation source: %w", err)
		}

		update, err := sess.HandleSample(sample)
		if errors.Is(err, compass.ErrSkipped) {
			continue
		}
		if err != nil {
			return err
		}

		if update.FacingChanged {
			log.Info().
				Bool("facing", update.IsFacing).
				Float64("heading", update.Heading).
				Msg("compass: facing changed")
		}
		if err := emit(update); err != nil {
			log.Warn().Err(err).Msg("compass: emit failed")
		}
	}
}

// RunCompass is the headless pipeline: one location fix, the bearing published
// retained on TOPIC_QIBLA, then orientation samples from TOPIC_ORIENTATION
// turned into updates on TOPIC_HEADING.
func RunCompass() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCompass)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signalContext()
	defer stop()

	provider, err := newLocationProvider(cfg, client)
	if err != nil {
		return err
	}
	namer, err := newNamer(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("compass: reverse geocoding disabled")
	}

	params, _ := cfg.PrayerParams()
	sess := session.New(session.Options{
		Target:   cfg.Target(),
		Provider: provider,
		Timeout:  cfg.LocationTimeout(),
		Tracker:  cfg.TrackerConfig(),
		Namer:    namer,
		Prayer:   params,
	})

	log.Info().Str("source", cfg.LocationSource).Msg("compass: waiting for location")
	qibla, err := sess.Start(ctx)
	if err != nil {
		return fmt.Errorf("compass: %w", err)
	}
	if err := publishJSON(client, cfg.TopicQibla, true, qibla); err != nil {
		return err
	}
	log.Info().
		Int("bearing", qibla.DisplayBearing).
		Int("distance_km", qibla.DisplayDistanceKm).
		Msg("compass: qibla published")

	err = subscribeJSON(client, cfg.TopicCalibration, func(msg CalibrationMessage) {
		offset, err := applyCalibration(sess, msg)
		if err != nil {
			log.Warn().Err(err).Msg("compass: calibration rejected")
			return
		}
		log.Info().Float64("offset", offset).Msg("compass: calibration applied")
	})
	if err != nil {
		return err
	}

	src, err := orientation.NewMQTTSource(client, cfg.TopicOrientation, 0)
	if err != nil {
		return err
	}

	err = runPipeline(ctx, sess, src, func(u compass.Update) error {
		return publishJSON(client, cfg.TopicHeading, false, u)
	})
	log.Info().Int64("dropped", src.Dropped()).Msg("compass: shutting down")
	return err
}
