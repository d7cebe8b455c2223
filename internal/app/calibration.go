// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/compass"
	"github.com/relabs-tech/qibla_compass/internal/config"
)

// CalibrationRequest describes one calibration run. With Observed unset the
// current heading is taken from the next update on TOPIC_HEADING.
type CalibrationRequest struct {
	ReferenceDeg float64
	Observed     *float64
	Wait         time.Duration
}

// calibrationFor builds the relative correction that makes observed read as reference.
func calibrationFor(reference, observed float64) CalibrationMessage {
	return CalibrationMessage{OffsetDeg: compass.OffsetFor(reference, observed), Relative: true}
}

// RunCalibration publishes a calibration correction on TOPIC_CALIBRATION.
func RunCalibration(req CalibrationRequest) (CalibrationMessage, error) {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCalibration)
	if err != nil {
		return CalibrationMessage{}, err
	}
	defer client.Disconnect(250)

	observed := 0.0
	if req.Observed != nil {
		observed = *req.Observed
	} else {
		observed, err = waitForHeading(client, cfg.TopicHeading, req.Wait)
		if err != nil {
			return CalibrationMessage{}, err
		}
	}

	msg := calibrationFor(req.ReferenceDeg, observed)
	if err := publishJSON(client, cfg.TopicCalibration, false, msg); err != nil {
		return CalibrationMessage{}, err
	}
	log.Info().
		Float64("reference", req.ReferenceDeg).
		Float64("observed", observed).
		Float64("delta", msg.OffsetDeg).
		Msg("calibration: correction published")
	return msg, nil
}

func waitForHeading(client mqtt.Client, topic string, wait time.Duration) (float64, error) {
	if wait <= 0 {
		wait = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	headings := make(chan float64, 1)
	err := subscribeJSON(client, topic, func(u compass.Update) {
		select {
		case headings <- u.Heading:
		default:
		}
	})
	if err != nil {
		return 0, err
	}
	defer client.Unsubscribe(topic)

	log.Info().Str("topic", topic).Msg("calibration: waiting for a heading update")
	select {
	case h := <-headings:
		return h, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("no heading on %s within %s: %w", topic, wait, ctx.Err())
	}
}
