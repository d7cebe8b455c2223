package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/qibla_compass/internal/config"
	"github.com/relabs-tech/qibla_compass/internal/orientation"
)

// eventFromSample renders a sample the way a browser without a compass
// heading reports it: counter-clockwise alpha referenced to north.
func eventFromSample(s orientation.Sample) orientation.Event {
	return orientation.Event{
		Alpha:       orientation.Float(360 - s.HeadingDegrees),
		Absolute:    true,
		TimestampMs: s.TimestampMs,
	}
}

// RunMockProducer publishes mock orientation events on TOPIC_ORIENTATION.
func RunMockProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signalContext()
	defer stop()

	src := orientation.NewMockSource(time.Duration(cfg.MockSampleInterval) * time.Millisecond)
	for {
		sample, err := src.Next(ctx)
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("producer: shutting down")
			return nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("producer: mock source error")
			continue
		}

		if err := publishJSON(client, cfg.TopicOrientation, false, eventFromSample(sample)); err != nil {
			log.Warn().Err(err).Msg("producer: publish error")
			continue
		}
		log.Trace().Float64("heading", sample.HeadingDegrees).Msg("producer: published event")
	}
}
