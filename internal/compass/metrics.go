package compass

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/relabs-tech/qibla_compass/internal/compass"

const (
	reasonThrottled = "throttled"
	reasonInvalid   = "invalid"
)

type metrics struct {
	acceptedCount metric.Int64Counter
	skippedCount  metric.Int64Counter
	transitions   metric.Int64Counter
}

// newMetrics registers counters on the global meter provider. Without an
// installed provider these are no-ops.
func newMetrics() *metrics {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.acceptedCount, err = m.Int64Counter(
		"compass.samples.accepted",
		metric.WithDescription("Orientation samples applied to the tracker"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("compass: accepted counter")
	}
	out.skippedCount, err = m.Int64Counter(
		"compass.samples.skipped",
		metric.WithDescription("Orientation samples skipped by throttle or validation"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("compass: skipped counter")
	}
	out.transitions, err = m.Int64Counter(
		"compass.facing.transitions",
		metric.WithDescription("Edge-triggered facing state changes"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("compass: transitions counter")
	}
	return out
}

func (m *metrics) accepted() {
	if m.acceptedCount != nil {
		m.acceptedCount.Add(context.Background(), 1)
	}
}

func (m *metrics) skipped(reason string) {
	if m.skippedCount != nil {
		m.skippedCount.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *metrics) transition(facing bool) {
	if m.transitions == nil {
		return
	}
	state := "not_facing"
	if facing {
		state = "facing"
	}
	m.transitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("state", state)))
}
