package orientation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTTSource receives raw orientation events published on a topic.
type MQTTSource struct {
	samples chan Sample
	dropped atomic.Int64
}

// NewMQTTSource subscribes to topic and returns a Source fed by it.
// Samples that arrive while the buffer is full are dropped; the tracker
// throttles far below any realistic buffer size anyway.
func NewMQTTSource(client mqtt.Client, topic string, buffer int) (*MQTTSource, error) {
	s := newMQTTSource(buffer)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.HandlePayload(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Info().Str("topic", topic).Msg("orientation: subscribed")
	return s, nil
}

func newMQTTSource(buffer int) *MQTTSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &MQTTSource{samples: make(chan Sample, buffer)}
}

// HandlePayload decodes one JSON Event and queues the normalized sample.
func (s *MQTTSource) HandlePayload(payload []byte) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		log.Warn().Err(err).Msg("orientation: event unmarshal error")
		return
	}
	sample, err := Normalize(e)
	if err != nil {
		log.Debug().Err(err).Msg("orientation: dropping event")
		return
	}
	select {
	case s.samples <- sample:
	default:
		s.dropped.Add(1)
	}
}

// Next blocks until a sample arrives or ctx is done.
func (s *MQTTSource) Next(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case sample := <-s.samples:
		return sample, nil
	}
}

// Dropped reports how many samples were discarded because the buffer was full.
func (s *MQTTSource) Dropped() int64 {
	return s.dropped.Load()
}
