package gps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTTProvider waits for the first valid fix published by gps_producer.
type MQTTProvider struct {
	client mqtt.Client
	topic  string
}

// NewMQTTProvider returns a provider reading fixes from topic.
func NewMQTTProvider(client mqtt.Client, topic string) *MQTTProvider {
	return &MQTTProvider{client: client, topic: topic}
}

func (p *MQTTProvider) Locate(ctx context.Context) (Fix, error) {
	fixes := make(chan Fix, 1)
	var once sync.Once

	token := p.client.Subscribe(p.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fix, ok := DecodeFix(msg.Payload())
		if !ok {
			return
		}
		once.Do(func() { fixes <- fix })
	})
	token.Wait()
	if token.Error() != nil {
		return Fix{}, unavailable("subscribe %s: %w", p.topic, token.Error())
	}
	defer func() {
		if t := p.client.Unsubscribe(p.topic); t.Wait() && t.Error() != nil {
			log.Warn().Err(t.Error()).Str("topic", p.topic).Msg("gps: unsubscribe failed")
		}
	}()

	select {
	case <-ctx.Done():
		return Fix{}, ctx.Err()
	case fix := <-fixes:
		return fix, nil
	}
}

// DecodeFix parses a JSON fix and reports whether it is usable.
func DecodeFix(payload []byte) (Fix, bool) {
	var fix Fix
	if err := json.Unmarshal(payload, &fix); err != nil {
		log.Warn().Err(err).Msg("gps: fix unmarshal error")
		return Fix{}, false
	}
	if !fix.Valid() || fix.Point().Validate() != nil {
		return Fix{}, false
	}
	return fix, true
}

// Publish sends fix as retained JSON on topic.
func Publish(client mqtt.Client, topic string, fix Fix) error {
	payload, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal fix: %w", err)
	}
	token := client.Publish(topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}
