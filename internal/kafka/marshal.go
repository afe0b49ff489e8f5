package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-commerce-api/internal/events"
)

// Publisher is what domain code needs from a producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafka.Header)
}

// PublishEnvelope encodes env and queues it on p under key.
func PublishEnvelope(p Publisher, key []byte, env events.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	p.Publish(key, b,
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
	return nil
}

func DecodeEnvelope(m kafka.Message) (events.Envelope, error) {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
