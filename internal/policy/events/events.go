// Package events publishes policy lifecycle transitions to Kafka.
// Publishing is fire-and-forget: a status change must never fail or
// block because the event stream is down.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Event is one lifecycle transition.
type Event struct {
	PolicyID string    `json:"policyId"`
	UserID   string    `json:"userId"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}

// Publisher emits lifecycle events. A nil *Kafka is a valid no-op
// publisher, so callers never need to branch on configuration.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Kafka publishes events with franz-go.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and makes sure the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is fine; anything else is logged but not fatal,
		// brokers with auto-creation will still accept produces.
		logger.WarnContext(ctx, "create lifecycle topic", "topic", topic, "error", err.Error())
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

func (k *Kafka) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		k.logger.ErrorContext(ctx, "encode lifecycle event", "error", err.Error())
		return
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.PolicyID),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("publish lifecycle event failed",
				"policy_id", event.PolicyID,
				"to", event.To,
				"error", err.Error(),
			)
		}
	})
}

func (k *Kafka) Close() {
	k.client.Close()
}
