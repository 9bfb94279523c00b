// Package events publishes appointment lifecycle transitions to Kafka.
package events

import (
	"context"
	"time"

	"autosnap/pkg/kafka"
	"autosnap/pkg/logger"
	"autosnap/pkg/middleware"
	"autosnap/pkg/model"

	"github.com/google/uuid"
)

const (
	SchemaVersion = "1"
	Source        = "appointments-service"
)

type Publisher interface {
	Publish(ctx context.Context, event *model.AppointmentEvent) error
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, *model.AppointmentEvent) error {
	return nil
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log}
}

// Publish keys the message by appointment id so every transition of one
// appointment lands on the same partition. Missing id and timestamp are
// filled in.
func (p *KafkaPublisher) Publish(ctx context.Context, event *model.AppointmentEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	key := event.AppointmentID
	if event.SourceID != "" {
		key = event.SourceID
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(string(event.Type)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		Build()
	if err != nil {
		return err
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return err
	}
	p.log.Debug("Published appointment event", "type", event.Type, "appointment_id", event.AppointmentID)
	return nil
}
