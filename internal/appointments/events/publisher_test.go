package events

import (
	"context"
	"errors"
	"testing"

	"autosnap/pkg/kafka"
	"autosnap/pkg/logger"
	"autosnap/pkg/middleware"
	"autosnap/pkg/model"
)

type mockProducer struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	return m.publishFunc(ctx, msg)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	var got kafka.Message
	p := &KafkaPublisher{
		producer: &mockProducer{publishFunc: func(_ context.Context, msg kafka.Message) error {
			got = msg
			return nil
		}},
		log: logger.Discard(),
	}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	event := &model.AppointmentEvent{
		Type:          model.EventAppointmentAccepted,
		AppointmentID: "dest-1",
		SourceID:      "src-1",
		Owner:         "center",
	}
	if err := p.Publish(ctx, event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if event.ID == "" || event.OccurredAt.IsZero() {
		t.Error("expected id and timestamp to be filled in")
	}
	if got.Key != "src-1" {
		t.Errorf("key = %q, want source id", got.Key)
	}
	if got.GetEventType() != string(model.EventAppointmentAccepted) {
		t.Errorf("event type header = %q", got.GetEventType())
	}
	if got.GetEventID() != event.ID {
		t.Errorf("event id header = %q, want %q", got.GetEventID(), event.ID)
	}
	if got.GetCorrelationID() != "req-42" {
		t.Errorf("correlation id = %q", got.GetCorrelationID())
	}

	var decoded model.AppointmentEvent
	if err := got.DecodeValue(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.AppointmentID != "dest-1" || decoded.Owner != "center" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestKafkaPublisher_PropagatesProducerError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{
		producer: &mockProducer{publishFunc: func(context.Context, kafka.Message) error { return boom }},
		log:      logger.Discard(),
	}

	err := p.Publish(context.Background(), &model.AppointmentEvent{Type: model.EventAppointmentCreated, AppointmentID: "a1"})
	if !errors.Is(err, boom) {
		t.Errorf("expected producer error, got %v", err)
	}
}

func TestNoopPublisher(t *testing.T) {
	if err := NewNoopPublisher().Publish(context.Background(), &model.AppointmentEvent{}); err != nil {
		t.Error(err)
	}
}
