package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/reader"
	"autosnap/internal/appointments/service"
	"autosnap/internal/appointments/validator"
	"autosnap/pkg/config"
	"autosnap/pkg/docstore"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/kafka"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"
	"autosnap/pkg/monitoring"
)

type mockService struct {
	service.AppointmentService
	acceptFunc func(ctx context.Context, owner, id string) (*model.Appointment, error)
}

func (m *mockService) Accept(ctx context.Context, owner, id string) (*model.Appointment, error) {
	return m.acceptFunc(ctx, owner, id)
}

type mockNotifier struct {
	mu    sync.Mutex
	sent  map[string]string
	err   error
	calls int
}

func (m *mockNotifier) Notify(_ context.Context, phone, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[phone] = body
	return nil
}

func eventMessage(t *testing.T, event model.AppointmentEvent) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Key: event.AppointmentID, Value: value}
}

func newHandler(t *testing.T, svc service.AppointmentService, n *mockNotifier) (*EventHandler, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, model.UserClientPath("center", "c1"), map[string]any{"name": "Dana", "phone": "+972501234567"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, model.ClientPath("c2"), map[string]any{"name": "Omer", "phone": "+972507654321"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, model.ClientPath("c3"), map[string]any{"name": "No phone"}); err != nil {
		t.Fatal(err)
	}
	return NewEventHandler(svc, joiner.New(reader.New(store), 2), n, logger.Discard()), store
}

func kafkaErrorType(err error) kafka.ErrorType {
	var kerr *kafka.KafkaError
	if errors.As(err, &kerr) {
		return kerr.Type
	}
	return kafka.ErrorTypeUnknown
}

func TestHandle_AcceptIncompleteRetriesAccept(t *testing.T) {
	var gotOwner, gotID string
	svc := &mockService{acceptFunc: func(_ context.Context, owner, id string) (*model.Appointment, error) {
		gotOwner, gotID = owner, id
		return &model.Appointment{ID: service.DestinationID(id)}, nil
	}}
	h, _ := newHandler(t, svc, &mockNotifier{})

	err := h.Handle(context.Background(), eventMessage(t, model.AppointmentEvent{
		Type:          model.EventAppointmentAcceptIncomplete,
		AppointmentID: service.DestinationID("a1"),
		SourceID:      "a1",
		Owner:         "center",
	}))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotOwner != "center" || gotID != "a1" {
		t.Errorf("expected Accept(center, a1), got Accept(%s, %s)", gotOwner, gotID)
	}
}

func TestHandle_AcceptIncompleteErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantNil  bool
		wantType kafka.ErrorType
	}{
		{name: "source already gone", err: apperrors.NotFoundWithID("Appointment", "a1"), wantNil: true},
		{name: "forbidden", err: apperrors.Forbidden("nope"), wantType: kafka.ErrorTypeBusiness},
		{name: "conflict", err: apperrors.Conflict("rejected"), wantType: kafka.ErrorTypeBusiness},
		{name: "still failing", err: apperrors.PartialFailure("again", errors.New("io"), nil), wantType: kafka.ErrorTypeTransient},
		{name: "internal", err: apperrors.Internal("store", errors.New("io")), wantType: kafka.ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{acceptFunc: func(context.Context, string, string) (*model.Appointment, error) {
				return nil, tt.err
			}}
			h, _ := newHandler(t, svc, &mockNotifier{})

			err := h.Handle(context.Background(), eventMessage(t, model.AppointmentEvent{
				Type:     model.EventAppointmentAcceptIncomplete,
				SourceID: "a1",
				Owner:    "center",
			}))
			if tt.wantNil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if got := kafkaErrorType(err); got != tt.wantType {
				t.Errorf("expected error type %d, got %d (%v)", tt.wantType, got, err)
			}
		})
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.EventType
}

func (p *recordingPublisher) Publish(_ context.Context, event *model.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.Type)
	return nil
}

func (p *recordingPublisher) count(t model.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == t {
			n++
		}
	}
	return n
}

func TestHandle_AcceptIncompleteRetryDoesNotRepublish(t *testing.T) {
	mem := docstore.NewMemoryStore()
	ctx := context.Background()
	if err := mem.Set(ctx, model.UserServicePath("center", "s1"), map[string]any{"name": "Oil", "price": 500}); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set(ctx, model.AppointmentPath("a1"), map[string]any{
		"clientId":        "c1",
		"carId":           "car1",
		"serviceIds":      []any{"s1"},
		"date":            "15.03.2024",
		"time":            "10:00",
		"totalPrice":      500,
		"serviceCenterId": "center",
		"status":          "pending",
	}); err != nil {
		t.Fatal(err)
	}

	store := failingDeleteStore{Store: mem}
	publisher := &recordingPublisher{}
	svc := service.NewAppointmentService(
		store,
		joiner.New(reader.New(store), 2),
		validator.NewAppointmentValidator(),
		publisher,
		monitoring.NewNoopReporter(),
		&config.Config{Log: logger.Discard(), DateParseMode: config.DateParseLenient},
	)
	h := NewEventHandler(svc, joiner.New(reader.New(store), 2), &mockNotifier{}, logger.Discard())

	msg := eventMessage(t, model.AppointmentEvent{
		Type:          model.EventAppointmentAcceptIncomplete,
		AppointmentID: service.DestinationID("a1"),
		SourceID:      "a1",
		Owner:         "center",
	})
	for i := 0; i < 4; i++ {
		err := h.Handle(ctx, msg)
		if got := kafkaErrorType(err); got != kafka.ErrorTypeTransient {
			t.Fatalf("attempt %d: error type = %v (%v), want transient", i, got, err)
		}
	}

	if n := publisher.count(model.EventAppointmentAcceptIncomplete); n != 0 {
		t.Errorf("accept_incomplete published %d times, want 0", n)
	}
	private, err := mem.List(ctx, model.UserAppointmentsPath("center"))
	if err != nil {
		t.Fatal(err)
	}
	if len(private) != 1 {
		t.Errorf("private records = %d, want 1", len(private))
	}
	if _, err := mem.Get(ctx, model.AppointmentPath("a1")); err != nil {
		t.Errorf("source should remain for the sweep, got %v", err)
	}
}

func TestHandle_AcceptIncompleteWithoutSource(t *testing.T) {
	h, _ := newHandler(t, &mockService{}, &mockNotifier{})

	err := h.Handle(context.Background(), eventMessage(t, model.AppointmentEvent{
		Type:  model.EventAppointmentAcceptIncomplete,
		Owner: "center",
	}))
	if got := kafkaErrorType(err); got != kafka.ErrorTypePermanent {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestHandle_UndecodableMessageIsPermanent(t *testing.T) {
	h, _ := newHandler(t, &mockService{}, &mockNotifier{})

	err := h.Handle(context.Background(), kafka.Message{Key: "k", Value: []byte("{broken")})
	if got := kafkaErrorType(err); got != kafka.ErrorTypePermanent {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestHandle_NotifiesClient(t *testing.T) {
	tests := []struct {
		name      string
		event     model.AppointmentEvent
		wantPhone string
		wantText  string
	}{
		{
			name: "accepted center client",
			event: model.AppointmentEvent{
				Type:     model.EventAppointmentAccepted,
				Owner:    "center",
				ClientID: "c1",
				Date:     "2024-03-15",
				Time:     "09:30",
			},
			wantPhone: "+972501234567",
			wantText:  "15.03.2024 09:30 is confirmed",
		},
		{
			name: "rejected global client",
			event: model.AppointmentEvent{
				Type:            model.EventAppointmentRejected,
				Owner:           "center",
				ServiceCenterID: "center",
				ClientID:        "c2",
				Date:            "16.03.2024",
				Time:            "10:00",
			},
			wantPhone: "+972507654321",
			wantText:  "16.03.2024 10:00 was declined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &mockNotifier{}
			h, _ := newHandler(t, &mockService{}, n)

			if err := h.Handle(context.Background(), eventMessage(t, tt.event)); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			body, ok := n.sent[tt.wantPhone]
			if !ok {
				t.Fatalf("expected message to %s, got %v", tt.wantPhone, n.sent)
			}
			if !strings.Contains(body, tt.wantText) {
				t.Errorf("expected body to contain %q, got %q", tt.wantText, body)
			}
		})
	}
}

func TestHandle_SkipsClientWithoutPhone(t *testing.T) {
	n := &mockNotifier{}
	h, _ := newHandler(t, &mockService{}, n)

	for _, clientID := range []string{"c3", "missing"} {
		err := h.Handle(context.Background(), eventMessage(t, model.AppointmentEvent{
			Type:     model.EventAppointmentAccepted,
			Owner:    "center",
			ClientID: clientID,
		}))
		if err != nil {
			t.Fatalf("client %s: expected no error, got %v", clientID, err)
		}
	}
	if n.calls != 0 {
		t.Errorf("expected no notifications, got %d", n.calls)
	}
}

func TestHandle_NotifyFailureIsTransient(t *testing.T) {
	n := &mockNotifier{err: errors.New("twilio down")}
	h, _ := newHandler(t, &mockService{}, n)

	err := h.Handle(context.Background(), eventMessage(t, model.AppointmentEvent{
		Type:     model.EventAppointmentAccepted,
		Owner:    "center",
		ClientID: "c1",
	}))
	if got := kafkaErrorType(err); got != kafka.ErrorTypeTransient {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	n := &mockNotifier{}
	h, _ := newHandler(t, &mockService{}, n)

	for _, typ := range []model.EventType{model.EventAppointmentCreated, model.EventAppointmentDeleted} {
		if err := h.Handle(context.Background(), eventMessage(t, model.AppointmentEvent{Type: typ, ClientID: "c1", Owner: "center"})); err != nil {
			t.Errorf("%s: expected no error, got %v", typ, err)
		}
	}
	if n.calls != 0 {
		t.Errorf("expected no notifications, got %d", n.calls)
	}
}

func seedSweep(t *testing.T, store docstore.Store) {
	t.Helper()
	ctx := context.Background()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	// a1 was accepted but its source survived
	must(store.Set(ctx, model.AppointmentPath("a1"), map[string]any{"clientId": "c1", "serviceCenterId": "center", "status": "pending"}))
	must(store.Set(ctx, model.UserAppointmentPath("center", service.DestinationID("a1")), map[string]any{"clientId": "c1", "sourceId": "a1", "status": "confirmed"}))
	// a2 is still waiting
	must(store.Set(ctx, model.AppointmentPath("a2"), map[string]any{"clientId": "c2", "serviceCenterId": "center", "status": "pending"}))
	// a3 was rejected
	must(store.Set(ctx, model.AppointmentPath("a3"), map[string]any{"clientId": "c3", "serviceCenterId": "center", "status": "rejected"}))
}

func TestSweep_RemovesAcceptedSources(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedSweep(t, store)
	s := NewSweeper(store, logger.Discard())

	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}

	ctx := context.Background()
	if _, err := store.Get(ctx, model.AppointmentPath("a1")); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected a1 removed, got %v", err)
	}
	for _, id := range []string{"a2", "a3"} {
		if _, err := store.Get(ctx, model.AppointmentPath(id)); err != nil {
			t.Errorf("expected %s kept, got %v", id, err)
		}
	}
	if _, err := store.Get(ctx, model.UserAppointmentPath("center", service.DestinationID("a1"))); err != nil {
		t.Errorf("expected accepted copy kept, got %v", err)
	}

	removed, err = s.Sweep(ctx)
	if err != nil || removed != 0 {
		t.Errorf("expected second sweep to be a no-op, got %d, %v", removed, err)
	}
}

type failingDeleteStore struct {
	docstore.Store
}

func (failingDeleteStore) Delete(context.Context, docstore.Path) error {
	return errors.New("permission denied")
}

func TestSweep_ReportsDeleteFailures(t *testing.T) {
	mem := docstore.NewMemoryStore()
	seedSweep(t, mem)
	s := NewSweeper(failingDeleteStore{Store: mem}, logger.Discard())

	removed, err := s.Sweep(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}
}

type mockConsumer struct {
	started chan struct{}
	closed  bool
}

func (m *mockConsumer) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockConsumer) Close() error {
	m.closed = true
	return nil
}

func TestRun_SweepsOnStartAndStopsWithContext(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedSweep(t, store)
	c := &mockConsumer{started: make(chan struct{})}
	r := New(c, NewSweeper(store, logger.Discard()), "@every 1h", time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-c.started:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not started")
	}

	if _, err := store.Get(context.Background(), model.AppointmentPath("a1")); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected startup sweep to remove a1, got %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if !c.closed {
		t.Error("expected consumer to be closed")
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	r := New(nil, NewSweeper(docstore.NewMemoryStore(), logger.Discard()), "not a schedule", time.Second, logger.Discard())

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

var _ Consumer = (*kafka.Consumer)(nil)

func TestRun_WithoutConsumerOnlySweeps(t *testing.T) {
	store := docstore.NewMemoryStore()
	seedSweep(t, store)
	var c Consumer
	r := New(c, NewSweeper(store, logger.Discard()), "@every 1h", time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := store.Get(context.Background(), model.AppointmentPath("a1"))
		if errors.Is(err, docstore.ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("startup sweep did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}
