package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/reader"
	"autosnap/pkg/docstore"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func set(t *testing.T, store docstore.Store, p docstore.Path, data map[string]any) {
	t.Helper()
	if err := store.Set(context.Background(), p, data); err != nil {
		t.Fatal(err)
	}
}

func newView(store docstore.Store, timeout time.Duration) *DateView {
	r := reader.New(store)
	return NewDateView(r, joiner.New(r, 2), timeout, logger.Discard())
}

func ids(list []*model.Appointment) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestDateView_DualFormatMergeAndSort(t *testing.T) {
	store := docstore.NewMemoryStore()
	set(t, store, model.AppointmentPath("g-display"), map[string]any{"date": "15.03.2024", "time": "11:00", "serviceCenterId": "center"})
	set(t, store, model.AppointmentPath("g-rejected"), map[string]any{"date": "15.03.2024", "time": "08:00", "serviceCenterId": "center", "status": "rejected"})
	set(t, store, model.AppointmentPath("g-other"), map[string]any{"date": "15.03.2024", "time": "08:00", "serviceCenterId": "other"})
	set(t, store, model.AppointmentPath("g-tomorrow"), map[string]any{"date": "16.03.2024", "time": "08:00", "serviceCenterId": "center"})
	set(t, store, model.UserAppointmentPath("center", "p-iso"), map[string]any{"date": "2024-03-15", "time": "09:00"})
	set(t, store, model.UserAppointmentPath("center", "p-badtime"), map[string]any{"date": "2024-03-15", "time": "noon"})
	set(t, store, model.UserAppointmentPath("center", "p-display"), map[string]any{"date": "15.03.2024", "time": "07:45"})

	got, err := newView(store, time.Second).Load(context.Background(), "center", day)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"p-display", "p-iso", "g-display", "p-badtime"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("got %v, want %v", ids(got), want)
			break
		}
	}
}

func TestDateView_AcceptedSourceShownOnce(t *testing.T) {
	store := docstore.NewMemoryStore()
	set(t, store, model.AppointmentPath("g1"), map[string]any{"date": "15.03.2024", "time": "10:00", "serviceCenterId": "center"})
	set(t, store, model.UserAppointmentPath("center", "dest"), map[string]any{"date": "2024-03-15", "time": "10:00", "sourceId": "g1"})

	got, err := newView(store, time.Second).Load(context.Background(), "center", day)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "dest" {
		t.Errorf("got %v, want [dest]", ids(got))
	}
}

type slowStore struct {
	docstore.Store
	delay time.Duration
}

func (s *slowStore) List(ctx context.Context, p docstore.Path) ([]*docstore.Document, error) {
	select {
	case <-time.After(s.delay):
		return s.Store.List(ctx, p)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestDateView_LoadingTimeout(t *testing.T) {
	store := &slowStore{Store: docstore.NewMemoryStore(), delay: time.Second}

	_, err := newView(store, 20*time.Millisecond).Load(context.Background(), "center", day)
	if !apperrors.HasCode(err, apperrors.CodeTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestDateView_Joined(t *testing.T) {
	store := docstore.NewMemoryStore()
	set(t, store, model.UserClientPath("center", "c1"), map[string]any{"name": "Dana"})
	set(t, store, model.UserAppointmentPath("center", "p1"), map[string]any{"date": "2024-03-15", "time": "09:00", "clientId": "c1"})
	set(t, store, model.UserAppointmentPath("center", "p2"), map[string]any{"date": "2024-03-15", "time": "10:00", "clientId": "ghost"})

	joined, err := newView(store, time.Second).Joined(context.Background(), "center", day)
	if err != nil {
		t.Fatalf("Joined() error = %v", err)
	}
	if len(joined) != 2 || !joined[0].ClientFound || joined[1].ClientFound {
		t.Errorf("joined = %+v", joined)
	}
}

func TestComputeStats(t *testing.T) {
	list := []*model.Appointment{
		{ID: "1", Date: "2024-03-15", TotalPrice: 100},
		{ID: "2", Date: "15.03.2024", TotalPrice: 200},
		{ID: "3", Date: "2024-03-14", TotalPrice: 50},
		{ID: "4", Date: "garbage", TotalPrice: 10},
	}

	stats := ComputeStats(list, day)
	if stats.Total != 4 || stats.Revenue != 360 {
		t.Errorf("totals = %d / %d", stats.Total, stats.Revenue)
	}
	if stats.Today != 2 || stats.TodayRevenue != 300 {
		t.Errorf("today = %d / %d", stats.Today, stats.TodayRevenue)
	}
	if len(stats.PerDay) != 2 {
		t.Fatalf("PerDay = %+v", stats.PerDay)
	}
	if stats.PerDay[0] != (DayStats{Date: "2024-03-14", Count: 1, Revenue: 50}) {
		t.Errorf("PerDay[0] = %+v", stats.PerDay[0])
	}
	if stats.PerDay[1] != (DayStats{Date: "2024-03-15", Count: 2, Revenue: 300}) {
		t.Errorf("PerDay[1] = %+v", stats.PerDay[1])
	}
}

type recorder struct {
	mu    sync.Mutex
	lists [][]*model.Appointment
}

func (r *recorder) record(list []*model.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, list)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lists)
}

func (r *recorder) last() []*model.Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

func TestFeed_SortedDeliveries(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	rec := &recorder{}
	feed := NewFeed(ctx, reader.New(store), logger.Discard(), rec.record)
	defer feed.Close()

	if err := feed.SetIdentity("u1"); err != nil {
		t.Fatal(err)
	}
	set(t, store, model.UserAppointmentPath("u1", "b"), map[string]any{"date": "2024-03-15", "time": "12:00"})
	set(t, store, model.UserAppointmentPath("u1", "a"), map[string]any{"date": "2024-03-15", "time": "09:00"})

	last := rec.last()
	if len(last) != 2 || last[0].ID != "a" || last[1].ID != "b" {
		t.Errorf("last delivery = %v", ids(last))
	}
}

func TestFeed_ResubscribesOnIdentityChange(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	rec := &recorder{}
	feed := NewFeed(ctx, reader.New(store), logger.Discard(), rec.record)

	if err := feed.SetIdentity("u1"); err != nil {
		t.Fatal(err)
	}
	if store.WatcherCount() != 1 {
		t.Fatalf("watchers = %d, want 1", store.WatcherCount())
	}

	if err := feed.SetIdentity("u2"); err != nil {
		t.Fatal(err)
	}
	if store.WatcherCount() != 1 || feed.Identity() != "u2" {
		t.Fatalf("watchers = %d identity = %q", store.WatcherCount(), feed.Identity())
	}

	before := rec.count()
	set(t, store, model.UserAppointmentPath("u1", "x"), map[string]any{"time": "10:00"})
	if rec.count() != before {
		t.Error("old identity's changes must not be delivered")
	}
	set(t, store, model.UserAppointmentPath("u2", "y"), map[string]any{"time": "10:00"})
	if rec.count() != before+1 {
		t.Error("new identity's changes should be delivered")
	}

	if err := feed.SetIdentity(""); err != nil {
		t.Fatal(err)
	}
	if store.WatcherCount() != 0 {
		t.Errorf("sign-out should release the watch, watchers = %d", store.WatcherCount())
	}

	feed.Close()
	if err := feed.SetIdentity("u3"); err != nil || store.WatcherCount() != 0 {
		t.Error("closed feed must not subscribe again")
	}
}
