package live

import (
	"context"
	"sync"

	"autosnap/internal/appointments/reader"
	"autosnap/internal/appointments/service"
	"autosnap/pkg/docstore"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"
)

// Feed follows the private appointments of whoever is signed in. Each change
// delivers the whole collection, sorted, to the callback. Switching identity
// releases the previous subscription before the new one starts. The
// callback must not call back into the Feed.
type Feed struct {
	ctx      context.Context
	reader   *reader.Reader
	log      *logger.Logger
	onChange func([]*model.Appointment)

	mu       sync.Mutex
	identity string
	sub      *docstore.Subscription
	closed   bool
}

func NewFeed(ctx context.Context, r *reader.Reader, log *logger.Logger, onChange func([]*model.Appointment)) *Feed {
	return &Feed{ctx: ctx, reader: r, log: log, onChange: onChange}
}

// SetIdentity moves the feed to uid. An empty uid only releases the current
// subscription, as on sign-out.
func (f *Feed) SetIdentity(uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	if uid == f.identity && f.sub != nil && f.sub.Active() {
		return nil
	}

	if f.sub != nil {
		f.sub.Close()
		f.sub = nil
	}
	f.identity = uid
	if uid == "" {
		return nil
	}

	sub, err := f.reader.WatchAppointments(f.ctx, model.UserAppointmentsPath(uid), func(list []*model.Appointment) {
		service.SortByDateTime(list)
		f.onChange(list)
	})
	if err != nil {
		f.log.Error("Failed to subscribe to appointments", "owner", uid, "error", err)
		return err
	}
	f.sub = sub
	return nil
}

func (f *Feed) Identity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	if f.sub != nil {
		f.sub.Close()
		f.sub = nil
	}
}
