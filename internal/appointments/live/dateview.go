// Package live serves appointment views that track the store: one-shot date
// views bounded by a loading timeout and long-lived feeds bound to the
// signed-in identity.
package live

import (
	"context"
	"errors"
	"time"

	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/reader"
	"autosnap/internal/appointments/service"
	"autosnap/pkg/dates"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"

	"golang.org/x/sync/errgroup"
)

type DateView struct {
	reader  *reader.Reader
	joiner  *joiner.Joiner
	timeout time.Duration
	log     *logger.Logger
}

func NewDateView(r *reader.Reader, j *joiner.Joiner, loadingTimeout time.Duration, log *logger.Logger) *DateView {
	return &DateView{reader: r, joiner: j, timeout: loadingTimeout, log: log}
}

// Load returns the owner's appointments on day: pending and confirmed
// requests addressed to the owner in the global collection plus the owner's
// private records. Dates stored in either encoding match. Rejected requests
// are left out, and a global request whose accepted copy is already in the
// private collection is shown once.
func (v *DateView) Load(ctx context.Context, owner string, day time.Time) ([]*model.Appointment, error) {
	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	formats := dates.DualFormats(day)
	var global, private []*model.Appointment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := v.reader.Appointments(gctx, model.AppointmentsRoot)
		if err != nil {
			return err
		}
		for _, a := range all {
			if a.ServiceCenterID == owner && a.Status != model.StatusRejected && formats.Matches(a.Date) {
				global = append(global, a)
			}
		}
		return nil
	})
	g.Go(func() error {
		all, err := v.reader.Appointments(gctx, model.UserAppointmentsPath(owner))
		if err != nil {
			return err
		}
		for _, a := range all {
			if formats.Matches(a.Date) {
				private = append(private, a)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, v.loadError(ctx, owner, err)
	}

	merged := merge(global, private)
	v.sort(merged)
	return merged, nil
}

// Joined is Load with client, car and services resolved.
func (v *DateView) Joined(ctx context.Context, owner string, day time.Time) ([]*joiner.Joined, error) {
	list, err := v.Load(ctx, owner, day)
	if err != nil {
		return nil, err
	}

	ctx, cancel := v.withTimeout(ctx)
	defer cancel()

	joined, err := v.joiner.ResolveAll(ctx, list, owner)
	if err != nil {
		return nil, v.loadError(ctx, owner, err)
	}
	return joined, nil
}

func (v *DateView) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if v.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, v.timeout)
}

func (v *DateView) loadError(ctx context.Context, owner string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		v.log.Warn("Appointment view timed out", "owner", owner, "timeout", v.timeout)
		return apperrors.Timeout("Loading appointments timed out")
	}
	v.log.Error("Failed to load appointments", "owner", owner, "error", err)
	return apperrors.Internal("Failed to load appointments", err)
}

func (v *DateView) sort(list []*model.Appointment) {
	for _, a := range list {
		if !dates.SortKey(a.Date, a.Time).OK {
			v.log.Warn("Appointment has unparseable date or time",
				"id", a.ID,
				"date", a.Date,
				"time", a.Time,
			)
		}
	}
	service.SortByDateTime(list)
}

func merge(global, private []*model.Appointment) []*model.Appointment {
	accepted := make(map[string]bool, len(private))
	for _, a := range private {
		if a.SourceID != "" {
			accepted[a.SourceID] = true
		}
	}

	out := make([]*model.Appointment, 0, len(global)+len(private))
	for _, a := range global {
		if !accepted[a.ID] {
			out = append(out, a)
		}
	}
	return append(out, private...)
}
