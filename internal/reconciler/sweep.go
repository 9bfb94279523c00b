package reconciler

import (
	"context"
	"errors"
	"fmt"

	"autosnap/internal/appointments/reader"
	"autosnap/internal/appointments/service"
	"autosnap/pkg/docstore"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"
)

// Sweeper removes global appointments whose accepted copy already exists,
// the state an accept leaves behind when its final delete fails and no
// event reached the consumer.
type Sweeper struct {
	store  docstore.Store
	reader *reader.Reader
	log    *logger.Logger
}

func NewSweeper(store docstore.Store, log *logger.Logger) *Sweeper {
	return &Sweeper{store: store, reader: reader.New(store), log: log}
}

// Sweep returns the number of global records removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.reader.Appointments(ctx, model.AppointmentsRoot)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	removed := 0
	var errs []error
	for _, a := range pending {
		if a.ServiceCenterID == "" || a.Status == model.StatusRejected {
			continue
		}

		dest := model.UserAppointmentPath(a.ServiceCenterID, service.DestinationID(a.ID))
		copied, err := s.reader.Appointment(ctx, dest)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if copied == nil {
			continue
		}

		err = s.store.Delete(ctx, model.AppointmentPath(a.ID))
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			s.log.Error("Failed to remove accepted appointment from global collection", "id", a.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		removed++
		s.log.Info("Removed accepted appointment from global collection", "id", a.ID, "destination", dest)
	}

	return removed, errors.Join(errs...)
}
