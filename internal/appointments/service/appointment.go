package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	appointmentserrors "autosnap/internal/appointments/errors"
	"autosnap/internal/appointments/events"
	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/reader"
	"autosnap/internal/appointments/validator"
	"autosnap/pkg/config"
	"autosnap/pkg/dates"
	"autosnap/pkg/docstore"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/model"
	"autosnap/pkg/monitoring"
	"autosnap/pkg/sanitizer"

	"github.com/google/uuid"
)

// acceptNamespace seeds the deterministic ids of accepted appointments.
var acceptNamespace = uuid.MustParse("6f1c1f8e-3a52-4d0e-9a4b-2f7f4a6b8c10")

// DestinationID is the id an accepted global appointment gets in the
// service center's private collection. Retried accepts of the same source
// therefore target the same record.
func DestinationID(sourceID string) string {
	return uuid.NewSHA1(acceptNamespace, []byte(sourceID)).String()
}

type retryingIncompleteKey struct{}

// RetryingIncomplete marks ctx as the retry of an accept that was already
// announced as incomplete. A repeated partial failure under such a context
// is logged and reported but not announced again.
func RetryingIncomplete(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryingIncompleteKey{}, true)
}

func retryingIncomplete(ctx context.Context) bool {
	v, _ := ctx.Value(retryingIncompleteKey{}).(bool)
	return v
}

type AppointmentService interface {
	Create(ctx context.Context, owner string, draft *model.AppointmentDraft) (*model.Appointment, error)
	Accept(ctx context.Context, owner string, id string) (*model.Appointment, error)
	Reject(ctx context.Context, owner string, id string) error
	Delete(ctx context.Context, owner string, id string) error
	Pending(ctx context.Context, owner string) ([]*joiner.Joined, error)
}

type appointmentService struct {
	store      docstore.Store
	reader     *reader.Reader
	joiner     *joiner.Joiner
	validator  *validator.AppointmentValidator
	normalizer *dates.Normalizer
	publisher  events.Publisher
	reporter   monitoring.Reporter
	cfg        *config.Config
	now        func() time.Time
}

func NewAppointmentService(
	store docstore.Store,
	joiner *joiner.Joiner,
	validator *validator.AppointmentValidator,
	publisher events.Publisher,
	reporter monitoring.Reporter,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		store:      store,
		reader:     reader.New(store),
		joiner:     joiner,
		validator:  validator,
		normalizer: dates.NewNormalizer(cfg.StrictDates(), cfg.Log),
		publisher:  publisher,
		reporter:   reporter,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *appointmentService) Create(ctx context.Context, owner string, draft *model.AppointmentDraft) (*model.Appointment, error) {
	s.sanitize(draft)

	if err := s.validator.Validate(draft); err != nil {
		s.cfg.Log.Warn("Appointment validation failed",
			"owner", owner,
			"client_id", draft.ClientID,
			"error", err,
		)
		return nil, translateValidation(err)
	}

	center := draft.ServiceCenterID
	if center == "" {
		center = owner
	}

	services, err := s.joiner.ResolveServices(ctx, draft.ServiceIDs, center)
	if err != nil {
		s.cfg.Log.Error("Failed to read service catalog", "center", center, "error", err)
		return nil, apperrors.Internal("Failed to read service catalog", err)
	}
	if len(services) != len(draft.ServiceIDs) {
		appErr := apperrors.Validation("Unknown service selected", map[string]any{"field": "serviceIds"})
		appErr.Err = appointmentserrors.ErrUnknownService
		return nil, appErr
	}

	prices := make([]int, 0, len(services))
	for _, svc := range services {
		prices = append(prices, svc.Price)
	}

	date := s.now().Format(dates.LayoutISO)
	if draft.Date != "" {
		if date, err = s.normalizer.Normalize(draft.Date); err != nil {
			appErr := apperrors.Validation("Invalid appointment date", map[string]any{"field": "date"})
			appErr.Err = err
			return nil, appErr
		}
	}

	appt := &model.Appointment{
		ID:              docstore.NewKey(),
		ClientID:        draft.ClientID,
		CarID:           draft.CarID,
		ServiceIDs:      draft.ServiceIDs,
		Date:            date,
		Time:            draft.Time,
		TotalPrice:      TotalPrice(prices, draft.DiscountPercent),
		DiscountPercent: draft.DiscountPercent,
		CreatedAt:       s.now().UTC().Format(time.RFC3339),
		ServiceCenterID: draft.ServiceCenterID,
		Status:          model.StatusConfirmed,
	}

	target := model.UserAppointmentPath(owner, appt.ID)
	if appt.ServiceCenterID != "" {
		appt.Status = model.StatusPending
		target = model.AppointmentPath(appt.ID)
	}

	if err := s.store.Set(ctx, target, appt.Fields()); err != nil {
		s.cfg.Log.Error("Failed to create appointment",
			"owner", owner,
			"path", target,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create appointment", err)
	}

	s.cfg.Log.Info("Appointment created",
		"id", appt.ID,
		"owner", owner,
		"service_center_id", appt.ServiceCenterID,
		"date", appt.Date,
		"time", appt.Time,
		"total_price", appt.TotalPrice,
	)
	s.publish(ctx, model.EventAppointmentCreated, owner, appt, nil)

	return appt, nil
}

// Accept moves a pending global appointment into the owner's private
// collection. The copy is written first and the source deleted second; a
// failed delete leaves both records and is reported as a partial failure
// that a retry or the reconciler completes.
func (s *appointmentService) Accept(ctx context.Context, owner string, id string) (*model.Appointment, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	source := model.AppointmentPath(id)
	destID := DestinationID(id)
	dest := model.UserAppointmentPath(owner, destID)

	appt, err := s.reader.Appointment(ctx, source)
	if err != nil {
		return nil, s.readFailed(source, err)
	}

	existing, err := s.reader.Appointment(ctx, dest)
	if err != nil {
		return nil, s.readFailed(dest, err)
	}

	if appt == nil {
		if existing != nil {
			return existing, nil
		}
		return nil, apperrors.NotFoundWithID("Appointment", id)
	}

	if appt.ServiceCenterID != owner {
		s.cfg.Log.Warn("Accept by non-owning service center",
			"id", id,
			"owner", owner,
			"service_center_id", appt.ServiceCenterID,
		)
		return nil, apperrors.Wrap(appointmentserrors.ErrNotServiceCenter, apperrors.CodeForbidden,
			"Appointment belongs to another service center", http.StatusForbidden)
	}
	if appt.Status == model.StatusRejected {
		return nil, apperrors.Wrap(appointmentserrors.ErrAlreadyRejected, apperrors.CodeConflict,
			"Appointment was already rejected", http.StatusConflict)
	}

	accepted := existing
	if accepted == nil {
		accepted, err = s.acceptedCopy(appt, destID)
		if err != nil {
			return nil, err
		}
		if err := s.store.Set(ctx, dest, accepted.Fields()); err != nil {
			s.cfg.Log.Error("Failed to write accepted appointment",
				"id", id,
				"destination", dest,
				"error", err,
			)
			return nil, apperrors.Internal("Failed to accept appointment", err)
		}
	}

	if err := s.store.Delete(ctx, source); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, s.incompleteAccept(ctx, owner, appt, accepted, err)
	}

	s.cfg.Log.Info("Appointment accepted",
		"id", id,
		"destination_id", destID,
		"owner", owner,
	)
	s.publish(ctx, model.EventAppointmentAccepted, owner, accepted, nil)

	return accepted, nil
}

func (s *appointmentService) acceptedCopy(appt *model.Appointment, destID string) (*model.Appointment, error) {
	date, err := s.normalizer.Normalize(appt.Date)
	if err != nil {
		appErr := apperrors.Validation("Stored appointment date cannot be parsed", map[string]any{
			"field": "date",
			"date":  appt.Date,
		})
		appErr.Err = err
		return nil, appErr
	}

	accepted := *appt
	accepted.ID = destID
	accepted.SourceID = appt.ID
	accepted.ServiceCenterID = ""
	accepted.Status = model.StatusConfirmed
	accepted.Date = date
	return &accepted, nil
}

func (s *appointmentService) incompleteAccept(ctx context.Context, owner string, source, accepted *model.Appointment, cause error) error {
	wrapped := fmt.Errorf("%w: %w", appointmentserrors.ErrSourceNotDeleted, cause)

	s.cfg.Log.Error("Accepted appointment left behind in global collection",
		"id", source.ID,
		"destination_id", accepted.ID,
		"owner", owner,
		"error", cause,
	)
	s.reporter.Report(ctx, wrapped, map[string]string{
		"operation":      "accept",
		"source_id":      source.ID,
		"destination_id": accepted.ID,
		"owner":          owner,
	})
	if !retryingIncomplete(ctx) {
		s.publish(ctx, model.EventAppointmentAcceptIncomplete, owner, accepted, cause)
	}

	return apperrors.PartialFailure("Appointment accepted but the pending copy could not be removed", wrapped, map[string]any{
		"source":      model.AppointmentPath(source.ID).String(),
		"destination": model.UserAppointmentPath(owner, accepted.ID).String(),
	})
}

func (s *appointmentService) Reject(ctx context.Context, owner string, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	source := model.AppointmentPath(id)
	appt, err := s.reader.Appointment(ctx, source)
	if err != nil {
		return s.readFailed(source, err)
	}
	if appt == nil {
		return apperrors.NotFoundWithID("Appointment", id)
	}
	if appt.ServiceCenterID != owner {
		return apperrors.Wrap(appointmentserrors.ErrNotServiceCenter, apperrors.CodeForbidden,
			"Appointment belongs to another service center", http.StatusForbidden)
	}

	err = s.store.Update(ctx, source, map[string]any{"status": string(model.StatusRejected)})
	if errors.Is(err, docstore.ErrNotFound) {
		return apperrors.NotFoundWithID("Appointment", id)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to reject appointment", "id", id, "error", err)
		return apperrors.Internal("Failed to reject appointment", err)
	}

	appt.Status = model.StatusRejected
	s.cfg.Log.Info("Appointment rejected", "id", id, "owner", owner)
	s.publish(ctx, model.EventAppointmentRejected, owner, appt, nil)

	return nil
}

// Delete removes a record from the owner's private collection. The global
// collection is never touched.
func (s *appointmentService) Delete(ctx context.Context, owner string, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	p := model.UserAppointmentPath(owner, id)
	appt, err := s.reader.Appointment(ctx, p)
	if err != nil {
		return s.readFailed(p, err)
	}
	if appt == nil {
		return apperrors.NotFoundWithID("Appointment", id)
	}

	err = s.store.Delete(ctx, p)
	if errors.Is(err, docstore.ErrNotFound) {
		return apperrors.NotFoundWithID("Appointment", id)
	}
	if err != nil {
		s.cfg.Log.Error("Failed to delete appointment", "id", id, "owner", owner, "error", err)
		return apperrors.Internal("Failed to delete appointment", err)
	}

	s.cfg.Log.Info("Appointment deleted", "id", id, "owner", owner)
	s.publish(ctx, model.EventAppointmentDeleted, owner, appt, nil)

	return nil
}

// Pending lists the global appointments awaiting the owner's decision,
// earliest first, joined with their client, car and services.
func (s *appointmentService) Pending(ctx context.Context, owner string) ([]*joiner.Joined, error) {
	all, err := s.reader.Appointments(ctx, model.AppointmentsRoot)
	if err != nil {
		s.cfg.Log.Error("Failed to list pending appointments", "owner", owner, "error", err)
		return nil, apperrors.Internal("Failed to list appointments", err)
	}

	pending := make([]*model.Appointment, 0, len(all))
	for _, a := range all {
		if a.ServiceCenterID == owner && a.Status == model.StatusPending {
			pending = append(pending, a)
		}
	}
	SortByDateTime(pending)

	joined, err := s.joiner.ResolveAll(ctx, pending, owner)
	if err != nil {
		s.cfg.Log.Error("Failed to join pending appointments", "owner", owner, "error", err)
		return nil, apperrors.Internal("Failed to load appointment details", err)
	}
	return joined, nil
}

// SortByDateTime orders appointments by date and time. Records whose date or
// time cannot be parsed keep their relative order at the end.
func SortByDateTime(list []*model.Appointment) {
	keys := make(map[*model.Appointment]dates.Key, len(list))
	for _, a := range list {
		keys[a] = dates.SortKey(a.Date, a.Time)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return dates.Less(keys[list[i]], keys[list[j]])
	})
}

func (s *appointmentService) sanitize(draft *model.AppointmentDraft) {
	draft.ClientID = sanitizer.NormalizeID(draft.ClientID)
	draft.CarID = sanitizer.NormalizeID(draft.CarID)
	draft.ServiceIDs = sanitizer.NormalizeIDs(draft.ServiceIDs)
	draft.ServiceCenterID = sanitizer.NormalizeID(draft.ServiceCenterID)
	draft.Date = sanitizer.TrimAndNormalize(draft.Date)
	draft.Time = sanitizer.NormalizeClock(draft.Time)
}

func validateID(id string) error {
	if id == "" {
		return apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	if err := docstore.ValidateKey(id); err != nil {
		return apperrors.InvalidInput("Invalid appointment ID: " + id)
	}
	return nil
}

func (s *appointmentService) readFailed(p docstore.Path, err error) error {
	if errors.Is(err, docstore.ErrInvalidPath) {
		return apperrors.InvalidInput("Invalid appointment path: " + p.String())
	}
	s.cfg.Log.Error("Failed to read appointment", "path", p, "error", err)
	return apperrors.Internal("Failed to read appointment", err)
}

// publish is best effort: the transition already happened in the store.
func (s *appointmentService) publish(ctx context.Context, typ model.EventType, owner string, appt *model.Appointment, cause error) {
	event := &model.AppointmentEvent{
		Type:            typ,
		AppointmentID:   appt.ID,
		SourceID:        appt.SourceID,
		Owner:           owner,
		ServiceCenterID: appt.ServiceCenterID,
		ClientID:        appt.ClientID,
		Date:            appt.Date,
		Time:            appt.Time,
		Status:          appt.Status,
		OccurredAt:      s.now().UTC(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish appointment event",
			"type", typ,
			"appointment_id", appt.ID,
			"error", err,
		)
	}
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Validation("Appointment validation failed", map[string]any{"error": err.Error()})
	}

	first := verrs[0]
	switch {
	case errors.Is(first.Err, appointmentserrors.ErrMissingClient),
		errors.Is(first.Err, appointmentserrors.ErrMissingCar),
		errors.Is(first.Err, appointmentserrors.ErrMissingServices),
		errors.Is(first.Err, appointmentserrors.ErrMissingTime):
		appErr := apperrors.MissingField(first.Field, first.Err)
		appErr.Details["errors"] = verrs
		return appErr
	}

	appErr := apperrors.Validation(first.Message, map[string]any{
		"field":  first.Field,
		"errors": verrs,
	})
	appErr.Err = first.Err
	return appErr
}
