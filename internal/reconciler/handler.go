// Package reconciler repairs appointments left between collections by an
// interrupted accept and notifies clients about decisions on their requests.
package reconciler

import (
	"context"
	"fmt"

	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/service"
	"autosnap/pkg/dates"
	apperrors "autosnap/pkg/errors"
	"autosnap/pkg/kafka"
	"autosnap/pkg/logger"
	"autosnap/pkg/model"
	"autosnap/pkg/notify"
)

type EventHandler struct {
	appointments service.AppointmentService
	joiner       *joiner.Joiner
	notifier     notify.Notifier
	log          *logger.Logger
}

func NewEventHandler(appointments service.AppointmentService, j *joiner.Joiner, notifier notify.Notifier, log *logger.Logger) *EventHandler {
	return &EventHandler{
		appointments: appointments,
		joiner:       j,
		notifier:     notifier,
		log:          log,
	}
}

// Handle is a kafka.MessageHandler.
func (h *EventHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.AppointmentEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}

	switch event.Type {
	case model.EventAppointmentAcceptIncomplete:
		return h.completeAccept(ctx, &event)
	case model.EventAppointmentAccepted, model.EventAppointmentRejected:
		return h.notifyClient(ctx, &event)
	default:
		return nil
	}
}

// completeAccept repeats the accept. The destination id is derived from the
// source, so the repeat never creates a second record. A repeat that fails
// again is left to the consumer retries and the sweep; it does not publish
// another incomplete event.
func (h *EventHandler) completeAccept(ctx context.Context, event *model.AppointmentEvent) error {
	if event.SourceID == "" || event.Owner == "" {
		return kafka.NewPermanentError("incomplete accept event without source or owner", nil)
	}

	_, err := h.appointments.Accept(service.RetryingIncomplete(ctx), event.Owner, event.SourceID)
	if err == nil {
		h.log.Info("Completed interrupted accept", "source_id", event.SourceID, "owner", event.Owner)
		return nil
	}

	switch {
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		h.log.Info("Interrupted accept has nothing left to do", "source_id", event.SourceID)
		return nil
	case apperrors.HasCode(err, apperrors.CodeForbidden),
		apperrors.HasCode(err, apperrors.CodeConflict),
		apperrors.HasCode(err, apperrors.CodeValidation):
		return kafka.NewBusinessError("accept cannot be completed", err)
	default:
		return kafka.NewTransientError("accept retry failed", err)
	}
}

func (h *EventHandler) notifyClient(ctx context.Context, event *model.AppointmentEvent) error {
	appt := &model.Appointment{
		ClientID:        event.ClientID,
		ServiceCenterID: event.ServiceCenterID,
	}
	client, err := h.joiner.ResolveClient(ctx, appt, event.Owner)
	if err != nil {
		return kafka.NewTransientError("resolve client", err)
	}
	if client == nil || client.Phone == "" {
		h.log.Debug("No phone number to notify", "appointment_id", event.AppointmentID, "client_id", event.ClientID)
		return nil
	}

	if err := h.notifier.Notify(ctx, client.Phone, message(event)); err != nil {
		h.log.Warn("Failed to notify client",
			"appointment_id", event.AppointmentID,
			"client_id", event.ClientID,
			"error", err,
		)
		return kafka.NewTransientError("notify client", err)
	}
	return nil
}

func message(event *model.AppointmentEvent) string {
	when := dates.ToDisplay(event.Date)
	if event.Time != "" {
		when += " " + event.Time
	}
	if event.Type == model.EventAppointmentRejected {
		return fmt.Sprintf("Your appointment request for %s was declined.", when)
	}
	return fmt.Sprintf("Your appointment on %s is confirmed.", when)
}
