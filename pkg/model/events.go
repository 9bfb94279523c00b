package model

import "time"

type EventType string

const (
	EventAppointmentCreated          EventType = "appointment.created"
	EventAppointmentAccepted         EventType = "appointment.accepted"
	EventAppointmentRejected         EventType = "appointment.rejected"
	EventAppointmentDeleted          EventType = "appointment.deleted"
	EventAppointmentAcceptIncomplete EventType = "appointment.accept_incomplete"
)

// AppointmentEvent is published on every lifecycle transition.
type AppointmentEvent struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	AppointmentID   string    `json:"appointment_id"`
	SourceID        string    `json:"source_id,omitempty"`
	Owner           string    `json:"owner"`
	ServiceCenterID string    `json:"service_center_id,omitempty"`
	ClientID        string    `json:"client_id,omitempty"`
	Date            string    `json:"date,omitempty"`
	Time            string    `json:"time,omitempty"`
	Status          Status    `json:"status,omitempty"`
	Error           string    `json:"error,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
