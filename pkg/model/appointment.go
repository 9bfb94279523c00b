package model

import "autosnap/pkg/docstore"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRejected  Status = "rejected"
	StatusConfirmed Status = "confirmed"
)

type Appointment struct {
	ID              string   `json:"id"`
	ClientID        string   `json:"clientId"`
	CarID           string   `json:"carId"`
	ServiceIDs      []string `json:"serviceIds"`
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	TotalPrice      int      `json:"totalPrice"`
	DiscountPercent int      `json:"discountPercent"`
	CreatedAt       string   `json:"createdAt"`
	ServiceCenterID string   `json:"serviceCenterId"`
	Status          Status   `json:"status"`
	SourceID        string   `json:"sourceId,omitempty"`
}

// AppointmentDraft is the input of appointment creation.
type AppointmentDraft struct {
	ClientID        string   `json:"clientId" validate:"required"`
	CarID           string   `json:"carId" validate:"required"`
	ServiceIDs      []string `json:"serviceIds" validate:"required,min=1,dive,required"`
	Date            string   `json:"date" validate:"omitempty,appointment_date"`
	Time            string   `json:"time" validate:"required,clock"`
	DiscountPercent int      `json:"discountPercent" validate:"min=0,max=100"`
	ServiceCenterID string   `json:"serviceCenterId" validate:"omitempty,max=128"`
}

// AppointmentFromDocument decodes a stored appointment. A missing status
// means pending in the global collection and confirmed anywhere else.
func AppointmentFromDocument(doc *docstore.Document) *Appointment {
	f := doc.Data
	status := Status(f.String("status"))
	if status == "" {
		status = StatusConfirmed
		if doc.Path.Parent() == AppointmentsRoot {
			status = StatusPending
		}
	}
	return &Appointment{
		ID:              doc.Key(),
		ClientID:        f.String("clientId"),
		CarID:           f.String("carId"),
		ServiceIDs:      f.Strings("serviceIds"),
		Date:            f.String("date"),
		Time:            f.String("time"),
		TotalPrice:      f.Int("totalPrice"),
		DiscountPercent: f.Int("discountPercent"),
		CreatedAt:       f.String("createdAt"),
		ServiceCenterID: f.String("serviceCenterId"),
		Status:          status,
		SourceID:        f.String("sourceId"),
	}
}

func (a *Appointment) Fields() map[string]any {
	out := map[string]any{
		"clientId":        a.ClientID,
		"carId":           a.CarID,
		"serviceIds":      append([]string{}, a.ServiceIDs...),
		"date":            a.Date,
		"time":            a.Time,
		"totalPrice":      a.TotalPrice,
		"discountPercent": a.DiscountPercent,
		"createdAt":       a.CreatedAt,
		"serviceCenterId": a.ServiceCenterID,
		"status":          string(a.Status),
	}
	if a.SourceID != "" {
		out["sourceId"] = a.SourceID
	}
	return out
}

// Pending reports whether the appointment still awaits a service center
// decision.
func (a *Appointment) Pending() bool {
	return a.ServiceCenterID != "" && a.Status == StatusPending
}
