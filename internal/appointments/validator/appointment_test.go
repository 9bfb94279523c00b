package validator

import (
	"errors"
	"testing"

	appointmentserrors "autosnap/internal/appointments/errors"
	"autosnap/pkg/model"
)

func validDraft() *model.AppointmentDraft {
	return &model.AppointmentDraft{
		ClientID:   "client-1",
		CarID:      "car-1",
		ServiceIDs: []string{"svc-1"},
		Date:       "15.03.2024",
		Time:       "09:30",
	}
}

func TestAppointmentValidator_Validate(t *testing.T) {
	v := NewAppointmentValidator()

	tests := []struct {
		name      string
		mutate    func(d *model.AppointmentDraft)
		wantField string
		wantErr   error
	}{
		{"valid", func(*model.AppointmentDraft) {}, "", nil},
		{"valid iso date", func(d *model.AppointmentDraft) { d.Date = "2024-03-15" }, "", nil},
		{"valid without date", func(d *model.AppointmentDraft) { d.Date = "" }, "", nil},
		{"single digit hour", func(d *model.AppointmentDraft) { d.Time = "9:30" }, "", nil},
		{"missing client", func(d *model.AppointmentDraft) { d.ClientID = "" }, "clientId", appointmentserrors.ErrMissingClient},
		{"missing car", func(d *model.AppointmentDraft) { d.CarID = "" }, "carId", appointmentserrors.ErrMissingCar},
		{"no services", func(d *model.AppointmentDraft) { d.ServiceIDs = nil }, "serviceIds", appointmentserrors.ErrMissingServices},
		{"blank service id", func(d *model.AppointmentDraft) { d.ServiceIDs = []string{"", ""} }, "serviceIds", appointmentserrors.ErrMissingServices},
		{"missing time", func(d *model.AppointmentDraft) { d.Time = "" }, "time", appointmentserrors.ErrMissingTime},
		{"bad time", func(d *model.AppointmentDraft) { d.Time = "24:00" }, "time", appointmentserrors.ErrInvalidTime},
		{"bad date", func(d *model.AppointmentDraft) { d.Date = "March 15" }, "date", appointmentserrors.ErrInvalidDate},
		{"impossible display date", func(d *model.AppointmentDraft) { d.Date = "31.02.2024" }, "date", appointmentserrors.ErrInvalidDate},
		{"impossible iso date", func(d *model.AppointmentDraft) { d.Date = "2024-02-30" }, "date", appointmentserrors.ErrInvalidDate},
		{"month out of range", func(d *model.AppointmentDraft) { d.Date = "15.13.2024" }, "date", appointmentserrors.ErrInvalidDate},
		{"leap day", func(d *model.AppointmentDraft) { d.Date = "29.02.2024" }, "", nil},
		{"discount over 100", func(d *model.AppointmentDraft) { d.DiscountPercent = 101 }, "discountPercent", appointmentserrors.ErrInvalidDiscount},
		{"negative discount", func(d *model.AppointmentDraft) { d.DiscountPercent = -1 }, "discountPercent", appointmentserrors.ErrInvalidDiscount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(d)

			err := v.Validate(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) || len(verrs) == 0 {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.wantField)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v) = false", tt.wantErr)
			}
		})
	}
}

func TestAppointmentValidator_OrderAndDedup(t *testing.T) {
	v := NewAppointmentValidator()

	err := v.Validate(&model.AppointmentDraft{ServiceIDs: []string{"", ""}})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}

	want := []string{"clientId", "carId", "serviceIds", "time"}
	if len(verrs) != len(want) {
		t.Fatalf("got %d errors (%v), want %d", len(verrs), verrs, len(want))
	}
	for i, field := range want {
		if verrs[i].Field != field {
			t.Errorf("errors[%d].Field = %q, want %q", i, verrs[i].Field, field)
		}
	}
}
