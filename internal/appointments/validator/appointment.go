package validator

import (
	"errors"
	"fmt"
	"regexp"

	appointmentserrors "autosnap/internal/appointments/errors"
	"autosnap/pkg/dates"
	"autosnap/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	reClock = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
	reDate  = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}-\d{2})$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func (v ValidationError) Unwrap() error {
	return v.Err
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(v))
	for _, e := range v {
		errs = append(errs, e)
	}
	return errs
}

type AppointmentValidator struct {
	validate *validator.Validate
}

func NewAppointmentValidator() *AppointmentValidator {
	v := validator.New()

	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return reClock.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("appointment_date", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !reDate.MatchString(s) {
			return false
		}
		_, err := dates.ParseDay(s)
		return err == nil
	})

	return &AppointmentValidator{
		validate: v,
	}
}

// Validate checks a draft. The returned ValidationErrors are ordered client,
// car, services, date, time, discount, so the first entry is the most
// relevant missing input.
func (v *AppointmentValidator) Validate(draft *model.AppointmentDraft) error {
	if err := v.validate.Struct(draft); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		field, sentinel := describe(err)
		// dive errors repeat the services field once per element
		if len(out) > 0 && out[len(out)-1].Field == field {
			continue
		}
		out = append(out, ValidationError{
			Field:   field,
			Message: sentinel.Error(),
			Err:     sentinel,
		})
	}
	return out
}

func describe(err validator.FieldError) (string, error) {
	switch err.StructField() {
	case "ClientID":
		return "clientId", appointmentserrors.ErrMissingClient
	case "CarID":
		return "carId", appointmentserrors.ErrMissingCar
	case "Date":
		return "date", appointmentserrors.ErrInvalidDate
	case "Time":
		if err.Tag() == "required" {
			return "time", appointmentserrors.ErrMissingTime
		}
		return "time", appointmentserrors.ErrInvalidTime
	case "DiscountPercent":
		return "discountPercent", appointmentserrors.ErrInvalidDiscount
	case "ServiceCenterID":
		return "serviceCenterId", fmt.Errorf("invalid service center id")
	default:
		// ServiceIDs and its elements
		return "serviceIds", appointmentserrors.ErrMissingServices
	}
}
