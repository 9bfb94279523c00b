package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"autosnap/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type DirectoryValidator struct {
	validate *validator.Validate
}

func NewDirectoryValidator() *DirectoryValidator {
	v := validator.New()

	// report the wire name of the field, not the Go one
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &DirectoryValidator{
		validate: v,
	}
}

func (v *DirectoryValidator) ValidateUser(u *model.User) error {
	return v.check(u)
}

func (v *DirectoryValidator) ValidateUserUpdate(u *model.UserUpdate) error {
	return v.check(u)
}

func (v *DirectoryValidator) ValidateService(s *model.Service) error {
	return v.check(s)
}

func (v *DirectoryValidator) ValidateClient(c *model.Client) error {
	return v.check(c)
}

func (v *DirectoryValidator) ValidateCar(c *model.Car) error {
	return v.check(c)
}

func (v *DirectoryValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message(err),
		})
	}
	return out
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in international format"
	case "min":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		if err.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", err.Param())
		}
		return fmt.Sprintf("must be at most %s", err.Param())
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}
