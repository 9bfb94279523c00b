package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrMissingClient   = errors.New("client is required")
	ErrMissingCar      = errors.New("car is required")
	ErrMissingServices = errors.New("at least one service is required")
	ErrMissingTime     = errors.New("time is required")
	ErrInvalidTime     = errors.New("time must be HH:MM")
	ErrInvalidDate     = errors.New("date must be DD.MM.YYYY or YYYY-MM-DD")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
	ErrUnknownService  = errors.New("service not in catalog")

	ErrNotServiceCenter = errors.New("appointment belongs to another service center")
	ErrAlreadyRejected  = errors.New("appointment was rejected")
	ErrSourceNotDeleted = errors.New("accepted appointment copied but source not deleted")
)
