package errors

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrClientNotFound  = errors.New("client not found")
	ErrServiceNotFound = errors.New("service not found")
)
