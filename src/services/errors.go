package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is an error that knows its HTTP status.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches any ServiceError with the same status and message, so wrapped sentinels still compare.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.StatusCode == e.StatusCode && t.Message == e.Message
}

// Wrap returns a copy of e carrying err as its cause.
func (e *ServiceError) Wrap(err error) *ServiceError {
	return &ServiceError{StatusCode: e.StatusCode, Message: e.Message, Err: err}
}

func NewServiceError(status int, message string) *ServiceError {
	return &ServiceError{StatusCode: status, Message: message}
}

func Internal(err error) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

var (
	ErrEventNotFound        = NewServiceError(http.StatusNotFound, "event not found")
	ErrPaymentNotFound      = NewServiceError(http.StatusNotFound, "payment not found")
	ErrRegistrationNotFound = NewServiceError(http.StatusNotFound, "registration not found")
	ErrUnknownAuthority     = NewServiceError(http.StatusNotFound, "payment not found for authority")
	ErrMissingAuthority     = NewServiceError(http.StatusBadRequest, "missing Authority")
	ErrFreeEvent            = NewServiceError(http.StatusBadRequest, "event is free, register instead")
	ErrDuplicatePurchase    = NewServiceError(http.StatusBadRequest, "you have already registered in this event")
	ErrAlreadyRegistered    = NewServiceError(http.StatusBadRequest, "you are already registered for this event")
	ErrCapacityFull         = NewServiceError(http.StatusBadRequest, "event capacity is full")
	ErrRegistrationClosed   = NewServiceError(http.StatusBadRequest, "registration for this event has closed")
	ErrRegistrationNotOpen  = NewServiceError(http.StatusBadRequest, "registration for this event has not opened yet")
	ErrTicketUnavailable    = NewServiceError(http.StatusBadRequest, "tickets are only issued for confirmed registrations")
	ErrGatewayUnavailable   = NewServiceError(http.StatusBadGateway, "payment gateway request failed")
	ErrGatewayRejected      = NewServiceError(http.StatusBadGateway, "payment gateway rejected the request")

	// ErrNoPendingRegistration is internal to finalize and never reaches a client.
	ErrNoPendingRegistration = errors.New("no pending registration")
)

// StatusCode maps any error to an HTTP status. Unknown errors are 500.
func StatusCode(err error) int {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage hides internal details of unexpected errors.
func PublicMessage(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	return "internal server error"
}
