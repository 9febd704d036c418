package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Every AppError wraps exactly one of these so callers can
// classify with errors.Is regardless of how deep the error was wrapped.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrInternal               = errors.New("internal error")
	ErrConflict               = errors.New("conflict")
	ErrConfiguration          = errors.New("configuration error")
	ErrTransport              = errors.New("gateway transport error")
	ErrRemoteProtocol         = errors.New("gateway protocol error")
	ErrReconciliationConflict = errors.New("reconciliation conflict")
	ErrCustomerCanceled       = errors.New("customer canceled payment")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error for requests that clash with current state.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Configuration creates an error for missing or unusable gateway settings.
// It is never retried.
func Configuration(message string) *AppError {
	return &AppError{
		Code:    "CONFIGURATION_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     ErrConfiguration,
	}
}

// Transport creates a 502 error for network failures and timeouts while
// talking to the payment gateway.
func Transport(operation string, err error) *AppError {
	return &AppError{
		Code:    "GATEWAY_UNAVAILABLE",
		Message: fmt.Sprintf("gateway %s failed: %v", operation, err),
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrTransport, err),
	}
}

// RemoteProtocol creates a 502 error for responses the gateway sent but that
// could not be used. The cause carries the response detail.
func RemoteProtocol(operation string, cause error) *AppError {
	return &AppError{
		Code:    "GATEWAY_PROTOCOL_ERROR",
		Message: fmt.Sprintf("gateway %s returned an unusable response", operation),
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrRemoteProtocol, cause),
	}
}

// ReconciliationConflict creates a 409 error for state transitions the
// transaction state machine refuses.
func ReconciliationConflict(transactionID, from, action string) *AppError {
	return &AppError{
		Code:    "RECONCILIATION_CONFLICT",
		Message: fmt.Sprintf("transaction %s cannot %s from state %s", transactionID, action, from),
		Status:  http.StatusConflict,
		Err:     ErrReconciliationConflict,
	}
}

// CustomerCanceled signals that the customer aborted the payment at the
// gateway so the storefront can show a cancellation page.
func CustomerCanceled(transactionID string) *AppError {
	return &AppError{
		Code:    "CUSTOMER_CANCELED",
		Message: fmt.Sprintf("customer canceled the payment for transaction %s", transactionID),
		Status:  http.StatusConflict,
		Err:     ErrCustomerCanceled,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrReconciliationConflict),
		errors.Is(err, ErrCustomerCanceled):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrTransport), errors.Is(err, ErrRemoteProtocol):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
