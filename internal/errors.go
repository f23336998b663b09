package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "AUTH_ERROR"
	ErrorTypeNetwork    ErrorType = "NETWORK_ERROR"
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeServer     ErrorType = "SERVER_ERROR"
	ErrorTypeProtocol   ErrorType = "PROTOCOL_ERROR"
	ErrorTypeFetch      ErrorType = "FETCH_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeRejected           ErrorCode = "REQUEST_REJECTED"

	ErrCodeLoginFailed        ErrorCode = "LOGIN_FAILED"
	ErrCodeRegistrationFailed ErrorCode = "REGISTRATION_FAILED"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeNoSession          ErrorCode = "NO_SESSION"
	ErrCodeInsufficientRole   ErrorCode = "INSUFFICIENT_ROLE"

	ErrCodeRequestFailed ErrorCode = "REQUEST_FAILED"
	ErrCodeServerFailure ErrorCode = "SERVER_FAILURE"
	ErrCodeMalformedBody ErrorCode = "MALFORMED_BODY"
	ErrCodeUnknownShape  ErrorCode = "UNKNOWN_SHAPE"
	ErrCodeListFailed    ErrorCode = "LIST_FAILED"

	ErrCodeReportNotGenerated ErrorCode = "REPORT_NOT_GENERATED"
	ErrCodeRouteNotFound      ErrorCode = "ROUTE_NOT_FOUND"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of e carrying cause; e is left unchanged.
func (e *AppError) WithCause(cause error) *AppError {
	out := *e
	out.Cause = cause
	return &out
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	out := *e
	out.Details = details
	return &out
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

// NewAuthError is returned for rejected credentials and for 401s from any endpoint.
func NewAuthError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeAuth,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Code:       ErrCodeRequestFailed,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

func NewServerError(message string, status int) *AppError {
	return &AppError{
		Type:       ErrorTypeServer,
		Code:       ErrCodeServerFailure,
		Message:    message,
		StatusCode: status,
	}
}

func NewProtocolError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeProtocol,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewFetchError wraps whatever went wrong while refreshing a collection.
func NewFetchError(resource string, cause error) *AppError {
	status := http.StatusBadGateway
	var appErr *AppError
	if errors.As(cause, &appErr) && appErr.StatusCode != 0 {
		status = appErr.StatusCode
	}
	return &AppError{
		Type:       ErrorTypeFetch,
		Code:       ErrCodeListFailed,
		Message:    fmt.Sprintf("failed to load %s", resource),
		StatusCode: status,
		Cause:      cause,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

var (
	ErrNoSession          = NewAuthError("Not signed in", ErrCodeNoSession)
	ErrUnauthorized       = NewAuthError("Session is no longer valid", ErrCodeUnauthorized)
	ErrSubmissionInFlight = NewValidationError("Previous submission is still in progress", ErrCodeSubmissionInFlight)
	ErrReportNotGenerated = NewValidationError("Generate a report before exporting", ErrCodeReportNotGenerated)
	ErrRouteNotFound      = NewNotFoundError("Page not found", ErrCodeRouteNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the type of the outermost AppError in err's chain.
func TypeOf(err error) ErrorType {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type
	}
	return ""
}

// HasType reports whether any AppError in err's chain has the given type.
// A FetchError wrapping a NetworkError has both.
func HasType(err error, t ErrorType) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Type == t {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// UserMessage is the text shown to the operator for err.
func UserMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.GetDetailedMessage()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
