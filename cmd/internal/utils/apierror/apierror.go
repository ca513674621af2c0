package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an ErrorResponse. Every kind except KindStore is client-correctable.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindAuthorization  Kind = "authorization"
	KindAuthentication Kind = "authentication"
	KindConflict       Kind = "conflict"
	KindStore          Kind = "store"
)

type ErrorResponse interface {
	error
	Code() int
	Kind() Kind
}

type apiError struct {
	Status  int               `json:"status"`
	Type    Kind              `json:"type"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *apiError) Code() int {
	return e.Status
}

func (e *apiError) Kind() Kind {
	return e.Type
}

var (
	InternalServerError = newError(http.StatusInternalServerError, KindStore, "Internal server error")
	NotFoundError       = newError(http.StatusNotFound, KindNotFound, "Resource not found")
	MalformedBodyError  = newError(http.StatusBadRequest, KindValidation, "Malformed request body")
	ForbiddenError      = newError(http.StatusForbidden, KindAuthorization, "You are not allowed to perform this action")

	InvalidAuthTokenError = newError(http.StatusUnauthorized, KindAuthentication, "Missing or invalid authorization token")

	AppointmentInPastError        = newError(http.StatusBadRequest, KindValidation, "Appointment date must be in the future")
	AppointmentAlreadyBookedError = newError(http.StatusConflict, KindConflict, "Appointment is already booked")
	AppointmentNotScheduledError  = newError(http.StatusConflict, KindConflict, "Appointment is not scheduled")

	UserAlreadyExistsError    = newError(http.StatusConflict, KindConflict, "User already exists")
	UserAlreadyConfirmedError = newError(http.StatusConflict, KindConflict, "User is already confirmed")

	IDPInvalidPasswordError     = newError(http.StatusBadRequest, KindValidation, "Password does not satisfy the identity provider policy")
	IDPExistingEmailError       = newError(http.StatusConflict, KindConflict, "Email is already registered")
	IDPUserNotFoundError        = newError(http.StatusNotFound, KindNotFound, "User not found")
	IDPUserNotConfirmedError    = newError(http.StatusForbidden, KindAuthorization, "User has not confirmed the signup")
	IDPCredentialsMismatchError = newError(http.StatusUnauthorized, KindAuthentication, "Email or password is incorrect")
	IDPConfirmCodeMismatchError = newError(http.StatusBadRequest, KindValidation, "Confirmation code does not match")
	IDPConfirmCodeExpiredError  = newError(http.StatusBadRequest, KindValidation, "Confirmation code has expired")
)

func newError(status int, kind Kind, msg string) *apiError {
	return &apiError{Status: status, Type: kind, Message: msg}
}

// NewSimple builds an error whose kind is derived from the HTTP status.
func NewSimple(status int, msg string) ErrorResponse {
	return newError(status, kindOf(status), msg)
}

func NewValidation(msg string) ErrorResponse {
	return newError(http.StatusBadRequest, KindValidation, msg)
}

func NewNotFound(resource string) ErrorResponse {
	return newError(http.StatusNotFound, KindNotFound, resource+" not found")
}

func NewForbidden(msg string) ErrorResponse {
	return newError(http.StatusForbidden, KindAuthorization, msg)
}

func NewConflict(msg string) ErrorResponse {
	return newError(http.StatusConflict, KindConflict, msg)
}

func NewMissingParamError(param string) ErrorResponse {
	return &apiError{
		Status:  http.StatusBadRequest,
		Type:    KindValidation,
		Message: "Missing required parameter",
		Fields:  map[string]string{param: "is required"},
	}
}

func NewInvalidParamTypeError(param, typ string) ErrorResponse {
	return &apiError{
		Status:  http.StatusBadRequest,
		Type:    KindValidation,
		Message: "Invalid parameter type",
		Fields:  map[string]string{param: "must be of type " + typ},
	}
}

// FromValidationError turns validator errors into a single validation error carrying
// one message per offending field.
func FromValidationError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MalformedBodyError
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = describe(fe)
	}
	return &apiError{
		Status:  http.StatusBadRequest,
		Type:    KindValidation,
		Message: "Request validation failed",
		Fields:  fields,
	}
}

// Is lets errors.Is match on kind: errors.Is(err, apierror.NotFoundError).
func (e *apiError) Is(target error) bool {
	var t *apiError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type && t.Status == e.Status
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return strings.ToLower(fe.StructField())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "iso8601":
		return "must be an RFC3339 timestamp"
	case "hasupper":
		return "must contain an uppercase letter"
	case "haslower":
		return "must contain a lowercase letter"
	case "hasdigit":
		return "must contain a digit"
	case "hasspecial":
		return "must contain a special character"
	case "nospaces":
		return "must not contain spaces"
	}
	return "failed on " + fe.Tag()
}

func kindOf(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusConflict:
		return KindConflict
	}
	if status >= 500 {
		return KindStore
	}
	return KindValidation
}
