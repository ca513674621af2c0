package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsMapToDistinctStatusCodes(t *testing.T) {
	cases := []struct {
		err  ErrorResponse
		kind Kind
		code int
	}{
		{MalformedBodyError, KindValidation, http.StatusBadRequest},
		{NotFoundError, KindNotFound, http.StatusNotFound},
		{ForbiddenError, KindAuthorization, http.StatusForbidden},
		{AppointmentAlreadyBookedError, KindConflict, http.StatusConflict},
		{InternalServerError, KindStore, http.StatusInternalServerError},
		{InvalidAuthTokenError, KindAuthentication, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, tc.err.Kind())
		assert.Equal(t, tc.code, tc.err.Code())
	}
}

func TestNewSimpleDerivesKind(t *testing.T) {
	assert.Equal(t, KindValidation, NewSimple(400, "bad").Kind())
	assert.Equal(t, KindNotFound, NewSimple(404, "gone").Kind())
	assert.Equal(t, KindStore, NewSimple(503, "down").Kind())
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := error(NewNotFound("Appointment"))
	assert.True(t, errors.Is(err, NotFoundError))
	assert.False(t, errors.Is(err, ForbiddenError))
}

func TestFromValidationError(t *testing.T) {
	type req struct {
		Title string `validate:"required"`
		Notes string `validate:"max=3"`
	}
	v := validator.New()
	err := v.Struct(&req{Notes: "toolong"})
	require.Error(t, err)

	apierr := FromValidationError(err)
	assert.Equal(t, KindValidation, apierr.Kind())

	body := apierr.(*apiError)
	assert.Equal(t, "is required", body.Fields["Title"])
	assert.Equal(t, "must be at most 3 characters", body.Fields["Notes"])

	assert.Equal(t, MalformedBodyError, FromValidationError(errors.New("boom")))
}
