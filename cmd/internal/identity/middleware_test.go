package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medappointments/cmd/internal/domain/entity"
)

func TestMiddleware(t *testing.T) {
	v, err := NewVerifier(Config{SigningKey: testKey})
	require.NoError(t, err)
	token, err := IssueDevToken(testKey, Config{}, "p1", []entity.Role{entity.RolePatient}, time.Minute)
	require.NoError(t, err)

	var seen *Caller
	handler := Middleware(v)(func(c echo.Context) error {
		seen, _ = FromContext(c)
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "p1", seen.ID)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}
