package identity

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"medappointments/cmd/internal/utils/apierror"
)

// Middleware rejects requests without a valid bearer token.
func Middleware(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := authenticate(c, v)
			if !ok {
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}
			SetCaller(c, caller)
			return next(c)
		}
	}
}

func authenticate(c echo.Context, v *Verifier) (*Caller, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return nil, false
	}
	caller, err := v.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, false
	}
	return caller, true
}
