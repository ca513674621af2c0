package routes

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/utils/apierror"
	"medappointments/cmd/internal/utils/pagination"
)

func pathID(c echo.Context, name string) (int, apierror.ErrorResponse) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, apierror.NewMissingParamError(name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.NewInvalidParamTypeError(name, "int")
	}
	return id, nil
}

func pageQuery(c echo.Context) (pagination.PageQuery, apierror.ErrorResponse) {
	return pagination.Parse(c.QueryParam("page_number"), c.QueryParam("page_size"))
}

// caller is nil on public routes without a token.
func caller(c echo.Context) *identity.Caller {
	cl, _ := identity.FromContext(c)
	return cl
}
