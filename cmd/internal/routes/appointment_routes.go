package routes

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/service"
	"medappointments/cmd/internal/utils"
	"medappointments/cmd/internal/utils/apierror"
	"medappointments/cmd/internal/utils/pagination"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, req *service.AppointmentRequest, caller *identity.Caller) (*service.AppointmentResponse, apierror.ErrorResponse)
	ListAvailable(ctx context.Context, page pagination.PageQuery, specialty string) (*pagination.Response, apierror.ErrorResponse)
	ListMine(ctx context.Context, caller *identity.Caller, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse)
	ListAll(ctx context.Context, caller *identity.Caller, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse)
	GetAppointment(ctx context.Context, id int, caller *identity.Caller) (*service.AppointmentResponse, apierror.ErrorResponse)
	BookAppointment(ctx context.Context, id int, req *service.BookRequest, caller *identity.Caller) (*service.AppointmentResponse, apierror.ErrorResponse)
	CancelAppointment(ctx context.Context, id int, caller *identity.Caller) (*service.AppointmentResponse, apierror.ErrorResponse)
	CompleteAppointment(ctx context.Context, id int, caller *identity.Caller) (*service.AppointmentResponse, apierror.ErrorResponse)
	DeleteAppointment(ctx context.Context, id int, caller *identity.Caller) apierror.ErrorResponse
	GetCalendar(ctx context.Context, monthStart, monthEnd int64) (*service.CalendarResponse, apierror.ErrorResponse)
}

type DefaultAppointmentRoute struct {
	AppointmentService AppointmentService
}

func NewAppointmentDefault(apptService AppointmentService) *DefaultAppointmentRoute {
	return &DefaultAppointmentRoute{AppointmentService: apptService}
}

func (a *DefaultAppointmentRoute) GetAppointments(c echo.Context) error {
	page, apierr := pageQuery(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := a.AppointmentService.ListAll(c.Request().Context(), caller(c), page)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *DefaultAppointmentRoute) GetAvailable(c echo.Context) error {
	page, apierr := pageQuery(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := a.AppointmentService.ListAvailable(c.Request().Context(), page, c.QueryParam("specialty"))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *DefaultAppointmentRoute) GetMine(c echo.Context) error {
	page, apierr := pageQuery(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := a.AppointmentService.ListMine(c.Request().Context(), caller(c), page)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *DefaultAppointmentRoute) GetAppointment(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	appt, apierr := a.AppointmentService.GetAppointment(c.Request().Context(), id, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) CreateAppointment(c echo.Context) error {
	var req service.AppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	appt, apierr := a.AppointmentService.CreateAppointment(c.Request().Context(), &req, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, appt)
}

// BookAppointment accepts an empty body; notes are optional.
func (a *DefaultAppointmentRoute) BookAppointment(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req service.BookRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	appt, apierr := a.AppointmentService.BookAppointment(c.Request().Context(), id, &req, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) CancelAppointment(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	appt, apierr := a.AppointmentService.CancelAppointment(c.Request().Context(), id, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) CompleteAppointment(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	appt, apierr := a.AppointmentService.CompleteAppointment(c.Request().Context(), id, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, appt)
}

func (a *DefaultAppointmentRoute) DeleteAppointment(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	serr := a.AppointmentService.DeleteAppointment(c.Request().Context(), id, caller(c))
	if serr != nil {
		return c.JSON(serr.Code(), serr)
	}
	return c.NoContent(http.StatusOK)
}

func (a *DefaultAppointmentRoute) GetCalendar(c echo.Context) error {
	monthStr := c.QueryParam("month") // "2030-01"
	if monthStr == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("month"))
	}

	monthStart, monthEnd, err := utils.MonthRange(monthStr)
	if err != nil {
		apierr := apierror.NewSimple(http.StatusBadRequest, "Could not understand month format, expected YYYY-MM")
		return c.JSON(apierr.Code(), apierr)
	}

	calendar, apierr := a.AppointmentService.GetCalendar(c.Request().Context(), monthStart, monthEnd)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, &calendar)
}
