package routes

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/service"
	"medappointments/cmd/internal/utils/apierror"
	"medappointments/cmd/internal/utils/pagination"
)

type MedicalHistoryService interface {
	CreateEntry(ctx context.Context, req *service.MedicalHistoryRequest, caller *identity.Caller) (*service.MedicalHistoryResponse, apierror.ErrorResponse)
	GetEntry(ctx context.Context, id int, caller *identity.Caller) (*service.MedicalHistoryResponse, apierror.ErrorResponse)
	ListMine(ctx context.Context, caller *identity.Caller) ([]*service.MedicalHistoryResponse, apierror.ErrorResponse)
	ListByPatient(ctx context.Context, patientID string, caller *identity.Caller) ([]*service.MedicalHistoryResponse, apierror.ErrorResponse)
	ListAll(ctx context.Context, caller *identity.Caller, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse)
	UpdateEntry(ctx context.Context, id int, req *service.MedicalHistoryRequest, caller *identity.Caller) (*service.MedicalHistoryResponse, apierror.ErrorResponse)
	DeleteEntry(ctx context.Context, id int, caller *identity.Caller) apierror.ErrorResponse
}

type DefaultMedicalHistoryRoute struct {
	HistoryService MedicalHistoryService
}

func NewMedicalHistoryDefault(historyService MedicalHistoryService) *DefaultMedicalHistoryRoute {
	return &DefaultMedicalHistoryRoute{HistoryService: historyService}
}

func (m *DefaultMedicalHistoryRoute) CreateEntry(c echo.Context) error {
	var req service.MedicalHistoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	entry, apierr := m.HistoryService.CreateEntry(c.Request().Context(), &req, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (m *DefaultMedicalHistoryRoute) GetMine(c echo.Context) error {
	entries, apierr := m.HistoryService.ListMine(c.Request().Context(), caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"medical_histories": entries}
	return c.JSON(http.StatusOK, &resp)
}

func (m *DefaultMedicalHistoryRoute) GetByPatient(c echo.Context) error {
	patientID := strings.TrimSpace(c.Param("patientId"))

	entries, apierr := m.HistoryService.ListByPatient(c.Request().Context(), patientID, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"medical_histories": entries}
	return c.JSON(http.StatusOK, &resp)
}

func (m *DefaultMedicalHistoryRoute) GetAll(c echo.Context) error {
	page, apierr := pageQuery(c)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp, apierr := m.HistoryService.ListAll(c.Request().Context(), caller(c), page)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (m *DefaultMedicalHistoryRoute) GetEntry(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	entry, apierr := m.HistoryService.GetEntry(c.Request().Context(), id, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, entry)
}

func (m *DefaultMedicalHistoryRoute) UpdateEntry(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	var req service.MedicalHistoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	entry, apierr := m.HistoryService.UpdateEntry(c.Request().Context(), id, &req, caller(c))
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, entry)
}

func (m *DefaultMedicalHistoryRoute) DeleteEntry(c echo.Context) error {
	id, apierr := pathID(c, "id")
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	if serr := m.HistoryService.DeleteEntry(c.Request().Context(), id, caller(c)); serr != nil {
		return c.JSON(serr.Code(), serr)
	}
	return c.NoContent(http.StatusOK)
}
