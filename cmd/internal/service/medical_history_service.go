package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"

	"medappointments/cmd/internal/authz"
	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/utils"
	"medappointments/cmd/internal/utils/apierror"
	"medappointments/cmd/internal/utils/pagination"
)

type MedicalHistoryRepository interface {
	Insert(ctx context.Context, entry *entity.MedicalHistory) error
	FindByID(ctx context.Context, id int) (*entity.MedicalHistory, error)
	Query(ctx context.Context, f store.HistoryFilter, page store.Page) ([]*entity.MedicalHistory, error)
	Update(ctx context.Context, id int, patch store.HistoryPatch) (int64, error)
	Delete(ctx context.Context, id int) (int64, error)
}

// MedicalHistoryRequest is shared by create and update. DateOfEntry is only read on
// create.
type MedicalHistoryRequest struct {
	DateOfEntry          string `json:"date_of_entry" validate:"omitempty,iso8601"`
	MedicalCondition     string `json:"medical_condition" validate:"required,max=255"`
	Medications          string `json:"medications" validate:"max=255"`
	Allergies            string `json:"allergies" validate:"max=255"`
	Surgeries            string `json:"surgeries" validate:"max=255"`
	FamilyMedicalHistory string `json:"family_medical_history" validate:"max=255"`
}

type MedicalHistoryResponse struct {
	ID                   int    `json:"id"`
	UserID               string `json:"user_id"`
	DateOfEntry          string `json:"date_of_entry"`
	MedicalCondition     string `json:"medical_condition"`
	Medications          string `json:"medications"`
	Allergies            string `json:"allergies"`
	Surgeries            string `json:"surgeries"`
	FamilyMedicalHistory string `json:"family_medical_history"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

type DefaultMedicalHistoryService struct {
	HistoryRepo MedicalHistoryRepository
	Validate    *validator.Validate
}

func NewMedicalHistoryService(historyRepo MedicalHistoryRepository, validate *validator.Validate) *DefaultMedicalHistoryService {
	return &DefaultMedicalHistoryService{HistoryRepo: historyRepo, Validate: validate}
}

// CreateEntry always records the entry under the caller's own id.
func (m *DefaultMedicalHistoryService) CreateEntry(ctx context.Context, req *MedicalHistoryRequest, caller *identity.Caller) (*MedicalHistoryResponse, apierror.ErrorResponse) {
	if caller == nil || caller.ID == "" {
		return nil, apierror.InvalidAuthTokenError
	}

	utils.Sanitize(req)
	if valerr := m.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	dateOfEntry := utils.NowUTC()
	if req.DateOfEntry != "" {
		parsed, err := utils.FromEpoch(req.DateOfEntry)
		if err != nil {
			return nil, apierror.MalformedBodyError
		}
		dateOfEntry = parsed
	}

	entry := &entity.MedicalHistory{
		UserID:               caller.ID,
		DateOfEntry:          dateOfEntry,
		MedicalCondition:     req.MedicalCondition,
		Medications:          req.Medications,
		Allergies:            req.Allergies,
		Surgeries:            req.Surgeries,
		FamilyMedicalHistory: req.FamilyMedicalHistory,
	}

	if err := m.HistoryRepo.Insert(ctx, entry); err != nil {
		log.Errorf("failed to save medical history for user %s: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}
	return toMedicalHistoryResponse(entry), nil
}

func (m *DefaultMedicalHistoryService) GetEntry(ctx context.Context, id int, caller *identity.Caller) (*MedicalHistoryResponse, apierror.ErrorResponse) {
	entry, apierr := m.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}

	if !authz.CanViewHistory(caller, entry) {
		return nil, apierror.ForbiddenError
	}
	return toMedicalHistoryResponse(entry), nil
}

// ListMine returns every entry owned by the caller.
func (m *DefaultMedicalHistoryService) ListMine(ctx context.Context, caller *identity.Caller) ([]*MedicalHistoryResponse, apierror.ErrorResponse) {
	if caller == nil || caller.ID == "" {
		return nil, apierror.InvalidAuthTokenError
	}
	return m.listByOwner(ctx, caller.ID)
}

// ListByPatient lets clinical staff and admins browse another patient's entries.
func (m *DefaultMedicalHistoryService) ListByPatient(ctx context.Context, patientID string, caller *identity.Caller) ([]*MedicalHistoryResponse, apierror.ErrorResponse) {
	if patientID == "" {
		return nil, apierror.NewMissingParamError("patientId")
	}

	if !authz.CanBrowsePatientHistory(caller, patientID) {
		return nil, apierror.ForbiddenError
	}
	return m.listByOwner(ctx, patientID)
}

func (m *DefaultMedicalHistoryService) ListAll(ctx context.Context, caller *identity.Caller, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse) {
	if !authz.CanListAllHistories(caller) {
		return nil, apierror.ForbiddenError
	}

	entries, err := m.HistoryRepo.Query(ctx, store.HistoryFilter{}, page.Page())
	if err != nil {
		log.Errorf("failed to query medical histories: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := toMedicalHistoryResponses(entries)
	return pagination.NewResponse(resp, len(resp), page), nil
}

// UpdateEntry replaces the clinical fields. Owner and date of entry never change.
func (m *DefaultMedicalHistoryService) UpdateEntry(ctx context.Context, id int, req *MedicalHistoryRequest, caller *identity.Caller) (*MedicalHistoryResponse, apierror.ErrorResponse) {
	entry, apierr := m.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}

	if !authz.CanMutateHistory(caller, entry) {
		return nil, apierror.ForbiddenError
	}

	utils.Sanitize(req)
	if valerr := m.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	patch := store.HistoryPatch{
		MedicalCondition:     req.MedicalCondition,
		Medications:          req.Medications,
		Allergies:            req.Allergies,
		Surgeries:            req.Surgeries,
		FamilyMedicalHistory: req.FamilyMedicalHistory,
		UpdatedAt:            utils.NowUTC(),
	}

	affected, err := m.HistoryRepo.Update(ctx, id, patch)
	if err != nil {
		log.Errorf("failed to update medical history %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if affected == 0 {
		return nil, apierror.NewNotFound("Medical history")
	}

	updated, apierr := m.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}
	return toMedicalHistoryResponse(updated), nil
}

func (m *DefaultMedicalHistoryService) DeleteEntry(ctx context.Context, id int, caller *identity.Caller) apierror.ErrorResponse {
	entry, apierr := m.fetch(ctx, id)
	if apierr != nil {
		return apierr
	}

	if !authz.CanMutateHistory(caller, entry) {
		return apierror.ForbiddenError
	}

	affected, err := m.HistoryRepo.Delete(ctx, id)
	if err != nil {
		log.Errorf("failed to delete medical history %d: %v", id, err)
		return apierror.InternalServerError
	}

	if affected == 0 {
		return apierror.NewNotFound("Medical history")
	}
	return nil
}

func (m *DefaultMedicalHistoryService) listByOwner(ctx context.Context, userID string) ([]*MedicalHistoryResponse, apierror.ErrorResponse) {
	entries, err := m.HistoryRepo.Query(ctx, store.HistoryFilter{UserID: userID}, store.Page{})
	if err != nil {
		log.Errorf("failed to fetch medical histories of user %s: %v", userID, err)
		return nil, apierror.InternalServerError
	}
	return toMedicalHistoryResponses(entries), nil
}

func (m *DefaultMedicalHistoryService) fetch(ctx context.Context, id int) (*entity.MedicalHistory, apierror.ErrorResponse) {
	entry, err := m.HistoryRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch medical history by id %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if entry == nil {
		return nil, apierror.NewNotFound("Medical history")
	}
	return entry, nil
}

func toMedicalHistoryResponses(entries []*entity.MedicalHistory) []*MedicalHistoryResponse {
	resp := make([]*MedicalHistoryResponse, len(entries))
	for i, entry := range entries {
		resp[i] = toMedicalHistoryResponse(entry)
	}
	return resp
}

func toMedicalHistoryResponse(entry *entity.MedicalHistory) *MedicalHistoryResponse {
	return &MedicalHistoryResponse{
		ID:                   entry.ID,
		UserID:               entry.UserID,
		DateOfEntry:          utils.FormatEpoch(entry.DateOfEntry),
		MedicalCondition:     entry.MedicalCondition,
		Medications:          entry.Medications,
		Allergies:            entry.Allergies,
		Surgeries:            entry.Surgeries,
		FamilyMedicalHistory: entry.FamilyMedicalHistory,
		CreatedAt:            utils.FormatEpoch(entry.CreatedAt),
		UpdatedAt:            utils.FormatEpoch(entry.UpdatedAt),
	}
}
