package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"

	"medappointments/cmd/internal/authz"
	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
	"medappointments/cmd/internal/identity"
	"medappointments/cmd/internal/metrics"
	"medappointments/cmd/internal/utils"
	"medappointments/cmd/internal/utils/apierror"
	"medappointments/cmd/internal/utils/pagination"
)

type AppointmentRepository interface {
	Insert(ctx context.Context, appt *entity.Appointment) error
	FindByID(ctx context.Context, id int) (*entity.Appointment, error)
	Query(ctx context.Context, f store.AppointmentFilter, page store.Page) ([]*entity.Appointment, error)
	ConditionalUpdate(ctx context.Context, id int, expected entity.AppointmentStatus, patch store.AppointmentPatch) (int64, error)
	Delete(ctx context.Context, id int) (int64, error)
}

type AppointmentRequest struct {
	DoctorID string `json:"doctor_id" validate:"max=128"`
	DateTime string `json:"date_time" validate:"required,iso8601"`
}

type BookRequest struct {
	Notes string `json:"notes" validate:"max=250"`
}

type AppointmentResponse struct {
	ID        int                      `json:"id"`
	DoctorID  string                   `json:"doctor_id"`
	PatientID *string                  `json:"patient_id"`
	DateTime  string                   `json:"date_time"`
	Status    entity.AppointmentStatus `json:"status"`
	Notes     *string                  `json:"notes"`
	CreatedAt string                   `json:"created_at"`
	UpdatedAt string                   `json:"updated_at"`
}

type AvailableSlot struct {
	ID       int    `json:"id"`
	DoctorID string `json:"doctor_id"`
	BeginsAt string `json:"begins_at"`
}

type CalendarResponse struct {
	AvailableSlots []*AvailableSlot `json:"available_slots"`
}

type DefaultAppointmentService struct {
	AppointmentRepo AppointmentRepository
	Validate        *validator.Validate
	Metrics         *metrics.Metrics
}

func NewAppointmentService(apptRepo AppointmentRepository, validate *validator.Validate, m *metrics.Metrics) *DefaultAppointmentService {
	return &DefaultAppointmentService{AppointmentRepo: apptRepo, Validate: validate, Metrics: m}
}

// CreateAppointment publishes a new Available slot for the calling medical professional.
func (a *DefaultAppointmentService) CreateAppointment(ctx context.Context, req *AppointmentRequest, caller *identity.Caller) (*AppointmentResponse, apierror.ErrorResponse) {
	if !authz.CanCreateAppointment(caller) {
		return nil, apierror.NewForbidden("Only medical professionals can create appointments")
	}

	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	doctorID := req.DoctorID
	if doctorID == "" {
		doctorID = caller.ID
	}
	if doctorID != caller.ID {
		return nil, apierror.NewForbidden("Appointments can only be created for yourself")
	}

	begin, err := utils.FromEpoch(req.DateTime)
	if err != nil {
		return nil, apierror.MalformedBodyError
	}

	if !isFuture(begin) {
		return nil, apierror.AppointmentInPastError
	}

	appointment := &entity.Appointment{
		DoctorID: doctorID,
		DateTime: begin,
		Status:   entity.StatusAvailable,
	}

	err = a.AppointmentRepo.Insert(ctx, appointment)
	if err != nil {
		log.Errorf("failed to save appointment: %v", err)
		return nil, apierror.InternalServerError
	}

	a.Metrics.AppointmentCreated()
	return toAppointmentResponse(appointment), nil
}

// ListAvailable is public. An empty specialty matches every doctor.
func (a *DefaultAppointmentService) ListAvailable(ctx context.Context, page pagination.PageQuery, specialty string) (*pagination.Response, apierror.ErrorResponse) {
	filter := store.AppointmentFilter{
		Status:    entity.StatusAvailable,
		After:     utils.NowUTC(),
		Specialty: specialty,
	}
	return a.list(ctx, filter, page)
}

func (a *DefaultAppointmentService) ListMine(ctx context.Context, caller *identity.Caller, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse) {
	if caller == nil || caller.ID == "" {
		return nil, apierror.InvalidAuthTokenError
	}
	return a.list(ctx, store.AppointmentFilter{PatientID: caller.ID}, page)
}

func (a *DefaultAppointmentService) ListAll(ctx context.Context, caller *identity.Caller, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse) {
	if !authz.CanListAllAppointments(caller) {
		return nil, apierror.ForbiddenError
	}
	return a.list(ctx, store.AppointmentFilter{}, page)
}

func (a *DefaultAppointmentService) GetAppointment(ctx context.Context, id int, caller *identity.Caller) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}

	if !authz.CanViewAppointment(caller, appt) {
		return nil, apierror.ForbiddenError
	}
	return toAppointmentResponse(appt), nil
}

// BookAppointment claims an Available slot for the caller. The status check and the
// write happen in one conditional update, so concurrent bookings of the same slot
// produce exactly one winner.
func (a *DefaultAppointmentService) BookAppointment(ctx context.Context, id int, req *BookRequest, caller *identity.Caller) (*AppointmentResponse, apierror.ErrorResponse) {
	if caller == nil || caller.ID == "" {
		return nil, apierror.InvalidAuthTokenError
	}

	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	patientID := caller.ID
	patch := store.AppointmentPatch{
		Status:    entity.StatusScheduled,
		PatientID: &patientID,
		Notes:     utils.StrPtr(req.Notes),
		UpdatedAt: utils.NowUTC(),
	}

	affected, err := a.AppointmentRepo.ConditionalUpdate(ctx, id, entity.StatusAvailable, patch)
	if err != nil {
		log.Errorf("failed to book appointment %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if affected == 0 {
		if _, apierr := a.fetch(ctx, id); apierr != nil {
			return nil, apierr
		}
		a.Metrics.Conflict("book")
		return nil, apierror.AppointmentAlreadyBookedError
	}

	a.Metrics.Transition(entity.StatusScheduled)
	return a.reload(ctx, id)
}

// CancelAppointment moves a Scheduled appointment to Canceled and records who did it
// in the notes. Canceling an already canceled appointment returns it unchanged.
func (a *DefaultAppointmentService) CancelAppointment(ctx context.Context, id int, caller *identity.Caller) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}

	if !authz.CanMutateAppointment(caller, appt) {
		return nil, apierror.ForbiddenError
	}

	notes := appendAuditNote(appt.Notes, "Appointment canceled by user: "+caller.ID)
	patch := store.AppointmentPatch{
		Status:    entity.StatusCanceled,
		Notes:     &notes,
		UpdatedAt: utils.NowUTC(),
	}
	return a.transition(ctx, appt, patch, "cancel")
}

// CompleteAppointment is reserved to the doctor of a Scheduled appointment.
func (a *DefaultAppointmentService) CompleteAppointment(ctx context.Context, id int, caller *identity.Caller) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}

	if !authz.CanCompleteAppointment(caller, appt) {
		return nil, apierror.NewForbidden("Only the doctor can complete an appointment")
	}

	patch := store.AppointmentPatch{
		Status:    entity.StatusCompleted,
		UpdatedAt: utils.NowUTC(),
	}
	return a.transition(ctx, appt, patch, "complete")
}

// DeleteAppointment removes the appointment whatever its status.
func (a *DefaultAppointmentService) DeleteAppointment(ctx context.Context, id int, caller *identity.Caller) apierror.ErrorResponse {
	appt, apierr := a.fetch(ctx, id)
	if apierr != nil {
		return apierr
	}

	if !authz.CanMutateAppointment(caller, appt) {
		return apierror.ForbiddenError
	}

	affected, err := a.AppointmentRepo.Delete(ctx, id)
	if err != nil {
		log.Errorf("failed to delete appointment by id %d: %v", id, err)
		return apierror.InternalServerError
	}

	if affected == 0 {
		return apierror.NewNotFound("Appointment")
	}

	a.Metrics.AppointmentDeleted()
	return nil
}

// GetCalendar lists the open slots of a month that still lie in the future.
func (a *DefaultAppointmentService) GetCalendar(ctx context.Context, monthStart, monthEnd int64) (*CalendarResponse, apierror.ErrorResponse) {
	filter := store.AppointmentFilter{
		Status: entity.StatusAvailable,
		After:  max(utils.NowUTC(), monthStart-1),
		Before: monthEnd,
		Order:  store.OrderByDateTime,
	}

	appts, err := a.AppointmentRepo.Query(ctx, filter, store.Page{})
	if err != nil {
		log.Errorf("failed to fetch appointments availability [%d - %d]: %v", monthStart, monthEnd, err)
		return nil, apierror.InternalServerError
	}

	slots := make([]*AvailableSlot, len(appts))
	for i, appt := range appts {
		slots[i] = toAvailableSlot(appt)
	}

	calendar := &CalendarResponse{
		AvailableSlots: slots,
	}
	return calendar, nil
}

// transition applies patch only if the appointment is still Scheduled. A target status
// the appointment already holds is reported back as a no-op.
func (a *DefaultAppointmentService) transition(ctx context.Context, appt *entity.Appointment, patch store.AppointmentPatch, op string) (*AppointmentResponse, apierror.ErrorResponse) {
	if appt.Status == patch.Status {
		return toAppointmentResponse(appt), nil
	}

	if appt.Status != entity.StatusScheduled || !entity.CanTransition(appt.Status, patch.Status) {
		a.Metrics.Conflict(op)
		return nil, apierror.AppointmentNotScheduledError
	}

	affected, err := a.AppointmentRepo.ConditionalUpdate(ctx, appt.ID, entity.StatusScheduled, patch)
	if err != nil {
		log.Errorf("failed to %s appointment %d: %v", op, appt.ID, err)
		return nil, apierror.InternalServerError
	}

	if affected == 0 {
		current, apierr := a.fetch(ctx, appt.ID)
		if apierr != nil {
			return nil, apierr
		}
		if current.Status == patch.Status {
			return toAppointmentResponse(current), nil
		}
		a.Metrics.Conflict(op)
		return nil, apierror.AppointmentNotScheduledError
	}

	a.Metrics.Transition(patch.Status)
	return a.reload(ctx, appt.ID)
}

func (a *DefaultAppointmentService) list(ctx context.Context, filter store.AppointmentFilter, page pagination.PageQuery) (*pagination.Response, apierror.ErrorResponse) {
	appts, err := a.AppointmentRepo.Query(ctx, filter, page.Page())
	if err != nil {
		log.Errorf("failed to query appointments: %v", err)
		return nil, apierror.InternalServerError
	}

	response := make([]*AppointmentResponse, len(appts))
	for i, appt := range appts {
		response[i] = toAppointmentResponse(appt)
	}
	return pagination.NewResponse(response, len(response), page), nil
}

func (a *DefaultAppointmentService) fetch(ctx context.Context, id int) (*entity.Appointment, apierror.ErrorResponse) {
	appt, err := a.AppointmentRepo.FindByID(ctx, id)
	if err != nil {
		log.Errorf("failed to fetch appointment by id %d: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if appt == nil {
		return nil, apierror.NewNotFound("Appointment")
	}
	return appt, nil
}

func (a *DefaultAppointmentService) reload(ctx context.Context, id int) (*AppointmentResponse, apierror.ErrorResponse) {
	appt, apierr := a.fetch(ctx, id)
	if apierr != nil {
		return nil, apierr
	}
	return toAppointmentResponse(appt), nil
}

// appendAuditNote adds line to the notes, dropping the oldest text when the result
// would exceed entity.NotesMaxLength. The audit line itself is never cut.
func appendAuditNote(notes *string, line string) string {
	existing := []rune(utils.Deref(notes))
	audit := []rune(line)
	if len(audit) >= entity.NotesMaxLength {
		return string(audit[len(audit)-entity.NotesMaxLength:])
	}
	if len(existing) == 0 {
		return line
	}

	room := entity.NotesMaxLength - len(audit) - 1
	if len(existing) > room {
		existing = existing[len(existing)-room:]
	}
	if len(existing) == 0 {
		return line
	}
	return string(existing) + "\n" + line
}

func isFuture(millis int64) bool {
	now := utils.NowUTC()
	return millis > now
}

func toAvailableSlot(appt *entity.Appointment) *AvailableSlot {
	return &AvailableSlot{
		ID:       appt.ID,
		DoctorID: appt.DoctorID,
		BeginsAt: utils.FormatEpoch(appt.DateTime),
	}
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:        appt.ID,
		DoctorID:  appt.DoctorID,
		PatientID: appt.PatientID,
		DateTime:  utils.FormatEpoch(appt.DateTime),
		Status:    appt.Status,
		Notes:     appt.Notes,
		CreatedAt: utils.FormatEpoch(appt.CreatedAt),
		UpdatedAt: utils.FormatEpoch(appt.UpdatedAt),
	}
}
