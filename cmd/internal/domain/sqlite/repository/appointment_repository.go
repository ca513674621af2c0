package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
)

type DefaultAppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db}
}

func (a *DefaultAppointmentRepository) Insert(ctx context.Context, appt *entity.Appointment) error {
	return a.db.WithContext(ctx).Create(appt).Error
}

func (a *DefaultAppointmentRepository) FindByID(ctx context.Context, id int) (*entity.Appointment, error) {
	var appt entity.Appointment
	err := a.db.WithContext(ctx).First(&appt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (a *DefaultAppointmentRepository) Query(ctx context.Context, f store.AppointmentFilter, page store.Page) ([]*entity.Appointment, error) {
	q := a.db.WithContext(ctx).
		Model(&entity.Appointment{}).
		Select("appointments.*")

	if f.Status != "" {
		q = q.Where("appointments.status = ?", f.Status)
	}
	if f.DoctorID != "" {
		q = q.Where("appointments.doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("appointments.patient_id = ?", f.PatientID)
	}
	if f.After != 0 {
		q = q.Where("appointments.date_time > ?", f.After)
	}
	if f.Before != 0 {
		q = q.Where("appointments.date_time < ?", f.Before)
	}
	if f.Specialty != "" {
		q = q.Joins("JOIN users ON users.sub_uuid = appointments.doctor_id").
			Where("LOWER(users.specialty) = LOWER(?)", f.Specialty)
	}

	switch f.Order {
	case store.OrderByDateTime:
		q = q.Order("appointments.date_time asc").Order("appointments.id asc")
	default:
		q = q.Order("appointments.id asc")
	}

	// SQLite rejects OFFSET without LIMIT.
	if page.Limit > 0 {
		q = q.Limit(page.Limit).Offset(page.Offset)
	}

	var appts []*entity.Appointment
	err := q.Find(&appts).Error
	return appts, err
}

// ConditionalUpdate applies patch only while the row still has the expected status and
// returns the number of rows it changed.
func (a *DefaultAppointmentRepository) ConditionalUpdate(ctx context.Context, id int, expected entity.AppointmentStatus, patch store.AppointmentPatch) (int64, error) {
	updates := map[string]any{
		"status":     patch.Status,
		"updated_at": patch.UpdatedAt,
	}
	if patch.PatientID != nil {
		updates["patient_id"] = *patch.PatientID
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	var affected int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Appointment{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

func (a *DefaultAppointmentRepository) Delete(ctx context.Context, id int) (int64, error) {
	res := a.db.WithContext(ctx).Delete(&entity.Appointment{}, id)
	return res.RowsAffected, res.Error
}
