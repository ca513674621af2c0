package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
)

type DefaultMedicalHistoryRepository struct {
	db *gorm.DB
}

func NewMedicalHistoryRepository(db *gorm.DB) *DefaultMedicalHistoryRepository {
	return &DefaultMedicalHistoryRepository{db: db}
}

func (m *DefaultMedicalHistoryRepository) Insert(ctx context.Context, entry *entity.MedicalHistory) error {
	return m.db.WithContext(ctx).Create(entry).Error
}

func (m *DefaultMedicalHistoryRepository) FindByID(ctx context.Context, id int) (*entity.MedicalHistory, error) {
	var entry entity.MedicalHistory
	err := m.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (m *DefaultMedicalHistoryRepository) Query(ctx context.Context, f store.HistoryFilter, page store.Page) ([]*entity.MedicalHistory, error) {
	q := m.db.WithContext(ctx).Model(&entity.MedicalHistory{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	q = q.Order("id asc")
	if page.Limit > 0 {
		q = q.Limit(page.Limit).Offset(page.Offset)
	}

	var entries []*entity.MedicalHistory
	err := q.Find(&entries).Error
	return entries, err
}

// Update never touches user_id or date_of_entry.
func (m *DefaultMedicalHistoryRepository) Update(ctx context.Context, id int, patch store.HistoryPatch) (int64, error) {
	res := m.db.WithContext(ctx).
		Model(&entity.MedicalHistory{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"medical_condition":      patch.MedicalCondition,
			"medications":            patch.Medications,
			"allergies":              patch.Allergies,
			"surgeries":              patch.Surgeries,
			"family_medical_history": patch.FamilyMedicalHistory,
			"updated_at":             patch.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}

func (m *DefaultMedicalHistoryRepository) Delete(ctx context.Context, id int) (int64, error) {
	res := m.db.WithContext(ctx).Delete(&entity.MedicalHistory{}, id)
	return res.RowsAffected, res.Error
}
