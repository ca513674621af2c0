package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
	"medappointments/cmd/internal/utils"
)

type MedicalHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewMedicalHistoryRepository(pool *pgxpool.Pool) *MedicalHistoryRepository {
	return &MedicalHistoryRepository{pool: pool}
}

const historyCols = `id, user_id, date_of_entry, medical_condition, medications, allergies,
	surgeries, family_medical_history, created_at, updated_at`

func scanHistory(row pgx.Row) (*entity.MedicalHistory, error) {
	var h entity.MedicalHistory
	err := row.Scan(&h.ID, &h.UserID, &h.DateOfEntry, &h.MedicalCondition, &h.Medications,
		&h.Allergies, &h.Surgeries, &h.FamilyMedicalHistory, &h.CreatedAt, &h.UpdatedAt)
	return &h, err
}

func (r *MedicalHistoryRepository) Insert(ctx context.Context, h *entity.MedicalHistory) error {
	now := utils.NowUTC()
	if h.CreatedAt == 0 {
		h.CreatedAt = now
	}
	if h.UpdatedAt == 0 {
		h.UpdatedAt = now
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO medical_histories (user_id, date_of_entry, medical_condition, medications,
			allergies, surgeries, family_medical_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		h.UserID, h.DateOfEntry, h.MedicalCondition, h.Medications, h.Allergies,
		h.Surgeries, h.FamilyMedicalHistory, h.CreatedAt, h.UpdatedAt,
	).Scan(&h.ID)
}

func (r *MedicalHistoryRepository) FindByID(ctx context.Context, id int) (*entity.MedicalHistory, error) {
	h, err := scanHistory(r.pool.QueryRow(ctx, `SELECT `+historyCols+` FROM medical_histories WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *MedicalHistoryRepository) Query(ctx context.Context, f store.HistoryFilter, page store.Page) ([]*entity.MedicalHistory, error) {
	limit := any(nil)
	if page.Limit > 0 {
		limit = page.Limit
	}
	// LIMIT NULL means no limit in Postgres.
	rows, err := r.pool.Query(ctx, `SELECT `+historyCols+` FROM medical_histories
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY id ASC
		LIMIT $2 OFFSET $3`, f.UserID, limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*entity.MedicalHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

func (r *MedicalHistoryRepository) Update(ctx context.Context, id int, p store.HistoryPatch) (int64, error) {
	updatedAt := p.UpdatedAt
	if updatedAt == 0 {
		updatedAt = utils.NowUTC()
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE medical_histories
		SET medical_condition = $2, medications = $3, allergies = $4, surgeries = $5,
			family_medical_history = $6, updated_at = $7
		WHERE id = $1`,
		id, p.MedicalCondition, p.Medications, p.Allergies, p.Surgeries, p.FamilyMedicalHistory, updatedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MedicalHistoryRepository) Delete(ctx context.Context, id int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM medical_histories WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
