package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
	"medappointments/cmd/internal/utils"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const apptCols = `a.id, a.doctor_id, a.patient_id, a.date_time, a.status, a.notes, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (*entity.Appointment, error) {
	var (
		a      entity.Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.DateTime, &status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = entity.AppointmentStatus(status)
	return &a, nil
}

func (r *AppointmentRepository) Insert(ctx context.Context, a *entity.Appointment) error {
	now := utils.NowUTC()
	if a.CreatedAt == 0 {
		a.CreatedAt = now
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = now
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO appointments (doctor_id, patient_id, date_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.DoctorID, a.PatientID, a.DateTime, string(a.Status), a.Notes, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (r *AppointmentRepository) FindByID(ctx context.Context, id int) (*entity.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointments a WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *AppointmentRepository) Query(ctx context.Context, f store.AppointmentFilter, page store.Page) ([]*entity.Appointment, error) {
	var (
		sb    strings.Builder
		args  []any
		where []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	sb.WriteString(`SELECT ` + apptCols + ` FROM appointments a`)
	if f.Specialty != "" {
		sb.WriteString(` JOIN users u ON u.sub_uuid = a.doctor_id`)
		where = append(where, `LOWER(u.specialty) = LOWER(`+arg(f.Specialty)+`)`)
	}
	if f.Status != "" {
		where = append(where, `a.status = `+arg(string(f.Status)))
	}
	if f.DoctorID != "" {
		where = append(where, `a.doctor_id = `+arg(f.DoctorID))
	}
	if f.PatientID != "" {
		where = append(where, `a.patient_id = `+arg(f.PatientID))
	}
	if f.After != 0 {
		where = append(where, `a.date_time > `+arg(f.After))
	}
	if f.Before != 0 {
		where = append(where, `a.date_time < `+arg(f.Before))
	}
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}

	switch f.Order {
	case store.OrderByDateTime:
		sb.WriteString(` ORDER BY a.date_time ASC, a.id ASC`)
	default:
		sb.WriteString(` ORDER BY a.id ASC`)
	}
	if page.Limit > 0 {
		sb.WriteString(` LIMIT ` + arg(page.Limit) + ` OFFSET ` + arg(page.Offset))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*entity.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ConditionalUpdate applies patch only while the row still has the expected status and
// returns the number of rows it changed.
func (r *AppointmentRepository) ConditionalUpdate(ctx context.Context, id int, expected entity.AppointmentStatus, patch store.AppointmentPatch) (int64, error) {
	updatedAt := patch.UpdatedAt
	if updatedAt == 0 {
		updatedAt = utils.NowUTC()
	}

	var affected int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments
			SET status = $3,
				patient_id = COALESCE($4, patient_id),
				notes = COALESCE($5, notes),
				updated_at = $6
			WHERE id = $1 AND status = $2`,
			id, string(expected), string(patch.Status), patch.PatientID, patch.Notes, updatedAt)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

func (r *AppointmentRepository) Delete(ctx context.Context, id int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
