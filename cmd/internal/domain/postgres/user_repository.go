package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/utils"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userCols = `id, sub_uuid, username, email, first_name, last_name, specialty,
	email_verified, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(&u.ID, &u.SubUUID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Specialty, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*entity.User, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *UserRepository) FindBySub(ctx context.Context, sub string) (*entity.User, error) {
	return r.findOne(ctx, `sub_uuid = $1`, sub)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, `email = $1`, email)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *UserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Save inserts users without an id and updates the rest.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) error {
	now := utils.NowUTC()
	u.UpdatedAt = now
	if u.ID == 0 {
		if u.CreatedAt == 0 {
			u.CreatedAt = now
		}
		return r.pool.QueryRow(ctx, `
			INSERT INTO users (sub_uuid, username, email, first_name, last_name, specialty,
				email_verified, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			u.SubUUID, u.Username, u.Email, u.FirstName, u.LastName, u.Specialty,
			u.EmailVerified, u.CreatedAt, u.UpdatedAt,
		).Scan(&u.ID)
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET username = $2, email = $3, first_name = $4, last_name = $5,
			specialty = $6, email_verified = $7, updated_at = $8
		WHERE id = $1`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.Specialty, u.EmailVerified, u.UpdatedAt)
	return err
}
