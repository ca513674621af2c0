package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             SERIAL PRIMARY KEY,
		sub_uuid       TEXT NOT NULL UNIQUE,
		username       TEXT NOT NULL,
		email          TEXT NOT NULL UNIQUE,
		first_name     VARCHAR(50) NOT NULL DEFAULT '',
		last_name      VARCHAR(50) NOT NULL DEFAULT '',
		specialty      TEXT,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     BIGINT NOT NULL,
		updated_at     BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id         SERIAL PRIMARY KEY,
		doctor_id  TEXT NOT NULL,
		patient_id TEXT,
		date_time  BIGINT NOT NULL,
		status     VARCHAR(20) NOT NULL DEFAULT 'Available',
		notes      VARCHAR(250),
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		CONSTRAINT appointments_patient_iff_booked CHECK ((status = 'Available') = (patient_id IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments (status)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments (doctor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments (patient_id)`,
	`CREATE TABLE IF NOT EXISTS medical_histories (
		id                     SERIAL PRIMARY KEY,
		user_id                TEXT NOT NULL,
		date_of_entry          BIGINT NOT NULL,
		medical_condition      VARCHAR(255) NOT NULL,
		medications            VARCHAR(255) NOT NULL DEFAULT '',
		allergies              VARCHAR(255) NOT NULL DEFAULT '',
		surgeries              VARCHAR(255) NOT NULL DEFAULT '',
		family_medical_history VARCHAR(255) NOT NULL DEFAULT '',
		created_at             BIGINT NOT NULL,
		updated_at             BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_medical_histories_user ON medical_histories (user_id)`,
}

// Migrate creates the tables when missing. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}
