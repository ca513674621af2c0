package main

import (
	"context"

	"medappointments/cmd/internal/config"
	"medappointments/cmd/internal/domain/postgres"
	"medappointments/cmd/internal/domain/sqlite"
	"medappointments/cmd/internal/domain/sqlite/repository"
	"medappointments/cmd/internal/service"
)

type repositories struct {
	appointments service.AppointmentRepository
	histories    service.MedicalHistoryRepository
	users        service.UserRepository
	close        func()
}

// openStore connects the configured backend and makes sure its schema exists.
func openStore(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.DatabaseDriver == config.DriverPostgres {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &repositories{
			appointments: postgres.NewAppointmentRepository(pool),
			histories:    postgres.NewMedicalHistoryRepository(pool),
			users:        postgres.NewUserRepository(pool),
			close:        pool.Close,
		}, nil
	}

	db, err := sqlite.Init(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return &repositories{
		appointments: repository.NewAppointmentRepository(db),
		histories:    repository.NewMedicalHistoryRepository(db),
		users:        repository.NewUserRepository(db),
		close:        func() { _ = sqlite.Close(db) },
	}, nil
}
