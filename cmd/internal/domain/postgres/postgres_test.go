package postgres

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
)

const jan2030 = int64(1893456000000)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url, 20, 1)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, pool))

	reset := func() {
		_, err := pool.Exec(ctx, `TRUNCATE appointments, medical_histories, users RESTART IDENTITY`)
		require.NoError(t, err)
	}
	reset()
	t.Cleanup(func() {
		reset()
		pool.Close()
	})
	return pool
}

func strPtr(s string) *string { return &s }

func TestAppointmentRepository_Lifecycle(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	appt := &entity.Appointment{DoctorID: "d1", DateTime: jan2030, Status: entity.StatusAvailable}
	require.NoError(t, repo.Insert(ctx, appt))
	require.NotZero(t, appt.ID)

	n, err := repo.ConditionalUpdate(ctx, appt.ID, entity.StatusAvailable, store.AppointmentPatch{
		Status: entity.StatusScheduled, PatientID: strPtr("p1"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.ConditionalUpdate(ctx, appt.ID, entity.StatusAvailable, store.AppointmentPatch{
		Status: entity.StatusScheduled, PatientID: strPtr("p2"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	found, err := repo.FindByID(ctx, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "p1", *found.PatientID)
	assert.Equal(t, entity.StatusScheduled, found.Status)

	deleted, err := repo.Delete(ctx, appt.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	missing, err := repo.FindByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAppointmentRepository_ConcurrentConditionalUpdate(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	appt := &entity.Appointment{DoctorID: "d1", DateTime: jan2030, Status: entity.StatusAvailable}
	require.NoError(t, repo.Insert(ctx, appt))

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := repo.ConditionalUpdate(ctx, appt.ID, entity.StatusAvailable, store.AppointmentPatch{
				Status: entity.StatusScheduled, PatientID: strPtr(string(rune('a' + i))),
			})
			assert.NoError(t, err)
			mu.Lock()
			wins += n
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}

func TestAppointmentRepository_QueryBySpecialty(t *testing.T) {
	pool := newTestPool(t)
	appts := NewAppointmentRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &entity.User{SubUUID: "d1", Username: "d1", Email: "d1@test", Specialty: strPtr("Neurology")}))
	require.NoError(t, users.Save(ctx, &entity.User{SubUUID: "d2", Username: "d2", Email: "d2@test", Specialty: strPtr("Cardiology")}))

	for _, doc := range []string{"d1", "d2", "d1"} {
		require.NoError(t, appts.Insert(ctx, &entity.Appointment{DoctorID: doc, DateTime: jan2030, Status: entity.StatusAvailable}))
	}

	got, err := appts.Query(ctx, store.AppointmentFilter{Specialty: "neurology"}, store.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, a := range got {
		assert.Equal(t, "d1", a.DoctorID)
	}
}

func TestMedicalHistoryRepository_UpdateReplacesFields(t *testing.T) {
	pool := newTestPool(t)
	repo := NewMedicalHistoryRepository(pool)
	ctx := context.Background()

	h := &entity.MedicalHistory{UserID: "p1", DateOfEntry: jan2030, MedicalCondition: "asthma"}
	require.NoError(t, repo.Insert(ctx, h))

	n, err := repo.Update(ctx, h.ID, store.HistoryPatch{MedicalCondition: "bronchitis", Allergies: "pollen"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	found, err := repo.FindByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "bronchitis", found.MedicalCondition)
	assert.Equal(t, "pollen", found.Allergies)

	mine, err := repo.Query(ctx, store.HistoryFilter{UserID: "p1"}, store.Page{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
