package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/sqlite"
	"medappointments/cmd/internal/domain/store"
)

const jan2030 = int64(1893456000000)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })
	return db
}

func strPtr(s string) *string { return &s }

func seedAppointments(t *testing.T, repo *DefaultAppointmentRepository, n int, doctor string) []*entity.Appointment {
	t.Helper()
	var out []*entity.Appointment
	for i := 0; i < n; i++ {
		appt := &entity.Appointment{
			DoctorID: doctor,
			DateTime: jan2030 + int64(n-i)*3600000,
			Status:   entity.StatusAvailable,
		}
		require.NoError(t, repo.Insert(context.Background(), appt))
		out = append(out, appt)
	}
	return out
}

func ids(appts []*entity.Appointment) []int {
	out := make([]int, len(appts))
	for i, a := range appts {
		out[i] = a.ID
	}
	return out
}

func TestAppointmentRepository_InsertAndFind(t *testing.T) {
	repo := NewAppointmentRepository(newTestDB(t))
	ctx := context.Background()

	appt := &entity.Appointment{DoctorID: "d1", DateTime: jan2030, Status: entity.StatusAvailable}
	require.NoError(t, repo.Insert(ctx, appt))
	require.NotZero(t, appt.ID)
	assert.NotZero(t, appt.CreatedAt)

	found, err := repo.FindByID(ctx, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "d1", found.DoctorID)
	assert.Nil(t, found.PatientID)
	assert.Equal(t, entity.StatusAvailable, found.Status)

	missing, err := repo.FindByID(ctx, appt.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAppointmentRepository_PagesAreStable(t *testing.T) {
	repo := NewAppointmentRepository(newTestDB(t))
	ctx := context.Background()
	seedAppointments(t, repo, 7, "d1")

	f := store.AppointmentFilter{Status: entity.StatusAvailable}
	first, err := repo.Query(ctx, f, store.Page{Offset: 0, Limit: 3})
	require.NoError(t, err)
	second, err := repo.Query(ctx, f, store.Page{Offset: 3, Limit: 3})
	require.NoError(t, err)
	both, err := repo.Query(ctx, f, store.Page{Offset: 0, Limit: 6})
	require.NoError(t, err)

	assert.Equal(t, ids(both), append(ids(first), ids(second)...))
	assert.IsIncreasing(t, ids(both))
}

func TestAppointmentRepository_Filters(t *testing.T) {
	db := newTestDB(t)
	repo := NewAppointmentRepository(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Save(ctx, &entity.User{SubUUID: "d1", Username: "house", Email: "d1@test", Specialty: strPtr("Neurology")}))
	require.NoError(t, users.Save(ctx, &entity.User{SubUUID: "d2", Username: "grey", Email: "d2@test", Specialty: strPtr("Surgery")}))

	neuro := seedAppointments(t, repo, 2, "d1")
	seedAppointments(t, repo, 3, "d2")
	past := &entity.Appointment{DoctorID: "d1", DateTime: 1000, Status: entity.StatusAvailable}
	require.NoError(t, repo.Insert(ctx, past))

	got, err := repo.Query(ctx, store.AppointmentFilter{Specialty: "nEuRoLoGy", After: jan2030 - 1}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, ids(neuro), ids(got))

	got, err = repo.Query(ctx, store.AppointmentFilter{DoctorID: "d1"}, store.Page{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = repo.Query(ctx, store.AppointmentFilter{Specialty: "Cardiology"}, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.Query(ctx, store.AppointmentFilter{DoctorID: "d1", After: jan2030 - 1, Order: store.OrderByDateTime}, store.Page{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Less(t, got[0].DateTime, got[1].DateTime)
}

func TestAppointmentRepository_ConditionalUpdate(t *testing.T) {
	repo := NewAppointmentRepository(newTestDB(t))
	ctx := context.Background()
	appt := seedAppointments(t, repo, 1, "d1")[0]

	patch := store.AppointmentPatch{Status: entity.StatusScheduled, PatientID: strPtr("p1"), Notes: strPtr("first visit"), UpdatedAt: 42}
	n, err := repo.ConditionalUpdate(ctx, appt.ID, entity.StatusAvailable, patch)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.ConditionalUpdate(ctx, appt.ID, entity.StatusAvailable, patch)
	require.NoError(t, err)
	assert.Zero(t, n)

	found, err := repo.FindByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusScheduled, found.Status)
	assert.Equal(t, "p1", *found.PatientID)
	assert.Equal(t, "first visit", *found.Notes)
}

func TestAppointmentRepository_ConcurrentConditionalUpdate(t *testing.T) {
	repo := NewAppointmentRepository(newTestDB(t))
	ctx := context.Background()
	appt := seedAppointments(t, repo, 1, "d1")[0]

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			patient := string(rune('a' + i))
			affected, err := repo.ConditionalUpdate(ctx, appt.ID, entity.StatusAvailable,
				store.AppointmentPatch{Status: entity.StatusScheduled, PatientID: &patient})
			assert.NoError(t, err)
			mu.Lock()
			winners += affected
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners)
}

func TestAppointmentRepository_Delete(t *testing.T) {
	repo := NewAppointmentRepository(newTestDB(t))
	ctx := context.Background()
	appt := seedAppointments(t, repo, 1, "d1")[0]

	n, err := repo.Delete(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, appt.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMedicalHistoryRepository(t *testing.T) {
	repo := NewMedicalHistoryRepository(newTestDB(t))
	ctx := context.Background()

	for i, owner := range []string{"p1", "p2", "p1"} {
		entry := &entity.MedicalHistory{UserID: owner, DateOfEntry: int64(i + 1), MedicalCondition: "asthma"}
		require.NoError(t, repo.Insert(ctx, entry))
	}

	mine, err := repo.Query(ctx, store.HistoryFilter{UserID: "p1"}, store.Page{})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Less(t, mine[0].ID, mine[1].ID)

	all, err := repo.Query(ctx, store.HistoryFilter{}, store.Page{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "p2", all[0].UserID)

	id := mine[0].ID
	n, err := repo.Update(ctx, id, store.HistoryPatch{MedicalCondition: "hay fever", Allergies: "pollen"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	updated, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hay fever", updated.MedicalCondition)
	assert.Equal(t, "pollen", updated.Allergies)
	assert.Equal(t, "p1", updated.UserID)
	assert.Equal(t, int64(1), updated.DateOfEntry)

	n, err = repo.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	user := &entity.User{SubUUID: "sub-1", Username: "jdoe", Email: "j@doe.test", FirstName: "J", LastName: "Doe"}
	require.NoError(t, repo.Save(ctx, user))
	require.NotZero(t, user.ID)

	exists, err := repo.ExistsByEmail(ctx, "j@doe.test")
	require.NoError(t, err)
	assert.True(t, exists)

	bySub, err := repo.FindBySub(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, bySub.ID)

	byEmail, err := repo.FindByEmail(ctx, "nobody@test")
	require.NoError(t, err)
	assert.Nil(t, byEmail)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
