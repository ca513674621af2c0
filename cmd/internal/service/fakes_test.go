package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/domain/store"
	cognitoclient "medappointments/cmd/internal/integration/aws/cognito"
	"medappointments/cmd/internal/utils"
)

var errStore = errors.New("store unavailable")

func paginate[T any](items []T, page store.Page) []T {
	if page.Offset >= len(items) {
		return nil
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

type memAppointmentRepo struct {
	mu          sync.Mutex
	nextID      int
	rows        map[int]entity.Appointment
	specialties map[string]string // doctor id -> specialty
	err         error
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{rows: map[int]entity.Appointment{}, specialties: map[string]string{}}
}

func (r *memAppointmentRepo) Insert(_ context.Context, appt *entity.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	appt.ID = r.nextID
	now := utils.NowUTC()
	appt.CreatedAt, appt.UpdatedAt = now, now
	r.rows[appt.ID] = *appt
	return nil
}

func (r *memAppointmentRepo) FindByID(_ context.Context, id int) (*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memAppointmentRepo) Query(_ context.Context, f store.AppointmentFilter, page store.Page) ([]*entity.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var out []*entity.Appointment
	for _, row := range r.rows {
		switch {
		case f.Status != "" && row.Status != f.Status,
			f.DoctorID != "" && row.DoctorID != f.DoctorID,
			f.PatientID != "" && utils.Deref(row.PatientID) != f.PatientID,
			f.Specialty != "" && !strings.EqualFold(r.specialties[row.DoctorID], f.Specialty),
			f.After != 0 && row.DateTime <= f.After,
			f.Before != 0 && row.DateTime >= f.Before:
			continue
		}
		row := row
		out = append(out, &row)
	}

	slices.SortFunc(out, func(a, b *entity.Appointment) int {
		if f.Order == store.OrderByDateTime && a.DateTime != b.DateTime {
			return cmp.Compare(a.DateTime, b.DateTime)
		}
		return a.ID - b.ID
	})
	return paginate(out, page), nil
}

func (r *memAppointmentRepo) ConditionalUpdate(_ context.Context, id int, expected entity.AppointmentStatus, patch store.AppointmentPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	row, ok := r.rows[id]
	if !ok || row.Status != expected {
		return 0, nil
	}
	row.Status = patch.Status
	if patch.PatientID != nil {
		row.PatientID = patch.PatientID
	}
	if patch.Notes != nil {
		row.Notes = patch.Notes
	}
	row.UpdatedAt = patch.UpdatedAt
	r.rows[id] = row
	return 1, nil
}

func (r *memAppointmentRepo) Delete(_ context.Context, id int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

type memHistoryRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]entity.MedicalHistory
	err    error
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{rows: map[int]entity.MedicalHistory{}}
}

func (r *memHistoryRepo) Insert(_ context.Context, entry *entity.MedicalHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	entry.ID = r.nextID
	now := utils.NowUTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	r.rows[entry.ID] = *entry
	return nil
}

func (r *memHistoryRepo) FindByID(_ context.Context, id int) (*entity.MedicalHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memHistoryRepo) Query(_ context.Context, f store.HistoryFilter, page store.Page) ([]*entity.MedicalHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*entity.MedicalHistory
	for _, row := range r.rows {
		if f.UserID != "" && row.UserID != f.UserID {
			continue
		}
		row := row
		out = append(out, &row)
	}
	slices.SortFunc(out, func(a, b *entity.MedicalHistory) int { return a.ID - b.ID })
	return paginate(out, page), nil
}

func (r *memHistoryRepo) Update(_ context.Context, id int, p store.HistoryPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	row, ok := r.rows[id]
	if !ok {
		return 0, nil
	}
	row.MedicalCondition = p.MedicalCondition
	row.Medications = p.Medications
	row.Allergies = p.Allergies
	row.Surgeries = p.Surgeries
	row.FamilyMedicalHistory = p.FamilyMedicalHistory
	row.UpdatedAt = p.UpdatedAt
	r.rows[id] = row
	return 1, nil
}

func (r *memHistoryRepo) Delete(_ context.Context, id int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	if _, ok := r.rows[id]; !ok {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]entity.User
	err    error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{rows: map[int]entity.User{}}
}

func (r *memUserRepo) find(match func(entity.User) bool) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.rows {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id int) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id })
}

func (r *memUserRepo) FindBySub(_ context.Context, sub string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.SubUUID == sub })
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.Email == email })
}

func (r *memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := r.FindByEmail(ctx, email)
	return u != nil, err
}

func (r *memUserRepo) FindAll(_ context.Context) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []*entity.User
	for _, u := range r.rows {
		u := u
		out = append(out, &u)
	}
	slices.SortFunc(out, func(a, b *entity.User) int { return a.ID - b.ID })
	return out, nil
}

func (r *memUserRepo) Save(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if user.ID == 0 {
		r.nextID++
		user.ID = r.nextID
	}
	r.rows[user.ID] = *user
	return nil
}

// fakeCognito follows the func-field mock style: unset funcs succeed.
type fakeCognito struct {
	SignUpFn   func(user *cognitoclient.User) (string, error)
	SignInFn   func(login *cognitoclient.UserLogin) (*cognitoclient.AuthCreate, error)
	ConfirmFn  func(confirm *cognitoclient.UserConfirmation) error
	AddGroupFn func(email, group string) error

	groups  map[string]string
	deleted []string
}

func (f *fakeCognito) SignUp(_ context.Context, user *cognitoclient.User) (string, error) {
	if f.SignUpFn != nil {
		return f.SignUpFn(user)
	}
	return "sub-" + user.Email, nil
}

func (f *fakeCognito) SignIn(_ context.Context, login *cognitoclient.UserLogin) (*cognitoclient.AuthCreate, error) {
	if f.SignInFn != nil {
		return f.SignInFn(login)
	}
	return &cognitoclient.AuthCreate{AccessToken: "access", IDToken: "id", ExpiresIn: 3600}, nil
}

func (f *fakeCognito) ConfirmAccount(_ context.Context, confirm *cognitoclient.UserConfirmation) error {
	if f.ConfirmFn != nil {
		return f.ConfirmFn(confirm)
	}
	return nil
}

func (f *fakeCognito) AdminAddUserToGroup(_ context.Context, email, group string) error {
	if f.AddGroupFn != nil {
		if err := f.AddGroupFn(email, group); err != nil {
			return err
		}
	}
	if f.groups == nil {
		f.groups = map[string]string{}
	}
	f.groups[email] = group
	return nil
}

func (f *fakeCognito) AdminDeleteUser(_ context.Context, email string) error {
	f.deleted = append(f.deleted, email)
	return nil
}
