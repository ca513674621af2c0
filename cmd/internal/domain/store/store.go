// Package store holds the query and patch shapes shared by every Store backend.
// Backends apply Order before Offset/Limit so that pages are reproducible.
package store

import "medappointments/cmd/internal/domain/entity"

type Order int

const (
	// OrderByID sorts by id ascending. It is the default for every paged listing.
	OrderByID Order = iota
	// OrderByDateTime sorts by date_time ascending, id ascending on ties.
	OrderByDateTime
)

// Page is an offset/limit window. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

type AppointmentFilter struct {
	Status    entity.AppointmentStatus // empty matches any status
	DoctorID  string
	PatientID string
	Specialty string // doctor's specialty, case-insensitive exact match
	After     int64  // date_time > After, when non-zero
	Before    int64  // date_time < Before, when non-zero
	Order     Order
}

// AppointmentPatch is applied by a conditional update. Nil pointers leave the column as is.
type AppointmentPatch struct {
	Status    entity.AppointmentStatus
	PatientID *string
	Notes     *string
	UpdatedAt int64
}

type HistoryFilter struct {
	UserID string // empty matches every owner
}

// HistoryPatch replaces every mutable field of an entry.
type HistoryPatch struct {
	MedicalCondition     string
	Medications          string
	Allergies            string
	Surgeries            string
	FamilyMedicalHistory string
	UpdatedAt            int64
}
