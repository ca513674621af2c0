package entity

type AppointmentStatus string

const (
	StatusAvailable AppointmentStatus = "Available"
	StatusScheduled AppointmentStatus = "Scheduled"
	StatusCanceled  AppointmentStatus = "Canceled"
	StatusCompleted AppointmentStatus = "Completed"
)

// NotesMaxLength bounds Appointment.Notes, audit lines included.
const NotesMaxLength = 250

type Appointment struct {
	ID        int               `gorm:"primaryKey"`
	DoctorID  string            `gorm:"not null;index"` // References: users(sub_uuid)
	PatientID *string           `gorm:"index"`          // References: users(sub_uuid)
	DateTime  int64             `gorm:"not null"`
	Status    AppointmentStatus `gorm:"not null;size:20;default:Available;index"`
	Notes     *string           `gorm:"size:250"`
	CreatedAt int64             `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt int64             `gorm:"not null;autoUpdateTime:milli"`
}

// IsTerminal reports whether no transition leaves the status.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusCompleted
}

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusScheduled, StatusCanceled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the appointment lifecycle.
func CanTransition(from, to AppointmentStatus) bool {
	switch from {
	case StatusAvailable:
		return to == StatusScheduled
	case StatusScheduled:
		return to == StatusCanceled || to == StatusCompleted
	}
	return false
}
