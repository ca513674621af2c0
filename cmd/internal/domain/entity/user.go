package entity

type Role string

const (
	RoleAdmin               Role = "Admin"
	RoleMedicalProfessional Role = "MedicalProfessional"
	RolePatient             Role = "Patient"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleMedicalProfessional, RolePatient:
		return Role(s), true
	}
	return "", false
}

// User is the local projection of an identity provider account. Roles live in the
// identity provider; only profile data is kept here.
type User struct {
	ID            int     `gorm:"primaryKey"`
	SubUUID       string  `gorm:"not null;uniqueIndex"`
	Username      string  `gorm:"not null"`
	Email         string  `gorm:"not null;uniqueIndex"`
	FirstName     string  `gorm:"not null;size:50"`
	LastName      string  `gorm:"not null;size:50"`
	Specialty     *string // MedicalProfessional only
	EmailVerified bool    `gorm:"not null"`
	CreatedAt     int64   `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt     int64   `gorm:"not null;autoUpdateTime:milli"`
}
