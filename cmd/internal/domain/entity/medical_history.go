package entity

const HistoryFieldMaxLength = 255

type MedicalHistory struct {
	ID                   int    `gorm:"primaryKey"`
	UserID               string `gorm:"not null;index"` // References: users(sub_uuid)
	DateOfEntry          int64  `gorm:"not null"`
	MedicalCondition     string `gorm:"not null;size:255"`
	Medications          string `gorm:"size:255"`
	Allergies            string `gorm:"size:255"`
	Surgeries            string `gorm:"size:255"`
	FamilyMedicalHistory string `gorm:"size:255"`
	CreatedAt            int64  `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt            int64  `gorm:"not null;autoUpdateTime:milli"`
}

func (MedicalHistory) TableName() string {
	return "medical_histories"
}
