// Package authz decides who may see or change appointments and medical history
// entries. Every function is a pure predicate over the caller and the record.
package authz

import (
	"medappointments/cmd/internal/domain/entity"
	"medappointments/cmd/internal/identity"
)

func isParty(caller *identity.Caller, appt *entity.Appointment) bool {
	if caller == nil || appt == nil || caller.ID == "" {
		return false
	}
	if caller.ID == appt.DoctorID {
		return true
	}
	return appt.PatientID != nil && caller.ID == *appt.PatientID
}

func CanViewAppointment(caller *identity.Caller, appt *entity.Appointment) bool {
	return caller.IsAdmin() || isParty(caller, appt)
}

// CanMutateAppointment is limited to the two parties. Admins can read any appointment
// but cannot change one.
func CanMutateAppointment(caller *identity.Caller, appt *entity.Appointment) bool {
	return isParty(caller, appt)
}

// CanCompleteAppointment is limited to the owning doctor.
func CanCompleteAppointment(caller *identity.Caller, appt *entity.Appointment) bool {
	return caller != nil && appt != nil && caller.ID != "" && caller.ID == appt.DoctorID
}

func CanCreateAppointment(caller *identity.Caller) bool {
	return caller.HasRole(entity.RoleMedicalProfessional)
}

func CanListAllAppointments(caller *identity.Caller) bool {
	return caller.IsAdmin()
}

func CanViewHistory(caller *identity.Caller, entry *entity.MedicalHistory) bool {
	if caller.IsAdmin() || caller.HasRole(entity.RoleMedicalProfessional) {
		return true
	}
	return isOwner(caller, entry)
}

// CanMutateHistory is owner-only; clinical staff get no override.
func CanMutateHistory(caller *identity.Caller, entry *entity.MedicalHistory) bool {
	return isOwner(caller, entry)
}

// CanBrowsePatientHistory allows staff to list another patient's entries.
func CanBrowsePatientHistory(caller *identity.Caller, patientID string) bool {
	if caller == nil {
		return false
	}
	if caller.IsAdmin() || caller.HasRole(entity.RoleMedicalProfessional) {
		return true
	}
	return caller.ID != "" && caller.ID == patientID
}

func CanListAllHistories(caller *identity.Caller) bool {
	return caller.IsAdmin()
}

func CanRegisterMedicalProfessional(caller *identity.Caller) bool {
	return caller.IsAdmin()
}

func isOwner(caller *identity.Caller, entry *entity.MedicalHistory) bool {
	return caller != nil && entry != nil && caller.ID != "" && caller.ID == entry.UserID
}
