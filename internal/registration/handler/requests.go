package handler

import (
	"time"

	"vitalreg/internal/registration/models"
)

const dateLayout = "2006-01-02"

// BirthRegistrationRequest is the submission payload for a birth
// application. Dates travel as ISO calendar dates.
type BirthRegistrationRequest struct {
	ChildName    string `json:"childName" validate:"required"`
	ChildSex     string `json:"childSex" validate:"required,oneof=male female"`
	DateOfBirth  string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	TimeOfBirth  string `json:"timeOfBirth" validate:"omitempty"`
	PlaceOfBirth string `json:"placeOfBirth" validate:"required"`

	FatherName        string `json:"fatherName" validate:"required"`
	FatherNationalID  string `json:"fatherNationalId" validate:"required"`
	FatherDateOfBirth string `json:"fatherDateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	FatherOccupation  string `json:"fatherOccupation" validate:"omitempty"`

	MotherName        string `json:"motherName" validate:"required"`
	MotherNationalID  string `json:"motherNationalId" validate:"required"`
	MotherDateOfBirth string `json:"motherDateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	MotherOccupation  string `json:"motherOccupation" validate:"omitempty"`
}

// ToModel converts the validated request into a registration record.
// Validation already guaranteed the date strings parse.
func (r *BirthRegistrationRequest) ToModel() *models.BirthRegistration {
	return &models.BirthRegistration{
		ChildName:    r.ChildName,
		ChildSex:     r.ChildSex,
		DateOfBirth:  parseDate(r.DateOfBirth),
		TimeOfBirth:  r.TimeOfBirth,
		PlaceOfBirth: r.PlaceOfBirth,

		FatherName:        r.FatherName,
		FatherNationalID:  r.FatherNationalID,
		FatherDateOfBirth: parseDate(r.FatherDateOfBirth),
		FatherOccupation:  r.FatherOccupation,

		MotherName:        r.MotherName,
		MotherNationalID:  r.MotherNationalID,
		MotherDateOfBirth: parseDate(r.MotherDateOfBirth),
		MotherOccupation:  r.MotherOccupation,
	}
}

// DeathRegistrationRequest is the submission payload for a death
// application.
type DeathRegistrationRequest struct {
	DeceasedName string `json:"deceasedName" validate:"required"`
	DateOfDeath  string `json:"dateOfDeath" validate:"required,datetime=2006-01-02"`
	TimeOfDeath  string `json:"timeOfDeath" validate:"omitempty"`
	PlaceOfDeath string `json:"placeOfDeath" validate:"required"`
	CauseOfDeath string `json:"causeOfDeath" validate:"required"`

	NextOfKinName         string `json:"nextOfKinName" validate:"required"`
	NextOfKinRelationship string `json:"nextOfKinRelationship" validate:"required"`
	NextOfKinContact      string `json:"nextOfKinContact" validate:"required"`
	NextOfKinNationalID   string `json:"nextOfKinNationalId" validate:"omitempty"`
}

// ToModel converts the validated request into a registration record.
func (r *DeathRegistrationRequest) ToModel() *models.DeathRegistration {
	return &models.DeathRegistration{
		DeceasedName: r.DeceasedName,
		DateOfDeath:  parseDate(r.DateOfDeath),
		TimeOfDeath:  r.TimeOfDeath,
		PlaceOfDeath: r.PlaceOfDeath,
		CauseOfDeath: r.CauseOfDeath,

		NextOfKinName:         r.NextOfKinName,
		NextOfKinRelationship: r.NextOfKinRelationship,
		NextOfKinContact:      r.NextOfKinContact,
		NextOfKinNationalID:   r.NextOfKinNationalID,
	}
}

// StatusUpdateRequest is the reviewer decision payload. Status values are
// checked by the registration service so the transition rules live in one
// place.
type StatusUpdateRequest struct {
	Status      string `json:"status" validate:"required"`
	ReviewNotes string `json:"reviewNotes" validate:"omitempty"`
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
