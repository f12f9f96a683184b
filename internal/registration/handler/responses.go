package handler

import (
	"time"

	"vitalreg/internal/registration/models"
	"vitalreg/internal/registration/service"
)

// BirthRegistrationResponse is the API shape of a birth application.
type BirthRegistrationResponse struct {
	ID            int64  `json:"id"`
	ApplicationID string `json:"applicationId"`

	ChildName    string `json:"childName"`
	ChildSex     string `json:"childSex"`
	DateOfBirth  string `json:"dateOfBirth"`
	TimeOfBirth  string `json:"timeOfBirth,omitempty"`
	PlaceOfBirth string `json:"placeOfBirth"`

	FatherName        string `json:"fatherName"`
	FatherNationalID  string `json:"fatherNationalId"`
	FatherDateOfBirth string `json:"fatherDateOfBirth,omitempty"`
	FatherOccupation  string `json:"fatherOccupation,omitempty"`

	MotherName        string `json:"motherName"`
	MotherNationalID  string `json:"motherNationalId"`
	MotherDateOfBirth string `json:"motherDateOfBirth,omitempty"`
	MotherOccupation  string `json:"motherOccupation,omitempty"`

	SubmittedBy       string `json:"submittedBy"`
	Status            string `json:"status"`
	ReviewedBy        string `json:"reviewedBy,omitempty"`
	ReviewNotes       string `json:"reviewNotes,omitempty"`
	CertificateNumber string `json:"certificateNumber,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewBirthRegistrationResponse maps a record to its API shape.
func NewBirthRegistrationResponse(reg *models.BirthRegistration) BirthRegistrationResponse {
	return BirthRegistrationResponse{
		ID:            reg.ID,
		ApplicationID: reg.ApplicationID,

		ChildName:    reg.ChildName,
		ChildSex:     reg.ChildSex,
		DateOfBirth:  formatDate(reg.DateOfBirth),
		TimeOfBirth:  reg.TimeOfBirth,
		PlaceOfBirth: reg.PlaceOfBirth,

		FatherName:        reg.FatherName,
		FatherNationalID:  reg.FatherNationalID,
		FatherDateOfBirth: formatDate(reg.FatherDateOfBirth),
		FatherOccupation:  reg.FatherOccupation,

		MotherName:        reg.MotherName,
		MotherNationalID:  reg.MotherNationalID,
		MotherDateOfBirth: formatDate(reg.MotherDateOfBirth),
		MotherOccupation:  reg.MotherOccupation,

		SubmittedBy:       reg.SubmittedBy,
		Status:            string(reg.Status),
		ReviewedBy:        reg.ReviewedBy,
		ReviewNotes:       reg.ReviewNotes,
		CertificateNumber: reg.CertificateNumber,

		CreatedAt: reg.CreatedAt,
		UpdatedAt: reg.UpdatedAt,
	}
}

// DeathRegistrationResponse is the API shape of a death application.
type DeathRegistrationResponse struct {
	ID            int64  `json:"id"`
	ApplicationID string `json:"applicationId"`

	DeceasedName string `json:"deceasedName"`
	DateOfDeath  string `json:"dateOfDeath"`
	TimeOfDeath  string `json:"timeOfDeath,omitempty"`
	PlaceOfDeath string `json:"placeOfDeath"`
	CauseOfDeath string `json:"causeOfDeath"`

	NextOfKinName         string `json:"nextOfKinName"`
	NextOfKinRelationship string `json:"nextOfKinRelationship"`
	NextOfKinContact      string `json:"nextOfKinContact"`
	NextOfKinNationalID   string `json:"nextOfKinNationalId,omitempty"`

	SubmittedBy       string `json:"submittedBy"`
	Status            string `json:"status"`
	ReviewedBy        string `json:"reviewedBy,omitempty"`
	ReviewNotes       string `json:"reviewNotes,omitempty"`
	CertificateNumber string `json:"certificateNumber,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewDeathRegistrationResponse maps a record to its API shape.
func NewDeathRegistrationResponse(reg *models.DeathRegistration) DeathRegistrationResponse {
	return DeathRegistrationResponse{
		ID:            reg.ID,
		ApplicationID: reg.ApplicationID,

		DeceasedName: reg.DeceasedName,
		DateOfDeath:  formatDate(reg.DateOfDeath),
		TimeOfDeath:  reg.TimeOfDeath,
		PlaceOfDeath: reg.PlaceOfDeath,
		CauseOfDeath: reg.CauseOfDeath,

		NextOfKinName:         reg.NextOfKinName,
		NextOfKinRelationship: reg.NextOfKinRelationship,
		NextOfKinContact:      reg.NextOfKinContact,
		NextOfKinNationalID:   reg.NextOfKinNationalID,

		SubmittedBy:       reg.SubmittedBy,
		Status:            string(reg.Status),
		ReviewedBy:        reg.ReviewedBy,
		ReviewNotes:       reg.ReviewNotes,
		CertificateNumber: reg.CertificateNumber,

		CreatedAt: reg.CreatedAt,
		UpdatedAt: reg.UpdatedAt,
	}
}

// PendingApplicationResponse is a row in the merged review queue. Type is
// "birth" or "death"; exactly one of the embedded records is set.
type PendingApplicationResponse struct {
	Type  string                     `json:"type"`
	Birth *BirthRegistrationResponse `json:"birth,omitempty"`
	Death *DeathRegistrationResponse `json:"death,omitempty"`
}

// NewPendingApplicationResponse maps a merged queue entry to its API shape.
func NewPendingApplicationResponse(app service.PendingApplication) PendingApplicationResponse {
	resp := PendingApplicationResponse{Type: string(app.Kind)}
	if app.Birth != nil {
		birth := NewBirthRegistrationResponse(app.Birth)
		resp.Birth = &birth
	}
	if app.Death != nil {
		death := NewDeathRegistrationResponse(app.Death)
		resp.Death = &death
	}
	return resp
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
