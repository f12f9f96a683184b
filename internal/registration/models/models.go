// Package models defines the birth and death registration records and their
// status workflow.
package models

import "time"

// Kind distinguishes the two registration types.
type Kind string

const (
	KindBirth Kind = "birth"
	KindDeath Kind = "death"
)

// ApplicationPrefix returns the application-id prefix for the kind.
func (k Kind) ApplicationPrefix() string {
	if k == KindDeath {
		return "DR"
	}
	return "BR"
}

// CertificatePrefix returns the certificate-number prefix for the kind.
func (k Kind) CertificatePrefix() string {
	if k == KindDeath {
		return "DC"
	}
	return "BC"
}

// Status is the application workflow state. pending is the only
// non-terminal state; approved and rejected admit no further transitions.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s names a workflow state.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Review holds the decision metadata shared by both registration types. A
// certificate number is present exactly when the status is approved.
type Review struct {
	Status            Status
	ReviewedBy        string
	ReviewNotes       string
	CertificateNumber string
}

// BirthRegistration is a birth application record.
type BirthRegistration struct {
	ID            int64
	ApplicationID string

	ChildName    string
	ChildSex     string
	DateOfBirth  time.Time
	TimeOfBirth  string
	PlaceOfBirth string

	FatherName        string
	FatherNationalID  string
	FatherDateOfBirth time.Time
	FatherOccupation  string

	MotherName        string
	MotherNationalID  string
	MotherDateOfBirth time.Time
	MotherOccupation  string

	SubmittedBy string
	Review

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeathRegistration is a death application record.
type DeathRegistration struct {
	ID            int64
	ApplicationID string

	DeceasedName string
	DateOfDeath  time.Time
	TimeOfDeath  string
	PlaceOfDeath string
	CauseOfDeath string

	NextOfKinName         string
	NextOfKinRelationship string
	NextOfKinContact      string
	NextOfKinNationalID   string

	SubmittedBy string
	Review

	CreatedAt time.Time
	UpdatedAt time.Time
}
