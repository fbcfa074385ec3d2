package types

import (
	"fmt"
	"time"
)

// ApprovalStatus represents the approval state of a patient registration
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// IsValid reports whether the status is a known value
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transition
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// BloodGroup represents a patient blood group
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"

	// BloodGroupAll is the filter sentinel matching every blood group
	BloodGroupAll BloodGroup = "all"
)

// BloodGroups lists the eight valid blood group values
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg,
	BloodGroupOPos, BloodGroupONeg,
}

// IsValid reports whether the blood group is one of the eight known values
func (b BloodGroup) IsValid() bool {
	for _, g := range BloodGroups {
		if b == g {
			return true
		}
	}
	return false
}

// RiskLevel represents a patient risk classification
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"

	// RiskLevelAll is the filter sentinel matching every risk level
	RiskLevelAll RiskLevel = "all"
)

// IsValid reports whether the risk level is a known value
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Patient represents a patient record
type Patient struct {
	ID             string         `json:"id" db:"id"`
	PatientID      *string        `json:"patient_id" db:"patient_id"`
	Name           string         `json:"name" db:"name"`
	Email          *string        `json:"email" db:"email"`
	Age            int            `json:"age" db:"age"`
	Gender         string         `json:"gender" db:"gender"`
	BloodGroup     *BloodGroup    `json:"blood_group" db:"blood_group"`
	RiskLevel      *RiskLevel     `json:"risk_level" db:"risk_level"`
	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`
	CreatedBy      *string        `json:"created_by" db:"created_by"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// IsLinked reports whether the patient is linked to a user account
func (p *Patient) IsLinked() bool {
	return p.CreatedBy != nil && *p.CreatedBy != ""
}

// Validate checks a patient row read from the data store. Rows are validated
// at the repository boundary rather than trusted downstream.
func (p *Patient) Validate() error {
	if p.ID == "" {
		return NewValidationError(ErrCodeInvalidInput, "patient id is required", nil)
	}
	if p.Name == "" {
		return NewValidationError(ErrCodeInvalidInput, "patient name is required", map[string]interface{}{
			"patient_id": p.ID,
		})
	}
	if p.Age < 0 {
		return NewValidationError(ErrCodeInvalidInput, fmt.Sprintf("invalid age: %d", p.Age), map[string]interface{}{
			"patient_id": p.ID,
		})
	}
	if !p.ApprovalStatus.IsValid() {
		return NewValidationError(ErrCodeInvalidInput, fmt.Sprintf("unknown approval status: %s", p.ApprovalStatus), map[string]interface{}{
			"patient_id": p.ID,
		})
	}
	if p.BloodGroup != nil && !p.BloodGroup.IsValid() {
		return NewValidationError(ErrCodeInvalidInput, fmt.Sprintf("unknown blood group: %s", *p.BloodGroup), map[string]interface{}{
			"patient_id": p.ID,
		})
	}
	if p.RiskLevel != nil && !p.RiskLevel.IsValid() {
		return NewValidationError(ErrCodeInvalidInput, fmt.Sprintf("unknown risk level: %s", *p.RiskLevel), map[string]interface{}{
			"patient_id": p.ID,
		})
	}
	return nil
}

// PatientFilters represents patient search criteria. The zero value is not
// the default; use DefaultPatientFilters.
type PatientFilters struct {
	SearchQuery string     `json:"search_query"`
	BloodGroup  BloodGroup `json:"blood_group"`
	RiskLevel   RiskLevel  `json:"risk_level"`
}

// DefaultPatientFilters returns the filter criteria with every field at its
// default: empty search, all blood groups, all risk levels.
func DefaultPatientFilters() PatientFilters {
	return PatientFilters{
		SearchQuery: "",
		BloodGroup:  BloodGroupAll,
		RiskLevel:   RiskLevelAll,
	}
}

// IsDefault reports whether no field differs from its default
func (f PatientFilters) IsDefault() bool {
	return f == DefaultPatientFilters()
}
