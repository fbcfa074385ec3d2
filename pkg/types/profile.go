package types

// UserProfile represents a registered user account in the profile directory
type UserProfile struct {
	UserID   string `json:"user_id" db:"user_id"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
}

// Validate checks a profile row read from the data store
func (p *UserProfile) Validate() error {
	if p.UserID == "" {
		return NewValidationError(ErrCodeInvalidInput, "profile user_id is required", nil)
	}
	if p.Email == "" {
		return NewValidationError(ErrCodeInvalidInput, "profile email is required", map[string]interface{}{
			"user_id": p.UserID,
		})
	}
	return nil
}

// LinkResult describes a completed link or unlink operation
type LinkResult struct {
	PatientID   string  `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	UserID      *string `json:"user_id"`
	Email       *string `json:"email"`
}
