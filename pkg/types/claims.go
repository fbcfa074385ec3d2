package types

// UserClaims represents the validated identity of the acting user. Tokens
// are issued by the external auth provider; this service only validates and
// reads them.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
