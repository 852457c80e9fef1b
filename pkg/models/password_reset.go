package models

import "time"

// ResetTokenState is the outcome of checking a reset token
type ResetTokenState string

const (
	ResetTokenValid   ResetTokenState = "valid"
	ResetTokenExpired ResetTokenState = "expired"
	ResetTokenUsed    ResetTokenState = "used"
	ResetTokenUnknown ResetTokenState = "unknown"
)

// PasswordReset is a stored one-time reset token. Only the hash of the token
// is persisted.
type PasswordReset struct {
	ID        int
	UserID    int
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ForgotPasswordResponse is returned for every reset request. ResetURL is only
// set by development deployments when the email could not be delivered.
type ForgotPasswordResponse struct {
	Message  string `json:"message"`
	ResetURL string `json:"reset_url,omitempty"`
}

// VerifyResetResponse reports a valid token
type VerifyResetResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email,omitempty"`
}
