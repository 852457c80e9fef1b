package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error with a code and message.
// Code selects the error class (and so the HTTP status); Reason is the
// machine-readable identifier returned to clients.
type DomainError struct {
	Code    string
	Reason  string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeConflict     = "CONFLICT"
)

// Access layer errors
var (
	ErrInvalidToken       = &DomainError{Code: ErrCodeUnauthorized, Reason: "invalid_token", Message: "Invalid token"}
	ErrExpiredToken       = &DomainError{Code: ErrCodeUnauthorized, Reason: "expired_token", Message: "Token has expired"}
	ErrRevokedToken       = &DomainError{Code: ErrCodeUnauthorized, Reason: "revoked_token", Message: "Token has been revoked"}
	ErrUnknownAccount     = &DomainError{Code: ErrCodeUnauthorized, Reason: "unknown_account", Message: "Account not found"}
	ErrInvalidCredentials = &DomainError{Code: ErrCodeUnauthorized, Reason: "invalid_credentials", Message: "Invalid email or password"}

	ErrResetTokenUnknown = &DomainError{Code: ErrCodeValidation, Reason: "invalid_token", Message: "Invalid reset token"}
	ErrResetTokenExpired = &DomainError{Code: ErrCodeValidation, Reason: "expired_token", Message: "Reset token has expired"}
	ErrResetTokenUsed    = &DomainError{Code: ErrCodeValidation, Reason: "used_token", Message: "Reset token has already been used"}
	ErrWeakPassword      = &DomainError{Code: ErrCodeValidation, Reason: "weak_password", Message: "Password must be at least 6 characters"}
)

// Credential store and catalog errors
var (
	ErrDuplicateEmail = &DomainError{Code: ErrCodeConflict, Reason: "user_exists", Message: "User with this email already exists"}
	ErrUserNotFound   = &DomainError{Code: ErrCodeNotFound, Reason: "user_not_found", Message: "User not found"}
	ErrInvalidRole    = &DomainError{Code: ErrCodeValidation, Reason: "invalid_role", Message: "user_type must be company or partner"}
	ErrInvalidPhone   = &DomainError{Code: ErrCodeValidation, Reason: "invalid_phone", Message: "Phone number is not valid"}
	ErrOfferNotFound  = &DomainError{Code: ErrCodeNotFound, Reason: "offer_not_found", Message: "Offer not found"}
	ErrOfferInactive  = &DomainError{Code: ErrCodeValidation, Reason: "offer_inactive", Message: "Offer is not active"}
	ErrNotOfferOwner  = &DomainError{Code: ErrCodeForbidden, Reason: "forbidden", Message: "No access to this offer"}
)

// Attribution and ledger errors
var (
	ErrLinkNotFound         = &DomainError{Code: ErrCodeNotFound, Reason: "link_not_found", Message: "Tracking link not found"}
	ErrConversionNotFound   = &DomainError{Code: ErrCodeNotFound, Reason: "conversion_not_found", Message: "Conversion not found"}
	ErrDuplicateOrder       = &DomainError{Code: ErrCodeConflict, Reason: "duplicate_order", Message: "A conversion for this order already exists"}
	ErrConversionNotPending = &DomainError{Code: ErrCodeConflict, Reason: "invalid_status", Message: "Only pending conversions can be changed"}
	ErrInvalidAmount        = &DomainError{Code: ErrCodeValidation, Reason: "invalid_amount", Message: "Amount must be greater than zero"}
	ErrInsufficientBalance  = &DomainError{Code: ErrCodeConflict, Reason: "insufficient_balance", Message: "Insufficient balance"}
)

// Error constructors

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Reason:  "not_found",
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Reason:  "validation_error",
		Message: msg,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Reason:  "forbidden",
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Reason:  "internal_error",
		Message: "An internal error occurred",
		Err:     err,
	}
}

// As extracts the DomainError from err's chain
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ErrCodeInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return GetErrorCode(err) == ErrCodeNotFound
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	return GetErrorCode(err) == ErrCodeValidation
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	return GetErrorCode(err) == ErrCodeConflict
}
