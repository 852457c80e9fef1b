package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are exchanged as JSON numbers, matching the rest of the API.
	decimal.MarshalJSONWithoutQuotes = true
}

// Role is the closed set of account kinds
type Role string

const (
	RoleCompany Role = "company"
	RolePartner Role = "partner"
)

// ParseRole converts wire input into a Role
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCompany:
		return RoleCompany, nil
	case RolePartner:
		return RolePartner, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the declared roles
func (r Role) Valid() bool {
	switch r {
	case RoleCompany, RolePartner:
		return true
	default:
		return false
	}
}

// Account is a company or partner user
type Account struct {
	ID           int             `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"user_type"`
	FullName     string          `json:"full_name"`
	CompanyName  *string         `json:"company_name"`
	Phone        *string         `json:"phone"`
	Balance      decimal.Decimal `json:"balance"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	UserType    string `json:"user_type" validate:"required,oneof=company partner"`
	FullName    string `json:"full_name" validate:"omitempty,max=200"`
	CompanyName string `json:"company_name" validate:"omitempty,max=200"`
	Phone       string `json:"phone" validate:"omitempty,max=50"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	Token string   `json:"token"`
	User  *Account `json:"user"`
}

// RegisterResponse is returned after a successful registration
type RegisterResponse struct {
	Message string   `json:"message"`
	User    *Account `json:"user"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse carries a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}
