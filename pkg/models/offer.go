package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPlatformPercent is the platform's share of the commission when an
// offer does not set one
var DefaultPlatformPercent = decimal.NewFromInt(20)

// Offer is a company's product listed for partner promotion
type Offer struct {
	ID                int             `json:"id"`
	CompanyID         int             `json:"company_id"`
	Title             string          `json:"title"`
	Description       *string         `json:"description"`
	ProductURL        *string         `json:"product_url"`
	ImageURL          *string         `json:"image_url"`
	Price             decimal.Decimal `json:"price"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	PlatformPercent   decimal.Decimal `json:"platform_percent"`
	Category          *string         `json:"category"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OfferResponse is an offer plus the partner's share of its commission
type OfferResponse struct {
	*Offer
	PartnerCommission decimal.Decimal `json:"partner_commission"`
}

// CreateOfferRequest represents a request to list a new offer
type CreateOfferRequest struct {
	Title             string   `json:"title" validate:"required,max=200"`
	Description       string   `json:"description"`
	ProductURL        string   `json:"product_url" validate:"omitempty,url,max=500"`
	ImageURL          string   `json:"image_url" validate:"omitempty,url,max=500"`
	Price             *float64 `json:"price" validate:"required,gt=0"`
	CommissionPercent *float64 `json:"commission_percent" validate:"required,gte=0,lte=100"`
	PlatformPercent   *float64 `json:"platform_percent" validate:"omitempty,gte=0,lte=100"`
	Category          string   `json:"category" validate:"omitempty,max=100"`
}

// UpdateOfferRequest carries the fields to change; absent fields are kept
type UpdateOfferRequest struct {
	Title             *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description       *string  `json:"description"`
	ProductURL        *string  `json:"product_url" validate:"omitempty,url,max=500"`
	ImageURL          *string  `json:"image_url" validate:"omitempty,url,max=500"`
	Price             *float64 `json:"price" validate:"omitempty,gt=0"`
	CommissionPercent *float64 `json:"commission_percent" validate:"omitempty,gte=0,lte=100"`
	PlatformPercent   *float64 `json:"platform_percent" validate:"omitempty,gte=0,lte=100"`
	Category          *string  `json:"category" validate:"omitempty,max=100"`
	IsActive          *bool    `json:"is_active"`
}
