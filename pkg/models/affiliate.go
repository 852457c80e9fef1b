package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConversionStatus is the lifecycle state of a recorded sale
type ConversionStatus string

const (
	ConversionPending  ConversionStatus = "pending"
	ConversionApproved ConversionStatus = "approved"
	ConversionRejected ConversionStatus = "rejected"
	ConversionPaid     ConversionStatus = "paid"
)

// AffiliateLink maps one partner to one offer through a tracking code
type AffiliateLink struct {
	ID           int       `json:"id"`
	PartnerID    int       `json:"partner_id"`
	OfferID      int       `json:"offer_id"`
	TrackingCode string    `json:"tracking_code"`
	TrackingURL  string    `json:"tracking_url,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Click is a single visit through a tracking link
type Click struct {
	ID              int       `json:"id"`
	AffiliateLinkID int       `json:"affiliate_link_id"`
	PartnerID       int       `json:"partner_id"`
	OfferID         int       `json:"offer_id"`
	IPAddress       *string   `json:"ip_address"`
	UserAgent       *string   `json:"user_agent,omitempty"`
	Referrer        *string   `json:"referrer,omitempty"`
	UTMSource       *string   `json:"utm_source,omitempty"`
	UTMMedium       *string   `json:"utm_medium,omitempty"`
	UTMCampaign     *string   `json:"utm_campaign,omitempty"`
	ClickedAt       time.Time `json:"clicked_at"`
}

// ClickData is the request metadata captured for a visit
type ClickData struct {
	IPAddress   string
	UserAgent   string
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// Conversion is a sale attributed to a tracking link. The split is frozen at
// creation and never recomputed.
type Conversion struct {
	ID               int              `json:"id"`
	AffiliateLinkID  int              `json:"affiliate_link_id"`
	PartnerID        int              `json:"partner_id"`
	OfferID          int              `json:"offer_id"`
	OrderID          *string          `json:"order_id"`
	SaleAmount       decimal.Decimal  `json:"sale_amount"`
	TotalCommission  decimal.Decimal  `json:"total_commission"`
	CommissionAmount decimal.Decimal  `json:"commission_amount"`
	PlatformFee      decimal.Decimal  `json:"platform_fee"`
	Status           ConversionStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	ApprovedAt       *time.Time       `json:"approved_at"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
}

// CreateLinkRequest asks for a partner's tracking link to an offer
type CreateLinkRequest struct {
	OfferID int `json:"offer_id" validate:"required,gt=0"`
}

// LinkResponse wraps a link with a status message
type LinkResponse struct {
	Message string         `json:"message"`
	Link    *AffiliateLink `json:"link"`
}

// CreateConversionRequest records a sale for a tracking link
type CreateConversionRequest struct {
	AffiliateLinkID int      `json:"affiliate_link_id" validate:"required,gt=0"`
	SaleAmount      *float64 `json:"sale_amount" validate:"required,gt=0"`
	OrderID         string   `json:"order_id" validate:"omitempty,max=100"`
}

// ConversionResponse wraps a conversion with a status message
type ConversionResponse struct {
	Message    string      `json:"message"`
	Conversion *Conversion `json:"conversion"`
}

// OfferMessageResponse wraps an offer with a status message
type OfferMessageResponse struct {
	Message string         `json:"message"`
	Offer   *OfferResponse `json:"offer"`
}
