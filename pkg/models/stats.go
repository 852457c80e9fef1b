package models

import "github.com/shopspring/decimal"

// PartnerStats aggregates a partner's activity
type PartnerStats struct {
	TotalClicks       int             `json:"total_clicks"`
	TotalConversions  int             `json:"total_conversions"`
	ConversionRate    float64         `json:"conversion_rate"`
	TotalEarnings     decimal.Decimal `json:"total_earnings"`
	PendingEarnings   decimal.Decimal `json:"pending_earnings"`
	Balance           decimal.Decimal `json:"balance"`
	RecentConversions []*Conversion   `json:"recent_conversions"`
}

// CompanyStats aggregates activity across a company's offers
type CompanyStats struct {
	TotalOffers       int             `json:"total_offers"`
	TotalClicks       int             `json:"total_clicks"`
	TotalConversions  int             `json:"total_conversions"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	UniquePartners    int             `json:"unique_partners"`
	RecentConversions []*Conversion   `json:"recent_conversions"`
}
