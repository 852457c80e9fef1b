// Package commission divides an offer's commission between partner and
// platform.
package commission

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Split is the division of one sale's commission
type Split struct {
	Total       decimal.Decimal
	PlatformFee decimal.Decimal
	Partner     decimal.Decimal
}

// Calculate applies commissionPercent to price and gives platformPercent of
// the result to the platform. Amounts are rounded to cents and Partner is
// derived by subtraction, so Partner + PlatformFee == Total holds exactly.
func Calculate(price, commissionPercent, platformPercent decimal.Decimal) Split {
	total := price.Mul(commissionPercent).Div(hundred).Round(2)
	fee := total.Mul(platformPercent).Div(hundred).Round(2)
	return Split{
		Total:       total,
		PlatformFee: fee,
		Partner:     total.Sub(fee),
	}
}
