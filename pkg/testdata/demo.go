package testdata

import (
	"context"
	"fmt"

	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/shopspring/decimal"
)

// Demo account addresses
const (
	DemoCompanyEmail = "company@example.com"
	DemoPartnerEmail = "partner@example.com"
)

type demoOffer struct {
	title, description, category, url string
	price, commission                 int64
}

var demoOffers = []demoOffer{
	{"Python Programming Course", "A complete Python course from beginner to advanced, with practical assignments and projects.", "Education", "https://example.com/python-course", 500000, 15},
	{"Samsung Galaxy A54 Smartphone", "A modern smartphone with a great camera, large screen and fast processor.", "Electronics", "https://example.com/samsung-a54", 3500000, 10},
	{"3-Month Fitness Membership", "Unlimited gym access, group classes and trainer consultations.", "Health", "https://example.com/fitness", 600000, 20},
	{"Online English Course", "An interactive English course with native speakers.", "Education", "https://example.com/english", 800000, 12},
	{"Apple Watch Series 9", "The latest Apple smartwatch with extended health features.", "Electronics", "https://example.com/apple-watch", 5000000, 8},
}

// DemoResult describes what SeedDemo created
type DemoResult struct {
	Company *models.Account
	Partner *models.Account
	Offers  []*models.Offer
}

// SeedDemo creates one company, one partner and five offers. It does nothing
// and returns nil when accounts already exist.
func (g *Generator) SeedDemo(ctx context.Context) (*DemoResult, error) {
	n, err := g.Accounts.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, nil
	}

	company, err := g.Accounts.Register(ctx, accounts.RegisterInput{
		Email:       DemoCompanyEmail,
		Password:    Password,
		Role:        models.RoleCompany,
		FullName:    "Dmitry Kalganov",
		CompanyName: "Tech Solutions LLC",
		Phone:       "+998901234567",
	})
	if err != nil {
		return nil, fmt.Errorf("demo company: %w", err)
	}

	partner, err := g.Accounts.Register(ctx, accounts.RegisterInput{
		Email:    DemoPartnerEmail,
		Password: Password,
		Role:     models.RolePartner,
		FullName: "Ivan Ivanov",
		Phone:    "+998909876543",
	})
	if err != nil {
		return nil, fmt.Errorf("demo partner: %w", err)
	}

	result := &DemoResult{Company: company, Partner: partner}
	platform := models.DefaultPlatformPercent
	for _, d := range demoOffers {
		offer, err := g.Offers.Create(ctx, company.ID, offers.CreateInput{
			Title:             d.title,
			Description:       d.description,
			ProductURL:        d.url,
			Price:             decimal.NewFromInt(d.price),
			CommissionPercent: decimal.NewFromInt(d.commission),
			PlatformPercent:   &platform,
			Category:          d.category,
		})
		if err != nil {
			return nil, fmt.Errorf("demo offer %q: %w", d.title, err)
		}
		result.Offers = append(result.Offers, offer)
	}

	return result, nil
}
