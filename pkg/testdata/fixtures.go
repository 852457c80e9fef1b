package testdata

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/shopspring/decimal"
)

// Password is the secret of every generated account
const Password = "password123"

// offerCategories are the catalog categories generated offers draw from
var offerCategories = []string{"Education", "Electronics", "Health", "Travel", "Home", "Fashion"}

// Generator creates realistic accounts and offers
type Generator struct {
	Accounts *accounts.Service
	Offers   *offers.Service
	faker    *gofakeit.Faker
	seq      atomic.Int64
}

// NewGenerator creates a generator writing to db. The same seed yields the
// same sequence of names and prices.
func NewGenerator(db *database.Client, seed int64) *Generator {
	return &Generator{
		Accounts: accounts.NewService(db, "US"),
		Offers:   offers.NewService(db),
		faker:    gofakeit.New(seed),
	}
}

// Faker exposes the underlying faker for ad-hoc values
func (g *Generator) Faker() *gofakeit.Faker {
	return g.faker
}

// Email returns an address unique within this generator
func (g *Generator) Email() string {
	n := g.seq.Add(1)
	user := strings.ToLower(strings.ReplaceAll(g.faker.Username(), " ", ""))
	return fmt.Sprintf("%s.%d@example.com", user, n)
}

// Partner registers a partner account
func (g *Generator) Partner(ctx context.Context) (*models.Account, error) {
	return g.Accounts.Register(ctx, accounts.RegisterInput{
		Email:    g.Email(),
		Password: Password,
		Role:     models.RolePartner,
		FullName: g.faker.Name(),
	})
}

// Company registers a company account
func (g *Generator) Company(ctx context.Context) (*models.Account, error) {
	return g.Accounts.Register(ctx, accounts.RegisterInput{
		Email:       g.Email(),
		Password:    Password,
		Role:        models.RoleCompany,
		FullName:    g.faker.Name(),
		CompanyName: g.faker.Company(),
	})
}

// OfferInput returns a random but valid offer
func (g *Generator) OfferInput() offers.CreateInput {
	return offers.CreateInput{
		Title:             g.faker.ProductName(),
		Description:       g.faker.ProductDescription(),
		ProductURL:        g.faker.URL(),
		Price:             decimal.NewFromFloat(g.faker.Price(10, 5_000_000)).Round(2),
		CommissionPercent: decimal.NewFromInt(int64(g.faker.IntRange(5, 30))),
		Category:          g.faker.RandomString(offerCategories),
	}
}

// Offer lists a random offer for companyID
func (g *Generator) Offer(ctx context.Context, companyID int) (*models.Offer, error) {
	return g.Offers.Create(ctx, companyID, g.OfferInput())
}

// OfferWithSplit lists an offer with a fixed price and split
func (g *Generator) OfferWithSplit(ctx context.Context, companyID int, price, commissionPercent, platformPercent int64) (*models.Offer, error) {
	in := g.OfferInput()
	in.Price = decimal.NewFromInt(price)
	in.CommissionPercent = decimal.NewFromInt(commissionPercent)
	platform := decimal.NewFromInt(platformPercent)
	in.PlatformPercent = &platform
	return g.Offers.Create(ctx, companyID, in)
}
