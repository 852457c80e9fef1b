// Package analytics aggregates partner and company activity.
package analytics

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/shopspring/decimal"
)

// RecentLimit is how many conversions the dashboards list
const RecentLimit = 10

// Service computes dashboard statistics
type Service struct {
	db       *database.Client
	accounts *accounts.Service
}

// NewService creates a new analytics service
func NewService(db *database.Client, accountService *accounts.Service) *Service {
	return &Service{db: db, accounts: accountService}
}

// PartnerStats summarises a partner's clicks, sales and earnings. Earnings
// count approved and paid sales; pending earnings count sales awaiting
// review.
func (s *Service) PartnerStats(ctx context.Context, partnerID int) (*models.PartnerStats, error) {
	own := func() *entsql.Predicate { return entsql.EQ("partner_id", partnerID) }

	clicks, err := s.count(ctx, database.TableClicks, own())
	if err != nil {
		return nil, err
	}
	conversions, err := s.count(ctx, database.TableConversions, own())
	if err != nil {
		return nil, err
	}

	earned, err := s.sum(ctx, database.TableConversions, "commission_amount",
		entsql.And(own(), entsql.In("status", string(models.ConversionApproved), string(models.ConversionPaid))))
	if err != nil {
		return nil, err
	}
	pending, err := s.sum(ctx, database.TableConversions, "commission_amount",
		entsql.And(own(), entsql.EQ("status", string(models.ConversionPending))))
	if err != nil {
		return nil, err
	}

	balance, err := s.accounts.Balance(ctx, s.db.DB(), partnerID)
	if err != nil {
		return nil, err
	}

	recent, err := affiliate.QueryConversions(ctx, s.db, own(), RecentLimit)
	if err != nil {
		return nil, err
	}

	return &models.PartnerStats{
		TotalClicks:       clicks,
		TotalConversions:  conversions,
		ConversionRate:    ConversionRate(clicks, conversions),
		TotalEarnings:     earned,
		PendingEarnings:   pending,
		Balance:           balance,
		RecentConversions: recent,
	}, nil
}

// CompanyStats summarises activity across the company's offers
func (s *Service) CompanyStats(ctx context.Context, companyID int) (*models.CompanyStats, error) {
	owned := func() *entsql.Predicate { return affiliate.OfCompany(s.db, companyID) }

	offers, err := s.count(ctx, database.TableOffers, entsql.EQ("company_id", companyID))
	if err != nil {
		return nil, err
	}
	clicks, err := s.count(ctx, database.TableClicks, owned())
	if err != nil {
		return nil, err
	}
	conversions, err := s.count(ctx, database.TableConversions, owned())
	if err != nil {
		return nil, err
	}
	sales, err := s.sum(ctx, database.TableConversions, "sale_amount", owned())
	if err != nil {
		return nil, err
	}

	partners, err := s.db.Count(ctx, s.db.DB(), s.db.Select(entsql.Count(entsql.Distinct("partner_id"))).
		From(entsql.Table(database.TableConversions)).
		Where(owned()))
	if err != nil {
		return nil, fmt.Errorf("failed to count partners: %w", err)
	}

	recent, err := affiliate.QueryConversions(ctx, s.db, owned(), RecentLimit)
	if err != nil {
		return nil, err
	}

	return &models.CompanyStats{
		TotalOffers:       offers,
		TotalClicks:       clicks,
		TotalConversions:  conversions,
		TotalSales:        sales,
		UniquePartners:    partners,
		RecentConversions: recent,
	}, nil
}

// ConversionRate is conversions per click as a percentage rounded to two
// places. Zero clicks give zero.
func ConversionRate(clicks, conversions int) float64 {
	if clicks <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(conversions)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(clicks))).
		Round(2).
		InexactFloat64()
}

func (s *Service) count(ctx context.Context, table string, p *entsql.Predicate) (int, error) {
	n, err := s.db.Count(ctx, s.db.DB(), s.db.Select(entsql.Count("*")).From(entsql.Table(table)).Where(p))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *Service) sum(ctx context.Context, table, column string, p *entsql.Predicate) (decimal.Decimal, error) {
	query, args := s.db.Select(fmt.Sprintf("COALESCE(%s, 0)", entsql.Sum(column))).
		From(entsql.Table(table)).
		Where(p).
		Query()

	var total decimal.Decimal
	if err := s.db.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s: %w", column, err)
	}
	return total.Round(2), nil
}
