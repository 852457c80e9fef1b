package affiliate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
)

var conversionColumns = []string{
	"id", "affiliate_link_id", "partner_id", "offer_id", "order_id", "sale_amount", "total_commission",
	"commission_amount", "platform_fee", "status", "created_at", "approved_at", "paid_at",
}

// VisibleTo restricts conversions to those acc may see
func VisibleTo(db *database.Client, acc *models.Account) *entsql.Predicate {
	switch acc.Role {
	case models.RoleCompany:
		return OfCompany(db, acc.ID)
	case models.RolePartner:
		return entsql.EQ("partner_id", acc.ID)
	default:
		return entsql.False()
	}
}

// OfCompany matches rows whose offer_id belongs to companyID
func OfCompany(db *database.Client, companyID int) *entsql.Predicate {
	owned := db.Select("id").From(entsql.Table(database.TableOffers)).Where(entsql.EQ("company_id", companyID))
	return entsql.In("offer_id", owned)
}

// GetConversion loads one conversion through q
func GetConversion(ctx context.Context, db *database.Client, q database.Querier, id int) (*models.Conversion, error) {
	query, args := db.Select(conversionColumns...).From(entsql.Table(database.TableConversions)).
		Where(entsql.EQ("id", id)).
		Query()

	conv, err := scanConversion(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversionNotFound
		}
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	return conv, nil
}

// QueryConversions returns conversions matching p ordered by created_at then
// id, newest first. A positive limit caps the result.
func QueryConversions(ctx context.Context, db *database.Client, p *entsql.Predicate, limit int) ([]*models.Conversion, error) {
	return queryConversions(ctx, db, db.DB(), p, []string{entsql.Desc("created_at"), entsql.Desc("id")}, limit)
}

// ApprovedOldestFirst returns a partner's approved conversions through q,
// oldest first.
func ApprovedOldestFirst(ctx context.Context, db *database.Client, q database.Querier, partnerID int) ([]*models.Conversion, error) {
	p := entsql.And(entsql.EQ("partner_id", partnerID), entsql.EQ("status", string(models.ConversionApproved)))
	return queryConversions(ctx, db, q, p, []string{entsql.Asc("created_at"), entsql.Asc("id")}, 0)
}

func queryConversions(ctx context.Context, db *database.Client, q database.Querier, p *entsql.Predicate, order []string, limit int) ([]*models.Conversion, error) {
	selector := db.Select(conversionColumns...).From(entsql.Table(database.TableConversions)).
		Where(p).
		OrderBy(order...)
	if limit > 0 {
		selector.Limit(limit)
	}
	query, args := selector.Query()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	conversions := []*models.Conversion{}
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		conversions = append(conversions, conv)
	}
	return conversions, rows.Err()
}

func scanConversion(row scanner) (*models.Conversion, error) {
	c := &models.Conversion{}
	var status string
	err := row.Scan(&c.ID, &c.AffiliateLinkID, &c.PartnerID, &c.OfferID, &c.OrderID, &c.SaleAmount,
		&c.TotalCommission, &c.CommissionAmount, &c.PlatformFee, &status, &c.CreatedAt, &c.ApprovedAt, &c.PaidAt)
	if err != nil {
		return nil, err
	}
	c.Status = models.ConversionStatus(status)
	return c, nil
}
