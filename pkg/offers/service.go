package offers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/commission"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Columns lists the offer columns in scan order
var Columns = []string{
	"id", "company_id", "title", "description", "product_url", "image_url", "price",
	"commission_percent", "platform_percent", "category", "is_active", "created_at", "updated_at",
}

var (
	hundred                 = decimal.NewFromInt(100)
	errPriceNotPositive     = domain.NewValidationError("price must be greater than zero")
	errCommissionOutOfRange = domain.NewValidationError("commission_percent must be between 0 and 100")
	errPlatformOutOfRange   = domain.NewValidationError("platform_percent must be between 0 and 100")
	errTitleRequired        = domain.NewValidationError("title is required")
)

// CreateInput holds the fields of a new offer
type CreateInput struct {
	Title             string
	Description       string
	ProductURL        string
	ImageURL          string
	Price             decimal.Decimal
	CommissionPercent decimal.Decimal
	PlatformPercent   *decimal.Decimal
	Category          string
}

// UpdateInput carries optional changes; nil fields are left untouched
type UpdateInput struct {
	Title             *string
	Description       *string
	ProductURL        *string
	ImageURL          *string
	Price             *decimal.Decimal
	CommissionPercent *decimal.Decimal
	PlatformPercent   *decimal.Decimal
	Category          *string
	IsActive          *bool
}

// Service handles the offer catalog
type Service struct {
	db *database.Client
}

// NewService creates a new offer service
func NewService(db *database.Client) *Service {
	return &Service{db: db}
}

// Create lists a new offer owned by companyID
func (s *Service) Create(ctx context.Context, companyID int, in CreateInput) (*models.Offer, error) {
	platform := models.DefaultPlatformPercent
	if in.PlatformPercent != nil {
		platform = *in.PlatformPercent
	}

	now := time.Now().UTC()
	offer := &models.Offer{
		CompanyID:         companyID,
		Title:             clean(in.Title),
		Description:       optional(in.Description),
		ProductURL:        optional(in.ProductURL),
		ImageURL:          optional(in.ImageURL),
		Price:             in.Price.Round(2),
		CommissionPercent: in.CommissionPercent.Round(2),
		PlatformPercent:   platform.Round(2),
		Category:          optional(in.Category),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validate(offer); err != nil {
		return nil, err
	}

	id, err := s.db.InsertID(ctx, s.db.DB(), s.db.Insert(database.TableOffers).
		Columns("company_id", "title", "description", "product_url", "image_url", "price",
			"commission_percent", "platform_percent", "category", "is_active", "created_at", "updated_at").
		Values(offer.CompanyID, offer.Title, nullString(offer.Description), nullString(offer.ProductURL),
			nullString(offer.ImageURL), offer.Price, offer.CommissionPercent, offer.PlatformPercent,
			nullString(offer.Category), offer.IsActive, offer.CreatedAt, offer.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	offer.ID = id

	return offer, nil
}

// Update applies in to an offer owned by companyID
func (s *Service) Update(ctx context.Context, companyID, offerID int, in UpdateInput) (*models.Offer, error) {
	offer, err := s.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.CompanyID != companyID {
		return nil, domain.ErrNotOfferOwner
	}

	if in.Title != nil {
		offer.Title = clean(*in.Title)
	}
	if in.Description != nil {
		offer.Description = optional(*in.Description)
	}
	if in.ProductURL != nil {
		offer.ProductURL = optional(*in.ProductURL)
	}
	if in.ImageURL != nil {
		offer.ImageURL = optional(*in.ImageURL)
	}
	if in.Price != nil {
		offer.Price = in.Price.Round(2)
	}
	if in.CommissionPercent != nil {
		offer.CommissionPercent = in.CommissionPercent.Round(2)
	}
	if in.PlatformPercent != nil {
		offer.PlatformPercent = in.PlatformPercent.Round(2)
	}
	if in.Category != nil {
		offer.Category = optional(*in.Category)
	}
	if in.IsActive != nil {
		offer.IsActive = *in.IsActive
	}
	if err := validate(offer); err != nil {
		return nil, err
	}
	offer.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(ctx, s.db.DB(), s.db.Update(database.TableOffers).
		Set("title", offer.Title).
		Set("description", nullString(offer.Description)).
		Set("product_url", nullString(offer.ProductURL)).
		Set("image_url", nullString(offer.ImageURL)).
		Set("price", offer.Price).
		Set("commission_percent", offer.CommissionPercent).
		Set("platform_percent", offer.PlatformPercent).
		Set("category", nullString(offer.Category)).
		Set("is_active", offer.IsActive).
		Set("updated_at", offer.UpdatedAt).
		Where(entsql.EQ("id", offer.ID)))
	if err != nil {
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}

	return offer, nil
}

// Get loads an offer regardless of its active flag
func (s *Service) Get(ctx context.Context, id int) (*models.Offer, error) {
	return GetWith(ctx, s.db, s.db.DB(), id)
}

// GetWith loads an offer through q, which may be a transaction
func GetWith(ctx context.Context, db *database.Client, q database.Querier, id int) (*models.Offer, error) {
	query, args := db.Select(Columns...).From(entsql.Table(database.TableOffers)).Where(entsql.EQ("id", id)).Query()

	offer, err := Scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

// ListActive returns the active catalog, newest first
func (s *Service) ListActive(ctx context.Context) ([]*models.Offer, error) {
	return s.list(ctx, entsql.EQ("is_active", true))
}

// ListByCompany returns every offer owned by companyID, newest first
func (s *Service) ListByCompany(ctx context.Context, companyID int) ([]*models.Offer, error) {
	return s.list(ctx, entsql.EQ("company_id", companyID))
}

func (s *Service) list(ctx context.Context, p *entsql.Predicate) ([]*models.Offer, error) {
	query, args := s.db.Select(Columns...).From(entsql.Table(database.TableOffers)).
		Where(p).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	offers := []*models.Offer{}
	for rows.Next() {
		offer, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

// Response decorates an offer with the partner's share of its commission
func Response(offer *models.Offer) *models.OfferResponse {
	split := commission.Calculate(offer.Price, offer.CommissionPercent, offer.PlatformPercent)
	return &models.OfferResponse{Offer: offer, PartnerCommission: split.Partner}
}

// Responses decorates a list of offers
func Responses(offers []*models.Offer) []*models.OfferResponse {
	out := make([]*models.OfferResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, Response(o))
	}
	return out
}

type scanner interface {
	Scan(dest ...any) error
}

// Scan reads one offer row selected with Columns
func Scan(row scanner) (*models.Offer, error) {
	o := &models.Offer{}
	err := row.Scan(&o.ID, &o.CompanyID, &o.Title, &o.Description, &o.ProductURL, &o.ImageURL,
		&o.Price, &o.CommissionPercent, &o.PlatformPercent, &o.Category, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func validate(o *models.Offer) error {
	if o.Title == "" {
		return errTitleRequired
	}
	if !o.Price.IsPositive() {
		return errPriceNotPositive
	}
	if o.CommissionPercent.IsNegative() || o.CommissionPercent.GreaterThan(hundred) {
		return errCommissionOutOfRange
	}
	if o.PlatformPercent.IsNegative() || o.PlatformPercent.GreaterThan(hundred) {
		return errPlatformOutOfRange
	}
	return nil
}

// clean trims s and puts it in NFC so equal titles compare equal
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func optional(s string) *string {
	s = clean(s)
	if s == "" {
		return nil
	}
	return &s
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
