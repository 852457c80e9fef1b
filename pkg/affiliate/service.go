package affiliate

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/commission"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/shopspring/decimal"
)

const (
	trackingCodeLength   = 10
	trackingCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxCodeAttempts      = 5
)

var linkColumns = []string{"id", "partner_id", "offer_id", "tracking_code", "is_active", "created_at"}

// Config holds the URLs the attribution layer builds links and redirects from
type Config struct {
	PublicBaseURL string
	FrontendURL   string
}

// Service handles tracking links, clicks and conversions
type Service struct {
	db       *database.Client
	accounts *accounts.Service
	cfg      Config
}

// NewService creates a new affiliate service
func NewService(db *database.Client, accountService *accounts.Service, cfg Config) *Service {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{db: db, accounts: accountService, cfg: cfg}
}

// CreateLink returns the partner's link to offerID, creating it on first use.
// created reports whether a new link was stored.
func (s *Service) CreateLink(ctx context.Context, partnerID, offerID int) (link *models.AffiliateLink, created bool, err error) {
	offer, err := offers.GetWith(ctx, s.db, s.db.DB(), offerID)
	if err != nil {
		return nil, false, err
	}

	if link, err := s.findLink(ctx, entsql.And(entsql.EQ("partner_id", partnerID), entsql.EQ("offer_id", offerID))); err == nil {
		return link, false, nil
	} else if !errors.Is(err, domain.ErrLinkNotFound) {
		return nil, false, err
	}

	// Only new links need a live offer
	if !offer.IsActive {
		return nil, false, domain.ErrOfferInactive
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateTrackingCode()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate tracking code: %w", err)
		}

		link := &models.AffiliateLink{
			PartnerID:    partnerID,
			OfferID:      offerID,
			TrackingCode: code,
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		}
		id, err := s.db.InsertID(ctx, s.db.DB(), s.db.Insert(database.TableAffiliateLinks).
			Columns("partner_id", "offer_id", "tracking_code", "is_active", "created_at").
			Values(link.PartnerID, link.OfferID, link.TrackingCode, link.IsActive, link.CreatedAt))
		if err == nil {
			link.ID = id
			link.TrackingURL = s.trackingURL(code)
			return link, true, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to create link: %w", err)
		}

		// Either a concurrent request created the pair first or the code collided.
		existing, findErr := s.findLink(ctx, entsql.And(entsql.EQ("partner_id", partnerID), entsql.EQ("offer_id", offerID)))
		if findErr == nil {
			return existing, false, nil
		}
		if !errors.Is(findErr, domain.ErrLinkNotFound) {
			return nil, false, findErr
		}
	}

	return nil, false, fmt.Errorf("failed to allocate a unique tracking code after %d attempts", maxCodeAttempts)
}

// ListLinks returns the partner's links, newest first
func (s *Service) ListLinks(ctx context.Context, partnerID int) ([]*models.AffiliateLink, error) {
	query, args := s.db.Select(linkColumns...).From(entsql.Table(database.TableAffiliateLinks)).
		Where(entsql.EQ("partner_id", partnerID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := []*models.AffiliateLink{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		link.TrackingURL = s.trackingURL(link.TrackingCode)
		links = append(links, link)
	}
	return links, rows.Err()
}

// TrackClick records a visit through code and returns where to send the
// visitor.
func (s *Service) TrackClick(ctx context.Context, code string, data models.ClickData) (string, error) {
	link, err := s.findLink(ctx, entsql.And(entsql.EQ("tracking_code", code), entsql.EQ("is_active", true)))
	if err != nil {
		return "", err
	}

	_, err = s.db.InsertID(ctx, s.db.DB(), s.db.Insert(database.TableClicks).
		Columns("affiliate_link_id", "partner_id", "offer_id", "ip_address", "user_agent", "referrer",
			"utm_source", "utm_medium", "utm_campaign", "clicked_at").
		Values(link.ID, link.PartnerID, link.OfferID,
			truncated(data.IPAddress, 50), truncated(data.UserAgent, 500), truncated(data.Referrer, 500),
			truncated(data.UTMSource, 100), truncated(data.UTMMedium, 100), truncated(data.UTMCampaign, 100),
			time.Now().UTC()))
	if err != nil {
		return "", fmt.Errorf("failed to create click: %w", err)
	}

	offer, err := offers.GetWith(ctx, s.db, s.db.DB(), link.OfferID)
	if err != nil {
		return "", err
	}
	if offer.ProductURL != nil && *offer.ProductURL != "" {
		return *offer.ProductURL, nil
	}
	return s.cfg.FrontendURL + "/offers", nil
}

// RecordConversion stores a sale attributed to linkID. The commission split
// is taken from the offer as it is now and never recomputed.
func (s *Service) RecordConversion(ctx context.Context, linkID int, saleAmount decimal.Decimal, orderID string) (*models.Conversion, error) {
	if !saleAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	link, err := s.findLink(ctx, entsql.EQ("id", linkID))
	if err != nil {
		return nil, err
	}
	offer, err := offers.GetWith(ctx, s.db, s.db.DB(), link.OfferID)
	if err != nil {
		return nil, err
	}

	split := commission.Calculate(offer.Price, offer.CommissionPercent, offer.PlatformPercent)
	conv := &models.Conversion{
		AffiliateLinkID:  link.ID,
		PartnerID:        link.PartnerID,
		OfferID:          link.OfferID,
		SaleAmount:       saleAmount.Round(2),
		TotalCommission:  split.Total,
		CommissionAmount: split.Partner,
		PlatformFee:      split.PlatformFee,
		Status:           models.ConversionPending,
		CreatedAt:        time.Now().UTC(),
	}
	var order sql.NullString
	if orderID = strings.TrimSpace(orderID); orderID != "" {
		conv.OrderID = &orderID
		order = sql.NullString{String: orderID, Valid: true}
	}

	id, err := s.db.InsertID(ctx, s.db.DB(), s.db.Insert(database.TableConversions).
		Columns("affiliate_link_id", "partner_id", "offer_id", "order_id", "sale_amount",
			"total_commission", "commission_amount", "platform_fee", "status", "created_at").
		Values(conv.AffiliateLinkID, conv.PartnerID, conv.OfferID, order, conv.SaleAmount,
			conv.TotalCommission, conv.CommissionAmount, conv.PlatformFee, string(conv.Status), conv.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateOrder
		}
		return nil, fmt.Errorf("failed to create conversion: %w", err)
	}
	conv.ID = id

	return conv, nil
}

// ApproveConversion moves a pending sale on one of companyID's offers to
// approved and credits the partner's share to their balance.
func (s *Service) ApproveConversion(ctx context.Context, companyID, conversionID int) (*models.Conversion, error) {
	return s.review(ctx, companyID, conversionID, models.ConversionApproved)
}

// RejectConversion moves a pending sale on one of companyID's offers to
// rejected. Nothing is credited.
func (s *Service) RejectConversion(ctx context.Context, companyID, conversionID int) (*models.Conversion, error) {
	return s.review(ctx, companyID, conversionID, models.ConversionRejected)
}

func (s *Service) review(ctx context.Context, companyID, conversionID int, to models.ConversionStatus) (*models.Conversion, error) {
	var conv *models.Conversion
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		conv, err = GetConversion(ctx, s.db, tx, conversionID)
		if err != nil {
			return err
		}
		offer, err := offers.GetWith(ctx, s.db, tx, conv.OfferID)
		if err != nil {
			return err
		}
		if offer.CompanyID != companyID {
			return domain.ErrNotOfferOwner
		}

		now := time.Now().UTC()
		update := s.db.Update(database.TableConversions).
			Set("status", string(to)).
			Where(entsql.And(entsql.EQ("id", conv.ID), entsql.EQ("status", string(models.ConversionPending))))
		if to == models.ConversionApproved {
			update.Set("approved_at", now)
		}
		n, err := s.db.Exec(ctx, tx, update)
		if err != nil {
			return fmt.Errorf("failed to update conversion: %w", err)
		}
		if n == 0 {
			return domain.ErrConversionNotPending
		}

		conv.Status = to
		if to == models.ConversionApproved {
			conv.ApprovedAt = &now
			return s.accounts.Credit(ctx, tx, conv.PartnerID, conv.CommissionAmount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversions returns the sales acc can see, newest first. Partners see
// their own sales; companies see sales of their offers.
func (s *Service) ListConversions(ctx context.Context, acc *models.Account) ([]*models.Conversion, error) {
	return QueryConversions(ctx, s.db, VisibleTo(s.db, acc), 0)
}

func (s *Service) findLink(ctx context.Context, p *entsql.Predicate) (*models.AffiliateLink, error) {
	query, args := s.db.Select(linkColumns...).From(entsql.Table(database.TableAffiliateLinks)).Where(p).Query()

	link, err := scanLink(s.db.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	link.TrackingURL = s.trackingURL(link.TrackingCode)
	return link, nil
}

func (s *Service) trackingURL(code string) string {
	return s.cfg.PublicBaseURL + "/track/" + code
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*models.AffiliateLink, error) {
	l := &models.AffiliateLink{}
	if err := row.Scan(&l.ID, &l.PartnerID, &l.OfferID, &l.TrackingCode, &l.IsActive, &l.CreatedAt); err != nil {
		return nil, err
	}
	return l, nil
}

// generateTrackingCode draws trackingCodeLength characters uniformly from
// trackingCodeAlphabet.
func generateTrackingCode() (string, error) {
	const limit = 256 - 256%len(trackingCodeAlphabet)

	code := make([]byte, 0, trackingCodeLength)
	buf := make([]byte, trackingCodeLength*2)
	for len(code) < trackingCodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, trackingCodeAlphabet[int(b)%len(trackingCodeAlphabet)])
			if len(code) == trackingCodeLength {
				break
			}
		}
	}
	return string(code), nil
}

func truncated(s string, max int) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	if len(s) > max {
		s = strings.ToValidUTF8(s[:max], "")
	}
	return sql.NullString{String: s, Valid: true}
}
