package payouts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/logger"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/shopspring/decimal"
)

const reasonInsufficientBalance = "insufficient balance at settlement"

var columns = []string{
	"id", "partner_id", "amount", "payment_method", "payment_details", "status",
	"failure_reason", "requested_at", "completed_at",
}

// Service handles partner payout requests and their settlement
type Service struct {
	db       *database.Client
	accounts *accounts.Service
	log      logger.Logger
}

// NewService creates a new payout service
func NewService(db *database.Client, accountService *accounts.Service, log logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{db: db, accounts: accountService, log: log}
}

// Request records a payout for partnerID. The amount must be positive and
// covered by the current balance; the balance itself is not touched until
// settlement.
func (s *Service) Request(ctx context.Context, partnerID int, amount decimal.Decimal, method, details string) (*models.Payout, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	balance, err := s.accounts.Balance(ctx, s.db.DB(), partnerID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(balance) {
		return nil, domain.ErrInsufficientBalance
	}

	payout := &models.Payout{
		PartnerID:      partnerID,
		Amount:         amount,
		PaymentMethod:  optional(method),
		PaymentDetails: optional(details),
		Status:         models.PayoutPending,
		RequestedAt:    time.Now().UTC(),
	}

	id, err := s.db.InsertID(ctx, s.db.DB(), s.db.Insert(database.TablePayouts).
		Columns("partner_id", "amount", "payment_method", "payment_details", "status", "requested_at").
		Values(payout.PartnerID, payout.Amount, nullString(payout.PaymentMethod), nullString(payout.PaymentDetails),
			string(payout.Status), payout.RequestedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}
	payout.ID = id

	return payout, nil
}

// List returns the partner's payouts, newest first
func (s *Service) List(ctx context.Context, partnerID int) ([]*models.Payout, error) {
	return s.query(ctx, s.db.DB(), entsql.EQ("partner_id", partnerID), entsql.Desc("requested_at"), entsql.Desc("id"))
}

// Get loads one payout
func (s *Service) Get(ctx context.Context, id int) (*models.Payout, error) {
	list, err := s.query(ctx, s.db.DB(), entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.NewNotFoundError("payout")
	}
	return list[0], nil
}

// PendingCount returns how many payouts await settlement
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.db.Count(ctx, s.db.DB(), s.db.Select(entsql.Count("*")).
		From(entsql.Table(database.TablePayouts)).
		Where(entsql.EQ("status", string(models.PayoutPending))))
}

// Settle processes pending payouts oldest first. Each payout is settled in
// its own transaction: the balance is debited only if it still covers the
// amount, in which case the payout completes and the partner's approved
// conversions that fit in the amount are marked paid. Otherwise the payout
// fails and the balance is left alone.
func (s *Service) Settle(ctx context.Context) (models.SettlementResult, error) {
	var result models.SettlementResult

	pending, err := s.query(ctx, s.db.DB(), entsql.EQ("status", string(models.PayoutPending)),
		entsql.Asc("requested_at"), entsql.Asc("id"))
	if err != nil {
		return result, err
	}

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		status, err := s.settleOne(ctx, p)
		if err != nil {
			s.log.Error("payout settlement failed", "payout_id", p.ID, "partner_id", p.PartnerID, "error", err)
			continue
		}
		switch status {
		case models.PayoutCompleted:
			result.Completed++
			s.log.Info("payout completed", "payout_id", p.ID, "partner_id", p.PartnerID, "amount", p.Amount.String())
		case models.PayoutFailed:
			result.Failed++
			s.log.Warn("payout failed", "payout_id", p.ID, "partner_id", p.PartnerID, "reason", reasonInsufficientBalance)
		}
	}

	return result, nil
}

// settleOne returns the final status, or "" when another worker already
// claimed the payout.
func (s *Service) settleOne(ctx context.Context, p *models.Payout) (models.PayoutStatus, error) {
	var final models.PayoutStatus

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		claimed, err := s.db.Exec(ctx, tx, s.db.Update(database.TablePayouts).
			Set("status", string(models.PayoutProcessing)).
			Where(entsql.And(entsql.EQ("id", p.ID), entsql.EQ("status", string(models.PayoutPending)))))
		if err != nil {
			return fmt.Errorf("failed to claim payout: %w", err)
		}
		if claimed == 0 {
			return nil
		}

		now := time.Now().UTC()
		err = s.accounts.Debit(ctx, tx, p.PartnerID, p.Amount)
		switch {
		case errors.Is(err, domain.ErrInsufficientBalance):
			final = models.PayoutFailed
			_, err = s.db.Exec(ctx, tx, s.db.Update(database.TablePayouts).
				Set("status", string(final)).
				Set("failure_reason", reasonInsufficientBalance).
				Where(entsql.EQ("id", p.ID)))
			return err
		case err != nil:
			return err
		}

		final = models.PayoutCompleted
		if _, err := s.db.Exec(ctx, tx, s.db.Update(database.TablePayouts).
			Set("status", string(final)).
			Set("completed_at", now).
			Where(entsql.EQ("id", p.ID))); err != nil {
			return fmt.Errorf("failed to complete payout: %w", err)
		}

		return s.markPaid(ctx, tx, p.PartnerID, p.Amount, now)
	})
	if err != nil {
		return "", err
	}
	return final, nil
}

// markPaid flags approved conversions as paid, oldest first, while their
// partner share still fits in amount.
func (s *Service) markPaid(ctx context.Context, tx *sql.Tx, partnerID int, amount decimal.Decimal, now time.Time) error {
	approved, err := affiliate.ApprovedOldestFirst(ctx, s.db, tx, partnerID)
	if err != nil {
		return err
	}

	remaining := amount
	for _, c := range approved {
		if c.CommissionAmount.GreaterThan(remaining) {
			break
		}
		if _, err := s.db.Exec(ctx, tx, s.db.Update(database.TableConversions).
			Set("status", string(models.ConversionPaid)).
			Set("paid_at", now).
			Where(entsql.EQ("id", c.ID))); err != nil {
			return fmt.Errorf("failed to mark conversion paid: %w", err)
		}
		remaining = remaining.Sub(c.CommissionAmount)
	}
	return nil
}

func (s *Service) query(ctx context.Context, q database.Querier, p *entsql.Predicate, order ...string) ([]*models.Payout, error) {
	selector := s.db.Select(columns...).From(entsql.Table(database.TablePayouts)).Where(p)
	if len(order) > 0 {
		selector.OrderBy(order...)
	}
	query, args := selector.Query()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	payouts := []*models.Payout{}
	for rows.Next() {
		p := &models.Payout{}
		var status string
		if err := rows.Scan(&p.ID, &p.PartnerID, &p.Amount, &p.PaymentMethod, &p.PaymentDetails, &status,
			&p.FailureReason, &p.RequestedAt, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		p.Status = models.PayoutStatus(status)
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
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
