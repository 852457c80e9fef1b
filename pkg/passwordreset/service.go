// Package passwordreset issues and redeems one-time password reset tokens.
package passwordreset

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/getsentry/sentry-go"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/logger"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
)

const tokenBytes = 32

var columns = []string{"id", "user_id", "token_hash", "expires_at", "used", "created_at"}

// Sender delivers reset links
type Sender interface {
	SendPasswordResetEmail(toEmail, toName, token string, ttl time.Duration) (bool, error)
	ResetURL(token string) string
}

// Config controls token lifetime and the development link fallback
type Config struct {
	TTL time.Duration
	// ExposeLinks returns the reset link to the caller when the email was not
	// delivered. Development only.
	ExposeLinks bool
}

// RequestResult describes the outcome of a reset request. It is the same for
// unknown emails and undelivered emails unless ExposeLinks is on.
type RequestResult struct {
	Delivered bool
	ResetURL  string
}

// Service manages reset tokens
type Service struct {
	db       *database.Client
	accounts *accounts.Service
	sender   Sender
	cfg      Config
	log      logger.Logger
	now      func() time.Time
}

// NewService creates a new password reset service
func NewService(db *database.Client, accountService *accounts.Service, sender Sender, cfg Config, log logger.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		db:       db,
		accounts: accountService,
		sender:   sender,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Request issues a new token for email and sends it. Unknown emails succeed
// silently. Earlier unused tokens of the account stop working.
func (s *Service) Request(ctx context.Context, email string) (RequestResult, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return RequestResult{}, nil
		}
		return RequestResult{}, err
	}

	token, err := generateToken()
	if err != nil {
		return RequestResult{}, fmt.Errorf("failed to generate reset token: %w", err)
	}

	now := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Concurrent requests for one account queue here, leaving one live token
		if err := s.accounts.Lock(ctx, tx, acc.ID); err != nil {
			return err
		}

		if _, err := s.db.Exec(ctx, tx, s.db.Update(database.TablePasswordResets).
			Set("used", true).
			Where(entsql.And(entsql.EQ("user_id", acc.ID), entsql.EQ("used", false)))); err != nil {
			return fmt.Errorf("failed to supersede reset tokens: %w", err)
		}

		_, err := s.db.InsertID(ctx, tx, s.db.Insert(database.TablePasswordResets).
			Columns("user_id", "token_hash", "expires_at", "used", "created_at").
			Values(acc.ID, auth.HashToken(token), now.Add(s.cfg.TTL), false, now))
		if err != nil {
			return fmt.Errorf("failed to store reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return RequestResult{}, err
	}

	delivered, err := s.sender.SendPasswordResetEmail(acc.Email, acc.FullName, token, s.cfg.TTL)
	if err != nil {
		s.log.Error("password reset email failed", "user_id", acc.ID, "error", err)
		sentry.CaptureException(err)
	}

	result := RequestResult{Delivered: delivered}
	if !delivered && s.cfg.ExposeLinks {
		result.ResetURL = s.sender.ResetURL(token)
	}
	return result, nil
}

// Verify reports the state of token and, when valid, the account it resets
func (s *Service) Verify(ctx context.Context, token string) (models.ResetTokenState, *models.Account, error) {
	reset, state, err := s.lookup(ctx, s.db.DB(), token)
	if err != nil || state != models.ResetTokenValid {
		return state, nil, err
	}

	acc, err := s.accounts.GetByID(ctx, reset.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return models.ResetTokenUnknown, nil, nil
		}
		return "", nil, err
	}
	return state, acc, nil
}

// Confirm redeems token and replaces the account password. A token can be
// redeemed once; concurrent confirmations of the same token see it used.
func (s *Service) Confirm(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < accounts.MinPasswordLength {
		return domain.ErrWeakPassword
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		reset, state, err := s.lookup(ctx, tx, token)
		if err != nil {
			return err
		}
		if err := StateError(state); err != nil {
			return err
		}

		n, err := s.db.Exec(ctx, tx, s.db.Update(database.TablePasswordResets).
			Set("used", true).
			Where(entsql.And(entsql.EQ("id", reset.ID), entsql.EQ("used", false))))
		if err != nil {
			return fmt.Errorf("failed to redeem reset token: %w", err)
		}
		if n == 0 {
			return domain.ErrResetTokenUsed
		}

		return s.accounts.SetPassword(ctx, tx, reset.UserID, newPassword)
	})
}

// StateError maps a non-valid state to its error
func StateError(state models.ResetTokenState) error {
	switch state {
	case models.ResetTokenValid:
		return nil
	case models.ResetTokenExpired:
		return domain.ErrResetTokenExpired
	case models.ResetTokenUsed:
		return domain.ErrResetTokenUsed
	default:
		return domain.ErrResetTokenUnknown
	}
}

func (s *Service) lookup(ctx context.Context, q database.Querier, token string) (*models.PasswordReset, models.ResetTokenState, error) {
	if token == "" {
		return nil, models.ResetTokenUnknown, nil
	}

	query, args := s.db.Select(columns...).From(entsql.Table(database.TablePasswordResets)).
		Where(entsql.EQ("token_hash", auth.HashToken(token))).
		Query()

	r := &models.PasswordReset{}
	err := q.QueryRowContext(ctx, query, args...).Scan(&r.ID, &r.UserID, &r.TokenHash, &r.ExpiresAt, &r.Used, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ResetTokenUnknown, nil
		}
		return nil, "", fmt.Errorf("failed to load reset token: %w", err)
	}

	switch {
	case r.Used:
		return r, models.ResetTokenUsed, nil
	case !s.now().Before(r.ExpiresAt):
		return r, models.ResetTokenExpired, nil
	default:
		return r, models.ResetTokenValid, nil
	}
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
