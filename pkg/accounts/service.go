package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/phone"
	"github.com/shopspring/decimal"
)

// MinPasswordLength is the shortest secret accepted anywhere
const MinPasswordLength = 6

var columns = []string{
	"id", "email", "password_hash", "role", "full_name", "company_name",
	"phone", "balance", "is_active", "created_at",
}

// RegisterInput holds the data for a new account
type RegisterInput struct {
	Email       string
	Password    string
	Role        models.Role
	FullName    string
	CompanyName string
	Phone       string
}

// Service handles account operations
type Service struct {
	db          *database.Client
	phoneRegion string
}

// NewService creates a new account service. Phone numbers without a country
// prefix are read as belonging to phoneRegion.
func NewService(db *database.Client, phoneRegion string) *Service {
	return &Service{db: db, phoneRegion: phoneRegion}
}

// NormalizeEmail lower-cases and trims an address for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new company or partner account
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	if !in.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	var phoneNumber string
	if strings.TrimSpace(in.Phone) != "" {
		normalized, err := phone.Normalize(in.Phone, s.phoneRegion)
		if err != nil {
			return nil, domain.ErrInvalidPhone
		}
		phoneNumber = normalized
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acc := &models.Account{
		Email:        NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		FullName:     strings.TrimSpace(in.FullName),
		CompanyName:  optional(in.CompanyName),
		Phone:        optional(phoneNumber),
		Balance:      decimal.Zero,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.db.InsertID(ctx, s.db.DB(), s.db.Insert(database.TableUsers).
		Columns("email", "password_hash", "role", "full_name", "company_name", "phone", "balance", "is_active", "created_at").
		Values(acc.Email, acc.PasswordHash, string(acc.Role), acc.FullName, nullString(acc.CompanyName), nullString(acc.Phone), acc.Balance, acc.IsActive, acc.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	acc.ID = id

	return acc, nil
}

// Authenticate checks credentials. Unknown emails, wrong passwords and
// deactivated accounts all yield domain.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(acc.PasswordHash, password) || !acc.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	return acc, nil
}

// GetByID loads an account
func (s *Service) GetByID(ctx context.Context, id int) (*models.Account, error) {
	return s.get(ctx, s.db.DB(), entsql.EQ("id", id))
}

// GetByEmail loads an account by its normalized email
func (s *Service) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.get(ctx, s.db.DB(), entsql.EQ("email", NormalizeEmail(email)))
}

// SetPassword replaces the password hash of an account using q, which may be
// a transaction.
func (s *Service) SetPassword(ctx context.Context, q database.Querier, id int, password string) error {
	if len(password) < MinPasswordLength {
		return domain.ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	n, err := s.db.Exec(ctx, q, s.db.Update(database.TableUsers).
		Set("password_hash", hash).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Balance returns the current balance of an account
func (s *Service) Balance(ctx context.Context, q database.Querier, id int) (decimal.Decimal, error) {
	query, args := s.db.Select("balance").From(entsql.Table(database.TableUsers)).Where(entsql.EQ("id", id)).Query()

	var balance decimal.Decimal
	if err := q.QueryRowContext(ctx, query, args...).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to load balance: %w", err)
	}
	return balance.Round(2), nil
}

// Credit adds amount to the balance of an account
func (s *Service) Credit(ctx context.Context, q database.Querier, id int, amount decimal.Decimal) error {
	n, err := s.db.Exec(ctx, q, s.db.Update(database.TableUsers).
		Set("balance", shiftedBalance(amount)).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Debit subtracts amount from the balance only when it is covered. It never
// takes the balance below zero.
func (s *Service) Debit(ctx context.Context, q database.Querier, id int, amount decimal.Decimal) error {
	n, err := s.db.Exec(ctx, q, s.db.Update(database.TableUsers).
		Set("balance", shiftedBalance(amount.Neg())).
		Where(entsql.And(entsql.EQ("id", id), covers(amount))))
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if n == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// Lock holds a row lock on the account until q's transaction ends. SQLite
// has no row locks; its single connection already serialises writers.
func (s *Service) Lock(ctx context.Context, q database.Querier, id int) error {
	if s.db.Dialect() != dialect.Postgres {
		return nil
	}

	query, args := s.db.Select("id").From(entsql.Table(database.TableUsers)).
		Where(entsql.EQ("id", id)).
		ForUpdate().
		Query()

	var locked int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to lock account: %w", err)
	}
	return nil
}

// shiftedBalance is balance + delta rounded to cents. SQLite keeps the
// column as REAL, so every write snaps back to two places.
func shiftedBalance(delta decimal.Decimal) entsql.Querier {
	return entsql.ExprFunc(func(b *entsql.Builder) {
		b.WriteString("ROUND(COALESCE(").Ident("balance").WriteString(", 0) + ").Arg(delta).WriteString(", 2)")
	})
}

// covers holds when the balance, in cents, is at least amount
func covers(amount decimal.Decimal) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("ROUND(").Ident("balance").WriteString(" - ").Arg(amount).WriteString(", 2) >= 0")
	})
}

// Count returns the number of stored accounts
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.db.Count(ctx, s.db.DB(), s.db.Select(entsql.Count("*")).From(entsql.Table(database.TableUsers)))
}

func (s *Service) get(ctx context.Context, q database.Querier, p *entsql.Predicate) (*models.Account, error) {
	query, args := s.db.Select(columns...).From(entsql.Table(database.TableUsers)).Where(p).Query()

	acc := &models.Account{}
	var role string
	err := q.QueryRowContext(ctx, query, args...).Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &role, &acc.FullName, &acc.CompanyName,
		&acc.Phone, &acc.Balance, &acc.IsActive, &acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	acc.Role, err = models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return acc, nil
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
