package passwordreset

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/database/dbtest"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu      sync.Mutex
	tokens  []string
	deliver bool
	err     error
}

func (f *fakeSender) SendPasswordResetEmail(toEmail, toName, token string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return f.deliver, f.err
}

func (f *fakeSender) ResetURL(token string) string {
	return "http://localhost:3000/reset-password?token=" + token
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[len(f.tokens)-1]
}

type fixture struct {
	db      *database.Client
	gen     *testdata.Generator
	sender  *fakeSender
	service *Service
	account *models.Account
}

func setupFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	gen := testdata.NewGenerator(db, 3)
	account, err := gen.Partner(context.Background())
	require.NoError(t, err)

	sender := &fakeSender{deliver: true}
	return &fixture{
		db:      db,
		gen:     gen,
		sender:  sender,
		service: NewService(db, gen.Accounts, sender, cfg, nil),
		account: account,
	}
}

func (f *fixture) resetCount(t *testing.T) int {
	n, err := f.db.Count(context.Background(), f.db.DB(),
		f.db.Select(entsql.Count("*")).From(entsql.Table(database.TablePasswordResets)))
	require.NoError(t, err)
	return n
}

func TestRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown email succeeds without a token", func(t *testing.T) {
		f := setupFixture(t, Config{})

		result, err := f.service.Request(ctx, "nobody@example.com")

		require.NoError(t, err)
		assert.Equal(t, RequestResult{}, result)
		assert.Empty(t, f.sender.tokens)
		assert.Zero(t, f.resetCount(t))
	})

	t.Run("Known email issues a hashed token", func(t *testing.T) {
		f := setupFixture(t, Config{})

		result, err := f.service.Request(ctx, f.account.Email)

		require.NoError(t, err)
		assert.True(t, result.Delivered)
		assert.Empty(t, result.ResetURL)
		require.Len(t, f.sender.tokens, 1)
		assert.Len(t, f.sender.last(), 43)
		assert.Equal(t, 1, f.resetCount(t))

		var stored string
		query, args := f.db.Select("token_hash").From(entsql.Table(database.TablePasswordResets)).Query()
		require.NoError(t, f.db.DB().QueryRowContext(ctx, query, args...).Scan(&stored))
		assert.NotEqual(t, f.sender.last(), stored)
		assert.Len(t, stored, 64)
	})

	t.Run("Email lookup ignores case", func(t *testing.T) {
		f := setupFixture(t, Config{})

		_, err := f.service.Request(ctx, "  "+strings.ToUpper(f.account.Email))

		require.NoError(t, err)
		assert.Len(t, f.sender.tokens, 1)
	})

	t.Run("Send failure is not returned", func(t *testing.T) {
		f := setupFixture(t, Config{})
		f.sender.deliver = false
		f.sender.err = errors.New("sendgrid down")

		result, err := f.service.Request(ctx, f.account.Email)

		require.NoError(t, err)
		assert.False(t, result.Delivered)
		assert.Empty(t, result.ResetURL)
	})

	t.Run("Undelivered link exposed when enabled", func(t *testing.T) {
		f := setupFixture(t, Config{ExposeLinks: true})
		f.sender.deliver = false

		result, err := f.service.Request(ctx, f.account.Email)

		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000/reset-password?token="+f.sender.last(), result.ResetURL)
	})

	t.Run("Delivered link never exposed", func(t *testing.T) {
		f := setupFixture(t, Config{ExposeLinks: true})

		result, err := f.service.Request(ctx, f.account.Email)

		require.NoError(t, err)
		assert.Empty(t, result.ResetURL)
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t, Config{TTL: time.Hour})

	_, err := f.service.Request(ctx, f.account.Email)
	require.NoError(t, err)
	first := f.sender.last()

	t.Run("Valid token", func(t *testing.T) {
		state, acc, err := f.service.Verify(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenValid, state)
		require.NotNil(t, acc)
		assert.Equal(t, f.account.Email, acc.Email)
	})

	t.Run("Unknown token", func(t *testing.T) {
		state, acc, err := f.service.Verify(ctx, "not-a-token")
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenUnknown, state)
		assert.Nil(t, acc)
	})

	t.Run("Empty token", func(t *testing.T) {
		state, _, err := f.service.Verify(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenUnknown, state)
	})

	t.Run("Expired token", func(t *testing.T) {
		f.service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { f.service.now = time.Now }()

		state, _, err := f.service.Verify(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenExpired, state)
	})

	t.Run("Second request supersedes the first", func(t *testing.T) {
		_, err := f.service.Request(ctx, f.account.Email)
		require.NoError(t, err)
		second := f.sender.last()

		state, _, err := f.service.Verify(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenUsed, state)

		state, _, err = f.service.Verify(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenValid, state)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t, Config{})

	_, err := f.service.Request(ctx, f.account.Email)
	require.NoError(t, err)
	token := f.sender.last()

	t.Run("Error - Weak password", func(t *testing.T) {
		err := f.service.Confirm(ctx, token, "12345")
		assert.ErrorIs(t, err, domain.ErrWeakPassword)

		state, _, err := f.service.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenValid, state)
	})

	t.Run("Error - Unknown token", func(t *testing.T) {
		err := f.service.Confirm(ctx, "bogus", "newpassword")
		assert.ErrorIs(t, err, domain.ErrResetTokenUnknown)
	})

	t.Run("Success - Password replaced", func(t *testing.T) {
		require.NoError(t, f.service.Confirm(ctx, token, "newpassword"))

		_, err := f.gen.Accounts.Authenticate(ctx, f.account.Email, testdata.Password)
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

		acc, err := f.gen.Accounts.Authenticate(ctx, f.account.Email, "newpassword")
		require.NoError(t, err)
		assert.Equal(t, f.account.ID, acc.ID)
	})

	t.Run("Error - Token cannot be redeemed twice", func(t *testing.T) {
		err := f.service.Confirm(ctx, token, "anotherpassword")
		assert.ErrorIs(t, err, domain.ErrResetTokenUsed)

		state, _, err := f.service.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, models.ResetTokenUsed, state)
	})

	t.Run("Error - Expired token", func(t *testing.T) {
		_, err := f.service.Request(ctx, f.account.Email)
		require.NoError(t, err)

		f.service.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		defer func() { f.service.now = time.Now }()

		err = f.service.Confirm(ctx, f.sender.last(), "newpassword2")
		assert.ErrorIs(t, err, domain.ErrResetTokenExpired)
	})
}

func TestConfirm_ConcurrentRedemption(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t, Config{})

	_, err := f.service.Request(ctx, f.account.Email)
	require.NoError(t, err)
	token := f.sender.last()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.service.Confirm(ctx, token, "concurrent-secret")
		}(i)
	}
	wg.Wait()

	redeemed := 0
	for _, err := range errs {
		if err == nil {
			redeemed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrResetTokenUsed)
	}
	assert.Equal(t, 1, redeemed)
}

func TestRequest_ConcurrentLeavesOneActiveToken(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t, Config{})

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Request(ctx, f.account.Email)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, f.resetCount(t))
	active, err := f.db.Count(ctx, f.db.DB(), f.db.Select(entsql.Count("*")).
		From(entsql.Table(database.TablePasswordResets)).
		Where(entsql.And(entsql.EQ("user_id", f.account.ID), entsql.EQ("used", false))))
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestStateError(t *testing.T) {
	assert.NoError(t, StateError(models.ResetTokenValid))
	assert.ErrorIs(t, StateError(models.ResetTokenExpired), domain.ErrResetTokenExpired)
	assert.ErrorIs(t, StateError(models.ResetTokenUsed), domain.ErrResetTokenUsed)
	assert.ErrorIs(t, StateError(models.ResetTokenUnknown), domain.ErrResetTokenUnknown)
}
