package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/cache"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-middleware"

type fakeAccounts map[int]*models.Account

func (f fakeAccounts) GetByID(_ context.Context, id int) (*models.Account, error) {
	if acc, ok := f[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrUserNotFound
}

func testAccounts() fakeAccounts {
	return fakeAccounts{
		1: {ID: 1, Email: "shop@example.com", Role: models.RoleCompany, IsActive: true},
		2: {ID: 2, Email: "alice@example.com", Role: models.RolePartner, IsActive: true},
		3: {ID: 3, Email: "gone@example.com", Role: models.RolePartner, IsActive: false},
	}
}

func serveAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
	require.NoError(t, err)
	return rec, c
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, 1)
	accounts := testAccounts()
	mw := Authenticate(tokens, nil, accounts)

	issue := func(acc *models.Account) string {
		token, err := tokens.Issue(acc)
		require.NoError(t, err)
		return token
	}

	expired := func() string {
		old := auth.NewTokenManager(testSecret, -1)
		token, err := old.Issue(accounts[2])
		require.NoError(t, err)
		return token
	}()

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "missing_token"},
		{"wrong scheme", "Basic abc", "invalid_token"},
		{"empty bearer", "Bearer ", "invalid_token"},
		{"garbage token", "Bearer not.a.jwt", "invalid_token"},
		{"wrong secret", "Bearer " + func() string {
			tok, _ := auth.NewTokenManager("other-secret", 1).Issue(accounts[2])
			return tok
		}(), "invalid_token"},
		{"expired", "Bearer " + expired, "expired_token"},
		{"unknown account", "Bearer " + issue(&models.Account{ID: 99, Role: models.RolePartner}), "unknown_account"},
		{"inactive account", "Bearer " + issue(accounts[3]), "unknown_account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serveAuth(t, mw, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}

	t.Run("valid token stores account", func(t *testing.T) {
		token := issue(accounts[2])
		rec, c := serveAuth(t, mw, "Bearer "+token)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, CurrentAccount(c))
		assert.Equal(t, 2, CurrentAccount(c).ID)
		assert.Equal(t, token, Token(c))
		assert.Equal(t, models.RolePartner, Claims(c).Role)
	})
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	tokens := auth.NewTokenManager(testSecret, 1)
	blacklist := auth.NewTokenBlacklist(client)
	accounts := testAccounts()
	mw := Authenticate(tokens, blacklist, accounts)

	token, err := tokens.Issue(accounts[2])
	require.NoError(t, err)

	rec, _ := serveAuth(t, mw, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, blacklist.Add(context.Background(), token, time.Hour))

	rec, _ = serveAuth(t, mw, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "revoked_token", errorCode(t, rec))
}

func TestRequireRole(t *testing.T) {
	accounts := testAccounts()
	e := echo.New()

	run := func(acc *models.Account) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/offers", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if acc != nil {
			c.Set(contextKeyAccount, acc)
		}
		err := RequireRole(models.RoleCompany)(func(c echo.Context) error {
			return c.NoContent(http.StatusCreated)
		})(c)
		require.NoError(t, err)
		return rec
	}

	assert.Equal(t, http.StatusCreated, run(accounts[1]).Code)

	rec := run(accounts[2])
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorCode(t, rec))

	assert.Equal(t, http.StatusUnauthorized, run(nil).Code)
}
