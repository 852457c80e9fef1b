package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/analytics"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/database/dbtest"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/passwordreset"
	"github.com/jordanlanch/affiliatebridge/pkg/payouts"
	"github.com/jordanlanch/affiliatebridge/pkg/testdata"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handlers-test-secret"

// fakeSender records reset emails instead of delivering them
type fakeSender struct {
	tokens    []string
	delivered bool
}

func (f *fakeSender) SendPasswordResetEmail(toEmail, toName, token string, ttl time.Duration) (bool, error) {
	f.tokens = append(f.tokens, token)
	return f.delivered, nil
}

func (f *fakeSender) ResetURL(token string) string {
	return "http://localhost:3000/reset-password?token=" + token
}

func (f *fakeSender) last() string {
	if len(f.tokens) == 0 {
		return ""
	}
	return f.tokens[len(f.tokens)-1]
}

// testEnv wires real services over an in-memory database
type testEnv struct {
	db        *database.Client
	gen       *testdata.Generator
	tokens    *auth.TokenManager
	metrics   *metrics.Metrics
	affiliate *affiliate.Service
	payouts   *payouts.Service
	analytics *analytics.Service
	resets    *passwordreset.Service
	sender    *fakeSender
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	gen := testdata.NewGenerator(db, 42)
	sender := &fakeSender{}

	return &testEnv{
		db:      db,
		gen:     gen,
		tokens:  auth.NewTokenManager(testJWTSecret, 1),
		metrics: metrics.New(prometheus.NewRegistry()),
		affiliate: affiliate.NewService(db, gen.Accounts, affiliate.Config{
			PublicBaseURL: "http://localhost:8000",
			FrontendURL:   "http://localhost:3000",
		}),
		payouts:   payouts.NewService(db, gen.Accounts, nil),
		analytics: analytics.NewService(db, gen.Accounts),
		resets:    passwordreset.NewService(db, gen.Accounts, sender, passwordreset.Config{ExposeLinks: true}, nil),
		sender:    sender,
	}
}

func (env *testEnv) company(t *testing.T) *models.Account {
	t.Helper()
	acc, err := env.gen.Company(context.Background())
	require.NoError(t, err)
	return acc
}

func (env *testEnv) partner(t *testing.T) *models.Account {
	t.Helper()
	acc, err := env.gen.Partner(context.Background())
	require.NoError(t, err)
	return acc
}

func (env *testEnv) offer(t *testing.T, companyID int) *models.Offer {
	t.Helper()
	offer, err := env.gen.OfferWithSplit(context.Background(), companyID, 100000, 15, 20)
	require.NoError(t, err)
	return offer
}

// request describes a single handler invocation
type request struct {
	method string
	target string
	body   any
	as     *models.Account
	params map[string]string
}

// serveRaw runs an unauthenticated handler for a prepared request
func (env *testEnv) serveRaw(t *testing.T, h echo.HandlerFunc, req *http.Request, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	setParams(c, params)
	require.NoError(t, h(c))
	return rec
}

func setParams(c echo.Context, params map[string]string) {
	if len(params) == 0 {
		return
	}
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for name, value := range params {
		names = append(names, name)
		values = append(values, value)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

// serve runs h for r. When r.as is set the handler runs behind the real
// Authenticate middleware with a freshly issued token.
func (env *testEnv) serve(t *testing.T, h echo.HandlerFunc, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}

	e := echo.New()
	req := httptest.NewRequest(r.method, r.target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	if r.as != nil {
		token, err := env.tokens.Issue(r.as)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		h = custommiddleware.Authenticate(env.tokens, nil, env.gen.Accounts)(h)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setParams(c, r.params)

	require.NoError(t, h(c))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[models.ErrorResponse](t, rec).Error
}

func newJSONRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func serveEcho(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
