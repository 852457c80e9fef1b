package api

import (
	"context"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/affiliatebridge/config"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/analytics"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/api/handlers"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/cache"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/logger"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/jordanlanch/affiliatebridge/pkg/passwordreset"
	"github.com/jordanlanch/affiliatebridge/pkg/payouts"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP surface is built from. Cache is optional.
type Deps struct {
	Config        *config.Config
	DB            *database.Client
	Cache         *cache.Client
	Accounts      *accounts.Service
	Offers        *offers.Service
	Affiliate     *affiliate.Service
	Payouts       *payouts.Service
	Analytics     *analytics.Service
	PasswordReset *passwordreset.Service
	Tokens        *auth.TokenManager
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Logger        logger.Logger
}

// Server is the configured echo app plus the resources it owns
type Server struct {
	echo     *echo.Echo
	limiters []*custommiddleware.RateLimiter
}

// NewServer builds the echo app with all middleware and routes
func NewServer(d Deps) *Server {
	cfg := d.Config
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errors.HTTPErrorHandler

	// Sensitive endpoints and click tracking get separate per-IP buckets
	authLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	trackLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	s := &Server{echo: e, limiters: []*custommiddleware.RateLimiter{authLimiter, trackLimiter}}

	reqLog := log.With("component", "http")
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String(), "ip", v.RemoteIP}
			if v.Error != nil {
				args = append(args, "error", v.Error.Error())
			}
			reqLog.Info("request", args...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true, // let Recover produce the response
		}))
	}

	e.Use(d.Metrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSAllowedOrigins)))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(middleware.BodyLimit("1M"))

	var blacklist *auth.TokenBlacklist
	var cachePinger handlers.Pinger
	if d.Cache != nil {
		blacklist = auth.NewTokenBlacklist(d.Cache)
		cachePinger = d.Cache
	}

	authHandler := handlers.NewAuthHandler(d.Accounts, d.Tokens, blacklist, d.Metrics, log)
	resetHandler := handlers.NewPasswordResetHandler(d.PasswordReset, d.Metrics)
	offerHandler := handlers.NewOfferHandler(d.Offers)
	affiliateHandler := handlers.NewAffiliateHandler(d.Affiliate, d.Metrics)
	conversionHandler := handlers.NewConversionHandler(d.Affiliate, d.Metrics)
	statsHandler := handlers.NewStatsHandler(d.Analytics)
	payoutHandler := handlers.NewPayoutHandler(d.Payouts, d.Metrics)
	healthHandler := handlers.NewHealthHandler(d.DB, cachePinger)

	requireAuth := custommiddleware.Authenticate(d.Tokens, blacklist, d.Accounts)
	companyOnly := custommiddleware.RequireRole(models.RoleCompany)
	partnerOnly := custommiddleware.RequireRole(models.RolePartner)
	authLimit := authLimiter.RateLimitMiddleware()

	// Operational endpoints (public)
	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Click tracking (public)
	e.GET("/track/:code", affiliateHandler.Track, trackLimiter.RateLimitMiddleware())

	api := e.Group("/api")

	// Authentication
	api.POST("/register", authHandler.Register, authLimit)
	api.POST("/login", authHandler.Login, authLimit)
	api.POST("/logout", authHandler.Logout, requireAuth)
	api.GET("/me", authHandler.Me, requireAuth)

	// Password reset
	reset := api.Group("/password-reset", authLimit)
	reset.POST("/request", resetHandler.Request)
	reset.GET("/verify/:token", resetHandler.Verify)
	reset.POST("/confirm", resetHandler.Confirm)

	// Offers
	api.GET("/offers", offerHandler.List)
	api.GET("/offers/:id", offerHandler.Get)
	api.POST("/offers", offerHandler.Create, requireAuth, companyOnly)
	api.PUT("/offers/:id", offerHandler.Update, requireAuth, companyOnly)

	// Tracking links
	api.POST("/affiliate-links", affiliateHandler.CreateLink, requireAuth, partnerOnly)
	api.GET("/affiliate-links", affiliateHandler.ListLinks, requireAuth)

	// Conversions
	api.POST("/conversions", conversionHandler.Create, requireAuth)
	api.GET("/conversions", conversionHandler.List, requireAuth)
	api.GET("/conversions/export", conversionHandler.Export, requireAuth)
	api.PUT("/conversions/:id/approve", conversionHandler.Approve, requireAuth, companyOnly)
	api.PUT("/conversions/:id/reject", conversionHandler.Reject, requireAuth, companyOnly)

	// Statistics
	api.GET("/stats/partner", statsHandler.Partner, requireAuth, partnerOnly)
	api.GET("/stats/company", statsHandler.Company, requireAuth, companyOnly)

	// Payouts
	api.POST("/payouts", payoutHandler.Create, requireAuth, partnerOnly)
	api.GET("/payouts", payoutHandler.List, requireAuth, partnerOnly)

	return s
}

// Echo exposes the underlying echo app
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the rate limiters
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	return s.echo.Shutdown(ctx)
}

// Close releases background resources without touching the listener
func (s *Server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
}
