package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jordanlanch/affiliatebridge/config"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/analytics"
	"github.com/jordanlanch/affiliatebridge/pkg/api"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/cache"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/email"
	"github.com/jordanlanch/affiliatebridge/pkg/jobs"
	"github.com/jordanlanch/affiliatebridge/pkg/logger"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/jordanlanch/affiliatebridge/pkg/passwordreset"
	"github.com/jordanlanch/affiliatebridge/pkg/payouts"
	"github.com/jordanlanch/affiliatebridge/pkg/secrets"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Credentials may live outside the environment
	secretManager, err := secrets.NewManager(secrets.Config{
		Backend:   cfg.SecretsBackend,
		AWSRegion: cfg.AWSRegion,
		Prefix:    cfg.SecretsPrefix,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize secrets manager: %v", err)
	}
	secretsCtx, cancelSecrets := context.WithTimeout(context.Background(), 10*time.Second)
	err = secrets.Apply(secretsCtx, secretManager, cfg)
	cancelSecrets()
	if err != nil {
		log.Fatalf("❌ Failed to load secrets: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	appLog := logger.New(cfg.LogLevel)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
			BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
				// Never ship credentials
				if event.Request != nil {
					delete(event.Request.Headers, "Authorization")
					event.Request.Cookies = ""
				}
				return event
			},
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	poolCfg := database.DefaultPoolConfig()
	if cfg.DatabaseDriver == "sqlite3" {
		poolCfg = database.SQLitePoolConfig()
	}
	sslCfg := &database.SSLConfig{
		Mode:         cfg.DBSSLMode,
		CertPath:     cfg.DBSSLCertPath,
		KeyPath:      cfg.DBSSLKeyPath,
		RootCertPath: cfg.DBSSLRootCertPath,
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewClient(startupCtx, cfg.DatabaseDriver, cfg.DatabaseURL, poolCfg, sslCfg)
	cancelStartup()
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it logout cannot revoke tokens
	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Printf("✅ Redis connected (token revocation enabled)")
	} else {
		log.Printf("ℹ️  Redis disabled (REDIS_URL not set, logout will not revoke tokens)")
	}

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New(prometheus.DefaultRegisterer)
	log.Printf("✅ Prometheus metrics initialized")

	// Domain services
	accountService := accounts.NewService(db, cfg.DefaultPhoneRegion)
	offerService := offers.NewService(db)
	affiliateService := affiliate.NewService(db, accountService, affiliate.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		FrontendURL:   cfg.FrontendURL,
	})
	payoutService := payouts.NewService(db, accountService, appLog.With("component", "payouts"))
	analyticsService := analytics.NewService(db, accountService)

	emailService := email.NewService(cfg.EmailFrom, cfg.EmailFromName, cfg.FrontendURL, cfg.SendGridAPIKey)
	if emailService.Enabled() {
		log.Printf("✅ Email delivery via SendGrid")
	} else {
		log.Printf("ℹ️  Email delivery disabled (messages are logged to console)")
	}
	resetService := passwordreset.NewService(db, accountService, emailService, passwordreset.Config{
		TTL:         time.Duration(cfg.PasswordResetTTLHours) * time.Hour,
		ExposeLinks: cfg.ExposeResetLinks,
	}, appLog.With("component", "password_reset"))

	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpirationHours)

	// Initialize cron manager for payout settlement
	schedule := ""
	if cfg.PayoutSettlementEnabled {
		schedule = cfg.PayoutSettlementSchedule
	}
	cronManager := jobs.NewCronManager(payoutService, prometheusMetrics, db.Stats, log.Default())
	if err := cronManager.SetupJobs(schedule); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()
	log.Printf("✅ Cron jobs started successfully")

	server := api.NewServer(api.Deps{
		Config:        cfg,
		DB:            db,
		Cache:         redisClient,
		Accounts:      accountService,
		Offers:        offerService,
		Affiliate:     affiliateService,
		Payouts:       payoutService,
		Analytics:     analyticsService,
		PasswordReset: resetService,
		Tokens:        tokenManager,
		Metrics:       prometheusMetrics,
		Gatherer:      prometheus.DefaultGatherer,
		Logger:        appLog,
	})

	// Start server
	address := cfg.APIHost + ":" + cfg.APIPort
	log.Printf("🚀 Affiliate Bridge API starting on %s", address)
	log.Printf("🗄️  Database driver: %s", cfg.DatabaseDriver)
	log.Printf("🔐 JWT expiration: %d hours", cfg.JWTExpirationHours)
	log.Printf("🌍 CORS: %v", cfg.CORSAllowedOrigins)
	log.Printf("🛡️  Rate limiting on auth and tracking: %d req/min (burst: %d)", cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	if schedule != "" {
		log.Printf("⏰ Payout settlement: %s", schedule)
	}

	go func() {
		if err := server.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Stop cron jobs
	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited gracefully")
}
