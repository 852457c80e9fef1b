package secrets

import (
	"context"
	"errors"

	"github.com/jordanlanch/affiliatebridge/config"
)

// Apply overrides credential fields of cfg with the values m holds. Secrets
// the backend does not have leave the configured value untouched.
func Apply(ctx context.Context, m Manager, cfg *config.Config) error {
	fields := []struct {
		key string
		dst *string
	}{
		{"JWT_SECRET", &cfg.JWTSecret},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"REDIS_URL", &cfg.RedisURL},
		{"SENDGRID_API_KEY", &cfg.SendGridAPIKey},
		{"SENTRY_DSN", &cfg.SentryDSN},
	}

	for _, f := range fields {
		value, err := m.GetSecret(ctx, f.key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		*f.dst = value
	}
	return nil
}
