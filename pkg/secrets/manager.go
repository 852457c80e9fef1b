// Package secrets loads credentials from the environment or AWS Secrets
// Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
)

// ErrNotFound is returned when a secret does not exist in the backend
var ErrNotFound = errors.New("secret not found")

// Manager defines the interface for secrets management
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)
}

// Config holds secrets manager configuration
type Config struct {
	Backend       string        // "env" or "aws-secrets-manager"
	AWSRegion     string        // AWS region for Secrets Manager
	Prefix        string        // prepended to every key, e.g. "affiliatebridge/prod/"
	CacheDuration time.Duration // How long to cache secrets
}

// NewManager creates a new secrets manager based on configuration
func NewManager(cfg Config) (Manager, error) {
	if cfg.CacheDuration <= 0 {
		cfg.CacheDuration = 5 * time.Minute
	}

	switch cfg.Backend {
	case "aws-secrets-manager", "aws":
		log.Printf("🔐 Initializing AWS Secrets Manager (region: %s)", cfg.AWSRegion)
		sess, err := session.NewSession(&aws.Config{Region: aws.String(cfg.AWSRegion)})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		return NewAWSManager(secretsmanager.New(sess), cfg), nil
	case "", "env", "environment":
		return NewEnvironmentManager(), nil
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
}

// EnvironmentManager loads secrets from environment variables
type EnvironmentManager struct {
	lookup func(string) (string, bool)
}

// NewEnvironmentManager creates a new environment-based secrets manager
func NewEnvironmentManager() *EnvironmentManager {
	return &EnvironmentManager{lookup: os.LookupEnv}
}

// GetSecret retrieves a secret from environment variables
func (m *EnvironmentManager) GetSecret(ctx context.Context, key string) (string, error) {
	value, ok := m.lookup(key)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}

// secretGetter is the part of the Secrets Manager client the manager uses
type secretGetter interface {
	GetSecretValueWithContext(ctx aws.Context, input *secretsmanager.GetSecretValueInput, opts ...request.Option) (*secretsmanager.GetSecretValueOutput, error)
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// AWSManager loads secrets from AWS Secrets Manager and caches them
type AWSManager struct {
	client secretGetter
	config Config
	now    func() time.Time

	cacheMu sync.RWMutex
	cache   map[string]cachedSecret
}

// NewAWSManager wraps a Secrets Manager client
func NewAWSManager(client secretGetter, cfg Config) *AWSManager {
	return &AWSManager{
		client: client,
		config: cfg,
		now:    time.Now,
		cache:  make(map[string]cachedSecret),
	}
}

// GetSecret retrieves Prefix+key from AWS Secrets Manager
func (m *AWSManager) GetSecret(ctx context.Context, key string) (string, error) {
	id := m.config.Prefix + key

	if value, ok := m.cached(id); ok {
		return value, nil
	}

	result, err := m.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return "", fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("failed to get secret %s: %w", id, err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", id)
	}

	m.cacheMu.Lock()
	m.cache[id] = cachedSecret{value: *result.SecretString, expiresAt: m.now().Add(m.config.CacheDuration)}
	m.cacheMu.Unlock()

	return *result.SecretString, nil
}

func (m *AWSManager) cached(id string) (string, bool) {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	c, ok := m.cache[id]
	if !ok || m.now().After(c.expiresAt) {
		return "", false
	}
	return c.value, true
}
