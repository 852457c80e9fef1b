package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/labstack/echo/v4"
)

const (
	contextKeyAccount = "account"
	contextKeyToken   = "token"
	contextKeyClaims  = "claims"
)

// AccountLoader resolves the account behind a validated token
type AccountLoader interface {
	GetByID(ctx context.Context, id int) (*models.Account, error)
}

// Authenticate requires a valid bearer token. The token, its claims and the
// loaded account are stored in the context. blacklist may be nil when Redis
// is not configured.
func Authenticate(tokens *auth.TokenManager, blacklist *auth.TokenBlacklist, accounts AccountLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apierrors.UnauthorizedError(c, "missing_token", "Authorization header is required")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				return apierrors.UnauthorizedError(c, "invalid_token", "Authorization header must be 'Bearer {token}'")
			}
			token := strings.TrimSpace(parts[1])

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := tokens.ValidateWithBlacklist(ctx, token, blacklist)
			if err != nil {
				if _, ok := domain.As(err); ok {
					return apierrors.Respond(c, err)
				}
				return apierrors.InternalError(c, err)
			}

			account, err := accounts.GetByID(ctx, claims.AccountID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return apierrors.Respond(c, domain.ErrUnknownAccount)
				}
				return apierrors.InternalError(c, err)
			}
			if !account.IsActive {
				return apierrors.Respond(c, domain.ErrUnknownAccount)
			}

			c.Set(contextKeyToken, token)
			c.Set(contextKeyClaims, claims)
			c.Set(contextKeyAccount, account)

			return next(c)
		}
	}
}

// RequireRole rejects authenticated accounts whose role differs from role.
// It must run after Authenticate.
func RequireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := CurrentAccount(c)
			if account == nil {
				return apierrors.UnauthorizedError(c, "missing_token", "Authentication required")
			}
			if account.Role != role {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "forbidden",
					Message: "Only " + string(role) + " accounts can access this resource",
				})
			}
			return next(c)
		}
	}
}

// CurrentAccount returns the account stored by Authenticate, or nil
func CurrentAccount(c echo.Context) *models.Account {
	account, _ := c.Get(contextKeyAccount).(*models.Account)
	return account
}

// Token returns the raw bearer token stored by Authenticate
func Token(c echo.Context) string {
	token, _ := c.Get(contextKeyToken).(string)
	return token
}

// Claims returns the validated claims stored by Authenticate
func Claims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(contextKeyClaims).(*auth.Claims)
	return claims
}
