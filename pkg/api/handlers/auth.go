package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/accounts"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/auth"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/logger"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/labstack/echo/v4"
)

const requestTimeout = 5 * time.Second

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	accounts  *accounts.Service
	tokens    *auth.TokenManager
	blacklist *auth.TokenBlacklist
	metrics   *metrics.Metrics
	log       logger.Logger
	validator *validator.Validate
}

// NewAuthHandler creates a new auth handler. blacklist may be nil when Redis
// is not configured; logout then cannot revoke tokens.
func NewAuthHandler(accountService *accounts.Service, tokens *auth.TokenManager, blacklist *auth.TokenBlacklist, m *metrics.Metrics, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &AuthHandler{
		accounts:  accountService,
		tokens:    tokens,
		blacklist: blacklist,
		metrics:   m,
		log:       log,
		validator: errors.NewValidator(),
	}
}

// Register creates a company or partner account
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	role, err := models.ParseRole(req.UserType)
	if err != nil {
		return errors.Respond(c, domain.ErrInvalidRole)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.accounts.Register(ctx, accounts.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		FullName:    req.FullName,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
	})
	if err != nil {
		return errors.Respond(c, err)
	}

	h.metrics.RecordUserRegistered(string(acc.Role))
	h.log.Info("account registered", "account_id", acc.ID, "role", acc.Role)

	return c.JSON(http.StatusCreated, models.RegisterResponse{
		Message: "User registered successfully",
		User:    acc,
	})
}

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLoginAttempt(false)
		return errors.Respond(c, err)
	}

	token, err := h.tokens.Issue(acc)
	if err != nil {
		return errors.InternalError(c, err)
	}

	h.metrics.RecordLoginAttempt(true)

	return c.JSON(http.StatusOK, models.AuthResponse{
		Token: token,
		User:  acc,
	})
}

// Logout revokes the presented token until it would have expired
func (h *AuthHandler) Logout(c echo.Context) error {
	token := custommiddleware.Token(c)
	claims := custommiddleware.Claims(c)

	if h.blacklist == nil {
		h.log.Warn("logout without token blacklist", "account_id", claims.AccountID)
		return c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.blacklist.Add(ctx, token, h.tokens.Remaining(claims)); err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// Me returns the authenticated account
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, custommiddleware.CurrentAccount(c))
}
