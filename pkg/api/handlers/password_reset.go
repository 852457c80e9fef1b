package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/passwordreset"
	"github.com/labstack/echo/v4"
)

const resetRequestedMessage = "If an account with that email exists, a password reset link has been sent."

// PasswordResetHandler handles the forgot-password flow
type PasswordResetHandler struct {
	resets    *passwordreset.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewPasswordResetHandler creates a new password reset handler
func NewPasswordResetHandler(resets *passwordreset.Service, m *metrics.Metrics) *PasswordResetHandler {
	return &PasswordResetHandler{
		resets:    resets,
		metrics:   m,
		validator: errors.NewValidator(),
	}
}

// Request starts a reset. The response is identical whether or not the email
// belongs to an account.
func (h *PasswordResetHandler) Request(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	result, err := h.resets.Request(ctx, req.Email)
	if err != nil {
		return errors.InternalError(c, err)
	}

	h.metrics.RecordPasswordReset("requested")

	return c.JSON(http.StatusOK, models.ForgotPasswordResponse{
		Message:  resetRequestedMessage,
		ResetURL: result.ResetURL,
	})
}

// Verify checks a token before the frontend shows the new-password form
func (h *PasswordResetHandler) Verify(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	state, acc, err := h.resets.Verify(ctx, c.Param("token"))
	if err != nil {
		return errors.Respond(c, err)
	}
	if err := passwordreset.StateError(state); err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, models.VerifyResetResponse{
		Valid: true,
		Email: acc.Email,
	})
}

// Confirm redeems a token and sets the new password
func (h *PasswordResetHandler) Confirm(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.resets.Confirm(ctx, req.Token, req.NewPassword); err != nil {
		return errors.Respond(c, err)
	}

	h.metrics.RecordPasswordReset("confirmed")

	return c.JSON(http.StatusOK, models.MessageResponse{
		Message: "Password has been reset successfully",
	})
}
