package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/payouts"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// PayoutHandler handles partner withdrawals
type PayoutHandler struct {
	payouts   *payouts.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(payoutService *payouts.Service, m *metrics.Metrics) *PayoutHandler {
	return &PayoutHandler{
		payouts:   payoutService,
		metrics:   m,
		validator: errors.NewValidator(),
	}
}

// Create requests a withdrawal of part or all of the balance. The balance is
// only debited when the payout settles.
func (h *PayoutHandler) Create(c echo.Context) error {
	var req models.CreatePayoutRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	payout, err := h.payouts.Request(ctx, custommiddleware.CurrentAccount(c).ID,
		decimal.NewFromFloat(*req.Amount), req.PaymentMethod, req.PaymentDetails)
	if err != nil {
		return errors.Respond(c, err)
	}

	h.metrics.RecordPayoutRequested()

	return c.JSON(http.StatusCreated, models.PayoutResponse{
		Message: "Payout request created successfully",
		Payout:  payout,
	})
}

// List returns the partner's payouts, newest first
func (h *PayoutHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.payouts.List(ctx, custommiddleware.CurrentAccount(c).ID)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, list)
}
