package handlers

import (
	"context"
	"net/http"

	"github.com/jordanlanch/affiliatebridge/pkg/analytics"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/labstack/echo/v4"
)

// StatsHandler serves dashboard statistics
type StatsHandler struct {
	analytics *analytics.Service
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(analyticsService *analytics.Service) *StatsHandler {
	return &StatsHandler{analytics: analyticsService}
}

// Partner returns the authenticated partner's statistics
func (h *StatsHandler) Partner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	stats, err := h.analytics.PartnerStats(ctx, custommiddleware.CurrentAccount(c).ID)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

// Company returns statistics across the authenticated company's offers
func (h *StatsHandler) Company(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	stats, err := h.analytics.CompanyStats(ctx, custommiddleware.CurrentAccount(c).ID)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}
