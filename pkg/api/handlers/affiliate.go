package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/labstack/echo/v4"
)

// AffiliateHandler handles tracking links and click tracking
type AffiliateHandler struct {
	affiliate *affiliate.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewAffiliateHandler creates a new affiliate handler
func NewAffiliateHandler(affiliateService *affiliate.Service, m *metrics.Metrics) *AffiliateHandler {
	return &AffiliateHandler{
		affiliate: affiliateService,
		metrics:   m,
		validator: errors.NewValidator(),
	}
}

// CreateLink returns the partner's link to an offer. 201 when the link was
// created by this call, 200 when it already existed.
func (h *AffiliateHandler) CreateLink(c echo.Context) error {
	var req models.CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	link, created, err := h.affiliate.CreateLink(ctx, custommiddleware.CurrentAccount(c).ID, req.OfferID)
	if err != nil {
		return errors.Respond(c, err)
	}

	if !created {
		return c.JSON(http.StatusOK, models.LinkResponse{
			Message: "Link already exists",
			Link:    link,
		})
	}

	h.metrics.RecordLinkCreated()

	return c.JSON(http.StatusCreated, models.LinkResponse{
		Message: "Affiliate link created successfully",
		Link:    link,
	})
}

// ListLinks returns the caller's tracking links
func (h *AffiliateHandler) ListLinks(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	links, err := h.affiliate.ListLinks(ctx, custommiddleware.CurrentAccount(c).ID)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, links)
}

// Track records a visit and redirects to the offer's product page
func (h *AffiliateHandler) Track(c echo.Context) error {
	req := c.Request()
	query := req.URL.Query()

	data := models.ClickData{
		IPAddress:   c.RealIP(),
		UserAgent:   req.UserAgent(),
		Referrer:    req.Referer(),
		UTMSource:   query.Get("utm_source"),
		UTMMedium:   query.Get("utm_medium"),
		UTMCampaign: query.Get("utm_campaign"),
	}

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	target, err := h.affiliate.TrackClick(ctx, c.Param("code"), data)
	if err != nil {
		return errors.Respond(c, err)
	}

	h.metrics.RecordClick()

	return c.Redirect(http.StatusFound, target)
}
