package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/affiliate"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	"github.com/jordanlanch/affiliatebridge/pkg/export"
	"github.com/jordanlanch/affiliatebridge/pkg/metrics"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// ConversionHandler handles sale attribution and review
type ConversionHandler struct {
	affiliate *affiliate.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(affiliateService *affiliate.Service, m *metrics.Metrics) *ConversionHandler {
	return &ConversionHandler{
		affiliate: affiliateService,
		metrics:   m,
		validator: errors.NewValidator(),
	}
}

// Create records a sale against a tracking link
func (h *ConversionHandler) Create(c echo.Context) error {
	var req models.CreateConversionRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	conv, err := h.affiliate.RecordConversion(ctx, req.AffiliateLinkID, decimal.NewFromFloat(*req.SaleAmount), req.OrderID)
	if err != nil {
		return errors.Respond(c, err)
	}

	h.metrics.RecordConversion()

	return c.JSON(http.StatusCreated, models.ConversionResponse{
		Message:    "Conversion recorded successfully",
		Conversion: conv,
	})
}

// List returns the conversions visible to the caller
func (h *ConversionHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.affiliate.ListConversions(ctx, custommiddleware.CurrentAccount(c))
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, list)
}

// Approve accepts a pending sale and credits the partner
func (h *ConversionHandler) Approve(c echo.Context) error {
	return h.review(c, models.ConversionApproved)
}

// Reject declines a pending sale
func (h *ConversionHandler) Reject(c echo.Context) error {
	return h.review(c, models.ConversionRejected)
}

func (h *ConversionHandler) review(c echo.Context, to models.ConversionStatus) error {
	id, ok := pathID(c)
	if !ok {
		return errors.NotFoundError(c, "Conversion")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	companyID := custommiddleware.CurrentAccount(c).ID

	var (
		conv *models.Conversion
		err  error
	)
	if to == models.ConversionApproved {
		conv, err = h.affiliate.ApproveConversion(ctx, companyID, id)
	} else {
		conv, err = h.affiliate.RejectConversion(ctx, companyID, id)
	}
	if err != nil {
		return errors.Respond(c, err)
	}

	h.metrics.RecordConversionReviewed(string(to))

	return c.JSON(http.StatusOK, models.ConversionResponse{
		Message:    "Conversion " + string(to),
		Conversion: conv,
	})
}

// Export downloads the caller's conversions as XLSX (default) or CSV
func (h *ConversionHandler) Export(c echo.Context) error {
	format, err := export.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return errors.Respond(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	list, err := h.affiliate.ListConversions(ctx, custommiddleware.CurrentAccount(c))
	if err != nil {
		return errors.InternalError(c, err)
	}

	// Build in memory so a write failure can still become a JSON error
	var buf bytes.Buffer
	if err := export.WriteConversions(&buf, format, list); err != nil {
		return errors.InternalError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+format.Filename(time.Now())+`"`)
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}
