package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/api/errors"
	custommiddleware "github.com/jordanlanch/affiliatebridge/pkg/middleware"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// OfferHandler handles the offer catalog endpoints
type OfferHandler struct {
	offers    *offers.Service
	validator *validator.Validate
}

// NewOfferHandler creates a new offer handler
func NewOfferHandler(offerService *offers.Service) *OfferHandler {
	return &OfferHandler{
		offers:    offerService,
		validator: errors.NewValidator(),
	}
}

// List returns all active offers, newest first
func (h *OfferHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.offers.ListActive(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, offers.Responses(list))
}

// Get returns a single offer
func (h *OfferHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errors.NotFoundError(c, "Offer")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	offer, err := h.offers.Get(ctx, id)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, offers.Response(offer))
}

// Create lists a new offer for the authenticated company
func (h *OfferHandler) Create(c echo.Context) error {
	var req models.CreateOfferRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	in := offers.CreateInput{
		Title:             req.Title,
		Description:       req.Description,
		ProductURL:        req.ProductURL,
		ImageURL:          req.ImageURL,
		Price:             decimal.NewFromFloat(*req.Price),
		CommissionPercent: decimal.NewFromFloat(*req.CommissionPercent),
		PlatformPercent:   optionalDecimal(req.PlatformPercent),
		Category:          req.Category,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	offer, err := h.offers.Create(ctx, custommiddleware.CurrentAccount(c).ID, in)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusCreated, models.OfferMessageResponse{
		Message: "Offer created successfully",
		Offer:   offers.Response(offer),
	})
}

// Update changes an offer owned by the authenticated company
func (h *OfferHandler) Update(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return errors.NotFoundError(c, "Offer")
	}

	var req models.UpdateOfferRequest
	if err := c.Bind(&req); err != nil {
		return errors.BindError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return errors.ValidationError(c, err)
	}

	in := offers.UpdateInput{
		Title:             req.Title,
		Description:       req.Description,
		ProductURL:        req.ProductURL,
		ImageURL:          req.ImageURL,
		Price:             optionalDecimal(req.Price),
		CommissionPercent: optionalDecimal(req.CommissionPercent),
		PlatformPercent:   optionalDecimal(req.PlatformPercent),
		Category:          req.Category,
		IsActive:          req.IsActive,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	offer, err := h.offers.Update(ctx, custommiddleware.CurrentAccount(c).ID, id, in)
	if err != nil {
		return errors.Respond(c, err)
	}

	return c.JSON(http.StatusOK, models.OfferMessageResponse{
		Message: "Offer updated successfully",
		Offer:   offers.Response(offer),
	})
}

// pathID parses the :id route parameter
func pathID(c echo.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func optionalDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
