package errors

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/labstack/echo/v4"
)

const genericValidationMessage = "Invalid request data. Please check your input and try again."

// NewValidator returns a validator that reports fields by their JSON name
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Respond writes err as a JSON error. Domain errors keep their reason and
// message; anything else becomes a generic 500.
func Respond(c echo.Context, err error) error {
	de, ok := domain.As(err)
	if !ok || de.Code == domain.ErrCodeInternal {
		return InternalError(c, err)
	}

	return c.JSON(StatusFor(de), models.ErrorResponse{
		Error:   de.Reason,
		Message: de.Message,
	})
}

// StatusFor maps a domain error class to its HTTP status. Conflicts are
// client errors that the caller can fix, so they are reported as 400.
func StatusFor(de *domain.DomainError) int {
	switch de.Code {
	case domain.ErrCodeValidation, domain.ErrCodeConflict:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// BindError reports a body that could not be decoded
func BindError(c echo.Context, err error) error {
	log.Printf("[BIND ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

// ValidationError reports failed struct validation. Validator errors name the
// first offending field; other errors get a generic message.
func ValidationError(c echo.Context, err error) error {
	// Log the actual error for debugging
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	message := genericValidationMessage
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		message = describe(verrs[0])
	}

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: message,
	})
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// InternalError returns a generic internal server error and reports the
// real one to Sentry when it is configured
func InternalError(c echo.Context, err error) error {
	// Log the actual error for debugging
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a 401 with the given reason code
func UnauthorizedError(c echo.Context, reason, message string) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   reason,
		Message: message,
	})
}

// ForbiddenError returns a generic forbidden error
func ForbiddenError(c echo.Context, message string) error {
	if message == "" {
		message = "You do not have permission to access this resource."
	}
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: message,
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: fmt.Sprintf("%s not found", resource),
	})
}

// HTTPErrorHandler renders errors returned from handlers and middleware in
// the API error format
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			message = m
		}
		reason := strings.ToLower(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, models.ErrorResponse{Error: reason, Message: message})
		return
	}

	_ = Respond(c, err)
}
