package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/recipecost/internal/costing"
	obstracing "github.com/smallbiznis/recipecost/internal/observability/tracing"
	productdomain "github.com/smallbiznis/recipecost/internal/product/domain"
	purchasedomain "github.com/smallbiznis/recipecost/internal/purchase/domain"
	recipedomain "github.com/smallbiznis/recipecost/internal/recipe/domain"
	reportdomain "github.com/smallbiznis/recipecost/internal/report/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Kind      string            `json:"kind,omitempty"`
	LineIndex *int              `json:"line_index,omitempty"`
	ProductID string            `json:"product_id,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound            = errors.New("not_found")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrMissingOrganization = errors.New("missing_organization")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if payload.Type == "costing_error" {
			c.Set(obstracing.CostingErrorKindKey, payload.Kind)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var itemErr *purchasedomain.ItemError
	if errors.As(err, &itemErr) {
		code := itemErr.Err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   fmt.Sprintf("items[%d].%s", itemErr.Index, validationErrorField(code)),
				Code:    code,
				Message: validationErrorMessage(code),
			}},
		}
	}

	if kind := costing.Kind(err); kind != "" {
		payload := errorPayload{
			Type:    "costing_error",
			Message: err.Error(),
			Kind:    kind,
		}
		var lineErr *costing.LineError
		if errors.As(err, &lineErr) {
			idx := lineErr.Index
			payload.LineIndex = &idx
			payload.ProductID = lineErr.ProductID
			payload.Errors = []ValidationError{{
				Field:   fmt.Sprintf("ingredients[%d]", idx),
				Code:    kind,
				Message: lineErr.Err.Error(),
			}}
		}
		return http.StatusUnprocessableEntity, payload
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, productdomain.ErrProductInUse),
		errors.Is(err, productdomain.ErrCodeTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog mirrors mapError for the request logger.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Kind
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if code == "" {
		code = payload.Type
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrMissingOrganization):
		return true
	case isProductValidationError(err),
		isRecipeValidationError(err),
		isPurchaseValidationError(err),
		isOrganizationValidationError(err),
		errors.Is(err, reportdomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, recipedomain.ErrNotFound),
		errors.Is(err, purchasedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isRecipeValidationError(err error) bool {
	switch {
	case errors.Is(err, recipedomain.ErrInvalidOrganization),
		errors.Is(err, recipedomain.ErrInvalidID),
		errors.Is(err, recipedomain.ErrInvalidName),
		errors.Is(err, recipedomain.ErrInvalidPortionCount),
		errors.Is(err, recipedomain.ErrInvalidMargin),
		errors.Is(err, recipedomain.ErrInvalidSalePrice),
		errors.Is(err, recipedomain.ErrInvalidPrepTime),
		errors.Is(err, recipedomain.ErrNoIngredients),
		errors.Is(err, recipedomain.ErrInvalidClassification),
		errors.Is(err, recipedomain.ErrInvalidSort):
		return true
	default:
		return false
	}
}

func isPurchaseValidationError(err error) bool {
	switch {
	case errors.Is(err, purchasedomain.ErrInvalidOrganization),
		errors.Is(err, purchasedomain.ErrInvalidID),
		errors.Is(err, purchasedomain.ErrInvalidSupplier),
		errors.Is(err, purchasedomain.ErrInvalidDate),
		errors.Is(err, purchasedomain.ErrInvalidDateRange),
		errors.Is(err, purchasedomain.ErrNoItems),
		errors.Is(err, purchasedomain.ErrInvalidDiscount),
		errors.Is(err, purchasedomain.ErrInvalidTaxes):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrMissingOrganization):
		return "invalid_organization"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_organization":
		return "the X-Org-ID header must carry an organization id"
	case "invalid_restaurant_name":
		return "restaurant_name must have between 2 and 100 characters"
	case "invalid_target_cmv":
		return "target_cmv must be between 5 and 80"
	default:
		return "invalid value"
	}
}
