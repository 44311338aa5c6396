package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/smallbiznis/affiliate/internal/affiliate/domain"
	auditdomain "github.com/smallbiznis/affiliate/internal/audit/domain"
	"github.com/smallbiznis/affiliate/internal/commission"
	conversiondomain "github.com/smallbiznis/affiliate/internal/conversion/domain"
	"github.com/smallbiznis/affiliate/internal/export"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	"github.com/smallbiznis/affiliate/internal/lock"
	payoutdomain "github.com/smallbiznis/affiliate/internal/payout/domain"
	settingsdomain "github.com/smallbiznis/affiliate/internal/settings/domain"
	statsdomain "github.com/smallbiznis/affiliate/internal/stats/domain"
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
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, lock.ErrTimeout):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code attached to the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if payload.Type == "conflict" || payload.Type == "not_found" {
		code = err.Error()
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

var validationErrors = []error{
	ErrInvalidRequest,

	affiliatedomain.ErrInvalidOrganization,
	affiliatedomain.ErrInvalidID,
	affiliatedomain.ErrInvalidName,
	affiliatedomain.ErrInvalidEmail,
	affiliatedomain.ErrEmailTaken,
	affiliatedomain.ErrInvalidReferralCode,
	affiliatedomain.ErrInvalidCommission,
	affiliatedomain.ErrInvalidStatus,

	linkdomain.ErrInvalidOrganization,
	linkdomain.ErrInvalidID,
	linkdomain.ErrInvalidAffiliate,
	linkdomain.ErrInvalidSlug,
	linkdomain.ErrInvalidDestination,

	conversiondomain.ErrInvalidOrganization,
	conversiondomain.ErrInvalidID,
	conversiondomain.ErrInvalidAffiliate,
	conversiondomain.ErrInvalidLink,
	conversiondomain.ErrInvalidOrderID,
	conversiondomain.ErrInvalidOrderAmount,
	conversiondomain.ErrInvalidReason,
	conversiondomain.ErrInvalidStatus,

	payoutdomain.ErrInvalidOrganization,
	payoutdomain.ErrInvalidID,
	payoutdomain.ErrInvalidAffiliate,
	payoutdomain.ErrInvalidAmount,
	payoutdomain.ErrInvalidMethod,
	payoutdomain.ErrBelowMinPayout,
	payoutdomain.ErrInvalidStatus,

	settingsdomain.ErrInvalidOrganization,
	settingsdomain.ErrInvalidCommission,
	settingsdomain.ErrInvalidCookieDays,
	settingsdomain.ErrInvalidMinPayout,
	settingsdomain.ErrInvalidPayoutDay,
	settingsdomain.ErrInvalidTermsURL,

	statsdomain.ErrInvalidOrganization,
	auditdomain.ErrInvalidOrganization,
	auditdomain.ErrInvalidAction,

	commission.ErrInvalidAmount,
	commission.ErrInvalidRate,
	export.ErrTooManyRows,
}

var conflictErrors = []error{
	ErrConflict,
	affiliatedomain.ErrReferralCodeTaken,
	affiliatedomain.ErrInvalidTransition,
	affiliatedomain.ErrInactive,
	linkdomain.ErrSlugTaken,
	linkdomain.ErrAffiliateInactive,
	conversiondomain.ErrDuplicateOrder,
	conversiondomain.ErrNotPending,
	payoutdomain.ErrInsufficientBalance,
	payoutdomain.ErrAffiliateRejected,
	payoutdomain.ErrInvalidTransition,
	payoutdomain.ErrAlreadyPaid,
}

var notFoundErrors = []error{
	ErrNotFound,
	affiliatedomain.ErrNotFound,
	linkdomain.ErrNotFound,
	conversiondomain.ErrNotFound,
	payoutdomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isValidationError(err error) bool {
	return matchesAny(err, validationErrors)
}

func isConflictError(err error) bool {
	return matchesAny(err, conflictErrors)
}

func isNotFoundError(err error) bool {
	return matchesAny(err, notFoundErrors)
}

func conflictMessage(err error) string {
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "conflict"
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid_request"
}

var validationFields = map[string]string{
	"email_taken":             "email",
	"below_min_payout":        "amount",
	"invalid_commission_rate": "commissionRate",
	"invalid_cookie_days":     "cookieDays",
	"invalid_min_payout":      "minPayout",
	"invalid_payout_day":      "payoutDay",
	"invalid_terms_url":       "termsUrl",
	"invalid_referral_code":   "referralCode",
	"invalid_affiliate_id":    "affiliateId",
	"invalid_link_id":         "linkId",
	"invalid_order_id":        "orderId",
	"invalid_order_amount":    "orderAmount",
	"invalid_destination_url": "destinationUrl",
	"export_too_large":        "status",
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
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
	case "email_taken":
		return "email already registered"
	case "below_min_payout":
		return "amount is below the program minimum payout"
	default:
		return "invalid value"
	}
}
