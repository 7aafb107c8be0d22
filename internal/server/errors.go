package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appconfigdomain "github.com/smallbiznis/sitebuilder/internal/appconfig/domain"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/authorization"
	catalogdomain "github.com/smallbiznis/sitebuilder/internal/catalog/domain"
	gatewaydomain "github.com/smallbiznis/sitebuilder/internal/gateway/domain"
	orderdomain "github.com/smallbiznis/sitebuilder/internal/order/domain"
	paymentdomain "github.com/smallbiznis/sitebuilder/internal/payment/domain"
	"github.com/smallbiznis/sitebuilder/internal/providers/storage"
	tenantdomain "github.com/smallbiznis/sitebuilder/internal/tenant/domain"
	trafficdomain "github.com/smallbiznis/sitebuilder/internal/traffic/domain"
	"github.com/smallbiznis/sitebuilder/pkg/db"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// contextAdminKey marks requests on admin routes, whose internal errors carry their message.
const contextAdminKey = "admin_route"

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
		if status == http.StatusInternalServerError && payload.Type == "internal_error" && c.GetBool(contextAdminKey) {
			payload.Message = lastErr.Err.Error()
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

	var fieldErr *orderdomain.FieldError
	if errors.As(err, &fieldErr) {
		code := fieldErr.Err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   fieldErr.Field,
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
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
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrExpiredToken),
		errors.Is(err, gatewaydomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case isConfigurationError(err):
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: configurationMessage(err),
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, storage.ErrNotAvailable):
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

// classifyErrorForLog returns the error type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
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
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isOrderValidationError(err),
		isPaymentValidationError(err),
		isTenantValidationError(err),
		isCatalogValidationError(err),
		isGatewayValidationError(err),
		isSettingsValidationError(err),
		isAuthValidationError(err),
		errors.Is(err, trafficdomain.ErrInvalidRange),
		errors.Is(err, storage.ErrInvalidKey):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrPackageNotFound),
		errors.Is(err, orderdomain.ErrReceiptUnavailable),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrOrderNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrOrderNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, gatewaydomain.ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, tenantdomain.ErrSubdomainTaken),
		errors.Is(err, orderdomain.ErrOrderNumberExhausted),
		errors.Is(err, catalogdomain.ErrPackageInUse),
		errors.Is(err, catalogdomain.ErrDuplicateDomain),
		errors.Is(err, authdomain.ErrUserExists),
		db.IsDuplicateKeyErr(err):
		return true
	default:
		return false
	}
}

func isConfigurationError(err error) bool {
	switch {
	case errors.Is(err, gatewaydomain.ErrNotConfigured),
		errors.Is(err, gatewaydomain.ErrEncryptionKeyMissing),
		errors.Is(err, gatewaydomain.ErrWebhookUnsupported),
		errors.Is(err, appconfigdomain.ErrEmailNotActive):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, tenantdomain.ErrSubdomainTaken):
		return tenantdomain.ErrSubdomainTaken.Error()
	case errors.Is(err, orderdomain.ErrOrderNumberExhausted):
		return "could not allocate an order number"
	case errors.Is(err, catalogdomain.ErrPackageInUse):
		return "package is referenced by orders"
	case errors.Is(err, catalogdomain.ErrDuplicateDomain):
		return "domain extension already exists"
	case errors.Is(err, authdomain.ErrUserExists):
		return authdomain.ErrUserExists.Error()
	default:
		return "conflict"
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, orderdomain.ErrNotFound), errors.Is(err, paymentdomain.ErrOrderNotFound), errors.Is(err, tenantdomain.ErrOrderNotFound):
		return "order not found"
	case errors.Is(err, orderdomain.ErrPackageNotFound):
		return "package not found"
	case errors.Is(err, orderdomain.ErrReceiptUnavailable):
		return "no paid payment for this order"
	case errors.Is(err, paymentdomain.ErrNotFound):
		return "payment not found"
	case errors.Is(err, tenantdomain.ErrNotFound):
		return "tenant not found"
	default:
		return "not found"
	}
}

func configurationMessage(err error) string {
	switch {
	case errors.Is(err, gatewaydomain.ErrNotConfigured):
		return "payment gateway not configured"
	case errors.Is(err, gatewaydomain.ErrEncryptionKeyMissing):
		return "gateway encryption key missing"
	case errors.Is(err, gatewaydomain.ErrWebhookUnsupported):
		return "gateway does not accept webhooks"
	case errors.Is(err, appconfigdomain.ErrEmailNotActive):
		return "email not configured"
	default:
		return "configuration error"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "proof_too_large", "invalid_proof_type", "missing_proof_file":
		return "proof"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "required":
		return "is required"
	case "proof_too_large":
		return "proof file is too large"
	case "invalid_proof_type":
		return "proof must be an image"
	case "package_not_found":
		return "package not found"
	default:
		if strings.HasPrefix(code, "missing_") {
			return "is required"
		}
		return "invalid value"
	}
}

func isOrderValidationError(err error) bool {
	switch {
	case errors.Is(err, orderdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrRequired),
		errors.Is(err, orderdomain.ErrInvalidEmail),
		errors.Is(err, orderdomain.ErrInvalidPaymentType),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, orderdomain.ErrInvalidSubdomain),
		errors.Is(err, orderdomain.ErrProvisioningFailed):
		return true
	default:
		return false
	}
}

func isPaymentValidationError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrMissingGatewayRef),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrMissingOrder),
		errors.Is(err, paymentdomain.ErrMissingProof),
		errors.Is(err, paymentdomain.ErrInvalidProofType),
		errors.Is(err, paymentdomain.ErrProofTooLarge):
		return true
	default:
		return false
	}
}

func isTenantValidationError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrInvalidID),
		errors.Is(err, tenantdomain.ErrMissingSubdomain),
		errors.Is(err, tenantdomain.ErrInvalidSubdomain),
		errors.Is(err, tenantdomain.ErrInvalidDomain):
		return true
	default:
		return false
	}
}

func isCatalogValidationError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidTier),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, catalogdomain.ErrInvalidExtension):
		return true
	default:
		return false
	}
}

func isGatewayValidationError(err error) bool {
	switch {
	case errors.Is(err, gatewaydomain.ErrInvalidGateway),
		errors.Is(err, gatewaydomain.ErrInvalidConfig),
		errors.Is(err, gatewaydomain.ErrInvalidPayload),
		errors.Is(err, gatewaydomain.ErrInvalidRequest):
		return true
	default:
		return false
	}
}

func isSettingsValidationError(err error) bool {
	switch {
	case errors.Is(err, appconfigdomain.ErrInvalidAppName),
		errors.Is(err, appconfigdomain.ErrInvalidBaseDomain),
		errors.Is(err, appconfigdomain.ErrInvalidPublicURL),
		errors.Is(err, appconfigdomain.ErrInvalidSMTPPort),
		errors.Is(err, appconfigdomain.ErrInvalidEmail):
		return true
	default:
		return false
	}
}

func isAuthValidationError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, authdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}
