package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/textcraft/creditgate/internal/claim/domain"
	codedomain "github.com/textcraft/creditgate/internal/code/domain"
	gwdomain "github.com/textcraft/creditgate/internal/gateway/domain"
	generationdomain "github.com/textcraft/creditgate/internal/generation/domain"
	purchasedomain "github.com/textcraft/creditgate/internal/purchase/domain"
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
	// IsCodeError lets clients distinguish a rejected prepaid code from
	// other failures so they can clear the stored code.
	IsCodeError bool `json:"isCodeError,omitempty"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrInternal           = errors.New("internal_error")
)

// notFoundErr reroutes a domain error to a 404 without losing the original
// sentinel for classification.
type notFoundErr struct{ err error }

func (e notFoundErr) Error() string { return e.err.Error() }
func (e notFoundErr) Unwrap() error { return e.err }

func markNotFound(err error) error {
	return notFoundErr{err: err}
}

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
		c.AbortWithStatusJSON(status, errorResponse{
			Error:       payload,
			IsCodeError: isCodeError(lastErr.Err),
		})
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

	var nf notFoundErr
	if errors.As(err, &nf) {
		return http.StatusNotFound, errorPayload{
			Type:    nf.err.Error(),
			Message: errorMessage(nf.err),
		}
	}

	switch {
	case isCodeError(err),
		errors.Is(err, claimdomain.ErrAlreadyClaimed),
		errors.Is(err, claimdomain.ErrUnknownPackage),
		errors.Is(err, claimdomain.ErrInvalidPaymentID),
		errors.Is(err, purchasedomain.ErrUnknownPackage),
		errors.Is(err, purchasedomain.ErrInvalidPurchaseID),
		errors.Is(err, generationdomain.ErrEmptyGenerateRequest),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    sentinelType(err),
			Message: errorMessage(err),
		}
	case errors.Is(err, purchasedomain.ErrPurchaseNotFound),
		errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, gwdomain.ErrGateway),
		errors.Is(err, generationdomain.ErrUpstreamGeneration):
		return http.StatusBadGateway, errorPayload{
			Type:    sentinelType(err),
			Message: errorMessage(err),
		}
	case errors.Is(err, gwdomain.ErrGatewayNotConfigured),
		errors.Is(err, generationdomain.ErrGenerationNotConfigured),
		errors.Is(err, ErrServiceUnavailable):
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

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isCodeError(err error) bool {
	switch {
	case errors.Is(err, codedomain.ErrCodeNotFound),
		errors.Is(err, codedomain.ErrCodeExpired),
		errors.Is(err, codedomain.ErrCodeExhausted),
		errors.Is(err, codedomain.ErrInvalidCode):
		return true
	default:
		return false
	}
}

// sentinelType reduces an error chain to its outermost sentinel name for
// the response envelope.
func sentinelType(err error) string {
	for _, sentinel := range []error{
		codedomain.ErrCodeNotFound,
		codedomain.ErrCodeExpired,
		codedomain.ErrCodeExhausted,
		codedomain.ErrInvalidCode,
		claimdomain.ErrAlreadyClaimed,
		claimdomain.ErrUnknownPackage,
		claimdomain.ErrInvalidPaymentID,
		purchasedomain.ErrUnknownPackage,
		purchasedomain.ErrInvalidPurchaseID,
		generationdomain.ErrEmptyGenerateRequest,
		generationdomain.ErrUpstreamGeneration,
		gwdomain.ErrGateway,
		ErrInvalidRequest,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "invalid_request"
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, codedomain.ErrCodeNotFound):
		return "code not found"
	case errors.Is(err, codedomain.ErrCodeExpired):
		return "code has expired (30 days)"
	case errors.Is(err, codedomain.ErrCodeExhausted):
		return "code has no uses left"
	case errors.Is(err, codedomain.ErrInvalidCode):
		return "invalid code"
	case errors.Is(err, claimdomain.ErrAlreadyClaimed):
		return "payment already used to claim a code"
	case errors.Is(err, claimdomain.ErrUnknownPackage),
		errors.Is(err, purchasedomain.ErrUnknownPackage):
		return "unknown package"
	case errors.Is(err, claimdomain.ErrInvalidPaymentID):
		return "invalid payment id"
	case errors.Is(err, purchasedomain.ErrInvalidPurchaseID):
		return "invalid purchase id"
	case errors.Is(err, generationdomain.ErrEmptyGenerateRequest):
		return "request must include contents"
	case errors.Is(err, generationdomain.ErrUpstreamGeneration):
		return "generation provider error"
	case errors.Is(err, gwdomain.ErrGateway):
		return "payment gateway error"
	default:
		return "invalid request"
	}
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		return "upstream", payload.Type
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusTooManyRequests:
		return "rate_limited", payload.Type
	default:
		return "client", payload.Type
	}
}
