// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wander/internal/modules/quota"
	"wander/internal/modules/tripgen"
	"wander/internal/modules/trips"
	"wander/internal/modules/wishlist"
)

// statusClientClosedRequest is reported when the caller went away mid-generation.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// isValidID accepts snowflake ids and uuids: alphanumerics and dashes, at most 64 chars.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// classify maps a domain error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, tripgen.ErrInvalidRequest), errors.Is(err, wishlist.ErrInvalidItem):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, trips.ErrNotFound), errors.Is(err, wishlist.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, tripgen.ErrCompletionTimeout):
		return http.StatusGatewayTimeout, "completion_timeout"
	case errors.Is(err, tripgen.ErrMalformedPlan):
		return http.StatusBadGateway, "malformed_plan"
	case errors.Is(err, tripgen.ErrSchemaMismatch):
		return http.StatusBadGateway, "schema_mismatch"
	case errors.Is(err, tripgen.ErrCompletion):
		return http.StatusBadGateway, "completion_failed"
	case errors.Is(err, tripgen.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, tripgen.ErrTemplate):
		return http.StatusInternalServerError, "template_error"
	case errors.Is(err, tripgen.ErrCancelled):
		return statusClientClosedRequest, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeDomainError(c *gin.Context, err error) {
	status, code := classify(err)
	_ = c.Error(err)
	writeJSON(c, status, errorResponse{Error: code, Message: userMessage(err)})
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "You have used all of this month's trip generations."
	case errors.Is(err, trips.ErrNotFound), errors.Is(err, wishlist.ErrNotFound):
		return "Not found."
	case errors.Is(err, wishlist.ErrInvalidItem):
		return "Wishlist items cannot be empty."
	}
	return tripgen.UserMessage(err)
}
