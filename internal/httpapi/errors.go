package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"chompin/internal/attendance"
	"chompin/internal/logging"
)

// User-facing messages the clients match on.
const (
	msgInvalidSession = "Invalid or expired session"
	msgDuplicate      = "Already checked in"
	msgForbidden      = "Forbidden: Access Denied"
	msgNotFound       = "Not found"
	msgTerminal       = "Session is no longer active"
	msgInternal       = "Internal server error"
)

// statusFor maps an error to its HTTP status and public message. Anything not
// recognised is an internal error whose detail stays in the log.
func statusFor(err error) (int, string) {
	var verr *attendance.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, validationMessage(verr)
	case errors.Is(err, attendance.ErrSessionInvalid):
		return http.StatusBadRequest, msgInvalidSession
	case errors.Is(err, attendance.ErrDuplicateCheckIn):
		return http.StatusBadRequest, msgDuplicate
	case errors.Is(err, attendance.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, attendance.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, attendance.ErrSessionTerminal):
		return http.StatusConflict, msgTerminal
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func validationMessage(verr *attendance.ValidationError) string {
	if len(verr.FieldErrors) == 0 {
		return "Invalid request"
	}
	fields := make([]string, 0, len(verr.FieldErrors))
	for f := range verr.FieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+verr.FieldErrors[f])
	}
	return strings.Join(parts, "; ")
}

// fail writes err as `{"error": message}` and logs it.
func fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "request failed", "status", status, "error", err)
		} else {
			logger.DebugContext(ctx, "request rejected", "status", status, "kind", attendance.ErrorKind(err))
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
