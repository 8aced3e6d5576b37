package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleylabs/parley/internal/errs"
)

// Error is a resolved endpoint failure: HTTP status plus the stable wire
// code clients switch on.
type Error struct {
	Status  int
	Code    string
	Message string
}

type HandlerFunc func(ctx *gin.Context) (any, *Error)

// FromError translates a service error into its wire shape. The code comes
// from the shared taxonomy; anything unclassified is an opaque 500.
func FromError(err error) *Error {
	code := errs.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case "VALIDATION_ERROR":
		status = http.StatusBadRequest
	case "NOT_ALLOWED", "NOT_IN_SCHEDULE":
		status = http.StatusForbidden
	case "NOT_FOUND":
		status = http.StatusNotFound
	case "ALREADY_EXISTS", "NOT_STARTED", "WAITING":
		status = http.StatusConflict
	case "ENDED":
		status = http.StatusGone
	case "RATE_LIMITED":
		status = http.StatusTooManyRequests
	case "STORE_UNAVAILABLE":
		status = http.StatusServiceUnavailable
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return &Error{Status: status, Code: code, Message: msg}
}

func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message}
}

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
			return
		}
		ctx.JSON(http.StatusOK, result)
	}
}
