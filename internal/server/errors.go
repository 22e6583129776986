package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billdomain "github.com/sevacare/ipdbilling/internal/bill/domain"
	depositdomain "github.com/sevacare/ipdbilling/internal/deposit/domain"
	storedomain "github.com/sevacare/ipdbilling/internal/ledgerstore/domain"
	patientdomain "github.com/sevacare/ipdbilling/internal/patient/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrInvalidRequest = errors.New("invalid_request")
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

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}
	case errors.Is(err, billdomain.ErrAlreadyCompleted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
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

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billdomain.ErrInvalidPatientRef),
		errors.Is(err, billdomain.ErrInvalidBillID),
		errors.Is(err, billdomain.ErrInvalidPageToken),
		errors.Is(err, depositdomain.ErrInvalidAmount),
		errors.Is(err, depositdomain.ErrInvalidPatientRef),
		errors.Is(err, depositdomain.ErrDateRequired),
		errors.Is(err, depositdomain.ErrInvalidDepositID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, billdomain.ErrNotFound),
		errors.Is(err, depositdomain.ErrNotFound),
		errors.Is(err, patientdomain.ErrNotFound),
		errors.Is(err, storedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
