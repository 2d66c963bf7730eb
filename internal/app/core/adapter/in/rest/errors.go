package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/validation"
)

// ErrorResponse 統一錯誤回應格式
type ErrorResponse struct {
	Message string                 `json:"message"`
	Details []validation.FieldError `json:"details,omitempty"`
}

func respondWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message})
}

func respondWithValidationError(c *gin.Context, details []validation.FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Message: "Invalid details supplied",
		Details: details,
	})
}

// respondWithDomainError 將業務錯誤轉為 HTTP 狀態碼
func respondWithDomainError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	respondWithError(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrDepositNotFound),
		errors.Is(err, domain.ErrTransferNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccountTransfer),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidPagination),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrUnsupportedDocumentType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrAccountNotEmpty),
		errors.Is(err, domain.ErrBalanceLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
