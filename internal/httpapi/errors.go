package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "datashare/internal/errors"
)

// statusFor maps the error taxonomy to HTTP status codes
func statusFor(err error) int {
	var (
		validationErr   *apperrors.ValidationError
		notFoundErr     *apperrors.NotFoundError
		insufficientErr *apperrors.InsufficientBalanceError
		authErr         *apperrors.AuthenticationError
		permissionErr   *apperrors.PermissionError
		regionErr       *apperrors.RegionError
		conflictErr     *apperrors.ConflictError
		paymentErr      *apperrors.PaymentGatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &insufficientErr):
		return http.StatusPaymentRequired
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &permissionErr), errors.As(err, &regionErr):
		return http.StatusForbidden
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &paymentErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the JSON error body for err
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Store details stay in the logs
		_ = c.Error(err)
		message = "internal error"
	}
	c.JSON(status, gin.H{"error": message})
}
