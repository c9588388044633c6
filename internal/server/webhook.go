package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// Webhook acknowledges every delivery the gateway can do nothing about.
// Only authentication and parse failures produce a non-200 so the gateway
// retries deliveries we could never have applied.
func (s *Server) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.Request.Header)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, domain.ErrInvalidSignature):
		s.log.Warn("webhook signature rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
	case errors.Is(err, domain.ErrMalformedSignature),
		errors.Is(err, domain.ErrInvalidPayload):
		AbortWithError(c, newValidationError(err.Error()))
	default:
		// Downstream failures are already swallowed in the service; anything
		// else here is unexpected but still not retryable by the gateway.
		s.log.Error("webhook ingestion failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}
