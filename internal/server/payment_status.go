package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"go.uber.org/zap"
)

func numericID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// PaymentStatus answers the frontend's outcome poll. The key is either a raw
// gateway charge id or a correlation key.
func (s *Server) PaymentStatus(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		AbortWithError(c, newValidationError("missing key"))
		return
	}

	if numericID(key) {
		details, err := s.gateway.Get(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				AbortWithError(c, ErrNotFound)
				return
			}
			s.log.Error("charge lookup failed", zap.String("charge_id", key), zap.Error(err))
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":        string(details.Status),
			"status_detail": details.StatusDetail,
			"charge_id":     details.ID,
		})
		return
	}

	record, err := s.paymentSvc.Status(c.Request.Context(), key)
	if err != nil {
		s.log.Error("status lookup failed", zap.String("correlation_key", key), zap.Error(err))
		AbortWithError(c, err)
		return
	}
	if record != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":        record.LastStatus,
			"status_detail": record.StatusDetail,
			"charge_id":     record.ChargeID,
			"source":        record.Source,
		})
		return
	}

	// No local observation yet; ask the gateway directly before telling the
	// frontend to keep waiting.
	results, err := s.gateway.SearchByCorrelationKey(c.Request.Context(), key)
	if err != nil {
		s.log.Warn("gateway search failed", zap.String("correlation_key", key), zap.Error(err))
	}
	if len(results) > 0 {
		c.JSON(http.StatusOK, gin.H{
			"status":        string(results[0].Status),
			"status_detail": results[0].StatusDetail,
			"charge_id":     results[0].ID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pending"})
}
