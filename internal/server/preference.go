package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/renatoambrosi/backmercadopro/internal/checkout/domain"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"github.com/renatoambrosi/backmercadopro/internal/observability/logger"
	"go.uber.org/zap"
)

type createPreferenceBody struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	UID        string  `json:"uid"`
	PayerEmail string  `json:"payer_email"`
	DeviceID   string  `json:"device_id"`
}

func (s *Server) CreatePreference(c *gin.Context) {
	var body createPreferenceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.checkoutSvc.CreatePreference(c.Request.Context(), domain.CreatePreferenceRequest{
		Title:      body.Title,
		Quantity:   body.Quantity,
		UnitPrice:  body.UnitPrice,
		UID:        body.UID,
		PayerEmail: body.PayerEmail,
		DeviceID:   body.DeviceID,
		ClientIP:   logger.ClientIP(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingUID),
			errors.Is(err, domain.ErrInvalidUID),
			errors.Is(err, domain.ErrInvalidQuantity),
			errors.Is(err, domain.ErrInvalidPrice):
			AbortWithError(c, newValidationError(err.Error()))
		default:
			var gwErr *gateway.GatewayError
			if errors.As(err, &gwErr) {
				s.log.Error("preference creation rejected upstream",
					zap.Int("code", gwErr.Code), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
					"error":   "gateway_error",
					"details": gwErr.Message,
				})
				return
			}
			s.log.Error("preference creation failed", zap.Error(err))
			AbortWithError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}
