// Package mercadopago adapts the Mercado Pago webhook envelope: X-Signature
// verification and notification body parsing.
package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/zap"
)

type Adapter struct {
	secret string
	log    *zap.Logger
}

func NewAdapter(secret string, log *zap.Logger) *Adapter {
	return &Adapter{secret: secret, log: log.Named("payment.adapter.mercadopago")}
}

// Verify authenticates a webhook delivery against the configured secret.
// Without a secret deliveries are accepted with a warning, so sandbox
// deployments keep working before the secret is provisioned.
func (a *Adapter) Verify(ctx context.Context, headers http.Header, dataID string) error {
	if strings.TrimSpace(a.secret) == "" {
		a.log.Warn("webhook secret not configured, skipping signature verification")
		return nil
	}

	signatureHeader := strings.TrimSpace(headers.Get("X-Signature"))
	if signatureHeader == "" {
		return domain.ErrMalformedSignature
	}
	requestID := strings.TrimSpace(headers.Get("X-Request-Id"))

	parts, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return err
	}

	if !validSignature(a.secret, dataID, requestID, parts) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type notificationBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.Number `json:"id"`
	} `json:"data"`
	LiveMode *bool `json:"live_mode"`
}

// Parse decodes the webhook body. Notifications about non-payment resources
// map to ErrEventIgnored so the caller can acknowledge without processing.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Notification, error) {
	var body notificationBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	notification := &domain.Notification{
		Type:     strings.TrimSpace(body.Type),
		Action:   strings.TrimSpace(body.Action),
		DataID:   strings.TrimSpace(body.Data.ID.String()),
		LiveMode: body.LiveMode,
	}
	if !notification.Payment() {
		return nil, domain.ErrEventIgnored
	}
	if notification.DataID == "" {
		return nil, domain.ErrInvalidPayload
	}
	return notification, nil
}
