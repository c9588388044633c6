package domain

import (
	"context"
	"net/http"
)

// WebhookAdapter hides the provider-specific webhook envelope: signature
// scheme and body shape. Verify must be called before any state change.
type WebhookAdapter interface {
	Verify(ctx context.Context, headers http.Header, dataID string) error
	Parse(ctx context.Context, payload []byte) (*Notification, error)
}
