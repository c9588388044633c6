// Package notify defines the side-effect capability fired on payment
// approval. Implementations are fire-and-forget: the reconciliation engine
// logs failures and never propagates them.
package notify

import "context"

type Kind string

const (
	KindEmail      Kind = "email"
	KindAdminEmail Kind = "admin_email"
	KindPush       Kind = "push"
)

// Event describes one approved payment worth announcing.
type Event struct {
	CorrelationKey string
	UID            string
	ChargeID       string
	Amount         float64
	PayerEmail     string
}

// Notifier delivers one kind of notification for an approved payment.
type Notifier interface {
	Kind() Kind
	Notify(ctx context.Context, event Event) error
}
