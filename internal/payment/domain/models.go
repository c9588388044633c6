package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"gorm.io/datatypes"
)

// Source identifies which path delivered an observation.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourcePoll    Source = "poll"
)

// Observation is one sighting of a charge's status, from either path.
type Observation struct {
	CorrelationKey string
	ChargeID       string
	Status         gateway.Status
	StatusDetail   string
	Source         Source
	LiveMode       bool
	Amount         float64
	PayerEmail     string
	Raw            []byte
}

// ObservationRecord is the durable reconciliation record, one row per
// correlation key.
type ObservationRecord struct {
	ID                 snowflake.ID   `gorm:"column:id;primaryKey"`
	CorrelationKey     string         `gorm:"column:correlation_key;uniqueIndex"`
	UID                string         `gorm:"column:uid"`
	ChargeID           string         `gorm:"column:charge_id"`
	LastStatus         string         `gorm:"column:last_status"`
	StatusDetail       string         `gorm:"column:status_detail"`
	Source             string         `gorm:"column:source"`
	LiveMode           bool           `gorm:"column:live_mode"`
	Amount             float64        `gorm:"column:amount"`
	PayerEmail         string         `gorm:"column:payer_email"`
	RawDetails         datatypes.JSON `gorm:"column:raw_details"`
	Anomaly            string         `gorm:"column:anomaly"`
	FirstObservedAt    time.Time      `gorm:"column:first_observed_at"`
	LastObservedAt     time.Time      `gorm:"column:last_observed_at"`
	ApprovedNotifiedAt *time.Time     `gorm:"column:approved_notified_at"`
}

func (ObservationRecord) TableName() string {
	return "payment_observations"
}

// NotificationEvent records one fired side effect, at most once per
// (correlation key, kind).
type NotificationEvent struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey"`
	CorrelationKey string       `gorm:"column:correlation_key"`
	Kind           string       `gorm:"column:kind"`
	FiredAt        time.Time    `gorm:"column:fired_at"`
}

func (NotificationEvent) TableName() string {
	return "notification_events"
}

// Outcome summarizes what an observation did to the record.
type Outcome struct {
	Record       *ObservationRecord
	FirstSeen    bool
	Transitioned bool
	// NotifyFired is true when this observation won the right to fire the
	// approval side effects.
	NotifyFired bool
	// Stale is true when a non-terminal observation arrived after the
	// record was already terminal and was suppressed.
	Stale   bool
	Anomaly string
	Sandbox bool
}

// Notification is a parsed webhook body.
type Notification struct {
	Type     string
	Action   string
	DataID   string
	LiveMode *bool
}

// Payment reports whether the notification concerns a payment resource.
func (n Notification) Payment() bool {
	return n.Type == "payment" || strings.HasPrefix(n.Action, "payment.")
}
