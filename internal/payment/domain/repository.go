package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByCorrelationKey(ctx context.Context, db *gorm.DB, key string) (*ObservationRecord, error)
	Insert(ctx context.Context, db *gorm.DB, record *ObservationRecord) error
	Update(ctx context.Context, db *gorm.DB, record *ObservationRecord) error

	// ClaimApprovalNotify flips approved_notified_at from NULL in a single
	// compare-and-set; the return value reports whether this caller won.
	ClaimApprovalNotify(ctx context.Context, db *gorm.DB, key string, at time.Time) (bool, error)

	// InsertNotificationEvent records a fired side effect; returns false when
	// the (key, kind) pair already exists.
	InsertNotificationEvent(ctx context.Context, db *gorm.DB, event *NotificationEvent) (bool, error)
}
