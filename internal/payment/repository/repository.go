package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"gorm.io/gorm"
)

type Repository struct{}

func Provide() domain.Repository {
	return &Repository{}
}

func (r *Repository) FindByCorrelationKey(ctx context.Context, db *gorm.DB, key string) (*domain.ObservationRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidObservation
	}

	var record domain.ObservationRecord
	err := db.WithContext(ctx).
		Where("correlation_key = ?", key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) Insert(ctx context.Context, db *gorm.DB, record *domain.ObservationRecord) error {
	if record == nil {
		return domain.ErrInvalidObservation
	}
	return db.WithContext(ctx).Create(record).Error
}

func (r *Repository) Update(ctx context.Context, db *gorm.DB, record *domain.ObservationRecord) error {
	if record == nil {
		return domain.ErrInvalidObservation
	}
	return db.WithContext(ctx).Exec(
		`UPDATE payment_observations
		 SET charge_id = ?, last_status = ?, status_detail = ?, source = ?,
		     live_mode = ?, amount = ?, payer_email = ?, raw_details = ?,
		     anomaly = ?, last_observed_at = ?
		 WHERE correlation_key = ?`,
		record.ChargeID,
		record.LastStatus,
		record.StatusDetail,
		record.Source,
		record.LiveMode,
		record.Amount,
		record.PayerEmail,
		record.RawDetails,
		record.Anomaly,
		record.LastObservedAt,
		record.CorrelationKey,
	).Error
}

func (r *Repository) ClaimApprovalNotify(ctx context.Context, db *gorm.DB, key string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_observations
		 SET approved_notified_at = ?
		 WHERE correlation_key = ? AND approved_notified_at IS NULL`,
		at,
		key,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) InsertNotificationEvent(ctx context.Context, db *gorm.DB, event *domain.NotificationEvent) (bool, error) {
	if event == nil {
		return false, domain.ErrInvalidObservation
	}
	result := db.WithContext(ctx).Exec(
		`INSERT INTO notification_events (id, correlation_key, kind, fired_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (correlation_key, kind) DO NOTHING`,
		event.ID,
		event.CorrelationKey,
		event.Kind,
		event.FiredAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
