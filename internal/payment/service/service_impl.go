package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/renatoambrosi/backmercadopro/internal/clock"
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/correlation"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"github.com/renatoambrosi/backmercadopro/internal/notify"
	"github.com/renatoambrosi/backmercadopro/internal/observability/metrics"
	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const notifyTimeout = 10 * time.Second

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Adapter   domain.WebhookAdapter
	Gateway   gateway.Client
	Notifiers []notify.Notifier
	Clock     clock.Clock
	Cfg       config.Config
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	adapter      domain.WebhookAdapter
	gateway      gateway.Client
	notifiers    []notify.Notifier
	clock        clock.Clock
	testChargeID string
	keyed        *keyedMutex
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		adapter:      p.Adapter,
		gateway:      p.Gateway,
		notifiers:    p.Notifiers,
		clock:        p.Clock,
		testChargeID: strings.TrimSpace(p.Cfg.TestChargeID),
		keyed:        newKeyedMutex(),
	}
}

// IngestWebhook handles one delivery. Only authentication and parse failures
// propagate to the caller; anything downstream is logged and swallowed so the
// HTTP layer acknowledges with 200 and the gateway does not redeliver.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	notification, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.log.Debug("non-payment notification ignored")
			return nil
		}
		return err
	}

	if err := s.adapter.Verify(ctx, headers, notification.DataID); err != nil {
		metrics.Reconciliation().IncSignatureFailure()
		return err
	}

	log := s.log.With(zap.String("charge_id", notification.DataID))

	if notification.DataID == s.testChargeID {
		log.Info("test notification acknowledged")
		return nil
	}

	details, err := s.gateway.Get(ctx, notification.DataID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			log.Warn("webhook references unknown charge")
			return nil
		}
		log.Warn("charge lookup failed, webhook acknowledged anyway", zap.Error(err))
		return nil
	}

	live := details.LiveMode
	if notification.LiveMode != nil && !*notification.LiveMode {
		live = false
	}

	if _, err := s.Observe(ctx, domain.Observation{
		CorrelationKey: details.CorrelationKey,
		ChargeID:       details.ID,
		Status:         details.Status,
		StatusDetail:   details.StatusDetail,
		Source:         domain.SourceWebhook,
		LiveMode:       live,
		Amount:         details.Amount,
		PayerEmail:     details.PayerEmail,
		Raw:            payload,
	}); err != nil {
		log.Warn("webhook observation failed, acknowledged anyway", zap.Error(err))
	}
	return nil
}

// Observe applies one status observation under the per-key lock. The
// approval side effects fire at most once per correlation key, guarded both
// by the lock and by a compare-and-set on the stored record.
func (s *Service) Observe(ctx context.Context, obs domain.Observation) (*domain.Outcome, error) {
	key := strings.TrimSpace(obs.CorrelationKey)
	if key == "" || obs.Status == "" {
		return nil, domain.ErrInvalidObservation
	}
	sandbox := !obs.LiveMode || obs.ChargeID == s.testChargeID

	s.keyed.Lock(key)
	defer s.keyed.Unlock(key)

	now := s.clock.Now()
	outcome := &domain.Outcome{Sandbox: sandbox}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.FindByCorrelationKey(ctx, tx, key)
		if err != nil {
			return err
		}

		if record == nil {
			record = &domain.ObservationRecord{
				ID:              s.genID.Generate(),
				CorrelationKey:  key,
				UID:             correlation.UIDOf(key),
				FirstObservedAt: now,
			}
			s.applyObservation(record, obs, now)
			if err := s.repo.Insert(ctx, tx, record); err != nil {
				return err
			}
			outcome.FirstSeen = true
			outcome.Transitioned = true
		} else {
			prev := gateway.Status(record.LastStatus)
			next := obs.Status
			switch {
			case prev.Terminal() && next.Terminal() && prev != next:
				record.Anomaly = string(prev) + "->" + string(next)
				s.log.Warn("contradictory terminal status observed",
					zap.String("correlation_key", key),
					zap.String("previous", string(prev)),
					zap.String("observed", string(next)),
				)
				outcome.Anomaly = record.Anomaly
				outcome.Transitioned = true
			case prev.Terminal() && !next.Terminal():
				// An in-flight poll can land after the webhook's terminal
				// status; the terminal record wins, only the sighting time
				// moves.
				s.log.Debug("stale observation after terminal status ignored",
					zap.String("correlation_key", key),
					zap.String("previous", string(prev)),
					zap.String("observed", string(next)),
				)
				record.LastObservedAt = now
				if err := s.repo.Update(ctx, tx, record); err != nil {
					return err
				}
				outcome.Stale = true
				outcome.Record = record
				return nil
			case prev == next:
				// Duplicate delivery; only the sighting time moves.
			default:
				outcome.Transitioned = prev != next
			}
			s.applyObservation(record, obs, now)
			if err := s.repo.Update(ctx, tx, record); err != nil {
				return err
			}
		}

		if obs.Status == gateway.StatusApproved && !sandbox {
			claimed, err := s.repo.ClaimApprovalNotify(ctx, tx, key, now)
			if err != nil {
				return err
			}
			outcome.NotifyFired = claimed
		}

		outcome.Record = record
		return nil
	})
	if err != nil {
		metrics.Reconciliation().IncObservation(string(obs.Source), "failed")
		return nil, err
	}
	metrics.Reconciliation().IncObservation(string(obs.Source), observationResult(outcome))

	if outcome.NotifyFired {
		metrics.Reconciliation().ObserveApprovalLag(now.Sub(outcome.Record.FirstObservedAt))
		s.dispatchApproval(*outcome.Record)
	}
	return outcome, nil
}

func observationResult(outcome *domain.Outcome) string {
	switch {
	case outcome.Anomaly != "":
		return "anomaly"
	case outcome.Stale:
		return "stale"
	case outcome.FirstSeen:
		return "first_seen"
	case outcome.Transitioned:
		return "transition"
	}
	return "duplicate"
}

func (s *Service) Status(ctx context.Context, correlationKey string) (*domain.ObservationRecord, error) {
	return s.repo.FindByCorrelationKey(ctx, s.db, strings.TrimSpace(correlationKey))
}

func (s *Service) applyObservation(record *domain.ObservationRecord, obs domain.Observation, now time.Time) {
	record.ChargeID = obs.ChargeID
	record.LastStatus = string(obs.Status)
	record.StatusDetail = obs.StatusDetail
	record.Source = string(obs.Source)
	record.LiveMode = obs.LiveMode
	record.LastObservedAt = now
	if obs.Amount != 0 {
		record.Amount = obs.Amount
	}
	if obs.PayerEmail != "" {
		record.PayerEmail = obs.PayerEmail
	}
	if len(obs.Raw) > 0 && json.Valid(obs.Raw) {
		record.RawDetails = datatypes.JSON(obs.Raw)
	}
}

// dispatchApproval fans the approved event out to every configured notifier.
// Each runs detached with its own timeout; a slow or failing notifier never
// delays the webhook acknowledgment or the poll response.
func (s *Service) dispatchApproval(record domain.ObservationRecord) {
	event := notify.Event{
		CorrelationKey: record.CorrelationKey,
		UID:            record.UID,
		ChargeID:       record.ChargeID,
		Amount:         record.Amount,
		PayerEmail:     record.PayerEmail,
	}

	for _, notifier := range s.notifiers {
		notifier := notifier
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()

			inserted, err := s.repo.InsertNotificationEvent(ctx, s.db, &domain.NotificationEvent{
				ID:             s.genID.Generate(),
				CorrelationKey: event.CorrelationKey,
				Kind:           string(notifier.Kind()),
				FiredAt:        s.clock.Now(),
			})
			if err != nil {
				s.log.Error("notification event record failed",
					zap.String("correlation_key", event.CorrelationKey),
					zap.String("kind", string(notifier.Kind())),
					zap.Error(err),
				)
				metrics.Reconciliation().IncNotification(string(notifier.Kind()), "failed")
				return
			}
			if !inserted {
				s.log.Info("notification already fired, skipping",
					zap.String("correlation_key", event.CorrelationKey),
					zap.String("kind", string(notifier.Kind())),
				)
				metrics.Reconciliation().IncNotification(string(notifier.Kind()), "skipped")
				return
			}

			if err := notifier.Notify(ctx, event); err != nil {
				s.log.Error("notifier failed",
					zap.String("correlation_key", event.CorrelationKey),
					zap.String("kind", string(notifier.Kind())),
					zap.Error(err),
				)
				metrics.Reconciliation().IncNotification(string(notifier.Kind()), "failed")
				return
			}
			metrics.Reconciliation().IncNotification(string(notifier.Kind()), "sent")
			s.log.Info("notification sent",
				zap.String("correlation_key", event.CorrelationKey),
				zap.String("kind", string(notifier.Kind())),
			)
		}()
	}
}
