// Package poller implements the client-side fallback that drives a charge to
// its terminal status when webhooks are delayed or dropped.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"github.com/renatoambrosi/backmercadopro/internal/observability/metrics"
	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config controls the poll cadence.
type Config struct {
	Interval time.Duration
	Deadline time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.Deadline <= 0 {
		c.Deadline = 5 * time.Minute
	}
	return c
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Gateway gateway.Client
	Engine  domain.Service
	Cfg     config.Config
}

type Poller struct {
	log     *zap.Logger
	gateway gateway.Client
	engine  domain.Service
	cfg     Config

	// baseCtx parents every poll loop so shutdown stops them.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

func New(p Params) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		log:     p.Log.Named("payment.poller"),
		gateway: p.Gateway,
		engine:  p.Engine,
		cfg: Config{
			Interval: p.Cfg.PollInterval,
			Deadline: p.Cfg.PollDeadline,
		}.withDefaults(),
		baseCtx:    ctx,
		cancelBase: cancel,
	}
}

var Module = fx.Module("payment.poller",
	fx.Provide(New),
	fx.Invoke(registerShutdown),
)

func registerShutdown(lc fx.Lifecycle, p *Poller) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			p.cancelBase()
			return nil
		},
	})
}

// Start launches a detached poll loop for one correlation key.
func (p *Poller) Start(correlationKey, chargeID string) {
	go func() {
		if _, err := p.Poll(p.baseCtx, correlationKey, chargeID); err != nil {
			p.log.Warn("poll loop ended with error",
				zap.String("correlation_key", correlationKey),
				zap.Error(err),
			)
		}
	}()
}

// Poll looks the charge up on a fixed interval until a terminal status is
// observed or the deadline elapses. A deadline expiry is a clean stop, not an
// error: the user stays on the pending view. Transient lookup failures are
// logged and retried on the next tick.
func (p *Poller) Poll(ctx context.Context, correlationKey, chargeID string) (*gateway.ChargeDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Deadline)
	defer cancel()

	log := p.log.With(zap.String("correlation_key", correlationKey))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		details, err := p.lookup(ctx, correlationKey, chargeID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				log.Info("poll deadline reached")
				return nil, nil
			}
			metrics.Reconciliation().IncPollAttempt("error")
			log.Warn("status lookup failed, will retry", zap.Error(err))
		case details == nil:
			metrics.Reconciliation().IncPollAttempt("not_found")
		default:
			if details.ID != "" {
				chargeID = details.ID
			}
			if details.Status.Terminal() {
				metrics.Reconciliation().IncPollAttempt("terminal")
				if _, err := p.engine.Observe(ctx, observationFrom(*details, correlationKey)); err != nil {
					log.Warn("poll observation failed", zap.Error(err))
				}
				return details, nil
			}
			metrics.Reconciliation().IncPollAttempt("pending")
			if _, err := p.engine.Observe(ctx, observationFrom(*details, correlationKey)); err != nil {
				log.Warn("poll observation failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			log.Info("poll deadline reached")
			return nil, nil
		case <-ticker.C:
			// A tick and the deadline can fire together when the interval
			// divides the deadline; the deadline wins.
			if ctx.Err() != nil {
				log.Info("poll deadline reached")
				return nil, nil
			}
		}
	}
}

func (p *Poller) lookup(ctx context.Context, correlationKey, chargeID string) (*gateway.ChargeDetails, error) {
	if chargeID != "" {
		details, err := p.gateway.Get(ctx, chargeID)
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, nil
		}
		return details, err
	}

	results, err := p.gateway.SearchByCorrelationKey(ctx, correlationKey)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func observationFrom(details gateway.ChargeDetails, fallbackKey string) domain.Observation {
	key := details.CorrelationKey
	if key == "" {
		key = fallbackKey
	}
	return domain.Observation{
		CorrelationKey: key,
		ChargeID:       details.ID,
		Status:         details.Status,
		StatusDetail:   details.StatusDetail,
		Source:         domain.SourcePoll,
		LiveMode:       details.LiveMode,
		Amount:         details.Amount,
		PayerEmail:     details.PayerEmail,
	}
}
