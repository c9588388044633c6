package service

import (
	"context"
	"errors"
	"strings"

	"github.com/renatoambrosi/backmercadopro/internal/checkout/domain"
	"github.com/renatoambrosi/backmercadopro/internal/clock"
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/correlation"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"github.com/renatoambrosi/backmercadopro/internal/geo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sandbox catalog defaults applied when the caller omits product data.
const (
	defaultTitle     = "Teste de Prosperidade"
	defaultQuantity  = 1
	defaultUnitPrice = 19.00
	currencyBRL      = "BRL"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Gateway gateway.Client
	Geo     geo.Resolver
	Clock   clock.Clock
	Cfg     config.Config
	Starter PollStarter `optional:"true"`
}

// PollStarter launches the status-poll fallback for a created preference.
type PollStarter interface {
	Start(correlationKey, chargeID string)
}

type Service struct {
	log     *zap.Logger
	gateway gateway.Client
	geo     geo.Resolver
	clock   clock.Clock
	cfg     config.Config
	starter PollStarter
}

func NewService(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("checkout.service"),
		gateway: p.Gateway,
		geo:     p.Geo,
		clock:   p.Clock,
		cfg:     p.Cfg,
		starter: p.Starter,
	}
}

// CreatePreference validates the attempt, builds the charge request from
// merchant policy, and creates it at the gateway. The correlation key it
// returns is the join key every later observation is reconciled under.
func (s *Service) CreatePreference(ctx context.Context, req domain.CreatePreferenceRequest) (*domain.CreatePreferenceResponse, error) {
	key, err := s.correlationKey(req.UID)
	if err != nil {
		return nil, err
	}

	chargeReq, err := s.buildChargeRequest(ctx, req, key)
	if err != nil {
		return nil, err
	}

	created, err := s.gateway.Create(ctx, *chargeReq)
	if err != nil {
		return nil, err
	}

	s.log.Info("preference created",
		zap.String("preference_id", created.ID),
		zap.String("external_reference", key.String()),
	)

	if s.starter != nil {
		s.starter.Start(key.String(), "")
	}

	return &domain.CreatePreferenceResponse{
		ID:                created.ID,
		InitPoint:         created.RedirectURL,
		ExternalReference: key.String(),
	}, nil
}

func (s *Service) correlationKey(uid string) (correlation.Key, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		if s.cfg.RequireUID {
			return correlation.Key{}, domain.ErrMissingUID
		}
		return correlation.NewAuto(s.clock.Now()), nil
	}
	key, err := correlation.New(uid, s.clock.Now())
	if errors.Is(err, correlation.ErrInvalidUID) {
		return correlation.Key{}, domain.ErrInvalidUID
	}
	return key, err
}

// buildChargeRequest applies merchant policy over caller input. Payment
// method exclusions come from configuration only; caller input can never
// re-enable a disallowed rail.
func (s *Service) buildChargeRequest(ctx context.Context, req domain.CreatePreferenceRequest, key correlation.Key) (*gateway.ChargeRequest, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultTitle
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = defaultQuantity
	}
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	price := req.UnitPrice
	if price == 0 {
		price = defaultUnitPrice
	}
	if price < 0 {
		return nil, domain.ErrInvalidPrice
	}

	successURL := s.cfg.SuccessURL() + "?uid=" + key.UID

	metadata := map[string]any{}
	if email := strings.TrimSpace(req.PayerEmail); email != "" {
		metadata["customer_email"] = email
	}
	if device := strings.TrimSpace(req.DeviceID); device != "" {
		metadata["device_id"] = device
	}

	return &gateway.ChargeRequest{
		Title:               title,
		Quantity:            quantity,
		UnitPrice:           price,
		Currency:            currencyBRL,
		CorrelationKey:      key.String(),
		NotificationURL:     s.cfg.WebhookURL(),
		SuccessURL:          successURL,
		FailureURL:          s.cfg.FailureURL(),
		PendingURL:          s.cfg.PendingURL(),
		ExcludedMethods:     s.cfg.ExcludedMethods,
		ExcludedTypes:       s.cfg.ExcludedTypes,
		StatementDescriptor: s.cfg.StatementDescriptor,
		Metadata:            metadata,
		AdditionalInfo:      s.additionalInfo(ctx, req, price, quantity),
	}, nil
}

// additionalInfo assembles the anti-fraud block from real request data plus
// best-effort geolocation. A failed lookup just means less data.
func (s *Service) additionalInfo(ctx context.Context, req domain.CreatePreferenceRequest, price float64, quantity int) map[string]any {
	info := map[string]any{
		"items": []map[string]any{{
			"id":          "teste-prosperidade-001",
			"title":       defaultTitle,
			"category_id": "services",
			"quantity":    quantity,
			"unit_price":  price,
		}},
	}

	payer := map[string]any{
		"registration_date":   s.clock.Now().Format("2006-01-02T15:04:05.000-07:00"),
		"authentication_type": "Native web",
	}
	if email := strings.TrimSpace(req.PayerEmail); email != "" {
		payer["email"] = email
	}
	info["payer"] = payer

	var geodata *geo.Data
	if s.geo != nil {
		geodata = s.geo.Lookup(ctx, req.ClientIP)
	}
	if geodata != nil {
		receiver := map[string]any{
			"country_name": orDefault(geodata.CountryName, "Brasil"),
		}
		if geodata.City != "" {
			receiver["city_name"] = geodata.City
			receiver["street_name"] = "Entrega Digital"
			receiver["street_number"] = "0"
		}
		if geodata.State != "" {
			receiver["state_name"] = geodata.State
		}
		if geodata.ZipCode != "" {
			receiver["zip_code"] = geodata.ZipCode
		}
		info["shipments"] = map[string]any{"receiver_address": receiver}
	}

	return info
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
