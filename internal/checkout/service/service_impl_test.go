package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/renatoambrosi/backmercadopro/internal/checkout/domain"
	"github.com/renatoambrosi/backmercadopro/internal/clock"
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"github.com/renatoambrosi/backmercadopro/internal/geo"
	"go.uber.org/zap"
)

type captureGateway struct {
	req     *gateway.ChargeRequest
	created *gateway.CreatedCharge
	err     error
}

func (g *captureGateway) Create(_ context.Context, req gateway.ChargeRequest) (*gateway.CreatedCharge, error) {
	g.req = &req
	if g.err != nil {
		return nil, g.err
	}
	if g.created != nil {
		return g.created, nil
	}
	return &gateway.CreatedCharge{ID: "pref-1", RedirectURL: "https://gateway.example/init"}, nil
}

func (g *captureGateway) Get(context.Context, string) (*gateway.ChargeDetails, error) {
	return nil, gateway.ErrNotFound
}

func (g *captureGateway) SearchByCorrelationKey(context.Context, string) ([]gateway.ChargeDetails, error) {
	return nil, nil
}

type stubResolver struct {
	data *geo.Data
}

func (r *stubResolver) Lookup(context.Context, string) *geo.Data {
	return r.data
}

type captureStarter struct {
	key string
}

func (s *captureStarter) Start(correlationKey, _ string) {
	s.key = correlationKey
}

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(gw gateway.Client, resolver geo.Resolver, starter PollStarter, cfg config.Config) domain.Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.shop.example"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "https://shop.example"
	}
	return NewService(Params{
		Log:     zap.NewNop(),
		Gateway: gw,
		Geo:     resolver,
		Clock:   clock.Fixed{At: testNow},
		Cfg:     cfg,
		Starter: starter,
	})
}

func TestCreatePreferenceBuildsCorrelationKey(t *testing.T) {
	gw := &captureGateway{}
	starter := &captureStarter{}
	svc := newTestService(gw, &stubResolver{}, starter, config.Config{})

	resp, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "user-42"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	wantKey := "user-42-" + "1704888000000"
	if resp.ExternalReference != wantKey {
		t.Fatalf("expected external reference %q, got %q", wantKey, resp.ExternalReference)
	}
	if gw.req.CorrelationKey != wantKey {
		t.Fatalf("gateway request carries %q", gw.req.CorrelationKey)
	}
	if starter.key != wantKey {
		t.Fatalf("poll fallback not started, got %q", starter.key)
	}
}

func TestCreatePreferenceDefaults(t *testing.T) {
	gw := &captureGateway{}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{
		ExcludedTypes: []string{"ticket"},
	})

	if _, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "u1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if gw.req.Title != "Teste de Prosperidade" {
		t.Fatalf("unexpected title %q", gw.req.Title)
	}
	if gw.req.Quantity != 1 || gw.req.UnitPrice != 19.00 {
		t.Fatalf("unexpected defaults qty=%d price=%v", gw.req.Quantity, gw.req.UnitPrice)
	}
	if gw.req.Currency != "BRL" {
		t.Fatalf("unexpected currency %q", gw.req.Currency)
	}
	if len(gw.req.ExcludedTypes) != 1 || gw.req.ExcludedTypes[0] != "ticket" {
		t.Fatalf("merchant exclusions not applied: %v", gw.req.ExcludedTypes)
	}
	if !strings.HasSuffix(gw.req.SuccessURL, "?uid=u1") {
		t.Fatalf("success url must carry the uid, got %q", gw.req.SuccessURL)
	}
	if gw.req.NotificationURL != "https://api.shop.example/api/webhook" {
		t.Fatalf("unexpected notification url %q", gw.req.NotificationURL)
	}
}

func TestCreatePreferenceMissingUID(t *testing.T) {
	gw := &captureGateway{}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{RequireUID: true})

	_, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{})
	if !errors.Is(err, domain.ErrMissingUID) {
		t.Fatalf("expected ErrMissingUID, got %v", err)
	}
}

func TestCreatePreferenceAnonymousFallback(t *testing.T) {
	gw := &captureGateway{}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{})

	resp, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(resp.ExternalReference, "auto_") {
		t.Fatalf("expected generated uid, got %q", resp.ExternalReference)
	}
}

func TestCreatePreferenceInvalidAmounts(t *testing.T) {
	gw := &captureGateway{}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{})

	if _, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "u1", Quantity: -1}); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "u1", UnitPrice: -5}); !errors.Is(err, domain.ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestCreatePreferenceGeoEnrichment(t *testing.T) {
	gw := &captureGateway{}
	resolver := &stubResolver{data: &geo.Data{
		CountryName: "Brasil",
		City:        "Curitiba",
		State:       "PR",
		ZipCode:     "80000",
	}}
	svc := newTestService(gw, resolver, nil, config.Config{})

	if _, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "u1", ClientIP: "200.100.50.25"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	shipments, ok := gw.req.AdditionalInfo["shipments"].(map[string]any)
	if !ok {
		t.Fatalf("expected shipments block, got %v", gw.req.AdditionalInfo)
	}
	receiver := shipments["receiver_address"].(map[string]any)
	if receiver["city_name"] != "Curitiba" || receiver["state_name"] != "PR" {
		t.Fatalf("unexpected receiver address %v", receiver)
	}
}

func TestCreatePreferenceGeoFailureIsNotFatal(t *testing.T) {
	gw := &captureGateway{}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{})

	if _, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "u1", ClientIP: "10.0.0.1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := gw.req.AdditionalInfo["shipments"]; ok {
		t.Fatal("no geolocation data must mean no shipments block")
	}
}

func TestCreatePreferenceGatewayErrorPropagates(t *testing.T) {
	gw := &captureGateway{err: &gateway.GatewayError{Code: 400, Message: "bad request"}}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{})

	_, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{UID: "u1"})
	var gwErr *gateway.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestCreatePreferenceMetadata(t *testing.T) {
	gw := &captureGateway{}
	svc := newTestService(gw, &stubResolver{}, nil, config.Config{})

	if _, err := svc.CreatePreference(context.Background(), domain.CreatePreferenceRequest{
		UID:        "u1",
		PayerEmail: "payer@example.com",
		DeviceID:   "device-abc",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if gw.req.Metadata["customer_email"] != "payer@example.com" {
		t.Fatalf("payer email not forwarded: %v", gw.req.Metadata)
	}
	if gw.req.Metadata["device_id"] != "device-abc" {
		t.Fatalf("device id not forwarded: %v", gw.req.Metadata)
	}
}
