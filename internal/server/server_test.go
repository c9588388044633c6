package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/renatoambrosi/backmercadopro/internal/checkout/domain"
	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	obscontext "github.com/renatoambrosi/backmercadopro/internal/observability/context"
	paymentdomain "github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/zap"
)

type fakeCheckout struct {
	resp *checkoutdomain.CreatePreferenceResponse
	err  error
	got  checkoutdomain.CreatePreferenceRequest
}

func (f *fakeCheckout) CreatePreference(_ context.Context, req checkoutdomain.CreatePreferenceRequest) (*checkoutdomain.CreatePreferenceResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakePayment struct {
	ingestErr error
	record    *paymentdomain.ObservationRecord
	statusErr error
}

func (f *fakePayment) IngestWebhook(context.Context, []byte, http.Header) error {
	return f.ingestErr
}

func (f *fakePayment) Observe(context.Context, paymentdomain.Observation) (*paymentdomain.Outcome, error) {
	return nil, nil
}

func (f *fakePayment) Status(context.Context, string) (*paymentdomain.ObservationRecord, error) {
	return f.record, f.statusErr
}

type fakeGateway struct {
	details   *gateway.ChargeDetails
	getErr    error
	search    []gateway.ChargeDetails
	searchErr error
}

func (f *fakeGateway) Create(context.Context, gateway.ChargeRequest) (*gateway.CreatedCharge, error) {
	return nil, gateway.ErrNotFound
}

func (f *fakeGateway) Get(context.Context, string) (*gateway.ChargeDetails, error) {
	return f.details, f.getErr
}

func (f *fakeGateway) SearchByCorrelationKey(context.Context, string) ([]gateway.ChargeDetails, error) {
	return f.search, f.searchErr
}

func newTestServer(t *testing.T, checkout checkoutdomain.Service, payment paymentdomain.Service, gw gateway.Client) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Environment: "test",
		FrontendURL: "http://localhost:3000",
		ResultURL:   "https://shop.example/result",
		PublicKey:   "TEST-pub-key",
	}
	engine := gin.New()
	srv := NewServer(Params{
		Engine:      engine,
		Log:         zap.NewNop(),
		Cfg:         cfg,
		CheckoutSvc: checkout,
		PaymentSvc:  payment,
		Gateway:     gw,
	})
	srv.RegisterRoutes()
	return srv, engine
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestEnvironmentExposesPublicKey(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodGet, "/api/environment", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["public_key"] != "TEST-pub-key" {
		t.Fatalf("expected public key in response, got %v", resp["public_key"])
	}
}

func TestCreatePreference(t *testing.T) {
	checkout := &fakeCheckout{resp: &checkoutdomain.CreatePreferenceResponse{
		ID:                "pref-1",
		InitPoint:         "https://gateway.example/init",
		ExternalReference: "user-42-1700000000000",
	}}
	_, engine := newTestServer(t, checkout, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodPost, "/create_preference", map[string]any{
		"uid":        "user-42",
		"unit_price": 19.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp checkoutdomain.CreatePreferenceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ExternalReference != "user-42-1700000000000" {
		t.Fatalf("unexpected external_reference %q", resp.ExternalReference)
	}
	if checkout.got.UID != "user-42" {
		t.Fatalf("uid not forwarded, got %q", checkout.got.UID)
	}
}

func TestCreatePreferenceValidation(t *testing.T) {
	checkout := &fakeCheckout{err: checkoutdomain.ErrMissingUID}
	_, engine := newTestServer(t, checkout, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodPost, "/create_preference", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreatePreferenceGatewayFailure(t *testing.T) {
	checkout := &fakeCheckout{err: &gateway.GatewayError{Code: 400, Message: "invalid collector"}}
	_, engine := newTestServer(t, checkout, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodPost, "/create_preference", map[string]any{"uid": "u1"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "gateway_error" {
		t.Fatalf("unexpected error code %v", resp["error"])
	}
}

func TestWebhookSignatureRejected(t *testing.T) {
	payment := &fakePayment{ingestErr: paymentdomain.ErrInvalidSignature}
	_, engine := newTestServer(t, &fakeCheckout{}, payment, &fakeGateway{})

	w := doJSON(engine, http.MethodPost, "/webhook", map[string]any{"type": "payment"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestWebhookMalformedSignature(t *testing.T) {
	payment := &fakePayment{ingestErr: paymentdomain.ErrMalformedSignature}
	_, engine := newTestServer(t, &fakeCheckout{}, payment, &fakeGateway{})

	w := doJSON(engine, http.MethodPost, "/webhook", map[string]any{"type": "payment"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookAcknowledged(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodPost, "/api/webhook", map[string]any{
		"type": "payment",
		"data": map[string]any{"id": "123"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPaymentStatusByChargeID(t *testing.T) {
	gw := &fakeGateway{details: &gateway.ChargeDetails{
		ID:     "555",
		Status: gateway.StatusApproved,
	}}
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, gw)

	w := doJSON(engine, http.MethodGet, "/payment-status/555", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "approved" {
		t.Fatalf("expected approved, got %v", resp["status"])
	}
}

func TestPaymentStatusUnknownChargeID(t *testing.T) {
	gw := &fakeGateway{getErr: gateway.ErrNotFound}
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, gw)

	w := doJSON(engine, http.MethodGet, "/payment-status/999", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPaymentStatusFromRecord(t *testing.T) {
	payment := &fakePayment{record: &paymentdomain.ObservationRecord{
		CorrelationKey: "user-42-1700000000000",
		LastStatus:     "approved",
		ChargeID:       "555",
		Source:         "webhook",
	}}
	_, engine := newTestServer(t, &fakeCheckout{}, payment, &fakeGateway{})

	w := doJSON(engine, http.MethodGet, "/payment-status/user-42-1700000000000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "approved" || resp["charge_id"] != "555" {
		t.Fatalf("unexpected response %v", resp)
	}
}

func TestPaymentStatusFallsBackToSearch(t *testing.T) {
	gw := &fakeGateway{search: []gateway.ChargeDetails{{
		ID:     "777",
		Status: gateway.StatusInProcess,
	}}}
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, gw)

	w := doJSON(engine, http.MethodGet, "/payment-status/user-9-1700000000000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "in_process" {
		t.Fatalf("expected in_process, got %v", resp["status"])
	}
}

func TestPaymentStatusPendingWhenUnseen(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	w := doJSON(engine, http.MethodGet, "/payment-status/user-9-1700000000000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "pending" {
		t.Fatalf("expected pending, got %v", resp["status"])
	}
}

func TestCallbackRedirect(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/callback?external_reference=user-42-1700000000000&status=approved&payment_id=555", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	redirect, err := url.Parse(loc)
	if err != nil {
		t.Fatalf("parse redirect %q: %v", loc, err)
	}
	q := redirect.Query()
	if q.Get("uid") != "user-42" {
		t.Fatalf("expected uid user-42, got %q", q.Get("uid"))
	}
	if q.Get("status") != "approved" {
		t.Fatalf("expected status approved, got %q", q.Get("status"))
	}
}

func TestCallbackRoutesFailureToFailurePage(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/callback?external_reference=user-42-1700000000000&status=rejected", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "http://localhost:3000/failure") {
		t.Fatalf("expected failure page redirect, got %q", loc)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients should not be affected")
	}
}

func TestWebhookNeverRateLimited(t *testing.T) {
	srv, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})
	srv.limiter = newRateLimiter(2, time.Minute)

	for i := 0; i < 10; i++ {
		w := doJSON(engine, http.MethodPost, "/webhook", map[string]any{"type": "payment"})
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestCreatePreferenceRateLimited(t *testing.T) {
	checkout := &fakeCheckout{resp: &checkoutdomain.CreatePreferenceResponse{ID: "pref-1"}}
	srv, engine := newTestServer(t, checkout, &fakePayment{}, &fakeGateway{})
	srv.limiter = newRateLimiter(2, time.Minute)

	body := map[string]any{"uid": "u1"}
	for i := 0; i < 2; i++ {
		if w := doJSON(engine, http.MethodPost, "/create_preference", body); w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, w.Code)
		}
	}
	if w := doJSON(engine, http.MethodPost, "/create_preference", body); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once over the limit, got %d", w.Code)
	}
}

func TestErrorEnvelopeCarriesRequestID(t *testing.T) {
	_, engine := newTestServer(t, &fakeCheckout{}, &fakePayment{}, &fakeGateway{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req = req.WithContext(obscontext.WithRequestID(req.Context(), "req-123"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("expected request id echo, got %v", resp["request_id"])
	}
}
