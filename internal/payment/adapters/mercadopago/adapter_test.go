package mercadopago

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
	"go.uber.org/zap"
)

const testSecret = "whsec-test"

func signedHeaders(t *testing.T, secret, dataID, requestID, ts string) http.Header {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest(dataID, requestID, ts)))
	hash := hex.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("X-Signature", "ts="+ts+",v1="+hash)
	headers.Set("X-Request-Id", requestID)
	return headers
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	headers := signedHeaders(t, testSecret, "123456789", "req-1", "1704908010")

	if err := adapter.Verify(context.Background(), headers, "123456789"); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyLowercasesDataID(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	// The gateway signs the lowercased id; a mixed-case id must still verify.
	headers := signedHeaders(t, testSecret, "abc123", "req-1", "1704908010")

	if err := adapter.Verify(context.Background(), headers, "ABC123"); err != nil {
		t.Fatalf("expected valid signature for mixed-case id, got %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	headers := signedHeaders(t, "wrong-secret", "123456789", "req-1", "1704908010")

	err := adapter.Verify(context.Background(), headers, "123456789")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsTamperedTimestamp(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	headers := signedHeaders(t, testSecret, "123456789", "req-1", "1704908010")
	headers.Set("X-Signature", "ts=1704908011,v1="+parseV1(t, headers.Get("X-Signature")))

	err := adapter.Verify(context.Background(), headers, "123456789")
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func parseV1(t *testing.T, header string) string {
	t.Helper()
	parts, err := parseSignatureHeader(header)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	return parts.hash
}

func TestVerifyMissingHeader(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())

	err := adapter.Verify(context.Background(), http.Header{}, "123456789")
	if !errors.Is(err, domain.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature, got %v", err)
	}
}

func TestVerifyMissingV1Pair(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	headers := http.Header{}
	headers.Set("X-Signature", "ts=1704908010")

	err := adapter.Verify(context.Background(), headers, "123456789")
	if !errors.Is(err, domain.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature, got %v", err)
	}
}

func TestVerifySkipsWithoutSecret(t *testing.T) {
	adapter := NewAdapter("", zap.NewNop())

	if err := adapter.Verify(context.Background(), http.Header{}, "123456789"); err != nil {
		t.Fatalf("expected verification skip without secret, got %v", err)
	}
}

func TestParsePaymentNotification(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	payload := []byte(`{"type":"payment","action":"payment.updated","data":{"id":123456789},"live_mode":true}`)

	notification, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if notification.DataID != "123456789" {
		t.Fatalf("expected data id 123456789, got %q", notification.DataID)
	}
	if notification.LiveMode == nil || !*notification.LiveMode {
		t.Fatal("expected live_mode true")
	}
}

func TestParseStringDataID(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	payload := []byte(`{"type":"payment","data":{"id":"123456789"}}`)

	notification, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if notification.DataID != "123456789" {
		t.Fatalf("expected data id 123456789, got %q", notification.DataID)
	}
}

func TestParseIgnoresNonPayment(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	payload := []byte(`{"type":"merchant_order","data":{"id":"42"}}`)

	_, err := adapter.Parse(context.Background(), payload)
	if !errors.Is(err, domain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseActionPrefix(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	payload := []byte(`{"action":"payment.created","data":{"id":"42"}}`)

	notification, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !notification.Payment() {
		t.Fatal("expected payment notification")
	}
}

func TestParseRejectsMissingDataID(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())
	payload := []byte(`{"type":"payment","data":{}}`)

	_, err := adapter.Parse(context.Background(), payload)
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestParseRejectsBadJSON(t *testing.T) {
	adapter := NewAdapter(testSecret, zap.NewNop())

	_, err := adapter.Parse(context.Background(), []byte("{not json"))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
