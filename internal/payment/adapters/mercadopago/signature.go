package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/renatoambrosi/backmercadopro/internal/payment/domain"
)

// signatureParts holds the pieces extracted from an X-Signature header.
type signatureParts struct {
	ts   string
	hash string
}

// parseSignatureHeader splits "ts=...,v1=..." into its parts. Both pairs are
// required; unknown pairs are ignored.
func parseSignatureHeader(header string) (signatureParts, error) {
	var parts signatureParts
	for _, segment := range strings.Split(header, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			parts.ts = strings.TrimSpace(value)
		case "v1":
			parts.hash = strings.TrimSpace(value)
		}
	}
	if parts.ts == "" || parts.hash == "" {
		return signatureParts{}, domain.ErrMalformedSignature
	}
	return parts, nil
}

// manifest builds the canonical string the gateway signs. The data id is
// lowercased, matching the gateway's canonicalization of alphanumeric ids.
func manifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
}

// validSignature recomputes the HMAC over the manifest and compares it to
// the presented hash in constant time.
func validSignature(secret, dataID, requestID string, parts signatureParts) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest(dataID, requestID, parts.ts)))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(parts.hash)))
}
