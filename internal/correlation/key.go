// Package correlation encodes the external reference binding an internal
// user identifier to a gateway charge.
package correlation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedKey = errors.New("malformed_correlation_key")
	ErrInvalidUID   = errors.New("invalid_uid")
)

// Key joins an internal uid to a charge via the gateway's external_reference
// echo. Wire format: {uid}-{creation epoch millis}.
type Key struct {
	UID       string
	CreatedAt time.Time
}

// New builds a key for uid at the given instant. Dashes inside the uid are
// tolerated because Parse splits at the last delimiter and validates the
// numeric suffix, so the uid round-trips intact.
func New(uid string, at time.Time) (Key, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" || strings.HasSuffix(uid, "-") {
		return Key{}, ErrInvalidUID
	}
	for _, r := range uid {
		if !isUIDRune(r) {
			return Key{}, ErrInvalidUID
		}
	}
	return Key{UID: uid, CreatedAt: at.UTC()}, nil
}

// NewAuto builds a key with a generated uid for anonymous checkouts.
func NewAuto(at time.Time) Key {
	return Key{
		UID:       fmt.Sprintf("auto_%d", at.UnixMilli()),
		CreatedAt: at.UTC(),
	}
}

// Parse recovers a key from its wire form. The split happens at the last
// delimiter so uids from older deployments that contained dashes still parse
// to the full uid.
func Parse(raw string) (Key, error) {
	raw = strings.TrimSpace(raw)
	idx := strings.LastIndex(raw, "-")
	if idx <= 0 || idx == len(raw)-1 {
		return Key{}, ErrMalformedKey
	}
	millis, err := strconv.ParseInt(raw[idx+1:], 10, 64)
	if err != nil || millis < 0 {
		return Key{}, ErrMalformedKey
	}
	return Key{
		UID:       raw[:idx],
		CreatedAt: time.UnixMilli(millis).UTC(),
	}, nil
}

// UIDOf is a convenience for callers that only need the uid and tolerate
// malformed references by falling back to the raw value.
func UIDOf(raw string) string {
	key, err := Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return key.UID
}

func (k Key) String() string {
	return k.UID + "-" + strconv.FormatInt(k.CreatedAt.UnixMilli(), 10)
}

func isUIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	}
	return false
}
