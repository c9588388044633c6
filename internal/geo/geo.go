// Package geo provides best-effort IP geolocation used to enrich charge
// creation. Lookups never fail the checkout path.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/renatoambrosi/backmercadopro/internal/cache"
	"github.com/renatoambrosi/backmercadopro/internal/observability/tracing"
	"go.uber.org/zap"
)

const cacheTTL = 1 * time.Hour

// Data is what a successful lookup yields. Any field may be empty.
type Data struct {
	IP          string  `json:"ip"`
	City        string  `json:"city_name,omitempty"`
	State       string  `json:"state_name,omitempty"`
	CountryName string  `json:"country_name,omitempty"`
	ZipCode     string  `json:"zip_code,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// Resolver looks up geodata for a caller IP. A nil result means "no data".
type Resolver interface {
	Lookup(ctx context.Context, ip string) *Data
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cache      cache.Cache[string, *Data]
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

func WithCache(store cache.Cache[string, *Data]) Option {
	return func(c *Client) {
		c.cache = store
	}
}

func New(timeout time.Duration, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://ipapi.co",
		timeout:    timeout,
		httpClient: tracing.WrapHTTPClient(&http.Client{}),
		cache:      cache.NewTTLCache[string, *Data](),
		log:        log.Named("geo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves geodata for ip. Private, loopback, and unparseable
// addresses short-circuit to nil; remote failures are logged and swallowed.
func (c *Client) Lookup(ctx context.Context, ip string) *Data {
	cleaned := CleanIP(ip)
	if cleaned == "" {
		return nil
	}
	if cached, ok := c.cache.Get(cleaned); ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/json/", c.baseURL, url.PathEscape(cleaned))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("geo lookup failed", zap.String("ip", cleaned), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("geo lookup rejected", zap.String("ip", cleaned), zap.Int("status", resp.StatusCode))
		return nil
	}

	var payload struct {
		Error       bool    `json:"error"`
		City        string  `json:"city"`
		Region      string  `json:"region"`
		CountryName string  `json:"country_name"`
		Postal      string  `json:"postal"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Debug("geo decode failed", zap.String("ip", cleaned), zap.Error(err))
		return nil
	}

	data := &Data{IP: cleaned}
	if !payload.Error {
		data.City = payload.City
		data.State = payload.Region
		data.CountryName = payload.CountryName
		data.ZipCode = payload.Postal
		data.Latitude = payload.Latitude
		data.Longitude = payload.Longitude
	}
	c.cache.Set(cleaned, data, cacheTTL)
	return data
}

// CleanIP normalizes a forwarded address: first hop only, IPv4-mapped prefix
// stripped, loopback/private rejected.
func CleanIP(ip string) string {
	cleaned := strings.TrimSpace(strings.Split(ip, ",")[0])
	cleaned = strings.TrimPrefix(cleaned, "::ffff:")
	if cleaned == "" {
		return ""
	}
	parsed := net.ParseIP(cleaned)
	if parsed == nil {
		return ""
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return ""
	}
	return cleaned
}
