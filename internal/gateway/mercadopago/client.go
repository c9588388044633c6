// Package mercadopago implements the gateway contract against the Mercado
// Pago REST API.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/renatoambrosi/backmercadopro/internal/gateway"
	"github.com/renatoambrosi/backmercadopro/internal/observability/tracing"
	"go.uber.org/zap"
)

const defaultTimeout = 7 * time.Second

type Client struct {
	baseURL     string
	accessToken string
	sandbox     bool
	httpClient  *http.Client
	log         *zap.Logger
}

type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSandbox switches the created preference's redirect to the sandbox
// init point.
func WithSandbox(sandbox bool) Option {
	return func(c *Client) {
		c.sandbox = sandbox
	}
}

func New(baseURL, accessToken string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  tracing.WrapHTTPClient(&http.Client{Timeout: defaultTimeout}),
		log:         log.Named("gateway.mercadopago"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type preferencePayload struct {
	Items               []preferenceItem  `json:"items"`
	BackURLs            preferenceBack    `json:"back_urls"`
	AutoReturn          string            `json:"auto_return"`
	NotificationURL     string            `json:"notification_url"`
	StatementDescriptor string            `json:"statement_descriptor,omitempty"`
	ExternalReference   string            `json:"external_reference"`
	PaymentMethods      preferenceMethods `json:"payment_methods"`
	Metadata            map[string]any    `json:"metadata,omitempty"`
	AdditionalInfo      map[string]any    `json:"additional_info,omitempty"`
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceBack struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceMethods struct {
	ExcludedPaymentMethods []excludedEntry `json:"excluded_payment_methods"`
	ExcludedPaymentTypes   []excludedEntry `json:"excluded_payment_types"`
}

type excludedEntry struct {
	ID string `json:"id"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

func (c *Client) Create(ctx context.Context, req gateway.ChargeRequest) (*gateway.CreatedCharge, error) {
	payload := preferencePayload{
		Items: []preferenceItem{{
			Title:      req.Title,
			Quantity:   req.Quantity,
			UnitPrice:  req.UnitPrice,
			CurrencyID: req.Currency,
		}},
		BackURLs: preferenceBack{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Pending: req.PendingURL,
		},
		AutoReturn:          "approved",
		NotificationURL:     req.NotificationURL,
		StatementDescriptor: req.StatementDescriptor,
		ExternalReference:   req.CorrelationKey,
		PaymentMethods: preferenceMethods{
			ExcludedPaymentMethods: toExcluded(req.ExcludedMethods),
			ExcludedPaymentTypes:   toExcluded(req.ExcludedTypes),
		},
		Metadata:       req.Metadata,
		AdditionalInfo: req.AdditionalInfo,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	var resp preferenceResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}

	redirect := resp.InitPoint
	if c.sandbox && resp.SandboxInitPoint != "" {
		redirect = resp.SandboxInitPoint
	}
	return &gateway.CreatedCharge{ID: resp.ID, RedirectURL: redirect}, nil
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	PaymentMethodID   string      `json:"payment_method_id"`
	LiveMode          bool        `json:"live_mode"`
	DateCreated       time.Time   `json:"date_created"`
	DateApproved      *time.Time  `json:"date_approved"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

func (c *Client) Get(ctx context.Context, chargeID string) (*gateway.ChargeDetails, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+url.PathEscape(chargeID), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	var resp paymentResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	details := toDetails(resp)
	return &details, nil
}

type searchResponse struct {
	Results []paymentResponse `json:"results"`
}

func (c *Client) SearchByCorrelationKey(ctx context.Context, key string) ([]gateway.ChargeDetails, error) {
	endpoint := c.baseURL + "/v1/payments/search?sort=date_created&criteria=desc&external_reference=" + url.QueryEscape(key)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	var resp searchResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}

	details := make([]gateway.ChargeDetails, 0, len(resp.Results))
	for _, result := range resp.Results {
		details = append(details, toDetails(result))
	}
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].CreatedAt.After(details[j].CreatedAt)
	})
	return details, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &gateway.GatewayError{Code: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &gateway.GatewayError{Code: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusNotFound {
		return gateway.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("gateway call failed",
			zap.Int("status", resp.StatusCode),
			zap.String("path", req.URL.Path),
		)
		return &gateway.GatewayError{Code: resp.StatusCode, Message: remoteMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

func toDetails(p paymentResponse) gateway.ChargeDetails {
	return gateway.ChargeDetails{
		ID:             p.ID.String(),
		Status:         gateway.Status(p.Status),
		StatusDetail:   p.StatusDetail,
		CorrelationKey: p.ExternalReference,
		Amount:         p.TransactionAmount,
		Method:         p.PaymentMethodID,
		PayerEmail:     p.Payer.Email,
		LiveMode:       p.LiveMode,
		CreatedAt:      p.DateCreated,
		ApprovedAt:     p.DateApproved,
	}
}

func toExcluded(ids []string) []excludedEntry {
	entries := make([]excludedEntry, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		entries = append(entries, excludedEntry{ID: id})
	}
	return entries
}

func remoteMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return "request rejected by gateway"
}
