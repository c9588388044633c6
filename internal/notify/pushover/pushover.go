// Package pushover delivers push notifications through the Pushover API.
package pushover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/renatoambrosi/backmercadopro/internal/notify"
	"github.com/renatoambrosi/backmercadopro/internal/observability/tracing"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

type Notifier struct {
	endpoint   string
	userKey    string
	appToken   string
	httpClient *http.Client
	log        *zap.Logger
}

type Option func(*Notifier)

func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) {
		n.httpClient = hc
	}
}

func WithEndpoint(endpoint string) Option {
	return func(n *Notifier) {
		n.endpoint = endpoint
	}
}

func New(userKey, appToken string, log *zap.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		endpoint:   "https://api.pushover.net/1/messages.json",
		userKey:    userKey,
		appToken:   appToken,
		httpClient: tracing.WrapHTTPClient(&http.Client{Timeout: defaultTimeout}),
		log:        log.Named("notify.pushover"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Kind() notify.Kind {
	return notify.KindPush
}

func (n *Notifier) Notify(ctx context.Context, event notify.Event) error {
	message := strings.Join([]string{
		"ID: " + event.ChargeID,
		fmt.Sprintf("Valor: R$ %.2f", event.Amount),
		"UID: " + event.UID,
		"Email: " + orDefault(event.PayerEmail, "n/d"),
	}, "\n")

	form := url.Values{}
	form.Set("token", n.appToken)
	form.Set("user", n.userKey)
	form.Set("title", "Pagamento Aprovado")
	form.Set("message", message)
	form.Set("priority", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pushover rejected notification: status %d", resp.StatusCode)
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
