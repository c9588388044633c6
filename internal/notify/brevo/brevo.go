// Package brevo sends transactional email through the Brevo REST API.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/renatoambrosi/backmercadopro/internal/notify"
	"github.com/renatoambrosi/backmercadopro/internal/observability/tracing"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

type Sender struct {
	kind        notify.Kind
	baseURL     string
	apiKey      string
	senderName  string
	senderEmail string
	adminEmail  string
	resultURL   string
	httpClient  *http.Client
	log         *zap.Logger
}

type Option func(*Sender)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *Sender) {
		s.httpClient = hc
	}
}

func WithBaseURL(base string) Option {
	return func(s *Sender) {
		s.baseURL = strings.TrimRight(base, "/")
	}
}

// NewCustomer builds the customer-facing approval email sender. resultURL is
// the page the uid query parameter is appended to.
func NewCustomer(apiKey, senderName, senderEmail, resultURL string, log *zap.Logger, opts ...Option) *Sender {
	return newSender(notify.KindEmail, apiKey, senderName, senderEmail, "", resultURL, log, opts...)
}

// NewAdmin builds the merchant-facing approval email sender, a second
// subscriber of the same approved event.
func NewAdmin(apiKey, senderName, senderEmail, adminEmail string, log *zap.Logger, opts ...Option) *Sender {
	return newSender(notify.KindAdminEmail, apiKey, senderName, senderEmail, adminEmail, "", log, opts...)
}

func newSender(kind notify.Kind, apiKey, senderName, senderEmail, adminEmail, resultURL string, log *zap.Logger, opts ...Option) *Sender {
	s := &Sender{
		kind:        kind,
		baseURL:     "https://api.brevo.com/v3",
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		adminEmail:  adminEmail,
		resultURL:   resultURL,
		httpClient:  tracing.WrapHTTPClient(&http.Client{Timeout: defaultTimeout}),
		log:         log.Named("notify.brevo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Kind() notify.Kind {
	return s.kind
}

func (s *Sender) Notify(ctx context.Context, event notify.Event) error {
	if s.kind == notify.KindAdminEmail {
		return s.send(ctx, s.adminEmail,
			fmt.Sprintf("Pagamento aprovado - UID %s", event.UID),
			fmt.Sprintf("<p>Cliente: %s</p><p>UID: %s</p><p>Pagamento: %s</p>",
				event.PayerEmail, event.UID, event.ChargeID),
		)
	}

	if strings.TrimSpace(event.PayerEmail) == "" {
		s.log.Warn("payer email missing, customer email skipped",
			zap.String("correlation_key", event.CorrelationKey))
		return nil
	}
	link := s.resultURL + "?uid=" + event.UID
	html := fmt.Sprintf(`
		<div style="font-family:Arial,Helvetica,sans-serif;color:#333">
			<h2>Seu pagamento foi aprovado</h2>
			<p>Obrigado! Seu pagamento foi confirmado com sucesso.</p>
			<p><a href="%s">Ver meu resultado agora</a></p>
			<p>Se o link não funcionar, copie e cole no navegador:</p>
			<p>%s</p>
		</div>`, link, link)
	return s.send(ctx, event.PayerEmail, "Pagamento confirmado - Resultado do Teste", html)
}

func (s *Sender) send(ctx context.Context, to, subject, html string) error {
	payload := map[string]any{
		"sender":      map[string]string{"name": s.senderName, "email": s.senderEmail},
		"to":          []map[string]string{{"email": to}},
		"subject":     subject,
		"htmlContent": html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("brevo rejected email: status %d", resp.StatusCode)
	}
	return nil
}
