// Package smtpmail is the SMTP fallback for deployments without a Brevo API
// key.
package smtpmail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/renatoambrosi/backmercadopro/internal/notify"
	"go.uber.org/zap"
)

type Sender struct {
	host      string
	port      string
	user      string
	pass      string
	from      string
	resultURL string
	log       *zap.Logger

	// send is swappable for tests.
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func New(host, port, user, pass, from, resultURL string, log *zap.Logger) *Sender {
	return &Sender{
		host:      host,
		port:      port,
		user:      user,
		pass:      pass,
		from:      from,
		resultURL: resultURL,
		log:       log.Named("notify.smtp"),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *Sender) Kind() notify.Kind {
	return notify.KindEmail
}

func (s *Sender) Notify(ctx context.Context, event notify.Event) error {
	if strings.TrimSpace(event.PayerEmail) == "" {
		s.log.Warn("payer email missing, customer email skipped",
			zap.String("correlation_key", event.CorrelationKey))
		return nil
	}

	link := s.resultURL + "?uid=" + event.UID
	e := email.NewEmail()
	e.From = s.from
	e.To = []string{event.PayerEmail}
	e.Subject = "Pagamento confirmado - Resultado do Teste"
	e.Text = []byte(fmt.Sprintf(
		"Seu pagamento foi aprovado.\n\nAcesse seu resultado: %s\n", link))

	addr := s.host + ":" + s.port
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	return s.send(e, addr, auth)
}
