// Package providers assembles the configured notifier set.
package providers

import (
	"strings"

	"github.com/renatoambrosi/backmercadopro/internal/config"
	"github.com/renatoambrosi/backmercadopro/internal/notify"
	"github.com/renatoambrosi/backmercadopro/internal/notify/brevo"
	"github.com/renatoambrosi/backmercadopro/internal/notify/pushover"
	"github.com/renatoambrosi/backmercadopro/internal/notify/smtpmail"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify",
	fx.Provide(Build),
)

// Build wires every notifier the config has credentials for. Missing
// credentials skip that notifier with a log line rather than failing startup.
func Build(cfg config.Config, log *zap.Logger) []notify.Notifier {
	var notifiers []notify.Notifier

	switch {
	case strings.TrimSpace(cfg.BrevoAPIKey) != "":
		notifiers = append(notifiers,
			brevo.NewCustomer(cfg.BrevoAPIKey, cfg.SenderName, cfg.SenderEmail, cfg.SuccessURL(), log),
			brevo.NewAdmin(cfg.BrevoAPIKey, cfg.SenderName, cfg.SenderEmail, cfg.AdminEmail, log),
		)
	case strings.TrimSpace(cfg.SMTPHost) != "" && strings.TrimSpace(cfg.SMTPUser) != "":
		from := cfg.MailFrom
		if strings.TrimSpace(from) == "" {
			from = cfg.SenderEmail
		}
		notifiers = append(notifiers,
			smtpmail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, from, cfg.SuccessURL(), log),
		)
	default:
		log.Warn("no email credentials configured, email notifications disabled")
	}

	if strings.TrimSpace(cfg.PushoverUserKey) != "" && strings.TrimSpace(cfg.PushoverAppToken) != "" {
		notifiers = append(notifiers, pushover.New(cfg.PushoverUserKey, cfg.PushoverAppToken, log))
	} else {
		log.Warn("pushover not configured, push notifications disabled")
	}

	return notifiers
}
