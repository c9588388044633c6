package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries every deployment knob. Only the Mercado Pago access token is
// mandatory; everything else degrades gracefully when absent.
type Config struct {
	Port        string `env:"PORT" envDefault:"3001"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3001"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	ResultURL   string `env:"RESULT_URL"`

	AccessToken   string `env:"MERCADOPAGO_ACCESS_TOKEN"`
	PublicKey     string `env:"MERCADOPAGO_PUBLIC_KEY"`
	WebhookSecret string `env:"MERCADOPAGO_WEBHOOK_SECRET"`
	GatewayAPIURL string `env:"MERCADOPAGO_API_URL" envDefault:"https://api.mercadopago.com"`
	Sandbox       bool   `env:"MERCADOPAGO_SANDBOX" envDefault:"false"`
	TestChargeID  string `env:"MERCADOPAGO_TEST_PAYMENT_ID" envDefault:"123456"`

	RequireUID          bool     `env:"REQUIRE_UID" envDefault:"false"`
	StatementDescriptor string   `env:"STATEMENT_DESCRIPTOR" envDefault:"SUA LOJA"`
	ExcludedMethods     []string `env:"EXCLUDED_PAYMENT_METHODS" envSeparator:","`
	ExcludedTypes       []string `env:"EXCLUDED_PAYMENT_TYPES" envSeparator:"," envDefault:"ticket"`

	BrevoAPIKey string `env:"BREVO_API_KEY"`
	SenderEmail string `env:"SENDER_EMAIL" envDefault:"sistema@suellenseragi.com.br"`
	SenderName  string `env:"SENDER_NAME" envDefault:"Sistema de Pagamentos"`
	AdminEmail  string `env:"ADMIN_EMAIL" envDefault:"contato@suellenseragi.com.br"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM"`

	PushoverUserKey  string `env:"PUSHOVER_USER_KEY"`
	PushoverAppToken string `env:"PUSHOVER_APP_TOKEN"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"backmercadopro.db"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"3s"`
	PollDeadline time.Duration `env:"POLL_DEADLINE" envDefault:"5m"`
	GeoTimeout   time.Duration `env:"GEO_TIMEOUT" envDefault:"2500ms"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string  `env:"TRACING_ENDPOINT"`
	TracingProtocol string  `env:"TRACING_PROTOCOL" envDefault:"grpc"`
	TracingSampling float64 `env:"TRACING_SAMPLING_RATIO" envDefault:"0.1"`
	ServiceVersion  string  `env:"SERVICE_VERSION" envDefault:"dev"`
}

var ErrMissingAccessToken = errors.New("missing_access_token")

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return Config{}, ErrMissingAccessToken
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// WebhookURL is the fully qualified notification endpoint handed to the gateway.
func (c Config) WebhookURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/webhook"
}

// SuccessURL is the configured landing page for approved payments. The uid is
// appended by the preference builder, not here.
func (c Config) SuccessURL() string {
	if strings.TrimSpace(c.ResultURL) != "" {
		return c.ResultURL
	}
	return strings.TrimRight(c.FrontendURL, "/") + "/success"
}

func (c Config) FailureURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/failure"
}

func (c Config) PendingURL() string {
	return strings.TrimRight(c.FrontendURL, "/") + "/pending"
}
