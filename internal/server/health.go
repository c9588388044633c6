package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) StatusReport(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"environment": s.cfg.Environment,
		"sandbox":     s.cfg.Sandbox,
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
		"features": gin.H{
			"webhook_signature": configured(s.cfg.WebhookSecret),
			"email":             configured(s.cfg.BrevoAPIKey) || configured(s.cfg.SMTPHost),
			"push":              configured(s.cfg.PushoverUserKey) && configured(s.cfg.PushoverAppToken),
		},
	})
}

// Environment exposes the non-secret config the frontend needs to boot the
// checkout widget, plus presence flags for everything else.
func (s *Server) Environment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment":        s.cfg.Environment,
		"public_key":         s.cfg.PublicKey,
		"sandbox":            s.cfg.Sandbox,
		"access_token_set":   configured(s.cfg.AccessToken),
		"webhook_secret_set": configured(s.cfg.WebhookSecret),
	})
}

func configured(value string) bool {
	return strings.TrimSpace(value) != ""
}
