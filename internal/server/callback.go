package server

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/renatoambrosi/backmercadopro/internal/correlation"
)

// Callback receives the gateway's browser redirect after checkout and
// forwards the user to the page matching the reported outcome.
func (s *Server) Callback(c *gin.Context) {
	status := c.Query("status")

	var target string
	switch status {
	case "approved", "success":
		target = s.cfg.SuccessURL()
	case "pending", "in_process":
		target = s.cfg.PendingURL()
	case "":
		target = s.cfg.SuccessURL()
	default:
		target = s.cfg.FailureURL()
	}

	dest, err := url.Parse(target)
	if err != nil || target == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	q := dest.Query()
	if ref := c.Query("external_reference"); ref != "" {
		q.Set("uid", correlation.UIDOf(ref))
	}
	if status != "" {
		q.Set("status", status)
	}
	if paymentID := c.Query("payment_id"); paymentID != "" {
		q.Set("payment_id", paymentID)
	}
	dest.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, dest.String())
}
