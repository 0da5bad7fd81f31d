// Package email sends transactional mail through an HTTP email API.
// Delivery is a non-critical side effect: failures are logged and reported
// as a boolean, never as an error that could roll back a committed mutation.
package email

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// InviteMessage contains the template data for an invitation notice.
type InviteMessage struct {
	To         string
	TenantName string
	Role       string
	AcceptURL  string
	ExpiresAt  time.Time
}

// Mailer delivers invitation notices.
type Mailer interface {
	// SendInvite delivers the notice. Returns false when delivery failed;
	// the invitation itself is unaffected either way.
	SendInvite(ctx context.Context, msg InviteMessage) bool
}

// Client is a Mailer backed by an HTTP email API.
type Client struct {
	http   *resty.Client
	apiURL string
	from   string
}

// NewClient creates a mailer for the given email API endpoint. An empty
// apiURL disables delivery (every send reports failure), which keeps
// development environments working without a mail provider.
func NewClient(apiURL, apiKey, from string, timeoutMS int) *Client {
	http := resty.New().
		SetTimeout(time.Duration(timeoutMS) * time.Millisecond).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   http,
		apiURL: apiURL,
		from:   from,
	}
}

type sendPayload struct {
	From     string         `json:"from"`
	To       []string       `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

func (c *Client) SendInvite(ctx context.Context, msg InviteMessage) bool {
	if c.apiURL == "" {
		log.Warn().Str("to", msg.To).Msg("Email delivery disabled, invite notice not sent")
		return false
	}

	payload := sendPayload{
		From:     c.from,
		To:       []string{msg.To},
		Subject:  "You have been invited to " + msg.TenantName,
		Template: "tenant-invite",
		Data: map[string]any{
			"tenant_name": msg.TenantName,
			"role":        msg.Role,
			"accept_url":  msg.AcceptURL,
			"expires_at":  msg.ExpiresAt.Format(time.RFC3339),
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.apiURL)
	if err != nil {
		log.Warn().Err(err).Str("to", msg.To).Msg("Failed to send invite email")
		return false
	}

	if resp.IsError() {
		log.Warn().
			Int("status_code", resp.StatusCode()).
			Str("to", msg.To).
			Msg("Email API rejected invite notice")
		return false
	}

	log.Info().
		Str("to", msg.To).
		Str("tenant", msg.TenantName).
		Msg("Invite email sent")
	return true
}
