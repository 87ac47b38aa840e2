// Package slack delivers certificate notifications to a Slack channel
// through an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/certkit/core/notify"
)

// Config holds the webhook destination, populated from the environment in
// deployments. The channel and username are optional; the webhook's own
// defaults apply when they are empty.
type Config struct {
	WebhookURL string `env:"CERT_SLACK_WEBHOOK_URL"`
	Channel    string `env:"CERT_SLACK_CHANNEL"`
	Username   string `env:"CERT_SLACK_USERNAME" envDefault:"certkit"`
}

type Client struct {
	config     Config
	httpClient *http.Client
}

var _ notify.Sender = (*Client)(nil)

// New creates a webhook-backed sender.
func New(cfg Config) (*Client, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("%w: WebhookURL is required", notify.ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: WebhookURL must be an absolute http(s) URL", notify.ErrInvalidConfig)
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type payload struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// Send implements notify.Sender. The recipient address is an email-channel
// concern and is ignored here; the webhook decides the destination.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if msg.Subject == "" {
		return notify.ErrEmptySubject
	}

	text := "*" + msg.Subject + "*"
	if body := plainText(msg.BodyHTML); body != "" {
		text += "\n" + body
	}

	body, err := json.Marshal(payload{
		Channel:  c.config.Channel,
		Username: c.config.Username,
		Text:     text,
	})
	if err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Join(
			notify.ErrFailedToSend,
			fmt.Errorf("slack webhook: %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		)
	}
	return nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// plainText flattens the HTML body notify hooks produce into webhook text.
func plainText(s string) string {
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "</p>", "\n")
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}
