// Package postmark delivers certificate notifications through Postmark's
// transactional email API.
package postmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/certkit/core/notify"
)

// Config holds Postmark credentials and sender identity, populated from
// the environment in deployments.
type Config struct {
	ServerToken  string `env:"CERT_POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"CERT_POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"CERT_POSTMARK_SENDER_EMAIL"`
}

type Client struct {
	client *postmark.Client
	config Config
}

var _ notify.Sender = (*Client)(nil)

// New creates a Postmark-backed sender. Both tokens are required so a
// misconfigured deployment fails at startup instead of dropping
// notifications silently.
func New(cfg Config) (*Client, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", notify.ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", notify.ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" || !notify.IsValidEmail(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", notify.ErrInvalidConfig)
	}

	return &Client{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

// Send implements notify.Sender using Postmark's transactional API.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:     c.config.SenderEmail,
		To:       msg.SendTo,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.BodyHTML,
	})
	if err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			notify.ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
