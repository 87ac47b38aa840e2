// Package smtp delivers certificate notifications over plain SMTP.
// Supports STARTTLS, direct TLS, and unencrypted connections.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/certkit/core/notify"
)

// Config holds SMTP server configuration, populated from the environment
// in deployments. All fields are required for runtime operation.
type Config struct {
	Host        string `env:"CERT_SMTP_HOST"`
	Port        int    `env:"CERT_SMTP_PORT" envDefault:"587"`
	Username    string `env:"CERT_SMTP_USERNAME"`
	Password    string `env:"CERT_SMTP_PASSWORD"`
	TLSMode     string `env:"CERT_SMTP_TLS_MODE" envDefault:"starttls"` // starttls, tls, or plain
	SenderEmail string `env:"CERT_SMTP_SENDER_EMAIL"`
}

type Client struct {
	config Config
	auth   smtp.Auth
}

var _ notify.Sender = (*Client)(nil)

// New creates an SMTP-backed sender.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: Host is required", notify.ErrInvalidConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: Port must be between 1 and 65535", notify.ErrInvalidConfig)
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("%w: Username is required", notify.ErrInvalidConfig)
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("%w: Password is required", notify.ErrInvalidConfig)
	}
	if cfg.TLSMode != "starttls" && cfg.TLSMode != "tls" && cfg.TLSMode != "plain" {
		return nil, fmt.Errorf("%w: TLSMode must be starttls, tls, or plain", notify.ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" || !notify.IsValidEmail(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", notify.ErrInvalidConfig)
	}

	return &Client{
		config: cfg,
		auth:   smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
	}, nil
}

// Send implements notify.Sender over an SMTP transaction.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	message := c.buildMessage(msg)
	serverAddr := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))

	var err error
	switch c.config.TLSMode {
	case "tls":
		err = c.sendWithTLS(serverAddr, msg.SendTo, message)
	case "starttls":
		err = c.sendWithSTARTTLS(serverAddr, msg.SendTo, message)
	case "plain":
		err = c.sendPlain(serverAddr, msg.SendTo, message)
	}
	if err != nil {
		return errors.Join(notify.ErrFailedToSend, err)
	}
	return nil
}

func (c *Client) buildMessage(msg notify.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.config.SenderEmail)
	fmt.Fprintf(&b, "To: %s\r\n", msg.SendTo)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%d.%s@%s>\r\n",
		time.Now().UnixNano(),
		strings.ReplaceAll(msg.Tag, " ", "_"),
		c.config.Host)
	b.WriteString("\r\n")
	b.WriteString(msg.BodyHTML)
	return []byte(b.String())
}

func (c *Client) sendWithTLS(serverAddr, recipient string, message []byte) error {
	conn, err := tls.Dial("tcp", serverAddr, &tls.Config{ServerName: c.config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server with TLS: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, c.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	return c.transact(client, recipient, message)
}

func (c *Client) sendWithSTARTTLS(serverAddr, recipient string, message []byte) error {
	client, err := smtp.Dial(serverAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.StartTLS(&tls.Config{ServerName: c.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	return c.transact(client, recipient, message)
}

func (c *Client) sendPlain(serverAddr, recipient string, message []byte) error {
	client, err := smtp.Dial(serverAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	return c.transact(client, recipient, message)
}

func (c *Client) transact(client *smtp.Client, recipient string, message []byte) error {
	if err := client.Auth(c.auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if err := client.Mail(c.config.SenderEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// Quit errors are non-fatal, some servers close the connection right
	// after DATA.
	_ = client.Quit()
	return nil
}
