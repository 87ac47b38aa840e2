package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/renewal"
	"github.com/dmitrymomot/certkit/core/store"
)

// Hook delivers renewal lifecycle events through a Sender.
type Hook struct {
	renewal.BaseHook

	sender  Sender
	sendTo  string
	subject string
	log     *slog.Logger
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithHookLogger sets the logger for delivery failures.
func WithHookLogger(log *slog.Logger) HookOption {
	return func(h *Hook) {
		if log != nil {
			h.log = log
		}
	}
}

// WithSubjectPrefix overrides the default subject prefix.
func WithSubjectPrefix(prefix string) HookOption {
	return func(h *Hook) {
		if prefix != "" {
			h.subject = prefix
		}
	}
}

// NewHook creates a renewal hook that notifies sendTo on renewal
// outcomes. An empty sendTo is allowed for channel-addressed senders
// (chat webhooks); email senders reject it at delivery time.
func NewHook(sender Sender, sendTo string, opts ...HookOption) (*Hook, error) {
	if sendTo != "" && !IsValidEmail(sendTo) {
		return nil, fmt.Errorf("%w: recipient %q", ErrInvalidConfig, sendTo)
	}

	h := &Hook{
		sender:  sender,
		sendTo:  sendTo,
		subject: "certkit",
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Hook) OnRenewalSucceeded(ctx context.Context, result *renewal.Result) {
	cert := result.Certificate
	var body strings.Builder
	fmt.Fprintf(&body, "<p>Certificate %s (%s).</p>",
		actionText(result.Status), html.EscapeString(strings.Join(cert.Domains(), ", ")))
	fmt.Fprintf(&body, "<p>Thumbprint: %s<br>Valid until: %s</p>",
		cert.Thumbprint(), cert.NotAfter().Format("2006-01-02 15:04 MST"))

	h.send(ctx, Message{
		SendTo:   h.sendTo,
		Subject:  fmt.Sprintf("[%s] certificate %s", h.subject, actionText(result.Status)),
		BodyHTML: body.String(),
		Tag:      "cert-renewal",
	})
}

func (h *Hook) OnException(ctx context.Context, err error) {
	h.send(ctx, Message{
		SendTo:   h.sendTo,
		Subject:  fmt.Sprintf("[%s] renewal problem", h.subject),
		BodyHTML: fmt.Sprintf("<p>Certificate renewal reported an error:</p><pre>%s</pre>", html.EscapeString(err.Error())),
		Tag:      "cert-renewal-error",
	})
}

func (h *Hook) send(ctx context.Context, msg Message) {
	if err := h.sender.Send(ctx, msg); err != nil {
		h.log.ErrorContext(ctx, "failed to send notification",
			slog.String("subject", msg.Subject),
			logger.Error(err))
	}
}

func actionText(status renewal.Status) string {
	switch status {
	case renewal.StatusRenewed:
		return "renewed"
	case renewal.StatusLoadedFromStore:
		return "loaded from store"
	}
	return string(status)
}

// StoreNotifier emails persistence events from the fan-out store. It only
// reports site bundles; account key writes are routine noise.
type StoreNotifier struct {
	sender  Sender
	sendTo  string
	subject string
}

var _ store.Notifier = (*StoreNotifier)(nil)

// NewStoreNotifier creates a store notifier reporting to sendTo. As with
// NewHook, sendTo may be empty for channel-addressed senders.
func NewStoreNotifier(sender Sender, sendTo string) (*StoreNotifier, error) {
	if sendTo != "" && !IsValidEmail(sendTo) {
		return nil, fmt.Errorf("%w: recipient %q", ErrInvalidConfig, sendTo)
	}
	return &StoreNotifier{sender: sender, sendTo: sendTo, subject: "certkit"}, nil
}

func (n *StoreNotifier) Notify(ctx context.Context, kind store.CertKind, data []byte) error {
	if kind != store.KindSiteBundle {
		return nil
	}
	return n.sender.Send(ctx, Message{
		SendTo:   n.sendTo,
		Subject:  fmt.Sprintf("[%s] certificate bundle stored", n.subject),
		BodyHTML: fmt.Sprintf("<p>A new certificate bundle was written to storage (%d bytes).</p>", len(data)),
		Tag:      "cert-stored",
	})
}
