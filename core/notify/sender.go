package notify

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrInvalidConfig indicates missing or malformed sender settings.
	ErrInvalidConfig = errors.New("notify: invalid configuration")

	// ErrFailedToSend indicates the delivery channel rejected the message.
	ErrFailedToSend = errors.New("notify: failed to send message")

	// ErrNoRecipient indicates a message without a destination address.
	ErrNoRecipient = errors.New("notify: recipient is required")

	// ErrEmptySubject indicates a message without a subject.
	ErrEmptySubject = errors.New("notify: subject is required")
)

// Message is one notification to deliver.
type Message struct {
	// SendTo is the recipient address.
	SendTo string

	// Subject line.
	Subject string

	// BodyHTML is the HTML payload.
	BodyHTML string

	// Tag groups related messages for provider-side analytics.
	Tag string
}

// Validate checks the message for required fields.
func (m Message) Validate() error {
	if m.SendTo == "" || !IsValidEmail(m.SendTo) {
		return ErrNoRecipient
	}
	if m.Subject == "" {
		return ErrEmptySubject
	}
	return nil
}

// Sender delivers notifications. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks if the provided string is a valid email address.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
