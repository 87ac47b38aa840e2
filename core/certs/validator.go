package certs

import (
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/certkit/core/logger"
)

// Policy is the renewal-window policy the validator applies.
type Policy struct {
	// RenewBeforeExpiry invalidates a certificate when less than this
	// duration of its validity remains.
	RenewBeforeExpiry time.Duration

	// RenewAfterIssued invalidates a certificate once it has been in use
	// for longer than this duration, regardless of remaining validity.
	// Zero disables the age check.
	RenewAfterIssued time.Duration
}

// Validator decides whether a certificate is still usable under the
// renewal-window policy. The zero decision for anything unreadable or
// absent is "not valid", which triggers renewal upstream.
type Validator struct {
	policy Policy
	now    func() time.Time
	log    *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger used for validation decisions.
func WithValidatorLogger(log *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if log != nil {
			v.log = log
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator creates a validator for the given policy.
func NewValidator(policy Policy, opts ...ValidatorOption) *Validator {
	v := &Validator{
		policy: policy,
		now:    time.Now,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsValid reports whether cert is usable right now. A nil certificate is
// not valid. A certificate expiring in exactly RenewBeforeExpiry or less
// is not valid, and one issued longer than RenewAfterIssued ago is not
// valid even if far from expiry.
func (v *Validator) IsValid(cert *Certificate) bool {
	if cert == nil {
		return false
	}

	now := v.now()
	notBefore, notAfter := cert.NotBefore(), cert.NotAfter()

	v.log.Debug("validating certificate",
		logger.Thumbprint(cert.Thumbprint()),
		slog.Time("not_before", notBefore),
		slog.Time("not_after", notAfter),
		slog.Duration("renew_before_expiry", v.policy.RenewBeforeExpiry),
		slog.Duration("renew_after_issued", v.policy.RenewAfterIssued))

	// A certificate with exactly RenewBeforeExpiry left is already due.
	if notAfter.Sub(now) <= v.policy.RenewBeforeExpiry {
		return false
	}
	if v.policy.RenewAfterIssued > 0 && now.Sub(notBefore) > v.policy.RenewAfterIssued {
		return false
	}

	return !notBefore.After(now) && !notAfter.Before(now)
}
