package acme

import "errors"

var (
	// ErrOrderInvalid indicates the CA rejected one or more challenges and
	// the order reached the invalid state. Per-challenge CA errors are
	// attached to it via errors.Join.
	ErrOrderInvalid = errors.New("acme: order validation failed")

	// ErrNoChallenges indicates the CA returned no authorization the
	// client could satisfy with its configured challenge type.
	ErrNoChallenges = errors.New("acme: no usable challenges in order")

	// ErrEmptyChain indicates finalization succeeded but the CA returned
	// an empty certificate chain.
	ErrEmptyChain = errors.New("acme: empty certificate chain from CA")

	// ErrEmailRequired indicates account registration was attempted
	// without a contact email.
	ErrEmailRequired = errors.New("acme: contact email is required")
)
