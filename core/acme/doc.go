// Package acme executes a single certificate order against an ACME
// certificate authority: place the order, extract the challenges to be
// persisted and served, poll validation to a terminal state, and finalize
// into a signed chain.
//
// The wire protocol is delegated to golang.org/x/crypto/acme; this package
// owns the order choreography and its failure semantics. It performs no
// retries of its own: any CA-level or network error surfaces to the
// caller, and retry policy lives entirely in the renewal service.
//
// AccountFactory memoizes one ACME account context per process. The account
// key is loaded from the store when present (re-attaching to the existing
// CA account) or generated, registered, and persisted on first use.
package acme
