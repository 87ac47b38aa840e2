package renewal

import "github.com/dmitrymomot/certkit/core/certs"

// Status describes how a renewal cycle resolved.
type Status string

const (
	// StatusUnchanged means the certificate already in use is still valid.
	StatusUnchanged Status = "unchanged"

	// StatusLoadedFromStore means a valid certificate was found in the
	// store and no order was placed.
	StatusLoadedFromStore Status = "loaded_from_store"

	// StatusRenewed means a full ACME order produced a new certificate.
	StatusRenewed Status = "renewed"
)

// Result is the outcome of one renewal cycle.
type Result struct {
	Status      Status
	Certificate *certs.Certificate
}
