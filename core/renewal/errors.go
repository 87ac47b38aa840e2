package renewal

import "errors"

var (
	// ErrNoDomains indicates the configuration lists no domains to order
	// certificates for.
	ErrNoDomains = errors.New("renewal: at least one domain is required")

	// ErrRenewalInProgress indicates an explicit renewal request was
	// rejected because a cycle is already running.
	ErrRenewalInProgress = errors.New("renewal: cycle already in progress")

	// ErrNoCertificate indicates a TLS handshake arrived before any
	// certificate was acquired.
	ErrNoCertificate = errors.New("renewal: no certificate available yet")

	// ErrServiceStopped indicates an operation on a stopped service.
	ErrServiceStopped = errors.New("renewal: service is stopped")

	// ErrPortsUnreachable indicates the serving ports do not answer from
	// the outside and the prober could not open them.
	ErrPortsUnreachable = errors.New("renewal: serving ports unreachable")

	// ErrInvalidFailMode indicates an unrecognized failure mode value.
	ErrInvalidFailMode = errors.New("renewal: invalid fail mode")
)
