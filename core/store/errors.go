package store

import "errors"

var (
	// ErrAllBackendsFailed is returned when a fan-out write was rejected by
	// every registered backend, leaving nothing durable.
	ErrAllBackendsFailed = errors.New("all store backends failed")

	// ErrBasePathRequired is returned when a file backend is created
	// without a base directory.
	ErrBasePathRequired = errors.New("base path is required")

	// ErrPrefixRequired is returned when a file backend is created without
	// a file prefix.
	ErrPrefixRequired = errors.New("file prefix is required")

	// ErrUnknownCertKind is returned for a certificate kind the backend
	// has no artifact mapping for.
	ErrUnknownCertKind = errors.New("unknown certificate kind")
)
