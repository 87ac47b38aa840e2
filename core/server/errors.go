package server

import "errors"

var (
	// Server lifecycle errors
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrHTTPServer           = errors.New("HTTP server error")
	ErrHTTPSServer          = errors.New("HTTPS server error")

	// AutoTLS configuration errors
	ErrNoCertResolver    = errors.New("certificate resolver is required")
	ErrNoChallengeSource = errors.New("challenge source is required")
)
