package server

import (
	"crypto/tls"
)

// DefaultTLSConfig returns a secure default TLS configuration following
// Mozilla's Modern compatibility recommendations.
// Supports TLS 1.2+ with strong cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			// TLS 1.3 cipher suites are auto-selected when 1.3 is negotiated.
			// TLS 1.2 cipher suites (ECDHE only for forward secrecy)
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// ModernTLSConfig returns a TLS 1.3-only configuration with auto-selected
// cipher suites. Use this for internal services or when you control all
// clients.
func ModernTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
	}
}

// TLSConfigOption customizes a TLS configuration.
type TLSConfigOption func(*tls.Config)

// WithTLSGetCertificate resolves certificates per handshake instead of a
// static certificate list. Pass a renewal service's GetCertificate here.
func WithTLSGetCertificate(fn func(*tls.ClientHelloInfo) (*tls.Certificate, error)) TLSConfigOption {
	return func(cfg *tls.Config) {
		cfg.GetCertificate = fn
	}
}

// WithTLSCertificate adds a certificate loaded from PEM files.
func WithTLSCertificate(certFile, keyFile string) TLSConfigOption {
	return func(cfg *tls.Config) {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return
		}
		cfg.Certificates = append(cfg.Certificates, cert)
	}
}

// WithTLSClientAuth configures client certificate authentication.
func WithTLSClientAuth(clientAuthType tls.ClientAuthType) TLSConfigOption {
	return func(cfg *tls.Config) {
		cfg.ClientAuth = clientAuthType
	}
}

// WithTLSMinVersion sets the minimum TLS version.
func WithTLSMinVersion(version uint16) TLSConfigOption {
	return func(cfg *tls.Config) {
		cfg.MinVersion = version
	}
}

// NewTLSConfig creates a new TLS configuration with the given options,
// starting from the secure default configuration.
func NewTLSConfig(opts ...TLSConfigOption) *tls.Config {
	cfg := DefaultTLSConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
