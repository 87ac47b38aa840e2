// Package certs defines the certificate data model shared by the renewal
// engine: a parsed site certificate bundled with its chain and private key,
// the PKCS#12 codec used for at-rest protection, account key PEM handling,
// and the renewal-window validator that decides whether a certificate is
// still usable.
//
// A site certificate travels through the system as a password-protected
// PKCS#12 bundle. Certificate keeps both the parsed form (for validity
// checks and TLS serving) and the raw encoded bytes (for persistence), so a
// certificate loaded from any store backend round-trips without re-encoding.
//
// The validator is a pure predicate: it never returns an error, a
// certificate that cannot be interpreted is simply not valid.
package certs
