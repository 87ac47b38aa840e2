package certs

import "errors"

var (
	// ErrEmptyBundle is returned when a PKCS#12 bundle contains no data.
	ErrEmptyBundle = errors.New("certificate bundle is empty")

	// ErrNoPrivateKey is returned when a bundle is missing its private key.
	ErrNoPrivateKey = errors.New("certificate bundle has no private key")

	// ErrNoCertificate is returned when a bundle is missing the leaf certificate.
	ErrNoCertificate = errors.New("certificate bundle has no leaf certificate")

	// ErrKeyNotSigner is returned when a parsed private key cannot be used for signing.
	ErrKeyNotSigner = errors.New("private key does not implement crypto.Signer")
)
