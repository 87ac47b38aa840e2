package certs

import (
	"crypto"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// Certificate is a site certificate: the leaf, its issuer chain, and the
// private key, backed by the password-protected PKCS#12 bundle it was
// encoded to or parsed from. The raw bytes are what store backends persist.
type Certificate struct {
	leaf  *x509.Certificate
	chain []*x509.Certificate
	key   crypto.Signer
	raw   []byte
}

// New packages a freshly issued key pair and chain into a password-protected
// bundle and returns the certificate ready for persistence and serving.
// The chain must start with the leaf certificate.
func New(key crypto.Signer, chain []*x509.Certificate, password string) (*Certificate, error) {
	if len(chain) == 0 {
		return nil, ErrNoCertificate
	}
	if key == nil {
		return nil, ErrNoPrivateKey
	}

	leaf := chain[0]
	raw, err := pkcs12.Modern.Encode(key, leaf, chain[1:], password)
	if err != nil {
		return nil, fmt.Errorf("encode certificate bundle: %w", err)
	}

	return &Certificate{
		leaf:  leaf,
		chain: chain[1:],
		key:   key,
		raw:   raw,
	}, nil
}

// ParsePFX decodes a password-protected bundle previously produced by New.
func ParsePFX(data []byte, password string) (*Certificate, error) {
	if len(data) == 0 {
		return nil, ErrEmptyBundle
	}

	key, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("decode certificate bundle: %w", err)
	}
	if leaf == nil {
		return nil, ErrNoCertificate
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrKeyNotSigner
	}

	return &Certificate{
		leaf:  leaf,
		chain: chain,
		key:   signer,
		raw:   data,
	}, nil
}

// NotBefore returns the start of the certificate's validity window.
func (c *Certificate) NotBefore() time.Time { return c.leaf.NotBefore }

// NotAfter returns the end of the certificate's validity window.
func (c *Certificate) NotAfter() time.Time { return c.leaf.NotAfter }

// Thumbprint is the SHA-1 fingerprint of the leaf certificate, the stable
// identity used for comparison and logging.
func (c *Certificate) Thumbprint() string {
	return fmt.Sprintf("%X", sha1.Sum(c.leaf.Raw))
}

// Raw returns the encoded PKCS#12 bundle bytes.
func (c *Certificate) Raw() []byte { return c.raw }

// Leaf returns the parsed leaf certificate.
func (c *Certificate) Leaf() *x509.Certificate { return c.leaf }

// Domains returns the DNS names the certificate covers.
func (c *Certificate) Domains() []string { return c.leaf.DNSNames }

// TLSCertificate converts to the form the TLS stack serves during handshakes.
func (c *Certificate) TLSCertificate() *tls.Certificate {
	der := make([][]byte, 0, 1+len(c.chain))
	der = append(der, c.leaf.Raw)
	for _, ic := range c.chain {
		der = append(der, ic.Raw)
	}
	return &tls.Certificate{
		Certificate: der,
		PrivateKey:  c.key,
		Leaf:        c.leaf,
	}
}

// VerifyChain builds the certificate chain against the system roots using
// the bundled intermediates. The renewal service calls this before
// publishing a certificate so intermediate caches are warm; a failure is a
// warning condition, not fatal.
func (c *Certificate) VerifyChain() error {
	intermediates := x509.NewCertPool()
	for _, ic := range c.chain {
		intermediates.AddCert(ic)
	}

	_, err := c.leaf.Verify(x509.VerifyOptions{Intermediates: intermediates})
	if err != nil {
		return fmt.Errorf("build certificate chain: %w", err)
	}
	return nil
}

func (c *Certificate) String() string {
	return fmt.Sprintf("certificate %s (not_before=%s not_after=%s domains=%v)",
		c.Thumbprint(), c.leaf.NotBefore.Format(time.RFC3339), c.leaf.NotAfter.Format(time.RFC3339), c.leaf.DNSNames)
}
