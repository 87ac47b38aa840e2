package acme

import (
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
)

// Subject carries the distinguished-name fields placed into certificate
// signing requests. All fields are optional; CommonName defaults to the
// first ordered domain.
type Subject struct {
	Country            string
	Province           string
	Locality           string
	Organization       string
	OrganizationalUnit string
	CommonName         string
}

// Config describes the CA endpoint, account identity, and key material
// policy for certificate orders.
type Config struct {
	// Email is the account contact address, required for registration.
	Email string

	// Staging selects the Let's Encrypt staging directory. Ignored when
	// DirectoryURL is set.
	Staging bool

	// DirectoryURL overrides the CA directory endpoint entirely.
	DirectoryURL string

	// KeyType selects the algorithm for account and certificate keys.
	KeyType certcrypto.KeyType

	// CertPassword protects the PFX bundle produced on finalization.
	CertPassword string

	// Subject populates the CSR distinguished name.
	Subject Subject

	// PollInterval sets the cadence for challenge status polling.
	// Defaults to one second.
	PollInterval time.Duration
}

func (c Config) directoryURL() string {
	switch {
	case c.DirectoryURL != "":
		return c.DirectoryURL
	case c.Staging:
		return DirectoryStaging
	default:
		return DirectoryProduction
	}
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return time.Second
	}
	return c.PollInterval
}

func (c Config) keyType() certcrypto.KeyType {
	if c.KeyType == "" {
		return certcrypto.RSA2048
	}
	return c.KeyType
}
