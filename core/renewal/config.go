package renewal

import (
	"time"

	"github.com/go-acme/lego/v4/certcrypto"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/core/certs"
)

// FailMode selects how the background scheduler reacts when a renewal
// cycle fails.
type FailMode string

const (
	// FailModeUnhandled panics on the first failed cycle. The default:
	// silent certificate decay is worse than a crash.
	FailModeUnhandled FailMode = "unhandled"

	// FailModeLogAndContinue logs the failure and waits for the next
	// regular check.
	FailModeLogAndContinue FailMode = "log_and_continue"

	// FailModeLogAndRetry logs the failure and reschedules on the shorter
	// retry interval.
	FailModeLogAndRetry FailMode = "log_and_retry"
)

func (m FailMode) valid() bool {
	switch m {
	case FailModeUnhandled, FailModeLogAndContinue, FailModeLogAndRetry:
		return true
	}
	return false
}

// Config holds certificate renewal settings, populated from the
// environment in deployments.
type Config struct {
	// Domains to order certificates for. The first domain becomes the CSR
	// common name unless CommonName overrides it.
	Domains []string `env:"CERT_DOMAINS" envSeparator:","`

	// Email is the ACME account contact, required.
	Email string `env:"CERT_EMAIL"`

	// Staging targets the Let's Encrypt staging endpoint.
	Staging bool `env:"CERT_STAGING" envDefault:"false"`

	// DirectoryURL overrides the CA directory endpoint.
	DirectoryURL string `env:"CERT_DIRECTORY_URL"`

	// KeyType names the key algorithm for account and certificate keys.
	KeyType certcrypto.KeyType `env:"CERT_KEY_TYPE" envDefault:"2048"`

	// CertPassword protects persisted PFX bundles.
	CertPassword string `env:"CERT_PASSWORD"`

	// RenewBeforeExpiry renews once less than this much validity remains.
	RenewBeforeExpiry time.Duration `env:"CERT_RENEW_BEFORE_EXPIRY" envDefault:"720h"`

	// RenewAfterIssued renews once the certificate is older than this,
	// zero to disable.
	RenewAfterIssued time.Duration `env:"CERT_RENEW_AFTER_ISSUED" envDefault:"0s"`

	// CheckInterval is the cadence between scheduled renewal checks.
	CheckInterval time.Duration `env:"CERT_CHECK_INTERVAL" envDefault:"24h"`

	// RetryInterval reschedules failed cycles under FailModeLogAndRetry.
	RetryInterval time.Duration `env:"CERT_RETRY_INTERVAL" envDefault:"1h"`

	// RenewTimeout bounds one full renewal cycle, order included.
	RenewTimeout time.Duration `env:"CERT_RENEW_TIMEOUT" envDefault:"5m"`

	// StartupDelay postpones the first cycle after Start, giving the
	// challenge listener time to come up behind slow load balancers.
	StartupDelay time.Duration `env:"CERT_STARTUP_DELAY" envDefault:"0s"`

	// FailMode selects the scheduler's failure policy.
	FailMode FailMode `env:"CERT_FAIL_MODE" envDefault:"unhandled"`

	// ProbePorts are checked for outside reachability before the scheduler
	// is armed.
	ProbePorts []int `env:"CERT_PROBE_PORTS" envSeparator:"," envDefault:"80"`

	// PortOpenWait bounds how long the prober waits for forwarding rules
	// to take effect.
	PortOpenWait time.Duration `env:"CERT_PORT_OPEN_WAIT" envDefault:"30s"`

	// CSR subject fields, all optional.
	Country            string `env:"CERT_SUBJECT_COUNTRY"`
	Province           string `env:"CERT_SUBJECT_PROVINCE"`
	Locality           string `env:"CERT_SUBJECT_LOCALITY"`
	Organization       string `env:"CERT_SUBJECT_ORGANIZATION"`
	OrganizationalUnit string `env:"CERT_SUBJECT_ORG_UNIT"`
	CommonName         string `env:"CERT_SUBJECT_COMMON_NAME"`
}

// DefaultConfig returns a production-leaning configuration for the given
// domains and contact email.
func DefaultConfig(email string, domains ...string) Config {
	return Config{
		Domains:           domains,
		Email:             email,
		KeyType:           certcrypto.RSA2048,
		RenewBeforeExpiry: 30 * 24 * time.Hour,
		CheckInterval:     24 * time.Hour,
		RetryInterval:     time.Hour,
		RenewTimeout:      5 * time.Minute,
		FailMode:          FailModeUnhandled,
		ProbePorts:        []int{80},
		PortOpenWait:      30 * time.Second,
	}
}

// Validate checks the configuration for structural problems. Domain
// normalization happens in NewProvider; this only rejects what no
// component downstream can repair.
func (c Config) Validate() error {
	if len(c.Domains) == 0 {
		return ErrNoDomains
	}
	if c.Email == "" {
		return acme.ErrEmailRequired
	}
	if !c.FailMode.valid() {
		return ErrInvalidFailMode
	}
	return nil
}

// ACMEConfig projects the renewal settings onto the order client.
func (c Config) ACMEConfig() acme.Config {
	return acme.Config{
		Email:        c.Email,
		Staging:      c.Staging,
		DirectoryURL: c.DirectoryURL,
		KeyType:      c.KeyType,
		CertPassword: c.CertPassword,
		Subject: acme.Subject{
			Country:            c.Country,
			Province:           c.Province,
			Locality:           c.Locality,
			Organization:       c.Organization,
			OrganizationalUnit: c.OrganizationalUnit,
			CommonName:         c.CommonName,
		},
	}
}

func (c Config) policy() certs.Policy {
	return certs.Policy{
		RenewBeforeExpiry: c.RenewBeforeExpiry,
		RenewAfterIssued:  c.RenewAfterIssued,
	}
}

func (c Config) checkInterval() time.Duration {
	if c.CheckInterval <= 0 {
		return 24 * time.Hour
	}
	return c.CheckInterval
}

func (c Config) retryInterval() time.Duration {
	if c.RetryInterval <= 0 {
		return time.Hour
	}
	return c.RetryInterval
}

func (c Config) renewTimeout() time.Duration {
	if c.RenewTimeout <= 0 {
		return 5 * time.Minute
	}
	return c.RenewTimeout
}

func (c Config) probePorts() []int {
	if len(c.ProbePorts) == 0 {
		return []int{80}
	}
	return c.ProbePorts
}

func (c Config) portOpenWait() time.Duration {
	if c.PortOpenWait <= 0 {
		return 30 * time.Second
	}
	return c.PortOpenWait
}
