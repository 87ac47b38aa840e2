package store

import "context"

// CertKind identifies which certificate artifact a backend operation
// refers to.
type CertKind string

const (
	// KindAccountKey is the PEM-encoded ACME account private key.
	KindAccountKey CertKind = "account_key"

	// KindSiteBundle is the password-protected PKCS#12 site certificate
	// bundle (leaf, chain, and private key).
	KindSiteBundle CertKind = "site_bundle"
)

// CertBackend stores certificate artifacts as opaque bytes.
// Load returns (nil, nil) when the artifact is absent; absence is a normal
// "no cert yet" state, not an error.
type CertBackend interface {
	SaveCert(ctx context.Context, kind CertKind, data []byte) error
	LoadCert(ctx context.Context, kind CertKind) ([]byte, error)
}

// ChallengeBackend stores the set of in-flight challenge tokens.
// DeleteChallenges removes only entries whose Token matches one in the
// given set; backends implement it as load, filter, save and must
// serialize their own writes.
type ChallengeBackend interface {
	SaveChallenges(ctx context.Context, challenges []ChallengeInfo) error
	LoadChallenges(ctx context.Context) ([]ChallengeInfo, error)
	DeleteChallenges(ctx context.Context, challenges []ChallengeInfo) error
}

// Notifier delivers issued certificate material to an outbound channel
// (email, chat). It is invoked after a successful site-bundle save and is
// fully isolated from the renewal critical path.
type Notifier interface {
	Notify(ctx context.Context, kind CertKind, data []byte) error
}
