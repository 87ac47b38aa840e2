package acme

import (
	"context"
	"crypto"

	xacme "golang.org/x/crypto/acme"
)

// API is the subset of the ACME protocol client this package drives.
// *golang.org/x/crypto/acme.Client satisfies it; tests substitute a fake.
type API interface {
	Register(ctx context.Context, acct *xacme.Account, prompt func(tosURL string) bool) (*xacme.Account, error)
	AuthorizeOrder(ctx context.Context, ids []xacme.AuthzID, opts ...xacme.OrderOption) (*xacme.Order, error)
	GetAuthorization(ctx context.Context, url string) (*xacme.Authorization, error)
	Accept(ctx context.Context, chal *xacme.Challenge) (*xacme.Challenge, error)
	GetChallenge(ctx context.Context, url string) (*xacme.Challenge, error)
	WaitOrder(ctx context.Context, orderURL string) (*xacme.Order, error)
	CreateOrderCert(ctx context.Context, finalizeURL string, csr []byte, bundle bool) ([][]byte, string, error)
	HTTP01ChallengeResponse(token string) (string, error)
	DNS01ChallengeRecord(token string) (string, error)
}

// Staging and production directory endpoints for Let's Encrypt.
const (
	DirectoryProduction = xacme.LetsEncryptURL
	DirectoryStaging    = "https://acme-staging-v02.api.letsencrypt.org/directory"
)

func newProtocolClient(key crypto.Signer, directoryURL string) API {
	return &xacme.Client{
		Key:          key,
		DirectoryURL: directoryURL,
		UserAgent:    "certkit",
	}
}
