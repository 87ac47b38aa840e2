package acme

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	xacme "golang.org/x/crypto/acme"

	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/store"
)

// Client drives certificate orders for a registered account. Obtain one
// from AccountFactory.Client.
type Client struct {
	api          API
	cfg          Config
	log          *slog.Logger
	pollInterval time.Duration
}

// PlaceOrder creates a new order for the given domains and collects the
// challenges the CA expects to see answered. Authorizations the CA already
// considers valid are skipped. The returned order must be passed to
// FinalizeOrder after the challenge responses have been made reachable.
func (c *Client) PlaceOrder(ctx context.Context, domains []string) (*PlacedOrder, error) {
	order, err := c.api.AuthorizeOrder(ctx, xacme.DomainIDs(domains...))
	if err != nil {
		return nil, fmt.Errorf("authorize order: %w", err)
	}

	placed := &PlacedOrder{Domains: domains, order: order}
	for _, authzURL := range order.AuthzURLs {
		az, err := c.api.GetAuthorization(ctx, authzURL)
		if err != nil {
			return nil, fmt.Errorf("get authorization: %w", err)
		}
		if az.Status == xacme.StatusValid {
			c.log.DebugContext(ctx, "authorization already valid",
				slog.String("identifier", az.Identifier.Value))
			continue
		}
		if az.Status != xacme.StatusPending {
			c.log.WarnContext(ctx, "authorization in unexpected state",
				slog.String("identifier", az.Identifier.Value),
				slog.String("status", az.Status))
			continue
		}

		ch := pickChallenge(az)
		if ch == nil {
			c.log.WarnContext(ctx, "no supported challenge offered",
				slog.String("identifier", az.Identifier.Value))
			continue
		}

		info, err := c.challengeInfo(ch, domains)
		if err != nil {
			return nil, err
		}
		placed.Challenges = append(placed.Challenges, info)
		placed.pending = append(placed.pending, ch)
	}

	if len(placed.pending) == 0 && order.Status != xacme.StatusReady {
		return nil, ErrNoChallenges
	}

	c.log.InfoContext(ctx, "order placed",
		logger.Domains(domains),
		slog.Int("challenges", len(placed.pending)))
	return placed, nil
}

func pickChallenge(az *xacme.Authorization) *xacme.Challenge {
	for _, ch := range az.Challenges {
		if ch.Type == "http-01" {
			return ch
		}
	}
	return nil
}

// challengeInfo derives the persistable token and response for a
// challenge. For dns-01 the token is the TXT record value rather than the
// raw token, so a DNS store backend can publish it directly.
func (c *Client) challengeInfo(ch *xacme.Challenge, domains []string) (store.ChallengeInfo, error) {
	token := ch.Token
	if ch.Type == "dns-01" {
		derived, err := c.api.DNS01ChallengeRecord(ch.Token)
		if err != nil {
			return store.ChallengeInfo{}, fmt.Errorf("derive dns-01 record: %w", err)
		}
		token = derived
	}
	response, err := c.api.HTTP01ChallengeResponse(ch.Token)
	if err != nil {
		return store.ChallengeInfo{}, fmt.Errorf("derive challenge response: %w", err)
	}
	return store.ChallengeInfo{Token: token, Response: response, Domains: domains}, nil
}

// FinalizeOrder accepts every pending challenge, polls validation to a
// terminal state, and exchanges a fresh key's CSR for the signed chain.
// If any challenge ends invalid the returned error wraps ErrOrderInvalid
// together with the per-challenge CA errors.
func (c *Client) FinalizeOrder(ctx context.Context, placed *PlacedOrder) (*certs.Certificate, error) {
	if err := c.acceptAll(ctx, placed.pending); err != nil {
		return nil, err
	}
	if err := c.pollChallenges(ctx, placed.pending); err != nil {
		return nil, err
	}

	order, err := c.api.WaitOrder(ctx, placed.order.URI)
	if err != nil {
		return nil, fmt.Errorf("wait order: %w", err)
	}

	key, err := certs.GenerateKey(c.cfg.keyType())
	if err != nil {
		return nil, fmt.Errorf("generate certificate key: %w", err)
	}

	csr, err := c.createCSR(key, placed.Domains)
	if err != nil {
		return nil, err
	}

	der, _, err := c.api.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("finalize order: %w", err)
	}
	if len(der) == 0 {
		return nil, ErrEmptyChain
	}

	chain := make([]*x509.Certificate, 0, len(der))
	for _, blob := range der {
		cert, err := x509.ParseCertificate(blob)
		if err != nil {
			return nil, fmt.Errorf("parse issued certificate: %w", err)
		}
		chain = append(chain, cert)
	}

	c.log.InfoContext(ctx, "order finalized",
		logger.Domains(placed.Domains),
		slog.Time("not_after", chain[0].NotAfter))
	return certs.New(key, chain, c.cfg.CertPassword)
}

// acceptAll tells the CA to start validating every pending challenge.
// Acceptance requests run concurrently; any failure aborts the order.
func (c *Client) acceptAll(ctx context.Context, pending []*xacme.Challenge) error {
	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for i, ch := range pending {
		wg.Add(1)
		go func(i int, ch *xacme.Challenge) {
			defer wg.Done()
			if _, err := c.api.Accept(ctx, ch); err != nil {
				errs[i] = fmt.Errorf("accept challenge %s: %w", ch.Token, err)
			}
		}(i, ch)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// pollChallenges refreshes challenge state once per poll interval until
// every challenge is terminal.
func (c *Client) pollChallenges(ctx context.Context, pending []*xacme.Challenge) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		terminal := true
		var reasons []error
		for _, ch := range pending {
			cur, err := c.api.GetChallenge(ctx, ch.URI)
			if err != nil {
				return fmt.Errorf("get challenge: %w", err)
			}
			switch cur.Status {
			case xacme.StatusValid:
			case xacme.StatusInvalid:
				reason := cur.Error
				if reason == nil {
					reason = fmt.Errorf("challenge %s invalid", cur.Token)
				}
				reasons = append(reasons, reason)
			default:
				terminal = false
			}
		}
		if len(reasons) > 0 {
			return errors.Join(append([]error{ErrOrderInvalid}, reasons...)...)
		}
		if terminal {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) createCSR(key any, domains []string) ([]byte, error) {
	subj := c.cfg.Subject
	name := pkix.Name{CommonName: subj.CommonName}
	if name.CommonName == "" && len(domains) > 0 {
		name.CommonName = domains[0]
	}
	if subj.Country != "" {
		name.Country = []string{subj.Country}
	}
	if subj.Province != "" {
		name.Province = []string{subj.Province}
	}
	if subj.Locality != "" {
		name.Locality = []string{subj.Locality}
	}
	if subj.Organization != "" {
		name.Organization = []string{subj.Organization}
	}
	if subj.OrganizationalUnit != "" {
		name.OrganizationalUnit = []string{subj.OrganizationalUnit}
	}

	csr, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  name,
		DNSNames: domains,
	}, key)
	if err != nil {
		return nil, fmt.Errorf("create csr: %w", err)
	}
	return csr, nil
}
