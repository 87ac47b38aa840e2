package renewal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/store"
)

// Orderer runs a certificate order end to end. *acme.Client satisfies it.
type Orderer interface {
	PlaceOrder(ctx context.Context, domains []string) (*acme.PlacedOrder, error)
	FinalizeOrder(ctx context.Context, placed *acme.PlacedOrder) (*certs.Certificate, error)
}

// OrdererSource yields the order client on demand, so account
// registration happens lazily on the first cycle that needs an order.
type OrdererSource func(ctx context.Context) (Orderer, error)

// AccountOrderer adapts an AccountFactory into an OrdererSource.
func AccountOrderer(factory *acme.AccountFactory) OrdererSource {
	return func(ctx context.Context) (Orderer, error) {
		return factory.Client(ctx)
	}
}

// Provider implements the renewal decision for one domain set.
type Provider struct {
	domains   []string
	store     *store.Store
	source    OrdererSource
	validator *certs.Validator
	password  string
	log       *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the logger for renewal decisions.
func WithProviderLogger(log *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if log != nil {
			p.log = log
		}
	}
}

// WithValidator replaces the policy validator built from the config,
// primarily to inject a test clock.
func WithValidator(v *certs.Validator) ProviderOption {
	return func(p *Provider) {
		if v != nil {
			p.validator = v
		}
	}
}

// NewProvider creates a provider for the configured domains. Domains are
// trimmed and lowercased; empty entries and duplicates are dropped.
func NewProvider(cfg Config, st *store.Store, source OrdererSource, opts ...ProviderOption) (*Provider, error) {
	domains, err := normalizeDomains(cfg.Domains)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		domains:   domains,
		store:     st,
		source:    source,
		validator: certs.NewValidator(cfg.policy()),
		password:  cfg.CertPassword,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func normalizeDomains(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	domains := make([]string, 0, len(raw))
	for _, d := range raw {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	return domains, nil
}

// Domains returns the normalized domain list.
func (p *Provider) Domains() []string {
	out := make([]string, len(p.domains))
	copy(out, p.domains)
	return out
}

// RenewIfNeeded resolves the certificate to use right now. The current
// certificate wins if still valid; otherwise the store is consulted; only
// when both fail does a full ACME order run. Challenges persisted for an
// order are deleted when the cycle ends, whether finalization succeeded
// or not.
func (p *Provider) RenewIfNeeded(ctx context.Context, current *certs.Certificate) (*Result, error) {
	if p.validator.IsValid(current) {
		p.log.DebugContext(ctx, "current certificate still valid",
			logger.Thumbprint(current.Thumbprint()))
		return &Result{Status: StatusUnchanged, Certificate: current}, nil
	}

	stored, err := p.store.GetCert(ctx, p.password)
	if err != nil {
		return nil, fmt.Errorf("load stored certificate: %w", err)
	}
	if p.validator.IsValid(stored) {
		p.log.InfoContext(ctx, "loaded valid certificate from store",
			logger.Thumbprint(stored.Thumbprint()),
			slog.Time("not_after", stored.NotAfter()))
		return &Result{Status: StatusLoadedFromStore, Certificate: stored}, nil
	}

	cert, err := p.renew(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusRenewed, Certificate: cert}, nil
}

func (p *Provider) renew(ctx context.Context) (*certs.Certificate, error) {
	orderer, err := p.source(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire order client: %w", err)
	}

	placed, err := orderer.PlaceOrder(ctx, p.domains)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	if len(placed.Challenges) > 0 {
		if err := p.store.SaveChallenges(ctx, placed.Challenges); err != nil {
			return nil, fmt.Errorf("persist challenges: %w", err)
		}
		defer func() {
			cleanupCtx := context.WithoutCancel(ctx)
			if err := p.store.DeleteChallenges(cleanupCtx, placed.Challenges); err != nil {
				p.log.ErrorContext(cleanupCtx, "failed to delete challenges",
					logger.Error(err))
			}
		}()
	}

	cert, err := orderer.FinalizeOrder(ctx, placed)
	if err != nil {
		return nil, err
	}

	if err := p.store.SaveCert(ctx, cert); err != nil {
		return nil, fmt.Errorf("persist certificate: %w", err)
	}

	p.log.InfoContext(ctx, "certificate renewed",
		logger.Domains(p.domains),
		logger.Thumbprint(cert.Thumbprint()),
		slog.Time("not_after", cert.NotAfter()))
	return cert, nil
}
