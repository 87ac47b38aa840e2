package store

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/logger"
)

// Store composes cert backends, challenge backends, and notifiers into the
// single persistence facade the renewal engine works against.
type Store struct {
	certBackends      []CertBackend
	challengeBackends []ChallengeBackend
	notifiers         []Notifier
	log               *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCertBackends registers certificate backends. Order matters: reads
// scan in registration order and stop at the first hit.
func WithCertBackends(backends ...CertBackend) Option {
	return func(s *Store) {
		s.certBackends = append(s.certBackends, backends...)
	}
}

// WithChallengeBackends registers challenge backends.
func WithChallengeBackends(backends ...ChallengeBackend) Option {
	return func(s *Store) {
		s.challengeBackends = append(s.challengeBackends, backends...)
	}
}

// WithNotifiers registers outbound notification sinks fired after
// successful site-bundle saves.
func WithNotifiers(notifiers ...Notifier) Option {
	return func(s *Store) {
		s.notifiers = append(s.notifiers, notifiers...)
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// New creates a Store. A store without backends is usable but stateless:
// reads report absence and writes are logged warnings.
func New(opts ...Option) *Store {
	s := &Store{
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCert scans cert backends in registration order and returns the first
// stored site certificate that decodes with the given password. Corrupt
// data in one backend is logged and skipped. Returns (nil, nil) when no
// backend holds a certificate.
func (s *Store) GetCert(ctx context.Context, password string) (*certs.Certificate, error) {
	for _, backend := range s.certBackends {
		data, err := backend.LoadCert(ctx, KindSiteBundle)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}

		cert, err := certs.ParsePFX(data, password)
		if err != nil {
			s.log.Warn("stored certificate is unreadable, skipping backend",
				slog.String("backend", backendName(backend)),
				logger.Error(err))
			continue
		}
		return cert, nil
	}

	s.log.Info("no stored certificate found in any backend")
	return nil, nil
}

// GetAccountKey returns the stored ACME account private key, or (nil, nil)
// when no backend holds one.
func (s *Store) GetAccountKey(ctx context.Context) (crypto.Signer, error) {
	for _, backend := range s.certBackends {
		data, err := backend.LoadCert(ctx, KindAccountKey)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}

		key, err := certs.ParseKeyPEM(data)
		if err != nil {
			s.log.Warn("stored account key is unreadable, skipping backend",
				slog.String("backend", backendName(backend)),
				logger.Error(err))
			continue
		}
		return key, nil
	}

	s.log.Info("no stored account key found in any backend")
	return nil, nil
}

// SaveCert persists the site certificate bundle to every backend and then
// fires notifiers. The write is best-effort across backends: it fails only
// when every backend rejected it.
func (s *Store) SaveCert(ctx context.Context, cert *certs.Certificate) error {
	if err := s.fanOutSave(ctx, KindSiteBundle, cert.Raw()); err != nil {
		return err
	}
	s.log.Info("certificate saved", logger.Thumbprint(cert.Thumbprint()))
	s.notify(ctx, KindSiteBundle, cert.Raw())
	return nil
}

// SaveAccountKey persists the ACME account private key to every backend.
func (s *Store) SaveAccountKey(ctx context.Context, key crypto.Signer) error {
	return s.fanOutSave(ctx, KindAccountKey, certs.EncodeKeyPEM(key))
}

// SaveChallenges writes the challenge set to every challenge backend. It
// must complete before challenge validation is triggered against the CA.
func (s *Store) SaveChallenges(ctx context.Context, challenges []ChallengeInfo) error {
	if len(s.challengeBackends) == 0 {
		s.log.Warn("no challenge backends registered, challenges will not be stored")
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, backend := range s.challengeBackends {
		wg.Add(1)
		go func(b ChallengeBackend) {
			defer wg.Done()
			if err := b.SaveChallenges(ctx, challenges); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(backend)
	}
	wg.Wait()

	if len(errs) == len(s.challengeBackends) {
		return errors.Join(append([]error{ErrAllBackendsFailed}, errs...)...)
	}
	for _, err := range errs {
		s.log.Error("challenge backend save failed", logger.Error(err))
	}
	return nil
}

// GetChallenges returns the union of challenges across all backends.
func (s *Store) GetChallenges(ctx context.Context) ([]ChallengeInfo, error) {
	var all []ChallengeInfo
	for _, backend := range s.challengeBackends {
		challenges, err := backend.LoadChallenges(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, challenges...)
	}
	return all, nil
}

// DeleteChallenges removes the given challenges from every backend. Errors
// are isolated per backend: stale tokens in one backend must not keep the
// others dirty.
func (s *Store) DeleteChallenges(ctx context.Context, challenges []ChallengeInfo) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, backend := range s.challengeBackends {
		wg.Add(1)
		go func(b ChallengeBackend) {
			defer wg.Done()
			if err := b.DeleteChallenges(ctx, challenges); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(backend)
	}
	wg.Wait()

	for _, err := range errs {
		s.log.Error("challenge backend delete failed", logger.Error(err))
	}
	if len(errs) == len(s.challengeBackends) && len(errs) > 0 {
		return errors.Join(append([]error{ErrAllBackendsFailed}, errs...)...)
	}
	return nil
}

func (s *Store) fanOutSave(ctx context.Context, kind CertKind, data []byte) error {
	if len(s.certBackends) == 0 {
		s.log.Warn("no cert backends registered, certificate will not be stored",
			slog.String("kind", string(kind)))
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, backend := range s.certBackends {
		wg.Add(1)
		go func(b CertBackend) {
			defer wg.Done()
			if err := b.SaveCert(ctx, kind, data); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(backend)
	}
	wg.Wait()

	if len(errs) == len(s.certBackends) {
		return errors.Join(append([]error{ErrAllBackendsFailed}, errs...)...)
	}
	for _, err := range errs {
		s.log.Error("cert backend save failed, continuing with remaining backends",
			slog.String("kind", string(kind)),
			logger.Error(err))
	}
	return nil
}

// notify fires all registered notifiers in the background. The parent
// context's cancellation is detached so a finished renewal cycle cannot
// cut a delivery short.
func (s *Store) notify(ctx context.Context, kind CertKind, data []byte) {
	if len(s.notifiers) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		go func(n Notifier) {
			if err := n.Notify(detached, kind, data); err != nil {
				s.log.Error("certificate notification failed",
					slog.String("kind", string(kind)),
					logger.Error(err))
			}
		}(n)
	}
}

func backendName(b any) string {
	return fmt.Sprintf("%T", b)
}
