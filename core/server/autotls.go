package server

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/dmitrymomot/certkit/core/challenge"
)

// CertResolver returns the certificate to present for a TLS handshake.
// A renewal service's GetCertificate method satisfies it.
type CertResolver func(*tls.ClientHelloInfo) (*tls.Certificate, error)

// AutoTLS pairs a plain HTTP listener with an HTTPS listener. The HTTP
// side answers ACME HTTP-01 challenges from the source and redirects
// everything else to HTTPS. The HTTPS side serves the application with
// certificates from the resolver.
type AutoTLS struct {
	mu       sync.Mutex
	source   challenge.Source
	log      *slog.Logger
	httpSrv  *Server
	httpsSrv *Server
	running  bool
}

// AutoTLSOption configures the server pair.
type AutoTLSOption func(*AutoTLS)

// WithAutoTLSLogger sets the logger for both listeners.
func WithAutoTLSLogger(log *slog.Logger) AutoTLSOption {
	return func(a *AutoTLS) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAutoTLS creates the server pair from configuration. The source
// yields stored HTTP-01 challenges and the resolver picks certificates
// per handshake.
func NewAutoTLS(cfg Config, source challenge.Source, resolve CertResolver, opts ...AutoTLSOption) (*AutoTLS, error) {
	if source == nil {
		return nil, ErrNoChallengeSource
	}
	if resolve == nil {
		return nil, ErrNoCertResolver
	}

	a := &AutoTLS{
		source: source,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}

	httpOpts := append(cfg.serverOptions(), WithLogger(a.log))
	a.httpSrv = New(cfg.httpAddr(), httpOpts...)

	httpsOpts := append(cfg.serverOptions(),
		WithLogger(a.log),
		WithTLS(NewTLSConfig(WithTLSGetCertificate(resolve))))
	a.httpsSrv = New(cfg.httpsAddr(), httpsOpts...)

	return a, nil
}

// Run starts both listeners and blocks until the context is canceled or
// a listener fails. Both servers shut down gracefully before Run
// returns.
func (a *AutoTLS) Run(ctx context.Context, app http.Handler) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpHandler := challenge.NewHandler(a.source, redirectHTTPS(), challenge.WithLogger(a.log))

	errCh := make(chan error, 2)
	go func() {
		if err := a.httpSrv.Run(ctx, httpHandler)(); err != nil {
			errCh <- errors.Join(ErrHTTPServer, err)
			cancel()
			return
		}
		errCh <- nil
	}()
	go func() {
		if err := a.httpsSrv.Run(ctx, app)(); err != nil {
			errCh <- errors.Join(ErrHTTPSServer, err)
			cancel()
			return
		}
		errCh <- nil
	}()

	var errs []error
	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// redirectHTTPS sends non-challenge HTTP traffic to the HTTPS listener,
// dropping any explicit port from the host.
func redirectHTTPS() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}
