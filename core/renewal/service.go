package renewal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/logger"
)

// State is the scheduler's lifecycle state.
type State int32

const (
	// StateIdle is the state before Start.
	StateIdle State = iota

	// StateScheduled means the scheduler is armed and waiting for the next
	// cycle.
	StateScheduled

	// StateRenewing means a renewal cycle is running.
	StateRenewing

	// StateStopped is terminal; a stopped service cannot be restarted.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRenewing:
		return "renewing"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Service schedules renewal cycles and publishes the current certificate
// for TLS handshakes. Create with NewService, then Start once; the zero
// value is not usable.
type Service struct {
	cfg      Config
	provider *Provider
	log      *slog.Logger
	prober   Prober
	hooks    []Hook

	current atomic.Pointer[certs.Certificate]
	state   atomic.Int32
	started atomic.Bool

	runMu     sync.Mutex
	reset     chan time.Duration
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for scheduler events.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithProber replaces the reachability prober run at startup.
func WithProber(p Prober) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithHooks registers lifecycle hooks, called in registration order.
func WithHooks(hooks ...Hook) ServiceOption {
	return func(s *Service) {
		s.hooks = append(s.hooks, hooks...)
	}
}

// NewService creates a scheduler around the provider.
func NewService(cfg Config, provider *Provider, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		provider: provider,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		prober:   DialProber{},
		reset:    make(chan time.Duration, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start fires OnStart, verifies the serving ports answer from the
// outside, and launches the background scheduler. When the ports are
// unreachable and the prober cannot open them, Start fires OnException,
// stops the service, and returns the error: a scheduler that can never
// pass validation would only burn CA rate limits. The first cycle runs
// after the configured startup delay. Start is idempotent; calls after
// Stop return ErrServiceStopped.
func (s *Service) Start(ctx context.Context) error {
	if State(s.state.Load()) == StateStopped {
		return ErrServiceStopped
	}

	var startErr error
	s.startOnce.Do(func() {
		s.fireHooks(ctx, "start", func(h Hook) { h.OnStart(ctx) })

		if err := s.ensureReachable(ctx); err != nil {
			s.log.ErrorContext(ctx, "serving ports unreachable, stopping service",
				logger.Domains(s.provider.Domains()),
				logger.Error(err))
			s.fireHooks(ctx, "exception", func(h Hook) { h.OnException(ctx, err) })
			s.Stop()
			startErr = err
			return
		}

		s.started.Store(true)
		s.state.CompareAndSwap(int32(StateIdle), int32(StateScheduled))

		s.log.InfoContext(ctx, "renewal service started",
			logger.Domains(s.provider.Domains()),
			slog.Duration("startup_delay", s.cfg.StartupDelay),
			slog.Duration("check_interval", s.cfg.checkInterval()),
			slog.String("fail_mode", string(s.cfg.FailMode)))

		go s.run(ctx)
	})
	return startErr
}

// ensureReachable checks every configured domain on the probe ports and
// asks the prober to forward the ports that did not answer.
func (s *Service) ensureReachable(ctx context.Context) error {
	ports := s.cfg.probePorts()
	targets := make([]ProbeTarget, 0, len(s.provider.Domains())*len(ports))
	for _, domain := range s.provider.Domains() {
		for _, port := range ports {
			targets = append(targets, ProbeTarget{Host: domain, Port: port})
		}
	}

	opened, err := s.prober.CheckPortsOpened(ctx, targets)
	if err != nil {
		return fmt.Errorf("reachability check: %w", err)
	}

	closed := make(map[int]bool)
	for i, target := range targets {
		if i < len(opened) && opened[i] {
			continue
		}
		s.log.WarnContext(ctx, "port not reachable",
			slog.String("host", target.Host),
			slog.Int("port", target.Port))
		closed[target.Port] = true
	}
	if len(closed) == 0 {
		return nil
	}

	mappings := make([]PortMapping, 0, len(closed))
	for port := range closed {
		mappings = append(mappings, PortMapping{
			Protocol:     "tcp",
			ExternalPort: port,
			InternalPort: port,
		})
	}

	ok, err := s.prober.OpenPorts(ctx, mappings, s.cfg.portOpenWait())
	if err != nil {
		return errors.Join(ErrPortsUnreachable, err)
	}
	if !ok {
		return ErrPortsUnreachable
	}
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.cfg.StartupDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case d := <-s.reset:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
		case <-timer.C:
			timer.Reset(s.cycle(ctx))
		}
	}
}

// cycle runs one scheduled renewal and returns the delay until the next.
func (s *Service) cycle(ctx context.Context) time.Duration {
	cycleID := uuid.NewString()
	log := s.log.With(logger.CycleID(cycleID))
	log.InfoContext(ctx, "renewal cycle starting")

	result, err := s.RunNow(ctx)
	if err != nil {
		if errors.Is(err, ErrRenewalInProgress) {
			log.WarnContext(ctx, "renewal already in progress, skipping cycle")
			return s.cfg.checkInterval()
		}

		switch s.cfg.FailMode {
		case FailModeLogAndContinue:
			log.ErrorContext(ctx, "renewal cycle failed",
				logger.Error(err),
				slog.Duration("next_check_in", s.cfg.checkInterval()))
			return s.cfg.checkInterval()
		case FailModeLogAndRetry:
			log.ErrorContext(ctx, "renewal cycle failed, retrying",
				logger.Error(err),
				slog.Duration("retry_in", s.cfg.retryInterval()))
			return s.cfg.retryInterval()
		default:
			panic(fmt.Sprintf("renewal cycle %s failed: %v", cycleID, err))
		}
	}

	log.InfoContext(ctx, "renewal cycle finished",
		slog.String("status", string(result.Status)))
	return s.cfg.checkInterval()
}

// RunNow executes one renewal cycle immediately, bounded by the renew
// timeout. It returns ErrRenewalInProgress when another cycle holds the
// lock. Hooks fire for the outcome; the scheduler's fail-mode policy does
// not apply to explicit runs.
func (s *Service) RunNow(ctx context.Context) (*Result, error) {
	result, err := s.renewOnce(ctx)
	if err != nil {
		if !errors.Is(err, ErrRenewalInProgress) && !errors.Is(err, ErrServiceStopped) {
			s.fireHooks(ctx, "exception", func(h Hook) { h.OnException(ctx, err) })
		}
		return nil, err
	}

	if result.Status != StatusUnchanged {
		s.fireHooks(ctx, "renewal_succeeded", func(h Hook) { h.OnRenewalSucceeded(ctx, result) })
	}
	return result, nil
}

func (s *Service) renewOnce(ctx context.Context) (*Result, error) {
	if State(s.state.Load()) == StateStopped {
		return nil, ErrServiceStopped
	}
	if !s.runMu.TryLock() {
		return nil, ErrRenewalInProgress
	}
	defer s.runMu.Unlock()

	// Restore the pre-cycle state afterwards: Scheduled when the scheduler
	// is armed, Idle for explicit runs before Start.
	prev := s.state.Load()
	s.state.Store(int32(StateRenewing))
	defer s.state.CompareAndSwap(int32(StateRenewing), prev)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.renewTimeout())
	defer cancel()

	result, err := s.provider.RenewIfNeeded(ctx, s.current.Load())
	if err != nil {
		return nil, err
	}
	if result.Certificate != nil {
		// Warm the chain before handshakes see the certificate. A verify
		// failure is logged, never a reason to withhold publication.
		if result.Status != StatusUnchanged {
			if err := result.Certificate.VerifyChain(); err != nil {
				s.log.WarnContext(ctx, "certificate chain does not verify against system roots",
					logger.Error(err))
			}
		}
		s.current.Store(result.Certificate)
	}
	return result, nil
}

// ScheduleNow asks the background scheduler to run a cycle as soon as
// possible instead of waiting out the current interval. No-op when a
// reschedule is already pending.
func (s *Service) ScheduleNow() {
	select {
	case s.reset <- 0:
	default:
	}
}

// Stop shuts the scheduler down and fires OnStop. Safe to call more than
// once and before Start.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.started.Load() {
			<-s.done
		}
		s.state.Store(int32(StateStopped))

		ctx := context.Background()
		s.fireHooks(ctx, "stop", func(h Hook) { h.OnStop(ctx) })
		s.log.InfoContext(ctx, "renewal service stopped")
	})
}

// State reports the scheduler's lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Certificate returns the currently published certificate, nil before the
// first successful cycle.
func (s *Service) Certificate() *certs.Certificate {
	return s.current.Load()
}

// GetCertificate serves the published certificate to TLS handshakes.
// Assign it to tls.Config.GetCertificate.
func (s *Service) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := s.current.Load()
	if cert == nil {
		return nil, ErrNoCertificate
	}
	return cert.TLSCertificate(), nil
}
