// Command certkitd obtains and renews TLS certificates for a set of
// domains, answers ACME HTTP-01 challenges on the plain HTTP port, and
// terminates TLS with the freshest certificate on the HTTPS port.
//
// All configuration comes from the environment (or a .env file). The
// file backend is always on; Redis and S3 backends and email or Slack
// notifications are enabled per deployment.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/core/config"
	"github.com/dmitrymomot/certkit/core/health"
	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/notify"
	"github.com/dmitrymomot/certkit/core/renewal"
	"github.com/dmitrymomot/certkit/core/server"
	"github.com/dmitrymomot/certkit/core/store"
	notifypostmark "github.com/dmitrymomot/certkit/integration/notify/postmark"
	notifyslack "github.com/dmitrymomot/certkit/integration/notify/slack"
	notifysmtp "github.com/dmitrymomot/certkit/integration/notify/smtp"
	redisstore "github.com/dmitrymomot/certkit/integration/store/redis"
	s3store "github.com/dmitrymomot/certkit/integration/store/s3"
)

type appConfig struct {
	LogLevel slog.Level `env:"CERT_LOG_LEVEL" envDefault:"info"`
}

type storeConfig struct {
	Dir          string `env:"CERT_STORE_DIR" envDefault:"./certs"`
	Prefix       string `env:"CERT_STORE_PREFIX" envDefault:"site"`
	RedisEnabled bool   `env:"CERT_REDIS_ENABLED" envDefault:"false"`
	S3Enabled    bool   `env:"CERT_S3_ENABLED" envDefault:"false"`
}

type notifyConfig struct {
	Recipient string `env:"CERT_NOTIFY_EMAIL"`
	Provider  string `env:"CERT_NOTIFY_PROVIDER" envDefault:"postmark"` // postmark, smtp, or slack
}

// enabled reports whether a notification channel is configured: email
// providers need a recipient, slack is addressed by its webhook.
func (c notifyConfig) enabled() bool {
	return c.Recipient != "" || c.Provider == "slack"
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: appCfg.LogLevel}))
	slog.SetDefault(log)

	var renewCfg renewal.Config
	config.MustLoad(&renewCfg)
	var stCfg storeConfig
	config.MustLoad(&stCfg)
	var ntCfg notifyConfig
	config.MustLoad(&ntCfg)

	st, readiness, err := buildStore(ctx, stCfg, ntCfg, log)
	if err != nil {
		return err
	}

	factory, err := acme.NewAccountFactory(st, renewCfg.ACMEConfig(), acme.WithFactoryLogger(log))
	if err != nil {
		return fmt.Errorf("account factory: %w", err)
	}

	provider, err := renewal.NewProvider(renewCfg, st, renewal.AccountOrderer(factory),
		renewal.WithProviderLogger(log))
	if err != nil {
		return fmt.Errorf("renewal provider: %w", err)
	}

	svcOpts := []renewal.ServiceOption{renewal.WithServiceLogger(log)}
	if hook := buildHook(ntCfg, log); hook != nil {
		svcOpts = append(svcOpts, renewal.WithHooks(hook))
	}

	svc, err := renewal.NewService(renewCfg, provider, svcOpts...)
	if err != nil {
		return fmt.Errorf("renewal service: %w", err)
	}
	defer svc.Stop()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start renewal service: %w", err)
	}

	var srvCfg server.Config
	config.MustLoad(&srvCfg)

	pair, err := server.NewAutoTLS(srvCfg, st, svc.GetCertificate, server.WithAutoTLSLogger(log))
	if err != nil {
		return fmt.Errorf("server pair: %w", err)
	}

	return pair.Run(ctx, newMux(svc, log, readiness))
}

// buildStore assembles the fan-out store: file backend always, Redis and
// S3 per configuration, notification sink when a recipient is set.
func buildStore(ctx context.Context, stCfg storeConfig, ntCfg notifyConfig, log *slog.Logger) (*store.Store, []func(context.Context) error, error) {
	fileBackend, err := store.NewFileBackend(stCfg.Dir, stCfg.Prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("file backend: %w", err)
	}

	certBackends := []store.CertBackend{fileBackend}
	challengeBackends := []store.ChallengeBackend{fileBackend}
	var readiness []func(context.Context) error

	if stCfg.RedisEnabled {
		var rCfg redisstore.Config
		config.MustLoad(&rCfg)
		client, err := redisstore.Connect(ctx, rCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		backend := redisstore.NewBackend(client, rCfg)
		certBackends = append(certBackends, backend)
		// Redis goes first for challenges so instances see each other's
		// tokens without waiting on shared volumes.
		challengeBackends = append([]store.ChallengeBackend{backend}, challengeBackends...)
		readiness = append(readiness, redisstore.Healthcheck(client))
	}

	if stCfg.S3Enabled {
		var sCfg s3store.Config
		config.MustLoad(&sCfg)
		backend, err := s3store.New(ctx, sCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("s3: %w", err)
		}
		certBackends = append(certBackends, backend)
		challengeBackends = append(challengeBackends, backend)
	}

	storeOpts := []store.Option{
		store.WithCertBackends(certBackends...),
		store.WithChallengeBackends(challengeBackends...),
		store.WithLogger(log),
	}

	if ntCfg.enabled() {
		if sender := buildSender(ntCfg, log); sender != nil {
			notifier, err := notify.NewStoreNotifier(sender, ntCfg.Recipient)
			if err != nil {
				return nil, nil, err
			}
			storeOpts = append(storeOpts, store.WithNotifiers(notifier))
		}
	}

	return store.New(storeOpts...), readiness, nil
}

func buildSender(ntCfg notifyConfig, log *slog.Logger) notify.Sender {
	switch ntCfg.Provider {
	case "postmark":
		var cfg notifypostmark.Config
		config.MustLoad(&cfg)
		sender, err := notifypostmark.New(cfg)
		if err != nil {
			log.Warn("postmark notifications disabled", logger.Error(err))
			return nil
		}
		return sender
	case "smtp":
		var cfg notifysmtp.Config
		config.MustLoad(&cfg)
		sender, err := notifysmtp.New(cfg)
		if err != nil {
			log.Warn("smtp notifications disabled", logger.Error(err))
			return nil
		}
		return sender
	case "slack":
		var cfg notifyslack.Config
		config.MustLoad(&cfg)
		sender, err := notifyslack.New(cfg)
		if err != nil {
			log.Warn("slack notifications disabled", logger.Error(err))
			return nil
		}
		return sender
	default:
		log.Warn("unknown notification provider", slog.String("provider", ntCfg.Provider))
		return nil
	}
}

func buildHook(ntCfg notifyConfig, log *slog.Logger) renewal.Hook {
	if !ntCfg.enabled() {
		return nil
	}
	sender := buildSender(ntCfg, log)
	if sender == nil {
		return nil
	}
	hook, err := notify.NewHook(sender, ntCfg.Recipient, notify.WithHookLogger(log))
	if err != nil {
		log.Warn("notification hook disabled", logger.Error(err))
		return nil
	}
	return hook
}

func newMux(svc *renewal.Service, log *slog.Logger, readiness []func(context.Context) error) http.Handler {
	certReady := func(context.Context) error {
		if svc.Certificate() == nil {
			return errors.New("no certificate yet")
		}
		return nil
	}
	checks := append([]func(context.Context) error{certReady}, readiness...)

	mux := http.NewServeMux()
	mux.Handle("/livez", health.Liveness())
	mux.Handle("/healthz", health.Readiness(log, checks...))
	return mux
}
