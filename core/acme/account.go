package acme

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	xacme "golang.org/x/crypto/acme"

	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/store"
)

// AccountFactory produces the process-wide ACME client, registering or
// re-attaching the account on first use and memoizing the result.
type AccountFactory struct {
	mu     sync.Mutex
	store  *store.Store
	cfg    Config
	log    *slog.Logger
	newAPI func(key crypto.Signer, directoryURL string) API

	client *Client
}

// FactoryOption configures an AccountFactory.
type FactoryOption func(*AccountFactory)

// WithFactoryLogger sets the logger for account lifecycle events.
func WithFactoryLogger(log *slog.Logger) FactoryOption {
	return func(f *AccountFactory) {
		if log != nil {
			f.log = log
		}
	}
}

// WithAPIConstructor replaces the protocol client constructor. Used by
// tests to observe registration without a live CA.
func WithAPIConstructor(fn func(key crypto.Signer, directoryURL string) API) FactoryOption {
	return func(f *AccountFactory) {
		if fn != nil {
			f.newAPI = fn
		}
	}
}

// NewAccountFactory creates a factory bound to the given store and config.
func NewAccountFactory(st *store.Store, cfg Config, opts ...FactoryOption) (*AccountFactory, error) {
	if cfg.Email == "" {
		return nil, ErrEmailRequired
	}
	f := &AccountFactory{
		store:  st,
		cfg:    cfg,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newAPI: newProtocolClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Client returns the order client for the configured account, creating and
// registering the account on first call. Subsequent calls return the same
// client without touching the CA or the store.
func (f *AccountFactory) Client(ctx context.Context) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return f.client, nil
	}

	key, err := f.store.GetAccountKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load account key: %w", err)
	}

	fresh := key == nil
	if fresh {
		key, err = certs.GenerateKey(f.cfg.keyType())
		if err != nil {
			return nil, fmt.Errorf("generate account key: %w", err)
		}
	}

	api := f.newAPI(key, f.cfg.directoryURL())
	acct := &xacme.Account{Contact: []string{"mailto:" + f.cfg.Email}}
	if _, err := api.Register(ctx, acct, xacme.AcceptTOS); err != nil {
		if !errors.Is(err, xacme.ErrAccountAlreadyExists) {
			return nil, fmt.Errorf("register account: %w", err)
		}
		f.log.DebugContext(ctx, "reusing existing acme account", slog.String("email", f.cfg.Email))
	} else {
		f.log.InfoContext(ctx, "registered acme account",
			slog.String("email", f.cfg.Email),
			slog.String("directory", f.cfg.directoryURL()),
			slog.Bool("new_key", fresh))
	}

	if fresh {
		if err := f.store.SaveAccountKey(ctx, key); err != nil {
			return nil, fmt.Errorf("save account key: %w", err)
		}
	}

	f.client = &Client{
		api:          api,
		cfg:          f.cfg,
		log:          f.log,
		pollInterval: f.cfg.pollInterval(),
	}
	return f.client, nil
}
