// Package challenge serves ACME HTTP-01 key authorizations over plain
// HTTP. It wraps an existing handler and intercepts well-known challenge
// paths, passing everything else downstream untouched.
package challenge

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/certkit/core/logger"
	"github.com/dmitrymomot/certkit/core/store"
)

// Prefix is the well-known path under which ACME validation servers
// request HTTP-01 proofs.
const Prefix = "/.well-known/acme-challenge/"

// Source yields the currently persisted challenges. *store.Store
// satisfies it.
type Source interface {
	GetChallenges(ctx context.Context) ([]store.ChallengeInfo, error)
}

type handler struct {
	source Source
	next   http.Handler
	log    *slog.Logger
}

// Option configures the challenge handler.
type Option func(*handler)

// WithLogger sets the logger for served and unmatched tokens.
func WithLogger(log *slog.Logger) Option {
	return func(h *handler) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHandler returns a handler that answers HTTP-01 challenge requests
// from the source and forwards all other traffic to next. A nil next
// yields 404 for non-challenge paths.
func NewHandler(source Source, next http.Handler, opts ...Option) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	h := &handler{
		source: source,
		next:   next,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.URL.Path, Prefix)
	if !ok || token == "" || strings.Contains(token, "/") {
		h.next.ServeHTTP(w, r)
		return
	}

	challenges, err := h.source.GetChallenges(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "failed to load challenges",
			logger.Token(token),
			logger.Error(err))
		h.next.ServeHTTP(w, r)
		return
	}

	for _, ch := range challenges {
		if ch.Token != token {
			continue
		}
		h.log.InfoContext(r.Context(), "served challenge response",
			logger.Token(token))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(ch.Response)))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, ch.Response)
		return
	}

	h.log.WarnContext(r.Context(), "no stored challenge for token",
		logger.Token(token))
	h.next.ServeHTTP(w, r)
}
