package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/certkit/core/store"
)

// Compile-time checks that Backend plugs into the fan-out store.
var (
	_ store.CertBackend      = (*Backend)(nil)
	_ store.ChallengeBackend = (*Backend)(nil)
)

// Client is the subset of redis.Cmdable the backend uses. *redis.Client
// satisfies it; tests substitute a fake returning constructed results.
type Client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Backend stores PEM, PFX, and challenge artifacts as Redis values.
type Backend struct {
	client       Client
	prefix       string
	challengeTTL time.Duration
}

// NewBackend creates a backend on an established client. Challenge
// entries carry the configured TTL so orphaned challenges from crashed
// instances expire instead of accumulating.
func NewBackend(client Client, cfg Config) *Backend {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "certkit"
	}
	return &Backend{
		client:       client,
		prefix:       prefix,
		challengeTTL: cfg.ChallengeTTL,
	}
}

func (b *Backend) key(name string) string {
	return b.prefix + ":" + name
}

func (b *Backend) challengesKey() string {
	return b.key("challenges")
}

func certKey(kind store.CertKind) (string, error) {
	switch kind {
	case store.KindAccountKey, store.KindSiteBundle:
		return string(kind), nil
	}
	return "", fmt.Errorf("%w: %s", store.ErrUnknownCertKind, kind)
}

func (b *Backend) SaveCert(ctx context.Context, kind store.CertKind, data []byte) error {
	name, err := certKey(kind)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}

func (b *Backend) LoadCert(ctx context.Context, kind store.CertKind) ([]byte, error) {
	name, err := certKey(kind)
	if err != nil {
		return nil, err
	}
	data, err := b.client.Get(ctx, b.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	return data, nil
}

func (b *Backend) SaveChallenges(ctx context.Context, challenges []store.ChallengeInfo) error {
	data, err := json.Marshal(challenges)
	if err != nil {
		return fmt.Errorf("encode challenges: %w", err)
	}
	if err := b.client.Set(ctx, b.challengesKey(), data, b.challengeTTL).Err(); err != nil {
		return fmt.Errorf("save challenges: %w", err)
	}
	return nil
}

func (b *Backend) LoadChallenges(ctx context.Context) ([]store.ChallengeInfo, error) {
	data, err := b.client.Get(ctx, b.challengesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load challenges: %w", err)
	}

	var challenges []store.ChallengeInfo
	if err := json.Unmarshal(data, &challenges); err != nil {
		return nil, fmt.Errorf("decode challenges: %w", err)
	}
	return challenges, nil
}

func (b *Backend) DeleteChallenges(ctx context.Context, challenges []store.ChallengeInfo) error {
	stored, err := b.LoadChallenges(ctx)
	if err != nil {
		return err
	}

	kept := store.RemoveByToken(stored, challenges)
	if len(kept) == 0 {
		if err := b.client.Del(ctx, b.challengesKey()).Err(); err != nil {
			return fmt.Errorf("delete challenges: %w", err)
		}
		return nil
	}
	return b.SaveChallenges(ctx, kept)
}
