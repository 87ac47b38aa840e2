package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps artifacts in process memory. Useful as a fast
// first-registered cache in front of a durable backend, and for tests.
// The zero value is not usable; create it with NewMemoryBackend.
type MemoryBackend struct {
	mu         sync.RWMutex
	certs      map[CertKind][]byte
	challenges []ChallengeInfo
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{certs: make(map[CertKind][]byte)}
}

// SaveCert implements CertBackend.
func (m *MemoryBackend) SaveCert(_ context.Context, kind CertKind, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certs[kind] = append([]byte(nil), data...)
	return nil
}

// LoadCert implements CertBackend.
func (m *MemoryBackend) LoadCert(_ context.Context, kind CertKind) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.certs[kind]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// SaveChallenges implements ChallengeBackend.
func (m *MemoryBackend) SaveChallenges(_ context.Context, challenges []ChallengeInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges = append([]ChallengeInfo(nil), challenges...)
	return nil
}

// LoadChallenges implements ChallengeBackend.
func (m *MemoryBackend) LoadChallenges(_ context.Context) ([]ChallengeInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ChallengeInfo(nil), m.challenges...), nil
}

// DeleteChallenges implements ChallengeBackend.
func (m *MemoryBackend) DeleteChallenges(_ context.Context, challenges []ChallengeInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges = RemoveByToken(m.challenges, challenges)
	return nil
}
