package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend persists artifacts as files under a base directory, named by
// a prefix derived from the primary domain:
//
//	<prefix>-privkey.pem    account key
//	<prefix>.pfx            site certificate bundle
//	<prefix>-challenges.json pending challenge set
//
// Writes go through a temp file and rename so a crash never leaves a
// half-written artifact. A single mutex serializes writes against
// concurrent reads from the challenge handler.
type FileBackend struct {
	mu       sync.Mutex
	basePath string
	prefix   string
}

// NewFileBackend creates a file backend rooted at basePath. The directory
// is created if missing.
func NewFileBackend(basePath, prefix string) (*FileBackend, error) {
	if basePath == "" {
		return nil, ErrBasePathRequired
	}
	if prefix == "" {
		return nil, ErrPrefixRequired
	}
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileBackend{basePath: basePath, prefix: prefix}, nil
}

// SaveCert implements CertBackend.
func (f *FileBackend) SaveCert(_ context.Context, kind CertKind, data []byte) error {
	path, err := f.certPath(kind)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeAtomic(path, data)
}

// LoadCert implements CertBackend.
func (f *FileBackend) LoadCert(_ context.Context, kind CertKind) ([]byte, error) {
	path, err := f.certPath(kind)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// SaveChallenges implements ChallengeBackend.
func (f *FileBackend) SaveChallenges(_ context.Context, challenges []ChallengeInfo) error {
	data, err := json.Marshal(challenges)
	if err != nil {
		return fmt.Errorf("encode challenges: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeAtomic(f.challengesPath(), data)
}

// LoadChallenges implements ChallengeBackend.
func (f *FileBackend) LoadChallenges(_ context.Context) ([]ChallengeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.challengesPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read challenges: %w", err)
	}

	var challenges []ChallengeInfo
	if err := json.Unmarshal(data, &challenges); err != nil {
		return nil, fmt.Errorf("decode challenges: %w", err)
	}
	return challenges, nil
}

// DeleteChallenges implements ChallengeBackend: load, drop matching tokens,
// save the remainder.
func (f *FileBackend) DeleteChallenges(ctx context.Context, challenges []ChallengeInfo) error {
	stored, err := f.LoadChallenges(ctx)
	if err != nil {
		return err
	}
	return f.SaveChallenges(ctx, RemoveByToken(stored, challenges))
}

func (f *FileBackend) certPath(kind CertKind) (string, error) {
	switch kind {
	case KindAccountKey:
		return filepath.Join(f.basePath, f.prefix+"-privkey.pem"), nil
	case KindSiteBundle:
		return filepath.Join(f.basePath, f.prefix+".pfx"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCertKind, kind)
	}
}

func (f *FileBackend) challengesPath() string {
	return filepath.Join(f.basePath, f.prefix+"-challenges.json")
}

func (f *FileBackend) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}
