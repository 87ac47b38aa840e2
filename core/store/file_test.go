package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/store"
)

func TestNewFileBackendValidation(t *testing.T) {
	_, err := store.NewFileBackend("", "example.com")
	assert.ErrorIs(t, err, store.ErrBasePathRequired)

	_, err = store.NewFileBackend(t.TempDir(), "")
	assert.ErrorIs(t, err, store.ErrPrefixRequired)
}

func TestFileBackendCertArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := store.NewFileBackend(dir, "example.com")
	require.NoError(t, err)

	// Absent artifacts read as nil, nil.
	data, err := backend.LoadCert(ctx, store.KindSiteBundle)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, backend.SaveCert(ctx, store.KindSiteBundle, []byte("bundle-bytes")))
	require.NoError(t, backend.SaveCert(ctx, store.KindAccountKey, []byte("key-bytes")))

	data, err = backend.LoadCert(ctx, store.KindSiteBundle)
	require.NoError(t, err)
	assert.Equal(t, []byte("bundle-bytes"), data)

	data, err = backend.LoadCert(ctx, store.KindAccountKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("key-bytes"), data)

	// Artifact naming derives from the prefix.
	assert.FileExists(t, filepath.Join(dir, "example.com.pfx"))
	assert.FileExists(t, filepath.Join(dir, "example.com-privkey.pem"))

	_, err = backend.LoadCert(ctx, store.CertKind("bogus"))
	assert.ErrorIs(t, err, store.ErrUnknownCertKind)
}

func TestFileBackendChallenges(t *testing.T) {
	ctx := context.Background()
	backend, err := store.NewFileBackend(t.TempDir(), "example.com")
	require.NoError(t, err)

	// Missing file means no challenges.
	got, err := backend.LoadChallenges(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	challenges := []store.ChallengeInfo{
		{Token: "tok-1", Response: "tok-1.auth", Domains: []string{"example.com"}},
		{Token: "tok-2", Response: "tok-2.auth", Domains: []string{"example.com"}},
	}
	require.NoError(t, backend.SaveChallenges(ctx, challenges))

	got, err = backend.LoadChallenges(ctx)
	require.NoError(t, err)
	assert.Equal(t, challenges, got)

	require.NoError(t, backend.DeleteChallenges(ctx, []store.ChallengeInfo{{Token: "tok-1"}}))
	got, err = backend.LoadChallenges(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tok-2", got[0].Token)
}

func TestFileBackendNoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := store.NewFileBackend(dir, "example.com")
	require.NoError(t, err)

	require.NoError(t, backend.SaveCert(ctx, store.KindSiteBundle, []byte("bytes")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
