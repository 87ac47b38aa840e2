package notify_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/notify"
	"github.com/dmitrymomot/certkit/core/renewal"
	"github.com/dmitrymomot/certkit/core/store"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (f *fakeSender) Send(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) sent() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.messages...)
}

func testCert(t *testing.T) *certs.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.com"},
		DNSNames:     []string{"example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(60 * 24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	cert, err := certs.New(key, []*x509.Certificate{leaf}, "pwd")
	require.NoError(t, err)
	return cert
}

func TestNewHook(t *testing.T) {
	t.Parallel()

	_, err := notify.NewHook(&fakeSender{}, "not-an-email")
	assert.ErrorIs(t, err, notify.ErrInvalidConfig)

	// Channel-addressed senders carry no recipient address.
	_, err = notify.NewHook(&fakeSender{}, "")
	assert.NoError(t, err)
}

func TestHookEvents(t *testing.T) {
	t.Parallel()

	t.Run("emails renewal success", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		hook, err := notify.NewHook(sender, "ops@example.com", notify.WithSubjectPrefix("prod"))
		require.NoError(t, err)

		hook.OnRenewalSucceeded(context.Background(), &renewal.Result{
			Status:      renewal.StatusRenewed,
			Certificate: testCert(t),
		})

		msgs := sender.sent()
		require.Len(t, msgs, 1)
		assert.Equal(t, "ops@example.com", msgs[0].SendTo)
		assert.Equal(t, "[prod] certificate renewed", msgs[0].Subject)
		assert.Contains(t, msgs[0].BodyHTML, "example.com")
	})

	t.Run("emails exceptions", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		hook, err := notify.NewHook(sender, "ops@example.com")
		require.NoError(t, err)

		hook.OnException(context.Background(), assert.AnError)

		msgs := sender.sent()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Subject, "renewal problem")
		assert.Contains(t, msgs[0].BodyHTML, assert.AnError.Error())
	})

	t.Run("swallows delivery failures", func(t *testing.T) {
		t.Parallel()

		hook, err := notify.NewHook(&fakeSender{err: assert.AnError}, "ops@example.com")
		require.NoError(t, err)

		// Must not panic or propagate.
		hook.OnException(context.Background(), assert.AnError)
	})

	t.Run("start and stop are silent", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		hook, err := notify.NewHook(sender, "ops@example.com")
		require.NoError(t, err)

		hook.OnStart(context.Background())
		hook.OnStop(context.Background())
		assert.Empty(t, sender.sent())
	})
}

func TestStoreNotifier(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	notifier, err := notify.NewStoreNotifier(sender, "ops@example.com")
	require.NoError(t, err)

	require.NoError(t, notifier.Notify(context.Background(), store.KindAccountKey, []byte("pem")))
	assert.Empty(t, sender.sent())

	require.NoError(t, notifier.Notify(context.Background(), store.KindSiteBundle, []byte("pfx")))
	msgs := sender.sent()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Subject, "bundle stored")
}
