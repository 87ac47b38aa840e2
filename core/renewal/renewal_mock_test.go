package renewal_test

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

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/acme"
	"github.com/dmitrymomot/certkit/core/certs"
	"github.com/dmitrymomot/certkit/core/renewal"
	"github.com/dmitrymomot/certkit/core/store"
)

const testPassword = "renewal-pwd"

func newTestCert(t *testing.T, notBefore, notAfter time.Time, domains ...string) *certs.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: domains[0]},
		DNSNames:     domains,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	cert, err := certs.New(key, []*x509.Certificate{leaf}, testPassword)
	require.NoError(t, err)
	return cert
}

// freshTestCert is valid from an hour ago until 60 days out, comfortably
// inside the default renewal window.
func freshTestCert(t *testing.T, domains ...string) *certs.Certificate {
	t.Helper()
	now := time.Now()
	return newTestCert(t, now.Add(-time.Hour), now.Add(60*24*time.Hour), domains...)
}

// expiringTestCert has only two days of validity left.
func expiringTestCert(t *testing.T, domains ...string) *certs.Certificate {
	t.Helper()
	now := time.Now()
	return newTestCert(t, now.Add(-30*24*time.Hour), now.Add(2*24*time.Hour), domains...)
}

type fakeOrderer struct {
	mu            sync.Mutex
	cert          *certs.Certificate
	challenges    []store.ChallengeInfo
	placeErr      error
	finalizeErr   error
	placeCalls    int
	finalizeCalls int

	// blockFinalize, when non-nil, stalls FinalizeOrder until closed.
	blockFinalize chan struct{}
}

func (f *fakeOrderer) PlaceOrder(_ context.Context, domains []string) (*acme.PlacedOrder, error) {
	f.mu.Lock()
	f.placeCalls++
	err := f.placeErr
	challenges := f.challenges
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if challenges == nil {
		challenges = []store.ChallengeInfo{{Token: "tok", Response: "tok.keyauth", Domains: domains}}
	}
	return &acme.PlacedOrder{Domains: domains, Challenges: challenges}, nil
}

func (f *fakeOrderer) FinalizeOrder(ctx context.Context, _ *acme.PlacedOrder) (*certs.Certificate, error) {
	f.mu.Lock()
	f.finalizeCalls++
	block := f.blockFinalize
	cert, err := f.cert, f.finalizeErr
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return cert, nil
}

func (f *fakeOrderer) calls() (placed, finalized int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.placeCalls, f.finalizeCalls
}

func ordererSource(o renewal.Orderer) renewal.OrdererSource {
	return func(context.Context) (renewal.Orderer, error) {
		return o, nil
	}
}

// recordingHook captures every lifecycle event for assertions.
type recordingHook struct {
	mu        sync.Mutex
	starts    int
	stops     int
	successes []*renewal.Result
	errors    []error
}

func (h *recordingHook) OnStart(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
}

func (h *recordingHook) OnStop(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
}

func (h *recordingHook) OnRenewalSucceeded(_ context.Context, result *renewal.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.successes = append(h.successes, result)
}

func (h *recordingHook) OnException(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, err)
}

func (h *recordingHook) snapshot() (starts, stops, successes, errs int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.starts, h.stops, len(h.successes), len(h.errors)
}

// recordingChallengeBackend wraps a memory backend and counts operations.
type recordingChallengeBackend struct {
	*store.MemoryBackend
	mu      sync.Mutex
	saves   int
	deletes int
}

func newRecordingChallengeBackend() *recordingChallengeBackend {
	return &recordingChallengeBackend{MemoryBackend: store.NewMemoryBackend()}
}

func (b *recordingChallengeBackend) SaveChallenges(ctx context.Context, challenges []store.ChallengeInfo) error {
	b.mu.Lock()
	b.saves++
	b.mu.Unlock()
	return b.MemoryBackend.SaveChallenges(ctx, challenges)
}

func (b *recordingChallengeBackend) DeleteChallenges(ctx context.Context, challenges []store.ChallengeInfo) error {
	b.mu.Lock()
	b.deletes++
	b.mu.Unlock()
	return b.MemoryBackend.DeleteChallenges(ctx, challenges)
}

func (b *recordingChallengeBackend) counts() (saves, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves, b.deletes
}

type okProber struct{}

func (okProber) CheckPortsOpened(_ context.Context, targets []renewal.ProbeTarget) ([]bool, error) {
	opened := make([]bool, len(targets))
	for i := range opened {
		opened[i] = true
	}
	return opened, nil
}

func (okProber) OpenPorts(context.Context, []renewal.PortMapping, time.Duration) (bool, error) {
	return true, nil
}

// failProber reports every port closed and cannot forward, recording the
// mappings it was asked to open.
type failProber struct {
	mu       sync.Mutex
	mappings []renewal.PortMapping
}

func (p *failProber) CheckPortsOpened(_ context.Context, targets []renewal.ProbeTarget) ([]bool, error) {
	return make([]bool, len(targets)), nil
}

func (p *failProber) OpenPorts(_ context.Context, mappings []renewal.PortMapping, _ time.Duration) (bool, error) {
	p.mu.Lock()
	p.mappings = append(p.mappings, mappings...)
	p.mu.Unlock()
	return false, nil
}

func (p *failProber) requested() []renewal.PortMapping {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mappings
}

// forwardingProber reports every port closed but forwards successfully.
type forwardingProber struct{}

func (forwardingProber) CheckPortsOpened(_ context.Context, targets []renewal.ProbeTarget) ([]bool, error) {
	return make([]bool, len(targets)), nil
}

func (forwardingProber) OpenPorts(context.Context, []renewal.PortMapping, time.Duration) (bool, error) {
	return true, nil
}

func testConfig(domains ...string) renewal.Config {
	cfg := renewal.DefaultConfig("ops@example.com", domains...)
	cfg.CertPassword = testPassword
	cfg.RenewTimeout = 2 * time.Second
	return cfg
}
