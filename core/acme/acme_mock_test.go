package acme_test

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	xacme "golang.org/x/crypto/acme"

	"github.com/dmitrymomot/certkit/core/acme"
)

// fakeAPI simulates a compliant CA for the whole order flow. Individual
// function fields override the default behavior per test.
type fakeAPI struct {
	mu sync.Mutex

	caKey  *ecdsa.PrivateKey
	caCert *x509.Certificate

	registerCalls int
	registerErr   error
	acceptedURIs  map[string]bool
	// pollsUntilValid delays the valid status by N GetChallenge rounds.
	pollsUntilValid int
	polls           map[string]int
	invalidTokens   map[string]error

	validAuthz map[string]bool

	getChallengeFunc func(ctx context.Context, url string) (*xacme.Challenge, error)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Fake Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &caKey.PublicKey, caKey)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &fakeAPI{
		caKey:         caKey,
		caCert:        caCert,
		acceptedURIs:  map[string]bool{},
		polls:         map[string]int{},
		invalidTokens: map[string]error{},
		validAuthz:    map[string]bool{},
	}
}

func (f *fakeAPI) Register(_ context.Context, _ *xacme.Account, _ func(string) bool) (*xacme.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &xacme.Account{URI: "https://ca.test/acct/1"}, nil
}

func (f *fakeAPI) AuthorizeOrder(_ context.Context, ids []xacme.AuthzID, _ ...xacme.OrderOption) (*xacme.Order, error) {
	urls := make([]string, len(ids))
	for i, id := range ids {
		urls[i] = "https://ca.test/authz/" + id.Value
	}
	return &xacme.Order{
		URI:         "https://ca.test/order/1",
		Status:      xacme.StatusPending,
		AuthzURLs:   urls,
		FinalizeURL: "https://ca.test/finalize/1",
	}, nil
}

func (f *fakeAPI) GetAuthorization(_ context.Context, url string) (*xacme.Authorization, error) {
	domain := url[len("https://ca.test/authz/"):]
	f.mu.Lock()
	valid := f.validAuthz[domain]
	f.mu.Unlock()
	status := xacme.StatusPending
	if valid {
		status = xacme.StatusValid
	}
	return &xacme.Authorization{
		Status:     status,
		Identifier: xacme.AuthzID{Type: "dns", Value: domain},
		Challenges: []*xacme.Challenge{
			{Type: "tls-alpn-01", Token: "alpn-" + domain, URI: "https://ca.test/chal/alpn/" + domain},
			{Type: "http-01", Token: "tok-" + domain, URI: "https://ca.test/chal/http/" + domain},
		},
	}, nil
}

func (f *fakeAPI) Accept(_ context.Context, chal *xacme.Challenge) (*xacme.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptedURIs[chal.URI] = true
	out := *chal
	out.Status = xacme.StatusProcessing
	return &out, nil
}

func (f *fakeAPI) GetChallenge(ctx context.Context, url string) (*xacme.Challenge, error) {
	if f.getChallengeFunc != nil {
		return f.getChallengeFunc(ctx, url)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.acceptedURIs[url] {
		return nil, fmt.Errorf("challenge %s not accepted", url)
	}
	ch := &xacme.Challenge{URI: url, Token: url}
	// Challenge URIs embed the domain; rebuild the token the same way
	// GetAuthorization issued it.
	if domain, ok := strings.CutPrefix(url, "https://ca.test/chal/http/"); ok {
		if caErr, invalid := f.invalidTokens["tok-"+domain]; invalid {
			ch.Token = "tok-" + domain
			ch.Status = xacme.StatusInvalid
			ch.Error = &xacme.Error{ProblemType: "urn:ietf:params:acme:error:unauthorized", Detail: caErr.Error()}
			return ch, nil
		}
	}
	f.polls[url]++
	if f.polls[url] <= f.pollsUntilValid {
		ch.Status = xacme.StatusProcessing
		return ch, nil
	}
	ch.Status = xacme.StatusValid
	return ch, nil
}

func (f *fakeAPI) WaitOrder(_ context.Context, orderURL string) (*xacme.Order, error) {
	return &xacme.Order{
		URI:         orderURL,
		Status:      xacme.StatusReady,
		FinalizeURL: "https://ca.test/finalize/1",
	}, nil
}

// CreateOrderCert signs the submitted CSR with the fake root and returns a
// two-element chain, mimicking a bundled CA response.
func (f *fakeAPI) CreateOrderCert(_ context.Context, _ string, csr []byte, bundle bool) ([][]byte, string, error) {
	req, err := x509.ParseCertificateRequest(csr)
	if err != nil {
		return nil, "", err
	}
	if err := req.CheckSignature(); err != nil {
		return nil, "", err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      req.Subject,
		DNSNames:     req.DNSNames,
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(90 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, f.caCert, req.PublicKey, f.caKey)
	if err != nil {
		return nil, "", err
	}
	out := [][]byte{der}
	if bundle {
		out = append(out, f.caCert.Raw)
	}
	return out, "https://ca.test/cert/1", nil
}

func (f *fakeAPI) HTTP01ChallengeResponse(token string) (string, error) {
	return token + ".keyauth", nil
}

func (f *fakeAPI) DNS01ChallengeRecord(token string) (string, error) {
	return "txt-" + token, nil
}

// apiConstructorRecorder captures the key and directory every protocol
// client was built with while always handing back the same fake.
type apiConstructorRecorder struct {
	api  *fakeAPI
	keys []crypto.Signer
	urls []string
}

func (r *apiConstructorRecorder) construct(key crypto.Signer, directoryURL string) acme.API {
	r.keys = append(r.keys, key)
	r.urls = append(r.urls, directoryURL)
	return r.api
}
