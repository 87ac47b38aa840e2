package server_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/server"
	"github.com/dmitrymomot/certkit/core/store"
)

type staticSource []store.ChallengeInfo

func (s staticSource) GetChallenges(context.Context) ([]store.ChallengeInfo, error) {
	return s, nil
}

func selfSignedCert(t *testing.T, host string) tls.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: host},
		DNSNames:     []string{host},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestNewAutoTLSValidation(t *testing.T) {
	t.Parallel()

	resolve := func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return nil, nil }

	t.Run("missing source", func(t *testing.T) {
		_, err := server.NewAutoTLS(server.Config{}, nil, resolve)
		assert.ErrorIs(t, err, server.ErrNoChallengeSource)
	})

	t.Run("missing resolver", func(t *testing.T) {
		_, err := server.NewAutoTLS(server.Config{}, staticSource{}, nil)
		assert.ErrorIs(t, err, server.ErrNoCertResolver)
	})

	t.Run("valid", func(t *testing.T) {
		pair, err := server.NewAutoTLS(server.Config{}, staticSource{}, resolve)
		require.NoError(t, err)
		assert.NotNil(t, pair)
	})
}

func TestAutoTLSRun(t *testing.T) {
	t.Parallel()

	httpAddr := fmt.Sprintf("127.0.0.1:%d", getFreePort(t))
	httpsAddr := fmt.Sprintf("127.0.0.1:%d", getFreePort(t))
	cfg := server.Config{
		HTTPAddr:        httpAddr,
		HTTPSAddr:       httpsAddr,
		ShutdownTimeout: time.Second,
	}

	cert := selfSignedCert(t, "localhost")
	source := staticSource{{Token: "tok-1", Response: "tok-1.auth"}}
	pair, err := server.NewAutoTLS(cfg, source,
		func(*tls.ClientHelloInfo) (*tls.Certificate, error) { return &cert, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- pair.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			io.WriteString(w, "app")
		}))
	}()

	waitForServer(t, "http://"+httpAddr+"/.well-known/acme-challenge/tok-1")

	t.Run("serves challenge", func(t *testing.T) {
		resp, err := http.Get("http://" + httpAddr + "/.well-known/acme-challenge/tok-1")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "tok-1.auth", string(body))
	})

	t.Run("redirects other http traffic", func(t *testing.T) {
		client := &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		resp, err := client.Get("http://" + httpAddr + "/dashboard?tab=certs")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
		assert.Equal(t, "https://127.0.0.1/dashboard?tab=certs", resp.Header.Get("Location"))
	})

	t.Run("serves application over tls", func(t *testing.T) {
		client := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
		resp, err := client.Get("https://" + httpsAddr + "/")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "app", string(body))
	})

	t.Run("second run rejected while active", func(t *testing.T) {
		err := pair.Run(ctx, http.NotFoundHandler())
		assert.ErrorIs(t, err, server.ErrServerAlreadyRunning)
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pair did not shut down")
	}
}
