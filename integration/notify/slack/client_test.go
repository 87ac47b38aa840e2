package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/notify"
	"github.com/dmitrymomot/certkit/integration/notify/slack"
)

func TestNew(t *testing.T) {
	t.Parallel()

	client, err := slack.New(slack.Config{WebhookURL: "https://hooks.slack.com/services/T0/B0/x"})
	require.NoError(t, err)
	assert.NotNil(t, client)

	for name, cfg := range map[string]slack.Config{
		"missing url":  {},
		"relative url": {WebhookURL: "/services/T0/B0/x"},
		"bad scheme":   {WebhookURL: "ftp://hooks.slack.com/services"},
	} {
		_, err := slack.New(cfg)
		assert.ErrorIs(t, err, notify.ErrInvalidConfig, name)
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	t.Run("posts subject and flattened body", func(t *testing.T) {
		t.Parallel()

		var got struct {
			Channel  string `json:"channel"`
			Username string `json:"username"`
			Text     string `json:"text"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		client, err := slack.New(slack.Config{
			WebhookURL: srv.URL,
			Channel:    "#certs",
			Username:   "certkit",
		})
		require.NoError(t, err)

		err = client.Send(context.Background(), notify.Message{
			Subject:  "certificate renewed",
			BodyHTML: "<p>Certificate renewed (example.com).</p><p>Valid until: 2026-09-01</p>",
		})
		require.NoError(t, err)

		assert.Equal(t, "#certs", got.Channel)
		assert.Equal(t, "certkit", got.Username)
		assert.Equal(t, "*certificate renewed*\nCertificate renewed (example.com).\nValid until: 2026-09-01", got.Text)
	})

	t.Run("requires a subject", func(t *testing.T) {
		t.Parallel()

		client, err := slack.New(slack.Config{WebhookURL: "https://hooks.slack.com/services/T0/B0/x"})
		require.NoError(t, err)

		err = client.Send(context.Background(), notify.Message{BodyHTML: "<p>body</p>"})
		assert.ErrorIs(t, err, notify.ErrEmptySubject)
	})

	t.Run("surfaces webhook rejection", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "invalid_payload", http.StatusBadRequest)
		}))
		defer srv.Close()

		client, err := slack.New(slack.Config{WebhookURL: srv.URL})
		require.NoError(t, err)

		err = client.Send(context.Background(), notify.Message{Subject: "certificate renewed"})
		require.ErrorIs(t, err, notify.ErrFailedToSend)
		assert.ErrorContains(t, err, "invalid_payload")
	})
}
