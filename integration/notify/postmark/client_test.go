package postmark_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/notify"
	"github.com/dmitrymomot/certkit/integration/notify/postmark"
)

func TestNew(t *testing.T) {
	t.Parallel()

	valid := postmark.Config{
		ServerToken:  "server-token",
		AccountToken: "account-token",
		SenderEmail:  "certs@example.com",
	}

	client, err := postmark.New(valid)
	require.NoError(t, err)
	assert.NotNil(t, client)

	for name, mutate := range map[string]func(*postmark.Config){
		"missing server token":  func(c *postmark.Config) { c.ServerToken = "" },
		"missing account token": func(c *postmark.Config) { c.AccountToken = "" },
		"bad sender":            func(c *postmark.Config) { c.SenderEmail = "nope" },
	} {
		cfg := valid
		mutate(&cfg)
		_, err := postmark.New(cfg)
		assert.ErrorIs(t, err, notify.ErrInvalidConfig, name)
	}
}
