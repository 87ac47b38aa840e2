package smtp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certkit/core/notify"
	"github.com/dmitrymomot/certkit/integration/notify/smtp"
)

func validConfig() smtp.Config {
	return smtp.Config{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "user",
		Password:    "secret",
		TLSMode:     "starttls",
		SenderEmail: "certs@example.com",
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("accepts a complete config", func(t *testing.T) {
		t.Parallel()

		client, err := smtp.New(validConfig())
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("rejects incomplete configs", func(t *testing.T) {
		t.Parallel()

		mutations := map[string]func(*smtp.Config){
			"missing host":     func(c *smtp.Config) { c.Host = "" },
			"invalid port":     func(c *smtp.Config) { c.Port = 0 },
			"missing username": func(c *smtp.Config) { c.Username = "" },
			"missing password": func(c *smtp.Config) { c.Password = "" },
			"bad tls mode":     func(c *smtp.Config) { c.TLSMode = "ssl3" },
			"bad sender":       func(c *smtp.Config) { c.SenderEmail = "nope" },
		}
		for name, mutate := range mutations {
			cfg := validConfig()
			mutate(&cfg)
			_, err := smtp.New(cfg)
			assert.ErrorIs(t, err, notify.ErrInvalidConfig, name)
		}
	})
}
