package server

import "time"

// Config holds the listen addresses and timeouts for the AutoTLS pair.
// Loaded from the environment.
type Config struct {
	HTTPAddr        string        `env:"CERT_HTTP_ADDR" envDefault:":80"`
	HTTPSAddr       string        `env:"CERT_HTTPS_ADDR" envDefault:":443"`
	ReadTimeout     time.Duration `env:"CERT_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"CERT_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"CERT_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"CERT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func (c Config) httpAddr() string {
	if c.HTTPAddr == "" {
		return ":80"
	}
	return c.HTTPAddr
}

func (c Config) httpsAddr() string {
	if c.HTTPSAddr == "" {
		return ":443"
	}
	return c.HTTPSAddr
}

func (c Config) serverOptions() []Option {
	opts := make([]Option, 0, 4)
	if c.ReadTimeout > 0 {
		opts = append(opts, WithReadTimeout(c.ReadTimeout))
	}
	if c.WriteTimeout > 0 {
		opts = append(opts, WithWriteTimeout(c.WriteTimeout))
	}
	if c.IdleTimeout > 0 {
		opts = append(opts, WithIdleTimeout(c.IdleTimeout))
	}
	if c.ShutdownTimeout > 0 {
		opts = append(opts, WithShutdownTimeout(c.ShutdownTimeout))
	}
	return opts
}
