// Package redis provides certificate and challenge storage on Redis. It
// plugs into the fan-out store as both a certificate and a challenge
// backend. Redis is the natural backend for challenge sharing between
// instances: writes are visible cluster-wide immediately, and challenge
// entries expire on their own if a crashed instance never deletes them.
//
// Connect creates a verified client from a redis:// or rediss:// URL with
// retry logic for transient startup races. Healthcheck returns a probe
// function for readiness endpoints.
package redis
