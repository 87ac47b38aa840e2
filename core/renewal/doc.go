// Package renewal keeps a live TLS certificate fresh. The Provider
// implements the renewal decision: keep the current certificate, fall back
// to a stored bundle, or run a full ACME order. The Service schedules that
// decision on an interval, publishes the winning certificate atomically
// for tls.Config consumption, and reports lifecycle events to hooks.
//
// Only one renewal cycle runs at a time. A cycle triggered while another
// is in flight is skipped, not queued. Failure handling is configurable:
// panic on first failure, log and wait for the next regular check, or log
// and retry on a shorter interval.
//
// Start refuses to arm the scheduler when the serving ports do not answer
// from the outside: the Prober checks them and may open forwarding rules,
// and when both fail the service stops instead of retrying validations
// that cannot succeed.
package renewal
