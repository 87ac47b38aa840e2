// Package store provides the fan-out persistence layer for certificate
// material and in-flight ACME challenges.
//
// Two independent backend collections are composed into one Store: cert
// backends hold the ACME account key and the site certificate bundle,
// challenge backends hold the challenge tokens served during domain
// validation. Reads and writes follow different semantics on purpose:
//
//   - Cert reads scan backends in registration order and return the first
//     hit, so a faster backend registered first acts as a cache in front of
//     a durable one.
//   - Cert writes fan out to every backend concurrently and are best-effort:
//     a failing backend is logged and isolated, the save only fails when no
//     backend accepted the data.
//   - Challenge reads are a union across all backends, because partitioned
//     setups may hold different domains' tokens in different places.
//   - Challenge deletion is load-filter-save per backend, keyed by token.
//
// The package ships a file backend (atomic writes, one artifact per kind
// under a configurable prefix) and an in-memory backend. Redis and S3
// backends live under integration/store.
//
// Registered Notifiers are invoked asynchronously after every successful
// site-bundle save; their failures never affect the renewal path.
package store
