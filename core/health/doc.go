// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: process is running, no dependency checks
//   - Readiness: all dependencies are available
//
// Usage:
//
//	mux.Handle("/livez", health.Liveness())
//	mux.Handle("/healthz", health.Readiness(log,
//		redis.Healthcheck(client),
//		certCheck,
//	))
//
// Dependency checks follow the func(context.Context) error signature:
//
//	func checkDB(ctx context.Context) error {
//		return db.PingContext(ctx)
//	}
package health
