// Package logger provides structured logging attribute helpers built on
// Go's standard slog package. All helpers follow the empty Attr pattern:
// nil or empty inputs produce an attribute slog silently drops, so call
// sites never need nil checks.
//
//	log.Error("renewal failed",
//		logger.Error(err),
//		logger.Domains(domains),
//	)
package logger
