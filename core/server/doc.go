// Package server provides the HTTP plumbing for certificate automation:
// a graceful-shutdown http.Server wrapper, hardened TLS presets, and an
// AutoTLS pair that runs a plain HTTP listener for ACME HTTP-01
// challenges next to an HTTPS listener that resolves certificates per
// handshake.
//
// Single server:
//
//	srv := server.New(":8080", server.WithShutdownTimeout(10*time.Second))
//	err := srv.Start(ctx, handler)
//
// Automated TLS:
//
//	pair, err := server.NewAutoTLS(cfg, store, svc.GetCertificate)
//	if err != nil {
//		return err
//	}
//	err = pair.Run(ctx, appHandler)
//
// The HTTP listener answers /.well-known/acme-challenge/ requests from
// the challenge source and redirects everything else to HTTPS. The
// HTTPS listener serves the application with certificates from the
// resolver, typically a renewal service's GetCertificate method.
package server
