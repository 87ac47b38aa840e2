// Package s3 provides certificate and challenge storage on Amazon S3 and
// S3-compatible services such as MinIO and Wasabi. It plugs into the
// fan-out store as both a certificate and a challenge backend, which lets
// multiple instances behind a load balancer answer each other's HTTP-01
// challenges through a shared bucket.
package s3
