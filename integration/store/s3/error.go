package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrAccessDenied indicates missing bucket permissions.
	ErrAccessDenied = errors.New("s3: access denied")

	// ErrBucketNotFound indicates the configured bucket does not exist.
	ErrBucketNotFound = errors.New("s3: bucket not found")

	// ErrServiceUnavailable indicates throttling or a transient S3
	// outage. Retryable.
	ErrServiceUnavailable = errors.New("s3: service unavailable")
)

// isNotFound reports whether err means the requested object is absent.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// classifyError converts S3 errors to package-level errors so the fan-out
// store and its callers never match on SDK types.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", operation, err)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("%s: %w", operation, ErrBucketNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%s: %w", operation, ErrServiceUnavailable)
		case "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrBucketNotFound)
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}
