// Package registry implements an OCI Distribution API client for Eunomia
// bundles: fetch/publish pipelines, pluggable auth, version resolution
// against a tag list, and a local on-disk cache.
package registry

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidReference is returned when a version query string matches
// neither the digest, Latest, Major, Minor, nor Exact grammar.
var ErrInvalidReference = errors.New("registry: invalid version reference")

// ErrVersionResolutionFailed wraps a failure inside resolution that isn't
// itself a plain NotFound.
var ErrVersionResolutionFailed = errors.New("registry: version resolution failed")

// ErrAuthenticationFailed is returned when the configured auth mode was
// rejected by the registry.
var ErrAuthenticationFailed = errors.New("registry: authentication failed")

// ErrUnsupportedApi is returned by auth modes declared but not implemented
// (AwsEcr, GcpArtifact).
var ErrUnsupportedApi = errors.New("registry: unsupported api")

// NotFoundError reports a missing (service, version) pair.
type NotFoundError struct {
	Service string
	Version string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: %s@%s not found", e.Service, e.Version)
}

// HttpError reports a non-2xx response the client did not otherwise
// interpret (404 and upload/manifest-push failures get their own types).
type HttpError struct {
	Status  int
	Message string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("registry: http %d: %s", e.Status, e.Message)
}

// Retryable reports whether the status warrants a retry: 5xx or a zero
// Status. The client reports connection failures as ConnectionFailedError,
// not as an HttpError.
func (e *HttpError) Retryable() bool {
	return e.Status == 0 || e.Status >= 500
}

// InvalidBundleError reports a manifest with no usable bundle-layer
// descriptor.
type InvalidBundleError struct {
	Message string
}

func (e *InvalidBundleError) Error() string { return "registry: invalid bundle: " + e.Message }

// ChecksumMismatchError reports a blob whose recomputed digest does not
// match its descriptor.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("registry: checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// UploadFailedError reports a failed blob upload.
type UploadFailedError struct {
	Message string
}

func (e *UploadFailedError) Error() string { return "registry: upload failed: " + e.Message }

// ManifestPushFailedError reports a failed manifest PUT.
type ManifestPushFailedError struct {
	Message string
}

func (e *ManifestPushFailedError) Error() string {
	return "registry: manifest push failed: " + e.Message
}

// ConnectionFailedError reports a transport-level failure reaching url.
type ConnectionFailedError struct {
	URL string
}

func (e *ConnectionFailedError) Error() string {
	return "registry: connection failed: " + e.URL
}

// CacheError reports a local-cache failure. The registry client treats
// these as warn-only rather than propagating them to callers.
type CacheError struct {
	Message string
}

func (e *CacheError) Error() string { return "registry: cache error: " + e.Message }
