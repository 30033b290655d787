// package services defines interface Provider for interacting with cloud-storage HTTP APIs
//
// Dropbox is the only provider currently implemented.
package services

import (
	"context"

	"github.com/mcampolo/reeldeck/internal/models"
)

// Provider defines the interface for cloud-storage backends that can list a
// folder, mint time-limited stream links, and address thumbnails by path.
type Provider interface {
	// Authenticate performs OAuth or token-based authentication with the provider.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// List retrieves every file descriptor under the given folder path.
	// Errors are mapped to shared.ErrPathNotFound, shared.ErrUnauthorized and
	// shared.ErrRateLimited so callers can branch with errors.Is.
	List(ctx context.Context, path string) ([]models.FileDescriptor, error)

	// TemporaryLink resolves a short-lived direct playback URL for a file.
	// Failures are per-record and never fatal to a batch.
	TemporaryLink(ctx context.Context, path string) (string, error)

	// ThumbnailURL synthesizes a thumbnail URL from a file path with no
	// network round trip.
	ThumbnailURL(path string) string

	// Name returns the provider name (e.g. "Dropbox")
	Name() string
}
