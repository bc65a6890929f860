// Copyright (c) 2026 Folio Works. All rights reserved.

// Package media handles file uploads into object storage and serves their
// public URLs back to clients.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/constants"
	"github.com/folioworks/folio/pkg/uuidv7"
)

// allowedExtensions lists the upload types the avatars bucket accepts.
var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ObjectStore is the storage contract the media service needs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error
	PublicURL(bucket, objectName string) string
}

// Service implements upload use cases.
type Service struct {
	store  ObjectStore
	logger *slog.Logger
}

// NewService constructs a new media [Service].
func NewService(store ObjectStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// UploadInput describes one incoming file.
type UploadInput struct {
	// Filename is the client-provided name; only its extension survives.
	Filename string
	Size     int64
	Reader   io.Reader
}

// Upload stores the file and returns its public URL.
//
// # Business Rules
//   - The stored object name is random (UUIDv7) with the original extension
//     preserved, so uploads can never collide with or overwrite each other.
//   - Only image types are accepted.
//   - Files above [constants.MaxUploadSize] are rejected before any storage
//     round-trip.
func (service *Service) Upload(ctx context.Context, input UploadInput) (string, error) {
	// ── 1. Size Gate ──────────────────────────────────────────────────────

	if input.Size <= 0 {
		return "", apperr.ValidationError("Uploaded file is empty")
	}
	if input.Size > constants.MaxUploadSize {
		return "", apperr.PayloadTooLarge("Uploaded file exceeds the size limit")
	}

	// ── 2. Type Gate ──────────────────────────────────────────────────────

	extension := strings.ToLower(filepath.Ext(input.Filename))
	contentType, ok := allowedExtensions[extension]
	if !ok {
		return "", apperr.ValidationError("Unsupported file type")
	}

	// ── 3. Store Under A Random Name ──────────────────────────────────────

	objectName := uuidv7.New() + extension
	bucket := constants.DefaultUploadBucket

	if err := service.store.Upload(ctx, bucket, objectName, input.Reader, input.Size, contentType); err != nil {
		return "", fmt.Errorf("media_service_upload_failed: %w", err)
	}

	url := service.store.PublicURL(bucket, objectName)

	service.logger.Info("media_uploaded",
		slog.String("bucket", bucket),
		slog.String("object", objectName),
		slog.Int64("size", input.Size),
	)

	return url, nil
}
