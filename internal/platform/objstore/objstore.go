// Copyright (c) 2026 Folio Works. All rights reserved.

/*
Package objstore provides a managed client for S3-compatible object storage.

It backs the file-upload surface of the API: avatars and post attachments are
written to named buckets and served back by publicly resolvable URLs.

Core Responsibilities:

  - Bucket lifecycle: ensures configured buckets exist at startup.
  - Uploads: streams multipart file contents to storage.
  - Addressing: builds the public URL for any stored object.
*/
package objstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/folioworks/folio/internal/platform/config"
)

// Store wraps a minio client with the Folio bucket conventions.
type Store struct {
	client    *minio.Client
	region    string
	publicURL string
}

// New constructs a Store from the application configuration.
//
// The endpoint may be given as host:port or as a full http(s) URL; the
// URL form also decides TLS usage.
func New(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	endpoint := cfg.StorageEndpoint
	useSSL := cfg.StorageUseSSL

	if strings.HasPrefix(endpoint, "http") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("objstore: invalid endpoint: %w", err)
		}
		endpoint = parsed.Host
		useSSL = parsed.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: useSSL,
		Region: cfg.StorageRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to initialize client: %w", err)
	}

	publicURL := cfg.StoragePublicURL
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + endpoint
	}

	logger.Info("object storage client initialized",
		slog.String("endpoint", endpoint),
		slog.Bool("ssl", useSSL),
	)

	return &Store{
		client:    client,
		region:    cfg.StorageRegion,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// EnsureBuckets creates any of the named buckets that do not yet exist.
//
// Called once at startup so upload requests never race bucket creation.
func (s *Store) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("objstore: bucket check %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("objstore: create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// Upload streams an object into the given bucket.
func (s *Store) Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("objstore: upload %s/%s failed: %w", bucket, objectName, err)
	}
	return nil
}

// PublicURL returns the publicly resolvable URL for a stored object.
func (s *Store) PublicURL(bucket, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, objectName)
}

// Ping verifies connectivity by listing buckets.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("objstore: ping failed: %w", err)
	}
	return nil
}
