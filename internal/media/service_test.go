// Copyright (c) 2026 Folio Works. All rights reserved.

package media_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioworks/folio/internal/media"
	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/constants"
)

type memStore struct {
	objects map[string][]byte // bucket/object -> content
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Upload(_ context.Context, bucket, objectName string, reader io.Reader, _ int64, contentType string) error {
	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	key := bucket + "/" + objectName
	s.objects[key] = content
	s.types[key] = contentType
	return nil
}

func (s *memStore) PublicURL(bucket, objectName string) string {
	return "https://cdn.example.com/" + bucket + "/" + objectName
}

func newTestService() (*media.Service, *memStore) {
	store := newMemStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return media.NewService(store, logger), store
}

/*
TestService_Upload verifies the happy path: the file lands in the default
bucket under a random name that preserves the original extension, and the
returned URL points at it.
*/
func TestService_Upload(t *testing.T) {
	service, store := newTestService()

	content := []byte("fake png bytes")
	url, err := service.Upload(context.Background(), media.UploadInput{
		Filename: "portrait.PNG",
		Size:     int64(len(content)),
		Reader:   bytes.NewReader(content),
	})
	require.NoError(t, err)

	require.Len(t, store.objects, 1)
	for key, stored := range store.objects {
		assert.True(t, strings.HasPrefix(key, constants.DefaultUploadBucket+"/"))
		assert.Equal(t, ".png", filepath.Ext(key), "extension preserved, lowercased")
		assert.NotContains(t, key, "portrait", "original name must not leak into storage")
		assert.Equal(t, content, stored)
		assert.Equal(t, "image/png", store.types[key])
		assert.True(t, strings.HasSuffix(url, strings.TrimPrefix(key, constants.DefaultUploadBucket+"/")))
	}
}

/*
TestService_Upload_RandomNames verifies that two uploads of the same file
never collide.
*/
func TestService_Upload_RandomNames(t *testing.T) {
	service, store := newTestService()

	for i := 0; i < 2; i++ {
		_, err := service.Upload(context.Background(), media.UploadInput{
			Filename: "same.jpg",
			Size:     4,
			Reader:   strings.NewReader("data"),
		})
		require.NoError(t, err)
	}

	assert.Len(t, store.objects, 2)
}

/*
TestService_Upload_Rejections covers the gates: empty files, oversized files,
and unsupported types are all rejected before storage is touched.
*/
func TestService_Upload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode string
	}{
		{"empty_file", "a.png", 0, "VALIDATION_ERROR"},
		{"oversized", "a.png", constants.MaxUploadSize + 1, "PAYLOAD_TOO_LARGE"},
		{"unsupported_type", "script.sh", 10, "VALIDATION_ERROR"},
		{"no_extension", "README", 10, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestService()

			_, err := service.Upload(context.Background(), media.UploadInput{
				Filename: tt.filename,
				Size:     tt.size,
				Reader:   strings.NewReader("data"),
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperr.As(err).Code)
			assert.Empty(t, store.objects, "rejected uploads must not reach storage")
		})
	}
}
