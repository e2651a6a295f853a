// Package gcs stores catalog artifacts as Cloud Storage objects. An object
// write becomes visible only when the upload completes, so Put replaces an
// artifact atomically.
package gcs

import (
	"context"
	"errors"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/safe"
	"google.golang.org/api/option"
)

// ArtifactStore implements interfaces.ArtifactStore on a bucket
type ArtifactStore struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.ArtifactStore = &ArtifactStore{}

// New creates a store for objects under prefix in bucket. The caller must
// call Close when done.
func New(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*ArtifactStore, error) {
	if bucket == "" {
		return nil, goerr.New("GCS bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GCS client", goerr.V("bucket", bucket))
	}
	return &ArtifactStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// Close releases the underlying client
func (s *ArtifactStore) Close() error {
	return s.client.Close()
}

func (s *ArtifactStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(path.Join(s.prefix, name))
}

func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "artifact not found", goerr.V(model.ArtifactKey, name))
		}
		return nil, goerr.Wrap(err, "failed to open artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	return data, nil
}

func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return goerr.New("artifact name is required")
	}

	// cancelling ctx before Close aborts the upload and keeps the old object
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.object(name).NewWriter(ctx)
	w.ContentType = contentType(name)
	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return goerr.Wrap(err, "failed to upload artifact", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize artifact upload", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	return nil
}

func (s *ArtifactStore) Delete(ctx context.Context, name string) error {
	if err := s.object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return goerr.Wrap(err, "failed to delete artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	return nil
}

func (s *ArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.object(name).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
