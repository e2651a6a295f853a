// Package s3 stores catalog artifacts in an S3-compatible bucket (MinIO,
// AWS S3). A single PutObject replaces an object atomically.
package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"

	"github.com/m-mizutani/goerr/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/safe"
)

// Config holds the connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// ArtifactStore implements interfaces.ArtifactStore on an S3 bucket
type ArtifactStore struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ interfaces.ArtifactStore = &ArtifactStore{}

// New connects to cfg.Endpoint and creates the bucket when it is missing
func New(ctx context.Context, cfg Config) (*ArtifactStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, goerr.New("S3 endpoint and bucket are required",
			goerr.V("endpoint", cfg.Endpoint), goerr.V("bucket", cfg.Bucket))
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create S3 client", goerr.V("endpoint", cfg.Endpoint))
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check S3 bucket", goerr.V("bucket", cfg.Bucket))
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, goerr.Wrap(err, "failed to create S3 bucket", goerr.V("bucket", cfg.Bucket))
		}
	}

	return &ArtifactStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *ArtifactStore) key(name string) string {
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	defer safe.Close(ctx, obj)

	// GetObject is lazy; a missing key surfaces on the first read
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(model.ErrNotFound, "artifact not found", goerr.V(model.ArtifactKey, name))
		}
		return nil, goerr.Wrap(err, "failed to read artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	return data, nil
}

func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return goerr.New("artifact name is required")
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(name),
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upload artifact", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	return nil
}

func (s *ArtifactStore) Delete(ctx context.Context, name string) error {
	// RemoveObject succeeds for missing keys
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{}); err != nil && !isNotFound(err) {
		return goerr.Wrap(err, "failed to delete artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
	}
	return nil
}

func (s *ArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat artifact object", goerr.V(model.ArtifactKey, name), goerr.V("bucket", s.bucket))
}

func contentType(name string) string {
	if path.Ext(name) == ".json" {
		return "application/json"
	}
	return "application/octet-stream"
}
