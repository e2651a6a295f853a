package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/repository/filesystem"
	"github.com/secmon-lab/bottlematch/pkg/repository/firestore"
	"github.com/secmon-lab/bottlematch/pkg/repository/gcs"
	"github.com/secmon-lab/bottlematch/pkg/repository/memory"
	"github.com/secmon-lab/bottlematch/pkg/repository/s3"
	"github.com/secmon-lab/bottlematch/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Storage backends
const (
	BackendFilesystem = "fs"
	BackendGCS        = "gcs"
	BackendS3         = "s3"
	BackendFirestore  = "firestore"
	BackendMemory     = "memory"
)

// Storage holds CLI flags for the catalog artifact backend
type Storage struct {
	backend string
	dir     string

	gcsBucket      string
	gcsPrefix      string
	gcsCredentials string

	s3Endpoint  string
	s3Bucket    string
	s3Prefix    string
	s3AccessKey string
	s3SecretKey string
	s3UseSSL    bool

	firestoreProjectID  string
	firestoreDatabaseID string
	firestoreCollection string
}

// Flags returns CLI flags for storage configuration
func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Category:    "Storage",
			Usage:       "Catalog storage backend (fs, gcs, s3, firestore or memory)",
			Value:       BackendFilesystem,
			Sources:     cli.EnvVars("BOTTLEMATCH_STORAGE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "catalog-dir",
			Category:    "Storage",
			Usage:       "Directory holding catalog artifacts (fs backend)",
			Value:       "catalog",
			Sources:     cli.EnvVars("BOTTLEMATCH_CATALOG_DIR"),
			Destination: &x.dir,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Category:    "Storage",
			Usage:       "Cloud Storage bucket (gcs backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_GCS_BUCKET"),
			Destination: &x.gcsBucket,
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Category:    "Storage",
			Usage:       "Object prefix inside the bucket (gcs backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_GCS_PREFIX"),
			Destination: &x.gcsPrefix,
		},
		&cli.StringFlag{
			Name:        "gcs-credentials-file",
			Category:    "Storage",
			Usage:       "Service account key file; application default credentials are used when empty",
			Sources:     cli.EnvVars("BOTTLEMATCH_GCS_CREDENTIALS_FILE"),
			Destination: &x.gcsCredentials,
		},
		&cli.StringFlag{
			Name:        "s3-endpoint",
			Category:    "Storage",
			Usage:       "S3-compatible endpoint, e.g. localhost:9000 (s3 backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_S3_ENDPOINT"),
			Destination: &x.s3Endpoint,
		},
		&cli.StringFlag{
			Name:        "s3-bucket",
			Category:    "Storage",
			Usage:       "Bucket name (s3 backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_S3_BUCKET"),
			Destination: &x.s3Bucket,
		},
		&cli.StringFlag{
			Name:        "s3-prefix",
			Category:    "Storage",
			Usage:       "Object prefix inside the bucket (s3 backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_S3_PREFIX"),
			Destination: &x.s3Prefix,
		},
		&cli.StringFlag{
			Name:        "s3-access-key",
			Category:    "Storage",
			Usage:       "Access key (s3 backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_S3_ACCESS_KEY"),
			Destination: &x.s3AccessKey,
		},
		&cli.StringFlag{
			Name:        "s3-secret-key",
			Category:    "Storage",
			Usage:       "Secret key (s3 backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_S3_SECRET_KEY"),
			Destination: &x.s3SecretKey,
		},
		&cli.BoolFlag{
			Name:        "s3-use-ssl",
			Category:    "Storage",
			Usage:       "Use TLS for the S3 endpoint",
			Sources:     cli.EnvVars("BOTTLEMATCH_S3_USE_SSL"),
			Destination: &x.s3UseSSL,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Category:    "Storage",
			Usage:       "Firestore project ID (firestore backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_FIRESTORE_PROJECT_ID"),
			Destination: &x.firestoreProjectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Category:    "Storage",
			Usage:       "Firestore database ID (firestore backend)",
			Sources:     cli.EnvVars("BOTTLEMATCH_FIRESTORE_DATABASE_ID"),
			Destination: &x.firestoreDatabaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Category:    "Storage",
			Usage:       "Collection holding artifact documents (firestore backend)",
			Value:       "artifacts",
			Sources:     cli.EnvVars("BOTTLEMATCH_FIRESTORE_COLLECTION"),
			Destination: &x.firestoreCollection,
		},
	}
}

// Backend returns the configured backend type
func (x *Storage) Backend() string {
	return x.backend
}

// LogValue implements slog.LogValuer. Credentials are never logged.
func (x Storage) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("backend", x.backend)}
	switch x.backend {
	case BackendFilesystem:
		attrs = append(attrs, slog.String("dir", x.dir))
	case BackendGCS:
		attrs = append(attrs, slog.String("bucket", x.gcsBucket), slog.String("prefix", x.gcsPrefix))
	case BackendS3:
		attrs = append(attrs,
			slog.String("endpoint", x.s3Endpoint),
			slog.String("bucket", x.s3Bucket),
			slog.String("prefix", x.s3Prefix),
		)
	case BackendFirestore:
		attrs = append(attrs,
			slog.String("project_id", x.firestoreProjectID),
			slog.String("database_id", x.firestoreDatabaseID),
			slog.String("collection", x.firestoreCollection),
		)
	}
	return slog.GroupValue(attrs...)
}

// Configure initializes and returns an artifact store for the configured
// backend. The returned function releases it.
func (x *Storage) Configure(ctx context.Context) (interfaces.ArtifactStore, func(), error) {
	logger := logging.From(ctx)
	noop := func() {}

	switch x.backend {
	case BackendFilesystem:
		if x.dir == "" {
			return nil, nil, goerr.New("catalog-dir is required when using fs backend")
		}
		store, err := filesystem.New(x.dir)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize filesystem store")
		}
		logger.Info("Using filesystem catalog storage", "dir", store.Root())
		return store, noop, nil

	case BackendGCS:
		if x.gcsBucket == "" {
			return nil, nil, goerr.New("gcs-bucket is required when using gcs backend")
		}
		var opts []option.ClientOption
		if x.gcsCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(x.gcsCredentials))
		}
		store, err := gcs.New(ctx, x.gcsBucket, x.gcsPrefix, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize GCS store")
		}
		logger.Info("Using Cloud Storage catalog storage", "bucket", x.gcsBucket, "prefix", x.gcsPrefix)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close GCS client", "error", err.Error())
			}
		}, nil

	case BackendS3:
		store, err := s3.New(ctx, s3.Config{
			Endpoint:  x.s3Endpoint,
			AccessKey: x.s3AccessKey,
			SecretKey: x.s3SecretKey,
			Bucket:    x.s3Bucket,
			Prefix:    x.s3Prefix,
			UseSSL:    x.s3UseSSL,
		})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize S3 store")
		}
		logger.Info("Using S3 catalog storage", "endpoint", x.s3Endpoint, "bucket", x.s3Bucket)
		return store, noop, nil

	case BackendFirestore:
		if x.firestoreProjectID == "" {
			return nil, nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		var opts []firestore.Option
		if x.firestoreCollection != "" {
			opts = append(opts, firestore.WithCollection(x.firestoreCollection))
		}
		store, err := firestore.New(ctx, x.firestoreProjectID, x.firestoreDatabaseID, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize firestore store")
		}
		logger.Info("Using Firestore catalog storage",
			"project_id", x.firestoreProjectID,
			"database_id", x.firestoreDatabaseID,
		)
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close firestore client", "error", err.Error())
			}
		}, nil

	case BackendMemory:
		logger.Info("Using in-memory catalog storage (nothing is persisted across runs)")
		return memory.New(), noop, nil

	default:
		return nil, nil, goerr.New("invalid storage backend", goerr.V("backend", x.backend))
	}
}
