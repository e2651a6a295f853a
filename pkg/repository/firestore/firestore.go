// Package firestore stores catalog artifacts as Firestore documents.
//
// An artifact is a head document in the artifacts collection plus a
// "chunks" subcollection holding its content split into pieces below the
// document size limit. Put, Get and Delete each run in one transaction, so a
// reader never sees chunks of two different writes.
package firestore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultCollection = "artifacts"
	chunkCollection   = "chunks"
	// Firestore caps documents at 1 MiB including field names
	chunkSize = 900 * 1024
	// one transaction may write at most 500 documents
	maxChunks = 498
)

type headDoc struct {
	Size      int       `firestore:"Size"`
	Chunks    int       `firestore:"Chunks"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

type chunkDoc struct {
	Data []byte `firestore:"Data"`
}

// ArtifactStore implements interfaces.ArtifactStore on Firestore
type ArtifactStore struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.ArtifactStore = &ArtifactStore{}

type Option func(*ArtifactStore)

// WithCollection sets the top-level collection holding artifact documents
func WithCollection(name string) Option {
	return func(s *ArtifactStore) {
		s.collection = name
	}
}

// New creates a store in projectID. An empty databaseID selects the default
// database. The caller must call Close when done.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*ArtifactStore, error) {
	if projectID == "" {
		return nil, goerr.New("firestore project ID is required")
	}
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	s := &ArtifactStore{client: client, collection: defaultCollection}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *ArtifactStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// head returns the head document; "/" in names would otherwise nest paths
func (s *ArtifactStore) head(name string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(url.QueryEscape(name))
}

func (s *ArtifactStore) chunk(name string, i int) *firestore.DocumentRef {
	return s.head(name).Collection(chunkCollection).Doc(chunkID(i))
}

func chunkID(i int) string {
	return fmt.Sprintf("%03d", i)
}

func readHead(tx *firestore.Transaction, ref *firestore.DocumentRef) (*headDoc, error) {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var h headDoc
	if err := snap.DataTo(&h); err != nil {
		return nil, goerr.Wrap(err, "failed to decode artifact head")
	}
	return &h, nil
}

func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, goerr.New("artifact name is required")
	}

	var data []byte
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		h, err := readHead(tx, s.head(name))
		if err != nil {
			return err
		}
		if h == nil {
			return goerr.Wrap(model.ErrNotFound, "artifact not found", goerr.V(model.ArtifactKey, name))
		}

		buf := make([]byte, 0, h.Size)
		if h.Chunks == 0 {
			data = buf
			return nil
		}

		refs := make([]*firestore.DocumentRef, h.Chunks)
		for i := range refs {
			refs[i] = s.chunk(name, i)
		}
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}

		for i, snap := range snaps {
			if !snap.Exists() {
				return goerr.New("artifact chunk is missing", goerr.V(model.ArtifactKey, name), goerr.V("chunk", i))
			}
			var c chunkDoc
			if err := snap.DataTo(&c); err != nil {
				return goerr.Wrap(err, "failed to decode artifact chunk", goerr.V("chunk", i))
			}
			buf = append(buf, c.Data...)
		}
		if len(buf) != h.Size {
			return goerr.New("artifact size mismatch", goerr.V(model.ArtifactKey, name),
				goerr.V("want", h.Size), goerr.V("got", len(buf)))
		}
		data = buf
		return nil
	}, firestore.ReadOnly)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read artifact", goerr.V(model.ArtifactKey, name))
	}
	return data, nil
}

func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return goerr.New("artifact name is required")
	}
	n := (len(data) + chunkSize - 1) / chunkSize
	if n > maxChunks {
		return goerr.New("artifact is too large for firestore", goerr.V(model.ArtifactKey, name), goerr.V("size", len(data)))
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		headRef := s.head(name)
		old, err := readHead(tx, headRef)
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			end := min((i+1)*chunkSize, len(data))
			if err := tx.Set(s.chunk(name, i), chunkDoc{Data: data[i*chunkSize : end]}); err != nil {
				return err
			}
		}
		if old != nil {
			for i := n; i < old.Chunks; i++ {
				if err := tx.Delete(s.chunk(name, i)); err != nil {
					return err
				}
			}
		}
		return tx.Set(headRef, headDoc{Size: len(data), Chunks: n, UpdatedAt: time.Now().UTC()})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to write artifact", goerr.V(model.ArtifactKey, name))
	}
	return nil
}

func (s *ArtifactStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return goerr.New("artifact name is required")
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		headRef := s.head(name)
		old, err := readHead(tx, headRef)
		if err != nil || old == nil {
			return err
		}
		for i := 0; i < old.Chunks; i++ {
			if err := tx.Delete(s.chunk(name, i)); err != nil {
				return err
			}
		}
		return tx.Delete(headRef)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete artifact", goerr.V(model.ArtifactKey, name))
	}
	return nil
}

func (s *ArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, goerr.New("artifact name is required")
	}
	_, err := s.head(name).Get(ctx)
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to get artifact head", goerr.V(model.ArtifactKey, name))
}
