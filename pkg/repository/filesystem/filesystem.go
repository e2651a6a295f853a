// Package filesystem stores catalog artifacts as files in a local directory.
//
// Put writes to a uniquely named temporary file in the same directory, syncs
// it and renames it over the target, so readers only ever see a complete old
// file or a complete new file.
package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bottlematch/pkg/domain/interfaces"
	"github.com/secmon-lab/bottlematch/pkg/domain/model"
	"github.com/secmon-lab/bottlematch/pkg/utils/safe"
)

// ArtifactStore implements interfaces.ArtifactStore on a directory
type ArtifactStore struct {
	root string
}

var _ interfaces.ArtifactStore = &ArtifactStore{}

// New creates a store rooted at dir. The directory is created if missing.
func New(dir string) (*ArtifactStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve catalog directory", goerr.V("dir", dir))
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create catalog directory", goerr.V("dir", abs))
	}
	return &ArtifactStore{root: abs}, nil
}

// Root returns the absolute directory of the store
func (s *ArtifactStore) Root() string {
	return s.root
}

func (s *ArtifactStore) resolve(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", goerr.New("invalid artifact name", goerr.V(model.ArtifactKey, name))
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

func (s *ArtifactStore) Get(ctx context.Context, name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	// #nosec G304 - path is confined to the store root by resolve
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "artifact not found", goerr.V(model.ArtifactKey, name))
		}
		return nil, goerr.Wrap(err, "failed to read artifact", goerr.V(model.ArtifactKey, name))
	}
	return data, nil
}

func (s *ArtifactStore) Put(ctx context.Context, name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return goerr.Wrap(err, "failed to create artifact directory", goerr.V("dir", dir))
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	// #nosec G304 - tmp is derived from a confined path
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary artifact", goerr.V("path", tmp))
	}

	committed := false
	defer func() {
		if !committed {
			safe.Remove(ctx, tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		safe.Close(ctx, f)
		return goerr.Wrap(err, "failed to write temporary artifact", goerr.V("path", tmp))
	}
	if err := f.Sync(); err != nil {
		safe.Close(ctx, f)
		return goerr.Wrap(err, "failed to sync temporary artifact", goerr.V("path", tmp))
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temporary artifact", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return goerr.Wrap(err, "failed to move artifact into place", goerr.V("path", path))
	}
	committed = true

	syncDir(ctx, dir)
	return nil
}

// syncDir makes the rename durable where the platform supports it
func syncDir(ctx context.Context, dir string) {
	// #nosec G304 - dir is the store directory
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer safe.Close(ctx, d)
	_ = d.Sync()
}

func (s *ArtifactStore) Delete(ctx context.Context, name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return goerr.Wrap(err, "failed to delete artifact", goerr.V(model.ArtifactKey, name))
	}
	return nil
}

func (s *ArtifactStore) Exists(ctx context.Context, name string) (bool, error) {
	path, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to stat artifact", goerr.V(model.ArtifactKey, name))
}
