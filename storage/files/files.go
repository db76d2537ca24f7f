// Package filestore keeps uploaded files on local disk, in a Backblaze B2 bucket or in memory.
package filestore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
)

// New returns the B2 store when its credentials are configured, the local one otherwise.
func New(ctx context.Context, conf *core.Config) (core.FileStore, error) {
	if conf.Storage.B2Enabled() {
		return NewB2Store(ctx, conf.Storage.B2AccountID, conf.Storage.B2AppKey, conf.Storage.B2Bucket)
	}
	dir := conf.Storage.UploadDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	return NewLocalStore(dir)
}

// checkKey rejects keys that could escape the store's root.
func checkKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `\`) || filepath.IsAbs(key) {
		return errors.Errorf("invalid file key %q", key)
	}
	return nil
}

type localStore struct {
	root string
}

var _ core.FileStore = (*localStore)(nil)

func NewLocalStore(root string) (core.FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localStore{root: root}, nil
}

func (s *localStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *localStore) Save(_ context.Context, key string, r io.Reader) error {
	if err := checkKey(key); err != nil {
		return err
	}
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, "creating file dir")
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return errors.Wrap(err, "writing file")
	}
	return errors.Wrap(f.Close(), "closing file")
}

func (s *localStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := checkKey(key); err != nil {
		return nil, core.ErrFileNotFound
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (s *localStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return core.ErrFileNotFound
	}
	if err := os.Remove(s.path(key)); err != nil {
		if os.IsNotExist(err) {
			return core.ErrFileNotFound
		}
		return errors.Wrap(err, "deleting file")
	}
	return nil
}

type b2Store struct {
	bucket *b2.Bucket
}

var _ core.FileStore = (*b2Store)(nil)

func NewB2Store(ctx context.Context, accountID, appKey, bucketName string) (core.FileStore, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrapf(err, "opening b2 bucket %s", bucketName)
	}
	return &b2Store{bucket: bucket}, nil
}

func (s *b2Store) Save(ctx context.Context, key string, r io.Reader) error {
	if err := checkKey(key); err != nil {
		return err
	}
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "uploading file")
	}
	return errors.Wrap(w.Close(), "uploading file")
}

func (s *b2Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.bucket.Object(key)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "reading file attrs")
	}
	return obj.NewReader(ctx), nil
}

func (s *b2Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return core.ErrFileNotFound
		}
		return errors.Wrap(err, "deleting file")
	}
	return nil
}

// MemoryStore keeps files in a map. Set FailSave to make every Save fail.
type MemoryStore struct {
	mu       sync.RWMutex
	files    map[string][]byte
	FailSave error
}

var _ core.FileStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, key string, r io.Reader) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "reading file")
	}
	s.files[key] = data
	return nil
}

func (s *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[key]
	if !ok {
		return nil, core.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[key]; !ok {
		return core.ErrFileNotFound
	}
	delete(s.files, key)
	return nil
}

// Keys returns the stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	return keys
}
