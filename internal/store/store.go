// Package store is the durable catalog: one parquet record per item plus
// a small json sidecar for provenance metadata. Writes merge into the
// existing record and land via temp-file + rename, so a crash leaves
// either the old or the new record, never a torn one.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"

	"daystore/internal/model"
)

const (
	itemsDir   = "items"
	seriesExt  = ".parquet"
	metaSuffix = ".meta.json"
)

// NotFoundError reports a read of an item that was never imported.
type NotFoundError struct {
	Item string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("item %q not found in store", e.Item)
}

// StorageError wraps a durability-layer failure. The prior record is
// always left intact.
type StorageError struct {
	Op   string
	Item string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Item, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the collection of all persisted items, rooted at a directory.
// Safe for concurrent use; writes serialize per item name only.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open creates the layout under root if needed and returns a handle.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, itemsDir), 0755); err != nil {
		return nil, &StorageError{Op: "open", Item: root, Err: err}
	}
	return &Store{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Close releases the handle. Records are durable as soon as MergeWrite
// returns, so there is nothing to flush.
func (s *Store) Close() error { return nil }

// Normalize canonicalizes an item name: trimmed, upper-cased.
func Normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *Store) itemLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Store) seriesPath(key string) string {
	return filepath.Join(s.root, itemsDir, url.PathEscape(key)+seriesExt)
}

func (s *Store) metaPath(key string) string {
	return filepath.Join(s.root, itemsDir, url.PathEscape(key)+metaSuffix)
}

// List returns all item names, lexicographically ordered. The slice is a
// snapshot of the directory at call time.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, itemsDir))
	if err != nil {
		return nil, &StorageError{Op: "list", Item: s.root, Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), seriesExt) {
			continue
		}
		escaped := strings.TrimSuffix(e.Name(), seriesExt)
		name, err := url.PathUnescape(escaped)
		if err != nil {
			continue // foreign file, not ours
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the persisted series for name, or *NotFoundError.
func (s *Store) Read(name string) (*model.Series, error) {
	key := Normalize(name)
	lock := s.itemLock(key)
	lock.Lock()
	defer lock.Unlock()
	return s.readLocked(key)
}

func (s *Store) readLocked(key string) (*model.Series, error) {
	points, err := parquet.ReadFile[model.Point](s.seriesPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Item: key}
		}
		return nil, &StorageError{Op: "read", Item: key, Err: err}
	}
	series, err := model.NewSeries(points)
	if err != nil {
		return nil, &StorageError{Op: "read", Item: key, Err: err}
	}
	return series, nil
}

// ReadMeta returns the item's metadata sidecar. Items written before any
// sidecar existed report an empty Meta, not an error.
func (s *Store) ReadMeta(name string) (model.Meta, error) {
	key := Normalize(name)
	lock := s.itemLock(key)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(s.seriesPath(key)); err != nil {
		return model.Meta{}, &NotFoundError{Item: key}
	}
	return s.readMetaLocked(key), nil
}

func (s *Store) readMetaLocked(key string) model.Meta {
	var meta model.Meta
	data, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		return meta
	}
	_ = json.Unmarshal(data, &meta)
	return meta
}

// MergeWrite merges incoming into the persisted series for name and
// writes the result atomically. Concurrent writes to the same item apply
// serially; distinct items do not block each other.
func (s *Store) MergeWrite(name string, incoming *model.Series, meta model.Meta) error {
	key := Normalize(name)
	lock := s.itemLock(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.readLocked(key)
	if err != nil {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return err
		}
		existing, _ = model.NewSeries(nil)
	}

	merged := existing.Merge(incoming)
	if err := s.writeSeries(key, merged); err != nil {
		return err
	}

	current := s.readMetaLocked(key)
	current.Update(meta)
	return s.writeMeta(key, current)
}

func (s *Store) writeSeries(key string, series *model.Series) error {
	dir := filepath.Join(s.root, itemsDir)
	tmp, err := os.CreateTemp(dir, url.PathEscape(key)+".tmp-*")
	if err != nil {
		return &StorageError{Op: "write", Item: key, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := parquet.NewGenericWriter[model.Point](tmp)
	if _, err := w.Write(series.Points()); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Item: key, Err: err}
	}
	if err := w.Close(); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Item: key, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write", Item: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write", Item: key, Err: err}
	}
	if err := os.Rename(tmpName, s.seriesPath(key)); err != nil {
		return &StorageError{Op: "write", Item: key, Err: err}
	}
	return nil
}

func (s *Store) writeMeta(key string, meta model.Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return &StorageError{Op: "write-meta", Item: key, Err: err}
	}
	dir := filepath.Join(s.root, itemsDir)
	tmp, err := os.CreateTemp(dir, url.PathEscape(key)+".meta.tmp-*")
	if err != nil {
		return &StorageError{Op: "write-meta", Item: key, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &StorageError{Op: "write-meta", Item: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "write-meta", Item: key, Err: err}
	}
	if err := os.Rename(tmpName, s.metaPath(key)); err != nil {
		return &StorageError{Op: "write-meta", Item: key, Err: err}
	}
	return nil
}
