package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

// FileStore écrit un fichier par clé dans un répertoire (persistance locale de la CLI).
// La révision est dérivée du contenu (xxhash) : deux écritures identiques ont la même révision,
// ce qui est sans conséquence pour un compare-and-swap sur des blobs.
// Un flock sur le fichier .lock sérialise les écrivains, y compris entre processus.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Get(_ context.Context, key string) (Entry, error) {
	path, err := f.path(key)
	if err != nil {
		return Entry{}, err
	}
	return readEntry(path)
}

func (f *FileStore) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	return f.write(ctx, key, value, nil)
}

func (f *FileStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected uint64) (uint64, error) {
	return f.write(ctx, key, value, &expected)
}

func (f *FileStore) Delete(ctx context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	unlock, err := f.lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) write(ctx context.Context, key string, value []byte, expected *uint64) (uint64, error) {
	path, err := f.path(key)
	if err != nil {
		return 0, err
	}

	unlock, err := f.lock(ctx, path)
	if err != nil {
		return 0, err
	}
	defer unlock()

	// 1. Vérifier la révision courante sous verrou
	if expected != nil {
		current, err := readEntry(path)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return 0, err
		}
		if current.Revision != *expected {
			return 0, ErrRevisionMismatch
		}
	}

	// 2. Écriture atomique : fichier temporaire puis rename
	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("rename %s: %w", key, err)
	}

	return revisionOf(value), nil
}

// lock prend le mutex du processus puis un verrou consultatif (flock) sur <clé>.json.lock.
// Le système libère le verrou si le processus meurt : pas de verrou orphelin à deviner.
func (f *FileStore) lock(ctx context.Context, path string) (func(), error) {
	f.mu.Lock()
	fl := flock.New(path + ".lock")

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err == nil && !locked {
		err = ctx.Err()
	}
	if err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return func() {
		fl.Unlock()
		f.mu.Unlock()
	}, nil
}

func (f *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("kv: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, ErrKeyNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Entry{Value: data, Revision: revisionOf(data)}, nil
}

// revisionOf ne renvoie jamais NoRevision, réservé aux clés absentes.
func revisionOf(data []byte) uint64 {
	if rev := xxhash.Sum64(data); rev != NoRevision {
		return rev
	}
	return 1
}
