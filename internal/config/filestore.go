package config

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileStore is a BlobStore backed by a single JSON file, guarded by a
// sibling ".lock" file for cross-process exclusion. Grounded on the
// teacher's internal/daemon.Registry.withFileLock: an advisory flock held
// for the duration of the read or the write, plus atomic temp-file+rename
// on write so a reader never observes a partial file.
type FileStore struct {
	path     string
	lockPath string
}

// NewFileStore returns a FileStore persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lockPath: path + ".lock"}
}

func (f *FileStore) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return err
	}
	lock := flock.New(f.lockPath)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock() //nolint:errcheck

	return fn()
}

// Load reads the blob. A missing file is not an error: it returns nil,nil,
// which callers treat as "empty configuration" per spec.md §6.
func (f *FileStore) Load() ([]byte, error) {
	var data []byte
	err := f.withLock(func() error {
		b, err := os.ReadFile(f.path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	return data, err
}

// Save writes data atomically: write to a temp file in the same directory,
// then rename over the target, so concurrent readers never see a torn
// write (spec.md §5: "Writes are full-object replacements; any reader
// observes either the pre- or post-write state").
func (f *FileStore) Save(data []byte) error {
	return f.withLock(func() error {
		dir := filepath.Dir(f.path)
		tmp, err := os.CreateTemp(dir, ".config-*.tmp")
		if err != nil {
			return err
		}
		tmpPath := tmp.Name()

		if _, err := tmp.Write(data); err != nil {
			tmp.Close() //nolint:errcheck
			os.Remove(tmpPath) //nolint:errcheck
			return err
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpPath) //nolint:errcheck
			return err
		}
		return os.Rename(tmpPath, f.path)
	})
}
