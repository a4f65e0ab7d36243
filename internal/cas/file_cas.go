// Package cas provides file-based content-addressable storage.
package cas

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileCAS implements CAS using file system storage. Objects are zstd compressed.
type FileCAS struct {
	root string
}

// NewFileCAS creates a new file-based CAS in the given directory.
func NewFileCAS(root string) (*FileCAS, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create CAS directory: %w", err)
	}

	return &FileCAS{root: root}, nil
}

// getPath returns the file path for a given hash.
// Uses a two-level directory structure to avoid too many files in one directory.
func (f *FileCAS) getPath(hash Hash) string {
	hexStr := hex.EncodeToString(hash[:])
	// e.g., ab/cdef1234...
	return filepath.Join(f.root, hexStr[:2], hexStr[2:])
}

// Put implements CAS.Put.
func (f *FileCAS) Put(hash Hash, data []byte) error {
	if computed := Sum(data); computed != hash {
		return fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, hash, computed)
	}

	path := f.getPath(hash)
	// Content-addressed, so an existing file never needs rewriting
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	compressed, err := Compress(data)
	if err != nil {
		return err
	}
	return safeWrite(path, compressed, 0444)
}

// Get implements CAS.Get.
func (f *FileCAS) Get(hash Hash) ([]byte, error) {
	raw, err := os.ReadFile(f.getPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	data, err := Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupted object %s: %w", hash, err)
	}
	if computed := Sum(data); computed != hash {
		return nil, fmt.Errorf("corrupted object %s: %w", hash, ErrHashMismatch)
	}

	return data, nil
}

// Has implements CAS.Has.
func (f *FileCAS) Has(hash Hash) (bool, error) {
	_, err := os.Stat(f.getPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file: %w", err)
	}

	return true, nil
}

// Walk implements Sweeper.Walk.
func (f *FileCAS) Walk(fn func(Hash) error) error {
	return filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		dir, name := filepath.Split(rel)
		// skip temp files and anything not laid out by getPath
		hash, err := ParseHash(filepath.Clean(dir) + name)
		if err != nil {
			return nil
		}
		return fn(hash)
	})
}

// Delete implements Sweeper.Delete.
func (f *FileCAS) Delete(hash Hash) error {
	err := os.Remove(f.getPath(hash))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// safeWrite writes data to path atomically: tempfile, fsync, rename.
// The tempfile lives in the target directory so the rename stays on one filesystem.
func safeWrite(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err = f.Chmod(perm); err != nil {
		_ = f.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp to target: %w", err)
	}
	return nil
}
