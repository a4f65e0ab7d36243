// Package workspace moves snapshots between a repository and a working directory.
//
// A working directory is scanned into a snapshot keyed by slash-separated relative
// paths; the repository metadata directory is never part of it. Applying a snapshot
// only touches the paths that differ from the snapshot the directory last held.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/objects"
)

// Materializer reads and writes the files of one working directory.
type Materializer struct {
	WorkDir string
	MetaDir string // name of the metadata directory under WorkDir, skipped by Scan
}

// NewMaterializer creates a new Materializer.
func NewMaterializer(workDir, metaDir string) *Materializer {
	return &Materializer{
		WorkDir: workDir,
		MetaDir: metaDir,
	}
}

// Scan reads every regular file under the working directory.
func (m *Materializer) Scan() (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(m.WorkDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(m.WorkDir, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if relPath == m.MetaDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", relPath, err)
		}
		files[filepath.ToSlash(relPath)] = content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	return files, nil
}

// Status lists the changes from head to the current contents of the working
// directory.
func (m *Materializer) Status(head map[string][]byte) ([]diffmerge.Change, error) {
	current, err := m.Scan()
	if err != nil {
		return nil, err
	}
	return Compare(head, current)
}

// Compare lists the changes between two snapshots without storing anything.
func Compare(from, to map[string][]byte) ([]diffmerge.Change, error) {
	a, err := hashTree(from)
	if err != nil {
		return nil, err
	}
	b, err := hashTree(to)
	if err != nil {
		return nil, err
	}
	return diffmerge.DiffTrees(a, b), nil
}

func hashTree(files map[string][]byte) (*commit.TreeObject, error) {
	entries := make(map[string]cas.Hash, len(files))
	for path, content := range files {
		entries[path] = objects.HashOf(objects.KindBlob, content)
	}
	return commit.NewTree(entries)
}

// Apply turns a working directory holding from into one holding to. Files not
// mentioned in either snapshot are left alone. Removals run before writes so that a
// directory replaced by a file, or a file replaced by a directory, is cleared first.
func (m *Materializer) Apply(from, to map[string][]byte) error {
	changes, err := Compare(from, to)
	if err != nil {
		return err
	}
	for _, change := range changes {
		if change.Kind != diffmerge.Removed {
			continue
		}
		fullPath := m.fullPath(change.Path)
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove file %s: %w", change.Path, err)
		}
		m.removeEmptyDirectories(filepath.Dir(fullPath))
	}
	for _, change := range changes {
		if change.Kind != diffmerge.Added && change.Kind != diffmerge.Modified {
			continue
		}
		fullPath := m.fullPath(change.Path)
		parentDir := filepath.Dir(fullPath)
		if err := os.MkdirAll(parentDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", parentDir, err)
		}
		if err := os.WriteFile(fullPath, to[change.Path], 0644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", change.Path, err)
		}
	}
	return nil
}

func (m *Materializer) fullPath(rel string) string {
	return filepath.Join(m.WorkDir, filepath.FromSlash(rel))
}

// removeEmptyDirectories removes empty directories up to, not including, WorkDir.
func (m *Materializer) removeEmptyDirectories(dir string) {
	for {
		rel, err := filepath.Rel(m.WorkDir, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
