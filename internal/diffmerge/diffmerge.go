// Package diffmerge implements diff and merge utilities over tree snapshots.
//
// This package provides high-level operations for:
// - Computing differences between two trees
// - Three-way merging of trees against a common ancestor
// - Detecting conflicts and applying resolution strategies
// - Summarizing changes and detecting exact-content renames
//
// Merging works on whole files: a path is either taken from one side or reported as
// a conflict. File contents are never merged line by line.
package diffmerge

import (
	"path"
	"sort"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
)

// ChangeKind represents the type of change in a diff.
type ChangeKind uint8

const (
	Added ChangeKind = iota + 1
	Removed
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change represents a change to a single file.
type Change struct {
	Kind ChangeKind
	Path string
	Old  cas.Hash // zero for Added
	New  cas.Hash // zero for Removed
}

// DiffTrees computes the changes that turn a into b. A nil tree is the empty tree.
// Changes are sorted by path; unchanged paths are omitted.
func DiffTrees(a, b *commit.TreeObject) []Change {
	if a == nil {
		a = commit.EmptyTree
	}
	if b == nil {
		b = commit.EmptyTree
	}

	var changes []Change
	i, j := 0, 0
	for i < len(a.Entries) || j < len(b.Entries) {
		switch {
		case j == len(b.Entries) || (i < len(a.Entries) && a.Entries[i].Path < b.Entries[j].Path):
			e := a.Entries[i]
			changes = append(changes, Change{Kind: Removed, Path: e.Path, Old: e.Hash})
			i++
		case i == len(a.Entries) || b.Entries[j].Path < a.Entries[i].Path:
			e := b.Entries[j]
			changes = append(changes, Change{Kind: Added, Path: e.Path, New: e.Hash})
			j++
		default:
			old, cur := a.Entries[i], b.Entries[j]
			if old.Hash != cur.Hash {
				changes = append(changes, Change{Kind: Modified, Path: old.Path, Old: old.Hash, New: cur.Hash})
			}
			i++
			j++
		}
	}
	return changes
}

// ChangeStats summarizes a diff.
type ChangeStats struct {
	Added       int
	Modified    int
	Removed     int
	Total       int
	ByExtension map[string]int
	ByDirectory map[string]int
}

// Summarize counts changes by kind, file extension and directory.
func Summarize(changes []Change) ChangeStats {
	stats := ChangeStats{
		Total:       len(changes),
		ByExtension: make(map[string]int),
		ByDirectory: make(map[string]int),
	}
	for _, change := range changes {
		switch change.Kind {
		case Added:
			stats.Added++
		case Modified:
			stats.Modified++
		case Removed:
			stats.Removed++
		}

		ext := path.Ext(change.Path)
		if ext == "" {
			ext = "(no extension)"
		}
		stats.ByExtension[ext]++

		dir := path.Dir(change.Path)
		if dir == "." {
			dir = "(root)"
		}
		stats.ByDirectory[dir]++
	}
	return stats
}

// Rename represents a detected file rename.
type Rename struct {
	OldPath string
	NewPath string
	Hash    cas.Hash
}

// DetectRenames pairs removed and added paths whose content is identical. Each path
// takes part in at most one rename; pairs are matched in path order.
func DetectRenames(changes []Change) []Rename {
	removedByHash := make(map[cas.Hash][]string)
	for _, change := range changes {
		if change.Kind == Removed {
			removedByHash[change.Old] = append(removedByHash[change.Old], change.Path)
		}
	}
	for _, paths := range removedByHash {
		sort.Strings(paths)
	}

	var renames []Rename
	for _, change := range changes {
		if change.Kind != Added {
			continue
		}
		candidates := removedByHash[change.New]
		if len(candidates) == 0 {
			continue
		}
		renames = append(renames, Rename{OldPath: candidates[0], NewPath: change.Path, Hash: change.New})
		removedByHash[change.New] = candidates[1:]
	}
	return renames
}
