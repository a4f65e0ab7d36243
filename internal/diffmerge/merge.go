package diffmerge

import (
	"fmt"
	"slices"
	"sort"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/objects"
)

// ConflictKind represents the type of merge conflict.
type ConflictKind uint8

const (
	BothModified ConflictKind = iota + 1 // Both sides changed an existing file differently
	BothAdded                            // Both sides added the path with different content
	ModifyDelete                         // Target modified, source deleted
	DeleteModify                         // Target deleted, source modified
	FileDirectory                        // The merged path is a file and a directory at once
)

func (k ConflictKind) String() string {
	switch k {
	case BothModified:
		return "both-modified"
	case BothAdded:
		return "both-added"
	case ModifyDelete:
		return "modify/delete"
	case DeleteModify:
		return "delete/modify"
	case FileDirectory:
		return "file/directory"
	default:
		return "unknown"
	}
}

// Version is one side's copy of a conflicted file.
type Version struct {
	Hash    cas.Hash
	Content []byte
}

// Conflict represents a merge conflict. A nil version means the path is absent on
// that side.
type Conflict struct {
	Kind   ConflictKind
	Path   string
	Base   *Version
	Target *Version
	Source *Version
}

// MergeResult represents the result of a tree merge.
type MergeResult struct {
	Success   bool
	Tree      *commit.TreeObject // merged tree; conflicted paths hold the target's version
	Conflicts []Conflict         // sorted by path
	Resolved  []string           // paths settled by the strategy
}

// Merger performs three-way merges of trees.
type Merger struct {
	Objects  *objects.ObjectStore
	resolver *StrategyResolver
}

// NewMerger creates a new Merger reading conflict contents from store.
func NewMerger(store *objects.ObjectStore) *Merger {
	return &Merger{Objects: store, resolver: NewStrategyResolver()}
}

// Merge combines the changes made on target and source since base. Target is the
// side being merged into. Conflicts that strategy cannot settle are returned with
// their contents loaded.
func (m *Merger) Merge(base, target, source *commit.TreeObject, strategy StrategyType) (*MergeResult, error) {
	strat, err := m.resolver.GetStrategy(strategy)
	if err != nil {
		return nil, err
	}
	if base == nil {
		base = commit.EmptyTree
	}

	baseFiles, targetFiles, sourceFiles := base.Map(), target.Map(), source.Map()

	// Collect all paths that exist in any version
	allPaths := make(map[string]struct{}, len(targetFiles)+len(sourceFiles))
	for _, files := range []map[string]cas.Hash{baseFiles, targetFiles, sourceFiles} {
		for p := range files {
			allPaths[p] = struct{}{}
		}
	}

	merged := make(map[string]cas.Hash, len(allPaths))
	result := &MergeResult{}
	for p := range allPaths {
		conflict, hash, keep := mergeEntry(p, lookup(baseFiles, p), lookup(targetFiles, p), lookup(sourceFiles, p))
		if conflict != nil {
			settle(strat, *conflict, merged, result)
			continue
		}
		if keep {
			merged[p] = hash
		}
	}

	// Each side is a valid tree, but their union can put a file where the other side
	// has a directory. Every path in such a clash is settled as one conflict kind so
	// that a strategy picks a single side for all of them.
	for _, p := range collisions(merged) {
		result.Conflicts = slices.DeleteFunc(result.Conflicts, func(c Conflict) bool { return c.Path == p })
		result.Resolved = slices.DeleteFunc(result.Resolved, func(r string) bool { return r == p })
		delete(merged, p)
		settle(strat, Conflict{
			Kind:   FileDirectory,
			Path:   p,
			Base:   version(lookup(baseFiles, p)),
			Target: version(lookup(targetFiles, p)),
			Source: version(lookup(sourceFiles, p)),
		}, merged, result)
	}

	sort.Slice(result.Conflicts, func(i, j int) bool { return result.Conflicts[i].Path < result.Conflicts[j].Path })
	sort.Strings(result.Resolved)

	result.Tree, err = commit.NewTree(merged)
	if err != nil {
		return nil, err
	}
	if len(result.Conflicts) > 0 {
		if err := m.loadContents(result.Conflicts); err != nil {
			return nil, err
		}
		return result, nil
	}
	result.Success = true
	return result, nil
}

// settle applies strat to c. Unsettled conflicts keep the target's version as a
// placeholder.
func settle(strat Strategy, c Conflict, merged map[string]cas.Hash, result *MergeResult) {
	resolution, ok := strat.Resolve(c)
	if !ok {
		result.Conflicts = append(result.Conflicts, c)
		if c.Target != nil {
			merged[c.Path] = c.Target.Hash
		}
		return
	}
	result.Resolved = append(result.Resolved, c.Path)
	if resolution != nil {
		merged[c.Path] = resolution.Hash
	}
}

// collisions returns, sorted, every path that is a file while another path uses it
// as a directory, together with the paths beneath it.
func collisions(merged map[string]cas.Hash) []string {
	clashing := make(map[string]struct{})
	for p := range merged {
		for i := 0; i < len(p); i++ {
			if p[i] != '/' {
				continue
			}
			if _, ok := merged[p[:i]]; ok {
				clashing[p[:i]] = struct{}{}
				clashing[p] = struct{}{}
			}
		}
	}
	paths := make([]string, 0, len(clashing))
	for p := range clashing {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func lookup(files map[string]cas.Hash, p string) *cas.Hash {
	if h, ok := files[p]; ok {
		return &h
	}
	return nil
}

func version(h *cas.Hash) *Version {
	if h == nil {
		return nil
	}
	return &Version{Hash: *h}
}

func sameFile(a, b *cas.Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// mergeEntry performs three-way merge for a single path. It returns either a
// conflict, or the merged hash with keep=false when the path is deleted.
func mergeEntry(p string, base, target, source *cas.Hash) (*Conflict, cas.Hash, bool) {
	newConflict := func(kind ConflictKind) *Conflict {
		return &Conflict{Kind: kind, Path: p, Base: version(base), Target: version(target), Source: version(source)}
	}

	switch {
	case sameFile(target, source):
		// Both sides made the same change, or neither changed
		if target == nil {
			return nil, cas.Hash{}, false
		}
		return nil, *target, true

	case sameFile(base, target):
		// Only source changed
		if source == nil {
			return nil, cas.Hash{}, false
		}
		return nil, *source, true

	case sameFile(base, source):
		// Only target changed
		if target == nil {
			return nil, cas.Hash{}, false
		}
		return nil, *target, true

	case base == nil:
		return newConflict(BothAdded), cas.Hash{}, false
	case source == nil:
		return newConflict(ModifyDelete), cas.Hash{}, false
	case target == nil:
		return newConflict(DeleteModify), cas.Hash{}, false
	default:
		return newConflict(BothModified), cas.Hash{}, false
	}
}

func (m *Merger) loadContents(conflicts []Conflict) error {
	for i := range conflicts {
		for _, v := range []*Version{conflicts[i].Base, conflicts[i].Target, conflicts[i].Source} {
			if v == nil {
				continue
			}
			content, err := m.Objects.GetBlob(v.Hash)
			if err != nil {
				return fmt.Errorf("load conflict content for %s: %w", conflicts[i].Path, err)
			}
			v.Content = content
		}
	}
	return nil
}
