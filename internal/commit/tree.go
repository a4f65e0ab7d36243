package commit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/objects"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidPath      = errors.New("invalid path")
	ErrInvalidReference = errors.New("invalid reference")
)

// TreeEntry maps one file path to the hash of its blob.
type TreeEntry struct {
	Path string
	Hash cas.Hash
}

// TreeObject is an immutable snapshot of a set of files. Entries are sorted by path.
type TreeObject struct {
	Entries []TreeEntry
}

// EmptyTree is the snapshot with no files.
var EmptyTree = &TreeObject{}

// ValidatePath checks that p is a clean relative slash-separated path.
func ValidatePath(p string) error {
	switch {
	case p == "":
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	case strings.ContainsRune(p, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidPath, p)
	case strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/"):
		return fmt.Errorf("%w: %q has a leading or trailing slash", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q has an empty, '.' or '..' segment", ErrInvalidPath, p)
		}
	}
	return nil
}

// CheckCollisions reports a path that is also used as a directory by another path,
// such as "a" next to "a/b". A tree holding both cannot be written to a filesystem.
func CheckCollisions(paths []string) error {
	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		files[p] = struct{}{}
	}
	for _, p := range paths {
		for i := strings.IndexByte(p, '/'); i >= 0; {
			if _, ok := files[p[:i]]; ok {
				return fmt.Errorf("%w: %q is a file and a directory of %q", ErrInvalidPath, p[:i], p)
			}
			next := strings.IndexByte(p[i+1:], '/')
			if next < 0 {
				break
			}
			i += next + 1
		}
	}
	return nil
}

// NewTree builds a sorted tree from a path to blob hash mapping.
func NewTree(entries map[string]cas.Hash) (*TreeObject, error) {
	tree := &TreeObject{Entries: make([]TreeEntry, 0, len(entries))}
	for p, h := range entries {
		if err := ValidatePath(p); err != nil {
			return nil, err
		}
		tree.Entries = append(tree.Entries, TreeEntry{Path: p, Hash: h})
	}
	sort.Slice(tree.Entries, func(i, j int) bool {
		return tree.Entries[i].Path < tree.Entries[j].Path
	})
	if err := CheckCollisions(tree.Paths()); err != nil {
		return nil, err
	}
	return tree, nil
}

// Lookup returns the blob hash stored at path.
func (t *TreeObject) Lookup(path string) (cas.Hash, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Path >= path })
	if i < len(t.Entries) && t.Entries[i].Path == path {
		return t.Entries[i].Hash, true
	}
	return cas.Hash{}, false
}

// Map returns the entries as a path to hash mapping.
func (t *TreeObject) Map() map[string]cas.Hash {
	m := make(map[string]cas.Hash, len(t.Entries))
	for _, e := range t.Entries {
		m[e.Path] = e.Hash
	}
	return m
}

// Paths returns the sorted file paths.
func (t *TreeObject) Paths() []string {
	paths := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		paths[i] = e.Path
	}
	return paths
}

// Len returns the number of files.
func (t *TreeObject) Len() int {
	return len(t.Entries)
}

// encodeTree writes "<hex hash> <path>\x00" per entry in path order.
func encodeTree(t *TreeObject) []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		buf.WriteString(e.Hash.String())
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

func decodeTree(data []byte) (*TreeObject, error) {
	tree := &TreeObject{}
	for len(data) > 0 {
		end := bytes.IndexByte(data, 0)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated tree entry", objects.ErrMalformed)
		}
		hexHash, path, ok := strings.Cut(string(data[:end]), " ")
		if !ok {
			return nil, fmt.Errorf("%w: tree entry without path", objects.ErrMalformed)
		}
		hash, err := cas.ParseHash(hexHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", objects.ErrMalformed, err)
		}
		if n := len(tree.Entries); n > 0 && tree.Entries[n-1].Path >= path {
			return nil, fmt.Errorf("%w: tree entries out of order at %q", objects.ErrMalformed, path)
		}
		tree.Entries = append(tree.Entries, TreeEntry{Path: path, Hash: hash})
		data = data[end+1:]
	}
	return tree, nil
}

// HashTree returns the identity of t without storing it.
func HashTree(t *TreeObject) cas.Hash {
	return objects.HashOf(objects.KindTree, encodeTree(t))
}

// TreeBuilder stores file contents and the trees that reference them.
type TreeBuilder struct {
	Objects     *objects.ObjectStore
	Parallelism int
}

// NewTreeBuilder creates a TreeBuilder writing blobs with GOMAXPROCS workers.
func NewTreeBuilder(store *objects.ObjectStore) *TreeBuilder {
	return &TreeBuilder{
		Objects:     store,
		Parallelism: runtime.GOMAXPROCS(0),
	}
}

// Build stores every file of snapshot as a blob and then the tree naming them.
func (tb *TreeBuilder) Build(ctx context.Context, snapshot map[string][]byte) (*TreeObject, cas.Hash, error) {
	paths := make([]string, 0, len(snapshot))
	for p := range snapshot {
		if err := ValidatePath(p); err != nil {
			return nil, cas.Hash{}, err
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if err := CheckCollisions(paths); err != nil {
		return nil, cas.Hash{}, err
	}

	entries := make([]TreeEntry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if tb.Parallelism > 0 {
		g.SetLimit(tb.Parallelism)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := tb.Objects.PutBlob(snapshot[p])
			if err != nil {
				return fmt.Errorf("store blob %s: %w", p, err)
			}
			entries[i] = TreeEntry{Path: p, Hash: h}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, cas.Hash{}, err
	}

	tree := &TreeObject{Entries: entries}
	hash, err := tb.Objects.Put(objects.KindTree, encodeTree(tree))
	if err != nil {
		return nil, cas.Hash{}, err
	}
	return tree, hash, nil
}

// Write stores a tree whose blobs must already exist.
func (tb *TreeBuilder) Write(tree *TreeObject) (cas.Hash, error) {
	if err := CheckCollisions(tree.Paths()); err != nil {
		return cas.Hash{}, err
	}
	for i, e := range tree.Entries {
		if i > 0 && tree.Entries[i-1].Path >= e.Path {
			return cas.Hash{}, fmt.Errorf("%w: tree entries not sorted at %q", ErrInvalidPath, e.Path)
		}
		if err := ValidatePath(e.Path); err != nil {
			return cas.Hash{}, err
		}
		exists, err := tb.Objects.Has(e.Hash)
		if err != nil {
			return cas.Hash{}, err
		}
		if !exists {
			return cas.Hash{}, fmt.Errorf("%w: blob %s for %s is missing", ErrInvalidReference, e.Hash, e.Path)
		}
	}
	return tb.Objects.Put(objects.KindTree, encodeTree(tree))
}
