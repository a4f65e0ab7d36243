package diffmerge

import (
	"testing"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t     *testing.T
	store *objects.ObjectStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := objects.NewObjectStore(cas.NewMemoryCAS(), 0)
	require.NoError(t, err)
	return &fixture{t: t, store: store}
}

func (f *fixture) blob(content string) cas.Hash {
	f.t.Helper()
	h, err := f.store.PutBlob([]byte(content))
	require.NoError(f.t, err)
	return h
}

func (f *fixture) tree(files map[string]string) *commit.TreeObject {
	f.t.Helper()
	entries := make(map[string]cas.Hash, len(files))
	for p, c := range files {
		entries[p] = f.blob(c)
	}
	tree, err := commit.NewTree(entries)
	require.NoError(f.t, err)
	return tree
}

func TestDiffTrees(t *testing.T) {
	f := newFixture(t)
	oldTree := f.tree(map[string]string{
		"file1.txt": "old content 1",
		"file2.txt": "content 2",
		"file3.txt": "content 3",
	})
	newTree := f.tree(map[string]string{
		"file1.txt": "new content 1",
		"file2.txt": "content 2",
		"file4.txt": "content 4",
	})

	changes := DiffTrees(oldTree, newTree)
	require.Len(t, changes, 3)

	assert.Equal(t, Change{Kind: Modified, Path: "file1.txt", Old: f.blob("old content 1"), New: f.blob("new content 1")}, changes[0])
	assert.Equal(t, Change{Kind: Removed, Path: "file3.txt", Old: f.blob("content 3")}, changes[1])
	assert.Equal(t, Change{Kind: Added, Path: "file4.txt", New: f.blob("content 4")}, changes[2])
}

func TestDiffIdenticalTreesIsEmpty(t *testing.T) {
	f := newFixture(t)
	tree := f.tree(map[string]string{"a": "1", "b": "2"})
	assert.Empty(t, DiffTrees(tree, tree))
	assert.Empty(t, DiffTrees(nil, nil))
}

func TestDiffAgainstNilTree(t *testing.T) {
	f := newFixture(t)
	tree := f.tree(map[string]string{"a": "1", "b": "2"})

	for _, c := range DiffTrees(nil, tree) {
		assert.Equal(t, Added, c.Kind)
	}
	for _, c := range DiffTrees(tree, nil) {
		assert.Equal(t, Removed, c.Kind)
	}
	assert.Len(t, DiffTrees(nil, tree), 2)
}

func TestSummarize(t *testing.T) {
	changes := []Change{
		{Kind: Added, Path: "src/main.go"},
		{Kind: Modified, Path: "src/util.go"},
		{Kind: Removed, Path: "README"},
	}
	stats := Summarize(changes)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Modified)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByExtension[".go"])
	assert.Equal(t, 1, stats.ByExtension["(no extension)"])
	assert.Equal(t, 2, stats.ByDirectory["src"])
	assert.Equal(t, 1, stats.ByDirectory["(root)"])
}

func TestDetectRenames(t *testing.T) {
	f := newFixture(t)
	oldTree := f.tree(map[string]string{"old.txt": "same", "gone.txt": "unique"})
	newTree := f.tree(map[string]string{"new.txt": "same", "fresh.txt": "other"})

	renames := DetectRenames(DiffTrees(oldTree, newTree))
	require.Len(t, renames, 1)
	assert.Equal(t, "old.txt", renames[0].OldPath)
	assert.Equal(t, "new.txt", renames[0].NewPath)
}

func TestDetectRenamesPairsEachPathOnce(t *testing.T) {
	f := newFixture(t)
	oldTree := f.tree(map[string]string{"a1": "dup", "a2": "dup"})
	newTree := f.tree(map[string]string{"b1": "dup", "b2": "dup", "b3": "dup"})

	renames := DetectRenames(DiffTrees(oldTree, newTree))
	require.Len(t, renames, 2)
	assert.Equal(t, Rename{OldPath: "a1", NewPath: "b1", Hash: f.blob("dup")}, renames[0])
	assert.Equal(t, Rename{OldPath: "a2", NewPath: "b2", Hash: f.blob("dup")}, renames[1])
}
