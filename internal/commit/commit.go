// Package commit implements the tree and commit object model.
//
// This package provides:
// - Tree objects: sorted path -> blob hash snapshots with a canonical encoding
// - Commit objects that reference a tree and zero, one or two parent commits
// - Builders that enforce referential integrity before anything is stored
// - Readers that decode trees and commits and materialize snapshots
//
// Commits are identified by the hash of their canonical text, which includes the
// parent hashes, so the commit graph cannot contain a cycle.
package commit

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/objects"
)

// MaxParents is the largest number of parents a commit may have (a merge commit).
const MaxParents = 2

var ErrInvalidCommit = errors.New("invalid commit")

// CommitObject represents a commit in the repository.
type CommitObject struct {
	TreeHash  cas.Hash   // Hash of the snapshot tree
	Parents   []cas.Hash // Parent commits; first parent is the mainline
	Author    string     // Commit author
	Timestamp time.Time  // Creation time, second precision, UTC
	Message   string     // Commit message
}

// IsMerge reports whether c has two parents.
func (c *CommitObject) IsMerge() bool {
	return len(c.Parents) == MaxParents
}

// FirstParent returns the mainline parent, or false for a root commit.
func (c *CommitObject) FirstParent() (cas.Hash, bool) {
	if len(c.Parents) == 0 {
		return cas.Hash{}, false
	}
	return c.Parents[0], true
}

// encodeCommit creates canonical encoding for a commit object.
func encodeCommit(commit *CommitObject) []byte {
	var buf bytes.Buffer

	buf.WriteString("tree ")
	buf.WriteString(commit.TreeHash.String())
	buf.WriteByte('\n')

	for _, parent := range commit.Parents {
		buf.WriteString("parent ")
		buf.WriteString(parent.String())
		buf.WriteByte('\n')
	}

	buf.WriteString("author ")
	buf.WriteString(commit.Author)
	buf.WriteByte(' ')
	buf.WriteString(strconv.FormatInt(commit.Timestamp.Unix(), 10))
	buf.WriteString(" +0000\n")

	// Empty line before message
	buf.WriteByte('\n')
	buf.WriteString(commit.Message)

	return buf.Bytes()
}

// parseCommit parses commit object data.
func parseCommit(data []byte) (*CommitObject, error) {
	headerBlock, message, ok := bytes.Cut(data, []byte("\n\n"))
	if !ok {
		return nil, fmt.Errorf("%w: missing message separator", objects.ErrMalformed)
	}
	commit := &CommitObject{Message: string(message)}

	var sawTree, sawAuthor bool
	for _, line := range strings.Split(string(headerBlock), "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("%w: bad header line %q", objects.ErrMalformed, line)
		}
		switch key {
		case "tree":
			hash, err := cas.ParseHash(value)
			if err != nil {
				return nil, fmt.Errorf("%w: tree: %v", objects.ErrMalformed, err)
			}
			commit.TreeHash = hash
			sawTree = true

		case "parent":
			hash, err := cas.ParseHash(value)
			if err != nil {
				return nil, fmt.Errorf("%w: parent: %v", objects.ErrMalformed, err)
			}
			commit.Parents = append(commit.Parents, hash)

		case "author":
			rest, ok := strings.CutSuffix(value, " +0000")
			if !ok {
				return nil, fmt.Errorf("%w: author line lacks zone", objects.ErrMalformed)
			}
			sp := strings.LastIndexByte(rest, ' ')
			if sp < 0 {
				return nil, fmt.Errorf("%w: author line lacks timestamp", objects.ErrMalformed)
			}
			unix, err := strconv.ParseInt(rest[sp+1:], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: timestamp: %v", objects.ErrMalformed, err)
			}
			commit.Author = rest[:sp]
			commit.Timestamp = time.Unix(unix, 0).UTC()
			sawAuthor = true

		default:
			return nil, fmt.Errorf("%w: unknown header %q", objects.ErrMalformed, key)
		}
	}
	if !sawTree || !sawAuthor {
		return nil, fmt.Errorf("%w: missing tree or author", objects.ErrMalformed)
	}
	return commit, nil
}

// CommitHash computes the identity of a commit without storing it.
func CommitHash(commit *CommitObject) cas.Hash {
	return objects.HashOf(objects.KindCommit, encodeCommit(commit))
}

// CommitBuilder validates and stores commit objects.
type CommitBuilder struct {
	Objects *objects.ObjectStore
}

// NewCommitBuilder creates a new CommitBuilder.
func NewCommitBuilder(store *objects.ObjectStore) *CommitBuilder {
	return &CommitBuilder{Objects: store}
}

// CreateCommit stores a commit for treeHash on top of parents. The tree and every
// parent must already be stored.
func (cb *CommitBuilder) CreateCommit(treeHash cas.Hash, parents []cas.Hash, author, message string, when time.Time) (*CommitObject, cas.Hash, error) {
	commit := &CommitObject{
		TreeHash:  treeHash,
		Parents:   append([]cas.Hash(nil), parents...),
		Author:    author,
		Timestamp: when.UTC().Truncate(time.Second),
		Message:   message,
	}
	hash, err := cb.Write(commit)
	if err != nil {
		return nil, cas.Hash{}, err
	}
	return commit, hash, nil
}

// Write validates commit and stores it.
func (cb *CommitBuilder) Write(commit *CommitObject) (cas.Hash, error) {
	if err := validateCommit(commit); err != nil {
		return cas.Hash{}, err
	}
	if err := cb.requireKind(commit.TreeHash, objects.KindTree, "tree"); err != nil {
		return cas.Hash{}, err
	}
	for _, parent := range commit.Parents {
		if err := cb.requireKind(parent, objects.KindCommit, "parent"); err != nil {
			return cas.Hash{}, err
		}
	}

	hash, err := cb.Objects.Put(objects.KindCommit, encodeCommit(commit))
	if err != nil {
		return cas.Hash{}, fmt.Errorf("failed to store commit: %w", err)
	}
	return hash, nil
}

func validateCommit(commit *CommitObject) error {
	if len(commit.Parents) > MaxParents {
		return fmt.Errorf("%w: %d parents", ErrInvalidCommit, len(commit.Parents))
	}
	if len(commit.Parents) == MaxParents && commit.Parents[0] == commit.Parents[1] {
		return fmt.Errorf("%w: duplicate parent %s", ErrInvalidCommit, commit.Parents[0])
	}
	if strings.ContainsAny(commit.Author, "\n\x00") {
		return fmt.Errorf("%w: author contains a line break", ErrInvalidCommit)
	}
	if commit.Timestamp.Unix() < 0 {
		return fmt.Errorf("%w: timestamp before epoch", ErrInvalidCommit)
	}
	return nil
}

func (cb *CommitBuilder) requireKind(hash cas.Hash, want objects.Kind, role string) error {
	kind, err := cb.Objects.Kind(hash)
	if err != nil {
		if errors.Is(err, objects.ErrNotFound) {
			return fmt.Errorf("%w: %s %s does not exist", ErrInvalidReference, role, hash)
		}
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: %s %s is a %s", ErrInvalidReference, role, hash, kind)
	}
	return nil
}

// CommitReader reads commit objects and trees.
type CommitReader struct {
	Objects *objects.ObjectStore
}

// NewCommitReader creates a new CommitReader.
func NewCommitReader(store *objects.ObjectStore) *CommitReader {
	return &CommitReader{Objects: store}
}

// ReadCommit reads a commit object by hash.
func (cr *CommitReader) ReadCommit(hash cas.Hash) (*CommitObject, error) {
	data, err := cr.Objects.Get(objects.KindCommit, hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	commit, err := parseCommit(data)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return commit, nil
}

// ReadTree reads a tree object by hash. The zero hash reads as the empty tree.
func (cr *CommitReader) ReadTree(hash cas.Hash) (*TreeObject, error) {
	if hash.IsZero() {
		return EmptyTree, nil
	}
	data, err := cr.Objects.Get(objects.KindTree, hash)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", hash, err)
	}
	tree, err := decodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", hash, err)
	}
	return tree, nil
}

// ReadCommitTree reads the tree of the given commit. The zero hash reads as the
// empty tree, standing for an empty branch.
func (cr *CommitReader) ReadCommitTree(commitHash cas.Hash) (*TreeObject, error) {
	if commitHash.IsZero() {
		return EmptyTree, nil
	}
	c, err := cr.ReadCommit(commitHash)
	if err != nil {
		return nil, err
	}
	return cr.ReadTree(c.TreeHash)
}

// GetFileContent reads the content of a file from the tree.
func (cr *CommitReader) GetFileContent(tree *TreeObject, filePath string) ([]byte, error) {
	hash, ok := tree.Lookup(filePath)
	if !ok {
		return nil, fmt.Errorf("%w: file %s", objects.ErrNotFound, filePath)
	}
	return cr.Objects.GetBlob(hash)
}

// Materialize resolves every entry of tree to its content.
func (cr *CommitReader) Materialize(tree *TreeObject) (map[string][]byte, error) {
	files := make(map[string][]byte, len(tree.Entries))
	for _, e := range tree.Entries {
		content, err := cr.Objects.GetBlob(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("materialize %s: %w", e.Path, err)
		}
		files[e.Path] = content
	}
	return files, nil
}
