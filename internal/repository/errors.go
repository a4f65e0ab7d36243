package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/commit"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/objects"
	"github.com/javanhut/strata/internal/refs"
)

// Define errors
var (
	ErrNotFound               = errors.New("not found")
	ErrNoChanges              = errors.New("no changes")
	ErrNotAncestor            = errors.New("commit is not an ancestor of the branch head")
	ErrAlreadyUpToDate        = errors.New("already up to date")
	ErrMergeConflict          = errors.New("merge conflict")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidReference       = errors.New("invalid reference")
	ErrBranchExists           = errors.New("branch already exists")
	ErrBranchCheckedOut       = errors.New("branch is checked out")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrUnsupported            = errors.New("unsupported")
)

// translate maps lower-layer sentinels onto the repository's public errors. The
// original error stays in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var public error
	switch {
	case errors.Is(err, refs.ErrStale):
		public = ErrConcurrentModification
	case errors.Is(err, refs.ErrExists):
		public = ErrBranchExists
	case errors.Is(err, refs.ErrCheckedOut):
		public = ErrBranchCheckedOut
	case errors.Is(err, refs.ErrInvalidName), errors.Is(err, commit.ErrInvalidPath),
		errors.Is(err, commit.ErrInvalidCommit), errors.Is(err, cas.ErrInvalidHash),
		errors.Is(err, diffmerge.ErrUnknownStrategy):
		public = ErrInvalidArgument
	case errors.Is(err, commit.ErrInvalidReference), errors.Is(err, objects.ErrKindMismatch):
		public = ErrInvalidReference
	case errors.Is(err, refs.ErrNotFound), errors.Is(err, objects.ErrNotFound):
		public = ErrNotFound
	default:
		return err
	}
	if errors.Is(err, public) {
		return err
	}
	return fmt.Errorf("%w: %w", public, err)
}

// ConflictReport lists every path a merge could not settle.
type ConflictReport struct {
	Source    string
	Target    string
	Base      cas.Hash // zero for unrelated histories
	Conflicts []diffmerge.Conflict
}

// Paths returns the conflicted paths in order.
func (r ConflictReport) Paths() []string {
	paths := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		paths[i] = c.Path
	}
	return paths
}

// MergeConflictError is returned by Merge when conflicts remain. It matches
// ErrMergeConflict with errors.Is.
type MergeConflictError struct {
	Report ConflictReport
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict merging %s into %s: %d conflicting path(s): %s",
		e.Report.Source, e.Report.Target, len(e.Report.Conflicts), strings.Join(e.Report.Paths(), ", "))
}

func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}
