package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/logging"
	"github.com/javanhut/strata/internal/refs"
)

// Branch is a named pointer to a commit. A zero Head is an empty branch.
type Branch = refs.Branch

// CreateBranch creates name pointing at start. A zero start creates an empty branch;
// otherwise start must be a stored commit.
func (r *Repository) CreateBranch(ctx context.Context, name string, start cas.Hash) (Branch, error) {
	r.gcLock.RLock()
	defer r.gcLock.RUnlock()

	if err := ctx.Err(); err != nil {
		return Branch{}, err
	}
	if !start.IsZero() {
		if _, err := r.requireCommit(start); err != nil {
			return Branch{}, err
		}
	}
	if err := r.refs.Create(name, start); err != nil {
		return Branch{}, translate(err)
	}
	r.log(ctx, "branch_create").WithFields(logging.Fields{
		logging.BranchFieldKey: name,
		logging.CommitFieldKey: start.String(),
	}).Info("Branch created")
	return r.GetBranch(ctx, name)
}

// DeleteBranch removes a branch. Its commits stay stored until garbage collected.
func (r *Repository) DeleteBranch(ctx context.Context, name string) error {
	r.gcLock.RLock()
	defer r.gcLock.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.refs.Delete(name); err != nil {
		return translate(err)
	}
	r.log(ctx, "branch_delete").WithField(logging.BranchFieldKey, name).Info("Branch deleted")
	return nil
}

// GetBranch returns the named branch.
func (r *Repository) GetBranch(ctx context.Context, name string) (Branch, error) {
	if err := ctx.Err(); err != nil {
		return Branch{}, err
	}
	b, err := r.refs.Get(name)
	if err != nil {
		return Branch{}, translate(err)
	}
	return b, nil
}

// ListBranches returns all branches sorted by name.
func (r *Repository) ListBranches(ctx context.Context) ([]Branch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	branches, err := r.refs.List()
	if err != nil {
		return nil, translate(err)
	}
	return branches, nil
}

// CurrentBranch returns the checked out branch name, or ErrNotFound if none.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := r.refs.Current()
	if err != nil {
		return "", translate(err)
	}
	return name, nil
}

// Resolve turns a branch name or a full commit hash into a commit hash. A branch
// takes precedence over a hash of the same spelling. An empty branch resolves to the
// zero hash.
func (r *Repository) Resolve(ctx context.Context, ref string) (cas.Hash, error) {
	if ref == "" {
		return cas.Hash{}, fmt.Errorf("%w: empty reference", ErrInvalidArgument)
	}
	b, err := r.GetBranch(ctx, ref)
	if err == nil {
		return b.Head, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return cas.Hash{}, err
	}
	hash, perr := cas.ParseHash(ref)
	if perr != nil {
		return cas.Hash{}, fmt.Errorf("%w: %q is neither a branch nor a commit hash", ErrInvalidReference, ref)
	}
	if _, err := r.requireCommit(hash); err != nil {
		return cas.Hash{}, err
	}
	return hash, nil
}
