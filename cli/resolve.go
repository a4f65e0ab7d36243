package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/repository"
	"github.com/javanhut/strata/internal/seals"
)

// minPrefixLen is the shortest hash prefix accepted as a reference.
const minPrefixLen = 4

// resolveRef accepts a branch name, a full hash, a seal name or a unique hash prefix.
// Prefixes and seal names are looked up among the commits reachable from any branch.
func resolveRef(ctx context.Context, repo *repository.Repository, ref string) (cas.Hash, error) {
	h, err := repo.Resolve(ctx, ref)
	if err == nil || !errors.Is(err, repository.ErrInvalidReference) {
		return h, err
	}

	prefix, isSeal := seals.ShortHash(ref)
	if !isSeal {
		prefix = strings.ToLower(ref)
		if len(prefix) < minPrefixLen || !isHex(prefix) {
			return cas.Hash{}, err
		}
	}

	matches := make(map[cas.Hash]struct{})
	werr := repo.Walk(ctx, func(rec repository.CommitRecord) error {
		if !strings.HasPrefix(rec.Hash.String(), prefix) {
			return nil
		}
		if isSeal && !seals.Matches(ref, rec.Hash) {
			return nil
		}
		matches[rec.Hash] = struct{}{}
		return nil
	})
	if werr != nil {
		return cas.Hash{}, werr
	}

	switch len(matches) {
	case 0:
		return cas.Hash{}, fmt.Errorf("%w: no commit matches %q", repository.ErrNotFound, ref)
	case 1:
		for h := range matches {
			return h, nil
		}
	}
	return cas.Hash{}, fmt.Errorf("%w: %q is ambiguous (%d commits)", repository.ErrInvalidReference, ref, len(matches))
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
