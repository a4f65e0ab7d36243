package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/diffmerge"
	"github.com/javanhut/strata/internal/objects"
)

const testAuthor = "Tester <tester@example.com>"

func newTestRepo(t *testing.T) (*Repository, *cas.MemoryCAS) {
	t.Helper()
	backend := cas.NewMemoryCAS()
	var tick atomic.Int64
	r, err := New(Options{
		Backend: backend,
		Author:  testAuthor,
		Clock: func() time.Time {
			return time.Unix(1_700_000_000+tick.Add(1), 0)
		},
		RetryMaxElapsed: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	_, err = r.CreateBranch(context.Background(), "main", cas.Hash{})
	require.NoError(t, err)
	return r, backend
}

func mustCommit(t *testing.T, r *Repository, branch string, files Snapshot, msg string) *CommitRecord {
	t.Helper()
	rec, err := r.Commit(context.Background(), branch, files, msg, "")
	require.NoError(t, err)
	return rec
}

func TestObjectPutIdempotent(t *testing.T) {
	r, _ := newTestRepo(t)
	store := r.Objects()

	h1, err := store.PutBlob([]byte("hello"))
	require.NoError(t, err)
	writes := store.Writes()
	h2, err := store.PutBlob([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Equal(t, writes, store.Writes())
	got, err := store.GetBlob(h1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestCommitAndReadBack(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a.txt": []byte("1"), "dir/b.txt": []byte("2")}, "first")
	assert.Empty(t, c1.Parents)
	assert.Equal(t, testAuthor, c1.Author)

	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, c1.Hash, b.Head)

	content, err := r.ReadFile(ctx, c1.Hash, "dir/b.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), content)

	paths, err := r.ListFiles(ctx, c1.Hash)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/b.txt"}, paths)

	_, err = r.ReadFile(ctx, c1.Hash, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := r.GetCommit(ctx, c1.Hash)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Message)
}

func TestCommitNoChanges(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	_, err := r.Commit(ctx, "main", Snapshot{}, "empty", "")
	assert.ErrorIs(t, err, ErrNoChanges)

	files := Snapshot{"a.txt": []byte("1")}
	c1 := mustCommit(t, r, "main", files, "first")
	_, err = r.Commit(ctx, "main", Snapshot{"a.txt": []byte("1")}, "again", "")
	assert.ErrorIs(t, err, ErrNoChanges)

	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, c1.Hash, b.Head)
}

func TestCommitValidation(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	_, err := r.Commit(ctx, "main", Snapshot{"a": []byte("1")}, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.Commit(ctx, "main", Snapshot{"../a": []byte("1")}, "bad path", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.Commit(ctx, "nope", Snapshot{"a": []byte("1")}, "msg", "")
	assert.ErrorIs(t, err, ErrNotFound)

	anon, err := New(Options{})
	require.NoError(t, err)
	_, err = anon.CreateBranch(ctx, "main", cas.Hash{})
	require.NoError(t, err)
	_, err = anon.Commit(ctx, "main", Snapshot{"a": []byte("1")}, "msg", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDiffSingleModification(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a.txt": []byte("1"), "b.txt": []byte("same")}, "first")
	c2 := mustCommit(t, r, "main", Snapshot{"a.txt": []byte("2"), "b.txt": []byte("same")}, "second")

	changes, err := r.Diff(ctx, c1.Hash, c2.Hash)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, diffmerge.Modified, changes[0].Kind)
	assert.Equal(t, "a.txt", changes[0].Path)

	changes, err = r.Diff(ctx, cas.Hash{}, c1.Hash)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	for _, c := range changes {
		assert.Equal(t, diffmerge.Added, c.Kind)
	}
}

func TestHistoryFirstParent(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	c2 := mustCommit(t, r, "main", Snapshot{"a": []byte("2")}, "two")
	c3 := mustCommit(t, r, "main", Snapshot{"a": []byte("3")}, "three")

	log, err := r.Log(ctx, "main", 0)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, []cas.Hash{c3.Hash, c2.Hash, c1.Hash}, []cas.Hash{log[0].Hash, log[1].Hash, log[2].Hash})

	limited, err := r.Log(ctx, "main", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	seq, err := r.History(ctx, "main")
	require.NoError(t, err)
	var first CommitRecord
	for rec, err := range seq {
		require.NoError(t, err)
		first = rec
		break
	}
	assert.Equal(t, c3.Hash, first.Hash)
}

func TestHistoryRestartable(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	c2 := mustCommit(t, r, "main", Snapshot{"a": []byte("2")}, "two")

	collect := func(seq func(func(CommitRecord, error) bool)) []cas.Hash {
		var hashes []cas.Hash
		for rec, err := range seq {
			require.NoError(t, err)
			hashes = append(hashes, rec.Hash)
		}
		return hashes
	}

	before, err := r.History(ctx, "main")
	require.NoError(t, err)
	c3 := mustCommit(t, r, "main", Snapshot{"a": []byte("3")}, "three")
	after, err := r.History(ctx, "main")
	require.NoError(t, err)

	assert.Equal(t, []cas.Hash{c2.Hash, c1.Hash}, collect(before))
	assert.Equal(t, []cas.Hash{c3.Hash, c2.Hash, c1.Hash}, collect(after))
	// A sequence can be walked again with the same result.
	assert.Equal(t, []cas.Hash{c2.Hash, c1.Hash}, collect(before))

	_, err = r.Rollback(ctx, "main", c1.Hash)
	require.NoError(t, err)
	rolled, err := r.History(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []cas.Hash{c1.Hash}, collect(rolled))
	assert.Equal(t, []cas.Hash{c3.Hash, c2.Hash, c1.Hash}, collect(after))
}

func TestRollback(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	c2 := mustCommit(t, r, "main", Snapshot{"a": []byte("2")}, "two")
	c3 := mustCommit(t, r, "main", Snapshot{"a": []byte("3")}, "three")

	files, err := r.Rollback(ctx, "main", c1.Hash)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"a": []byte("1")}, files)

	log, err := r.Log(ctx, "main", 0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, c1.Hash, log[0].Hash)

	// Rolled-back commits remain stored.
	_, err = r.GetCommit(ctx, c3.Hash)
	require.NoError(t, err)

	// c2 is no longer an ancestor of main.
	_, err = r.Rollback(ctx, "main", c2.Hash)
	assert.ErrorIs(t, err, ErrNotAncestor)

	// Rolling back to the head changes nothing.
	_, err = r.Rollback(ctx, "main", c1.Hash)
	require.NoError(t, err)

	_, err = r.Rollback(ctx, "main", cas.Sum([]byte("nothing")))
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestRollbackRejectsOtherBranchCommit(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	base := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "base")
	_, err := r.CreateBranch(ctx, "feature", base.Hash)
	require.NoError(t, err)
	side := mustCommit(t, r, "feature", Snapshot{"a": []byte("side")}, "side")

	_, err = r.Rollback(ctx, "main", side.Hash)
	assert.ErrorIs(t, err, ErrNotAncestor)
	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, base.Hash, b.Head)
}

func TestRevertKeepsHistory(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	c2 := mustCommit(t, r, "main", Snapshot{"a": []byte("2"), "b": []byte("x")}, "two")

	rec, err := r.Revert(ctx, "main", c1.Hash, "")
	require.NoError(t, err)
	assert.Equal(t, []cas.Hash{c2.Hash}, rec.Parents)
	assert.Equal(t, c1.TreeHash, rec.TreeHash)
	assert.Contains(t, rec.Message, "Revert to "+c1.Hash.Short())

	log, err := r.Log(ctx, "main", 0)
	require.NoError(t, err)
	assert.Len(t, log, 3)

	files, err := r.Snapshot(ctx, rec.Hash)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"a": []byte("1")}, files)

	_, err = r.Revert(ctx, "main", c1.Hash, "")
	assert.ErrorIs(t, err, ErrNoChanges)
}

func TestConcurrentCommitsOneLoses(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")

	const writers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			files := Snapshot{"a": []byte{byte('a' + i)}}
			_, err := r.Commit(ctx, "main", files, "racer", "", WithExpectedHead(c1.Hash))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrConcurrentModification):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(writers-1), conflicts.Load())
}

func TestConcurrentCommitRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")

	winner, err := r.Commit(ctx, "main", Snapshot{"a": []byte("winner")}, "winner", "", WithExpectedHead(c1.Hash))
	require.NoError(t, err)

	_, err = r.Commit(ctx, "main", Snapshot{"b": []byte("loser")}, "loser", "", WithExpectedHead(c1.Hash))
	require.ErrorIs(t, err, ErrConcurrentModification)

	attempts := 0
	var retried *CommitRecord
	err = r.Retry(ctx, func() error {
		attempts++
		b, err := r.GetBranch(ctx, "main")
		if err != nil {
			return err
		}
		retried, err = r.Commit(ctx, "main", Snapshot{"a": []byte("winner"), "b": []byte("loser")}, "loser", "", WithExpectedHead(b.Head))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, []cas.Hash{winner.Hash}, retried.Parents)
}

func TestRetryOnConflictStopsOnOtherErrors(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := RetryOnConflict(ctx, time.Second, func() error {
		calls++
		return ErrNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)

	calls = 0
	err = RetryOnConflict(ctx, time.Second, func() error {
		calls++
		if calls < 3 {
			return ErrConcurrentModification
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestMergeFastForward(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	_, err := r.CreateBranch(ctx, "feature", c1.Hash)
	require.NoError(t, err)
	c2 := mustCommit(t, r, "feature", Snapshot{"a": []byte("1"), "b": []byte("2")}, "two")

	res, err := r.Merge(ctx, "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, FastForward, res.Outcome)
	assert.Nil(t, res.Commit)
	assert.Equal(t, c2.Hash, res.Head)
	assert.Equal(t, c1.Hash, res.Base)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "b", res.Changes[0].Path)

	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, c2.Hash, b.Head)

	_, err = r.Merge(ctx, "feature", "main")
	assert.ErrorIs(t, err, ErrAlreadyUpToDate)
}

func TestMergeAlreadyUpToDate(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	_, err := r.CreateBranch(ctx, "old", c1.Hash)
	require.NoError(t, err)
	c2 := mustCommit(t, r, "main", Snapshot{"a": []byte("2")}, "two")

	_, err = r.Merge(ctx, "old", "main")
	assert.ErrorIs(t, err, ErrAlreadyUpToDate)

	_, err = r.CreateBranch(ctx, "empty", cas.Hash{})
	require.NoError(t, err)
	_, err = r.Merge(ctx, "empty", "main")
	assert.ErrorIs(t, err, ErrAlreadyUpToDate)

	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, c2.Hash, b.Head)

	_, err = r.Merge(ctx, "main", "main")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMergeIntoEmptyBranchFastForwards(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	_, err := r.CreateBranch(ctx, "empty", cas.Hash{})
	require.NoError(t, err)

	res, err := r.Merge(ctx, "main", "empty")
	require.NoError(t, err)
	assert.Equal(t, FastForward, res.Outcome)
	assert.Equal(t, c1.Hash, res.Head)
}

func TestMergeClean(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	base := mustCommit(t, r, "main", Snapshot{"shared": []byte("s"), "x": []byte("1")}, "base")
	_, err := r.CreateBranch(ctx, "feature", base.Hash)
	require.NoError(t, err)
	target := mustCommit(t, r, "main", Snapshot{"shared": []byte("s"), "x": []byte("1"), "main.txt": []byte("m")}, "main work")
	source := mustCommit(t, r, "feature", Snapshot{"shared": []byte("s"), "x": []byte("2")}, "feature work")

	res, err := r.Merge(ctx, "feature", "main")
	require.NoError(t, err)
	assert.Equal(t, Merged, res.Outcome)
	require.NotNil(t, res.Commit)
	assert.Equal(t, []cas.Hash{target.Hash, source.Hash}, res.Commit.Parents)
	assert.True(t, res.Commit.IsMerge())
	assert.Equal(t, base.Hash, res.Base)
	assert.Equal(t, "Merge branch 'feature' into main", res.Commit.Message)

	files, err := r.Snapshot(ctx, res.Head)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		"shared":   []byte("s"),
		"x":        []byte("2"),
		"main.txt": []byte("m"),
	}, files)

	// First-parent history follows main.
	log, err := r.Log(ctx, "main", 0)
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, target.Hash, log[1].Hash)
}

func TestMergeConflictAborts(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	base := mustCommit(t, r, "main", Snapshot{"f": []byte("base"), "g": []byte("g")}, "base")
	_, err := r.CreateBranch(ctx, "feature", base.Hash)
	require.NoError(t, err)
	target := mustCommit(t, r, "main", Snapshot{"f": []byte("ours"), "g": []byte("g")}, "ours")
	mustCommit(t, r, "feature", Snapshot{"f": []byte("theirs"), "g": []byte("g2")}, "theirs")
	writes := r.Objects().Writes()

	_, err = r.Merge(ctx, "feature", "main")
	require.ErrorIs(t, err, ErrMergeConflict)
	var mce *MergeConflictError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, []string{"f"}, mce.Report.Paths())
	assert.Equal(t, base.Hash, mce.Report.Base)
	c := mce.Report.Conflicts[0]
	assert.Equal(t, diffmerge.BothModified, c.Kind)
	assert.Equal(t, []byte("base"), c.Base.Content)
	assert.Equal(t, []byte("ours"), c.Target.Content)
	assert.Equal(t, []byte("theirs"), c.Source.Content)

	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, target.Hash, b.Head)
	assert.Equal(t, writes, r.Objects().Writes())
}

func TestMergeFileDirectoryClash(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	base := mustCommit(t, r, "main", Snapshot{"z": []byte("z")}, "base")
	_, err := r.CreateBranch(ctx, "feature", base.Hash)
	require.NoError(t, err)
	target := mustCommit(t, r, "main", Snapshot{"z": []byte("z"), "a": []byte("file")}, "file a")
	mustCommit(t, r, "feature", Snapshot{"z": []byte("z"), "a/b": []byte("nested")}, "dir a")

	_, err = r.Merge(ctx, "feature", "main")
	require.ErrorIs(t, err, ErrMergeConflict)
	var mce *MergeConflictError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, []string{"a", "a/b"}, mce.Report.Paths())
	for _, c := range mce.Report.Conflicts {
		assert.Equal(t, diffmerge.FileDirectory, c.Kind)
	}
	b, err := r.GetBranch(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, target.Hash, b.Head)

	res, err := r.Merge(ctx, "feature", "main", WithStrategy(diffmerge.StrategyTheirs))
	require.NoError(t, err)
	paths, err := r.ListFiles(ctx, res.Head)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "z"}, paths)
}

func TestCommitRejectsFileDirectoryClash(t *testing.T) {
	r, _ := newTestRepo(t)
	_, err := r.Commit(context.Background(), "main", Snapshot{"a": []byte("1"), "a/b": []byte("2")}, "clash", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMergeMissingBlobIsNotArgumentError(t *testing.T) {
	ctx := context.Background()
	r, backend := newTestRepo(t)

	base := mustCommit(t, r, "main", Snapshot{"f": []byte("base")}, "base")
	_, err := r.CreateBranch(ctx, "feature", base.Hash)
	require.NoError(t, err)
	mustCommit(t, r, "main", Snapshot{"f": []byte("ours")}, "ours")
	mustCommit(t, r, "feature", Snapshot{"f": []byte("theirs")}, "theirs")

	blob := objects.HashOf(objects.KindBlob, []byte("theirs"))
	require.NoError(t, backend.Delete(blob))
	r.Objects().Forget(blob)

	_, err = r.Merge(ctx, "feature", "main")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
	assert.NotErrorIs(t, err, ErrMergeConflict)

	_, err = r.Merge(ctx, "feature", "main", WithStrategy("octopus"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMergeWithStrategy(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	base := mustCommit(t, r, "main", Snapshot{"f": []byte("base")}, "base")
	_, err := r.CreateBranch(ctx, "feature", base.Hash)
	require.NoError(t, err)
	mustCommit(t, r, "main", Snapshot{"f": []byte("ours")}, "ours")
	mustCommit(t, r, "feature", Snapshot{"f": []byte("theirs")}, "theirs")

	res, err := r.Merge(ctx, "feature", "main", WithStrategy(diffmerge.StrategyTheirs), WithMessage("take theirs"))
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, res.Resolved)
	assert.Equal(t, "take theirs", res.Commit.Message)

	content, err := r.ReadFile(ctx, res.Head, "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("theirs"), content)
}

func TestMergeUnrelatedHistories(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)

	mustCommit(t, r, "main", Snapshot{"a": []byte("main")}, "main root")
	_, err := r.CreateBranch(ctx, "other", cas.Hash{})
	require.NoError(t, err)
	mustCommit(t, r, "other", Snapshot{"b": []byte("other")}, "other root")

	res, err := r.Merge(ctx, "other", "main")
	require.NoError(t, err)
	assert.Equal(t, Merged, res.Outcome)
	assert.True(t, res.Base.IsZero())

	paths, err := r.ListFiles(ctx, res.Head)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, paths)
}

func TestBranchLifecycle(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")

	_, err := r.CreateBranch(ctx, "main", cas.Hash{})
	assert.ErrorIs(t, err, ErrBranchExists)
	_, err = r.CreateBranch(ctx, "bad name", cas.Hash{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.CreateBranch(ctx, "dangling", cas.Sum([]byte("x")))
	assert.ErrorIs(t, err, ErrInvalidReference)

	feature, err := r.CreateBranch(ctx, "feature", c1.Hash)
	require.NoError(t, err)
	assert.Equal(t, c1.Hash, feature.Head)

	branches, err := r.ListBranches(ctx)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "feature", branches[0].Name)

	files, err := r.Checkout(ctx, "feature")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"a": []byte("1")}, files)
	current, err := r.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature", current)

	assert.ErrorIs(t, r.DeleteBranch(ctx, "feature"), ErrBranchCheckedOut)
	_, err = r.Checkout(ctx, "main")
	require.NoError(t, err)
	require.NoError(t, r.DeleteBranch(ctx, "feature"))
	assert.ErrorIs(t, r.DeleteBranch(ctx, "feature"), ErrNotFound)
	_, err = r.Checkout(ctx, "feature")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")

	h, err := r.Resolve(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, c1.Hash, h)

	h, err = r.Resolve(ctx, c1.Hash.String())
	require.NoError(t, err)
	assert.Equal(t, c1.Hash, h)

	_, err = r.Resolve(ctx, "nonsense")
	assert.ErrorIs(t, err, ErrInvalidReference)

	// A blob hash is not a commit.
	_, err = r.Resolve(ctx, objects.HashOf(objects.KindBlob, []byte("1")).String())
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	r, backend := newTestRepo(t)
	mustCommit(t, r, "main", Snapshot{"a": []byte("1"), "b": []byte("2")}, "one")
	require.NoError(t, r.Verify(ctx))

	blob := objects.HashOf(objects.KindBlob, []byte("2"))
	require.NoError(t, backend.Delete(blob))
	r.Objects().Forget(blob)

	err := r.Verify(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), blob.String())
}

func TestGCRemovesUnreachable(t *testing.T) {
	ctx := context.Background()
	r, backend := newTestRepo(t)

	c1 := mustCommit(t, r, "main", Snapshot{"a": []byte("1")}, "one")
	mustCommit(t, r, "main", Snapshot{"a": []byte("2")}, "two")
	_, err := r.CreateBranch(ctx, "keep", c1.Hash)
	require.NoError(t, err)
	_, err = r.Objects().PutBlob([]byte("orphan"))
	require.NoError(t, err)

	stats, err := r.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 2, stats.Commits)
	assert.Equal(t, 2, stats.Trees)
	assert.Equal(t, 2, stats.Blobs)
	assert.Equal(t, 6, backend.Len())
	require.NoError(t, r.Verify(ctx))

	// After the rollback nothing references commit two.
	_, err = r.Rollback(ctx, "main", c1.Hash)
	require.NoError(t, err)
	stats, err = r.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Removed)
	assert.Equal(t, 3, backend.Len())
}

func TestGCUnsupportedBackend(t *testing.T) {
	r, err := New(Options{Backend: hashOnlyCAS{cas.NewMemoryCAS()}})
	require.NoError(t, err)
	_, err = r.GC(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

// hashOnlyCAS hides the Sweeper methods of the wrapped store.
type hashOnlyCAS struct {
	inner *cas.MemoryCAS
}

func (h hashOnlyCAS) Put(hash cas.Hash, data []byte) error { return h.inner.Put(hash, data) }
func (h hashOnlyCAS) Get(hash cas.Hash) ([]byte, error)    { return h.inner.Get(hash) }
func (h hashOnlyCAS) Has(hash cas.Hash) (bool, error)      { return h.inner.Has(hash) }
