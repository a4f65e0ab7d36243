package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javanhut/strata/internal/config"
)

func TestInitOpenPersists(t *testing.T) {
	for _, backend := range []string{config.BackendBolt, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			t.Setenv("HOME", t.TempDir())
			work := t.TempDir()

			r, err := Init(work)
			require.NoError(t, err)
			current, err := r.CurrentBranch(ctx)
			require.NoError(t, err)
			assert.Equal(t, DefaultBranch, current)
			require.NoError(t, r.Close())

			repoDir := filepath.Join(work, Dir)
			require.NoError(t, config.SetValue(repoDir, config.StorageBackendKey, backend, false))

			r, err = Open(work)
			require.NoError(t, err)
			rec, err := r.Commit(ctx, DefaultBranch, Snapshot{"docs/readme.md": []byte("hi")}, "first", testAuthor)
			require.NoError(t, err)
			require.NoError(t, r.Close())

			sub := filepath.Join(work, "docs")
			require.NoError(t, os.MkdirAll(sub, 0755))
			r, err = Open(sub)
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			b, err := r.GetBranch(ctx, DefaultBranch)
			require.NoError(t, err)
			assert.Equal(t, rec.Hash, b.Head)
			content, err := r.ReadFile(ctx, rec.Hash, "docs/readme.md")
			require.NoError(t, err)
			assert.Equal(t, []byte("hi"), content)
			require.NoError(t, r.Verify(ctx))

			stats, err := r.GC(ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.Removed)
		})
	}
}

func TestInitTwiceFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	work := t.TempDir()
	r, err := Init(work)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = Init(work)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOpenOutsideRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}
