package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/javanhut/strata/internal/cas"
	"github.com/javanhut/strata/internal/config"
	"github.com/javanhut/strata/internal/refs"
	"github.com/javanhut/strata/internal/store"
)

const (
	// Dir is the repository metadata directory inside a working directory.
	Dir = ".strata"
	// DefaultBranch is created by Init and checked out.
	DefaultBranch = "main"

	dbFile     = "strata.db"
	objectsDir = "objects"
)

var ErrNotRepository = errors.New("not a strata repository")

// Init creates a repository under workDir/.strata with an empty, checked out main
// branch and a default config file. Initializing an existing repository fails.
func Init(workDir string) (*Repository, error) {
	repoDir := filepath.Join(workDir, Dir)
	if _, err := os.Stat(filepath.Join(repoDir, dbFile)); err == nil {
		return nil, fmt.Errorf("%w: repository already exists at %s", ErrInvalidArgument, repoDir)
	}
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", repoDir, err)
	}
	cfg, err := config.Load(repoDir)
	if err != nil {
		return nil, err
	}
	seed := *cfg
	seed.User = config.UserConfig{}
	if err := config.Save(repoDir, &seed); err != nil {
		return nil, err
	}

	r, err := open(repoDir, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.refs.Create(DefaultBranch, cas.Hash{}); err != nil {
		_ = r.Close()
		return nil, translate(err)
	}
	if err := r.refs.SetCurrent(DefaultBranch); err != nil {
		_ = r.Close()
		return nil, translate(err)
	}
	return r, nil
}

// Open opens the repository in workDir or the closest parent directory holding one.
func Open(workDir string) (*Repository, error) {
	repoDir, err := Find(workDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(repoDir)
	if err != nil {
		return nil, err
	}
	return open(repoDir, cfg)
}

// Find walks up from workDir to the directory containing .strata and returns the
// .strata path.
func Find(workDir string) (string, error) {
	dir, err := filepath.Abs(workDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, Dir)
		if _, err := os.Stat(filepath.Join(candidate, dbFile)); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (or any parent up to %s)", ErrNotRepository, dir)
		}
		dir = parent
	}
}

func open(repoDir string, cfg *config.Config) (*Repository, error) {
	db, err := store.Open(filepath.Join(repoDir, dbFile))
	if err != nil {
		return nil, err
	}

	var backend cas.CAS
	switch cfg.Storage.Backend {
	case config.BackendFile:
		backend, err = cas.NewFileCAS(filepath.Join(repoDir, objectsDir))
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	case config.BackendBolt, "":
		backend = store.NewBoltCAS(db)
	default:
		_ = db.Close()
		return nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidArgument, cfg.Storage.Backend)
	}

	cacheSize := cfg.Storage.CacheSize
	if cacheSize == 0 {
		cacheSize = -1
	}
	return New(Options{
		Backend:         backend,
		Refs:            refs.NewBoltStore(db),
		CacheSize:       cacheSize,
		Author:          cfg.Author(),
		RetryMaxElapsed: cfg.Retry.MaxElapsed,
		Closer:          db,
	})
}
