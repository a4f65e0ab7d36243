// Package refs stores branches: named, mutable pointers to commits.
//
// A branch head only moves through CompareAndSwap, so two writers racing on the same
// branch cannot both win. Branches never block each other.
package refs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/javanhut/strata/internal/cas"
)

var (
	ErrNotFound    = errors.New("branch not found")
	ErrExists      = errors.New("branch already exists")
	ErrStale       = errors.New("branch head changed")
	ErrInvalidName = errors.New("invalid branch name")
	ErrCheckedOut  = errors.New("branch is checked out")
)

// MaxNameLength bounds branch names in bytes.
const MaxNameLength = 255

// Branch is a named pointer to a commit. A zero Head is an empty branch.
type Branch struct {
	Name        string
	Head        cas.Hash
	LastUpdated time.Time
}

// IsEmpty reports whether the branch has no commits.
func (b Branch) IsEmpty() bool {
	return b.Head.IsZero()
}

// Store persists branches and the current-branch pointer.
type Store interface {
	// Get returns the named branch.
	Get(name string) (Branch, error)

	// List returns all branches sorted by name.
	List() ([]Branch, error)

	// Create adds a branch pointing at head.
	Create(name string, head cas.Hash) error

	// CompareAndSwap moves the branch head from one commit to another, failing with
	// ErrStale if the head is no longer from.
	CompareAndSwap(name string, from, to cas.Hash) error

	// Delete removes a branch. The checked out branch cannot be deleted.
	Delete(name string) error

	// Current returns the checked out branch name, or ErrNotFound if none is set.
	Current() (string, error)

	// SetCurrent checks out an existing branch.
	SetCurrent(name string) error
}

// ValidateBranchName checks name against the branch naming rules.
func ValidateBranchName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > MaxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidName, name)
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return fmt.Errorf("%w: %q starts or ends with '/'", ErrInvalidName, name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q starts with '-'", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidName, name)
		}
	}
	return nil
}

// record is the persisted form of a branch.
type record struct {
	Head        string    `json:"head,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

func encodeBranch(b Branch) ([]byte, error) {
	r := record{LastUpdated: b.LastUpdated.UTC()}
	if !b.Head.IsZero() {
		r.Head = b.Head.String()
	}
	return json.Marshal(r)
}

func decodeBranch(name string, data []byte) (Branch, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Branch{}, fmt.Errorf("decode branch %s: %w", name, err)
	}
	b := Branch{Name: name, LastUpdated: r.LastUpdated}
	if r.Head != "" {
		head, err := cas.ParseHash(r.Head)
		if err != nil {
			return Branch{}, fmt.Errorf("decode branch %s: %w", name, err)
		}
		b.Head = head
	}
	return b, nil
}
