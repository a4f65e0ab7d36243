package refs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/javanhut/strata/internal/cas"
)

// MemoryStore is an in-memory Store for tests and ephemeral repositories.
type MemoryStore struct {
	mu       sync.Mutex
	branches map[string]Branch
	current  string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{branches: make(map[string]Branch)}
}

// Get implements Store.Get.
func (m *MemoryStore) Get(name string) (Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[name]
	if !ok {
		return Branch{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, nil
}

// List implements Store.List.
func (m *MemoryStore) List() ([]Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	branches := make([]Branch, 0, len(m.branches))
	for _, b := range m.branches {
		branches = append(branches, b)
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// Create implements Store.Create.
func (m *MemoryStore) Create(name string, head cas.Hash) error {
	if err := ValidateBranchName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[name]; ok {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	m.branches[name] = Branch{Name: name, Head: head, LastUpdated: time.Now().UTC()}
	return nil
}

// CompareAndSwap implements Store.CompareAndSwap.
func (m *MemoryStore) CompareAndSwap(name string, from, to cas.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.branches[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if b.Head != from {
		return fmt.Errorf("%w: %s is at %s, expected %s", ErrStale, name, b.Head.Short(), from.Short())
	}
	b.Head = to
	b.LastUpdated = time.Now().UTC()
	m.branches[name] = b
	return nil
}

// Delete implements Store.Delete.
func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if m.current == name {
		return fmt.Errorf("%w: %s", ErrCheckedOut, name)
	}
	delete(m.branches, name)
	return nil
}

// Current implements Store.Current.
func (m *MemoryStore) Current() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == "" {
		return "", fmt.Errorf("%w: no branch checked out", ErrNotFound)
	}
	return m.current, nil
}

// SetCurrent implements Store.SetCurrent.
func (m *MemoryStore) SetCurrent(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.branches[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	m.current = name
	return nil
}
