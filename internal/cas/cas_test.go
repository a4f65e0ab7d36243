package cas

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestSum(t *testing.T) {
	data := []byte("hello world")
	hash1 := Sum(data)
	hash2 := Sum(data)

	if hash1 != hash2 {
		t.Error("Same data should produce same hash")
	}

	hash3 := Sum([]byte("hello world!"))
	if hash1 == hash3 {
		t.Error("Different data should produce different hashes")
	}
}

func TestParseHash(t *testing.T) {
	h := Sum([]byte("parse me"))
	parsed, err := ParseHash(h.String())
	if err != nil {
		t.Fatalf("ParseHash failed: %v", err)
	}
	if parsed != h {
		t.Errorf("ParseHash round trip: got %s, want %s", parsed, h)
	}

	for _, bad := range []string{"", "abc", h.String()[:63] + "z"} {
		if _, err := ParseHash(bad); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("ParseHash(%q): expected ErrInvalidHash, got %v", bad, err)
		}
	}
}

func testBackend(t *testing.T, store CAS) {
	t.Helper()
	data := []byte("test data")
	hash := Sum(data)

	has, err := store.Has(hash)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if has {
		t.Error("Empty CAS should not have any data")
	}

	if _, err := store.Get(hash); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on missing hash: expected ErrNotFound, got %v", err)
	}

	if err := store.Put(hash, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// idempotent
	if err := store.Put(hash, data); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	has, err = store.Has(hash)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !has {
		t.Error("CAS should have data after Put")
	}

	retrieved, err := store.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(data, retrieved) {
		t.Error("Retrieved data should match original")
	}

	wrongHash := Sum([]byte("different data"))
	if err := store.Put(wrongHash, data); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("Put with mismatched hash: expected ErrHashMismatch, got %v", err)
	}
}

func testSweeper(t *testing.T, sw interface {
	CAS
	Sweeper
}) {
	t.Helper()
	var hashes []Hash
	for _, s := range []string{"a", "b", "c"} {
		h := Sum([]byte(s))
		if err := sw.Put(h, []byte(s)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		hashes = append(hashes, h)
	}

	seen := map[Hash]bool{}
	if err := sw.Walk(func(h Hash) error {
		seen[h] = true
		return nil
	}); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	for _, h := range hashes {
		if !seen[h] {
			t.Errorf("Walk did not visit %s", h)
		}
	}

	if err := sw.Delete(hashes[0]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := sw.Delete(hashes[0]); err != nil {
		t.Fatalf("Delete of missing object failed: %v", err)
	}
	if has, _ := sw.Has(hashes[0]); has {
		t.Error("object should be gone after Delete")
	}
}

func TestMemoryCAS(t *testing.T) {
	testBackend(t, NewMemoryCAS())
	testSweeper(t, NewMemoryCAS())
}

func TestFileCAS(t *testing.T) {
	store, err := NewFileCAS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCAS failed: %v", err)
	}
	testBackend(t, store)

	sweeper, err := NewFileCAS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCAS failed: %v", err)
	}
	testSweeper(t, sweeper)
}

func TestFileCASReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := NewFileCAS(dir)
	if err != nil {
		t.Fatalf("NewFileCAS failed: %v", err)
	}
	data := bytes.Repeat([]byte("compressible "), 100)
	hash := Sum(data)
	if err := first.Put(hash, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second, err := NewFileCAS(dir)
	if err != nil {
		t.Fatalf("NewFileCAS failed: %v", err)
	}
	got, err := second.Get(hash)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data changed across reopen")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("zstd "), 64)
	c, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	out, err := Decompress(c)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("round trip mismatch")
	}
}

func TestMemoryCASConcurrency(t *testing.T) {
	store := NewMemoryCAS()
	data := []byte("concurrent test data")
	hash := Sum(data)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Put(hash, data); err != nil {
				t.Errorf("Concurrent Put failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if store.Len() != 1 {
		t.Errorf("expected 1 stored object, got %d", store.Len())
	}
}

func BenchmarkSum(b *testing.B) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 256)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Sum(data)
	}
}
