package mediastore

import (
	"io"
	"testing"
)

func TestInsertDeduplicatesIdenticalPayloads(t *testing.T) {
	s := New()
	keyA, err := s.Insert([]byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	keyB, err := s.Insert([]byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if keyA != keyB {
		t.Fatalf("expected identical payloads to dedupe to the same key, got %q and %q", keyA, keyB)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestGetReturnsStreamingReader(t *testing.T) {
	s := New()
	key, err := s.Insert([]byte("payload"), "application/octet-stream")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	mime, r, ok := s.Get(key)
	if !ok {
		t.Fatal("expected entry to be found")
	}
	if mime != "application/octet-stream" {
		t.Errorf("unexpected mime type: %q", mime)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected data: %q", data)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	s := New()
	key, _ := s.Insert([]byte("x"), "text/plain")
	s.Remove(key)
	if s.Has(key) {
		t.Fatal("expected entry to be removed")
	}
	if s.Len() != 0 {
		t.Fatalf("expected 0 entries, got %d", s.Len())
	}
}

func TestIterReturnsInsertionOrder(t *testing.T) {
	s := New()
	keyA, _ := s.Insert([]byte("a"), "text/plain")
	keyB, _ := s.Insert([]byte("b"), "text/plain")
	keyC, _ := s.Insert([]byte("c"), "text/plain")

	entries := s.Iter()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	got := []string{entries[0].SHA256, entries[1].SHA256, entries[2].SHA256}
	want := []string{keyA, keyB, keyC}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, got)
		}
	}
}

func TestInsertDetectsCollision(t *testing.T) {
	// Simulate a collision by manually seeding an entry under a key that
	// does not match its payload, then inserting a different payload
	// whose real hash happens to equal that key.
	s := New()
	key, err := s.Insert([]byte("a"), "text/plain")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	s.entries[key] = entry{mimeType: "text/plain", data: []byte("tampered")}

	if _, err := s.Insert([]byte("a"), "text/plain"); err == nil {
		t.Fatal("expected a collision error")
	} else if _, ok := err.(*CollisionError); !ok {
		t.Fatalf("expected *CollisionError, got %T", err)
	}
}
