package session

import (
	"testing"
	"time"
)

func TestMemoryStore_PutTake(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()

	s.Put("a", "hello", time.Minute)
	v, ok := s.Take("a")
	if !ok || v.(string) != "hello" {
		t.Fatalf("expected (hello, true), got (%v, %v)", v, ok)
	}

	if _, ok := s.Take("a"); ok {
		t.Errorf("second Take should observe nothing, Take is a one-shot consume")
	}
}

func TestMemoryStore_TakeIsAtomicAcrossConcurrentCallers(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	s.Put("a", 1, time.Minute)

	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, ok := s.Take("a")
			results <- ok
		}()
	}

	hits := 0
	for i := 0; i < 8; i++ {
		if <-results {
			hits++
		}
	}
	if hits != 1 {
		t.Errorf("expected exactly one successful Take, got %d", hits)
	}
}

func TestMemoryStore_PeekDoesNotConsume(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	s.Put("a", "x", time.Minute)

	if _, ok := s.Peek("a"); !ok {
		t.Fatalf("expected Peek to find entry")
	}
	if _, ok := s.Take("a"); !ok {
		t.Errorf("expected entry to still be present after Peek")
	}
}

func TestMemoryStore_ExpiredEntryIsInvisible(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	defer s.Close()

	base := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return base }
	s.Put("a", "x", time.Second)

	s.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, ok := s.Take("a"); ok {
		t.Errorf("expected expired entry to be invisible to Take")
	}
}

func TestMemoryStore_BackgroundPurgeRemovesExpiredEntries(t *testing.T) {
	s := NewMemoryStore(5 * time.Millisecond)
	defer s.Close()

	base := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return base }
	s.Put("a", "x", time.Nanosecond)
	s.now = func() time.Time { return base.Add(time.Second) }

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		_, present := s.entries["a"]
		s.mu.Unlock()
		if !present {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected background purge to remove expired entry")
}
