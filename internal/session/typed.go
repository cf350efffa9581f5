package session

import (
	"encoding/json"
	"time"
)

// TypedStore wraps a Store whose backend only knows how to round-trip JSON
// (internal/db.PostgresStore) and decodes each value back into the concrete
// type a caller expects, via newT. MemoryStore needs no such wrapper — it
// holds values directly as `any` — but a durable backend that serializes to
// JSONB has no way to know whether a given row holds a *puzzle.Challenge or
// a *video.Challenge, so the caller supplies the constructor.
type TypedStore struct {
	inner Store
	newT  func() any
}

// NewTypedStore wraps inner, decoding Take/Peek results with newT, a
// function returning a fresh pointer of the destination type (e.g.
// func() any { return &puzzle.Challenge{} }).
func NewTypedStore(inner Store, newT func() any) *TypedStore {
	return &TypedStore{inner: inner, newT: newT}
}

func (t *TypedStore) Put(id string, value any, ttl time.Duration) {
	t.inner.Put(id, value, ttl)
}

func (t *TypedStore) Take(id string) (any, bool) {
	raw, ok := t.inner.Take(id)
	if !ok {
		return nil, false
	}
	return t.decode(raw)
}

func (t *TypedStore) Peek(id string) (any, bool) {
	raw, ok := t.inner.Peek(id)
	if !ok {
		return nil, false
	}
	return t.decode(raw)
}

func (t *TypedStore) Delete(id string) {
	t.inner.Delete(id)
}

// decode handles both a raw JSON payload (from a JSON-backed store like
// internal/db.PostgresStore) and an already-typed in-memory value, so
// TypedStore can wrap either kind of Store transparently.
func (t *TypedStore) decode(raw any) (any, bool) {
	msg, ok := raw.(json.RawMessage)
	if !ok {
		return raw, true
	}
	dst := t.newT()
	if err := json.Unmarshal(msg, dst); err != nil {
		return nil, false
	}
	return dst, true
}
