package api

import (
	"sync"

	"github.com/rawblock/captcha-engine/internal/video"
)

// streamRegistry holds the in-flight *video.Streamer for each live video
// challenge, keyed by captcha ID. It exists alongside internal/session.Store
// rather than inside it because a Streamer is runtime machinery (a frame
// source plus atomic running-state), not serializable session data —
// storing it in a pluggable (possibly Postgres-backed) session.Store would
// break the moment a durable backend were selected.
type streamRegistry struct {
	mu   sync.Mutex
	byID map[string]*video.Streamer
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{byID: make(map[string]*video.Streamer)}
}

func (r *streamRegistry) put(id string, s *video.Streamer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = s
}

func (r *streamRegistry) get(id string) (*video.Streamer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

func (r *streamRegistry) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}
