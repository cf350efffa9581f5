// Package db provides an optional Postgres-backed durable implementation of
// internal/session.Store, for deployments that run more than one engine
// instance behind a load balancer and need challenge state visible across
// all of them. A single in-process instance needs nothing here —
// internal/session.MemoryStore is the default.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists session.Store entries as JSONB rows, keyed by
// session ID, with an expiry column a background sweep (see PurgeExpired)
// uses to evict stale challenges.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx connection pool against connStr and verifies it with
// a ping.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("db: connecting to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("db: ping failed: %w", err)
	}

	log.Println("[db] connected to PostgreSQL session store")
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema applies schema.sql, creating the captcha_sessions table if it
// doesn't already exist.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("db: reading schema file: %w", err)
	}

	if _, err := s.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("db: applying schema: %w", err)
	}

	log.Println("[db] captcha session schema initialized")
	return nil
}

// Put inserts or replaces the session row for id, encoding value as JSON.
func (s *PostgresStore) Put(id string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("[db] put %s: marshal failed: %v", id, err)
		return
	}

	const sql = `
		INSERT INTO captcha_sessions (id, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`
	if _, err := s.pool.Exec(context.Background(), sql, id, payload, time.Now().Add(ttl)); err != nil {
		log.Printf("[db] put %s: %v", id, err)
	}
}

// Take atomically deletes and returns the raw JSON payload stored under id.
// Callers must unmarshal into the concrete type they expect.
func (s *PostgresStore) Take(id string) (any, bool) {
	const sql = `
		DELETE FROM captcha_sessions
		WHERE id = $1 AND expires_at > NOW()
		RETURNING payload
	`
	var payload []byte
	err := s.pool.QueryRow(context.Background(), sql, id).Scan(&payload)
	if err != nil {
		return nil, false
	}
	return json.RawMessage(payload), true
}

// Peek returns the raw JSON payload stored under id without removing it.
func (s *PostgresStore) Peek(id string) (any, bool) {
	const sql = `SELECT payload FROM captcha_sessions WHERE id = $1 AND expires_at > NOW()`
	var payload []byte
	err := s.pool.QueryRow(context.Background(), sql, id).Scan(&payload)
	if err != nil {
		return nil, false
	}
	return json.RawMessage(payload), true
}

// Delete removes id unconditionally.
func (s *PostgresStore) Delete(id string) {
	const sql = `DELETE FROM captcha_sessions WHERE id = $1`
	if _, err := s.pool.Exec(context.Background(), sql, id); err != nil {
		log.Printf("[db] delete %s: %v", id, err)
	}
}

// PurgeExpired removes every row past its expiry. Intended to be called
// periodically by a background ticker in cmd/engine, mirroring
// internal/session.MemoryStore's own sweep.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM captcha_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("db: purging expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
