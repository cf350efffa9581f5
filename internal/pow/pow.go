// Package pow issues and verifies HMAC-signed, difficulty-adaptive
// proof-of-work challenges. The server holds no per-challenge state beyond
// a replay ledger of burned (salt, nonce) pairs — the challenge itself is
// carried entirely by the client, authenticated by an HMAC signature.
package pow

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ChallengeTTL is how long an issued challenge stays valid (spec §4.5).
const ChallengeTTL = 300 * time.Second

// Sentinel verification errors. Their Error() strings are returned verbatim
// to clients (spec §7 — PoW errors are diagnostic, not security-sensitive).
var (
	ErrInvalidSignature = errors.New("Invalid PoW signature")
	ErrExpired          = errors.New("PoW challenge expired")
	ErrReplay           = errors.New("PoW nonce already used")
	ErrDifficultyNotMet = errors.New("PoW nonce does not satisfy difficulty target")
)

// Service issues and verifies proof-of-work challenges using secret as the
// HMAC key. Per spec §9, secret is taken as the literal UTF-8 bytes of the
// configured POW_SECRET_KEY string (not hex-decoded) — a deliberate
// deviation from idiomatic key handling, preserved for cross-implementation
// parity with the reference solver.
type Service struct {
	secret []byte

	mu         sync.Mutex
	usedNonces map[string]time.Time // "salt:nonce" -> expiry

	now func() time.Time
}

// NewService constructs a Service keyed by secret (the raw configured
// string, encoded as UTF-8 bytes).
func NewService(secret string) *Service {
	return &Service{
		secret:     []byte(secret),
		usedNonces: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Issue creates a new challenge at the given difficulty.
func (s *Service) Issue(difficulty int) (salt string, timestamp int64, signature string, err error) {
	saltBytes := make([]byte, 16)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", 0, "", fmt.Errorf("pow: generating salt: %w", err)
	}
	salt = hex.EncodeToString(saltBytes)
	timestamp = s.now().Unix()
	signature = s.sign(salt, difficulty, timestamp)
	return salt, timestamp, signature, nil
}

func (s *Service) sign(salt string, difficulty int, timestamp int64) string {
	payload := fmt.Sprintf("%s.%d.%d", salt, difficulty, timestamp)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify runs the full verification pipeline in order: signature,
// freshness, replay, hash, burn. It returns the first failure encountered,
// or nil on success.
func (s *Service) Verify(salt string, difficulty int, timestamp int64, signature, nonceHex string) error {
	expected := s.sign(salt, difficulty, timestamp)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	age := s.now().Unix() - timestamp
	if age < 0 || age > int64(ChallengeTTL.Seconds()) {
		return ErrExpired
	}

	replayKey := salt + ":" + nonceHex

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked()

	if _, used := s.usedNonces[replayKey]; used {
		return ErrReplay
	}

	if !SatisfiesDifficulty(salt, nonceHex, difficulty) {
		return ErrDifficultyNotMet
	}

	s.usedNonces[replayKey] = s.now().Add(ChallengeTTL)
	return nil
}

// purgeExpiredLocked removes ledger entries past their expiry. Caller must
// hold s.mu.
func (s *Service) purgeExpiredLocked() {
	now := s.now()
	for k, exp := range s.usedNonces {
		if !now.Before(exp) {
			delete(s.usedNonces, k)
		}
	}
}
