package pow

import (
	"testing"
	"time"
)

func TestIssueThenVerify_Succeeds(t *testing.T) {
	svc := NewService("test-secret-key")
	salt, ts, sig, err := svc.Issue(12)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	nonce := Solve(salt, 12)

	if err := svc.Verify(salt, 12, ts, sig, nonce); err != nil {
		t.Errorf("expected verify success, got %v", err)
	}
}

func TestVerify_SignatureTamperRejected(t *testing.T) {
	svc := NewService("test-secret-key")
	salt, ts, sig, _ := svc.Issue(8)
	nonce := Solve(salt, 8)

	// Flip a difficulty bit relative to what was signed.
	if err := svc.Verify(salt, 9, ts, sig, nonce); err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}

	// Flip a timestamp bit.
	if err := svc.Verify(salt, 8, ts+1, sig, nonce); err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}

	// Corrupt the salt.
	first := "f"
	if salt[0] == 'f' {
		first = "0"
	}
	badSalt := first + salt[1:]
	if err := svc.Verify(badSalt, 8, ts, sig, nonce); err != ErrInvalidSignature {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_ReplayRejectedOnSecondSubmission(t *testing.T) {
	svc := NewService("test-secret-key")
	salt, ts, sig, _ := svc.Issue(8)
	nonce := Solve(salt, 8)

	if err := svc.Verify(salt, 8, ts, sig, nonce); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if err := svc.Verify(salt, 8, ts, sig, nonce); err != ErrReplay {
		t.Errorf("expected ErrReplay on resubmission, got %v", err)
	}
}

func TestVerify_ExpiredChallengeRejected(t *testing.T) {
	svc := NewService("test-secret-key")
	base := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return base }

	salt, ts, sig, _ := svc.Issue(8)
	nonce := Solve(salt, 8)

	svc.now = func() time.Time { return base.Add(301 * time.Second) }
	if err := svc.Verify(salt, 8, ts, sig, nonce); err != ErrExpired {
		t.Errorf("expected ErrExpired after 301s, got %v", err)
	}
}

func TestVerify_BadNonceRejected(t *testing.T) {
	svc := NewService("test-secret-key")
	salt, ts, sig, _ := svc.Issue(20)

	if err := svc.Verify(salt, 20, ts, sig, "0"); err != ErrDifficultyNotMet {
		t.Errorf("expected ErrDifficultyNotMet, got %v", err)
	}
}

func TestSatisfiesDifficulty_MatchesLeadingZeroCount(t *testing.T) {
	salt, _, _, _ := NewService("k").Issue(1)
	nonce := Solve(salt, 10)
	if !SatisfiesDifficulty(salt, nonce, 10) {
		t.Errorf("solved nonce should satisfy its own difficulty")
	}
	if SatisfiesDifficulty(salt, nonce, 64) {
		t.Errorf("solved nonce should not satisfy an unreasonably high difficulty")
	}
}
