package verify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rawblock/captcha-engine/internal/pow"
	"github.com/rawblock/captcha-engine/internal/puzzle"
	"github.com/rawblock/captcha-engine/internal/session"
	"github.com/rawblock/captcha-engine/internal/video"
	"github.com/rawblock/captcha-engine/pkg/models"
)

func newCoordinator() (*Coordinator, *pow.Service, *session.MemoryStore, *session.MemoryStore) {
	images := session.NewMemoryStore(time.Hour)
	videos := session.NewMemoryStore(time.Hour)
	powSvc := pow.NewService("test-secret")
	return New(powSvc, images, videos), powSvc, images, videos
}

func float64p(v float64) *float64 { return &v }
func int64p(v int64) *int64       { return &v }
func intp(v int) *int             { return &v }

func solvedPowRequest(t *testing.T, svc *pow.Service, difficulty int) (salt string, ts int64, sig, nonce string) {
	t.Helper()
	salt, ts, sig, err := svc.Issue(difficulty)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	nonce = pow.Solve(salt, difficulty)
	return salt, ts, sig, nonce
}

// richTrajectory returns a well-formed trajectory payload as raw JSON,
// matching the wire shape internal/risk.ParseTrajectory decodes.
func richTrajectory() json.RawMessage {
	pts := make([]models.TrajectoryPoint, 0, 20)
	for i := 0; i < 20; i++ {
		delta := 1.0
		timeDelta := 50
		if i == 5 {
			timeDelta = 150
		}
		if i%2 == 0 {
			delta = 2.5
		}
		pts = append(pts, models.TrajectoryPoint{
			Timestamp:   int64(i * 50),
			Value:       float64(i),
			Delta:       delta,
			Velocity:    delta / float64(timeDelta) * 1000,
			TimeDeltaMs: timeDelta,
		})
	}
	data, err := json.Marshal(pts)
	if err != nil {
		panic(err)
	}
	return data
}

// richBehavior returns a well-formed behaviour summary as raw JSON.
func richBehavior() json.RawMessage {
	b := models.BehaviorSummary{
		StartTime:       0,
		EndTime:         2500,
		TotalDurationMs: 2500,
		EventCount:      18,
		MouseDownCount:  1,
		MouseMoveCount:  15,
	}
	data, err := json.Marshal(b)
	if err != nil {
		panic(err)
	}
	return data
}

// humanFingerprint is a fingerprint that trips none of the risk analyzer's
// flags, used by tests that want to isolate a single check.
func humanFingerprint() map[string]any {
	return map[string]any{
		"user_agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) realistic UA string",
		"screen_resolution":  "1920x1080",
		"timezone_name":      "America/New_York",
		"canvas_fingerprint": "abc123",
	}
}

func TestVerify_HappyImageSolve(t *testing.T) {
	coord, powSvc, images, _ := newCoordinator()
	images.Put("c1", &puzzle.Challenge{SolvedValue: 42}, time.Minute)

	salt, ts, sig, nonce := solvedPowRequest(t, powSvc, 15)
	req := models.VerifyRequest{
		CaptchaID:   "c1",
		SliderValue: float64p(42),
		Mode:        "image",
		PowSalt:     salt,
		PowNonce:    nonce,
		PowDiff:     intp(15),
		PowTs:       int64p(ts),
		PowSig:      sig,
		Trajectory:  richTrajectory(),
		Behavior:    richBehavior(),
		Fingerprint: map[string]any{
			"user_agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) realistic UA string",
			"screen_resolution":  "1920x1080",
			"webdriver":          false,
			"timezone_name":      "America/New_York",
			"canvas_fingerprint": "abc123",
		},
	}

	resp := coord.Verify(req)
	if !resp.Success {
		t.Fatalf("expected success, got failure: %+v", resp)
	}
	if resp.Analysis == nil || resp.Analysis.IsBot {
		t.Fatalf("expected non-bot analysis, got %+v", resp.Analysis)
	}
	if len(resp.Analysis.Flags) != 0 {
		t.Errorf("expected zero flags, got %v", resp.Analysis.Flags)
	}
}

func TestVerify_ImageOffByThreeTolerance(t *testing.T) {
	coord, powSvc, images, _ := newCoordinator()

	goodTelemetry := func(captchaID string, slider float64, difficulty int) models.VerifyRequest {
		salt, ts, sig, nonce := solvedPowRequest(t, powSvc, difficulty)
		return models.VerifyRequest{
			CaptchaID: captchaID, SliderValue: float64p(slider), Mode: "image",
			PowSalt: salt, PowNonce: nonce, PowDiff: intp(difficulty), PowTs: int64p(ts), PowSig: sig,
			Trajectory: richTrajectory(), Behavior: richBehavior(), Fingerprint: humanFingerprint(),
		}
	}

	images.Put("c2", &puzzle.Challenge{SolvedValue: 42}, time.Minute)
	resp := coord.Verify(goodTelemetry("c2", 45, 15))
	if !resp.Success {
		t.Errorf("expected slider_value=45 against solved=42 to be within tolerance, got %+v", resp)
	}

	images.Put("c3", &puzzle.Challenge{SolvedValue: 42}, time.Minute)
	resp2 := coord.Verify(goodTelemetry("c3", 46, 15))
	if resp2.Success {
		t.Errorf("expected slider_value=46 against solved=42 to be rejected, got %+v", resp2)
	}
}

func TestVerify_ReplayRejected(t *testing.T) {
	coord, powSvc, images, _ := newCoordinator()
	images.Put("c4", &puzzle.Challenge{SolvedValue: 10}, time.Minute)
	salt, ts, sig, nonce := solvedPowRequest(t, powSvc, 10)

	req := models.VerifyRequest{
		CaptchaID: "c4", SliderValue: float64p(10), Mode: "image",
		PowSalt: salt, PowNonce: nonce, PowDiff: intp(10), PowTs: int64p(ts), PowSig: sig,
		Trajectory: richTrajectory(), Behavior: richBehavior(), Fingerprint: humanFingerprint(),
	}
	first := coord.Verify(req)
	if !first.Success {
		t.Fatalf("expected first verification to succeed, got %+v", first)
	}

	images.Put("c4", &puzzle.Challenge{SolvedValue: 10}, time.Minute)
	second := coord.Verify(req)
	if second.Success || second.Error != "PoW nonce already used" {
		t.Errorf("expected replay rejection, got %+v", second)
	}
}

func TestVerify_UnknownSessionRejected(t *testing.T) {
	coord, powSvc, _, _ := newCoordinator()
	salt, ts, sig, nonce := solvedPowRequest(t, powSvc, 10)
	req := models.VerifyRequest{
		CaptchaID: "does-not-exist", SliderValue: float64p(10), Mode: "image",
		PowSalt: salt, PowNonce: nonce, PowDiff: intp(10), PowTs: int64p(ts), PowSig: sig,
	}
	resp := coord.Verify(req)
	if resp.Success || resp.Error != ErrUnknownSession.Error() {
		t.Errorf("expected unknown-session error, got %+v", resp)
	}
}

func TestVerify_MissingFieldsRejected(t *testing.T) {
	coord, _, _, _ := newCoordinator()
	resp := coord.Verify(models.VerifyRequest{})
	if resp.Success || resp.Error != ErrMissingFields.Error() {
		t.Errorf("expected missing-fields error, got %+v", resp)
	}
}

func TestVerify_VideoModeSolveAndSecondAttemptRejected(t *testing.T) {
	coord, powSvc, _, videos := newCoordinator()
	challenge := &video.Challenge{SecretTarget: 0.6}
	videos.Put("v1", challenge, time.Minute)

	salt, ts, sig, nonce := solvedPowRequest(t, powSvc, 10)
	req := models.VerifyRequest{
		CaptchaID: "v1", SliderValue: float64p(600), Mode: "video",
		PowSalt: salt, PowNonce: nonce, PowDiff: intp(10), PowTs: int64p(ts), PowSig: sig,
		Trajectory: richTrajectory(), Behavior: richBehavior(), Fingerprint: humanFingerprint(),
	}
	resp := coord.Verify(req)
	if !resp.Success {
		t.Fatalf("expected video verification to succeed, got %+v", resp)
	}

	salt2, ts2, sig2, nonce2 := solvedPowRequest(t, powSvc, 10)
	req2 := models.VerifyRequest{
		CaptchaID: "v1", SliderValue: float64p(600), Mode: "video",
		PowSalt: salt2, PowNonce: nonce2, PowDiff: intp(10), PowTs: int64p(ts2), PowSig: sig2,
	}
	resp2 := coord.Verify(req2)
	if resp2.Success || resp2.Error != ErrUnknownSession.Error() {
		t.Errorf("expected second video attempt to see a removed session, got %+v", resp2)
	}
}
