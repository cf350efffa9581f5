// Package models holds the wire-format structs shared across the challenge
// engine, risk analyzer, and PoW subsystem.
package models

import "encoding/json"

// TrajectoryPoint is one sample of slider-drag telemetry reported by the
// client while a puzzle is being solved.
type TrajectoryPoint struct {
	Timestamp   int64   `json:"timestamp"`
	Value       float64 `json:"value"`
	Delta       float64 `json:"delta"`
	Velocity    float64 `json:"velocity"`
	TimeDeltaMs int     `json:"time_delta_ms"`
}

// BehaviorSummary aggregates mouse/event telemetry collected over the
// lifetime of a single puzzle-solving session.
type BehaviorSummary struct {
	StartTime       int64           `json:"start_time"`
	EndTime         int64           `json:"end_time"`
	TotalDurationMs int             `json:"total_duration_ms"`
	EventCount      int             `json:"event_count"`
	MouseDownCount  int             `json:"mouse_down_count"`
	MouseMoveCount  int             `json:"mouse_move_count"`
	Events          []map[string]any `json:"events,omitempty"`
}

// RiskAnalysis is the result of scoring a session's fingerprint, trajectory,
// and behaviour telemetry.
type RiskAnalysis struct {
	IsBot           bool           `json:"is_bot"`
	ConfidenceScore int            `json:"confidence_score"`
	Flags           []string       `json:"flags"`
	Details         RiskDetails    `json:"details"`
}

// RiskDetails carries a few denormalised fields callers commonly want
// without having to re-derive them from the raw telemetry.
type RiskDetails struct {
	FingerprintPresent bool  `json:"fingerprint_present"`
	TrajectoryPoints   int   `json:"trajectory_points"`
	TotalDurationMs    int   `json:"total_duration_ms"`
	MovementEvents     int   `json:"movement_events"`
}

// PieceMetadata is the payload emitted for a single jigsaw piece.
type PieceMetadata struct {
	Data string `json:"data"` // base64-encoded PNG
	W    int    `json:"w"`
	H    int    `json:"h"`
	OX   int    `json:"ox"`
	OY   int    `json:"oy"`
}

// KeyframePlacement positions one piece at a given slider keyframe.
type KeyframePlacement struct {
	PieceID string `json:"piece_id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// ImageChallengeResponse is the payload returned by /generate-captcha?mode=image.
type ImageChallengeResponse struct {
	CaptchaID string                            `json:"captcha_id"`
	Mode      string                            `json:"mode"`
	Pieces    map[string]PieceMetadata          `json:"pieces"`
	Keyframes map[string][]KeyframePlacement    `json:"keyframes"`
}

// VideoChallengeResponse is the payload returned by /generate-captcha?mode=video.
type VideoChallengeResponse struct {
	CaptchaID   string `json:"captcha_id"`
	Mode        string `json:"mode"`
	StreamURL   string `json:"stream_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SliderMin   int    `json:"slider_min"`
	SliderMax   int    `json:"slider_max"`
	SliderStart int    `json:"slider_start"`
}

// PowChallenge is the stateless, HMAC-signed proof-of-work challenge handed
// to the client.
type PowChallenge struct {
	Salt       string `json:"salt"`
	Difficulty int    `json:"difficulty"`
	Timestamp  int64  `json:"timestamp"`
	Signature  string `json:"signature"`
	RiskLevel  string `json:"risk_level,omitempty"`
}

// PowSolution is the nonce + challenge parameters the client submits back.
type PowSolution struct {
	Salt       string `json:"pow_salt"`
	Nonce      string `json:"pow_nonce"`
	Difficulty int    `json:"pow_difficulty"`
	Timestamp  int64  `json:"pow_timestamp"`
	Signature  string `json:"pow_signature"`
}

// TelemetryInput bundles the optional client telemetry shared by
// /pow-challenge and /verify-captcha requests. Trajectory and Behavior are
// kept as raw JSON rather than bound directly to TrajectoryPoint/
// BehaviorSummary: spec.md requires malformed trajectory points to be
// dropped silently rather than reject the whole request, which a strongly
// typed field can't do — a single bad point would fail the entire JSON
// unmarshal. internal/risk.ParseTrajectory/ParseBehavior decode these
// leniently, field by field.
type TelemetryInput struct {
	Fingerprint map[string]any  `json:"fingerprint,omitempty"`
	Trajectory  json.RawMessage `json:"trajectory,omitempty"`
	Behavior    json.RawMessage `json:"behavior,omitempty"`
}

// VerifyRequest is the body of POST /verify-captcha. See TelemetryInput for
// why Trajectory/Behavior are raw JSON rather than typed fields.
type VerifyRequest struct {
	CaptchaID   string          `json:"captcha_id"`
	SliderValue *float64        `json:"slider_value"`
	Mode        string          `json:"mode"`
	PowSalt     string          `json:"pow_salt"`
	PowNonce    string          `json:"pow_nonce"`
	PowDiff     *int            `json:"pow_difficulty"`
	PowTs       *int64          `json:"pow_timestamp"`
	PowSig      string          `json:"pow_signature"`
	Fingerprint map[string]any  `json:"fingerprint,omitempty"`
	Trajectory  json.RawMessage `json:"trajectory,omitempty"`
	Behavior    json.RawMessage `json:"behavior,omitempty"`
}

// VerifyResponse is returned by POST /verify-captcha.
type VerifyResponse struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Analysis *RiskAnalysis `json:"analysis,omitempty"`
}

// SliderUpdateRequest is the body of POST /video-captcha-slider.
type SliderUpdateRequest struct {
	CaptchaID   string   `json:"captcha_id"`
	SliderValue *float64 `json:"slider_value"`
}
