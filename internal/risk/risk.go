// Package risk scores a captcha session's fingerprint, slider trajectory,
// and behaviour telemetry into a bot-confidence score and a list of
// contributing flags.
package risk

import (
	"math"
	"strconv"
	"strings"

	"github.com/rawblock/captcha-engine/pkg/models"
)

// Session is the input to Analyze: the optional telemetry collected for one
// puzzle-solving attempt.
type Session struct {
	Fingerprint map[string]any
	Trajectory  []models.TrajectoryPoint
	Behavior    *models.BehaviorSummary
}

// Thresholds maps a confidence score to a PoW difficulty tier. Kept
// configurable per spec's note that the 15/19/22 tiers are empirically
// tuned and should not be hardcoded.
type Thresholds struct {
	LowScore, MediumScore       int
	LowDifficulty, MediumDifficulty, HighDifficulty int
}

// DefaultThresholds matches the reference implementation's tuned values.
var DefaultThresholds = Thresholds{
	LowScore:         70,
	MediumScore:      40,
	LowDifficulty:    15,
	MediumDifficulty: 19,
	HighDifficulty:   22,
}

// Analyze runs the full flag-accumulator scoring pipeline and returns the
// resulting confidence score, is_bot verdict, and contributing flags.
func Analyze(s Session) models.RiskAnalysis {
	score := 100
	var flags []string

	score += scoreFingerprint(s.Fingerprint, &flags)
	score += scoreTrajectory(s.Trajectory, &flags)
	score += scoreBehavior(s.Behavior, &flags)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	trajectoryPoints := len(s.Trajectory)
	totalDuration := 0
	movementEvents := 0
	if s.Behavior != nil {
		totalDuration = s.Behavior.TotalDurationMs
		movementEvents = s.Behavior.MouseMoveCount
	}

	return models.RiskAnalysis{
		IsBot:           score < 60,
		ConfidenceScore: score,
		Flags:           flags,
		Details: models.RiskDetails{
			FingerprintPresent: s.Fingerprint != nil,
			TrajectoryPoints:   trajectoryPoints,
			TotalDurationMs:    totalDuration,
			MovementEvents:     movementEvents,
		},
	}
}

// DifficultyFor maps a confidence score to a risk level and PoW difficulty
// using t.
func DifficultyFor(score int, t Thresholds) (level string, difficulty int) {
	switch {
	case score >= t.LowScore:
		return "low", t.LowDifficulty
	case score >= t.MediumScore:
		return "medium", t.MediumDifficulty
	default:
		return "high", t.HighDifficulty
	}
}

func scoreFingerprint(fp map[string]any, flags *[]string) int {
	if fp == nil {
		*flags = append(*flags, "missing_fingerprint")
		return -30
	}

	delta := 0

	userAgent, _ := fp["user_agent"].(string)
	if len(userAgent) < 20 {
		*flags = append(*flags, "suspicious_user_agent")
		delta -= 20
	}

	if !validScreenResolution(fp["screen_resolution"]) {
		*flags = append(*flags, "invalid_screen_resolution")
		delta -= 15
	}

	if truthy(fp["webdriver"]) {
		*flags = append(*flags, "webdriver_detected")
		delta -= 35
	}

	if !truthy(fp["timezone_name"]) {
		*flags = append(*flags, "missing_timezone")
		delta -= 5
	}

	if !truthy(fp["canvas_fingerprint"]) {
		*flags = append(*flags, "missing_canvas_fingerprint")
		delta -= 10
	}

	return delta
}

// validScreenResolution reports whether v parses as "WxH" with both
// positive integers.
func validScreenResolution(v any) bool {
	s, _ := v.(string)
	if s == "" {
		return false
	}
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return false
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil {
		return false
	}
	return w > 0 && h > 0
}

// truthy mirrors Python's falsy-value semantics for the loosely-typed
// fingerprint map: nil, false, "", 0, and missing keys are all falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

func scoreTrajectory(traj []models.TrajectoryPoint, flags *[]string) int {
	if len(traj) < 4 {
		*flags = append(*flags, "insufficient_trajectory_data")
		return -30
	}

	delta := 0

	var velocities []float64
	for _, p := range traj {
		if p.TimeDeltaMs > 0 {
			velocities = append(velocities, p.Velocity)
		}
	}
	if len(velocities) > 0 {
		mean, variance := meanVariance(velocities)
		_ = mean
		if variance < 0.003 {
			*flags = append(*flags, "linear_velocity_pattern")
			delta -= 20
		}
	}

	var absDeltas []float64
	for _, p := range traj {
		if p.Delta != 0 {
			absDeltas = append(absDeltas, math.Abs(p.Delta))
		}
	}
	if len(absDeltas) > 0 {
		_, variance := meanVariance(absDeltas)
		if variance < 0.2 && len(absDeltas) >= 4 {
			*flags = append(*flags, "uniform_delta_pattern")
			delta -= 15
		}
	}

	unique := make(map[int]struct{}, len(traj))
	for _, p := range traj {
		unique[int(p.Value)] = struct{}{}
	}
	if len(unique) < 4 {
		*flags = append(*flags, "low_slider_entropy")
		delta -= 15
	}

	var timeDeltas []int
	for _, p := range traj {
		if p.TimeDeltaMs > 0 {
			timeDeltas = append(timeDeltas, p.TimeDeltaMs)
		}
	}
	if len(timeDeltas) > 0 {
		pauses := 0
		for _, d := range timeDeltas {
			if d >= 120 {
				pauses++
			}
		}
		if pauses == 0 {
			*flags = append(*flags, "no_movement_pauses")
			delta -= 15
		}
	}

	return delta
}

// meanVariance returns the population mean and variance of vs.
func meanVariance(vs []float64) (mean, variance float64) {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	mean = sum / float64(len(vs))

	sq := 0.0
	for _, v := range vs {
		d := v - mean
		sq += d * d
	}
	variance = sq / float64(len(vs))
	return mean, variance
}

func scoreBehavior(b *models.BehaviorSummary, flags *[]string) int {
	if b == nil {
		*flags = append(*flags, "missing_behavior_data")
		return -25
	}

	delta := 0

	switch {
	case b.TotalDurationMs <= 0:
		*flags = append(*flags, "invalid_behavior_duration")
		delta -= 20
	case b.TotalDurationMs < 300:
		*flags = append(*flags, "suspiciously_fast")
		delta -= 25
	case b.TotalDurationMs < 700:
		*flags = append(*flags, "very_fast")
		delta -= 10
	case b.TotalDurationMs > 45000:
		*flags = append(*flags, "suspiciously_slow")
		delta -= 10
	}

	if b.MouseDownCount < 1 {
		*flags = append(*flags, "missing_mousedown")
		delta -= 10
	}

	switch {
	case b.MouseMoveCount < 3:
		*flags = append(*flags, "insufficient_mouse_movement")
		delta -= 20
	case b.MouseMoveCount < 8:
		*flags = append(*flags, "limited_mouse_movement")
		delta -= 10
	}

	if b.EventCount < 3 {
		*flags = append(*flags, "low_event_count")
		delta -= 10
	}

	return delta
}
