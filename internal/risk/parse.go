package risk

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rawblock/captcha-engine/pkg/models"
)

// maxTrajectoryPoints bounds retained trajectory samples (spec §3).
const maxTrajectoryPoints = 600

// ParseTrajectory decodes a client-submitted trajectory payload of unknown
// shape, looks at only its first 600 entries, and keeps the well-formed
// points among them, silently dropping the rest (non-objects and points
// with uncoercible fields) — matching fingerprint.py's parse_trajectory
// loop, which wraps each point's field coercion in its own
// try/except: continue rather than failing the whole request over one bad
// sample.
func ParseTrajectory(raw json.RawMessage) []models.TrajectoryPoint {
	var entries []any
	if len(raw) == 0 || json.Unmarshal(raw, &entries) != nil {
		return nil
	}
	if len(entries) > maxTrajectoryPoints {
		entries = entries[:maxTrajectoryPoints]
	}

	points := make([]models.TrajectoryPoint, 0, len(entries))
	for _, entry := range entries {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		timestamp, ok1 := strictNumberField(item, "timestamp")
		value, ok2 := strictNumberField(item, "value")
		delta, ok3 := strictNumberField(item, "delta")
		velocity, ok4 := strictNumberField(item, "velocity")
		timeDelta, ok5 := strictNumberField(item, "time_delta_ms")
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			continue
		}
		if timeDelta < 0 {
			timeDelta = 0
		}
		points = append(points, models.TrajectoryPoint{
			Timestamp:   int64(timestamp),
			Value:       value,
			Delta:       delta,
			Velocity:    velocity,
			TimeDeltaMs: int(timeDelta),
		})
	}
	return points
}

// ParseBehavior decodes a client-submitted behaviour summary of unknown
// shape, matching fingerprint.py's parse_behavior: a non-object payload or
// any field that won't coerce to a number drops the whole summary (returned
// as nil, scored the same as "missing behaviour data"), rather than failing
// the request that carries it.
func ParseBehavior(raw json.RawMessage) *models.BehaviorSummary {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil {
		return nil
	}

	startTime, ok1 := lenientNumberField(m, "start_time")
	endTime, ok2 := lenientNumberField(m, "end_time")
	totalDuration, ok3 := lenientNumberField(m, "total_duration_ms")
	eventCount, ok4 := lenientNumberField(m, "event_count")
	mouseDown, ok5 := lenientNumberField(m, "mouse_down_count")
	mouseMove, ok6 := lenientNumberField(m, "mouse_move_count")
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return nil
	}

	var events []map[string]any
	if list, ok := m["events"].([]any); ok {
		events = make([]map[string]any, 0, len(list))
		for _, item := range list {
			if em, ok := item.(map[string]any); ok {
				events = append(events, em)
			}
		}
	}

	return &models.BehaviorSummary{
		StartTime:       int64(startTime),
		EndTime:         int64(endTime),
		TotalDurationMs: maxInt(0, int(totalDuration)),
		EventCount:      maxInt(0, int(eventCount)),
		MouseDownCount:  maxInt(0, int(mouseDown)),
		MouseMoveCount:  maxInt(0, int(mouseMove)),
		Events:          events,
	}
}

// strictNumberField mirrors `int(point.get(key, 0))`/`float(...)`: a missing
// key defaults to 0, but a key present with an explicit null or
// non-numeric value raises in Python and is reported here as !ok so the
// caller drops the whole point.
func strictNumberField(m map[string]any, key string) (float64, bool) {
	v, present := m[key]
	if !present {
		return 0, true
	}
	if v == nil {
		return 0, false
	}
	return numberFromAny(v)
}

// lenientNumberField mirrors `int(behavior.get(key, 0) or 0)`: both a
// missing key and an explicit null fall through the `or 0` guard to 0.
func lenientNumberField(m map[string]any, key string) (float64, bool) {
	v, present := m[key]
	if !present || v == nil {
		return 0, true
	}
	return numberFromAny(v)
}

func numberFromAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
