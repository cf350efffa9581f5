package puzzle

import (
	"image"
	"math/rand"
	"testing"
)

func TestGenerate_ProducesNinePiecesAndMatchingKeyframes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, resp, challenge, err := Generate("", rng)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(resp.Pieces) != 9 {
		t.Fatalf("expected 9 pieces, got %d", len(resp.Pieces))
	}

	if len(resp.Keyframes) < 5 || len(resp.Keyframes) > 7 {
		t.Errorf("expected 5-7 keyframes, got %d", len(resp.Keyframes))
	}

	for kf, placements := range resp.Keyframes {
		if len(placements) != 9 {
			t.Errorf("keyframe %s: expected 9 placements, got %d", kf, len(placements))
		}
	}

	if challenge.SolvedValue == 0 {
		t.Errorf("solved keyframe must never be 0")
	}

	if _, ok := resp.Keyframes["0"]; !ok {
		t.Errorf("expected a keyframe at position 0")
	}
	if _, ok := resp.Keyframes["100"]; !ok {
		t.Errorf("expected a keyframe at position 100")
	}
}

func TestGenerate_PieceIDsAreUniqueAndReferencedBySolvedKeyframe(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	_, resp, challenge, err := Generate("", rng)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	solvedKey := itoa(challenge.SolvedValue)
	placements, ok := resp.Keyframes[solvedKey]
	if !ok {
		t.Fatalf("expected a keyframe entry for solved value %d", challenge.SolvedValue)
	}

	seen := make(map[string]bool, len(placements))
	for _, p := range placements {
		if seen[p.PieceID] {
			t.Errorf("duplicate piece id %s in solved keyframe", p.PieceID)
		}
		seen[p.PieceID] = true
		if _, ok := resp.Pieces[p.PieceID]; !ok {
			t.Errorf("placement references unknown piece id %s", p.PieceID)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func TestGenerateKeyframePositions_AlwaysIncludesBoundsAndGap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		positions := GenerateKeyframePositions(rng)
		if positions[0] != 0 {
			t.Fatalf("expected first position 0, got %d", positions[0])
		}
		if positions[len(positions)-1] != 100 {
			t.Fatalf("expected last position 100, got %d", positions[len(positions)-1])
		}
		if !gapsSatisfied(positions) {
			t.Errorf("positions violate minimum gap: %v", positions)
		}
	}
}

func TestSlice_PiecesCoverDistinctBoundingBoxes(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	canvas, err := LoadAndNormalize("")
	if err != nil {
		t.Fatalf("LoadAndNormalize: %v", err)
	}
	pieces := Slice(canvas, rng)
	if len(pieces) != 9 {
		t.Fatalf("expected 9 pieces, got %d", len(pieces))
	}
	seen := make(map[image.Rectangle]bool, len(pieces))
	for _, p := range pieces {
		if p.Image.Bounds().Dx() <= 0 || p.Image.Bounds().Dy() <= 0 {
			t.Errorf("piece %s has empty bounds", p.ID)
		}
		box := p.Image.Bounds().Add(image.Pt(p.OffsetX, p.OffsetY))
		if seen[box] {
			t.Errorf("piece %s shares bounding box %v with another piece", p.ID, box)
		}
		seen[box] = true
	}
}
