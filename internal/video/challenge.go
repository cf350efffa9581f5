package video

import (
	"math"
	"math/rand"
)

// Challenge is the server-side record of a video-mode captcha session: the
// receptacle/target ROI geometry, the secret slider target, and the
// feather mask blended at both the cut-out and floating-overlay sites.
type Challenge struct {
	ROISize int

	TrueX, TrueY   int // where the patch is cut from (and must return to)
	StartX, StartY int // the overlay's resting position at slider=0

	SecretTarget  float64 // slider fraction in [0,1] at which the overlay reaches TrueX/TrueY
	CurrentSlider float64 // 0..1000, updated by /video-captcha-slider

	FeatherMask *FeatherMask
}

// NewChallenge derives ROI geometry and a feathered blend mask for a clip of
// the given dimensions, matching the reference generator's proportions.
func NewChallenge(rng *rand.Rand, width, height int) *Challenge {
	roiSize := int(math.Min(float64(width), float64(height)) * 0.45)
	if roiSize < 24 {
		roiSize = 24
	}
	if roiSize > width {
		roiSize = width
	}
	if roiSize > height {
		roiSize = height
	}

	return &Challenge{
		ROISize:      roiSize,
		TrueX:        rng.Intn(width - roiSize + 1),
		TrueY:        rng.Intn(height - roiSize + 1),
		StartX:       rng.Intn(width - roiSize + 1),
		StartY:       rng.Intn(height - roiSize + 1),
		SecretTarget: 0.4 + rng.Float64()*0.4, // [0.4, 0.8)
		FeatherMask:  NewFeatherMask(roiSize),
	}
}

// bouncePos reflects value into [minimum, maximum] like a bouncing ball,
// used so the floating overlay never drifts off-frame even when the
// sinusoidal oscillation pushes it past an edge.
func bouncePos(value float64, minimum, maximum int) int {
	span := maximum - minimum
	if span <= 0 {
		return minimum
	}
	normalized := math.Mod(value-float64(minimum), float64(2*span))
	if normalized < 0 {
		normalized += float64(2 * span)
	}
	if normalized > float64(span) {
		normalized = float64(2*span) - normalized
	}
	return minimum + int(normalized)
}

// OverlayPosition computes the floating overlay's top-left corner for the
// current slider value: it eases from (StartX, StartY) toward (TrueX, TrueY)
// as the slider approaches SecretTarget, with a sinusoidal wobble
// superimposed so the target can't be found by motion alone.
func (c *Challenge) OverlayPosition(frameWidth, frameHeight int) (x, y int) {
	t := 0.0
	if c.SecretTarget > 0 {
		t = (c.CurrentSlider / 1000.0) / c.SecretTarget
	}

	osc := math.Sin(t * 2 * math.Pi)
	ampX := float64(frameWidth) * 0.15
	ampY := float64(frameHeight) * 0.15

	rawX := float64(c.StartX) + float64(c.TrueX-c.StartX)*t + ampX*osc
	rawY := float64(c.StartY) + float64(c.TrueY-c.StartY)*t + ampY*osc

	x = bouncePos(rawX, 0, frameWidth-c.ROISize)
	y = bouncePos(rawY, 0, frameHeight-c.ROISize)
	return x, y
}

// Solved reports whether the current slider position has parked the overlay
// at its true home square (within tolerance pixels on each axis).
// Verification does not call it: internal/verify compares the submitted
// slider fraction against SecretTarget instead.
func (c *Challenge) Solved(frameWidth, frameHeight int, tolerance int) bool {
	x, y := c.OverlayPosition(frameWidth, frameHeight)
	dx := x - c.TrueX
	dy := y - c.TrueY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx <= tolerance && dy <= tolerance
}
