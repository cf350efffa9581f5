package puzzle

import (
	"math/rand"
	"sort"

	"github.com/rawblock/captcha-engine/internal/geometry"
)

// minKeyframeGap is the minimum spacing enforced between consecutive
// keyframe positions (0-100 slider scale).
const minKeyframeGap = 8

// keyframeRetries caps the random-resample attempts before falling back to
// an evenly-spaced layout.
const keyframeRetries = 200

// GenerateKeyframePositions returns 5-7 sorted slider positions in [0,100]
// with 0 and 100 always included and every consecutive pair at least
// minKeyframeGap apart.
func GenerateKeyframePositions(rng *rand.Rand) []int {
	numInterior := 3 + rng.Intn(3) // 3..5

	for attempt := 0; attempt < keyframeRetries; attempt++ {
		interior := sampleDistinct(rng, 1, 99, numInterior)
		sort.Ints(interior)
		positions := append(append([]int{0}, interior...), 100)
		if gapsSatisfied(positions) {
			return positions
		}
	}

	step := 100 / (numInterior + 1)
	positions := make([]int, 0, numInterior+2)
	positions = append(positions, 0)
	for i := 1; i <= numInterior; i++ {
		positions = append(positions, step*i)
	}
	positions = append(positions, 100)
	return positions
}

func gapsSatisfied(positions []int) bool {
	for i := 1; i < len(positions); i++ {
		if positions[i]-positions[i-1] < minKeyframeGap {
			return false
		}
	}
	return true
}

// sampleDistinct draws n distinct integers from [lo, hi] without
// replacement.
func sampleDistinct(rng *rand.Rand, lo, hi, n int) []int {
	pool := make([]int, hi-lo+1)
	for i := range pool {
		pool[i] = lo + i
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return append([]int(nil), pool[:n]...)
}

// GridPositions returns a random permutation of the GridSize×GridSize cell
// top-left corners, used to scramble pieces at non-solved keyframes.
func GridPositions(rng *rand.Rand) [][2]int {
	slots := make([][2]int, 0, geometry.GridSize*geometry.GridSize)
	for row := 0; row < geometry.GridSize; row++ {
		for col := 0; col < geometry.GridSize; col++ {
			slots = append(slots, [2]int{col * geometry.PieceSize, row * geometry.PieceSize})
		}
	}
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	return slots
}

// ChooseSolvedPosition picks a keyframe position to hold the solved
// arrangement, excluding 0 (the slider's resting value) so the puzzle never
// appears pre-assembled on load.
func ChooseSolvedPosition(rng *rand.Rand, positions []int) int {
	nonStart := make([]int, 0, len(positions))
	for _, p := range positions {
		if p != 0 {
			nonStart = append(nonStart, p)
		}
	}
	return nonStart[rng.Intn(len(nonStart))]
}
