package video

import (
	"encoding/json"
	"math"
)

// FeatherMask is a per-pixel alpha weight in [0,1] used to blend a patch
// into its surroundings without a hard seam. It covers an roiSize×roiSize
// square.
type FeatherMask struct {
	size    int
	weights []float64 // row-major, size*size
}

// NewFeatherMask builds a mask that is fully opaque in the centre (inset by
// 15% padding on each side) and fades to transparent at the border via a
// Gaussian blur of that hard-edged square, mirroring the reference
// generator's cv2.GaussianBlur(mask, (31,31), 0) step.
func NewFeatherMask(size int) *FeatherMask {
	pad := int(0.15 * float64(size)) // 15% padding margin, minimum 1
	if pad < 1 {
		pad = 1
	}

	flat := make([]float64, size*size)
	for y := pad; y < size-pad; y++ {
		for x := pad; x < size-pad; x++ {
			flat[y*size+x] = 1.0
		}
	}

	blurred := gaussianBlur(flat, size, size, 31)
	return &FeatherMask{size: size, weights: blurred}
}

// featherMaskJSON is FeatherMask's wire form — its fields are unexported
// since nothing outside the package should construct one by hand, but a
// durable session store (internal/db.PostgresStore) needs a JSON
// round-trip for Challenge values that embed one.
type featherMaskJSON struct {
	Size    int       `json:"size"`
	Weights []float64 `json:"weights"`
}

func (m *FeatherMask) MarshalJSON() ([]byte, error) {
	return json.Marshal(featherMaskJSON{Size: m.size, Weights: m.weights})
}

func (m *FeatherMask) UnmarshalJSON(data []byte) error {
	var w featherMaskJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.size = w.Size
	m.weights = w.Weights
	return nil
}

// At returns the blend weight at (x, y), 0 outside the mask bounds.
func (m *FeatherMask) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= m.size || y >= m.size {
		return 0
	}
	return m.weights[y*m.size+x]
}

// gaussianBlur applies a separable Gaussian blur of the given odd kernel
// size to a row-major w×h grid of scalar values, using reflected edge
// handling.
func gaussianBlur(src []float64, w, h, kernelSize int) []float64 {
	kernel := gaussianKernel(kernelSize)
	half := kernelSize / 2

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k := -half; k <= half; k++ {
				sx := reflect(x+k, w)
				sum += src[y*w+sx] * kernel[k+half]
			}
			tmp[y*w+x] = sum
		}
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k := -half; k <= half; k++ {
				sy := reflect(y+k, h)
				sum += tmp[sy*w+x] * kernel[k+half]
			}
			out[y*w+x] = sum
		}
	}
	return out
}

func gaussianKernel(size int) []float64 {
	sigma := float64(size) / 6.0
	if sigma <= 0 {
		sigma = 1
	}
	half := size / 2
	kernel := make([]float64, size)
	sum := 0.0
	for i := -half; i <= half; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+half] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}
