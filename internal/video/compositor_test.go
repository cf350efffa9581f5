package video

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestRender_PreservesFrameDimensions(t *testing.T) {
	frame := solidFrame(200, 150, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	rng := rand.New(rand.NewSource(1))
	c := NewChallenge(rng, 200, 150)

	out := Render(frame, c)
	if out.Bounds() != frame.Bounds() {
		t.Fatalf("expected output bounds %v, got %v", frame.Bounds(), out.Bounds())
	}
}

func TestFeatherMask_CentreOpaqueEdgeFaded(t *testing.T) {
	m := NewFeatherMask(40)
	centre := m.At(20, 20)
	corner := m.At(0, 0)
	if centre <= corner {
		t.Errorf("expected centre weight (%f) to exceed corner weight (%f)", centre, corner)
	}
	if centre < 0.5 {
		t.Errorf("expected centre to be mostly opaque, got %f", centre)
	}
}
