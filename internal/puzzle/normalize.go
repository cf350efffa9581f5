// Package puzzle builds the jigsaw image-mode challenge: it normalises a
// source photo onto the 300×300 canvas, slices it along the Bézier piece
// polygons from internal/geometry, and assembles the keyframe payload the
// client animates the slider against.
package puzzle

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/rawblock/captcha-engine/internal/geometry"
)

// CanvasSize is the fixed output side length pieces are cut from.
const CanvasSize = geometry.CanvasSize

// LoadAndNormalize opens the image at path, crops it to its largest centred
// square, and resamples it to CanvasSize×CanvasSize using a high-quality
// Catmull-Rom filter. If path is empty or cannot be decoded, it falls back
// to a generated placeholder so the service keeps working without sample
// photos on disk.
func LoadAndNormalize(path string) (image.Image, error) {
	if path == "" {
		return placeholderImage(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return placeholderImage(), nil
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return placeholderImage(), nil
	}

	return normalize(src), nil
}

// normalize crops src to its largest centred square and resamples it to
// CanvasSize×CanvasSize.
func normalize(src image.Image) image.Image {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	side := width
	if height < side {
		side = height
	}

	left := b.Min.X + (width-side)/2
	top := b.Min.Y + (height-side)/2
	cropRect := image.Rect(left, top, left+side, top+side)

	cropped := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(cropped, cropped.Bounds(), src, cropRect.Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)
	return dst
}

// placeholderImage renders the diagonal-gradient fallback image used when no
// sample photo is available, matching the reference generator's quadrant
// gradient.
func placeholderImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	for y := 0; y < CanvasSize; y++ {
		for x := 0; x < CanvasSize; x++ {
			r := uint8(255 * x / CanvasSize)
			g := uint8(255 * y / CanvasSize)
			img.Set(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}
	return img
}
