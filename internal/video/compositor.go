package video

import (
	"image"
	"image/color"
)

// Render produces one output frame for challenge: it darkens the patch at
// the true (receptacle) location, then blends the original patch content
// back in at the current overlay position, both through the feathered
// mask so neither site shows a hard seam.
func Render(frame *image.RGBA, c *Challenge) *image.RGBA {
	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	out := image.NewRGBA(bounds)
	copy(out.Pix, frame.Pix)

	patch := extract(frame, c.TrueX, c.TrueY, c.ROISize)
	darkened := darken(blurRegion(patch, c.ROISize, c.ROISize, 51), 0.6)
	blendInto(out, c.TrueX, c.TrueY, c.ROISize, darkened, c.FeatherMask)

	ox, oy := c.OverlayPosition(w, h)
	blendInto(out, ox, oy, c.ROISize, patch, c.FeatherMask)

	return out
}

// extract copies an roiSize×roiSize RGBA region starting at (x0, y0),
// clamped to the source bounds.
func extract(src *image.RGBA, x0, y0, roiSize int) *image.RGBA {
	region := image.NewRGBA(image.Rect(0, 0, roiSize, roiSize))
	for y := 0; y < roiSize; y++ {
		for x := 0; x < roiSize; x++ {
			region.Set(x, y, src.At(x0+x, y0+y))
		}
	}
	return region
}

// blurRegion applies a Gaussian blur to each RGB channel of an RGBA region.
func blurRegion(region *image.RGBA, w, h, kernelSize int) *image.RGBA {
	r := make([]float64, w*h)
	g := make([]float64, w*h)
	b := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := region.RGBAAt(x, y)
			r[y*w+x] = float64(c.R)
			g[y*w+x] = float64(c.G)
			b[y*w+x] = float64(c.B)
		}
	}

	r = gaussianBlur(r, w, h, kernelSize)
	g = gaussianBlur(g, w, h, kernelSize)
	b = gaussianBlur(b, w, h, kernelSize)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(x, y, colorAt(r, g, b, w, x, y))
		}
	}
	return out
}

func colorAt(r, g, b []float64, w, x, y int) color.RGBA64 {
	i := y*w + x
	return color.RGBA64{
		R: clampUint16(r[i]),
		G: clampUint16(g[i]),
		B: clampUint16(b[i]),
		A: 0xffff,
	}
}

func clampUint16(v float64) uint16 {
	v8 := v
	if v8 < 0 {
		v8 = 0
	}
	if v8 > 255 {
		v8 = 255
	}
	return uint16(v8) * 0x101
}

// darken scales every RGB channel of region by factor, leaving alpha.
func darken(region *image.RGBA, factor float64) *image.RGBA {
	b := region.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := region.RGBAAt(x, y)
			out.SetRGBA(x, y, rgbaScale(c, factor))
		}
	}
	return out
}

func rgbaScale(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: scaleChannel(c.R, factor),
		G: scaleChannel(c.G, factor),
		B: scaleChannel(c.B, factor),
		A: c.A,
	}
}

func scaleChannel(v uint8, factor float64) uint8 {
	scaled := float64(v) * factor
	if scaled > 255 {
		scaled = 255
	}
	if scaled < 0 {
		scaled = 0
	}
	return uint8(scaled)
}

// blendInto alpha-blends src onto dst at (x0, y0) using mask's per-pixel
// weight, clamped to dst's bounds.
func blendInto(dst *image.RGBA, x0, y0, roiSize int, src *image.RGBA, mask *FeatherMask) {
	bounds := dst.Bounds()
	for y := 0; y < roiSize; y++ {
		dy := y0 + y
		if dy < bounds.Min.Y || dy >= bounds.Max.Y {
			continue
		}
		for x := 0; x < roiSize; x++ {
			dx := x0 + x
			if dx < bounds.Min.X || dx >= bounds.Max.X {
				continue
			}
			weight := mask.At(x, y)
			if weight <= 0 {
				continue
			}
			bg := dst.RGBAAt(dx, dy)
			fg := src.RGBAAt(x, y)
			dst.SetRGBA(dx, dy, lerpRGBA(bg, fg, weight))
		}
	}
}

func lerpRGBA(bg, fg color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: lerpChannel(bg.R, fg.R, t),
		G: lerpChannel(bg.G, fg.G, t),
		B: lerpChannel(bg.B, fg.B, t),
		A: 255,
	}
}

func lerpChannel(a, b uint8, t float64) uint8 {
	v := float64(a)*(1-t) + float64(b)*t
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
