package puzzle

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/rawblock/captcha-engine/internal/geometry"
)

// Piece is one cut-out jigsaw piece: its RGBA image (masked to the polygon,
// cropped to its bounding box), its solved-state offset in the 300×300
// canvas, and an opaque ID the client references for the lifetime of the
// challenge.
type Piece struct {
	ID      string
	Image   *image.RGBA
	OffsetX int
	OffsetY int
}

// Slice cuts canvas into GridSize×GridSize interlocking jigsaw pieces using
// a freshly generated edge grid, then shuffles their order so iteration
// position leaks nothing about solved placement.
func Slice(canvas image.Image, rng *rand.Rand) []Piece {
	edges := geometry.GenerateEdgeGrid(rng)

	pieces := make([]Piece, 0, geometry.GridSize*geometry.GridSize)
	for row := 0; row < geometry.GridSize; row++ {
		for col := 0; col < geometry.GridSize; col++ {
			poly := geometry.BuildPiecePolygon(row, col, edges)
			pieces = append(pieces, cutPiece(canvas, poly))
		}
	}

	rng.Shuffle(len(pieces), func(i, j int) { pieces[i], pieces[j] = pieces[j], pieces[i] })
	return pieces
}

func cutPiece(canvas image.Image, poly []geometry.Point) Piece {
	bx0, by0, bx1, by1 := boundingBox(poly)

	bw, bh := bx1-bx0, by1-by0
	local := make([]geometry.Point, len(poly))
	for i, p := range poly {
		local[i] = geometry.Point{X: p.X - float64(bx0), Y: p.Y - float64(by0)}
	}

	mask := rasterizeMask(local, bw, bh)
	outlinePolygon(mask, local)

	region := image.NewRGBA(image.Rect(0, 0, bw, bh))
	draw.Draw(region, region.Bounds(), canvas, image.Point{X: bx0, Y: by0}, draw.Src)
	applyAlphaMask(region, mask)

	return Piece{
		ID:      uuid.New().String(),
		Image:   region,
		OffsetX: bx0,
		OffsetY: by0,
	}
}

// boundingBox computes the integer bounding box of poly, clamped to the
// canvas, with a 1px outward pad on the high edges matching the reference
// generator's ceil(+1) so hairline outlines aren't clipped.
func boundingBox(poly []geometry.Point) (x0, y0, x1, y1 int) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	x0 = int(math.Floor(minX))
	y0 = int(math.Floor(minY))
	x1 = int(math.Ceil(maxX)) + 1
	y1 = int(math.Ceil(maxY)) + 1

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > geometry.CanvasSize {
		x1 = geometry.CanvasSize
	}
	if y1 > geometry.CanvasSize {
		y1 = geometry.CanvasSize
	}
	return x0, y0, x1, y1
}

// rasterizeMask fills an 8-bit alpha mask for the polygon using a standard
// scanline even-odd fill.
func rasterizeMask(poly []geometry.Point, w, h int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := float64(y) + 0.5
		xs := scanlineIntersections(poly, fy)
		for i := 0; i+1 < len(xs); i += 2 {
			from := int(math.Ceil(xs[i] - 0.5))
			to := int(math.Floor(xs[i+1] - 0.5))
			if from < 0 {
				from = 0
			}
			if to > w-1 {
				to = w - 1
			}
			for x := from; x <= to; x++ {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return mask
}

func scanlineIntersections(poly []geometry.Point, y float64) []float64 {
	var xs []float64
	n := len(poly)
	for i := 0; i < n; i++ {
		a := poly[i]
		b := poly[(i+1)%n]
		if a.Y == b.Y {
			continue
		}
		if (y >= a.Y && y < b.Y) || (y >= b.Y && y < a.Y) {
			t := (y - a.Y) / (b.Y - a.Y)
			xs = append(xs, a.X+t*(b.X-a.X))
		}
	}
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
	return xs
}

// outlinePolygon draws a 1px hairline along poly at alpha 0, leaving a
// faint transparent gap between assembled pieces so the jigsaw cuts remain
// visible, matching the reference generator.
func outlinePolygon(mask *image.Gray, poly []geometry.Point) {
	n := len(poly)
	for i := 0; i < n; i++ {
		a := poly[i]
		b := poly[(i+1)%n]
		drawLine(mask, a, b)
	}
}

func drawLine(mask *image.Gray, a, b geometry.Point) {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	bounds := mask.Bounds()
	for {
		if x0 >= bounds.Min.X && x0 < bounds.Max.X && y0 >= bounds.Min.Y && y0 < bounds.Max.Y {
			mask.SetGray(x0, y0, color.Gray{Y: 0})
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func applyAlphaMask(region *image.RGBA, mask *image.Gray) {
	b := region.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := mask.GrayAt(x, y).Y
			c := region.RGBAAt(x, y)
			c.A = a
			region.SetRGBA(x, y, c)
		}
	}
}

// EncodePNGBase64 returns piece img encoded as a base64 PNG string, ready
// to embed in a JSON payload.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
