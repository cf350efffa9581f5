// Package geometry generates the Bézier-curve jigsaw edges and piece
// polygons used to cut a 300×300 puzzle canvas into a 3×3 grid of
// interlocking pieces.
package geometry

import "math"

// Point is a 2D coordinate in canvas space.
type Point struct {
	X, Y float64
}

const (
	// GridSize is the number of rows/columns the canvas is divided into.
	GridSize = 3
	// CanvasSize is the side length of the square puzzle canvas.
	CanvasSize = 300
	// PieceSize is the side length of a single (unperturbed) grid cell.
	PieceSize = CanvasSize / GridSize
)

// cubicBezier evaluates a cubic Bézier curve defined by p0..p3 at 31
// points (t = 0/30 … 30/30), matching the reference sampling density.
func cubicBezier(p0, p1, p2, p3 Point) []Point {
	const steps = 30
	pts := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		u := 1 - t
		x := u*u*u*p0.X + 3*u*u*t*p1.X + 3*u*t*t*p2.X + t*t*t*p3.X
		y := u*u*u*p0.Y + 3*u*u*t*p1.Y + 3*u*t*t*p2.Y + t*t*t*p3.Y
		pts = append(pts, Point{X: x, Y: y})
	}
	return pts
}

// generateEdgePoints produces a classic jigsaw edge between start and end.
// direction is +1 for an outward-protruding tab, -1 for an inward socket.
// Local (u,v) coordinates are tangent/normal proportions of the edge,
// mapped into global canvas space via local-to-global.
func generateEdgePoints(start, end Point, direction int) []Point {
	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)

	if length == 0 {
		return []Point{start, end}
	}

	tx, ty := dx/length, dy/length
	nx := -ty * float64(direction)
	ny := tx * float64(direction)

	local := func(u, v float64) Point {
		return Point{
			X: start.X + u*dx + v*length*nx,
			Y: start.Y + u*dy + v*length*ny,
		}
	}

	pts := make([]Point, 0, 128)

	// Segment 1: straight from u=0 to u=0.38.
	pts = append(pts, local(0.0, 0.0))
	pts = append(pts, local(0.38, 0.0))

	// Segment 2: pinch inward to form the neck, then flare out.
	pts = append(pts, cubicBezier(
		local(0.38, 0.0),
		local(0.43, 0.06),
		local(0.32, 0.10),
		local(0.32, 0.16),
	)[1:]...)

	// Segment 3: round top of the bulb.
	pts = append(pts, cubicBezier(
		local(0.32, 0.16),
		local(0.32, 0.28),
		local(0.68, 0.28),
		local(0.68, 0.16),
	)[1:]...)

	// Segment 4: flare right, then pinch back to the neck.
	pts = append(pts, cubicBezier(
		local(0.68, 0.16),
		local(0.68, 0.10),
		local(0.57, 0.06),
		local(0.62, 0.0),
	)[1:]...)

	// Segment 5: straight back to the base edge.
	pts = append(pts, local(1.0, 0.0))

	return dedupe(pts)
}

// dedupe drops consecutive duplicate points left over from segment joins.
func dedupe(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for i, p := range pts {
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
