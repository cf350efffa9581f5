package geometry

import (
	"math/rand"
	"testing"
)

func TestBuildPiecePolygon_BoundingBoxesWithinCanvas(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	edges := GenerateEdgeGrid(rng)

	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			poly := BuildPiecePolygon(row, col, edges)
			for _, p := range poly {
				if p.X < -1 || p.X > CanvasSize+1 || p.Y < -1 || p.Y > CanvasSize+1 {
					t.Errorf("piece (%d,%d) point %v out of canvas bounds", row, col, p)
				}
			}
		}
	}
}

func TestBuildPiecePolygon_AdjacentPiecesShareEdge(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	edges := GenerateEdgeGrid(rng)

	// Piece (0,0)'s right edge must equal piece (0,1)'s left edge, reversed.
	right := edges.vertical[edgeKey{0, 1}]
	left := reversed(right)

	polyA := BuildPiecePolygon(0, 0, edges)
	polyB := BuildPiecePolygon(0, 1, edges)

	if !containsSubsequence(polyA, right) {
		t.Errorf("piece (0,0) does not contain its right edge verbatim")
	}
	if !containsSubsequence(polyB, left) {
		t.Errorf("piece (0,1) does not contain the reversed shared edge")
	}
}

func containsSubsequence(poly, sub []Point) bool {
	if len(sub) == 0 || len(sub) > len(poly) {
		return false
	}
	for i := 0; i+len(sub) <= len(poly); i++ {
		match := true
		for j := range sub {
			if poly[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestGenerateEdgePoints_DegenerateZeroLength(t *testing.T) {
	pts := generateEdgePoints(Point{X: 5, Y: 5}, Point{X: 5, Y: 5}, 1)
	if len(pts) != 2 {
		t.Errorf("expected 2 points for a zero-length edge, got %d", len(pts))
	}
}
