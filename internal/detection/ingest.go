package detection

import (
	"fmt"
	"math"
)

// Ingest validates raw contours and keeps the closed ones with more than
// minPoints points.
//
// Open or short contours are routine rejects and are only counted. A contour
// with malformed point data produces a *MalformedContourError in errs and is
// skipped. The returned edges carry their 1-based input position as both
// provisional ID and SourceIndex.
func Ingest(contours []Contour, minPoints int) (edges EdgeSet, rejected int, errs []error) {
	out := make([]Edge, 0, len(contours))

	for i, c := range contours {
		index := i + 1

		points, err := toPoints(index, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if len(points) <= minPoints || !closed(points) {
			rejected++
			continue
		}

		out = append(out, Edge{
			ID:           index,
			SourceIndex:  index,
			Points:       points,
			Connectivity: NoConnection,
		})
	}

	return EdgeSet{edges: out}, rejected, errs
}

// closed reports whether the polyline ends where it starts, bit for bit.
func closed(points []Point) bool {
	if len(points) == 0 {
		return false
	}
	first, last := points[0], points[len(points)-1]
	return first.X == last.X && first.Y == last.Y
}

// toPoints converts (row, column) pairs to points with X = column, Y = row.
func toPoints(index int, c Contour) ([]Point, error) {
	points := make([]Point, len(c))
	for j, pair := range c {
		if len(pair) != 2 {
			return nil, &MalformedContourError{
				Index:  index,
				Point:  j,
				Reason: fmt.Sprintf("expected (row, column) pair, got %d values", len(pair)),
			}
		}
		row, col := pair[0], pair[1]
		if !finite(row) || !finite(col) {
			return nil, &MalformedContourError{Index: index, Point: j, Reason: "non-finite coordinate"}
		}
		points[j] = Point{X: col, Y: row}
	}
	return points, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
