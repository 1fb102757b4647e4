package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const radToDeg = 180 / math.Pi

// Line is a fitted y = Slope·x + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
	// Angle is atan(Slope) in degrees, in (-90, 90).
	Angle float64
}

// Fit fits a straight line to every edge and derives its endpoints.
//
// Edges whose fit fails are dropped and reported as *FittingError. When that
// happens the survivors are renumbered so IDs stay contiguous.
func Fit(in EdgeSet) (EdgeSet, []error) {
	out := make([]Edge, 0, len(in.edges))
	var errs []error

	for _, e := range in.edges {
		line, err := FitLine(e.Points)
		if err != nil {
			errs = append(errs, &FittingError{Index: e.SourceIndex, Reason: err.Error()})
			continue
		}
		e.Slope = line.Slope
		e.Intercept = line.Intercept
		e.SlopeAngle = line.Angle
		e.Start, e.End = endpoints(line, e.Box)
		e.Length = math.Hypot(e.End.X-e.Start.X, e.End.Y-e.Start.Y)
		if e.Length > 0 {
			e.Thickness = e.Area / e.Length
		}
		out = append(out, e)
	}

	if len(errs) > 0 {
		renumber(out)
	}
	return EdgeSet{edges: out}, errs
}

// FitLine fits y = m·x + b by ordinary least squares with vertical residuals
// over all points except the closing vertex.
//
// This is not a total least squares fit: near-vertical streaks fit poorly.
func FitLine(points []Point) (Line, error) {
	if len(points) < 3 {
		return Line{}, degenerate("fewer than two points")
	}
	open := points[:len(points)-1]

	x := make([]float64, len(open))
	y := make([]float64, len(open))
	for i, p := range open {
		x[i] = p.X
		y[i] = p.Y
	}

	if stat.PopVariance(x, nil) == 0 {
		return Line{}, degenerate("zero variance in x")
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	if !finite(slope) || !finite(intercept) {
		return Line{}, degenerate("non-finite coefficients")
	}

	return Line{
		Slope:     slope,
		Intercept: intercept,
		Angle:     math.Atan(slope) * radToDeg,
	}, nil
}

// endpoints clips the fitted line to the bounding box. Shallow lines are
// evaluated at the x extremes, steep ones solved at the y extremes.
func endpoints(l Line, box BoundingBox) (Point, Point) {
	if math.Abs(l.Slope) <= 1 {
		return Point{X: box.XMin, Y: l.Slope*box.XMin + l.Intercept},
			Point{X: box.XMax, Y: l.Slope*box.XMax + l.Intercept}
	}
	return Point{X: (box.YMin - l.Intercept) / l.Slope, Y: box.YMin},
		Point{X: (box.YMax - l.Intercept) / l.Slope, Y: box.YMax}
}
