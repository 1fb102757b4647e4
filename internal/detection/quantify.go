package detection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// degenerateAreaRatio bounds |A|/perimeter² below which a polygon counts as
// having no area. Collinear input rarely sums to exactly zero in floating
// point.
const degenerateAreaRatio = 1e-12

// Shape holds the descriptors computed for one closed polyline.
type Shape struct {
	Area            float64
	SignedArea      float64
	Perimeter       float64
	XCenter         float64
	YCenter         float64
	ShapeFactor     float64
	RadiusDeviation float64
	Box             BoundingBox
}

// Quantify computes shape descriptors for every edge of in.
//
// Edges whose descriptors are undefined are left out of the result and
// reported as *DegenerateShapeError. Quantify is pure: the same input always
// yields bit-identical output.
func Quantify(in EdgeSet) (EdgeSet, []error) {
	out := make([]Edge, 0, len(in.edges))
	var errs []error

	for _, e := range in.edges {
		shape, err := MeasureShape(e.Points)
		if err != nil {
			errs = append(errs, &DegenerateShapeError{Index: e.SourceIndex, Reason: err.Error()})
			continue
		}
		e.Area = shape.Area
		e.Perimeter = shape.Perimeter
		e.XCenter = shape.XCenter
		e.YCenter = shape.YCenter
		e.ShapeFactor = shape.ShapeFactor
		e.RadiusDeviation = shape.RadiusDeviation
		e.Box = shape.Box
		out = append(out, e)
	}

	return EdgeSet{edges: out}, errs
}

// degenerate is the reason carried by DegenerateShapeError.
type degenerate string

func (d degenerate) Error() string { return string(d) }

// MeasureShape computes the descriptors of a closed polyline
// (points[0] == points[len-1]).
//
// # Formulas
//
//	A        = ½ Σ (x_i·y_{i+1} − x_{i+1}·y_i)          (shoelace, signed)
//	x_c      = 1/(6A) Σ (x_i + x_{i+1})(x_i·y_{i+1} − x_{i+1}·y_i)
//	y_c      = 1/(6A) Σ (y_i + y_{i+1})(x_i·y_{i+1} − x_{i+1}·y_i)
//	P        = Σ |p_{i+1} − p_i|
//	factor   = 4π·|A| / P²                               (1 for a circle)
//	r        = median |p_i − c|
//	deviation = popstd(|p_i − c| − r) / r
func MeasureShape(points []Point) (Shape, error) {
	n := len(points)
	if n < 2 {
		return Shape{}, degenerate("fewer than two points")
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i, p := range points {
		x[i] = p.X
		y[i] = p.Y
	}

	cross := make([]float64, n-1)
	xTerms := make([]float64, n-1)
	yTerms := make([]float64, n-1)
	steps := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		cross[i] = x[i]*y[i+1] - x[i+1]*y[i]
		xTerms[i] = (x[i] + x[i+1]) * cross[i]
		yTerms[i] = (y[i] + y[i+1]) * cross[i]
		steps[i] = math.Hypot(x[i+1]-x[i], y[i+1]-y[i])
	}

	perimeter := floats.Sum(steps)
	if perimeter == 0 {
		return Shape{}, degenerate("zero perimeter")
	}

	signed := 0.5 * floats.Sum(cross)
	area := math.Abs(signed)
	if area == 0 || area <= degenerateAreaRatio*perimeter*perimeter {
		return Shape{}, degenerate("zero area")
	}

	oneSixthA := 1 / (6 * signed)
	xc := oneSixthA * floats.Sum(xTerms)
	yc := oneSixthA * floats.Sum(yTerms)

	distances := make([]float64, n)
	for i := range points {
		distances[i] = math.Hypot(x[i]-xc, y[i]-yc)
	}
	radius := Median(distances)
	if radius == 0 {
		return Shape{}, degenerate("zero median radius")
	}

	floats.AddConst(-radius, distances)
	deviation := stat.PopStdDev(distances, nil) / radius

	s := Shape{
		Area:            area,
		SignedArea:      signed,
		Perimeter:       perimeter,
		XCenter:         xc,
		YCenter:         yc,
		ShapeFactor:     4 * math.Pi * area / (perimeter * perimeter),
		RadiusDeviation: deviation,
		Box: BoundingBox{
			XMin: floats.Min(x),
			XMax: floats.Max(x),
			YMin: floats.Min(y),
			YMax: floats.Max(y),
		},
	}

	for _, v := range []float64{s.XCenter, s.YCenter, s.ShapeFactor, s.RadiusDeviation} {
		if !finite(v) {
			return Shape{}, degenerate("non-finite descriptor")
		}
	}
	return s, nil
}

// Median returns the middle value of v, averaging the two middle values when
// len(v) is even. v is not modified. The median of an empty slice is NaN.
func Median(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(v))
	copy(sorted, v)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
