package detection

// NoConnection is the connectivity value of an edge that links to nothing.
const NoConnection = -1

// Contour is a raw polyline from the boundary tracer. Each element is a
// (row, column) pair, so x = p[1] and y = p[0].
type Contour [][]float64

// Point is a 2D coordinate in pixel space. X is the column, Y the row.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is the axis-aligned extent of one or more edges.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// Union returns the smallest box containing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if o.XMin < b.XMin {
		b.XMin = o.XMin
	}
	if o.XMax > b.XMax {
		b.XMax = o.XMax
	}
	if o.YMin < b.YMin {
		b.YMin = o.YMin
	}
	if o.YMax > b.YMax {
		b.YMax = o.YMax
	}
	return b
}

// Edge is a candidate contour promoted to a quantified record.
//
// Fields are filled phase by phase: ingest sets ID, SourceIndex and Points;
// Quantify sets the shape descriptors; Fit sets the line and its endpoints;
// Link sets Connectivity.
type Edge struct {
	// ID is 1-based and contiguous within an EdgeSet after filtering.
	ID int `json:"id"`

	// SourceIndex is the 1-based position of the polyline in the input list.
	SourceIndex int `json:"source_index"`

	// Points is the closed polyline; Points[0] == Points[len-1].
	Points []Point `json:"points,omitempty"`

	XCenter         float64     `json:"x_center"`
	YCenter         float64     `json:"y_center"`
	Perimeter       float64     `json:"perimeter"`
	Area            float64     `json:"area"`
	ShapeFactor     float64     `json:"shape_factor"`
	RadiusDeviation float64     `json:"radius_deviation"`
	Box             BoundingBox `json:"bounding_box"`

	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	SlopeAngle float64 `json:"slope_angle"` // degrees, (-90, 90)

	Start     Point   `json:"start"`
	End       Point   `json:"end"`
	Length    float64 `json:"length"`
	Thickness float64 `json:"thickness"`

	// Connectivity is the ID of the edge judged to continue this one, or
	// NoConnection.
	Connectivity int `json:"connectivity"`
}

// EdgeSet is the container handed from one phase to the next. Phases never
// modify the set they receive; they build a new one.
type EdgeSet struct {
	edges []Edge
}

// NewEdgeSet wraps a copy of edges.
func NewEdgeSet(edges []Edge) EdgeSet {
	cp := make([]Edge, len(edges))
	copy(cp, edges)
	return EdgeSet{edges: cp}
}

// Len returns the number of edges.
func (s EdgeSet) Len() int { return len(s.edges) }

// Edges returns a copy of the edges in order.
func (s EdgeSet) Edges() []Edge {
	cp := make([]Edge, len(s.edges))
	copy(cp, s.edges)
	return cp
}

// At returns the i-th edge (0-based).
func (s EdgeSet) At(i int) Edge { return s.edges[i] }

// ByID returns the edge with the given ID.
func (s EdgeSet) ByID(id int) (Edge, bool) {
	// IDs are contiguous after filtering, so try the direct slot first.
	if id >= 1 && id <= len(s.edges) && s.edges[id-1].ID == id {
		return s.edges[id-1], true
	}
	for _, e := range s.edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// renumber assigns contiguous IDs 1..n in slice order.
func renumber(edges []Edge) {
	for i := range edges {
		edges[i].ID = i + 1
	}
}
