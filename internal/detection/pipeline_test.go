package detection

import (
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// starField returns two fragments of one horizontal trail with a round star,
// an open arc, a flat sliver and a malformed contour in between.
func starField() []Contour {
	flat := make(Contour, 0, 14)
	for i := 0; i <= 12; i++ {
		flat = append(flat, []float64{0, float64(i)})
	}
	flat = append(flat, []float64{0, 0})

	open := regularPolygon(32, 5, 200, 200)
	open = open[:len(open)-1]

	return []Contour{
		thinRectangle(0, 0, 30, 1),
		regularPolygon(64, 10, 100, 100),
		open,
		flat,
		{{0, 0}, {1, math.NaN()}, {0, 0}},
		thinRectangle(40, 0, 30, 1),
	}
}

func TestDetector_Run(t *testing.T) {
	d, err := NewDetector(DefaultParams(), nil)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}

	cat, err := d.Run(starField())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(cat.Edges) != 2 {
		t.Fatalf("streaks: got %d, want 2", len(cat.Edges))
	}

	first, second := cat.Edges[0], cat.Edges[1]
	if first.ID != 1 || first.SourceIndex != 1 {
		t.Errorf("first edge: got id=%d source=%d, want 1/1", first.ID, first.SourceIndex)
	}
	if second.ID != 2 || second.SourceIndex != 6 {
		t.Errorf("second edge: got id=%d source=%d, want 2/6", second.ID, second.SourceIndex)
	}
	if first.Connectivity != 2 {
		t.Errorf("first edge: Connectivity got %d, want 2", first.Connectivity)
	}
	if second.Connectivity != NoConnection {
		t.Errorf("second edge: Connectivity got %d, want NoConnection", second.Connectivity)
	}
	if math.Abs(first.XCenter-15) > 1e-9 || math.Abs(second.XCenter-55) > 1e-9 {
		t.Errorf("centres: got %v and %v, want 15 and 55", first.XCenter, second.XCenter)
	}
	if math.Abs(first.SlopeAngle) > 1e-9 || math.Abs(first.Intercept-0.5) > 1e-9 {
		t.Errorf("line: got angle=%v intercept=%v, want 0 and 0.5", first.SlopeAngle, first.Intercept)
	}

	if len(cat.Groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(cat.Groups))
	}
	g := cat.Groups[0]
	wantBox := BoundingBox{XMin: 0, XMax: 70, YMin: 0, YMax: 1}
	if g.Root != 1 || len(g.IDs) != 2 || g.Box != wantBox {
		t.Errorf("group: got %+v, want root 1, ids [1 2], box %+v", g, wantBox)
	}

	want := Diagnostics{
		Contours:   6,
		Malformed:  1,
		Rejected:   1,
		Degenerate: 1,
		Filtered:   1,
		FitFailed:  0,
		Streaks:    2,
		Groups:     1,
	}
	if cat.Diagnostics != want {
		t.Errorf("Diagnostics: got %+v, want %+v", cat.Diagnostics, want)
	}

	if len(cat.Errors) != 2 {
		t.Fatalf("errors: got %d, want 2", len(cat.Errors))
	}
	var mErr *MalformedContourError
	if !errors.As(cat.Errors[0], &mErr) || mErr.Index != 5 {
		t.Errorf("first error: got %v, want malformed contour 5", cat.Errors[0])
	}
	var dErr *DegenerateShapeError
	if !errors.As(cat.Errors[1], &dErr) || dErr.Index != 4 {
		t.Errorf("second error: got %v, want degenerate contour 4", cat.Errors[1])
	}

	if !strings.HasPrefix(cat.RunID, runIDPrefix) || len(cat.RunID) != len(runIDPrefix)+runIDLength {
		t.Errorf("RunID: got %q", cat.RunID)
	}
	if len(cat.Edges) != 2 {
		t.Errorf("Edges: got %d, want 2", len(cat.Edges))
	}
}

func TestDetector_RunIsRepeatable(t *testing.T) {
	d, err := NewDetector(DefaultParams(), nil)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	a, _ := d.Run(starField())
	b, _ := d.Run(starField())

	if a.RunID == b.RunID {
		t.Error("two runs share a run ID")
	}
	if len(a.Edges) != len(b.Edges) {
		t.Fatalf("edge counts differ: %d vs %d", len(a.Edges), len(b.Edges))
	}
	for i := range a.Edges {
		if a.Edges[i].Connectivity != b.Edges[i].Connectivity || a.Edges[i].Area != b.Edges[i].Area {
			t.Errorf("edge %d differs between runs", i+1)
		}
	}
}

func TestDetector_EmptyInput(t *testing.T) {
	d, _ := NewDetector(DefaultParams(), nil)
	cat, err := d.Run(nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(cat.Edges) != 0 || len(cat.Groups) != 0 || len(cat.Errors) != 0 {
		t.Errorf("expected an empty catalogue, got %+v", cat)
	}
}

func TestDetector_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d, err := NewDetector(DefaultParams(), zap.New(core))
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}

	if _, err := d.Run(starField()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	warnings := logs.FilterLevelExact(zap.WarnLevel).All()
	if len(warnings) != 2 {
		t.Fatalf("warnings: got %d, want 2", len(warnings))
	}
	if got := warnings[0].ContextMap()["source_index"]; got != int64(5) {
		t.Errorf("source_index: got %v, want 5", got)
	}
	if logs.FilterMessage("streak detection finished").Len() != 1 {
		t.Error("missing run summary")
	}
}

func TestNewDetector_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"negative min points", func(p *Params) { p.MinPoints = -1 }, "min_points"},
		{"NaN shape cut", func(p *Params) { p.ShapeCut = math.NaN() }, "shape_cut"},
		{"negative area cut", func(p *Params) { p.AreaCut = -1 }, "area_cut"},
		{"infinite radius cut", func(p *Params) { p.RadiusDevCut = math.Inf(1) }, "radius_dev_cut"},
		{"angle too wide", func(p *Params) { p.ConnectivityAngle = 180 }, "connectivity_angle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)

			d, err := NewDetector(p, nil)
			if d != nil {
				t.Error("expected a nil detector")
			}
			var cErr *ConfigurationError
			if !errors.As(err, &cErr) {
				t.Fatalf("error type: got %T, want *ConfigurationError", err)
			}
			if cErr.Field != tt.field {
				t.Errorf("Field: got %q, want %q", cErr.Field, tt.field)
			}
		})
	}
}

func TestDetector_RunCarriesParams(t *testing.T) {
	p := DefaultParams()
	p.AreaCut = 42
	d, err := NewDetector(p, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	cat, err := d.Run(nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if cat.Params != p {
		t.Errorf("Params: got %+v, want %+v", cat.Params, p)
	}
}
