package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/streak-tools-mcp/internal/config"
	"github.com/ironsheep/streak-tools-mcp/internal/detection"
	"github.com/ironsheep/streak-tools-mcp/internal/imaging"
)

// createTestImageFile creates a solid-colour PNG and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writePNG(t, img)
}

// createStreakFrame creates a 100x60 gray sky with one bright 60x2 streak
// starting at (10, 20) and returns its path.
func createStreakFrame(t *testing.T) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(10 + (2*x+3*y)%5)})
		}
	}
	for y := 20; y < 22; y++ {
		for x := 10; x < 70; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	return writePNG(t, img)
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// streakContour returns a closed 30x1 rectangle outline at (x0, 0) as
// [row, column] pairs.
func streakContour(x0 float64) detection.Contour {
	var c detection.Contour
	for i := 0; i <= 30; i++ {
		c = append(c, []float64{0, x0 + float64(i)})
	}
	for i := 0; i <= 30; i++ {
		c = append(c, []float64{1, x0 + float64(30-i)})
	}
	return append(c, []float64{0, x0})
}

// roundContour returns a closed 64-gon of radius 10 centred on (100, 100).
func roundContour() detection.Contour {
	var c detection.Contour
	for i := 0; i < 64; i++ {
		a := 2 * math.Pi * float64(i) / 64
		c = append(c, []float64{100 + 10*math.Sin(a), 100 + 10*math.Cos(a)})
	}
	return append(c, c[0])
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	if out != nil {
		text, _ := content[0]["text"].(string)
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

func mustCall(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()
	if mcpErr := callTool(t, s, name, args, out); mcpErr != nil {
		t.Fatalf("%s failed: %s: %v", name, mcpErr.Message, mcpErr.Data)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	mustCall(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)

	if info.Width != 100 || info.Height != 80 || info.Format != "png" {
		t.Errorf("got %+v, want 100x80 png", info)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer()
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	mustCall(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}, &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"non-existent file", "image_load", map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"unknown tool", "image_ocr_full", map[string]interface{}{}},
		{"unknown run", "streak_report", map[string]interface{}{"run_id": "run-missing"}},
		{"detect_image without path", "streak_detect_image", map[string]interface{}{}},
		{"invalid threshold", "streak_detect", map[string]interface{}{"contours": []interface{}{}, "shape_cut": -1}},
		{"wrong argument type", "streak_detect", map[string]interface{}{"contours": "none"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcpErr := callTool(t, s, tt.tool, tt.args, nil)
			if mcpErr == nil {
				t.Fatal("expected an error")
			}
			if mcpErr.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", mcpErr.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer()
	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`"not an object"`),
	})

	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want Invalid params", resp.Error)
	}
}

func TestHandleToolsCall_StreakDetect(t *testing.T) {
	s := newTestServer()
	args := map[string]interface{}{
		"contours": []detection.Contour{streakContour(0), roundContour(), streakContour(40)},
	}

	var res DetectResult
	mustCall(t, s, "streak_detect", args, &res)

	if !strings.HasPrefix(res.RunID, "run-") {
		t.Errorf("RunID: got %q", res.RunID)
	}
	if res.Cached || res.Path != "" || res.Background != nil {
		t.Errorf("inline run carries image fields: %+v", res)
	}
	if len(res.Edges) != 2 {
		t.Fatalf("edges: got %d, want 2", len(res.Edges))
	}
	if res.Edges[0].SourceIndex != 1 || res.Edges[1].SourceIndex != 3 {
		t.Errorf("sources: got %d, %d, want 1, 3", res.Edges[0].SourceIndex, res.Edges[1].SourceIndex)
	}
	if res.Edges[0].Connectivity != 2 {
		t.Errorf("connectivity: got %d, want 2", res.Edges[0].Connectivity)
	}
	if res.Edges[0].Points != nil {
		t.Error("points included without include_points")
	}
	if len(res.Groups) != 1 || len(res.Groups[0].IDs) != 2 {
		t.Errorf("groups: got %+v, want one group of two", res.Groups)
	}
	if res.Diagnostics.Filtered != 1 {
		t.Errorf("Filtered: got %d, want 1", res.Diagnostics.Filtered)
	}
	if s.runs.len() != 1 {
		t.Errorf("runs cached: got %d, want 1", s.runs.len())
	}

	var again DetectResult
	args["include_points"] = true
	args["connectivity_angle"] = 5
	mustCall(t, s, "streak_detect", args, &again)
	if again.RunID == res.RunID {
		t.Error("inline runs must get fresh run IDs")
	}
	if len(again.Edges) != 2 || len(again.Edges[0].Points) != 63 {
		t.Errorf("points: got %d edges, want 2 with 63 points", len(again.Edges))
	}
	if again.Params.ConnectivityAngle != 5 || again.Params.ShapeCut != config.Default().Detection.ShapeCut {
		t.Errorf("Params: got %+v, want only connectivity_angle overridden", again.Params)
	}
}

func TestHandleToolsCall_StreakDetectReportsFailures(t *testing.T) {
	s := newTestServer()
	bad := streakContour(0)
	bad[3] = []float64{0}

	var res DetectResult
	mustCall(t, s, "streak_detect", map[string]interface{}{
		"contours": []detection.Contour{bad, streakContour(40)},
	}, &res)

	if res.Diagnostics.Malformed != 1 || len(res.Errors) != 1 {
		t.Errorf("got diagnostics %+v errors %v, want one malformed contour", res.Diagnostics, res.Errors)
	}
	if len(res.Edges) != 1 {
		t.Errorf("edges: got %d, want 1", len(res.Edges))
	}
}

func TestHandleToolsCall_StreakDetectImage(t *testing.T) {
	s := newTestServer()
	path := createStreakFrame(t)

	var first DetectResult
	mustCall(t, s, "streak_detect_image", map[string]interface{}{"path": path}, &first)

	if first.Path != path || first.Cached {
		t.Errorf("first run: path=%s cached=%v", first.Path, first.Cached)
	}
	if len(first.Edges) != 1 || len(first.Groups) != 1 {
		t.Fatalf("got %d edges in %d groups, want 1 in 1", len(first.Edges), len(first.Groups))
	}
	if first.Background == nil || first.Tracing == nil || first.Level <= 0 {
		t.Errorf("missing tracing details: %+v", first)
	}
	if e := first.Edges[0]; math.Abs(e.XCenter-39.5) > 1 || math.Abs(e.YCenter-20.5) > 1 {
		t.Errorf("centre: got (%.2f, %.2f), want about (39.5, 20.5)", e.XCenter, e.YCenter)
	}

	var second DetectResult
	mustCall(t, s, "streak_detect_image", map[string]interface{}{"path": path}, &second)
	if !second.Cached || second.RunID != first.RunID {
		t.Errorf("repeat: got run %s cached=%v, want cached %s", second.RunID, second.Cached, first.RunID)
	}
	if second.Tracing == nil || *second.Tracing != *first.Tracing {
		t.Errorf("cached Tracing: got %+v, want %+v", second.Tracing, first.Tracing)
	}

	var third DetectResult
	mustCall(t, s, "streak_detect_image", map[string]interface{}{"path": path, "contour_threshold": 4.0}, &third)
	if third.Cached || third.RunID == first.RunID {
		t.Error("changed options must trigger a new run")
	}
	if third.Tracing.Threshold != 4 {
		t.Errorf("Tracing.Threshold: got %v, want 4", third.Tracing.Threshold)
	}

	if mcpErr := callTool(t, s, "streak_detect_image", map[string]interface{}{"path": path, "background": "median"}, nil); mcpErr == nil {
		t.Error("expected an error for an unknown background mode")
	}
}

func TestHandleToolsCall_RunResults(t *testing.T) {
	s := newTestServer()
	path := createStreakFrame(t)

	var det DetectResult
	mustCall(t, s, "streak_detect_image", map[string]interface{}{"path": path}, &det)
	runID := det.RunID
	root := det.Groups[0].Root

	t.Run("report", func(t *testing.T) {
		var res ReportResult
		mustCall(t, s, "streak_report", map[string]interface{}{"run_id": runID}, &res)
		lines := strings.Split(strings.TrimRight(res.Report, "\n"), "\n")
		if len(lines) != 2 || lines[0] != detection.ReportHeader {
			t.Errorf("report: got %q", res.Report)
		}
	})

	t.Run("geojson", func(t *testing.T) {
		var res GeoJSONResult
		mustCall(t, s, "streak_geojson", map[string]interface{}{"run_id": runID, "tolerance": 0.5}, &res)
		var fc struct {
			Type     string            `json:"type"`
			Features []json.RawMessage `json:"features"`
		}
		if err := json.Unmarshal(res.GeoJSON, &fc); err != nil {
			t.Fatalf("invalid geojson: %v", err)
		}
		if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
			t.Errorf("got type=%s features=%d", fc.Type, len(fc.Features))
		}
	})

	t.Run("crop", func(t *testing.T) {
		var res imaging.CropResult
		mustCall(t, s, "streak_crop", map[string]interface{}{"run_id": runID, "group": root, "scale": 2}, &res)
		if res.Width <= 120 || res.Height <= 20 || res.ImageBase64 == "" {
			t.Errorf("got %dx%d, want a zoomed window around the streak", res.Width, res.Height)
		}
		if res.Window.X1 > 10 || res.Window.X2 < 70 {
			t.Errorf("window %+v does not contain the streak", res.Window)
		}

		if mcpErr := callTool(t, s, "streak_crop", map[string]interface{}{"run_id": runID, "group": root + 100}, nil); mcpErr == nil {
			t.Error("expected an error for an unknown group")
		}
	})

	t.Run("overlay", func(t *testing.T) {
		var res imaging.OverlayResult
		mustCall(t, s, "streak_overlay", map[string]interface{}{"run_id": runID, "stretch": true}, &res)
		if res.Width != 100 || res.Height != 60 || res.Groups != 1 || res.Edges != 1 {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("save", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")
		var res SaveResult
		mustCall(t, s, "streak_save", map[string]interface{}{"run_id": runID, "dir": dir}, &res)
		if res.Dir != dir || len(res.Files) != 4 {
			t.Errorf("got %+v, want 4 files in %s", res, dir)
		}
		for _, f := range res.Files {
			if _, err := os.Stat(f); err != nil {
				t.Errorf("missing %s: %v", f, err)
			}
		}
	})
}

func TestHandleToolsCall_InlineRunHasNoImage(t *testing.T) {
	s := newTestServer()

	var det DetectResult
	mustCall(t, s, "streak_detect", map[string]interface{}{
		"contours": []detection.Contour{streakContour(0)},
	}, &det)

	for _, tool := range []string{"streak_crop", "streak_overlay"} {
		args := map[string]interface{}{"run_id": det.RunID, "group": det.Groups[0].Root}
		if mcpErr := callTool(t, s, tool, args, nil); mcpErr == nil {
			t.Errorf("%s: expected an error for a run without image", tool)
		}
	}

	if mcpErr := callTool(t, s, "streak_save", map[string]interface{}{"run_id": det.RunID}, nil); mcpErr == nil {
		t.Error("streak_save: expected an error without dir")
	}

	var res SaveResult
	mustCall(t, s, "streak_save", map[string]interface{}{"run_id": det.RunID, "dir": t.TempDir()}, &res)
	if len(res.Files) != 2 {
		t.Errorf("files: got %v, want report and geojson", res.Files)
	}
}

func TestRunCache_Evicts(t *testing.T) {
	c := newRunCache(2)
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		c.put(&run{cat: &detection.Catalogue{RunID: id}, key: "key-" + id})
	}

	if c.len() != 2 {
		t.Errorf("len: got %d, want 2", c.len())
	}
	if _, err := c.get("run-a"); err == nil {
		t.Error("oldest run was not evicted")
	}
	if _, ok := c.lookup("key-run-a"); ok {
		t.Error("key of evicted run still resolves")
	}
	if r, ok := c.lookup("key-run-c"); !ok || r.cat.RunID != "run-c" {
		t.Error("newest run not found by key")
	}
}
