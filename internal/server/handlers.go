package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/streak-tools-mcp/internal/batch"
	"github.com/ironsheep/streak-tools-mcp/internal/contour"
	"github.com/ironsheep/streak-tools-mcp/internal/detection"
	"github.com/ironsheep/streak-tools-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "streak_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool finished", zap.String("tool", params.Name), zap.Duration("elapsed", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies the server configuration to omitted options
//  3. Loads images and earlier runs from the caches as needed
//  4. Calls the appropriate detection/contour/imaging function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Detection
	case "streak_detect":
		return s.handleStreakDetect(args)
	case "streak_detect_image":
		return s.handleStreakDetectImage(args)

	// Results of a run
	case "streak_report":
		return s.handleStreakReport(args)
	case "streak_geojson":
		return s.handleStreakGeoJSON(args)
	case "streak_crop":
		return s.handleStreakCrop(args)
	case "streak_overlay":
		return s.handleStreakOverlay(args)
	case "streak_save":
		return s.handleStreakSave(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection Handlers ===

// detectionArgs overrides the configured detection thresholds. Omitted
// fields keep the server configuration.
type detectionArgs struct {
	MinPoints         *int     `json:"min_points"`
	ShapeCut          *float64 `json:"shape_cut"`
	AreaCut           *float64 `json:"area_cut"`
	RadiusDevCut      *float64 `json:"radius_dev_cut"`
	ConnectivityAngle *float64 `json:"connectivity_angle"`

	// IncludePoints adds every edge outline to the result.
	IncludePoints bool `json:"include_points"`
}

func (a detectionArgs) apply(p detection.Params) detection.Params {
	if a.MinPoints != nil {
		p.MinPoints = *a.MinPoints
	}
	if a.ShapeCut != nil {
		p.ShapeCut = *a.ShapeCut
	}
	if a.AreaCut != nil {
		p.AreaCut = *a.AreaCut
	}
	if a.RadiusDevCut != nil {
		p.RadiusDevCut = *a.RadiusDevCut
	}
	if a.ConnectivityAngle != nil {
		p.ConnectivityAngle = *a.ConnectivityAngle
	}
	return p
}

// tracingArgs overrides the configured tracer options.
type tracingArgs struct {
	Threshold      *float64 `json:"contour_threshold"`
	Background     *string  `json:"background"`
	BoxSize        *int     `json:"box_size"`
	BlurRadius     *float64 `json:"blur_radius"`
	FullyConnected *string  `json:"fully_connected"`
}

func (a tracingArgs) apply(o contour.Options) contour.Options {
	if a.Threshold != nil {
		o.Threshold = *a.Threshold
	}
	if a.Background != nil {
		o.Background = *a.Background
	}
	if a.BoxSize != nil {
		o.BoxSize = *a.BoxSize
	}
	if a.BlurRadius != nil {
		o.BlurRadius = *a.BlurRadius
	}
	if a.FullyConnected != nil {
		o.FullyConnected = *a.FullyConnected
	}
	return o
}

// DetectResult is returned by both detection tools.
type DetectResult struct {
	RunID       string                `json:"run_id"`
	Path        string                `json:"path,omitempty"`
	Cached      bool                  `json:"cached"`
	Params      detection.Params      `json:"params"`
	Diagnostics detection.Diagnostics `json:"diagnostics"`
	Edges       []detection.Edge      `json:"edges"`
	Groups      []detection.Group     `json:"groups"`
	Errors      []string              `json:"errors,omitempty"`

	// Image runs only.
	Tracing    *contour.Options    `json:"tracing,omitempty"`
	Background *contour.Background `json:"background,omitempty"`
	Level      float64             `json:"level,omitempty"`
}

func newDetectResult(r *run, cached, includePoints bool) *DetectResult {
	res := &DetectResult{
		RunID:       r.cat.RunID,
		Path:        r.path,
		Cached:      cached,
		Params:      r.cat.Params,
		Diagnostics: r.cat.Diagnostics,
		Edges:       r.cat.Edges,
		Groups:      r.cat.Groups,
	}
	if !includePoints {
		res.Edges = make([]detection.Edge, len(r.cat.Edges))
		for i, e := range r.cat.Edges {
			e.Points = nil
			res.Edges[i] = e
		}
	}
	for _, err := range r.cat.Errors {
		res.Errors = append(res.Errors, err.Error())
	}
	if r.trace != nil {
		res.Background = &r.trace.Background
		res.Level = r.trace.Level
		res.Tracing = &r.trace.Options
	}
	return res
}

type streakDetectArgs struct {
	Contours []detection.Contour `json:"contours"`
	detectionArgs
}

func (s *Server) handleStreakDetect(args json.RawMessage) (interface{}, error) {
	var a streakDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	d, err := detection.NewDetector(a.apply(s.cfg.Detection), s.logger)
	if err != nil {
		return nil, err
	}
	cat, err := d.Run(a.Contours)
	if err != nil {
		return nil, err
	}

	r := &run{cat: cat}
	s.runs.put(r)
	return newDetectResult(r, false, a.IncludePoints), nil
}

type streakDetectImageArgs struct {
	Path string `json:"path"`
	detectionArgs
	tracingArgs
}

func (s *Server) handleStreakDetectImage(args json.RawMessage) (interface{}, error) {
	var a streakDetectImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	cfg := s.cfg
	cfg.Detection = a.detectionArgs.apply(cfg.Detection)
	cfg.Tracing = a.tracingArgs.apply(cfg.Tracing)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key := imageKey(a.Path, cfg.Detection, cfg.Tracing)
	if r, ok := s.runs.lookup(key); ok {
		return newDetectResult(r, true, a.IncludePoints), nil
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	traced, cat, err := batch.Detect(img, cfg, s.logger.With(zap.String("path", a.Path)))
	if err != nil {
		return nil, err
	}

	r := &run{cat: cat, path: a.Path, trace: traced, key: key}
	s.runs.put(r)
	return newDetectResult(r, false, a.IncludePoints), nil
}

// === Run Result Handlers ===

type runArgs struct {
	RunID string `json:"run_id"`
}

// ReportResult carries the fixed-column report of a run.
type ReportResult struct {
	RunID  string `json:"run_id"`
	Report string `json:"report"`
}

func (s *Server) handleStreakReport(args json.RawMessage) (interface{}, error) {
	var a runArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := s.runs.get(a.RunID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := detection.WriteReport(&sb, r.cat.Edges); err != nil {
		return nil, err
	}
	return &ReportResult{RunID: a.RunID, Report: sb.String()}, nil
}

type streakGeoJSONArgs struct {
	RunID     string   `json:"run_id"`
	Tolerance *float64 `json:"tolerance"`
}

// GeoJSONResult embeds the FeatureCollection of a run as raw JSON.
type GeoJSONResult struct {
	RunID   string          `json:"run_id"`
	GeoJSON json.RawMessage `json:"geojson"`
}

func (s *Server) handleStreakGeoJSON(args json.RawMessage) (interface{}, error) {
	var a streakGeoJSONArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := s.runs.get(a.RunID)
	if err != nil {
		return nil, err
	}

	tolerance := s.cfg.Output.GeoJSONTolerance
	if a.Tolerance != nil {
		tolerance = *a.Tolerance
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("invalid tolerance %v", tolerance)
	}

	raw, err := r.cat.GeoJSON(tolerance)
	if err != nil {
		return nil, err
	}
	return &GeoJSONResult{RunID: a.RunID, GeoJSON: raw}, nil
}

// runImage returns the frame a run was traced from.
func (s *Server) runImage(r *run) (image.Image, error) {
	if r.path == "" {
		return nil, fmt.Errorf("run %s has no image; use streak_detect_image", r.cat.RunID)
	}
	return s.cache.Load(r.path)
}

func (s *Server) margin(m *int) int {
	if m != nil {
		return *m
	}
	return s.cfg.Output.BoxMargin
}

type streakCropArgs struct {
	RunID  string  `json:"run_id"`
	Group  int     `json:"group"`
	Margin *int    `json:"margin"`
	Scale  float64 `json:"scale"`
}

func (s *Server) handleStreakCrop(args json.RawMessage) (interface{}, error) {
	var a streakCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	r, err := s.runs.get(a.RunID)
	if err != nil {
		return nil, err
	}

	for _, g := range r.cat.Groups {
		if g.Root != a.Group {
			continue
		}
		img, err := s.runImage(r)
		if err != nil {
			return nil, err
		}
		margin := s.margin(a.Margin)
		if margin < 0 {
			return nil, fmt.Errorf("invalid margin %d", margin)
		}
		return imaging.CropGroup(img, g, margin, a.Scale)
	}
	return nil, fmt.Errorf("run %s has no group with root %d", a.RunID, a.Group)
}

type streakOverlayArgs struct {
	RunID    string `json:"run_id"`
	Margin   *int   `json:"margin"`
	BoxColor string `json:"box_color"`
	Labels   *bool  `json:"labels"`
	Stretch  bool   `json:"stretch"`
}

func (s *Server) handleStreakOverlay(args json.RawMessage) (interface{}, error) {
	var a streakOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := s.runs.get(a.RunID)
	if err != nil {
		return nil, err
	}
	img, err := s.runImage(r)
	if err != nil {
		return nil, err
	}

	labels := true
	if a.Labels != nil {
		labels = *a.Labels
	}
	return imaging.OverlayBase64(img, r.cat, imaging.OverlayOptions{
		BoxMargin: s.margin(a.Margin),
		BoxColor:  a.BoxColor,
		Labels:    labels,
		Stretch:   a.Stretch,
	})
}

type streakSaveArgs struct {
	RunID   string `json:"run_id"`
	Dir     string `json:"dir"`
	Figures *bool  `json:"figures"`
}

// SaveResult lists the files written for a run.
type SaveResult struct {
	RunID string   `json:"run_id"`
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

func (s *Server) handleStreakSave(args json.RawMessage) (interface{}, error) {
	var a streakSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	r, err := s.runs.get(a.RunID)
	if err != nil {
		return nil, err
	}

	out := s.cfg.Output
	if a.Figures != nil {
		out.Figures = *a.Figures
	}
	dir := a.Dir
	if dir == "" {
		dir = out.Dir
	}
	if dir == "" {
		if r.path == "" {
			return nil, errors.New("dir is required for runs without an image")
		}
		dir = batch.DefaultDir(r.path)
	}

	var img image.Image
	if r.path != "" && out.Figures {
		if img, err = s.runImage(r); err != nil {
			return nil, err
		}
	}

	files, err := batch.Write(dir, img, r.cat, out)
	if err != nil {
		return nil, err
	}
	s.logger.Info("run saved", zap.String("run_id", a.RunID), zap.String("dir", dir), zap.Int("files", len(files)))
	return &SaveResult{RunID: a.RunID, Dir: dir, Files: files}, nil
}
