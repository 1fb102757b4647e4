// Package batch runs the full image-to-catalogue chain and writes its
// results to disk.
//
// It is shared by the detect command and the streak_save tool so a frame
// processed either way produces the same files:
//
//	<dir>/streaks.txt      fixed-column report
//	<dir>/streaks.geojson  outlines and group boxes
//	<dir>/all.png          overview overlay (when figures are enabled)
//	<dir>/<root>.png       one cut-out per group (when figures are enabled)
package batch

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/streak-tools-mcp/internal/config"
	"github.com/ironsheep/streak-tools-mcp/internal/contour"
	"github.com/ironsheep/streak-tools-mcp/internal/detection"
	"github.com/ironsheep/streak-tools-mcp/internal/imaging"
)

// Output file names.
const (
	ReportFile  = "streaks.txt"
	GeoJSONFile = "streaks.geojson"
)

// Outcome summarises one processed frame.
type Outcome struct {
	RunID       string                `json:"run_id"`
	Input       string                `json:"input"`
	Dir         string                `json:"dir"`
	Files       []string              `json:"files"`
	Diagnostics detection.Diagnostics `json:"diagnostics"`
}

// DefaultDir returns the output directory used when none is configured: the
// input path without its extension.
func DefaultDir(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// Detect traces img with cfg.Tracing and runs the detector with
// cfg.Detection over the contours.
func Detect(img image.Image, cfg config.Config, logger *zap.Logger) (*contour.Result, *detection.Catalogue, error) {
	tracer, err := contour.NewTracer(cfg.Tracing, logger)
	if err != nil {
		return nil, nil, err
	}
	detector, err := detection.NewDetector(cfg.Detection, logger)
	if err != nil {
		return nil, nil, err
	}

	traced, err := tracer.Trace(img)
	if err != nil {
		return nil, nil, err
	}
	cat, err := detector.Run(traced.Contours)
	if err != nil {
		return nil, nil, err
	}
	return traced, cat, nil
}

// Write stores the report, the GeoJSON and, when out.Figures is set and img
// is not nil, the figures of cat in dir. It returns the written paths.
func Write(dir string, img image.Image, cat *detection.Catalogue, out config.Output) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	reportPath := filepath.Join(dir, ReportFile)
	if err := writeReport(reportPath, cat); err != nil {
		return nil, err
	}

	geo, err := cat.GeoJSON(out.GeoJSONTolerance)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	geoPath := filepath.Join(dir, GeoJSONFile)
	if err := os.WriteFile(geoPath, geo, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", GeoJSONFile, err)
	}

	files := []string{reportPath, geoPath}
	if !out.Figures || img == nil {
		return files, nil
	}

	figures, err := imaging.SaveFigures(dir, img, cat, imaging.OverlayOptions{
		BoxMargin: out.BoxMargin,
		Labels:    true,
	})
	if err != nil {
		return nil, err
	}
	return append(files, figures...), nil
}

func writeReport(path string, cat *detection.Catalogue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", ReportFile, err)
	}
	if err := detection.WriteReport(f, cat.Edges); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", ReportFile, err)
	}
	return f.Close()
}

// Process loads the frame at path, detects streaks in it and writes the
// results to cfg.Output.Dir, or DefaultDir(path) when that is empty.
func Process(cache *imaging.ImageCache, path string, cfg config.Config, logger *zap.Logger) (*Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	_, cat, err := Detect(img, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := cfg.Output.Dir
	if dir == "" {
		dir = DefaultDir(path)
	}
	files, err := Write(dir, img, cat, cfg.Output)
	if err != nil {
		return nil, err
	}

	logger.Info("frame processed",
		zap.String("input", path),
		zap.String("run_id", cat.RunID),
		zap.String("dir", dir),
		zap.Int("streaks", cat.Diagnostics.Streaks),
		zap.Int("groups", cat.Diagnostics.Groups))

	return &Outcome{
		RunID:       cat.RunID,
		Input:       path,
		Dir:         dir,
		Files:       files,
		Diagnostics: cat.Diagnostics,
	}, nil
}
