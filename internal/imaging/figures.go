package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// OverviewFile is the name of the full-frame overlay written by SaveFigures.
const OverviewFile = "all.png"

// SaveFigures writes the overview and one cut-out per group into dir.
//
// The overview is all.png. Each group is cut from the overview around its
// padded box and saved as <root>.png, where root is the ID the group's
// chain starts from. dir is created if needed. The written paths are
// returned in that order.
func SaveFigures(dir string, img image.Image, cat *detection.Catalogue, opts OverlayOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	overview, err := Overlay(img, cat, opts)
	if err != nil {
		return nil, err
	}

	allPath := filepath.Join(dir, OverviewFile)
	if err := imaging.Save(overview, allPath); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", OverviewFile, err)
	}
	paths := []string{allPath}

	for _, g := range cat.Groups {
		w := GroupWindow(g.Box, opts.BoxMargin, overview.Bounds())
		if w.X1 >= w.X2 || w.Y1 >= w.Y2 {
			continue
		}
		path := filepath.Join(dir, strconv.Itoa(g.Root)+".png")
		if err := imaging.Save(imaging.Crop(overview, w.rect()), path); err != nil {
			return nil, fmt.Errorf("failed to save group %d: %w", g.Root, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
