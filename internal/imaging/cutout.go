package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// CropResult contains an encoded image window.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// Window is the cropped region in source pixel coordinates.
	Window Window `json:"window"`
}

// Window is a pixel rectangle; (X1, Y1) inclusive, (X2, Y2) exclusive.
type Window struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (w Window) rect() image.Rectangle { return image.Rect(w.X1, w.Y1, w.X2, w.Y2) }

// GroupWindow pads box by margin pixels on every side and clamps the result
// to bounds. The box is widened outward to whole pixels first.
func GroupWindow(box detection.BoundingBox, margin int, bounds image.Rectangle) Window {
	m := float64(margin)
	w := Window{
		X1: int(math.Floor(box.XMin - m)),
		Y1: int(math.Floor(box.YMin - m)),
		X2: int(math.Ceil(box.XMax+m)) + 1,
		Y2: int(math.Ceil(box.YMax+m)) + 1,
	}
	w.X1 = max(w.X1, bounds.Min.X)
	w.Y1 = max(w.Y1, bounds.Min.Y)
	w.X2 = min(w.X2, bounds.Max.X)
	w.Y2 = min(w.Y2, bounds.Max.Y)
	return w
}

// Crop extracts w from img and optionally rescales it with Lanczos
// resampling. A scale of 0 or 1 keeps the native size.
func Crop(img image.Image, w Window, scale float64) (*CropResult, error) {
	bounds := img.Bounds()

	if w.X1 < bounds.Min.X || w.Y1 < bounds.Min.Y || w.X2 > bounds.Max.X || w.Y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			w.X1, w.Y1, w.X2, w.Y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if w.X1 >= w.X2 || w.Y1 >= w.Y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}

	cropped := imaging.Crop(img, w.rect())

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	encoded, err := encodePNG(cropped)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Window:      w,
	}, nil
}

// CropGroup cuts out the window around one streak group.
func CropGroup(img image.Image, g detection.Group, margin int, scale float64) (*CropResult, error) {
	return Crop(img, GroupWindow(g.Box, margin, img.Bounds()), scale)
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
