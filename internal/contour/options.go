package contour

import (
	"math"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// Background estimation modes.
const (
	BackgroundConstant = "constant"
	BackgroundMap      = "map"
)

// Saddle resolution modes for marching squares.
const (
	ConnectHigh = "high"
	ConnectLow  = "low"
)

// Options controls how an image is turned into contours.
type Options struct {
	// Threshold is the contour level in units of the background standard
	// deviation.
	Threshold float64 `json:"contour_threshold" toml:"contour_threshold"`

	// Background is "constant" (one sigma-clipped level for the whole image)
	// or "map" (a smooth map interpolated from per-box levels).
	Background string `json:"background" toml:"background"`

	// BoxSize is the box edge in pixels for the "map" background.
	BoxSize int `json:"box_size" toml:"box_size"`

	// BlurRadius applies a Gaussian blur before tracing when > 0.
	BlurRadius float64 `json:"blur_radius" toml:"blur_radius"`

	// Sigma is the clipping limit for background statistics.
	Sigma float64 `json:"sigma" toml:"sigma"`

	// ClipIterations bounds the number of sigma-clipping passes.
	ClipIterations int `json:"clip_iterations" toml:"clip_iterations"`

	// MapClipIterations bounds the clipping passes per box in "map" mode.
	MapClipIterations int `json:"map_clip_iterations" toml:"map_clip_iterations"`

	// FullyConnected picks which side of the level is 8-connected at saddle
	// cells: "high" or "low".
	FullyConnected string `json:"fully_connected" toml:"fully_connected"`
}

// DefaultOptions returns the tracer defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:         3,
		Background:        BackgroundConstant,
		BoxSize:           50,
		BlurRadius:        0,
		Sigma:             3,
		ClipIterations:    5,
		MapClipIterations: 10,
		FullyConnected:    ConnectHigh,
	}
}

// Validate returns a *detection.ConfigurationError for the first invalid
// field.
func (o Options) Validate() error {
	switch {
	case !positive(o.Threshold):
		return &detection.ConfigurationError{Field: "contour_threshold", Value: o.Threshold, Reason: "must be finite and > 0"}
	case o.Background != BackgroundConstant && o.Background != BackgroundMap:
		return &detection.ConfigurationError{Field: "background", Value: o.Background, Reason: `must be "constant" or "map"`}
	case o.Background == BackgroundMap && o.BoxSize < 2:
		return &detection.ConfigurationError{Field: "box_size", Value: o.BoxSize, Reason: "must be >= 2"}
	case math.IsNaN(o.BlurRadius) || math.IsInf(o.BlurRadius, 0) || o.BlurRadius < 0:
		return &detection.ConfigurationError{Field: "blur_radius", Value: o.BlurRadius, Reason: "must be finite and >= 0"}
	case !positive(o.Sigma):
		return &detection.ConfigurationError{Field: "sigma", Value: o.Sigma, Reason: "must be finite and > 0"}
	case o.ClipIterations < 1:
		return &detection.ConfigurationError{Field: "clip_iterations", Value: o.ClipIterations, Reason: "must be >= 1"}
	case o.Background == BackgroundMap && o.MapClipIterations < 1:
		return &detection.ConfigurationError{Field: "map_clip_iterations", Value: o.MapClipIterations, Reason: "must be >= 1"}
	case o.FullyConnected != ConnectHigh && o.FullyConnected != ConnectLow:
		return &detection.ConfigurationError{Field: "fully_connected", Value: o.FullyConnected, Reason: `must be "high" or "low"`}
	}
	return nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
