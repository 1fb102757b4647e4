// Package config loads the streak-mcp TOML configuration.
//
// A file only needs to name the values it changes; everything else keeps its
// default:
//
//	[detection]
//	shape_cut = 0.3
//
//	[tracing]
//	background = "map"
//	box_size = 64
//
//	[output]
//	box_margin = 20
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/streak-tools-mcp/internal/contour"
	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// Config is the full set of options.
type Config struct {
	Detection detection.Params `toml:"detection"`
	Tracing   contour.Options  `toml:"tracing"`
	Output    Output           `toml:"output"`
}

// Output controls the files and images produced from a catalogue.
type Output struct {
	// Dir is the output directory for batch runs. Empty means a directory
	// named after the input file, next to it.
	Dir string `toml:"dir"`

	// BoxMargin pads group boxes in cut-outs and overlays, in pixels.
	BoxMargin int `toml:"box_margin"`

	// GeoJSONTolerance simplifies outlines in GeoJSON output when > 0.
	GeoJSONTolerance float64 `toml:"geojson_tolerance"`

	// Figures enables all.png and the per-group cut-outs.
	Figures bool `toml:"figures"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Detection: detection.DefaultParams(),
		Tracing:   contour.DefaultOptions(),
		Output: Output{
			BoxMargin: 10,
			Figures:   true,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, &detection.ConfigurationError{
			Field:  keys[0],
			Value:  strings.Join(keys, ", "),
			Reason: "unknown option",
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section and returns the first
// *detection.ConfigurationError.
func (c Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	if c.Output.BoxMargin < 0 {
		return &detection.ConfigurationError{Field: "box_margin", Value: c.Output.BoxMargin, Reason: "must be >= 0"}
	}
	t := c.Output.GeoJSONTolerance
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return &detection.ConfigurationError{Field: "geojson_tolerance", Value: t, Reason: "must be finite and >= 0"}
	}
	return nil
}

// Write encodes c as TOML.
func (c Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
