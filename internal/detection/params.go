package detection

import "math"

// Params holds the thresholds of one detection run.
type Params struct {
	// MinPoints discards contours with MinPoints or fewer points.
	MinPoints int `json:"min_points" toml:"min_points"`

	// ShapeCut is the upper bound on the shape factor. Lower values reject
	// more round shapes.
	ShapeCut float64 `json:"shape_cut" toml:"shape_cut"`

	// AreaCut is the lower bound on the enclosed area in square pixels.
	AreaCut float64 `json:"area_cut" toml:"area_cut"`

	// RadiusDevCut is the lower bound on the radius deviation.
	RadiusDevCut float64 `json:"radius_dev_cut" toml:"radius_dev_cut"`

	// ConnectivityAngle is the maximum angle mismatch in degrees for two
	// fragments to be linked.
	ConnectivityAngle float64 `json:"connectivity_angle" toml:"connectivity_angle"`
}

// DefaultParams returns the empirical defaults.
func DefaultParams() Params {
	return Params{
		MinPoints:         10,
		ShapeCut:          0.2,
		AreaCut:           10,
		RadiusDevCut:      0.5,
		ConnectivityAngle: 3,
	}
}

// Validate returns a *ConfigurationError for the first invalid field.
func (p Params) Validate() error {
	if p.MinPoints < 0 {
		return &ConfigurationError{Field: "min_points", Value: p.MinPoints, Reason: "must be >= 0"}
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"shape_cut", p.ShapeCut},
		{"area_cut", p.AreaCut},
		{"radius_dev_cut", p.RadiusDevCut},
		{"connectivity_angle", p.ConnectivityAngle},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return &ConfigurationError{Field: c.name, Value: c.v, Reason: "must be finite"}
		}
		if c.v < 0 {
			return &ConfigurationError{Field: c.name, Value: c.v, Reason: "must be >= 0"}
		}
	}
	if p.ConnectivityAngle >= 180 {
		return &ConfigurationError{Field: "connectivity_angle", Value: p.ConnectivityAngle, Reason: "must be < 180 degrees"}
	}
	return nil
}
