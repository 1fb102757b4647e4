package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var runIDProperty = map[string]interface{}{
	"type":        "string",
	"description": "run_id returned by streak_detect or streak_detect_image",
}

// detectionProperties are the threshold overrides shared by both detection
// tools. Omitted values come from the server configuration.
func detectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"min_points": map[string]interface{}{
			"type":        "integer",
			"description": "Discard contours with this many points or fewer (default 10)",
		},
		"shape_cut": map[string]interface{}{
			"type":        "number",
			"description": "Maximum shape factor 4*pi*area/perimeter^2; lower rejects more round shapes (default 0.2)",
		},
		"area_cut": map[string]interface{}{
			"type":        "number",
			"description": "Minimum enclosed area in square pixels (default 10)",
		},
		"radius_dev_cut": map[string]interface{}{
			"type":        "number",
			"description": "Minimum radius deviation (default 0.5)",
		},
		"connectivity_angle": map[string]interface{}{
			"type":        "number",
			"description": "Maximum slope mismatch in degrees for linking fragments (default 3)",
		},
		"include_points": map[string]interface{}{
			"type":        "boolean",
			"description": "Include every edge outline in the result (default false)",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	detectImage := detectionProperties()
	detectImage["path"] = pathProperty
	detectImage["contour_threshold"] = map[string]interface{}{
		"type":        "number",
		"description": "Contour level in units of the background noise (default 3)",
	}
	detectImage["background"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"constant", "map"},
		"description": "Background model: one sigma-clipped level, or a map interpolated from boxes",
	}
	detectImage["box_size"] = map[string]interface{}{
		"type":        "integer",
		"description": "Box edge in pixels for the map background (default 50)",
	}
	detectImage["blur_radius"] = map[string]interface{}{
		"type":        "number",
		"description": "Gaussian blur radius applied before tracing; 0 disables (default 0)",
	}
	detectImage["fully_connected"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"high", "low"},
		"description": "Which side of the level is connected at saddle cells (default high)",
	}

	detectInline := detectionProperties()
	detectInline["contours"] = map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "array",
				"items":    map[string]interface{}{"type": "number"},
				"minItems": 2,
				"maxItems": 2,
			},
		},
		"description": "Polylines as lists of [row, column] pairs; closed ones repeat the first point at the end",
	}

	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and bit depth. The image stays cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "streak_detect",
			Description: "Find linear streaks among closed contours you supply. Returns a run_id, the quantified edges, their links and the streak groups.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectInline,
				"required":   []string{"contours"},
			},
		},
		{
			Name:        "streak_detect_image",
			Description: "Subtract the sky background of an astronomical frame, trace contours above the noise and find linear streaks (satellites, meteors) among them. Repeating a call with the same options returns the cached run.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectImage,
				"required":   []string{"path"},
			},
		},

		// Results of a run
		{
			Name:        "streak_report",
			Description: "Return the fixed-column text report of a run, one row per edge.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": runIDProperty,
				},
				"required": []string{"run_id"},
			},
		},
		{
			Name:        "streak_geojson",
			Description: "Return a run as a GeoJSON FeatureCollection in pixel coordinates: one polygon per edge and one box per group.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": runIDProperty,
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Douglas-Peucker tolerance in pixels for simplifying outlines; 0 keeps them whole",
					},
				},
				"required": []string{"run_id"},
			},
		},
		{
			Name:        "streak_crop",
			Description: "Cut the window around one streak group out of the run's image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": runIDProperty,
					"group": map[string]interface{}{
						"type":        "integer",
						"description": "Root edge ID of the group",
					},
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Padding around the group box in pixels (default from configuration, 10)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor for output (default 1.0, use 2.0 to zoom in)",
						"default":     1.0,
					},
				},
				"required": []string{"run_id", "group"},
			},
		},
		{
			Name:        "streak_overlay",
			Description: "Draw every edge outline and a dashed box around every group over the run's image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": runIDProperty,
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Padding around group boxes in pixels",
					},
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for all outlines, e.g. \"#FF0000\" (default: one colour per group)",
					},
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw edge IDs (default true)",
					},
					"stretch": map[string]interface{}{
						"type":        "boolean",
						"description": "Brighten the frame so faint sky is visible (default false)",
					},
				},
				"required": []string{"run_id"},
			},
		},
		{
			Name:        "streak_save",
			Description: "Write a run's streaks.txt, streaks.geojson and figures (all.png plus one cut-out per group) to a directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"run_id": runIDProperty,
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Output directory (default: the image path without its extension)",
					},
					"figures": map[string]interface{}{
						"type":        "boolean",
						"description": "Write the PNG figures (default from configuration)",
					},
				},
				"required": []string{"run_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
