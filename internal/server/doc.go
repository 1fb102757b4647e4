// Package server implements the MCP (Model Context Protocol) server for
// streak detection tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the detection
// pipeline and its image rendering through the MCP protocol, so an MCP
// client can find satellite and meteor trails in astronomical frames and
// inspect them.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Detection:
//   - streak_detect: Run the pipeline over contours supplied inline
//   - streak_detect_image: Trace an image and run the pipeline over it
//
// Results of a run:
//   - streak_report: Fixed-column text report
//   - streak_geojson: GeoJSON FeatureCollection of outlines and groups
//   - streak_crop: PNG window around one group
//   - streak_overlay: PNG of the frame with outlines and group boxes
//   - streak_save: Write report, GeoJSON and figures to a directory
//
// # Runs
//
// Every detection returns a run_id. The most recent catalogues are kept in
// memory so the result tools can refer to them; the oldest are dropped once
// the limit is reached. Image runs are also keyed by path and options, so
// repeating streak_detect_image with the same arguments returns the cached
// run instead of tracing again.
//
// Thresholds omitted from a call come from the configuration the server
// was started with.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Per-contour failures never fail a detection; they are listed in the
// result's errors and counted in its diagnostics.
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal("server stopped", zap.Error(err))
//	}
package server
