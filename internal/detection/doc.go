// Package detection finds linear streaks among closed boundary polylines.
//
// Satellites, meteors and cosmic-ray hits leave thin, elongated traces in
// astronomical images. Once an upstream tracer has turned an image into
// closed contours, this package decides which of them are streaks and which
// fragments belong to the same physical trail.
//
// # Pipeline
//
// A run is strictly linear. Each phase consumes an EdgeSet and returns a new
// one, so every phase can be tested on its own:
//
//  1. Ingest: keep closed contours with more than MinPoints points
//  2. Quantify: area, centroid, perimeter, shape factor, radius deviation
//  3. Filter: keep elongated, large, irregular shapes; renumber 1..K
//  4. Fit: least-squares line, slope angle and endpoints per edge
//  5. Link: connect fragments whose slopes and centroid line agree
//  6. Assemble: follow links into groups with a combined bounding box
//
// Detector.Run chains all six and returns a Catalogue.
//
// # Coordinate System
//
// Input contours are (row, column) pairs as produced by marching squares.
// Internally X is the column and Y the row, both in pixels.
//
// # Shape Descriptors
//
// The shape factor 4π·A/P² is 1.0 for a circle, about 0.785 for a square and
// close to zero for a thread. The radius deviation is the population standard
// deviation of the centroid distances around their median, divided by that
// median; round sources score low, streak outlines high.
//
// # Linking
//
// Linking is greedy: for each edge the first later edge that passes the angle
// tests wins. The result depends on edge order and is not an optimal
// matching. Links are directed, several edges may point at the same target,
// and Assemble guards against cycles.
//
// # Errors
//
// Bad contours never abort a run. Malformed input, degenerate shapes and
// failed fits are returned as typed errors in Catalogue.Errors and counted in
// Diagnostics. Only invalid Params are fatal, and they are rejected before
// any contour is read.
package detection
