// Package imaging loads astronomical frames and renders streak catalogues
// onto them.
//
// It covers the image side of the server: decoding and caching frames,
// cutting windows around detected streak groups, drawing overview overlays
// and writing the figure set of a batch run.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel), the image column
//   - Y: vertical position (0 = topmost pixel), the image row
//   - For windows, (X1,Y1) is inclusive and (X2,Y2) is exclusive
//
// Edge and group coordinates from the detection package use the same axes
// but are fractional; they are widened outward to whole pixels when a window
// is cut.
//
// # Formats
//
// PNG, JPEG, GIF and TIFF are decoded. 16-bit grayscale frames keep their
// depth so the contour tracer sees the full dynamic range. All rendered
// output is PNG.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Rendering functions never
// modify their input image.
package imaging
