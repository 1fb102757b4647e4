// Package contour traces iso-brightness contours in images for streak
// detection.
//
// An image is converted to a luminance grid, its sky background is estimated
// with sigma-clipped statistics and subtracted, and marching squares traces
// the residual at Threshold times the background noise. Contours are returned
// as (row, column) polylines, the input format of the detection package.
//
// # Background
//
// In "constant" mode one clipped median is removed from every pixel. In
// "map" mode the image is split into BoxSize boxes, each box gets its own
// clipped median, the box levels are median-filtered and then interpolated
// between box centres. Either way the noise used for the level is a clipped
// population standard deviation.
//
// # Contours
//
// Closed contours end with an exact copy of their first point. Contours that
// run into the image border are returned open; the detection package rejects
// them.
package contour
