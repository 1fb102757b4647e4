package detection

import (
	"bufio"
	"fmt"
	"io"
)

// ReportHeader is the first line of the fixed-column streak report.
const ReportHeader = "#ID x_center y_center area perimeter shape_factor radius_deviation " +
	"slope_angle intercept connectivity start_x start_y end_x end_y length thickness"

// reportRow lays out one edge. The first ten columns match the historical
// streaks.txt layout and must not change.
const reportRow = "%2d %7.2f %7.2f %6.1f %6.1f %6.3f %6.2f %5.2f %7.2f %2d" +
	" %7.2f %7.2f %7.2f %7.2f %7.2f %6.2f\n"

// WriteReport writes the header and one row per edge, in slice order.
func WriteReport(w io.Writer, edges []Edge) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, ReportHeader); err != nil {
		return err
	}
	for _, e := range edges {
		if _, err := fmt.Fprintf(bw, reportRow,
			e.ID, e.XCenter, e.YCenter,
			e.Area, e.Perimeter, e.ShapeFactor,
			e.RadiusDeviation, e.SlopeAngle,
			e.Intercept, e.Connectivity,
			e.Start.X, e.Start.Y, e.End.X, e.End.Y,
			e.Length, e.Thickness,
		); err != nil {
			return err
		}
	}
	return bw.Flush()
}
