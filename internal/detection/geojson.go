package detection

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
)

// GeoJSON encodes the catalogue as a FeatureCollection in pixel coordinates
// (x = column, y = row). Every edge becomes a Polygon feature with its
// descriptors as properties; every group becomes a Polygon of its box.
//
// When tolerance > 0 the edge outlines are simplified with Douglas-Peucker
// before encoding; descriptors are always those of the full outline.
func (c *Catalogue) GeoJSON(tolerance float64) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	for _, e := range c.Edges {
		ring := make(orb.Ring, len(e.Points))
		for i, p := range e.Points {
			ring[i] = orb.Point{p.X, p.Y}
		}
		if tolerance > 0 {
			if simplified, ok := simplify.DouglasPeucker(tolerance).Simplify(ring.Clone()).(orb.Ring); ok && len(simplified) >= 4 {
				ring = simplified
			}
		}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = e.ID
		f.Properties["kind"] = "edge"
		f.Properties["id"] = e.ID
		f.Properties["source_index"] = e.SourceIndex
		f.Properties["x_center"] = e.XCenter
		f.Properties["y_center"] = e.YCenter
		f.Properties["area"] = e.Area
		f.Properties["perimeter"] = e.Perimeter
		f.Properties["shape_factor"] = e.ShapeFactor
		f.Properties["radius_deviation"] = e.RadiusDeviation
		f.Properties["slope_angle"] = e.SlopeAngle
		f.Properties["intercept"] = e.Intercept
		f.Properties["connectivity"] = e.Connectivity
		f.Properties["length"] = e.Length
		f.Properties["thickness"] = e.Thickness
		fc.Append(f)
	}

	for i, g := range c.Groups {
		bound := orb.Bound{
			Min: orb.Point{g.Box.XMin, g.Box.YMin},
			Max: orb.Point{g.Box.XMax, g.Box.YMax},
		}
		f := geojson.NewFeature(bound.ToPolygon())
		f.ID = fmt.Sprintf("group-%d", i+1)
		f.Properties["kind"] = "group"
		f.Properties["root"] = g.Root
		f.Properties["ids"] = g.IDs
		fc.Append(f)
	}

	fc.ExtraMembers = geojson.Properties{"run_id": c.RunID}
	return fc.MarshalJSON()
}
