package detection

// Filter keeps the edges that look like streaks and renumbers them 1..K.
//
// An edge is kept when it is elongated (ShapeFactor <= ShapeCut), large
// enough (Area >= AreaCut) and irregular (RadiusDeviation >= RadiusDevCut).
// Round sources such as stars fail the first and last tests.
func Filter(in EdgeSet, p Params) EdgeSet {
	out := make([]Edge, 0, len(in.edges))
	for _, e := range in.edges {
		if e.ShapeFactor <= p.ShapeCut &&
			e.Area >= p.AreaCut &&
			e.RadiusDeviation >= p.RadiusDevCut {
			out = append(out, e)
		}
	}
	renumber(out)
	return EdgeSet{edges: out}
}
