package detection

import "math"

// verticalAngle is the connecting-slope angle used when two centroids share
// the same x, where the slope itself is undefined.
const verticalAngle = 90.0

// Link connects fragments that continue one another.
//
// Pairs (i, j), i < j, are scanned in ascending order. Edge i links to edge j
// when their slope angles differ by at most maxAngle and the line through
// both centroids is within maxAngle of each slope. The first compatible j
// wins, so the result depends on edge order. Links are directed and several
// edges may link to the same target.
func Link(in EdgeSet, maxAngle float64) EdgeSet {
	out := in.Edges()
	for i := range out {
		out[i].Connectivity = NoConnection
	}

	for i := 0; i < len(out)-1; i++ {
		a := &out[i]
		for j := i + 1; j < len(out); j++ {
			b := out[j]
			if math.Abs(a.SlopeAngle-b.SlopeAngle) > maxAngle {
				continue
			}
			c := ConnectingAngle(*a, b)
			if math.Abs(c-a.SlopeAngle) <= maxAngle && math.Abs(c-b.SlopeAngle) <= maxAngle {
				a.Connectivity = b.ID
				break
			}
		}
	}

	return EdgeSet{edges: out}
}

// ConnectingAngle returns atan of the slope between the centroids of a and b
// in degrees. A vertical connecting line, including coincident centroids,
// yields 90.
func ConnectingAngle(a, b Edge) float64 {
	dx := a.XCenter - b.XCenter
	if dx == 0 {
		return verticalAngle
	}
	return math.Atan((a.YCenter-b.YCenter)/dx) * radToDeg
}
