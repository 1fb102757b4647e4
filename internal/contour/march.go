package contour

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// Cell edges.
const (
	edgeTop = iota
	edgeRight
	edgeBottom
	edgeLeft
)

// cellCases lists the edge pairs joined by a segment for each corner
// configuration (ul=1, ur=2, lr=4, ll=8 set when above the level). Saddle
// cases 5 and 10 are resolved separately.
var cellCases = [16][][2]int{
	1:  {{edgeTop, edgeLeft}},
	2:  {{edgeTop, edgeRight}},
	3:  {{edgeLeft, edgeRight}},
	4:  {{edgeRight, edgeBottom}},
	6:  {{edgeTop, edgeBottom}},
	7:  {{edgeLeft, edgeBottom}},
	8:  {{edgeLeft, edgeBottom}},
	9:  {{edgeTop, edgeBottom}},
	11: {{edgeRight, edgeBottom}},
	12: {{edgeLeft, edgeRight}},
	13: {{edgeTop, edgeRight}},
	14: {{edgeTop, edgeLeft}},
}

var saddleCases = map[bool][16][][2]int{
	// High side 8-connected: the low corners are cut off.
	true: {
		5:  {{edgeTop, edgeRight}, {edgeLeft, edgeBottom}},
		10: {{edgeTop, edgeLeft}, {edgeRight, edgeBottom}},
	},
	// Low side 8-connected: the high corners are cut off.
	false: {
		5:  {{edgeTop, edgeLeft}, {edgeRight, edgeBottom}},
		10: {{edgeTop, edgeRight}, {edgeLeft, edgeBottom}},
	},
}

// vertex is a contour point in (row, column) image coordinates.
type vertex struct {
	row, col float64
}

type segment struct {
	from, to vertex
}

// cell is one 2x2 window of the grid with its top-left corner at (r, c).
type cell struct {
	r, c           int
	ul, ur, lr, ll float64
}

// point returns the level crossing on edge e. Every edge is interpolated from
// its top or left corner, so the two cells sharing an edge produce the same
// vertex bit for bit.
func (k cell) point(e int, level float64) vertex {
	r, c := float64(k.r), float64(k.c)
	switch e {
	case edgeTop:
		return vertex{r, c + crossing(k.ul, k.ur, level)}
	case edgeRight:
		return vertex{r + crossing(k.ur, k.lr, level), c + 1}
	case edgeBottom:
		return vertex{r + 1, c + crossing(k.ll, k.lr, level)}
	default:
		return vertex{r + crossing(k.ul, k.ll, level), c}
	}
}

func crossing(a, b, level float64) float64 {
	return (level - a) / (b - a)
}

// March traces the iso-lines of grid at level with marching squares and
// returns them as (row, column) polylines.
//
// A value strictly greater than level counts as inside. Closed loops end with
// an exact copy of their first point; lines cut by the grid border stay open.
// When connectHigh is true, saddle cells join their high corners.
func March(grid mat.Matrix, level float64, connectHigh bool) []detection.Contour {
	rows, cols := grid.Dims()
	saddles := saddleCases[connectHigh]

	var segs []segment
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			k := cell{
				r: r, c: c,
				ul: grid.At(r, c), ur: grid.At(r, c+1),
				lr: grid.At(r+1, c+1), ll: grid.At(r+1, c),
			}

			idx := 0
			if k.ul > level {
				idx |= 1
			}
			if k.ur > level {
				idx |= 2
			}
			if k.lr > level {
				idx |= 4
			}
			if k.ll > level {
				idx |= 8
			}

			pairs := cellCases[idx]
			if idx == 5 || idx == 10 {
				pairs = saddles[idx]
			}
			for _, p := range pairs {
				s := segment{from: k.point(p[0], level), to: k.point(p[1], level)}
				if s.from != s.to {
					segs = append(segs, s)
				}
			}
		}
	}

	return chain(segs)
}

// chain joins segments that share an endpoint into polylines, in the order
// their first segment was produced.
func chain(segs []segment) []detection.Contour {
	ends := make(map[vertex][]int, 2*len(segs))
	for i, s := range segs {
		ends[s.from] = append(ends[s.from], i)
		ends[s.to] = append(ends[s.to], i)
	}
	used := make([]bool, len(segs))

	next := func(v vertex) (vertex, bool) {
		for _, i := range ends[v] {
			if used[i] {
				continue
			}
			used[i] = true
			if segs[i].from == v {
				return segs[i].to, true
			}
			return segs[i].from, true
		}
		return vertex{}, false
	}

	var out []detection.Contour
	for i, s := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		line := []vertex{s.from, s.to}

		for line[len(line)-1] != line[0] {
			v, ok := next(line[len(line)-1])
			if !ok {
				break
			}
			line = append(line, v)
		}

		if line[len(line)-1] != line[0] {
			// Open line: walk back from the head as well.
			var head []vertex
			for cur := line[0]; ; {
				v, ok := next(cur)
				if !ok {
					break
				}
				head = append(head, v)
				cur = v
			}
			if len(head) > 0 {
				full := make([]vertex, 0, len(head)+len(line))
				for j := len(head) - 1; j >= 0; j-- {
					full = append(full, head[j])
				}
				line = append(full, line...)
			}
		}

		out = append(out, toContour(line))
	}
	return out
}

func toContour(line []vertex) detection.Contour {
	c := make(detection.Contour, len(line))
	for i, v := range line {
		c[i] = []float64{v.row, v.col}
	}
	return c
}
