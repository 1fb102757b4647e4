package contour

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// Stats are sigma-clipped statistics of a pixel sample.
type Stats struct {
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	Std        float64 `json:"std"`
	Kept       int     `json:"kept"`
	Iterations int     `json:"iterations"`
}

// ClippedStats repeatedly discards values further than sigma standard
// deviations from the median until nothing changes or maxIter passes have
// run. The standard deviation is the population one.
func ClippedStats(values []float64, sigma float64, maxIter int) (Stats, error) {
	if len(values) == 0 {
		return Stats{}, errors.New("no values to clip")
	}
	data := make([]float64, len(values))
	copy(data, values)

	var s Stats
	for s.Iterations < maxIter {
		med := detection.Median(data)
		_, std := stat.PopMeanStdDev(data, nil)
		lo, hi := med-sigma*std, med+sigma*std

		kept := data[:0:0]
		for _, v := range data {
			if v >= lo && v <= hi {
				kept = append(kept, v)
			}
		}
		s.Iterations++
		if len(kept) == len(data) || len(kept) == 0 {
			break
		}
		data = kept
	}

	s.Mean, s.Std = stat.PopMeanStdDev(data, nil)
	s.Median = detection.Median(data)
	s.Kept = len(data)
	return s, nil
}

// Background is the sky level removed before tracing.
type Background struct {
	// Level is the median background: the clipped median in constant mode,
	// the median of the box levels in map mode.
	Level float64 `json:"level"`

	// Std is the background noise the contour level is scaled by.
	Std float64 `json:"std"`

	Mode string `json:"mode"`

	// Map is the per-pixel background in map mode, nil otherwise.
	Map *mat.Dense `json:"-"`
}

// Subtract returns grid minus the background.
func (b Background) Subtract(grid *mat.Dense) *mat.Dense {
	var out mat.Dense
	if b.Map != nil {
		out.Sub(grid, b.Map)
		return &out
	}
	out.Apply(func(_, _ int, v float64) float64 { return v - b.Level }, grid)
	return &out
}

// EstimateBackground measures the background of grid according to o.
func EstimateBackground(grid *mat.Dense, o Options) (Background, error) {
	if o.Background == BackgroundMap {
		return backgroundMap(grid, o)
	}
	rows, cols := grid.Dims()
	values := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		values = append(values, grid.RawRowView(r)...)
	}
	s, err := ClippedStats(values, o.Sigma, o.ClipIterations)
	if err != nil {
		return Background{}, err
	}
	return Background{Level: s.Median, Std: s.Std, Mode: BackgroundConstant}, nil
}

// backgroundMap computes clipped statistics per box, smooths the box levels
// with a 3x3 median filter and interpolates them bilinearly between box
// centres.
func backgroundMap(grid *mat.Dense, o Options) (Background, error) {
	rows, cols := grid.Dims()
	box := o.BoxSize
	ny := (rows + box - 1) / box
	nx := (cols + box - 1) / box

	levels := mat.NewDense(ny, nx, nil)
	stds := make([]float64, 0, ny*nx)
	for by := 0; by < ny; by++ {
		for bx := 0; bx < nx; bx++ {
			r1, c1 := min(rows, (by+1)*box), min(cols, (bx+1)*box)
			values := make([]float64, 0, box*box)
			for r := by * box; r < r1; r++ {
				values = append(values, grid.RawRowView(r)[bx*box:c1]...)
			}
			s, err := ClippedStats(values, o.Sigma, o.MapClipIterations)
			if err != nil {
				return Background{}, err
			}
			levels.Set(by, bx, s.Median)
			stds = append(stds, s.Std)
		}
	}

	levels = medianFilter3(levels)

	bg := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		fy, y0, y1 := boxCoord(r, box, ny)
		for c := 0; c < cols; c++ {
			fx, x0, x1 := boxCoord(c, box, nx)
			top := levels.At(y0, x0)*(1-fx) + levels.At(y0, x1)*fx
			bottom := levels.At(y1, x0)*(1-fx) + levels.At(y1, x1)*fx
			bg.Set(r, c, top*(1-fy)+bottom*fy)
		}
	}

	return Background{
		Level: detection.Median(levels.RawMatrix().Data),
		Std:   detection.Median(stds),
		Mode:  BackgroundMap,
		Map:   bg,
	}, nil
}

// boxCoord maps pixel i to the two nearest box centres and the weight of the
// second one.
func boxCoord(i, box, n int) (frac float64, lo, hi int) {
	pos := (float64(i)+0.5)/float64(box) - 0.5
	if pos <= 0 {
		return 0, 0, 0
	}
	if pos >= float64(n-1) {
		return 0, n - 1, n - 1
	}
	lo = int(math.Floor(pos))
	return pos - float64(lo), lo, lo + 1
}

func medianFilter3(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	window := make([]float64, 0, 9)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			window = window[:0]
			for y := max(0, r-1); y <= min(rows-1, r+1); y++ {
				for x := max(0, c-1); x <= min(cols-1, c+1); x++ {
					window = append(window, m.At(y, x))
				}
			}
			out.Set(r, c, detection.Median(window))
		}
	}
	return out
}
