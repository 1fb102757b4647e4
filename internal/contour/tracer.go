package contour

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// Result is the output of tracing one image.
type Result struct {
	Contours   []detection.Contour `json:"-"`
	Background Background          `json:"background"`

	// Level is the contour level applied to the background-subtracted image.
	Level float64 `json:"level"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Options are the settings the image was traced with.
	Options Options `json:"options"`
}

// Tracer turns images into contours.
type Tracer struct {
	opts   Options
	logger *zap.Logger
}

// NewTracer validates o and returns a Tracer. A nil logger disables logging.
func NewTracer(o Options, logger *zap.Logger) (*Tracer, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{opts: o, logger: logger}, nil
}

// Trace removes the background from img and traces it at
// Threshold times the background noise.
func (t *Tracer) Trace(img image.Image) (*Result, error) {
	grid := Grid(img, t.opts.BlurRadius)
	rows, cols := grid.Dims()
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("image too small to trace: %dx%d", cols, rows)
	}

	bg, err := EstimateBackground(grid, t.opts)
	if err != nil {
		return nil, fmt.Errorf("estimate background: %w", err)
	}

	level := bg.Std * t.opts.Threshold
	contours := March(bg.Subtract(grid), level, t.opts.FullyConnected == ConnectHigh)

	t.logger.Debug("traced image",
		zap.Int("width", cols),
		zap.Int("height", rows),
		zap.String("background", bg.Mode),
		zap.Float64("background_level", bg.Level),
		zap.Float64("background_std", bg.Std),
		zap.Float64("level", level),
		zap.Int("contours", len(contours)))

	return &Result{
		Contours:   contours,
		Background: bg,
		Level:      level,
		Width:      cols,
		Height:     rows,
		Options:    t.opts,
	}, nil
}

// Grid converts img to a luminance grid with one matrix row per image row.
//
// 16-bit grayscale images keep their full depth unless blurred; everything
// else goes through an 8-bit grayscale conversion, which stores the
// luminance in every RGB channel. An empty image yields a 1x1 grid.
func Grid(img image.Image, blurRadius float64) *mat.Dense {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		// mat.NewDense rejects zero dimensions.
		return mat.NewDense(1, 1, nil)
	}

	if g16, ok := img.(*image.Gray16); ok && blurRadius <= 0 {
		data := make([]float64, 0, w*h)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				data = append(data, float64(g16.Gray16At(x, y).Y))
			}
		}
		return mat.NewDense(h, w, data)
	}

	if blurRadius > 0 {
		img = blur.Gaussian(img, blurRadius)
	}
	gray := effect.Grayscale(img)
	gb := gray.Bounds()

	data := make([]float64, 0, w*h)
	for y := gb.Min.Y; y < gb.Max.Y; y++ {
		for x := gb.Min.X; x < gb.Max.X; x++ {
			data = append(data, float64(gray.RGBAAt(x, y).R))
		}
	}
	return mat.NewDense(h, w, data)
}
