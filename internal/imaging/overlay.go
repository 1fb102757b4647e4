package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/streak-tools-mcp/internal/detection"
)

// OverlayOptions controls how a catalogue is drawn over its image.
type OverlayOptions struct {
	// BoxMargin pads each group box, in pixels.
	BoxMargin int

	// BoxColor is a "#RRGGBB" colour for all outlines and boxes. Empty gives
	// every group its own colour.
	BoxColor string

	// Labels draws each edge ID next to its first point.
	Labels bool

	// Stretch brightens the frame with a gamma curve so faint sky shows.
	Stretch bool
}

// OverlayResult contains the encoded overview image.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Groups      int    `json:"groups"`
	Edges       int    `json:"edges"`
}

const (
	dashOn  = 4
	dashOff = 3
)

// Overlay draws every edge outline and a dashed box around every group on a
// copy of img. Coordinates are relative to img.Bounds().Min.
func Overlay(img image.Image, cat *detection.Catalogue, opts OverlayOptions) (*image.NRGBA, error) {
	if opts.BoxMargin < 0 {
		return nil, fmt.Errorf("invalid box margin %d", opts.BoxMargin)
	}

	var base *image.NRGBA
	if opts.Stretch {
		base = imaging.AdjustGamma(imaging.Grayscale(img), 2.2)
	} else {
		base = imaging.Clone(img)
	}

	colors, err := groupColors(len(cat.Groups), opts.BoxColor)
	if err != nil {
		return nil, err
	}

	// An edge shared by several chains takes the colour of the first one.
	edgeColor := make(map[int]color.NRGBA, len(cat.Edges))
	for gi, g := range cat.Groups {
		for _, id := range g.IDs {
			if _, ok := edgeColor[id]; !ok {
				edgeColor[id] = colors[gi]
			}
		}
	}

	for _, e := range cat.Edges {
		c, ok := edgeColor[e.ID]
		if !ok {
			c = color.NRGBA{255, 255, 255, 255}
		}
		for i := 1; i < len(e.Points); i++ {
			a, b := e.Points[i-1], e.Points[i]
			drawLine(base, round(a.X), round(a.Y), round(b.X), round(b.Y), c)
		}
		if opts.Labels && len(e.Points) > 0 {
			drawText(base, round(e.Points[0].X), round(e.Points[0].Y), strconv.Itoa(e.ID), c)
		}
	}

	for gi, g := range cat.Groups {
		w := GroupWindow(g.Box, opts.BoxMargin, base.Bounds())
		drawDashedRect(base, w, colors[gi])
	}

	return base, nil
}

// OverlayBase64 renders Overlay and encodes it as a base64 PNG.
func OverlayBase64(img image.Image, cat *detection.Catalogue, opts OverlayOptions) (*OverlayResult, error) {
	out, err := Overlay(img, cat, opts)
	if err != nil {
		return nil, err
	}
	encoded, err := encodePNG(out)
	if err != nil {
		return nil, err
	}
	return &OverlayResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Groups:      len(cat.Groups),
		Edges:       len(cat.Edges),
	}, nil
}

// groupColors returns n colours: all the same when hex is set, otherwise
// evenly spaced hues at fixed chroma and lightness so neighbouring groups
// stay distinguishable.
func groupColors(n int, hex string) ([]color.NRGBA, error) {
	out := make([]color.NRGBA, n)
	if hex != "" {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid box color %q: %w", hex, err)
		}
		r, g, b := c.RGB255()
		for i := range out {
			out[i] = color.NRGBA{r, g, b, 255}
		}
		return out, nil
	}
	for i := range out {
		h := 360 * float64(i) / float64(n)
		r, g, b := colorful.Hcl(h, 0.7, 0.65).Clamped().RGB255()
		out[i] = color.NRGBA{r, g, b, 255}
	}
	return out, nil
}

func round(v float64) int { return int(math.Round(v)) }

// drawLine draws a 1-pixel Bresenham line, clipping at the image border.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setClipped(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// drawDashedRect outlines w; the right and bottom lines sit on the last
// pixel inside the window.
func drawDashedRect(img *image.NRGBA, w Window, c color.NRGBA) {
	if w.X2 <= w.X1 || w.Y2 <= w.Y1 {
		return
	}
	x2, y2 := w.X2-1, w.Y2-1
	for x := w.X1; x <= x2; x++ {
		if (x-w.X1)%(dashOn+dashOff) < dashOn {
			setClipped(img, x, w.Y1, c)
			setClipped(img, x, y2, c)
		}
	}
	for y := w.Y1; y <= y2; y++ {
		if (y-w.Y1)%(dashOn+dashOff) < dashOn {
			setClipped(img, w.X1, y, c)
			setClipped(img, x2, y, c)
		}
	}
}

// drawText writes label with its top-left corner near (x, y) on a dark
// backing so it reads on bright streaks.
func drawText(img *image.NRGBA, x, y int, label string, c color.NRGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, label).Ceil()
	backing := image.Rect(x, y, x+width+2, y+face.Height+1).Intersect(img.Bounds())
	draw.Draw(img, backing, image.NewUniform(color.NRGBA{0, 0, 0, 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x+1, y+face.Ascent),
	}
	d.DrawString(label)
}

func setClipped(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
