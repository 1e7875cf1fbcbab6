// Package render draws temperature fields as PNG world maps.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/rtm0/nino34/internal/climate"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// KelvinOffset converts Kelvin to Celsius.
const KelvinOffset = 273.15

// Map extent, as (lat°N, lon°E).
const (
	latMin = -89.0
	latMax = 89.0
	lonMin = 0.0
	lonMax = 360.0
)

const (
	margin     = 10
	titleH     = 20
	barGap     = 10
	barH       = 14
	labelH     = 16
	defaultW   = 800
	minMapSize = 16
)

// Options controls map rendering.
type Options struct {
	// Width of the image in pixels. Default: 800.
	Width int
	// Region is outlined on the map. Default: climate.Nino34.
	Region *climate.Region
	// MinC and MaxC fix the colour scale in °C. When equal the scale spans
	// the slice's range.
	MinC, MaxC float64
}

// Map renders time slice t of the field as a PNG.
func Map(w io.Writer, f *climate.Field, t int, opts Options) error {
	img, err := Image(f, t, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Image renders time slice t of the field.
func Image(f *climate.Field, t int, opts Options) (*image.RGBA, error) {
	grid, err := f.Slice(t)
	if err != nil {
		return nil, err
	}
	if opts.Width == 0 {
		opts.Width = defaultW
	}
	region := climate.Nino34
	if opts.Region != nil {
		region = *opts.Region
	}
	p := newProjection(opts.Width - 2*margin)
	if p.w < minMapSize {
		return nil, fmt.Errorf("width %d too small", opts.Width)
	}

	lo, hi := opts.MinC, opts.MaxC
	if lo == hi {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, v := range grid {
			lo = math.Min(lo, v-KelvinOffset)
			hi = math.Max(hi, v-KelvinOffset)
		}
		if lo == hi {
			hi = lo + 1
		}
	}

	height := margin + titleH + p.h + barGap + barH + labelH + margin
	img := image.NewRGBA(image.Rect(0, 0, opts.Width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	// Temperature cells.
	ox, oy := margin, margin+titleH
	nlon := len(f.Lons)
	// -1 marks pixels outside the field's coverage; they stay white.
	rowIdx := make([]int, p.h)
	latLo, latHi := extent(f.Lats)
	for py := range rowIdx {
		rowIdx[py] = -1
		if lat := p.lat(py); lat >= latLo && lat <= latHi {
			rowIdx[py] = f.Lats.Nearest(lat)
		}
	}
	colIdx := make([]int, p.w)
	lonLo, lonHi := extent(f.Lons)
	global := lonHi-lonLo >= 360
	for px := range colIdx {
		colIdx[px] = -1
		if lon := p.lon(px); global || (lon >= lonLo && lon <= lonHi) {
			colIdx[px] = f.Lons.Nearest(lon)
		}
	}
	for py := 0; py < p.h; py++ {
		if rowIdx[py] < 0 {
			continue
		}
		row := grid[rowIdx[py]*nlon : (rowIdx[py]+1)*nlon]
		for px := 0; px < p.w; px++ {
			if colIdx[px] < 0 {
				continue
			}
			c := row[colIdx[px]] - KelvinOffset
			img.SetRGBA(ox+px, oy+py, Jet((c-lo)/(hi-lo)))
		}
	}

	// Region outline.
	corners := region.Polygon()
	x0, y0 := p.xy(corners[2][0], corners[2][1])
	x1, y1 := p.xy(corners[0][0], corners[0][1])
	rect(img, ox+x0, oy+y0, ox+x1, oy+y1, color.RGBA{A: 0xff})

	// Colour bar with its range.
	by := oy + p.h + barGap
	for px := 0; px < p.w; px++ {
		c := Jet(float64(px) / float64(p.w-1))
		for py := by; py < by+barH; py++ {
			img.SetRGBA(ox+px, py, c)
		}
	}
	label(img, ox, by+barH+labelH-3, fmt.Sprintf("%.1f C", lo))
	hiLabel := fmt.Sprintf("%.1f C", hi)
	label(img, ox+p.w-7*len(hiLabel), by+barH+labelH-3, hiLabel)

	label(img, ox, margin+titleH-6, "Temperature map "+f.Times[t].Format("2006-01"))
	return img, nil
}

// extent returns the span covered by the cells centred on a, reaching half
// a grid step past the outer coordinates.
func extent(a climate.Axis) (lo, hi float64) {
	half := 0.5
	if n := len(a); n > 1 {
		half = (a[n-1] - a[0]) / float64(n-1) / 2
	}
	return a[0] - half, a[len(a)-1] + half
}

// projection maps (lat, lon) onto a Miller cylindrical map w pixels wide.
type projection struct {
	w, h       int
	yMin, yMax float64
}

func newProjection(w int) projection {
	p := projection{w: w, yMin: miller(latMin), yMax: miller(latMax)}
	p.h = int(math.Round(float64(w) * (p.yMax - p.yMin) / ((lonMax - lonMin) * math.Pi / 180)))
	return p
}

func miller(lat float64) float64 {
	phi := lat * math.Pi / 180
	return 1.25 * math.Log(math.Tan(math.Pi/4+0.4*phi))
}

func invMiller(y float64) float64 {
	return (2.5*math.Atan(math.Exp(0.8*y)) - 0.625*math.Pi) * 180 / math.Pi
}

// lat returns the latitude at the centre of pixel row py.
func (p projection) lat(py int) float64 {
	y := p.yMax - (float64(py)+0.5)/float64(p.h)*(p.yMax-p.yMin)
	return invMiller(y)
}

// lon returns the longitude at the centre of pixel column px.
func (p projection) lon(px int) float64 {
	return lonMin + (float64(px)+0.5)/float64(p.w)*(lonMax-lonMin)
}

func (p projection) xy(lat, lon float64) (int, int) {
	lat = math.Max(latMin, math.Min(latMax, lat))
	x := (lon - lonMin) / (lonMax - lonMin) * float64(p.w)
	y := (p.yMax - miller(lat)) / (p.yMax - p.yMin) * float64(p.h)
	return int(math.Round(x)), int(math.Round(y))
}

// Jet maps v in [0, 1] onto the jet colour map: blue, cyan, yellow, red.
func Jet(v float64) color.RGBA {
	v = math.Max(0, math.Min(1, v))
	ch := func(centre float64) uint8 {
		return uint8(math.Round(255 * math.Max(0, math.Min(1, 1.5-math.Abs(4*v-centre)))))
	}
	return color.RGBA{R: ch(3), G: ch(2), B: ch(1), A: 0xff}
}

func rect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, c)
		img.SetRGBA(x, y1, c)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, c)
		img.SetRGBA(x1, y, c)
	}
}

func label(img *image.RGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
