// Package quant reduces a raster to a small palette of its dominant colours
// and recolours it from user edits.
package quant

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// MaxDistance is the distance between black and white.
var MaxDistance = math.Sqrt(3 * 255 * 255)

// Color is an opaque 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

func FromNRGBA(c color.NRGBA) Color {
	return Color{R: c.R, G: c.G, B: c.B}
}

func (c Color) key() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// NRGBA returns the colour with the given alpha.
func (c Color) NRGBA(alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

// Dist2 returns the squared Euclidean distance in RGB space.
func (c Color) Dist2(o Color) int {
	dr := int(c.R) - int(o.R)
	dg := int(c.G) - int(o.G)
	db := int(c.B) - int(o.B)
	return dr*dr + dg*dg + db*db
}

func (c Color) Distance(o Color) float64 {
	return math.Sqrt(float64(c.Dist2(o)))
}

func (c Color) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.Hex()
}

func (c Color) String() string {
	return c.Hex()
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseHex reads #rgb or #rrggbb.
func ParseHex(s string) (Color, error) {
	col, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w %q: %w", ErrInvalidHex, s, err)
	}
	r, g, b := col.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// Palette is an ordered list of colours, most frequent first.
type Palette []Color

// Index returns the position of c in the palette, or -1.
func (p Palette) Index(c Color) int {
	for i, v := range p {
		if v == c {
			return i
		}
	}
	return -1
}

func (p Palette) Contains(c Color) bool {
	return p.Index(c) >= 0
}

// Nearest returns the index of the palette entry closest to c. Ties go to
// the lowest index. An empty palette yields -1.
func (p Palette) Nearest(c Color) int {
	best, bestSum := -1, math.MaxInt
	for i, v := range p {
		sum := c.Dist2(v)
		if sum < bestSum {
			if sum == 0 {
				return i
			}
			best, bestSum = i, sum
		}
	}
	return best
}

func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// ColorPalette returns the colour every entry of p is displayed as under m,
// in palette order. It is the palette of GIF output.
func (p Palette) ColorPalette(m Mapping) color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = m.Lookup(c).NRGBA(0xFF)
	}
	return out
}
