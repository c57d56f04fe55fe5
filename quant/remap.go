package quant

import (
	"logopal/raster"
)

// Remap builds a new raster of the same bounds as src in which every visible
// pixel takes the colour of its nearest palette entry, after substitution.
// Pixels whose entry is erased, nearly transparent pixels, and every pixel
// when the palette is empty come out fully transparent. src is not modified.
func Remap(src *raster.Raster, pal Palette, s Settings, th Thresholds) *raster.Raster {
	out := raster.New(src.Rect)

	// Resolve substitutions once per palette entry rather than per pixel.
	display := make([]Color, len(pal))
	erased := make([]bool, len(pal))
	for i, c := range pal {
		display[i] = s.Mapping.Lookup(c)
		erased[i] = s.Erased.Has(c)
	}

	for y := src.Rect.Min.Y; y < src.Rect.Max.Y; y++ {
		i := src.PixOffset(src.Rect.Min.X, y)
		j := out.PixOffset(out.Rect.Min.X, y)
		for x := 0; x < src.Rect.Dx(); x, i, j = x+1, i+4, j+4 {
			p := src.Pix[i : i+4 : i+4]
			d := out.Pix[j : j+4 : j+4]

			alpha := p[3]
			if alpha < th.TransparentAlpha {
				continue
			}

			n := pal.Nearest(Color{R: p[0], G: p[1], B: p[2]})
			if n < 0 || erased[n] {
				continue
			}

			if alpha > th.OpaqueAlpha {
				alpha = 0xFF
			}
			c := display[n]
			d[0], d[1], d[2], d[3] = c.R, c.G, c.B, alpha
		}
	}

	return out
}
