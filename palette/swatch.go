package palette

import (
	"image"

	"logopal/quant"
	"logopal/raster"
)

// Swatch renders pal as a strip of tileSize squares, one per colour, showing
// each colour as it is currently displayed.
func Swatch(pal quant.Palette, m quant.Mapping, tileSize int) *raster.Raster {
	if tileSize <= 0 {
		tileSize = 64
	}

	out := raster.New(image.Rect(0, 0, tileSize*len(pal), tileSize))
	for i, c := range pal {
		col := m.Lookup(c).NRGBA(0xFF)
		x0 := i * tileSize
		for y := range tileSize {
			for x := x0; x < x0+tileSize; x++ {
				out.SetNRGBA(x, y, col)
			}
		}
	}
	return out
}
