package quant

import (
	"fmt"

	"logopal/raster"
)

// Result is the outcome of one full recompute.
type Result struct {
	Palette  Palette
	Settings Settings // Settings pruned to Palette
	Output   *raster.Raster
}

// Render extracts the palette of src and remaps src with it. The result only
// depends on its arguments.
func Render(src *raster.Raster, s Settings, th Thresholds) (Result, error) {
	pal, err := Extract(src, s.MaxColors, th)
	if err != nil {
		return Result{}, fmt.Errorf("could not extract palette: %w", err)
	}

	s = s.Prune(pal)
	return Result{
		Palette:  pal,
		Settings: s,
		Output:   Remap(src, pal, s, th),
	}, nil
}
