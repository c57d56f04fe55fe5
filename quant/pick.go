package quant

import (
	"image"
	"math"

	"logopal/raster"
)

// Pick resolves the palette entry a user clicked at pt on the displayed
// output. The sampled colour is compared with what each entry currently
// looks like, i.e. after substitution. It reports false when pt is outside
// the output, lands on a transparent pixel, or no displayed colour is closer
// than th.PickTolerance.
func Pick(out *raster.Raster, pt image.Point, pal Palette, m Mapping, th Thresholds) (int, bool) {
	if out == nil || !pt.In(out.Rect) {
		return -1, false
	}

	px := out.NRGBAAt(pt.X, pt.Y)
	if px.A == 0 {
		return -1, false
	}
	sample := FromNRGBA(px)

	found, minDist := -1, math.Inf(1)
	for i, c := range pal {
		if d := sample.Distance(m.Lookup(c)); d < minDist {
			found, minDist = i, d
		}
	}

	if found < 0 || minDist >= th.PickTolerance {
		return -1, false
	}
	return found, true
}
