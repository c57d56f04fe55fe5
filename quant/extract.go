package quant

import (
	"cmp"
	"slices"

	"logopal/raster"
)

// ColorCount is one entry of a colour histogram.
type ColorCount struct {
	Color Color
	Count int
}

// CountColors tallies the exact RGB values of every pixel whose alpha is at
// least minAlpha. The result is sorted by descending count; equal counts keep
// the order in which the colours were first met in a row-major scan.
func CountColors(r *raster.Raster, minAlpha uint8) []ColorCount {
	index := make(map[Color]int)
	var counts []ColorCount

	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		i := r.PixOffset(r.Rect.Min.X, y)
		for x := 0; x < r.Rect.Dx(); x, i = x+1, i+4 {
			s := r.Pix[i : i+4 : i+4]
			if s[3] < minAlpha {
				continue
			}
			c := Color{R: s[0], G: s[1], B: s[2]}
			if n, ok := index[c]; ok {
				counts[n].Count++
				continue
			}
			index[c] = len(counts)
			counts = append(counts, ColorCount{Color: c, Count: 1})
		}
	}

	slices.SortStableFunc(counts, func(a, b ColorCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return counts
}

// Extract picks up to k dominant colours of r. Candidates are visited from
// most to least frequent and accepted only when they are at least
// th.Distinct away from every colour accepted so far. A raster without
// visible pixels yields an empty palette.
func Extract(r *raster.Raster, k int, th Thresholds) (Palette, error) {
	if r == nil {
		return nil, ErrNilRaster
	}
	if k < 1 {
		return nil, ErrInvalidMaxColors
	}
	return ExtractCounts(CountColors(r, th.VisibleAlpha), k, th)
}

// ExtractCounts is Extract over a histogram already built by CountColors
// with th.VisibleAlpha.
func ExtractCounts(counts []ColorCount, k int, th Thresholds) (Palette, error) {
	if k < 1 {
		return nil, ErrInvalidMaxColors
	}

	pal := make(Palette, 0, k)
	for _, cand := range counts {
		if len(pal) >= k {
			break
		}
		if distinct(cand.Color, pal, th.Distinct) {
			pal = append(pal, cand.Color)
		}
	}
	return pal, nil
}

func distinct(c Color, pal Palette, threshold float64) bool {
	for _, v := range pal {
		if c.Distance(v) < threshold {
			return false
		}
	}
	return true
}
