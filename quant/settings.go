package quant

import (
	"cmp"
	"maps"
	"slices"
)

// Mapping substitutes palette colours. Absent keys keep their colour.
type Mapping map[Color]Color

// Lookup returns the displayed colour for palette colour c.
func (m Mapping) Lookup(c Color) Color {
	if v, ok := m[c]; ok {
		return v
	}
	return c
}

// EraseSet holds palette colours rendered fully transparent.
type EraseSet map[Color]struct{}

func (e EraseSet) Has(c Color) bool {
	_, ok := e[c]
	return ok
}

// Sorted returns the erased colours in palette order, followed by any
// colours the palette does not hold in hex order.
func (e EraseSet) Sorted(pal Palette) []Color {
	out := make([]Color, 0, len(e))
	for _, c := range pal {
		if e.Has(c) {
			out = append(out, c)
		}
	}
	var rest []Color
	for c := range e {
		if !pal.Contains(c) {
			rest = append(rest, c)
		}
	}
	slices.SortFunc(rest, func(a, b Color) int {
		return cmp.Compare(a.key(), b.key())
	})
	return append(out, rest...)
}

// Settings are the user inputs of one render. A Settings value is never
// mutated once built: the With* methods return a modified copy.
type Settings struct {
	MaxColors int
	Mapping   Mapping
	Erased    EraseSet
}

func NewSettings(maxColors int) Settings {
	return Settings{
		MaxColors: maxColors,
		Mapping:   Mapping{},
		Erased:    EraseSet{},
	}
}

func (s Settings) clone() Settings {
	return Settings{
		MaxColors: s.MaxColors,
		Mapping:   maps.Clone(s.Mapping),
		Erased:    maps.Clone(s.Erased),
	}
}

func (s Settings) WithMaxColors(k int) Settings {
	out := s.clone()
	out.MaxColors = k
	return out
}

// WithSubstitute adds or overwrites the substitute for from.
func (s Settings) WithSubstitute(from, to Color) Settings {
	out := s.clone()
	if out.Mapping == nil {
		out.Mapping = Mapping{}
	}
	out.Mapping[from] = to
	return out
}

// WithEraseToggled adds c to the erase set, or removes it if present.
func (s Settings) WithEraseToggled(c Color) Settings {
	out := s.clone()
	if out.Erased == nil {
		out.Erased = EraseSet{}
	}
	if out.Erased.Has(c) {
		delete(out.Erased, c)
	} else {
		out.Erased[c] = struct{}{}
	}
	return out
}

// WithoutEdits clears the mapping and the erase set.
func (s Settings) WithoutEdits() Settings {
	return NewSettings(s.MaxColors)
}

// Prune drops mapping and erase entries whose key is not in pal.
func (s Settings) Prune(pal Palette) Settings {
	out := NewSettings(s.MaxColors)
	for k, v := range s.Mapping {
		if pal.Contains(k) {
			out.Mapping[k] = v
		}
	}
	for k := range s.Erased {
		if pal.Contains(k) {
			out.Erased[k] = struct{}{}
		}
	}
	return out
}

