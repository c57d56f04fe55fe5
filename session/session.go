// Package session owns the state of one interactive recolouring session: the
// working raster, the user's edits and the last rendered output.
package session

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"logopal/quant"
	"logopal/raster"
)

const (
	MinColors        = 2
	MaxColors        = 8
	DefaultMaxColors = 4
)

// Config holds the construction parameters of a Session.
type Config struct {
	Thresholds quant.Thresholds
	MaxColors  int          // Initial palette size
	Logger     *slog.Logger // Defaults to slog.Default()
}

func DefaultConfig() Config {
	return Config{
		Thresholds: quant.DefaultThresholds(),
		MaxColors:  DefaultMaxColors,
	}
}

// View is a committed render together with the settings that produced it.
type View struct {
	Generation uint64
	Palette    quant.Palette
	Settings   quant.Settings
	Output     *raster.Raster
}

// Session serialises edits and renders. Every edit replaces the settings
// value and bumps the generation; a render only commits if the generation it
// started from is still current.
type Session struct {
	mu     sync.Mutex
	th     quant.Thresholds
	logger *slog.Logger
	render func(*raster.Raster, quant.Settings, quant.Thresholds) (quant.Result, error)

	source   *raster.Raster
	format   string
	settings quant.Settings
	gen      uint64
	view     View
}

func New(cfg Config) (*Session, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := checkMaxColors(cfg.MaxColors); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Session{
		th:       cfg.Thresholds,
		logger:   cfg.Logger,
		render:   quant.Render,
		settings: quant.NewSettings(cfg.MaxColors),
	}, nil
}

func checkMaxColors(k int) error {
	if k < MinColors || k > MaxColors {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrMaxColorsRange, k, MinColors, MaxColors)
	}
	return nil
}

// Load decodes a new source image, clears every edit and renders it. Images
// whose header declares more than MaxPixels pixels are rejected before
// decoding. On a decode failure the previous image and edits are kept.
func (s *Session) Load(r io.Reader) (View, error) {
	src, format, err := raster.DecodeLimit(r, s.th.MaxPixels)
	if err != nil {
		return View{}, err
	}
	return s.LoadRaster(src, format)
}

// LoadRaster is Load for an already decoded raster.
func (s *Session) LoadRaster(src *raster.Raster, format string) (View, error) {
	if src == nil {
		return View{}, quant.ErrNilRaster
	}
	working := raster.Fit(src, s.th.MaxDimension)
	if working == src {
		working = src.Clone()
	}

	s.mu.Lock()
	s.source = working
	s.format = format
	s.settings = s.settings.WithoutEdits()
	s.gen++
	// Edits are checked against the committed palette; until the new image
	// renders there is none.
	s.view = View{}
	s.mu.Unlock()

	s.logger.Info("image loaded", "format", format,
		"width", src.Rect.Dx(), "height", src.Rect.Dy(),
		"working_width", working.Rect.Dx(), "working_height", working.Rect.Dy())

	return s.Recompute()
}

// SetSubstitute makes every pixel of palette colour from render as to.
func (s *Session) SetSubstitute(from, to quant.Color) (View, error) {
	return s.edit("substitute", func(st quant.Settings, pal quant.Palette) (quant.Settings, error) {
		if !pal.Contains(from) {
			return st, fmt.Errorf("%w: %s", ErrUnknownColor, from)
		}
		return st.WithSubstitute(from, to), nil
	}, "from", from, "to", to)
}

// ToggleErase switches palette colour c between erased and visible.
func (s *Session) ToggleErase(c quant.Color) (View, error) {
	return s.edit("toggle erase", func(st quant.Settings, pal quant.Palette) (quant.Settings, error) {
		if !pal.Contains(c) {
			return st, fmt.Errorf("%w: %s", ErrUnknownColor, c)
		}
		return st.WithEraseToggled(c), nil
	}, "color", c)
}

// SetMaxColors changes the palette size and re-extracts the palette. Edits
// of colours that drop out of the new palette are discarded.
func (s *Session) SetMaxColors(k int) (View, error) {
	if err := checkMaxColors(k); err != nil {
		return View{}, err
	}
	return s.edit("max colors", func(st quant.Settings, _ quant.Palette) (quant.Settings, error) {
		return st.WithMaxColors(k), nil
	}, "k", k)
}

// ResetEdits drops every substitution and erasure.
func (s *Session) ResetEdits() (View, error) {
	return s.edit("reset", func(st quant.Settings, _ quant.Palette) (quant.Settings, error) {
		return st.WithoutEdits(), nil
	})
}

func (s *Session) edit(name string, f func(quant.Settings, quant.Palette) (quant.Settings, error), args ...any) (View, error) {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return View{}, ErrNoImage
	}
	next, err := f(s.settings, s.view.Palette)
	if err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	s.settings = next
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.logger.Debug("edit", append([]any{"op", name, "generation", gen}, args...)...)
	return s.Recompute()
}

// Recompute renders the current settings from the working raster. If the
// settings change while rendering, the result is dropped and ErrStale is
// returned.
func (s *Session) Recompute() (View, error) {
	s.mu.Lock()
	src, settings, gen := s.source, s.settings, s.gen
	s.mu.Unlock()

	if src == nil {
		return View{}, ErrNoImage
	}

	res, err := s.render(src, settings, s.th)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.logger.Debug("discarding stale render", "generation", gen, "current", s.gen)
		return View{}, ErrStale
	}

	s.settings = res.Settings
	s.view = View{
		Generation: gen,
		Palette:    res.Palette,
		Settings:   res.Settings,
		Output:     res.Output,
	}
	return s.view, nil
}

// Snapshot returns the last committed view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Format returns the encoding name of the loaded image.
func (s *Session) Format() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// PickAt returns the palette index of the colour displayed at (x, y) in the
// last committed output.
func (s *Session) PickAt(x, y int) (int, bool) {
	v := s.Snapshot()
	return quant.Pick(v.Output, image.Pt(x, y), v.Palette, v.Settings.Mapping, s.th)
}
