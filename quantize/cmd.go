// Package quantize implements the batch command that reduces every image of
// a folder to its dominant colours.
package quantize

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"

	"logopal/palette"
	"logopal/parallel"
	"logopal/quant"
	"logopal/raster"
	"logopal/session"
)

type CLICmd struct {
	Scan         string   `help:"Source folder to scan" default:"." env:"LOGOPAL_SCAN"`
	Dest         string   `help:"Destination folder for quantized pictures. Relative to scan dir if not absolute." default:"quantized" env:"LOGOPAL_DEST"`
	MaxColors    int      `help:"Number of palette colours (2-8)" default:"4" env:"LOGOPAL_MAX_COLORS"`
	MaxDimension int      `help:"Downscale so the longer side is at most this many pixels, 0 to keep the size" default:"600" env:"LOGOPAL_MAX_DIMENSION"`
	MaxPixels    int      `help:"Skip images whose header declares more pixels than this, 0 for no limit" default:"16777216" env:"LOGOPAL_MAX_PIXELS"`
	Map          []string `help:"Substitute a palette colour, as #RRGGBB=#RRGGBB" placeholder:"#FROM=#TO"`
	Erase        []string `help:"Palette colour to make transparent, as #RRGGBB" placeholder:"#RRGGBB"`
	Format       string   `help:"Output format" enum:"png,gif,bmp,tiff" default:"png"`
	PaletteOut   bool     `help:"Also write each extracted palette as a RIFF PAL file" default:"false"`

	Settings   quant.Settings   `kong:"-"`
	Thresholds quant.Thresholds `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if c.MaxColors < session.MinColors || c.MaxColors > session.MaxColors {
		return fmt.Errorf("%w: %d", session.ErrMaxColorsRange, c.MaxColors)
	}

	c.Thresholds = quant.DefaultThresholds()
	c.Thresholds.MaxDimension = c.MaxDimension
	c.Thresholds.MaxPixels = c.MaxPixels
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}

	c.Settings, err = ParseEdits(c.MaxColors, c.Map, c.Erase)
	return err
}

// ParseEdits builds settings from #from=#to substitutions and erased colours.
func ParseEdits(maxColors int, subs, erase []string) (quant.Settings, error) {
	s := quant.NewSettings(maxColors)
	for _, sub := range subs {
		from, to, ok := strings.Cut(sub, "=")
		if !ok {
			return s, fmt.Errorf("invalid substitution %q, should be #FROM=#TO", sub)
		}
		fromCol, err := quant.ParseHex(strings.TrimSpace(from))
		if err != nil {
			return s, fmt.Errorf("invalid substitution %q: %w", sub, err)
		}
		toCol, err := quant.ParseHex(strings.TrimSpace(to))
		if err != nil {
			return s, fmt.Errorf("invalid substitution %q: %w", sub, err)
		}
		s = s.WithSubstitute(fromCol, toCol)
	}

	for _, e := range erase {
		col, err := quant.ParseHex(strings.TrimSpace(e))
		if err != nil {
			return s, fmt.Errorf("invalid erased colour: %w", err)
		}
		if !s.Erased.Has(col) {
			s = s.WithEraseToggled(col)
		}
	}
	return s, nil
}

func (c *CLICmd) Run(pool *parallel.Pool) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		fileName := file.Name()
		pool.Do(func() error {
			logger := slog.Default().With("file", filepath.Join(c.Scan, fileName))
			if err := c.process(logger, fileName); err != nil {
				logger.Error("could not quantize image", "error", err)
				return err
			}
			return nil
		})
	}

	stats := pool.Wait()
	slog.Info("stats", "processed", stats.Succeeded, "errors", stats.Failed, "total", stats.Total())

	if stats.Failed > 0 {
		return fmt.Errorf("error processing %d files", stats.Failed)
	}
	return nil
}

func (c *CLICmd) process(logger *slog.Logger, fileName string) error {
	imgFile, err := os.Open(filepath.Join(c.Scan, fileName))
	if err != nil {
		return fmt.Errorf("could not open image: %w", err)
	}
	defer func() {
		if closeErr := imgFile.Close(); closeErr != nil {
			logger.Error("could not close image", "error", closeErr)
		}
	}()

	src, _, err := raster.DecodeLimit(imgFile, c.Thresholds.MaxPixels)
	if err != nil {
		return err
	}
	working := raster.Fit(src, c.Thresholds.MaxDimension)

	res, err := quant.Render(working, c.Settings, c.Thresholds)
	if err != nil {
		return err
	}
	logger.Info("palette extracted", "colors", res.Palette.Hex(),
		"width", working.Rect.Dx(), "height", working.Rect.Dy())
	c.logIgnoredEdits(logger, res.Palette)

	var out image.Image = res.Output
	if c.Format == "gif" {
		// Index GIF output by the displayed palette so no colour is dithered.
		if out, err = raster.Paletted(res.Output, res.Palette.ColorPalette(res.Settings.Mapping)); err != nil {
			return err
		}
	}

	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if err := raster.Save(out, c.Format, c.Dest, base+"."+c.Format); err != nil {
		return err
	}

	if c.PaletteOut {
		if err := writePalette(filepath.Join(c.Dest, base+".pal"), res.Palette); err != nil {
			return err
		}
	}
	return nil
}

// logIgnoredEdits reports edits naming colours this image's palette lacks.
func (c *CLICmd) logIgnoredEdits(logger *slog.Logger, pal quant.Palette) {
	var ignored []string
	for k := range c.Settings.Mapping {
		if !pal.Contains(k) {
			ignored = append(ignored, k.Hex())
		}
	}
	for k := range c.Settings.Erased {
		if !pal.Contains(k) {
			ignored = append(ignored, k.Hex())
		}
	}
	if len(ignored) > 0 {
		slices.Sort(ignored)
		logger.Warn("edits ignored, colours not in palette", "colors", ignored)
	}
}

func writePalette(name string, pal quant.Palette) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create palette file %q: %w", name, err)
	}
	if _, err := palette.Write(f, pal); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close palette file %q: %w", name, err)
	}
	return nil
}
