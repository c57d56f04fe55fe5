// Package inspect implements the command that prints and exports the palette
// extracted from a single image.
package inspect

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"logopal/palette"
	"logopal/quant"
	"logopal/raster"
	"logopal/session"
)

type CLICmd struct {
	File         string `arg:"" help:"Image to analyse" type:"existingfile"`
	MaxColors    int    `help:"Number of palette colours (2-8)" default:"4" env:"LOGOPAL_MAX_COLORS"`
	MaxDimension int    `help:"Downscale so the longer side is at most this many pixels, 0 to keep the size" default:"600" env:"LOGOPAL_MAX_DIMENSION"`
	MaxPixels    int    `help:"Refuse images whose header declares more pixels than this, 0 for no limit" default:"16777216" env:"LOGOPAL_MAX_PIXELS"`
	Counts       int    `help:"Also list the N most frequent exact colours" default:"0"`
	Out          string `help:"Write the palette as a RIFF PAL file" type:"path"`
	Swatch       string `help:"Write the palette as a PNG swatch strip" type:"path"`

	Thresholds quant.Thresholds `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.MaxColors < session.MinColors || c.MaxColors > session.MaxColors {
		return fmt.Errorf("%w: %d", session.ErrMaxColorsRange, c.MaxColors)
	}
	if c.Counts < 0 {
		return fmt.Errorf("invalid counts: %d", c.Counts)
	}

	c.Thresholds = quant.DefaultThresholds()
	c.Thresholds.MaxDimension = c.MaxDimension
	c.Thresholds.MaxPixels = c.MaxPixels
	return c.Thresholds.Validate()
}

func (c *CLICmd) Run(kctx *kong.Context) error {
	return c.run(kctx.Stdout)
}

func (c *CLICmd) run(stdout io.Writer) error {
	logger := slog.Default().With("file", c.File)

	imgFile, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("could not open image %q: %w", c.File, err)
	}
	src, format, err := raster.DecodeLimit(imgFile, c.Thresholds.MaxPixels)
	if closeErr := imgFile.Close(); closeErr != nil {
		logger.Error("could not close image", "error", closeErr)
	}
	if err != nil {
		return err
	}

	working := raster.Fit(src, c.Thresholds.MaxDimension)
	logger.Debug("decoded", "format", format, "width", working.Rect.Dx(), "height", working.Rect.Dy())

	counts := quant.CountColors(working, c.Thresholds.VisibleAlpha)
	pal, err := quant.ExtractCounts(counts, c.MaxColors, c.Thresholds)
	if err != nil {
		return err
	}

	freq := make(map[quant.Color]int, len(counts))
	for _, cc := range counts {
		freq[cc.Color] = cc.Count
	}

	if len(pal) == 0 {
		fmt.Fprintln(stdout, "no visible colours")
	}
	for i, col := range pal {
		fmt.Fprintf(stdout, "%d\t%s\t%d\n", i, col.Hex(), freq[col])
	}

	if c.Counts > 0 {
		fmt.Fprintf(stdout, "\n%d distinct colours\n", len(counts))
		for _, cc := range counts[:min(c.Counts, len(counts))] {
			fmt.Fprintf(stdout, "%s\t%d\n", cc.Color.Hex(), cc.Count)
		}
	}

	if c.Out != "" {
		if err := writeFile(c.Out, func(w io.Writer) error {
			_, err := palette.Write(w, pal)
			return err
		}); err != nil {
			return err
		}
		logger.Info("palette written", "path", c.Out)
	}

	if c.Swatch != "" {
		if err := writeFile(c.Swatch, func(w io.Writer) error {
			return raster.Encode(w, palette.Swatch(pal, nil, 64), "png")
		}); err != nil {
			return err
		}
		logger.Info("swatch written", "path", c.Swatch)
	}

	return nil
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", name, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close %q: %w", name, err)
	}
	return nil
}
