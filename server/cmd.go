package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"logopal/session"
)

type CLICmd struct {
	Addr         string   `help:"Listen address" default:":8080" env:"LOGOPAL_ADDR"`
	MaxColors    int      `help:"Initial number of palette colours (2-8)" default:"4" env:"LOGOPAL_MAX_COLORS"`
	MaxDimension int      `help:"Downscale uploads so the longer side is at most this many pixels" default:"600" env:"LOGOPAL_MAX_DIMENSION"`
	MaxPixels    int      `help:"Reject uploads whose header declares more pixels than this, 0 for no limit" default:"16777216" env:"LOGOPAL_MAX_PIXELS"`
	Origins      []string `help:"Allowed websocket origins, * for any. Same-origin only when empty" env:"LOGOPAL_ORIGINS"`

	Config session.Config `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	c.Config = session.DefaultConfig()
	c.Config.MaxColors = c.MaxColors
	c.Config.Thresholds.MaxDimension = c.MaxDimension
	c.Config.Thresholds.MaxPixels = c.MaxPixels

	// session.New runs the same checks for every connection; fail at startup instead.
	if _, err := session.New(c.Config); err != nil {
		return fmt.Errorf("invalid session settings: %w", err)
	}
	return nil
}

func (c *CLICmd) Run(ctx context.Context) error {
	c.Config.Logger = slog.Default()
	return New(c.Config, c.Origins).ListenAndServe(ctx, c.Addr)
}
