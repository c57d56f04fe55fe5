package quant

import "errors"

var (
	// ErrNilRaster is returned when no source raster is given.
	ErrNilRaster = errors.New("nil raster")

	// ErrInvalidMaxColors is returned when the requested palette size is below one.
	ErrInvalidMaxColors = errors.New("palette size must be at least 1")

	// ErrInvalidThresholds is returned by Thresholds.Validate.
	ErrInvalidThresholds = errors.New("invalid thresholds")

	// ErrInvalidHex is returned when a colour string is not #rgb or #rrggbb.
	ErrInvalidHex = errors.New("invalid hex colour")
)
