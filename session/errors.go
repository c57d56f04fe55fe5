package session

import "errors"

var (
	// ErrNoImage is returned by edits made before an image was loaded.
	ErrNoImage = errors.New("no image loaded")

	// ErrUnknownColor is returned when an edit names a colour that is not in the current palette.
	ErrUnknownColor = errors.New("colour is not in the current palette")

	// ErrMaxColorsRange is returned when the palette size is outside [MinColors, MaxColors].
	ErrMaxColorsRange = errors.New("palette size out of range")

	// ErrStale is returned when a recompute finished after newer settings were applied.
	// Its result is discarded; the recompute triggered by the newer settings supersedes it.
	ErrStale = errors.New("render superseded by newer settings")
)
