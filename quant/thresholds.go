package quant

import (
	"fmt"
	"math"
)

// Thresholds holds the empirical constants used by the extractor, the
// remapper and the pick resolver.
type Thresholds struct {
	Distinct         float64 // Min RGB distance between two palette entries
	PickTolerance    float64 // A pick matches only when closer than this
	VisibleAlpha     uint8   // Pixels below this alpha are not counted by Extract
	TransparentAlpha uint8   // Remap makes pixels below this alpha fully transparent
	OpaqueAlpha      uint8   // Remap snaps alpha above this to 255
	MaxDimension     int     // Longer side cap of the working raster; 0 = no limit
	MaxPixels        int     // Decode budget checked against the image header; 0 = no limit
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Distinct:         35,
		PickTolerance:    20,
		VisibleAlpha:     128,
		TransparentAlpha: 10,
		OpaqueAlpha:      200,
		MaxDimension:     600,
		MaxPixels:        1 << 24,
	}
}

func (t Thresholds) Validate() error {
	switch {
	case math.IsNaN(t.Distinct) || t.Distinct < 0 || t.Distinct > MaxDistance:
		return fmt.Errorf("%w: distinct distance %v outside [0, %.0f]", ErrInvalidThresholds, t.Distinct, MaxDistance)
	case math.IsNaN(t.PickTolerance) || t.PickTolerance < 0:
		return fmt.Errorf("%w: pick tolerance %v", ErrInvalidThresholds, t.PickTolerance)
	case t.MaxDimension < 0:
		return fmt.Errorf("%w: max dimension %d", ErrInvalidThresholds, t.MaxDimension)
	case t.MaxPixels < 0:
		return fmt.Errorf("%w: max pixels %d", ErrInvalidThresholds, t.MaxPixels)
	}
	return nil
}
