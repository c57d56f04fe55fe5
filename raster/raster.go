// Package raster holds the in-memory pixel buffer the quantization pipeline
// works on, together with decoding, downscaling and encoding helpers.
package raster

import (
	"image"
	"image/color"
)

// Raster is a grid of non-premultiplied 8-bit RGBA pixels.
type Raster struct {
	// Pix holds the image's pixels, in R, G, B, A order. The pixel at
	// (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

var _ image.Image = &Raster{}

// bytes per pixel: r, g, b, a uint8 = 4

func New(r image.Rectangle) *Raster {
	return &Raster{
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
		Stride: 4 * r.Dx(),
		Rect:   r,
	}
}

func (r *Raster) ColorModel() color.Model {
	return color.NRGBAModel
}

func (r *Raster) Bounds() image.Rectangle {
	return r.Rect
}

func (r *Raster) At(x, y int) color.Color {
	return r.NRGBAAt(x, y)
}

func (r *Raster) NRGBAAt(x, y int) color.NRGBA {
	if !(image.Point{x, y}.In(r.Rect)) {
		return color.NRGBA{}
	}
	i := r.PixOffset(x, y)
	s := r.Pix[i : i+4 : i+4]
	return color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]}
}

func (r *Raster) SetNRGBA(x, y int, c color.NRGBA) {
	if !(image.Point{x, y}.In(r.Rect)) {
		return
	}
	i := r.PixOffset(x, y)
	s := r.Pix[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = c.R, c.G, c.B, c.A
}

// PixOffset returns the index of the first element of Pix that corresponds
// to the pixel at (x, y).
func (r *Raster) PixOffset(x, y int) int {
	return (y-r.Rect.Min.Y)*r.Stride + (x-r.Rect.Min.X)*4
}

// Clone returns a deep copy with a packed stride.
func (r *Raster) Clone() *Raster {
	out := New(r.Rect)
	w := r.Rect.Dx() * 4
	for y := 0; y < r.Rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], r.Pix[y*r.Stride:y*r.Stride+w])
	}
	return out
}

// Transparent reports whether every pixel has zero alpha.
func (r *Raster) Transparent() bool {
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		i := r.PixOffset(r.Rect.Min.X, y)
		for x := 0; x < r.Rect.Dx(); x, i = x+1, i+4 {
			if r.Pix[i+3] != 0 {
				return false
			}
		}
	}
	return true
}
