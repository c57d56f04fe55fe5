package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"
)

// DecodeError is returned when the source image cannot be read or decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrTooLarge is wrapped by the DecodeError returned when an image header
// declares more pixels than the decode budget.
var ErrTooLarge = errors.New("image too large")

// Decode reads an encoded image in any registered format and returns it as
// a Raster along with the format name.
func Decode(r io.Reader) (*Raster, string, error) {
	return DecodeLimit(r, 0)
}

// DecodeLimit is Decode with a budget of maxPixels pixels, checked against
// the image header before any pixel data is decoded. 0 means no limit.
func DecodeLimit(r io.Reader, maxPixels int) (*Raster, string, error) {
	if maxPixels > 0 {
		var header bytes.Buffer
		conf, _, err := image.DecodeConfig(io.TeeReader(r, &header))
		if err != nil {
			return nil, "", &DecodeError{Err: err}
		}
		if conf.Width*conf.Height > maxPixels {
			return nil, "", &DecodeError{
				Err: fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, conf.Width, conf.Height, maxPixels),
			}
		}
		r = io.MultiReader(&header, r)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}
	return FromImage(img), format, nil
}

// FromImage converts any image into a Raster whose bounds start at the
// origin.
func FromImage(img image.Image) *Raster {
	sr := img.Bounds()
	dr := image.Rect(0, 0, sr.Dx(), sr.Dy())

	if src, ok := img.(*image.NRGBA); ok {
		out := New(dr)
		w := dr.Dx() * 4
		for y := 0; y < dr.Dy(); y++ {
			i := src.PixOffset(sr.Min.X, sr.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[i:i+w])
		}
		return out
	}

	dest := image.NewNRGBA(dr)
	draw.Draw(dest, dr, img, sr.Min, draw.Src)
	return &Raster{Pix: dest.Pix, Stride: dest.Stride, Rect: dest.Rect}
}

// Fit downscales r so that its longer side does not exceed maxDim, keeping
// the aspect ratio. Nearest-neighbour sampling is used so that every output
// pixel carries a colour present in the source. Rasters already within the
// limit, or a non-positive maxDim, return r itself.
func Fit(r *Raster, maxDim int) *Raster {
	w, h := r.Rect.Dx(), r.Rect.Dy()
	longer := max(w, h)
	if maxDim <= 0 || longer <= maxDim {
		return r
	}

	scale := float64(maxDim) / float64(longer)
	dw := max(1, int(math.Round(float64(w)*scale)))
	dh := max(1, int(math.Round(float64(h)*scale)))

	dest := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dest, dest.Rect, r, r.Rect, draw.Src, nil)
	return &Raster{Pix: dest.Pix, Stride: dest.Stride, Rect: dest.Rect}
}
