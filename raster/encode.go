package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Formats lists the output encodings accepted by Encode. JPEG is absent as
// it cannot carry the transparency produced by erasure.
var Formats = []string{"png", "gif", "bmp", "tiff"}

var (
	ErrTooManyColors = errors.New("too many colours for a GIF")
	ErrNotInPalette  = errors.New("colour not in palette")
)

// gifOpaqueAlpha is the alpha from which a pixel is drawn opaque in a GIF.
// GIF has a single fully transparent index and no partial alpha.
const gifOpaqueAlpha = 0x80

// Encode writes img to w in the named format. GIF output of anything but an
// *image.Paletted goes through Paletted with the image's own colours.
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "gif":
		pm, ok := img.(*image.Paletted)
		if !ok {
			var err error
			if pm, err = Paletted(img, nil); err != nil {
				return fmt.Errorf("could not encode GIF: %w", err)
			}
		}
		if err := gif.Encode(w, pm, nil); err != nil {
			return fmt.Errorf("could not encode GIF: %w", err)
		}
	case "png":
		enc := png.Encoder{
			CompressionLevel: png.BestSpeed,
			BufferPool:       pngPool,
		}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("could not encode PNG: %w", err)
		}
	case "bmp":
		if err := bmp.Encode(w, img); err != nil {
			return fmt.Errorf("could not encode BMP: %w", err)
		}
	case "tiff":
		if err := tiff.Encode(w, img, nil); err != nil {
			return fmt.Errorf("could not encode TIFF: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}

// Paletted copies img into a paletted image without dithering. Index 0 is
// transparent and takes every pixel whose alpha is below 128. Every other
// pixel must have the RGB of an entry of pal. A nil pal is built from the
// colours of img in scan order, up to 255 of them.
func Paletted(img image.Image, pal color.Palette) (*image.Paletted, error) {
	colors := color.Palette{color.NRGBA{}}
	index := make(map[[3]uint8]uint8)
	add := func(c color.NRGBA) error {
		key := [3]uint8{c.R, c.G, c.B}
		if _, ok := index[key]; ok {
			return nil
		}
		if len(colors) == 256 {
			return fmt.Errorf("%w: more than %d", ErrTooManyColors, len(colors)-1)
		}
		index[key] = uint8(len(colors))
		colors = append(colors, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
		return nil
	}
	for _, c := range pal {
		if err := add(color.NRGBAModel.Convert(c).(color.NRGBA)); err != nil {
			return nil, err
		}
	}

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}
	if r, ok := img.(*Raster); ok {
		at = r.NRGBAAt
	}

	b := img.Bounds()
	out := &image.Paletted{
		Pix:    make([]uint8, b.Dx()*b.Dy()),
		Stride: b.Dx(),
		Rect:   b,
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := out.Pix[(y-b.Min.Y)*out.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			c := at(x, y)
			if c.A < gifOpaqueAlpha {
				continue
			}
			i, ok := index[[3]uint8{c.R, c.G, c.B}]
			if !ok {
				if pal != nil {
					return nil, fmt.Errorf("%w: pixel (%d, %d) is #%02x%02x%02x", ErrNotInPalette, x, y, c.R, c.G, c.B)
				}
				if err := add(c); err != nil {
					return nil, err
				}
				i = index[[3]uint8{c.R, c.G, c.B}]
			}
			row[x-b.Min.X] = i
		}
	}
	out.Palette = colors
	return out, nil
}

// Save encodes img into destDir/destName through a temporary file that is
// only renamed into place once encoding succeeded.
func Save(img image.Image, format, destDir, destName string) (err error) {
	outFile, err := os.CreateTemp(destDir, destName)
	if err != nil {
		return fmt.Errorf("could not create temporary destination %q: %w", destName, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("could not flush temporary destination %q: %w", destName, defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", destName, defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), filepath.Join(destDir, destName)); defErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", destName, defErr)
			}
		} else {
			_ = os.Remove(outFile.Name())
		}
	}()

	if err = Encode(outFile, img, format); err != nil {
		return fmt.Errorf("could not write %q: %w", destName, err)
	}

	canRename = true
	return nil
}

type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
