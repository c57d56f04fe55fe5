package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checker(w, h int, a, b color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, a)
			} else {
				img.SetNRGBA(x, y, b)
			}
		}
	}
	return img
}

func TestFromImage(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 128}

	t.Run("nrgba", func(t *testing.T) {
		src := checker(3, 2, red, blue)
		r := FromImage(src)
		require.Equal(t, image.Rect(0, 0, 3, 2), r.Bounds())
		assert.Equal(t, red, r.NRGBAAt(0, 0))
		assert.Equal(t, blue, r.NRGBAAt(1, 0))
	})

	t.Run("offset sub image", func(t *testing.T) {
		src := checker(4, 4, red, blue).SubImage(image.Rect(1, 1, 3, 3))
		r := FromImage(src)
		require.Equal(t, image.Rect(0, 0, 2, 2), r.Bounds())
		assert.Equal(t, red, r.NRGBAAt(0, 0))
		assert.Equal(t, blue, r.NRGBAAt(1, 0))
	})

	t.Run("rgba opaque", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 1, 1))
		src.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		r := FromImage(src)
		assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, r.NRGBAAt(0, 0))
	})
}

func TestOutOfBounds(t *testing.T) {
	r := New(image.Rect(0, 0, 2, 2))
	r.SetNRGBA(5, 5, color.NRGBA{R: 1, A: 1})
	assert.Equal(t, color.NRGBA{}, r.NRGBAAt(5, 5))
	assert.True(t, r.Transparent())
}

func TestClone(t *testing.T) {
	r := FromImage(checker(2, 2, color.NRGBA{R: 1, A: 255}, color.NRGBA{G: 1, A: 255}))
	c := r.Clone()
	require.Equal(t, r.Pix, c.Pix)
	c.SetNRGBA(0, 0, color.NRGBA{})
	assert.NotEqual(t, r.Pix, c.Pix)
}

func TestFit(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	testCases := []struct {
		name   string
		w, h   int
		maxDim int
		want   image.Point
	}{
		{"within", 10, 5, 600, image.Pt(10, 5)},
		{"disabled", 10, 5, 0, image.Pt(10, 5)},
		{"landscape", 1200, 600, 600, image.Pt(600, 300)},
		{"portrait", 300, 900, 600, image.Pt(200, 600)},
		{"thin", 2000, 1, 600, image.Pt(600, 1)},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			r := FromImage(checker(test.w, test.h, red, blue))
			out := Fit(r, test.maxDim)
			require.Equal(t, test.want, out.Bounds().Size())

			for y := range test.want.Y {
				for x := range test.want.X {
					c := out.NRGBAAt(x, y)
					if c != red && c != blue {
						t.Fatalf("pixel (%d, %d) = %v is not a source colour", x, y, c)
					}
				}
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, checker(4, 3, color.NRGBA{R: 200, A: 255}, color.NRGBA{})))

	r, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Pt(4, 3), r.Bounds().Size())
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, r.NRGBAAt(0, 0))
	assert.Equal(t, uint8(0), r.NRGBAAt(1, 0).A)
}

func TestDecodeError(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("definitely not an image")))
	require.Error(t, err)

	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.ErrorIs(t, err, image.ErrFormat)
}

// pngHeader returns a 1x1 PNG whose header claims w x h pixels.
func pngHeader(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))))
	b := buf.Bytes()
	binary.BigEndian.PutUint32(b[16:], w)
	binary.BigEndian.PutUint32(b[20:], h)
	binary.BigEndian.PutUint32(b[29:], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestDecodeLimit(t *testing.T) {
	t.Run("header over budget", func(t *testing.T) {
		_, _, err := DecodeLimit(bytes.NewReader(pngHeader(t, 50000, 50000)), 1<<24)
		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("within budget", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, checker(4, 3, color.NRGBA{R: 200, A: 255}, color.NRGBA{})))

		r, format, err := DecodeLimit(&buf, 12)
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, image.Pt(4, 3), r.Bounds().Size())
		assert.Equal(t, color.NRGBA{R: 200, A: 255}, r.NRGBAAt(2, 2))
	})

	t.Run("one pixel over", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, checker(4, 3, color.NRGBA{R: 200, A: 255}, color.NRGBA{})))
		_, _, err := DecodeLimit(&buf, 11)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := DecodeLimit(bytes.NewReader([]byte("definitely not an image")), 100)
		var decErr *DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.ErrorIs(t, err, image.ErrFormat)
	})
}

func TestGIFKeepsColorsAndTransparency(t *testing.T) {
	green := color.NRGBA{R: 0x12, G: 0x9a, B: 0x3c, A: 0xFF}
	src := New(image.Rect(0, 0, 4, 1))
	src.SetNRGBA(0, 0, green)
	src.SetNRGBA(2, 0, green)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src, "gif"))

	back, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "gif", format)
	assert.Equal(t, green, back.NRGBAAt(0, 0))
	assert.Equal(t, green, back.NRGBAAt(2, 0))
	assert.Equal(t, uint8(0), back.NRGBAAt(1, 0).A)
	assert.Equal(t, uint8(0), back.NRGBAAt(3, 0).A)
}

func TestPaletted(t *testing.T) {
	orange := color.NRGBA{R: 0xd9, G: 0x77, B: 0x06, A: 0xFF}
	navy := color.NRGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xFF}

	src := New(image.Rect(0, 0, 4, 1))
	src.SetNRGBA(0, 0, orange)
	src.SetNRGBA(1, 0, color.NRGBA{R: navy.R, G: navy.G, B: navy.B, A: 150})
	src.SetNRGBA(2, 0, color.NRGBA{R: navy.R, G: navy.G, B: navy.B, A: 100})

	t.Run("explicit palette", func(t *testing.T) {
		pm, err := Paletted(src, color.Palette{navy, orange})
		require.NoError(t, err)
		require.Len(t, pm.Palette, 3)
		assert.Equal(t, color.NRGBA{}, pm.Palette[0])
		assert.Equal(t, []uint8{2, 1, 0, 0}, pm.Pix)

		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, pm, "gif"))
		back, _, err := Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, orange, back.NRGBAAt(0, 0))
		assert.Equal(t, navy, back.NRGBAAt(1, 0))
		assert.Equal(t, uint8(0), back.NRGBAAt(2, 0).A)
	})

	t.Run("colour missing from palette", func(t *testing.T) {
		_, err := Paletted(src, color.Palette{orange})
		assert.ErrorIs(t, err, ErrNotInPalette)
	})

	t.Run("too many colours", func(t *testing.T) {
		wide := New(image.Rect(0, 0, 256, 1))
		for x := range 256 {
			wide.SetNRGBA(x, 0, color.NRGBA{R: uint8(x), A: 0xFF})
		}
		_, err := Paletted(wide, nil)
		assert.ErrorIs(t, err, ErrTooManyColors)
		assert.Error(t, Encode(&bytes.Buffer{}, wide, "gif"))
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	src := FromImage(checker(5, 5, color.NRGBA{R: 255, A: 255}, color.NRGBA{}))

	for _, format := range []string{"png", "tiff", "bmp"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, src, format))

			back, gotFormat, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, format, gotFormat)
			assert.Equal(t, src.NRGBAAt(0, 0), back.NRGBAAt(0, 0))
		})
	}

	require.Error(t, Encode(&bytes.Buffer{}, src, "jpeg"))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	src := FromImage(checker(2, 2, color.NRGBA{G: 255, A: 255}, color.NRGBA{B: 255, A: 255}))

	require.NoError(t, Save(src, "png", dir, "out.png"))

	f, err := os.Open(filepath.Join(dir, "out.png"))
	require.NoError(t, err)
	defer f.Close()

	back, _, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, back.Pix)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, Save(src, "nope", dir, "bad.nope"))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
