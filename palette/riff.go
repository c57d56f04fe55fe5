// Package palette stores extracted palettes as Microsoft RIFF PAL files and
// renders them as colour swatches.
package palette

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/image/riff"

	"logopal/quant"
)

/*
typedef struct tagLOGPALETTE {
  WORD         palVersion;
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}

	palVersion = []byte{0x00, 0x03}
)

// ErrNoPalette is returned when a RIFF PAL stream holds no data chunk.
var ErrNoPalette = errors.New("no palette data chunk")

// Read loads the first palette stored in a RIFF PAL stream.
func Read(r io.Reader) (quant.Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	for {
		id, _, data, err := rd.Next()
		if err != nil {
			if err == io.EOF {
				return nil, ErrNoPalette
			}
			return nil, fmt.Errorf("could not read chunk: %w", err)
		}
		if id != dataType {
			continue
		}
		return readPalette(data)
	}
}

func readPalette(r io.Reader) (quant.Palette, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("could not read palette header: %w", err)
	}

	if header[0] != palVersion[0] || header[1] != palVersion[1] {
		return nil, fmt.Errorf("unsupported palette version: %#04x", binary.BigEndian.Uint16(header))
	}

	count := binary.LittleEndian.Uint16(header[2:])
	entries := make([]byte, int(count)*4)
	if _, err := io.ReadFull(r, entries); err != nil {
		return nil, fmt.Errorf("could not read %d colours: %w", count, err)
	}

	pal := make(quant.Palette, count)
	for i := range pal {
		e := entries[i*4 : i*4+4]
		pal[i] = quant.Color{R: e[0], G: e[1], B: e[2]}
	}
	return pal, nil
}

// Write stores pal as a single-chunk RIFF PAL stream and returns the number
// of bytes written.
func Write(w io.Writer, pal quant.Palette) (int64, error) {
	if len(pal) > 0xFFFF {
		return 0, fmt.Errorf("too many colours for a PAL file: %d", len(pal))
	}

	chunkSize := 4 + len(pal)*4 // palVersion + palNumEntries + 4 bytes/color
	formSize := 4 + 8 + chunkSize

	buf := make([]byte, 0, 8+formSize)
	buf = append(buf, riffType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(formSize))
	buf = append(buf, palType[:]...)
	buf = append(buf, dataType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(chunkSize))
	buf = append(buf, palVersion...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(pal)))
	for _, c := range pal {
		buf = append(buf, c.R, c.G, c.B, 0x00)
	}

	n, err := w.Write(buf)
	if err != nil {
		return int64(n), fmt.Errorf("could not write palette: %w", err)
	} else if n != len(buf) {
		return int64(n), fmt.Errorf("wrote only %d/%d bytes", n, len(buf))
	}
	return int64(n), nil
}
