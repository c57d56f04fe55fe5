package server

import (
	"bytes"
	"fmt"

	"logopal/quant"
	"logopal/raster"
	"logopal/session"
)

// Operations accepted from clients.
const (
	OpLoad          = "load"
	OpState         = "state"
	OpSetSubstitute = "setSubstitute"
	OpToggleErase   = "toggleErase"
	OpSetMaxColors  = "setMaxColors"
	OpPickAt        = "pickAt"
	OpReset         = "reset"
)

// Request is a client message. Only the fields used by Op are read.
type Request struct {
	Op    string       `json:"op"`
	Image []byte       `json:"image,omitempty"` // base64 encoded image file
	From  *quant.Color `json:"from,omitempty"`
	To    *quant.Color `json:"to,omitempty"`
	Color *quant.Color `json:"color,omitempty"`
	K     int          `json:"k,omitempty"`
	X     int          `json:"x"`
	Y     int          `json:"y"`
}

type StateMessage struct {
	Type       string        `json:"type"`
	Generation uint64        `json:"generation"`
	MaxColors  int           `json:"maxColors"`
	Palette    quant.Palette `json:"palette"`
	Mapping    quant.Mapping `json:"mapping"`
	Erased     []quant.Color `json:"erased"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Preview    []byte        `json:"preview,omitempty"` // base64 encoded PNG
}

type PickMessage struct {
	Type  string       `json:"type"`
	OK    bool         `json:"ok"`
	Index int          `json:"index"`
	Color *quant.Color `json:"color,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newError(err error) ErrorMessage {
	return ErrorMessage{Type: "error", Error: err.Error()}
}

func newState(v session.View) (StateMessage, error) {
	msg := StateMessage{
		Type:       "state",
		Generation: v.Generation,
		MaxColors:  v.Settings.MaxColors,
		Palette:    v.Palette,
		Mapping:    v.Settings.Mapping,
		Erased:     v.Settings.Erased.Sorted(v.Palette),
	}
	if msg.Palette == nil {
		msg.Palette = quant.Palette{}
	}
	if msg.Mapping == nil {
		msg.Mapping = quant.Mapping{}
	}

	if v.Output != nil {
		msg.Width, msg.Height = v.Output.Rect.Dx(), v.Output.Rect.Dy()

		var buf bytes.Buffer
		if err := raster.Encode(&buf, v.Output, "png"); err != nil {
			return msg, fmt.Errorf("could not encode preview: %w", err)
		}
		msg.Preview = buf.Bytes()
	}
	return msg, nil
}
