package engine

import (
	"fmt"

	"github.com/superdoc-dev/docbridge/internal/errors"
)

// GetTextInput contains parameters for the getText command.
type GetTextInput struct {
	Format string `json:"format,omitempty"` // text | html | both (default)
}

// GetTextOutput contains the requested serializations of the whole document.
type GetTextOutput struct {
	Text *string `json:"text,omitempty"`
	HTML *string `json:"html,omitempty"`
}

// GetText returns the document's text and/or HTML serialization.
func (e *Engine) GetText(in GetTextInput) (*GetTextOutput, error) {
	format := in.Format
	if format == "" {
		format = "both"
	}

	out := &GetTextOutput{}
	switch format {
	case "text":
		t := e.doc.Text()
		out.Text = &t
	case "html":
		h, err := e.doc.HTML()
		if err != nil {
			return nil, errors.NewOperationFailed("getText", err)
		}
		out.HTML = &h
	case "both":
		t := e.doc.Text()
		h, err := e.doc.HTML()
		if err != nil {
			return nil, errors.NewOperationFailed("getText", err)
		}
		out.Text = &t
		out.HTML = &h
	default:
		return nil, errors.NewValidation(fmt.Sprintf("invalid format %q: must be one of text, html, both", format))
	}
	return out, nil
}
