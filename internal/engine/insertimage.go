package engine

import (
	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// InsertImageInput contains parameters for the insertImage command. Src must
// already be a resolved data reference; local paths and URLs are resolved to
// embedded bytes upstream of the engine by the bridge.
type InsertImageInput struct {
	Src      string    `json:"src"`
	Alt      string    `json:"alt,omitempty"`
	Width    *int      `json:"width,omitempty"`
	Position *Position `json:"position"`
}

// InsertImageOutput contains the result of the insertImage command.
type InsertImageOutput struct {
	At int `json:"at"`
}

// InsertImage inserts an image node adjacent to an anchor. Unlike
// insertContent there is no empty-document default: a position anchor is
// always required. Executes in editing mode.
func (e *Engine) InsertImage(in InsertImageInput) (*InsertImageOutput, error) {
	if in.Src == "" {
		return nil, errors.NewValidation("src is required")
	}
	if in.Position.empty() {
		return nil, errors.NewValidation("position with 'after' or 'before' anchor is required")
	}

	pos, err := e.resolveInsertPos(in.Position)
	if err != nil {
		return nil, err
	}

	width := 0
	if in.Width != nil {
		width = *in.Width
	}

	err = e.inMode(docmodel.ModeEditing, nil, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		tx.InsertNode(pos, docmodel.NewImage(in.Src, in.Alt, width))
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("insertImage", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InsertImageOutput{At: pos}, nil
}
