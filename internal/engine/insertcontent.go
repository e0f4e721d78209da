package engine

import (
	"strings"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// InsertContentInput contains parameters for the insertContent command.
type InsertContentInput struct {
	Content  string    `json:"content"`
	Position *Position `json:"position,omitempty"`
	Author   *string   `json:"author,omitempty"`
}

// InsertContentOutput contains the result of the insertContent command.
type InsertContentOutput struct {
	InsertedBlocks int `json:"insertedBlocks"`
	At             int `json:"at"`
}

// InsertContent inserts paragraphs adjacent to an anchor's first occurrence.
// An empty document accepts content at the start without an anchor; a
// non-empty document requires one. Runs in suggesting mode.
func (e *Engine) InsertContent(in InsertContentInput) (*InsertContentOutput, error) {
	if in.Content == "" {
		return nil, errors.NewValidation("content is required")
	}

	pos := 0
	if !e.doc.Empty() {
		if in.Position.empty() {
			return nil, errors.NewValidation("position with 'after' or 'before' anchor is required for a non-empty document")
		}
		p, err := e.resolveInsertPos(in.Position)
		if err != nil {
			return nil, err
		}
		pos = p
	}

	lines := strings.Split(in.Content, "\n")

	err := e.inMode(docmodel.ModeSuggesting, in.Author, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		// All paragraphs target the same gap; inserting the last one first
		// keeps the final document order without position remapping.
		for i := len(lines) - 1; i >= 0; i-- {
			tx.InsertNode(pos, docmodel.NewParagraph(lines[i]))
		}
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("insertContent", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InsertContentOutput{InsertedBlocks: len(lines), At: pos}, nil
}
