package engine

import (
	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// Search returns every match for text in the current document state, in
// document order. Each call re-scans fresh; matches must not be reused across
// mutations.
func (e *Engine) Search(text string) []docmodel.Match {
	return e.doc.Search(text)
}

// FindAnchor returns the first match for text, or nil when there is none.
func (e *Engine) FindAnchor(text string) *docmodel.Match {
	matches := e.doc.Search(text)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// FindMatch selects one match for text. With occurrence set it picks the
// 1-indexed match at that ordinal; otherwise the first match.
func (e *Engine) FindMatch(text string, occurrence *int) (docmodel.Match, error) {
	matches := e.doc.Search(text)
	if len(matches) == 0 {
		return docmodel.Match{}, errors.NewTextNotFound(text)
	}
	if occurrence == nil {
		return matches[0], nil
	}
	n := *occurrence
	if n < 1 || n > len(matches) {
		return docmodel.Match{}, errors.NewOccurrenceNotFound(n, len(matches))
	}
	return matches[n-1], nil
}

// Position is the anchor vocabulary shared by every positional command:
// content lands immediately after or before the first occurrence of the
// anchor text.
type Position struct {
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
}

func (p *Position) empty() bool {
	return p == nil || (p.After == "" && p.Before == "")
}

// resolveInsertPos turns a position anchor into a block-gap insertion
// position adjacent to the block containing the anchor's first occurrence.
func (e *Engine) resolveInsertPos(pos *Position) (int, error) {
	if pos.empty() {
		return 0, errors.NewValidation("position with 'after' or 'before' anchor text is required")
	}
	anchor := pos.After
	after := true
	if anchor == "" {
		anchor = pos.Before
		after = false
	}

	m, err := e.FindMatch(anchor, nil)
	if err != nil {
		return 0, err
	}
	block, ok := e.doc.BlockRange(m.From)
	if !ok {
		return 0, errors.NewOperationFailed("resolvePosition", nil)
	}
	if after {
		return block.To, nil
	}
	return block.From, nil
}
