package engine

import (
	"sort"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// ReplaceTextInput contains parameters for the replaceText command.
type ReplaceTextInput struct {
	Search      string  `json:"search"`
	Replacement *string `json:"replacement"`
	Occurrence  *int    `json:"occurrence,omitempty"` // 1-indexed; nil = all matches
	Author      *string `json:"author,omitempty"`
}

// ReplaceTextOutput contains the result of the replaceText command.
type ReplaceTextOutput struct {
	ReplacedCount int `json:"replacedCount"`
}

// ReplaceText replaces occurrences of a literal search string. With an
// occurrence it replaces only that 1-indexed match; otherwise every match.
// Multi-match replacement iterates in descending position order so each
// replacement's position is still valid when it applies. Runs in suggesting
// mode so replacements appear as reviewable proposed edits.
func (e *Engine) ReplaceText(in ReplaceTextInput) (*ReplaceTextOutput, error) {
	if in.Search == "" {
		return nil, errors.NewValidation("search is required")
	}
	if in.Replacement == nil {
		return nil, errors.NewValidation("replacement is required")
	}
	replacement := *in.Replacement

	var targets []docmodel.Match
	if in.Occurrence != nil {
		m, err := e.FindMatch(in.Search, in.Occurrence)
		if err != nil {
			return nil, err
		}
		targets = []docmodel.Match{m}
	} else {
		targets = e.Search(in.Search)
		if len(targets) == 0 {
			return nil, errors.NewTextNotFound(in.Search)
		}
	}

	// Descending order keeps every not-yet-processed match's coordinates
	// valid while earlier (later-positioned) replacements shrink or grow
	// the text.
	sort.Slice(targets, func(i, j int) bool { return targets[i].From > targets[j].From })

	err := e.inMode(docmodel.ModeSuggesting, in.Author, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		for _, m := range targets {
			tx.ReplaceText(m.From, m.To, replacement)
		}
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("replaceText", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReplaceTextOutput{ReplacedCount: len(targets)}, nil
}
