package engine

import (
	"strings"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// AddCommentInput contains parameters for the addComment command.
type AddCommentInput struct {
	Search     string  `json:"search"`
	Comment    string  `json:"comment"`
	Occurrence *int    `json:"occurrence,omitempty"`
	Author     *string `json:"author,omitempty"`
}

// AddCommentOutput contains the result of the addComment command.
type AddCommentOutput struct {
	CommentID string `json:"commentId"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

// AddComment anchors a comment thread to a text range found by search.
// Comments attach in whichever mode the session is in; they are annotations,
// not content edits, so no mode switch happens here.
func (e *Engine) AddComment(in AddCommentInput) (*AddCommentOutput, error) {
	if strings.TrimSpace(in.Search) == "" {
		return nil, errors.NewValidation("search is required")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return nil, errors.NewValidation("comment is required")
	}

	m, err := e.FindMatch(in.Search, in.Occurrence)
	if err != nil {
		return nil, err
	}

	id := e.setAuthorIfProvided(in.Author)
	commentID := newID()

	tx := docmodel.NewTransaction(id)
	tx.AddComment(commentID, m.From, m.To, in.Comment)
	if err := e.doc.Apply(tx); err != nil {
		return nil, errors.NewCommentFailed(err)
	}

	return &AddCommentOutput{CommentID: commentID, From: m.From, To: m.To}, nil
}
