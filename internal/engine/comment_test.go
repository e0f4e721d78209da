package engine

import (
	"testing"

	"github.com/superdoc-dev/docbridge/internal/errors"
)

func TestAddComment(t *testing.T) {
	e := testEngine("Please review this section")

	out, err := e.AddComment(AddCommentInput{Search: "review this", Comment: "needs a citation"})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if out.CommentID == "" {
		t.Error("empty comment id")
	}

	doc := e.Doc()
	if len(doc.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(doc.Comments))
	}
	c := doc.Comments[0]
	if c.ID != out.CommentID {
		t.Errorf("id = %q, want %q", c.ID, out.CommentID)
	}
	if c.Text != "needs a citation" {
		t.Errorf("text = %q", c.Text)
	}
	if c.From != out.From || c.To != out.To {
		t.Errorf("range = [%d, %d), out = [%d, %d)", c.From, c.To, out.From, out.To)
	}
	if got := doc.TextIn(c.From, c.To); got != "review this" {
		t.Errorf("anchored text = %q", got)
	}
	if c.Author.Name != "AI Assistant" {
		t.Errorf("author = %q", c.Author.Name)
	}
}

func TestAddCommentWithAuthorAndOccurrence(t *testing.T) {
	e := testEngine("fix this", "and fix this too")

	author := "Reviewer"
	out, err := e.AddComment(AddCommentInput{
		Search:     "fix this",
		Comment:    "second one",
		Occurrence: intp(2),
		Author:     &author,
	})
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	// second paragraph opens at 10, "fix this" at text offset 4
	if out.From != 15 {
		t.Errorf("from = %d, want 15", out.From)
	}
	if e.Doc().Comments[0].Author.Name != "Reviewer" {
		t.Errorf("author = %q", e.Doc().Comments[0].Author.Name)
	}
}

func TestAddCommentErrors(t *testing.T) {
	e := testEngine("some text")

	if _, err := e.AddComment(AddCommentInput{Comment: "x"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing search: err = %v", err)
	}
	if _, err := e.AddComment(AddCommentInput{Search: "some"}); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("missing comment: err = %v", err)
	}
	if _, err := e.AddComment(AddCommentInput{Search: "missing", Comment: "x"}); !errors.Is(err, errors.ErrTextNotFound) {
		t.Errorf("no match: err = %v", err)
	}
	if _, err := e.AddComment(AddCommentInput{Search: "some", Comment: "x", Occurrence: intp(4)}); !errors.Is(err, errors.ErrOccurrenceNotFound) {
		t.Errorf("bad occurrence: err = %v", err)
	}
}
