package engine

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

func TestInsertContentEmptyDocument(t *testing.T) {
	e := New(docmodel.New(), nil, nil, zerolog.Nop())

	out, err := e.InsertContent(InsertContentInput{Content: "Hello"})
	if err != nil {
		t.Fatalf("InsertContent: %v", err)
	}
	if out.InsertedBlocks != 1 || out.At != 0 {
		t.Errorf("out = %+v, want 1 block at 0", out)
	}
	if got := e.Doc().Text(); got != "Hello" {
		t.Errorf("text = %q", got)
	}

	gt, err := e.GetText(GetTextInput{Format: "html"})
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if gt.HTML == nil || strings.TrimSpace(*gt.HTML) != "<p>Hello</p>" {
		t.Errorf("html = %v", gt.HTML)
	}
}

func TestInsertContentRequiresAnchorWhenNonEmpty(t *testing.T) {
	e := testEngine("Existing")

	if _, err := e.InsertContent(InsertContentInput{Content: "New"}); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("err = %v, want VALIDATION", err)
	}
}

func TestInsertContentMultiLineAfterAnchor(t *testing.T) {
	e := testEngine("Intro", "Outro")

	out, err := e.InsertContent(InsertContentInput{
		Content:  "First\nSecond",
		Position: &Position{After: "Intro"},
	})
	if err != nil {
		t.Fatalf("InsertContent: %v", err)
	}
	if out.InsertedBlocks != 2 {
		t.Errorf("insertedBlocks = %d, want 2", out.InsertedBlocks)
	}
	if got := e.Doc().Text(); got != "Intro\nFirst\nSecond\nOutro" {
		t.Errorf("text = %q", got)
	}
}

func TestInsertContentBeforeAnchor(t *testing.T) {
	e := testEngine("Body")

	if _, err := e.InsertContent(InsertContentInput{
		Content:  "Title",
		Position: &Position{Before: "Body"},
	}); err != nil {
		t.Fatalf("InsertContent: %v", err)
	}
	if got := e.Doc().Text(); got != "Title\nBody" {
		t.Errorf("text = %q", got)
	}
}

func TestInsertContentTracked(t *testing.T) {
	e := testEngine("Intro")

	if _, err := e.InsertContent(InsertContentInput{
		Content:  "Added",
		Position: &Position{After: "Intro"},
	}); err != nil {
		t.Fatalf("InsertContent: %v", err)
	}
	if e.Doc().Mode != docmodel.ModeEditing {
		t.Errorf("mode = %s, want editing restored", e.Doc().Mode)
	}
}
