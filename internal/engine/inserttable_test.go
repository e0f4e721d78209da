package engine

import (
	"testing"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
)

func TestInsertTableDefaults(t *testing.T) {
	e := testEngine("Intro")

	out, err := e.InsertTable(InsertTableInput{})
	if err != nil {
		t.Fatalf("InsertTable: %v", err)
	}
	if out.Rows != 2 || out.Cols != 2 {
		t.Errorf("dims = %dx%d, want 2x2", out.Rows, out.Cols)
	}
	// no position anchor: appended at document end, after "Intro"
	if out.At != 7 {
		t.Errorf("at = %d, want 7", out.At)
	}
	cells := e.Doc().NodesByType(docmodel.NodeTableCell)
	if len(cells) != 4 {
		t.Errorf("cells = %d, want 4", len(cells))
	}
}

func TestInsertTableFromData(t *testing.T) {
	e := testEngine("Intro")

	out, err := e.InsertTable(InsertTableInput{
		Data:     [][]string{{"a", "b"}, {"c", "d"}},
		Position: &Position{After: "Intro"},
	})
	if err != nil {
		t.Fatalf("InsertTable: %v", err)
	}
	if out.Rows != 2 || out.Cols != 2 || out.Populated != 4 {
		t.Errorf("out = %+v", out)
	}

	cells := e.Doc().NodesByType(docmodel.NodeTableCell)
	if len(cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(cells))
	}
	// row-major cell order
	want := []string{"a", "b", "c", "d"}
	for i, cell := range cells {
		if cell.Text != want[i] {
			t.Errorf("cell %d = %q, want %q", i, cell.Text, want[i])
		}
	}
}

func TestInsertTableExplicitDimsWin(t *testing.T) {
	e := testEngine("Intro")

	out, err := e.InsertTable(InsertTableInput{
		Rows: intp(3),
		Cols: intp(2),
		Data: [][]string{{"only", "row"}},
	})
	if err != nil {
		t.Fatalf("InsertTable: %v", err)
	}
	if out.Rows != 3 || out.Cols != 2 {
		t.Errorf("dims = %dx%d, want 3x2", out.Rows, out.Cols)
	}
	if out.Populated != 2 {
		t.Errorf("populated = %d, want 2", out.Populated)
	}
}

func TestInsertTableSparseData(t *testing.T) {
	e := testEngine("Intro")

	out, err := e.InsertTable(InsertTableInput{
		Data: [][]string{{"a", ""}, {"", "d"}},
	})
	if err != nil {
		t.Fatalf("InsertTable: %v", err)
	}
	if out.Populated != 2 {
		t.Errorf("populated = %d, want 2", out.Populated)
	}
	cells := e.Doc().NodesByType(docmodel.NodeTableCell)
	got := []string{cells[0].Text, cells[1].Text, cells[2].Text, cells[3].Text}
	want := []string{"a", "", "", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestInsertTableInvalidDims(t *testing.T) {
	e := testEngine("Intro")

	if _, err := e.InsertTable(InsertTableInput{Rows: intp(0), Cols: intp(-1)}); err == nil {
		t.Fatal("expected validation error")
	}
}
