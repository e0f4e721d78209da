package engine

import (
	"sort"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// InsertTableInput contains parameters for the insertTable command.
type InsertTableInput struct {
	Rows     *int       `json:"rows,omitempty"`
	Cols     *int       `json:"cols,omitempty"`
	Data     [][]string `json:"data,omitempty"`
	Position *Position  `json:"position,omitempty"`
	Author   *string    `json:"author,omitempty"`
}

// InsertTableOutput contains the result of the insertTable command.
type InsertTableOutput struct {
	Rows      int `json:"rows"`
	Cols      int `json:"cols"`
	At        int `json:"at"`
	Populated int `json:"populated"` // cells filled from data
}

// InsertTable creates a table and optionally populates it from data.
// Dimensions default to data's shape, or 2x2 when neither rows/cols nor data
// are given. Runs in suggesting mode.
func (e *Engine) InsertTable(in InsertTableInput) (*InsertTableOutput, error) {
	rows, cols := tableDims(in)
	if rows < 1 || cols < 1 {
		return nil, errors.NewValidation("table dimensions must be at least 1x1")
	}

	pos := e.doc.Size()
	if !in.Position.empty() {
		p, err := e.resolveInsertPos(in.Position)
		if err != nil {
			return nil, err
		}
		pos = p
	}

	populated := 0
	err := e.inMode(docmodel.ModeSuggesting, in.Author, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		tx.InsertNode(pos, docmodel.NewTable(rows, cols))
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("insertTable", err)
		}

		if len(in.Data) == 0 {
			return nil
		}

		table, ok := e.locateTable(pos)
		if !ok {
			return errors.NewOperationFailed("insertTable", nil)
		}

		n, err := e.populateTable(table, in.Data, rows, cols, id)
		if err != nil {
			return err
		}
		populated = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InsertTableOutput{Rows: rows, Cols: cols, At: pos, Populated: populated}, nil
}

func tableDims(in InsertTableInput) (rows, cols int) {
	if in.Rows != nil {
		rows = *in.Rows
	}
	if in.Cols != nil {
		cols = *in.Cols
	}
	if len(in.Data) > 0 {
		if rows == 0 {
			rows = len(in.Data)
		}
		if cols == 0 {
			cols = len(in.Data[0])
		}
	}
	if rows == 0 {
		rows = 2
	}
	if cols == 0 {
		cols = 2
	}
	return rows, cols
}

// locateTable finds the table created at or nearest to the insertion
// position, falling back to the most recently created (last) table. This is
// a heuristic: with multiple tables inserted at nearby positions it can pick
// the wrong one.
func (e *Engine) locateTable(insertPos int) (docmodel.NodeInfo, bool) {
	tables := e.doc.NodesByType(docmodel.NodeTable)
	if len(tables) == 0 {
		return docmodel.NodeInfo{}, false
	}
	best := tables[len(tables)-1]
	bestDist := -1
	for _, t := range tables {
		d := t.From - insertPos
		if d < 0 {
			d = -d
		}
		if bestDist == -1 || d < bestDist {
			best = t
			bestDist = d
		}
	}
	return best, true
}

// populateTable writes cell contents in reverse cell-index order so each
// insertion leaves the positions of not-yet-written cells untouched.
func (e *Engine) populateTable(table docmodel.NodeInfo, data [][]string, rows, cols int, id docmodel.Identity) (int, error) {
	cells := e.doc.NodesByType(docmodel.NodeTableCell)
	var inTable []docmodel.NodeInfo
	for _, c := range cells {
		if c.From >= table.From && c.To <= table.To {
			inTable = append(inTable, c)
		}
	}
	sort.Slice(inTable, func(i, j int) bool { return inTable[i].From < inTable[j].From })

	type fill struct {
		pos  int
		text string
	}
	var fills []fill
	for r := 0; r < rows && r < len(data); r++ {
		for c := 0; c < cols && c < len(data[r]); c++ {
			idx := r*cols + c
			if idx >= len(inTable) || data[r][c] == "" {
				continue
			}
			// cell open + paragraph open put the empty paragraph's interior
			// two positions past the cell start
			fills = append(fills, fill{pos: inTable[idx].From + 2, text: data[r][c]})
		}
	}
	if len(fills) == 0 {
		return 0, nil
	}

	sort.Slice(fills, func(i, j int) bool { return fills[i].pos > fills[j].pos })

	tx := docmodel.NewTransaction(id)
	for _, f := range fills {
		tx.ReplaceText(f.pos, f.pos, f.text)
	}
	if err := e.doc.Apply(tx); err != nil {
		return 0, errors.NewOperationFailed("insertTable", err)
	}
	return len(fills), nil
}
