package engine

// HistoryOutput contains the result of an undo or redo command.
type HistoryOutput struct {
	Applied bool `json:"applied"`
}

// Undo invokes the document's native undo. A no-op (nothing to undo) is
// reported as success:false without an error message.
func (e *Engine) Undo() (*HistoryOutput, error) {
	if !e.doc.Undo() {
		return nil, ErrNoop
	}
	return &HistoryOutput{Applied: true}, nil
}

// Redo invokes the document's native redo, with the same no-op semantics
// as Undo.
func (e *Engine) Redo() (*HistoryOutput, error) {
	if !e.doc.Redo() {
		return nil, ErrNoop
	}
	return &HistoryOutput{Applied: true}, nil
}
