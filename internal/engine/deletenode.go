package engine

import (
	"fmt"
	"strings"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// DeleteNodeInput contains parameters for the deleteNode command.
type DeleteNodeInput struct {
	Type  string `json:"type"`
	Index *int   `json:"index"` // 0-based
}

// DeleteNodeOutput contains the result of the deleteNode command.
type DeleteNodeOutput struct {
	Type string `json:"type"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// DeleteNode deletes the index-th node of the given structural type by
// selecting its full position range. Runs in suggesting mode.
func (e *Engine) DeleteNode(in DeleteNodeInput) (*DeleteNodeOutput, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, errors.NewValidation(fmt.Sprintf("type is required: one of %s", nodeTypeList()))
	}
	t := docmodel.NodeType(in.Type)
	if !docmodel.ValidNodeType(t) {
		return nil, errors.NewValidation(fmt.Sprintf("invalid node type %q: must be one of %s", in.Type, nodeTypeList()))
	}
	if in.Index == nil {
		return nil, errors.NewValidation("index is required")
	}

	infos := e.doc.NodesByType(t)
	if len(infos) == 0 {
		return nil, errors.NewNodeNotFound(in.Type)
	}
	idx := *in.Index
	if idx < 0 || idx >= len(infos) {
		return nil, errors.NewIndexOutOfRange(idx, len(infos))
	}
	target := infos[idx]

	err := e.inMode(docmodel.ModeSuggesting, nil, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		if t == docmodel.NodeBookmark {
			// bookmarks are marker pairs, not tree nodes
			tx.RemoveBookmark(target.Text)
		} else {
			tx.DeleteNode(target.From, target.To)
		}
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("deleteNode", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &DeleteNodeOutput{Type: in.Type, From: target.From, To: target.To}, nil
}
