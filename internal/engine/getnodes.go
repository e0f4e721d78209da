package engine

import (
	"fmt"
	"strings"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// previewLimit caps the text preview returned per node.
const previewLimit = 100

// GetNodesInput contains parameters for the getNodes command.
type GetNodesInput struct {
	Type string `json:"type"`
}

// NodeSummary describes one structural node of the requested type.
type NodeSummary struct {
	Type           string `json:"type"`
	From           int    `json:"from"`
	To             int    `json:"to"`
	TextPreview    string `json:"textPreview"`
	TextLength     int    `json:"textLength"`
	NumberingLabel string `json:"numberingLabel,omitempty"`
}

// GetNodesOutput contains the ordered node list for one structural type.
type GetNodesOutput struct {
	Type  string        `json:"type"`
	Count int           `json:"count"`
	Nodes []NodeSummary `json:"nodes"`
}

// GetNodes lists all structural nodes of the given type with position ranges
// and text previews.
func (e *Engine) GetNodes(in GetNodesInput) (*GetNodesOutput, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, errors.NewValidation(fmt.Sprintf("type is required: one of %s", nodeTypeList()))
	}
	t := docmodel.NodeType(in.Type)
	if !docmodel.ValidNodeType(t) {
		return nil, errors.NewValidation(fmt.Sprintf("invalid node type %q: must be one of %s", in.Type, nodeTypeList()))
	}

	infos := e.doc.NodesByType(t)
	out := &GetNodesOutput{
		Type:  in.Type,
		Count: len(infos),
		Nodes: make([]NodeSummary, 0, len(infos)),
	}
	for _, info := range infos {
		out.Nodes = append(out.Nodes, NodeSummary{
			Type:           string(info.Type),
			From:           info.From,
			To:             info.To,
			TextPreview:    preview(info.Text),
			TextLength:     len([]rune(info.Text)),
			NumberingLabel: info.NumberingLabel,
		})
	}
	return out, nil
}

// preview truncates text to the first previewLimit runes, appending an
// ellipsis when longer.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + "..."
}

func nodeTypeList() string {
	names := make([]string, len(docmodel.KnownNodeTypes))
	for i, t := range docmodel.KnownNodeTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
