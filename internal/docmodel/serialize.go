package docmodel

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// blobMagic prefixes every exported blob. The byte format is opaque to the
// host; only the engine interprets it.
var blobMagic = []byte("DOCBRIDGE\x00")

const blobVersion = 1

type blobBody struct {
	Version  int             `json:"version"`
	Nodes    []*Node         `json:"nodes"`
	Changes  []TrackedChange `json:"changes,omitempty"`
	Comments []Comment       `json:"comments,omitempty"`
}

// Export serializes the document's content state to its binary form.
// Editing mode, selection, and undo history are session state and are not
// part of the blob.
func (d *Document) Export() ([]byte, error) {
	body, err := json.Marshal(blobBody{
		Version:  blobVersion,
		Nodes:    d.Nodes,
		Changes:  d.Changes,
		Comments: d.Comments,
	})
	if err != nil {
		return nil, fmt.Errorf("export document: %w", err)
	}
	return append(append([]byte(nil), blobMagic...), body...), nil
}

// Import parses a blob produced by Export into a fresh document session.
// The returned document starts in editing mode with empty undo history;
// stale session state never survives a reload.
func Import(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, blobMagic) {
		return nil, fmt.Errorf("not a document blob")
	}
	var body blobBody
	if err := json.Unmarshal(data[len(blobMagic):], &body); err != nil {
		return nil, fmt.Errorf("import document: %w", err)
	}
	if body.Version != blobVersion {
		return nil, fmt.Errorf("unsupported blob version %d", body.Version)
	}
	return &Document{
		Nodes:    body.Nodes,
		Mode:     ModeEditing,
		Changes:  body.Changes,
		Comments: body.Comments,
	}, nil
}
