package docmodel

import "strings"

// NodeType identifies a structural node kind.
type NodeType string

const (
	NodeParagraph NodeType = "paragraph"
	NodeHeading   NodeType = "heading"
	NodeListItem  NodeType = "listItem"
	NodeTable     NodeType = "table"
	NodeTableRow  NodeType = "tableRow"
	NodeTableCell NodeType = "tableCell"
	NodeImage     NodeType = "image"
	NodeTOC       NodeType = "toc"
	NodeBookmark  NodeType = "bookmark"
)

// KnownNodeTypes lists every type accepted by node queries, in a stable order.
var KnownNodeTypes = []NodeType{
	NodeParagraph, NodeHeading, NodeListItem,
	NodeTable, NodeTableRow, NodeTableCell,
	NodeImage, NodeTOC, NodeBookmark,
}

// ValidNodeType reports whether t names a known structural node type.
func ValidNodeType(t NodeType) bool {
	for _, k := range KnownNodeTypes {
		if k == t {
			return true
		}
	}
	return false
}

// MarkType identifies an inline formatting attribute.
type MarkType string

const (
	MarkBold          MarkType = "bold"
	MarkItalic        MarkType = "italic"
	MarkUnderline     MarkType = "underline"
	MarkStrikethrough MarkType = "strikethrough"
	MarkColor         MarkType = "color"
	MarkHighlight     MarkType = "highlight"
	MarkLink          MarkType = "link"
	MarkFontFamily    MarkType = "fontFamily"
	MarkFontSize      MarkType = "fontSize"
)

// Mark is an inline formatting range within a single text-bearing node.
// From and To are rune offsets into the node's text, half-open.
// Value carries the attribute for string-valued marks (color, link, font).
type Mark struct {
	From  int      `json:"from"`
	To    int      `json:"to"`
	Type  MarkType `json:"type"`
	Value string   `json:"value,omitempty"`
}

// BookmarkMarker is a named zero-width position marker inside a text node.
// Markers come in start/end pairs sharing a name.
type BookmarkMarker struct {
	Name string `json:"name"`
	Pos  int    `json:"pos"` // rune offset into the node's text
	End  bool   `json:"end,omitempty"`
}

// Attrs holds node attributes. Which fields are meaningful depends on the
// node type; unused fields stay at their zero value and are omitted from
// serialized output.
type Attrs struct {
	Level          int     `json:"level,omitempty"`          // heading level, TOC entry level
	LineHeight     float64 `json:"lineHeight,omitempty"`     // multiplier, 0 = unset
	Indent         float64 `json:"indent,omitempty"`         // points, 0 = unset
	SpacingBefore  int     `json:"spacingBefore,omitempty"`  // twentieths of a point
	SpacingAfter   int     `json:"spacingAfter,omitempty"`   // twentieths of a point
	NumberingLabel string  `json:"numberingLabel,omitempty"` // list marker, e.g. "1." or "•"
	Alt            string  `json:"alt,omitempty"`            // image alt text
	Width          int     `json:"width,omitempty"`          // image width in pixels
	Src            string  `json:"src,omitempty"`            // image data reference
	Anchor         string  `json:"anchor,omitempty"`         // internal-link bookmark target
	TocTitle       bool    `json:"tocTitle,omitempty"`       // marks the TOC title paragraph
}

// Node is one structural node in the document tree. Text-bearing leaves
// (paragraph, heading, listItem) carry Text, Marks, and Bookmarks; containers
// (table, tableRow, tableCell, toc) carry Children; images carry only Attrs.
type Node struct {
	Type      NodeType         `json:"type"`
	Text      string           `json:"text,omitempty"`
	Marks     []Mark           `json:"marks,omitempty"`
	Bookmarks []BookmarkMarker `json:"bookmarks,omitempty"`
	Attrs     Attrs            `json:"attrs,omitempty"`
	Children  []*Node          `json:"children,omitempty"`
}

// NewParagraph creates a paragraph node with the given text.
func NewParagraph(text string) *Node {
	return &Node{Type: NodeParagraph, Text: text}
}

// NewHeading creates a heading node with the given level and text.
func NewHeading(level int, text string) *Node {
	return &Node{Type: NodeHeading, Text: text, Attrs: Attrs{Level: level}}
}

// NewImage creates an image node.
func NewImage(src, alt string, width int) *Node {
	return &Node{Type: NodeImage, Attrs: Attrs{Src: src, Alt: alt, Width: width}}
}

// NewTable creates a table with the given dimensions. Every cell holds one
// empty paragraph.
func NewTable(rows, cols int) *Node {
	table := &Node{Type: NodeTable}
	for r := 0; r < rows; r++ {
		row := &Node{Type: NodeTableRow}
		for c := 0; c < cols; c++ {
			cell := &Node{Type: NodeTableCell, Children: []*Node{NewParagraph("")}}
			row.Children = append(row.Children, cell)
		}
		table.Children = append(table.Children, row)
	}
	return table
}

// leaf reports whether the node carries text directly.
func (n *Node) leaf() bool {
	switch n.Type {
	case NodeParagraph, NodeHeading, NodeListItem:
		return true
	}
	return false
}

// size returns the node's footprint in document positions: one open token,
// one close token, and one unit per text rune or child footprint.
func (n *Node) size() int {
	if n.leaf() {
		return 2 + runeLen(n.Text)
	}
	if n.Type == NodeImage {
		return 2
	}
	s := 2
	for _, c := range n.Children {
		s += c.size()
	}
	return s
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	out := &Node{
		Type:  n.Type,
		Text:  n.Text,
		Attrs: n.Attrs,
	}
	if len(n.Marks) > 0 {
		out.Marks = append([]Mark(nil), n.Marks...)
	}
	if len(n.Bookmarks) > 0 {
		out.Bookmarks = append([]BookmarkMarker(nil), n.Bookmarks...)
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.Clone())
	}
	return out
}

// text returns the concatenated text of the node's subtree, leaves joined
// by newlines.
func (n *Node) text() string {
	if n.leaf() {
		return n.Text
	}
	var parts []string
	for _, c := range n.Children {
		parts = append(parts, c.text())
	}
	return strings.Join(parts, "\n")
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
