package docmodel

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the document editing mode.
type Mode string

const (
	// ModeEditing applies mutations directly.
	ModeEditing Mode = "editing"
	// ModeSuggesting records mutations as attributable, reversible proposals.
	ModeSuggesting Mode = "suggesting"
)

// Identity is the attribution identity used for tracked changes and comments.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ChangeKind classifies a tracked change.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeDelete ChangeKind = "delete"
)

// TrackedChange is one attributed proposed edit recorded in suggesting mode.
type TrackedChange struct {
	Kind    ChangeKind `json:"kind"`
	Author  Identity   `json:"author"`
	At      time.Time  `json:"at"`
	From    int        `json:"from"`
	To      int        `json:"to"`
	Text    string     `json:"text,omitempty"`    // inserted text
	OldText string     `json:"oldText,omitempty"` // removed text
}

// Comment is an attributed annotation anchored to a position range.
type Comment struct {
	ID     string    `json:"id"`
	Author Identity  `json:"author"`
	At     time.Time `json:"at"`
	From   int       `json:"from"`
	To     int       `json:"to"`
	Text   string    `json:"text"`
}

// Range is a half-open position range.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Match is the result of a text search: a half-open position range plus the
// matched literal. Matches are ephemeral; earlier mutations invalidate later
// positions, so they are recomputed per command and never cached.
type Match struct {
	From int
	To   int
	Text string
}

// NodeInfo describes one structural node located in the current document.
type NodeInfo struct {
	Type           NodeType
	From           int
	To             int
	Text           string
	NumberingLabel string

	// Node is the live tree node, nil for synthetic entries (bookmarks).
	Node *Node
}

// Document is the live in-memory representation of one open document.
// It owns the node tree, the editing mode, the editor-level attribution
// identity, tracked changes, comments, and the undo/redo stacks.
type Document struct {
	Nodes    []*Node
	Mode     Mode
	Author   Identity
	Changes  []TrackedChange
	Comments []Comment

	// Selection is the current interactive selection, if any.
	Selection *Range

	undo []snapshot
	redo []snapshot
}

type snapshot struct {
	nodes    []*Node
	changes  []TrackedChange
	comments []Comment
}

// New creates an empty document in editing mode.
func New() *Document {
	return &Document{Mode: ModeEditing}
}

// Empty reports whether the document has no content nodes.
func (d *Document) Empty() bool {
	return len(d.Nodes) == 0
}

// Size returns the document's total position footprint.
func (d *Document) Size() int {
	s := 0
	for _, n := range d.Nodes {
		s += n.size()
	}
	return s
}

// span locates one node in the position space. Parent spans precede and
// enclose child spans.
type span struct {
	node   *Node
	parent *Node // nil for top-level nodes
	index  int   // index within parent's children or the top-level list
	from   int
	to     int
}

// spans returns every node's span in depth-first order.
func (d *Document) spans() []span {
	var out []span
	pos := 0
	for i, n := range d.Nodes {
		pos = appendSpans(&out, n, nil, i, pos)
	}
	return out
}

func appendSpans(out *[]span, n *Node, parent *Node, index, pos int) int {
	from := pos
	to := pos + n.size()
	*out = append(*out, span{node: n, parent: parent, index: index, from: from, to: to})
	child := pos + 1
	for i, c := range n.Children {
		child = appendSpans(out, c, n, i, child)
	}
	return to
}

// leafAt resolves a text position to the leaf node containing it and the
// rune offset within that leaf's text. Positions on node boundaries do not
// resolve to a leaf.
func (d *Document) leafAt(pos int) (*Node, int, bool) {
	for _, s := range d.spans() {
		if !s.node.leaf() {
			continue
		}
		if pos >= s.from+1 && pos <= s.to-1 {
			return s.node, pos - s.from - 1, true
		}
	}
	return nil, 0, false
}

// NearestTextPos snaps pos onto a leaf-interior position: the closest valid
// text position at or after pos (forward) or at or before it (backward).
// Bookmark markers can only live inside a leaf's text, so callers holding a
// node range snap its boundary-token endpoints inward first.
func (d *Document) NearestTextPos(pos int, forward bool) (int, bool) {
	best := -1
	for _, s := range d.spans() {
		if !s.node.leaf() || s.to-s.from < 2 {
			continue
		}
		lo, hi := s.from+1, s.to-1
		if forward {
			if hi < pos {
				continue
			}
			p := lo
			if pos > p {
				p = pos
			}
			if best == -1 || p < best {
				best = p
			}
		} else {
			if lo > pos {
				continue
			}
			p := hi
			if pos < p {
				p = pos
			}
			if p > best {
				best = p
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// blockAt returns the top-level span containing pos, if any.
func (d *Document) blockAt(pos int) (span, bool) {
	cursor := 0
	for i, n := range d.Nodes {
		to := cursor + n.size()
		if pos >= cursor && pos < to {
			return span{node: n, index: i, from: cursor, to: to}, true
		}
		cursor = to
	}
	return span{}, false
}

// BlockRange returns the position range of the top-level block containing pos.
func (d *Document) BlockRange(pos int) (Range, bool) {
	s, ok := d.blockAt(pos)
	if !ok {
		return Range{}, false
	}
	return Range{From: s.from, To: s.to}, true
}

// Search finds every non-overlapping occurrence of text, in document order.
// Text runs split across inline formatting are seen as one continuous string
// because marks do not fragment a leaf's text. Each call re-scans the current
// tree; results from before a mutation must not be reused.
func (d *Document) Search(text string) []Match {
	if text == "" {
		return nil
	}
	var out []Match
	needle := []rune(text)
	for _, s := range d.spans() {
		if !s.node.leaf() {
			continue
		}
		hay := []rune(s.node.Text)
		for i := 0; i+len(needle) <= len(hay); {
			if string(hay[i:i+len(needle)]) == text {
				out = append(out, Match{
					From: s.from + 1 + i,
					To:   s.from + 1 + i + len(needle),
					Text: text,
				})
				i += len(needle)
			} else {
				i++
			}
		}
	}
	return out
}

// NodesByType returns every node of the given type with its position range,
// in document order. Bookmarks are synthesized from marker pairs.
func (d *Document) NodesByType(t NodeType) []NodeInfo {
	if t == NodeBookmark {
		return d.bookmarkInfos()
	}
	var out []NodeInfo
	for _, s := range d.spans() {
		if s.node.Type != t {
			continue
		}
		out = append(out, NodeInfo{
			Type:           s.node.Type,
			From:           s.from,
			To:             s.to,
			Text:           s.node.text(),
			NumberingLabel: s.node.Attrs.NumberingLabel,
			Node:           s.node,
		})
	}
	return out
}

// bookmarkInfos pairs start/end markers by name into synthetic node infos.
func (d *Document) bookmarkInfos() []NodeInfo {
	type pos struct{ start, end int }
	found := map[string]*pos{}
	var order []string

	for _, s := range d.spans() {
		if !s.node.leaf() {
			continue
		}
		for _, bm := range s.node.Bookmarks {
			p, ok := found[bm.Name]
			if !ok {
				p = &pos{start: -1, end: -1}
				found[bm.Name] = p
				order = append(order, bm.Name)
			}
			at := s.from + 1 + bm.Pos
			if bm.End {
				p.end = at
			} else {
				p.start = at
			}
		}
	}

	var out []NodeInfo
	for _, name := range order {
		p := found[name]
		from, to := p.start, p.end
		if from < 0 {
			from = to
		}
		if to < from {
			to = from
		}
		out = append(out, NodeInfo{
			Type: NodeBookmark,
			From: from,
			To:   to,
			Text: name,
		})
	}
	return out
}

// BookmarkNames returns the names of all bookmark marker pairs in the document.
func (d *Document) BookmarkNames() []string {
	infos := d.bookmarkInfos()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Text
	}
	return names
}

// Text returns the document's plain text, leaf texts joined by newlines.
func (d *Document) Text() string {
	var parts []string
	for _, n := range d.Nodes {
		parts = append(parts, n.text())
	}
	return strings.Join(parts, "\n")
}

// TextIn returns the literal text covered by [from, to), skipping node
// boundary tokens. Used to resolve heading text for TOC entries.
func (d *Document) TextIn(from, to int) string {
	if from >= to {
		return ""
	}
	var b strings.Builder
	for _, s := range d.spans() {
		if !s.node.leaf() {
			continue
		}
		lo, hi := s.from+1, s.to-1
		if hi <= from || lo >= to {
			continue
		}
		start := max(from, lo)
		end := min(to, hi)
		runes := []rune(s.node.Text)
		b.WriteString(string(runes[start-lo : end-lo]))
	}
	return b.String()
}

// InBounds reports whether [from, to) is a valid non-inverted range within
// the document.
func (d *Document) InBounds(from, to int) bool {
	return from >= 0 && from < to && to <= d.Size()
}

// cloneState deep-copies the mutable document state (tree, changes, comments)
// without the undo history.
func (d *Document) cloneState() *Document {
	out := &Document{
		Mode:   d.Mode,
		Author: d.Author,
	}
	for _, n := range d.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	out.Changes = append([]TrackedChange(nil), d.Changes...)
	out.Comments = append([]Comment(nil), d.Comments...)
	return out
}

func (d *Document) takeSnapshot() snapshot {
	c := d.cloneState()
	return snapshot{nodes: c.Nodes, changes: c.Changes, comments: c.Comments}
}

func (d *Document) restoreSnapshot(s snapshot) {
	d.Nodes = s.nodes
	d.Changes = s.changes
	d.Comments = s.comments
	d.Selection = nil
}

// Undo reverts the most recent transaction. Returns false when there is
// nothing to undo.
func (d *Document) Undo() bool {
	if len(d.undo) == 0 {
		return false
	}
	last := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.redo = append(d.redo, d.takeSnapshot())
	d.restoreSnapshot(last)
	return true
}

// Redo re-applies the most recently undone transaction. Returns false when
// there is nothing to redo.
func (d *Document) Redo() bool {
	if len(d.redo) == 0 {
		return false
	}
	last := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]
	d.undo = append(d.undo, d.takeSnapshot())
	d.restoreSnapshot(last)
	return true
}

// String implements fmt.Stringer for debug logging.
func (d *Document) String() string {
	return fmt.Sprintf("Document(nodes=%d, size=%d, mode=%s)", len(d.Nodes), d.Size(), d.Mode)
}
