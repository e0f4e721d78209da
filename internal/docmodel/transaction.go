package docmodel

import (
	"fmt"
	"time"
)

// StepMap records how one applied step changed the position space: the range
// [Pos, Pos+OldSize) was replaced by [Pos, Pos+NewSize).
type StepMap struct {
	Pos     int
	OldSize int
	NewSize int
}

// Mapping is the accumulated position translation of a sequence of steps.
type Mapping []StepMap

// Map translates a position recorded before the mapped steps ran into the
// position space after them.
func (m Mapping) Map(p int) int {
	for _, e := range m {
		switch {
		case p <= e.Pos:
			// before the edit, unaffected
		case p >= e.Pos+e.OldSize:
			p += e.NewSize - e.OldSize
		default:
			// inside the replaced range: collapse to its new end
			p = e.Pos + e.NewSize
		}
	}
	return p
}

type stepKind int

const (
	stepReplaceText stepKind = iota
	stepInsertNode
	stepDeleteNode
	stepAddMark
	stepRemoveMark
	stepSetParagraphAttrs
	stepInsertBookmark
	stepRemoveBookmark
	stepAddComment
)

// AttrsPatch selectively overrides paragraph layout attributes. Nil fields
// are left untouched; a pointer to the zero value unsets the attribute.
type AttrsPatch struct {
	LineHeight    *float64
	Indent        *float64
	SpacingBefore *int
	SpacingAfter  *int
}

type step struct {
	kind stepKind
	from int
	to   int

	// mapped requests that from/to be translated through the mapping
	// accumulated by the steps already applied in this transaction.
	mapped bool

	text      string
	node      *Node
	mark      Mark
	markType  MarkType
	attrs     AttrsPatch
	name      string
	end       bool
	commentID string
}

// Transaction is an ordered batch of structural edits applied to the document
// as one indivisible unit. Steps are staged first and committed by
// Document.Apply; a failing step leaves the document untouched.
type Transaction struct {
	steps  []step
	author Identity
}

// NewTransaction creates an empty transaction attributed to the given identity.
func NewTransaction(author Identity) *Transaction {
	return &Transaction{author: author}
}

// ReplaceText stages replacement of the text range [from, to) with text.
// The range must lie within a single text-bearing leaf.
func (tx *Transaction) ReplaceText(from, to int, text string) {
	tx.steps = append(tx.steps, step{kind: stepReplaceText, from: from, to: to, text: text})
}

// InsertNode stages insertion of a block node at a top-level gap position.
func (tx *Transaction) InsertNode(pos int, n *Node) {
	tx.steps = append(tx.steps, step{kind: stepInsertNode, from: pos, node: n})
}

// InsertNodeMapped stages insertion of a block node at a position recorded
// before this transaction's earlier steps; the position is remapped through
// their accumulated mapping at apply time.
func (tx *Transaction) InsertNodeMapped(pos int, n *Node) {
	tx.steps = append(tx.steps, step{kind: stepInsertNode, from: pos, node: n, mapped: true})
}

// DeleteNode stages removal of the node whose full range is exactly [from, to).
func (tx *Transaction) DeleteNode(from, to int) {
	tx.steps = append(tx.steps, step{kind: stepDeleteNode, from: from, to: to})
}

// AddMark stages application of an inline mark over [from, to).
func (tx *Transaction) AddMark(from, to int, m Mark) {
	tx.steps = append(tx.steps, step{kind: stepAddMark, from: from, to: to, mark: m})
}

// RemoveMark stages removal of all marks of the given type over [from, to).
func (tx *Transaction) RemoveMark(from, to int, t MarkType) {
	tx.steps = append(tx.steps, step{kind: stepRemoveMark, from: from, to: to, markType: t})
}

// SetParagraphAttrs stages a layout-attribute patch on every paragraph-like
// node intersecting [from, to).
func (tx *Transaction) SetParagraphAttrs(from, to int, patch AttrsPatch) {
	tx.steps = append(tx.steps, step{kind: stepSetParagraphAttrs, from: from, to: to, attrs: patch})
}

// InsertBookmark stages a zero-width bookmark marker at a text position.
func (tx *Transaction) InsertBookmark(pos int, name string, end bool) {
	tx.steps = append(tx.steps, step{kind: stepInsertBookmark, from: pos, name: name, end: end})
}

// RemoveBookmark stages removal of both markers of the named bookmark.
func (tx *Transaction) RemoveBookmark(name string) {
	tx.steps = append(tx.steps, step{kind: stepRemoveBookmark, name: name})
}

// AddComment stages attachment of a comment annotation over [from, to).
func (tx *Transaction) AddComment(id string, from, to int, text string) {
	tx.steps = append(tx.steps, step{kind: stepAddComment, from: from, to: to, text: text, commentID: id})
}

// Empty reports whether the transaction has no staged steps.
func (tx *Transaction) Empty() bool {
	return len(tx.steps) == 0
}

// Apply commits the transaction atomically. All steps run against a working
// copy; only if every step succeeds does the document adopt the result and
// push an undo snapshot. Positions in each step refer to the document state
// at the start of the transaction unless the step was staged as mapped.
func (d *Document) Apply(tx *Transaction) error {
	work := d.cloneState()
	var mapping Mapping

	for i, st := range tx.steps {
		from, to := st.from, st.to
		if st.mapped {
			from = mapping.Map(from)
			to = mapping.Map(to)
		}
		sm, err := work.applyStep(st, from, to, tx.author)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if sm != nil {
			mapping = append(mapping, *sm)
		}
	}

	d.undo = append(d.undo, d.takeSnapshot())
	d.redo = nil
	d.Nodes = work.Nodes
	d.Changes = work.Changes
	d.Comments = work.Comments
	return nil
}

// applyStep executes one step against the working state and returns its
// position map, or nil for steps that do not move positions.
func (w *Document) applyStep(st step, from, to int, author Identity) (*StepMap, error) {
	switch st.kind {
	case stepReplaceText:
		return w.replaceTextRange(from, to, st.text, author)
	case stepInsertNode:
		return w.insertBlock(from, st.node, author)
	case stepDeleteNode:
		return w.deleteNodeRange(from, to, author)
	case stepAddMark:
		return nil, w.addMarkRange(from, to, st.mark)
	case stepRemoveMark:
		return nil, w.removeMarkRange(from, to, st.markType)
	case stepSetParagraphAttrs:
		return nil, w.patchParagraphAttrs(from, to, st.attrs)
	case stepInsertBookmark:
		return nil, w.insertBookmarkMarker(from, st.name, st.end)
	case stepRemoveBookmark:
		w.removeBookmarkMarkers(st.name)
		return nil, nil
	case stepAddComment:
		w.Comments = append(w.Comments, Comment{
			ID:     st.commentID,
			Author: author,
			At:     time.Now(),
			From:   from,
			To:     to,
			Text:   st.text,
		})
		return nil, nil
	}
	return nil, fmt.Errorf("unknown step kind %d", st.kind)
}

func (w *Document) replaceTextRange(from, to int, text string, author Identity) (*StepMap, error) {
	if from > to {
		return nil, fmt.Errorf("inverted range [%d, %d)", from, to)
	}
	leaf, off, ok := w.leafAt(from)
	if !ok {
		return nil, fmt.Errorf("position %d is not inside a text node", from)
	}
	leafEnd, endOff, ok := w.leafAt(to)
	if !ok || leafEnd != leaf {
		return nil, fmt.Errorf("range [%d, %d) spans a structural boundary", from, to)
	}

	runes := []rune(leaf.Text)
	replaced := string(runes[off:endOff])
	inserted := []rune(text)
	leaf.Text = string(runes[:off]) + text + string(runes[endOff:])

	oldLen := endOff - off
	delta := len(inserted) - oldLen
	leaf.Marks = shiftMarks(leaf.Marks, off, endOff, delta)
	leaf.Bookmarks = shiftBookmarks(leaf.Bookmarks, off, endOff, delta)

	if w.Mode == ModeSuggesting {
		w.recordChange(from, oldLen, text, replaced, author)
	}

	return &StepMap{Pos: from, OldSize: oldLen, NewSize: len(inserted)}, nil
}

// recordChange appends tracked-change records for a text replacement.
func (w *Document) recordChange(from, oldLen int, inserted, removed string, author Identity) {
	now := time.Now()
	if removed != "" {
		w.Changes = append(w.Changes, TrackedChange{
			Kind:    ChangeDelete,
			Author:  author,
			At:      now,
			From:    from,
			To:      from + oldLen,
			OldText: removed,
		})
	}
	if inserted != "" {
		w.Changes = append(w.Changes, TrackedChange{
			Kind:   ChangeInsert,
			Author: author,
			At:     now,
			From:   from,
			To:     from + runeLen(inserted),
			Text:   inserted,
		})
	}
}

func (w *Document) insertBlock(pos int, n *Node, author Identity) (*StepMap, error) {
	if n == nil {
		return nil, fmt.Errorf("nil node")
	}
	if pos < 0 || pos > w.Size() {
		return nil, fmt.Errorf("insert position %d out of bounds", pos)
	}

	// Find the top-level index whose gap matches pos. Positions inside a
	// block snap to the gap after it.
	idx := len(w.Nodes)
	cursor := 0
	for i, b := range w.Nodes {
		if pos <= cursor {
			idx = i
			break
		}
		cursor += b.size()
	}

	w.Nodes = append(w.Nodes[:idx], append([]*Node{n}, w.Nodes[idx:]...)...)

	if w.Mode == ModeSuggesting {
		w.Changes = append(w.Changes, TrackedChange{
			Kind:   ChangeInsert,
			Author: author,
			At:     time.Now(),
			From:   pos,
			To:     pos + n.size(),
			Text:   n.text(),
		})
	}

	return &StepMap{Pos: pos, OldSize: 0, NewSize: n.size()}, nil
}

func (w *Document) deleteNodeRange(from, to int, author Identity) (*StepMap, error) {
	for _, s := range w.spans() {
		if s.from != from || s.to != to {
			continue
		}
		removed := s.node.text()
		if s.parent == nil {
			w.Nodes = append(w.Nodes[:s.index], w.Nodes[s.index+1:]...)
		} else {
			s.parent.Children = append(s.parent.Children[:s.index], s.parent.Children[s.index+1:]...)
		}
		if w.Mode == ModeSuggesting {
			w.Changes = append(w.Changes, TrackedChange{
				Kind:    ChangeDelete,
				Author:  author,
				At:      time.Now(),
				From:    from,
				To:      to,
				OldText: removed,
			})
		}
		return &StepMap{Pos: from, OldSize: to - from, NewSize: 0}, nil
	}
	return nil, fmt.Errorf("no node with range [%d, %d)", from, to)
}

func (w *Document) addMarkRange(from, to int, m Mark) error {
	return w.eachLeafRange(from, to, func(leaf *Node, lo, hi int) {
		leaf.Marks = removeMarkType(leaf.Marks, lo, hi, m.Type)
		nm := m
		nm.From, nm.To = lo, hi
		leaf.Marks = append(leaf.Marks, nm)
	})
}

func (w *Document) removeMarkRange(from, to int, t MarkType) error {
	return w.eachLeafRange(from, to, func(leaf *Node, lo, hi int) {
		leaf.Marks = removeMarkType(leaf.Marks, lo, hi, t)
	})
}

// eachLeafRange invokes fn for every leaf intersecting [from, to) with the
// intersection expressed in leaf-local rune offsets.
func (w *Document) eachLeafRange(from, to int, fn func(leaf *Node, lo, hi int)) error {
	if from >= to {
		return fmt.Errorf("empty range [%d, %d)", from, to)
	}
	touched := false
	for _, s := range w.spans() {
		if !s.node.leaf() {
			continue
		}
		lo, hi := s.from+1, s.to-1
		if hi <= from || lo >= to {
			continue
		}
		start := max(from, lo) - lo
		end := min(to, hi) - lo
		if start < end {
			fn(s.node, start, end)
			touched = true
		}
	}
	if !touched {
		return fmt.Errorf("range [%d, %d) covers no text", from, to)
	}
	return nil
}

func (w *Document) patchParagraphAttrs(from, to int, patch AttrsPatch) error {
	applied := false
	for _, s := range w.spans() {
		if !s.node.leaf() {
			continue
		}
		if s.to <= from || s.from >= to {
			continue
		}
		a := &s.node.Attrs
		if patch.LineHeight != nil {
			a.LineHeight = *patch.LineHeight
		}
		if patch.Indent != nil {
			a.Indent = *patch.Indent
		}
		if patch.SpacingBefore != nil {
			a.SpacingBefore = *patch.SpacingBefore
		}
		if patch.SpacingAfter != nil {
			a.SpacingAfter = *patch.SpacingAfter
		}
		applied = true
	}
	if !applied {
		return fmt.Errorf("range [%d, %d) covers no paragraphs", from, to)
	}
	return nil
}

func (w *Document) insertBookmarkMarker(pos int, name string, end bool) error {
	leaf, off, ok := w.leafAt(pos)
	if !ok {
		return fmt.Errorf("bookmark position %d is not inside a text node", pos)
	}
	leaf.Bookmarks = append(leaf.Bookmarks, BookmarkMarker{Name: name, Pos: off, End: end})
	return nil
}

func (w *Document) removeBookmarkMarkers(name string) {
	for _, s := range w.spans() {
		if !s.node.leaf() || len(s.node.Bookmarks) == 0 {
			continue
		}
		kept := s.node.Bookmarks[:0]
		for _, bm := range s.node.Bookmarks {
			if bm.Name != name {
				kept = append(kept, bm)
			}
		}
		s.node.Bookmarks = kept
	}
}

// shiftMarks adjusts mark offsets for a text splice replacing [from, to)
// with delta = newLen - oldLen.
func shiftMarks(marks []Mark, from, to, delta int) []Mark {
	out := marks[:0]
	for _, m := range marks {
		switch {
		case m.To <= from:
			// before the splice
		case m.From >= to:
			m.From += delta
			m.To += delta
		default:
			if m.From > from {
				m.From = from
			}
			if m.To >= to {
				m.To += delta
			} else {
				m.To = from
			}
		}
		if m.From < m.To {
			out = append(out, m)
		}
	}
	return out
}

// shiftBookmarks adjusts marker offsets for a text splice.
func shiftBookmarks(bms []BookmarkMarker, from, to, delta int) []BookmarkMarker {
	out := bms[:0]
	for _, bm := range bms {
		switch {
		case bm.Pos <= from:
			// unchanged
		case bm.Pos >= to:
			bm.Pos += delta
		default:
			bm.Pos = from
		}
		out = append(out, bm)
	}
	return out
}

// removeMarkType clips away marks of type t within [lo, hi), splitting marks
// that straddle the boundary.
func removeMarkType(marks []Mark, lo, hi int, t MarkType) []Mark {
	var out []Mark
	for _, m := range marks {
		if m.Type != t || m.To <= lo || m.From >= hi {
			out = append(out, m)
			continue
		}
		if m.From < lo {
			left := m
			left.To = lo
			out = append(out, left)
		}
		if m.To > hi {
			right := m
			right.From = hi
			out = append(out, right)
		}
	}
	return out
}
