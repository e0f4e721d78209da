package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/errors"
)

// TocBookmarkPrefix reserves a bookmark namespace for TOC cross-references;
// deleteTableOfContents only removes bookmarks carrying it.
const TocBookmarkPrefix = "_Toc_"

// tocEntryColor is the default entry text color.
const tocEntryColor = "#4472C4"

// tocIndentPerLevel is the per-nesting-level indentation in points.
const tocIndentPerLevel = 20.0

// TocEntry describes one heading's document range.
type TocEntry struct {
	Level int `json:"level"` // 1..6
	From  int `json:"from"`
	To    int `json:"to"`
}

// TocStyle overrides the default TOC visual styling.
type TocStyle struct {
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Color      string  `json:"color,omitempty"`
}

// InsertTocInput contains parameters for the insertTableOfContents command.
type InsertTocInput struct {
	Entries  []TocEntry `json:"entries"`
	Position *Position  `json:"position,omitempty"`
	Title    string     `json:"title,omitempty"`
	Style    *TocStyle  `json:"style,omitempty"`
	Author   *string    `json:"author,omitempty"`
}

// InsertTocOutput contains the result of the insertTableOfContents command.
type InsertTocOutput struct {
	Entries   int      `json:"entries"`
	Bookmarks []string `json:"bookmarks"`
	At        int      `json:"at"`
}

// InsertTableOfContents builds a TOC with cross-reference bookmarks:
//
//  1. every entry is validated and its heading text read before any mutation;
//  2. a unique bookmark name is synthesized per entry from the entry index
//     and one shared timestamp, so repeated TOC insertions in a session never
//     collide;
//  3. the TOC's own insertion position is resolved up front;
//  4. one atomic transaction inserts the bookmark pairs in descending range
//     order and the TOC node at the pre-resolved position remapped through
//     the transaction's earlier steps;
//  5. each TOC paragraph is then styled individually in editing mode — a
//     single selection cannot span the TOC container's structural boundary.
func (e *Engine) InsertTableOfContents(in InsertTocInput) (*InsertTocOutput, error) {
	if len(in.Entries) == 0 {
		return nil, errors.NewValidation("entries is required and must not be empty")
	}

	type resolved struct {
		TocEntry
		markFrom, markTo int
		text             string
		bookmark         string
	}
	stamp := time.Now().UnixNano()
	entries := make([]resolved, len(in.Entries))
	for i, entry := range in.Entries {
		if entry.Level < 1 || entry.Level > 6 {
			return nil, errors.NewValidation(fmt.Sprintf("entry %d: level %d out of range 1..6", i, entry.Level))
		}
		if entry.From >= entry.To {
			return nil, errors.NewValidation(fmt.Sprintf("entry %d: inverted or empty range [%d, %d)", i, entry.From, entry.To))
		}
		if !e.doc.InBounds(entry.From, entry.To) {
			return nil, errors.NewValidation(fmt.Sprintf("entry %d: range [%d, %d) out of document bounds", i, entry.From, entry.To))
		}
		text := strings.TrimSpace(e.doc.TextIn(entry.From, entry.To))
		if text == "" {
			return nil, errors.NewValidation(fmt.Sprintf("entry %d: range resolves to empty text", i))
		}
		// entry ranges usually come from getNodes and include the node's
		// boundary tokens; markers can only sit inside leaf text
		markFrom, okFrom := e.doc.NearestTextPos(entry.From, true)
		markTo, okTo := e.doc.NearestTextPos(entry.To, false)
		if !okFrom || !okTo || markFrom > markTo {
			return nil, errors.NewValidation(fmt.Sprintf("entry %d: range [%d, %d) contains no text positions", i, entry.From, entry.To))
		}
		entries[i] = resolved{
			TocEntry: entry,
			markFrom: markFrom,
			markTo:   markTo,
			text:     text,
			bookmark: fmt.Sprintf("%s%d_%d", TocBookmarkPrefix, i, stamp),
		}
	}

	tocPos := 0
	if !in.Position.empty() {
		p, err := e.resolveInsertPos(in.Position)
		if err != nil {
			return nil, err
		}
		tocPos = p
	}

	toc := &docmodel.Node{Type: docmodel.NodeTOC}
	if in.Title != "" {
		toc.Children = append(toc.Children, &docmodel.Node{
			Type:  docmodel.NodeParagraph,
			Text:  in.Title,
			Attrs: docmodel.Attrs{TocTitle: true},
		})
	}
	for _, entry := range entries {
		toc.Children = append(toc.Children, &docmodel.Node{
			Type:  docmodel.NodeParagraph,
			Text:  entry.text,
			Attrs: docmodel.Attrs{Level: entry.Level, Anchor: entry.bookmark},
		})
	}

	bookmarks := make([]string, len(entries))
	for i, entry := range entries {
		bookmarks[i] = entry.bookmark
	}

	err := e.inMode(docmodel.ModeEditing, in.Author, func(id docmodel.Identity) error {
		byPos := append([]resolved(nil), entries...)
		sort.Slice(byPos, func(i, j int) bool { return byPos[i].markFrom > byPos[j].markFrom })

		tx := docmodel.NewTransaction(id)
		for _, entry := range byPos {
			tx.InsertBookmark(entry.markFrom, entry.bookmark, false)
			tx.InsertBookmark(entry.markTo, entry.bookmark, true)
		}
		tx.InsertNodeMapped(tocPos, toc)
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("insertTableOfContents", err)
		}

		return e.styleToc(bookmarks[0], in.Style, id)
	})
	if err != nil {
		return nil, err
	}

	return &InsertTocOutput{Entries: len(entries), Bookmarks: bookmarks, At: tocPos}, nil
}

// styleToc applies the visual pass to the TOC whose first entry links to
// firstBookmark. Each paragraph gets its own transaction.
func (e *Engine) styleToc(firstBookmark string, style *TocStyle, id docmodel.Identity) error {
	color := tocEntryColor
	fontFamily := ""
	fontSize := 0.0
	if style != nil {
		if style.Color != "" {
			color = style.Color
		}
		fontFamily = style.FontFamily
		fontSize = style.FontSize
	}

	toc, ok := e.findTocByAnchor(firstBookmark)
	if !ok {
		return errors.NewOperationFailed("insertTableOfContents", fmt.Errorf("inserted TOC not found"))
	}

	paras := e.paragraphsWithin(toc)
	for _, p := range paras {
		if p.To-p.From <= 2 {
			continue // empty paragraph, nothing to style
		}
		lo, hi := p.From+1, p.To-1

		tx := docmodel.NewTransaction(id)
		tx.AddMark(lo, hi, docmodel.Mark{Type: docmodel.MarkBold})
		tx.AddMark(lo, hi, docmodel.Mark{Type: docmodel.MarkColor, Value: color})
		if fontFamily != "" {
			tx.AddMark(lo, hi, docmodel.Mark{Type: docmodel.MarkFontFamily, Value: fontFamily})
		}

		attrs := p.Node.Attrs
		if attrs.TocTitle {
			if size := titleSize(fontSize); size > 0 {
				tx.AddMark(lo, hi, docmodel.Mark{Type: docmodel.MarkFontSize, Value: fmt.Sprintf("%g", size)})
			}
		} else {
			if fontSize > 0 {
				tx.AddMark(lo, hi, docmodel.Mark{Type: docmodel.MarkFontSize, Value: fmt.Sprintf("%g", fontSize)})
			}
			if attrs.Level > 1 {
				indent := tocIndentPerLevel * float64(attrs.Level-1)
				tx.SetParagraphAttrs(p.From, p.To, docmodel.AttrsPatch{Indent: &indent})
			}
		}

		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("insertTableOfContents", err)
		}
	}
	return nil
}

// titleSize returns the title font size: the entry size scaled up, or a
// fixed default when no entry size was given.
func titleSize(entrySize float64) float64 {
	if entrySize > 0 {
		return entrySize + 4
	}
	return 16
}

func (e *Engine) findTocByAnchor(bookmark string) (docmodel.NodeInfo, bool) {
	for _, toc := range e.doc.NodesByType(docmodel.NodeTOC) {
		for _, child := range toc.Node.Children {
			if child.Attrs.Anchor == bookmark {
				return toc, true
			}
		}
	}
	return docmodel.NodeInfo{}, false
}

func (e *Engine) paragraphsWithin(container docmodel.NodeInfo) []docmodel.NodeInfo {
	var out []docmodel.NodeInfo
	for _, p := range e.doc.NodesByType(docmodel.NodeParagraph) {
		if p.From >= container.From && p.To <= container.To {
			out = append(out, p)
		}
	}
	return out
}

// DeleteTocInput contains parameters for the deleteTableOfContents command.
type DeleteTocInput struct {
	RemoveBookmarks bool `json:"removeBookmarks,omitempty"`
}

// DeleteTocOutput contains the result of the deleteTableOfContents command.
type DeleteTocOutput struct {
	RemovedBookmarks int `json:"removedBookmarks"`
}

// DeleteTableOfContents removes the first TOC container and, when requested,
// every bookmark pair in the TOC-reserved namespace, in one atomic
// transaction with deletions applied in descending position order.
func (e *Engine) DeleteTableOfContents(in DeleteTocInput) (*DeleteTocOutput, error) {
	tocs := e.doc.NodesByType(docmodel.NodeTOC)
	if len(tocs) == 0 {
		return nil, errors.NewNoTocFound()
	}
	target := tocs[0]

	type deletion struct {
		from, to int
		bookmark string // empty for the TOC node itself
	}
	deletions := []deletion{{from: target.From, to: target.To}}

	removed := 0
	if in.RemoveBookmarks {
		for _, bm := range e.doc.NodesByType(docmodel.NodeBookmark) {
			if strings.HasPrefix(bm.Text, TocBookmarkPrefix) {
				deletions = append(deletions, deletion{from: bm.From, to: bm.To, bookmark: bm.Text})
				removed++
			}
		}
	}

	sort.Slice(deletions, func(i, j int) bool { return deletions[i].from > deletions[j].from })

	err := e.inMode(docmodel.ModeEditing, nil, func(id docmodel.Identity) error {
		tx := docmodel.NewTransaction(id)
		for _, d := range deletions {
			if d.bookmark != "" {
				tx.RemoveBookmark(d.bookmark)
			} else {
				tx.DeleteNode(d.from, d.to)
			}
		}
		if err := e.doc.Apply(tx); err != nil {
			return errors.NewOperationFailed("deleteTableOfContents", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &DeleteTocOutput{RemovedBookmarks: removed}, nil
}
