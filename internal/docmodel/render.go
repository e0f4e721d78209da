package docmodel

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md is the shared markdown renderer for HTML export. The table extension
// covers pipe tables produced by table nodes.
var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the document as HTML. The document is first lowered to a
// markdown intermediate (headings, emphasis marks, pipe tables) and then
// converted, so the HTML view stays consistent with the plain-text view.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(d.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Markdown lowers the document tree to markdown blocks.
func (d *Document) Markdown() string {
	var blocks []string
	for _, n := range d.Nodes {
		blocks = append(blocks, blockMarkdown(n)...)
	}
	return strings.Join(blocks, "\n\n")
}

func blockMarkdown(n *Node) []string {
	switch n.Type {
	case NodeHeading:
		level := n.Attrs.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return []string{strings.Repeat("#", level) + " " + inlineMarkdown(n)}
	case NodeParagraph:
		return []string{inlineMarkdown(n)}
	case NodeListItem:
		marker := n.Attrs.NumberingLabel
		if marker == "" {
			marker = "-"
		}
		return []string{marker + " " + inlineMarkdown(n)}
	case NodeImage:
		return []string{fmt.Sprintf("![%s](%s)", n.Attrs.Alt, imageRef(n))}
	case NodeTable:
		return []string{tableMarkdown(n)}
	case NodeTOC:
		var out []string
		for _, p := range n.Children {
			out = append(out, blockMarkdown(p)...)
		}
		return out
	}
	// containers encountered outside a table render their leaves
	var out []string
	for _, c := range n.Children {
		out = append(out, blockMarkdown(c)...)
	}
	return out
}

// imageRef keeps data URIs out of rendered markdown; a full base64 payload
// inside an href is useless to a reader.
func imageRef(n *Node) string {
	if strings.HasPrefix(n.Attrs.Src, "data:") {
		return ""
	}
	return n.Attrs.Src
}

func tableMarkdown(table *Node) string {
	var rows [][]string
	cols := 0
	for _, row := range table.Children {
		var cells []string
		for _, cell := range row.Children {
			cells = append(cells, strings.ReplaceAll(cell.text(), "\n", " "))
		}
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || cols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for c := 0; c < cols; c++ {
			v := ""
			if c < len(cells) {
				v = cells[c]
			}
			b.WriteString(" " + v + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for c := 0; c < cols; c++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
	return strings.TrimRight(b.String(), "\n")
}

// inlineMarkdown wraps bold and italic mark segments with emphasis markers.
// Other mark types have no markdown equivalent and pass through as plain text.
func inlineMarkdown(n *Node) string {
	runes := []rune(n.Text)
	if len(runes) == 0 {
		return ""
	}

	// Collect boundaries where the active emphasis set can change.
	bounds := map[int]bool{0: true, len(runes): true}
	for _, m := range n.Marks {
		if m.Type == MarkBold || m.Type == MarkItalic {
			bounds[clamp(m.From, 0, len(runes))] = true
			bounds[clamp(m.To, 0, len(runes))] = true
		}
	}
	cuts := make([]int, 0, len(bounds))
	for b := range bounds {
		cuts = append(cuts, b)
	}
	sort.Ints(cuts)

	var b strings.Builder
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]
		if lo >= hi {
			continue
		}
		seg := string(runes[lo:hi])
		bold, italic := false, false
		for _, m := range n.Marks {
			if m.From <= lo && m.To >= hi {
				switch m.Type {
				case MarkBold:
					bold = true
				case MarkItalic:
					italic = true
				}
			}
		}
		switch {
		case bold && italic:
			b.WriteString("***" + seg + "***")
		case bold:
			b.WriteString("**" + seg + "**")
		case italic:
			b.WriteString("*" + seg + "*")
		default:
			b.WriteString(seg)
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
