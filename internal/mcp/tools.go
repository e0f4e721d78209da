package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// positionSchema is the shared anchor argument: text whose first occurrence
// the edit lands after or before.
var positionSchema = map[string]any{
	"after": map[string]any{
		"type":        "string",
		"description": "Anchor text; insert after its first occurrence",
	},
	"before": map[string]any{
		"type":        "string",
		"description": "Anchor text; insert before its first occurrence",
	},
}

var getTextToolDef = mcp.NewTool("doc_get_text",
	mcp.WithDescription("Read a document as plain text and/or HTML."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("format",
		mcp.Description("Serialization to return: text, html, or both (default both)"),
		mcp.Enum("text", "html", "both")),
)

var getNodesToolDef = mcp.NewTool("doc_get_nodes",
	mcp.WithDescription("List structural nodes of one type with their position ranges."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("type", mcp.Required(),
		mcp.Description("Node type: paragraph, heading, table, image, toc, or bookmark")),
)

var replaceTextToolDef = mcp.NewTool("doc_replace_text",
	mcp.WithDescription("Replace occurrences of a literal search string as tracked changes."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("search", mcp.Required(),
		mcp.Description("Literal text to find")),
	mcp.WithString("replacement", mcp.Required(),
		mcp.Description("Replacement text; empty string deletes the match")),
	mcp.WithNumber("occurrence",
		mcp.Description("1-indexed match to replace; omit to replace every match")),
	mcp.WithString("author",
		mcp.Description("Attribution name for the tracked change")),
)

var insertContentToolDef = mcp.NewTool("doc_insert_content",
	mcp.WithDescription("Insert paragraphs adjacent to an anchor as tracked changes. Newlines split blocks."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("content", mcp.Required(),
		mcp.Description("Text to insert; newline-separated blocks become paragraphs")),
	mcp.WithObject("position",
		mcp.Description("Anchor; required unless the document is empty"),
		mcp.Properties(positionSchema)),
	mcp.WithString("author",
		mcp.Description("Attribution name for the tracked change")),
)

var formatTextToolDef = mcp.NewTool("doc_format_text",
	mcp.WithDescription("Apply character marks and paragraph attributes to a scope. Applies directly, never tracked."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithObject("scope",
		mcp.Description("Explicit {from,to} range; omit to format the whole document"),
		mcp.Properties(map[string]any{
			"from": map[string]any{"type": "number", "description": "Range start position"},
			"to":   map[string]any{"type": "number", "description": "Range end position"},
		})),
	mcp.WithBoolean("bold", mcp.Description("Set or unset bold")),
	mcp.WithBoolean("italic", mcp.Description("Set or unset italic")),
	mcp.WithBoolean("underline", mcp.Description("Set or unset underline")),
	mcp.WithBoolean("strikethrough", mcp.Description("Set or unset strikethrough")),
	mcp.WithString("fontFamily", mcp.Description("Font family name")),
	mcp.WithString("fontSize", mcp.Description("Font size in points")),
	mcp.WithString("color", mcp.Description("Text color, e.g. #4472C4")),
	mcp.WithString("highlight", mcp.Description("Highlight color")),
	mcp.WithString("link", mcp.Description("Link target URL")),
	mcp.WithNumber("lineHeight", mcp.Description("Paragraph line height multiplier")),
	mcp.WithNumber("indent", mcp.Description("Paragraph left indent in points")),
	mcp.WithNumber("spacingBefore", mcp.Description("Paragraph spacing before in points")),
	mcp.WithNumber("spacingAfter", mcp.Description("Paragraph spacing after in points")),
)

var insertImageToolDef = mcp.NewTool("doc_insert_image",
	mcp.WithDescription("Insert an image from a local path, URL, or data URI. Local paths and URLs are embedded as data."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("src", mcp.Required(),
		mcp.Description("Image source: file path, http(s) URL, or data URI")),
	mcp.WithString("alt", mcp.Description("Alt text")),
	mcp.WithNumber("width", mcp.Description("Display width in pixels")),
	mcp.WithObject("position", mcp.Required(),
		mcp.Description("Anchor next to which the image is inserted"),
		mcp.Properties(positionSchema)),
)

var deleteNodeToolDef = mcp.NewTool("doc_delete_node",
	mcp.WithDescription("Delete the index-th node of a structural type as a tracked change."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("type", mcp.Required(),
		mcp.Description("Node type: paragraph, heading, table, image, or toc")),
	mcp.WithNumber("index", mcp.Required(),
		mcp.Description("0-based index among nodes of that type")),
)

var insertTableToolDef = mcp.NewTool("doc_insert_table",
	mcp.WithDescription("Insert a table, optionally pre-populated row-major from data."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithNumber("rows", mcp.Description("Row count; inferred from data, default 2")),
	mcp.WithNumber("cols", mcp.Description("Column count; inferred from data, default 2")),
	mcp.WithArray("data",
		mcp.Description("Cell text as an array of rows, each an array of strings"),
		mcp.Items(map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		})),
	mcp.WithObject("position",
		mcp.Description("Anchor; required unless the document is empty"),
		mcp.Properties(positionSchema)),
	mcp.WithString("author",
		mcp.Description("Attribution name for the tracked change")),
)

var undoToolDef = mcp.NewTool("doc_undo",
	mcp.WithDescription("Undo the most recent change. Edit history lives only in a live serve session; each tool call opens the document fresh, so this reports applied=false here."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
)

var redoToolDef = mcp.NewTool("doc_redo",
	mcp.WithDescription("Redo the most recently undone change. Edit history lives only in a live serve session; each tool call opens the document fresh, so this reports applied=false here."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
)

var insertTocToolDef = mcp.NewTool("doc_insert_toc",
	mcp.WithDescription("Insert a table of contents whose entries bookmark their target ranges."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithArray("entries", mcp.Required(),
		mcp.Description("TOC entries: {level, from, to} per target heading"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"level": map[string]any{"type": "number", "description": "Outline level 1-6"},
				"from":  map[string]any{"type": "number", "description": "Target range start position"},
				"to":    map[string]any{"type": "number", "description": "Target range end position"},
			},
			"required": []string{"level", "from", "to"},
		})),
	mcp.WithObject("position",
		mcp.Description("Anchor; default is the document start"),
		mcp.Properties(positionSchema)),
	mcp.WithString("title", mcp.Description("Optional TOC title paragraph")),
	mcp.WithObject("style",
		mcp.Description("Entry styling"),
		mcp.Properties(map[string]any{
			"fontFamily": map[string]any{"type": "string"},
			"fontSize":   map[string]any{"type": "string"},
			"color":      map[string]any{"type": "string"},
		})),
)

var deleteTocToolDef = mcp.NewTool("doc_delete_toc",
	mcp.WithDescription("Delete the table of contents and optionally its bookmarks."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithBoolean("removeBookmarks",
		mcp.Description("Also remove the TOC's cross-reference bookmarks")),
)

var addCommentToolDef = mcp.NewTool("doc_add_comment",
	mcp.WithDescription("Anchor a comment thread to a text range found by search."),
	mcp.WithString("doc", mcp.Required(),
		mcp.Description("Path to the document file")),
	mcp.WithString("search", mcp.Required(),
		mcp.Description("Literal text the comment attaches to")),
	mcp.WithString("comment", mcp.Required(),
		mcp.Description("Comment body")),
	mcp.WithNumber("occurrence",
		mcp.Description("1-indexed match to annotate; default first")),
	mcp.WithString("author",
		mcp.Description("Attribution name for the comment")),
)
