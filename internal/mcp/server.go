// Package mcp exposes document commands as MCP tools over stdio, letting an
// AI agent edit documents on disk without a live editor session.
package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"doc_get_text": {
		def:     getTextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetText },
	},
	"doc_get_nodes": {
		def:     getNodesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetNodes },
	},
	"doc_replace_text": {
		def:     replaceTextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReplaceText },
	},
	"doc_insert_content": {
		def:     insertContentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInsertContent },
	},
	"doc_format_text": {
		def:     formatTextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFormatText },
	},
	"doc_insert_image": {
		def:     insertImageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInsertImage },
	},
	"doc_delete_node": {
		def:     deleteNodeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeleteNode },
	},
	"doc_insert_table": {
		def:     insertTableToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInsertTable },
	},
	"doc_undo": {
		def:     undoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUndo },
	},
	"doc_redo": {
		def:     redoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRedo },
	},
	"doc_insert_toc": {
		def:     insertTocToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInsertToc },
	},
	"doc_delete_toc": {
		def:     deleteTocToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeleteToc },
	},
	"doc_add_comment": {
		def:     addCommentToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddComment },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with document tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string, log zerolog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"docbridge",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, log)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string, log zerolog.Logger) error {
	s := NewServer(db, cfg, version, log)
	return server.ServeStdio(s)
}
