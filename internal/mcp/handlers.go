package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/engine"
	"github.com/superdoc-dev/docbridge/internal/errors"
	"github.com/superdoc-dev/docbridge/internal/host"
)

// Handlers holds dependencies for MCP tool handlers. Each call loads the
// target document from disk, runs one command against a fresh session, and
// persists the result, so tools stay stateless across calls.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log zerolog.Logger
}

// NewHandlers creates a new Handlers instance. db may be nil; revisions are
// then not journaled.
func NewHandlers(db *sql.DB, cfg *config.Config, log zerolog.Logger) *Handlers {
	return &Handlers{
		db:  db,
		cfg: cfg,
		log: log.With().Str("component", "mcp").Logger(),
	}
}

// Handler implementations. Every tool shares the load-run-persist shape; the
// per-tool methods exist so the registry reads as one line per tool.

// HandleGetText handles the doc_get_text tool call.
func (h *Handlers) HandleGetText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "getText")
}

// HandleGetNodes handles the doc_get_nodes tool call.
func (h *Handlers) HandleGetNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "getNodes")
}

// HandleReplaceText handles the doc_replace_text tool call.
func (h *Handlers) HandleReplaceText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "replaceText")
}

// HandleInsertContent handles the doc_insert_content tool call.
func (h *Handlers) HandleInsertContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "insertContent")
}

// HandleFormatText handles the doc_format_text tool call.
func (h *Handlers) HandleFormatText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "formatText")
}

// HandleInsertImage handles the doc_insert_image tool call.
func (h *Handlers) HandleInsertImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "insertImage")
}

// HandleDeleteNode handles the doc_delete_node tool call.
func (h *Handlers) HandleDeleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "deleteNode")
}

// HandleInsertTable handles the doc_insert_table tool call.
func (h *Handlers) HandleInsertTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "insertTable")
}

// HandleUndo handles the doc_undo tool call.
func (h *Handlers) HandleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "undo")
}

// HandleRedo handles the doc_redo tool call.
func (h *Handlers) HandleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "redo")
}

// HandleInsertToc handles the doc_insert_toc tool call.
func (h *Handlers) HandleInsertToc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "insertTableOfContents")
}

// HandleDeleteToc handles the doc_delete_toc tool call.
func (h *Handlers) HandleDeleteToc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "deleteTableOfContents")
}

// HandleAddComment handles the doc_add_comment tool call.
func (h *Handlers) HandleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.run(ctx, req, "addComment")
}

// run executes one document command: load the document named by the doc
// argument, invoke the command with the remaining arguments, and let the
// engine's forced save persist any mutation before the result is reported.
func (h *Handlers) run(ctx context.Context, req mcp.CallToolRequest, command string) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	docPath, _ := args["doc"].(string)
	if docPath == "" {
		return errorResult(errors.NewValidation("doc is required")), nil
	}
	docPath = filepath.Clean(docPath)

	doc, err := host.LoadDocument(docPath)
	if err != nil {
		return errorResult(err), nil
	}

	cmdArgs := make(map[string]any, len(args))
	for k, v := range args {
		if k != "doc" {
			cmdArgs[k] = v
		}
	}

	// Image sources are resolved to embedded data before the command runs,
	// the same as the live-session bridge does.
	if command == "insertImage" {
		if err := h.resolveImageArg(ctx, cmdArgs, filepath.Dir(docPath)); err != nil {
			return errorResult(err), nil
		}
	}

	saver := &host.FileSaver{Doc: doc, Path: docPath, DB: h.db, Log: h.log}
	eng := engine.New(doc, h.cfg, saver, h.log)

	out, err := eng.Invoke(command, cmdArgs)
	if err == engine.ErrNoop {
		return successResult(&engine.HistoryOutput{Applied: false})
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// resolveImageArg rewrites a src argument in place to a data URI. Data URIs
// pass through; an empty src is left for command validation to reject.
func (h *Handlers) resolveImageArg(ctx context.Context, args map[string]any, docDir string) error {
	src, _ := args["src"].(string)
	if src == "" || strings.HasPrefix(src, "data:") {
		return nil
	}
	resolved, err := host.ResolveImageSource(ctx, src, docDir, h.cfg)
	if err != nil {
		return err
	}
	args["src"] = resolved
	return nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if bridgeErr, ok := err.(*errors.BridgeError); ok {
		errorObj := map[string]any{
			"code":    bridgeErr.Code,
			"message": bridgeErr.Message,
		}
		if bridgeErr.Code != errors.ErrInternal && bridgeErr.Details != nil {
			errorObj["details"] = bridgeErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
