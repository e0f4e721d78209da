package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/engine"
	"github.com/superdoc-dev/docbridge/internal/journal"
)

// testSetup creates handlers bound to a temp directory, returning the
// directory so tests can place document files in it.
func testSetup(t *testing.T) (*Handlers, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	return NewHandlers(nil, cfg, zerolog.Nop()), dir
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// decodeResult unmarshals a tool result's JSON payload into out.
func decodeResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text := result.Content[0].(mcp.TextContent).Text
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("failed to decode result %q: %v", text, err)
	}
}

// errorCode extracts the structured error code from an error result.
func errorCode(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeResult(t, result, &payload)
	return payload.Error.Code
}

func TestRegistryMatchesCommandSet(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(engine.CommandNames()) {
		t.Errorf("got %d tools, want %d", len(names), len(engine.CommandNames()))
	}
	for _, name := range names {
		if !strings.HasPrefix(name, "doc_") {
			t.Errorf("tool %q missing doc_ prefix", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"doc_undo", "doc_get_text"})
	if len(unknown) != 0 {
		t.Errorf("expected no unknown tools, got %v", unknown)
	}

	unknown = ValidateDisabledTools([]string{"doc_undo", "doc_teleport"})
	if len(unknown) != 1 || unknown[0] != "doc_teleport" {
		t.Errorf("expected [doc_teleport], got %v", unknown)
	}
}

func TestHandleRequiresDocArgument(t *testing.T) {
	h, _ := testSetup(t)

	result, err := h.HandleGetText(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if code := errorCode(t, result); code != "VALIDATION" {
		t.Errorf("expected VALIDATION, got %s", code)
	}
}

func TestHandleEditRoundTrip(t *testing.T) {
	h, dir := testSetup(t)
	docPath := filepath.Join(dir, "notes.doc")

	result, err := h.HandleInsertContent(context.Background(), makeRequest(map[string]any{
		"doc":     docPath,
		"content": "Hello world",
	}))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if result.IsError {
		t.Fatalf("insert failed: %v", result.Content)
	}

	// The mutation must be on disk before the result is reported.
	if _, err := os.Stat(docPath); err != nil {
		t.Fatalf("document not persisted: %v", err)
	}

	result, err = h.HandleReplaceText(context.Background(), makeRequest(map[string]any{
		"doc":         docPath,
		"search":      "world",
		"replacement": "there",
	}))
	if err != nil {
		t.Fatalf("replace error: %v", err)
	}
	if result.IsError {
		t.Fatalf("replace failed: %v", result.Content)
	}
	var replaced engine.ReplaceTextOutput
	decodeResult(t, result, &replaced)
	if replaced.ReplacedCount != 1 {
		t.Errorf("expected 1 replacement, got %d", replaced.ReplacedCount)
	}

	result, err = h.HandleGetText(context.Background(), makeRequest(map[string]any{
		"doc":    docPath,
		"format": "text",
	}))
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	var got engine.GetTextOutput
	decodeResult(t, result, &got)
	if got.Text == nil || *got.Text != "Hello there" {
		t.Errorf("unexpected text: %v", got.Text)
	}
}

func TestHandleCommandFailure(t *testing.T) {
	h, dir := testSetup(t)
	docPath := filepath.Join(dir, "notes.doc")

	result, err := h.HandleReplaceText(context.Background(), makeRequest(map[string]any{
		"doc":         docPath,
		"search":      "missing",
		"replacement": "x",
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if code := errorCode(t, result); code != "TEXT_NOT_FOUND" {
		t.Errorf("expected TEXT_NOT_FOUND, got %s", code)
	}
}

func TestHandleUndoNoop(t *testing.T) {
	h, dir := testSetup(t)
	docPath := filepath.Join(dir, "notes.doc")

	result, err := h.HandleUndo(context.Background(), makeRequest(map[string]any{
		"doc": docPath,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatal("noop undo should not be an error result")
	}
	var out engine.HistoryOutput
	decodeResult(t, result, &out)
	if out.Applied {
		t.Error("expected applied=false on empty history")
	}
}

// Edit history does not survive across tool calls: each call imports the
// document fresh, so an undo after a prior call's edit has nothing to revert.
func TestHandleUndoDoesNotSpanCalls(t *testing.T) {
	h, dir := testSetup(t)
	docPath := filepath.Join(dir, "notes.doc")

	result, err := h.HandleInsertContent(context.Background(), makeRequest(map[string]any{
		"doc":     docPath,
		"content": "Hello world",
	}))
	if err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if result.IsError {
		t.Fatalf("insert failed: %v", result.Content)
	}

	result, err = h.HandleUndo(context.Background(), makeRequest(map[string]any{
		"doc": docPath,
	}))
	if err != nil {
		t.Fatalf("undo error: %v", err)
	}
	var out engine.HistoryOutput
	decodeResult(t, result, &out)
	if out.Applied {
		t.Error("undo applied against a freshly opened document")
	}

	result, err = h.HandleGetText(context.Background(), makeRequest(map[string]any{
		"doc":    docPath,
		"format": "text",
	}))
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	var got engine.GetTextOutput
	decodeResult(t, result, &got)
	if got.Text == nil || *got.Text != "Hello world" {
		t.Errorf("document changed by a no-op undo: %v", got.Text)
	}
}

func TestHandleInsertImageFromLocalFile(t *testing.T) {
	h, dir := testSetup(t)
	docPath := filepath.Join(dir, "notes.doc")
	imgPath := filepath.Join(dir, "pic.png")
	if err := os.WriteFile(imgPath, []byte("not-really-a-png"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := h.HandleInsertContent(context.Background(), makeRequest(map[string]any{
		"doc":     docPath,
		"content": "Intro",
	}))
	if err != nil || result.IsError {
		t.Fatalf("setup insert failed: %v %v", err, result)
	}

	result, err = h.HandleInsertImage(context.Background(), makeRequest(map[string]any{
		"doc":      docPath,
		"src":      "pic.png",
		"alt":      "a picture",
		"position": map[string]any{"after": "Intro"},
	}))
	if err != nil {
		t.Fatalf("insert image error: %v", err)
	}
	if result.IsError {
		t.Fatalf("insert image failed: %v", result.Content)
	}

	result, err = h.HandleGetNodes(context.Background(), makeRequest(map[string]any{
		"doc":  docPath,
		"type": "image",
	}))
	if err != nil || result.IsError {
		t.Fatalf("get nodes failed: %v %v", err, result)
	}
	var nodes engine.GetNodesOutput
	decodeResult(t, result, &nodes)
	if len(nodes.Nodes) != 1 {
		t.Fatalf("expected 1 image node, got %d", len(nodes.Nodes))
	}
}

func TestHandleInsertImageResolutionFailure(t *testing.T) {
	h, dir := testSetup(t)
	docPath := filepath.Join(dir, "notes.doc")

	result, err := h.HandleInsertContent(context.Background(), makeRequest(map[string]any{
		"doc":     docPath,
		"content": "Intro",
	}))
	if err != nil || result.IsError {
		t.Fatalf("setup insert failed: %v %v", err, result)
	}

	result, err = h.HandleInsertImage(context.Background(), makeRequest(map[string]any{
		"doc":      docPath,
		"src":      "missing.png",
		"position": map[string]any{"after": "Intro"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for unreadable image")
	}
	if code := errorCode(t, result); code != "RESOURCE_RESOLUTION_FAILED" {
		t.Errorf("expected RESOURCE_RESOLUTION_FAILED, got %s", code)
	}
}

func TestHandleJournalsRevisions(t *testing.T) {
	dir := t.TempDir()
	db, err := journal.Init(dir)
	if err != nil {
		t.Fatalf("failed to init journal: %v", err)
	}
	defer db.Close()

	h := NewHandlers(db, config.DefaultConfig(), zerolog.Nop())
	docPath := filepath.Join(dir, "notes.doc")

	result, err := h.HandleInsertContent(context.Background(), makeRequest(map[string]any{
		"doc":     docPath,
		"content": "first",
	}))
	if err != nil || result.IsError {
		t.Fatalf("insert failed: %v %v", err, result)
	}
	result, err = h.HandleInsertContent(context.Background(), makeRequest(map[string]any{
		"doc":      docPath,
		"content":  "second",
		"position": map[string]any{"after": "first"},
	}))
	if err != nil || result.IsError {
		t.Fatalf("insert failed: %v %v", err, result)
	}

	revs, err := journal.ListRevisions(db, docPath, 10)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revs) == 0 {
		t.Fatal("expected journaled revisions after mutations")
	}
}
