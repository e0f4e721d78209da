package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/engine"
	"github.com/superdoc-dev/docbridge/internal/host"
	"github.com/superdoc-dev/docbridge/internal/journal"
)

// setupTestDB creates a temporary revision journal for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	db, err := journal.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test journal: %v", err)
	}
	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

// runCapture runs the app with the given args and returns captured stdout.
func runCapture(t *testing.T, db *sql.DB, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	app := newCLIApp(db, cfg)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"docbridge"}, args...))

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func TestCLIRequiresDocumentArgument(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := runCapture(t, db, config.DefaultConfig(), "export")
	if err == nil {
		t.Fatal("expected error without document argument")
	}
	if !strings.Contains(err.Error(), "document path is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCLIExecAndExport(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := config.DefaultConfig()
	docPath := filepath.Join(t.TempDir(), "notes.doc")

	out, err := runCapture(t, db, cfg,
		"exec", "--args", `{"content":"Hello world"}`, docPath, "insertContent")
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}

	var inserted engine.InsertContentOutput
	if err := json.Unmarshal([]byte(out), &inserted); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if inserted.InsertedBlocks != 1 {
		t.Errorf("expected 1 inserted block, got %d", inserted.InsertedBlocks)
	}

	// The mutation persisted to disk; export reads it back.
	out, err = runCapture(t, db, cfg, "export", "--format", "text", docPath)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.TrimSpace(out) != "Hello world" {
		t.Errorf("expected exported text %q, got %q", "Hello world", out)
	}
}

func TestCLIExecUnknownCommand(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	docPath := filepath.Join(t.TempDir(), "notes.doc")

	_, err := runCapture(t, db, config.DefaultConfig(), "exec", docPath, "bogus")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "UNKNOWN_COMMAND") {
		t.Errorf("expected UNKNOWN_COMMAND, got %v", err)
	}
}

func TestCLIExecRejectsMalformedArgs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	docPath := filepath.Join(t.TempDir(), "notes.doc")

	_, err := runCapture(t, db, config.DefaultConfig(),
		"exec", "--args", "not json", docPath, "replaceText")
	if err == nil {
		t.Fatal("expected error for malformed args")
	}
	if !strings.Contains(err.Error(), "VALIDATION") {
		t.Errorf("expected VALIDATION, got %v", err)
	}
}

func TestCLIHistory(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := config.DefaultConfig()
	docPath := filepath.Join(t.TempDir(), "notes.doc")

	if _, err := runCapture(t, db, cfg,
		"exec", "--args", `{"content":"first"}`, docPath, "insertContent"); err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	if _, err := runCapture(t, db, cfg,
		"exec", "--args", `{"search":"first","replacement":"second"}`, docPath, "replaceText"); err != nil {
		t.Fatalf("exec failed: %v", err)
	}

	out, err := runCapture(t, db, cfg, "history", "--limit", "10", docPath)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}

	var revs []*journal.Revision
	if err := json.Unmarshal([]byte(out), &revs); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(revs) != 2 {
		t.Errorf("expected 2 revisions, got %d", len(revs))
	}
}

func TestCLIExecUndoNoop(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	docPath := filepath.Join(t.TempDir(), "notes.doc")

	out, err := runCapture(t, db, config.DefaultConfig(), "exec", docPath, "undo")
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	var history engine.HistoryOutput
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if history.Applied {
		t.Error("expected applied=false on empty history")
	}
}

func TestAwaitResponse(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "notes.doc")
	cmdPath := host.CommandFilePath(docPath)

	// A pending request must not satisfy the wait; the response replacing it
	// must.
	pending := []byte(`{"id":"req-1","command":"getText"}`)
	if err := os.WriteFile(cmdPath, pending, 0o644); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		response := []byte(`{"id":"req-1","success":true,"result":{}}`)
		_ = os.WriteFile(cmdPath, response, 0o644)
	}()

	result, err := awaitResponse(context.Background(), cmdPath, "req-1", 5*time.Second)
	if err != nil {
		t.Fatalf("awaitResponse failed: %v", err)
	}
	if result["success"] != true {
		t.Errorf("expected success response, got %v", result)
	}
}

func TestAwaitResponseTimeout(t *testing.T) {
	dir := t.TempDir()
	cmdPath := host.CommandFilePath(filepath.Join(dir, "notes.doc"))

	_, err := awaitResponse(context.Background(), cmdPath, "req-1", 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"docbridge"}, false},
		{[]string{"docbridge", "serve"}, true},
		{[]string{"docbridge", "exec"}, true},
		{[]string{"docbridge", "history"}, true},
		{[]string{"docbridge", "--help"}, true},
		{[]string{"docbridge", "-v"}, true},
		{[]string{"docbridge", "garbage"}, false},
	}
	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
