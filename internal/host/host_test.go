package host

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/protocol"
	"github.com/superdoc-dev/docbridge/internal/session"
)

func blobOf(t *testing.T, paras ...string) []byte {
	t.Helper()
	d := docmodel.New()
	for _, p := range paras {
		d.Nodes = append(d.Nodes, docmodel.NewParagraph(p))
	}
	data, err := d.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return data
}

func TestCommandFilePath(t *testing.T) {
	got := CommandFilePath("/docs/plan.docx")
	want := filepath.Join("/docs", ".plan.docx.commands.json")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestSelfWriteSuppression(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.bin")
	if err := os.WriteFile(docPath, blobOf(t, "original"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.SaveSuppressionMs = 250

	surface, hostEP := protocol.NewPipe(16)
	ctrl := NewController(hostEP, docPath, cfg, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ctrl.Run(ctx) }()

	select {
	case m := <-surface.Recv():
		if m.Type != protocol.TypeUpdate {
			t.Fatalf("first message = %s, want update", m.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial update")
	}

	// self-write: the resulting file event must not bounce back as a reload
	ctrl.Persist(blobOf(t, "self write"))
	select {
	case m := <-surface.Recv():
		t.Fatalf("unexpected %s during suppression window", m.Type)
	case <-time.After(150 * time.Millisecond):
	}

	// external write after the window expires triggers exactly one reload
	time.Sleep(200 * time.Millisecond)
	external := blobOf(t, "external change")
	if err := os.WriteFile(docPath, external, 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-surface.Recv():
		if m.Type != protocol.TypeReload {
			t.Fatalf("message = %s, want reload", m.Type)
		}
		doc, err := docmodel.Import(m.Content.Data)
		if err != nil {
			t.Fatalf("import reloaded blob: %v", err)
		}
		if got := doc.Text(); got != "external change" {
			t.Errorf("reloaded text = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("external change did not trigger a reload")
	}
}

// TestBridgeEndToEnd runs the full stack: agent writes a command file, the
// bridge dispatches it into the session, and the result lands back in the
// same file after the mutation was persisted.
func TestBridgeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.bin")
	if err := os.WriteFile(docPath, blobOf(t, "The cat sat"), 0600); err != nil {
		t.Fatal(err)
	}

	surfaceEP, hostEP := protocol.NewPipe(16)
	sess := session.New(surfaceEP, config.DefaultConfig(), zerolog.Nop())
	ctrl := NewController(hostEP, docPath, config.DefaultConfig(), nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sess.Run(ctx) }()
	go func() { _ = ctrl.Run(ctx) }()

	select {
	case <-sess.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session never became ready")
	}

	req, _ := json.Marshal(map[string]any{
		"id":      "cmd-1",
		"command": "replaceText",
		"args":    map[string]any{"search": "cat", "replacement": "dog"},
	})
	cmdPath := ctrl.Bridge().CommandPath()
	if err := os.WriteFile(cmdPath, req, 0600); err != nil {
		t.Fatal(err)
	}

	res := awaitResult(t, cmdPath, "cmd-1")
	if !res.Success {
		t.Fatalf("command failed: %s", res.Error)
	}

	// save-before-report: the persisted document already reflects the edit
	data, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := docmodel.Import(data)
	if err != nil {
		t.Fatalf("import persisted blob: %v", err)
	}
	if got := doc.Text(); got != "The dog sat" {
		t.Errorf("persisted text = %q", got)
	}

	if n := ctrl.Bridge().PendingCount(); n != 0 {
		t.Errorf("pending entries = %d, want 0", n)
	}
}

func awaitResult(t *testing.T, cmdPath, id string) resultFile {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(cmdPath)
		if err == nil {
			var envelope map[string]any
			if json.Unmarshal(data, &envelope) == nil {
				if _, pending := envelope["command"]; !pending {
					var res resultFile
					if err := json.Unmarshal(data, &res); err != nil {
						t.Fatalf("decode result: %v", err)
					}
					if res.ID != id {
						t.Fatalf("result id = %q, want %q", res.ID, id)
					}
					return res
				}
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for command result")
	return resultFile{}
}

func TestCompleteRoutesToRegisteredDestination(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.bin")

	_, hostEP := protocol.NewPipe(1)
	b := NewBridge(hostEP, docPath, config.DefaultConfig(), zerolog.Nop())

	dest := filepath.Join(dir, "out.json")
	b.mu.Lock()
	b.pending["cmd-9"] = dest
	b.mu.Unlock()

	b.Complete(protocol.CommandResult("cmd-9", true, map[string]any{"count": 1}, ""))

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("result not written to registered destination: %v", err)
	}
	var res resultFile
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.ID != "cmd-9" || !res.Success {
		t.Errorf("result = %+v", res)
	}
	if n := b.PendingCount(); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}

func TestBridgeIgnoresResponsePayload(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.bin")

	_, hostEP := protocol.NewPipe(1)
	b := NewBridge(hostEP, docPath, config.DefaultConfig(), zerolog.Nop())

	res, _ := json.Marshal(resultFile{ID: "old-1", Success: true})
	if err := os.WriteFile(b.CommandPath(), res, 0600); err != nil {
		t.Fatal(err)
	}

	b.Poll(context.Background())
	if n := b.PendingCount(); n != 0 {
		t.Errorf("pending = %d after polling a response payload", n)
	}
}

func TestBridgeImageResolutionFailureShortCircuits(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.bin")

	// unbuffered pipe with no surface: a dispatched command would block, so
	// a written result proves the engine was never reached
	_, hostEP := protocol.NewPipe(0)
	b := NewBridge(hostEP, docPath, config.DefaultConfig(), zerolog.Nop())

	req, _ := json.Marshal(commandFile{
		ID:      "img-1",
		Command: "insertImage",
		Args:    map[string]any{"src": filepath.Join(dir, "missing.png"), "position": map[string]any{"after": "x"}},
	})
	if err := os.WriteFile(b.CommandPath(), req, 0600); err != nil {
		t.Fatal(err)
	}

	b.Poll(context.Background())

	res := awaitResult(t, b.CommandPath(), "img-1")
	if res.Success {
		t.Error("resolution failure reported as success")
	}
	if !strings.Contains(res.Error, "failed to resolve resource") {
		t.Errorf("error = %q", res.Error)
	}
	if n := b.PendingCount(); n != 0 {
		t.Errorf("pending = %d, want 0", n)
	}
}
