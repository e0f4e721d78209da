package host

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/protocol"
)

// CommandFilePath derives the side-channel command file location for a
// document: a hidden sibling keyed by the document's name.
func CommandFilePath(docPath string) string {
	dir := filepath.Dir(docPath)
	base := filepath.Base(docPath)
	return filepath.Join(dir, "."+base+".commands.json")
}

// commandFile is the request shape an external agent writes. A payload
// without a command field is a response we wrote ourselves and is ignored.
type commandFile struct {
	ID      string         `json:"id"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
}

type resultFile struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Bridge turns the side-channel command file into request/response traffic
// on the protocol pipe. Entries in the pending table are written only at
// dispatch and removed only when the response lands; with the controller's
// single-goroutine loop there is exactly one writer.
type Bridge struct {
	ep      *protocol.Endpoint
	docDir  string
	cmdPath string
	cfg     *config.Config
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[string]string // request id -> response file path
}

// NewBridge creates the command channel bridge for one document.
func NewBridge(ep *protocol.Endpoint, docPath string, cfg *config.Config, log zerolog.Logger) *Bridge {
	return &Bridge{
		ep:      ep,
		docDir:  filepath.Dir(docPath),
		cmdPath: CommandFilePath(docPath),
		cfg:     cfg,
		log:     log.With().Str("component", "bridge").Logger(),
		pending: make(map[string]string),
	}
}

// CommandPath returns the side-channel file location the bridge watches.
func (b *Bridge) CommandPath() string {
	return b.cmdPath
}

// PendingCount reports the number of dispatched commands awaiting results.
func (b *Bridge) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Poll reads the command file and dispatches a pending request, if any.
// Called on every change event for the file; payloads already holding a
// response (no command field) are ignored, so the bridge's own result write
// does not loop back.
func (b *Bridge) Poll(ctx context.Context) {
	data, err := os.ReadFile(b.cmdPath)
	if err != nil {
		if !os.IsNotExist(err) {
			b.log.Error().Err(err).Msg("command file read failed")
		}
		return
	}

	var req commandFile
	if err := json.Unmarshal(data, &req); err != nil {
		b.log.Warn().Err(err).Msg("command file is not valid JSON")
		return
	}
	if req.Command == "" {
		return
	}
	if req.ID == "" {
		entropy := ulid.Monotonic(rand.Reader, 0)
		req.ID = ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}

	b.mu.Lock()
	if _, dup := b.pending[req.ID]; dup {
		b.mu.Unlock()
		b.log.Warn().Str("id", req.ID).Msg("duplicate command id, ignored")
		return
	}
	b.pending[req.ID] = b.cmdPath
	b.mu.Unlock()

	// image sources resolve to embedded bytes before the engine sees them;
	// a resolution failure never reaches the engine
	if req.Command == "insertImage" {
		if err := b.resolveImageArg(ctx, req.Args); err != nil {
			b.log.Debug().Err(err).Str("id", req.ID).Msg("image resolution failed")
			b.writeResult(req.ID, b.cmdPath, protocol.CommandResult(req.ID, false, nil, err.Error()))
			return
		}
	}

	b.log.Debug().Str("id", req.ID).Str("command", req.Command).Msg("command dispatched")
	if err := b.ep.Send(ctx, protocol.ExecuteCommand(req.ID, req.Command, req.Args)); err != nil {
		b.writeResult(req.ID, b.cmdPath, protocol.CommandResult(req.ID, false, nil, err.Error()))
	}
}

func (b *Bridge) resolveImageArg(ctx context.Context, args map[string]any) error {
	if args == nil {
		return nil
	}
	src, _ := args["src"].(string)
	if src == "" || strings.HasPrefix(src, "data:") {
		return nil
	}
	resolved, err := ResolveImageSource(ctx, src, b.docDir, b.cfg)
	if err != nil {
		return err
	}
	args["src"] = resolved
	return nil
}

// Complete writes a command's result back to its registered destination and
// clears the pending entry. Results with no pending entry are dropped.
func (b *Bridge) Complete(m protocol.Message) {
	b.mu.Lock()
	path, ok := b.pending[m.ID]
	if ok {
		delete(b.pending, m.ID)
	}
	b.mu.Unlock()
	if !ok {
		b.log.Warn().Str("id", m.ID).Msg("result for unknown command id")
		return
	}
	b.writeResult(m.ID, path, m)
}

func (b *Bridge) writeResult(id, dest string, m protocol.Message) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()

	out, err := json.MarshalIndent(resultFile{
		ID:      id,
		Success: m.Success,
		Result:  m.Result,
		Error:   m.Error,
	}, "", "  ")
	if err != nil {
		b.log.Error().Err(err).Str("id", id).Msg("result marshal failed")
		return
	}
	if err := WriteFileAtomic(dest, out); err != nil {
		b.log.Error().Err(err).Str("id", id).Msg("result write failed")
		return
	}
	b.log.Debug().Str("id", id).Bool("success", m.Success).Msg("command completed")
}
