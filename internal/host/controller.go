// Package host runs the privileged side of the bridge: durable persistence
// of forwarded document bytes, reconciliation of external file changes, and
// the file-based command channel for out-of-process agents.
package host

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/journal"
	"github.com/superdoc-dev/docbridge/internal/protocol"
)

// saveState tracks whether a backing-file change event can be attributed to
// the controller's own write.
type saveState int

const (
	// stateIdle: no recent self-write; change events trigger a reload.
	stateIdle saveState = iota
	// stateSaving: a self-write is in flight; change events are self-caused.
	stateSaving
	// stateCooldown: a self-write completed recently; change events inside
	// the suppression window are self-caused.
	stateCooldown
)

// Controller persists forwarded document bytes to the backing file and
// watches that file for external modifications, pushing a full reload to the
// editing surface when a change is not attributable to its own write.
type Controller struct {
	ep      *protocol.Endpoint
	docPath string
	cfg     *config.Config
	log     zerolog.Logger
	db      *sql.DB // optional revision journal
	bridge  *Bridge

	mu    sync.Mutex
	state saveState
	// cooldownUntil uses time.Now()'s monotonic reading, so wall-clock jumps
	// cannot widen or shrink the suppression window.
	cooldownUntil time.Time
}

// NewController creates the host controller for one document. db may be nil
// to skip revision journaling.
func NewController(ep *protocol.Endpoint, docPath string, cfg *config.Config, db *sql.DB, log zerolog.Logger) *Controller {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Controller{
		ep:      ep,
		docPath: docPath,
		cfg:     cfg,
		log:     log.With().Str("component", "host").Logger(),
		db:      db,
		bridge:  NewBridge(ep, docPath, cfg, log),
	}
}

// Bridge exposes the command channel bridge, e.g. for tests that inject
// command files directly.
func (c *Controller) Bridge() *Bridge {
	return c.bridge
}

// Run loads the document into the surface, then processes file events and
// surface messages until the context is cancelled or the pipe closes. All
// state transitions happen on this single goroutine.
func (c *Controller) Run(ctx context.Context) error {
	data, err := c.readDocument()
	if err != nil {
		return err
	}
	if err := c.ep.Send(ctx, protocol.Update(data)); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(c.docPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(c.docPath), err)
	}

	// a command may already be waiting from before the session opened
	c.bridge.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ep.Done():
			return nil
		case m := <-c.ep.Recv():
			if err := c.handle(ctx, m); err != nil {
				return err
			}
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			c.handleEvent(ctx, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Error().Err(err).Msg("watcher error")
		}
	}
}

// readDocument reads the backing file, falling back to an empty document
// blob when the file does not exist yet.
func (c *Controller) readDocument() ([]byte, error) {
	data, err := os.ReadFile(c.docPath)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return docmodel.New().Export()
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func (c *Controller) handle(ctx context.Context, m protocol.Message) error {
	switch m.Type {
	case protocol.TypeReady:
		c.log.Info().Str("doc", c.docPath).Msg("editing surface ready")
	case protocol.TypeSave:
		if m.Content == nil {
			c.log.Warn().Msg("save message without content")
			return nil
		}
		c.Persist(m.Content.Data)
	case protocol.TypeCommandResult:
		c.bridge.Complete(m)
	case protocol.TypeDebug:
		c.log.Debug().Str("surface", m.Text).Msg("surface debug")
	default:
		c.log.Warn().Str("type", string(m.Type)).Msg("unexpected message on host endpoint")
	}
	return nil
}

func (c *Controller) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return
	}
	switch ev.Name {
	case c.docPath:
		c.reconcile(ctx)
	case c.bridge.CommandPath():
		c.bridge.Poll(ctx)
	}
}

// Persist durably writes forwarded document bytes, recording the write in
// the revision journal. File events arriving while the write is in flight or
// within the suppression window afterwards are attributed to this write.
func (c *Controller) Persist(data []byte) {
	c.mu.Lock()
	c.state = stateSaving
	c.mu.Unlock()

	err := WriteFileAtomic(c.docPath, data)

	c.mu.Lock()
	if err != nil {
		c.state = stateIdle
	} else {
		c.state = stateCooldown
		c.cooldownUntil = time.Now().Add(c.cfg.SaveSuppression())
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Str("doc", c.docPath).Msg("persist failed")
		return
	}
	c.log.Debug().Int("bytes", len(data)).Str("doc", c.docPath).Msg("document persisted")

	if c.db != nil {
		if _, err := journal.RecordRevision(c.db, c.docPath, data); err != nil {
			c.log.Error().Err(err).Msg("revision journal write failed")
		}
	}
}

// reconcile decides whether a backing-file change event is self-caused.
// Self-caused events are dropped; external ones push a full reload.
func (c *Controller) reconcile(ctx context.Context) {
	c.mu.Lock()
	switch c.state {
	case stateSaving:
		c.mu.Unlock()
		c.log.Debug().Msg("change event during save, suppressed")
		return
	case stateCooldown:
		if time.Now().Before(c.cooldownUntil) {
			c.mu.Unlock()
			c.log.Debug().Msg("change event inside suppression window, suppressed")
			return
		}
		c.state = stateIdle
	}
	c.mu.Unlock()

	data, err := os.ReadFile(c.docPath)
	if err != nil {
		c.log.Error().Err(err).Msg("read after external change failed")
		return
	}
	c.log.Info().Str("doc", c.docPath).Msg("external change detected, reloading surface")
	if err := c.ep.Send(ctx, protocol.Reload(data)); err != nil {
		c.log.Error().Err(err).Msg("reload push failed")
	}
}

// WriteFileAtomic writes via a temp file and rename so the watcher and any
// external reader never observe a partial document.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
