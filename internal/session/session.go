// Package session runs the editing-surface side of the bridge: it owns the
// live document session, executes commands arriving over the protocol pipe,
// and drives the autosave pipeline.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/docmodel"
	"github.com/superdoc-dev/docbridge/internal/engine"
	"github.com/superdoc-dev/docbridge/internal/protocol"
)

// Session is the editing surface for one open document. It is created
// unloaded; the first update message from the host populates it.
type Session struct {
	ep       *protocol.Endpoint
	cfg      *config.Config
	log      zerolog.Logger
	engine   *engine.Engine
	autosave *Autosave

	ready chan struct{}
}

// New creates a session bound to the surface endpoint of a protocol pipe.
func New(ep *protocol.Endpoint, cfg *config.Config, log zerolog.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Session{
		ep:    ep,
		cfg:   cfg,
		log:   log.With().Str("component", "session").Logger(),
		ready: make(chan struct{}),
	}
	s.autosave = NewAutosave(cfg.AutosaveDebounce(), s.forward, log)
	s.engine = engine.New(docmodel.New(), cfg, s.autosave, log)
	return s
}

// Engine exposes the command engine, for in-process hosts that execute
// commands directly rather than over the pipe.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

// Ready is closed once the initial document load completed and the ready
// signal has been sent to the host.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// NotifyChange feeds the debounced autosave path, for edits applied directly
// through Engine rather than over the pipe. Safe to call from any goroutine:
// the eventual flush runs inside Run's loop, serialized with command
// execution.
func (s *Session) NotifyChange() {
	s.autosave.Notify()
}

// forward serializes the current document and sends it to the host.
func (s *Session) forward() error {
	data, err := s.engine.Doc().Export()
	if err != nil {
		return fmt.Errorf("export document: %w", err)
	}
	return s.ep.Send(context.Background(), protocol.Save(data))
}

// Run processes host messages until the context is cancelled or the pipe
// closes. The first update message populates the document and emits the
// ready signal; subsequent reloads replace the session wholesale.
func (s *Session) Run(ctx context.Context) error {
	defer s.autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ep.Done():
			return nil
		case m := <-s.ep.Recv():
			if err := s.handle(ctx, m); err != nil {
				return err
			}
		case <-s.autosave.Due():
			if err := s.autosave.SaveNow(); err != nil {
				s.log.Error().Err(err).Msg("debounced save failed")
			}
		}
	}
}

func (s *Session) handle(ctx context.Context, m protocol.Message) error {
	switch m.Type {
	case protocol.TypeUpdate, protocol.TypeReload:
		if m.Content == nil {
			s.log.Warn().Str("type", string(m.Type)).Msg("document message without content")
			return nil
		}
		return s.load(ctx, m.Content.Data, m.Type == protocol.TypeUpdate)
	case protocol.TypeExecuteCommand:
		res := s.engine.Execute(m.Command, m.Args)
		return s.ep.Send(ctx, protocol.CommandResult(m.ID, res.Success, res.Result, res.Error))
	default:
		s.log.Warn().Str("type", string(m.Type)).Msg("unexpected message on surface endpoint")
		return nil
	}
}

// load replaces the document session with freshly imported bytes. Stale
// session state from before a reload does not survive: the engine adopts a
// brand-new document with empty undo history.
func (s *Session) load(ctx context.Context, data []byte, initial bool) error {
	s.autosave.Reset()

	doc, err := docmodel.Import(data)
	if err != nil {
		s.log.Error().Err(err).Msg("document import failed")
		if sendErr := s.ep.Send(ctx, protocol.Debug(fmt.Sprintf("import failed: %v", err))); sendErr != nil {
			return sendErr
		}
		return nil
	}
	s.engine.Replace(doc)
	s.autosave.MarkLoaded()

	if initial {
		select {
		case <-s.ready:
			// second update message; already announced
		default:
			close(s.ready)
			if err := s.ep.Send(ctx, protocol.Ready()); err != nil {
				return err
			}
		}
		s.log.Debug().Msg("document loaded")
	} else {
		s.log.Debug().Msg("document reloaded after external change")
	}
	return nil
}
