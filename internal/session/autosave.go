package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Autosave coalesces content-change signals into debounced flushes and
// offers a synchronous bypass for mutation commands that must be persisted
// before their result is reported.
//
// The debounce timer never runs flush itself: when the quiet period elapses
// it signals Due, and the owning loop calls SaveNow from its own goroutine.
// That keeps every flush serialized with the mutations it persists.
type Autosave struct {
	debounce time.Duration
	flush    func() error
	log      zerolog.Logger

	due chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	loaded bool
}

// NewAutosave creates a pipeline that signals Due after a quiet period of
// debounce following the last Notify. Nothing fires until MarkLoaded: the
// initial population of a freshly opened document is not a content change.
func NewAutosave(debounce time.Duration, flush func() error, log zerolog.Logger) *Autosave {
	return &Autosave{
		debounce: debounce,
		flush:    flush,
		log:      log.With().Str("component", "autosave").Logger(),
		due:      make(chan struct{}, 1),
	}
}

// MarkLoaded arms the pipeline once the document's initial load completed.
func (a *Autosave) MarkLoaded() {
	a.mu.Lock()
	a.loaded = true
	a.mu.Unlock()
}

// Reset disarms the pipeline and cancels any pending flush, for use while a
// reload replaces the document session.
func (a *Autosave) Reset() {
	a.mu.Lock()
	a.loaded = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.drainDue()
}

// Notify signals a content change. Restarts the debounce timer; rapid
// repeated signals collapse into one Due signal.
func (a *Autosave) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, func() {
		select {
		case a.due <- struct{}{}:
		default:
		}
	})
}

// Due signals when the debounce elapsed and a flush is owed. The owning
// loop answers by calling SaveNow.
func (a *Autosave) Due() <-chan struct{} {
	return a.due
}

// SaveNow cancels any pending debounce and runs the flush synchronously.
// Implements the engine's Saver contract; the error surfaces as the calling
// command's failure.
func (a *Autosave) SaveNow() error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.drainDue()
	return a.flush()
}

// Stop cancels any pending flush without firing it.
func (a *Autosave) Stop() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	a.drainDue()
}

func (a *Autosave) drainDue() {
	select {
	case <-a.due:
	default:
	}
}
