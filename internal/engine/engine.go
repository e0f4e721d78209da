// Package engine executes document-mutation commands against a live document
// session: argument validation, anchor resolution, transactional application,
// mode switching, and save triggering.
package engine

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/superdoc-dev/docbridge/internal/config"
	"github.com/superdoc-dev/docbridge/internal/docmodel"
)

// Saver persists the current document state synchronously. Mutation commands
// call it after their edit so the command result is never reported before the
// corresponding save has been issued.
type Saver interface {
	SaveNow() error
}

// Engine owns command execution for one document session.
type Engine struct {
	doc   *docmodel.Document
	cfg   *config.Config
	saver Saver
	log   zerolog.Logger

	// identity is the session-level attribution identity. The editor-level
	// copy lives on the document; both are kept in sync because tracked-change
	// capture reads the latter.
	identity docmodel.Identity
}

// New creates an engine bound to a document session. saver may be nil when no
// persistence is attached (unit tests); mutation commands then skip the
// forced save.
func New(doc *docmodel.Document, cfg *config.Config, saver Saver, log zerolog.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	id := docmodel.Identity{Name: cfg.DefaultAuthorName, Email: cfg.DefaultAuthorEmail}
	doc.Author = id
	return &Engine{
		doc:      doc,
		cfg:      cfg,
		saver:    saver,
		log:      log.With().Str("component", "engine").Logger(),
		identity: id,
	}
}

// Doc returns the live document session.
func (e *Engine) Doc() *docmodel.Document {
	return e.doc
}

// Replace swaps in a freshly loaded document session, e.g. after an external
// reload. Session-level identity is re-synced onto the new document.
func (e *Engine) Replace(doc *docmodel.Document) {
	doc.Author = e.identity
	e.doc = doc
}

// newID generates a ULID for comments and other engine-issued identifiers.
func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
