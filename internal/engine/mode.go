package engine

import (
	"strings"

	"github.com/superdoc-dev/docbridge/internal/docmodel"
)

// Mode returns the session's current editing mode.
func (e *Engine) Mode() docmodel.Mode {
	return e.doc.Mode
}

// SetMode switches the session's editing mode. Entering suggesting mode is
// what enables tracked-change recording; there is no separate toggle.
func (e *Engine) SetMode(m docmodel.Mode) {
	e.doc.Mode = m
}

// setAuthorIfProvided resolves the attribution identity for a command. When a
// name is supplied it becomes the new identity on both the session and the
// document (editor-level); tracked-change capture reads the latter, so the
// two must not drift apart.
func (e *Engine) setAuthorIfProvided(author *string) docmodel.Identity {
	if author != nil {
		if name := strings.TrimSpace(*author); name != "" {
			e.identity = docmodel.Identity{Name: name}
			e.doc.Author = e.identity
		}
	}
	return e.identity
}

// inMode runs fn with the session switched to the given mode and the
// attribution identity resolved. The prior mode is restored on exit even when
// fn fails after mutating, so partial failures never leak a mode switch.
func (e *Engine) inMode(mode docmodel.Mode, author *string, fn func(id docmodel.Identity) error) error {
	prev := e.doc.Mode
	e.SetMode(mode)
	defer e.SetMode(prev)

	id := e.setAuthorIfProvided(author)
	return fn(id)
}
