// Package protocol defines the message vocabulary exchanged between the
// editing surface and the host controller, and an in-process channel
// transport standing in for the host application's message boundary.
package protocol

import (
	"context"
	"fmt"
	"sync"
)

// MessageType discriminates the envelope.
type MessageType string

const (
	// host -> surface: full document replacement (initial load)
	TypeUpdate MessageType = "update"
	// host -> surface: full document replacement after an external change
	TypeReload MessageType = "reload"
	// host -> surface: one command to execute
	TypeExecuteCommand MessageType = "executeCommand"

	// surface -> host: session initialized, document loaded
	TypeReady MessageType = "ready"
	// surface -> host: serialized document bytes to persist
	TypeSave MessageType = "save"
	// surface -> host: outcome of an executeCommand
	TypeCommandResult MessageType = "commandResult"
	// surface -> host: diagnostic text
	TypeDebug MessageType = "debug"
)

// Content wraps a full document payload.
type Content struct {
	Data []byte `json:"data"`
}

// Message is the envelope for every exchange across the surface/host
// boundary. Fields beyond Type are populated per message type.
type Message struct {
	Type    MessageType `json:"type"`
	Content *Content    `json:"content,omitempty"`

	// executeCommand / commandResult correlation
	ID      string         `json:"id,omitempty"`
	Command string         `json:"command,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Success bool           `json:"success,omitempty"`
	Result  any            `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`

	// debug text
	Text string `json:"message,omitempty"`
}

func Update(data []byte) Message {
	return Message{Type: TypeUpdate, Content: &Content{Data: data}}
}

func Reload(data []byte) Message {
	return Message{Type: TypeReload, Content: &Content{Data: data}}
}

func ExecuteCommand(id, command string, args map[string]any) Message {
	return Message{Type: TypeExecuteCommand, ID: id, Command: command, Args: args}
}

func Ready() Message {
	return Message{Type: TypeReady}
}

func Save(data []byte) Message {
	return Message{Type: TypeSave, Content: &Content{Data: data}}
}

func CommandResult(id string, success bool, result any, errMsg string) Message {
	return Message{Type: TypeCommandResult, ID: id, Success: success, Result: result, Error: errMsg}
}

func Debug(text string) Message {
	return Message{Type: TypeDebug, Text: text}
}

// Endpoint is one side of a bidirectional message pipe.
type Endpoint struct {
	out chan Message
	in  chan Message

	closeOnce *sync.Once
	done      chan struct{}
}

// NewPipe creates a connected surface/host endpoint pair. Buffer sets the
// per-direction channel capacity; sends beyond it block until the peer
// receives.
func NewPipe(buffer int) (surface, host *Endpoint) {
	toHost := make(chan Message, buffer)
	toSurface := make(chan Message, buffer)
	done := make(chan struct{})
	once := &sync.Once{}
	surface = &Endpoint{out: toHost, in: toSurface, closeOnce: once, done: done}
	host = &Endpoint{out: toSurface, in: toHost, closeOnce: once, done: done}
	return surface, host
}

// Send delivers a message to the peer, honoring context cancellation and
// pipe closure.
func (e *Endpoint) Send(ctx context.Context, m Message) error {
	select {
	case <-e.done:
		return fmt.Errorf("pipe closed")
	default:
	}
	select {
	case e.out <- m:
		return nil
	case <-e.done:
		return fmt.Errorf("pipe closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv exposes the inbound channel for select loops.
func (e *Endpoint) Recv() <-chan Message {
	return e.in
}

// Done is closed when either endpoint closes the pipe.
func (e *Endpoint) Done() <-chan struct{} {
	return e.done
}

// Close tears the pipe down for both endpoints. Safe to call from either
// side, and more than once.
func (e *Endpoint) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
	})
}
