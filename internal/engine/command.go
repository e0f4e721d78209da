package engine

import (
	"encoding/json"
	"fmt"

	"github.com/superdoc-dev/docbridge/internal/errors"
)

// Kind enumerates every command the engine can execute. The closed set gives
// compile-time checked dispatch coverage instead of a runtime registry miss.
type Kind int

const (
	KindGetText Kind = iota
	KindGetNodes
	KindReplaceText
	KindInsertContent
	KindFormatText
	KindInsertImage
	KindDeleteNode
	KindInsertTable
	KindUndo
	KindRedo
	KindInsertTableOfContents
	KindDeleteTableOfContents
	KindAddComment
)

var kindNames = map[string]Kind{
	"getText":               KindGetText,
	"getNodes":              KindGetNodes,
	"replaceText":           KindReplaceText,
	"insertContent":         KindInsertContent,
	"formatText":            KindFormatText,
	"insertImage":           KindInsertImage,
	"deleteNode":            KindDeleteNode,
	"insertTable":           KindInsertTable,
	"undo":                  KindUndo,
	"redo":                  KindRedo,
	"insertTableOfContents": KindInsertTableOfContents,
	"deleteTableOfContents": KindDeleteTableOfContents,
	"addComment":            KindAddComment,
}

// ParseKind resolves a wire command name to its kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindNames[name]
	return k, ok
}

// CommandNames returns every valid wire command name.
func CommandNames() []string {
	names := make([]string, 0, len(kindNames))
	for name := range kindNames {
		names = append(names, name)
	}
	return names
}

// Mutates reports whether a command changes document content and therefore
// requires a forced save before its result is reported.
func (k Kind) Mutates() bool {
	switch k {
	case KindGetText, KindGetNodes:
		return false
	}
	return true
}

// Request is one named operation with command-specific arguments, created by
// an external agent and consumed exactly once.
type Request struct {
	ID      string         `json:"id"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
}

// Result is the outcome of a Request, correlated by id.
type Result struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrNoop signals an undo/redo with nothing to apply: reported as
// success:false without an error message.
var ErrNoop = fmt.Errorf("nothing to apply")

// Execute dispatches one command by name. Handler errors never propagate:
// every failure is converted to a failure Result. On success of a mutating
// command the forced save runs before the result is returned; a save failure
// is surfaced as the command's failure since persistence cannot be confirmed.
func (e *Engine) Execute(name string, args map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("command", name).Msg("command handler panicked")
			res = Result{Success: false, Error: errors.NewInternal(fmt.Errorf("panic: %v", r)).Error()}
		}
	}()

	out, err := e.Invoke(name, args)
	if err == ErrNoop {
		return Result{Success: false}
	}
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	return Result{Success: true, Result: out}
}

// Invoke runs one command and returns its typed output, preserving structured
// errors for callers that report them with code detail. Undo/redo no-ops come
// back as ErrNoop.
func (e *Engine) Invoke(name string, args map[string]any) (any, error) {
	kind, ok := ParseKind(name)
	if !ok {
		return nil, errors.NewUnknownCommand(name)
	}

	out, err := e.dispatch(kind, args)
	if err == ErrNoop {
		return nil, err
	}
	if err != nil {
		e.log.Debug().Str("command", name).Err(err).Msg("command failed")
		return nil, err
	}

	if kind.Mutates() && e.saver != nil {
		if err := e.saver.SaveNow(); err != nil {
			e.log.Error().Str("command", name).Err(err).Msg("forced save failed")
			return nil, errors.NewOperationFailed("save", err)
		}
	}

	return out, nil
}

// dispatch decodes arguments for the kind and invokes its handler. The switch
// is exhaustive over Kind.
func (e *Engine) dispatch(kind Kind, args map[string]any) (any, error) {
	switch kind {
	case KindGetText:
		in, err := decodeArgs[GetTextInput](args)
		if err != nil {
			return nil, err
		}
		return e.GetText(in)
	case KindGetNodes:
		in, err := decodeArgs[GetNodesInput](args)
		if err != nil {
			return nil, err
		}
		return e.GetNodes(in)
	case KindReplaceText:
		in, err := decodeArgs[ReplaceTextInput](args)
		if err != nil {
			return nil, err
		}
		return e.ReplaceText(in)
	case KindInsertContent:
		in, err := decodeArgs[InsertContentInput](args)
		if err != nil {
			return nil, err
		}
		return e.InsertContent(in)
	case KindFormatText:
		in, err := decodeArgs[FormatTextInput](args)
		if err != nil {
			return nil, err
		}
		return e.FormatText(in)
	case KindInsertImage:
		in, err := decodeArgs[InsertImageInput](args)
		if err != nil {
			return nil, err
		}
		return e.InsertImage(in)
	case KindDeleteNode:
		in, err := decodeArgs[DeleteNodeInput](args)
		if err != nil {
			return nil, err
		}
		return e.DeleteNode(in)
	case KindInsertTable:
		in, err := decodeArgs[InsertTableInput](args)
		if err != nil {
			return nil, err
		}
		return e.InsertTable(in)
	case KindUndo:
		return e.Undo()
	case KindRedo:
		return e.Redo()
	case KindInsertTableOfContents:
		in, err := decodeArgs[InsertTocInput](args)
		if err != nil {
			return nil, err
		}
		return e.InsertTableOfContents(in)
	case KindDeleteTableOfContents:
		in, err := decodeArgs[DeleteTocInput](args)
		if err != nil {
			return nil, err
		}
		return e.DeleteTableOfContents(in)
	case KindAddComment:
		in, err := decodeArgs[AddCommentInput](args)
		if err != nil {
			return nil, err
		}
		return e.AddComment(in)
	}
	return nil, errors.NewInternal(fmt.Errorf("unhandled command kind %d", kind))
}

// decodeArgs unmarshals loosely-typed wire arguments into a typed input
// struct, avoiding unsafe type assertions.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	if args == nil {
		return out, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return out, errors.NewValidation(fmt.Sprintf("marshal args: %v", err))
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, errors.NewValidation(fmt.Sprintf("invalid arguments: %v", err))
	}
	return out, nil
}
