package errors

import "fmt"

// ErrorCode represents a docbridge error code.
type ErrorCode string

const (
	ErrValidation         ErrorCode = "VALIDATION"
	ErrTextNotFound       ErrorCode = "TEXT_NOT_FOUND"
	ErrOccurrenceNotFound ErrorCode = "OCCURRENCE_NOT_FOUND"
	ErrNodeNotFound       ErrorCode = "NODE_NOT_FOUND"
	ErrIndexOutOfRange    ErrorCode = "INDEX_OUT_OF_RANGE"
	ErrNoTocFound         ErrorCode = "NO_TOC_FOUND"
	ErrOperationFailed    ErrorCode = "OPERATION_FAILED"
	ErrCommentFailed      ErrorCode = "COMMENT_FAILED"
	ErrResourceResolution ErrorCode = "RESOURCE_RESOLUTION_FAILED"
	ErrUnknownCommand     ErrorCode = "UNKNOWN_COMMAND"
	ErrInternal           ErrorCode = "INTERNAL"
)

// BridgeError represents a structured error with code and details.
type BridgeError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	return e.Message
}

// NewValidation creates an error for missing or malformed command arguments.
func NewValidation(msg string) *BridgeError {
	return &BridgeError{
		Code:    ErrValidation,
		Message: msg,
	}
}

// NewTextNotFound creates an error for an anchor or search string with zero matches.
func NewTextNotFound(search string) *BridgeError {
	return &BridgeError{
		Code:    ErrTextNotFound,
		Message: fmt.Sprintf("text not found: %q", search),
		Details: map[string]any{"search": search},
	}
}

// NewOccurrenceNotFound creates an error for a 1-indexed occurrence beyond the
// match count. Reports the actual count so the caller can retry with a valid ordinal.
func NewOccurrenceNotFound(requested, count int) *BridgeError {
	return &BridgeError{
		Code:    ErrOccurrenceNotFound,
		Message: fmt.Sprintf("occurrence %d not found: only %d match(es) exist", requested, count),
		Details: map[string]any{"requested": requested, "count": count},
	}
}

// NewNodeNotFound creates an error for a structural node lookup yielding zero nodes.
func NewNodeNotFound(nodeType string) *BridgeError {
	return &BridgeError{
		Code:    ErrNodeNotFound,
		Message: fmt.Sprintf("no nodes of type %q found", nodeType),
		Details: map[string]any{"type": nodeType},
	}
}

// NewIndexOutOfRange creates an error for a node index beyond the found count.
func NewIndexOutOfRange(index, count int) *BridgeError {
	return &BridgeError{
		Code:    ErrIndexOutOfRange,
		Message: fmt.Sprintf("index %d out of range: only %d node(s) exist", index, count),
		Details: map[string]any{"index": index, "count": count},
	}
}

// NewNoTocFound creates an error for deleteTableOfContents when no TOC node exists.
func NewNoTocFound() *BridgeError {
	return &BridgeError{
		Code:    ErrNoTocFound,
		Message: "no table of contents found in document",
	}
}

// NewOperationFailed creates an error for a structural mutation the document
// engine refused or could not complete.
func NewOperationFailed(op string, err error) *BridgeError {
	msg := fmt.Sprintf("operation %s failed", op)
	if err != nil {
		msg = fmt.Sprintf("operation %s failed: %v", op, err)
	}
	return &BridgeError{
		Code:    ErrOperationFailed,
		Message: msg,
		Details: map[string]any{"operation": op},
	}
}

// NewCommentFailed creates an error for a comment that could not be attached.
func NewCommentFailed(err error) *BridgeError {
	msg := "failed to attach comment"
	if err != nil {
		msg = fmt.Sprintf("failed to attach comment: %v", err)
	}
	return &BridgeError{
		Code:    ErrCommentFailed,
		Message: msg,
	}
}

// NewResourceResolution creates an error for an image source that could not be
// read or fetched. Raised by the bridge before the command reaches the engine.
func NewResourceResolution(src string, err error) *BridgeError {
	msg := fmt.Sprintf("failed to resolve resource %q", src)
	if err != nil {
		msg = fmt.Sprintf("failed to resolve resource %q: %v", src, err)
	}
	return &BridgeError{
		Code:    ErrResourceResolution,
		Message: msg,
		Details: map[string]any{"src": src},
	}
}

// NewUnknownCommand creates an error for an unrecognized command name.
func NewUnknownCommand(name string) *BridgeError {
	return &BridgeError{
		Code:    ErrUnknownCommand,
		Message: fmt.Sprintf("Unknown command: %s", name),
		Details: map[string]any{"command": name},
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *BridgeError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BridgeError{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if an error is a BridgeError with the given code.
func Is(err error, code ErrorCode) bool {
	if bErr, ok := err.(*BridgeError); ok {
		return bErr.Code == code
	}
	return false
}
