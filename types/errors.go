package types

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable category reported to callers with every rejection.
type ErrorCode string

const (
	CodeLibrary  ErrorCode = "LIBRARY_ERROR"
	CodeAnalysis ErrorCode = "ANALYSIS_ERROR"
	CodeBridge   ErrorCode = "BRIDGE_ERROR"
)

// Operation names the bridge entry point an error was produced by.
type Operation string

const (
	OpAnalyzeText Operation = "analyzeText"
	OpTestBridge  Operation = "testBridge"
)

// BridgeError captures every failure the bridge can report to a caller.
// Exactly one of the variant fields should be set.
type BridgeError struct {
	Op                 Operation           `json:"op"`
	LibraryUnavailable *LibraryUnavailable `json:"library_unavailable,omitempty"`
	InvalidInput       *InvalidInput       `json:"invalid_input,omitempty"`
	NativeCallFailed   *NativeCallFailed   `json:"native_call_failed,omitempty"`
	NativeReturnedNull *NativeReturnedNull `json:"native_returned_null,omitempty"`
}

var (
	_ error = (*BridgeError)(nil)
	_ error = LibraryUnavailable{}
	_ error = InvalidInput{}
	_ error = NativeCallFailed{}
	_ error = NativeReturnedNull{}
)

func (e *BridgeError) Error() string {
	if e == nil {
		return "(nil)"
	}
	switch {
	case e.LibraryUnavailable != nil:
		return e.LibraryUnavailable.Error()
	case e.InvalidInput != nil:
		return e.InvalidInput.Error()
	case e.NativeCallFailed != nil:
		return e.NativeCallFailed.Error()
	case e.NativeReturnedNull != nil:
		return e.NativeReturnedNull.Error()
	default:
		return "unknown error variant"
	}
}

// Code maps the variant and operation to the caller facing error code.
// A missing library is always LIBRARY_ERROR; every other failure is
// attributed to the operation that produced it.
func (e *BridgeError) Code() ErrorCode {
	if e == nil {
		return ""
	}
	if e.LibraryUnavailable != nil {
		return CodeLibrary
	}
	if e.Op == OpTestBridge {
		return CodeBridge
	}
	return CodeAnalysis
}

// Unwrap exposes the variant so errors.As works on the concrete types.
func (e *BridgeError) Unwrap() error {
	if e == nil {
		return nil
	}
	switch {
	case e.LibraryUnavailable != nil:
		return *e.LibraryUnavailable
	case e.InvalidInput != nil:
		return *e.InvalidInput
	case e.NativeCallFailed != nil:
		return *e.NativeCallFailed
	case e.NativeReturnedNull != nil:
		return *e.NativeReturnedNull
	default:
		return nil
	}
}

// LibraryUnavailable means the native library could not be loaded or one of
// its symbols could not be resolved. It is never retried.
type LibraryUnavailable struct {
	Reason string `json:"reason"`
}

func (e LibraryUnavailable) Error() string {
	return fmt.Sprintf("native library not available: %s", e.Reason)
}

// InvalidInput is returned before dispatch when the text cannot cross the
// boundary as a C string.
type InvalidInput struct {
	Reason string `json:"reason"`
}

func (e InvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NativeCallFailed wraps any other fault surfaced while calling the engine.
type NativeCallFailed struct {
	Reason string `json:"reason"`
}

func (e NativeCallFailed) Error() string {
	return fmt.Sprintf("native call failed: %s", e.Reason)
}

// NativeReturnedNull means the engine completed but returned the null sentinel.
type NativeReturnedNull struct{}

func (NativeReturnedNull) Error() string {
	return "native call returned null"
}

func NewLibraryUnavailable(op Operation, reason string) *BridgeError {
	return &BridgeError{Op: op, LibraryUnavailable: &LibraryUnavailable{Reason: reason}}
}

func NewInvalidInput(op Operation, reason string) *BridgeError {
	return &BridgeError{Op: op, InvalidInput: &InvalidInput{Reason: reason}}
}

func NewNativeCallFailed(op Operation, reason string) *BridgeError {
	return &BridgeError{Op: op, NativeCallFailed: &NativeCallFailed{Reason: reason}}
}

func NewNativeReturnedNull(op Operation) *BridgeError {
	return &BridgeError{Op: op, NativeReturnedNull: &NativeReturnedNull{}}
}

// ToBridgeError extracts a *BridgeError from err, or nil if err carries none.
func ToBridgeError(err error) *BridgeError {
	var be *BridgeError
	if errors.As(err, &be) {
		return be
	}
	return nil
}

// CodeOf returns the error code carried by err, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	return ToBridgeError(err).Code()
}
