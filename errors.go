// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jfeed

import "fmt"

// A ParseError reports malformed JSON in the input stream. It records the
// location of the input that triggered the error.
type ParseError struct {
	Location Location // where the offending input occurred
	Message  string

	err error
}

// Error satisfies the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("at %s: %s", e.Location.LineCol, e.Message)
}

// Unwrap supports error wrapping.
func (e *ParseError) Unwrap() error { return e.err }

// A SchemaMismatchError reports input whose shape is incompatible with the
// declared type of the node it targets.
type SchemaMismatchError struct {
	Path    string // the path of the affected field ("" for the root)
	Message string
}

// Error satisfies the error interface.
func (e *SchemaMismatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("at root: %s", e.Message)
	}
	return fmt.Sprintf("field %q: %s", e.Path, e.Message)
}

// A TruncatedInputError reports that the input ended before the declared
// structure was complete. Path names the deepest incomplete field known to
// the reporter; it may be empty if no structure was seen at all.
type TruncatedInputError struct {
	Path string
}

// Error satisfies the error interface.
func (e *TruncatedInputError) Error() string {
	if e.Path == "" {
		return "unexpected end of input"
	}
	return fmt.Sprintf("unexpected end of input: %q is incomplete", e.Path)
}

// An InvalidStateError reports misuse of the API, such as pushing input
// into a closed or failed parser, or pushing reentrantly from a callback.
type InvalidStateError struct {
	Message string
}

// Error satisfies the error interface.
func (e *InvalidStateError) Error() string { return "invalid state: " + e.Message }
