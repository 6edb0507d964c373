// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jfeed

import "fmt"

// A LineCol describes the line number and column offset of a location in
// the input text.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 0-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// A Location describes the position of a token in the input text. For a
// token assembled across multiple chunks, it records where the token began.
type Location struct {
	Pos int // byte offset from the start of the input, 0-based
	LineCol
}
