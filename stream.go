// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jfeed

import "fmt"

// A Handler handles events from parsing an input stream. If a method
// reports an error, parsing stops and that error is returned to the
// caller. The stream ensures objects and arrays are correctly balanced,
// that keys are delivered whole, and that events arrive in document order.
type Handler interface {
	// Begin a new object.
	BeginObject() error

	// End the most-recently-opened object.
	EndObject() error

	// Begin a new array.
	BeginArray() error

	// End the most-recently-opened array.
	EndArray() error

	// Report the key of the next object member. The key is decoded, and is
	// delivered in one piece even if it was split across chunks.
	ObjectKey(name string) error

	// Report a piece of a string value. The text is decoded; final reports
	// whether the closing quote has been seen. A string split across chunks
	// produces one call per available piece, the last with final true.
	StringChunk(text string, final bool) error

	// Report a non-string data value: a number, a Boolean, or null.
	Value(d Datum) error
}

// CommentHandler is an optional interface that a Handler may implement to
// observe comment tokens. If the handler does not provide this method,
// comments are silently discarded.
type CommentHandler interface {
	// Process a line or block comment. Line comments include their leading
	// "//" and trailing newline (if present); block comments include their
	// leading "/*" and trailing "*/".
	Comment(text string)
}

type phase byte

const (
	phaseTop      phase = iota // expect the top-level value
	phaseDone                  // the top-level value is complete
	phaseKeyOrEnd              // in object: expect a key or "}"
	phaseKey                   // in object: expect a key
	phaseKeyStr                // in object: inside a key split across chunks
	phaseColon                 // in object: expect ":"
	phaseMember                // in object: expect a member value
	phaseNextMem               // in object: expect "," or "}"
	phaseElemOrEnd             // in array: expect a value or "]"
	phaseElem                  // in array: expect a value
	phaseNextElem              // in array: expect "," or "]"
	phaseValueStr              // inside a string value split across chunks
)

// A Stream is a push-oriented structural parser for JSON. Chunks of text
// are supplied with Push; the stream validates the grammar across chunk
// boundaries and delivers events to its Handler as soon as each is
// unambiguously determined. A Stream parses exactly one top-level value.
type Stream struct {
	sc  *Scanner
	h   Handler
	ctx []byte // enclosing contexts, innermost last ('T' at bottom)
	cur phase
	key []byte // pieces of a key split across chunks

	tcomma bool // allow trailing commas in objects and arrays
	ended  bool
}

// NewStream constructs a new Stream delivering events to h.
func NewStream(h Handler) *Stream {
	return &Stream{sc: NewScanner(), h: h, ctx: []byte{'T'}}
}

// AllowComments configures the scanner associated with s to report (true)
// or reject (false) comment tokens. Comments are delivered to the handler
// if it implements CommentHandler, and are otherwise discarded.
func (st *Stream) AllowComments(ok bool) { st.sc.AllowComments(ok) }

// AllowTrailingCommas configures the parser to allow (true) or reject
// (false) trailing commas in objects and arrays.
func (st *Stream) AllowTrailingCommas(ok bool) { st.tcomma = ok }

// Push delivers the next chunk of input. Handler methods are invoked
// synchronously, in document order, before Push returns. In case of a
// grammar error the returned error has type *ParseError; events determined
// before the error are still delivered.
func (st *Stream) Push(chunk string) error {
	if st.ended {
		return &InvalidStateError{Message: "push after end of input"}
	}
	ferr := st.sc.Feed(chunk)
	if err := st.drain(); err != nil {
		return err
	}
	return ferr
}

// End declares the end of the input stream, fixing the boundary of any
// pending literal and delivering its events. If the top-level value is
// still incomplete, End reports a *TruncatedInputError.
func (st *Stream) End() error {
	if st.ended {
		return nil
	}
	st.ended = true
	eerr := st.sc.End()
	if err := st.drain(); err != nil {
		return err
	}
	if eerr != nil {
		return eerr
	}
	if st.cur != phaseDone {
		return &TruncatedInputError{}
	}
	return nil
}

func (st *Stream) drain() error {
	for st.sc.Next() {
		if err := st.step(st.sc.Token(), st.sc.Text()); err != nil {
			return err
		}
	}
	return nil
}

func (st *Stream) step(tok Token, text string) error {
	if tok == LineComment || tok == BlockComment {
		if ch, ok := st.h.(CommentHandler); ok {
			ch.Comment(text)
		}
		return nil
	}

	switch st.cur {
	case phaseTop, phaseMember, phaseElemOrEnd, phaseElem:
		return st.stepValue(tok, text)

	case phaseDone:
		return st.syntaxf("unexpected %v after top-level value", tok)

	case phaseKeyOrEnd, phaseKey:
		switch tok {
		case StringPart:
			st.key = append(st.key[:0], text...)
			st.cur = phaseKeyStr
			return nil
		case String:
			st.cur = phaseColon
			return st.h.ObjectKey(text)
		case RBrace:
			if st.cur == phaseKeyOrEnd || st.tcomma {
				return st.endObject()
			}
		}
		return st.syntaxf("expected key, got %v", tok)

	case phaseKeyStr:
		switch tok {
		case StringPart:
			st.key = append(st.key, text...)
			return nil
		case String:
			st.cur = phaseColon
			return st.h.ObjectKey(string(append(st.key, text...)))
		}
		return st.syntaxf("expected string, got %v", tok) // unreachable

	case phaseColon:
		if tok != Colon {
			return st.syntaxf(`expected ":", got %v`, tok)
		}
		st.cur = phaseMember
		return nil

	case phaseNextMem:
		switch tok {
		case Comma:
			st.cur = phaseKey
			return nil
		case RBrace:
			return st.endObject()
		}
		return st.syntaxf(`expected "," or "}", got %v`, tok)

	case phaseNextElem:
		switch tok {
		case Comma:
			st.cur = phaseElem
			return nil
		case RSquare:
			return st.endArray()
		}
		return st.syntaxf(`expected "," or "]", got %v`, tok)

	case phaseValueStr:
		switch tok {
		case StringPart:
			return st.h.StringChunk(text, false)
		case String:
			if err := st.h.StringChunk(text, true); err != nil {
				return err
			}
			st.completeValue()
			return nil
		}
		return st.syntaxf("expected string, got %v", tok) // unreachable
	}
	return st.syntaxf("unknown state") // unreachable
}

// stepValue dispatches a token arriving where a value is expected.
func (st *Stream) stepValue(tok Token, text string) error {
	switch tok {
	case LBrace:
		st.ctx = append(st.ctx, '{')
		st.cur = phaseKeyOrEnd
		return st.h.BeginObject()

	case LSquare:
		st.ctx = append(st.ctx, '[')
		st.cur = phaseElemOrEnd
		return st.h.BeginArray()

	case RSquare:
		if st.cur == phaseElemOrEnd || (st.cur == phaseElem && st.tcomma) {
			return st.endArray()
		}

	case StringPart:
		st.cur = phaseValueStr
		return st.h.StringChunk(text, false)

	case String:
		if err := st.h.StringChunk(text, true); err != nil {
			return err
		}
		st.completeValue()
		return nil

	case Integer, Number, True, False, Null:
		if err := st.h.Value(Datum{Kind: tok, Text: text}); err != nil {
			return err
		}
		st.completeValue()
		return nil
	}
	return st.syntaxf("unexpected %v", tok)
}

// completeValue records that a value has been fully delivered, and sets
// the phase for whatever encloses it.
func (st *Stream) completeValue() {
	switch st.ctx[len(st.ctx)-1] {
	case '{':
		st.cur = phaseNextMem
	case '[':
		st.cur = phaseNextElem
	default:
		st.cur = phaseDone
	}
}

func (st *Stream) endObject() error {
	st.ctx = st.ctx[:len(st.ctx)-1]
	st.completeValue()
	return st.h.EndObject()
}

func (st *Stream) endArray() error {
	st.ctx = st.ctx[:len(st.ctx)-1]
	st.completeValue()
	return st.h.EndArray()
}

func (st *Stream) syntaxf(msg string, args ...any) error {
	return &ParseError{Location: st.sc.Location(), Message: fmt.Sprintf(msg, args...)}
}
