// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jfeed

import (
	"fmt"
	"strings"

	"github.com/creachadair/jfeed/internal/escape"

	"go4.org/mem"
)

// Token is the type of a lexical token in the JSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid    Token = iota // invalid token
	LBrace                  // left brace "{"
	RBrace                  // right brace "}"
	LSquare                 // left square bracket "["
	RSquare                 // right square bracket "]"
	Comma                   // comma ","
	Colon                   // colon ":"
	Integer                 // number: integer with no fraction or exponent
	Number                  // number with fraction and/or exponent
	StringPart              // leading portion of a string, more to come
	String                  // final portion of a string
	True                    // constant: true
	False                   // constant: false
	Null                    // constant: null

	LineComment  // comment: // ... <LF>
	BlockComment // comment: /* ... */
)

var tokenStr = [...]string{
	Invalid: "invalid token",
	LBrace:  `"{"`,
	RBrace:  `"}"`,
	LSquare: `"["`,
	RSquare: `"]"`,
	Comma:   `","`,
	Colon:   `":"`,
	Integer: "integer",
	Number:  "number",

	StringPart: "partial string",
	String:     "string",

	True:  "true",
	False: "false",
	Null:  "null",

	LineComment:  "line comment",
	BlockComment: "block comment",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

type scanState byte

const (
	scanValue   scanState = iota // between tokens
	scanString                   // inside a quoted string
	scanNumber                   // inside a numeric literal
	scanName                     // inside a name constant (true, false, null)
	scanSlash                    // after "/", comment kind not yet known
	scanLine                     // inside a line comment
	scanBlock                    // inside a block comment
	scanStar                     // inside a block comment, after "*"
)

type escState byte

const (
	escNone  escState = iota // not in an escape sequence
	escSlash                 // after "\"
	escHex                   // inside the digits of "\uXXXX"
)

type item struct {
	tok  Token
	text string
	loc  Location
}

// A Scanner is a push-oriented lexical scanner for JSON. Input is supplied
// incrementally with Feed, in chunks that need not align with any token
// boundary; the scanner buffers whatever partial literal a chunk leaves
// behind and resumes it on the next call. Tokens already determined are
// consumed with Next, in the manner of a pull scanner:
//
//	sc.Feed(chunk)
//	for sc.Next() {
//	   log.Printf("Token: %v %q", sc.Token(), sc.Text())
//	}
//
// A string is reported incrementally: zero or more StringPart tokens carry
// the decoded content available at each chunk boundary, and a String token
// carries the remainder once the closing quote is seen. Content is withheld
// while an escape sequence, a surrogate pair, or a UTF-8 encoding is still
// incomplete, so each reported piece is fully decoded.
//
// Numbers and the name constants are withheld until a following delimiter
// or a call to End fixes their boundary, since trailing characters could
// otherwise still extend the literal.
type Scanner struct {
	q   []item // tokens determined but not yet consumed
	qi  int    // read offset into q
	cur item   // most recent token returned by Next

	state scanState
	esc   escState
	hexn  int      // hex digits of the current \u escape seen so far
	buf   []byte   // pending literal text (number, name, or comment)
	sbuf  []byte   // pending undecoded string content
	start Location // location where the pending literal began

	pos, line, col int
	comments       bool // allow comments
	ended          bool
	err            error
}

// NewScanner constructs a new, empty push scanner.
func NewScanner() *Scanner { return new(Scanner) }

// AllowComments configures the scanner to report (true) or reject (false)
// comment tokens. Comments are a non-standard extension of the JSON spec.
// If enabled, C++ style block comments (/* ... */) and line comments
// (// ...) are recognized and emitted as tokens.
func (s *Scanner) AllowComments(ok bool) { s.comments = ok }

// Feed delivers the next chunk of input to the scanner. Tokens that the
// chunk completes, or whose boundaries it fixes, become available via Next;
// any trailing partial literal is retained for the next call. If the chunk
// contains a lexical error, Feed reports a *ParseError; tokens determined
// before the error remain available.
func (s *Scanner) Feed(text string) error {
	if s.err != nil {
		return s.err
	} else if s.ended {
		return &InvalidStateError{Message: "feed after end of input"}
	}

	i := 0
	for i < len(text) {
		var err error
		switch s.state {
		case scanValue:
			i, err = s.feedValue(text, i)
		case scanString:
			i, err = s.feedString(text, i)
		case scanNumber:
			i, err = s.feedNumber(text, i)
		case scanName:
			i, err = s.feedName(text, i)
		default:
			i, err = s.feedComment(text, i)
		}
		if err != nil {
			return err
		}
	}

	// The chunk ended inside a string: report whatever prefix of the
	// pending content is already fully decodable.
	if s.state == scanString {
		s.flushString()
	}
	return nil
}

// End declares the end of the input stream, fixing the boundary of a
// pending number or name constant. An unterminated comment is a lexical
// error; an unterminated string is left pending, since the caller decides
// whether truncation is fatal. Feed must not be called after End.
func (s *Scanner) End() error {
	if s.err != nil {
		return s.err
	} else if s.ended {
		return nil
	}
	s.ended = true
	switch s.state {
	case scanNumber:
		return s.finishNumber()
	case scanName:
		return s.finishName()
	case scanLine:
		// A line comment may be ended by the end of input.
		s.emit(LineComment, string(s.buf), s.start)
		s.state = scanValue
	case scanSlash, scanBlock, scanStar:
		return s.failf("unterminated comment")
	}
	return nil
}

// Next advances s to the next available token, if any.
func (s *Scanner) Next() bool {
	if s.qi >= len(s.q) {
		s.q, s.qi = s.q[:0], 0
		return false
	}
	s.cur = s.q[s.qi]
	s.qi++
	return true
}

// Token returns the type of the current token.
func (s *Scanner) Token() Token { return s.cur.tok }

// Text returns the text of the current token. For strings the text is
// decoded; for other tokens it is the literal input.
func (s *Scanner) Text() string { return s.cur.text }

// Location returns the location where the current token began.
func (s *Scanner) Location() Location { return s.cur.loc }

// Err returns the last error reported by Feed or End.
func (s *Scanner) Err() error { return s.err }

// feedValue consumes whitespace and punctuation starting at text[i]. It
// returns when a literal begins (having set the scanner state), when the
// chunk is exhausted, or on error.
func (s *Scanner) feedValue(text string, i int) (int, error) {
	for i < len(text) {
		b := text[i]
		if isSpace(b) {
			s.adv(b)
			i++
			continue
		}
		if t, ok := selfDelim(b); ok {
			s.emit(t, text[i:i+1], s.here())
			s.adv(b)
			i++
			continue
		}

		s.start = s.here()
		switch {
		case b == '"':
			s.state, s.esc = scanString, escNone
			s.sbuf = s.sbuf[:0]
		case isNumStart(b):
			s.state = scanNumber
			s.buf = append(s.buf[:0], b)
		case isNameByte(b):
			s.state = scanName
			s.buf = append(s.buf[:0], b)
		case b == '/' && s.comments:
			s.state = scanSlash
			s.buf = append(s.buf[:0], b)
		default:
			return 0, s.failf("unexpected %q", rune(b))
		}
		s.adv(b)
		return i + 1, nil
	}
	return i, nil
}

// feedString consumes string content starting at text[i] until the closing
// quote or the end of the chunk. Escape sequences are validated as their
// bytes arrive; decoding happens when content is reported.
func (s *Scanner) feedString(text string, i int) (int, error) {
	j := i
	for j < len(text) {
		b := text[j]
		switch {
		case s.esc == escSlash:
			switch b {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				s.esc = escNone
			case 'u':
				s.esc, s.hexn = escHex, 0
			default:
				return 0, s.failf("invalid %q after escape", rune(b))
			}
		case s.esc == escHex:
			if !isHexDigit(b) {
				return 0, s.failf("invalid Unicode escape: not a hex digit: %q", rune(b))
			}
			if s.hexn++; s.hexn == 4 {
				s.esc = escNone
			}
		case b == '"':
			s.sbuf = append(s.sbuf, text[i:j]...)
			dec, err := escape.Unquote(mem.B(s.sbuf))
			if err != nil {
				return 0, s.failf("invalid string: %w", err)
			}
			s.emit(String, string(dec), s.start)
			s.sbuf, s.state = s.sbuf[:0], scanValue
			s.adv(b)
			return j + 1, nil
		case b == '\\':
			s.esc = escSlash
		case b < ' ':
			return 0, s.failf("unescaped control %q", rune(b))
		}
		s.adv(b)
		j++
	}
	s.sbuf = append(s.sbuf, text[i:]...)
	return j, nil
}

// flushString reports the decodable prefix of the pending string content as
// a StringPart token. Content held back (an incomplete escape, an unpaired
// high surrogate, a partial UTF-8 encoding) stays pending.
func (s *Scanner) flushString() {
	dec, n := escape.UnquotePrefix(mem.B(s.sbuf))
	if len(dec) > 0 {
		s.emit(StringPart, string(dec), s.start)
	}
	if n > 0 {
		s.sbuf = append(s.sbuf[:0], s.sbuf[n:]...)
	}
}

func (s *Scanner) feedNumber(text string, i int) (int, error) {
	j := i
	for j < len(text) {
		b := text[j]
		if !isNumByte(b) {
			s.buf = append(s.buf, text[i:j]...)
			return j, s.finishNumber() // the delimiter is left for feedValue
		}
		s.adv(b)
		j++
	}
	s.buf = append(s.buf, text[i:]...)
	return j, nil
}

func (s *Scanner) finishNumber() error {
	tok, err := checkNumber(s.buf)
	if err != nil {
		return s.fail(err)
	}
	s.emit(tok, string(s.buf), s.start)
	s.state = scanValue
	return nil
}

func (s *Scanner) feedName(text string, i int) (int, error) {
	j := i
	for j < len(text) {
		b := text[j]
		if !isNameByte(b) {
			s.buf = append(s.buf, text[i:j]...)
			return j, s.finishName()
		}
		s.adv(b)
		j++
	}
	s.buf = append(s.buf, text[i:]...)
	return j, nil
}

func (s *Scanner) finishName() error {
	var tok Token
	switch string(s.buf) {
	case "true":
		tok = True
	case "false":
		tok = False
	case "null":
		tok = Null
	default:
		return s.failf("unknown constant %q", s.buf)
	}
	s.emit(tok, string(s.buf), s.start)
	s.state = scanValue
	return nil
}

func (s *Scanner) feedComment(text string, i int) (int, error) {
	j := i
	for j < len(text) {
		b := text[j]
		s.adv(b)
		j++
		s.buf = append(s.buf, b)
		switch s.state {
		case scanSlash:
			switch b {
			case '/':
				s.state = scanLine
			case '*':
				s.state = scanBlock
			default:
				return 0, s.failf("invalid %q in comment", rune(b))
			}
		case scanLine:
			if b == '\n' {
				s.emit(LineComment, string(s.buf), s.start)
				s.state = scanValue
				return j, nil
			}
		case scanBlock:
			if b == '*' {
				s.state = scanStar
			}
		case scanStar:
			switch b {
			case '/':
				s.emit(BlockComment, string(s.buf), s.start)
				s.state = scanValue
				return j, nil
			case '*':
				// still a candidate for the end of the block
			default:
				s.state = scanBlock
			}
		}
	}
	return j, nil
}

func (s *Scanner) emit(tok Token, text string, loc Location) {
	s.q = append(s.q, item{tok: tok, text: text, loc: loc})
}

func (s *Scanner) here() Location {
	return Location{Pos: s.pos, LineCol: LineCol{Line: s.line + 1, Column: s.col}}
}

func (s *Scanner) adv(b byte) {
	s.pos++
	if b == '\n' {
		s.line++
		s.col = 0
	} else {
		s.col++
	}
}

func (s *Scanner) fail(err error) error {
	s.err = &ParseError{Location: s.here(), Message: err.Error(), err: err}
	return s.err
}

func (s *Scanner) failf(msg string, args ...any) error {
	return s.fail(fmt.Errorf(msg, args...))
}

// checkNumber validates a complete numeric literal against the JSON number
// grammar, including the prohibition on redundant leading zeroes.
// That is: 0.12 is OK, 01.2 is not.
func checkNumber(buf []byte) (Token, error) {
	i, n := 0, len(buf)
	if i < n && buf[i] == '-' {
		i++
	}
	if i == n || !isDigit(buf[i]) {
		return Invalid, fmt.Errorf("malformed number %q", buf)
	}
	if buf[i] == '0' {
		i++
	} else {
		for i < n && isDigit(buf[i]) {
			i++
		}
	}
	tok := Integer
	if i < n && buf[i] == '.' {
		i++
		if i == n || !isDigit(buf[i]) {
			return Invalid, fmt.Errorf("no digits after decimal point in %q", buf)
		}
		for i < n && isDigit(buf[i]) {
			i++
		}
		tok = Number
	}
	if i < n && (buf[i] == 'e' || buf[i] == 'E') {
		i++
		if i < n && (buf[i] == '+' || buf[i] == '-') {
			i++
		}
		if i == n || !isDigit(buf[i]) {
			return Invalid, fmt.Errorf("missing exponent digits in %q", buf)
		}
		for i < n && isDigit(buf[i]) {
			i++
		}
		tok = Number
	}
	if i != n {
		return Invalid, fmt.Errorf("malformed number %q", buf)
	}
	return tok, nil
}

func isSpace(b byte) bool    { return b == ' ' || b == '\r' || b == '\n' || b == '\t' }
func isDigit(b byte) bool    { return '0' <= b && b <= '9' }
func isNumStart(b byte) bool { return b == '-' || isDigit(b) }
func isNameByte(b byte) bool { return b >= 'a' && b <= 'z' }

func isNumByte(b byte) bool {
	return isDigit(b) || b == '.' || b == '+' || b == '-' || b == 'e' || b == 'E'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

var self = [...]Token{LBrace, RBrace, LSquare, RSquare, Comma, Colon}

func selfDelim(b byte) (Token, bool) {
	i := strings.IndexByte("{}[],:", b)
	if i >= 0 {
		return self[i], true
	}
	return Invalid, false
}
