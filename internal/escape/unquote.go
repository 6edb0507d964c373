// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package escape handles unquoting of JSON string content, including
// content that arrives incrementally across chunk boundaries.
package escape

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// Unquote decodes a byte slice containing JSON string content. The input
// must have the enclosing double quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents, and a
// surrogate pair written as two consecutive \u escapes is combined into
// one rune. Invalid escapes and unpaired surrogates are replaced by the
// Unicode replacement rune. Unquote reports an error for an incomplete
// escape sequence.
func Unquote(src mem.RO) ([]byte, error) {
	dec, n := unquote(src, true)
	if n < src.Len() {
		return nil, errors.New("incomplete escape sequence")
	}
	return dec, nil
}

// UnquotePrefix decodes the longest prefix of src that can be decoded
// without further input, and reports the number of source bytes consumed.
// A trailing incomplete escape sequence, an incomplete UTF-8 encoding, or
// a \u escape of a high surrogate whose mate may still arrive is left
// unconsumed for a later call.
func UnquotePrefix(src mem.RO) ([]byte, int) { return unquote(src, false) }

func unquote(src mem.RO, final bool) ([]byte, int) {
	var dec []byte
	pos := 0
	for pos < src.Len() {
		rest := src.SliceFrom(pos)
		i := mem.IndexByte(rest, '\\')
		if i < 0 {
			// No escapes remain. Unless the input is final, a trailing
			// incomplete UTF-8 encoding is held back.
			n := rest.Len()
			if !final {
				n -= partialRuneLen(rest)
			}
			dec = mem.Append(dec, rest.SliceTo(n))
			return dec, pos + n
		}
		dec = mem.Append(dec, rest.SliceTo(i))
		pos += i

		out, n, ok := decodeEscape(src.SliceFrom(pos), final)
		if !ok {
			return dec, pos // incomplete, wait for more input
		}
		dec = append(dec, out...)
		pos += n
	}
	return dec, pos
}

// decodeEscape decodes a single escape sequence at the front of src, which
// must begin with a backslash. It returns the decoded bytes and the number
// of source bytes consumed, or ok == false if the sequence is incomplete.
func decodeEscape(src mem.RO, final bool) (out []byte, n int, ok bool) {
	if src.Len() < 2 {
		return nil, 0, false
	}
	switch c := src.At(1); c {
	case '"', '\\', '/':
		return []byte{c}, 2, true
	case 'b':
		return []byte{'\b'}, 2, true
	case 'f':
		return []byte{'\f'}, 2, true
	case 'n':
		return []byte{'\n'}, 2, true
	case 'r':
		return []byte{'\r'}, 2, true
	case 't':
		return []byte{'\t'}, 2, true

	case 'u':
		if src.Len() < 6 {
			return nil, 0, false
		}
		v, err := parseHex(src.SliceFrom(2).SliceTo(4))
		if err != nil {
			return utf8.AppendRune(nil, utf8.RuneError), 6, true
		}
		r := rune(v)
		if !utf16.IsSurrogate(r) {
			return utf8.AppendRune(nil, r), 6, true
		}
		if r >= 0xDC00 {
			// A low surrogate with no preceding high half.
			return utf8.AppendRune(nil, utf8.RuneError), 6, true
		}

		// A high surrogate: combine it with a following \u escape if one is
		// present. If the input ends where the mate could still arrive, the
		// whole sequence is withheld.
		rest := src.SliceFrom(6)
		if !isHexEscapePrefix(rest) {
			return utf8.AppendRune(nil, utf8.RuneError), 6, true
		}
		if rest.Len() < 6 {
			if final {
				return utf8.AppendRune(nil, utf8.RuneError), 6, true
			}
			return nil, 0, false
		}
		v2, err := parseHex(rest.SliceFrom(2).SliceTo(4))
		if err == nil {
			if r2 := rune(v2); r2 >= 0xDC00 && r2 < 0xE000 {
				return utf8.AppendRune(nil, utf16.DecodeRune(r, r2)), 12, true
			}
		}
		// The following escape is not a low surrogate; it will be decoded on
		// its own in the next round.
		return utf8.AppendRune(nil, utf8.RuneError), 6, true

	default:
		return utf8.AppendRune(nil, utf8.RuneError), 2, true
	}
}

// isHexEscapePrefix reports whether src is a prefix of a \uXXXX escape
// sequence, including the empty prefix.
func isHexEscapePrefix(src mem.RO) bool {
	n := src.Len()
	if n == 0 {
		return true
	}
	if src.At(0) != '\\' {
		return false
	}
	if n > 1 && src.At(1) != 'u' {
		return false
	}
	for i := 2; i < n && i < 6; i++ {
		if !isHexDigit(src.At(i)) {
			return false
		}
	}
	return true
}

// partialRuneLen reports the length of an incomplete UTF-8 encoding at the
// end of src, or 0 if src ends on an encoding boundary.
func partialRuneLen(src mem.RO) int {
	n := src.Len()
	for i := 1; i <= 3 && i <= n; i++ {
		b := src.At(n - i)
		if b < 0x80 {
			return 0 // ASCII, complete
		}
		if b >= 0xC0 {
			if runeLen(b) > i {
				return i // a leading byte still awaiting continuations
			}
			return 0
		}
		// A continuation byte: keep looking for the leading byte.
	}
	return 0
}

func runeLen(b byte) int {
	switch {
	case b >= 0xF0:
		return 4
	case b >= 0xE0:
		return 3
	case b >= 0xC0:
		return 2
	}
	return 1
}

func parseHex(data mem.RO) (int64, error) {
	var v int64
	for i := 0; i < data.Len(); i++ {
		b := data.At(i)
		v <<= 4
		if '0' <= b && b <= '9' {
			v += int64(b - '0')
		} else if 'a' <= b && b <= 'f' {
			v += int64(b - 'a' + 10)
		} else if 'A' <= b && b <= 'F' {
			v += int64(b - 'A' + 10)
		} else {
			return 0, errors.New("invalid hex digit")
		}
	}
	return v, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
