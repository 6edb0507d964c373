// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package escape_test

import (
	"testing"

	"github.com/creachadair/jfeed/internal/escape"
	"go4.org/mem"
)

func TestUnquote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{``, ``},
		{`no escapes`, `no escapes`},
		{`a\tb`, "a\tb"},
		{`\"\\\/\b\f\n\r\t`, "\"\\/\b\f\n\r\t"},
		{`Aé`, "Aé"},
		{`\uD83D\uDE00`, "😀"}, // a surrogate pair combines
		{`\uD83Dx`, "�x"},  // an unpaired high surrogate
		{`\uDE00`, "�"},    // a low surrogate with no high half
		{`\uD83D\n`, "�\n"}, // a high surrogate paired with a non-surrogate
		{"caf\xc3\xa9", "café"}, // raw UTF-8 passes through
	}
	for _, test := range tests {
		got, err := escape.Unquote(mem.S(test.input))
		if err != nil {
			t.Errorf("Unquote %#q: unexpected error: %v", test.input, err)
			continue
		}
		if string(got) != test.want {
			t.Errorf("Unquote %#q: got %#q, want %#q", test.input, got, test.want)
		}
	}

	// An incomplete escape sequence is an error for a complete string.
	for _, bad := range []string{`\`, `\u`, `\u12`} {
		if got, err := escape.Unquote(mem.S(bad)); err == nil {
			t.Errorf("Unquote %#q: got %#q, want error", bad, got)
		}
	}
}

func TestUnquotePrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
		n     int
	}{
		{``, ``, 0},
		{`plain`, `plain`, 5},
		{`a\tb`, "a\tb", 4},

		// Incomplete trailing escapes are left unconsumed.
		{`ab\`, `ab`, 2},
		{`ab\u00`, `ab`, 2},

		// A high surrogate waits for a possible mate.
		{`x\uD83D`, `x`, 1},
		{`x\uD83D\uDE0`, `x`, 1},
		{`x\uD83D\uDE00`, "x😀", 13},

		// A high surrogate followed by a non-escape resolves immediately.
		{`x\uD83Dy`, "x�y", 8},

		// A trailing incomplete UTF-8 encoding is left unconsumed.
		{"caf\xc3", "caf", 3},
		{"a\xf0\x9f\x98", "a", 1},
		{"caf\xc3\xa9", "café", 5},
	}
	for _, test := range tests {
		got, n := escape.UnquotePrefix(mem.S(test.input))
		if string(got) != test.want || n != test.n {
			t.Errorf("UnquotePrefix %#q: got %#q, %d; want %#q, %d",
				test.input, got, n, test.want, test.n)
		}
	}
}
