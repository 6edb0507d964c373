// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package tree_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/creachadair/jfeed"
	"github.com/creachadair/jfeed/tree"
	"github.com/google/go-cmp/cmp"
)

func mustOpen(t *testing.T, typ tree.Type) *tree.Parser {
	t.Helper()
	p, err := tree.Open(typ)
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	return p
}

func mustPush(t *testing.T, p *tree.Parser, chunks ...string) {
	t.Helper()
	for _, chunk := range chunks {
		if err := p.Push(chunk); err != nil {
			t.Fatalf("Push %#q: unexpected error: %v", chunk, err)
		}
	}
}

func chatType() tree.Type {
	return tree.ObjectOf(
		tree.Field{Name: "role", Type: tree.Text()},
		tree.Field{Name: "content", Type: tree.Text()},
		tree.Field{Name: "count", Type: tree.Int()},
	)
}

func TestStreamingMessage(t *testing.T) {
	p := mustOpen(t, chatType())

	var trace []string
	rec := func(msg string, args ...any) { trace = append(trace, fmt.Sprintf(msg, args...)) }

	role := p.Root().Field("role").(*tree.String)
	content := p.Root().Field("content").(*tree.String)
	count := p.Root().Field("count").(*tree.Atom[int64])
	role.OnComplete(func(s string) { rec("role=%s", s) })
	content.OnAppend(func(s string) { rec("content+%s", s) })
	content.OnComplete(func(s string) { rec("content=%s", s) })
	count.OnComplete(func(v int64) { rec("count=%d", v) })
	p.Root().OnComplete(func(*tree.Object) { rec("done") })

	mustPush(t, p, `{"role":"a","content":"Hel`)

	// After the first chunk the role is settled and the content is
	// partially visible; the count holds nothing yet.
	if got := content.Value(); got != "Hel" {
		t.Errorf("Content: got %q, want %q", got, "Hel")
	}
	if got := content.State(); got != tree.Streaming {
		t.Errorf("Content state: got %v, want %v", got, tree.Streaming)
	}
	if v, ok := count.Value(); ok {
		t.Errorf("Count: got %v, true; want ok false", v)
	}
	want := []string{"role=a", "content+Hel"}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("Events (-want, +got)\n%s", diff)
	}

	mustPush(t, p, `lo","count":5}`)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}

	want = append(want, "content+lo", "content=Hello", "count=5", "done")
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("Events (-want, +got)\n%s", diff)
	}
	if got := p.Root().State(); got != tree.Complete {
		t.Errorf("Root state: got %v, want %v", got, tree.Complete)
	}
}

func TestStreamingArray(t *testing.T) {
	p := mustOpen(t, tree.ObjectOf(
		tree.Field{Name: "tags", Type: tree.ArrayOf(tree.Text())},
	))

	var trace []string
	rec := func(msg string, args ...any) { trace = append(trace, fmt.Sprintf(msg, args...)) }

	tags := p.Root().Field("tags").(*tree.Array)
	tags.OnAppend(func(n tree.Node) {
		// The element arrives before any of its content, so handlers
		// registered here observe all of it.
		rec("append %s", n.Path())
		s := n.(*tree.String)
		s.OnAppend(func(text string) { rec("%s+%s", s.Path(), text) })
		s.OnComplete(func(text string) { rec("%s=%s", s.Path(), text) })
	})
	tags.OnComplete(func(*tree.Array) { rec("tags done") })
	p.Root().OnComplete(func(*tree.Object) { rec("done") })

	mustPush(t, p, `{"tags":["ab`, `c","d"]}`)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}

	want := []string{
		"append tags[0]", "tags[0]+ab", "tags[0]+c", "tags[0]=abc",
		"append tags[1]", "tags[1]+d", "tags[1]=d",
		"tags done", "done",
	}
	if diff := cmp.Diff(want, trace); diff != "" {
		t.Errorf("Events (-want, +got)\n%s", diff)
	}

	// Element identity is stable after completion.
	if got := tags.Len(); got != 2 {
		t.Errorf("Len: got %d, want 2", got)
	}
	if got := tags.At(0).(*tree.String).Value(); got != "abc" {
		t.Errorf("At(0): got %q, want %q", got, "abc")
	}
}

func TestAtomicBoundary(t *testing.T) {
	// The first chunk ends inside the literal 42. No completion may fire
	// until the value's boundary is fixed, and then exactly once.
	p := mustOpen(t, tree.ObjectOf(tree.Field{Name: "count", Type: tree.Int()}))
	count := p.Root().Field("count").(*tree.Atom[int64])

	var got []int64
	count.OnComplete(func(v int64) { got = append(got, v) })

	mustPush(t, p, `{"count":4`)
	if len(got) != 0 {
		t.Errorf("Complete fired early: %v", got)
	}
	if got := count.State(); got != tree.Pending {
		t.Errorf("Count state: got %v, want %v", got, tree.Pending)
	}

	mustPush(t, p, `2}`)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	if diff := cmp.Diff([]int64{42}, got); diff != "" {
		t.Errorf("Completions (-want, +got)\n%s", diff)
	}
}

// fullType is a schema exercising every node variety, used by the
// split-position tests.
func fullType() tree.Type {
	return tree.ObjectOf(
		tree.Field{Name: "role", Type: tree.Text()},
		tree.Field{Name: "content", Type: tree.Text()},
		tree.Field{Name: "count", Type: tree.Int()},
		tree.Field{Name: "score", Type: tree.Float()},
		tree.Field{Name: "ok", Type: tree.Bool()},
		tree.Field{Name: "tags", Type: tree.ArrayOf(tree.Text())},
		tree.Field{Name: "meta", Type: tree.Any()},
	)
}

type fullResult struct {
	Role, Content string
	Count         int64
	Score         float64
	OK            bool
	Tags          []string
	Meta          any
	Appends       string // concatenation of content append events
}

func TestSplitPositions(t *testing.T) {
	const doc = `{"role":"assistant","content":"Héllo \"world\" 😀","count":42,` +
		`"score":-1.5,"ok":true,"tags":["a","bc"],"meta":{"x":1,"y":[true,null]},` +
		`"extra":{"skip":[1,{"z":2}],"s":"t"}}`

	want := fullResult{
		Role:    "assistant",
		Content: `Héllo "world" 😀`,
		Count:   42,
		Score:   -1.5,
		OK:      true,
		Tags:    []string{"a", "bc"},
		Meta:    map[string]any{"x": int64(1), "y": []any{true, nil}},
		Appends: `Héllo "world" 😀`,
	}

	run := func(t *testing.T, chunks ...string) fullResult {
		t.Helper()
		p := mustOpen(t, fullType())
		var got fullResult
		content := p.Root().Field("content").(*tree.String)
		content.OnAppend(func(s string) { got.Appends += s })
		mustPush(t, p, chunks...)
		if err := p.Close(); err != nil {
			t.Fatalf("Close: unexpected error: %v", err)
		}

		got.Role = p.Root().Field("role").(*tree.String).Value()
		got.Content = content.Value()
		got.Count, _ = p.Root().Field("count").(*tree.Atom[int64]).Value()
		got.Score, _ = p.Root().Field("score").(*tree.Atom[float64]).Value()
		got.OK, _ = p.Root().Field("ok").(*tree.Atom[bool]).Value()
		for _, n := range p.Root().Field("tags").(*tree.Array).Nodes() {
			got.Tags = append(got.Tags, n.(*tree.String).Value())
		}
		got.Meta, _ = p.Root().Field("meta").(*tree.Atom[any]).Value()
		return got
	}

	if diff := cmp.Diff(want, run(t, doc)); diff != "" {
		t.Fatalf("Unsplit result (-want, +got)\n%s", diff)
	}
	for i := 1; i < len(doc); i++ {
		if diff := cmp.Diff(want, run(t, doc[:i], doc[i:])); diff != "" {
			t.Errorf("Split at %d: result (-want, +got)\n%s", i, diff)
		}
	}
}

func TestUnknownKeys(t *testing.T) {
	// By default, keys not in the schema are skipped with their values.
	p := mustOpen(t, tree.ObjectOf(tree.Field{Name: "a", Type: tree.Int()}))
	mustPush(t, p, `{"junk":{"deep":["stuff", {"more":"stuff"}]}, "a":1, "tail":null}`)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	if v, ok := p.Root().Field("a").(*tree.Atom[int64]).Value(); !ok || v != 1 {
		t.Errorf("Value: got %v, %v; want 1, true", v, ok)
	}

	// With strict keys, an unknown key is a schema mismatch.
	p = mustOpen(t, tree.ObjectOf(tree.Field{Name: "a", Type: tree.Int()}))
	p.StrictKeys(true)
	err := p.Push(`{"junk":1}`)
	var serr *jfeed.SchemaMismatchError
	if !errors.As(err, &serr) {
		t.Fatalf("Push: got %v, want *SchemaMismatchError", err)
	}
	if serr.Path != "junk" {
		t.Errorf("Mismatch path: got %q, want %q", serr.Path, "junk")
	}
}

func TestNullValues(t *testing.T) {
	p := mustOpen(t, chatType())
	mustPush(t, p, `{"role":null,"content":"x","count":null}`)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}

	role := p.Root().Field("role").(*tree.String)
	if !role.IsNull() || role.Value() != "" {
		t.Errorf("Role: got %q null=%v, want empty null", role.Value(), role.IsNull())
	}
	count := p.Root().Field("count").(*tree.Atom[int64])
	if v, ok := count.Value(); !ok || v != 0 || !count.IsNull() {
		t.Errorf("Count: got %v, %v, null=%v; want 0, true, null", v, ok, count.IsNull())
	}
}

func TestSchemaMismatch(t *testing.T) {
	tests := []struct {
		input string
		path  string
	}{
		{`[1]`, ""},                              // array where the root object belongs
		{`{"count":"x"}`, "count"},               // string for an integer
		{`{"count":1.5}`, "count"},               // fraction for an integer
		{`{"count":99999999999999999999}`, "count"}, // out of range for int64
		{`{"role":5}`, "role"},                   // number for a string
		{`{"role":true}`, "role"},                // boolean for a string
		{`{"tags":{"x":1}}`, "tags"},             // object for an array
		{`{"tags":5}`, "tags"},                   // number for an array
		{`{"count":1,"count":2}`, "count"},       // duplicate key
	}
	for _, test := range tests {
		p := mustOpen(t, fullType())
		err := p.Push(test.input)
		var serr *jfeed.SchemaMismatchError
		if !errors.As(err, &serr) {
			t.Errorf("Push %#q: got %v, want *SchemaMismatchError", test.input, err)
			continue
		}
		if serr.Path != test.path {
			t.Errorf("Push %#q: mismatch path %q, want %q", test.input, serr.Path, test.path)
		}
	}
}

func TestNumericWidening(t *testing.T) {
	p := mustOpen(t, tree.ObjectOf(tree.Field{Name: "score", Type: tree.Float()}))
	mustPush(t, p, `{"score":3}`)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	if v, ok := p.Root().Field("score").(*tree.Atom[float64]).Value(); !ok || v != 3 {
		t.Errorf("Value: got %v, %v; want 3, true", v, ok)
	}
}

func TestAnyValues(t *testing.T) {
	tests := []struct {
		chunks []string
		want   any
	}{
		{[]string{`{"meta":42}`}, int64(42)},
		{[]string{`{"meta":-1.5}`}, -1.5},
		{[]string{`{"meta":true}`}, true},
		{[]string{`{"meta":null}`}, nil},
		{[]string{`{"meta":"a`, `b"}`}, "ab"},
		{[]string{`{"meta":[1,"x`, `y",{"k":false}]}`}, []any{int64(1), "xy", map[string]any{"k": false}}},
		{[]string{`{"meta":{}}`}, map[string]any{}},
	}
	for _, test := range tests {
		p := mustOpen(t, tree.ObjectOf(tree.Field{Name: "meta", Type: tree.Any()}))
		meta := p.Root().Field("meta").(*tree.Atom[any])

		var fired int
		meta.OnComplete(func(any) { fired++ })

		mustPush(t, p, test.chunks...)
		if err := p.Close(); err != nil {
			t.Fatalf("Close: unexpected error: %v", err)
		}
		v, ok := meta.Value()
		if !ok {
			t.Errorf("Parse %q: value not assigned", test.chunks)
		}
		if diff := cmp.Diff(test.want, v); diff != "" {
			t.Errorf("Parse %q: value (-want, +got)\n%s", test.chunks, diff)
		}
		if fired != 1 {
			t.Errorf("Parse %q: complete fired %d times, want 1", test.chunks, fired)
		}
		if test.want == nil && !meta.IsNull() {
			t.Errorf("Parse %q: IsNull: got false, want true", test.chunks)
		}
	}
}

func TestTruncatedInput(t *testing.T) {
	tagsType := tree.ObjectOf(tree.Field{Name: "tags", Type: tree.ArrayOf(tree.Text())})
	tests := []struct {
		typ   tree.Type
		input string
		path  string
	}{
		{fullType(), ``, ""},
		{fullType(), `{`, "role"},              // nothing arrived for the first field
		{fullType(), `{"role":"a"`, "content"}, // role settled, content never started
		{fullType(), `{"role":"a","content":"He`, "content"}, // content mid-stream

		// Close fixes the boundary of the pending 5 and completes count, so
		// the next undelivered field is reported.
		{fullType(), `{"role":"a","content":"x","count":5`, "score"},

		{tagsType, `{"tags":["a`, "tags[0]"},   // an element mid-stream
		{tagsType, `{"tags":["a","b"`, "tags"}, // elements done, "]" missing
	}
	for _, test := range tests {
		p := mustOpen(t, test.typ)
		mustPush(t, p, test.input)
		err := p.Close()
		var terr *jfeed.TruncatedInputError
		if !errors.As(err, &terr) {
			t.Errorf("Close %#q: got %v, want *TruncatedInputError", test.input, err)
			continue
		}
		if terr.Path != test.path {
			t.Errorf("Close %#q: path %q, want %q", test.input, terr.Path, test.path)
		}

		// Closing again reports success; the failure was already delivered.
		if err := p.Close(); err != nil {
			t.Errorf("Close again: got %v, want nil", err)
		}
	}
}

func TestParserStates(t *testing.T) {
	t.Run("PushAfterClose", func(t *testing.T) {
		p := mustOpen(t, chatType())
		mustPush(t, p, `{"role":"a","content":"b","count":1}`)
		if err := p.Close(); err != nil {
			t.Fatalf("Close: unexpected error: %v", err)
		}
		var verr *jfeed.InvalidStateError
		if err := p.Push("{}"); !errors.As(err, &verr) {
			t.Errorf("Push after close: got %v, want *InvalidStateError", err)
		}
	})

	t.Run("PushAfterFailure", func(t *testing.T) {
		p := mustOpen(t, chatType())
		if err := p.Push(`{"role":5}`); err == nil {
			t.Fatal("Push: got nil, want error")
		}
		var verr *jfeed.InvalidStateError
		if err := p.Push(`{}`); !errors.As(err, &verr) {
			t.Errorf("Push after failure: got %v, want *InvalidStateError", err)
		}
		// The failure was reported by Push; Close does not repeat it.
		if err := p.Close(); err != nil {
			t.Errorf("Close after failure: got %v, want nil", err)
		}
	})

	t.Run("ReentrantPush", func(t *testing.T) {
		p := mustOpen(t, chatType())
		var reErr error
		p.Root().Field("role").(*tree.String).OnComplete(func(string) {
			reErr = p.Push(`{}`)
		})
		mustPush(t, p, `{"role":"a"`)
		var verr *jfeed.InvalidStateError
		if !errors.As(reErr, &verr) {
			t.Errorf("Reentrant push: got %v, want *InvalidStateError", reErr)
		}
	})

	t.Run("CloseDuringPush", func(t *testing.T) {
		p := mustOpen(t, chatType())
		var reErr error
		p.Root().Field("role").(*tree.String).OnComplete(func(string) {
			reErr = p.Close()
		})
		mustPush(t, p, `{"role":"a"`)
		var verr *jfeed.InvalidStateError
		if !errors.As(reErr, &verr) {
			t.Errorf("Close during push: got %v, want *InvalidStateError", reErr)
		}
	})

	t.Run("EmptyChunks", func(t *testing.T) {
		p := mustOpen(t, chatType())
		mustPush(t, p, ``, `{"role":"a",`, ``, `"content":"b","count":1}`, ``)
		if err := p.Close(); err != nil {
			t.Errorf("Close: unexpected error: %v", err)
		}
	})
}

func TestParseErrorSurvivors(t *testing.T) {
	// Events determined before a syntax error are delivered, and the tree
	// retains them; nothing is retracted.
	p := mustOpen(t, chatType())
	err := p.Push(`{"role":"a", %`)
	var perr *jfeed.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Push: got %v, want *ParseError", err)
	}
	role := p.Root().Field("role").(*tree.String)
	if got := role.Value(); got != "a" {
		t.Errorf("Role: got %q, want %q", got, "a")
	}
	if got := role.State(); got != tree.Complete {
		t.Errorf("Role state: got %v, want %v", got, tree.Complete)
	}
}

func TestParserExtensions(t *testing.T) {
	const input = `{
   // What the robot said.
   "role": "assistant",
   "content": "hi", /* and how often */
   "count": 3,
}`
	p := mustOpen(t, chatType())
	p.AllowComments(true)
	p.AllowTrailingCommas(true)
	mustPush(t, p, input)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	if got := p.Root().Field("content").(*tree.String).Value(); got != "hi" {
		t.Errorf("Content: got %q, want %q", got, "hi")
	}

	// Without the options the same input fails.
	p = mustOpen(t, chatType())
	if err := p.Push(input); err == nil {
		t.Error("Push with comments: got nil, want error")
	}
}

func TestOpenErrors(t *testing.T) {
	bad := []tree.Type{
		tree.Int(),               // the root must be an object
		tree.ArrayOf(tree.Int()), // likewise
		tree.ObjectOf(tree.Field{Name: "", Type: tree.Int()}),
		tree.ObjectOf(
			tree.Field{Name: "a", Type: tree.Int()},
			tree.Field{Name: "a", Type: tree.Text()},
		),
	}
	for i, typ := range bad {
		if p, err := tree.Open(typ); err == nil {
			t.Errorf("Open %d: got %+v, want error", i, p)
		}
	}
}

func TestLargeStream(t *testing.T) {
	// A long streaming string delivered one byte at a time arrives intact.
	const body = "The quick brown fox jumps over the lazy dog. 速い茶色の狐。"
	doc := fmt.Sprintf(`{"role":"r","content":%q,"count":1}`, body)

	p := mustOpen(t, chatType())
	var appends strings.Builder
	p.Root().Field("content").(*tree.String).OnAppend(func(s string) { appends.WriteString(s) })
	for i := 0; i < len(doc); i++ {
		mustPush(t, p, doc[i:i+1])
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: unexpected error: %v", err)
	}
	if got := appends.String(); got != body {
		t.Errorf("Appends: got %q, want %q", got, body)
	}
}
