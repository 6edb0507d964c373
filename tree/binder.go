// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package tree

import (
	"fmt"
	"strings"

	"github.com/creachadair/jfeed"
)

// A binder applies stream events to a node tree. It implements
// jfeed.Handler; the stream guarantees that events arrive in document
// order with containers correctly balanced, so the binder's only error
// cases are shape disagreements between the input and the schema.
type binder struct {
	root   *Object
	stk    []frame
	str    *String  // string node currently receiving chunks, if any
	cap    *capture // opaque value capture in progress, if any
	strict bool     // report unknown keys instead of skipping them

	skip     int  // nesting depth of a structurally skipped container
	skipNext bool // the next value is skipped (it followed an unknown key)
	skipStr  bool // inside a skipped string value
}

// A frame records one open container and, for objects, which field the
// next value targets.
type frame struct {
	obj     *Object
	arr     *Array
	pending Node
}

func (b *binder) BeginObject() error {
	if b.enterSkip() {
		return nil
	}
	if b.cap != nil {
		b.cap.beginObject()
		return nil
	}
	target, err := b.target()
	if err != nil {
		return err
	}
	switch n := target.(type) {
	case *Object:
		n.begin()
		b.stk = append(b.stk, frame{obj: n})
	case *Atom[any]:
		b.cap = newCapture(n)
		b.cap.beginObject()
	default:
		return mismatch(target, "unexpected object")
	}
	return nil
}

func (b *binder) EndObject() error {
	if b.skip > 0 {
		b.skip--
		return nil
	}
	if b.cap != nil {
		if v, done := b.cap.endObject(); done {
			b.finishCapture(v)
		}
		return nil
	}
	f := b.stk[len(b.stk)-1]
	b.stk = b.stk[:len(b.stk)-1]
	f.obj.end()
	return nil
}

func (b *binder) BeginArray() error {
	if b.enterSkip() {
		return nil
	}
	if b.cap != nil {
		b.cap.beginArray()
		return nil
	}
	target, err := b.target()
	if err != nil {
		return err
	}
	switch n := target.(type) {
	case *Array:
		n.begin()
		b.stk = append(b.stk, frame{arr: n})
	case *Atom[any]:
		b.cap = newCapture(n)
		b.cap.beginArray()
	default:
		return mismatch(target, "unexpected array")
	}
	return nil
}

func (b *binder) EndArray() error {
	if b.skip > 0 {
		b.skip--
		return nil
	}
	if b.cap != nil {
		if v, done := b.cap.endArray(); done {
			b.finishCapture(v)
		}
		return nil
	}
	f := b.stk[len(b.stk)-1]
	b.stk = b.stk[:len(b.stk)-1]
	f.arr.end()
	return nil
}

func (b *binder) ObjectKey(name string) error {
	if b.skip > 0 {
		return nil
	}
	if b.cap != nil {
		b.cap.key(name)
		return nil
	}
	f := &b.stk[len(b.stk)-1]
	n := f.obj.Field(name)
	if n == nil {
		if b.strict {
			return &jfeed.SchemaMismatchError{
				Path:    joinPath(f.obj.Path(), name),
				Message: "unknown key",
			}
		}
		b.skipNext = true
		return nil
	}
	if n.State() == Complete {
		// A value cannot be delivered to the same field twice.
		return mismatch(n, "duplicate key")
	}
	f.pending = n
	return nil
}

func (b *binder) StringChunk(text string, final bool) error {
	if b.skip > 0 {
		return nil
	}
	if b.skipNext || b.skipStr {
		b.skipNext = false
		b.skipStr = !final
		return nil
	}
	if b.cap != nil {
		if v, done := b.cap.stringChunk(text, final); done {
			b.finishCapture(v)
		}
		return nil
	}
	if b.str == nil {
		target, err := b.target()
		if err != nil {
			return err
		}
		switch n := target.(type) {
		case *String:
			b.str = n
		case *Atom[any]:
			b.cap = newCapture(n)
			if v, done := b.cap.stringChunk(text, final); done {
				b.finishCapture(v)
			}
			return nil
		default:
			return mismatch(target, "unexpected string")
		}
	}
	b.str.update(text)
	if final {
		s := b.str
		b.str = nil
		s.complete()
	}
	return nil
}

func (b *binder) Value(d jfeed.Datum) error {
	if b.skip > 0 {
		return nil
	}
	if b.skipNext {
		b.skipNext = false
		return nil
	}
	if b.cap != nil {
		v, err := d.Decode()
		if err != nil {
			return mismatch(b.cap.dst, err.Error())
		}
		if v2, done := b.cap.value(v); done {
			b.finishCapture(v2)
		}
		return nil
	}
	target, err := b.target()
	if err != nil {
		return err
	}
	return b.setScalar(target, d)
}

// setScalar applies a non-string data value to its target node. A null is
// accepted by every leaf node type; otherwise the token kind must agree
// with the declared type.
func (b *binder) setScalar(target Node, d jfeed.Datum) error {
	if d.IsNull() {
		switch n := target.(type) {
		case *String:
			n.completeNull()
		case *Atom[int64]:
			n.setNull()
		case *Atom[float64]:
			n.setNull()
		case *Atom[bool]:
			n.setNull()
		case *Atom[any]:
			n.setNull()
		default:
			return mismatch(target, "unexpected null")
		}
		return nil
	}

	switch n := target.(type) {
	case *Atom[int64]:
		if d.Kind != jfeed.Integer {
			return mismatch(target, fmt.Sprintf("unexpected %v", d.Kind))
		}
		v, err := d.Int64()
		if err != nil {
			return mismatch(target, fmt.Sprintf("integer %s out of range", d.Text))
		}
		n.set(v)
	case *Atom[float64]:
		if d.Kind != jfeed.Integer && d.Kind != jfeed.Number {
			return mismatch(target, fmt.Sprintf("unexpected %v", d.Kind))
		}
		v, err := d.Float64()
		if err != nil {
			return mismatch(target, fmt.Sprintf("number %s out of range", d.Text))
		}
		n.set(v)
	case *Atom[bool]:
		if d.Kind != jfeed.True && d.Kind != jfeed.False {
			return mismatch(target, fmt.Sprintf("unexpected %v", d.Kind))
		}
		n.set(d.Bool())
	case *Atom[any]:
		v, err := d.Decode()
		if err != nil {
			return mismatch(target, err.Error())
		}
		n.set(v)
	default:
		return mismatch(target, fmt.Sprintf("unexpected %v", d.Kind))
	}
	return nil
}

// target resolves the node the next value applies to: the pending field of
// the innermost object, a fresh element of the innermost array, or the
// root when no container is open yet.
func (b *binder) target() (Node, error) {
	if len(b.stk) == 0 {
		return b.root, nil
	}
	f := &b.stk[len(b.stk)-1]
	if f.arr != nil {
		return f.arr.appendChild(), nil
	}
	n := f.pending
	if n == nil {
		panic("internal error: value with no pending field")
	}
	f.pending = nil
	return n, nil
}

// enterSkip maintains the skip bookkeeping for a Begin event, reporting
// whether the event belongs to skipped structure.
func (b *binder) enterSkip() bool {
	if b.skip > 0 {
		b.skip++
		return true
	}
	if b.skipNext {
		b.skipNext = false
		b.skip = 1
		return true
	}
	return false
}

func (b *binder) finishCapture(v any) {
	dst := b.cap.dst
	b.cap = nil
	dst.set(v)
}

func mismatch(n Node, msg string) error {
	return &jfeed.SchemaMismatchError{Path: n.Path(), Message: msg}
}

// A capture accumulates one complete JSON value of arbitrary shape into
// generic Go values for an Atom[any] target: objects become
// map[string]any, arrays []any, and scalars their decoded forms.
type capture struct {
	dst *Atom[any]
	stk []*capFrame
	sb  strings.Builder
}

// A capFrame is one open container in a capture. An object frame has a
// non-nil obj; otherwise the frame is an array.
type capFrame struct {
	obj map[string]any
	arr []any
	key string
}

func newCapture(dst *Atom[any]) *capture { return &capture{dst: dst} }

func (c *capture) top() *capFrame  { return c.stk[len(c.stk)-1] }
func (c *capture) beginObject()    { c.stk = append(c.stk, &capFrame{obj: map[string]any{}}) }
func (c *capture) beginArray()     { c.stk = append(c.stk, &capFrame{arr: []any{}}) }
func (c *capture) key(name string) { c.top().key = name }

func (c *capture) value(v any) (any, bool) { return c.attach(v) }

// attach delivers a completed value to the innermost open container, or
// reports that the capture itself is complete.
func (c *capture) attach(v any) (any, bool) {
	if len(c.stk) == 0 {
		return v, true
	}
	f := c.top()
	if f.obj != nil {
		f.obj[f.key] = v
	} else {
		f.arr = append(f.arr, v)
	}
	return nil, false
}

func (c *capture) endObject() (any, bool) {
	f := c.top()
	c.stk = c.stk[:len(c.stk)-1]
	return c.attach(f.obj)
}

func (c *capture) endArray() (any, bool) {
	f := c.top()
	c.stk = c.stk[:len(c.stk)-1]
	return c.attach(f.arr)
}

func (c *capture) stringChunk(text string, final bool) (any, bool) {
	c.sb.WriteString(text)
	if !final {
		return nil, false
	}
	s := c.sb.String()
	c.sb.Reset()
	return c.attach(s)
}
