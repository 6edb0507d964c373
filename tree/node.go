// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package tree

import (
	"fmt"
	"strings"
)

// State is the population state of a node. States advance monotonically;
// no transition ever reverses.
type State int

const (
	Pending   State = iota // no input has arrived for the node
	Streaming              // partial input has arrived
	Complete               // the value is fully known
)

var stateStr = [...]string{Pending: "pending", Streaming: "streaming", Complete: "complete"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateStr) {
		return "invalid"
	}
	return stateStr[s]
}

// A Node is one element of a typed tree. The concrete types of nodes are
// *String, *Atom[int64], *Atom[float64], *Atom[bool], *Atom[any],
// *Object, and *Array.
type Node interface {
	// State reports the population state of the node.
	State() State

	// Path reports the location of the node in its tree, for example
	// "items[2].name". The root object has an empty path.
	Path() string

	isNode()
}

// A Sub is a handle to a subscription on a node. Cancelling it removes the
// handler; cancellation is optional and idempotent.
type Sub struct {
	cancel func()
}

// Cancel removes the subscription. A cancelled handler is never invoked
// again; handlers already invoked are unaffected.
func (s *Sub) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// subs is an ordered list of subscribers receiving a T payload.
type subs[T any] struct {
	fns []func(T)
}

func (s *subs[T]) add(f func(T)) *Sub {
	s.fns = append(s.fns, f)
	i := len(s.fns) - 1
	return &Sub{cancel: func() { s.fns[i] = nil }}
}

func (s *subs[T]) fire(v T) {
	for _, f := range s.fns {
		if f != nil {
			f(v)
		}
	}
}

// base carries the state common to all node variants.
type base struct {
	state  State
	path   string
	commit func() // parent notification hook, invoked after completion
}

func (b *base) State() State { return b.state }
func (b *base) Path() string { return b.path }
func (*base) isNode()        {}

// finish transitions the node to Complete. Completing a node twice is an
// invariant violation: the binder guarantees single delivery.
func (b *base) finish() {
	if b.state == Complete {
		panic(fmt.Sprintf("internal error: node %q completed twice", b.path))
	}
	b.state = Complete
}

func (b *base) committed() {
	if b.commit != nil {
		b.commit()
	}
}

// A String is a text node whose value accumulates incrementally. Append
// subscribers receive each newly arrived substring, never the cumulative
// text; complete subscribers receive the final text exactly once, when the
// closing quote has been seen.
type String struct {
	base
	sb   strings.Builder
	null bool
	app  subs[string]
	comp subs[string]
}

// Value returns the text accumulated so far. Until the node is Complete,
// the result is a prefix of the final text.
func (s *String) Value() string { return s.sb.String() }

// IsNull reports whether the node was completed by a JSON null.
func (s *String) IsNull() bool { return s.null }

// OnAppend registers f to receive each newly arrived substring.
func (s *String) OnAppend(f func(string)) *Sub { return s.app.add(f) }

// OnComplete registers f to receive the final text, exactly once.
func (s *String) OnComplete(f func(string)) *Sub { return s.comp.add(f) }

func (s *String) update(text string) {
	if s.state == Pending {
		s.state = Streaming
	}
	if text == "" {
		return
	}
	s.sb.WriteString(text)
	s.app.fire(text)
}

func (s *String) complete() {
	s.finish()
	s.comp.fire(s.sb.String())
	s.committed()
}

func (s *String) completeNull() {
	s.null = true
	s.finish()
	s.comp.fire("")
	s.committed()
}

// An Atom is a scalar node whose value is grammatically atomic: no
// meaningful prefix of it exists, so it holds no value at all until its
// literal's boundary is unambiguous, then transitions directly from
// Pending to Complete. The type parameter is int64, float64, bool, or any
// for opaque values captured whole.
type Atom[T any] struct {
	base
	val  T
	null bool
	comp subs[T]
}

// Value returns the assigned value. ok is false until the node is
// Complete; no partial or default value is ever returned silently.
func (a *Atom[T]) Value() (v T, ok bool) {
	if a.state != Complete {
		return v, false
	}
	return a.val, true
}

// IsNull reports whether the node was completed by a JSON null, in which
// case its value is the zero of T.
func (a *Atom[T]) IsNull() bool { return a.null }

// OnComplete registers f to receive the decoded value, exactly once.
// Atoms have no append subscribers: there is nothing partial to observe.
func (a *Atom[T]) OnComplete(f func(T)) *Sub { return a.comp.add(f) }

func (a *Atom[T]) set(v T) {
	a.finish()
	a.val = v
	a.comp.fire(v)
	a.committed()
}

func (a *Atom[T]) setNull() {
	a.null = true
	a.finish()
	a.comp.fire(a.val)
	a.committed()
}

// An Object is a fixed collection of named child nodes established by its
// schema. Keys in the input that are not declared never add children. An
// Object completes once every declared field is Complete and its closing
// brace has been seen; both conditions are required.
type Object struct {
	base
	names  []string
	fields map[string]Node
	closed bool // the matching "}" has been seen
	comp   subs[*Object]
}

// Field returns the child node for the named field, or nil if the name is
// not part of the object's schema.
func (o *Object) Field(name string) Node { return o.fields[name] }

// Fields returns the declared field names in schema order.
func (o *Object) Fields() []string { return append([]string(nil), o.names...) }

// OnComplete registers f to be invoked once, when every declared field has
// completed and the object's closing brace has been seen.
func (o *Object) OnComplete(f func(*Object)) *Sub { return o.comp.add(f) }

func (o *Object) begin() {
	if o.state == Pending {
		o.state = Streaming
	}
}

func (o *Object) end() { o.closed = true; o.check() }

// childDone re-evaluates completion whenever a direct child completes.
func (o *Object) childDone() { o.check() }

func (o *Object) check() {
	if !o.closed || o.state == Complete {
		return
	}
	for _, name := range o.names {
		if o.fields[name].State() != Complete {
			return
		}
	}
	o.finish()
	o.comp.fire(o)
	o.committed()
}

// An Array is an ordered sequence of child nodes sharing one declared
// element type. Children are created as elements arrive and are never
// removed or reordered, so an element's identity is stable once observed.
// Append subscribers receive each new child before the child has received
// any of its own input; the array completes at its closing bracket.
type Array struct {
	base
	elem Type
	vals []Node
	app  subs[Node]
	comp subs[*Array]
}

// Len returns the number of elements seen so far.
func (a *Array) Len() int { return len(a.vals) }

// At returns the element at offset i. It panics if i is out of range.
func (a *Array) At(i int) Node { return a.vals[i] }

// Nodes returns the elements seen so far, in arrival order.
func (a *Array) Nodes() []Node { return append([]Node(nil), a.vals...) }

// OnAppend registers f to receive each newly created element. The element
// is not necessarily complete when delivered.
func (a *Array) OnAppend(f func(Node)) *Sub { return a.app.add(f) }

// OnComplete registers f to be invoked once, at the array's closing
// bracket.
func (a *Array) OnComplete(f func(*Array)) *Sub { return a.comp.add(f) }

func (a *Array) begin() {
	if a.state == Pending {
		a.state = Streaming
	}
}

func (a *Array) appendChild() Node {
	n := newNode(a.elem, fmt.Sprintf("%s[%d]", a.path, len(a.vals)), nil)
	a.vals = append(a.vals, n)
	a.app.fire(n)
	return n
}

func (a *Array) end() {
	a.finish()
	a.comp.fire(a)
	a.committed()
}

// newNode constructs the node tree described by t. Object fields are built
// eagerly, so every declared node exists before input arrives; array
// elements are the exception, created one at a time as the input opens
// them.
func newNode(t Type, path string, commit func()) Node {
	switch t.kind {
	case kindText:
		return &String{base: base{path: path, commit: commit}}
	case kindInt:
		return &Atom[int64]{base: base{path: path, commit: commit}}
	case kindFloat:
		return &Atom[float64]{base: base{path: path, commit: commit}}
	case kindBool:
		return &Atom[bool]{base: base{path: path, commit: commit}}
	case kindAny:
		return &Atom[any]{base: base{path: path, commit: commit}}
	case kindObject:
		o := &Object{
			base:   base{path: path, commit: commit},
			fields: make(map[string]Node, len(t.fields)),
		}
		for _, f := range t.fields {
			o.names = append(o.names, f.Name)
			o.fields[f.Name] = newNode(f.Type, joinPath(path, f.Name), o.childDone)
		}
		return o
	case kindArray:
		return &Array{base: base{path: path, commit: commit}, elem: *t.elem}
	}
	panic(fmt.Sprintf("internal error: invalid node kind %d", t.kind))
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
