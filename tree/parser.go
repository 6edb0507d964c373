// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package tree

import (
	"errors"

	"github.com/creachadair/jfeed"
)

// A Parser consumes chunks of JSON text and populates a typed node tree,
// firing node subscriptions as values arrive. A Parser owns its tree
// exclusively and is not safe for concurrent use without external
// synchronization.
type Parser struct {
	root    *Object
	st      *jfeed.Stream
	b       *binder
	pushing bool
	closed  bool
	failed  bool
}

// Open constructs the node tree described by root, which must be an
// object type, and returns a Parser ready to receive input. The tree is
// fully built before any input arrives (array elements excepted, which
// are created as the input opens them), so subscriptions can be
// registered on any declared node up front.
func Open(root Type) (*Parser, error) {
	if root.kind != kindObject {
		return nil, errors.New("root type must be an object")
	}
	if err := root.check(); err != nil {
		return nil, err
	}
	obj := newNode(root, "", nil).(*Object)
	b := &binder{root: obj}
	return &Parser{root: obj, st: jfeed.NewStream(b), b: b}, nil
}

// Root returns the root object of the parser's tree.
func (p *Parser) Root() *Object { return p.root }

// StrictKeys configures whether object keys not declared in the schema
// are reported as schema mismatches (true) or skipped structurally along
// with their values (false, the default).
func (p *Parser) StrictKeys(ok bool) { p.b.strict = ok }

// AllowComments configures the parser to accept (true) or reject (false)
// JavaScript-style comments in the input. Comments are discarded.
func (p *Parser) AllowComments(ok bool) { p.st.AllowComments(ok) }

// AllowTrailingCommas configures the parser to allow (true) or reject
// (false) trailing commas in objects and arrays.
func (p *Parser) AllowTrailingCommas(ok bool) { p.st.AllowTrailingCommas(ok) }

// Push delivers the next chunk of input text, which may be split at any
// byte position. Node subscriptions fire synchronously, in document
// order, before Push returns; a panic out of a subscriber propagates to
// the caller of Push with the tree retaining all mutations already
// applied.
//
// Push reports a *jfeed.ParseError for malformed JSON, a
// *jfeed.SchemaMismatchError when the input shape disagrees with the
// declared tree, and a *jfeed.InvalidStateError when the parser is
// closed, has already failed, or Push is called reentrantly from a
// subscriber. Subscriptions already delivered are never retracted,
// including those delivered by a failing call.
func (p *Parser) Push(chunk string) error {
	if err := p.ready("push"); err != nil {
		return err
	}
	p.pushing = true
	defer func() { p.pushing = false }()
	if err := p.st.Push(chunk); err != nil {
		p.failed = true
		return err
	}
	return nil
}

// Close declares the end of the input and finalizes the tree, delivering
// any events a pending literal was withholding. If the root object has
// not completed, Close reports a *jfeed.TruncatedInputError naming the
// deepest incomplete path: a stream that never sends its closing brace is
// a caller error, not success.
//
// Close is idempotent. Closing a parser whose Push already reported an
// error returns nil; the failure was already delivered.
func (p *Parser) Close() error {
	if p.pushing {
		return &jfeed.InvalidStateError{Message: "close during push"}
	}
	if p.closed {
		return nil
	}
	p.closed = true
	if p.failed {
		return nil
	}

	p.pushing = true
	defer func() { p.pushing = false }()
	err := p.st.End()
	var trunc *jfeed.TruncatedInputError
	if errors.As(err, &trunc) {
		return &jfeed.TruncatedInputError{Path: deepestIncomplete(p.root)}
	} else if err != nil {
		return err
	}
	if p.root.State() != Complete {
		return &jfeed.TruncatedInputError{Path: deepestIncomplete(p.root)}
	}
	return nil
}

func (p *Parser) ready(op string) error {
	if p.pushing {
		return &jfeed.InvalidStateError{Message: op + " during push"}
	}
	if p.closed {
		return &jfeed.InvalidStateError{Message: op + " after close"}
	}
	if p.failed {
		return &jfeed.InvalidStateError{Message: op + " after failure"}
	}
	return nil
}

// deepestIncomplete returns the path of the deepest incomplete node along
// the first incomplete branch of the tree, in schema order. A node that
// never received input reports its own path rather than descending.
func deepestIncomplete(n Node) string {
	for {
		if n.State() == Pending {
			return n.Path()
		}
		switch t := n.(type) {
		case *Object:
			var next Node
			for _, name := range t.names {
				if c := t.fields[name]; c.State() != Complete {
					next = c
					break
				}
			}
			if next == nil {
				return t.Path() // fields done, only the "}" is missing
			}
			n = next
		case *Array:
			if k := len(t.vals); k > 0 && t.vals[k-1].State() != Complete {
				n = t.vals[k-1]
				continue
			}
			return t.Path()
		default:
			return n.Path() // a string mid-stream
		}
	}
}
