// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package tree implements typed, observable value trees that populate
// incrementally from a stream of JSON text.
//
// A tree is declared up front as a Type, an ordered collection of named,
// typed fields. Open builds the corresponding node tree and returns a
// Parser that feeds it:
//
//	p, err := tree.Open(tree.ObjectOf(
//	   tree.Field{Name: "role", Type: tree.Text()},
//	   tree.Field{Name: "content", Type: tree.Text()},
//	   tree.Field{Name: "count", Type: tree.Int()},
//	))
//
// Every declared node exists, in the Pending state, before any input
// arrives, so subscriptions can be registered ahead of the data:
//
//	content := p.Root().Field("content").(*tree.String)
//	content.OnAppend(func(s string) { fmt.Print(s) })
//	content.OnComplete(func(s string) { fmt.Println() })
//
// As chunks are pushed, each node accumulates its value and notifies its
// subscribers synchronously, in document order. Append subscribers observe
// incremental growth (new substrings of a string, new elements of an
// array); complete subscribers fire exactly once, when a node's value is
// fully known.
package tree

import "fmt"

type kind byte

const (
	kindInvalid kind = iota
	kindText         // a string, streamed incrementally
	kindInt          // an integer
	kindFloat        // a floating-point number
	kindBool         // a Boolean constant
	kindAny          // one JSON value of any shape, captured whole
	kindObject       // an object with declared fields
	kindArray        // an array of uniformly-typed elements
)

// A Type describes the shape of a node in a tree.
type Type struct {
	kind   kind
	fields []Field
	elem   *Type
}

// A Field names a single member of an object type. Field order is
// preserved in the constructed tree.
type Field struct {
	Name string
	Type Type
}

// Text describes a string node whose value streams incrementally.
func Text() Type { return Type{kind: kindText} }

// Int describes an integer-valued node, realized as Atom[int64].
func Int() Type { return Type{kind: kindInt} }

// Float describes a floating-point node, realized as Atom[float64].
// Integer input is accepted and widened.
func Float() Type { return Type{kind: kindFloat} }

// Bool describes a Boolean node, realized as Atom[bool].
func Bool() Type { return Type{kind: kindBool} }

// Any describes a node accepting one JSON value of any shape, realized as
// Atom[any]. The value is decoded into generic Go values (map[string]any,
// []any, int64, float64, string, bool, nil) and assigned once the whole
// value has arrived; no partial content is observable.
func Any() Type { return Type{kind: kindAny} }

// ObjectOf describes an object with the given fields.
func ObjectOf(fields ...Field) Type { return Type{kind: kindObject, fields: fields} }

// ArrayOf describes an array whose elements all have the given type.
func ArrayOf(elem Type) Type { return Type{kind: kindArray, elem: &elem} }

// check verifies that t is a well-formed type description.
func (t Type) check() error {
	switch t.kind {
	case kindText, kindInt, kindFloat, kindBool, kindAny:
		return nil
	case kindObject:
		seen := make(map[string]bool, len(t.fields))
		for _, f := range t.fields {
			if f.Name == "" {
				return fmt.Errorf("object field with empty name")
			} else if seen[f.Name] {
				return fmt.Errorf("duplicate field name %q", f.Name)
			}
			seen[f.Name] = true
			if err := f.Type.check(); err != nil {
				return err
			}
		}
		return nil
	case kindArray:
		return t.elem.check()
	default:
		return fmt.Errorf("invalid type")
	}
}
