// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package tree_test

import (
	"fmt"
	"log"

	"github.com/creachadair/jfeed/tree"
)

func Example() {
	p, err := tree.Open(tree.ObjectOf(
		tree.Field{Name: "role", Type: tree.Text()},
		tree.Field{Name: "content", Type: tree.Text()},
		tree.Field{Name: "count", Type: tree.Int()},
	))
	if err != nil {
		log.Fatalf("Open: %v", err)
	}

	content := p.Root().Field("content").(*tree.String)
	content.OnAppend(func(s string) { fmt.Printf("piece: %q\n", s) })
	content.OnComplete(func(s string) { fmt.Printf("content: %q\n", s) })
	p.Root().Field("count").(*tree.Atom[int64]).OnComplete(func(v int64) {
		fmt.Println("count:", v)
	})

	// Chunks may split the input at any byte position.
	for _, chunk := range []string{
		`{"role":"assistant","content":"Hel`, `lo, world","count":`, `5}`,
	} {
		if err := p.Push(chunk); err != nil {
			log.Fatalf("Push: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		log.Fatalf("Close: %v", err)
	}

	// Output:
	// piece: "Hel"
	// piece: "lo, world"
	// content: "Hello, world"
	// count: 5
}
