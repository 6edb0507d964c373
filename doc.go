// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

// Package jfeed implements an incremental, push-oriented JSON scanner and
// stream parser. Input arrives in chunks of text that need not align with
// any token boundary -- a string may be split in the middle of an escape
// sequence, a number in the middle of its digits, an object between any
// two of its members -- and tokens are reported as soon as each is
// unambiguously determined from the input seen so far.
//
// # Scanning
//
// The Scanner type implements a push lexer for JSON. Feed it chunks of
// text and iterate over the tokens each chunk made available:
//
//	sc := jfeed.NewScanner()
//	for chunk := range source {
//	   if err := sc.Feed(chunk); err != nil {
//	      log.Fatalf("Scanning failed: %v", err)
//	   }
//	   for sc.Next() {
//	      log.Printf("Next token: %v", sc.Token())
//	   }
//	}
//
// A partial literal left behind by a chunk is buffered and resumed by the
// next call to Feed. Because a numeric or name literal is only bounded by
// the input that follows it (4 could still become 42, tru could still
// become true), such a literal is withheld until a delimiter arrives or
// End declares the input finished. String content is the exception: it is
// reported incrementally, as StringPart tokens holding whatever content is
// already fully decoded, followed by a String token at the closing quote.
//
// # Streaming
//
// The Stream type layers grammar over the Scanner, validating the
// structure of the input across chunk boundaries and delivering events to
// a Handler in document order:
//
//	st := jfeed.NewStream(handler)
//	for chunk := range source {
//	   if err := st.Push(chunk); err != nil {
//	      log.Fatalf("Parse failed: %v", err)
//	   }
//	}
//	if err := st.End(); err != nil {
//	   log.Fatalf("Input truncated: %v", err)
//	}
//
// The methods of a Handler correspond to the syntax of JSON values:
//
//	JSON type  | Methods                   | Description
//	---------- | ------------------------- | ---------------------------------
//	object     | BeginObject, EndObject    | { ... }
//	array      | BeginArray, EndArray      | [ ... ]
//	member     | ObjectKey                 | "key":
//	string     | StringChunk               | one call per available piece
//	value      | Value                     | true, false, null, number
//
// The stream ensures that Begin and End events are correctly paired, that
// keys are delivered whole even when split across chunks, and that exactly
// one top-level value is parsed.
//
// Typed, observable trees that populate from a stream are provided by the
// tree subpackage.
package jfeed
