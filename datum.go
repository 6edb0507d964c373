// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jfeed

import (
	"fmt"
	"strconv"
)

// A Datum is a decoded scalar value reported by a Stream. Its kind is one
// of Integer, Number, True, False, or Null. String values are not reported
// as data, since a string is delivered incrementally via StringChunk.
type Datum struct {
	Kind Token  // the token type of the value
	Text string // the literal text of the value
}

// Int64 returns the value as an int64. It reports an error if the kind is
// not Integer or the value does not fit.
func (d Datum) Int64() (int64, error) {
	if d.Kind != Integer {
		return 0, fmt.Errorf("not an integer: %v", d.Kind)
	}
	return strconv.ParseInt(d.Text, 10, 64)
}

// Float64 returns the value as a float64. Integers are widened.
func (d Datum) Float64() (float64, error) {
	if d.Kind != Integer && d.Kind != Number {
		return 0, fmt.Errorf("not a number: %v", d.Kind)
	}
	return strconv.ParseFloat(d.Text, 64)
}

// Bool reports whether the value is the constant true.
func (d Datum) Bool() bool { return d.Kind == True }

// IsNull reports whether the value is the constant null.
func (d Datum) IsNull() bool { return d.Kind == Null }

// Decode returns the value as a generic Go value: int64 for Integer
// (float64 if the value does not fit in an int64), float64 for Number,
// bool for True and False, and nil for Null.
func (d Datum) Decode() (any, error) {
	switch d.Kind {
	case Integer:
		if v, err := strconv.ParseInt(d.Text, 10, 64); err == nil {
			return v, nil
		}
		return strconv.ParseFloat(d.Text, 64)
	case Number:
		return strconv.ParseFloat(d.Text, 64)
	case True:
		return true, nil
	case False:
		return false, nil
	case Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("not a value: %v", d.Kind)
	}
}
