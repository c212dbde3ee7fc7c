// Package expr evaluates arithmetic expressions from untrusted input.
//
// Input is sanitized to digits, the four basic operators, decimal
// points, parentheses, and spaces before parsing; everything else is
// silently stripped. The evaluator is deliberately small: it backs the
// calculator cell and runs inside worker processes, so it must never
// panic on malformed input.
//
//	v, err := expr.Eval("2 * (3 + 4.5)")
//	// v == 15, err == nil
//	expr.Format(v) // "15"
package expr
