// Package safecalc evaluates arithmetic expressions from untrusted input.
//
// The syntax is the arithmetic subset of Python expressions: numbers, the
// binary operators + - * / % and **, unary + and -, parentheses, and calls
// to a closed set of named functions such as sqrt or sin. "-2 ** 2" is -4,
// and "2 ** 3 ** 2" is 512. Everything else, from attribute access and
// subscripts to string literals and comparisons, is rejected with an *Error
// before anything is computed.
//
// Names are only ever resolved through a Context, which holds the constants
// and functions an expression may use. The default context provides pi, e,
// tau, inf, and most of Python's math module. Hosts can add or remove names
// with context options, but an expression can never reach anything a context
// does not hold.
//
// Calculations are done with math/big at a configurable precision. Evaluate
// computes at the precision of float64, so "0.1 + 0.2" gives the same
// 0.30000000000000004 that float64 arithmetic does, while contexts default to
// DefaultPrec bits.
package safecalc
