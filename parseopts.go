package safecalc

import (
	"strconv"
	"unicode"
)

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	eofopt   string
	depthopt int
)

// DefaultMaxDepth is the nesting depth at which Parse gives up unless
// MaxDepth says otherwise. It matches the parenthesis nesting limit of the
// CPython tokenizer.
const DefaultMaxDepth = 200

// parsectx holds general data for parsing.
type parsectx struct {
	// names is the set of names that have been seen this parse.
	names map[string]bool
	// wseof is a string containing the whitespace characters that trigger an
	// EOF token from the lexer.
	wseof string
	// depth is the current nesting depth.
	depth int
	// maxdepth bounds depth. Zero or negative means unbounded.
	maxdepth int
}

// enter increases the nesting depth, failing if it exceeds the maximum. Each
// successful enter must be paired with a leave.
func (p *parsectx) enter(tok lexToken) error {
	p.depth++
	if p.maxdepth > 0 && p.depth > p.maxdepth {
		p.depth--
		return &Error{Col: tok.pos, Msg: "expression nested more than " + strconv.Itoa(p.maxdepth) + " levels deep"}
	}
	return nil
}

func (p *parsectx) leave() {
	p.depth--
}

// StopOn tells the parser to treat a list of whitespace characters as ending
// the expression. Whitespace does not end an expression where a term is
// expected, e.g. at the beginning of an expression or following an operator
// or open bracket. Commas and semicolons can never end an expression;
// passing them panics.
//
// StopOn overrides the effect of any previous StopOn in the parsing options.
// With no arguments, StopOn produces the default termination behavior, which
// is to parse to EOF.
func StopOn(chars ...rune) ParseOption {
	v := make([]rune, 0, len(chars))
	have := func(r rune) bool {
		for _, c := range v {
			if r == c {
				return true
			}
		}
		return false
	}
	for _, r := range chars {
		if !unicode.IsSpace(r) {
			panic("safecalc: cannot stop on " + strconv.QuoteRune(r))
		}
		if have(r) {
			continue
		}
		v = append(v, r)
	}
	return eofopt(v)
}

func (o eofopt) parseOption(p parsectx) parsectx {
	p.wseof = string(o)
	return p
}

// MaxDepth bounds how deeply brackets, calls, and unary or right-associative
// operators may nest. Flat chains such as 1+1+...+1 do not count toward the
// depth. A bound of zero or less disables the check.
func MaxDepth(n int) ParseOption {
	return depthopt(n)
}

func (o depthopt) parseOption(p parsectx) parsectx {
	p.maxdepth = int(o)
	return p
}
