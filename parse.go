package safecalc

import (
	"io"
	"sort"
	"strings"
)

// Expr    = Tuple
// Tuple   = Sum { ',' Sum } [ ',' ]
// Sum     = Product { ('+' | '-') Product }
// Product = Unary { ('*' | '/' | '%') Unary }
// Unary   = ('+' | '-') Unary | Power
// Power   = Primary [ '**' Unary ]
// Primary = num | name | Call | '(' [ Expr ] ')'
// Call    = name '(' [ Sum { ',' Sum } [ ',' ] ] ')'

// Expr is a parsed expression that can be evaluated with a context. An Expr
// is immutable and may be evaluated concurrently.
type Expr struct {
	// n is the root node of the expression.
	n *node
	// names is the sorted list of names used in the expression.
	names []string
}

// Parse parses a single expression so it can be evaluated with a context.
// The given options are applied in order. Parse only checks syntax; whether
// the names in the expression exist is decided when it is evaluated.
func Parse(src io.RuneScanner, opts ...ParseOption) (*Expr, error) {
	scan := lex(src)
	p := parsectx{
		names:    make(map[string]bool),
		maxdepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	n, err := parseexpr(scan, &p, true)
	if err != nil {
		return nil, err
	}
	tok := scan.must()
	if tok.kind != tokenEOF {
		return nil, itShouldNotHaveEndedThisWay(tok, -1)
	}
	if n == nil {
		return nil, emptyError(tok.pos, "")
	}
	ex := Expr{
		n:     n,
		names: make([]string, 0, len(p.names)),
	}
	for k := range p.names {
		ex.names = append(ex.names, k)
	}
	sort.Strings(ex.names)
	return &ex, nil
}

// ParseString is a shortcut to parse an expression from a string.
func ParseString(src string, opts ...ParseOption) (*Expr, error) {
	return Parse(strings.NewReader(src), opts...)
}

// parseexpr parses a term or, if tuple is true, a comma-separated tuple of
// terms. Like parseterm, it pushes the last token it scans, and an empty
// input gives a nil node with no error.
func parseexpr(scan *lexer, p *parsectx, tuple bool) (*node, error) {
	first, err := parseterm(scan, p, exprprec)
	if err != nil {
		return nil, err
	}
	tok := scan.must()
	if !tuple || tok.kind != tokenSep || tok.text != "," {
		scan.push(tok)
		return first, nil
	}
	if first == nil {
		return nil, separatorError(tok)
	}
	t := &node{kind: nodeTuple, pos: first.pos, right: &node{kind: nodeArg, pos: first.pos, left: first}}
	l := t.right
	for {
		n, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		tok := scan.must()
		if n == nil {
			// Trailing comma, as in (1,).
			if tok.kind == tokenSep {
				return nil, separatorError(tok)
			}
			scan.push(tok)
			return t, nil
		}
		l.right = &node{kind: nodeArg, pos: n.pos, left: n}
		l = l.right
		if tok.kind != tokenSep || tok.text != "," {
			scan.push(tok)
			return t, nil
		}
	}
}

// parseterm parses a single term. If there is no error, then parseterm pushes
// the last token it scans, including EOF. If the input is an empty
// subexpression, the result is nil with no error; callers must create an error
// in contexts where empty subexpressions are illegal.
func parseterm(scan *lexer, p *parsectx, until operator) (*node, error) {
	if err := p.enter(lexToken{pos: scan.rune}); err != nil {
		return nil, err
	}
	defer p.leave()
	n, err := parselhs(scan, p, until)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	for {
		tok, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokenOp:
			prec := binop(tok.text)
			if prec.op == nodeNone {
				return nil, operatorError(tok, false)
			}
			if !prec.moreBinding(until) {
				scan.push(tok)
				return n, nil
			}
			rhs, err := parseoperand(scan, p, prec)
			if err != nil {
				return nil, err
			}
			n = &node{kind: prec.op, pos: tok.pos, left: n, right: rhs}
		case tokenOpen:
			switch tok.text {
			case "(":
				// Names followed by arguments are handled in parselhs, so this
				// is something like (f)(x) or f(x)(y).
				return nil, &Error{Col: tok.pos, Msg: "only calls to bare names are allowed"}
			case "[":
				return nil, &Error{Col: tok.pos, Msg: "subscripts are not allowed"}
			default:
				return nil, unexpected(tok)
			}
		case tokenClose, tokenSep, tokenEOF:
			// End of expression.
			scan.push(tok)
			return n, nil
		default:
			return nil, unexpected(tok)
		}
	}
}

// parseoperand parses the operand of an operator, which must not be empty.
func parseoperand(scan *lexer, p *parsectx, prec operator) (*node, error) {
	n, err := parseterm(scan, p, prec)
	if err != nil {
		return nil, err
	}
	if n == nil {
		end := scan.must()
		return nil, emptyError(end.pos, end.text)
	}
	return n, nil
}

// parselhs parses the first component of a term. I.e., operators are unary,
// any encountered token must be valid as the start of a subexpression, and
// whitespace normally lexed as EOF is ignored.
func parselhs(scan *lexer, p *parsectx, until operator) (*node, error) {
	// Don't use EOF whitespace for LHS.
	tok, err := scan.next("")
	if err != nil {
		return nil, err
	}
	var n *node
	switch tok.kind {
	case tokenNum:
		n = &node{kind: nodeNum, name: tok.text, pos: tok.pos}
	case tokenImag, tokenString:
		return nil, literalError(tok)
	case tokenIdent:
		if isKeyword(tok.text) {
			return nil, keywordError(tok)
		}
		p.names[tok.text] = true
		// We respect whitespace here so that pi\n(x) doesn't string together
		// expressions.
		open, err := scan.next(p.wseof)
		if err != nil {
			return nil, err
		}
		if open.kind != tokenOpen || open.text != "(" {
			scan.push(open)
			n = &node{kind: nodeName, name: tok.text, pos: tok.pos}
			break
		}
		args, err := parseargs(scan, p)
		if err != nil {
			return nil, err
		}
		n = &node{kind: nodeCall, name: tok.text, pos: tok.pos, right: args}
	case tokenOp:
		// unary operator
		prec := unop(tok.text)
		if prec.op == nodeNone {
			return nil, operatorError(tok, true)
		}
		if !prec.moreBinding(until) {
			// x**-y -> x**(-y)
			// Just use the new operator's precedence to simplify.
			prec.prec, prec.right = until.prec, until.right
		}
		rhs, err := parseoperand(scan, p, prec)
		if err != nil {
			return nil, err
		}
		n = &node{kind: prec.op, pos: tok.pos, left: rhs}
	case tokenOpen:
		switch tok.text {
		case "(":
			rhs, err := parseexpr(scan, p, true)
			if err != nil {
				return nil, err
			}
			end := scan.must()
			if end.kind != tokenClose || end.text != ")" {
				return nil, itShouldNotHaveEndedThisWay(end, 0)
			}
			if rhs == nil {
				// () is the empty tuple.
				rhs = &node{kind: nodeTuple, pos: tok.pos}
			}
			n = rhs
		case "[":
			return nil, &Error{Col: tok.pos, Msg: "list displays are not allowed"}
		default:
			return nil, &Error{Col: tok.pos, Msg: "dict and set displays are not allowed"}
		}
	case tokenClose, tokenSep, tokenEOF:
		// Let the caller decide what to do.
		scan.push(tok)
		return nil, nil
	default:
		return nil, unexpected(tok)
	}
	return n, nil
}

// parseargs parses a parenthesized list of zero or more positional arguments
// following the open bracket.
func parseargs(scan *lexer, p *parsectx) (*node, error) {
	var n node
	l := &n
	for {
		rhs, err := parseterm(scan, p, exprprec)
		if err != nil {
			return nil, err
		}
		end := scan.must()
		switch {
		case end.kind == tokenClose && end.text == ")":
			// f(), f(a), and f(a,) are all fine.
			if rhs != nil {
				l.right = &node{kind: nodeArg, pos: rhs.pos, left: rhs}
			}
			return n.right, nil
		case end.kind == tokenSep && end.text == ",":
			if rhs == nil {
				return nil, separatorError(end)
			}
			l.right = &node{kind: nodeArg, pos: rhs.pos, left: rhs}
			l = l.right
		default:
			return nil, itShouldNotHaveEndedThisWay(end, 0)
		}
	}
}

// leftbracket gets the opening bracket matching right. If right is no bracket,
// then the result is the empty string.
func leftbracket(right int) string {
	if right == -1 {
		return ""
	}
	return openbrackets[right]
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. match is the bracket index that the
// expression should have matched, or -1 if none.
func itShouldNotHaveEndedThisWay(tok lexToken, match int) error {
	switch tok.kind {
	case tokenEOF:
		// Unexpected EOF implies an open bracket that was not closed.
		return bracketError(tok.pos, leftbracket(match), "")
	case tokenClose:
		// A bracket could be the wrong bracket for the opening brace or any
		// bracket at the end of an input.
		return bracketError(tok.pos, leftbracket(match), tok.text)
	case tokenSep:
		return separatorError(tok)
	default:
		panic("safecalc: it really should not have ended this way: " + tok.String())
	}
}

// Names returns the function and constant names used in the expression, in
// sorted order.
func (e *Expr) Names() []string {
	return append(([]string)(nil), e.names...)
}

// String creates a fully parenthesized representation of the parsed
// expression. The result parses to the same expression.
func (e *Expr) String() string {
	return e.n.String()
}

// keywords are the Python keywords that are not allowed in expressions.
var keywords = map[string]bool{
	"True": true, "False": true, "None": true,
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true,
}

func isKeyword(s string) bool {
	return keywords[s]
}

type operator struct {
	// prec is the precedence value. Higher is more binding.
	prec int8
	// right indicates right-associativity.
	right bool
	// op is the node kind to use when this operator is selected.
	op nodeKind
}

func (p operator) moreBinding(than operator) bool {
	if p.prec != than.prec {
		return p.prec > than.prec
	}
	return p.right
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of nodeNone.
func binop(text string) operator {
	switch text {
	case "+":
		return operator{1, false, nodeAdd}
	case "-":
		return operator{1, false, nodeSub}
	case "*":
		return operator{5, false, nodeMul}
	case "/":
		return operator{5, false, nodeDiv}
	case "%":
		return operator{5, false, nodeMod}
	case "**":
		return operator{15, true, nodePow}
	default:
		return operator{}
	}
}

// unop gets a unary operator for a token string. If there is no such unary
// operator, then the result has an op of nodeNone.
func unop(text string) operator {
	switch text {
	case "+":
		return operator{10, true, nodePos}
	case "-":
		return operator{10, true, nodeNeg}
	default:
		return operator{}
	}
}

// exprprec is the precedence required to parse an entire subexpression.
var exprprec = operator{-128, true, nodeNone}
