package safecalc

import (
	"strconv"
)

// Error is the error for every rejected expression. Syntax errors, names and
// operators outside the allow-list, and arithmetic failures such as division
// by zero are all reported as *Error; the message says which.
type Error struct {
	// Col is the 1-based rune column of the token that caused the error, or 0
	// if the error has no position, e.g. when the final result is rejected.
	Col int
	// Msg describes what was rejected.
	Msg string
	// Err is the underlying cause, if any. For example, math/big reports
	// undefined operations with big.ErrNaN.
	Err error
}

func (err *Error) Error() string {
	s := "invalid expression: "
	if err.Col > 0 {
		s += strconv.Itoa(err.Col) + ": "
	}
	s += err.Msg
	if err.Err != nil {
		s += ": " + err.Err.Error()
	}
	return s
}

// Pos returns the position of the error as the number of runes up to and
// including the start of the token that caused the error, or 0 if unknown.
func (err *Error) Pos() int {
	return err.Col
}

func (err *Error) Unwrap() error {
	return err.Err
}

func operatorError(tok lexToken, unary bool) error {
	s := "binary"
	if unary {
		s = "unary"
	}
	switch tok.text {
	case "=", ":=", "+=", "-=", "*=", "/=", "//=", "%=", "**=", "@=", "&=", "|=", "^=", "<<=", ">>=":
		return &Error{Col: tok.pos, Msg: "assignment " + strconv.Quote(tok.text) + " is not an expression"}
	}
	return &Error{Col: tok.pos, Msg: s + " operator " + strconv.Quote(tok.text) + " is not allowed"}
}

func bracketError(col int, left, right string) error {
	if left == "" {
		return &Error{Col: col, Msg: "close bracket " + right + " with no open bracket"}
	}
	if right == "" {
		return &Error{Col: col, Msg: "open bracket " + left + " with no close bracket"}
	}
	return &Error{Col: col, Msg: "mismatched bracket: " + left + "expr" + right}
}

func separatorError(tok lexToken) error {
	if tok.text == ";" {
		return &Error{Col: tok.pos, Msg: "multiple statements are not allowed"}
	}
	return &Error{Col: tok.pos, Msg: "invalid occurrence of separator " + strconv.Quote(tok.text)}
}

func emptyError(col int, end string) error {
	if end == "" {
		if col <= 1 {
			return &Error{Col: col, Msg: "no expression"}
		}
		return &Error{Col: col, Msg: "no expression at end"}
	}
	return &Error{Col: col, Msg: "no expression up to " + strconv.Quote(end)}
}

// unexpected reports a token that cannot follow a complete term.
func unexpected(tok lexToken) error {
	switch tok.kind {
	case tokenDot:
		return &Error{Col: tok.pos, Msg: "attribute access is not allowed"}
	case tokenIdent:
		if isKeyword(tok.text) {
			return keywordError(tok)
		}
	}
	return &Error{Col: tok.pos, Msg: "unexpected " + describe(tok)}
}

func keywordError(tok lexToken) error {
	switch tok.text {
	case "True", "False", "None":
		return &Error{Col: tok.pos, Msg: "constant " + tok.text + " is not allowed"}
	}
	return &Error{Col: tok.pos, Msg: "keyword " + strconv.Quote(tok.text) + " is not allowed"}
}

func literalError(tok lexToken) error {
	switch tok.kind {
	case tokenImag:
		return &Error{Col: tok.pos, Msg: "imaginary literal " + tok.text + " is not allowed"}
	case tokenString:
		return &Error{Col: tok.pos, Msg: "string literal " + tok.text + " is not allowed"}
	default:
		panic("safecalc: literalError on " + tok.String())
	}
}

// describe names a token for error messages.
func describe(tok lexToken) string {
	switch tok.kind {
	case tokenNum:
		return "number " + tok.text
	case tokenIdent:
		return "name " + strconv.Quote(tok.text)
	case tokenEOF:
		return "end of expression"
	default:
		return strconv.Quote(tok.text)
	}
}

// evalError creates an error for a node that failed to evaluate.
func evalError(n *node, msg string, cause error) error {
	return &Error{Col: n.pos, Msg: msg, Err: cause}
}
