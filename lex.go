package safecalc

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"
)

type lexToken struct {
	text string
	kind tokenKind
	pos  int
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenNum is an integer or real literal.
	tokenNum
	// tokenImag is an imaginary literal such as 2j. The parser rejects it.
	tokenImag
	// tokenString is a quoted string or bytes literal. The parser rejects it.
	tokenString
	// tokenIdent is a function, constant, or keyword name.
	tokenIdent
	// tokenOp is an operator, allowed or not.
	tokenOp
	// tokenOpen is an open bracket, e.g. (.
	tokenOpen
	// tokenClose is a close bracket, e.g. ).
	tokenClose
	// tokenSep is a comma or a semicolon.
	tokenSep
	// tokenDot is a period that does not begin a number.
	tokenDot
)

var tokenNames = [...]string{
	tokenNone:   "None",
	tokenEOF:    "EOF",
	tokenNum:    "Num",
	tokenImag:   "Imag",
	tokenString: "String",
	tokenIdent:  "Ident",
	tokenOp:     "Op",
	tokenOpen:   "Open",
	tokenClose:  "Close",
	tokenSep:    "Sep",
	tokenDot:    "Dot",
}

func (k tokenKind) String() string {
	if k < 0 || int(k) >= len(tokenNames) {
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
	return tokenNames[k]
}

// operators lists every operator the lexer recognizes, longest first so that
// scanning takes the longest match. Most of them are only recognized so that
// the parser can name them when it rejects them.
var operators = []string{
	"**=", "//=", ">>=", "<<=",
	"**", "//", "<<", ">>", "<=", ">=", "==", "!=", ":=", "->",
	"+=", "-=", "*=", "/=", "%=", "@=", "&=", "|=", "^=",
	"+", "-", "*", "/", "%", "@", "&", "|", "^", "~", "<", ">", "=", ":", "!",
}

// OpenBrackets and CloseBrackets contain the runes which group expressions.
// The parser checks that a bracket in byte position k in OpenBrackets is
// matched with the bracket in byte position k in CloseBrackets.
const (
	OpenBrackets  = "([{"
	CloseBrackets = ")]}"
)

func byteidcs(s string) []string {
	v := make([]string, len(s))
	for i, r := range s {
		v[i] = string(r)
	}
	return v
}

var (
	openbrackets  = byteidcs(OpenBrackets)
	closebrackets = byteidcs(CloseBrackets)
)

type lexer struct {
	src  io.RuneScanner
	buf  strings.Builder
	rune int
	// tok is the column of the token being scanned.
	tok  int
	p    lexToken
	eof  bool
}

func lex(src io.RuneScanner) *lexer {
	return &lexer{
		src:  src,
		rune: 1,
	}
}

// push unreads a token so that it is the next token returned from next. Panics
// if there is already a pushed token.
func (l *lexer) push(tok lexToken) {
	if l.p.kind != tokenNone {
		panic("safecalc: double push")
	}
	l.p = tok
}

// must scans the pushed token. Panics if there is no pushed token.
func (l *lexer) must() lexToken {
	tok := l.p
	if tok.kind == tokenNone {
		panic("safecalc: no pushed token")
	}
	l.p = lexToken{}
	return tok
}

// readRune reads a rune from the src and updates the lexer's position info.
func (l *lexer) readRune() (r rune, err error) {
	r, sz, err := l.src.ReadRune()
	if sz > 0 {
		l.rune++
	}
	return r, err
}

// unreadRune unreads a rune from the src and updates the lexer's position
// info. Panics if unreading returns an error.
func (l *lexer) unreadRune() {
	if err := l.src.UnreadRune(); err != nil {
		panic(err)
	}
	l.rune--
}

// peek returns the next rune without consuming it. At EOF, the result is -1.
func (l *lexer) peek() (rune, error) {
	r, err := l.readRune()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return -1, nil
		}
		return -1, err
	}
	l.unreadRune()
	return r, nil
}

// next scans the next token from the input. The first time EOF is encountered
// before any non-whitespace characters, the result is an EOF token with a nil
// error. Subsequent times, if the EOF token is not pushed, the result is an
// empty token with io.EOF. Whitespace runes in wseof are also treated as EOF.
func (l *lexer) next(wseof string) (lexToken, error) {
	if l.p.kind != tokenNone {
		tok := l.p
		l.p = lexToken{}
		return tok, nil
	}
	if l.eof {
		return lexToken{}, io.EOF
	}
	defer l.buf.Reset()
	tok := lexToken{pos: l.rune}
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				tok.kind = tokenEOF
				l.eof = true
				return tok, nil
			}
			return tok, err
		}
		l.tok = tok.pos
		switch {
		case unicode.IsSpace(r):
			if strings.ContainsRune(wseof, r) {
				tok.kind = tokenEOF
				l.eof = true
				return tok, nil
			}
			tok.pos++
			continue
		case r == '#':
			// Comment to end of line. The newline itself is scanned normally
			// so that it can still end the expression.
			if err := l.skipComment(); err != nil {
				return tok, err
			}
			tok.pos = l.rune
			continue
		case r == '\\':
			// Explicit line joining.
			nl, err := l.readRune()
			if err != nil && !errors.Is(err, io.EOF) {
				return tok, err
			}
			if nl != '\n' {
				l.buf.WriteRune(r)
				return tok, l.error("")
			}
			tok.pos = l.rune
			continue
		case '0' <= r && r <= '9':
			imag, err := l.scanNum(r)
			if err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenNum
			if imag {
				tok.kind = tokenImag
			}
			return tok, nil
		case r == '.':
			d, err := l.peek()
			if err != nil {
				return tok, err
			}
			if '0' <= d && d <= '9' {
				imag, err := l.scanNum(r)
				if err != nil {
					return tok, err
				}
				tok.text = l.buf.String()
				tok.kind = tokenNum
				if imag {
					tok.kind = tokenImag
				}
				return tok, nil
			}
			tok.text = "."
			tok.kind = tokenDot
			return tok, nil
		case r == '_', unicode.IsLetter(r):
			l.unreadRune()
			if err := l.scanIdent(); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenIdent
			q, err := l.peek()
			if err != nil {
				return tok, err
			}
			if (q == '\'' || q == '"') && isStringPrefix(tok.text) {
				q, _ := l.readRune()
				if err := l.scanString(q); err != nil {
					return tok, err
				}
				tok.text = l.buf.String()
				tok.kind = tokenString
			}
			return tok, nil
		case r == '\'', r == '"':
			if err := l.scanString(r); err != nil {
				return tok, err
			}
			tok.text = l.buf.String()
			tok.kind = tokenString
			return tok, nil
		case r == ',', r == ';':
			tok.text = string(r)
			tok.kind = tokenSep
			return tok, nil
		default:
			if k := strings.IndexRune(OpenBrackets, r); k >= 0 {
				tok.text = openbrackets[k]
				tok.kind = tokenOpen
				return tok, nil
			}
			if k := strings.IndexRune(CloseBrackets, r); k >= 0 {
				tok.text = closebrackets[k]
				tok.kind = tokenClose
				return tok, nil
			}
			op, err := l.scanOp(r)
			if err != nil {
				return tok, err
			}
			if op == "" {
				// Write the rune so that it shows up in the error message.
				l.buf.WriteRune(r)
				return tok, l.error("")
			}
			tok.text = op
			tok.kind = tokenOp
			return tok, nil
		}
	}
}

// scanOp scans the longest operator beginning with r, which has already been
// read. If r does not begin an operator, the result is the empty string.
// Every prefix of an operator is itself an operator, so one rune of lookahead
// suffices.
func (l *lexer) scanOp(r rune) (string, error) {
	s := string(r)
	if !isOperator(s) {
		return "", nil
	}
	for {
		p, err := l.peek()
		if err != nil {
			return "", err
		}
		if p < 0 || !isOperator(s+string(p)) {
			return s, nil
		}
		l.readRune()
		s += string(p)
	}
}

func isOperator(s string) bool {
	for _, op := range operators {
		if op == s {
			return true
		}
	}
	return false
}

// isStringPrefix reports whether an identifier directly followed by a quote
// is a string literal prefix.
func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "b", "r", "u", "f", "br", "rb", "fr", "rf":
		return true
	default:
		return false
	}
}

func (l *lexer) skipComment() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if r == '\n' {
			l.unreadRune()
			return nil
		}
	}
}

// scanNum scans a numeric literal beginning with r, which has already been
// read. The result is true if the literal has an imaginary suffix.
func (l *lexer) scanNum(r rune) (bool, error) {
	l.buf.WriteRune(r)
	if r == '0' {
		p, err := l.peek()
		if err != nil {
			return false, err
		}
		var digits string
		switch p {
		case 'x', 'X':
			digits = "0123456789abcdefABCDEF"
		case 'o', 'O':
			digits = "01234567"
		case 'b', 'B':
			digits = "01"
		}
		if digits != "" {
			l.readRune()
			l.buf.WriteRune(p)
			if err := l.scanDigits(digits, true); err != nil {
				return false, err
			}
			if l.buf.Len() == 2 {
				return false, l.error("number")
			}
			return false, l.checkNumEnd()
		}
	}
	frac := r == '.'
	if !frac {
		if err := l.scanDigits(decimal, false); err != nil {
			return false, err
		}
		p, err := l.peek()
		if err != nil {
			return false, err
		}
		if p == '.' {
			l.readRune()
			l.buf.WriteRune('.')
			frac = true
		}
	}
	if frac {
		p, err := l.peek()
		if err != nil {
			return false, err
		}
		if '0' <= p && p <= '9' {
			if err := l.scanDigits(decimal, false); err != nil {
				return false, err
			}
		}
	}
	exp := false
	p, err := l.peek()
	if err != nil {
		return false, err
	}
	if p == 'e' || p == 'E' {
		exp = true
		l.readRune()
		l.buf.WriteRune(p)
		s, err := l.peek()
		if err != nil {
			return false, err
		}
		if s == '+' || s == '-' {
			l.readRune()
			l.buf.WriteRune(s)
		}
		d, err := l.peek()
		if err != nil {
			return false, err
		}
		if d < '0' || d > '9' {
			return false, l.error("number")
		}
		if err := l.scanDigits(decimal, false); err != nil {
			return false, err
		}
	}
	// Leading zeros are only allowed in zero itself, as in Python.
	text := l.buf.String()
	if !frac && !exp && text[0] == '0' && strings.Trim(text, "0_") != "" {
		return false, l.error("number")
	}
	p, err = l.peek()
	if err != nil {
		return false, err
	}
	if p == 'j' || p == 'J' {
		l.readRune()
		l.buf.WriteRune(p)
		return true, l.checkNumEnd()
	}
	return false, l.checkNumEnd()
}

const decimal = "0123456789"

// scanDigits scans a run of digits with single underscores between them.
// If prefix is true, the run follows a base prefix, where an underscore may
// appear before the first digit.
func (l *lexer) scanDigits(digits string, prefix bool) error {
	prev := '0'
	if prefix {
		prev = 'p'
	}
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if r == '_' {
			if prev == '_' {
				l.buf.WriteRune(r)
				return l.error("number")
			}
		} else if !strings.ContainsRune(digits, r) {
			l.unreadRune()
			break
		}
		l.buf.WriteRune(r)
		prev = r
	}
	if prev == '_' {
		return l.error("number")
	}
	return nil
}

// checkNumEnd rejects a number immediately followed by an identifier rune,
// e.g. 1a or 0x1g.
func (l *lexer) checkNumEnd() error {
	p, err := l.peek()
	if err != nil {
		return err
	}
	if p == '_' || p == '.' || unicode.IsLetter(p) || unicode.IsDigit(p) {
		l.readRune()
		l.buf.WriteRune(p)
		return l.error("number")
	}
	return nil
}

func (l *lexer) scanIdent() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				// next unreads the rune that decides ident scanning before
				// calling scanIdent, so we have scanned at least one rune.
				return nil
			}
			return err
		}
		switch {
		case r == '_', unicode.IsLetter(r), unicode.IsDigit(r):
			l.buf.WriteRune(r)
		default:
			l.unreadRune()
			return nil
		}
	}
}

// scanString scans a quoted literal after its opening quote. The token text
// includes both quotes.
func (l *lexer) scanString(q rune) error {
	l.buf.WriteRune(q)
	esc := false
	for {
		r, err := l.readRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return l.error("string")
			}
			return err
		}
		l.buf.WriteRune(r)
		switch {
		case esc:
			esc = false
		case r == '\\':
			esc = true
		case r == q:
			return nil
		case r == '\n':
			return l.error("string")
		}
	}
}

func (l *lexer) error(kind string) error {
	kind += " token"
	if kind == " token" {
		kind = "token"
	}
	return &Error{
		Col: l.tok,
		Msg: "invalid " + kind + " " + strconv.Quote(l.buf.String()),
	}
}
