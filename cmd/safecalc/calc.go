package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/mohak72/safecalc"
	"go.uber.org/zap"
)

// samples are the expressions --demo evaluates.
var samples = []string{
	"2 + 3 * 4",
	"(1 + 2) ** 3",
	"sqrt(16)",
	"factorial(5)",
	"sin(pi/2)",
	"1 / 3",
}

const prompt = "expr> "

// calc evaluates expressions and prints their results.
type calc struct {
	ctx    *safecalc.Context
	parse  []safecalc.ParseOption
	verb   string
	echo   bool
	out    io.Writer
	logger *zap.Logger
}

// eval evaluates a parsed expression and prints the result or the error.
func (c *calc) eval(a *safecalc.Expr) {
	if c.echo {
		fmt.Fprintf(c.out, "%v : ", a)
	}
	start := time.Now()
	r, err := c.ctx.Float64(a)
	c.logger.Debug("evaluated",
		zap.Stringer("tree", a),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}
	fmt.Fprintf(c.out, c.verb, r)
}

// line parses and evaluates one complete expression.
func (c *calc) line(src string) {
	c.logger.Debug("parsing", zap.String("expr", src))
	a, err := safecalc.ParseString(src, c.parse...)
	if err != nil {
		c.logger.Debug("rejected", zap.String("expr", src), zap.Error(err))
		fmt.Fprintln(c.out, err)
		return
	}
	c.eval(a)
}

// demo evaluates the sample expressions.
func (c *calc) demo() {
	fmt.Fprintln(c.out, "Calculator demo - safe evaluator")
	for _, s := range samples {
		fmt.Fprintf(c.out, "%s = ", s)
		c.line(s)
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Interactive mode: type 'quit' to exit")
}

// repl prompts for expressions until the input ends or the user quits.
func (c *calc) repl(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, prompt)
		if !sc.Scan() {
			fmt.Fprintln(c.out)
			return sc.Err()
		}
		s := strings.TrimSpace(sc.Text())
		switch strings.ToLower(s) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}
		c.line(s)
	}
}

// stream evaluates newline-separated expressions read directly by the
// parser. An expression may continue onto the next line where an operand is
// still expected, as in "1 +" followed by "2".
func (c *calc) stream(r io.Reader) error {
	in := bufio.NewReader(r)
	opts := append([]safecalc.ParseOption{safecalc.StopOn('\n')}, c.parse...)
	for {
		// First check whether we're done with the input.
		if err := skipSpace(in); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		a, err := safecalc.Parse(in, opts...)
		if err != nil {
			var perr *safecalc.Error
			if !errors.As(err, &perr) {
				return err
			}
			c.logger.Debug("rejected", zap.Error(err))
			fmt.Fprintln(c.out, err)
			if err := skipLine(in); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			continue
		}
		c.eval(a)
	}
}

// skipSpace discards leading whitespace.
func skipSpace(in io.RuneScanner) error {
	for {
		r, _, err := in.ReadRune()
		if err != nil {
			return err
		}
		if !unicode.IsSpace(r) {
			return in.UnreadRune()
		}
	}
}

// skipLine discards the rest of the current line after a parse error.
func skipLine(in *bufio.Reader) error {
	_, err := in.ReadString('\n')
	return err
}
