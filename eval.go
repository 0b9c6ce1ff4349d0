package safecalc

import (
	"errors"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Context is a context for evaluating expressions. It holds the names an
// expression may use and the precision of calculations. A Context is never
// modified after it is created, so it is safe to use concurrently.
type Context struct {
	names map[string]entry
	prec  uint
}

// entry is a name bound in a context: a constant or a function.
type entry struct {
	// val is the constant's value at the context precision.
	val *big.Float
	// src is the value a constant was created with, kept so that clones at
	// a different precision round from it rather than from val.
	src *big.Float
	// niladic computes a provided constant, e.g. pi, at the precision of out.
	niladic func(out *big.Float) *big.Float
	// fn is the function, if the name is one.
	fn Func
}

const (
	// DefaultPrec is the precision of calculations in contexts created
	// without a Prec option.
	DefaultPrec = 256
	// Float64Prec is the precision of float64. Arithmetic in a context with
	// this precision rounds the same way float64 arithmetic does.
	Float64Prec = 53
)

// ContextOption is an option used when creating a context.
type ContextOption interface {
	ctxOption()
}

type (
	constopt struct {
		name string
		val  *big.Float
	}
	constsopt map[string]*big.Float
	funcopt   struct {
		name string
		fn   Func
	}
	removeopt []string
	precopt   uint
	nodefopt  struct{}
)

func (constopt) ctxOption()  {}
func (constsopt) ctxOption() {}
func (funcopt) ctxOption()   {}
func (removeopt) ctxOption() {}
func (precopt) ctxOption()   {}
func (nodefopt) ctxOption()  {}

// SetConst binds a constant in the context. The value is copied. Panics if
// name is not a valid identifier or is a keyword.
func SetConst(name string, val *big.Float) ContextOption {
	mustName(name)
	return constopt{name, new(big.Float).Copy(val)}
}

// SetConsts binds any number of constants in the context, like SetConst.
func SetConsts(consts map[string]*big.Float) ContextOption {
	m := make(constsopt, len(consts))
	for k, v := range consts {
		mustName(k)
		m[k] = new(big.Float).Copy(v)
	}
	return m
}

// SetFunc binds a function in the context. A nil fn removes the name.
// Panics if name is not a valid identifier or is a keyword.
func SetFunc(name string, fn Func) ContextOption {
	mustName(name)
	return funcopt{name, fn}
}

// Remove removes names from the context, whether they are constants or
// functions. Expressions using them fail to evaluate.
func Remove(names ...string) ContextOption {
	return removeopt(append([]string(nil), names...))
}

// Prec sets the precision of calculations in bits. Panics if prec is zero.
func Prec(prec uint) ContextOption {
	if prec == 0 {
		panic("safecalc: zero precision")
	}
	return precopt(prec)
}

// DisableDefaults removes every name the context has before the remaining
// options apply. With NewContext, the result is a context in which only
// the options' constants and functions exist.
func DisableDefaults() ContextOption {
	return nodefopt{}
}

// ValidName reports whether name can be bound in a context, i.e. whether an
// expression can spell it.
func ValidName(name string) bool {
	return isIdent(name) && !isKeyword(name)
}

func mustName(name string) {
	if !ValidName(name) {
		panic("safecalc: invalid name " + strconv.Quote(name))
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

var (
	// defaultContext is the context Eval and EvalString use.
	defaultContext = NewContext()
	// float64Context is the context Evaluate uses.
	float64Context = NewContext(Prec(Float64Prec))
)

// NewContext creates a new evaluation context holding the default constants
// and functions. If no precision is given, the default is DefaultPrec.
func NewContext(opts ...ContextOption) *Context {
	ctx := Context{names: globalnames, prec: DefaultPrec}
	return ctx.Clone(opts...)
}

// Clone creates a copy of a context and applies options to it in order.
// The original context is unchanged.
func (ctx *Context) Clone(opts ...ContextOption) *Context {
	n := Context{
		names: make(map[string]entry, len(ctx.names)),
		prec:  ctx.prec,
	}
	// First, check for a precision setting. Loop backward so we apply the last
	// precision.
	for i := len(opts) - 1; i >= 0; i-- {
		if p, ok := opts[i].(precopt); ok {
			n.prec = uint(p)
			break
		}
	}
	// Constants carry their own precision, so we only need to recompute them
	// when it changes or they were never computed.
	for k, v := range ctx.names {
		n.names[k] = n.rebind(v, n.prec != ctx.prec)
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt := opt.(type) {
		case constopt:
			n.names[opt.name] = n.rebind(entry{src: opt.val}, true)
		case constsopt:
			for k, v := range opt {
				n.names[k] = n.rebind(entry{src: v}, true)
			}
		case funcopt:
			if opt.fn == nil {
				delete(n.names, opt.name)
				continue
			}
			n.names[opt.name] = entry{fn: opt.fn}
		case removeopt:
			for _, k := range opt {
				delete(n.names, k)
			}
		case nodefopt:
			clear(n.names)
		case precopt:
			// Already done. Do nothing.
		default:
			panic("safecalc: unknown option type")
		}
	}
	return &n
}

// rebind returns e with its constant value at the context's precision.
func (ctx *Context) rebind(e entry, recompute bool) entry {
	if e.fn != nil || (e.val != nil && !recompute) {
		return e
	}
	v := new(big.Float).SetPrec(ctx.prec)
	switch {
	case e.niladic != nil:
		v.Set(e.niladic(guarded(v)))
	case e.src != nil:
		v.Set(e.src)
	}
	e.val = v
	return e
}

// Prec returns the precision to which values are computed in the context.
func (ctx *Context) Prec() uint {
	return ctx.prec
}

// Lookup returns a copy of the value of a constant. If there is no such
// constant in the context, including if the name is a function, then the
// result is nil and false.
func (ctx *Context) Lookup(name string) (*big.Float, bool) {
	e, ok := ctx.names[name]
	if !ok || e.val == nil {
		return nil, false
	}
	return new(big.Float).Copy(e.val), true
}

// Names returns the names of all constants and functions in the context, in
// sorted order.
func (ctx *Context) Names() []string {
	r := make([]string, 0, len(ctx.names))
	for k := range ctx.names {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// Eval evaluates an expression and returns the result. If an error occurs,
// e.g. a name that is not in the context or an argument to a function that
// is outside the function's domain, then the result is nil and the error is
// an *Error. The result belongs to the caller.
func (ctx *Context) Eval(e *Expr) (*big.Float, error) {
	v, err := e.n.eval(ctx)
	if err != nil {
		return nil, err
	}
	if v.tuple {
		return nil, &Error{Msg: "result is a tuple, not a number"}
	}
	if e.n.kind == nodeName {
		// The value is the context's own.
		return new(big.Float).Copy(v.x), nil
	}
	return v.x, nil
}

// Float64 evaluates an expression and rounds the result to float64. A finite
// result too large for float64 is an error with cause ErrRange.
func (ctx *Context) Float64(e *Expr) (float64, error) {
	r, err := ctx.Eval(e)
	if err != nil {
		return 0, err
	}
	f, _ := r.Float64()
	if math.IsInf(f, 0) && !r.IsInf() {
		return 0, &Error{Msg: "result " + r.Text('g', 10) + " is too large", Err: ErrRange}
	}
	return f, nil
}

// num gets a number from its literal text.
func (ctx *Context) num(s string) *big.Float {
	r := new(big.Float).SetPrec(ctx.prec)
	if len(s) > 1 && s[0] == '0' && strings.ContainsRune("xXoObB", rune(s[1])) {
		var i big.Int
		if _, ok := i.SetString(s, 0); !ok {
			panic("safecalc: invalid number: " + s)
		}
		return r.SetInt(&i)
	}
	s = strings.ReplaceAll(s, "_", "")
	if _, _, err := r.Parse(s, 10); err != nil {
		// The lexer only produces valid literals, so the only failure is an
		// exponent beyond what big.Float can represent.
		k := strings.IndexAny(s, "eE")
		if k < 0 {
			panic("safecalc: invalid number: " + s + " (" + err.Error() + ")")
		}
		if strings.HasPrefix(s[k+1:], "-") {
			return r.SetInt64(0)
		}
		return r.SetInf(false)
	}
	return r
}

// eval computes the node's value.
func (n *node) eval(ctx *Context) (Value, error) {
	switch n.kind {
	case nodeNum:
		return number(ctx.num(n.name)), nil
	case nodeName:
		e, ok := ctx.names[n.name]
		switch {
		case !ok:
			return Value{}, evalError(n, "name "+strconv.Quote(n.name)+" is not allowed", nil)
		case e.fn != nil:
			return Value{}, evalError(n, "function "+strconv.Quote(n.name)+" must be called", nil)
		}
		return number(e.val), nil
	case nodeCall:
		return n.call(ctx)
	case nodeTuple:
		v := Value{tuple: true, elems: make([]*big.Float, 0, n.args())}
		for l := n.right; l != nil; l = l.right {
			x, err := l.left.scalar(ctx, "tuple element")
			if err != nil {
				return Value{}, err
			}
			v.elems = append(v.elems, x)
		}
		return v, nil
	case nodeNeg, nodePos:
		x, err := n.left.scalar(ctx, "operand of unary "+symbols[n.kind])
		if err != nil {
			return Value{}, err
		}
		r := new(big.Float).SetPrec(ctx.prec)
		err = n.safely(func() error { return unaryOps[n.kind](r, x) })
		if err != nil {
			return Value{}, err
		}
		return number(r), nil
	case nodeAdd, nodeSub, nodeMul, nodeDiv, nodeMod, nodePow:
		op := symbols[n.kind]
		x, err := n.left.scalar(ctx, "operand of "+op)
		if err != nil {
			return Value{}, err
		}
		y, err := n.right.scalar(ctx, "operand of "+op)
		if err != nil {
			return Value{}, err
		}
		r := new(big.Float).SetPrec(ctx.prec)
		err = n.safely(func() error { return binaryOps[n.kind](r, x, y) })
		if err != nil {
			return Value{}, err
		}
		return number(r), nil
	case nodeArg:
		panic("safecalc: eval on nodeArg")
	default:
		panic("safecalc: invalid AST node " + n.kind.String())
	}
}

// scalar evaluates a node that must produce a number. what describes the
// node's role for the error message.
func (n *node) scalar(ctx *Context, what string) (*big.Float, error) {
	v, err := n.eval(ctx)
	if err != nil {
		return nil, err
	}
	if v.tuple {
		return nil, evalError(n, what+" must be a number, not a tuple", nil)
	}
	return v.x, nil
}

// call evaluates a function call node.
func (n *node) call(ctx *Context) (Value, error) {
	e, ok := ctx.names[n.name]
	switch {
	case !ok:
		return Value{}, evalError(n, "function "+strconv.Quote(n.name)+" is not allowed", nil)
	case e.fn == nil:
		return Value{}, evalError(n, "constant "+strconv.Quote(n.name)+" is not callable", nil)
	}
	k := n.args()
	if !e.fn.CanCall(k) {
		return Value{}, evalError(n, "cannot call "+n.name+" with "+strconv.Itoa(k)+" arguments", nil)
	}
	args := make([]Value, 0, k)
	for l := n.right; l != nil; l = l.right {
		v, err := l.left.eval(ctx)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}
	r := new(big.Float).SetPrec(ctx.prec)
	err := n.safely(func() error { return e.fn.Call(ctx, args, r) })
	if err != nil {
		return Value{}, err
	}
	return number(r), nil
}

// safely runs f, converting a returned error or a big.ErrNaN panic into an
// *Error at n. Other panics propagate.
func (n *node) safely(f func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		nan, ok := r.(big.ErrNaN)
		if !ok {
			panic(r)
		}
		err = evalError(n, n.describe(), nan)
	}()
	if err := f(); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return err
		}
		return evalError(n, n.describe(), err)
	}
	return nil
}

// describe names the operation a node performs for error messages.
func (n *node) describe() string {
	switch n.kind {
	case nodeCall:
		return n.name
	case nodeNeg, nodePos:
		return "unary " + symbols[n.kind]
	default:
		return symbols[n.kind]
	}
}

// Eval is a shortcut to parse an expression and return its result using the
// default functions.
func Eval(src io.RuneScanner, opts ...ContextOption) (*big.Float, error) {
	a, err := Parse(src)
	if err != nil {
		return nil, err
	}
	ctx := defaultContext
	if len(opts) > 0 {
		ctx = defaultContext.Clone(opts...)
	}
	return ctx.Eval(a)
}

// EvalString is a shortcut to parse and evaluate a string expression.
func EvalString(src string, opts ...ContextOption) (*big.Float, error) {
	return Eval(strings.NewReader(src), opts...)
}

// Evaluate evaluates an arithmetic expression using the default constants
// and functions and returns the result as a float64. Calculations use
// Float64Prec, so arithmetic on literals gives the same result as the same
// arithmetic on float64. Every failure, from a syntax error to a disallowed
// name to division by zero, is an *Error.
func Evaluate(expression string) (float64, error) {
	a, err := ParseString(expression)
	if err != nil {
		return 0, err
	}
	return float64Context.Float64(a)
}
