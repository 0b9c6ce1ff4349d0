package safecalc

import (
	"errors"
	"math"
	"math/big"
	"strconv"
)

// Func is a function from numbers to a number. A Func is only reachable from
// an expression through the name a Context binds it to.
type Func interface {
	// Call evaluates the function. The evaluated positional arguments are
	// passed in args, which has a length for which CanCall returned true.
	// The function must set r to its result and should not use the value of
	// r otherwise; r has the context's precision. Call must not modify the
	// elements of args. An error is reported as the failure of the whole
	// expression.
	Call(ctx *Context, args []Value, r *big.Float) error

	// CanCall returns whether the function can be called with n positional
	// arguments.
	CanCall(n int) bool
}

// Value is an evaluated function argument: either a number or a tuple of
// numbers. Tuples only ever contain numbers.
type Value struct {
	x     *big.Float
	elems []*big.Float
	tuple bool
}

func number(x *big.Float) Value {
	return Value{x: x}
}

// IsTuple returns whether v is a tuple.
func (v Value) IsTuple() bool {
	return v.tuple
}

// Float returns the number v holds, or nil if v is a tuple. The result must
// not be modified.
func (v Value) Float() *big.Float {
	return v.x
}

// Tuple returns the elements of v, or nil if v is a number. The elements must
// not be modified.
func (v Value) Tuple() []*big.Float {
	return v.elems
}

var (
	// ErrDomain is the cause of an error from a function called outside its
	// domain, e.g. sqrt(-1).
	ErrDomain = errors.New("math domain error")
	// ErrRange is the cause of an error from a result that cannot be
	// represented, e.g. exp(1e6) converted to float64.
	ErrRange = errors.New("math range error")
	// ErrDivisionByZero is the cause of an error from dividing by zero with
	// /, %, or a function such as fmod.
	ErrDivisionByZero = errors.New("division by zero")
)

// builtin is the Func implementation behind every provided function.
type builtin struct {
	// min and max bound the number of arguments. max < 0 means unbounded.
	min, max int
	// iter allows a single tuple argument in place of the argument list.
	// If iter is set and min is 1, a single argument must be a tuple.
	iter bool
	f    func(prec uint, xs []*big.Float, r *big.Float) error
}

func (b builtin) CanCall(n int) bool {
	if b.iter && n == 1 {
		return true
	}
	return n >= b.min && (b.max < 0 || n <= b.max)
}

func (b builtin) Call(ctx *Context, args []Value, r *big.Float) error {
	if b.iter && len(args) == 1 {
		if !args[0].IsTuple() {
			return errors.New("argument must be a tuple")
		}
		return b.f(ctx.Prec(), args[0].Tuple(), r)
	}
	xs := make([]*big.Float, len(args))
	for i, v := range args {
		if v.IsTuple() {
			return errors.New("argument " + strconv.Itoa(i+1) + " must be a number, not a tuple")
		}
		xs[i] = v.Float()
	}
	return b.f(ctx.Prec(), xs, r)
}

// Monadic wraps a function of one variable into a Func. f must set out to its
// result; its return value is always ignored. If f is called on an argument
// outside its domain, it should panic with big.ErrNaN, which the evaluator
// reports as an error.
func Monadic(f func(out, in *big.Float) *big.Float) Func {
	return builtin{min: 1, max: 1, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		f(r, xs[0])
		return nil
	}}
}

// Dyadic wraps a function of two variables into a Func, like Monadic.
func Dyadic(f func(out, x, y *big.Float) *big.Float) Func {
	return builtin{min: 2, max: 2, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		f(r, xs[0], xs[1])
		return nil
	}}
}

// Variadic wraps a function of at least min variables into a Func. Unlike
// Monadic and Dyadic, f reports failures by returning an error.
func Variadic(min int, f func(out *big.Float, xs []*big.Float) error) Func {
	return builtin{min: min, max: -1, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		return f(r, xs)
	}}
}

// Float64Func wraps a function on float64 into a Func. The argument is
// rounded to float64 and the result is converted back. A finite argument too
// large for float64 is reported as ErrRange. A NaN result from a non-NaN
// argument is reported as ErrDomain, and an infinite result from a finite
// argument as ErrRange.
func Float64Func(f func(float64) float64) Func {
	return builtin{min: 1, max: 1, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		x, err := toFloat64(xs[0])
		if err != nil {
			return err
		}
		return setFloat64(r, f(x), x)
	}}
}

// float64Dyadic is Float64Func for functions of two variables.
func float64Dyadic(f func(x, y float64) float64) Func {
	return builtin{min: 2, max: 2, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		x, err := toFloat64(xs[0])
		if err != nil {
			return err
		}
		y, err := toFloat64(xs[1])
		if err != nil {
			return err
		}
		return setFloat64(r, f(x, y), x, y)
	}}
}

// toFloat64 rounds x to float64. Finite values that round to an infinity are
// out of range.
func toFloat64(x *big.Float) (float64, error) {
	f, _ := x.Float64()
	if math.IsInf(f, 0) && !x.IsInf() {
		return 0, ErrRange
	}
	return f, nil
}

// setFloat64 sets r to v, the result of a float64 computation on args.
func setFloat64(r *big.Float, v float64, args ...float64) error {
	finite := true
	for _, x := range args {
		if math.IsNaN(x) {
			return ErrDomain
		}
		if math.IsInf(x, 0) {
			finite = false
		}
	}
	switch {
	case math.IsNaN(v):
		return ErrDomain
	case math.IsInf(v, 0) && finite:
		return ErrRange
	}
	r.SetFloat64(v)
	return nil
}
