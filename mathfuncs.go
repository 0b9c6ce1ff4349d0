package safecalc

import (
	"errors"
	"math"
	"math/big"
	"math/bits"

	"github.com/zephyrtronium/bigfloat"
)

// maxFactorial bounds the integer arguments of factorial, perm, and comb.
// Anything larger overflows float64 long before it could be divided back
// down, and the exact product gets expensive.
const maxFactorial = 10000

// globalnames is the default name table. It is never modified; contexts copy
// it.
var globalnames = map[string]entry{
	// constants
	"pi": {niladic: bigfloat.Pi},
	"e": {niladic: func(out *big.Float) *big.Float {
		return bigfloat.Exp(out, one)
	}},
	"tau": {niladic: func(out *big.Float) *big.Float {
		bigfloat.Pi(out)
		return out.Mul(out, two)
	}},
	"inf": {niladic: func(out *big.Float) *big.Float {
		return out.SetInf(false)
	}},

	// general-purpose
	"abs":   {fn: total1(func(r, x *big.Float) { r.Abs(x) })},
	"round": {fn: builtin{min: 1, max: 2, f: round}},
	"min":   {fn: builtin{min: 2, max: -1, iter: true, f: extreme(-1)}},
	"max":   {fn: builtin{min: 2, max: -1, iter: true, f: extreme(1)}},

	// powers and logarithms, computed in full precision
	"sqrt":  {fn: builtin{min: 1, max: 1, f: sqrt}},
	"exp":   {fn: builtin{min: 1, max: 1, f: exp}},
	"log":   {fn: builtin{min: 1, max: 2, f: logb}},
	"log10": {fn: builtin{min: 1, max: 1, f: logn(10)}},
	"log2":  {fn: builtin{min: 1, max: 1, f: logn(2)}},
	"pow": {fn: builtin{min: 2, max: 2, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		return pow(r, xs[0], xs[1])
	}}},
	"hypot": {fn: builtin{min: 0, max: -1, f: hypot}},

	// integers and rounding
	"fabs":      {fn: total1(func(r, x *big.Float) { r.Abs(x) })},
	"floor":     {fn: builtin{min: 1, max: 1, f: integral(floor)}},
	"ceil":      {fn: builtin{min: 1, max: 1, f: integral(ceil)}},
	"trunc":     {fn: builtin{min: 1, max: 1, f: integral(trunc)}},
	"factorial": {fn: builtin{min: 1, max: 1, f: factorial}},
	"isqrt":     {fn: builtin{min: 1, max: 1, f: isqrt}},
	"comb":      {fn: builtin{min: 2, max: 2, f: comb}},
	"perm":      {fn: builtin{min: 1, max: 2, f: perm}},
	"gcd":       {fn: builtin{min: 0, max: -1, f: gcd}},
	"lcm":       {fn: builtin{min: 0, max: -1, f: lcm}},
	"fmod":      {fn: builtin{min: 2, max: 2, f: fmod}},
	"copysign":  {fn: builtin{min: 2, max: 2, f: copysign}},
	"degrees":   {fn: builtin{min: 1, max: 1, f: scalepi(false)}},
	"radians":   {fn: builtin{min: 1, max: 1, f: scalepi(true)}},
	"fsum":      {fn: builtin{min: 1, max: 1, iter: true, f: fsum}},
	"prod":      {fn: builtin{min: 1, max: 1, iter: true, f: prod}},

	// trig and friends, computed in float64
	"sin":    {fn: Float64Func(math.Sin)},
	"cos":    {fn: Float64Func(math.Cos)},
	"tan":    {fn: Float64Func(math.Tan)},
	"asin":   {fn: Float64Func(math.Asin)},
	"acos":   {fn: Float64Func(math.Acos)},
	"atan":   {fn: Float64Func(math.Atan)},
	"atan2":  {fn: float64Dyadic(math.Atan2)},
	"sinh":   {fn: Float64Func(math.Sinh)},
	"cosh":   {fn: Float64Func(math.Cosh)},
	"tanh":   {fn: Float64Func(math.Tanh)},
	"asinh":  {fn: Float64Func(math.Asinh)},
	"acosh":  {fn: Float64Func(math.Acosh)},
	"atanh":  {fn: Float64Func(math.Atanh)},
	"erf":    {fn: Float64Func(math.Erf)},
	"erfc":   {fn: Float64Func(math.Erfc)},
	"gamma":  {fn: Float64Func(math.Gamma)},
	"lgamma": {fn: Float64Func(lgamma)},
	"expm1":  {fn: Float64Func(math.Expm1)},
	"log1p":  {fn: Float64Func(math.Log1p)},
	"cbrt":   {fn: Float64Func(math.Cbrt)},
}

var two = big.NewFloat(2)

// total1 wraps a function of one number that is defined everywhere.
func total1(f func(r, x *big.Float)) Func {
	return builtin{min: 1, max: 1, f: func(_ uint, xs []*big.Float, r *big.Float) error {
		f(r, xs[0])
		return nil
	}}
}

func lgamma(x float64) float64 {
	r, _ := math.Lgamma(x)
	return r
}

func sqrt(_ uint, xs []*big.Float, r *big.Float) error {
	x := xs[0]
	switch {
	case x.Sign() == 0:
		r.SetInt64(0)
	case x.Sign() < 0:
		return ErrDomain
	case x.IsInf():
		r.SetInf(false)
	default:
		r.Sqrt(x)
	}
	return nil
}

func exp(_ uint, xs []*big.Float, r *big.Float) error {
	x := xs[0]
	switch {
	case x.IsInf() && x.Sign() < 0:
		r.SetInt64(0)
	case x.IsInf():
		r.SetInf(false)
	default:
		// e**x is out of range for big.Float well before |x| reaches
		// MaxExp; past it, exp(x) would take forever to overflow.
		if f, _ := x.Float64(); math.Abs(f) > big.MaxExp {
			if f < 0 {
				r.SetInt64(0)
				return nil
			}
			return ErrRange
		}
		r.Set(bigfloat.Exp(guarded(r), x))
		if r.IsInf() {
			return ErrRange
		}
	}
	return nil
}

// ln sets r to the natural logarithm of x.
func ln(r, x *big.Float) error {
	switch {
	case x.Sign() <= 0:
		return ErrDomain
	case x.IsInf():
		r.SetInf(false)
	default:
		bigfloat.Log(r, x)
	}
	return nil
}

// logb computes log(x) or log(x, base).
func logb(_ uint, xs []*big.Float, r *big.Float) error {
	a := guarded(r)
	if err := ln(a, xs[0]); err != nil {
		return err
	}
	if len(xs) == 1 {
		r.Set(a)
		return nil
	}
	b := guarded(r)
	if err := ln(b, xs[1]); err != nil {
		return err
	}
	if b.Sign() == 0 {
		return ErrDivisionByZero
	}
	if a.IsInf() && b.IsInf() {
		return ErrDomain
	}
	r.Quo(a, b)
	return nil
}

func logn(base int64) func(uint, []*big.Float, *big.Float) error {
	return func(prec uint, xs []*big.Float, r *big.Float) error {
		b := new(big.Float).SetPrec(prec).SetInt64(base)
		return logb(prec, []*big.Float{xs[0], b}, r)
	}
}

func hypot(_ uint, xs []*big.Float, r *big.Float) error {
	t, sq := guarded(r), guarded(r)
	for _, x := range xs {
		if x.IsInf() {
			r.SetInf(false)
			return nil
		}
		sq.Mul(x, x)
		t.Add(t, sq)
	}
	if t.Sign() == 0 {
		r.SetInt64(0)
		return nil
	}
	r.Sqrt(t)
	return nil
}

// integral wraps a rounding function whose result must be finite. Python
// rounds to an int, which cannot be infinite.
func integral(f func(r, x *big.Float) *big.Float) func(uint, []*big.Float, *big.Float) error {
	return func(_ uint, xs []*big.Float, r *big.Float) error {
		if xs[0].IsInf() {
			return ErrRange
		}
		f(r, xs[0])
		return nil
	}
}

// trunc sets z to x rounded toward zero.
func trunc(z, x *big.Float) *big.Float {
	if x.IsInf() || x.IsInt() {
		return z.Set(x)
	}
	i, _ := x.Int(nil)
	return z.SetInt(i)
}

// round implements round(x) and round(x, ndigits), rounding halves to even.
func round(_ uint, xs []*big.Float, r *big.Float) error {
	x := xs[0]
	if len(xs) == 1 {
		if x.IsInf() {
			return ErrRange
		}
		halfeven(r, x)
		return nil
	}
	nd, err := toInt(xs[1])
	if err != nil {
		return err
	}
	if x.IsInf() || !nd.IsInt64() {
		r.Set(x)
		return nil
	}
	n := nd.Int64()
	if n > 100000 || n < -100000 {
		// Far beyond the precision of x either way.
		if n > 0 {
			r.Set(x)
		} else {
			r.SetInt64(0)
		}
		return nil
	}
	scale, t := guarded(r), guarded(r)
	powint(scale, ten, abs64(n))
	if n >= 0 {
		t.Mul(x, scale)
		halfeven(t, t)
		r.Quo(t, scale)
	} else {
		t.Quo(x, scale)
		halfeven(t, t)
		r.Mul(t, scale)
	}
	return nil
}

var (
	ten       = big.NewFloat(10)
	oneEighty = big.NewFloat(180)
)

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// halfeven sets z to x rounded to the nearest integer, with halves going to
// the even neighbor. x must be finite.
func halfeven(z, x *big.Float) *big.Float {
	f := floor(new(big.Float).SetPrec(x.Prec()), x)
	d := new(big.Float).SetPrec(x.Prec()).Sub(x, f)
	switch d.Cmp(half) {
	case -1:
		return z.Set(f)
	case 1:
		return z.Add(f, one)
	}
	if isOdd(f) {
		return z.Add(f, one)
	}
	return z.Set(f)
}

var half = big.NewFloat(0.5)

// extreme implements min (dir < 0) and max (dir > 0).
func extreme(dir int) func(uint, []*big.Float, *big.Float) error {
	return func(_ uint, xs []*big.Float, r *big.Float) error {
		if len(xs) == 0 {
			return errors.New("arg is an empty sequence")
		}
		m := xs[0]
		for _, x := range xs[1:] {
			if x.Cmp(m) == dir {
				m = x
			}
		}
		r.Set(m)
		return nil
	}
}

// maxSumPrec bounds the precision fsum uses to add its arguments exactly.
const maxSumPrec = 1 << 16

// fsum adds its arguments without intermediate rounding when their bits
// span no more than maxSumPrec, so the sum is rounded only once.
func fsum(_ uint, xs []*big.Float, r *big.Float) error {
	hi, lo := math.MinInt, math.MaxInt
	for _, x := range xs {
		if x.Sign() == 0 || x.IsInf() {
			continue
		}
		e := x.MantExp(nil)
		hi = max(hi, e)
		lo = min(lo, e-int(x.MinPrec()))
	}
	prec := r.Prec() + guardBits
	if hi > lo {
		if w := hi - lo + bits.Len(uint(len(xs))) + 1; w <= maxSumPrec {
			prec = max(prec, uint(w))
		}
	}
	t := new(big.Float).SetPrec(prec)
	for _, x := range xs {
		t.Add(t, x)
	}
	r.Set(t)
	return nil
}

func prod(_ uint, xs []*big.Float, r *big.Float) error {
	r.SetInt64(1)
	for _, x := range xs {
		r.Mul(r, x)
	}
	return nil
}

// toInt converts an integral number to an integer.
func toInt(x *big.Float) (*big.Int, error) {
	if x.IsInf() || !x.IsInt() {
		return nil, errors.New("integer argument expected")
	}
	i, _ := x.Int(nil)
	return i, nil
}

// toCount converts an integral number to a non-negative int no larger than
// maxFactorial.
func toCount(x *big.Float) (int64, error) {
	i, err := toInt(x)
	if err != nil {
		return 0, err
	}
	if i.Sign() < 0 {
		return 0, ErrDomain
	}
	if !i.IsInt64() || i.Int64() > maxFactorial {
		return 0, ErrRange
	}
	return i.Int64(), nil
}

func factorial(_ uint, xs []*big.Float, r *big.Float) error {
	n, err := toCount(xs[0])
	if err != nil {
		return err
	}
	r.SetInt(new(big.Int).MulRange(1, n))
	return nil
}

func isqrt(_ uint, xs []*big.Float, r *big.Float) error {
	i, err := toInt(xs[0])
	if err != nil {
		return err
	}
	if i.Sign() < 0 {
		return ErrDomain
	}
	r.SetInt(i.Sqrt(i))
	return nil
}

func comb(_ uint, xs []*big.Float, r *big.Float) error {
	n, err := toCount(xs[0])
	if err != nil {
		return err
	}
	k, err := toCount(xs[1])
	if err != nil {
		return err
	}
	if k > n {
		r.SetInt64(0)
		return nil
	}
	r.SetInt(new(big.Int).Binomial(n, k))
	return nil
}

func perm(_ uint, xs []*big.Float, r *big.Float) error {
	n, err := toCount(xs[0])
	if err != nil {
		return err
	}
	k := n
	if len(xs) == 2 {
		k, err = toCount(xs[1])
		if err != nil {
			return err
		}
	}
	if k > n {
		r.SetInt64(0)
		return nil
	}
	r.SetInt(new(big.Int).MulRange(n-k+1, n))
	return nil
}

func gcd(_ uint, xs []*big.Float, r *big.Float) error {
	g := new(big.Int)
	for _, x := range xs {
		i, err := toInt(x)
		if err != nil {
			return err
		}
		g.GCD(nil, nil, g, i)
	}
	r.SetInt(g)
	return nil
}

func lcm(_ uint, xs []*big.Float, r *big.Float) error {
	l := big.NewInt(1)
	g := new(big.Int)
	for _, x := range xs {
		i, err := toInt(x)
		if err != nil {
			return err
		}
		if i.Sign() == 0 {
			l.SetInt64(0)
			continue
		}
		if l.Sign() == 0 {
			continue
		}
		g.GCD(nil, nil, l, i)
		l.Mul(l, new(big.Int).Abs(i))
		l.Quo(l, g)
	}
	r.SetInt(l)
	return nil
}

// fmod computes truncated modulo, so the result has the sign of x.
func fmod(_ uint, xs []*big.Float, r *big.Float) error {
	x, y := xs[0], xs[1]
	switch {
	case y.Sign() == 0, x.IsInf():
		return ErrDomain
	case y.IsInf():
		r.Set(x)
		return nil
	}
	remainder(r, x, y, false)
	return nil
}

func copysign(_ uint, xs []*big.Float, r *big.Float) error {
	r.Abs(xs[0])
	if xs[1].Signbit() {
		r.Neg(r)
	}
	return nil
}

// scalepi converts degrees to radians if rad is true, otherwise radians to
// degrees.
func scalepi(rad bool) func(uint, []*big.Float, *big.Float) error {
	return func(_ uint, xs []*big.Float, r *big.Float) error {
		pi := bigfloat.Pi(guarded(r))
		t := guarded(r)
		if rad {
			t.Mul(xs[0], pi)
			r.Quo(t, oneEighty)
		} else {
			t.Mul(xs[0], oneEighty)
			r.Quo(t, pi)
		}
		return nil
	}
}
