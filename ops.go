package safecalc

import (
	"errors"
	"math"
	"math/big"

	"github.com/zephyrtronium/bigfloat"
)

// binaryFunc sets z to the result of a binary operator. z is a fresh value
// with the context precision and never aliases x or y.
type binaryFunc func(z, x, y *big.Float) error

// unaryFunc sets z to the result of a unary operator.
type unaryFunc func(z, x *big.Float) error

// binaryOps and unaryOps are the only operators evaluation can apply. They
// are never modified.
var (
	binaryOps = map[nodeKind]binaryFunc{
		nodeAdd: add,
		nodeSub: sub,
		nodeMul: mul,
		nodeDiv: quo,
		nodeMod: mod,
		nodePow: pow,
	}
	unaryOps = map[nodeKind]unaryFunc{
		nodeNeg: neg,
		nodePos: pos,
	}
)

func add(z, x, y *big.Float) error {
	z.Add(x, y)
	return nil
}

func sub(z, x, y *big.Float) error {
	z.Sub(x, y)
	return nil
}

func mul(z, x, y *big.Float) error {
	z.Mul(x, y)
	return nil
}

func quo(z, x, y *big.Float) error {
	if y.Sign() == 0 {
		return ErrDivisionByZero
	}
	z.Quo(x, y)
	return nil
}

// mod computes floored modulo, so the result has the sign of y.
func mod(z, x, y *big.Float) error {
	switch {
	case y.Sign() == 0:
		return ErrDivisionByZero
	case x.IsInf():
		return ErrDomain
	case y.IsInf():
		// x % inf is x if they have the same sign, otherwise it's inf.
		if x.Sign() == 0 || x.Signbit() == y.Signbit() {
			z.Set(x)
		} else {
			z.Set(y)
		}
		return nil
	}
	remainder(z, x, y, true)
	return nil
}

// remainder sets z to the exact remainder of x/y, rounded once to the
// precision of z. The quotient is floored if floored is set, so the result
// has the sign of y, and truncated otherwise, so it has the sign of x. x and
// y must be finite and y must be nonzero.
func remainder(z, x, y *big.Float, floored bool) *big.Float {
	sign := x.Signbit()
	if floored {
		sign = y.Signbit()
	}
	if x.Sign() == 0 {
		return signedZero(z, sign)
	}
	if new(big.Float).Abs(x).Cmp(new(big.Float).Abs(y)) < 0 {
		if floored && x.Signbit() != y.Signbit() {
			return z.Add(x, y)
		}
		return z.Set(x)
	}
	// Now |x| >= |y|, so y's lowest bit is at most as far above x's as x is
	// wide, and shifting y to x's scale stays small.
	mx, sx := intMant(x)
	my, sy := intMant(y)
	s := sy
	switch {
	case sx < sy:
		my.Lsh(my, uint(sy-sx))
		s = sx
	case sx > sy:
		k := new(big.Int).Exp(big.NewInt(2), big.NewInt(int64(sx-sy)), my)
		mx.Mul(mx, k)
	}
	mx.Rem(mx, my)
	if mx.Sign() == 0 {
		return signedZero(z, sign)
	}
	if floored && x.Signbit() != y.Signbit() {
		mx.Sub(my, mx)
	}
	z.SetInt(mx)
	z.SetMantExp(z, s)
	if sign {
		z.Neg(z)
	}
	return z
}

// intMant returns |x| as m * 2**s with m an integer. x must be finite and
// nonzero.
func intMant(x *big.Float) (*big.Int, int) {
	var m big.Float
	e := x.MantExp(&m)
	p := int(x.MinPrec())
	m.SetMantExp(&m, p)
	i, _ := m.Int(nil)
	return i.Abs(i), e - p
}

// signedZero sets z to zero with the given sign bit.
func signedZero(z *big.Float, neg bool) *big.Float {
	z.SetInt64(0)
	if neg {
		z.Neg(z)
	}
	return z
}

func neg(z, x *big.Float) error {
	z.Neg(x)
	return nil
}

func pos(z, x *big.Float) error {
	z.Set(x)
	return nil
}

var errNegFrac = errors.New("negative number cannot be raised to a fractional power")

func pow(z, x, y *big.Float) error {
	switch {
	case y.Sign() == 0:
		z.SetInt64(1)
		return nil
	case x.Sign() == 0:
		if y.Sign() < 0 {
			return errors.New("zero cannot be raised to a negative power")
		}
		z.SetInt64(0)
		return nil
	case x.IsInf(), y.IsInf():
		powinf(z, x, y)
		return nil
	}
	if y.IsInt() {
		if e, acc := y.Int64(); acc == big.Exact {
			powint(z, x, e)
		} else {
			switch powscale(x, y) {
			case 1:
				return ErrRange
			case -1:
				z.SetInt64(0)
				return nil
			}
			// The exponent is too large for repeated squaring, but the sign
			// is still determined by its parity.
			a := new(big.Float).Abs(x)
			z.Set(bigfloat.Pow(guarded(z), a, y))
			if x.Sign() < 0 && isOdd(y) {
				z.Neg(z)
			}
		}
	} else {
		if x.Sign() < 0 {
			return errNegFrac
		}
		switch powscale(x, y) {
		case 1:
			return ErrRange
		case -1:
			z.SetInt64(0)
			return nil
		}
		z.Set(bigfloat.Pow(guarded(z), x, y))
	}
	if z.IsInf() {
		return ErrRange
	}
	return nil
}

// powscale estimates log2(|x|**y) so that powers far outside the exponent
// range of big.Float are never computed as exp(y*log(x)). The result is 1
// if the power overflows, -1 if it underflows to zero, and 0 otherwise.
func powscale(x, y *big.Float) int {
	var m big.Float
	e := x.MantExp(&m)
	mf, _ := m.Float64()
	yf, _ := y.Float64()
	t := yf * (float64(e) + math.Log2(math.Abs(mf)))
	switch {
	case t > big.MaxExp:
		return 1
	case t < big.MinExp:
		return -1
	default:
		return 0
	}
}

// powint sets z to x**e by repeated squaring. z must not alias x.
func powint(z, x *big.Float, e int64) {
	u := uint64(e)
	if e < 0 {
		u = uint64(-e)
	}
	b := guarded(z).Set(x)
	r := guarded(z).SetInt64(1)
	for u > 0 {
		if u&1 != 0 {
			r.Mul(r, b)
		}
		u >>= 1
		if u > 0 {
			b.Mul(b, b)
		}
	}
	if e < 0 {
		r.Quo(one, r)
	}
	z.Set(r)
}

// guardBits is the extra precision of intermediate results that are rounded
// again before they are returned.
const guardBits = 64

// guarded returns a new zero value with guardBits more precision than z.
func guarded(z *big.Float) *big.Float {
	return new(big.Float).SetPrec(z.Prec() + guardBits)
}

// powinf handles powers where either operand is infinite and neither is zero.
func powinf(z, x, y *big.Float) {
	if x.IsInf() {
		if y.Sign() < 0 {
			z.SetInt64(0)
			return
		}
		z.SetInf(x.Signbit() && isOdd(y))
		return
	}
	a := new(big.Float).Abs(x)
	switch c := a.Cmp(one); {
	case c == 0:
		z.SetInt64(1)
	case (c > 0) == (y.Sign() > 0):
		z.SetInf(false)
	default:
		z.SetInt64(0)
	}
}

// isOdd reports whether x is an odd integer.
func isOdd(x *big.Float) bool {
	if x.IsInf() || !x.IsInt() {
		return false
	}
	i, _ := x.Int(nil)
	return i.Bit(0) == 1
}

// floor sets z to the greatest integer no greater than x.
func floor(z, x *big.Float) *big.Float {
	if x.IsInf() || x.IsInt() {
		return z.Set(x)
	}
	i, _ := x.Int(nil)
	neg := x.Sign() < 0
	z.SetInt(i)
	if neg {
		z.Sub(z, one)
	}
	return z
}

// ceil sets z to the least integer no less than x.
func ceil(z, x *big.Float) *big.Float {
	if x.IsInf() || x.IsInt() {
		return z.Set(x)
	}
	i, _ := x.Int(nil)
	neg := x.Sign() < 0
	z.SetInt(i)
	if !neg {
		z.Add(z, one)
	}
	return z
}

// one is the constant 1. It must never be modified.
var one = big.NewFloat(1)
