package safecalc_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/mohak72/safecalc"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestConcurrentEval(t *testing.T) {
	ctx := safecalc.NewContext(safecalc.SetConst("x", big.NewFloat(3)))
	cases := []struct {
		src string
		r   float64
	}{
		{"x ** 2 + 1", 10},
		{"factorial(x) * 2", 12},
		{"max((x, 7, 2)) % 4", 3},
		{"sqrt(x * 12)", 6},
		{"round(x / 2)", 2},
	}
	exprs := make([]*safecalc.Expr, len(cases))
	for i, c := range cases {
		a, err := safecalc.ParseString(c.src)
		if err != nil {
			t.Fatalf("%q failed to parse: %v", c.src, err)
		}
		exprs[i] = a
	}

	var g errgroup.Group
	g.SetLimit(8)
	for i := 0; i < 256; i++ {
		k := i % len(cases)
		g.Go(func() error {
			r, err := ctx.Float64(exprs[k])
			if err != nil {
				return fmt.Errorf("evaluating %q: %w", cases[k].src, err)
			}
			if r != cases[k].r {
				return fmt.Errorf("wrong result from %q: want %g, got %g", cases[k].src, cases[k].r, r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Error(err)
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	g, gctx := errgroup.WithContext(context.Background())
	srcs := []string{"1/3", "1/0", "sin(pi/2)", "x"}
	fails := []bool{false, true, false, true}
	for round := 0; round < 16; round++ {
		for i, src := range srcs {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				_, err := safecalc.Evaluate(src)
				if (err != nil) != fails[i] {
					return fmt.Errorf("%q: want error %t, got %v", src, fails[i], err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		t.Error(err)
	}
}
