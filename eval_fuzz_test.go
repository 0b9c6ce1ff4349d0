package safecalc_test

import (
	"errors"
	"testing"

	"github.com/mohak72/safecalc"
)

func FuzzEvaluate(f *testing.F) {
	f.Add("2 + 3 * 4")
	f.Add("sqrt(16) ** -x")
	f.Add("max((1, 2), 3)")
	f.Add("__import__('os').system('ls')")
	f.Add("1e400 - inf % 0")
	f.Fuzz(func(t *testing.T, s string) {
		_, err := safecalc.Evaluate(s)
		if err != nil && !errors.As(err, new(*safecalc.Error)) {
			t.Errorf("%q gave error %#v, not *safecalc.Error", s, err)
		}
	})
}
