package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohak72/safecalc"
	"github.com/mohak72/safecalc/internal/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// execute runs the root command with args and stdin, returning its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	// Flags keep their values and Changed state between executions.
	reset := func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	// A nil slice makes cobra fall back to os.Args.
	rootCmd.SetArgs(append([]string{}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func testCalc(t *testing.T) (*calc, *bytes.Buffer) {
	t.Helper()
	logger = zap.NewNop()
	var out bytes.Buffer
	c := &calc{
		ctx:    safecalc.NewContext(),
		verb:   "%g\n",
		out:    &out,
		logger: logger,
	}
	return c, &out
}

func TestArgs(t *testing.T) {
	out, err := execute(t, "", "2 + 3 * 4", "1/0", "sqrt(16)")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "14", lines[0])
	assert.Contains(t, lines[1], "invalid expression")
	assert.Contains(t, lines[1], "division by zero")
	assert.Equal(t, "4", lines[2])
}

func TestFormatFlag(t *testing.T) {
	out, err := execute(t, "", "--fmt", "%.3f", "1/3")
	require.NoError(t, err)
	assert.Equal(t, "0.333\n", out)
}

func TestEchoFlag(t *testing.T) {
	out, err := execute(t, "", "--echo", "1+2*3")
	require.NoError(t, err)
	assert.Equal(t, "((1) + ((2) * (3))) : 7\n", out)
}

func TestStdinStream(t *testing.T) {
	out, err := execute(t, "1 + 1\n\n2 ** 10\nx // 2\n3 +\n4\n")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "2", lines[0])
	assert.Equal(t, "1024", lines[1])
	assert.Contains(t, lines[2], `binary operator "//" is not allowed`)
	assert.Equal(t, "7", lines[3])
}

func TestInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exprs.txt")
	require.NoError(t, os.WriteFile(path, []byte("factorial(5)\nmax(1, 7, 3)\n"), 0o644))
	out, err := execute(t, "", "--in", path)
	require.NoError(t, err)
	assert.Equal(t, "120\n7\n", out)
}

func TestInFileMissing(t *testing.T) {
	_, err := execute(t, "", "--in", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestInteractive(t *testing.T) {
	out, err := execute(t, "1+1\n\n   \n__import__('os')\nquit\n2+2\n", "-i")
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(out, prompt))
	assert.Contains(t, out, prompt+"2\n")
	assert.Contains(t, out, "invalid expression")
	assert.NotContains(t, out, "4\n")
}

func TestInteractiveExitAtEOF(t *testing.T) {
	out, err := execute(t, "7 % 3", "--interactive")
	require.NoError(t, err)
	assert.Equal(t, prompt+"1\n"+prompt+"\n", out)
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "EXIT\n", "--demo")
	require.NoError(t, err)
	assert.Contains(t, out, "2 + 3 * 4 = 14\n")
	assert.Contains(t, out, "(1 + 2) ** 3 = 27\n")
	assert.Contains(t, out, "sqrt(16) = 4\n")
	assert.Contains(t, out, "factorial(5) = 120\n")
	assert.Contains(t, out, "sin(pi/2) = 1\n")
	assert.Contains(t, out, "1 / 3 = 0.3333333333333333\n")
	assert.True(t, strings.HasSuffix(out, prompt))
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safecalc.yaml")
	cfg := config.DefaultConfig()
	cfg.Format = "%.2f"
	cfg.MaxDepth = 3
	cfg.Consts = map[string]float64{"g": 9.80665}
	require.NoError(t, cfg.Save(path))

	out, err := execute(t, "", "--config", path, "g * 2", "((((1))))")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "19.61", lines[0])
	assert.Contains(t, lines[1], "nested more than 3 levels")

	// Flags override the file.
	out, err = execute(t, "", "--config", path, "--fmt", "%g", "--max-depth", "0", "((((1))))")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safecalc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("consts:\n  import: 1\n"), 0o644))
	_, err := execute(t, "", "--config", path, "1")
	assert.Error(t, err)
}

func TestCalcPrecision(t *testing.T) {
	c, out := testCalc(t)
	c.ctx = safecalc.NewContext(safecalc.Prec(24))
	c.verb = "%.10f\n"
	c.line("1/3")
	assert.Equal(t, "0.3333333433\n", out.String())
}

func TestCalcOverflow(t *testing.T) {
	c, out := testCalc(t)
	c.line("10 ** 400")
	assert.Contains(t, out.String(), "math range error")
}

func TestStreamRecovers(t *testing.T) {
	c, out := testCalc(t)
	require.NoError(t, c.stream(strings.NewReader("1;2\n[1]\n3 3\n5")))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "multiple statements")
	assert.Contains(t, lines[1], "list displays")
	assert.Contains(t, lines[2], "unexpected number 3")
	assert.Equal(t, "5", lines[3])
}
