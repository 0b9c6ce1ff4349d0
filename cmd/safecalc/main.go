package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/mohak72/safecalc"
	"github.com/mohak72/safecalc/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	inname      string
	verb        string
	prec        uint
	maxDepth    int
	echo        bool
	interactive bool
	demo        bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "safecalc [expr ...]",
	Short: "Evaluate arithmetic expressions safely",
	Long: `safecalc evaluates arithmetic expressions written in Python syntax.

Only numbers, + - * / % **, parentheses, and calls to a fixed set of math
functions are allowed. Anything else is rejected before it is evaluated.

Each argument is evaluated as one expression. With no arguments, expressions
are read one per line from stdin, or from the file given with --in.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

func init() {
	f := rootCmd.Flags()
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every expression at debug level")
	f.StringVar(&configPath, "config", "", "YAML config file")
	f.StringVar(&inname, "in", "", "input file (default stdin if no args given)")
	f.StringVar(&verb, "fmt", "%g", "result formatting string")
	f.UintVarP(&prec, "prec", "p", safecalc.DefaultPrec, "precision of calculations in bits")
	f.IntVar(&maxDepth, "max-depth", safecalc.DefaultMaxDepth, "maximum nesting depth of expressions (0 for none)")
	f.BoolVar(&echo, "echo", false, "print parse trees")
	f.BoolVarP(&interactive, "interactive", "i", false, "prompt for expressions")
	f.BoolVar(&demo, "demo", false, "evaluate sample expressions, then prompt for more")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// settings merges the config file with the flags the user set explicitly.
func settings(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("prec") {
		cfg.Prec = prec
	}
	if flags.Changed("fmt") {
		cfg.Format = verb
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = maxDepth
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newCalc creates the calculator described by cfg.
func newCalc(cmd *cobra.Command, cfg *config.Config) *calc {
	opts := []safecalc.ContextOption{safecalc.Prec(cfg.Prec)}
	if len(cfg.Consts) > 0 {
		consts := make(map[string]*big.Float, len(cfg.Consts))
		for k, v := range cfg.Consts {
			consts[k] = new(big.Float).SetFloat64(v)
		}
		opts = append(opts, safecalc.SetConsts(consts))
	}
	return &calc{
		ctx:    safecalc.NewContext(opts...),
		parse:  []safecalc.ParseOption{safecalc.MaxDepth(cfg.MaxDepth)},
		verb:   cfg.Format + "\n",
		echo:   echo,
		out:    cmd.OutOrStdout(),
		logger: logger,
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	c := newCalc(cmd, cfg)
	logger.Debug("starting",
		zap.Uint("prec", cfg.Prec),
		zap.Int("max_depth", cfg.MaxDepth),
		zap.Int("consts", len(cfg.Consts)),
	)

	if demo {
		c.demo()
		return c.repl(cmd.InOrStdin())
	}
	if len(args) > 0 {
		for _, arg := range args {
			c.line(arg)
		}
		return nil
	}

	in := cmd.InOrStdin()
	if inname != "" && inname != "-" {
		f, err := os.Open(inname)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	if interactive {
		return c.repl(in)
	}
	return c.stream(in)
}
