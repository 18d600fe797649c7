// Command readmaker runs the analysis engine from the command line.
//
//	readmaker [flags] analyze <text...>
//	readmaker [flags] test-bridge
//	readmaker [flags] state
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/readmaker/corebridge"
	"github.com/readmaker/corebridge/types"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	config  string
	lib     string
	backend string
	wasm    string
	timeout time.Duration
	tokens  bool
	verbose bool
}

func run(args []string, stdout, stderr io.Writer) int {
	var f flags
	fs := flag.NewFlagSet("readmaker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "JSON config file")
	fs.StringVar(&f.lib, "lib", "", "path of the shared library (overrides config)")
	fs.StringVar(&f.backend, "backend", "", "engine backend: native or wasm (overrides config)")
	fs.StringVar(&f.wasm, "wasm", "", "path of the wasm engine (overrides config)")
	fs.DurationVar(&f.timeout, "timeout", 0, "per call timeout, 0 waits forever")
	fs.BoolVar(&f.tokens, "tokens", false, "print decoded tokens instead of the raw payload")
	fs.BoolVar(&f.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: readmaker [flags] analyze <text...> | test-bridge | state")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	bridge, err := corebridge.New(cfg, corebridge.WithLogger(newLogger(stderr, f.verbose)))
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}
	defer bridge.Close()

	ctx := context.Background()
	switch cmd := fs.Arg(0); cmd {
	case "analyze":
		text := strings.Join(fs.Args()[1:], " ")
		if text == "" {
			bz, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(stderr, "read stdin: %v\n", err)
				return 1
			}
			text = string(bz)
		}
		return analyze(ctx, bridge, text, f.tokens, stdout, stderr)
	case "test-bridge":
		out, err := bridge.Ping(ctx)
		if err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintln(stdout, out)
		return 0
	case "state":
		return printJSON(stdout, stderr, bridge.Status())
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
}

func analyze(ctx context.Context, bridge *corebridge.Bridge, text string, tokens bool, stdout, stderr io.Writer) int {
	if !tokens {
		out, err := bridge.Analyze(ctx, text)
		if err != nil {
			return fail(stderr, err)
		}
		fmt.Fprintln(stdout, out)
		return 0
	}
	toks, err := bridge.Tokens(ctx, text)
	if err != nil {
		return fail(stderr, err)
	}
	return printJSON(stdout, stderr, toks)
}

// loadConfig layers the config file, the environment and the flags, in that
// order.
func loadConfig(f flags) (types.BridgeConfig, error) {
	cfg := types.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = types.LoadConfig(f.config); err != nil {
			return cfg, err
		}
	}
	cfg = cfg.ApplyEnv()
	if f.lib != "" {
		cfg.Library.Path = f.lib
	}
	if f.backend != "" {
		cfg.Library.Backend = types.Backend(strings.ToLower(f.backend))
	}
	if f.wasm != "" {
		cfg.Library.WasmPath = f.wasm
		if f.backend == "" {
			cfg.Library.Backend = types.BackendWasm
		}
	}
	if f.timeout > 0 {
		cfg.CallTimeout = types.Duration(f.timeout)
	}
	cfg = cfg.Normalize()
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// fail prints a rejection as "CODE: message".
func fail(stderr io.Writer, err error) int {
	code := types.CodeOf(err)
	if code == "" {
		fmt.Fprintf(stderr, "error: %v\n", err)
	} else {
		fmt.Fprintf(stderr, "%s: %v\n", code, err)
	}
	return 1
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}
