// Command hotloop is the HL live-reload runtime CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/thomasrohde/hotloop/pkg/config"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/interp"
	"github.com/thomasrohde/hotloop/pkg/reload"
	"github.com/thomasrohde/hotloop/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hotloop <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, repl")
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, path, err := config.Discover(".")
	if err != nil && path != "" {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	return cfg
}

func cmdRun(args []string) int {
	cfg := loadConfig()
	var file string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			cfg.Pretty = true
		case "--auto-retry":
			cfg.AutoRetry = true
		case "--every":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil || n < 1 {
					fmt.Fprintln(os.Stderr, "--every expects a positive integer")
					return 1
				}
				cfg.Every = n
			}
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: hotloop run <file.hl> [--every N] [--pretty] [--auto-retry]")
		return 1
	}

	opts := []runtime.Option{runtime.WithEvery(cfg.Every)}
	if cfg.AutoRetry {
		opts = append(opts, runtime.WithPolicy(&reload.AutoRetryPolicy{
			Out:   os.Stderr,
			Delay: time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		}))
	} else if liner.TerminalSupported() {
		console := reload.NewInteractiveConsole()
		defer console.Close()
		opts = append(opts, runtime.WithPolicy(console))
	}

	rt := runtime.New(opts...)
	if err := rt.RunFile(context.Background(), file); err != nil {
		return reportError(err, cfg.Pretty)
	}
	return 0
}

func cmdCheck(args []string) int {
	cfg := loadConfig()
	var file string
	for _, arg := range args {
		switch arg {
		case "--pretty":
			cfg.Pretty = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: hotloop check <file.hl> [--pretty]")
		return 1
	}

	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	rt := runtime.New()
	if diags := rt.Check(string(source), file); len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, cfg.Pretty))
		return 2
	}
	return 0
}

func cmdFmt(args []string) int {
	var file string
	write := false
	for _, arg := range args {
		switch arg {
		case "--write":
			write = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}
	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: hotloop fmt <file.hl> [--write]")
		return 1
	}

	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	rt := runtime.New()
	formatted, err := rt.Format(string(source), file)
	if err != nil {
		return reportError(err, true)
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}
	fmt.Print(formatted)
	return 0
}

func cmdRepl(args []string) int {
	cfg := loadConfig()

	rt := runtime.New(runtime.WithEvery(cfg.Every))
	env := rt.GlobalEnv()
	ctx := context.Background()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.HistoryFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(cfg.HistoryFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt(cfg.Prompt)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return 0
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":quit" {
			return 0
		}
		line.AppendHistory(input)

		v, err := rt.Eval(ctx, input, "<repl>", env)
		if err != nil {
			reportError(err, true)
			continue
		}
		if v != nil {
			if _, isNull := v.(interp.Null); !isNull {
				fmt.Println(interp.FormatValue(v))
			}
		}
	}
}

func reportError(err error, pretty bool) int {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
		return 2
	}
	var rtErr *interp.RuntimeError
	if errors.As(err, &rtErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(rtErr.Diagnostic(), pretty))
		return 3
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
