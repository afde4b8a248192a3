// Package runtime wires the HL toolchain together: parser, validator,
// interpreter, and the live-reload engine.
package runtime

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/formatter"
	"github.com/thomasrohde/hotloop/pkg/interp"
	"github.com/thomasrohde/hotloop/pkg/parser"
	"github.com/thomasrohde/hotloop/pkg/reload"
	"github.com/thomasrohde/hotloop/pkg/validator"
)

// Runtime is the assembled HL host: one interpreter with one reload engine
// attached. Safe for sequential use only.
type Runtime struct {
	interp      *interp.Interp
	engine      *reload.Engine
	stdout      io.Writer
	policy      reload.Policy
	reloadOnErr bool
	every       int
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdout directs program output to w.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) { rt.stdout = w }
}

// WithPolicy sets the reload failure-recovery policy. The default blocks on
// a stdin/stderr console.
func WithPolicy(p reload.Policy) Option {
	return func(rt *Runtime) { rt.policy = p }
}

// WithReloadOnError controls the function/class reload mode; see
// reload.WithReloadOnError.
func WithReloadOnError(on bool) Option {
	return func(rt *Runtime) { rt.reloadOnErr = on }
}

// WithEvery sets the default reload sampling interval for marker sites
// that do not pass their own 'every'.
func WithEvery(n int) Option {
	return func(rt *Runtime) { rt.every = n }
}

// New creates a runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdout:      os.Stdout,
		reloadOnErr: true,
		every:       1,
	}
	for _, opt := range opts {
		opt(rt)
	}

	ip := interp.New(interp.WithStdout(rt.stdout), interp.WithDefaultEvery(rt.every))
	engineOpts := []reload.Option{reload.WithReloadOnError(rt.reloadOnErr)}
	if rt.policy != nil {
		engineOpts = append(engineOpts, reload.WithPolicy(rt.policy))
	}
	engine := reload.New(parser.Parse, ip, engineOpts...)
	ip.SetReloader(engine)

	rt.interp = ip
	rt.engine = engine
	return rt
}

// GlobalEnv creates a fresh top-level scope with builtins bound.
func (rt *Runtime) GlobalEnv() *interp.Env {
	return rt.interp.GlobalEnv()
}

// Run parses, validates, and executes source in a fresh global scope.
func (rt *Runtime) Run(ctx context.Context, source, filename string) error {
	prog, diags := parser.Parse(source, filename)
	if prog == nil {
		return &DiagnosticError{Diagnostics: diags}
	}
	if vdiags := validator.Validate(prog); len(vdiags) > 0 {
		return &DiagnosticError{Diagnostics: vdiags}
	}
	return rt.interp.Run(ctx, prog, rt.GlobalEnv())
}

// RunFile executes the program at path.
func (rt *Runtime) RunFile(ctx context.Context, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return rt.Run(ctx, string(source), path)
}

// Eval parses and executes one source fragment inside env. A fragment that
// is a single expression returns its value; anything else returns nil.
func (rt *Runtime) Eval(ctx context.Context, source, filename string, env *interp.Env) (interp.Value, error) {
	prog, diags := parser.Parse(source, filename)
	if prog == nil {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if len(prog.Statements) == 1 {
		if es, ok := prog.Statements[0].(*ast.ExprStmt); ok {
			return rt.interp.EvalIn(ctx, es.Expr, env)
		}
	}
	return nil, rt.interp.ExecIn(ctx, prog, env)
}

// Check parses and validates without executing.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	prog, diags := parser.Parse(source, filename)
	if prog == nil {
		return diags
	}
	return validator.Validate(prog)
}

// Format returns the canonical rendering of source. Sources with comments
// are refused, since formatting would drop them.
func (rt *Runtime) Format(source, filename string) (string, error) {
	if formatter.HasComments(source) {
		return "", fmt.Errorf("%s: refusing to format source with comments", filename)
	}
	prog, diags := parser.Parse(source, filename)
	if prog == nil {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(prog), nil
}

// DiagnosticError aggregates parse or validation diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	return diagnostics.FormatDiagnostics(e.Diagnostics, true)
}
