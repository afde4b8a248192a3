package reload

import (
	"context"
	"os"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/interp"
)

// ParseFunc parses source into a program, reporting failures as
// diagnostics. The filename becomes the File of every span, which is how
// synthetic origins propagate into reloaded code.
type ParseFunc func(source, filename string) (*ast.Program, []diagnostics.Diagnostic)

// Evaluator is the execution capability the engine drives: run a program's
// statements directly inside a given scope, and invoke a callable value.
// Satisfied by *interp.Interp.
type Evaluator interface {
	ExecIn(ctx context.Context, prog *ast.Program, env *interp.Env) error
	Call(ctx context.Context, callee interp.Value, args *interp.CallArgs) (interp.Value, error)
}

// Unit is one recompiled reload product: the isolated program and the
// synthetic origin its spans carry.
type Unit struct {
	Program *ast.Program
	Origin  string
}

type defKey struct {
	path string
	kind ConstructKind
	name string
}

// defState is the engine-owned per-construct state for functions and
// classes. It lives for the engine's lifetime, so re-running a marked
// declaration reuses the already loaded version.
type defState struct {
	current interp.Value
	calls   int
	reloads int
}

// Engine implements live reloading over the parse and execute capabilities
// it is built with. It is single-threaded by design: re-read and re-parse
// strictly precede execution on every tick, and nothing here locks.
type Engine struct {
	parse       ParseFunc
	eval        Evaluator
	policy      Policy
	reloadOnErr bool
	defs        map[defKey]*defState
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the failure-recovery policy. The default is a blocking
// console on stdin/stderr.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithReloadOnError controls the function/class reload mode. On (the
// default), definitions load lazily and reload after a console retry. Off,
// they reload eagerly every opts.Every invocations instead.
func WithReloadOnError(on bool) Option {
	return func(e *Engine) { e.reloadOnErr = on }
}

// New creates an engine over the given parse and execute capabilities.
func New(parse ParseFunc, eval Evaluator, opts ...Option) *Engine {
	e := &Engine{
		parse:       parse,
		eval:        eval,
		policy:      NewConsole(os.Stdin, os.Stderr),
		reloadOnErr: true,
		defs:        make(map[defKey]*defState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunLoop drives one marked loop to completion. Every sampled tick the
// loop's source file is re-read, the loop body re-isolated, and the fresh
// body executed against the caller's live scope, so edits take effect on
// the next tick while all loop-external state persists.
func (e *Engine) RunLoop(ctx context.Context, loop *ast.ForStmt, iter interp.Iterator, opts interp.ReloadOpts, env *interp.Env) error {
	siteFile := loop.Span.File
	path := RealPath(siteFile)
	line := loop.Span.StartLine
	every := opts.Every
	if every < 1 {
		every = 1
	}

	bridge := BridgeName(env)
	var unit *Unit
	var target ast.Target
	fingerprint := ""

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok := iter.Next()
		if !ok {
			return nil
		}

		if unit == nil || i%every == 0 {
			u, t, fp, err := e.loadLoop(ctx, siteFile, line, fingerprint)
			if err != nil {
				return err
			}
			unit, target, fingerprint = u, t, fp
		}

		// Execute the tick, retrying through the policy until it runs
		// clean, is skipped, or propagates.
		for {
			env.SetLocal(bridge, v)
			err := e.eval.ExecIn(ctx, unpackProgram(target, bridge), env)
			if err == nil {
				err = e.eval.ExecIn(ctx, unit.Program, env)
			}
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return err
			}
			f := Failure{Kind: ExecutionFailure, Path: path, Origin: unit.Origin, Err: err}
			decision := e.policy.Decide(f)
			if decision == Propagate {
				return err
			}
			if decision == Skip {
				break
			}
			u, t, fp, lerr := e.loadLoop(ctx, siteFile, line, fingerprint)
			if lerr != nil {
				return lerr
			}
			unit, target, fingerprint = u, t, fp
		}
	}
}

// loadLoop re-reads the site file and isolates the marked loop, consulting
// the policy until the loop is found unambiguously. Loop identity cannot be
// skipped past: without it the engine would execute the wrong body against
// live state.
func (e *Engine) loadLoop(ctx context.Context, siteFile string, line int, fingerprint string) (*Unit, ast.Target, string, error) {
	path := RealPath(siteFile)
	origin := MakeOrigin(siteFile)
	for {
		prog, err := e.parseUntilSuccessful(ctx, path, origin)
		if err != nil {
			return nil, nil, "", err
		}
		reduced, target, fp, lerr := isolateLoop(prog, fingerprint, line)
		if lerr == nil {
			return &Unit{Program: reduced, Origin: origin}, target, fp, nil
		}
		le := lerr.(*lookupError)
		f := Failure{Kind: le.kind, Path: path, Origin: origin, Err: lerr}
		if e.policy.Decide(f) == Propagate {
			return nil, nil, "", &interp.RuntimeError{Code: le.code, Message: le.msg}
		}
	}
}

// WrapFunction returns the public callable for a marked function: a stable
// wrapper that calls through engine-owned state, so every holder of the
// wrapper observes reloads without re-fetching it.
func (e *Engine) WrapFunction(decl *ast.FnDecl, env *interp.Env, opts interp.ReloadOpts) (interp.Value, error) {
	return e.wrapDef(decl.Name, KindFunction, decl.Span, env, opts), nil
}

// WrapClass returns the public constructor for a marked class. Instances
// keep the class version they were constructed from; reloads apply to
// later constructions.
func (e *Engine) WrapClass(decl *ast.ClassDecl, env *interp.Env, opts interp.ReloadOpts) (interp.Value, error) {
	return e.wrapDef(decl.Name, KindClass, decl.Span, env, opts), nil
}

func (e *Engine) wrapDef(name string, kind ConstructKind, site ast.Span, env *interp.Env, opts interp.ReloadOpts) interp.Value {
	siteFile := site.File
	path := RealPath(siteFile)
	line := site.StartLine
	every := opts.Every
	if every < 1 {
		every = 1
	}

	key := defKey{path: path, kind: kind, name: name}
	st := e.defs[key]
	if st == nil {
		st = &defState{}
		e.defs[key] = st
	}

	return &interp.Builtin{
		Name: name,
		Call: func(ip *interp.Interp, args *interp.CallArgs) (interp.Value, error) {
			ctx := ip.Context()

			if e.reloadOnErr {
				if st.current == nil {
					if err := e.reloadDef(ctx, siteFile, name, kind, line, env, st); err != nil {
						return nil, err
					}
				}
			} else if st.calls%every == 0 {
				if err := e.reloadDef(ctx, siteFile, name, kind, line, env, st); err != nil {
					return nil, err
				}
			}
			st.calls++

			for {
				if st.current == nil {
					f := Failure{
						Kind:   ConstructNotFound,
						Path:   path,
						Origin: MakeOrigin(siteFile),
						Err:    notFoundDefError(kind, name, path),
					}
					decision := e.policy.Decide(f)
					if decision == Skip {
						return interp.NewNull(), nil
					}
					if decision == Propagate {
						return nil, notFoundDefError(kind, name, path)
					}
					if err := e.reloadDef(ctx, siteFile, name, kind, line, env, st); err != nil {
						return nil, err
					}
					continue
				}

				v, err := e.eval.Call(ctx, st.current, args)
				if err == nil {
					return v, nil
				}
				if ctx.Err() != nil {
					return nil, err
				}
				f := Failure{Kind: ExecutionFailure, Path: path, Origin: MakeOrigin(siteFile), Err: err}
				decision := e.policy.Decide(f)
				if decision == Skip {
					return interp.NewNull(), nil
				}
				if decision == Propagate {
					return nil, err
				}
				if rerr := e.reloadDef(ctx, siteFile, name, kind, line, env, st); rerr != nil {
					return nil, rerr
				}
			}
		},
	}
}

// reloadDef re-reads the site file, isolates the named declaration, and
// executes it into a copy of the defining scope so the fresh definition
// cannot overwrite the public wrapper. A declaration that has gone missing
// keeps the previous version; mid-edit source is a normal condition here.
func (e *Engine) reloadDef(ctx context.Context, siteFile, name string, kind ConstructKind, lineHint int, env *interp.Env, st *defState) error {
	path := RealPath(siteFile)
	origin := MakeOrigin(siteFile)

	prog, err := e.parseUntilSuccessful(ctx, path, origin)
	if err != nil {
		return err
	}
	reduced, found := isolateDef(prog, name, kind, lineHint)
	if !found {
		return nil
	}

	scope := env.Copy()
	if err := e.eval.ExecIn(ctx, reduced, scope); err != nil {
		return err
	}
	v, ok := scope.Get(name)
	if !ok {
		return nil
	}
	st.current = v
	st.reloads++
	return nil
}
