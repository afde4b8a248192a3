package reload

import (
	"fmt"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/interp"
)

// ConstructKind identifies what kind of marked construct is being reloaded.
type ConstructKind int

const (
	KindLoop ConstructKind = iota
	KindFunction
	KindClass
)

func (k ConstructKind) String() string {
	switch k {
	case KindLoop:
		return "loop"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	default:
		return "construct"
	}
}

// lookupError reports a failed construct lookup in freshly parsed source.
type lookupError struct {
	kind FailureKind
	code string
	msg  string
}

func (e *lookupError) Error() string { return e.msg }

// loopFingerprint identifies a marked loop across edits: the structural dump
// of its target and iterable, independent of where the loop sits in the file.
func loopFingerprint(loop *ast.ForStmt) string {
	return ast.Dump(loop.Target) + "__" + ast.Dump(loop.Iter)
}

// isMarkedLoop reports whether a for statement iterates over a direct call
// to the reload marker.
func isMarkedLoop(loop *ast.ForStmt) bool {
	call, ok := loop.Iter.(*ast.CallExpr)
	if !ok {
		return false
	}
	ident, ok := call.Callee.(*ast.Ident)
	return ok && ident.Name == interp.MarkerName
}

// isolateLoop finds the marked loop in a freshly parsed program and reduces
// the program to the loop's body. A candidate matches by fingerprint, or by
// the recorded call-site line, which also covers the first tick before any
// fingerprint exists. Exactly one candidate must match: loop state depends
// on correct identification, so zero or several is an error, never a guess.
func isolateLoop(prog *ast.Program, fingerprint string, line int) (*ast.Program, ast.Target, string, error) {
	var candidates []*ast.ForStmt
	ast.Walk(prog, func(n ast.Node) bool {
		loop, ok := n.(*ast.ForStmt)
		if !ok || !isMarkedLoop(loop) {
			return true
		}
		if (fingerprint != "" && loopFingerprint(loop) == fingerprint) || loop.Span.StartLine == line {
			candidates = append(candidates, loop)
		}
		return true
	})

	if len(candidates) > 1 {
		return nil, nil, "", &lookupError{
			kind: AmbiguousConstruct,
			code: diagnostics.EReloadAmbiguous,
			msg:  "the marked loop is ambiguous: use reloading once per line and keep that line unique within the file",
		}
	}
	if len(candidates) < 1 {
		return nil, nil, "", &lookupError{
			kind: ConstructNotFound,
			code: diagnostics.EReloadNotFound,
			msg:  "could not locate the marked loop: make sure the line that uses reloading does not change between reloads",
		}
	}

	loop := candidates[0]
	reduced := &ast.Program{Span: prog.Span, Statements: loop.Body}
	return reduced, loop.Target, loopFingerprint(loop), nil
}

// isolateDef finds the marked declaration named name and reduces the program
// to that single declaration, with the marker decorator stripped so the
// reloaded version does not wrap itself again. With several candidates the
// one nearest lineHint wins. A missing declaration is not an error here;
// callers keep the previous version through transient editor states.
func isolateDef(prog *ast.Program, name string, kind ConstructKind, lineHint int) (*ast.Program, bool) {
	type candidate struct {
		stmt ast.Stmt
		line int
	}
	var candidates []candidate

	ast.Walk(prog, func(n ast.Node) bool {
		switch d := n.(type) {
		case *ast.FnDecl:
			if kind == KindFunction && d.Name == name && ast.HasDecorator(d.Decorators, interp.MarkerName) {
				candidates = append(candidates, candidate{stmt: d, line: d.Span.StartLine})
			}
		case *ast.ClassDecl:
			if kind == KindClass && d.Name == name && ast.HasDecorator(d.Decorators, interp.MarkerName) {
				candidates = append(candidates, candidate{stmt: d, line: d.Span.StartLine})
			}
		}
		return true
	})

	if len(candidates) == 0 {
		return nil, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if absDistance(c.line, lineHint) < absDistance(best.line, lineHint) {
			best = c
		}
	}

	switch d := best.stmt.(type) {
	case *ast.FnDecl:
		d.Decorators = ast.StripDecorator(d.Decorators, interp.MarkerName)
	case *ast.ClassDecl:
		d.Decorators = ast.StripDecorator(d.Decorators, interp.MarkerName)
	}

	reduced := &ast.Program{Span: prog.Span, Statements: []ast.Stmt{best.stmt}}
	return reduced, true
}

func absDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// notFoundDefError builds the hard error for a declaration that never
// appeared, used when the policy propagates.
func notFoundDefError(kind ConstructKind, name, path string) *interp.RuntimeError {
	return &interp.RuntimeError{
		Code:    diagnostics.EReloadNotFound,
		Message: fmt.Sprintf("could not locate %s '%s' in %s: keep the marked declaration present while editing", kind, name, path),
	}
}
