// Package validator implements static checks on HL programs, catching
// reload marker misuse before anything runs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/interp"
)

// Validate checks a parsed program and returns every diagnostic found.
func Validate(prog *ast.Program) []diagnostics.Diagnostic {
	v := &validator{}
	v.checkMarkerPositions(prog)
	v.checkDuplicateMarkedLoops(prog)
	v.checkNestedDecorated(prog)
	return v.diags
}

type validator struct {
	diags []diagnostics.Diagnostic
}

func (v *validator) add(code, msg string, span ast.Span) {
	sp := span
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &sp, ""))
}

// checkMarkerPositions flags the marker name used as a bare value. The
// marker only means something called or as a decorator; passing it around
// uncalled silently does nothing at runtime.
func (v *validator) checkMarkerPositions(prog *ast.Program) {
	callees := make(map[*ast.Ident]bool)
	ast.Walk(prog, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if ident, ok := call.Callee.(*ast.Ident); ok {
				callees[ident] = true
			}
		}
		return true
	})
	ast.Walk(prog, func(n ast.Node) bool {
		if ident, ok := n.(*ast.Ident); ok {
			if ident.Name == interp.MarkerName && !callees[ident] {
				v.add(diagnostics.EMarkerPosition,
					fmt.Sprintf("'%s' must be called, as in '%s(seq)' or '@%s'",
						interp.MarkerName, interp.MarkerName, interp.MarkerName),
					ident.Span)
			}
		}
		return true
	})
}

// checkDuplicateMarkedLoops flags two marked loops that would fingerprint
// identically. The engine refuses such loops at runtime; catching them
// statically saves a surprise mid-run.
func (v *validator) checkDuplicateMarkedLoops(prog *ast.Program) {
	seen := make(map[string]ast.Span)
	ast.Walk(prog, func(n ast.Node) bool {
		loop, ok := n.(*ast.ForStmt)
		if !ok || !isMarkedLoop(loop) {
			return true
		}
		fp := ast.Dump(loop.Target) + "__" + ast.Dump(loop.Iter)
		if first, dup := seen[fp]; dup {
			v.add(diagnostics.EDupMarkedLoop,
				fmt.Sprintf("marked loop duplicates the one at line %d: identical loops cannot be told apart across reloads", first.StartLine),
				loop.Span)
		} else {
			seen[fp] = loop.Span
		}
		return true
	})
}

// checkNestedDecorated flags marked declarations nested inside functions.
// A nested declaration rebinds a name in an enclosing call frame the engine
// cannot reach back into.
func (v *validator) checkNestedDecorated(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		v.walkNested(stmt, false)
	}
}

func (v *validator) walkNested(stmt ast.Stmt, inFn bool) {
	switch d := stmt.(type) {
	case *ast.FnDecl:
		if inFn && ast.HasDecorator(d.Decorators, interp.MarkerName) {
			v.add(diagnostics.ENestedDecorated,
				fmt.Sprintf("@%s is not supported on declarations nested inside functions", interp.MarkerName),
				d.Span)
		}
		for _, s := range d.Body {
			v.walkNested(s, true)
		}
	case *ast.ClassDecl:
		if inFn && ast.HasDecorator(d.Decorators, interp.MarkerName) {
			v.add(diagnostics.ENestedDecorated,
				fmt.Sprintf("@%s is not supported on declarations nested inside functions", interp.MarkerName),
				d.Span)
		}
		for _, s := range d.Body {
			v.walkNested(s, inFn)
		}
	case *ast.IfStmt:
		for _, s := range d.ThenBody {
			v.walkNested(s, inFn)
		}
		for _, s := range d.ElseBody {
			v.walkNested(s, inFn)
		}
	case *ast.ForStmt:
		for _, s := range d.Body {
			v.walkNested(s, inFn)
		}
	}
}

func isMarkedLoop(loop *ast.ForStmt) bool {
	call, ok := loop.Iter.(*ast.CallExpr)
	if !ok {
		return false
	}
	ident, ok := call.Callee.(*ast.Ident)
	return ok && ident.Name == interp.MarkerName
}
