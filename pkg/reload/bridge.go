package reload

import (
	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/interp"
)

// BridgeName picks a binding name guaranteed absent from env: the longest
// visible name with "0" appended is strictly longer than every existing
// name, so it cannot collide.
func BridgeName(env *interp.Env) string {
	longest := ""
	for _, name := range env.Names() {
		if len(name) > len(longest) {
			longest = name
		}
	}
	return longest + "0"
}

// unpackProgram synthesizes the one-statement program 'target = bridge'.
// Executed in the caller's live scope it distributes the tick's value across
// the loop's iteration variables, nested tuples included.
func unpackProgram(target ast.Target, bridge string) *ast.Program {
	sp := target.NodeSpan()
	return &ast.Program{
		Span: sp,
		Statements: []ast.Stmt{
			&ast.AssignStmt{
				Span:   sp,
				Target: target,
				Value:  &ast.Ident{Span: sp, Name: bridge},
			},
		},
	}
}
