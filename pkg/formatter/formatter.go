// Package formatter implements the HL source code formatter.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/hotloop/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpEqEq: 1, ast.OpNeq: 1,
	ast.OpGt: 2, ast.OpLt: 2, ast.OpGtEq: 2, ast.OpLtEq: 2,
	ast.OpAdd: 3, ast.OpSub: 3,
	ast.OpMul: 4, ast.OpDiv: 4, ast.OpMod: 4,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints an HL AST back to source code. Comments are not
// preserved; callers should check HasComments before rewriting in place.
func Format(program *ast.Program) string {
	var lines []string
	for i, s := range program.Statements {
		if i > 0 && isDecl(s) {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(s, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

func isDecl(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.FnDecl, *ast.ClassDecl:
		return true
	}
	return false
}

// HasComments reports whether source contains a comment outside a string
// literal.
func HasComments(source string) bool {
	inString := false
	escaped := false
	for _, ch := range source {
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case ch == '\n':
			inString = false
		case ch == '#' && !inString:
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch n := s.(type) {
	case *ast.LetStmt:
		return fmt.Sprintf("%slet %s = %s", prefix, n.Name, formatExpr(n.Value))
	case *ast.AssignStmt:
		return fmt.Sprintf("%s%s = %s", prefix, formatTarget(n.Target), formatExpr(n.Value))
	case *ast.ExprStmt:
		return prefix + formatExpr(n.Expr)
	case *ast.ReturnStmt:
		if n.Value == nil {
			return prefix + "return"
		}
		return fmt.Sprintf("%sreturn %s", prefix, formatExpr(n.Value))
	case *ast.IfStmt:
		return formatIf(n, depth)
	case *ast.ForStmt:
		return fmt.Sprintf("%sfor %s in %s {\n%s%s}",
			prefix, formatTarget(n.Target), formatExpr(n.Iter), formatBlock(n.Body, depth+1), prefix)
	case *ast.FnDecl:
		var b strings.Builder
		for _, d := range n.Decorators {
			b.WriteString(prefix + formatDecorator(d) + "\n")
		}
		fmt.Fprintf(&b, "%sfn %s(%s) {\n%s%s}",
			prefix, n.Name, strings.Join(n.Params, ", "), formatBlock(n.Body, depth+1), prefix)
		return b.String()
	case *ast.ClassDecl:
		var b strings.Builder
		for _, d := range n.Decorators {
			b.WriteString(prefix + formatDecorator(d) + "\n")
		}
		fmt.Fprintf(&b, "%sclass %s {\n%s%s}",
			prefix, n.Name, formatBlock(n.Body, depth+1), prefix)
		return b.String()
	default:
		return prefix + "# <unformattable statement>"
	}
}

func formatIf(n *ast.IfStmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	out := fmt.Sprintf("%sif %s {\n%s%s}", prefix, formatExpr(n.Cond), formatBlock(n.ThenBody, depth+1), prefix)
	if len(n.ElseBody) == 0 {
		return out
	}
	// Collapse a lone nested if into 'else if'.
	if len(n.ElseBody) == 1 {
		if nested, ok := n.ElseBody[0].(*ast.IfStmt); ok {
			return out + " else " + strings.TrimPrefix(formatIf(nested, depth), prefix)
		}
	}
	return out + fmt.Sprintf(" else {\n%s%s}", formatBlock(n.ElseBody, depth+1), prefix)
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(formatStmt(s, depth))
		b.WriteString("\n")
	}
	return b.String()
}

func formatDecorator(d *ast.Decorator) string {
	if len(d.Args) == 0 {
		return "@" + d.Name
	}
	return fmt.Sprintf("@%s(%s)", d.Name, formatArgs(d.Args))
}

func formatTarget(t ast.Target) string {
	switch n := t.(type) {
	case *ast.NameTarget:
		return n.Name
	case *ast.TupleTarget:
		parts := make([]string, len(n.Elems))
		for i, e := range n.Elems {
			parts[i] = formatTarget(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.AttrTarget:
		return formatExpr(n.Obj) + "." + n.Name
	case *ast.IndexTarget:
		return formatExpr(n.Seq) + "[" + formatExpr(n.Index) + "]"
	default:
		return "_"
	}
}

func formatArgs(args []*ast.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a.Name != "" {
			parts[i] = a.Name + "=" + formatExpr(a.Value)
		} else {
			parts[i] = formatExpr(a.Value)
		}
	}
	return strings.Join(parts, ", ")
}

func formatExpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(n.Value, 10)
	case *ast.FloatLiteral:
		return formatFloat(n.Value)
	case *ast.BoolLiteral:
		return strconv.FormatBool(n.Value)
	case *ast.StrLiteral:
		return strconv.Quote(n.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.Ident:
		return n.Name
	case *ast.ListExpr:
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			parts[i] = formatExpr(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ast.TupleExpr:
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			parts[i] = formatExpr(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.IndexExpr:
		return formatExpr(n.Seq) + "[" + formatExpr(n.Index) + "]"
	case *ast.AttrExpr:
		return formatExpr(n.Obj) + "." + n.Name
	case *ast.CallExpr:
		return formatExpr(n.Callee) + "(" + formatArgs(n.Args) + ")"
	case *ast.BinaryExpr:
		left := formatExpr(n.Left)
		if needsParens(n.Left, n.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(n.Right)
		if needsParens(n.Right, n.Op, true) {
			right = "(" + right + ")"
		}
		return fmt.Sprintf("%s %s %s", left, n.Op, right)
	case *ast.UnaryExpr:
		operand := formatExpr(n.Operand)
		if _, ok := n.Operand.(*ast.BinaryExpr); ok {
			operand = "(" + operand + ")"
		}
		return string(n.Op) + operand
	default:
		return "<expr>"
	}
}

func formatFloat(value float64) string {
	s := strconv.FormatFloat(value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
