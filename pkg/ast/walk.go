package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Walk traverses the tree rooted at node in depth-first preorder, calling
// fn for each node. If fn returns false the node's children are skipped.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		walkStmts(n.Statements, fn)
	case *LetStmt:
		Walk(n.Value, fn)
	case *AssignStmt:
		Walk(n.Target, fn)
		Walk(n.Value, fn)
	case *ExprStmt:
		Walk(n.Expr, fn)
	case *ReturnStmt:
		Walk(n.Value, fn)
	case *IfStmt:
		Walk(n.Cond, fn)
		walkStmts(n.ThenBody, fn)
		walkStmts(n.ElseBody, fn)
	case *ForStmt:
		Walk(n.Target, fn)
		Walk(n.Iter, fn)
		walkStmts(n.Body, fn)
	case *FnDecl:
		for _, d := range n.Decorators {
			Walk(d, fn)
		}
		walkStmts(n.Body, fn)
	case *ClassDecl:
		for _, d := range n.Decorators {
			Walk(d, fn)
		}
		walkStmts(n.Body, fn)
	case *Decorator:
		for _, a := range n.Args {
			Walk(a.Value, fn)
		}
	case *TupleTarget:
		for _, t := range n.Elems {
			Walk(t, fn)
		}
	case *AttrTarget:
		Walk(n.Obj, fn)
	case *IndexTarget:
		Walk(n.Seq, fn)
		Walk(n.Index, fn)
	case *ListExpr:
		for _, e := range n.Elements {
			Walk(e, fn)
		}
	case *TupleExpr:
		for _, e := range n.Elements {
			Walk(e, fn)
		}
	case *IndexExpr:
		Walk(n.Seq, fn)
		Walk(n.Index, fn)
	case *AttrExpr:
		Walk(n.Obj, fn)
	case *CallExpr:
		Walk(n.Callee, fn)
		for _, a := range n.Args {
			Walk(a.Value, fn)
		}
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryExpr:
		Walk(n.Operand, fn)
	}
}

func walkStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Walk(s, fn)
	}
}

// Dump renders a node as a canonical structural string. Spans are excluded,
// so two parses of the same text dump identically regardless of where the
// text sits in the file. Used to fingerprint constructs across edits.
func Dump(node Node) string {
	var b strings.Builder
	dump(&b, node)
	return b.String()
}

func dump(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case nil:
		b.WriteString("nil")
	case *NameTarget:
		b.WriteString("Name(")
		b.WriteString(n.Name)
		b.WriteByte(')')
	case *TupleTarget:
		b.WriteString("Tuple(")
		for i, t := range n.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			dump(b, t)
		}
		b.WriteByte(')')
	case *AttrTarget:
		b.WriteString("AttrTarget(")
		dump(b, n.Obj)
		b.WriteByte(',')
		b.WriteString(n.Name)
		b.WriteByte(')')
	case *IndexTarget:
		b.WriteString("IndexTarget(")
		dump(b, n.Seq)
		b.WriteByte(',')
		dump(b, n.Index)
		b.WriteByte(')')
	case *IntLiteral:
		b.WriteString("Int(")
		b.WriteString(strconv.FormatInt(n.Value, 10))
		b.WriteByte(')')
	case *FloatLiteral:
		b.WriteString("Float(")
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
		b.WriteByte(')')
	case *BoolLiteral:
		b.WriteString("Bool(")
		b.WriteString(strconv.FormatBool(n.Value))
		b.WriteByte(')')
	case *StrLiteral:
		b.WriteString("Str(")
		b.WriteString(strconv.Quote(n.Value))
		b.WriteByte(')')
	case *NullLiteral:
		b.WriteString("Null")
	case *Ident:
		b.WriteString("Ident(")
		b.WriteString(n.Name)
		b.WriteByte(')')
	case *ListExpr:
		b.WriteString("List(")
		dumpExprs(b, n.Elements)
		b.WriteByte(')')
	case *TupleExpr:
		b.WriteString("TupleExpr(")
		dumpExprs(b, n.Elements)
		b.WriteByte(')')
	case *IndexExpr:
		b.WriteString("Index(")
		dump(b, n.Seq)
		b.WriteByte(',')
		dump(b, n.Index)
		b.WriteByte(')')
	case *AttrExpr:
		b.WriteString("Attr(")
		dump(b, n.Obj)
		b.WriteByte(',')
		b.WriteString(n.Name)
		b.WriteByte(')')
	case *CallExpr:
		b.WriteString("Call(")
		dump(b, n.Callee)
		b.WriteString(",[")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			if a.Name != "" {
				b.WriteString(a.Name)
				b.WriteByte('=')
			}
			dump(b, a.Value)
		}
		b.WriteString("])")
	case *BinaryExpr:
		b.WriteString("Binary(")
		b.WriteString(string(n.Op))
		b.WriteByte(',')
		dump(b, n.Left)
		b.WriteByte(',')
		dump(b, n.Right)
		b.WriteByte(')')
	case *UnaryExpr:
		b.WriteString("Unary(")
		b.WriteString(string(n.Op))
		b.WriteByte(',')
		dump(b, n.Operand)
		b.WriteByte(')')
	default:
		// Statements never appear inside fingerprints; fall back to the
		// node kind so Dump stays total.
		fmt.Fprintf(b, "%s", node.Kind())
	}
}

func dumpExprs(b *strings.Builder, exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			b.WriteByte(',')
		}
		dump(b, e)
	}
}

// TargetNames returns the identifier names bound by a target, left to right,
// descending into nested tuple targets.
func TargetNames(t Target) []string {
	var names []string
	var collect func(Target)
	collect = func(t Target) {
		switch n := t.(type) {
		case *NameTarget:
			names = append(names, n.Name)
		case *TupleTarget:
			for _, e := range n.Elems {
				collect(e)
			}
		}
	}
	collect(t)
	return names
}
