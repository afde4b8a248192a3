// Package ast defines the HL language AST node types.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Target is the interface for assignment and loop targets ---
//
// Targets nest arbitrarily: a NameTarget binds one name, a TupleTarget
// distributes a sequence value across its element targets.

type Target interface {
	Node
	targetNode() // sealed marker
}

type NameTarget struct {
	Span Span
	Name string
}

func (n *NameTarget) Kind() string   { return "NameTarget" }
func (n *NameTarget) NodeSpan() Span { return n.Span }
func (n *NameTarget) targetNode()    {}

type TupleTarget struct {
	Span  Span
	Elems []Target
}

func (n *TupleTarget) Kind() string   { return "TupleTarget" }
func (n *TupleTarget) NodeSpan() Span { return n.Span }
func (n *TupleTarget) targetNode()    {}

// AttrTarget assigns through an attribute access, e.g. self.count = v.
type AttrTarget struct {
	Span Span
	Obj  Expr
	Name string
}

func (n *AttrTarget) Kind() string   { return "AttrTarget" }
func (n *AttrTarget) NodeSpan() Span { return n.Span }
func (n *AttrTarget) targetNode()    {}

// IndexTarget assigns through an index access, e.g. xs[i] = v.
type IndexTarget struct {
	Span  Span
	Seq   Expr
	Index Expr
}

func (n *IndexTarget) Kind() string   { return "IndexTarget" }
func (n *IndexTarget) NodeSpan() Span { return n.Span }
func (n *IndexTarget) targetNode()    {}

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type FloatLiteral struct {
	Span  Span
	Value float64
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

type NullLiteral struct {
	Span Span
}

func (n *NullLiteral) Kind() string   { return "NullLiteral" }
func (n *NullLiteral) NodeSpan() Span { return n.Span }
func (n *NullLiteral) exprNode()      {}

// --- Identifiers ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// --- Collections ---

type ListExpr struct {
	Span     Span
	Elements []Expr
}

func (n *ListExpr) Kind() string   { return "ListExpr" }
func (n *ListExpr) NodeSpan() Span { return n.Span }
func (n *ListExpr) exprNode()      {}

// TupleExpr is a parenthesized sequence expression, e.g. (a, (b, c)).
type TupleExpr struct {
	Span     Span
	Elements []Expr
}

func (n *TupleExpr) Kind() string   { return "TupleExpr" }
func (n *TupleExpr) NodeSpan() Span { return n.Span }
func (n *TupleExpr) exprNode()      {}

// --- Access Expressions ---

type IndexExpr struct {
	Span  Span
	Seq   Expr
	Index Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

type AttrExpr struct {
	Span Span
	Obj  Expr
	Name string
}

func (n *AttrExpr) Kind() string   { return "AttrExpr" }
func (n *AttrExpr) NodeSpan() Span { return n.Span }
func (n *AttrExpr) exprNode()      {}

// --- Calls ---

// Arg is one call argument. Name is empty for positional arguments.
type Arg struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *Arg) Kind() string   { return "Arg" }
func (n *Arg) NodeSpan() Span { return n.Span }

type CallExpr struct {
	Span   Span
	Callee Expr
	Args   []*Arg
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

// --- Binary & Unary Expressions ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

// --- Statements ---

type LetStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *LetStmt) Kind() string   { return "LetStmt" }
func (n *LetStmt) NodeSpan() Span { return n.Span }
func (n *LetStmt) stmtNode()      {}

type AssignStmt struct {
	Span   Span
	Target Target
	Value  Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

type IfStmt struct {
	Span     Span
	Cond     Expr
	ThenBody []Stmt
	ElseBody []Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type ForStmt struct {
	Span   Span
	Target Target
	Iter   Expr
	Body   []Stmt
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

// Decorator is an @name or @name(args) annotation preceding a declaration.
type Decorator struct {
	Span Span
	Name string
	Args []*Arg
}

func (n *Decorator) Kind() string   { return "Decorator" }
func (n *Decorator) NodeSpan() Span { return n.Span }

type FnDecl struct {
	Span       Span
	Name       string
	Params     []string
	Body       []Stmt
	Decorators []*Decorator
}

func (n *FnDecl) Kind() string   { return "FnDecl" }
func (n *FnDecl) NodeSpan() Span { return n.Span }
func (n *FnDecl) stmtNode()      {}

// ClassDecl declares a class. The body holds method FnDecls and field
// default LetStmts.
type ClassDecl struct {
	Span       Span
	Name       string
	Body       []Stmt
	Decorators []*Decorator
}

func (n *ClassDecl) Kind() string   { return "ClassDecl" }
func (n *ClassDecl) NodeSpan() Span { return n.Span }
func (n *ClassDecl) stmtNode()      {}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

// HasDecorator reports whether a decorator with the given name is present.
func HasDecorator(decs []*Decorator, name string) bool {
	for _, d := range decs {
		if d.Name == name {
			return true
		}
	}
	return false
}

// StripDecorator returns the decorator list with every decorator of the
// given name removed.
func StripDecorator(decs []*Decorator, name string) []*Decorator {
	out := decs[:0:0]
	for _, d := range decs {
		if d.Name != name {
			out = append(out, d)
		}
	}
	return out
}
