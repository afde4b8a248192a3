// Package parser implements the HL language parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram(filename)
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, got '%s'", tokenName(typ), tok.Value), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	cur := p.current().Span
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   cur.StartLine,
		EndCol:    cur.StartCol,
	}
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokLBracket:
		return "'['"
	case lexer.TokRBracket:
		return "']'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokComma:
		return "','"
	case lexer.TokEquals:
		return "'='"
	case lexer.TokIn:
		return "'in'"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokStringLit:
		return "string"
	case lexer.TokIntLit:
		return "integer"
	case lexer.TokEOF:
		return "end of file"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

func (p *parser) parseProgram(filename string) *ast.Program {
	start := ast.Span{File: filename, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1}
	var stmts []ast.Stmt

	for p.peek() != lexer.TokEOF {
		before := p.pos
		stmt := p.parseStmt()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.pos == before {
			// Parse made no progress; skip the offending token to avoid
			// looping forever.
			p.advance()
		}
	}

	return &ast.Program{
		Span:       p.spanFrom(start),
		Statements: stmts,
	}
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokAt:
		return p.parseDecorated()
	case lexer.TokLet:
		return p.parseLetStmt()
	case lexer.TokReturn:
		return p.parseReturnStmt()
	case lexer.TokIf:
		return p.parseIfStmt()
	case lexer.TokFor:
		return p.parseForStmt()
	case lexer.TokFn:
		return p.parseFnDecl(nil)
	case lexer.TokClass:
		return p.parseClassDecl(nil)
	default:
		return p.parseExprOrAssignStmt()
	}
}

// parseDecorated parses one or more @decorator lines followed by a fn or
// class declaration.
func (p *parser) parseDecorated() ast.Stmt {
	var decs []*ast.Decorator
	for p.peek() == lexer.TokAt {
		d := p.parseDecorator()
		if d == nil {
			return nil
		}
		decs = append(decs, d)
	}

	switch p.peek() {
	case lexer.TokFn:
		return p.parseFnDecl(decs)
	case lexer.TokClass:
		return p.parseClassDecl(decs)
	default:
		tok := p.current()
		p.addError(fmt.Sprintf("decorator must precede 'fn' or 'class', got '%s'", tok.Value), &tok.Span)
		return nil
	}
}

func (p *parser) parseDecorator() *ast.Decorator {
	at := p.advance() // @
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	var args []*ast.Arg
	if p.peek() == lexer.TokLParen {
		args = p.parseCallArgs()
	}
	return &ast.Decorator{
		Span: p.spanFrom(at.Span),
		Name: name.Value,
		Args: args,
	}
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.advance() // let
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	value := p.parseExpr()
	return &ast.LetStmt{
		Span:  p.spanFrom(start.Span),
		Name:  name.Value,
		Value: value,
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // return
	var value ast.Expr
	if p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		value = p.parseExpr()
	}
	return &ast.ReturnStmt{
		Span:  p.spanFrom(start.Span),
		Value: value,
	}
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // if
	cond := p.parseExpr()
	thenBody := p.parseBlock()

	var elseBody []ast.Stmt
	if p.peek() == lexer.TokElse {
		p.advance()
		if p.peek() == lexer.TokIf {
			// else-if chain collapses to a single-statement else body
			nested := p.parseIfStmt()
			if nested != nil {
				elseBody = []ast.Stmt{nested}
			}
		} else {
			elseBody = p.parseBlock()
		}
	}

	return &ast.IfStmt{
		Span:     p.spanFrom(start.Span),
		Cond:     cond,
		ThenBody: thenBody,
		ElseBody: elseBody,
	}
}

func (p *parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // for
	target := p.parseTarget()
	if target == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokIn); !ok {
		return nil
	}
	iter := p.parseExpr()
	body := p.parseBlock()
	return &ast.ForStmt{
		Span:   p.spanFrom(start.Span),
		Target: target,
		Iter:   iter,
		Body:   body,
	}
}

// parseTarget parses a binding target: an identifier or a parenthesized
// tuple of targets, nesting arbitrarily.
func (p *parser) parseTarget() ast.Target {
	switch p.peek() {
	case lexer.TokIdent:
		tok := p.advance()
		return &ast.NameTarget{Span: tok.Span, Name: tok.Value}
	case lexer.TokLParen:
		start := p.advance() // (
		var elems []ast.Target
		for p.peek() != lexer.TokRParen {
			elem := p.parseTarget()
			if elem == nil {
				return nil
			}
			elems = append(elems, elem)
			if p.peek() == lexer.TokComma {
				p.advance()
			} else {
				break
			}
		}
		end, ok := p.expect(lexer.TokRParen)
		if !ok {
			return nil
		}
		if len(elems) == 0 {
			p.addError("empty tuple target", &start.Span)
			return nil
		}
		return &ast.TupleTarget{
			Span:  p.spanFromTo(start.Span, end.Span),
			Elems: elems,
		}
	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected binding target, got '%s'", tok.Value), &tok.Span)
		return nil
	}
}

func (p *parser) parseFnDecl(decs []*ast.Decorator) *ast.FnDecl {
	start := p.advance() // fn
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	var params []string
	for p.peek() != lexer.TokRParen {
		param, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		params = append(params, param.Value)
		if p.peek() == lexer.TokComma {
			p.advance()
		} else {
			break
		}
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	body := p.parseBlock()
	sp := start.Span
	if len(decs) > 0 {
		sp = decs[0].Span
	}
	return &ast.FnDecl{
		Span:       p.spanFrom(sp),
		Name:       name.Value,
		Params:     params,
		Body:       body,
		Decorators: decs,
	}
}

func (p *parser) parseClassDecl(decs []*ast.Decorator) *ast.ClassDecl {
	start := p.advance() // class
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	body := p.parseBlock()
	for _, stmt := range body {
		switch stmt.(type) {
		case *ast.FnDecl, *ast.LetStmt:
		default:
			sp := stmt.NodeSpan()
			p.addError("class body may contain only 'fn' and 'let' declarations", &sp)
		}
	}
	sp := start.Span
	if len(decs) > 0 {
		sp = decs[0].Span
	}
	return &ast.ClassDecl{
		Span:       p.spanFrom(sp),
		Name:       name.Value,
		Body:       body,
		Decorators: decs,
	}
}

// parseExprOrAssignStmt parses an expression; if it is followed by '=' the
// expression is reinterpreted as an assignment target.
func (p *parser) parseExprOrAssignStmt() ast.Stmt {
	startSpan := p.current().Span
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}

	if p.peek() == lexer.TokEquals {
		p.advance()
		target := p.exprToTarget(expr)
		if target == nil {
			sp := expr.NodeSpan()
			p.addError("invalid assignment target", &sp)
			return nil
		}
		value := p.parseExpr()
		return &ast.AssignStmt{
			Span:   p.spanFrom(startSpan),
			Target: target,
			Value:  value,
		}
	}

	return &ast.ExprStmt{
		Span: p.spanFrom(startSpan),
		Expr: expr,
	}
}

// exprToTarget converts an already-parsed expression into an assignment
// target, or nil if the expression is not assignable.
func (p *parser) exprToTarget(expr ast.Expr) ast.Target {
	switch e := expr.(type) {
	case *ast.Ident:
		return &ast.NameTarget{Span: e.Span, Name: e.Name}
	case *ast.AttrExpr:
		return &ast.AttrTarget{Span: e.Span, Obj: e.Obj, Name: e.Name}
	case *ast.IndexExpr:
		return &ast.IndexTarget{Span: e.Span, Seq: e.Seq, Index: e.Index}
	case *ast.TupleExpr:
		elems := make([]ast.Target, 0, len(e.Elements))
		for _, el := range e.Elements {
			t := p.exprToTarget(el)
			if t == nil {
				return nil
			}
			elems = append(elems, t)
		}
		return &ast.TupleTarget{Span: e.Span, Elems: elems}
	default:
		return nil
	}
}

func (p *parser) parseBlock() []ast.Stmt {
	if _, ok := p.expect(lexer.TokLBrace); !ok {
		return nil
	}
	var stmts []ast.Stmt
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		before := p.pos
		stmt := p.parseStmt()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(lexer.TokRBrace)
	return stmts
}

// --- expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseComparison()
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokGt:
			op = ast.OpGt
		case lexer.TokLt:
			op = ast.OpLt
		case lexer.TokGtEq:
			op = ast.OpGtEq
		case lexer.TokLtEq:
			op = ast.OpLtEq
		case lexer.TokEqEq:
			op = ast.OpEqEq
		case lexer.TokBangEq:
			op = ast.OpNeq
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for {
		var op ast.BinaryOp
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseUnary() ast.Expr {
	if p.peek() == lexer.TokMinus {
		start := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{
			Span:    p.spanFrom(start.Span),
			Op:      ast.OpNeg,
			Operand: operand,
		}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of call,
// index, and attribute suffixes.
func (p *parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}
	for {
		switch p.peek() {
		case lexer.TokLParen:
			args := p.parseCallArgs()
			expr = &ast.CallExpr{
				Span:   p.spanFrom(expr.NodeSpan()),
				Callee: expr,
				Args:   args,
			}
		case lexer.TokLBracket:
			p.advance()
			index := p.parseExpr()
			end, ok := p.expect(lexer.TokRBracket)
			if !ok {
				return expr
			}
			expr = &ast.IndexExpr{
				Span:  p.spanFromTo(expr.NodeSpan(), end.Span),
				Seq:   expr,
				Index: index,
			}
		case lexer.TokDot:
			p.advance()
			name, ok := p.expect(lexer.TokIdent)
			if !ok {
				return expr
			}
			expr = &ast.AttrExpr{
				Span: p.spanFromTo(expr.NodeSpan(), name.Span),
				Obj:  expr,
				Name: name.Value,
			}
		default:
			return expr
		}
	}
}

// parseCallArgs parses '(' arg, ... ')'. An argument of the shape
// ident '=' expr is a keyword argument; '==' never matches because the
// lexer emits it as one token.
func (p *parser) parseCallArgs() []*ast.Arg {
	p.advance() // (
	var args []*ast.Arg
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		argStart := p.current().Span
		var arg *ast.Arg
		if p.peek() == lexer.TokIdent && p.peekAt(1) == lexer.TokEquals {
			name := p.advance()
			p.advance() // =
			value := p.parseExpr()
			arg = &ast.Arg{Span: p.spanFrom(argStart), Name: name.Value, Value: value}
		} else {
			value := p.parseExpr()
			arg = &ast.Arg{Span: p.spanFrom(argStart), Value: value}
		}
		args = append(args, arg)
		if p.peek() == lexer.TokComma {
			p.advance()
		} else {
			break
		}
	}
	p.expect(lexer.TokRParen)
	return args
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokIntLit:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid integer literal '%s'", tok.Value), &tok.Span)
			return nil
		}
		return &ast.IntLiteral{Span: tok.Span, Value: v}

	case lexer.TokFloatLit:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid float literal '%s'", tok.Value), &tok.Span)
			return nil
		}
		return &ast.FloatLiteral{Span: tok.Span, Value: v}

	case lexer.TokStringLit:
		p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokNull:
		p.advance()
		return &ast.NullLiteral{Span: tok.Span}

	case lexer.TokIdent:
		p.advance()
		return &ast.Ident{Span: tok.Span, Name: tok.Value}

	case lexer.TokLBracket:
		return p.parseListExpr()

	case lexer.TokLParen:
		return p.parseParenExpr()

	default:
		p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
		p.advance()
		return nil
	}
}

func (p *parser) parseListExpr() ast.Expr {
	start := p.advance() // [
	var elems []ast.Expr
	for p.peek() != lexer.TokRBracket && p.peek() != lexer.TokEOF {
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
		if p.peek() == lexer.TokComma {
			p.advance()
		} else {
			break
		}
	}
	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	return &ast.ListExpr{
		Span:     p.spanFromTo(start.Span, end.Span),
		Elements: elems,
	}
}

// parseParenExpr parses grouping parens or a tuple expression. A single
// expression with no trailing comma is plain grouping.
func (p *parser) parseParenExpr() ast.Expr {
	start := p.advance() // (
	if p.peek() == lexer.TokRParen {
		tok := p.current()
		p.addError("empty parentheses", &tok.Span)
		p.advance()
		return nil
	}

	first := p.parseExpr()
	if first == nil {
		return nil
	}

	if p.peek() == lexer.TokRParen {
		p.advance()
		return first
	}

	elems := []ast.Expr{first}
	for p.peek() == lexer.TokComma {
		p.advance()
		if p.peek() == lexer.TokRParen {
			break // trailing comma
		}
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil
	}
	return &ast.TupleExpr{
		Span:     p.spanFromTo(start.Span, end.Span),
		Elements: elems,
	}
}
