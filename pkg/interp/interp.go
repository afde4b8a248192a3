package interp

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
)

// RuntimeError represents a runtime error during HL execution.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

func errAt(code, msg string, span ast.Span) *RuntimeError {
	sp := span
	return &RuntimeError{Code: code, Message: msg, Span: &sp}
}

// returnSignal unwinds a function body. It never escapes callValue.
type returnSignal struct {
	value Value
}

func (*returnSignal) Error() string { return "return outside function" }

// ReloadOpts carries the marker options captured at a reload site.
type ReloadOpts struct {
	Every   int
	Forever bool
}

// Reloader is the live-reload engine capability the interpreter routes
// marked constructs through. Implemented outside this package and attached
// with SetReloader.
type Reloader interface {
	// RunLoop drives a marked for-loop: every tick re-reads the loop's
	// source file and executes the fresh body in env.
	RunLoop(ctx context.Context, loop *ast.ForStmt, iter Iterator, opts ReloadOpts, env *Env) error
	// WrapFunction returns a callable that re-reads the declaration before
	// invocations according to opts.
	WrapFunction(decl *ast.FnDecl, env *Env, opts ReloadOpts) (Value, error)
	// WrapClass returns a constructor that re-reads the class declaration
	// before constructions according to opts.
	WrapClass(decl *ast.ClassDecl, env *Env, opts ReloadOpts) (Value, error)
}

// loopHandle is the payload of a HandleReloadLoop value.
type loopHandle struct {
	iter Iterator
	opts ReloadOpts
}

// Interp evaluates HL programs.
type Interp struct {
	Stdout       io.Writer
	builtins     map[string]*Builtin
	reloader     Reloader
	ctx          context.Context
	defaultEvery int
}

// Option configures an Interp.
type Option func(*Interp)

// WithStdout directs print output to w.
func WithStdout(w io.Writer) Option {
	return func(ip *Interp) { ip.Stdout = w }
}

// WithDefaultEvery sets the reload sampling interval used when a marker
// site does not pass its own 'every'.
func WithDefaultEvery(n int) Option {
	return func(ip *Interp) {
		if n >= 1 {
			ip.defaultEvery = n
		}
	}
}

// New creates an interpreter with the standard builtins registered.
func New(opts ...Option) *Interp {
	ip := &Interp{
		Stdout:       os.Stdout,
		ctx:          context.Background(),
		defaultEvery: 1,
	}
	ip.builtins = standardBuiltins()
	for _, opt := range opts {
		opt(ip)
	}
	return ip
}

// Context returns the context of the evaluation in progress. Builtins run
// inside an Run/ExecIn/Call frame, so this is never nil for them.
func (ip *Interp) Context() context.Context {
	return ip.ctx
}

// SetReloader attaches the live-reload engine. Without one, reload markers
// degrade to plain declarations and the reloading builtin errors when called.
func (ip *Interp) SetReloader(r Reloader) {
	ip.reloader = r
}

// GlobalEnv creates a fresh top-level environment with builtins bound.
func (ip *Interp) GlobalEnv() *Env {
	env := NewEnv(nil)
	for name, b := range ip.builtins {
		env.SetLocal(name, b)
	}
	return env
}

// Run executes a program in env. Equivalent to ExecIn; both exist because
// callers read differently at the top level versus inside the engine.
func (ip *Interp) Run(ctx context.Context, prog *ast.Program, env *Env) error {
	return ip.ExecIn(ctx, prog, env)
}

// ExecIn executes a program's statements directly inside env, without
// opening a new scope. This is the primitive the reload engine uses to run
// freshly isolated code against a live caller scope.
func (ip *Interp) ExecIn(ctx context.Context, prog *ast.Program, env *Env) error {
	prev := ip.ctx
	ip.ctx = ctx
	defer func() { ip.ctx = prev }()

	err := ip.evalStmts(prog.Statements, env)
	if _, ok := err.(*returnSignal); ok {
		return errAt(diagnostics.EParse, "return outside function", prog.Span)
	}
	return err
}

// EvalIn evaluates a single expression inside env, for REPL-style use.
func (ip *Interp) EvalIn(ctx context.Context, expr ast.Expr, env *Env) (Value, error) {
	prev := ip.ctx
	ip.ctx = ctx
	defer func() { ip.ctx = prev }()
	return ip.evalExpr(expr, env)
}

func (ip *Interp) evalStmts(stmts []ast.Stmt, env *Env) error {
	for _, stmt := range stmts {
		if err := ip.evalStmt(stmt, env); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interp) evalStmt(stmt ast.Stmt, env *Env) error {
	switch n := stmt.(type) {
	case *ast.LetStmt:
		v, err := ip.evalExpr(n.Value, env)
		if err != nil {
			return err
		}
		env.SetLocal(n.Name, v)
		return nil

	case *ast.AssignStmt:
		v, err := ip.evalExpr(n.Value, env)
		if err != nil {
			return err
		}
		return ip.assign(n.Target, v, env)

	case *ast.ExprStmt:
		_, err := ip.evalExpr(n.Expr, env)
		return err

	case *ast.ReturnStmt:
		var v Value = Null{}
		if n.Value != nil {
			var err error
			v, err = ip.evalExpr(n.Value, env)
			if err != nil {
				return err
			}
		}
		return &returnSignal{value: v}

	case *ast.IfStmt:
		cond, err := ip.evalExpr(n.Cond, env)
		if err != nil {
			return err
		}
		if Truthy(cond) {
			return ip.evalStmts(n.ThenBody, env)
		}
		return ip.evalStmts(n.ElseBody, env)

	case *ast.ForStmt:
		return ip.evalFor(n, env)

	case *ast.FnDecl:
		return ip.evalFnDecl(n, env)

	case *ast.ClassDecl:
		return ip.evalClassDecl(n, env)

	default:
		return errAt(diagnostics.EParse, fmt.Sprintf("cannot execute %s", stmt.Kind()), stmt.NodeSpan())
	}
}

func (ip *Interp) evalFor(n *ast.ForStmt, env *Env) error {
	iterVal, err := ip.evalExpr(n.Iter, env)
	if err != nil {
		return err
	}

	if h, ok := iterVal.(*Handle); ok {
		switch h.HandleKind {
		case HandleReloadLoop:
			lh := h.Data.(*loopHandle)
			return ip.reloader.RunLoop(ip.ctx, n, lh.iter, lh.opts, env)
		case HandleReloadDecorator:
			return errAt(diagnostics.EReloadNoTarget,
				"nothing to iterate over: pass the sequence to reloading, as in 'for x in reloading(seq)'",
				n.Iter.NodeSpan())
		}
	}

	it := Iterate(iterVal)
	if it == nil {
		return errAt(diagnostics.EForNotIterable,
			fmt.Sprintf("cannot iterate over %s", KindName(iterVal)), n.Iter.NodeSpan())
	}

	for {
		if err := ip.ctx.Err(); err != nil {
			return err
		}
		v, ok := it.Next()
		if !ok {
			return nil
		}
		if err := ip.assign(n.Target, v, env); err != nil {
			return err
		}
		if err := ip.evalStmts(n.Body, env); err != nil {
			return err
		}
	}
}

func (ip *Interp) evalFnDecl(n *ast.FnDecl, env *Env) error {
	opts, marked, err := ip.reloadDecoratorOpts(n.Decorators, env)
	if err != nil {
		return err
	}
	if marked && ip.reloader != nil {
		wrapped, err := ip.reloader.WrapFunction(n, env, opts)
		if err != nil {
			return err
		}
		env.SetLocal(n.Name, wrapped)
		return nil
	}
	env.SetLocal(n.Name, &Function{Decl: n, Closure: env})
	return nil
}

func (ip *Interp) evalClassDecl(n *ast.ClassDecl, env *Env) error {
	opts, marked, err := ip.reloadDecoratorOpts(n.Decorators, env)
	if err != nil {
		return err
	}
	if marked && ip.reloader != nil {
		wrapped, err := ip.reloader.WrapClass(n, env, opts)
		if err != nil {
			return err
		}
		env.SetLocal(n.Name, wrapped)
		return nil
	}
	env.SetLocal(n.Name, &Class{Name: n.Name, Decl: n, Closure: env})
	return nil
}

// reloadDecoratorOpts validates a declaration's decorators and extracts the
// reload marker options when present.
func (ip *Interp) reloadDecoratorOpts(decs []*ast.Decorator, env *Env) (ReloadOpts, bool, error) {
	opts := ReloadOpts{Every: ip.defaultEvery}
	marked := false
	for _, d := range decs {
		if d.Name != MarkerName {
			return opts, false, errAt(diagnostics.ECall,
				fmt.Sprintf("unknown decorator '@%s'", d.Name), d.Span)
		}
		marked = true
		for _, a := range d.Args {
			v, err := ip.evalExpr(a.Value, env)
			if err != nil {
				return opts, false, err
			}
			if err := applyReloadKeyword(&opts, a.Name, v, a.Span); err != nil {
				return opts, false, err
			}
		}
	}
	return opts, marked, nil
}

func applyReloadKeyword(opts *ReloadOpts, name string, v Value, span ast.Span) error {
	switch name {
	case "every":
		num, ok := v.(Number)
		if !ok || num.Value < 1 || num.Value != math.Trunc(num.Value) {
			return errAt(diagnostics.EType, "'every' expects a positive integer", span)
		}
		opts.Every = int(num.Value)
	case "forever":
		b, ok := v.(Bool)
		if !ok {
			return errAt(diagnostics.EType, "'forever' expects a bool", span)
		}
		opts.Forever = b.Value
	case "":
		return errAt(diagnostics.ECall, "reloading accepts keyword arguments only after the target", span)
	default:
		return errAt(diagnostics.ECall, fmt.Sprintf("reloading has no keyword '%s'", name), span)
	}
	return nil
}

func (ip *Interp) assign(target ast.Target, v Value, env *Env) error {
	switch t := target.(type) {
	case *ast.NameTarget:
		env.Set(t.Name, v)
		return nil

	case *ast.TupleTarget:
		var items []Value
		switch seq := v.(type) {
		case *Tuple:
			items = seq.Items
		case *List:
			items = seq.Items
		default:
			return errAt(diagnostics.EUnpack,
				fmt.Sprintf("cannot unpack %s into %d targets", KindName(v), len(t.Elems)), t.Span)
		}
		if len(items) != len(t.Elems) {
			return errAt(diagnostics.EUnpack,
				fmt.Sprintf("cannot unpack %d values into %d targets", len(items), len(t.Elems)), t.Span)
		}
		for i, elem := range t.Elems {
			if err := ip.assign(elem, items[i], env); err != nil {
				return err
			}
		}
		return nil

	case *ast.AttrTarget:
		obj, err := ip.evalExpr(t.Obj, env)
		if err != nil {
			return err
		}
		inst, ok := obj.(*Instance)
		if !ok {
			return errAt(diagnostics.EAttr,
				fmt.Sprintf("cannot set attribute on %s", KindName(obj)), t.Span)
		}
		inst.Fields[t.Name] = v
		return nil

	case *ast.IndexTarget:
		seq, err := ip.evalExpr(t.Seq, env)
		if err != nil {
			return err
		}
		list, ok := seq.(*List)
		if !ok {
			return errAt(diagnostics.EType,
				fmt.Sprintf("cannot assign into %s by index", KindName(seq)), t.Span)
		}
		idxVal, err := ip.evalExpr(t.Index, env)
		if err != nil {
			return err
		}
		idx, err := seqIndex(idxVal, len(list.Items), t.Span)
		if err != nil {
			return err
		}
		list.Items[idx] = v
		return nil

	default:
		return errAt(diagnostics.EParse, "invalid assignment target", target.NodeSpan())
	}
}

func seqIndex(v Value, length int, span ast.Span) (int, error) {
	num, ok := v.(Number)
	if !ok || num.Value != math.Trunc(num.Value) {
		return 0, errAt(diagnostics.EType, "index must be an integer", span)
	}
	idx := int(num.Value)
	if idx < 0 || idx >= length {
		return 0, errAt(diagnostics.EIndex,
			fmt.Sprintf("index %d out of range for length %d", idx, length), span)
	}
	return idx, nil
}

func (ip *Interp) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	switch n := expr.(type) {
	case *ast.IntLiteral:
		return Number{Value: float64(n.Value)}, nil
	case *ast.FloatLiteral:
		return Number{Value: n.Value}, nil
	case *ast.BoolLiteral:
		return Bool{Value: n.Value}, nil
	case *ast.StrLiteral:
		return Str{Value: n.Value}, nil
	case *ast.NullLiteral:
		return Null{}, nil

	case *ast.Ident:
		v, ok := env.Get(n.Name)
		if !ok {
			return nil, errAt(diagnostics.EUnbound, fmt.Sprintf("unbound variable '%s'", n.Name), n.Span)
		}
		return v, nil

	case *ast.ListExpr:
		items := make([]Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			v, err := ip.evalExpr(el, env)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return &List{Items: items}, nil

	case *ast.TupleExpr:
		items := make([]Value, 0, len(n.Elements))
		for _, el := range n.Elements {
			v, err := ip.evalExpr(el, env)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return &Tuple{Items: items}, nil

	case *ast.IndexExpr:
		return ip.evalIndex(n, env)

	case *ast.AttrExpr:
		return ip.evalAttr(n, env)

	case *ast.CallExpr:
		return ip.evalCall(n, env)

	case *ast.BinaryExpr:
		return ip.evalBinary(n, env)

	case *ast.UnaryExpr:
		v, err := ip.evalExpr(n.Operand, env)
		if err != nil {
			return nil, err
		}
		num, ok := v.(Number)
		if !ok {
			return nil, errAt(diagnostics.EType,
				fmt.Sprintf("cannot negate %s", KindName(v)), n.Span)
		}
		return Number{Value: -num.Value}, nil

	default:
		return nil, errAt(diagnostics.EParse, fmt.Sprintf("cannot evaluate %s", expr.Kind()), expr.NodeSpan())
	}
}

func (ip *Interp) evalBinary(n *ast.BinaryExpr, env *Env) (Value, error) {
	left, err := ip.evalExpr(n.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := ip.evalExpr(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.OpEqEq:
		return Bool{Value: Equal(left, right)}, nil
	case ast.OpNeq:
		return Bool{Value: !Equal(left, right)}, nil
	}

	// String concatenation and ordering
	if ls, ok := left.(Str); ok {
		rs, ok := right.(Str)
		if !ok {
			return nil, errAt(diagnostics.EType,
				fmt.Sprintf("cannot apply '%s' to string and %s", n.Op, KindName(right)), n.Span)
		}
		switch n.Op {
		case ast.OpAdd:
			return Str{Value: ls.Value + rs.Value}, nil
		case ast.OpGt:
			return Bool{Value: ls.Value > rs.Value}, nil
		case ast.OpLt:
			return Bool{Value: ls.Value < rs.Value}, nil
		case ast.OpGtEq:
			return Bool{Value: ls.Value >= rs.Value}, nil
		case ast.OpLtEq:
			return Bool{Value: ls.Value <= rs.Value}, nil
		}
		return nil, errAt(diagnostics.EType,
			fmt.Sprintf("cannot apply '%s' to strings", n.Op), n.Span)
	}

	// List concatenation
	if ll, ok := left.(*List); ok && n.Op == ast.OpAdd {
		rl, ok := right.(*List)
		if !ok {
			return nil, errAt(diagnostics.EType,
				fmt.Sprintf("cannot concatenate list and %s", KindName(right)), n.Span)
		}
		items := make([]Value, 0, len(ll.Items)+len(rl.Items))
		items = append(items, ll.Items...)
		items = append(items, rl.Items...)
		return &List{Items: items}, nil
	}

	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, errAt(diagnostics.EType,
			fmt.Sprintf("cannot apply '%s' to %s and %s", n.Op, KindName(left), KindName(right)), n.Span)
	}

	switch n.Op {
	case ast.OpAdd:
		return Number{Value: ln.Value + rn.Value}, nil
	case ast.OpSub:
		return Number{Value: ln.Value - rn.Value}, nil
	case ast.OpMul:
		return Number{Value: ln.Value * rn.Value}, nil
	case ast.OpDiv:
		if rn.Value == 0 {
			return nil, errAt(diagnostics.EDivZero, "division by zero", n.Span)
		}
		return Number{Value: ln.Value / rn.Value}, nil
	case ast.OpMod:
		if rn.Value == 0 {
			return nil, errAt(diagnostics.EDivZero, "modulo by zero", n.Span)
		}
		return Number{Value: math.Mod(ln.Value, rn.Value)}, nil
	case ast.OpGt:
		return Bool{Value: ln.Value > rn.Value}, nil
	case ast.OpLt:
		return Bool{Value: ln.Value < rn.Value}, nil
	case ast.OpGtEq:
		return Bool{Value: ln.Value >= rn.Value}, nil
	case ast.OpLtEq:
		return Bool{Value: ln.Value <= rn.Value}, nil
	default:
		return nil, errAt(diagnostics.EType, fmt.Sprintf("unknown operator '%s'", n.Op), n.Span)
	}
}

func (ip *Interp) evalIndex(n *ast.IndexExpr, env *Env) (Value, error) {
	seq, err := ip.evalExpr(n.Seq, env)
	if err != nil {
		return nil, err
	}
	idxVal, err := ip.evalExpr(n.Index, env)
	if err != nil {
		return nil, err
	}

	switch s := seq.(type) {
	case *List:
		idx, err := seqIndex(idxVal, len(s.Items), n.Span)
		if err != nil {
			return nil, err
		}
		return s.Items[idx], nil
	case *Tuple:
		idx, err := seqIndex(idxVal, len(s.Items), n.Span)
		if err != nil {
			return nil, err
		}
		return s.Items[idx], nil
	case Str:
		runes := []rune(s.Value)
		idx, err := seqIndex(idxVal, len(runes), n.Span)
		if err != nil {
			return nil, err
		}
		return Str{Value: string(runes[idx])}, nil
	default:
		return nil, errAt(diagnostics.EType,
			fmt.Sprintf("cannot index %s", KindName(seq)), n.Span)
	}
}

func (ip *Interp) evalAttr(n *ast.AttrExpr, env *Env) (Value, error) {
	obj, err := ip.evalExpr(n.Obj, env)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, errAt(diagnostics.EAttr,
			fmt.Sprintf("%s has no attributes", KindName(obj)), n.Span)
	}
	if v, ok := inst.Fields[n.Name]; ok {
		return v, nil
	}
	if m := lookupMethod(inst.Class, n.Name); m != nil {
		return &BoundMethod{Recv: inst, Method: m}, nil
	}
	return nil, errAt(diagnostics.EAttr,
		fmt.Sprintf("%s instance has no attribute '%s'", inst.Class.Name, n.Name), n.Span)
}

func lookupMethod(cls *Class, name string) *Function {
	for _, stmt := range cls.Decl.Body {
		if fn, ok := stmt.(*ast.FnDecl); ok && fn.Name == name {
			return &Function{Decl: fn, Closure: cls.Closure}
		}
	}
	return nil
}

func (ip *Interp) evalCall(n *ast.CallExpr, env *Env) (Value, error) {
	callee, err := ip.evalExpr(n.Callee, env)
	if err != nil {
		return nil, err
	}

	args := &CallArgs{Span: n.Span}
	for _, a := range n.Args {
		v, err := ip.evalExpr(a.Value, env)
		if err != nil {
			return nil, err
		}
		if a.Name == "" {
			args.Pos = append(args.Pos, v)
		} else {
			if args.Kw == nil {
				args.Kw = make(map[string]Value)
			}
			args.Kw[a.Name] = v
		}
	}

	return ip.Call(ip.ctx, callee, args)
}

// Call invokes any callable value with evaluated arguments. Exposed for the
// reload engine, which calls through wrappers it builds.
func (ip *Interp) Call(ctx context.Context, callee Value, args *CallArgs) (Value, error) {
	prev := ip.ctx
	ip.ctx = ctx
	defer func() { ip.ctx = prev }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch fn := callee.(type) {
	case *Builtin:
		return fn.Call(ip, args)

	case *Function:
		return ip.callFunction(fn, args)

	case *BoundMethod:
		bound := &CallArgs{
			Pos:  append([]Value{fn.Recv}, args.Pos...),
			Kw:   args.Kw,
			Span: args.Span,
		}
		return ip.callFunction(fn.Method, bound)

	case *Class:
		return ip.instantiate(fn, args)

	case *Handle:
		if fn.HandleKind == HandleReloadDecorator {
			return ip.applyDeferredMarker(fn, args)
		}
		return nil, errAt(diagnostics.ECall,
			fmt.Sprintf("%s is not callable", KindName(callee)), args.Span)

	default:
		return nil, errAt(diagnostics.ECall,
			fmt.Sprintf("%s is not callable", KindName(callee)), args.Span)
	}
}

func (ip *Interp) callFunction(fn *Function, args *CallArgs) (Value, error) {
	params := fn.Decl.Params
	local := fn.Closure.Child()

	if len(args.Pos) > len(params) {
		return nil, errAt(diagnostics.ECall,
			fmt.Sprintf("%s expects %d arguments, got %d", fn.Decl.Name, len(params), len(args.Pos)),
			args.Span)
	}
	for i, v := range args.Pos {
		local.SetLocal(params[i], v)
	}
	for name, v := range args.Kw {
		found := false
		for _, p := range params {
			if p == name {
				found = true
				break
			}
		}
		if !found {
			return nil, errAt(diagnostics.ECall,
				fmt.Sprintf("%s has no parameter '%s'", fn.Decl.Name, name), args.Span)
		}
		if local.Has(name) && !fn.Closure.Has(name) {
			return nil, errAt(diagnostics.ECall,
				fmt.Sprintf("%s got multiple values for '%s'", fn.Decl.Name, name), args.Span)
		}
		local.SetLocal(name, v)
	}
	for _, p := range params {
		if _, ok := local.bindings[p]; !ok {
			return nil, errAt(diagnostics.ECall,
				fmt.Sprintf("%s missing argument '%s'", fn.Decl.Name, p), args.Span)
		}
	}

	err := ip.evalStmts(fn.Decl.Body, local)
	if rs, ok := err.(*returnSignal); ok {
		return rs.value, nil
	}
	if err != nil {
		return nil, err
	}
	return Null{}, nil
}

func (ip *Interp) instantiate(cls *Class, args *CallArgs) (Value, error) {
	inst := &Instance{Class: cls, Fields: make(map[string]Value)}

	for _, stmt := range cls.Decl.Body {
		if let, ok := stmt.(*ast.LetStmt); ok {
			v, err := ip.evalExpr(let.Value, cls.Closure)
			if err != nil {
				return nil, err
			}
			inst.Fields[let.Name] = v
		}
	}

	if init := lookupMethod(cls, "init"); init != nil {
		call := &CallArgs{
			Pos:  append([]Value{inst}, args.Pos...),
			Kw:   args.Kw,
			Span: args.Span,
		}
		if _, err := ip.callFunction(init, call); err != nil {
			return nil, err
		}
	} else if len(args.Pos) > 0 || len(args.Kw) > 0 {
		return nil, errAt(diagnostics.ECall,
			fmt.Sprintf("%s takes no constructor arguments", cls.Name), args.Span)
	}

	return inst, nil
}
