package interp

import (
	"fmt"
	"math"
	"strings"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
)

// MarkerName is the name of the reload marker: the reloading builtin, and
// the @reloading decorator on declarations.
const MarkerName = "reloading"

func standardBuiltins() map[string]*Builtin {
	builtins := map[string]*Builtin{
		"print":   {Name: "print", Call: builtinPrint},
		"len":     {Name: "len", Call: builtinLen},
		"range":   {Name: "range", Call: builtinRange},
		"push":    {Name: "push", Call: builtinPush},
		"str":     {Name: "str", Call: builtinStr},
		MarkerName: {Name: MarkerName, Call: builtinReloading},
	}
	return builtins
}

func builtinPrint(ip *Interp, args *CallArgs) (Value, error) {
	parts := make([]string, len(args.Pos))
	for i, v := range args.Pos {
		parts[i] = FormatValue(v)
	}
	fmt.Fprintln(ip.Stdout, strings.Join(parts, " "))
	return Null{}, nil
}

func builtinLen(ip *Interp, args *CallArgs) (Value, error) {
	if len(args.Pos) != 1 {
		return nil, errAt(diagnostics.ECall, "len expects one argument", args.Span)
	}
	switch v := args.Pos[0].(type) {
	case Str:
		return Number{Value: float64(len([]rune(v.Value)))}, nil
	case *List:
		return Number{Value: float64(len(v.Items))}, nil
	case *Tuple:
		return Number{Value: float64(len(v.Items))}, nil
	default:
		return nil, errAt(diagnostics.EType,
			fmt.Sprintf("len does not apply to %s", KindName(args.Pos[0])), args.Span)
	}
}

func builtinRange(ip *Interp, args *CallArgs) (Value, error) {
	nums := make([]float64, len(args.Pos))
	for i, v := range args.Pos {
		num, ok := v.(Number)
		if !ok || num.Value != math.Trunc(num.Value) {
			return nil, errAt(diagnostics.EType, "range expects integer arguments", args.Span)
		}
		nums[i] = num.Value
	}

	start, stop, step := 0.0, 0.0, 1.0
	switch len(nums) {
	case 1:
		stop = nums[0]
	case 2:
		start, stop = nums[0], nums[1]
	case 3:
		start, stop, step = nums[0], nums[1], nums[2]
		if step == 0 {
			return nil, errAt(diagnostics.ECall, "range step must not be zero", args.Span)
		}
	default:
		return nil, errAt(diagnostics.ECall, "range expects 1 to 3 arguments", args.Span)
	}

	var items []Value
	if step > 0 {
		for n := start; n < stop; n += step {
			items = append(items, Number{Value: n})
		}
	} else {
		for n := start; n > stop; n += step {
			items = append(items, Number{Value: n})
		}
	}
	return &List{Items: items}, nil
}

func builtinPush(ip *Interp, args *CallArgs) (Value, error) {
	if len(args.Pos) != 2 {
		return nil, errAt(diagnostics.ECall, "push expects a list and a value", args.Span)
	}
	list, ok := args.Pos[0].(*List)
	if !ok {
		return nil, errAt(diagnostics.EType,
			fmt.Sprintf("push expects a list, got %s", KindName(args.Pos[0])), args.Span)
	}
	list.Items = append(list.Items, args.Pos[1])
	return list, nil
}

func builtinStr(ip *Interp, args *CallArgs) (Value, error) {
	if len(args.Pos) != 1 {
		return nil, errAt(diagnostics.ECall, "str expects one argument", args.Span)
	}
	return Str{Value: FormatValue(args.Pos[0])}, nil
}

// builtinReloading is the dispatch frontend for the reload engine. What it
// returns depends on the argument kind: sequences become marked loop
// iterables, functions and classes become reloading wrappers, and a bare
// call captures its keywords for later application as a decorator.
func builtinReloading(ip *Interp, args *CallArgs) (Value, error) {
	opts := ReloadOpts{Every: ip.defaultEvery}
	for name, v := range args.Kw {
		if err := applyReloadKeyword(&opts, name, v, args.Span); err != nil {
			return nil, err
		}
	}
	if len(args.Pos) > 1 {
		return nil, errAt(diagnostics.ECall, "reloading expects at most one target", args.Span)
	}
	var target Value
	if len(args.Pos) == 1 {
		target = args.Pos[0]
	}
	return ip.dispatchReload(opts, target, args.Span)
}

func (ip *Interp) dispatchReload(opts ReloadOpts, target Value, span ast.Span) (Value, error) {
	if ip.reloader == nil {
		return nil, errAt(diagnostics.ECall, "no reload engine attached", span)
	}

	if target == nil {
		if opts.Forever {
			return &Handle{
				HandleKind: HandleReloadLoop,
				Data:       &loopHandle{iter: NewCountingIterator(), opts: opts},
			}, nil
		}
		// Keywords only: defer until applied to a target.
		return &Handle{HandleKind: HandleReloadDecorator, Data: opts}, nil
	}

	switch t := target.(type) {
	case *Function:
		return ip.reloader.WrapFunction(t.Decl, t.Closure, opts)
	case *Class:
		return ip.reloader.WrapClass(t.Decl, t.Closure, opts)
	default:
		if it := Iterate(target); it != nil {
			return &Handle{
				HandleKind: HandleReloadLoop,
				Data:       &loopHandle{iter: it, opts: opts},
			}, nil
		}
		return nil, errAt(diagnostics.EReloadKind,
			fmt.Sprintf("reloading expects a sequence, function, or class, got %s", KindName(target)), span)
	}
}

// applyDeferredMarker applies a keyword-only reloading(...) result to its
// eventual target, as in 'let mark = reloading(every=2)' then 'mark(f)'.
func (ip *Interp) applyDeferredMarker(h *Handle, args *CallArgs) (Value, error) {
	opts := h.Data.(ReloadOpts)
	for name, v := range args.Kw {
		if err := applyReloadKeyword(&opts, name, v, args.Span); err != nil {
			return nil, err
		}
	}
	if len(args.Pos) != 1 {
		return nil, errAt(diagnostics.EReloadNoTarget,
			"nothing to apply reloading to: pass a sequence, function, or class", args.Span)
	}
	return ip.dispatchReload(opts, args.Pos[0], args.Span)
}
