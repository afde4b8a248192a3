// Package interp implements the HL tree-walking interpreter.
package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/hotloop/pkg/ast"
)

// Value is the interface for all HL runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	hlvalue() // sealed marker
}

// Null represents a null value.
type Null struct{}

func (Null) hlvalue() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) hlvalue() {}

// Number represents a numeric value (int or float).
type Number struct {
	Value float64
}

func (Number) hlvalue() {}

// Str represents a string value.
type Str struct {
	Value string
}

func (Str) hlvalue() {}

// List represents a mutable ordered list of values.
type List struct {
	Items []Value
}

func (*List) hlvalue() {}

// Tuple represents a fixed sequence of values.
type Tuple struct {
	Items []Value
}

func (*Tuple) hlvalue() {}

// Function is a user-declared function closing over its defining scope.
type Function struct {
	Decl    *ast.FnDecl
	Closure *Env
}

func (*Function) hlvalue() {}

// Class is a user-declared class. Field defaults and methods are evaluated
// lazily per instance from the declaration body.
type Class struct {
	Name    string
	Decl    *ast.ClassDecl
	Closure *Env
}

func (*Class) hlvalue() {}

// Instance is one object of a Class. An instance keeps the class version it
// was constructed from; replacing the class affects only later constructions.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func (*Instance) hlvalue() {}

// BoundMethod pairs an instance with one of its class's methods.
type BoundMethod struct {
	Recv   *Instance
	Method *Function
}

func (*BoundMethod) hlvalue() {}

// CallArgs carries evaluated call arguments.
type CallArgs struct {
	Pos  []Value
	Kw   map[string]Value
	Span ast.Span
}

// Builtin is a native function exposed to HL programs.
type Builtin struct {
	Name string
	Call func(ip *Interp, args *CallArgs) (Value, error)
}

func (*Builtin) hlvalue() {}

// Handle is an opaque engine-owned value. The interpreter routes handles of
// known kinds (loop markers, deferred decorators) without inspecting Data.
type Handle struct {
	HandleKind string
	Data       any
}

func (*Handle) hlvalue() {}

// Handle kinds.
const (
	HandleReloadLoop      = "reload.loop"
	HandleReloadDecorator = "reload.decorator"
)

// NewNull creates a null value.
func NewNull() Value {
	return Null{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewStr creates a string value.
func NewStr(s string) Value {
	return Str{Value: s}
}

// NewList creates a list value.
func NewList(items []Value) Value {
	return &List{Items: items}
}

// Truthy reports the boolean interpretation of a value.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Bool:
		return t.Value
	case Number:
		return t.Value != 0
	case Str:
		return t.Value != ""
	case *List:
		return len(t.Items) > 0
	case *Tuple:
		return len(t.Items) > 0
	default:
		return true
	}
}

// Equal reports deep equality for scalars and sequences, identity for
// everything else.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case Str:
		bv, ok := b.(Str)
		return ok && av.Value == bv.Value
	case *List:
		bv, ok := b.(*List)
		return ok && equalItems(av.Items, bv.Items)
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && equalItems(av.Items, bv.Items)
	default:
		return a == b
	}
}

func equalItems(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// KindName returns a human-readable name for a value's kind, used in
// type-mismatch diagnostics.
func KindName(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case Str:
		return "string"
	case *List:
		return "list"
	case *Tuple:
		return "tuple"
	case *Function:
		return "function"
	case *Class:
		return "class"
	case *Instance:
		return "instance"
	case *BoundMethod:
		return "method"
	case *Builtin:
		return "builtin"
	case *Handle:
		return "handle"
	default:
		return "unknown"
	}
}

// FormatValue renders a value for display. Top-level strings print raw;
// strings nested in sequences print quoted.
func FormatValue(v Value) string {
	if s, ok := v.(Str); ok {
		return s.Value
	}
	return reprValue(v)
}

func reprValue(v Value) string {
	switch t := v.(type) {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(t.Value)
	case Number:
		return formatNumber(t.Value)
	case Str:
		return strconv.Quote(t.Value)
	case *List:
		return "[" + joinRepr(t.Items) + "]"
	case *Tuple:
		return "(" + joinRepr(t.Items) + ")"
	case *Function:
		return fmt.Sprintf("<fn %s>", t.Decl.Name)
	case *Class:
		return fmt.Sprintf("<class %s>", t.Name)
	case *Instance:
		return fmt.Sprintf("<%s instance>", t.Class.Name)
	case *BoundMethod:
		return fmt.Sprintf("<method %s.%s>", t.Recv.Class.Name, t.Method.Decl.Name)
	case *Builtin:
		return fmt.Sprintf("<builtin %s>", t.Name)
	case *Handle:
		return fmt.Sprintf("<handle %s>", t.HandleKind)
	default:
		return "<unknown>"
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = reprValue(it)
	}
	return strings.Join(parts, ", ")
}

// Iterator yields successive values of a sequence.
type Iterator interface {
	Next() (Value, bool)
}

type sliceIterator struct {
	items []Value
	pos   int
}

func (it *sliceIterator) Next() (Value, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

// NewSliceIterator iterates over a fixed slice of values.
func NewSliceIterator(items []Value) Iterator {
	return &sliceIterator{items: items}
}

type countingIterator struct {
	n float64
}

func (it *countingIterator) Next() (Value, bool) {
	v := Number{Value: it.n}
	it.n++
	return v, true
}

// NewCountingIterator yields 0, 1, 2, ... without bound.
func NewCountingIterator() Iterator {
	return &countingIterator{}
}

// Iterate returns an iterator over a sequence value, or nil if the value
// is not iterable.
func Iterate(v Value) Iterator {
	switch t := v.(type) {
	case *List:
		return &sliceIterator{items: t.Items}
	case *Tuple:
		return &sliceIterator{items: t.Items}
	case Str:
		items := make([]Value, 0, len(t.Value))
		for _, r := range t.Value {
			items = append(items, Str{Value: string(r)})
		}
		return &sliceIterator{items: items}
	default:
		return nil
	}
}
