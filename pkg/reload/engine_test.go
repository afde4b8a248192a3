package reload_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/hotloop/internal/testutil"
	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/interp"
	"github.com/thomasrohde/hotloop/pkg/parser"
	"github.com/thomasrohde/hotloop/pkg/reload"
)

// scriptedPolicy replays a fixed sequence of decisions, recording every
// failure it is asked about. Running out of steps propagates, so a test
// that loops unexpectedly fails instead of hanging.
type scriptedPolicy struct {
	steps []func(f reload.Failure) reload.Decision
	calls []reload.Failure
}

func (p *scriptedPolicy) Decide(f reload.Failure) reload.Decision {
	p.calls = append(p.calls, f)
	if len(p.steps) == 0 {
		return reload.Propagate
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	return step(f)
}

func decide(d reload.Decision) func(reload.Failure) reload.Decision {
	return func(reload.Failure) reload.Decision { return d }
}

func newHarness(policy reload.Policy, opts ...reload.Option) (*interp.Interp, *reload.Engine, *bytes.Buffer) {
	var out bytes.Buffer
	ip := interp.New(interp.WithStdout(&out))
	engineOpts := append([]reload.Option{reload.WithPolicy(policy)}, opts...)
	engine := reload.New(parser.Parse, ip, engineOpts...)
	ip.SetReloader(engine)
	return ip, engine, &out
}

// parseFile parses the on-disk script with its path as the span file, the
// way the runtime does for a program being executed.
func parseFile(t *testing.T, path string) *ast.Program {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	prog, diags := parser.Parse(string(data), path)
	require.Empty(t, diags)
	return prog
}

func findLoop(t *testing.T, prog *ast.Program) *ast.ForStmt {
	t.Helper()
	var loop *ast.ForStmt
	ast.Walk(prog, func(n ast.Node) bool {
		if l, ok := n.(*ast.ForStmt); ok && loop == nil {
			loop = l
		}
		return true
	})
	require.NotNil(t, loop, "script has no for loop")
	return loop
}

func nums(values ...float64) []interp.Value {
	items := make([]interp.Value, len(values))
	for i, v := range values {
		items[i] = interp.NewNumber(v)
	}
	return items
}

// editingIter yields fixed values and rewrites the script just before
// handing out the value at editAt, simulating an edit between ticks.
type editingIter struct {
	items  []interp.Value
	pos    int
	editAt int
	path   string
	src    string
}

func (it *editingIter) Next() (interp.Value, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	if it.pos == it.editAt && it.src != "" {
		if err := os.WriteFile(it.path, []byte(it.src), 0o644); err != nil {
			panic(err)
		}
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

func number(t *testing.T, env *interp.Env, name string) float64 {
	t.Helper()
	v, ok := env.Get(name)
	require.True(t, ok, "variable %s not bound", name)
	num, ok := v.(interp.Number)
	require.True(t, ok, "variable %s is %s, not a number", name, interp.KindName(v))
	return num.Value
}

// --- loop path ---

func TestLoopMatchesPlainExecution(t *testing.T) {
	dir := t.TempDir()
	marked := `let xs = [1, 2, 3]
let total = 0
for x in reloading(xs) {
  total = total + x
}
print(total)
`
	plain := `let xs = [1, 2, 3]
let total = 0
for x in xs {
  total = total + x
}
print(total)
`
	path := testutil.WriteScript(t, dir, "sum.hl", marked)

	ip, _, out := newHarness(&scriptedPolicy{})
	require.NoError(t, ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv()))

	var plainOut bytes.Buffer
	plainIp := interp.New(interp.WithStdout(&plainOut))
	prog, diags := parser.Parse(plain, "plain.hl")
	require.Empty(t, diags)
	require.NoError(t, plainIp.Run(context.Background(), prog, plainIp.GlobalEnv()))

	assert.Equal(t, plainOut.String(), out.String())
	assert.Equal(t, "6\n", out.String())
}

func TestLoopRunTwiceIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := `let xs = [1, 2]
let total = 0
for x in reloading(xs) {
  total = total + x
}
print(total)
`
	path := testutil.WriteScript(t, dir, "twice.hl", src)

	for i := 0; i < 2; i++ {
		ip, _, out := newHarness(&scriptedPolicy{})
		require.NoError(t, ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv()))
		assert.Equal(t, "3\n", out.String())
	}
}

func TestLoopPicksUpEditNextTick(t *testing.T) {
	dir := t.TempDir()
	src1 := `for x in reloading(xs) {
  count = count + 1
}
`
	src2 := `for x in reloading(xs) {
  count = count + 10
}
`
	path := testutil.WriteScript(t, dir, "tick.hl", src1)

	ip, engine, _ := newHarness(&scriptedPolicy{})
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	loop := findLoop(t, parseFile(t, path))
	iter := &editingIter{items: nums(1, 2, 3), editAt: 1, path: path, src: src2}

	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))
	assert.Equal(t, 21.0, number(t, env, "count"), "edit should apply from the second tick on")
}

func TestLoopSurvivesMoveByFingerprint(t *testing.T) {
	dir := t.TempDir()
	src1 := `for x in reloading(xs) {
  count = count + 1
}
`
	// Same loop, different line and body.
	src2 := `let pad = 0
let more = 0
for x in reloading(xs) {
  count = count + 100
}
`
	path := testutil.WriteScript(t, dir, "move.hl", src1)

	ip, engine, _ := newHarness(&scriptedPolicy{})
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	loop := findLoop(t, parseFile(t, path))
	iter := &editingIter{items: nums(1, 2), editAt: 1, path: path, src: src2}

	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))
	assert.Equal(t, 101.0, number(t, env, "count"))
}

func TestLoopEverySamplesReloads(t *testing.T) {
	dir := t.TempDir()
	src1 := `for x in reloading(xs, every=2) {
  count = count + 1
}
`
	src2 := `for x in reloading(xs, every=2) {
  count = count + 10
}
`
	path := testutil.WriteScript(t, dir, "every.hl", src1)

	ip, engine, _ := newHarness(&scriptedPolicy{})
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	loop := findLoop(t, parseFile(t, path))
	iter := &editingIter{items: nums(1, 2, 3), editAt: 1, path: path, src: src2}

	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 2}, env))
	// Tick 0 loads the old body, tick 1 is not sampled, tick 2 reloads.
	assert.Equal(t, 12.0, number(t, env, "count"))
}

func TestTwoIndependentMarkedLoops(t *testing.T) {
	dir := t.TempDir()
	src := `let xs = [1, 2]
let ys = [10, 20]
let first = 0
for a in reloading(xs) {
  first = first + a
}
let second = 0
for b in reloading(ys) {
  second = second + b
}
`
	path := testutil.WriteScript(t, dir, "two.hl", src)

	ip, _, _ := newHarness(&scriptedPolicy{})
	env := ip.GlobalEnv()
	require.NoError(t, ip.Run(context.Background(), parseFile(t, path), env))

	// Each loop isolates its own body from the shared file; neither picks
	// up the other's fingerprint or accumulator.
	assert.Equal(t, 3.0, number(t, env, "first"))
	assert.Equal(t, 30.0, number(t, env, "second"))
}

func TestLoopNestedTupleTargets(t *testing.T) {
	dir := t.TempDir()
	src := `for (a, (b, c)) in reloading(pairs) {
  total = total + a + b + c
}
`
	path := testutil.WriteScript(t, dir, "tuple.hl", src)

	ip, engine, _ := newHarness(&scriptedPolicy{})
	env := ip.GlobalEnv()
	env.SetLocal("total", interp.NewNumber(0))

	tick := &interp.Tuple{Items: []interp.Value{
		interp.NewNumber(1),
		&interp.Tuple{Items: nums(2, 3)},
	}}
	loop := findLoop(t, parseFile(t, path))
	iter := interp.NewSliceIterator([]interp.Value{tick})

	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))
	assert.Equal(t, 6.0, number(t, env, "total"))
	// The iteration variables stay visible after the loop, like any loop.
	assert.Equal(t, 1.0, number(t, env, "a"))
	assert.Equal(t, 3.0, number(t, env, "c"))
}

func TestLoopAmbiguousPropagates(t *testing.T) {
	dir := t.TempDir()
	src := `for x in reloading(xs) {
  count = count + 1
}
for x in reloading(xs) {
  count = count + 1
}
`
	path := testutil.WriteScript(t, dir, "ambig.hl", src)

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{decide(reload.Propagate)}}
	ip, engine, _ := newHarness(policy)
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	loop := findLoop(t, parseFile(t, path))
	iter := interp.NewSliceIterator(nums(1, 2))

	// The first load matches by call-site line; once a fingerprint exists,
	// both identical loops match and the lookup must refuse to guess.
	err := engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env)
	require.Error(t, err)
	require.Len(t, policy.calls, 1)
	assert.Equal(t, reload.AmbiguousConstruct, policy.calls[0].Kind)
	rtErr, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, diagnostics.EReloadAmbiguous, rtErr.Code)
	assert.Equal(t, 1.0, number(t, env, "count"), "first tick ran before ambiguity appeared")
}

func TestLoopNotFoundRecoversAfterEdit(t *testing.T) {
	dir := t.TempDir()
	gone := `let nothing = 0
`
	back := `for x in reloading(xs) {
  count = count + 1
}
`
	path := testutil.WriteScript(t, dir, "gone.hl", back)
	loop := findLoop(t, parseFile(t, path))
	testutil.Rewrite(t, path, gone)

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{
		func(f reload.Failure) reload.Decision {
			testutil.Rewrite(t, path, back)
			return reload.Retry
		},
	}}
	ip, engine, _ := newHarness(policy)
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	iter := interp.NewSliceIterator(nums(1))
	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))

	require.Len(t, policy.calls, 1)
	assert.Equal(t, reload.ConstructNotFound, policy.calls[0].Kind)
	assert.Equal(t, 1.0, number(t, env, "count"))
}

func TestLoopParseFailureRecoversAfterEdit(t *testing.T) {
	dir := t.TempDir()
	broken := `for x in reloading(xs) {
  count = count +
}
`
	fixed := `for x in reloading(xs) {
  count = count + 1
}
`
	path := testutil.WriteScript(t, dir, "broken.hl", fixed)
	loop := findLoop(t, parseFile(t, path))
	testutil.Rewrite(t, path, broken)

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{
		func(f reload.Failure) reload.Decision {
			testutil.Rewrite(t, path, fixed)
			return reload.Retry
		},
	}}
	ip, engine, _ := newHarness(policy)
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	iter := interp.NewSliceIterator(nums(1))
	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))

	require.Len(t, policy.calls, 1)
	assert.Equal(t, reload.ParseFailure, policy.calls[0].Kind)
	assert.Equal(t, 1.0, number(t, env, "count"))
}

func TestLoopExecutionFailureSkip(t *testing.T) {
	dir := t.TempDir()
	src := `for x in reloading(xs) {
  count = count + boom
}
`
	path := testutil.WriteScript(t, dir, "skip.hl", src)
	loop := findLoop(t, parseFile(t, path))

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{
		decide(reload.Skip), decide(reload.Skip),
	}}
	ip, engine, _ := newHarness(policy)
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	iter := interp.NewSliceIterator(nums(1, 2))
	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))

	require.Len(t, policy.calls, 2)
	assert.Equal(t, reload.ExecutionFailure, policy.calls[0].Kind)
	assert.Equal(t, 0.0, number(t, env, "count"), "skipped ticks must not run the body")
}

func TestLoopExecutionFailureRetrySameTick(t *testing.T) {
	dir := t.TempDir()
	broken := `for x in reloading(xs) {
  count = count + boom
}
`
	fixed := `for x in reloading(xs) {
  count = count + x
}
`
	path := testutil.WriteScript(t, dir, "retry.hl", broken)
	loop := findLoop(t, parseFile(t, path))

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{
		func(f reload.Failure) reload.Decision {
			testutil.Rewrite(t, path, fixed)
			return reload.Retry
		},
	}}
	ip, engine, _ := newHarness(policy)
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	iter := interp.NewSliceIterator(nums(5))
	require.NoError(t, engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env))

	assert.Equal(t, 5.0, number(t, env, "count"), "retried tick must run the fixed body with the same value")
}

func TestLoopExecutionFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	src := `for x in reloading(xs) {
  count = count + boom
}
`
	path := testutil.WriteScript(t, dir, "raise.hl", src)
	loop := findLoop(t, parseFile(t, path))

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{decide(reload.Propagate)}}
	ip, engine, _ := newHarness(policy)
	env := ip.GlobalEnv()
	env.SetLocal("count", interp.NewNumber(0))

	iter := interp.NewSliceIterator(nums(1))
	err := engine.RunLoop(context.Background(), loop, iter, interp.ReloadOpts{Every: 1}, env)
	require.Error(t, err)
	rtErr, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, diagnostics.EUnbound, rtErr.Code)
}

// --- bridge ---

func TestBridgeNameAvoidsEveryBinding(t *testing.T) {
	env := interp.NewEnv(nil)
	env.SetLocal("x", interp.NewNumber(1))
	env.SetLocal("somewhat_long_name", interp.NewNumber(2))
	child := env.Child()
	child.SetLocal("y", interp.NewNumber(3))

	name := reload.BridgeName(child)
	assert.Equal(t, "somewhat_long_name0", name)
	assert.False(t, child.Has(name))
}

// --- function path ---

func TestFunctionReloadAfterRetry(t *testing.T) {
	dir := t.TempDir()
	broken := `@reloading
fn greet() {
  return boom
}
let r = greet()
print(r)
`
	fixed := `@reloading
fn greet() {
  return "hi"
}
let r = greet()
print(r)
`
	path := testutil.WriteScript(t, dir, "fn.hl", broken)

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{
		func(f reload.Failure) reload.Decision {
			testutil.Rewrite(t, path, fixed)
			return reload.Retry
		},
	}}
	ip, _, out := newHarness(policy)
	require.NoError(t, ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv()))

	require.Len(t, policy.calls, 1)
	assert.Equal(t, reload.ExecutionFailure, policy.calls[0].Kind)
	assert.Equal(t, "hi\n", out.String())
}

func TestFunctionSkipReturnsNull(t *testing.T) {
	dir := t.TempDir()
	src := `@reloading
fn bad() {
  return boom
}
print(bad())
`
	path := testutil.WriteScript(t, dir, "fnskip.hl", src)

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{decide(reload.Skip)}}
	ip, _, out := newHarness(policy)
	require.NoError(t, ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv()))
	assert.Equal(t, "null\n", out.String())
}

func TestFunctionEagerReloadKeepsPreviousWhenGone(t *testing.T) {
	dir := t.TempDir()
	v1 := `@reloading
fn answer() {
  return 1
}
`
	gone := `let nothing = 0
`
	v3 := `@reloading
fn answer() {
  return 3
}
`
	path := testutil.WriteScript(t, dir, "soft.hl", v1)

	ip, _, _ := newHarness(&scriptedPolicy{}, reload.WithReloadOnError(false))
	env := ip.GlobalEnv()
	ctx := context.Background()
	require.NoError(t, ip.Run(ctx, parseFile(t, path), env))

	wrapper, ok := env.Get("answer")
	require.True(t, ok)

	call := func() float64 {
		v, err := ip.Call(ctx, wrapper, &interp.CallArgs{})
		require.NoError(t, err)
		num, ok := v.(interp.Number)
		require.True(t, ok)
		return num.Value
	}

	assert.Equal(t, 1.0, call())

	testutil.Rewrite(t, path, gone)
	assert.Equal(t, 1.0, call(), "missing declaration keeps the previous version")

	testutil.Rewrite(t, path, v3)
	assert.Equal(t, 3.0, call())
}

func TestFunctionWrapperIsStable(t *testing.T) {
	dir := t.TempDir()
	src := `@reloading
fn f() {
  return 1
}
let alias = f
print(alias())
`
	path := testutil.WriteScript(t, dir, "alias.hl", src)

	ip, _, out := newHarness(&scriptedPolicy{})
	require.NoError(t, ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv()))
	assert.Equal(t, "1\n", out.String())
}

// --- class path ---

func TestClassReloadAppliesToLaterConstructions(t *testing.T) {
	dir := t.TempDir()
	v1 := `@reloading
class Box {
  let v = 1
}
`
	v2 := `@reloading
class Box {
  let v = 2
}
`
	path := testutil.WriteScript(t, dir, "box.hl", v1)

	ip, _, _ := newHarness(&scriptedPolicy{}, reload.WithReloadOnError(false))
	env := ip.GlobalEnv()
	ctx := context.Background()
	require.NoError(t, ip.Run(ctx, parseFile(t, path), env))

	ctor, ok := env.Get("Box")
	require.True(t, ok)

	construct := func() *interp.Instance {
		v, err := ip.Call(ctx, ctor, &interp.CallArgs{})
		require.NoError(t, err)
		inst, ok := v.(*interp.Instance)
		require.True(t, ok)
		return inst
	}

	first := construct()
	require.True(t, interp.Equal(first.Fields["v"], interp.NewNumber(1)))

	testutil.Rewrite(t, path, v2)
	second := construct()
	assert.True(t, interp.Equal(second.Fields["v"], interp.NewNumber(2)))
	assert.True(t, interp.Equal(first.Fields["v"], interp.NewNumber(1)),
		"existing instances keep the class version they were built with")
}

func TestNearestClassWinsWhenDuplicated(t *testing.T) {
	dir := t.TempDir()
	v1 := `@reloading
class Box {
  let v = 1
}
`
	// Two same-named classes: the one nearest the original definition's
	// line must win, deterministically.
	dup := `@reloading
class Box {
  let v = 111
}

@reloading
class Box {
  let v = 222
}
`
	path := testutil.WriteScript(t, dir, "dupbox.hl", v1)

	ip, _, _ := newHarness(&scriptedPolicy{}, reload.WithReloadOnError(false))
	env := ip.GlobalEnv()
	ctx := context.Background()
	require.NoError(t, ip.Run(ctx, parseFile(t, path), env))

	ctor, ok := env.Get("Box")
	require.True(t, ok)

	testutil.Rewrite(t, path, dup)
	v, err := ip.Call(ctx, ctor, &interp.CallArgs{})
	require.NoError(t, err)
	inst, ok := v.(*interp.Instance)
	require.True(t, ok)
	assert.True(t, interp.Equal(inst.Fields["v"], interp.NewNumber(111)))
}

func TestClassExceptionRetryReloads(t *testing.T) {
	dir := t.TempDir()
	broken := `@reloading
class Widget {
  fn init(self) {
    self.v = boom
  }
}
let w = Widget()
print(w.v)
`
	fixed := `@reloading
class Widget {
  fn init(self) {
    self.v = 7
  }
}
let w = Widget()
print(w.v)
`
	path := testutil.WriteScript(t, dir, "widget.hl", broken)

	policy := &scriptedPolicy{steps: []func(reload.Failure) reload.Decision{
		func(f reload.Failure) reload.Decision {
			testutil.Rewrite(t, path, fixed)
			return reload.Retry
		},
	}}
	ip, _, out := newHarness(policy)
	require.NoError(t, ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv()))
	assert.Equal(t, "7\n", out.String())
}

// --- dispatch ---

func TestDispatchRejectsUnsupportedKind(t *testing.T) {
	dir := t.TempDir()
	src := `let h = reloading(42)
`
	path := testutil.WriteScript(t, dir, "kind.hl", src)

	ip, _, _ := newHarness(&scriptedPolicy{})
	err := ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv())
	require.Error(t, err)
	rtErr, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, diagnostics.EReloadKind, rtErr.Code)
	assert.Contains(t, rtErr.Message, "number")
}

func TestDispatchNoTargetIteration(t *testing.T) {
	dir := t.TempDir()
	src := `for x in reloading(every=2) {
  print(x)
}
`
	path := testutil.WriteScript(t, dir, "notarget.hl", src)

	ip, _, _ := newHarness(&scriptedPolicy{})
	err := ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv())
	require.Error(t, err)
	rtErr, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, diagnostics.EReloadNoTarget, rtErr.Code)
}

func TestDispatchForeverCountsUp(t *testing.T) {
	dir := t.TempDir()
	src := `for i in reloading(forever=true) {
  seen = seen + 1
  if seen == 3 {
    stop()
  }
}
`
	path := testutil.WriteScript(t, dir, "forever.hl", src)

	ip, _, _ := newHarness(&scriptedPolicy{})
	env := ip.GlobalEnv()
	env.SetLocal("seen", interp.NewNumber(0))

	ctx, cancel := context.WithCancel(context.Background())
	env.SetLocal("stop", &interp.Builtin{
		Name: "stop",
		Call: func(*interp.Interp, *interp.CallArgs) (interp.Value, error) {
			cancel()
			return interp.NewNull(), nil
		},
	})

	err := ip.Run(ctx, parseFile(t, path), env)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3.0, number(t, env, "seen"))
}

func TestDeferredMarkerRequiresTarget(t *testing.T) {
	dir := t.TempDir()
	src := `let mark = reloading(every=2)
let h = mark()
`
	path := testutil.WriteScript(t, dir, "deferred.hl", src)

	ip, _, _ := newHarness(&scriptedPolicy{})
	err := ip.Run(context.Background(), parseFile(t, path), ip.GlobalEnv())
	require.Error(t, err)
	rtErr, ok := err.(*interp.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, diagnostics.EReloadNoTarget, rtErr.Code)
}
