// Copyright © 2021 The Lust authors

package lust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZekeMedley/lust/codegen"
)

func requireNative(t *testing.T) {
	t.Helper()
	if !codegen.Supported() {
		t.Skip("native execution requires linux/amd64")
	}
}

func roundtrip(t *testing.T, e *Expr) *Expr {
	t.Helper()
	got, err := RoundtripExpr(e)
	require.NoError(t, err)
	return got
}

func TestRoundtripConstants(t *testing.T) {
	requireNative(t)
	tests := []*Expr{
		Int(0),
		Int(42),
		Int(-42),
		Int(MaxFixnum),
		Int(MinFixnum),
		Char('a'),
		Char(' '),
		Bool(true),
		Bool(false),
		Nil(),
	}
	for _, e := range tests {
		got := roundtrip(t, e)
		assert.True(t, Equal(e, got), "roundtrip of %s returned %s", e, got)
	}
}

func TestRoundtripArithmetic(t *testing.T) {
	requireNative(t)
	tests := []struct {
		src  *Expr
		want *Expr
	}{
		{List(Symbol("add"), Int(1), Int(2)), Int(3)},
		{List(Symbol("+"), Int(1), Int(2)), Int(3)},
		{List(Symbol("sub"), Int(1), Int(2)), Int(-1)},
		{List(Symbol("mul"), Int(6), Int(7)), Int(42)},
		{List(Symbol("add1"), Int(41)), Int(42)},
		{List(Symbol("sub1"), Int(0)), Int(-1)},
		{List(Symbol("add"), List(Symbol("mul"), Int(2), Int(3)), Int(4)), Int(10)},
	}
	for _, test := range tests {
		got := roundtrip(t, test.src)
		assert.True(t, Equal(test.want, got), "%s returned %s", test.src, got)
	}
}

func TestRoundtripComparisons(t *testing.T) {
	requireNative(t)
	tests := []struct {
		src  *Expr
		want bool
	}{
		{List(Symbol("eq"), Int(1), Int(1)), true},
		{List(Symbol("eq"), Int(1), Int(2)), false},
		{List(Symbol("lt"), Int(-1), Int(1)), true},
		{List(Symbol("lt"), Int(1), Int(-1)), false},
		{List(Symbol("gt"), Int(2), Int(1)), true},
		{List(Symbol("not"), Bool(false)), true},
		{List(Symbol("not"), Bool(true)), false},
		{List(Symbol("not"), Int(0)), false},
		{List(Symbol("zero?"), Int(0)), true},
		{List(Symbol("zero?"), Int(1)), false},
	}
	for _, test := range tests {
		got := roundtrip(t, test.src)
		assert.True(t, Equal(Bool(test.want), got), "%s returned %s", test.src, got)
	}
}

func TestRoundtripTypePredicates(t *testing.T) {
	requireNative(t)
	tests := []struct {
		src  *Expr
		want bool
	}{
		{List(Symbol("integer?"), Int(3)), true},
		{List(Symbol("integer?"), Char('a')), false},
		{List(Symbol("boolean?"), Bool(false)), true},
		{List(Symbol("boolean?"), Bool(true)), true},
		{List(Symbol("boolean?"), Nil()), false},
		{List(Symbol("char?"), Char('x')), true},
		{List(Symbol("char?"), Int(3)), false},
		{List(Symbol("null?"), Nil()), true},
		{List(Symbol("null?"), Int(0)), false},
		{List(Symbol("pair?"), List(Symbol("cons"), Int(1), Int(2))), true},
		{List(Symbol("pair?"), Int(1)), false},
		{List(Symbol("closure?"), fnLit([]string{"x"}, Symbol("x"))), true},
		{List(Symbol("closure?"), Nil()), false},
	}
	for _, test := range tests {
		got := roundtrip(t, test.src)
		assert.True(t, Equal(Bool(test.want), got), "%s returned %s", test.src, got)
	}
}

func TestRoundtripCharConversions(t *testing.T) {
	requireNative(t)
	got := roundtrip(t, List(Symbol("char->integer"), Char('a')))
	assert.True(t, Equal(Int(97), got))

	got = roundtrip(t, List(Symbol("integer->char"), Int(97)))
	assert.True(t, Equal(Char('a'), got))
}

func TestRoundtripPairs(t *testing.T) {
	requireNative(t)
	got := roundtrip(t, List(Symbol("cons"), Int(1), Int(2)))
	assert.True(t, Equal(List(Int(1), Int(2)), got), "got %s", got)

	got = roundtrip(t, List(Symbol("car"), List(Symbol("cons"), Int(1), Int(2))))
	assert.True(t, Equal(Int(1), got))

	got = roundtrip(t, List(Symbol("cdr"), List(Symbol("cons"), Int(1), Int(2))))
	assert.True(t, Equal(Int(2), got))

	// Nested pairs decode recursively.
	got = roundtrip(t, List(Symbol("cons"),
		List(Symbol("cons"), Int(1), Int(2)),
		Nil()))
	assert.True(t, Equal(List(List(Int(1), Int(2)), Nil()), got), "got %s", got)
}

func TestRoundtripLet(t *testing.T) {
	requireNative(t)
	// (let ((x 1) (y 2)) (add x y))
	got := roundtrip(t, List(Symbol("let"),
		List(List(Symbol("x"), Int(1)), List(Symbol("y"), Int(2))),
		List(Symbol("add"), Symbol("x"), Symbol("y"))))
	assert.True(t, Equal(Int(3), got))
}

func TestRoundtripLetSequential(t *testing.T) {
	requireNative(t)
	// Later inits see earlier bindings.
	got := roundtrip(t, List(Symbol("let"),
		List(
			List(Symbol("x"), Int(1)),
			List(Symbol("y"), List(Symbol("add1"), Symbol("x")))),
		Symbol("y")))
	assert.True(t, Equal(Int(2), got))
}

func TestRoundtripLetShadowing(t *testing.T) {
	requireNative(t)
	// (let ((x 1)) (let ((x 2)) x))
	got := roundtrip(t, List(Symbol("let"),
		List(List(Symbol("x"), Int(1))),
		List(Symbol("let"),
			List(List(Symbol("x"), Int(2))),
			Symbol("x"))))
	assert.True(t, Equal(Int(2), got))

	// The outer binding is visible again after the inner scope closes.
	got = roundtrip(t, List(Symbol("let"),
		List(List(Symbol("x"), Int(1))),
		List(Symbol("add"),
			List(Symbol("let"), List(List(Symbol("x"), Int(10))), Symbol("x")),
			Symbol("x"))))
	assert.True(t, Equal(Int(11), got))
}

func TestRoundtripLetBody(t *testing.T) {
	requireNative(t)
	// Multiple body expressions evaluate in order; the last is the value.
	got := roundtrip(t, List(Symbol("let"),
		List(List(Symbol("x"), Int(1))),
		Int(99),
		Symbol("x")))
	assert.True(t, Equal(Int(1), got))
}

func TestRoundtripConditional(t *testing.T) {
	requireNative(t)
	tests := []struct {
		src  *Expr
		want *Expr
	}{
		{List(Symbol("if"), Bool(true), Int(1), Int(2)), Int(1)},
		{List(Symbol("if"), Bool(false), Int(1), Int(2)), Int(2)},
		// Everything except false is truthy.
		{List(Symbol("if"), Int(0), Int(1), Int(2)), Int(1)},
		{List(Symbol("if"), Nil(), Int(1), Int(2)), Int(1)},
		{List(Symbol("if"), Char('a'), Int(1), Int(2)), Int(1)},
		// A missing else arm produces nil.
		{List(Symbol("if"), Bool(false), Int(1)), Nil()},
		// Nested conditionals.
		{List(Symbol("if"),
			List(Symbol("lt"), Int(1), Int(2)),
			List(Symbol("if"), Bool(false), Int(10), Int(20)),
			Int(30)), Int(20)},
	}
	for _, test := range tests {
		got := roundtrip(t, test.src)
		assert.True(t, Equal(test.want, got), "%s returned %s", test.src, got)
	}
}

func TestRoundtripFunctionCall(t *testing.T) {
	requireNative(t)
	// ((fn (x y) (add x y)) 1 2)
	got := roundtrip(t, List(
		fnLit([]string{"x", "y"}, List(Symbol("add"), Symbol("x"), Symbol("y"))),
		Int(1), Int(2)))
	assert.True(t, Equal(Int(3), got))
}

func TestRoundtripLetBoundFunction(t *testing.T) {
	requireNative(t)
	// (let ((double (fn (x) (mul x 2)))) (double 21))
	got := roundtrip(t, List(Symbol("let"),
		List(List(Symbol("double"), fnLit([]string{"x"},
			List(Symbol("mul"), Symbol("x"), Int(2))))),
		List(Symbol("double"), Int(21))))
	assert.True(t, Equal(Int(42), got))
}

func TestRoundtripEscapingClosure(t *testing.T) {
	requireNative(t)
	// (let ((make-adder (fn (n) (fn (m) (add n m)))))
	//   (let ((add2 (make-adder 2))) (add2 40)))
	got := roundtrip(t, List(Symbol("let"),
		List(List(Symbol("make-adder"), fnLit([]string{"n"},
			fnLit([]string{"m"}, List(Symbol("add"), Symbol("n"), Symbol("m")))))),
		List(Symbol("let"),
			List(List(Symbol("add2"), List(Symbol("make-adder"), Int(2)))),
			List(Symbol("add2"), Int(40)))))
	assert.True(t, Equal(Int(42), got))
}

func TestRoundtripRecursion(t *testing.T) {
	requireNative(t)
	// Factorial through a self-reference passed explicitly.
	// (let ((fact (fn (self n)
	//               (if (zero? n) 1 (mul n (self self (sub1 n)))))))
	//   (fact fact 5))
	fact := fnLit([]string{"self", "n"},
		List(Symbol("if"),
			List(Symbol("zero?"), Symbol("n")),
			Int(1),
			List(Symbol("mul"), Symbol("n"),
				List(Symbol("self"), Symbol("self"), List(Symbol("sub1"), Symbol("n"))))))
	got := roundtrip(t, List(Symbol("let"),
		List(List(Symbol("fact"), fact)),
		List(Symbol("fact"), Symbol("fact"), Int(5))))
	assert.True(t, Equal(Int(120), got))
}

func TestRoundtripProgramSequence(t *testing.T) {
	requireNative(t)
	got, err := RoundtripProgram([]*Expr{
		Int(1),
		Int(2),
		List(Symbol("add"), Int(1), Int(2)),
	})
	require.NoError(t, err)
	assert.True(t, Equal(Int(3), got))
}

func TestRoundtripProgramWithFunctions(t *testing.T) {
	requireNative(t)
	fns := []*Function{
		{
			Name:   "double",
			Params: []string{"x"},
			Body:   []*Expr{List(Symbol("mul"), Symbol("x"), Int(2))},
		},
		{
			Name:   "quadruple",
			Params: []string{"x"},
			Body:   []*Expr{List(Symbol("double"), List(Symbol("double"), Symbol("x")))},
		},
	}
	got, err := RoundtripProgramWithFunctions(fns, []*Expr{
		List(Symbol("quadruple"), Int(10)),
	})
	require.NoError(t, err)
	assert.True(t, Equal(Int(40), got))
}

func TestRoundtripFunctionNameShadowedByLet(t *testing.T) {
	// (let ((double 5)) double) with a top-level function double: the
	// binding shadows the function name and the body sees the integer.
	requireNative(t)
	fns := []*Function{{
		Name:   "double",
		Params: []string{"x"},
		Body:   []*Expr{List(Symbol("mul"), Symbol("x"), Int(2))},
	}}
	got, err := RoundtripProgramWithFunctions(fns, []*Expr{
		List(Symbol("let"), List(List(Symbol("double"), Int(5))), Symbol("double")),
	})
	require.NoError(t, err)
	assert.True(t, Equal(Int(5), got), "got %s", got)

	// Outside the let the name still resolves to the function.
	got, err = RoundtripProgramWithFunctions(fns, []*Expr{
		List(Symbol("let"), List(List(Symbol("double"), Int(5))), Symbol("double")),
		List(Symbol("double"), Int(21)),
	})
	require.NoError(t, err)
	assert.True(t, Equal(Int(42), got), "got %s", got)
}

func TestRoundtripFunctionNameShadowedByParam(t *testing.T) {
	// ((fn (double) double) 7) with a top-level function double: the
	// parameter shadows the function name inside the body.
	requireNative(t)
	fns := []*Function{{
		Name:   "double",
		Params: []string{"x"},
		Body:   []*Expr{List(Symbol("mul"), Symbol("x"), Int(2))},
	}}
	got, err := RoundtripProgramWithFunctions(fns, []*Expr{
		List(fnLit([]string{"double"}, Symbol("double")), Int(7)),
	})
	require.NoError(t, err)
	assert.True(t, Equal(Int(7), got), "got %s", got)
}

func TestRoundtripEmptyProgram(t *testing.T) {
	_, err := RoundtripProgram(nil)
	require.Error(t, err)
	assert.Equal(t, EmptyProgram, ErrorCondition(err))
}

func TestRoundtripUnboundVariable(t *testing.T) {
	requireNative(t)
	_, err := RoundtripExpr(Symbol("nope"))
	require.Error(t, err)
	assert.Equal(t, UnboundVariable, ErrorCondition(err))
}

func TestRoundtripIllegalApplication(t *testing.T) {
	requireNative(t)
	_, err := RoundtripExpr(List(List(), Int(1), Int(2)))
	require.Error(t, err)
	assert.Equal(t, IllegalApplication, ErrorCondition(err))
}

func TestRoundtripPrimitiveArity(t *testing.T) {
	requireNative(t)
	_, err := RoundtripExpr(List(Symbol("add"), Int(1)))
	require.Error(t, err)
	assert.Equal(t, ArityMismatch, ErrorCondition(err))

	_, err = RoundtripExpr(List(Symbol("car"), Int(1), Int(2)))
	require.Error(t, err)
	assert.Equal(t, ArityMismatch, ErrorCondition(err))
}

func TestRoundtripDirectCallArity(t *testing.T) {
	requireNative(t)
	// ((fn (x) x) 1 2) resolves statically and is rejected.
	_, err := RoundtripExpr(List(fnLit([]string{"x"}, Symbol("x")), Int(1), Int(2)))
	require.Error(t, err)
	assert.Equal(t, ArityMismatch, ErrorCondition(err))
}

func TestRoundtripOverflowLiteral(t *testing.T) {
	requireNative(t)
	_, err := RoundtripExpr(Int(MaxFixnum + 1))
	require.Error(t, err)
	assert.Equal(t, Overflow, ErrorCondition(err))
}

func TestJITSingleUse(t *testing.T) {
	requireNative(t)
	jit, err := NewJIT()
	require.NoError(t, err)
	defer jit.Close()

	require.NoError(t, jit.CompileProgram(nil, []*Expr{Int(7)}))
	got, err := jit.Execute()
	require.NoError(t, err)
	assert.True(t, Equal(Int(7), got))

	err = jit.CompileProgram(nil, []*Expr{Int(8)})
	require.Error(t, err)
}

func TestProfilerStages(t *testing.T) {
	requireNative(t)
	p := &recordingProfiler{}
	_, err := RoundtripExpr(Int(1), WithProfiler(p))
	require.NoError(t, err)
	assert.Contains(t, p.stages, "collect")
	assert.Contains(t, p.stages, "declare")
	assert.Contains(t, p.stages, "emit:"+EntryName)
	assert.Contains(t, p.stages, "finalize")
	assert.Contains(t, p.stages, "execute")
	assert.Zero(t, p.open)
}

type recordingProfiler struct {
	stages []string
	open   int
}

func (p *recordingProfiler) Start(name string) func() {
	p.stages = append(p.stages, name)
	p.open++
	return func() { p.open-- }
}
