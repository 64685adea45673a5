// Copyright © 2021 The Lust authors

package lusttest

import (
	"testing"

	"github.com/ZekeMedley/lust/lust"
)

func TestConstants(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "zero", Source: "0", Result: "0"},
		{Name: "positive", Source: "42", Result: "42"},
		{Name: "negative", Source: "-42", Result: "-42"},
		{Name: "char", Source: `#\a`, Result: `#\a`},
		{Name: "space", Source: `#\space`, Result: `#\space`},
		{Name: "true", Source: "true", Result: "true"},
		{Name: "false", Source: "false", Result: "false"},
		{Name: "nil", Source: "()", Result: "()"},
	})
}

func TestArithmetic(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "add", Source: "(add 1 2)", Result: "3"},
		{Name: "add-alias", Source: "(+ 40 2)", Result: "42"},
		{Name: "sub", Source: "(sub 1 2)", Result: "-1"},
		{Name: "sub-alias", Source: "(- 1 2)", Result: "-1"},
		{Name: "mul", Source: "(mul 6 7)", Result: "42"},
		{Name: "mul-negative", Source: "(mul -6 7)", Result: "-42"},
		{Name: "add1", Source: "(add1 41)", Result: "42"},
		{Name: "sub1", Source: "(sub1 43)", Result: "42"},
		{Name: "nested", Source: "(add (mul 2 3) (sub 10 4))", Result: "12"},
	})
}

func TestComparisonsAndPredicates(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "eq", Source: "(eq 1 1)", Result: "true"},
		{Name: "eq-false", Source: "(eq 1 2)", Result: "false"},
		{Name: "lt", Source: "(lt -2 1)", Result: "true"},
		{Name: "gt", Source: "(gt -2 1)", Result: "false"},
		{Name: "not", Source: "(not false)", Result: "true"},
		{Name: "not-zero", Source: "(not 0)", Result: "false"},
		{Name: "zero", Source: "(zero? 0)", Result: "true"},
		{Name: "integer", Source: "(integer? 3)", Result: "true"},
		{Name: "integer-char", Source: `(integer? #\a)`, Result: "false"},
		{Name: "boolean", Source: "(boolean? false)", Result: "true"},
		{Name: "boolean-nil", Source: "(boolean? ())", Result: "false"},
		{Name: "char", Source: `(char? #\a)`, Result: "true"},
		{Name: "null", Source: "(null? ())", Result: "true"},
		{Name: "null-zero", Source: "(null? 0)", Result: "false"},
		{Name: "pair", Source: "(pair? (cons 1 2))", Result: "true"},
		{Name: "closure", Source: "(closure? (fn (x) x))", Result: "true"},
	})
}

func TestCharacters(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "to-int", Source: `(char->integer #\a)`, Result: "97"},
		{Name: "from-int", Source: "(integer->char 97)", Result: `#\a`},
		{Name: "roundtrip", Source: `(integer->char (char->integer #\Q))`, Result: `#\Q`},
	})
}

func TestPairs(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "cons", Source: "(cons 1 2)", Result: "(1 2)"},
		{Name: "car", Source: "(car (cons 1 2))", Result: "1"},
		{Name: "cdr", Source: "(cdr (cons 1 2))", Result: "2"},
		{Name: "nested", Source: "(cons 1 (cons 2 ()))", Result: "(1 (2 ()))"},
		{Name: "mixed", Source: `(cons #\a (cons true ()))`, Result: `(#\a (true ()))`},
	})
}

func TestBindingForms(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "single", Source: "(let ((x 1)) x)", Result: "1"},
		{Name: "multi", Source: "(let ((x 1) (y 2)) (add x y))", Result: "3"},
		{Name: "sequential", Source: "(let ((x 1) (y (add1 x))) y)", Result: "2"},
		{Name: "shadowing", Source: "(let ((x 1)) (let ((x 2)) x))", Result: "2"},
		{Name: "shadow-restore",
			Source: "(let ((x 1)) (add (let ((x 10)) x) x))",
			Result: "11"},
		{Name: "body-sequence", Source: "(let ((x 1)) 99 x)", Result: "1"},
	})
}

func TestConditionals(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "then", Source: "(if true 1 2)", Result: "1"},
		{Name: "else", Source: "(if false 1 2)", Result: "2"},
		{Name: "zero-truthy", Source: "(if 0 1 2)", Result: "1"},
		{Name: "nil-truthy", Source: "(if () 1 2)", Result: "1"},
		{Name: "missing-else", Source: "(if false 1)", Result: "()"},
		{Name: "nested", Source: "(if (lt 1 2) (if false 10 20) 30)", Result: "20"},
	})
}

func TestFunctions(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "immediate-call", Source: "((fn (x y) (add x y)) 1 2)", Result: "3"},
		{Name: "let-bound",
			Source: "(let ((double (fn (x) (mul x 2)))) (double 21))",
			Result: "42"},
		{Name: "capture",
			Source: "(let ((n 40)) (let ((addn (fn (m) (add n m)))) (addn 2)))",
			Result: "42"},
		{Name: "escaping-closure",
			Source: `(let ((make-adder (fn (n) (fn (m) (add n m)))))
			           (let ((add2 (make-adder 2))) (add2 40)))`,
			Result: "42"},
		{Name: "self-application",
			Source: `(let ((fact (fn (self n)
			                      (if (zero? n) 1
			                          (mul n (self self (sub1 n)))))))
			           (fact fact 6))`,
			Result: "720"},
		{Name: "higher-order",
			Source: `(let ((twice (fn (f x) (f (f x))))
			               (inc (fn (x) (add1 x))))
			           (twice inc 40))`,
			Result: "42"},
	})
}

func TestProgramSequence(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "last-wins", Source: "1 2 3", Result: "3"},
		{Name: "effects-then-value", Source: "(add 1 1) (cons 1 ()) 42", Result: "42"},
	})
}

func TestCompileErrors(t *testing.T) {
	r := &Runner{}
	r.RunTestSuite(t, TestSuite{
		{Name: "unbound", Source: "nope", Condition: lust.UnboundVariable},
		{Name: "illegal-application", Source: "(() 1 2)", Condition: lust.IllegalApplication},
		{Name: "primitive-arity", Source: "(add 1)", Condition: lust.ArityMismatch},
		{Name: "call-arity", Source: "((fn (x) x) 1 2)", Condition: lust.ArityMismatch},
		{Name: "overflow", Source: "2305843009213693952", Condition: lust.Overflow},
		{Name: "capture-escape",
			Source:    "(let ((f (fn () x))) (f))",
			Condition: lust.UnboundVariable},
	})
}

func TestHeapOption(t *testing.T) {
	r := &Runner{CompileOpts: []lust.Option{lust.WithHeapSize(1 << 16)}}
	r.RunTestSuite(t, TestSuite{
		{Name: "cons-chain",
			Source: "(cons 1 (cons 2 (cons 3 ())))",
			Result: "(1 (2 (3 ())))"},
	})
}

func TestEmptyProgram(t *testing.T) {
	_, err := lust.RoundtripProgram(nil)
	if lust.ErrorCondition(err) != lust.EmptyProgram {
		t.Errorf("expected empty-program condition, got %v", err)
	}
}
