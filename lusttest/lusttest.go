// Copyright © 2021 The Lust authors

// Package lusttest runs table-driven conformance tests against the lust
// compiler from inside the standard go test framework.
package lusttest

import (
	"testing"

	"github.com/ZekeMedley/lust/codegen"
	"github.com/ZekeMedley/lust/lust"
	"github.com/ZekeMedley/lust/parser"
)

// TestCase compiles Source as one program and checks its outcome. Either
// Result or Condition is set: Result is the printed form of the program's
// value, Condition the class of the expected compile failure.
type TestCase struct {
	Name      string
	Source    string
	Result    string
	Condition lust.Condition
}

// TestSuite is an ordered collection of test cases.
type TestSuite []TestCase

// Runner executes test suites, one fresh compile session per case.
type Runner struct {
	// CompileOpts apply to every session the runner starts.
	CompileOpts []lust.Option
}

// RunTestSuite runs each case as a subtest.
func (r *Runner) RunTestSuite(t *testing.T, suite TestSuite) {
	if !codegen.Supported() {
		t.Skip("native execution requires linux/amd64")
	}
	for _, test := range suite {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			r.runTest(t, &test)
		})
	}
}

func (r *Runner) runTest(t *testing.T, test *TestCase) {
	exprs, err := parser.Parse(test.Name, []byte(test.Source))
	if err != nil {
		t.Errorf("parse error: %v", err)
		return
	}
	result, err := lust.RoundtripProgram(exprs, r.CompileOpts...)
	if test.Condition != "" {
		if err == nil {
			t.Errorf("expected %s condition, got result %s", test.Condition, result)
			return
		}
		if cond := lust.ErrorCondition(err); cond != test.Condition {
			t.Errorf("expected %s condition, got error %v", test.Condition, err)
		}
		return
	}
	if err != nil {
		t.Errorf("compile error: %v", err)
		return
	}
	if got := result.String(); got != test.Result {
		t.Errorf("expected %s, got %s", test.Result, got)
	}
}
