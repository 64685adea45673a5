// Copyright © 2021 The Lust authors

/*
Package codegen is the native code generation backend consumed by the lust
compiler. It exposes a declare-then-define Module owning every function of a
compile session and a block-structured Builder for emitting function bodies.

The life of a session:

	m := codegen.NewModule()
	ref, _ := m.Declare("f", 1)
	b := m.NewBuilder(ref)
	... emit ...
	m.Define(ref, b)
	m.Finalize()
	word, _ := m.Invoke(ref)

Declaring every function before defining any body lets bodies reference
functions that are defined later, which is how mutual and forward recursion
resolve. Finalize lays all functions out in one executable mapping and
patches cross-function calls and address constants. A Module belongs to one
compile session and is not safe for concurrent use.
*/
package codegen

import "github.com/ZekeMedley/lust/codegen/amd64"

// FuncRef identifies a declared function within a Module.
type FuncRef int

// Value identifies an SSA-flavored virtual register within one Builder.
// Every value is backed by a stack slot in the function frame.
type Value int

// Block identifies a basic block within one Builder.
type Block int

// Cond selects a comparison condition. All comparisons are signed.
type Cond uint8

const (
	Eq Cond = iota
	Ne
	SignedLt
	SignedLe
	SignedGt
	SignedGe
)

var condLower = [...]amd64.Cond{
	Eq:       amd64.CondEq,
	Ne:       amd64.CondNe,
	SignedLt: amd64.CondLt,
	SignedLe: amd64.CondLe,
	SignedGt: amd64.CondGt,
	SignedGe: amd64.CondGe,
}

// MaxParams is the largest native parameter count a declared function may
// have; arguments are passed in the six System V integer registers.
const MaxParams = 6

// WordBytes is the width in bytes of the target machine word. Loads, stores,
// and values all operate on full words.
const WordBytes = 8

// Supported reports whether generated code can execute on this platform.
func Supported() bool { return amd64.Supported() }
