// Copyright © 2021 The Lust authors

package lust

import "github.com/ZekeMedley/lust/codegen"

// Tagged machine-word representation. The low bits of every runtime word
// carry the value's type; fixnums claim the two zero low bits so integer
// arithmetic works directly on tagged words.
const (
	fixnumShift = 2
	fixnumMask  = 0b11
	fixnumTag   = 0b00

	charShift = 8
	charMask  = 0xFF
	charTag   = 0x0F

	boolFalse = uint64(0x2F)
	boolTrue  = uint64(0x6F)
	boolBit   = 6

	nilWord = uint64(0x3F)

	heapMask   = 0b111
	pairTag    = 0b001
	closureTag = 0b110

	wordSize = codegen.WordBytes
)

// MinFixnum and MaxFixnum bound the integers representable once two tag bits
// are claimed from the 64-bit word.
const (
	MaxFixnum = int64(1)<<61 - 1
	MinFixnum = -(int64(1) << 61)
)

// Immediate encodes a self-evaluating expression into its tagged machine
// word. Only integers, characters, booleans, and nil have immediate forms.
func (e *Expr) Immediate() (uint64, error) {
	switch e.Type {
	case TInteger:
		if e.Int > MaxFixnum || e.Int < MinFixnum {
			return 0, Errorf(Overflow, "integer %d does not fit in a tagged word", e.Int)
		}
		return uint64(e.Int) << fixnumShift, nil
	case TChar:
		return uint64(e.Char)<<charShift | charTag, nil
	case TBool:
		if e.Bool {
			return boolTrue, nil
		}
		return boolFalse, nil
	case TNil:
		return nilWord, nil
	}
	return 0, Errorf(BackendFailure, "%s has no immediate representation", e.Type)
}

// selfEvaluating reports whether e compiles to a single tagged constant.
func (e *Expr) selfEvaluating() bool {
	switch e.Type {
	case TInteger, TChar, TBool, TNil:
		return true
	}
	return false
}

// fromImmediate decodes a tagged word that does not reference the heap. The
// second result is false for heap-tagged words.
func fromImmediate(w uint64) (*Expr, bool) {
	if w&fixnumMask == fixnumTag {
		return Int(int64(w) >> fixnumShift), true
	}
	switch w {
	case boolTrue:
		return Bool(true), true
	case boolFalse:
		return Bool(false), true
	case nilWord:
		return Nil(), true
	}
	if w&charMask == charTag {
		return Char(rune(w >> charShift)), true
	}
	return nil, false
}
