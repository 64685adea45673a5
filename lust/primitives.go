// Copyright © 2021 The Lust authors

package lust

import (
	"sort"

	"github.com/ZekeMedley/lust/codegen"
)

// A primitive lowers inline to a fixed instruction sequence. Primitives are
// operators only; they are not values and cannot be passed or stored.
type primitive struct {
	arity int
	emit  func(ctx *context, args []codegen.Value) codegen.Value
}

// Arithmetic works directly on tagged fixnums: both operands carry the same
// two zero tag bits, so sums and differences stay tagged. Multiplication
// untags one operand first. Wraparound is undefined behavior and not checked.
var primitives = map[string]primitive{
	"add":  {2, emitAdd},
	"+":    {2, emitAdd},
	"sub":  {2, emitSub},
	"-":    {2, emitSub},
	"mul":  {2, emitMul},
	"*":    {2, emitMul},
	"add1": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return ctx.b.IaddImm(a[0], 1<<fixnumShift)
	}},
	"sub1": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return ctx.b.IaddImm(a[0], -(1 << fixnumShift))
	}},

	"eq": {2, emitCompare(codegen.Eq)},
	"lt": {2, emitCompare(codegen.SignedLt)},
	"gt": {2, emitCompare(codegen.SignedGt)},

	"not": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return boolFromBit(ctx, ctx.b.IcmpImm(codegen.Eq, a[0], int32(boolFalse)))
	}},
	"zero?": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return boolFromBit(ctx, ctx.b.IcmpImm(codegen.Eq, a[0], 0))
	}},
	"integer?": {1, emitTagCheck(fixnumMask, fixnumTag)},
	"boolean?": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		// Masking off the distinguishing bit maps both booleans to false.
		masked := ctx.b.IandImm(a[0], ^int32(1<<boolBit))
		return boolFromBit(ctx, ctx.b.IcmpImm(codegen.Eq, masked, int32(boolFalse)))
	}},
	"char?": {1, emitTagCheck(charMask, charTag)},
	"null?": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return boolFromBit(ctx, ctx.b.IcmpImm(codegen.Eq, a[0], int32(nilWord)))
	}},
	"pair?":    {1, emitTagCheck(heapMask, pairTag)},
	"closure?": {1, emitTagCheck(heapMask, closureTag)},

	"cons": {2, func(ctx *context, a []codegen.Value) codegen.Value {
		size := ctx.b.Iconst(2 * wordSize)
		p := ctx.b.Call(ctx.jit.alloc, size)
		ctx.b.Store(p, 0, a[0])
		ctx.b.Store(p, wordSize, a[1])
		return ctx.b.IorImm(p, pairTag)
	}},
	"car": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return ctx.b.Load(ctx.b.IaddImm(a[0], -pairTag), 0)
	}},
	"cdr": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return ctx.b.Load(ctx.b.IaddImm(a[0], -pairTag), wordSize)
	}},

	"integer->char": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		raw := ctx.b.IsarImm(a[0], fixnumShift)
		return ctx.b.IorImm(ctx.b.IshlImm(raw, charShift), charTag)
	}},
	"char->integer": {1, func(ctx *context, a []codegen.Value) codegen.Value {
		return ctx.b.IshlImm(ctx.b.IsarImm(a[0], charShift), fixnumShift)
	}},
}

func emitAdd(ctx *context, a []codegen.Value) codegen.Value {
	return ctx.b.Iadd(a[0], a[1])
}

func emitSub(ctx *context, a []codegen.Value) codegen.Value {
	return ctx.b.Isub(a[0], a[1])
}

func emitMul(ctx *context, a []codegen.Value) codegen.Value {
	return ctx.b.Imul(ctx.b.IsarImm(a[0], fixnumShift), a[1])
}

// boolFromBit turns a backend 0/1 comparison result into a tagged boolean.
// Shifting the bit into the distinguishing position and oring in false
// yields true for 1 and false for 0 without a branch.
func boolFromBit(ctx *context, bit codegen.Value) codegen.Value {
	return ctx.b.IorImm(ctx.b.IshlImm(bit, boolBit), int32(boolFalse))
}

func emitCompare(c codegen.Cond) func(*context, []codegen.Value) codegen.Value {
	return func(ctx *context, a []codegen.Value) codegen.Value {
		return boolFromBit(ctx, ctx.b.Icmp(c, a[0], a[1]))
	}
}

func emitTagCheck(mask, tag int32) func(*context, []codegen.Value) codegen.Value {
	return func(ctx *context, a []codegen.Value) codegen.Value {
		masked := ctx.b.IandImm(a[0], mask)
		return boolFromBit(ctx, ctx.b.IcmpImm(codegen.Eq, masked, tag))
	}
}

// Primitives returns every primitive operator name in sorted order.
func Primitives() []string {
	names := make([]string, 0, len(primitives))
	for name := range primitives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// emitPrimcall checks the operator's fixed arity, evaluates the arguments
// left to right, and lowers the operator inline.
func emitPrimcall(ctx *context, op string, args []*Expr) (codegen.Value, error) {
	prim := primitives[op]
	if len(args) != prim.arity {
		return 0, Errorf(ArityMismatch, "%s takes %d arguments, got %d", op, prim.arity, len(args))
	}
	vals := make([]codegen.Value, len(args))
	for i, a := range args {
		v, err := emitExpr(ctx, a)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return prim.emit(ctx, vals), nil
}
