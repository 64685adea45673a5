// Copyright © 2021 The Lust authors

package lust

import "github.com/ZekeMedley/lust/codegen"

// emitConditional lowers (if cond then else). Every value other than false
// is truthy, including 0 and nil. A missing else arm produces nil. The two
// arms join at a merge block carrying the form's value as a block parameter.
func emitConditional(ctx *context, cond, then, els *Expr) (codegen.Value, error) {
	c, err := emitExpr(ctx, cond)
	if err != nil {
		return 0, err
	}
	truthy := ctx.b.IcmpImm(codegen.Ne, c, int32(boolFalse))

	thenBlk := ctx.b.CreateBlock()
	elseBlk := ctx.b.CreateBlock()
	mergeBlk := ctx.b.CreateBlock()
	result := ctx.b.AppendBlockParam(mergeBlk)

	ctx.b.Brif(truthy, thenBlk, elseBlk)

	ctx.b.SwitchToBlock(thenBlk)
	tv, err := emitExpr(ctx, then)
	if err != nil {
		return 0, err
	}
	ctx.b.Jump(mergeBlk, tv)

	ctx.b.SwitchToBlock(elseBlk)
	var ev codegen.Value
	if els != nil {
		ev, err = emitExpr(ctx, els)
		if err != nil {
			return 0, err
		}
	} else {
		ev = ctx.b.Iconst(int64(nilWord))
	}
	ctx.b.Jump(mergeBlk, ev)

	ctx.b.SwitchToBlock(mergeBlk)
	return result, nil
}
