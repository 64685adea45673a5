// Copyright © 2021 The Lust authors

package lust

import "github.com/ZekeMedley/lust/codegen"

// context carries the state for emitting one function body.
type context struct {
	jit *JIT
	b   *codegen.Builder
	env *Env
}

// emitExpr lowers one expression, returning the backend value holding its
// tagged word. Dispatch is purely structural and ordered so that special
// forms and primitives claim their syntax before general application does.
func emitExpr(ctx *context, e *Expr) (codegen.Value, error) {
	if e.selfEvaluating() {
		w, err := e.Immediate()
		if err != nil {
			return 0, err
		}
		return ctx.b.Iconst(int64(w)), nil
	}
	switch e.Type {
	case TSymbol:
		return emitVarAccess(ctx, e.Str)
	case TList:
		if len(e.Cells) == 0 {
			return ctx.b.Iconst(int64(nilWord)), nil
		}
		if op, args, ok := e.IsPrimcall(); ok {
			return emitPrimcall(ctx, op, args)
		}
		if bindings, body, ok := e.IsLet(); ok {
			return emitLet(ctx, bindings, body)
		}
		if cond, then, els, ok := e.IsConditional(); ok {
			return emitConditional(ctx, cond, then, els)
		}
		if name, frees, ok := e.IsClosure(); ok {
			return emitClosure(ctx, name, frees)
		}
		if _, _, ok := e.IsFn(); ok {
			return 0, Errorf(BackendFailure, "function literal survived closure conversion: %s", e)
		}
		if head, args, ok := e.IsFncall(); ok {
			return emitFncall(ctx, head, args)
		}
		return 0, Errorf(IllegalApplication, "%s is not applicable", e)
	}
	return 0, Errorf(IllegalApplication, "cannot compile %s", e)
}
