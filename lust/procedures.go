// Copyright © 2021 The Lust authors

package lust

import (
	"fmt"

	"github.com/ZekeMedley/lust/codegen"
)

// Function is a top-level function produced by closure conversion or
// supplied directly by the caller.
type Function struct {
	Name   string
	Params []string
	Body   []*Expr

	// FreeVars lists the variables the body references from enclosing
	// scopes, in first-reference order. AnnotateFreeVariables fills it in.
	FreeVars []string
}

// CollectFunctions lifts every function literal out of program, innermost
// first, replacing each with a symbol naming the lifted function. The input
// program is not modified.
func CollectFunctions(program []*Expr) ([]*Function, []*Expr) {
	c := &collector{}
	out := make([]*Expr, len(program))
	for i, e := range program {
		out[i] = c.collect(e)
	}
	return c.fns, out
}

type collector struct {
	fns []*Function
	n   int
}

func (c *collector) collect(e *Expr) *Expr {
	if params, body, ok := e.IsFn(); ok {
		lifted := make([]*Expr, len(body))
		for i, b := range body {
			lifted[i] = c.collect(b)
		}
		name := fmt.Sprintf("__anon_fn_%d", c.n)
		c.n++
		c.fns = append(c.fns, &Function{Name: name, Params: params, Body: lifted})
		return Symbol(name)
	}
	if e.Type == TList {
		cells := make([]*Expr, len(e.Cells))
		for i, cell := range e.Cells {
			cells[i] = c.collect(cell)
		}
		return List(cells...)
	}
	return e
}

// AnnotateFreeVariables computes each function's free variables. Functions
// must be ordered innermost first, which CollectFunctions guarantees, so a
// reference to an already-annotated function contributes that function's
// own free variables rather than its name.
func AnnotateFreeVariables(fns []*Function) {
	lifted := make(map[string]*Function, len(fns))
	for _, fn := range fns {
		lifted[fn.Name] = fn
	}
	for _, fn := range fns {
		w := &fvWalker{lifted: lifted, seen: make(map[string]bool)}
		bound := make(map[string]bool, len(fn.Params))
		for _, p := range fn.Params {
			bound[p] = true
		}
		for _, e := range fn.Body {
			w.walk(e, bound)
		}
		fn.FreeVars = w.frees
	}
}

type fvWalker struct {
	lifted map[string]*Function
	frees  []string
	seen   map[string]bool
}

func (w *fvWalker) add(name string) {
	if !w.seen[name] {
		w.seen[name] = true
		w.frees = append(w.frees, name)
	}
}

func (w *fvWalker) walk(e *Expr, bound map[string]bool) {
	switch e.Type {
	case TSymbol:
		name := e.Str
		if specialForm(name) || bound[name] {
			return
		}
		if fn, ok := w.lifted[name]; ok {
			for _, fv := range fn.FreeVars {
				if !bound[fv] {
					w.add(fv)
				}
			}
			return
		}
		w.add(name)
	case TList:
		if bindings, body, ok := e.IsLet(); ok {
			inner := copyBound(bound)
			for _, b := range bindings {
				w.walk(b.Init, inner)
				inner[b.Name] = true
			}
			for _, b := range body {
				w.walk(b, inner)
			}
			return
		}
		if params, body, ok := e.IsFn(); ok {
			inner := copyBound(bound)
			for _, p := range params {
				inner[p] = true
			}
			for _, b := range body {
				w.walk(b, inner)
			}
			return
		}
		for _, c := range e.Cells {
			w.walk(c, bound)
		}
	}
}

func copyBound(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound))
	for k, v := range bound {
		out[k] = v
	}
	return out
}

// ReplaceFunctions rewrites every reference to a lifted function into a
// closure-construction form naming the function and its free variables.
// Both the program and the function bodies are rewritten; fresh trees are
// returned and the inputs are not modified. A let binding or fn parameter
// shadowing a function name keeps its plain symbol.
func ReplaceFunctions(program []*Expr, fns []*Function) ([]*Expr, []*Function) {
	lifted := make(map[string]*Function, len(fns))
	for _, fn := range fns {
		lifted[fn.Name] = fn
	}
	outProg := make([]*Expr, len(program))
	for i, e := range program {
		outProg[i] = replaceRefs(e, lifted, nil)
	}
	outFns := make([]*Function, len(fns))
	for i, fn := range fns {
		bound := make(map[string]bool, len(fn.Params))
		for _, p := range fn.Params {
			bound[p] = true
		}
		body := make([]*Expr, len(fn.Body))
		for j, e := range fn.Body {
			body[j] = replaceRefs(e, lifted, bound)
		}
		outFns[i] = &Function{Name: fn.Name, Params: fn.Params, Body: body, FreeVars: fn.FreeVars}
	}
	return outProg, outFns
}

// replaceRefs rewrites references to lifted functions, tracking the names
// bound by enclosing binding forms the same way fvWalker.walk does. Names
// in binding position are never references and are left alone.
func replaceRefs(e *Expr, lifted map[string]*Function, bound map[string]bool) *Expr {
	switch e.Type {
	case TSymbol:
		fn, ok := lifted[e.Str]
		if !ok || bound[e.Str] {
			return e
		}
		cells := make([]*Expr, 0, 2+len(fn.FreeVars))
		cells = append(cells, Symbol(closureHead), Symbol(fn.Name))
		for _, fv := range fn.FreeVars {
			cells = append(cells, Symbol(fv))
		}
		return List(cells...)
	case TList:
		if bindings, body, ok := e.IsLet(); ok {
			inner := copyBound(bound)
			bcells := make([]*Expr, len(bindings))
			for i, b := range bindings {
				bcells[i] = List(Symbol(b.Name), replaceRefs(b.Init, lifted, inner))
				inner[b.Name] = true
			}
			cells := make([]*Expr, 0, 2+len(body))
			cells = append(cells, Symbol("let"), List(bcells...))
			for _, b := range body {
				cells = append(cells, replaceRefs(b, lifted, inner))
			}
			return List(cells...)
		}
		if params, body, ok := e.IsFn(); ok {
			inner := copyBound(bound)
			ps := make([]*Expr, len(params))
			for i, p := range params {
				inner[p] = true
				ps[i] = Symbol(p)
			}
			paramsCell := Nil()
			if len(ps) > 0 {
				paramsCell = List(ps...)
			}
			cells := make([]*Expr, 0, 2+len(body))
			cells = append(cells, Symbol("fn"), paramsCell)
			for _, b := range body {
				cells = append(cells, replaceRefs(b, lifted, inner))
			}
			return List(cells...)
		}
		cells := make([]*Expr, len(e.Cells))
		for i, c := range e.Cells {
			cells[i] = replaceRefs(c, lifted, bound)
		}
		return List(cells...)
	}
	return e
}

// BuildArgCountMap records each function's declared parameter count, keyed
// by name. Direct calls are checked against it at compile time.
func BuildArgCountMap(fns []*Function) map[string]int {
	argmap := make(map[string]int, len(fns))
	for _, fn := range fns {
		argmap[fn.Name] = len(fn.Params)
	}
	return argmap
}

// emitProcedure defines the body of one declared function. The closure
// record arrives as the hidden first native parameter; declared parameters
// follow it, and free variables load from the record.
func emitProcedure(jit *JIT, fn *Function) error {
	ref, ok := jit.funcs[fn.Name]
	if !ok {
		return Errorf(BackendFailure, "emit of undeclared function %s", fn.Name)
	}
	b := jit.mod.NewBuilder(ref)
	ctx := &context{jit: jit, b: b}
	for i, p := range fn.Params {
		ctx.env = ctx.env.Bind(p, b.Param(i+1))
	}
	if len(fn.FreeVars) > 0 {
		rec := b.IaddImm(b.Param(0), -closureTag)
		for i, fv := range fn.FreeVars {
			ctx.env = ctx.env.Bind(fv, b.Load(rec, int32(wordSize*(1+i))))
		}
	}
	v, err := emitBody(ctx, fn.Body)
	if err != nil {
		return err
	}
	b.Ret(v)
	if err := b.Err(); err != nil {
		return WrapError(BackendFailure, err)
	}
	if err := jit.mod.Define(ref, b); err != nil {
		return WrapError(BackendFailure, err)
	}
	return nil
}

// emitClosure lowers the internal (__closure name fv...) form: a heap record
// holding the function's code address followed by the captured values.
func emitClosure(ctx *context, name string, frees []string) (codegen.Value, error) {
	ref, ok := ctx.jit.funcs[name]
	if !ok {
		return 0, Errorf(BackendFailure, "closure over undeclared function %s", name)
	}
	size := ctx.b.Iconst(int64(wordSize * (1 + len(frees))))
	p := ctx.b.Call(ctx.jit.alloc, size)
	ctx.b.Store(p, 0, ctx.b.FuncAddr(ref))
	for i, fv := range frees {
		v, err := emitVarAccess(ctx, fv)
		if err != nil {
			return 0, err
		}
		ctx.b.Store(p, int32(wordSize*(1+i)), v)
	}
	return ctx.b.IorImm(p, closureTag), nil
}

// emitFncall lowers a function application. When the head is a closure form
// the callee is known and the call is direct with a compile-time arity
// check. Any other head evaluates to a closure value and calls through its
// code address with no arity check.
func emitFncall(ctx *context, head *Expr, args []*Expr) (codegen.Value, error) {
	if len(args)+1 > codegen.MaxParams {
		return 0, Errorf(ArityMismatch, "call with %d arguments exceeds the limit of %d",
			len(args), codegen.MaxParams-1)
	}
	if name, _, ok := head.IsClosure(); ok {
		want, known := ctx.jit.argmap[name]
		if !known {
			return 0, Errorf(BackendFailure, "no arity recorded for %s", name)
		}
		if want != len(args) {
			return 0, Errorf(ArityMismatch, "%s takes %d arguments, got %d", name, want, len(args))
		}
		clo, err := emitExpr(ctx, head)
		if err != nil {
			return 0, err
		}
		vals, err := emitArgs(ctx, clo, args)
		if err != nil {
			return 0, err
		}
		return ctx.b.Call(ctx.jit.funcs[name], vals...), nil
	}

	f, err := emitExpr(ctx, head)
	if err != nil {
		return 0, err
	}
	vals, err := emitArgs(ctx, f, args)
	if err != nil {
		return 0, err
	}
	rec := ctx.b.IaddImm(f, -closureTag)
	addr := ctx.b.Load(rec, 0)
	return ctx.b.CallIndirect(addr, vals...), nil
}

func emitArgs(ctx *context, clo codegen.Value, args []*Expr) ([]codegen.Value, error) {
	vals := make([]codegen.Value, 0, 1+len(args))
	vals = append(vals, clo)
	for _, a := range args {
		v, err := emitExpr(ctx, a)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}
