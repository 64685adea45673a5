// Copyright © 2021 The Lust authors

package lust

import "github.com/ZekeMedley/lust/codegen"

// Env maps lexically scoped names to backend values. Binding returns a new
// environment sharing the old one, so leaving a scope is just dropping the
// extended environment.
type Env struct {
	parent *Env
	name   string
	val    codegen.Value
}

// Bind returns env extended with one binding. The receiver may be nil.
func (env *Env) Bind(name string, v codegen.Value) *Env {
	return &Env{parent: env, name: name, val: v}
}

// Lookup resolves name against the innermost binding.
func (env *Env) Lookup(name string) (codegen.Value, bool) {
	for e := env; e != nil; e = e.parent {
		if e.name == name {
			return e.val, true
		}
	}
	return 0, false
}

func emitVarAccess(ctx *context, name string) (codegen.Value, error) {
	if specialForm(name) {
		return 0, Errorf(IllegalApplication, "%s is not a value", name)
	}
	if v, ok := ctx.env.Lookup(name); ok {
		return v, nil
	}
	return 0, Errorf(UnboundVariable, "use of unbound variable %s", name)
}

// emitLet lowers (let ((name expr) ...) body...). Bindings are established
// in order and each init sees the bindings before it. The form's value is
// the value of the last body expression.
func emitLet(ctx *context, bindings []Binding, body []*Expr) (codegen.Value, error) {
	saved := ctx.env
	defer func() { ctx.env = saved }()
	for _, b := range bindings {
		v, err := emitExpr(ctx, b.Init)
		if err != nil {
			return 0, err
		}
		ctx.env = ctx.env.Bind(b.Name, v)
	}
	return emitBody(ctx, body)
}

// emitBody lowers a sequence of expressions for effect, producing the value
// of the last.
func emitBody(ctx *context, body []*Expr) (codegen.Value, error) {
	var last codegen.Value
	for _, e := range body {
		v, err := emitExpr(ctx, e)
		if err != nil {
			return 0, err
		}
		last = v
	}
	return last, nil
}
