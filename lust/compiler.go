// Copyright © 2021 The Lust authors

package lust

import (
	"fmt"

	"github.com/ZekeMedley/lust/codegen"
)

// EntryName is the name of the synthesized entry function wrapping the
// program's top-level expressions.
const EntryName = "lust_entry"

// Profiler receives an annotation for each compilation stage and emitted
// function. Start returns the function to call when the stage completes.
// Implementations live in the profiler package.
type Profiler interface {
	Start(name string) func()
}

// Config holds session settings.
type Config struct {
	// HeapSize is the size in bytes of the session heap.
	HeapSize int

	// Profiler annotates compilation stages when non-nil.
	Profiler Profiler
}

// Option adjusts a session's Config.
type Option func(*Config)

// WithHeapSize sets the session heap size in bytes.
func WithHeapSize(n int) Option {
	return func(c *Config) { c.HeapSize = n }
}

// WithProfiler installs a stage profiler.
func WithProfiler(p Profiler) Option {
	return func(c *Config) { c.Profiler = p }
}

// JIT is one compile-and-execute session. A session compiles one program,
// executes its entry function, and is closed. Sessions are not safe for
// concurrent use.
type JIT struct {
	mod      *codegen.Module
	alloc    codegen.FuncRef
	entry    codegen.FuncRef
	funcs    map[string]codegen.FuncRef
	argmap   map[string]int
	profiler Profiler
	compiled bool
}

// NewJIT constructs a session, mapping its heap and defining the runtime
// allocator. Callers own the session and must Close it.
func NewJIT(opts ...Option) (*JIT, error) {
	cfg := Config{HeapSize: DefaultHeapSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !codegen.Supported() {
		return nil, Errorf(InitFailure, "native execution is not supported on this platform")
	}
	mod := codegen.NewModule()
	alloc, err := defineAlloc(mod, cfg.HeapSize)
	if err != nil {
		_ = mod.Close()
		return nil, WrapError(InitFailure, err)
	}
	return &JIT{
		mod:      mod,
		alloc:    alloc,
		funcs:    make(map[string]codegen.FuncRef),
		profiler: cfg.Profiler,
	}, nil
}

// Close releases the session's executable and heap mappings. Values decoded
// from a session do not reference its memory and outlive Close.
func (j *JIT) Close() error { return j.mod.Close() }

func (j *JIT) stage(name string) func() {
	if j.profiler == nil {
		return func() {}
	}
	return j.profiler.Start(name)
}

// CompileProgram compiles fns and the program's top-level expressions down
// to finalized machine code. Anonymous functions anywhere in fns or program
// are lifted to the top level first; every function, lifted or supplied, is
// declared before any body is emitted. CompileProgram may be called once
// per session.
func (j *JIT) CompileProgram(fns []*Function, program []*Expr) error {
	if j.compiled {
		return Errorf(BackendFailure, "session already compiled a program")
	}
	j.compiled = true
	if len(program) == 0 {
		return Errorf(EmptyProgram, "program has no expressions")
	}

	done := j.stage("collect")
	c := &collector{}
	all := make([]*Function, 0, len(fns))
	for _, fn := range fns {
		body := make([]*Expr, len(fn.Body))
		for i, e := range fn.Body {
			body[i] = c.collect(e)
		}
		all = append(all, &Function{Name: fn.Name, Params: fn.Params, Body: body})
	}
	prog := make([]*Expr, len(program))
	for i, e := range program {
		prog[i] = c.collect(e)
	}
	all = append(c.fns, all...)
	done()

	done = j.stage("annotate")
	AnnotateFreeVariables(all)
	done()

	done = j.stage("replace")
	prog, all = ReplaceFunctions(prog, all)
	done()

	j.argmap = BuildArgCountMap(all)

	done = j.stage("declare")
	for _, fn := range all {
		nparams := len(fn.Params) + 1
		if nparams > codegen.MaxParams {
			done()
			return Errorf(ArityMismatch, "%s declares %d parameters, the limit is %d",
				fn.Name, len(fn.Params), codegen.MaxParams-1)
		}
		ref, err := j.mod.Declare(fn.Name, nparams)
		if err != nil {
			done()
			return WrapError(BackendFailure, err)
		}
		j.funcs[fn.Name] = ref
	}
	entry, err := j.mod.Declare(EntryName, 0)
	if err != nil {
		done()
		return WrapError(BackendFailure, err)
	}
	j.entry = entry
	done()

	for _, fn := range all {
		done = j.stage("emit:" + fn.Name)
		err := emitProcedure(j, fn)
		done()
		if err != nil {
			return err
		}
	}

	done = j.stage("emit:" + EntryName)
	err = j.emitEntry(prog)
	done()
	if err != nil {
		return err
	}

	done = j.stage("finalize")
	err = j.mod.Finalize()
	done()
	if err != nil {
		return WrapError(BackendFailure, err)
	}
	return nil
}

// emitEntry wraps the top-level expressions in the entry function. They
// evaluate in order and the entry returns the last value.
func (j *JIT) emitEntry(prog []*Expr) error {
	b := j.mod.NewBuilder(j.entry)
	ctx := &context{jit: j, b: b}
	v, err := emitBody(ctx, prog)
	if err != nil {
		return err
	}
	b.Ret(v)
	if err := b.Err(); err != nil {
		return WrapError(BackendFailure, err)
	}
	if err := j.mod.Define(j.entry, b); err != nil {
		return WrapError(BackendFailure, err)
	}
	return nil
}

// Execute invokes the finalized entry function and decodes its result. The
// session must stay open until the decoded value has been produced; the
// decoder reads pairs out of the session heap.
func (j *JIT) Execute() (*Expr, error) {
	if !j.compiled {
		return nil, Errorf(BackendFailure, "session has not compiled a program")
	}
	done := j.stage("execute")
	w, err := j.mod.Invoke(j.entry)
	done()
	if err != nil {
		return nil, WrapError(BackendFailure, err)
	}
	return j.decodeWord(w), nil
}

// decodeWord converts a tagged machine word back into an expression. Pairs
// decode recursively by reading the session heap; closures have no portable
// decoding and come back as an opaque symbol.
func (j *JIT) decodeWord(w uint64) *Expr {
	if e, ok := fromImmediate(w); ok {
		return e
	}
	switch w & heapMask {
	case pairTag:
		base := uintptr(w &^ uint64(heapMask))
		car := j.decodeWord(j.mod.ReadWord(base))
		cdr := j.decodeWord(j.mod.ReadWord(base + wordSize))
		return List(car, cdr)
	case closureTag:
		return Symbol("#<closure>")
	}
	return Symbol(fmt.Sprintf("#<unknown %#x>", w))
}

// RoundtripProgram compiles program in a fresh session, executes it, and
// returns the decoded result of its last expression.
func RoundtripProgram(program []*Expr, opts ...Option) (*Expr, error) {
	return RoundtripProgramWithFunctions(nil, program, opts...)
}

// RoundtripProgramWithFunctions is RoundtripProgram with named top-level
// functions available to the program by name.
func RoundtripProgramWithFunctions(fns []*Function, program []*Expr, opts ...Option) (*Expr, error) {
	if len(program) == 0 {
		return nil, Errorf(EmptyProgram, "program has no expressions")
	}
	jit, err := NewJIT(opts...)
	if err != nil {
		return nil, err
	}
	defer jit.Close()
	if err := jit.CompileProgram(fns, program); err != nil {
		return nil, err
	}
	return jit.Execute()
}

// RoundtripExprs compiles and executes a sequence of expressions.
func RoundtripExprs(exprs []*Expr, opts ...Option) (*Expr, error) {
	return RoundtripProgram(exprs, opts...)
}

// RoundtripExpr compiles and executes a single expression.
func RoundtripExpr(e *Expr, opts ...Option) (*Expr, error) {
	return RoundtripProgram([]*Expr{e}, opts...)
}
