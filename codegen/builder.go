// Copyright © 2021 The Lust authors

package codegen

import "fmt"

type opcode uint8

const (
	opIconst opcode = iota
	opFuncAddr
	opIadd
	opIsub
	opImul
	opIaddImm
	opIandImm
	opIorImm
	opIshlImm
	opIsarImm
	opIcmp
	opIcmpImm
	opLoad
	opStore
	opCall
	opCallIndirect
	opJump
	opBrif
	opRet
)

type inst struct {
	op     opcode
	a, b   Value
	result Value
	imm    int64
	off    int32
	amt    uint8
	cond   Cond
	target FuncRef
	blk    Block
	blk2   Block
	args   []Value
}

type basicBlock struct {
	params     []Value
	insts      []inst
	terminated bool
}

// Builder emits the body of a single declared function. It is exclusively
// owned by the caller until handed back through Module.Define; the entry
// block exists from construction with one block parameter per declared
// native parameter.
type Builder struct {
	mod     *Module
	ref     FuncRef
	nparams int
	nvalues int
	blocks  []*basicBlock
	cur     Block
	err     error
}

func newBuilder(mod *Module, ref FuncRef, nparams int) *Builder {
	b := &Builder{mod: mod, ref: ref, nparams: nparams}
	entry := &basicBlock{}
	for i := 0; i < nparams; i++ {
		entry.params = append(entry.params, b.newValue())
	}
	b.blocks = append(b.blocks, entry)
	return b
}

func (b *Builder) newValue() Value {
	v := Value(b.nvalues)
	b.nvalues++
	return v
}

func (b *Builder) setErr(format string, args ...interface{}) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

// Err returns the first error recorded while building, if any. Instruction
// methods are no-ops after an error so callers may check once at the end.
func (b *Builder) Err() error { return b.err }

// Param returns the value holding the i'th native parameter.
func (b *Builder) Param(i int) Value {
	if i < 0 || i >= b.nparams {
		b.setErr("parameter index %d out of range (%d params)", i, b.nparams)
		return 0
	}
	return b.blocks[0].params[i]
}

// CreateBlock adds a new empty basic block.
func (b *Builder) CreateBlock() Block {
	b.blocks = append(b.blocks, &basicBlock{})
	return Block(len(b.blocks) - 1)
}

// AppendBlockParam adds a block parameter to blk, receiving a value passed
// by every Jump targeting blk. Used for the conditional merge point.
func (b *Builder) AppendBlockParam(blk Block) Value {
	if int(blk) >= len(b.blocks) {
		b.setErr("no such block %d", blk)
		return 0
	}
	v := b.newValue()
	b.blocks[blk].params = append(b.blocks[blk].params, v)
	return v
}

// SwitchToBlock directs subsequent instructions into blk.
func (b *Builder) SwitchToBlock(blk Block) {
	if int(blk) >= len(b.blocks) {
		b.setErr("no such block %d", blk)
		return
	}
	b.cur = blk
}

func (b *Builder) push(in inst) {
	if b.err != nil {
		return
	}
	blk := b.blocks[b.cur]
	if blk.terminated {
		b.setErr("instruction after terminator in block %d", b.cur)
		return
	}
	switch in.op {
	case opJump, opBrif, opRet:
		blk.terminated = true
	}
	blk.insts = append(blk.insts, in)
}

func (b *Builder) pushResult(in inst) Value {
	in.result = b.newValue()
	b.push(in)
	return in.result
}

// Iconst materializes a 64-bit constant.
func (b *Builder) Iconst(v int64) Value {
	return b.pushResult(inst{op: opIconst, imm: v})
}

// FuncAddr materializes the final address of a declared function. The
// address is patched during Module.Finalize.
func (b *Builder) FuncAddr(ref FuncRef) Value {
	if !b.mod.validRef(ref) {
		b.setErr("funcaddr of unknown function %d", ref)
		return 0
	}
	return b.pushResult(inst{op: opFuncAddr, target: ref})
}

// Iadd emits a two's-complement addition.
func (b *Builder) Iadd(x, y Value) Value {
	return b.pushResult(inst{op: opIadd, a: x, b: y})
}

// Isub emits a two's-complement subtraction.
func (b *Builder) Isub(x, y Value) Value {
	return b.pushResult(inst{op: opIsub, a: x, b: y})
}

// Imul emits a two's-complement multiplication.
func (b *Builder) Imul(x, y Value) Value {
	return b.pushResult(inst{op: opImul, a: x, b: y})
}

// IaddImm adds a signed 32-bit immediate.
func (b *Builder) IaddImm(x Value, imm int32) Value {
	return b.pushResult(inst{op: opIaddImm, a: x, imm: int64(imm)})
}

// IandImm masks with a sign-extended 32-bit immediate.
func (b *Builder) IandImm(x Value, imm int32) Value {
	return b.pushResult(inst{op: opIandImm, a: x, imm: int64(imm)})
}

// IorImm ors in a sign-extended 32-bit immediate.
func (b *Builder) IorImm(x Value, imm int32) Value {
	return b.pushResult(inst{op: opIorImm, a: x, imm: int64(imm)})
}

// IshlImm shifts left by a constant amount.
func (b *Builder) IshlImm(x Value, amt uint8) Value {
	return b.pushResult(inst{op: opIshlImm, a: x, amt: amt})
}

// IsarImm shifts right arithmetically by a constant amount.
func (b *Builder) IsarImm(x Value, amt uint8) Value {
	return b.pushResult(inst{op: opIsarImm, a: x, amt: amt})
}

// Icmp compares two values, producing 0 or 1.
func (b *Builder) Icmp(c Cond, x, y Value) Value {
	return b.pushResult(inst{op: opIcmp, cond: c, a: x, b: y})
}

// IcmpImm compares a value against an immediate, producing 0 or 1.
func (b *Builder) IcmpImm(c Cond, x Value, imm int32) Value {
	return b.pushResult(inst{op: opIcmpImm, cond: c, a: x, imm: int64(imm)})
}

// Load reads the word at ptr+off. ptr must already have its tag stripped.
func (b *Builder) Load(ptr Value, off int32) Value {
	return b.pushResult(inst{op: opLoad, a: ptr, off: off})
}

// Store writes v to ptr+off. ptr must already have its tag stripped.
func (b *Builder) Store(ptr Value, off int32, v Value) {
	b.push(inst{op: opStore, a: ptr, b: v, off: off})
}

// Call emits a direct call to a declared function. The argument count must
// match the callee's declared native parameter count.
func (b *Builder) Call(ref FuncRef, args ...Value) Value {
	if !b.mod.validRef(ref) {
		b.setErr("call to unknown function %d", ref)
		return 0
	}
	if want := b.mod.funcs[ref].nparams; len(args) != want {
		b.setErr("call to %s with %d args, declared with %d",
			b.mod.funcs[ref].name, len(args), want)
		return 0
	}
	return b.pushResult(inst{op: opCall, target: ref, args: args})
}

// CallIndirect emits a call through a code address held in addr.
func (b *Builder) CallIndirect(addr Value, args ...Value) Value {
	if len(args) > MaxParams {
		b.setErr("indirect call with %d args exceeds %d register arguments",
			len(args), MaxParams)
		return 0
	}
	return b.pushResult(inst{op: opCallIndirect, a: addr, args: args})
}

// Jump transfers control to blk, passing one argument per block parameter.
func (b *Builder) Jump(blk Block, args ...Value) {
	if int(blk) >= len(b.blocks) {
		b.setErr("jump to unknown block %d", blk)
		return
	}
	if len(args) != len(b.blocks[blk].params) {
		b.setErr("jump to block %d with %d args, expects %d",
			blk, len(args), len(b.blocks[blk].params))
		return
	}
	b.push(inst{op: opJump, blk: blk, args: args})
}

// Brif branches to then when c is nonzero and to els otherwise. Neither
// target may carry block parameters.
func (b *Builder) Brif(c Value, then, els Block) {
	if int(then) >= len(b.blocks) || int(els) >= len(b.blocks) {
		b.setErr("brif to unknown block")
		return
	}
	if len(b.blocks[then].params) != 0 || len(b.blocks[els].params) != 0 {
		b.setErr("brif targets cannot carry block parameters")
		return
	}
	b.push(inst{op: opBrif, a: c, blk: then, blk2: els})
}

// Ret returns v to the caller.
func (b *Builder) Ret(v Value) {
	b.push(inst{op: opRet, a: v})
}

func (b *Builder) validate() error {
	if b.err != nil {
		return b.err
	}
	for i, blk := range b.blocks {
		if !blk.terminated {
			return fmt.Errorf("block %d is not terminated", i)
		}
	}
	return nil
}
