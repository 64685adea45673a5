// Copyright © 2021 The Lust authors

package codegen

import (
	"fmt"

	"github.com/ZekeMedley/lust/codegen/amd64"
)

// Lowering strategy: every value lives in an rbp-relative stack slot, and
// each instruction loads its operands into scratch registers, computes, and
// stores its result back. No register allocation; correctness over cleverness.
// Scratch registers rax/r10 are caller saved and never hold live state
// across instructions. Only rbp is saved for the caller.

var argRegs = [MaxParams]amd64.Reg{
	amd64.RDI, amd64.RSI, amd64.RDX, amd64.RCX, amd64.R8, amd64.R9,
}

type lowerer struct {
	text []byte

	blockOffsets  []int
	branchPatches []struct {
		pos int
		blk Block
	}
	callPatches []patch
	addrPatches []patch
}

func (l *lowerer) emit(code []byte) {
	l.text = append(l.text, code...)
}

func slotDisp(v Value) int32 {
	return -8 * (int32(v) + 1)
}

func (l *lowerer) loadValue(reg amd64.Reg, v Value) {
	l.emit(amd64.MovRegMem(reg, amd64.RBP, slotDisp(v)))
}

func (l *lowerer) storeValue(v Value, reg amd64.Reg) {
	l.emit(amd64.MovMemReg(amd64.RBP, slotDisp(v), reg))
}

func lower(b *Builder) (text []byte, calls, addrs []patch, err error) {
	l := &lowerer{blockOffsets: make([]int, len(b.blocks))}

	frameSize := int32(8*b.nvalues+15) &^ 15

	l.emit(amd64.PushReg(amd64.RBP))
	l.emit(amd64.MovRegReg(amd64.RBP, amd64.RSP))
	if frameSize > 0 {
		l.emit(amd64.SubRegImm(amd64.RSP, frameSize))
	}
	for i := 0; i < b.nparams; i++ {
		l.storeValue(b.blocks[0].params[i], argRegs[i])
	}

	for bi, blk := range b.blocks {
		l.blockOffsets[bi] = len(l.text)
		for _, in := range blk.insts {
			if err := l.lowerInst(b, in); err != nil {
				return nil, nil, nil, err
			}
		}
	}

	for _, p := range l.branchPatches {
		if err := amd64.PatchRel32(l.text, p.pos, l.blockOffsets[p.blk]); err != nil {
			return nil, nil, nil, err
		}
	}
	return l.text, l.callPatches, l.addrPatches, nil
}

func (l *lowerer) lowerInst(b *Builder, in inst) error {
	switch in.op {
	case opIconst:
		l.emit(amd64.MovRegImm(amd64.RAX, in.imm))
		l.storeValue(in.result, amd64.RAX)

	case opFuncAddr:
		code, immPos := amd64.MovRegImm64(amd64.RAX, 0)
		l.addrPatches = append(l.addrPatches, patch{pos: len(l.text) + immPos, target: in.target})
		l.emit(code)
		l.storeValue(in.result, amd64.RAX)

	case opIadd, opIsub, opImul:
		l.loadValue(amd64.RAX, in.a)
		l.loadValue(amd64.R10, in.b)
		switch in.op {
		case opIadd:
			l.emit(amd64.AddRegReg(amd64.RAX, amd64.R10))
		case opIsub:
			l.emit(amd64.SubRegReg(amd64.RAX, amd64.R10))
		case opImul:
			l.emit(amd64.ImulRegReg(amd64.RAX, amd64.R10))
		}
		l.storeValue(in.result, amd64.RAX)

	case opIaddImm:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.AddRegImm(amd64.RAX, int32(in.imm)))
		l.storeValue(in.result, amd64.RAX)

	case opIandImm:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.AndRegImm(amd64.RAX, int32(in.imm)))
		l.storeValue(in.result, amd64.RAX)

	case opIorImm:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.OrRegImm(amd64.RAX, int32(in.imm)))
		l.storeValue(in.result, amd64.RAX)

	case opIshlImm:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.ShlRegImm(amd64.RAX, in.amt))
		l.storeValue(in.result, amd64.RAX)

	case opIsarImm:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.SarRegImm(amd64.RAX, in.amt))
		l.storeValue(in.result, amd64.RAX)

	case opIcmp:
		l.loadValue(amd64.RAX, in.a)
		l.loadValue(amd64.R10, in.b)
		l.emit(amd64.CmpRegReg(amd64.RAX, amd64.R10))
		code, err := amd64.Setcc(condLower[in.cond], amd64.RAX)
		if err != nil {
			return err
		}
		l.emit(code)
		l.storeValue(in.result, amd64.RAX)

	case opIcmpImm:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.CmpRegImm(amd64.RAX, int32(in.imm)))
		code, err := amd64.Setcc(condLower[in.cond], amd64.RAX)
		if err != nil {
			return err
		}
		l.emit(code)
		l.storeValue(in.result, amd64.RAX)

	case opLoad:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.MovRegMem(amd64.RAX, amd64.RAX, in.off))
		l.storeValue(in.result, amd64.RAX)

	case opStore:
		l.loadValue(amd64.RAX, in.a)
		l.loadValue(amd64.R10, in.b)
		l.emit(amd64.MovMemReg(amd64.RAX, in.off, amd64.R10))

	case opCall:
		for i, arg := range in.args {
			l.loadValue(argRegs[i], arg)
		}
		code, relPos := amd64.CallRel32()
		l.callPatches = append(l.callPatches, patch{pos: len(l.text) + relPos, target: in.target})
		l.emit(code)
		l.storeValue(in.result, amd64.RAX)

	case opCallIndirect:
		for i, arg := range in.args {
			l.loadValue(argRegs[i], arg)
		}
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.CallReg(amd64.RAX))
		l.storeValue(in.result, amd64.RAX)

	case opJump:
		params := b.blocks[in.blk].params
		for i, arg := range in.args {
			l.loadValue(amd64.RAX, arg)
			l.storeValue(params[i], amd64.RAX)
		}
		code, relPos := amd64.JmpRel32()
		l.branchPatches = append(l.branchPatches, struct {
			pos int
			blk Block
		}{pos: len(l.text) + relPos, blk: in.blk})
		l.emit(code)

	case opBrif:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.TestRegReg(amd64.RAX, amd64.RAX))
		code, relPos, err := amd64.JccRel32(amd64.CondNe)
		if err != nil {
			return err
		}
		l.branchPatches = append(l.branchPatches, struct {
			pos int
			blk Block
		}{pos: len(l.text) + relPos, blk: in.blk})
		l.emit(code)
		code, relPos = amd64.JmpRel32()
		l.branchPatches = append(l.branchPatches, struct {
			pos int
			blk Block
		}{pos: len(l.text) + relPos, blk: in.blk2})
		l.emit(code)

	case opRet:
		l.loadValue(amd64.RAX, in.a)
		l.emit(amd64.Leave())
		l.emit(amd64.Ret())

	default:
		return fmt.Errorf("unsupported instruction %d", in.op)
	}
	return nil
}
