// Copyright © 2021 The Lust authors

package amd64

import (
	"encoding/binary"
	"fmt"
	"math"
)

// memOperand encodes the ModRM/SIB/displacement bytes for a [base+disp]
// effective address. Index registers are never needed by the lust lowering
// so they are not supported.
func memOperand(base Reg, disp int32) (modrm byte, tail []byte, rex rexState) {
	rex = rexState{b: base.high()}

	rm := base.low3()
	switch {
	case disp == 0 && rm != 5:
		modrm = 0x00
	case disp >= math.MinInt8 && disp <= math.MaxInt8:
		modrm = 0x40
		tail = append(tail, byte(disp))
	default:
		modrm = 0x80
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(disp))
		tail = append(tail, buf[:]...)
	}

	// rsp/r12 as a base always requires a SIB byte.
	if rm == 4 {
		tail = append([]byte{0x24}, tail...)
	}
	// [rbp]/[r13] with no displacement must use the disp8 form.
	if modrm == 0x00 && rm == 5 {
		modrm = 0x40
		tail = append(tail, 0)
	}

	modrm |= rm
	return modrm, tail, rex
}

// MovRegImm loads a 64-bit immediate, choosing the shortest encoding.
func MovRegImm(dst Reg, value int64) []byte {
	if value >= math.MinInt32 && value <= math.MaxInt32 {
		// mov r/m64, imm32 (sign extended)
		rex := rexState{w: true, b: dst.high()}
		out := []byte{rex.prefix(), 0xC7, 0xC0 | dst.low3()}
		var imm [4]byte
		binary.LittleEndian.PutUint32(imm[:], uint32(int32(value)))
		return append(out, imm[:]...)
	}
	out, _ := MovRegImm64(dst, uint64(value))
	return out
}

// MovRegImm64 emits the movabs form and additionally returns the offset of
// the 8-byte immediate within the returned encoding so callers can patch
// absolute addresses after layout.
func MovRegImm64(dst Reg, value uint64) ([]byte, int) {
	rex := rexState{w: true, b: dst.high()}
	out := []byte{rex.prefix(), 0xB8 + dst.low3()}
	immPos := len(out)
	var imm [8]byte
	binary.LittleEndian.PutUint64(imm[:], value)
	return append(out, imm[:]...), immPos
}

// MovRegReg emits a 64-bit register to register move.
func MovRegReg(dst, src Reg) []byte {
	rex := rexState{w: true, r: src.high(), b: dst.high()}
	return []byte{rex.prefix(), 0x89, 0xC0 | src.low3()<<3 | dst.low3()}
}

// MovRegMem loads dst from [base+disp].
func MovRegMem(dst, base Reg, disp int32) []byte {
	modrm, tail, rex := memOperand(base, disp)
	rex.w = true
	rex.r = dst.high()
	out := []byte{rex.prefix(), 0x8B, modrm | dst.low3()<<3}
	return append(out, tail...)
}

// MovMemReg stores src to [base+disp].
func MovMemReg(base Reg, disp int32, src Reg) []byte {
	modrm, tail, rex := memOperand(base, disp)
	rex.w = true
	rex.r = src.high()
	out := []byte{rex.prefix(), 0x89, modrm | src.low3()<<3}
	return append(out, tail...)
}

func aluRegReg(opcode byte, dst, src Reg) []byte {
	rex := rexState{w: true, r: src.high(), b: dst.high()}
	return []byte{rex.prefix(), opcode, 0xC0 | src.low3()<<3 | dst.low3()}
}

// AddRegReg emits add dst, src.
func AddRegReg(dst, src Reg) []byte { return aluRegReg(0x01, dst, src) }

// SubRegReg emits sub dst, src.
func SubRegReg(dst, src Reg) []byte { return aluRegReg(0x29, dst, src) }

// CmpRegReg emits cmp dst, src.
func CmpRegReg(dst, src Reg) []byte { return aluRegReg(0x39, dst, src) }

// TestRegReg emits test dst, src.
func TestRegReg(dst, src Reg) []byte { return aluRegReg(0x85, dst, src) }

// AndRegReg emits and dst, src.
func AndRegReg(dst, src Reg) []byte { return aluRegReg(0x21, dst, src) }

// OrRegReg emits or dst, src.
func OrRegReg(dst, src Reg) []byte { return aluRegReg(0x09, dst, src) }

// ImulRegReg emits imul dst, src (two operand form).
func ImulRegReg(dst, src Reg) []byte {
	rex := rexState{w: true, r: dst.high(), b: src.high()}
	return []byte{rex.prefix(), 0x0F, 0xAF, 0xC0 | dst.low3()<<3 | src.low3()}
}

func aluRegImm(subcode byte, reg Reg, value int32) []byte {
	rex := rexState{w: true, b: reg.high()}
	if value >= math.MinInt8 && value <= math.MaxInt8 {
		return []byte{rex.prefix(), 0x83, 0xC0 | subcode<<3 | reg.low3(), byte(value)}
	}
	out := []byte{rex.prefix(), 0x81, 0xC0 | subcode<<3 | reg.low3()}
	var imm [4]byte
	binary.LittleEndian.PutUint32(imm[:], uint32(value))
	return append(out, imm[:]...)
}

// AddRegImm emits add reg, imm32.
func AddRegImm(reg Reg, value int32) []byte { return aluRegImm(0, reg, value) }

// OrRegImm emits or reg, imm32.
func OrRegImm(reg Reg, value int32) []byte { return aluRegImm(1, reg, value) }

// AndRegImm emits and reg, imm32.
func AndRegImm(reg Reg, value int32) []byte { return aluRegImm(4, reg, value) }

// SubRegImm emits sub reg, imm32.
func SubRegImm(reg Reg, value int32) []byte { return aluRegImm(5, reg, value) }

// CmpRegImm emits cmp reg, imm32.
func CmpRegImm(reg Reg, value int32) []byte { return aluRegImm(7, reg, value) }

func shiftRegImm(subcode byte, reg Reg, count uint8) []byte {
	rex := rexState{w: true, b: reg.high()}
	if count == 1 {
		return []byte{rex.prefix(), 0xD1, 0xC0 | subcode<<3 | reg.low3()}
	}
	return []byte{rex.prefix(), 0xC1, 0xC0 | subcode<<3 | reg.low3(), count}
}

// ShlRegImm emits shl reg, count.
func ShlRegImm(reg Reg, count uint8) []byte { return shiftRegImm(4, reg, count) }

// ShrRegImm emits shr reg, count (logical).
func ShrRegImm(reg Reg, count uint8) []byte { return shiftRegImm(5, reg, count) }

// SarRegImm emits sar reg, count (arithmetic).
func SarRegImm(reg Reg, count uint8) []byte { return shiftRegImm(7, reg, count) }

// Setcc emits setcc on the low byte of reg followed by a zero extension to
// the full register, leaving 0 or 1 in reg.
func Setcc(c Cond, reg Reg) ([]byte, error) {
	cc, err := c.ccBits()
	if err != nil {
		return nil, err
	}
	out := []byte{}
	rex := rexState{b: reg.high(), force: reg.needsByteREX()}
	if p := rex.prefix(); p != 0 {
		out = append(out, p)
	}
	out = append(out, 0x0F, 0x90|cc, 0xC0|reg.low3())
	// movzx reg, reg8
	rex = rexState{w: true, r: reg.high(), b: reg.high(), force: reg.needsByteREX()}
	out = append(out, rex.prefix(), 0x0F, 0xB6, 0xC0|reg.low3()<<3|reg.low3())
	return out, nil
}

// PushReg emits push reg.
func PushReg(reg Reg) []byte {
	if reg.high() {
		return []byte{0x41, 0x50 + reg.low3()}
	}
	return []byte{0x50 + reg.low3()}
}

// PopReg emits pop reg.
func PopReg(reg Reg) []byte {
	if reg.high() {
		return []byte{0x41, 0x58 + reg.low3()}
	}
	return []byte{0x58 + reg.low3()}
}

// Ret emits a near return.
func Ret() []byte { return []byte{0xC3} }

// Leave emits leave (mov rsp, rbp; pop rbp).
func Leave() []byte { return []byte{0xC9} }

// CallReg emits an indirect call through reg.
func CallReg(reg Reg) []byte {
	out := []byte{}
	if reg.high() {
		out = append(out, 0x41)
	}
	return append(out, 0xFF, 0xD0|reg.low3())
}

// CallRel32 emits a direct call with a zero displacement and returns the
// offset of the rel32 field for later patching.
func CallRel32() ([]byte, int) {
	return []byte{0xE8, 0, 0, 0, 0}, 1
}

// JmpRel32 emits an unconditional jump with a zero displacement and returns
// the offset of the rel32 field for later patching.
func JmpRel32() ([]byte, int) {
	return []byte{0xE9, 0, 0, 0, 0}, 1
}

// JccRel32 emits a conditional jump with a zero displacement and returns the
// offset of the rel32 field for later patching.
func JccRel32(c Cond) ([]byte, int, error) {
	cc, err := c.ccBits()
	if err != nil {
		return nil, 0, err
	}
	return []byte{0x0F, 0x80 | cc, 0, 0, 0, 0}, 2, nil
}

// PatchRel32 writes a rel32 displacement at pos resolving to target. The
// displacement field is the last field of its instruction, so the next
// instruction begins at pos+4.
func PatchRel32(text []byte, pos, target int) error {
	rel := int64(target) - int64(pos+4)
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return fmt.Errorf("relative branch out of range: %d", rel)
	}
	if pos < 0 || pos+4 > len(text) {
		return fmt.Errorf("branch patch position %d out of range", pos)
	}
	binary.LittleEndian.PutUint32(text[pos:pos+4], uint32(int32(rel)))
	return nil
}
