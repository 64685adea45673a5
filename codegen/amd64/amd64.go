// Copyright © 2021 The Lust authors

// Package amd64 encodes the small x86-64 instruction subset used by the
// lust code generator and prepares encoded code for direct execution.
// Instructions are returned as byte slices; layout, label resolution, and
// relocation are the caller's concern.
package amd64

import "fmt"

// Reg identifies a general-purpose register.
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var regNames = []string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("reg(%d)", uint8(r))
}

// low3 returns the low three bits used in ModRM/SIB encodings.
func (r Reg) low3() byte { return byte(r) & 0x7 }

// high reports whether the register needs a REX extension bit (r8-r15).
func (r Reg) high() bool { return r >= R8 }

// needsByteREX reports whether an 8-bit use of the register requires a REX
// prefix to select spl/bpl/sil/dil instead of the legacy high-byte forms.
func (r Reg) needsByteREX() bool {
	switch r {
	case RSP, RBP, RSI, RDI:
		return true
	}
	return r.high()
}

type rexState struct {
	w     bool
	r     bool
	x     bool
	b     bool
	force bool
}

func (s rexState) prefix() byte {
	if !s.w && !s.r && !s.x && !s.b && !s.force {
		return 0
	}
	p := byte(0x40)
	if s.w {
		p |= 0x08
	}
	if s.r {
		p |= 0x04
	}
	if s.x {
		p |= 0x02
	}
	if s.b {
		p |= 0x01
	}
	return p
}

// Cond selects a signed comparison condition for setcc and jcc encodings.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondLe
	CondGt
	CondGe
)

var condNames = []string{"eq", "ne", "lt", "le", "gt", "ge"}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return fmt.Sprintf("cond(%d)", uint8(c))
}

// ccBits returns the x86 condition code nibble for the condition.
func (c Cond) ccBits() (byte, error) {
	switch c {
	case CondEq:
		return 0x4, nil
	case CondNe:
		return 0x5, nil
	case CondLt:
		return 0xC, nil
	case CondLe:
		return 0xE, nil
	case CondGt:
		return 0xF, nil
	case CondGe:
		return 0xD, nil
	}
	return 0, fmt.Errorf("unsupported condition %v", c)
}
