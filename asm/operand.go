// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package asm is the x86-64 pseudo-machine: instruction selection
// (select.go) lowers ir.Program into this AST using Pseudo operands
// named after IR temporaries; replace.go resolves every Pseudo to a
// Stack slot; legalize.go rewrites the few forms the real ISA forbids
// (§3.4, §4.4-4.6).
package asm

import "fmt"

// AsmType is the operand width/class the pseudo-machine tracks once IR
// types are lowered away (§3.4).
type AsmType int

const (
	Byte AsmType = iota
	Word
	LongWord
	QuadWord
	DoubleType
)

func (t AsmType) Size() int {
	switch t {
	case Byte:
		return 1
	case Word:
		return 2
	case LongWord:
		return 4
	case QuadWord, DoubleType:
		return 8
	}
	return 0
}

func (t AsmType) Align() int { return t.Size() }

// Reg is a concrete physical register. R10/R11 (integer) and XMM14/XMM15
// (SSE) are reserved as scratch for legalize.go; the one use instruction
// selection makes of them is R10 as the pointer register of a Load/Store
// (see Indirect).
type Reg int

const (
	AX Reg = iota
	CX
	DX
	DI
	SI
	R8
	R9
	R10
	R11
	SP
	BP
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM14
	XMM15
)

// IntArgRegs is the System V integer/pointer argument-passing order.
var IntArgRegs = []Reg{DI, SI, DX, CX, R8, R9}

// SSEArgRegs is the System V double argument-passing order.
var SSEArgRegs = []Reg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}

func (r Reg) IsSSE() bool { return r >= XMM0 }

// Operand is any Asm AST operand (§3.4).
type Operand interface{ isOperand() }

type Imm struct{ Value uint64 }

type FloatImm struct{ Value float64 }

type Register struct{ Reg Reg }

// Pseudo names an IR temporary or local variable; replace.go resolves
// every Pseudo into a Stack operand before legalization runs.
type Pseudo struct{ Name string }

// PseudoMem names a stack-resident aggregate at a byte offset within it;
// produced directly by instruction selection for struct/array locals
// rather than going through Pseudo (§4.5 still assigns it a frame slot).
type PseudoMem struct {
	Name   string
	Offset int
}

type Stack struct{ Offset int } // relative to RBP, always <= 0

// Indirect dereferences the pointer value held in Base, which must be a
// concrete Register by the time it reaches emit.go (select.go always
// loads a pointer pseudo into R10 before building one of these, since a
// Stack slot cannot itself serve as an addressing-mode base).
type Indirect struct{ Base Operand }

// Data references a file-scope symbol (global/static variable, string,
// or interned double constant).
type Data struct {
	Name   string
	Offset int
}

func (*Imm) isOperand()       {}
func (*FloatImm) isOperand()  {}
func (*Register) isOperand()  {}
func (*Pseudo) isOperand()    {}
func (*PseudoMem) isOperand() {}
func (*Stack) isOperand()     {}
func (*Data) isOperand()      {}
func (*Indirect) isOperand()  {}

func (r Reg) String() string {
	names := map[Reg]string{
		AX: "ax", CX: "cx", DX: "dx", DI: "di", SI: "si",
		R8: "r8", R9: "r9", R10: "r10", R11: "r11", SP: "sp", BP: "bp",
		XMM0: "xmm0", XMM1: "xmm1", XMM2: "xmm2", XMM3: "xmm3",
		XMM4: "xmm4", XMM5: "xmm5", XMM6: "xmm6", XMM7: "xmm7",
		XMM14: "xmm14", XMM15: "xmm15",
	}
	return names[r]
}

func (i *Imm) String() string      { return fmt.Sprintf("$%d", i.Value) }
func (f *FloatImm) String() string { return fmt.Sprintf("$%g", f.Value) }
func (r *Register) String() string { return "%" + r.Reg.String() }
func (p *Pseudo) String() string    { return "%" + p.Name }
func (m *PseudoMem) String() string { return fmt.Sprintf("%%%s+%d", m.Name, m.Offset) }
func (s *Stack) String() string     { return fmt.Sprintf("%d(%%rbp)", s.Offset) }
func (d *Data) String() string      { return fmt.Sprintf("%s+%d(%%rip)", d.Name, d.Offset) }
func (m *Indirect) String() string  { return fmt.Sprintf("(%v)", m.Base) }

// CondCode is the condition used by Cmov/SetCC/Jcc after a Cmp.
type CondCode int

const (
	CondE CondCode = iota
	CondNE
	CondL
	CondLE
	CondG
	CondGE
	CondA
	CondAE
	CondB
	CondBE
)
