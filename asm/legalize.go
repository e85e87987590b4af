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

// legalize.go rewrites the handful of instruction shapes the real ISA
// forbids but the pseudo-machine doesn't (§4.6): two memory operands,
// an oversized immediate, an immediate destination, an immediate
// sign-extension source, or an immediate divisor. Every fixup routes one operand through a scratch register
// (R10/R11, or XMM14/XMM15 for doubles) reserved for exactly this.
package asm

// Legalize rewrites prog's functions in place and prepends the stack
// allocation (`sub $StackBytes, %rsp`) now that StackBytes is known; the
// push/mov of %rbp is written by emit.go.
func Legalize(prog *Program) {
	for _, tl := range prog.TopLevels {
		if fn, ok := tl.(*Function); ok {
			legalizeFunction(fn)
		}
	}
}

func isMemory(o Operand) bool {
	switch o.(type) {
	case *Stack, *Data, *Indirect:
		return true
	}
	return false
}

func isImm(o Operand) bool {
	_, ok := o.(*Imm)
	return ok
}

// fitsInt32 reports whether v fits a sign-extended 32-bit immediate,
// the largest immediate x86-64 encodes directly for most opcodes.
func fitsInt32(v uint64) bool {
	s := int64(v)
	return s >= -2147483648 && s <= 2147483647
}

func scratchFor(t AsmType) Reg {
	if t == DoubleType {
		return XMM14
	}
	return R10
}

func legalizeFunction(fn *Function) {
	var out []Instruction
	emit := func(i Instruction) { out = append(out, i) }

	if fn.StackBytes > 0 {
		emit(&Binary{Op: Sub, Type: QuadWord, Src: &Imm{Value: uint64(fn.StackBytes)}, Dst: &Register{Reg: SP}})
	}

	for _, inst := range fn.Insts {
		legalizeInst(inst, emit)
	}
	fn.Insts = out
}

func legalizeInst(inst Instruction, emit func(Instruction)) {
	switch n := inst.(type) {
	case *Mov:
		// A Store's *Indirect destination is based on R10, so its integer
		// fixups go through R11 instead.
		intScratch := R10
		if _, ok := n.Dst.(*Indirect); ok {
			intScratch = R11
		}
		if isMemory(n.Src) && isMemory(n.Dst) {
			scratch := &Register{Reg: scratchFor(n.Type)}
			if n.Type != DoubleType {
				scratch = &Register{Reg: intScratch}
			}
			emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: n.Type, Src: scratch, Dst: n.Dst})
			return
		}
		if n.Type != DoubleType && isImm(n.Src) && !fitsInt32(n.Src.(*Imm).Value) && isMemory(n.Dst) {
			scratch := &Register{Reg: intScratch}
			emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: n.Type, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
	case *Movsx:
		if isImm(n.Src) {
			src := &Register{Reg: R10}
			emit(&Mov{Type: n.SrcType, Src: n.Src, Dst: src})
			n = &Movsx{SrcType: n.SrcType, DstType: n.DstType, Src: src, Dst: n.Dst}
		}
		if isMemory(n.Dst) {
			scratch := &Register{Reg: R11}
			emit(&Movsx{SrcType: n.SrcType, DstType: n.DstType, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: n.DstType, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
	case *MovZeroExtend:
		if isMemory(n.Dst) {
			scratch := &Register{Reg: R11}
			emit(&MovZeroExtend{SrcType: n.SrcType, DstType: n.DstType, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: n.DstType, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
	case *Lea:
		if isMemory(n.Dst) {
			scratch := &Register{Reg: R10}
			emit(&Lea{Src: n.Src, Dst: scratch})
			emit(&Mov{Type: QuadWord, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
	case *Cvttsd2si:
		if isMemory(n.Dst) {
			scratch := &Register{Reg: R11}
			emit(&Cvttsd2si{DstType: n.DstType, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: n.DstType, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
	case *Cvtsi2sd:
		// cvtsi2sd's source may be memory; only the destination, which
		// must be an xmm register, needs fixing up.
		if isMemory(n.Dst) {
			scratch := &Register{Reg: XMM15}
			emit(&Cvtsi2sd{SrcType: n.SrcType, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: DoubleType, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
	case *Binary:
		legalizeBinary(n, emit)
	case *Cmp:
		legalizeCmp(n, emit)
	case *Idiv:
		if isImm(n.Src) {
			scratch := &Register{Reg: R10}
			emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
			emit(&Idiv{Type: n.Type, Src: scratch})
			return
		}
		emit(n)
	case *Div:
		if isImm(n.Src) {
			scratch := &Register{Reg: R10}
			emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
			emit(&Div{Type: n.Type, Src: scratch})
			return
		}
		emit(n)
	default:
		emit(inst)
	}
}

func legalizeBinary(n *Binary, emit func(Instruction)) {
	if n.Type == DoubleType {
		if isMemory(n.Dst) {
			scratch := &Register{Reg: XMM14}
			emit(&Mov{Type: DoubleType, Src: n.Dst, Dst: scratch})
			emit(&Binary{Op: n.Op, Type: DoubleType, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: DoubleType, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
		return
	}
	switch n.Op {
	case Mul:
		// imul cannot write directly to a memory destination.
		if isMemory(n.Dst) {
			scratch := &Register{Reg: R11}
			emit(&Mov{Type: n.Type, Src: n.Dst, Dst: scratch})
			emit(&Binary{Op: Mul, Type: n.Type, Src: n.Src, Dst: scratch})
			emit(&Mov{Type: n.Type, Src: scratch, Dst: n.Dst})
			return
		}
		emit(n)
		return
	case Shl, ShrArith, ShrLogical:
		emit(n)
		return
	}
	if isMemory(n.Src) && isMemory(n.Dst) {
		scratch := &Register{Reg: R10}
		emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
		emit(&Binary{Op: n.Op, Type: n.Type, Src: scratch, Dst: n.Dst})
		return
	}
	if isImm(n.Src) && !fitsInt32(n.Src.(*Imm).Value) {
		scratch := &Register{Reg: R10}
		emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
		emit(&Binary{Op: n.Op, Type: n.Type, Src: scratch, Dst: n.Dst})
		return
	}
	emit(n)
}

func legalizeCmp(n *Cmp, emit func(Instruction)) {
	if n.Type == DoubleType {
		if isMemory(n.Dst) {
			scratch := &Register{Reg: XMM14}
			emit(&Mov{Type: DoubleType, Src: n.Dst, Dst: scratch})
			emit(&Cmp{Type: DoubleType, Src: n.Src, Dst: scratch})
			return
		}
		emit(n)
		return
	}
	// cmp cannot take an immediate as its second operand; a constant
	// condition (e.g. `switch (2)`) produces one, so load it into R11.
	if isImm(n.Dst) {
		scratch := &Register{Reg: R11}
		emit(&Mov{Type: n.Type, Src: n.Dst, Dst: scratch})
		n = &Cmp{Type: n.Type, Src: n.Src, Dst: scratch}
	}
	if isMemory(n.Src) && isMemory(n.Dst) {
		scratch := &Register{Reg: R10}
		emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
		emit(&Cmp{Type: n.Type, Src: scratch, Dst: n.Dst})
		return
	}
	if isImm(n.Src) && !fitsInt32(n.Src.(*Imm).Value) {
		scratch := &Register{Reg: R10}
		emit(&Mov{Type: n.Type, Src: n.Src, Dst: scratch})
		emit(&Cmp{Type: n.Type, Src: scratch, Dst: n.Dst})
		return
	}
	emit(n)
}
