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

// emit.go renders the legalized Asm AST as GNU-assembler text (§6
// "Assembler output format"): one .text/.data/.bss/.rodata section per
// top level, AT&T operand order, and the function prologue/epilogue
// this package's earlier passes deliberately leave out.
package asm

import (
	"fmt"
	"strings"

	"nanoc/internal/utils"
)

type Emitter struct {
	buf strings.Builder
}

func NewEmitter() *Emitter { return &Emitter{} }

// Emit renders prog and returns the complete assembly text for one
// translation unit.
func Emit(prog *Program) string {
	e := NewEmitter()
	for _, tl := range prog.TopLevels {
		switch n := tl.(type) {
		case *Function:
			e.emitFunction(n)
		case *StaticVariable:
			e.emitStaticVariable(n)
		case *StaticConstant:
			e.emitStaticConstant(n)
		}
	}
	e.buf.WriteString("  .section .note.GNU-stack,\"\",@progbits\n")
	return e.buf.String()
}

func (e *Emitter) line(format string, args ...interface{}) {
	e.buf.WriteString(fmt.Sprintf(format, args...))
}

func (e *Emitter) comment(s string) { e.line("  # %s\n", s) }

func (t AsmType) suffix() string {
	switch t {
	case Byte:
		return "b"
	case Word:
		return "w"
	case LongWord:
		return "l"
	case QuadWord:
		return "q"
	case DoubleType:
		return "sd"
	}
	return ""
}

func (e *Emitter) reg(r Reg, t AsmType) string {
	if r.IsSSE() {
		return "%" + r.String()
	}
	names := map[Reg][4]string{
		AX:  {"al", "ax", "eax", "rax"},
		CX:  {"cl", "cx", "ecx", "rcx"},
		DX:  {"dl", "dx", "edx", "rdx"},
		DI:  {"dil", "di", "edi", "rdi"},
		SI:  {"sil", "si", "esi", "rsi"},
		R8:  {"r8b", "r8w", "r8d", "r8"},
		R9:  {"r9b", "r9w", "r9d", "r9"},
		R10: {"r10b", "r10w", "r10d", "r10"},
		R11: {"r11b", "r11w", "r11d", "r11"},
		SP:  {"spl", "sp", "esp", "rsp"},
		BP:  {"bpl", "bp", "ebp", "rbp"},
	}
	row, ok := names[r]
	if !ok {
		utils.ShouldNotReachHere()
	}
	idx := 3
	switch t {
	case Byte:
		idx = 0
	case Word:
		idx = 1
	case LongWord:
		idx = 2
	}
	return "%" + row[idx]
}

func (e *Emitter) operand(o Operand, t AsmType) string {
	switch v := o.(type) {
	case *Imm:
		return fmt.Sprintf("$%d", int64(v.Value))
	case *FloatImm:
		return fmt.Sprintf("$%g", v.Value)
	case *Register:
		return e.reg(v.Reg, t)
	case *Stack:
		return fmt.Sprintf("%d(%%rbp)", v.Offset)
	case *Data:
		if v.Offset != 0 {
			return fmt.Sprintf("%s+%d(%%rip)", v.Name, v.Offset)
		}
		return fmt.Sprintf("%s(%%rip)", v.Name)
	case *Indirect:
		base := v.Base.(*Register)
		return fmt.Sprintf("(%s)", e.reg(base.Reg, QuadWord))
	case *Pseudo, *PseudoMem:
		utils.ShouldNotReachHere() // replace.go resolves every Pseudo before emission.
	}
	return "<bad operand>"
}

func condSuffix(c CondCode) string {
	return [...]string{"e", "ne", "l", "le", "g", "ge", "a", "ae", "b", "be"}[c]
}

func (e *Emitter) emitFunction(fn *Function) {
	e.line("  .text\n")
	if fn.Global {
		e.line("  .globl %s\n", fn.Name)
	}
	e.line("%s:\n", fn.Name)
	e.comment("prologue")
	e.line("  pushq %%rbp\n")
	e.line("  movq %%rsp, %%rbp\n")

	for _, inst := range fn.Insts {
		e.emitInst(inst)
	}
}

func (e *Emitter) emitInst(inst Instruction) {
	switch n := inst.(type) {
	case *Binary:
		if n.Type == DoubleType {
			e.line("  %s %s, %s\n", doubleMnemonic(n.Op), e.operand(n.Src, DoubleType), e.operand(n.Dst, DoubleType))
			return
		}
		srcType := n.Type
		if n.Op == Shl || n.Op == ShrArith || n.Op == ShrLogical {
			srcType = Byte // a variable shift count is read from %cl
		}
		e.line("  %s%s %s, %s\n", intMnemonic(n.Op), n.Type.suffix(), e.operand(n.Src, srcType), e.operand(n.Dst, n.Type))
	case *Mov:
		if n.Type == DoubleType {
			e.line("  movsd %s, %s\n", e.operand(n.Src, DoubleType), e.operand(n.Dst, DoubleType))
			return
		}
		e.line("  mov%s %s, %s\n", n.Type.suffix(), e.operand(n.Src, n.Type), e.operand(n.Dst, n.Type))
	case *Movsx:
		e.line("  movs%s%s %s, %s\n", n.SrcType.suffix(), n.DstType.suffix(), e.operand(n.Src, n.SrcType), e.operand(n.Dst, n.DstType))
	case *MovZeroExtend:
		e.line("  movz%s%s %s, %s\n", n.SrcType.suffix(), n.DstType.suffix(), e.operand(n.Src, n.SrcType), e.operand(n.Dst, n.DstType))
	case *Lea:
		e.line("  leaq %s, %s\n", e.operand(n.Src, QuadWord), e.operand(n.Dst, QuadWord))
	case *Cvttsd2si:
		e.line("  cvttsd2si %s, %s\n", e.operand(n.Src, DoubleType), e.operand(n.Dst, n.DstType))
	case *Cvtsi2sd:
		e.line("  cvtsi2sd%s %s, %s\n", n.SrcType.suffix(), e.operand(n.Src, n.SrcType), e.operand(n.Dst, DoubleType))
	case *Unary:
		mnem := "neg"
		if n.Op == Not {
			mnem = "not"
		}
		e.line("  %s%s %s\n", mnem, n.Type.suffix(), e.operand(n.Dst, n.Type))
	case *Cmp:
		if n.Type == DoubleType {
			e.line("  ucomisd %s, %s\n", e.operand(n.Src, DoubleType), e.operand(n.Dst, DoubleType))
			return
		}
		e.line("  cmp%s %s, %s\n", n.Type.suffix(), e.operand(n.Src, n.Type), e.operand(n.Dst, n.Type))
	case *Idiv:
		e.line("  idiv%s %s\n", n.Type.suffix(), e.operand(n.Src, n.Type))
	case *Div:
		e.line("  div%s %s\n", n.Type.suffix(), e.operand(n.Src, n.Type))
	case *Cdq:
		if n.Type == QuadWord {
			e.line("  cqto\n")
		} else {
			e.line("  cltd\n")
		}
	case *Jmp:
		e.line("  jmp %s\n", localLabel(n.Label))
	case *JmpCC:
		e.line("  j%s %s\n", condSuffix(n.Cond), localLabel(n.Label))
	case *SetCC:
		e.line("  set%s %s\n", condSuffix(n.Cond), e.operand(n.Dst, Byte))
	case *AsmLabel:
		e.line("%s:\n", localLabel(n.Name))
	case *Push:
		e.line("  pushq %s\n", e.operand(n.Src, QuadWord))
	case *Call:
		e.line("  call %s\n", n.Name)
	case *Ret:
		e.comment("epilogue")
		e.line("  movq %%rbp, %%rsp\n")
		e.line("  popq %%rbp\n")
		e.line("  ret\n")
	}
}

// localLabel prefixes a compiler-generated label with .L so it never
// collides with an externally-visible symbol (§6).
func localLabel(name string) string { return ".L" + name }

func intMnemonic(op BinaryOp) string {
	switch op {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "imul"
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case Shl:
		return "shl"
	case ShrArith:
		return "sar"
	case ShrLogical:
		return "shr"
	}
	utils.ShouldNotReachHere()
	return ""
}

func doubleMnemonic(op BinaryOp) string {
	switch op {
	case Add:
		return "addsd"
	case Sub:
		return "subsd"
	case Mul:
		return "mulsd"
	case DivD:
		return "divsd"
	}
	utils.ShouldNotReachHere()
	return ""
}

func (e *Emitter) emitStaticVariable(sv *StaticVariable) {
	if sv.Init == nil {
		e.line("  .bss\n")
	} else {
		e.line("  .data\n")
	}
	if sv.Global {
		e.line("  .globl %s\n", sv.Name)
	}
	e.line("  .align %d\n", sv.Align)
	e.line("%s:\n", sv.Name)
	if sv.Init == nil {
		e.line("  .zero %d\n", sv.Size)
		return
	}
	e.emitBytes(sv.Init)
}

func (e *Emitter) emitStaticConstant(sc *StaticConstant) {
	e.line("  .section .rodata\n")
	e.line("  .align %d\n", sc.Align)
	e.line("%s:\n", sc.Name)
	e.emitBytes(sc.Bytes)
}

// emitBytes renders a little-endian byte buffer as the widest-fitting
// run of .quad/.long/.byte directives, matching how the buffer was
// packed by select.go (8-byte-aligned runs first).
func (e *Emitter) emitBytes(b []byte) {
	i := 0
	for i < len(b) {
		switch {
		case len(b)-i >= 8:
			var v uint64
			for k := 0; k < 8; k++ {
				v |= uint64(b[i+k]) << (8 * k)
			}
			e.line("  .quad %d\n", v)
			i += 8
		case len(b)-i >= 4:
			var v uint32
			for k := 0; k < 4; k++ {
				v |= uint32(b[i+k]) << (8 * k)
			}
			e.line("  .long %d\n", v)
			i += 4
		default:
			e.line("  .byte %d\n", b[i])
			i++
		}
	}
}
