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

// select.go is instruction selection (§4.4): it lowers each ir.Instruction
// into one or more Asm AST instructions, picking concrete opcodes from
// each operand's type and resolving the calling convention at call
// sites and function entry.
package asm

import (
	"encoding/binary"
	"math"

	"nanoc/ast"
	"nanoc/internal/utils"
	"nanoc/ir"
	"nanoc/sema"
)

func asmType(t *ast.Type) AsmType {
	switch t.Kind {
	case ast.I8, ast.U8, ast.Char:
		return Byte
	case ast.I32, ast.U32:
		return LongWord
	case ast.Double:
		return DoubleType
	default: // I64, U64, Pointer
		return QuadWord
	}
}

// Selector converts one translation unit's worth of IR into the Asm AST.
type Selector struct {
	Globals map[string]bool
	Aggs    *sema.AggregateRegistry
	Counter *sema.Counter

	prog         *Program
	insts        []Instruction
	aggregates   []FrameSlot
	aggSeen      map[string]bool
	pseudoTypes  map[string]AsmType
	doubleConsts map[uint64]string
}

func NewSelector(globals map[string]bool, aggs *sema.AggregateRegistry, counter *sema.Counter) *Selector {
	return &Selector{Globals: globals, Aggs: aggs, Counter: counter, doubleConsts: map[uint64]string{}}
}

func (s *Selector) Select(prog *ir.Program) *Program {
	s.prog = &Program{}
	if s.Globals == nil {
		s.Globals = map[string]bool{}
	}
	// String constants are appended after the functions that use them,
	// so record their names before any function is selected.
	for _, tl := range prog.TopLevels {
		if c, ok := tl.(*ir.StaticConstant); ok {
			s.Globals[c.Name] = true
		}
	}
	for _, tl := range prog.TopLevels {
		switch n := tl.(type) {
		case *ir.Function:
			s.selectFunction(n)
		case *ir.StaticVariable:
			s.selectStaticVar(n)
		case *ir.StaticArray:
			s.selectStaticArray(n)
		case *ir.StaticConstant:
			bytes := n.Bytes
			if n.NullTerminated {
				bytes = append(append([]byte{}, bytes...), 0)
			}
			s.prog.TopLevels = append(s.prog.TopLevels, &StaticConstant{Name: n.Name, Align: 1, Bytes: bytes})
		}
	}
	return s.prog
}

func scalarBytes(v ir.Value, at AsmType) []byte {
	buf := make([]byte, at.Size())
	c, ok := v.(*ir.Const)
	if !ok {
		return buf
	}
	if at == DoubleType {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(c.FVal))
		return buf
	}
	switch at.Size() {
	case 1:
		buf[0] = byte(c.IVal)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(c.IVal))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(c.IVal))
	case 8:
		binary.LittleEndian.PutUint64(buf, c.IVal)
	}
	return buf
}

func (s *Selector) selectStaticVar(n *ir.StaticVariable) {
	at := asmType(n.Type)
	s.prog.TopLevels = append(s.prog.TopLevels, &StaticVariable{
		Name: n.Name, Global: n.Global, Align: at.Align(), Size: at.Size(),
		Init: scalarBytes(n.Value, at),
	})
}

func (s *Selector) selectStaticArray(n *ir.StaticArray) {
	size := sema.TypeSize(n.Type, s.Aggs)
	align := sema.TypeAlign(n.Type, s.Aggs)
	buf := make([]byte, size)
	allZero := len(n.Init) == 0
	for _, elem := range n.Init {
		c := elem.Value.(*ir.Const)
		at := asmType(c.Type)
		copy(buf[elem.Offset:], scalarBytes(c, at))
	}
	init := buf
	if allZero {
		init = nil
	}
	s.prog.TopLevels = append(s.prog.TopLevels, &StaticVariable{
		Name: n.Name, Global: n.Global, Align: align, Size: size, Init: init,
	})
}

// internDouble interns a double literal as a read-only StaticConstant,
// deduplicated by bit pattern (§4.4 "Double-constant interning").
func (s *Selector) internDouble(f float64) Operand {
	bits := math.Float64bits(f)
	if name, ok := s.doubleConsts[bits]; ok {
		return &Data{Name: name}
	}
	name := s.Counter.Label("double")
	s.doubleConsts[bits] = name
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, bits)
	s.prog.TopLevels = append(s.prog.TopLevels, &StaticConstant{Name: name, Align: 8, Bytes: buf})
	return &Data{Name: name}
}

func (s *Selector) recordPseudoType(name string, at AsmType) {
	if s.pseudoTypes == nil {
		s.pseudoTypes = map[string]AsmType{}
	}
	if _, ok := s.pseudoTypes[name]; !ok {
		s.pseudoTypes[name] = at
	}
}

func (s *Selector) opnd(v ir.Value) Operand {
	switch val := v.(type) {
	case *ir.Const:
		if val.Type.IsDouble() {
			return s.internDouble(val.FVal)
		}
		return &Imm{Value: val.IVal}
	case *ir.Var:
		if s.Globals[val.Name] {
			return &Data{Name: val.Name}
		}
		s.recordPseudoType(val.Name, asmType(val.Type))
		return &Pseudo{Name: val.Name}
	}
	utils.ShouldNotReachHere()
	return nil
}

func (s *Selector) emit(i Instruction) { s.insts = append(s.insts, i) }

func (s *Selector) freshPseudo(at AsmType) Operand {
	name := s.Counter.Temp()
	s.recordPseudoType(name, at)
	return &Pseudo{Name: name}
}

// -----------------------------------------------------------------------------
// Functions: parameter classification and body selection.

func (s *Selector) selectFunction(fn *ir.Function) {
	s.insts = nil
	s.aggregates = nil
	s.aggSeen = map[string]bool{}
	s.pseudoTypes = map[string]AsmType{}

	intIdx, sseIdx, stackOffset := 0, 0, 16
	for i, name := range fn.Params {
		pt := fn.ParamTypes[i]
		at := asmType(pt)
		s.recordPseudoType(name, at)
		dst := &Pseudo{Name: name}
		if pt.IsDouble() {
			if sseIdx < len(SSEArgRegs) {
				s.emit(&Mov{Type: DoubleType, Src: &Register{Reg: SSEArgRegs[sseIdx]}, Dst: dst})
				sseIdx++
			} else {
				s.emit(&Mov{Type: DoubleType, Src: &Stack{Offset: stackOffset}, Dst: dst})
				stackOffset += 8
			}
		} else {
			if intIdx < len(IntArgRegs) {
				s.emit(&Mov{Type: at, Src: &Register{Reg: IntArgRegs[intIdx]}, Dst: dst})
				intIdx++
			} else {
				s.emit(&Mov{Type: at, Src: &Stack{Offset: stackOffset}, Dst: dst})
				stackOffset += 8
			}
		}
	}

	for _, inst := range fn.Insts {
		s.selectInst(inst)
	}

	s.prog.TopLevels = append(s.prog.TopLevels, &Function{
		Name: fn.Name, Global: fn.Global, Insts: s.insts,
		Aggregates: s.aggregates, PseudoTypes: s.pseudoTypes,
	})
}

// -----------------------------------------------------------------------------
// Instructions

func (s *Selector) selectInst(inst ir.Instruction) {
	switch n := inst.(type) {
	case *ir.Return:
		if n.Val != nil {
			if n.Val.ValueType().IsDouble() {
				s.emit(&Mov{Type: DoubleType, Src: s.opnd(n.Val), Dst: &Register{Reg: XMM0}})
			} else {
				s.emit(&Mov{Type: asmType(n.Val.ValueType()), Src: s.opnd(n.Val), Dst: &Register{Reg: AX}})
			}
		}
		s.emit(&Ret{})
	case *ir.SignExtend:
		s.emit(&Movsx{SrcType: asmType(n.Src.ValueType()), DstType: asmType(n.Dst.ValueType()), Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.ZeroExtend:
		s.emit(&MovZeroExtend{SrcType: asmType(n.Src.ValueType()), DstType: asmType(n.Dst.ValueType()), Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.Truncate:
		s.emit(&Mov{Type: asmType(n.Dst.ValueType()), Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.DoubleToInt:
		s.emit(&Cvttsd2si{DstType: asmType(n.Dst.ValueType()), Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.DoubleToUInt:
		s.selectDoubleToUInt(n)
	case *ir.IntToDouble:
		s.emit(&Cvtsi2sd{SrcType: asmType(n.Src.ValueType()), Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.UIntToDouble:
		s.selectUIntToDouble(n)
	case *ir.Unary:
		s.selectUnary(n)
	case *ir.Binary:
		s.selectBinary(n)
	case *ir.Copy:
		s.emit(&Mov{Type: asmType(n.Src.ValueType()), Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.GetAddress:
		s.emit(&Lea{Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	case *ir.Load:
		ptr := s.opnd(n.Ptr)
		s.emit(&Mov{Type: QuadWord, Src: ptr, Dst: &Register{Reg: R10}})
		s.emit(&Mov{Type: asmType(n.Dst.ValueType()), Src: &Indirect{Base: &Register{Reg: R10}}, Dst: s.opnd(n.Dst)})
	case *ir.Store:
		ptr := s.opnd(n.Ptr)
		s.emit(&Mov{Type: QuadWord, Src: ptr, Dst: &Register{Reg: R10}})
		s.emit(&Mov{Type: asmType(n.Src.ValueType()), Src: s.opnd(n.Src), Dst: &Indirect{Base: &Register{Reg: R10}}})
	case *ir.AddPtr:
		s.selectAddPtr(n)
	case *ir.CopyToOffset:
		at := widthToAsmType(n.Width)
		s.emit(&Mov{Type: at, Src: s.opnd(n.Src), Dst: &PseudoMem{Name: n.Aggregate, Offset: n.Offset}})
	case *ir.Jump:
		s.emit(&Jmp{Label: n.Label})
	case *ir.JumpIfZero:
		s.selectJumpIf(n.Val, n.Label, true)
	case *ir.JumpIfNotZero:
		s.selectJumpIf(n.Val, n.Label, false)
	case *ir.Label:
		s.emit(&AsmLabel{Name: n.Name})
	case *ir.FunCall:
		s.selectCall(n)
	case *ir.Allocate:
		if !s.aggSeen[n.Name] {
			s.aggSeen[n.Name] = true
			s.aggregates = append(s.aggregates, FrameSlot{Name: n.Name, Bytes: n.Bytes, Align: 8})
		}
	}
}

func widthToAsmType(width int) AsmType {
	switch width {
	case 1:
		return Byte
	case 2:
		return Word
	case 4:
		return LongWord
	default:
		return QuadWord
	}
}

func (s *Selector) selectJumpIf(val ir.Value, label string, onZero bool) {
	if val.ValueType().IsDouble() {
		zero := s.internDouble(0)
		s.emit(&Cmp{Type: DoubleType, Src: zero, Dst: s.opnd(val)})
	} else {
		s.emit(&Cmp{Type: asmType(val.ValueType()), Src: &Imm{Value: 0}, Dst: s.opnd(val)})
	}
	cond := CondNE
	if onZero {
		cond = CondE
	}
	s.emit(&JmpCC{Cond: cond, Label: label})
}

func (s *Selector) selectUnary(n *ir.Unary) {
	if n.Op == ir.Not {
		at := asmType(n.Src.ValueType())
		if n.Src.ValueType().IsDouble() {
			zero := s.internDouble(0)
			s.emit(&Cmp{Type: DoubleType, Src: zero, Dst: s.opnd(n.Src)})
		} else {
			s.emit(&Cmp{Type: at, Src: &Imm{Value: 0}, Dst: s.opnd(n.Src)})
		}
		s.emit(&Mov{Type: asmType(n.Dst.ValueType()), Src: &Imm{Value: 0}, Dst: s.opnd(n.Dst)})
		s.emit(&SetCC{Cond: CondE, Dst: s.opnd(n.Dst)})
		return
	}
	dstType := asmType(n.Dst.ValueType())
	if n.Dst.ValueType().IsDouble() && n.Op == ir.Negate {
		// Double negation: computed as the subtraction 0.0 - x.
		zero := s.internDouble(0)
		s.emit(&Mov{Type: DoubleType, Src: zero, Dst: s.opnd(n.Dst)})
		s.emit(&Binary{Op: Sub, Type: DoubleType, Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
		return
	}
	op := Neg
	if n.Op == ir.Complement {
		op = Not
	}
	s.emit(&Mov{Type: dstType, Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	s.emit(&Unary{Op: op, Type: dstType, Dst: s.opnd(n.Dst)})
}

var irToAsmBinOp = map[ir.BinaryOp]BinaryOp{
	ir.Add: Add, ir.Sub: Sub, ir.Mul: Mul,
	ir.And: And, ir.Or: Or, ir.Xor: Xor,
}

func condFor(op ir.BinaryOp, signed bool) CondCode {
	switch op {
	case ir.Eq:
		return CondE
	case ir.Ne:
		return CondNE
	case ir.Lt:
		if signed {
			return CondL
		}
		return CondB
	case ir.Le:
		if signed {
			return CondLE
		}
		return CondBE
	case ir.Gt:
		if signed {
			return CondG
		}
		return CondA
	default: // Ge
		if signed {
			return CondGE
		}
		return CondAE
	}
}

func (s *Selector) selectBinary(n *ir.Binary) {
	operandType := n.Lhs.ValueType()
	at := asmType(operandType)
	isDouble := operandType.IsDouble()

	switch n.Op {
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Gt, ir.Ge:
		if isDouble {
			s.emit(&Cmp{Type: DoubleType, Src: s.opnd(n.Rhs), Dst: s.opnd(n.Lhs)})
		} else {
			s.emit(&Cmp{Type: at, Src: s.opnd(n.Rhs), Dst: s.opnd(n.Lhs)})
		}
		s.emit(&Mov{Type: asmType(n.Dst.ValueType()), Src: &Imm{Value: 0}, Dst: s.opnd(n.Dst)})
		s.emit(&SetCC{Cond: condFor(n.Op, operandType.IsSigned()), Dst: s.opnd(n.Dst)})
		return
	case ir.Div, ir.Mod:
		s.selectDivMod(n, at, operandType.IsSigned(), isDouble)
		return
	case ir.Shl, ir.Shr:
		s.selectShift(n, at, operandType.IsSigned())
		return
	}

	if isDouble {
		op := irToAsmBinOp[n.Op]
		if n.Op == ir.Mul {
			op = Mul
		}
		s.emit(&Mov{Type: DoubleType, Src: s.opnd(n.Lhs), Dst: s.opnd(n.Dst)})
		s.emit(&Binary{Op: op, Type: DoubleType, Src: s.opnd(n.Rhs), Dst: s.opnd(n.Dst)})
		return
	}
	op, ok := irToAsmBinOp[n.Op]
	if !ok {
		utils.ShouldNotReachHere()
	}
	s.emit(&Mov{Type: at, Src: s.opnd(n.Lhs), Dst: s.opnd(n.Dst)})
	s.emit(&Binary{Op: op, Type: at, Src: s.opnd(n.Rhs), Dst: s.opnd(n.Dst)})
}

func (s *Selector) selectDivMod(n *ir.Binary, at AsmType, signed, isDouble bool) {
	if isDouble {
		s.emit(&Mov{Type: DoubleType, Src: s.opnd(n.Lhs), Dst: s.opnd(n.Dst)})
		s.emit(&Binary{Op: DivD, Type: DoubleType, Src: s.opnd(n.Rhs), Dst: s.opnd(n.Dst)})
		return
	}
	s.emit(&Mov{Type: at, Src: s.opnd(n.Lhs), Dst: &Register{Reg: AX}})
	if signed {
		s.emit(&Cdq{Type: at})
		s.emit(&Idiv{Type: at, Src: s.opnd(n.Rhs)})
	} else {
		s.emit(&Mov{Type: at, Src: &Imm{Value: 0}, Dst: &Register{Reg: DX}})
		s.emit(&Div{Type: at, Src: s.opnd(n.Rhs)})
	}
	result := Reg(AX)
	if n.Op == ir.Mod {
		result = DX
	}
	s.emit(&Mov{Type: at, Src: &Register{Reg: result}, Dst: s.opnd(n.Dst)})
}

// selectShift puts the shift count in CL, since x86 variable shifts only
// read the count from that register (§4.4).
func (s *Selector) selectShift(n *ir.Binary, at AsmType, signed bool) {
	op := Shl
	if n.Op == ir.Shr {
		if signed {
			op = ShrArith
		} else {
			op = ShrLogical
		}
	}
	s.emit(&Mov{Type: at, Src: s.opnd(n.Lhs), Dst: s.opnd(n.Dst)})
	if imm, ok := n.Rhs.(*ir.Const); ok {
		s.emit(&Binary{Op: op, Type: at, Src: &Imm{Value: imm.IVal}, Dst: s.opnd(n.Dst)})
		return
	}
	s.emit(&Mov{Type: asmType(n.Rhs.ValueType()), Src: s.opnd(n.Rhs), Dst: &Register{Reg: CX}})
	s.emit(&Binary{Op: op, Type: at, Src: &Register{Reg: CX}, Dst: s.opnd(n.Dst)})
}

// selectAddPtr computes ptr + index*scale without relying on a scaled
// memory-operand addressing mode, keeping the Asm AST's operand model
// simple (§4.4 "Pointer arithmetic").
func (s *Selector) selectAddPtr(n *ir.AddPtr) {
	idx := s.freshPseudo(QuadWord)
	s.emit(&Mov{Type: QuadWord, Src: s.opnd(n.Index), Dst: idx})
	if n.Scale != 1 {
		s.emit(&Binary{Op: Mul, Type: QuadWord, Src: &Imm{Value: uint64(n.Scale)}, Dst: idx})
	}
	s.emit(&Mov{Type: QuadWord, Src: s.opnd(n.Ptr), Dst: s.opnd(n.Dst)})
	s.emit(&Binary{Op: Add, Type: QuadWord, Src: idx, Dst: s.opnd(n.Dst)})
}

// selectDoubleToUInt implements the out-of-range comparison trick: x86
// has no double->unsigned-int instruction (§4.4).
func (s *Selector) selectDoubleToUInt(n *ir.DoubleToUInt) {
	dstType := asmType(n.Dst.ValueType())
	if dstType != QuadWord {
		// The unsigned value fits the positive half of a signed 64-bit
		// range, so a plain signed truncation's low bits are correct.
		tmp := s.freshPseudo(QuadWord)
		s.emit(&Cvttsd2si{DstType: QuadWord, Src: s.opnd(n.Src), Dst: tmp})
		s.emit(&Mov{Type: dstType, Src: tmp, Dst: s.opnd(n.Dst)})
		return
	}
	upper := s.internDouble(9223372036854775808.0)
	oob := s.Counter.Label("d2u_oob")
	end := s.Counter.Label("d2u_end")
	s.emit(&Cmp{Type: DoubleType, Src: upper, Dst: s.opnd(n.Src)})
	s.emit(&JmpCC{Cond: CondAE, Label: oob})
	s.emit(&Cvttsd2si{DstType: QuadWord, Src: s.opnd(n.Src), Dst: s.opnd(n.Dst)})
	s.emit(&Jmp{Label: end})
	s.emit(&AsmLabel{Name: oob})
	shifted := s.freshPseudo(DoubleType)
	s.emit(&Mov{Type: DoubleType, Src: s.opnd(n.Src), Dst: shifted})
	s.emit(&Binary{Op: Sub, Type: DoubleType, Src: upper, Dst: shifted})
	s.emit(&Cvttsd2si{DstType: QuadWord, Src: shifted, Dst: s.opnd(n.Dst)})
	s.emit(&Binary{Op: Add, Type: QuadWord, Src: &Imm{Value: 9223372036854775808}, Dst: s.opnd(n.Dst)})
	s.emit(&AsmLabel{Name: end})
}

// selectUIntToDouble converts an unsigned source to double; <=32-bit
// sources zero-extend into a 64-bit register first (the zero-extended
// value is always a non-negative int64), 64-bit sources need the
// halve-and-double trick (§4.4).
func (s *Selector) selectUIntToDouble(n *ir.UIntToDouble) {
	srcType := asmType(n.Src.ValueType())
	if srcType != QuadWord {
		wide := s.freshPseudo(QuadWord)
		s.emit(&MovZeroExtend{SrcType: srcType, DstType: QuadWord, Src: s.opnd(n.Src), Dst: wide})
		s.emit(&Cvtsi2sd{SrcType: QuadWord, Src: wide, Dst: s.opnd(n.Dst)})
		return
	}
	normal := s.Counter.Label("u2d_normal")
	end := s.Counter.Label("u2d_end")
	tmp := s.freshPseudo(QuadWord)
	s.emit(&Mov{Type: QuadWord, Src: s.opnd(n.Src), Dst: tmp})
	s.emit(&Cmp{Type: QuadWord, Src: &Imm{Value: 0}, Dst: tmp})
	s.emit(&JmpCC{Cond: CondGE, Label: normal})

	half := s.freshPseudo(QuadWord)
	bit := s.freshPseudo(QuadWord)
	s.emit(&Mov{Type: QuadWord, Src: tmp, Dst: half})
	s.emit(&Mov{Type: QuadWord, Src: tmp, Dst: bit})
	s.emit(&Binary{Op: ShrLogical, Type: QuadWord, Src: &Imm{Value: 1}, Dst: half})
	s.emit(&Binary{Op: And, Type: QuadWord, Src: &Imm{Value: 1}, Dst: bit})
	s.emit(&Binary{Op: Or, Type: QuadWord, Src: bit, Dst: half})
	s.emit(&Cvtsi2sd{SrcType: QuadWord, Src: half, Dst: s.opnd(n.Dst)})
	s.emit(&Binary{Op: Add, Type: DoubleType, Src: s.opnd(n.Dst), Dst: s.opnd(n.Dst)})
	s.emit(&Jmp{Label: end})

	s.emit(&AsmLabel{Name: normal})
	s.emit(&Cvtsi2sd{SrcType: QuadWord, Src: tmp, Dst: s.opnd(n.Dst)})
	s.emit(&AsmLabel{Name: end})
}

// selectCall implements the System V calling convention (§4.4): integer
// args in IntArgRegs, double args in SSEArgRegs, overflow pushed in
// reverse order with 16-byte alignment maintained at the call.
func (s *Selector) selectCall(n *ir.FunCall) {
	var intArgs, sseArgs, stackArgs []ir.Value
	for _, a := range n.Args {
		if a.ValueType().IsDouble() {
			if len(sseArgs) < len(SSEArgRegs) {
				sseArgs = append(sseArgs, a)
			} else {
				stackArgs = append(stackArgs, a)
			}
		} else {
			if len(intArgs) < len(IntArgRegs) {
				intArgs = append(intArgs, a)
			} else {
				stackArgs = append(stackArgs, a)
			}
		}
	}

	padding := 0
	if len(stackArgs)%2 != 0 {
		padding = 8
		s.emit(&Binary{Op: Sub, Type: QuadWord, Src: &Imm{Value: 8}, Dst: &Register{Reg: SP}})
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		arg := stackArgs[i]
		op := s.opnd(arg)
		at := asmType(arg.ValueType())
		switch {
		case at == DoubleType:
			// pushq takes a GPR or memory operand, never an xmm register,
			// so copy the bit pattern into a quadword temporary first.
			tmp := s.freshPseudo(QuadWord)
			s.emit(&Mov{Type: QuadWord, Src: op, Dst: tmp})
			s.emit(&Push{Src: tmp})
		case at == QuadWord:
			s.emit(&Push{Src: op})
		default:
			if _, isImm := op.(*Imm); isImm {
				s.emit(&Push{Src: op})
				continue
			}
			// Push always moves 8 bytes; widen smaller operands first.
			tmp := s.freshPseudo(QuadWord)
			s.emit(&MovZeroExtend{SrcType: at, DstType: QuadWord, Src: op, Dst: tmp})
			s.emit(&Push{Src: tmp})
		}
	}
	for i, a := range intArgs {
		s.emit(&Mov{Type: asmType(a.ValueType()), Src: s.opnd(a), Dst: &Register{Reg: IntArgRegs[i]}})
	}
	for i, a := range sseArgs {
		s.emit(&Mov{Type: DoubleType, Src: s.opnd(a), Dst: &Register{Reg: SSEArgRegs[i]}})
	}
	s.emit(&Call{Name: n.Name})

	cleanup := len(stackArgs)*8 + padding
	if cleanup > 0 {
		s.emit(&Binary{Op: Add, Type: QuadWord, Src: &Imm{Value: uint64(cleanup)}, Dst: &Register{Reg: SP}})
	}
	if n.Dst != nil {
		if n.Dst.ValueType().IsDouble() {
			s.emit(&Mov{Type: DoubleType, Src: &Register{Reg: XMM0}, Dst: s.opnd(n.Dst)})
		} else {
			s.emit(&Mov{Type: asmType(n.Dst.ValueType()), Src: &Register{Reg: AX}, Dst: s.opnd(n.Dst)})
		}
	}
}
