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
package asm

import "testing"

func allOperandsLegal(t *testing.T, insts []Instruction) {
	t.Helper()
	for _, inst := range insts {
		switch n := inst.(type) {
		case *Mov:
			if isMemory(n.Src) && isMemory(n.Dst) {
				t.Errorf("Mov has two memory operands: %v <- %v", n.Dst, n.Src)
			}
		case *Binary:
			if n.Op != Mul && isMemory(n.Src) && isMemory(n.Dst) {
				t.Errorf("Binary has two memory operands: %v <- %v", n.Dst, n.Src)
			}
			if n.Op == Mul && isMemory(n.Dst) {
				t.Errorf("Mul has a memory destination: %v", n.Dst)
			}
		case *Cmp:
			if isMemory(n.Src) && isMemory(n.Dst) {
				t.Errorf("Cmp has two memory operands: %v <- %v", n.Dst, n.Src)
			}
			if _, ok := n.Dst.(*Imm); ok {
				t.Error("Cmp has an immediate destination")
			}
		case *Idiv:
			if isImm(n.Src) {
				t.Error("Idiv has an immediate operand")
			}
		case *Div:
			if isImm(n.Src) {
				t.Error("Div has an immediate operand")
			}
		}
	}
}

func TestLegalizeFixesTwoMemoryOperandMov(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Mov{Type: LongWord, Src: &Stack{Offset: -4}, Dst: &Stack{Offset: -8}},
		},
	}
	prog := &Program{TopLevels: []TopLevel{fn}}
	Legalize(prog)
	allOperandsLegal(t, fn.Insts)
}

func TestLegalizeFixesOversizedImmediate(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Binary{Op: Add, Type: QuadWord, Src: &Imm{Value: 1 << 40}, Dst: &Stack{Offset: -8}},
		},
	}
	prog := &Program{TopLevels: []TopLevel{fn}}
	Legalize(prog)
	allOperandsLegal(t, fn.Insts)
}

func TestLegalizeFixesMulMemoryDestination(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Binary{Op: Mul, Type: LongWord, Src: &Imm{Value: 2}, Dst: &Stack{Offset: -4}},
		},
	}
	prog := &Program{TopLevels: []TopLevel{fn}}
	Legalize(prog)
	allOperandsLegal(t, fn.Insts)
	// the final write must still land in the original memory destination.
	last := fn.Insts[len(fn.Insts)-1].(*Mov)
	if st, ok := last.Dst.(*Stack); !ok || st.Offset != -4 {
		t.Errorf("expected the fixed-up Mul result stored back to -4(%%rbp), got %v", last.Dst)
	}
}

func TestLegalizeFixesIdivImmediateDivisor(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Idiv{Type: LongWord, Src: &Imm{Value: 3}},
		},
	}
	prog := &Program{TopLevels: []TopLevel{fn}}
	Legalize(prog)
	allOperandsLegal(t, fn.Insts)
}

func TestLegalizePrependsStackAllocationWhenNonZero(t *testing.T) {
	fn := &Function{Name: "f", StackBytes: 32, Insts: []Instruction{&Ret{}}}
	prog := &Program{TopLevels: []TopLevel{fn}}
	Legalize(prog)
	sub, ok := fn.Insts[0].(*Binary)
	if !ok || sub.Op != Sub {
		t.Fatalf("first instruction is %T, want *Binary Sub for stack allocation", fn.Insts[0])
	}
	if imm, ok := sub.Src.(*Imm); !ok || imm.Value != 32 {
		t.Errorf("stack allocation amount = %v, want 32", sub.Src)
	}
}

func TestLegalizeIsIdempotent(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Mov{Type: LongWord, Src: &Stack{Offset: -4}, Dst: &Stack{Offset: -8}},
			&Binary{Op: Add, Type: QuadWord, Src: &Imm{Value: 1 << 40}, Dst: &Stack{Offset: -16}},
		},
	}
	prog := &Program{TopLevels: []TopLevel{fn}}
	Legalize(prog)
	allOperandsLegal(t, fn.Insts)
	firstPassLen := len(fn.Insts)
	Legalize(prog)
	allOperandsLegal(t, fn.Insts)
	if len(fn.Insts) != firstPassLen {
		t.Errorf("re-running Legalize changed instruction count: %d -> %d", firstPassLen, len(fn.Insts))
	}
}
