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

import (
	"testing"

	"nanoc/ast"
	"nanoc/ir"
	"nanoc/sema"
)

func selectSource(t *testing.T, src string) *Program {
	t.Helper()
	tu, err := ast.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	a := sema.NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) != 0 {
		t.Fatalf("semantic errors: %v", errs)
	}
	gen := ir.NewGenerator(a.Counter, a.Aggs)
	irProg := gen.Generate(tu)
	sel := NewSelector(a.Sym.FileScopeNames(), a.Aggs, a.Counter)
	return sel.Select(irProg)
}

func findFunc(prog *Program, name string) *Function {
	for _, tl := range prog.TopLevels {
		if fn, ok := tl.(*Function); ok && fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestSelectGlobalBecomesDataNotPseudo(t *testing.T) {
	prog := selectSource(t, `int g = 1; int main(void) { return g; }`)
	fn := findFunc(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	found := false
	for _, inst := range fn.Insts {
		if mov, ok := inst.(*Mov); ok {
			if d, ok := mov.Src.(*Data); ok && d.Name == "g" {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected a Mov reading global g via a *Data operand")
	}
}

func TestSelectLocalBecomesPseudoNotData(t *testing.T) {
	prog := selectSource(t, `int main(void) { int x = 1; return x; }`)
	fn := findFunc(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	for _, inst := range fn.Insts {
		if mov, ok := inst.(*Mov); ok {
			if _, ok := mov.Dst.(*Data); ok {
				t.Error("local variable selected as *Data, want *Pseudo")
			}
		}
	}
}

func TestSelectLoadStoreUsesR10DereferenceHop(t *testing.T) {
	prog := selectSource(t, `int main(void) { int x = 1; int *p = &x; return *p; }`)
	fn := findFunc(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	sawIndirectBaseR10 := false
	for _, inst := range fn.Insts {
		mov, ok := inst.(*Mov)
		if !ok {
			continue
		}
		if ind, ok := mov.Src.(*Indirect); ok {
			if reg, ok := ind.Base.(*Register); ok && reg.Reg == R10 {
				sawIndirectBaseR10 = true
			}
		}
	}
	if !sawIndirectBaseR10 {
		t.Error("expected the Load to dereference through a R10-based *Indirect operand")
	}
}

func TestSelectNeverEmitsScratchRegistersAsGeneralOperands(t *testing.T) {
	// R10/R11/XMM14/XMM15 are reserved for legalize.go; instruction
	// selection may only use R10 for the mandatory Load/Store hop.
	prog := selectSource(t, `
		double f(double a, double b) { return a/b; }
		int main(void) { return (int)f(1.0, 2.0); }
	`)
	fn := findFunc(prog, "f")
	if fn == nil {
		t.Fatal("f not found")
	}
	for _, inst := range fn.Insts {
		walkOperands(inst, func(o *Operand) {
			if reg, ok := (*o).(*Register); ok && (reg.Reg == XMM14 || reg.Reg == XMM15 || reg.Reg == R11) {
				t.Errorf("instruction selection emitted scratch register %v directly", reg.Reg)
			}
		})
	}
}

func TestSelectDoubleNegationUsesSubtractNotXor(t *testing.T) {
	prog := selectSource(t, `double neg(double x) { return -x; }`)
	fn := findFunc(prog, "neg")
	if fn == nil {
		t.Fatal("neg not found")
	}
	sawSub, sawXor := false, false
	for _, inst := range fn.Insts {
		if b, ok := inst.(*Binary); ok && b.Type == DoubleType {
			switch b.Op {
			case Sub:
				sawSub = true
			case Xor:
				sawXor = true
			}
		}
	}
	if !sawSub {
		t.Error("expected double negation to lower via Sub")
	}
	if sawXor {
		t.Error("double negation should not lower via Xor (sign-mask), chosen uniform subtract approach")
	}
}

func TestSelectStaticStructPreservesPaddingOffsets(t *testing.T) {
	prog := selectSource(t, `struct P { char c; int i; }; static struct P p = {1, 2};`)
	var sv *StaticVariable
	for _, tl := range prog.TopLevels {
		if s, ok := tl.(*StaticVariable); ok && s.Name == "p" {
			sv = s
		}
	}
	if sv == nil {
		t.Fatal("static variable p not found")
	}
	if len(sv.Init) < 8 {
		t.Fatalf("got %d init bytes, want at least 8 (char + 3 pad + int)", len(sv.Init))
	}
	if sv.Init[0] != 1 {
		t.Errorf("byte 0 = %d, want 1 (the char member)", sv.Init[0])
	}
	if sv.Init[4] != 2 {
		t.Errorf("byte 4 = %d, want 2 (the int member, after padding)", sv.Init[4])
	}
}

func TestSelectAllZeroStaticGoesToBSS(t *testing.T) {
	prog := selectSource(t, `static int z[4];`)
	var sv *StaticVariable
	for _, tl := range prog.TopLevels {
		if s, ok := tl.(*StaticVariable); ok && s.Name == "z" {
			sv = s
		}
	}
	if sv == nil {
		t.Fatal("static variable z not found")
	}
	if sv.Init != nil {
		t.Error("expected a nil Init (.bss) for an all-zero static array")
	}
}
