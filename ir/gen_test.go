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
package ir

import (
	"testing"

	"nanoc/ast"
	"nanoc/sema"
)

func generate(t *testing.T, src string) *Program {
	t.Helper()
	tu, err := ast.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	a := sema.NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) != 0 {
		t.Fatalf("semantic errors: %v", errs)
	}
	g := NewGenerator(a.Counter, a.Aggs)
	return g.Generate(tu)
}

func findFunction(prog *Program, name string) *Function {
	for _, tl := range prog.TopLevels {
		if fn, ok := tl.(*Function); ok && fn.Name == name {
			return fn
		}
	}
	return nil
}

func countInsts(insts []Instruction, match func(Instruction) bool) int {
	n := 0
	for _, inst := range insts {
		if match(inst) {
			n++
		}
	}
	return n
}

func TestGenReturnConstantArithmeticFoldsNothingAtIRLevel(t *testing.T) {
	prog := generate(t, `int main(void) { return 2+3*4; }`)
	fn := findFunction(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	if n := countInsts(fn.Insts, func(i Instruction) bool { _, ok := i.(*Binary); return ok }); n != 2 {
		t.Errorf("got %d Binary instructions, want 2 (mul then add)", n)
	}
	if _, ok := fn.Insts[len(fn.Insts)-1].(*Return); !ok {
		t.Errorf("last instruction is %T, want *Return", fn.Insts[len(fn.Insts)-1])
	}
}

func TestGenLocalArrayEmitsAllocateBeforeInit(t *testing.T) {
	prog := generate(t, `int main(void) { int a[3]={1,2,3}; return a[0]; }`)
	fn := findFunction(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	allocIdx, copyIdx := -1, -1
	for i, inst := range fn.Insts {
		switch inst.(type) {
		case *Allocate:
			if allocIdx == -1 {
				allocIdx = i
			}
		case *CopyToOffset:
			if copyIdx == -1 {
				copyIdx = i
			}
		}
	}
	if allocIdx == -1 {
		t.Fatal("expected an Allocate instruction for the local array")
	}
	if copyIdx == -1 {
		t.Fatal("expected a CopyToOffset instruction for the array initializer")
	}
	if allocIdx > copyIdx {
		t.Errorf("Allocate at %d came after CopyToOffset at %d", allocIdx, copyIdx)
	}
}

func TestGenStaticArrayRecordsOffsetsNotFlatList(t *testing.T) {
	prog := generate(t, `struct P { char c; int i; }; static struct P p = {1, 2};`)
	var sa *StaticArray
	for _, tl := range prog.TopLevels {
		if s, ok := tl.(*StaticArray); ok {
			sa = s
		}
	}
	if sa == nil {
		t.Fatal("expected a StaticArray top level for the static struct")
	}
	if len(sa.Init) != 2 {
		t.Fatalf("got %d init elements, want 2", len(sa.Init))
	}
	if sa.Init[0].Offset != 0 {
		t.Errorf("first member offset = %d, want 0", sa.Init[0].Offset)
	}
	if sa.Init[1].Offset != 4 {
		t.Errorf("second member offset = %d, want 4 (aligned past the char)", sa.Init[1].Offset)
	}
}

func TestGenCompoundAssignWidensBeforeOpAndNarrowsAfter(t *testing.T) {
	prog := generate(t, `
		int main(void) {
			int a = 1000000000;
			long b = 5000000000L;
			a /= b;
			return a;
		}
	`)
	fn := findFunction(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	// The compound division must run on 64-bit operands: a SignExtend
	// widens a's I32 value to I64 before the Binary Div, and a Truncate
	// narrows the I64 result back to I32 when storing into a.
	sawWideningExtend := countInsts(fn.Insts, func(i Instruction) bool {
		_, ok := i.(*SignExtend)
		return ok
	})
	if sawWideningExtend == 0 {
		t.Error("expected a SignExtend widening a to long before the compound division")
	}
	sawNarrowingTruncate := countInsts(fn.Insts, func(i Instruction) bool {
		_, ok := i.(*Truncate)
		return ok
	})
	if sawNarrowingTruncate == 0 {
		t.Error("expected a Truncate narrowing the division result back to int")
	}
	for _, inst := range fn.Insts {
		if b, ok := inst.(*Binary); ok && b.Op == Div {
			if b.Lhs.ValueType().ScalarSize() != 8 {
				t.Errorf("Div operates on a %d-byte value, want 8 (widened to long)", b.Lhs.ValueType().ScalarSize())
			}
		}
	}
}

func TestGenWhileLoopEmitsLabelsAndJumps(t *testing.T) {
	prog := generate(t, `int main(void){ int x=0; int i=0; while(i<10){ x=x+i; i=i+1; } return x; }`)
	fn := findFunction(prog, "main")
	if fn == nil {
		t.Fatal("main not found")
	}
	labels := countInsts(fn.Insts, func(i Instruction) bool { _, ok := i.(*Label); return ok })
	if labels < 2 {
		t.Errorf("got %d labels, want at least 2 (continue + break)", labels)
	}
}
