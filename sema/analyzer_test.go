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
package sema

import (
	"testing"

	"nanoc/ast"
)

func parseOrFail(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	tu, err := ast.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	return tu
}

func TestAnalyzeWellTypedProgram(t *testing.T) {
	tu := parseOrFail(t, `
		int add(int a, int b) { return a+b; }
		int main(void) { return add(2,3); }
	`)
	a := NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestAnalyzeRejectsRedeclarationWithConflictingLinkage(t *testing.T) {
	tu := parseOrFail(t, `
		static int x;
		int x;
		int main(void) { return x; }
	`)
	a := NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) == 0 {
		t.Fatal("expected a conflicting-linkage error")
	}
}

func TestAnalyzeRejectsBreakOutsideLoop(t *testing.T) {
	tu := parseOrFail(t, `int main(void) { break; return 0; }`)
	a := NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) == 0 {
		t.Fatal("expected a break-outside-loop error")
	}
}

func TestAnalyzeRejectsDuplicateCaseValue(t *testing.T) {
	tu := parseOrFail(t, `
		int main(void) {
			switch (1) {
			case 1: return 1;
			case 1: return 2;
			}
			return 0;
		}
	`)
	a := NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) == 0 {
		t.Fatal("expected a duplicate-case error")
	}
}

func TestCommonTypePicksUnsignedOnEqualSize(t *testing.T) {
	u32 := ast.VarType(ast.U32)
	i32 := ast.VarType(ast.I32)
	if got := commonType(i32, u32); got.Kind != ast.U32 {
		t.Errorf("commonType(I32,U32) = %v, want U32", got.Kind)
	}
	if got := commonType(u32, i32); got.Kind != ast.U32 {
		t.Errorf("commonType(U32,I32) = %v, want U32", got.Kind)
	}
}

func TestCheckAssignCompoundUsesCommonTypeNotLHSType(t *testing.T) {
	tu := parseOrFail(t, `
		int main(void) {
			int x = 2;
			x *= 1.9;
			int a = 1000000000;
			long b = 5000000000L;
			a /= b;
			return 0;
		}
	`)
	a := NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	fd := tu.Decls[0].(*ast.FuncDecl)
	var assigns []*ast.AssignExpr
	for _, item := range fd.Body.Items {
		es, ok := item.(*ast.ExprStmt)
		if !ok {
			continue
		}
		if ae, ok := es.Expr.(*ast.AssignExpr); ok {
			assigns = append(assigns, ae)
		}
	}
	if len(assigns) != 2 {
		t.Fatalf("got %d compound assignments, want 2", len(assigns))
	}

	mulAssign := assigns[0]
	if mulAssign.OpType == nil || mulAssign.OpType.Kind != ast.Double {
		t.Errorf("x *= 1.9: OpType = %v, want Double (the common type of int and double)", mulAssign.OpType)
	}
	if mulAssign.GetType().Kind != ast.I32 {
		t.Errorf("x *= 1.9: result type = %v, want I32 (narrowed back to x's type)", mulAssign.GetType())
	}

	divAssign := assigns[1]
	if divAssign.OpType == nil || divAssign.OpType.Kind != ast.I64 {
		t.Errorf("a /= b: OpType = %v, want I64 (the common type of int and long)", divAssign.OpType)
	}
	if divAssign.GetType().Kind != ast.I32 {
		t.Errorf("a /= b: result type = %v, want I32 (narrowed back to a's type)", divAssign.GetType())
	}
}

func TestFileScopeNamesExcludesLocals(t *testing.T) {
	tu := parseOrFail(t, `
		int g;
		int main(void) { int local; return local; }
	`)
	a := NewAnalyzer()
	if errs := a.Analyze(tu); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	names := a.Sym.FileScopeNames()
	if !names["g"] {
		t.Error(`expected "g" in file-scope names`)
	}
	if !names["main"] {
		t.Error(`expected "main" in file-scope names`)
	}
	if names["local"] {
		t.Error(`"local" leaked into file-scope names`)
	}
}
