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
package ast

import "testing"

func mustParse(t *testing.T, src string) *TranslationUnit {
	t.Helper()
	tu, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	return tu
}

func TestParseSimpleFunction(t *testing.T) {
	tu := mustParse(t, `int main(void) { return 2+3*4; }`)
	if len(tu.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(tu.Decls))
	}
	fd, ok := tu.Decls[0].(*FuncDecl)
	if !ok {
		t.Fatalf("decl is %T, want *FuncDecl", tu.Decls[0])
	}
	if fd.Name != "main" {
		t.Errorf("name = %q, want main", fd.Name)
	}
	if len(fd.Body.Items) != 1 {
		t.Fatalf("got %d body items, want 1", len(fd.Body.Items))
	}
	ret, ok := fd.Body.Items[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("item is %T, want *ReturnStmt", fd.Body.Items[0])
	}
	bin, ok := ret.Expr.(*BinaryExpr)
	if !ok {
		t.Fatalf("expr is %T, want *BinaryExpr", ret.Expr)
	}
	if bin.Op != BinAdd {
		t.Errorf("top-level op = %v, want BinAdd (precedence: * binds tighter)", bin.Op)
	}
}

func TestParseArrayDeclWithInitializer(t *testing.T) {
	tu := mustParse(t, `int main(void) { int a[3] = {1,2,3}; return a[0]; }`)
	fd := tu.Decls[0].(*FuncDecl)
	vd, ok := fd.Body.Items[0].(*VarDecl)
	if !ok {
		t.Fatalf("item is %T, want *VarDecl", fd.Body.Items[0])
	}
	if vd.Type.Kind != Array {
		t.Fatalf("type kind = %v, want Array", vd.Type.Kind)
	}
	ci, ok := vd.Init.(*CompoundInit)
	if !ok {
		t.Fatalf("init is %T, want *CompoundInit", vd.Init)
	}
	if len(ci.Elems) != 3 {
		t.Errorf("got %d elements, want 3", len(ci.Elems))
	}
}

func TestParseStructDecl(t *testing.T) {
	tu := mustParse(t, `
		struct Point { int x; int y; };
		int main(void) { struct Point p; return 0; }
	`)
	sd, ok := tu.Decls[0].(*StructuredDecl)
	if !ok {
		t.Fatalf("decl is %T, want *StructuredDecl", tu.Decls[0])
	}
	if sd.Kind != StructKind || len(sd.Members) != 2 {
		t.Errorf("got kind=%v members=%d, want StructKind/2", sd.Kind, len(sd.Members))
	}
}

func TestParseErrorReportsOffset(t *testing.T) {
	_, err := Parse([]byte(`int main(void) { return 0 }`))
	if err == nil {
		t.Fatal("expected a parse error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error is %T, want *ParseError", err)
	}
	if pe.Offset <= 0 {
		t.Errorf("offset = %d, want > 0", pe.Offset)
	}
}
