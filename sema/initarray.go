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

// initarray.go is the "Array initializer normalization" pass (§4.2):
// every compound initializer for an array or aggregate is rewritten into
// a fully-populated CompoundInit of exactly the declared element count,
// in row-major order, with ZeroInit filling positional gaps and the
// trailing pad (SPEC_FULL.md §3, grounded on original_source's
// InitArray.cpp/InitCompound.cpp).
package sema

import "nanoc/ast"

func (a *Analyzer) normalizeInitializersTranslationUnit(tu *ast.TranslationUnit) {
	for _, d := range tu.Decls {
		switch n := d.(type) {
		case *ast.VarDecl:
			if n.Init != nil {
				n.Init = a.normalizeInit(n.Init, n.Type)
			}
		case *ast.FuncDecl:
			if n.Body != nil {
				a.normalizeBody(n.Body)
			}
		}
	}
}

func (a *Analyzer) normalizeBody(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			switch it := item.(type) {
			case *ast.VarDecl:
				if it.Init != nil {
					it.Init = a.normalizeInit(it.Init, it.Type)
				}
			case ast.Stmt:
				a.normalizeBody(it)
			}
		}
	case *ast.IfStmt:
		a.normalizeBody(n.Then)
		if n.Else != nil {
			a.normalizeBody(n.Else)
		}
	case *ast.LabeledStmt:
		a.normalizeBody(n.Inner)
	case *ast.CaseStmt:
		a.normalizeBody(n.Inner)
	case *ast.WhileStmt:
		a.normalizeBody(n.Body)
	case *ast.DoWhileStmt:
		a.normalizeBody(n.Body)
	case *ast.ForStmt:
		if vd, ok := n.Init.(*ast.VarDecl); ok && vd.Init != nil {
			vd.Init = a.normalizeInit(vd.Init, vd.Type)
		}
		a.normalizeBody(n.Body)
	case *ast.SwitchStmt:
		a.normalizeBody(n.Body)
	}
}

func (a *Analyzer) normalizeInit(init ast.Init, t *ast.Type) ast.Init {
	switch t.Kind {
	case ast.Array:
		return a.normalizeArrayInit(init, t)
	case ast.Struct, ast.Union:
		return a.normalizeAggregateInit(init, t)
	default:
		return init
	}
}

func (a *Analyzer) normalizeArrayInit(init ast.Init, t *ast.Type) ast.Init {
	n := t.Size
	elemSize := TypeSize(t.Elem, a.Aggs)

	if si, ok := init.(*ast.StringInit); ok {
		if !t.Elem.IsInteger() || t.Elem.ScalarSize() != 1 {
			a.Diags.Add(si.Pos(), "string literal used to initialize a non-char array")
			return init
		}
		want := len(si.Bytes)
		if si.NullTerminated {
			want++
		}
		if want > n {
			a.Diags.Add(si.Pos(), "string literal is too long for the declared array of size %d", n)
		}
		elems := make([]ast.Init, 0, n)
		for i := 0; i < len(si.Bytes) && i < n; i++ {
			elems = append(elems, charSlot(si.Bytes[i]))
		}
		if si.NullTerminated && len(elems) < n {
			elems = append(elems, charSlot(0))
		}
		for len(elems) < n {
			elems = append(elems, &ast.ZeroInit{Bytes: elemSize})
		}
		return &ast.CompoundInit{Elems: elems}
	}

	ci, ok := init.(*ast.CompoundInit)
	if !ok {
		a.Diags.Add(init.Pos(), "array must be initialized by a compound initializer or string literal")
		return init
	}
	elems := make([]ast.Init, 0, n)
	for i := 0; i < n; i++ {
		if i < len(ci.Elems) {
			elems = append(elems, a.normalizeInit(ci.Elems[i], t.Elem))
		} else {
			elems = append(elems, &ast.ZeroInit{Bytes: elemSize})
		}
	}
	return &ast.CompoundInit{Elems: elems}
}

func charSlot(b byte) *ast.SingleInit {
	c := &ast.ConstExpr{Kind: ast.ConstChar, IVal: uint64(b)}
	c.SetType(ast.VarType(ast.Char))
	return &ast.SingleInit{Expr: c}
}

func (a *Analyzer) normalizeAggregateInit(init ast.Init, t *ast.Type) ast.Init {
	agg, ok := a.Aggs.Lookup(t.Name)
	if !ok {
		return init
	}
	ci, ok := init.(*ast.CompoundInit)
	if !ok {
		a.Diags.Add(init.Pos(), "struct/union must be initialized by a compound initializer")
		return init
	}
	elems := make([]ast.Init, 0, len(agg.Members))
	for i, m := range agg.Members {
		if i < len(ci.Elems) {
			elems = append(elems, a.normalizeInit(ci.Elems[i], m.Type))
		} else {
			elems = append(elems, &ast.ZeroInit{Bytes: TypeSize(m.Type, a.Aggs)})
		}
	}
	return &ast.CompoundInit{Elems: elems}
}
