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

// returns.go is the "Return validation" pass (§4.2): every integer-
// returning function falls off the end with an implicit `return 0`, and
// returning a value from a void function is rejected.
package sema

import "nanoc/ast"

func (a *Analyzer) validateReturnsTranslationUnit(tu *ast.TranslationUnit) {
	for _, d := range tu.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		a.checkVoidReturns(fd.Body, fd.Type.Ret)
		if fd.Type.Ret.IsInteger() && !endsInReturn(fd.Body) {
			zero := &ast.ConstExpr{Kind: ast.ConstI32, IVal: 0}
			zero.SetType(ast.VarType(ast.I32))
			ret := &ast.ReturnStmt{Expr: a.convertTo(zero, fd.Type.Ret)}
			fd.Body.Items = append(fd.Body.Items, ret)
		}
	}
}

func endsInReturn(body *ast.CompoundStmt) bool {
	if len(body.Items) == 0 {
		return false
	}
	last, ok := body.Items[len(body.Items)-1].(ast.Stmt)
	if !ok {
		return false
	}
	_, isReturn := last.(*ast.ReturnStmt)
	return isReturn
}

func (a *Analyzer) checkVoidReturns(s ast.Stmt, retType *ast.Type) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			if st, ok := item.(ast.Stmt); ok {
				a.checkVoidReturns(st, retType)
			}
		}
	case *ast.ReturnStmt:
		if retType.IsVoid() && n.Expr != nil {
			a.Diags.Add(n.Pos(), "cannot return a value from a function returning void")
		}
	case *ast.IfStmt:
		a.checkVoidReturns(n.Then, retType)
		if n.Else != nil {
			a.checkVoidReturns(n.Else, retType)
		}
	case *ast.LabeledStmt:
		a.checkVoidReturns(n.Inner, retType)
	case *ast.CaseStmt:
		a.checkVoidReturns(n.Inner, retType)
	case *ast.WhileStmt:
		a.checkVoidReturns(n.Body, retType)
	case *ast.DoWhileStmt:
		a.checkVoidReturns(n.Body, retType)
	case *ast.ForStmt:
		a.checkVoidReturns(n.Body, retType)
	case *ast.SwitchStmt:
		a.checkVoidReturns(n.Body, retType)
	}
}
