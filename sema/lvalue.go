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

// lvalue.go is the separate verification pass (§4.2 "Lvalue
// verification"): it does not re-derive types, only confirms that
// ++/--/& operate on a genuine lvalue, catching things like `&++x` or
// `*x++`'s interior postfix-on-postfix.
package sema

import "nanoc/ast"

func (a *Analyzer) verifyLvaluesTranslationUnit(tu *ast.TranslationUnit) {
	for _, d := range tu.Decls {
		switch n := d.(type) {
		case *ast.FuncDecl:
			if n.Body != nil {
				a.verifyStmt(n.Body)
			}
		case *ast.VarDecl:
			if n.Init != nil {
				a.verifyInit(n.Init)
			}
		}
	}
}

func (a *Analyzer) verifyStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			switch it := item.(type) {
			case *ast.VarDecl:
				if it.Init != nil {
					a.verifyInit(it.Init)
				}
			case ast.Stmt:
				a.verifyStmt(it)
			}
		}
	case *ast.ReturnStmt:
		if n.Expr != nil {
			a.verifyExpr(n.Expr)
		}
	case *ast.ExprStmt:
		a.verifyExpr(n.Expr)
	case *ast.IfStmt:
		a.verifyExpr(n.Cond)
		a.verifyStmt(n.Then)
		if n.Else != nil {
			a.verifyStmt(n.Else)
		}
	case *ast.LabeledStmt:
		a.verifyStmt(n.Inner)
	case *ast.CaseStmt:
		a.verifyStmt(n.Inner)
	case *ast.WhileStmt:
		a.verifyExpr(n.Cond)
		a.verifyStmt(n.Body)
	case *ast.DoWhileStmt:
		a.verifyStmt(n.Body)
		a.verifyExpr(n.Cond)
	case *ast.ForStmt:
		if es, ok := n.Init.(*ast.ExprStmt); ok {
			a.verifyExpr(es.Expr)
		}
		if n.Cond != nil {
			a.verifyExpr(n.Cond)
		}
		if n.Post != nil {
			a.verifyExpr(n.Post)
		}
		a.verifyStmt(n.Body)
	case *ast.SwitchStmt:
		a.verifyExpr(n.Cond)
		a.verifyStmt(n.Body)
	}
}

func (a *Analyzer) verifyInit(i ast.Init) {
	switch n := i.(type) {
	case *ast.SingleInit:
		a.verifyExpr(n.Expr)
	case *ast.CompoundInit:
		for _, e := range n.Elems {
			a.verifyInit(e)
		}
	}
}

// verifyExpr walks e and flags ++/--/& applied to a non-lvalue operand.
// It does not care about decay-inserted AddrOfExpr nodes (those wrap an
// already-validated lvalue), only about the operand shapes a user could
// actually write.
func (a *Analyzer) verifyExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.UnaryExpr:
		a.verifyExpr(n.Operand)
		switch n.Op {
		case ast.UnaryPreInc, ast.UnaryPreDec, ast.UnaryPostInc, ast.UnaryPostDec:
			if !isLvalue(n.Operand) {
				a.Diags.Add(n.Pos(), "increment/decrement requires an lvalue operand")
			}
		}
	case *ast.AddrOfExpr:
		a.verifyExpr(n.Inner)
		// A string literal only appears here through array decay.
		if _, isString := n.Inner.(*ast.StringExpr); !isString && !isLvalue(n.Inner) {
			a.Diags.Add(n.Pos(), "'&' requires an lvalue operand")
		}
	case *ast.BinaryExpr:
		a.verifyExpr(n.Left)
		a.verifyExpr(n.Right)
	case *ast.AssignExpr:
		a.verifyExpr(n.Left)
		a.verifyExpr(n.Right)
		if !isLvalue(n.Left) {
			a.Diags.Add(n.Pos(), "left side of assignment is not an lvalue")
		}
	case *ast.TernaryExpr:
		a.verifyExpr(n.Cond)
		a.verifyExpr(n.Then)
		a.verifyExpr(n.Else)
	case *ast.CastExpr:
		a.verifyExpr(n.Inner)
	case *ast.CallExpr:
		for _, arg := range n.Args {
			a.verifyExpr(arg)
		}
	case *ast.DerefExpr:
		a.verifyExpr(n.Inner)
	case *ast.SubscriptExpr:
		a.verifyExpr(n.Base)
		a.verifyExpr(n.Index)
	case *ast.SizeofExpr:
		if n.Operand != nil {
			a.verifyExpr(n.Operand)
		}
	case *ast.MemberExpr:
		a.verifyExpr(n.Base)
	}
}
