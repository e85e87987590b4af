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

import "nanoc/ast"

// funcSig holds a function's declared parameter/return types, keyed by
// unique name, for call-site argument conversion.
type funcSig struct {
	ret    *ast.Type
	params []*ast.Type
}

func (a *Analyzer) typeCheckTranslationUnit(tu *ast.TranslationUnit) {
	a.sigs = map[string]funcSig{}
	for _, d := range tu.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok {
			a.sigs[fd.Name] = funcSig{ret: fd.Type.Ret, params: fd.Type.Params}
		}
	}
	for _, d := range tu.Decls {
		a.typeCheckDecl(d)
	}
}

func (a *Analyzer) typeCheckDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.FuncDecl:
		if n.Body != nil {
			a.typeCheckStmt(n.Body, n.Type.Ret)
		}
	case *ast.VarDecl:
		if n.Init != nil {
			a.typeCheckInit(n.Init, n.Type)
		}
	}
}

func (a *Analyzer) typeCheckStmt(s ast.Stmt, retType *ast.Type) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			switch it := item.(type) {
			case *ast.VarDecl:
				if it.Init != nil {
					a.typeCheckInit(it.Init, it.Type)
				}
			case ast.Stmt:
				a.typeCheckStmt(it, retType)
			}
		}
	case *ast.ReturnStmt:
		if n.Expr != nil {
			n.Expr = a.checkExpr(n.Expr)
			if !retType.IsVoid() {
				n.Expr = a.convertTo(n.Expr, retType)
			}
		}
	case *ast.ExprStmt:
		n.Expr = a.checkExpr(n.Expr)
	case *ast.IfStmt:
		n.Cond = a.checkExpr(n.Cond)
		a.requireScalar(n.Cond)
		a.typeCheckStmt(n.Then, retType)
		if n.Else != nil {
			a.typeCheckStmt(n.Else, retType)
		}
	case *ast.LabeledStmt:
		a.typeCheckStmt(n.Inner, retType)
	case *ast.CaseStmt:
		if n.Expr != nil {
			n.Expr = a.checkExpr(n.Expr)
		}
		a.typeCheckStmt(n.Inner, retType)
	case *ast.WhileStmt:
		n.Cond = a.checkExpr(n.Cond)
		a.requireScalar(n.Cond)
		a.typeCheckStmt(n.Body, retType)
	case *ast.DoWhileStmt:
		a.typeCheckStmt(n.Body, retType)
		n.Cond = a.checkExpr(n.Cond)
		a.requireScalar(n.Cond)
	case *ast.ForStmt:
		switch init := n.Init.(type) {
		case *ast.VarDecl:
			if init.Init != nil {
				a.typeCheckInit(init.Init, init.Type)
			}
		case *ast.ExprStmt:
			init.Expr = a.checkExpr(init.Expr)
		}
		if n.Cond != nil {
			n.Cond = a.checkExpr(n.Cond)
			a.requireScalar(n.Cond)
		}
		if n.Post != nil {
			n.Post = a.checkExpr(n.Post)
		}
		a.typeCheckStmt(n.Body, retType)
	case *ast.SwitchStmt:
		n.Cond = a.checkExpr(n.Cond)
		if n.Cond.GetType().IsDouble() {
			a.Diags.Add(n.Pos(), "switch condition cannot be of type double")
		} else if n.Cond.GetType().IsPointer() {
			a.Diags.Add(n.Pos(), "switch condition cannot be a pointer")
		}
		a.typeCheckStmt(n.Body, retType)
	}
}

func (a *Analyzer) typeCheckInit(i ast.Init, target *ast.Type) {
	switch n := i.(type) {
	case *ast.SingleInit:
		n.Expr = a.checkExpr(n.Expr)
		n.Expr = a.convertTo(n.Expr, target)
	case *ast.CompoundInit:
		elemType := target
		if target.IsArray() {
			elemType = target.Elem
		}
		for _, e := range n.Elems {
			a.typeCheckInit(e, elemType)
		}
	}
}

func (a *Analyzer) requireScalar(e ast.Expr) {
	if !e.GetType().IsScalar() {
		a.Diags.Add(e.Pos(), "controlling expression must have scalar type")
	}
}

// decay implements §4.2's array-to-pointer decay: required before any
// other operator sees the expression.
func (a *Analyzer) decay(e ast.Expr) ast.Expr {
	t := e.GetType()
	if t == nil || !t.IsArray() {
		return e
	}
	addr := &ast.AddrOfExpr{Inner: e}
	addr.SetType(ast.PointerTo(t.Elem))
	return addr
}

// checkExpr type-checks e bottom-up and applies array-to-pointer decay
// to the result (§4.2).
func (a *Analyzer) checkExpr(e ast.Expr) ast.Expr {
	return a.decay(a.checkRaw(e))
}

func (a *Analyzer) checkRaw(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.ConstExpr:
		n.SetType(ast.VarType(constKindToKind(n.Kind)))
		return n
	case *ast.StringExpr:
		n.SetType(ast.ArrayOf(ast.VarType(ast.Char), len(n.Bytes)+1))
		return n
	case *ast.VarExpr:
		entry, _, found := a.Sym.Lookup(n.Name)
		if !found {
			a.Diags.Add(n.Pos(), "use of undeclared identifier '%s'", n.Name)
			n.SetType(ast.VarType(ast.I32))
			return n
		}
		n.SetType(entry.Type)
		return n
	case *ast.CastExpr:
		n.Inner = a.checkExpr(n.Inner)
		a.checkCast(n)
		n.SetType(n.Target)
		return n
	case *ast.UnaryExpr:
		return a.checkUnary(n)
	case *ast.BinaryExpr:
		return a.checkBinary(n)
	case *ast.AssignExpr:
		return a.checkAssign(n)
	case *ast.TernaryExpr:
		return a.checkTernary(n)
	case *ast.CallExpr:
		return a.checkCall(n)
	case *ast.DerefExpr:
		n.Inner = a.checkExpr(n.Inner)
		if !n.Inner.GetType().IsPointer() {
			a.Diags.Add(n.Pos(), "cannot dereference a non-pointer expression")
			n.SetType(ast.VarType(ast.I32))
			return n
		}
		n.SetType(n.Inner.GetType().Referent)
		return n
	case *ast.AddrOfExpr:
		n.Inner = a.checkRaw(n.Inner)
		n.SetType(ast.PointerTo(n.Inner.GetType()))
		return n
	case *ast.SubscriptExpr:
		return a.checkSubscript(n)
	case *ast.SizeofExpr:
		return a.checkSizeof(n)
	case *ast.MemberExpr:
		return a.checkMember(n)
	}
	return e
}

func constKindToKind(k ast.ConstKind) ast.Kind {
	switch k {
	case ast.ConstI8:
		return ast.I8
	case ast.ConstU8:
		return ast.U8
	case ast.ConstChar:
		return ast.Char
	case ast.ConstI32:
		return ast.I32
	case ast.ConstU32:
		return ast.U32
	case ast.ConstI64:
		return ast.I64
	case ast.ConstU64:
		return ast.U64
	case ast.ConstDouble:
		return ast.Double
	}
	return ast.I32
}

func (a *Analyzer) checkCast(n *ast.CastExpr) {
	src := n.Inner.GetType()
	if src.IsDouble() && n.Target.IsPointer() || src.IsPointer() && n.Target.IsDouble() {
		a.Diags.Add(n.Pos(), "cannot cast between pointer and double")
	}
}

func (a *Analyzer) checkUnary(n *ast.UnaryExpr) ast.Expr {
	n.Operand = a.checkExpr(n.Operand)
	t := n.Operand.GetType()
	switch n.Op {
	case ast.UnaryNot:
		n.SetType(ast.VarType(ast.I32))
	case ast.UnaryComplement:
		if t.IsDouble() {
			a.Diags.Add(n.Pos(), "'~' cannot be applied to double")
		}
		n.Operand = a.promoteCharacter(n.Operand)
		n.SetType(n.Operand.GetType())
	case ast.UnaryNeg, ast.UnaryPlus:
		n.Operand = a.promoteCharacter(n.Operand)
		n.SetType(n.Operand.GetType())
	case ast.UnaryPreInc, ast.UnaryPreDec, ast.UnaryPostInc, ast.UnaryPostDec:
		n.SetType(t)
	}
	return n
}

// promoteCharacter inserts an I32 cast ahead of arithmetic on narrow
// integer kinds, per §4.2's "promote to I32 via inserted cast".
func (a *Analyzer) promoteCharacter(e ast.Expr) ast.Expr {
	t := e.GetType()
	if t.Kind == ast.Char || t.Kind == ast.I8 || t.Kind == ast.U8 {
		c := &ast.CastExpr{Target: ast.VarType(ast.I32), Inner: e}
		c.SetType(ast.VarType(ast.I32))
		return c
	}
	return e
}

func commonType(a, b *ast.Type) *ast.Type {
	if a.IsDouble() || b.IsDouble() {
		return ast.VarType(ast.Double)
	}
	as, bs := a.ScalarSize(), b.ScalarSize()
	if as == bs {
		if a.IsSigned() {
			return b
		}
		return a
	}
	if as > bs {
		return a
	}
	return b
}

func castIfNeeded(e ast.Expr, target *ast.Type) ast.Expr {
	if ast.Equal(e.GetType(), target) {
		return e
	}
	c := &ast.CastExpr{Target: target, Inner: e}
	c.SetType(target)
	return c
}

func (a *Analyzer) checkBinary(n *ast.BinaryExpr) ast.Expr {
	n.Left = a.checkExpr(n.Left)
	n.Right = a.checkExpr(n.Right)
	lt, rt := n.Left.GetType(), n.Right.GetType()

	switch n.Op {
	case ast.BinLogAnd, ast.BinLogOr:
		n.SetType(ast.VarType(ast.I32))
		return n
	case ast.BinEq, ast.BinNe:
		if lt.IsPointer() || rt.IsPointer() {
			n.SetType(ast.VarType(ast.I32))
			return n
		}
	case ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		if lt.IsPointer() && rt.IsPointer() {
			n.SetType(ast.VarType(ast.I32))
			return n
		}
	}

	if lt.IsPointer() && (n.Op == ast.BinAdd || n.Op == ast.BinSub) && rt.IsInteger() {
		n.SetType(lt)
		return n
	}
	if rt.IsPointer() && n.Op == ast.BinAdd && lt.IsInteger() {
		n.SetType(rt)
		return n
	}
	if lt.IsPointer() && rt.IsPointer() && n.Op == ast.BinSub {
		n.SetType(ast.VarType(ast.I64))
		return n
	}

	n.Left = a.promoteCharacter(n.Left)
	n.Right = a.promoteCharacter(n.Right)
	lt, rt = n.Left.GetType(), n.Right.GetType()

	switch n.Op {
	case ast.BinShl, ast.BinShr:
		n.SetType(lt)
		return n
	}

	ct := commonType(lt, rt)
	n.Left = castIfNeeded(n.Left, ct)
	n.Right = castIfNeeded(n.Right, ct)

	switch n.Op {
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		n.SetType(ast.VarType(ast.I32))
	default:
		n.SetType(ct)
	}
	return n
}

func isLvalue(e ast.Expr) bool {
	switch e.(type) {
	case *ast.VarExpr, *ast.DerefExpr, *ast.SubscriptExpr, *ast.MemberExpr:
		return true
	}
	return false
}

func (a *Analyzer) convertTo(e ast.Expr, target *ast.Type) ast.Expr {
	src := e.GetType()
	if ast.Equal(src, target) {
		return e
	}
	if target.IsPointer() && isNullPointerConstant(e) {
		return castIfNeeded(e, target)
	}
	if target.IsPointer() && src.IsPointer() && (target.Referent.IsVoid() || src.Referent.IsVoid()) {
		return castIfNeeded(e, target)
	}
	if src.IsArithmetic() && target.IsArithmetic() {
		return castIfNeeded(e, target)
	}
	return castIfNeeded(e, target)
}

func isNullPointerConstant(e ast.Expr) bool {
	c, ok := e.(*ast.ConstExpr)
	return ok && c.IVal == 0 && c.FVal == 0 && c.GetType().IsInteger()
}

func (a *Analyzer) checkAssign(n *ast.AssignExpr) ast.Expr {
	n.Left = a.checkRaw(n.Left)
	n.Right = a.checkExpr(n.Right)
	if !isLvalue(n.Left) {
		a.Diags.Add(n.Pos(), "left side of assignment is not an lvalue")
	}
	target := n.Left.GetType()
	if n.Op == ast.AssignSimple {
		n.Right = a.convertTo(n.Right, target)
		n.SetType(target)
		return n
	}
	// A compound assignment computes in the common type of its two
	// operands, exactly like an ordinary binary expression, and only
	// converts the result back to the lvalue's type on the final store
	// (§4.2): `x op= y` means `x = (T)((T2)x op y)`, not `x = x op (T)y`.
	lt, rt := target, n.Right.GetType()
	if lt.IsPointer() && (n.Op == ast.AssignAdd || n.Op == ast.AssignSub) && rt.IsInteger() {
		n.OpType = lt
	} else {
		n.OpType = commonType(lt, rt)
	}
	n.Right = castIfNeeded(n.Right, n.OpType)
	n.SetType(target)
	return n
}

func (a *Analyzer) checkTernary(n *ast.TernaryExpr) ast.Expr {
	n.Cond = a.checkExpr(n.Cond)
	a.requireScalar(n.Cond)
	n.Then = a.checkExpr(n.Then)
	n.Else = a.checkExpr(n.Else)
	tt, et := n.Then.GetType(), n.Else.GetType()
	if tt.IsPointer() || et.IsPointer() {
		pt := tt
		if !tt.IsPointer() {
			pt = et
		}
		n.Then = a.convertTo(n.Then, pt)
		n.Else = a.convertTo(n.Else, pt)
		n.SetType(pt)
		return n
	}
	ct := commonType(tt, et)
	n.Then = castIfNeeded(n.Then, ct)
	n.Else = castIfNeeded(n.Else, ct)
	n.SetType(ct)
	return n
}

func (a *Analyzer) checkCall(n *ast.CallExpr) ast.Expr {
	sig, ok := a.sigs[n.Callee]
	if !ok {
		a.Diags.Add(n.Pos(), "call to undeclared function '%s'", n.Callee)
		n.SetType(ast.VarType(ast.I32))
		return n
	}
	if len(n.Args) != len(sig.params) {
		a.Diags.Add(n.Pos(), "function '%s' called with wrong number of arguments", n.Callee)
	}
	for i := range n.Args {
		n.Args[i] = a.checkExpr(n.Args[i])
		if i < len(sig.params) {
			n.Args[i] = a.convertTo(n.Args[i], sig.params[i])
		}
	}
	n.SetType(sig.ret)
	return n
}

func (a *Analyzer) checkSubscript(n *ast.SubscriptExpr) ast.Expr {
	n.Base = a.checkExpr(n.Base)
	n.Index = a.checkExpr(n.Index)
	base, index := n.Base, n.Index
	if !base.GetType().IsPointer() && index.GetType().IsPointer() {
		base, index = index, base
	}
	if !base.GetType().IsPointer() {
		a.Diags.Add(n.Pos(), "subscripted value is not a pointer")
		n.SetType(ast.VarType(ast.I32))
		return n
	}
	n.Base, n.Index = base, castIfNeeded(index, ast.VarType(ast.I64))
	n.SetType(base.GetType().Referent)
	return n
}

func (a *Analyzer) checkSizeof(n *ast.SizeofExpr) ast.Expr {
	if n.OperandType != nil {
		if n.OperandType.IsVoid() {
			a.Diags.Add(n.Pos(), "sizeof applied to incomplete type 'void'")
		}
	} else {
		n.Operand = a.checkRaw(n.Operand)
		if n.Operand.GetType().IsVoid() {
			a.Diags.Add(n.Pos(), "sizeof applied to incomplete type 'void'")
		}
	}
	n.SetType(ast.VarType(ast.U64))
	return n
}

func (a *Analyzer) checkMember(n *ast.MemberExpr) ast.Expr {
	if n.Arrow {
		n.Base = a.checkExpr(n.Base)
	} else {
		n.Base = a.checkRaw(n.Base)
	}
	bt := n.Base.GetType()
	var structType *ast.Type
	if n.Arrow {
		if !bt.IsPointer() || !bt.Referent.IsStructured() {
			a.Diags.Add(n.Pos(), "'->' requires a pointer to struct/union")
			n.SetType(ast.VarType(ast.I32))
			return n
		}
		structType = bt.Referent
	} else {
		if !bt.IsStructured() || !isLvalue(n.Base) {
			a.Diags.Add(n.Pos(), "'.' requires an lvalue of struct/union type")
			n.SetType(ast.VarType(ast.I32))
			return n
		}
		structType = bt
	}
	agg, ok := a.Aggs.Lookup(structType.Name)
	if !ok {
		a.Diags.Add(n.Pos(), "incomplete type '%s'", structType.Name)
		n.SetType(ast.VarType(ast.I32))
		return n
	}
	m, ok := agg.Member(n.Member)
	if !ok {
		a.Diags.Add(n.Pos(), "no member named '%s'", n.Member)
		n.SetType(ast.VarType(ast.I32))
		return n
	}
	n.SetType(m.Type)
	return n
}
