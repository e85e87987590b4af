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

// gen.go lowers the checked, normalized AST into the IR (§4.3).
package ir

import (
	"nanoc/ast"
	"nanoc/internal/utils"
	"nanoc/sema"
)

// Generator holds the shared name counter and aggregate registry handed
// off by the semantic passes, and accumulates the current function's
// instruction stream.
type Generator struct {
	Counter *sema.Counter
	Aggs    *sema.AggregateRegistry

	prog  *Program
	insts []Instruction
}

func NewGenerator(counter *sema.Counter, aggs *sema.AggregateRegistry) *Generator {
	return &Generator{Counter: counter, Aggs: aggs}
}

func (g *Generator) emit(i Instruction) { g.insts = append(g.insts, i) }

func (g *Generator) freshVar(t *ast.Type) *Var {
	return &Var{Name: g.Counter.Temp(), Type: t}
}

// Generate lowers a whole translation unit into a Program (§4.3).
func (g *Generator) Generate(tu *ast.TranslationUnit) *Program {
	g.prog = &Program{}
	for _, d := range tu.Decls {
		switch n := d.(type) {
		case *ast.FuncDecl:
			if n.Body != nil {
				g.genFunction(n)
			}
		case *ast.VarDecl:
			g.genStaticVar(n)
		}
	}
	return g.prog
}

func (g *Generator) genFunction(fd *ast.FuncDecl) {
	g.insts = nil
	paramNames := make([]string, len(fd.Params))
	paramTypes := make([]*ast.Type, len(fd.Params))
	for i, p := range fd.Params {
		paramNames[i] = p.Name
		paramTypes[i] = p.Type
	}
	g.genStmt(fd.Body)
	g.prog.TopLevels = append(g.prog.TopLevels, &Function{
		Name:       fd.Name,
		Global:     fd.Storage != ast.StorageStatic,
		Params:     paramNames,
		ParamTypes: paramTypes,
		RetType:    fd.Type.Ret,
		Insts:      g.insts,
	})
}

// -----------------------------------------------------------------------------
// Statements

func (g *Generator) genStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			switch it := item.(type) {
			case *ast.VarDecl:
				g.genLocalVarDecl(it)
			case *ast.StructuredDecl:
				// layout already lives in the aggregate registry.
			case ast.Stmt:
				g.genStmt(it)
			}
		}
	case *ast.ReturnStmt:
		var v Value
		if n.Expr != nil {
			v = g.genExpr(n.Expr)
		}
		g.emit(&Return{Val: v})
	case *ast.ExprStmt:
		g.genExpr(n.Expr)
	case *ast.NullStmt:
	case *ast.IfStmt:
		g.genIf(n)
	case *ast.LabeledStmt:
		g.emit(&Label{Name: n.UniqueLabel})
		g.genStmt(n.Inner)
	case *ast.GotoStmt:
		g.emit(&Jump{Label: n.UniqueLabel})
	case *ast.BreakStmt:
		g.emit(&Jump{Label: n.Target})
	case *ast.ContinueStmt:
		g.emit(&Jump{Label: n.Target})
	case *ast.CaseStmt:
		g.emit(&Label{Name: n.Label})
		g.genStmt(n.Inner)
	case *ast.WhileStmt:
		g.genWhile(n)
	case *ast.DoWhileStmt:
		g.genDoWhile(n)
	case *ast.ForStmt:
		g.genFor(n)
	case *ast.SwitchStmt:
		g.genSwitch(n)
	}
}

func (g *Generator) genIf(n *ast.IfStmt) {
	cond := g.genExpr(n.Cond)
	if n.Else == nil {
		end := g.Counter.Label("if_end")
		g.emit(&JumpIfZero{Val: cond, Label: end})
		g.genStmt(n.Then)
		g.emit(&Label{Name: end})
		return
	}
	elseLabel := g.Counter.Label("if_else")
	end := g.Counter.Label("if_end")
	g.emit(&JumpIfZero{Val: cond, Label: elseLabel})
	g.genStmt(n.Then)
	g.emit(&Jump{Label: end})
	g.emit(&Label{Name: elseLabel})
	g.genStmt(n.Else)
	g.emit(&Label{Name: end})
}

func (g *Generator) genWhile(n *ast.WhileStmt) {
	g.emit(&Label{Name: n.ContinueLabel})
	cond := g.genExpr(n.Cond)
	g.emit(&JumpIfZero{Val: cond, Label: n.BreakLabel})
	g.genStmt(n.Body)
	g.emit(&Jump{Label: n.ContinueLabel})
	g.emit(&Label{Name: n.BreakLabel})
}

func (g *Generator) genDoWhile(n *ast.DoWhileStmt) {
	top := n.Label + ".top"
	g.emit(&Label{Name: top})
	g.genStmt(n.Body)
	g.emit(&Label{Name: n.ContinueLabel})
	cond := g.genExpr(n.Cond)
	g.emit(&JumpIfNotZero{Val: cond, Label: top})
	g.emit(&Label{Name: n.BreakLabel})
}

func (g *Generator) genFor(n *ast.ForStmt) {
	switch init := n.Init.(type) {
	case *ast.VarDecl:
		g.genLocalVarDecl(init)
	case *ast.ExprStmt:
		g.genExpr(init.Expr)
	}
	top := n.Label + ".top"
	g.emit(&Label{Name: top})
	if n.Cond != nil {
		cond := g.genExpr(n.Cond)
		g.emit(&JumpIfZero{Val: cond, Label: n.BreakLabel})
	}
	g.genStmt(n.Body)
	g.emit(&Label{Name: n.ContinueLabel})
	if n.Post != nil {
		g.genExpr(n.Post)
	}
	g.emit(&Jump{Label: top})
	g.emit(&Label{Name: n.BreakLabel})
}

func (g *Generator) genSwitch(n *ast.SwitchStmt) {
	cond := g.genExpr(n.Cond)
	for _, c := range n.Cases {
		tmp := g.freshVar(ast.VarType(ast.I32))
		eq := ConstInt(n.Cond.GetType(), uint64(c.Value))
		g.emit(&Binary{Op: Eq, Lhs: cond, Rhs: eq, Dst: tmp})
		g.emit(&JumpIfNotZero{Val: tmp, Label: c.Label})
	}
	if n.DefaultLabel != "" {
		g.emit(&Jump{Label: n.DefaultLabel})
	} else {
		g.emit(&Jump{Label: n.BreakLabel})
	}
	g.genStmt(n.Body)
	g.emit(&Label{Name: n.BreakLabel})
}

// -----------------------------------------------------------------------------
// Local/static declarations

func (g *Generator) genLocalVarDecl(vd *ast.VarDecl) {
	if vd.Storage == ast.StorageExtern {
		return
	}
	if vd.Storage == ast.StorageStatic {
		g.genStaticVar(vd)
		return
	}
	switch vd.Type.Kind {
	case ast.Array, ast.Struct, ast.Union:
		g.emit(&Allocate{Name: vd.Name, Bytes: sema.TypeSize(vd.Type, g.Aggs)})
		if vd.Init != nil {
			g.emitAggregateInit(vd.Name, vd.Init, vd.Type, 0)
		}
	default:
		if vd.Init == nil {
			return
		}
		si := vd.Init.(*ast.SingleInit)
		val := g.genExpr(si.Expr)
		g.emit(&Copy{Src: val, Dst: &Var{Name: vd.Name, Type: vd.Type}})
	}
}

// emitAggregateInit walks the normalized init tree in lockstep with the
// declared type, emitting one CopyToOffset per leaf slot (§4.3
// "Aggregates").
func (g *Generator) emitAggregateInit(name string, init ast.Init, t *ast.Type, base int) {
	switch t.Kind {
	case ast.Array:
		elemSize := sema.TypeSize(t.Elem, g.Aggs)
		ci := init.(*ast.CompoundInit)
		for i, e := range ci.Elems {
			g.emitAggregateInit(name, e, t.Elem, base+i*elemSize)
		}
	case ast.Struct, ast.Union:
		agg, _ := g.Aggs.Lookup(t.Name)
		ci := init.(*ast.CompoundInit)
		for i, e := range ci.Elems {
			g.emitAggregateInit(name, e, agg.Members[i].Type, base+agg.Members[i].Offset)
		}
	default:
		switch s := init.(type) {
		case *ast.SingleInit:
			val := g.genExpr(s.Expr)
			g.emit(&CopyToOffset{Src: val, Aggregate: name, Offset: base, Width: t.ScalarSize()})
		case *ast.ZeroInit:
			g.emit(&CopyToOffset{Src: ConstInt(t, 0), Aggregate: name, Offset: base, Width: t.ScalarSize()})
		}
	}
}

func (g *Generator) genStaticVar(vd *ast.VarDecl) {
	global := vd.Storage != ast.StorageStatic
	switch vd.Type.Kind {
	case ast.Array, ast.Struct, ast.Union:
		var elems []StaticInitElem
		if vd.Init != nil {
			elems = g.flattenStaticArray(vd.Init, vd.Type, 0)
		}
		g.prog.TopLevels = append(g.prog.TopLevels, &StaticArray{Name: vd.Name, Init: elems, Type: vd.Type, Global: global})
	default:
		var val Value = ConstInt(vd.Type, 0)
		if vd.Init != nil {
			si := vd.Init.(*ast.SingleInit)
			val = g.foldConstant(si.Expr)
		}
		g.prog.TopLevels = append(g.prog.TopLevels, &StaticVariable{Name: vd.Name, Value: val, Type: vd.Type, Global: global})
	}
}

// flattenStaticArray walks the normalized init tree in lockstep with the
// declared type, as emitAggregateInit does for locals, but records
// (offset, value) pairs instead of emitting instructions; ZeroInit slots
// are simply omitted; the omitted bytes are zero in .bss/.data anyway.
func (g *Generator) flattenStaticArray(init ast.Init, t *ast.Type, base int) []StaticInitElem {
	switch t.Kind {
	case ast.Array:
		elemSize := sema.TypeSize(t.Elem, g.Aggs)
		ci := init.(*ast.CompoundInit)
		var out []StaticInitElem
		for i, e := range ci.Elems {
			out = append(out, g.flattenStaticArray(e, t.Elem, base+i*elemSize)...)
		}
		return out
	case ast.Struct, ast.Union:
		agg, _ := g.Aggs.Lookup(t.Name)
		ci := init.(*ast.CompoundInit)
		var out []StaticInitElem
		for i, e := range ci.Elems {
			out = append(out, g.flattenStaticArray(e, agg.Members[i].Type, base+agg.Members[i].Offset)...)
		}
		return out
	default:
		switch s := init.(type) {
		case *ast.SingleInit:
			return []StaticInitElem{{Offset: base, Value: g.foldConstant(s.Expr)}}
		case *ast.ZeroInit:
			return nil
		}
		return nil
	}
}

// foldConstant evaluates a file-scope initializer expression, which by
// the time it reaches IR generation consists only of literals and the
// implicit/explicit casts type checking wrapped around them.
func (g *Generator) foldConstant(e ast.Expr) Value {
	switch n := e.(type) {
	case *ast.ConstExpr:
		return &Const{Type: n.GetType(), IVal: n.IVal, FVal: n.FVal}
	case *ast.CastExpr:
		return foldConvert(g.foldConstant(n.Inner), n.Target)
	case *ast.UnaryExpr:
		if n.Op == ast.UnaryNeg {
			inner := g.foldConstant(n.Operand).(*Const)
			if n.GetType().IsDouble() {
				return &Const{Type: n.GetType(), FVal: -inner.FVal}
			}
			return &Const{Type: n.GetType(), IVal: -inner.IVal}
		}
	}
	utils.Unimplement()
	return nil
}

func foldConvert(v Value, target *ast.Type) Value {
	c := v.(*Const)
	if target.IsDouble() {
		if c.Type.IsDouble() {
			return &Const{Type: target, FVal: c.FVal}
		}
		return &Const{Type: target, FVal: float64(c.IVal)}
	}
	if c.Type.IsDouble() {
		return &Const{Type: target, IVal: uint64(int64(c.FVal))}
	}
	return &Const{Type: target, IVal: c.IVal}
}

// -----------------------------------------------------------------------------
// Expressions

func (g *Generator) genExpr(e ast.Expr) Value {
	switch n := e.(type) {
	case *ast.ConstExpr:
		return &Const{Type: n.GetType(), IVal: n.IVal, FVal: n.FVal}
	case *ast.StringExpr:
		return g.internString(n)
	case *ast.VarExpr:
		return g.slotFor(n).read()
	case *ast.CastExpr:
		return g.genCast(n)
	case *ast.UnaryExpr:
		return g.genUnary(n)
	case *ast.BinaryExpr:
		return g.genBinary(n)
	case *ast.AssignExpr:
		return g.genAssign(n)
	case *ast.TernaryExpr:
		return g.genTernary(n)
	case *ast.CallExpr:
		return g.genCall(n)
	case *ast.DerefExpr:
		return g.slotFor(n).read()
	case *ast.AddrOfExpr:
		return g.genAddr(n.Inner)
	case *ast.SubscriptExpr:
		return g.slotFor(n).read()
	case *ast.SizeofExpr:
		return g.genSizeof(n)
	case *ast.MemberExpr:
		return g.slotFor(n).read()
	}
	utils.ShouldNotReachHere()
	return nil
}

func (g *Generator) internString(n *ast.StringExpr) *Var {
	name := g.Counter.Label("string")
	g.prog.TopLevels = append(g.prog.TopLevels, &StaticConstant{Name: name, Bytes: n.Bytes, NullTerminated: true, Global: false})
	return &Var{Name: name, Type: n.GetType()}
}

func (g *Generator) genSizeof(n *ast.SizeofExpr) Value {
	var t *ast.Type
	if n.OperandType != nil {
		t = n.OperandType
	} else {
		t = n.Operand.GetType()
	}
	return ConstInt(ast.VarType(ast.U64), uint64(sema.TypeSize(t, g.Aggs)))
}

func (g *Generator) genCast(n *ast.CastExpr) Value {
	src := g.genExpr(n.Inner)
	return g.convertValue(src, n.Inner.GetType(), n.Target)
}

// convertValue lowers a scalar conversion already known to be necessary
// (an explicit cast, or the implicit widen/narrow a compound assignment
// performs around its common-type operation) into the matching IR
// conversion instruction.
func (g *Generator) convertValue(src Value, srcType, dstType *ast.Type) Value {
	if ast.Equal(srcType, dstType) {
		return src
	}
	dst := g.freshVar(dstType)
	switch {
	case dstType.IsDouble() && !srcType.IsDouble():
		if srcType.IsSigned() {
			g.emit(&IntToDouble{Src: src, Dst: dst})
		} else {
			g.emit(&UIntToDouble{Src: src, Dst: dst})
		}
	case srcType.IsDouble() && !dstType.IsDouble():
		if dstType.IsSigned() {
			g.emit(&DoubleToInt{Src: src, Dst: dst})
		} else {
			g.emit(&DoubleToUInt{Src: src, Dst: dst})
		}
	default:
		srcSize, dstSize := scalarSizeOf(srcType), scalarSizeOf(dstType)
		switch {
		case dstSize > srcSize:
			if srcType.IsSigned() {
				g.emit(&SignExtend{Src: src, Dst: dst})
			} else {
				g.emit(&ZeroExtend{Src: src, Dst: dst})
			}
		case dstSize < srcSize:
			g.emit(&Truncate{Src: src, Dst: dst})
		default:
			g.emit(&Copy{Src: src, Dst: dst})
		}
	}
	return dst
}

func scalarSizeOf(t *ast.Type) int {
	if t.IsPointer() {
		return 8
	}
	return t.ScalarSize()
}

func (g *Generator) genUnary(n *ast.UnaryExpr) Value {
	switch n.Op {
	case ast.UnaryPlus:
		return g.genExpr(n.Operand)
	case ast.UnaryNeg:
		src := g.genExpr(n.Operand)
		dst := g.freshVar(n.GetType())
		g.emit(&Unary{Op: Negate, Src: src, Dst: dst})
		return dst
	case ast.UnaryNot:
		src := g.genExpr(n.Operand)
		dst := g.freshVar(ast.VarType(ast.I32))
		g.emit(&Unary{Op: Not, Src: src, Dst: dst})
		return dst
	case ast.UnaryComplement:
		src := g.genExpr(n.Operand)
		dst := g.freshVar(n.GetType())
		g.emit(&Unary{Op: Complement, Src: src, Dst: dst})
		return dst
	case ast.UnaryPreInc, ast.UnaryPreDec:
		return g.genIncDec(n.Operand, n.Op == ast.UnaryPreInc, true)
	case ast.UnaryPostInc, ast.UnaryPostDec:
		return g.genIncDec(n.Operand, n.Op == ast.UnaryPostInc, false)
	}
	utils.ShouldNotReachHere()
	return nil
}

// genIncDec implements §4.3 "Pre/post increment": post-forms snapshot
// the old value into a temporary before mutating, pre-forms return the
// freshly-computed value directly.
func (g *Generator) genIncDec(target ast.Expr, isInc, isPre bool) Value {
	slot := g.slotFor(target)
	current := slot.read()
	t := target.GetType()

	var result Value = current
	if !isPre {
		snap := g.freshVar(t)
		g.emit(&Copy{Src: current, Dst: snap})
		result = snap
	}

	newTmp := g.freshVar(t)
	if t.IsPointer() {
		one := ConstInt(ast.VarType(ast.I64), 1)
		idx := Value(one)
		if !isInc {
			idx = g.negate(one)
		}
		g.emit(&AddPtr{Ptr: current, Index: idx, Scale: sema.TypeSize(t.Referent, g.Aggs), Dst: newTmp})
	} else {
		op := Add
		if !isInc {
			op = Sub
		}
		g.emit(&Binary{Op: op, Lhs: current, Rhs: ConstInt(t, 1), Dst: newTmp})
	}
	slot.write(newTmp)
	if isPre {
		return newTmp
	}
	return result
}

func (g *Generator) negate(v Value) Value {
	dst := g.freshVar(v.ValueType())
	g.emit(&Unary{Op: Negate, Src: v, Dst: dst})
	return dst
}

func irBinOp(op ast.BinaryOp) BinaryOp {
	switch op {
	case ast.BinAdd:
		return Add
	case ast.BinSub:
		return Sub
	case ast.BinMul:
		return Mul
	case ast.BinDiv:
		return Div
	case ast.BinMod:
		return Mod
	case ast.BinAnd:
		return And
	case ast.BinOr:
		return Or
	case ast.BinXor:
		return Xor
	case ast.BinShl:
		return Shl
	case ast.BinShr:
		return Shr
	case ast.BinEq:
		return Eq
	case ast.BinNe:
		return Ne
	case ast.BinLt:
		return Lt
	case ast.BinLe:
		return Le
	case ast.BinGt:
		return Gt
	case ast.BinGe:
		return Ge
	}
	utils.ShouldNotReachHere()
	return Add
}

func (g *Generator) genBinary(n *ast.BinaryExpr) Value {
	switch n.Op {
	case ast.BinLogAnd:
		return g.genLogAnd(n)
	case ast.BinLogOr:
		return g.genLogOr(n)
	}

	lt, rt := n.Left.GetType(), n.Right.GetType()
	if lt.IsPointer() && rt.IsInteger() && (n.Op == ast.BinAdd || n.Op == ast.BinSub) {
		ptr := g.genExpr(n.Left)
		idx := g.genExpr(n.Right)
		if n.Op == ast.BinSub {
			idx = g.negate(idx)
		}
		dst := g.freshVar(n.GetType())
		g.emit(&AddPtr{Ptr: ptr, Index: idx, Scale: sema.TypeSize(lt.Referent, g.Aggs), Dst: dst})
		return dst
	}
	if rt.IsPointer() && lt.IsInteger() && n.Op == ast.BinAdd {
		ptr := g.genExpr(n.Right)
		idx := g.genExpr(n.Left)
		dst := g.freshVar(n.GetType())
		g.emit(&AddPtr{Ptr: ptr, Index: idx, Scale: sema.TypeSize(rt.Referent, g.Aggs), Dst: dst})
		return dst
	}
	if lt.IsPointer() && rt.IsPointer() && n.Op == ast.BinSub {
		l, r := g.genExpr(n.Left), g.genExpr(n.Right)
		diff := g.freshVar(ast.VarType(ast.I64))
		g.emit(&Binary{Op: Sub, Lhs: l, Rhs: r, Dst: diff})
		elemSize := sema.TypeSize(lt.Referent, g.Aggs)
		if elemSize <= 1 {
			return diff
		}
		result := g.freshVar(ast.VarType(ast.I64))
		g.emit(&Binary{Op: Div, Lhs: diff, Rhs: ConstInt(ast.VarType(ast.I64), uint64(elemSize)), Dst: result})
		return result
	}

	lhs := g.genExpr(n.Left)
	rhs := g.genExpr(n.Right)
	dst := g.freshVar(n.GetType())
	g.emit(&Binary{Op: irBinOp(n.Op), Lhs: lhs, Rhs: rhs, Dst: dst})
	return dst
}

func (g *Generator) genLogAnd(n *ast.BinaryExpr) Value {
	falseLabel := g.Counter.Label("and_false")
	end := g.Counter.Label("and_end")
	lhs := g.genExpr(n.Left)
	g.emit(&JumpIfZero{Val: lhs, Label: falseLabel})
	rhs := g.genExpr(n.Right)
	g.emit(&JumpIfZero{Val: rhs, Label: falseLabel})
	dst := g.freshVar(ast.VarType(ast.I32))
	g.emit(&Copy{Src: ConstInt(ast.VarType(ast.I32), 1), Dst: dst})
	g.emit(&Jump{Label: end})
	g.emit(&Label{Name: falseLabel})
	g.emit(&Copy{Src: ConstInt(ast.VarType(ast.I32), 0), Dst: dst})
	g.emit(&Label{Name: end})
	return dst
}

func (g *Generator) genLogOr(n *ast.BinaryExpr) Value {
	trueLabel := g.Counter.Label("or_true")
	end := g.Counter.Label("or_end")
	lhs := g.genExpr(n.Left)
	g.emit(&JumpIfNotZero{Val: lhs, Label: trueLabel})
	rhs := g.genExpr(n.Right)
	g.emit(&JumpIfNotZero{Val: rhs, Label: trueLabel})
	dst := g.freshVar(ast.VarType(ast.I32))
	g.emit(&Copy{Src: ConstInt(ast.VarType(ast.I32), 0), Dst: dst})
	g.emit(&Jump{Label: end})
	g.emit(&Label{Name: trueLabel})
	g.emit(&Copy{Src: ConstInt(ast.VarType(ast.I32), 1), Dst: dst})
	g.emit(&Label{Name: end})
	return dst
}

func compoundOp(op ast.AssignOp) BinaryOp {
	switch op {
	case ast.AssignAdd:
		return Add
	case ast.AssignSub:
		return Sub
	case ast.AssignMul:
		return Mul
	case ast.AssignDiv:
		return Div
	case ast.AssignMod:
		return Mod
	case ast.AssignAnd:
		return And
	case ast.AssignOr:
		return Or
	case ast.AssignXor:
		return Xor
	case ast.AssignShl:
		return Shl
	case ast.AssignShr:
		return Shr
	}
	utils.ShouldNotReachHere()
	return Add
}

func (g *Generator) genAssign(n *ast.AssignExpr) Value {
	if n.Op == ast.AssignSimple {
		val := g.genExpr(n.Right)
		return g.slotFor(n.Left).write(val)
	}
	rhsVal := g.genExpr(n.Right)
	slot := g.slotFor(n.Left)
	lhsVal := slot.read()
	t := n.Left.GetType()

	var result Value
	if t.IsPointer() {
		idx := rhsVal
		if n.Op == ast.AssignSub {
			idx = g.negate(rhsVal)
		}
		dst := g.freshVar(t)
		g.emit(&AddPtr{Ptr: lhsVal, Index: idx, Scale: sema.TypeSize(t.Referent, g.Aggs), Dst: dst})
		result = dst
	} else {
		// Widen the lvalue's current value into the common type sema
		// chose (n.OpType), compute there, then narrow back to t when
		// storing — a compound assignment runs in the common type of
		// its operands, not in the lvalue's possibly-narrower type.
		opType := n.OpType
		lhsWide := g.convertValue(lhsVal, t, opType)
		wide := g.freshVar(opType)
		g.emit(&Binary{Op: compoundOp(n.Op), Lhs: lhsWide, Rhs: rhsVal, Dst: wide})
		result = g.convertValue(wide, opType, t)
	}
	return slot.write(result)
}

func (g *Generator) genTernary(n *ast.TernaryExpr) Value {
	elseLabel := g.Counter.Label("ternary_else")
	end := g.Counter.Label("ternary_end")
	cond := g.genExpr(n.Cond)
	g.emit(&JumpIfZero{Val: cond, Label: elseLabel})
	thenVal := g.genExpr(n.Then)
	dst := g.freshVar(n.GetType())
	g.emit(&Copy{Src: thenVal, Dst: dst})
	g.emit(&Jump{Label: end})
	g.emit(&Label{Name: elseLabel})
	elseVal := g.genExpr(n.Else)
	g.emit(&Copy{Src: elseVal, Dst: dst})
	g.emit(&Label{Name: end})
	return dst
}

func (g *Generator) genCall(n *ast.CallExpr) Value {
	args := make([]Value, len(n.Args))
	for i, arg := range n.Args {
		args[i] = g.genExpr(arg)
	}
	var dst Value
	if !n.GetType().IsVoid() {
		dst = g.freshVar(n.GetType())
	}
	g.emit(&FunCall{Name: n.Callee, Args: args, Dst: dst})
	return dst
}

// -----------------------------------------------------------------------------
// Lvalues: a slot is a (read, write) pair computed once so that compound
// assignment, ++/--, and plain stores share one address (§4.3: "address
// of *p is computed once and reused for load and store").

type lvalSlot struct {
	read  func() Value
	write func(Value) Value
}

func (g *Generator) slotFor(e ast.Expr) lvalSlot {
	switch l := e.(type) {
	case *ast.VarExpr:
		v := &Var{Name: l.Name, Type: l.GetType()}
		return lvalSlot{
			read:  func() Value { return v },
			write: func(val Value) Value { g.emit(&Copy{Src: val, Dst: v}); return v },
		}
	case *ast.DerefExpr:
		ptr := g.genExpr(l.Inner)
		return lvalSlot{
			read: func() Value {
				dst := g.freshVar(l.GetType())
				g.emit(&Load{Ptr: ptr, Dst: dst})
				return dst
			},
			write: func(val Value) Value { g.emit(&Store{Src: val, Ptr: ptr}); return val },
		}
	case *ast.SubscriptExpr:
		addr := g.genSubscriptAddr(l)
		return lvalSlot{
			read: func() Value {
				dst := g.freshVar(l.GetType())
				g.emit(&Load{Ptr: addr, Dst: dst})
				return dst
			},
			write: func(val Value) Value { g.emit(&Store{Src: val, Ptr: addr}); return val },
		}
	case *ast.MemberExpr:
		addr := g.genMemberAddr(l)
		return lvalSlot{
			read: func() Value {
				dst := g.freshVar(l.GetType())
				g.emit(&Load{Ptr: addr, Dst: dst})
				return dst
			},
			write: func(val Value) Value { g.emit(&Store{Src: val, Ptr: addr}); return val },
		}
	}
	utils.ShouldNotReachHere()
	return lvalSlot{}
}

func (g *Generator) genSubscriptAddr(s *ast.SubscriptExpr) Value {
	base := g.genExpr(s.Base)
	idx := g.genExpr(s.Index)
	dst := g.freshVar(ast.PointerTo(s.GetType()))
	g.emit(&AddPtr{Ptr: base, Index: idx, Scale: sema.TypeSize(s.GetType(), g.Aggs), Dst: dst})
	return dst
}

func (g *Generator) genMemberAddr(m *ast.MemberExpr) Value {
	var baseAddr Value
	var structType *ast.Type
	if m.Arrow {
		baseAddr = g.genExpr(m.Base)
		structType = m.Base.GetType().Referent
	} else {
		baseAddr = g.genAddr(m.Base)
		structType = m.Base.GetType()
	}
	agg, _ := g.Aggs.Lookup(structType.Name)
	member, _ := agg.Member(m.Member)
	if member.Offset == 0 {
		return baseAddr
	}
	dst := g.freshVar(ast.PointerTo(m.GetType()))
	g.emit(&AddPtr{Ptr: baseAddr, Index: ConstInt(ast.VarType(ast.I64), uint64(member.Offset)), Scale: 1, Dst: dst})
	return dst
}

// genAddr computes a bare address Value for `&e` (§4.3 "Pointer
// operators"), without going through a load/store slot.
func (g *Generator) genAddr(e ast.Expr) Value {
	switch n := e.(type) {
	case *ast.VarExpr:
		v := &Var{Name: n.Name, Type: n.GetType()}
		dst := g.freshVar(ast.PointerTo(n.GetType()))
		g.emit(&GetAddress{Src: v, Dst: dst})
		return dst
	case *ast.StringExpr:
		v := g.internString(n)
		dst := g.freshVar(ast.PointerTo(n.GetType()))
		g.emit(&GetAddress{Src: v, Dst: dst})
		return dst
	case *ast.DerefExpr:
		return g.genExpr(n.Inner)
	case *ast.SubscriptExpr:
		return g.genSubscriptAddr(n)
	case *ast.MemberExpr:
		return g.genMemberAddr(n)
	}
	utils.ShouldNotReachHere()
	return nil
}
