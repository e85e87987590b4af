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

// Analyzer threads the symbol table, aggregate registry, diagnostics
// and the global name counter through every semantic pass (§9: "a clean
// reimplementation threads them through the pass context").
type Analyzer struct {
	Sym     *SymbolTable
	Aggs    *AggregateRegistry
	Diags   *Diagnostics
	Counter *Counter

	funcReturnTypes map[string]*ast.Type
	funcDefined     map[string]bool
	sigs            map[string]funcSig
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		Sym:             NewSymbolTable(),
		Aggs:            NewAggregateRegistry(),
		Diags:           &Diagnostics{},
		Counter:         NewCounter(),
		funcReturnTypes: map[string]*ast.Type{},
		funcDefined:     map[string]bool{},
	}
}

// Analyze runs the full sequence of semantic passes (§4.2), stopping
// early once a pass has recorded an error (§5).
func (a *Analyzer) Analyze(tu *ast.TranslationUnit) []Error {
	a.resolveTranslationUnit(tu)
	if a.Diags.HasErrors() {
		return a.Diags.Errors
	}
	a.typeCheckTranslationUnit(tu)
	if a.Diags.HasErrors() {
		return a.Diags.Errors
	}
	a.verifyLvaluesTranslationUnit(tu)
	if a.Diags.HasErrors() {
		return a.Diags.Errors
	}
	a.labelTranslationUnit(tu)
	if a.Diags.HasErrors() {
		return a.Diags.Errors
	}
	a.validateReturnsTranslationUnit(tu)
	if a.Diags.HasErrors() {
		return a.Diags.Errors
	}
	a.normalizeInitializersTranslationUnit(tu)
	return a.Diags.Errors
}

// -----------------------------------------------------------------------------
// Identifier resolution (§4.2 "Identifier resolution")

func (a *Analyzer) resolveTranslationUnit(tu *ast.TranslationUnit) {
	for _, d := range tu.Decls {
		a.resolveTopLevelDecl(d)
	}
}

func (a *Analyzer) resolveTopLevelDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.StructuredDecl:
		a.resolveStructuredDecl(n)
	case *ast.FuncDecl:
		a.resolveFuncDecl(n)
	case *ast.VarDecl:
		a.resolveFileScopeVar(n)
	}
}

func (a *Analyzer) resolveStructuredDecl(n *ast.StructuredDecl) {
	unique := n.Name
	if _, shadowedInner := a.Sym.LookupTag(n.Name); shadowedInner && !a.Sym.AtFileScope() {
		unique = a.Counter.Tag(n.Name)
	}
	a.Sym.DeclareTag(n.Name, unique)
	n.Name = unique
	a.Aggs.Define(unique, kindOf(n.Kind), n.Members)
}

func kindOf(k ast.StructuredKind) ast.Kind {
	if k == ast.UnionKind {
		return ast.Union
	}
	return ast.Struct
}

// resolveTypeTags rewrites every Struct/Union tag reachable from t to its
// registry unique name, recursively through pointers/arrays/functions.
func (a *Analyzer) resolveTypeTags(t *ast.Type, offset int) {
	if t == nil {
		return
	}
	switch t.Kind {
	case ast.Struct, ast.Union:
		if unique, ok := a.Sym.LookupTag(t.Name); ok {
			t.Name = unique
		} else {
			a.Diags.Add(offset, "undeclared tag '%s'", t.Name)
		}
	case ast.Pointer:
		a.resolveTypeTags(t.Referent, offset)
	case ast.Array:
		a.resolveTypeTags(t.Elem, offset)
	case ast.Function:
		a.resolveTypeTags(t.Ret, offset)
		for _, p := range t.Params {
			a.resolveTypeTags(p, offset)
		}
	}
}

func (a *Analyzer) resolveFuncDecl(n *ast.FuncDecl) {
	a.resolveTypeTags(n.Type, n.Pos())
	if existing, _, found := a.Sym.Lookup(n.Name); found {
		if !existing.Type.IsFunction() {
			a.Diags.Add(n.Pos(), "'%s' redeclared with a different type", n.Name)
			return
		}
		if n.Body != nil && a.funcDefined[n.Name] {
			a.Diags.Add(n.Pos(), "function '%s' defined more than once", n.Name)
			return
		}
	} else {
		a.Sym.Declare(n.Name, &Entry{UniqueName: n.Name, Type: n.Type, Linkage: linkageOf(n.Storage), Global: true})
	}
	a.funcReturnTypes[n.Name] = n.Type.Ret
	if n.Body != nil {
		a.funcDefined[n.Name] = true
		a.Sym.PushScope()
		for i := range n.Params {
			a.resolveTypeTags(n.Params[i].Type, n.Pos())
			unique := a.Counter.Unique(n.Params[i].Name)
			a.Sym.Declare(n.Params[i].Name, &Entry{UniqueName: unique, Type: n.Params[i].Type, Linkage: LinkageNone})
			n.Params[i].Name = unique
		}
		a.resolveCompoundStmt(n.Body, n.Name)
		a.Sym.PopScope()
	}
}

func linkageOf(s ast.StorageClass) Linkage {
	if s == ast.StorageStatic {
		return LinkageInternal
	}
	return LinkageExternal
}

func (a *Analyzer) resolveFileScopeVar(n *ast.VarDecl) {
	a.resolveTypeTags(n.Type, n.Pos())
	if existing, _, found := a.Sym.Lookup(n.Name); found {
		if !ast.Equal(existing.Type, n.Type) {
			a.Diags.Add(n.Pos(), "'%s' redeclared with a different type", n.Name)
			return
		}
		if n.Storage != ast.StorageExtern && existing.Linkage != linkageOf(n.Storage) {
			a.Diags.Add(n.Pos(), "'%s' redeclared with conflicting linkage", n.Name)
			return
		}
	} else {
		a.Sym.Declare(n.Name, &Entry{UniqueName: n.Name, Type: n.Type, Linkage: linkageOf(n.Storage), Global: true, Defined: n.Init != nil})
	}
	if n.Init != nil {
		a.resolveInit(n.Init)
	}
}

func (a *Analyzer) resolveCompoundStmt(n *ast.CompoundStmt, funcName string) {
	a.Sym.PushScope()
	for _, item := range n.Items {
		a.resolveBlockItem(item, funcName)
	}
	a.Sym.PopScope()
}

func (a *Analyzer) resolveBlockItem(item ast.BlockItem, funcName string) {
	switch n := item.(type) {
	case *ast.VarDecl:
		a.resolveLocalVar(n)
	case *ast.StructuredDecl:
		a.resolveStructuredDecl(n)
	case ast.Stmt:
		a.resolveStmt(n, funcName)
	}
}

func (a *Analyzer) resolveLocalVar(n *ast.VarDecl) {
	a.resolveTypeTags(n.Type, n.Pos())

	if n.Storage == ast.StorageExtern {
		if n.Init != nil {
			a.Diags.Add(n.Pos(), "'%s' declared 'extern' with an initializer", n.Name)
			return
		}
		entry, _, found := a.Sym.Lookup(n.Name)
		if !found {
			entry = &Entry{UniqueName: n.Name, Type: n.Type, Linkage: LinkageExternal, Global: true}
			a.Sym.Declare(n.Name, entry)
		}
		a.Sym.Declare(n.Name, entry)
		n.Name = entry.UniqueName
		return
	}

	if existing, found := a.Sym.LookupCurrent(n.Name); found && existing.Linkage == LinkageNone {
		a.Diags.Add(n.Pos(), "redefinition of '%s' in the same scope", n.Name)
		return
	}

	if n.Storage == ast.StorageStatic {
		unique := a.Counter.Unique(n.Name)
		a.Sym.Declare(n.Name, &Entry{UniqueName: unique, Type: n.Type, Linkage: LinkageInternal, Global: true, Defined: true})
		n.Name = unique
	} else {
		unique := a.Counter.Unique(n.Name)
		a.Sym.Declare(n.Name, &Entry{UniqueName: unique, Type: n.Type, Linkage: LinkageNone})
		n.Name = unique
	}
	if n.Init != nil {
		a.resolveInit(n.Init)
	}
}

func (a *Analyzer) resolveStmt(s ast.Stmt, funcName string) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		a.resolveCompoundStmt(n, funcName)
	case *ast.ReturnStmt:
		if n.Expr != nil {
			a.resolveExpr(n.Expr)
		}
	case *ast.ExprStmt:
		a.resolveExpr(n.Expr)
	case *ast.IfStmt:
		a.resolveExpr(n.Cond)
		a.resolveStmt(n.Then, funcName)
		if n.Else != nil {
			a.resolveStmt(n.Else, funcName)
		}
	case *ast.LabeledStmt:
		a.resolveStmt(n.Inner, funcName)
	case *ast.CaseStmt:
		if n.Expr != nil {
			a.resolveExpr(n.Expr)
		}
		a.resolveStmt(n.Inner, funcName)
	case *ast.WhileStmt:
		a.resolveExpr(n.Cond)
		a.resolveStmt(n.Body, funcName)
	case *ast.DoWhileStmt:
		a.resolveStmt(n.Body, funcName)
		a.resolveExpr(n.Cond)
	case *ast.ForStmt:
		a.Sym.PushScope()
		if n.Init != nil {
			a.resolveBlockItem(n.Init.(ast.BlockItem), funcName)
		}
		if n.Cond != nil {
			a.resolveExpr(n.Cond)
		}
		if n.Post != nil {
			a.resolveExpr(n.Post)
		}
		a.resolveStmt(n.Body, funcName)
		a.Sym.PopScope()
	case *ast.SwitchStmt:
		a.resolveExpr(n.Cond)
		a.resolveStmt(n.Body, funcName)
	}
}

func (a *Analyzer) resolveExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.VarExpr:
		entry, _, found := a.Sym.Lookup(n.Name)
		if !found {
			a.Diags.Add(n.Pos(), "use of undeclared identifier '%s'", n.Name)
			return
		}
		n.Name = entry.UniqueName
	case *ast.CastExpr:
		a.resolveTypeTags(n.Target, n.Pos())
		a.resolveExpr(n.Inner)
	case *ast.UnaryExpr:
		a.resolveExpr(n.Operand)
	case *ast.BinaryExpr:
		a.resolveExpr(n.Left)
		a.resolveExpr(n.Right)
	case *ast.AssignExpr:
		a.resolveExpr(n.Left)
		a.resolveExpr(n.Right)
	case *ast.TernaryExpr:
		a.resolveExpr(n.Cond)
		a.resolveExpr(n.Then)
		a.resolveExpr(n.Else)
	case *ast.CallExpr:
		if _, _, found := a.Sym.Lookup(n.Callee); !found {
			a.Diags.Add(n.Pos(), "call to undeclared function '%s'", n.Callee)
		} else {
			entry, _, _ := a.Sym.Lookup(n.Callee)
			n.Callee = entry.UniqueName
		}
		for _, arg := range n.Args {
			a.resolveExpr(arg)
		}
	case *ast.DerefExpr:
		a.resolveExpr(n.Inner)
	case *ast.AddrOfExpr:
		a.resolveExpr(n.Inner)
	case *ast.SubscriptExpr:
		a.resolveExpr(n.Base)
		a.resolveExpr(n.Index)
	case *ast.SizeofExpr:
		if n.OperandType != nil {
			a.resolveTypeTags(n.OperandType, n.Pos())
		} else {
			a.resolveExpr(n.Operand)
		}
	case *ast.MemberExpr:
		a.resolveExpr(n.Base)
	}
}

func (a *Analyzer) resolveInit(i ast.Init) {
	switch n := i.(type) {
	case *ast.SingleInit:
		a.resolveExpr(n.Expr)
	case *ast.CompoundInit:
		for _, e := range n.Elems {
			a.resolveInit(e)
		}
	}
}
