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

import (
	"fmt"
	"strings"
)

// Dump renders tu as an indented tree using each node's own String()
// label, for the driver's --printAst/--printAstAfter flags.
func Dump(tu *TranslationUnit) string {
	var b strings.Builder
	for _, d := range tu.Decls {
		dumpDecl(&b, d, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func dumpDecl(b *strings.Builder, d Decl, depth int) {
	indent(b, depth)
	b.WriteString(d.String())
	b.WriteString("\n")
	switch n := d.(type) {
	case *FuncDecl:
		if n.Body != nil {
			dumpStmt(b, n.Body, depth+1)
		}
	case *VarDecl:
		if n.Init != nil {
			dumpInit(b, n.Init, depth+1)
		}
	}
}

func dumpStmt(b *strings.Builder, s Stmt, depth int) {
	if s == nil {
		return
	}
	indent(b, depth)
	b.WriteString(s.String())
	b.WriteString("\n")
	switch n := s.(type) {
	case *CompoundStmt:
		for _, item := range n.Items {
			switch it := item.(type) {
			case Decl:
				dumpDecl(b, it, depth+1)
			case Stmt:
				dumpStmt(b, it, depth+1)
			}
		}
	case *ReturnStmt:
		if n.Expr != nil {
			dumpExpr(b, n.Expr, depth+1)
		}
	case *ExprStmt:
		dumpExpr(b, n.Expr, depth+1)
	case *IfStmt:
		dumpExpr(b, n.Cond, depth+1)
		dumpStmt(b, n.Then, depth+1)
		dumpStmt(b, n.Else, depth+1)
	case *LabeledStmt:
		dumpStmt(b, n.Inner, depth+1)
	case *WhileStmt:
		dumpExpr(b, n.Cond, depth+1)
		dumpStmt(b, n.Body, depth+1)
	case *DoWhileStmt:
		dumpStmt(b, n.Body, depth+1)
		dumpExpr(b, n.Cond, depth+1)
	case *ForStmt:
		if n.Init != nil {
			switch init := n.Init.(type) {
			case Decl:
				dumpDecl(b, init, depth+1)
			case Stmt:
				dumpStmt(b, init, depth+1)
			}
		}
		if n.Cond != nil {
			dumpExpr(b, n.Cond, depth+1)
		}
		if n.Post != nil {
			dumpExpr(b, n.Post, depth+1)
		}
		dumpStmt(b, n.Body, depth+1)
	case *SwitchStmt:
		dumpExpr(b, n.Cond, depth+1)
		dumpStmt(b, n.Body, depth+1)
	case *CaseStmt:
		if n.Expr != nil {
			dumpExpr(b, n.Expr, depth+1)
		}
		dumpStmt(b, n.Inner, depth+1)
	}
}

func dumpExpr(b *strings.Builder, e Expr, depth int) {
	if e == nil {
		return
	}
	indent(b, depth)
	b.WriteString(e.String())
	if e.GetType() != nil {
		fmt.Fprintf(b, " : %v", e.GetType())
	}
	b.WriteString("\n")
	switch n := e.(type) {
	case *CastExpr:
		dumpExpr(b, n.Inner, depth+1)
	case *UnaryExpr:
		dumpExpr(b, n.Operand, depth+1)
	case *BinaryExpr:
		dumpExpr(b, n.Left, depth+1)
		dumpExpr(b, n.Right, depth+1)
	case *AssignExpr:
		dumpExpr(b, n.Left, depth+1)
		dumpExpr(b, n.Right, depth+1)
	case *TernaryExpr:
		dumpExpr(b, n.Cond, depth+1)
		dumpExpr(b, n.Then, depth+1)
		dumpExpr(b, n.Else, depth+1)
	case *CallExpr:
		for _, a := range n.Args {
			dumpExpr(b, a, depth+1)
		}
	case *DerefExpr:
		dumpExpr(b, n.Inner, depth+1)
	case *AddrOfExpr:
		dumpExpr(b, n.Inner, depth+1)
	case *SubscriptExpr:
		dumpExpr(b, n.Base, depth+1)
		dumpExpr(b, n.Index, depth+1)
	case *SizeofExpr:
		if n.Operand != nil {
			dumpExpr(b, n.Operand, depth+1)
		}
	case *MemberExpr:
		dumpExpr(b, n.Base, depth+1)
	}
}

func dumpInit(b *strings.Builder, i Init, depth int) {
	indent(b, depth)
	b.WriteString(i.String())
	b.WriteString("\n")
	switch n := i.(type) {
	case *SingleInit:
		dumpExpr(b, n.Expr, depth+1)
	case *CompoundInit:
		for _, e := range n.Elems {
			dumpInit(b, e, depth+1)
		}
	}
}
