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

// labeling.go is the "Labeling & switch" pass (§4.2): it assigns fresh
// identifiers to loops/switches, stamps break/continue/case targets, and
// uniquifies goto labels exactly once (the REDESIGN FLAG in spec.md §9).
package sema

import (
	"strconv"

	"github.com/samber/lo"

	"nanoc/ast"
)

// labelScope is per-function state: the break/continue/switch targets in
// effect and the goto-label bookkeeping for this function only (goto
// cannot cross function boundaries).
type labelScope struct {
	funcName      string
	breakTarget   string
	continueTarget string
	currentSwitch *ast.SwitchStmt

	declaredLabels map[string]string // source label -> unique label
	gotoRefs       []*ast.GotoStmt
}

func (a *Analyzer) labelTranslationUnit(tu *ast.TranslationUnit) {
	for _, d := range tu.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		ls := &labelScope{funcName: fd.Name, declaredLabels: map[string]string{}}
		a.labelStmt(fd.Body, ls)
		for _, g := range ls.gotoRefs {
			unique, ok := ls.declaredLabels[g.Label]
			if !ok {
				a.Diags.Add(g.Pos(), "use of undeclared label '%s'", g.Label)
				continue
			}
			g.UniqueLabel = unique
		}
	}
}

func (a *Analyzer) labelStmt(s ast.Stmt, ls *labelScope) {
	switch n := s.(type) {
	case *ast.CompoundStmt:
		for _, item := range n.Items {
			if st, ok := item.(ast.Stmt); ok {
				a.labelStmt(st, ls)
			}
		}
	case *ast.IfStmt:
		a.labelStmt(n.Then, ls)
		if n.Else != nil {
			a.labelStmt(n.Else, ls)
		}
	case *ast.LabeledStmt:
		// Uniquify exactly once, at first binding; never re-suffix an
		// already-unique name on a later visit of the same node.
		if n.UniqueLabel == "" {
			if _, dup := ls.declaredLabels[n.Label]; dup {
				a.Diags.Add(n.Pos(), "label '%s' redefined", n.Label)
			}
			n.UniqueLabel = n.Label + "." + ls.funcName
			ls.declaredLabels[n.Label] = n.UniqueLabel
		}
		a.labelStmt(n.Inner, ls)
	case *ast.GotoStmt:
		ls.gotoRefs = append(ls.gotoRefs, n)
	case *ast.BreakStmt:
		if ls.breakTarget == "" {
			a.Diags.Add(n.Pos(), "'break' outside a loop or switch")
			return
		}
		n.Target = ls.breakTarget
	case *ast.ContinueStmt:
		if ls.continueTarget == "" {
			a.Diags.Add(n.Pos(), "'continue' outside a loop")
			return
		}
		n.Target = ls.continueTarget
	case *ast.CaseStmt:
		a.labelCase(n, ls)
		a.labelStmt(n.Inner, ls)
	case *ast.WhileStmt:
		n.Label = a.Counter.Label("while")
		n.BreakLabel = n.Label + ".break"
		n.ContinueLabel = n.Label + ".continue"
		inner := *ls
		inner.breakTarget, inner.continueTarget = n.BreakLabel, n.ContinueLabel
		a.labelStmt(n.Body, &inner)
	case *ast.DoWhileStmt:
		n.Label = a.Counter.Label("do.While")
		n.BreakLabel = n.Label + ".break"
		n.ContinueLabel = n.Label + ".continue"
		inner := *ls
		inner.breakTarget, inner.continueTarget = n.BreakLabel, n.ContinueLabel
		a.labelStmt(n.Body, &inner)
	case *ast.ForStmt:
		n.Label = a.Counter.Label("for")
		n.BreakLabel = n.Label + ".break"
		n.ContinueLabel = n.Label + ".continue"
		inner := *ls
		inner.breakTarget, inner.continueTarget = n.BreakLabel, n.ContinueLabel
		a.labelStmt(n.Body, &inner)
	case *ast.SwitchStmt:
		n.Label = a.Counter.Label("switch")
		n.BreakLabel = n.Label + ".break"
		inner := *ls
		inner.breakTarget = n.BreakLabel
		inner.currentSwitch = n
		a.labelStmt(n.Body, &inner)
	}
}

func (a *Analyzer) labelCase(n *ast.CaseStmt, ls *labelScope) {
	sw := ls.currentSwitch
	if sw == nil {
		a.Diags.Add(n.Pos(), "'case'/'default' outside a switch")
		return
	}
	if n.Expr == nil {
		if sw.DefaultLabel != "" {
			a.Diags.Add(n.Pos(), "multiple 'default' labels in one switch")
			return
		}
		n.Label = sw.Label + ".default"
		sw.DefaultLabel = n.Label
		return
	}
	value, ok := constantInt(n.Expr)
	if !ok {
		a.Diags.Add(n.Pos(), "case label does not reduce to an integer constant")
		return
	}
	if lo.ContainsBy(sw.Cases, func(c ast.SwitchCase) bool { return c.Value == value }) {
		a.Diags.Add(n.Pos(), "duplicate case value %d", value)
		return
	}
	n.Value = value
	n.Label = sw.Label + ".value." + strconv.Itoa(len(sw.Cases))
	sw.Cases = append(sw.Cases, ast.SwitchCase{Value: value, Label: n.Label})
}

// constantInt evaluates a case label. Only an integer literal (a
// ConstExpr) is accepted: type checking does not fold casts or
// arithmetic, so a case label written as one of those is rejected.
func constantInt(e ast.Expr) (int64, bool) {
	c, ok := e.(*ast.ConstExpr)
	if !ok {
		return 0, false
	}
	if c.GetType().IsDouble() {
		return 0, false
	}
	return int64(c.IVal), true
}
