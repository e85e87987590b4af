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

// replace.go assigns every Pseudo/PseudoMem a stack frame slot (§4.5).
// This compiler never keeps a pseudo-register live in a machine
// register across instructions: every one of them is spilled, and
// registers appear only as transient instruction operands produced by
// select.go or legalize.go.
package asm

import "nanoc/internal/utils"

// frameBuilder accumulates a function's stack layout as it walks that
// function's instructions once.
type frameBuilder struct {
	offsets map[string]int // pseudo/aggregate name -> negative rbp offset
	cursor  int
}

func newFrameBuilder() *frameBuilder { return &frameBuilder{offsets: map[string]int{}} }

func (b *frameBuilder) reserve(name string, bytes, align int) int {
	if off, ok := b.offsets[name]; ok {
		return off
	}
	b.cursor = utils.RoundUp(b.cursor+bytes, align)
	off := -b.cursor
	b.offsets[name] = off
	return off
}

// ReplacePseudos rewrites every Function in prog in place, replacing
// Pseudo/PseudoMem operands with Stack operands and filling in
// StackBytes.
func ReplacePseudos(prog *Program) {
	for _, tl := range prog.TopLevels {
		if fn, ok := tl.(*Function); ok {
			replaceFunction(fn)
		}
	}
}

func replaceFunction(fn *Function) {
	b := newFrameBuilder()
	for _, agg := range fn.Aggregates {
		align := agg.Align
		if align == 0 {
			align = 8
		}
		b.reserve(agg.Name, agg.Bytes, align)
	}
	for _, inst := range fn.Insts {
		walkOperands(inst, func(o *Operand) {
			switch v := (*o).(type) {
			case *Pseudo:
				at := fn.PseudoTypes[v.Name]
				*o = &Stack{Offset: b.reserve(v.Name, at.Size(), at.Align())}
			case *PseudoMem:
				base, ok := b.offsets[v.Name]
				if !ok {
					base = b.reserve(v.Name, 8, 8)
				}
				*o = &Stack{Offset: base + v.Offset}
			}
		})
	}
	fn.StackBytes = utils.Align16(b.cursor)
}

// walkOperands calls fn once for every operand slot an instruction
// holds, letting the caller rewrite it in place.
func walkOperands(inst Instruction, fn func(*Operand)) {
	visit := func(o *Operand) {
		if *o == nil {
			return
		}
		if ind, ok := (*o).(*Indirect); ok {
			fn(&ind.Base)
			return
		}
		fn(o)
	}
	switch n := inst.(type) {
	case *Mov:
		visit(&n.Src)
		visit(&n.Dst)
	case *Movsx:
		visit(&n.Src)
		visit(&n.Dst)
	case *MovZeroExtend:
		visit(&n.Src)
		visit(&n.Dst)
	case *Lea:
		visit(&n.Src)
		visit(&n.Dst)
	case *Cvttsd2si:
		visit(&n.Src)
		visit(&n.Dst)
	case *Cvtsi2sd:
		visit(&n.Src)
		visit(&n.Dst)
	case *Unary:
		visit(&n.Dst)
	case *Binary:
		visit(&n.Src)
		visit(&n.Dst)
	case *Cmp:
		visit(&n.Src)
		visit(&n.Dst)
	case *Idiv:
		visit(&n.Src)
	case *Div:
		visit(&n.Src)
	case *SetCC:
		visit(&n.Dst)
	case *Push:
		visit(&n.Src)
	}
}
