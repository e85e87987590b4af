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

// Package ir is the typed three-address intermediate representation
// (§3.3): explicit temporaries, pointer arithmetic, and control flow
// reduced to jumps/labels. ir/gen.go lowers the checked AST into it.
package ir

import (
	"fmt"

	"nanoc/ast"
)

// Value is either a Var or a Const (§3.3).
type Value interface {
	ValueType() *ast.Type
	String() string
}

type Var struct {
	Name string
	Type *ast.Type
}

func (v *Var) ValueType() *ast.Type { return v.Type }
func (v *Var) String() string       { return v.Name }

// Const holds an integer or double literal; IVal is reinterpreted per
// Type.Kind for the integer variants, FVal for Double.
type Const struct {
	Type *ast.Type
	IVal uint64
	FVal float64
}

func (c *Const) ValueType() *ast.Type { return c.Type }
func (c *Const) String() string {
	if c.Type.IsDouble() {
		return fmt.Sprintf("%g", c.FVal)
	}
	return fmt.Sprintf("%d", c.IVal)
}

func ConstInt(t *ast.Type, v uint64) *Const   { return &Const{Type: t, IVal: v} }
func ConstDouble(v float64) *Const            { return &Const{Type: ast.VarType(ast.Double), FVal: v} }

// UnaryOp is the IR-level unary operator set; AST-only forms (++/--/+)
// are lowered away by ir/gen.go before this point.
type UnaryOp int

const (
	Complement UnaryOp = iota
	Negate
	Not
)

// BinaryOp is the IR-level binary operator set. Signedness is resolved
// at instruction selection from each operand's Type, not encoded here.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

// Instruction is any IR instruction (§3.3); every instruction's result
// type, when it has one, is recoverable from its Dst operand.
type Instruction interface{ isInstruction() }

type Return struct{ Val Value } // Val == nil for a void return

type SignExtend struct{ Src, Dst Value }
type ZeroExtend struct{ Src, Dst Value }
type Truncate struct{ Src, Dst Value }
type DoubleToInt struct{ Src, Dst Value }
type DoubleToUInt struct{ Src, Dst Value }
type IntToDouble struct{ Src, Dst Value }
type UIntToDouble struct{ Src, Dst Value }

type Unary struct {
	Op       UnaryOp
	Src, Dst Value
}

type Binary struct {
	Op        BinaryOp
	Lhs, Rhs  Value
	Dst       Value
}

type Copy struct{ Src, Dst Value }

type GetAddress struct{ Src, Dst Value }
type Load struct{ Ptr, Dst Value }
type Store struct{ Src, Ptr Value }

// AddPtr computes ptr + index*scale, result type matches Dst's pointer
// type (§3.3, §4.3 "Pointer operators").
type AddPtr struct {
	Ptr, Index Value
	Scale      int
	Dst        Value
}

// CopyToOffset writes Src into the aggregate slot named Aggregate at
// Offset bytes, Width bytes wide (§3.3, used for aggregate assignment
// and array/struct initializer emission).
type CopyToOffset struct {
	Src       Value
	Aggregate string
	Offset    int
	Width     int
}

type Jump struct{ Label string }
type JumpIfZero struct {
	Val   Value
	Label string
}
type JumpIfNotZero struct {
	Val   Value
	Label string
}
type Label struct{ Name string }

type FunCall struct {
	Name string
	Args []Value
	Dst  Value // nil for a void call
}

// Allocate reserves a stack slot for an aggregate or large temporary
// that cannot live in a single Pseudo (§3.3).
type Allocate struct {
	Bytes int
	Name  string
}

func (*Return) isInstruction()        {}
func (*SignExtend) isInstruction()    {}
func (*ZeroExtend) isInstruction()    {}
func (*Truncate) isInstruction()      {}
func (*DoubleToInt) isInstruction()   {}
func (*DoubleToUInt) isInstruction()  {}
func (*IntToDouble) isInstruction()   {}
func (*UIntToDouble) isInstruction()  {}
func (*Unary) isInstruction()         {}
func (*Binary) isInstruction()        {}
func (*Copy) isInstruction()          {}
func (*GetAddress) isInstruction()    {}
func (*Load) isInstruction()          {}
func (*Store) isInstruction()         {}
func (*AddPtr) isInstruction()        {}
func (*CopyToOffset) isInstruction()  {}
func (*Jump) isInstruction()          {}
func (*JumpIfZero) isInstruction()    {}
func (*JumpIfNotZero) isInstruction() {}
func (*Label) isInstruction()         {}
func (*FunCall) isInstruction()       {}
func (*Allocate) isInstruction()      {}

// TopLevel is a file-scope IR entity (§3.3 "Top level").
type TopLevel interface{ isTopLevel() }

type Function struct {
	Name       string
	Global     bool
	Params     []string
	ParamTypes []*ast.Type
	RetType    *ast.Type
	Insts      []Instruction
}

type StaticVariable struct {
	Name   string
	Value  Value
	Type   *ast.Type
	Global bool
}

// StaticInitElem places Value at Offset bytes into the enclosing
// StaticArray's storage; gaps (struct padding, array tail padding) are
// implicitly zero.
type StaticInitElem struct {
	Offset int
	Value  Value
}

// StaticArray backs both array and struct/union file-scope definitions;
// Init lists only the non-zero scalar leaves, each at its byte offset.
type StaticArray struct {
	Name   string
	Init   []StaticInitElem
	Type   *ast.Type
	Global bool
}

// StaticConstant is an interned read-only blob: a string literal's
// backing bytes. Double literals are interned later, by instruction
// selection (asm.StaticConstant).
type StaticConstant struct {
	Name           string
	Bytes          []byte
	NullTerminated bool
	Global         bool
}

func (*Function) isTopLevel()       {}
func (*StaticVariable) isTopLevel() {}
func (*StaticArray) isTopLevel()    {}
func (*StaticConstant) isTopLevel() {}

// Program is the full output of IR generation for one translation unit.
type Program struct {
	TopLevels []TopLevel
}
