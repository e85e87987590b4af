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

import "fmt"

// Kind is the base scalar/aggregate kind a Type is built from (§3.1).
type Kind int

const (
	I8 Kind = iota
	U8
	Char
	I32
	U32
	I64
	U64
	Double
	Pointer
	Array
	Function
	Struct
	Union
	Void
)

func (k Kind) String() string {
	switch k {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case Char:
		return "char"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case Double:
		return "double"
	case Pointer:
		return "pointer"
	case Array:
		return "array"
	case Function:
		return "function"
	case Struct:
		return "struct"
	case Union:
		return "union"
	case Void:
		return "void"
	}
	return "?"
}

// Type is the semantic type tree (§3.1). Exactly one of the Variant
// fields is meaningful, selected by Kind; VarType/PointerType/ArrayType/
// FuncType compare structurally (via Equal), StructuredType compares
// nominally (by Name, the aggregate registry's unique tag).
type Type struct {
	Kind Kind

	// PointerType
	Referent *Type
	// ArrayType
	Elem *Type
	Size int
	// FuncType
	Ret    *Type
	Params []*Type
	// StructuredType: unique aggregate-registry tag
	Name string
}

func VarType(k Kind) *Type { return &Type{Kind: k} }

func PointerTo(referent *Type) *Type { return &Type{Kind: Pointer, Referent: referent} }

func ArrayOf(elem *Type, size int) *Type { return &Type{Kind: Array, Elem: elem, Size: size} }

func FuncOf(ret *Type, params ...*Type) *Type { return &Type{Kind: Function, Ret: ret, Params: params} }

func StructuredType(kind Kind, uniqueName string) *Type { return &Type{Kind: kind, Name: uniqueName} }

func (t *Type) IsScalar() bool {
	switch t.Kind {
	case Struct, Union, Function, Void, Array:
		return false
	}
	return true
}

func (t *Type) IsInteger() bool {
	switch t.Kind {
	case I8, U8, Char, I32, U32, I64, U64:
		return true
	}
	return false
}

func (t *Type) IsArithmetic() bool { return t.IsInteger() || t.Kind == Double }

func (t *Type) IsSigned() bool {
	switch t.Kind {
	case I8, Char, I32, I64:
		return true
	}
	return false
}

func (t *Type) IsPointer() bool   { return t.Kind == Pointer }
func (t *Type) IsArray() bool     { return t.Kind == Array }
func (t *Type) IsFunction() bool  { return t.Kind == Function }
func (t *Type) IsVoid() bool      { return t.Kind == Void }
func (t *Type) IsDouble() bool    { return t.Kind == Double }
func (t *Type) IsStructured() bool {
	return t.Kind == Struct || t.Kind == Union
}

// ScalarSize reports the natural storage width in bytes for scalar kinds;
// aggregate/array sizes come from the aggregate registry (sema package)
// and are not computed here.
func (t *Type) ScalarSize() int {
	switch t.Kind {
	case I8, U8, Char:
		return 1
	case I32, U32:
		return 4
	case I64, U64, Double, Pointer:
		return 8
	}
	return 0
}

// Equal implements the structural-for-scalars / nominal-for-structured
// equality rule from §3.1.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Pointer:
		return Equal(a.Referent, b.Referent)
	case Array:
		return a.Size == b.Size && Equal(a.Elem, b.Elem)
	case Function:
		if !Equal(a.Ret, b.Ret) || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	case Struct, Union:
		return a.Name == b.Name
	default:
		return true
	}
}

func (t *Type) String() string {
	switch t.Kind {
	case Pointer:
		return fmt.Sprintf("%s*", t.Referent)
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem, t.Size)
	case Function:
		return fmt.Sprintf("fn(%v) -> %s", t.Params, t.Ret)
	case Struct:
		return fmt.Sprintf("struct %s", t.Name)
	case Union:
		return fmt.Sprintf("union %s", t.Name)
	default:
		return t.Kind.String()
	}
}
