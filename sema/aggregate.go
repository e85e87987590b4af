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

import (
	"github.com/samber/lo"

	"nanoc/ast"
	"nanoc/internal/utils"
)

// Member is one field of a laid-out struct/union (§3.1).
type Member struct {
	Name   string
	Type   *ast.Type
	Offset int
	Align  int
}

// Aggregate is the aggregate registry's entry for one structured type:
// its members, a by-name index, total size and alignment.
type Aggregate struct {
	Name    string
	Kind    ast.Kind // ast.Struct or ast.Union
	Members []Member
	ByName  map[string]Member
	Size    int
	Align   int
}

// AggregateRegistry maps a structured type's unique name to its layout
// (§3.1 "auxiliary aggregate registry").
type AggregateRegistry struct {
	entries map[string]*Aggregate
}

func NewAggregateRegistry() *AggregateRegistry {
	return &AggregateRegistry{entries: map[string]*Aggregate{}}
}

func (r *AggregateRegistry) Lookup(name string) (*Aggregate, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Define computes member offsets/alignment per §4.1's layout algorithm
// and registers the result under uniqueName.
func (r *AggregateRegistry) Define(uniqueName string, kind ast.Kind, rawMembers []ast.MemberDecl) *Aggregate {
	agg := &Aggregate{Name: uniqueName, Kind: kind}

	cursor, maxAlign := 0, 1
	for _, m := range rawMembers {
		align := TypeAlign(m.Type, r)
		size := TypeSize(m.Type, r)
		offset := 0
		if kind == ast.Struct {
			offset = utils.RoundUp(cursor, align)
			cursor = offset + size
		}
		if align > maxAlign {
			maxAlign = align
		}
		agg.Members = append(agg.Members, Member{Name: m.Name, Type: m.Type, Offset: offset, Align: align})
	}

	agg.Align = maxAlign
	if kind == ast.Union {
		maxSize := 0
		for _, m := range agg.Members {
			if s := TypeSize(m.Type, r); s > maxSize {
				maxSize = s
			}
		}
		agg.Size = utils.RoundUp(maxSize, maxAlign)
	} else {
		agg.Size = utils.RoundUp(cursor, maxAlign)
	}

	agg.ByName = lo.KeyBy(agg.Members, func(m Member) string { return m.Name })
	r.entries[uniqueName] = agg
	return agg
}

// Member looks up a named field, honoring the dot/arrow resolution rule
// of §4.2.
func (a *Aggregate) Member(name string) (Member, bool) {
	m, ok := a.ByName[name]
	return m, ok
}

// TypeSize computes the storage size in bytes of any Type, consulting
// the aggregate registry for Struct/Union/Array.
func TypeSize(t *ast.Type, reg *AggregateRegistry) int {
	switch t.Kind {
	case ast.Array:
		return t.Size * TypeSize(t.Elem, reg)
	case ast.Struct, ast.Union:
		if agg, ok := reg.Lookup(t.Name); ok {
			return agg.Size
		}
		return 0
	default:
		return t.ScalarSize()
	}
}

// TypeAlign computes the natural alignment of any Type, applying the
// SysV "array >= 16 bytes aligns to 16" rule (§4.1, confirmed against
// original_source's GenerateAsmTree.cpp per SPEC_FULL.md §3).
func TypeAlign(t *ast.Type, reg *AggregateRegistry) int {
	switch t.Kind {
	case ast.Array:
		elemAlign := TypeAlign(t.Elem, reg)
		return ArrayAlignment(elemAlign, TypeSize(t, reg))
	case ast.Struct, ast.Union:
		if agg, ok := reg.Lookup(t.Name); ok {
			return agg.Align
		}
		return 1
	default:
		return t.ScalarSize()
	}
}

// ArrayAlignment implements the REDESIGN FLAG in spec.md §9: any array
// whose total size is >= 16 bytes is aligned to 16 regardless of its
// element's natural alignment.
func ArrayAlignment(elemAlign, totalSize int) int {
	if totalSize >= 16 {
		return 16
	}
	return elemAlign
}
