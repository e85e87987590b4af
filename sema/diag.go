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

// Package sema implements semantic analysis: the symbol and aggregate
// tables (§4.1) and the sequence of tree-walking passes (§4.2) that
// resolve, type-check and normalize the parsed AST before IR generation.
package sema

import "fmt"

// Error is a single semantic diagnostic (§7): a message plus the byte
// offset into preprocessed source it pertains to.
type Error struct {
	Message string
	Offset  int
}

// Diagnostics accumulates errors across a whole pass; passes never abort
// on the first error, but the pipeline skips IR generation once any pass
// has recorded one (§5 "never abort-on-first-error for semantic passes").
type Diagnostics struct {
	Errors []Error
}

func (d *Diagnostics) Add(offset int, format string, args ...interface{}) {
	d.Errors = append(d.Errors, Error{Message: fmt.Sprintf(format, args...), Offset: offset})
}

func (d *Diagnostics) HasErrors() bool { return len(d.Errors) > 0 }
