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
	"fmt"

	"nanoc/ast"
)

// Linkage mirrors §3.1's "each named entity carries {internal | external
// | none}".
type Linkage int

const (
	LinkageNone Linkage = iota
	LinkageInternal
	LinkageExternal
)

// Entry is a symbol table slot (§4.1).
type Entry struct {
	UniqueName string
	Type       *ast.Type
	Linkage    Linkage
	Global     bool
	Defined    bool
}

// Counter is the process-wide monotonic counter behind every generated
// name in the compiler (§9: "the only requirement is monotonicity within
// a compilation unit"). It is threaded explicitly through the pass
// context rather than kept as a package-level global.
type Counter struct{ n int }

func NewCounter() *Counter { return &Counter{} }

func (c *Counter) next() int {
	c.n++
	return c.n
}

// Unique mangles a source name into a locally-unique one, e.g. "x" ->
// "x.3.tmp" (§4.1 "Unique naming").
func (c *Counter) Unique(name string) string {
	return fmt.Sprintf("%s.%d.tmp", name, c.next())
}

// Label produces a fresh control-flow label such as "while.4", "for.5",
// "switch.6", "do.While.7".
func (c *Counter) Label(prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, c.next())
}

// Temp produces a fresh expression-temporary name, "tmp.N".
func (c *Counter) Temp() string {
	return fmt.Sprintf("tmp.%d", c.next())
}

// Tag mangles a structured-type tag shadowed in an inner scope, e.g.
// "Point" -> "Point.3.tmp" (§4.1: aggregate registry is single-scoped;
// shadowing re-declares under a mangled tag).
func (c *Counter) Tag(name string) string {
	return fmt.Sprintf("%s.%d.tmp", name, c.next())
}

type scope struct {
	names map[string]*Entry
	tags  map[string]string // source tag -> registry unique name
}

func newScope() *scope {
	return &scope{names: map[string]*Entry{}, tags: map[string]string{}}
}

// SymbolTable is the stack of scopes described in §4.1.
type SymbolTable struct {
	scopes []*scope
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{scopes: []*scope{newScope()}}
}

func (t *SymbolTable) PushScope() { t.scopes = append(t.scopes, newScope()) }

func (t *SymbolTable) PopScope() { t.scopes = t.scopes[:len(t.scopes)-1] }

func (t *SymbolTable) current() *scope { return t.scopes[len(t.scopes)-1] }

func (t *SymbolTable) AtFileScope() bool { return len(t.scopes) == 1 }

// Declare installs name in the current scope, overwriting any prior
// entry for the same name in that scope (callers check for conflicting
// redeclaration before calling this). An entry whose unique name differs
// from name is also recorded at file scope under that unique name, so
// passes after resolution can still look up renamed locals.
func (t *SymbolTable) Declare(name string, e *Entry) {
	t.current().names[name] = e
	if e.UniqueName != name {
		t.scopes[0].names[e.UniqueName] = e
	}
}

// LookupCurrent returns the entry declared directly in the current
// scope, without searching outward.
func (t *SymbolTable) LookupCurrent(name string) (*Entry, bool) {
	e, ok := t.current().names[name]
	return e, ok
}

// Lookup searches from innermost scope outward, returning the entry and
// whether it was found in the current (innermost) scope.
func (t *SymbolTable) Lookup(name string) (entry *Entry, fromCurrentScope bool, found bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if e, ok := t.scopes[i].names[name]; ok {
			return e, i == len(t.scopes)-1, true
		}
	}
	return nil, false, false
}

// DeclareTag records tag -> uniqueName in the current scope. If tag is
// already visible in an outer scope, the caller is expected to have
// mangled uniqueName via Counter.Tag first.
func (t *SymbolTable) DeclareTag(tag, uniqueName string) {
	t.current().tags[tag] = uniqueName
}

// LookupTag searches scopes innermost-out for a structured tag.
func (t *SymbolTable) LookupTag(tag string) (string, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if name, ok := t.scopes[i].tags[tag]; ok {
			return name, true
		}
	}
	return "", false
}

// FileScopeNames returns every file-scope identifier with linkage, so
// later passes can tell a Data reference from a local Pseudo without
// re-deriving file scope themselves (§4.4 "Global vs. local operands").
func (t *SymbolTable) FileScopeNames() map[string]bool {
	out := map[string]bool{}
	for name, e := range t.scopes[0].names {
		if e.Linkage != LinkageNone {
			out[name] = true
		}
	}
	return out
}
