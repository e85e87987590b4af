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
package asm

import "testing"

func TestEmitFunctionPrologueAndEpilogue(t *testing.T) {
	fn := &Function{
		Name:   "main",
		Global: true,
		Insts:  []Instruction{&Ret{}},
	}
	out := Emit(&Program{TopLevels: []TopLevel{fn}})
	want := []string{".globl main", "main:", "pushq %rbp", "movq %rsp, %rbp", "movq %rbp, %rsp", "popq %rbp", "ret"}
	for _, w := range want {
		if !contains(out, w) {
			t.Errorf("output missing %q\nfull output:\n%s", w, out)
		}
	}
}

func TestEmitLocalLabelsArePrefixed(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Jmp{Label: "end"},
			&AsmLabel{Name: "end"},
			&Ret{},
		},
	}
	out := Emit(&Program{TopLevels: []TopLevel{fn}})
	if !contains(out, "jmp .Lend") {
		t.Errorf("expected a .L-prefixed jmp target, got:\n%s", out)
	}
	if !contains(out, ".Lend:") {
		t.Errorf("expected a .L-prefixed label, got:\n%s", out)
	}
}

func TestEmitBSSForNilInit(t *testing.T) {
	sv := &StaticVariable{Name: "z", Global: true, Align: 4, Init: nil, Size: 16}
	out := Emit(&Program{TopLevels: []TopLevel{sv}})
	if !contains(out, ".bss") {
		t.Errorf("expected .bss section for nil Init, got:\n%s", out)
	}
	if !contains(out, ".zero 16") {
		t.Errorf("expected a .zero directive, got:\n%s", out)
	}
}

func TestEmitDataSectionForInitializedStatic(t *testing.T) {
	sv := &StaticVariable{Name: "g", Global: true, Align: 4, Init: []byte{1, 0, 0, 0}, Size: 4}
	out := Emit(&Program{TopLevels: []TopLevel{sv}})
	if !contains(out, ".data") {
		t.Errorf("expected .data section, got:\n%s", out)
	}
	if !contains(out, ".long 1") {
		t.Errorf("expected a .long directive for the 4-byte payload, got:\n%s", out)
	}
}

func TestEmitTrailerMarksNonExecutableStack(t *testing.T) {
	out := Emit(&Program{})
	if !contains(out, ".section .note.GNU-stack") {
		t.Error("expected the GNU-stack non-executable-stack trailer on every output")
	}
}

func TestEmitGNUAsmSuffixesMatchOperandWidth(t *testing.T) {
	fn := &Function{
		Name: "f",
		Insts: []Instruction{
			&Mov{Type: Byte, Src: &Imm{Value: 1}, Dst: &Register{Reg: AX}},
			&Mov{Type: QuadWord, Src: &Imm{Value: 1}, Dst: &Register{Reg: AX}},
		},
	}
	out := Emit(&Program{TopLevels: []TopLevel{fn}})
	if !contains(out, "movb $1, %al") {
		t.Errorf("expected byte-width mov with %%al, got:\n%s", out)
	}
	if !contains(out, "movq $1, %rax") {
		t.Errorf("expected quad-width mov with %%rax, got:\n%s", out)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
