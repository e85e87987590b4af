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

// pipeline.go composes the stages named in §6's compose order:
// preprocess -> lex -> parse -> semantic passes -> IR -> instruction
// selection -> pseudo replacement -> legalization -> emission ->
// assemble -> link. Each CLI stage-stopping flag is a short-circuit
// return out of Run.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nanoc/asm"
	"nanoc/ast"
	"nanoc/internal/utils"
	"nanoc/ir"
	"nanoc/sema"
)

// Options mirrors the CLI flags in §6; Libs accumulates every -l<name>.
type Options struct {
	Lex             bool
	PrintTokens     bool
	Parse           bool
	PrintAst        bool
	Validate        bool
	PrintAstAfter   bool
	Codegen         bool
	PrintAsm        bool
	PrintAsmAfter   bool
	Assemble        bool
	CompileOnly     bool
	Libs            []string
	Source          string
	OutputDir       string
}

// offsetToLineCol converts a byte offset into preprocessed source into
// 1-based line/column coordinates (§6 "Error lines have the form
// `<message> line: <n> column: <m>`").
func offsetToLineCol(src []byte, offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func reportErrors(src []byte, errs []sema.Error) {
	for _, e := range errs {
		line, col := offsetToLineCol(src, e.Offset)
		fmt.Fprintf(os.Stderr, "%s line: %d column: %d\n", e.Message, line, col)
	}
}

// Run executes the full pipeline for opts.Source, returning a process
// exit code.
func Run(opts Options) int {
	wd, err := os.Getwd()
	if err != nil {
		utils.Fatal("cannot determine working directory: %s", err)
	}
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = wd
	}
	base := strings.TrimSuffix(filepath.Base(opts.Source), filepath.Ext(opts.Source))

	preprocessed := preprocess(wd, opts.Source)
	src := []byte(preprocessed)

	if opts.PrintTokens {
		ast.PrintTokenized(src)
	}
	if opts.Lex {
		return 0
	}

	tu, err := ast.Parse(src)
	if err != nil {
		if pe, ok := err.(*ast.ParseError); ok {
			line, col := offsetToLineCol(src, pe.Offset)
			fmt.Fprintf(os.Stderr, "%s line: %d column: %d\n", pe.Message, line, col)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	if opts.PrintAst {
		fmt.Print(ast.Dump(tu))
	}
	if opts.Parse {
		return 0
	}

	analyzer := sema.NewAnalyzer()
	if errs := analyzer.Analyze(tu); len(errs) > 0 {
		reportErrors(src, errs)
		return 1
	}
	if opts.PrintAstAfter {
		fmt.Print(ast.Dump(tu))
	}
	if opts.Validate {
		return 0
	}

	gen := ir.NewGenerator(analyzer.Counter, analyzer.Aggs)
	irProg := gen.Generate(tu)

	selector := asm.NewSelector(analyzer.Sym.FileScopeNames(), analyzer.Aggs, analyzer.Counter)
	asmProg := selector.Select(irProg)
	if opts.PrintAsm {
		fmt.Print(asm.Emit(asmProg))
	}
	if opts.Codegen {
		return 0
	}

	asm.ReplacePseudos(asmProg)
	asm.Legalize(asmProg)
	if opts.PrintAsmAfter {
		fmt.Print(asm.Emit(asmProg))
	}

	text := asm.Emit(asmProg)
	asmPath := filepath.Join(outDir, base+".s")
	writeFile(asmPath, text)
	if opts.Assemble {
		return 0
	}

	objPath := assemble(outDir, asmPath)
	if opts.CompileOnly {
		return 0
	}

	outPath := filepath.Join(outDir, base)
	link(outDir, []string{objPath}, opts.Libs, outPath)
	return 0
}
