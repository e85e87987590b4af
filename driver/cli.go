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

// cli.go wires §6's flag surface onto a cobra command.
package driver

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the nanoc command line: one positional source
// argument plus the stage-stopping flags from §6.
func NewRootCmd() *cobra.Command {
	var opts Options
	var exitCode int

	cmd := &cobra.Command{
		Use:   "nanoc <source.c>",
		Short: "compile a C source file to x86-64 assembly, object code, or an executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = args[0]
			exitCode = Run(opts)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.Lex, "lex", false, "stop after lexing")
	flags.BoolVar(&opts.PrintTokens, "printTokens", false, "dump tokens")
	flags.BoolVar(&opts.Parse, "parse", false, "stop after parsing")
	flags.BoolVar(&opts.PrintAst, "printAst", false, "dump the AST")
	flags.BoolVar(&opts.Validate, "validate", false, "stop after semantic passes")
	flags.BoolVar(&opts.PrintAstAfter, "printAstAfter", false, "dump the AST after semantic passes")
	flags.BoolVar(&opts.Codegen, "codegen", false, "stop after instruction selection")
	flags.BoolVar(&opts.PrintAsm, "printAsm", false, "dump pseudo-asm before legalization")
	flags.BoolVar(&opts.PrintAsmAfter, "printAsmAfter", false, "dump assembly after legalization")
	flags.BoolVar(&opts.Assemble, "assemble", false, "write the .s file and stop")
	flags.BoolVarP(&opts.CompileOnly, "compile-only", "c", false, "assemble to a .o and stop")
	flags.StringArrayVarP(&opts.Libs, "library", "l", nil, "link against library <name>")

	cmd.SilenceUsage = true
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PostRunE = func(cmd *cobra.Command, args []string) error {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
		return nil
	}
	return cmd
}
