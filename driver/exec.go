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

// exec.go shells out to the two external collaborators named in §6:
// the system preprocessor and gcc as assembler/linker. Neither is part
// of this compiler's core.
package driver

import (
	"os"
	"path/filepath"
	"strings"

	"nanoc/internal/utils"
)

// preprocess runs `gcc -E -P` over source and returns the preprocessed
// text.
func preprocess(wd, source string) string {
	return utils.ExecuteCmd(wd, "gcc", "-E", "-P", source)
}

// assemble invokes gcc as an assembler over asmPath, producing an
// object file alongside it.
func assemble(wd, asmPath string) string {
	objPath := strings.TrimSuffix(asmPath, filepath.Ext(asmPath)) + ".o"
	utils.ExecuteCmd(wd, "gcc", "-c", asmPath, "-o", objPath)
	return objPath
}

// link invokes gcc as the linker, producing an executable at outPath;
// libs are passed through as "-l<name>" per §6.
func link(wd string, objPaths []string, libs []string, outPath string) {
	args := []string{"gcc", "-o", outPath}
	args = append(args, objPaths...)
	for _, l := range libs {
		args = append(args, "-l"+l)
	}
	utils.ExecuteCmd(wd, args...)
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		utils.Fatal("cannot write %s: %s", path, err)
	}
}
