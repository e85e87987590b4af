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
package driver

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"nanoc/internal/utils"
)

// expectExitCode compiles testdataFile to an executable in a scratch
// directory, runs it, and asserts its exit code.
func expectExitCode(t *testing.T, testdataFile string, want int) {
	t.Helper()
	if !utils.CommandExists("gcc") {
		t.Skip("gcc not available")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	source := filepath.Join(wd, "..", "testdata", testdataFile)
	outDir := t.TempDir()

	code := Run(Options{Source: source, OutputDir: outDir})
	if code != 0 {
		t.Fatalf("pipeline reported failure for %s", testdataFile)
	}

	base := testdataFile[:len(testdataFile)-len(filepath.Ext(testdataFile))]
	bin := filepath.Join(outDir, base)
	cmd := exec.Command(bin)
	err = cmd.Run()
	got := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		got = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("running %s: %s", bin, err)
	}
	if got != want {
		t.Errorf("%s: exit code = %d, want %d", testdataFile, got, want)
	}
}

func TestGoldenScenarios(t *testing.T) {
	cases := []struct {
		file string
		want int
	}{
		{"arith.c", 14},
		{"array_sum.c", 6},
		{"ternary_abs.c", 10},
		{"unsigned_shift.c", 1},
		{"for_sum.c", 45},
		{"switch_fallthrough.c", 6},
		{"compound_assign_common_type.c", 11},
	}
	for _, c := range cases {
		c := c
		t.Run(c.file, func(t *testing.T) {
			expectExitCode(t, c.file, c.want)
		})
	}
}
