// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Modules directory verification against the catalog

package modsrc

import (
	"os"
	"path/filepath"

	"github.com/sony-level/tfpanel/internal/render"
)

// Verify reports, for every catalog module, whether its source directory
// exists under dir and holds at least one .tf file.
func Verify(dir string) *Report {
	report := &Report{Dir: dir, Ready: true}

	for _, m := range render.Catalog() {
		check := ModuleCheck{Flag: m.Flag, Dir: filepath.Join(dir, m.SourceDir)}

		info, err := os.Stat(check.Dir)
		switch {
		case os.IsNotExist(err):
			check.Problem = "directory missing"
		case err != nil:
			check.Problem = err.Error()
		case !info.IsDir():
			check.Problem = "not a directory"
		default:
			matches, _ := filepath.Glob(filepath.Join(check.Dir, "*.tf"))
			check.TFFiles = len(matches)
			if check.TFFiles == 0 {
				check.Problem = "no .tf files"
			}
		}

		check.Found = check.Problem == ""
		if !check.Found {
			report.Ready = false
			report.Missing = append(report.Missing, m.Flag)
		}
		report.Modules = append(report.Modules, check)
	}
	return report
}
