package evidenceangel

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/export"
)

// ExportFormat selects which backend renders an export.
type ExportFormat int

const (
	ExportHTML ExportFormat = iota
	ExportSpreadsheet
	ExportZipFiles
)

func (f ExportFormat) toInternal() export.Format {
	switch f {
	case ExportSpreadsheet:
		return export.FormatSpreadsheet
	case ExportZipFiles:
		return export.FormatZipFiles
	default:
		return export.FormatHTML
	}
}

// ExportOptions controls how Export resolves its target.
type ExportOptions struct {
	// Overwrite allows replacing an existing file at the target path.
	Overwrite bool
}

// Export renders the whole package to targetPath in the given format.
func (p *Package) Export(targetPath string, format ExportFormat, opts ExportOptions) error {
	fmt.Fprintf(p.extraOut, "exporting %s to %s\n", p.Path(), targetPath)
	err := export.Export(p.engine, targetPath, export.PackageScope(), format.toInternal(), export.Options{Overwrite: opts.Overwrite})
	if err != nil {
		return classifyErr("export package", err)
	}
	fmt.Fprintf(p.out, "exported %s\n", targetPath)
	return nil
}

// ExportTestCase renders a single test case to targetPath in the given
// format.
func (p *Package) ExportTestCase(id uuid.UUID, targetPath string, format ExportFormat, opts ExportOptions) error {
	fmt.Fprintf(p.extraOut, "exporting test case %s to %s\n", id, targetPath)
	err := export.Export(p.engine, targetPath, export.TestCaseScope(id), format.toInternal(), export.Options{Overwrite: opts.Overwrite})
	if err != nil {
		return classifyErr("export test case", err)
	}
	fmt.Fprintf(p.out, "exported %s\n", targetPath)
	return nil
}
