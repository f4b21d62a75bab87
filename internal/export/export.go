// Package export renders an evidence package to external formats: a
// self-contained HTML document, a spreadsheet workbook, or a ZIP archive
// of plain files. All three backends share the same traversal over the
// in-memory model and the same target-file overwrite policy.
package export

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/pkgengine"
)

// ScopeKind distinguishes exporting a whole package from exporting a
// single test case.
type ScopeKind int

const (
	ScopePackage ScopeKind = iota
	ScopeTestCase
)

// Scope selects what an export covers: the whole package, or one test
// case identified by TestCaseID.
type Scope struct {
	Kind       ScopeKind
	TestCaseID uuid.UUID
}

// PackageScope exports every test case; the HTML backend also adds a
// package metadata tab. The spreadsheet and ZIP-of-files backends add no
// metadata sheet or file.
func PackageScope() Scope {
	return Scope{Kind: ScopePackage}
}

// TestCaseScope exports a single test case.
func TestCaseScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeTestCase, TestCaseID: id}
}

// Format selects which backend renders the export.
type Format int

const (
	FormatHTML Format = iota
	FormatSpreadsheet
	FormatZipFiles
)

// TargetExistsError reports that the export destination already exists
// and the caller didn't request an overwrite.
type TargetExistsError struct {
	Path string
}

func (e *TargetExistsError) Error() string {
	return fmt.Sprintf("export target already exists: %s", e.Path)
}

// FailedError reports a backend-specific export failure.
type FailedError struct {
	Backend string
	Reason  string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("export failed (%s): %s", e.Backend, e.Reason)
}

// Options controls how Export treats an existing file at its target.
type Options struct {
	Overwrite bool
}

// resolvedTestCases returns the test case IDs an export should cover, in
// manifest order.
func resolvedTestCases(e *pkgengine.Engine, scope Scope) ([]uuid.UUID, error) {
	if scope.Kind == ScopeTestCase {
		if _, ok := e.TestCase(scope.TestCaseID); !ok {
			return nil, fmt.Errorf("export: test case %s not found", scope.TestCaseID)
		}
		return []uuid.UUID{scope.TestCaseID}, nil
	}
	return e.TestCaseIDs(), nil
}

// Export renders pkg to targetPath in the given format and scope, per
// §4.5's shared contract. The target is written atomically: to a sibling
// temp file, then renamed over targetPath on success.
func Export(pkg *pkgengine.Engine, targetPath string, scope Scope, format Format, opts Options) error {
	if !opts.Overwrite {
		if _, err := os.Stat(targetPath); err == nil {
			return &TargetExistsError{Path: targetPath}
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	ids, err := resolvedTestCases(pkg, scope)
	if err != nil {
		return err
	}

	tempPath := targetPath + ".wip"
	var renderErr error
	switch format {
	case FormatHTML:
		renderErr = exportHTML(pkg, scope, ids, tempPath)
	case FormatSpreadsheet:
		renderErr = exportSpreadsheet(pkg, scope, ids, tempPath)
	case FormatZipFiles:
		renderErr = exportZipFiles(pkg, ids, tempPath)
	default:
		renderErr = fmt.Errorf("export: unknown format %d", format)
	}
	if renderErr != nil {
		os.Remove(tempPath)
		return renderErr
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
