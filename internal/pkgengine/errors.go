package pkgengine

import (
	"fmt"

	"github.com/google/uuid"
)

// DanglingMediaRefError reports that a piece of evidence points at media
// that the package's media index has no entry for.
type DanglingMediaRefError struct {
	SHA256 string
}

func (e *DanglingMediaRefError) Error() string {
	return fmt.Sprintf("evidence references media %s which is not present in the package", e.SHA256)
}

// MissingTestCaseError reports that the manifest references a test case
// whose testcases/<id>.json file does not exist in the archive. §4.3
// requires these to be fatal on load, unlike the reverse case (an
// unreferenced testcases/*.json file on disk, which is merely ignored).
type MissingTestCaseError struct {
	ID uuid.UUID
}

func (e *MissingTestCaseError) Error() string {
	return fmt.Sprintf("manifest references test case %s but its file is missing from the package", e.ID)
}

// ArchiveLayoutError reports that the ZIP archive itself is not a valid
// evidence package container (unreadable as a ZIP, or an entry that
// cannot be read), distinct from a missing or invalid manifest.json,
// which is reported as a *manifest.InvalidError.
type ArchiveLayoutError struct {
	Reason string
}

func (e *ArchiveLayoutError) Error() string {
	return "invalid evidence package archive: " + e.Reason
}
