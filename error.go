package evidenceangel

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/hpkns/evidenceangel/internal/angelmark"
	"github.com/hpkns/evidenceangel/internal/export"
	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/mediastore"
	"github.com/hpkns/evidenceangel/internal/pkgengine"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

// PackageError wraps an error from one of the package's internal layers
// with a stable, user-facing message, keeping the original cause
// reachable through errors.Unwrap/errors.As.
type PackageError struct {
	message string
	cause   error
}

func (e *PackageError) Error() string {
	var msg strings.Builder
	fmt.Fprint(&msg, e.message)
	if e.cause != nil {
		fmt.Fprint(&msg, ": ", e.cause)
	}
	return msg.String()
}

func (e *PackageError) Unwrap() error {
	return e.cause
}

func newPackageError(message string, cause error) *PackageError {
	return &PackageError{message: message, cause: cause}
}

// classifyErr turns an internal error into the stable error taxonomy the
// façade promises callers: sentinel types they can match with errors.As,
// regardless of which internal layer actually produced it.
func classifyErr(message string, err error) error {
	if err == nil {
		return nil
	}
	var (
		locked      *pkgengine.LockedError
		archiveErr  *pkgengine.ArchiveLayoutError
		danglingRef *pkgengine.DanglingMediaRefError
		missingTc   *pkgengine.MissingTestCaseError
		invalidMf   *manifest.InvalidError
		invalidTc   *testcase.InvalidError
		collision   *mediastore.CollisionError
		parseErr    *angelmark.ParseError
		targetExist *export.TargetExistsError
		exportFail  *export.FailedError
	)
	switch {
	case errors.As(err, &locked):
		return newPackageError(message, &LockedError{Pid: locked.Pid})
	case errors.As(err, &archiveErr):
		return newPackageError(message, &NotAnArchiveError{Reason: archiveErr.Reason})
	case errors.As(err, &danglingRef):
		return newPackageError(message, &DanglingMediaRefError{SHA256: danglingRef.SHA256})
	case errors.As(err, &missingTc):
		return newPackageError(message, &InvalidTestCaseError{ID: missingTc.ID, Reason: "referenced by the manifest but missing from the archive"})
	case errors.As(err, &invalidMf):
		return newPackageError(message, manifestFailure(invalidMf.Reason))
	case errors.As(err, &invalidTc):
		return newPackageError(message, &InvalidTestCaseError{ID: invalidTc.ID, Reason: invalidTc.Reason})
	case errors.As(err, &collision):
		return newPackageError(message, &ChecksumCollisionError{SHA256: collision.SHA256})
	case errors.As(err, &parseErr):
		return newPackageError(message, &MarkupParseError{Line: parseErr.Line, Column: parseErr.Column})
	case errors.As(err, &targetExist):
		return newPackageError(message, &ExportTargetExistsError{Path: targetExist.Path})
	case errors.As(err, &exportFail):
		return newPackageError(message, &ExportFailedError{Backend: exportFail.Backend, Reason: exportFail.Reason})
	default:
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return newPackageError(message, &IoError{Cause: err})
		}
		return newPackageError(message, err)
	}
}

// manifestFailure recovers the more specific §7 error kinds that a
// manifest.InvalidError's reason string can represent, falling back to
// the general InvalidManifestError when none match.
func manifestFailure(reason string) error {
	switch {
	case strings.Contains(reason, "exceeds 30 characters"):
		return &NameTooLongError{Limit: 30}
	case strings.Contains(reason, "must not be empty") && strings.Contains(reason, "title"):
		return &NameEmptyError{}
	case strings.Contains(reason, "more than one custom field is marked primary"):
		return &DuplicatePrimaryFieldError{}
	default:
		return &InvalidManifestError{Reason: reason}
	}
}
