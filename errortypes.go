package evidenceangel

import (
	"fmt"

	"github.com/google/uuid"
)

// IoError wraps an underlying filesystem error: a failure opening,
// reading, or writing a package's file that has nothing to do with the
// evidence package format itself.
type IoError struct {
	Cause error
}

func (e *IoError) Error() string { return fmt.Sprintf("io error: %s", e.Cause) }
func (e *IoError) Unwrap() error { return e.Cause }

// NotAnArchiveError reports that a target file is not a readable ZIP.
type NotAnArchiveError struct {
	Reason string
}

func (e *NotAnArchiveError) Error() string {
	return fmt.Sprintf("not an evidence archive: %s", e.Reason)
}

// InvalidManifestError reports that manifest.json is missing, malformed,
// or schema-invalid.
type InvalidManifestError struct {
	Reason string
}

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid manifest: %s", e.Reason)
}

// InvalidTestCaseError reports that a test case document is missing or
// invalid.
type InvalidTestCaseError struct {
	ID     uuid.UUID
	Reason string
}

func (e *InvalidTestCaseError) Error() string {
	return fmt.Sprintf("invalid test case %s: %s", e.ID, e.Reason)
}

// DanglingMediaRefError reports that evidence references media not
// present in the package.
type DanglingMediaRefError struct {
	SHA256 string
}

func (e *DanglingMediaRefError) Error() string {
	return fmt.Sprintf("dangling media reference: %s", e.SHA256)
}

// ChecksumCollisionError reports that two distinct payloads hashed to the
// same SHA-256, which the media store treats as corruption rather than
// coincidence.
type ChecksumCollisionError struct {
	SHA256 string
}

func (e *ChecksumCollisionError) Error() string {
	return fmt.Sprintf("checksum collision at %s", e.SHA256)
}

// LockedError reports that a package's lock file was already present on
// open.
type LockedError struct {
	Pid int
}

func (e *LockedError) Error() string {
	if e.Pid == 0 {
		return "evidence package is locked by another process"
	}
	return fmt.Sprintf("evidence package is locked by process %d", e.Pid)
}

// NameTooLongError reports a title exceeding the 30-character limit.
type NameTooLongError struct {
	Limit int
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("name exceeds %d characters", e.Limit)
}

// NameEmptyError reports a title or author name that's empty when one is
// required.
type NameEmptyError struct{}

func (e *NameEmptyError) Error() string { return "name must not be empty" }

// DuplicatePrimaryFieldError reports more than one custom field marked
// primary.
type DuplicatePrimaryFieldError struct{}

func (e *DuplicatePrimaryFieldError) Error() string {
	return "more than one custom field is marked primary"
}

// MarkupParseError reports that AngelMark input was rejected at the given
// source position.
type MarkupParseError struct {
	Line   int
	Column int
}

func (e *MarkupParseError) Error() string {
	return fmt.Sprintf("markup parse error at %d:%d", e.Line, e.Column)
}

// ExportTargetExistsError reports that an export destination already
// exists without overwrite consent.
type ExportTargetExistsError struct {
	Path string
}

func (e *ExportTargetExistsError) Error() string {
	return fmt.Sprintf("export target already exists: %s", e.Path)
}

// ExportFailedError reports a backend-specific export failure.
type ExportFailedError struct {
	Backend string
	Reason  string
}

func (e *ExportFailedError) Error() string {
	return fmt.Sprintf("export failed (%s): %s", e.Backend, e.Reason)
}
