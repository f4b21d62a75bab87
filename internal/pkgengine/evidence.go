package pkgengine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/testcase"
)

// InsertEvidence appends a new evidence item to the named test case's
// evidence log and returns its index.
func (e *Engine) InsertEvidence(caseID uuid.UUID, ev testcase.Evidence) (int, error) {
	tc, ok := e.cases[caseID]
	if !ok {
		return -1, fmt.Errorf("pkgengine: no test case %s in this package", caseID)
	}
	hasFilename := ev.OriginalFilename != ""
	if hasFilename != (ev.Kind == testcase.KindFile) {
		return -1, &testcase.InvalidError{ID: caseID, Reason: "original_filename must be present iff kind is File"}
	}
	tc.Evidence = append(tc.Evidence, ev)
	e.cases[caseID] = tc
	e.markDirty()
	return len(tc.Evidence) - 1, nil
}

// InsertEvidenceAt inserts a new evidence item at index, shifting later
// items down, matching the public API's "insert-at" operation.
func (e *Engine) InsertEvidenceAt(caseID uuid.UUID, index int, ev testcase.Evidence) error {
	tc, ok := e.cases[caseID]
	if !ok {
		return fmt.Errorf("pkgengine: no test case %s in this package", caseID)
	}
	hasFilename := ev.OriginalFilename != ""
	if hasFilename != (ev.Kind == testcase.KindFile) {
		return &testcase.InvalidError{ID: caseID, Reason: "original_filename must be present iff kind is File"}
	}
	if index < 0 || index > len(tc.Evidence) {
		return fmt.Errorf("pkgengine: evidence index %d out of range", index)
	}
	tc.Evidence = append(tc.Evidence, testcase.Evidence{})
	copy(tc.Evidence[index+1:], tc.Evidence[index:])
	tc.Evidence[index] = ev
	e.cases[caseID] = tc
	e.markDirty()
	return nil
}

// MoveEvidence swaps the evidence at index with its neighbour in the
// given direction, per §3's "moved (swap-with-neighbour)" lifecycle rule.
func (e *Engine) MoveEvidence(caseID uuid.UUID, index int, towardsEnd bool) error {
	tc, ok := e.cases[caseID]
	if !ok {
		return fmt.Errorf("pkgengine: no test case %s in this package", caseID)
	}
	neighbour := index - 1
	if towardsEnd {
		neighbour = index + 1
	}
	if index < 0 || index >= len(tc.Evidence) || neighbour < 0 || neighbour >= len(tc.Evidence) {
		return fmt.Errorf("pkgengine: evidence index %d has no neighbour in that direction", index)
	}
	tc.Evidence[index], tc.Evidence[neighbour] = tc.Evidence[neighbour], tc.Evidence[index]
	e.cases[caseID] = tc
	e.markDirty()
	return nil
}

// RemoveEvidence deletes the evidence at index from the named test case.
func (e *Engine) RemoveEvidence(caseID uuid.UUID, index int) error {
	tc, ok := e.cases[caseID]
	if !ok {
		return fmt.Errorf("pkgengine: no test case %s in this package", caseID)
	}
	if index < 0 || index >= len(tc.Evidence) {
		return fmt.Errorf("pkgengine: evidence index %d out of range", index)
	}
	tc.Evidence = append(tc.Evidence[:index], tc.Evidence[index+1:]...)
	e.cases[caseID] = tc
	e.markDirty()
	return nil
}

// SetEvidenceCaption replaces the caption on the evidence at index. An
// empty string clears it.
func (e *Engine) SetEvidenceCaption(caseID uuid.UUID, index int, caption string) error {
	tc, ok := e.cases[caseID]
	if !ok {
		return fmt.Errorf("pkgengine: no test case %s in this package", caseID)
	}
	if index < 0 || index >= len(tc.Evidence) {
		return fmt.Errorf("pkgengine: evidence index %d out of range", index)
	}
	tc.Evidence[index].Caption = caption
	e.cases[caseID] = tc
	e.markDirty()
	return nil
}

// InsertImageEvidence routes raw image bytes through the media store and
// appends an Image evidence item referencing the resulting checksum, so
// callers never have to construct a media: reference by hand, per §4.3.
func (e *Engine) InsertImageEvidence(caseID uuid.UUID, data []byte, mimeType string, caption string) (int, error) {
	hash, err := e.AddMedia(data, mimeType)
	if err != nil {
		return -1, err
	}
	return e.InsertEvidence(caseID, testcase.Evidence{
		Kind:    testcase.KindImage,
		Value:   testcase.MediaData(hash),
		Caption: caption,
	})
}

// InsertFileEvidence is InsertImageEvidence's counterpart for attached
// files, which additionally carry the original filename §3 requires for
// File-kind evidence.
func (e *Engine) InsertFileEvidence(caseID uuid.UUID, data []byte, mimeType string, originalFilename string, caption string) (int, error) {
	hash, err := e.AddMedia(data, mimeType)
	if err != nil {
		return -1, err
	}
	return e.InsertEvidence(caseID, testcase.Evidence{
		Kind:             testcase.KindFile,
		Value:            testcase.MediaData(hash),
		Caption:          caption,
		OriginalFilename: originalFilename,
	})
}
