package pkgengine

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

// TestCaseIDs returns the package's test-case identifiers in manifest
// order.
func (e *Engine) TestCaseIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.manifest.TestCases))
	for _, ref := range e.manifest.TestCases {
		ids = append(ids, ref.ID)
	}
	return ids
}

// TestCase returns a copy of the test case identified by id.
func (e *Engine) TestCase(id uuid.UUID) (testcase.Case, bool) {
	tc, ok := e.cases[id]
	return tc, ok
}

// PutTestCase writes back a modified copy of a test case previously
// obtained from TestCase or CreateTestCase, validating it against the
// package's declared custom fields before accepting it.
func (e *Engine) PutTestCase(tc testcase.Case) error {
	if _, ok := e.cases[tc.ID]; !ok {
		return fmt.Errorf("pkgengine: no test case %s in this package", tc.ID)
	}
	known := func(id string) bool {
		_, ok := e.manifest.CustomTestCaseMetadata.Get(id)
		return ok
	}
	if err := testcase.Validate(tc, known); err != nil {
		return err
	}
	e.cases[tc.ID] = tc
	e.markDirty()
	return nil
}

// CreateTestCase appends a new, empty test case with the given title and
// execution time, per §3's lifecycle: packages only ever gain test cases
// through append or duplication, never a bare insert at an arbitrary
// index.
func (e *Engine) CreateTestCase(title string, executedAt time.Time) (testcase.Case, error) {
	return e.createTestCaseAt(title, executedAt, len(e.manifest.TestCases))
}

func (e *Engine) createTestCaseAt(title string, executedAt time.Time, index int) (testcase.Case, error) {
	tc := testcase.Case{
		ID: uuid.New(),
		Metadata: testcase.Metadata{
			Title:             title,
			ExecutionDatetime: executedAt,
			Custom:            map[string]string{},
		},
	}
	if err := testcase.Validate(tc, nil); err != nil {
		return testcase.Case{}, err
	}

	refs := e.manifest.TestCases
	if index < 0 || index > len(refs) {
		index = len(refs)
	}
	refs = append(refs, manifest.TestCaseRef{})
	copy(refs[index+1:], refs[index:])
	refs[index] = manifest.TestCaseRef{ID: tc.ID}
	e.manifest.TestCases = refs

	e.cases[tc.ID] = tc
	e.caseExtras[tc.ID] = jsonextra.Bag{}
	e.markDirty()
	return tc, nil
}

// DuplicateTestCase deep-clones an existing test case's metadata and
// evidence under a freshly generated UUID, appending " copy" to its
// title (truncated to 30 characters), and inserts it immediately after the source in manifest order.
func (e *Engine) DuplicateTestCase(id uuid.UUID) (testcase.Case, error) {
	source, ok := e.cases[id]
	if !ok {
		return testcase.Case{}, fmt.Errorf("pkgengine: no test case %s in this package", id)
	}

	clone := testcase.Case{
		ID: uuid.New(),
		Metadata: testcase.Metadata{
			Title:             cloneTitle(source.Metadata.Title),
			ExecutionDatetime: source.Metadata.ExecutionDatetime,
			Passed:            source.Metadata.Passed,
			Custom:            cloneStringMap(source.Metadata.Custom),
		},
		Evidence: cloneEvidence(source.Evidence),
	}

	sourceIndex := -1
	for i, ref := range e.manifest.TestCases {
		if ref.ID == id {
			sourceIndex = i
			break
		}
	}
	refs := e.manifest.TestCases
	insertAt := len(refs)
	if sourceIndex != -1 {
		insertAt = sourceIndex + 1
	}
	refs = append(refs, manifest.TestCaseRef{})
	copy(refs[insertAt+1:], refs[insertAt:])
	refs[insertAt] = manifest.TestCaseRef{ID: clone.ID}
	e.manifest.TestCases = refs

	e.cases[clone.ID] = clone
	e.caseExtras[clone.ID] = jsonextra.Bag{}
	e.markDirty()
	return clone, nil
}

// DeleteTestCase removes a test case and its manifest reference. It
// reports whether a test case was removed. Any media the deleted test
// case referenced exclusively is reclaimed on the next Save, not
// immediately.
func (e *Engine) DeleteTestCase(id uuid.UUID) bool {
	if _, ok := e.cases[id]; !ok {
		return false
	}
	delete(e.cases, id)
	delete(e.caseExtras, id)
	refs := e.manifest.TestCases
	for i, ref := range refs {
		if ref.ID == id {
			e.manifest.TestCases = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	e.markDirty()
	return true
}

// SetTestCaseOrder reorders the package's test cases. newOrder must be a
// permutation of the package's existing test-case IDs.
func (e *Engine) SetTestCaseOrder(newOrder []uuid.UUID) error {
	if len(newOrder) != len(e.manifest.TestCases) {
		return fmt.Errorf("pkgengine: new order has %d entries, package has %d test cases", len(newOrder), len(e.manifest.TestCases))
	}
	seen := make(map[uuid.UUID]bool, len(newOrder))
	for _, id := range newOrder {
		if _, ok := e.cases[id]; !ok {
			return fmt.Errorf("pkgengine: %s is not a test case in this package", id)
		}
		if seen[id] {
			return fmt.Errorf("pkgengine: %s appears more than once in the new order", id)
		}
		seen[id] = true
	}
	refs := make([]manifest.TestCaseRef, len(newOrder))
	for i, id := range newOrder {
		refs[i] = manifest.TestCaseRef{ID: id}
	}
	e.manifest.TestCases = refs
	e.markDirty()
	return nil
}

// SwapAdjacentTestCases swaps the test case at index with its neighbour
// in the given direction, matching the public API's "reorder (swap
// adjacent)" contract.
func (e *Engine) SwapAdjacentTestCases(index int, towardsEnd bool) error {
	refs := e.manifest.TestCases
	neighbour := index - 1
	if towardsEnd {
		neighbour = index + 1
	}
	if index < 0 || index >= len(refs) || neighbour < 0 || neighbour >= len(refs) {
		return fmt.Errorf("pkgengine: test case index %d has no neighbour in that direction", index)
	}
	refs[index], refs[neighbour] = refs[neighbour], refs[index]
	e.markDirty()
	return nil
}

func cloneTitle(title string) string {
	suffix := " copy"
	runes := []rune(title)
	if len(runes)+utf8.RuneCountInString(suffix) > 30 {
		runes = runes[:30-utf8.RuneCountInString(suffix)]
		title = string(runes)
	}
	return title + suffix
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneEvidence(evidence []testcase.Evidence) []testcase.Evidence {
	out := make([]testcase.Evidence, len(evidence))
	copy(out, evidence)
	return out
}
