package evidenceangel

import (
	"time"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/testcase"
)

// Result is the tri-state verdict of a test case.
type Result int

const (
	ResultUnset Result = iota
	ResultPassed
	ResultFailed
)

func fromInternalResult(p testcase.Passed) Result {
	switch p {
	case testcase.PassedTrue:
		return ResultPassed
	case testcase.PassedFalse:
		return ResultFailed
	default:
		return ResultUnset
	}
}

func (r Result) toInternal() testcase.Passed {
	switch r {
	case ResultPassed:
		return testcase.PassedTrue
	case ResultFailed:
		return testcase.PassedFalse
	default:
		return testcase.PassedUnset
	}
}

// TestCase is a single test case's metadata and evidence log.
type TestCase struct {
	ID         uuid.UUID
	Title      string
	ExecutedAt time.Time
	Result     Result
	Custom     map[string]string
	Evidence   []Evidence
}

// fromInternalCase converts a test case's metadata and resolves its
// evidence log, chasing any media: references down to bytes.
func (p *Package) fromInternalCase(tc testcase.Case) (TestCase, error) {
	evidence := make([]Evidence, 0, len(tc.Evidence))
	for _, ev := range tc.Evidence {
		resolved, err := p.resolveEvidence(ev)
		if err != nil {
			return TestCase{}, err
		}
		evidence = append(evidence, resolved)
	}
	return TestCase{
		ID:         tc.ID,
		Title:      tc.Metadata.Title,
		ExecutedAt: tc.Metadata.ExecutionDatetime,
		Result:     fromInternalResult(tc.Metadata.Passed),
		Custom:     tc.Metadata.Custom,
		Evidence:   evidence,
	}, nil
}

// TestCaseIDs returns the package's test-case identifiers in order.
func (p *Package) TestCaseIDs() []uuid.UUID {
	return p.engine.TestCaseIDs()
}

// TestCase returns the test case identified by id, with its evidence
// log resolved.
func (p *Package) TestCase(id uuid.UUID) (TestCase, bool, error) {
	tc, ok := p.engine.TestCase(id)
	if !ok {
		return TestCase{}, false, nil
	}
	resolved, err := p.fromInternalCase(tc)
	if err != nil {
		return TestCase{}, true, err
	}
	return resolved, true, nil
}

// CreateTestCase appends a new, empty test case.
func (p *Package) CreateTestCase(title string, executedAt time.Time) (TestCase, error) {
	tc, err := p.engine.CreateTestCase(title, executedAt)
	if err != nil {
		return TestCase{}, classifyErr("create test case", err)
	}
	return p.fromInternalCase(tc)
}

// DuplicateTestCase deep-clones an existing test case, inserting the
// clone immediately after the source.
func (p *Package) DuplicateTestCase(id uuid.UUID) (TestCase, error) {
	tc, err := p.engine.DuplicateTestCase(id)
	if err != nil {
		return TestCase{}, classifyErr("duplicate test case", err)
	}
	return p.fromInternalCase(tc)
}

// DeleteTestCase removes a test case. It reports whether one was
// removed.
func (p *Package) DeleteTestCase(id uuid.UUID) bool {
	return p.engine.DeleteTestCase(id)
}

// ReorderTestCase swaps the test case at index with its neighbour in the
// given direction.
func (p *Package) ReorderTestCase(index int, towardsEnd bool) error {
	if err := p.engine.SwapAdjacentTestCases(index, towardsEnd); err != nil {
		return classifyErr("reorder test case", err)
	}
	return nil
}

// SetTestCaseTitle renames a test case.
func (p *Package) SetTestCaseTitle(id uuid.UUID, title string) error {
	tc, ok := p.engine.TestCase(id)
	if !ok {
		return classifyErr("set test case title", &testcase.InvalidError{ID: id, Reason: "not found"})
	}
	tc.Metadata.Title = title
	if err := p.engine.PutTestCase(tc); err != nil {
		return classifyErr("set test case title", err)
	}
	return nil
}

// SetTestCaseResult records a test case's pass/fail verdict.
func (p *Package) SetTestCaseResult(id uuid.UUID, result Result) error {
	tc, ok := p.engine.TestCase(id)
	if !ok {
		return classifyErr("set test case result", &testcase.InvalidError{ID: id, Reason: "not found"})
	}
	tc.Metadata.Passed = result.toInternal()
	if err := p.engine.PutTestCase(tc); err != nil {
		return classifyErr("set test case result", err)
	}
	return nil
}

// SetTestCaseCustomField sets a declared custom field's value for a test
// case. An empty value clears it.
func (p *Package) SetTestCaseCustomField(id uuid.UUID, fieldID string, value string) error {
	tc, ok := p.engine.TestCase(id)
	if !ok {
		return classifyErr("set custom field", &testcase.InvalidError{ID: id, Reason: "not found"})
	}
	custom := make(map[string]string, len(tc.Metadata.Custom)+1)
	for k, v := range tc.Metadata.Custom {
		custom[k] = v
	}
	if value == "" {
		delete(custom, fieldID)
	} else {
		custom[fieldID] = value
	}
	tc.Metadata.Custom = custom
	if err := p.engine.PutTestCase(tc); err != nil {
		return classifyErr("set custom field", err)
	}
	return nil
}
