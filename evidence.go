package evidenceangel

import (
	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/testcase"
)

// EvidenceKind identifies what form a piece of evidence's content takes.
type EvidenceKind = testcase.Kind

const (
	EvidenceText     = testcase.KindText
	EvidenceRichText = testcase.KindRichText
	EvidenceImage    = testcase.KindImage
	EvidenceFile     = testcase.KindFile
	EvidenceHttp     = testcase.KindHttp
)

// Evidence is one entry in a test case's evidence log.
//
// Text and RichText evidence carry their content directly in Text.
// Image and File evidence are resolved to raw bytes already: callers
// never have to chase a media reference themselves. Http evidence
// carries its two halves in Request/Response.
type Evidence struct {
	Kind             EvidenceKind
	Caption          string
	OriginalFilename string // set only for EvidenceFile
	MimeType         string // set for Image and File

	Text            string // Text, RichText
	Data            []byte // Image, File
	Request         []byte // Http
	Response        []byte // Http
}

func fromInternalEvidence(ev testcase.Evidence) Evidence {
	out := Evidence{
		Kind:             ev.Kind,
		Caption:          ev.Caption,
		OriginalFilename: ev.OriginalFilename,
	}
	switch ev.Kind {
	case testcase.KindText, testcase.KindRichText:
		out.Text = ev.Value.Text
	case testcase.KindHttp:
		request, response, err := testcase.DecodeHttp(payloadBytes(ev.Value))
		if err == nil {
			out.Request = request
			out.Response = response
		}
	default:
		out.Data = payloadBytes(ev.Value)
	}
	return out
}

// payloadBytes extracts the raw bytes carried by a non-media Data value.
// Media-form values are resolved by the caller, which has access to the
// engine's media store; this helper only handles the two inline forms.
func payloadBytes(d testcase.Data) []byte {
	if d.Form == testcase.FormBase64 {
		return d.Bytes
	}
	return []byte(d.Text)
}

// resolveEvidence is fromInternalEvidence plus media resolution, used
// wherever a Package has engine access to chase media: references.
func (p *Package) resolveEvidence(ev testcase.Evidence) (Evidence, error) {
	if ev.Value.Form != testcase.FormMedia {
		return fromInternalEvidence(ev), nil
	}
	mimeType, data, err := p.engine.GetMedia(ev.Value.Text)
	if err != nil {
		return Evidence{}, classifyErr("resolve evidence", err)
	}
	out := Evidence{
		Kind:             ev.Kind,
		Caption:          ev.Caption,
		OriginalFilename: ev.OriginalFilename,
		MimeType:         mimeType,
		Data:             data,
	}
	return out, nil
}

// Evidence returns the resolved evidence log for a test case, with any
// media: references already chased down to their bytes.
func (p *Package) Evidence(caseID uuid.UUID) ([]Evidence, error) {
	tc, ok := p.engine.TestCase(caseID)
	if !ok {
		return nil, classifyErr("evidence", &testcase.InvalidError{ID: caseID, Reason: "not found"})
	}
	out := make([]Evidence, 0, len(tc.Evidence))
	for _, ev := range tc.Evidence {
		resolved, err := p.resolveEvidence(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// AddTextEvidence appends plain-text evidence to a test case.
func (p *Package) AddTextEvidence(caseID uuid.UUID, text string, caption string) (int, error) {
	index, err := p.engine.InsertEvidence(caseID, testcase.Evidence{
		Kind:    testcase.KindText,
		Value:   testcase.PlainData(text),
		Caption: caption,
	})
	if err != nil {
		return -1, classifyErr("add text evidence", err)
	}
	return index, nil
}

// AddRichTextEvidence appends AngelMark-formatted evidence to a test
// case. Malformed markup is accepted here and only ever surfaces as a
// literal-source fallback at export time, matching the parser's own
// never-panic contract.
func (p *Package) AddRichTextEvidence(caseID uuid.UUID, source string, caption string) (int, error) {
	index, err := p.engine.InsertEvidence(caseID, testcase.Evidence{
		Kind:    testcase.KindRichText,
		Value:   testcase.PlainData(source),
		Caption: caption,
	})
	if err != nil {
		return -1, classifyErr("add rich text evidence", err)
	}
	return index, nil
}

// AddImageEvidence appends image evidence, routing data through the
// package's media store.
func (p *Package) AddImageEvidence(caseID uuid.UUID, data []byte, mimeType string, caption string) (int, error) {
	index, err := p.engine.InsertImageEvidence(caseID, data, mimeType, caption)
	if err != nil {
		return -1, classifyErr("add image evidence", err)
	}
	return index, nil
}

// AddFileEvidence appends attached-file evidence, routing data through
// the package's media store.
func (p *Package) AddFileEvidence(caseID uuid.UUID, data []byte, mimeType string, originalFilename string, caption string) (int, error) {
	index, err := p.engine.InsertFileEvidence(caseID, data, mimeType, originalFilename, caption)
	if err != nil {
		return -1, classifyErr("add file evidence", err)
	}
	return index, nil
}

// AddHttpEvidence appends a request/response pair as Http evidence.
func (p *Package) AddHttpEvidence(caseID uuid.UUID, request, response []byte, caption string) (int, error) {
	index, err := p.engine.InsertEvidence(caseID, testcase.Evidence{
		Kind:    testcase.KindHttp,
		Value:   testcase.Base64Data(testcase.EncodeHttp(request, response)),
		Caption: caption,
	})
	if err != nil {
		return -1, classifyErr("add http evidence", err)
	}
	return index, nil
}

// MoveEvidence swaps the evidence at index with its neighbour in the
// given direction.
func (p *Package) MoveEvidence(caseID uuid.UUID, index int, towardsEnd bool) error {
	if err := p.engine.MoveEvidence(caseID, index, towardsEnd); err != nil {
		return classifyErr("move evidence", err)
	}
	return nil
}

// RemoveEvidence deletes the evidence at index from a test case.
func (p *Package) RemoveEvidence(caseID uuid.UUID, index int) error {
	if err := p.engine.RemoveEvidence(caseID, index); err != nil {
		return classifyErr("remove evidence", err)
	}
	return nil
}

// SetEvidenceCaption replaces the caption on the evidence at index. An
// empty caption clears it.
func (p *Package) SetEvidenceCaption(caseID uuid.UUID, index int, caption string) error {
	if err := p.engine.SetEvidenceCaption(caseID, index, caption); err != nil {
		return classifyErr("set evidence caption", err)
	}
	return nil
}
