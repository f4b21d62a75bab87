package testcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
)

// CurrentSchema is stamped into every testcases/<uuid>.json document on
// save. Unlike manifest.CurrentSchema, a $schema value read on load is not
// kept: a saved test case always carries this one.
const CurrentSchema = "https://evidenceangel-schemas.hpkns.uk/testcase.2.schema.json"

// InvalidError reports that a test-case document failed schema validation,
// either on load or just before save.
type InvalidError struct {
	ID     uuid.UUID
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid test case %s: %s", e.ID, e.Reason)
}

type jsonPassed struct {
	valid bool
	value bool
}

func (p jsonPassed) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.value)
}

func (p *jsonPassed) UnmarshalJSON(raw []byte) error {
	if string(raw) == "null" {
		*p = jsonPassed{}
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return err
	}
	*p = jsonPassed{valid: true, value: b}
	return nil
}

func passedToJSON(p Passed) jsonPassed {
	switch p {
	case PassedTrue:
		return jsonPassed{valid: true, value: true}
	case PassedFalse:
		return jsonPassed{valid: true, value: false}
	default:
		return jsonPassed{}
	}
}

func passedFromJSON(p jsonPassed) Passed {
	if !p.valid {
		return PassedUnset
	}
	if p.value {
		return PassedTrue
	}
	return PassedFalse
}

type jsonMetadata struct {
	Title             string            `json:"title"`
	ExecutionDatetime time.Time         `json:"execution_datetime"`
	Passed            jsonPassed        `json:"passed"`
	Custom            map[string]string `json:"custom"`
}

type jsonEvidence struct {
	Kind             Kind   `json:"kind"`
	Value            Data   `json:"value"`
	Caption          string `json:"caption,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
}

type jsonCase struct {
	Schema   string            `json:"$schema,omitempty"`
	Metadata json.RawMessage   `json:"metadata"`
	Evidence []json.RawMessage `json:"evidence"`
}

// Marshal encodes a test case as canonical UTF-8 JSON, following the same
// schema-order-then-extras convention as manifest.Marshal.
func Marshal(schema string, c Case, extras jsonextra.Bag) ([]byte, error) {
	if err := Validate(c, nil); err != nil {
		return nil, err
	}

	custom := c.Metadata.Custom
	if custom == nil {
		custom = map[string]string{}
	}
	metadataKnown, err := json.Marshal(jsonMetadata{
		Title:             c.Metadata.Title,
		ExecutionDatetime: c.Metadata.ExecutionDatetime,
		Passed:            passedToJSON(c.Metadata.Passed),
		Custom:            custom,
	})
	if err != nil {
		return nil, err
	}
	metadataEncoded, err := c.Metadata.Extras.Extend(metadataKnown)
	if err != nil {
		return nil, err
	}

	jc := jsonCase{
		Schema:   schema,
		Metadata: metadataEncoded,
		Evidence: make([]json.RawMessage, 0, len(c.Evidence)),
	}
	for _, e := range c.Evidence {
		evidenceKnown, err := json.Marshal(jsonEvidence{
			Kind:             e.Kind,
			Value:            e.Value,
			Caption:          e.Caption,
			OriginalFilename: e.OriginalFilename,
		})
		if err != nil {
			return nil, err
		}
		evidenceEncoded, err := e.Extras.Extend(evidenceKnown)
		if err != nil {
			return nil, err
		}
		jc.Evidence = append(jc.Evidence, evidenceEncoded)
	}

	encoded, err := json.Marshal(jc)
	if err != nil {
		return nil, err
	}
	extended, err := extras.Extend(encoded)
	if err != nil {
		return nil, err
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, extended, "", "  "); err != nil {
		return nil, err
	}
	return indented.Bytes(), nil
}

// Unmarshal decodes a test case document, returning the typed model, its
// ID (taken from the filename by the caller, not from the document body),
// and the bag of unrecognized top-level members to carry forward.
func Unmarshal(id uuid.UUID, data []byte, knownCustomFields func(string) bool) (Case, jsonextra.Bag, error) {
	obj, err := jsonextra.Decode(data)
	if err != nil {
		return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: err.Error()}
	}

	var jc jsonCase
	if raw, ok := obj.Take("$schema"); ok {
		if err := json.Unmarshal(raw, &jc.Schema); err != nil {
			return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "$schema: " + err.Error()}
		}
	}
	rawMetadata, ok := obj.Take("metadata")
	if !ok {
		return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "missing \"metadata\""}
	}
	metadataObj, err := jsonextra.Decode(rawMetadata)
	if err != nil {
		return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "metadata: " + err.Error()}
	}
	var jm jsonMetadata
	if raw, ok := metadataObj.Take("title"); ok {
		if err := json.Unmarshal(raw, &jm.Title); err != nil {
			return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "metadata.title: " + err.Error()}
		}
	}
	if raw, ok := metadataObj.Take("execution_datetime"); ok {
		if err := json.Unmarshal(raw, &jm.ExecutionDatetime); err != nil {
			return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "metadata.execution_datetime: " + err.Error()}
		}
	}
	if raw, ok := metadataObj.Take("passed"); ok {
		if err := json.Unmarshal(raw, &jm.Passed); err != nil {
			return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "metadata.passed: " + err.Error()}
		}
	}
	if raw, ok := metadataObj.Take("custom"); ok {
		if err := json.Unmarshal(raw, &jm.Custom); err != nil {
			return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "metadata.custom: " + err.Error()}
		}
	}
	metadataExtras := metadataObj.Remaining()

	rawEvidence, ok := obj.Take("evidence")
	if !ok {
		return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "missing \"evidence\""}
	}
	var rawEvidenceEntries []json.RawMessage
	if err := json.Unmarshal(rawEvidence, &rawEvidenceEntries); err != nil {
		return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: "evidence: " + err.Error()}
	}
	jc.Evidence = rawEvidenceEntries

	c := Case{
		ID: id,
		Metadata: Metadata{
			Title:             jm.Title,
			ExecutionDatetime: jm.ExecutionDatetime,
			Passed:            passedFromJSON(jm.Passed),
			Custom:            jm.Custom,
			Extras:            metadataExtras,
		},
	}
	for i, raw := range jc.Evidence {
		entryObj, err := jsonextra.Decode(raw)
		if err != nil {
			return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: fmt.Sprintf("evidence[%d]: %s", i, err.Error())}
		}
		var e jsonEvidence
		if r, ok := entryObj.Take("kind"); ok {
			if err := json.Unmarshal(r, &e.Kind); err != nil {
				return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: fmt.Sprintf("evidence[%d].kind: %s", i, err.Error())}
			}
		}
		if r, ok := entryObj.Take("value"); ok {
			if err := json.Unmarshal(r, &e.Value); err != nil {
				return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: fmt.Sprintf("evidence[%d].value: %s", i, err.Error())}
			}
		}
		if r, ok := entryObj.Take("caption"); ok {
			if err := json.Unmarshal(r, &e.Caption); err != nil {
				return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: fmt.Sprintf("evidence[%d].caption: %s", i, err.Error())}
			}
		}
		if r, ok := entryObj.Take("original_filename"); ok {
			if err := json.Unmarshal(r, &e.OriginalFilename); err != nil {
				return Case{}, jsonextra.Bag{}, &InvalidError{ID: id, Reason: fmt.Sprintf("evidence[%d].original_filename: %s", i, err.Error())}
			}
		}
		c.Evidence = append(c.Evidence, Evidence{
			Kind:             e.Kind,
			Value:            e.Value,
			Caption:          e.Caption,
			OriginalFilename: e.OriginalFilename,
			Extras:           entryObj.Remaining(),
		})
	}

	if err := Validate(c, knownCustomFields); err != nil {
		return Case{}, jsonextra.Bag{}, err
	}
	return c, obj.Remaining(), nil
}

// Validate checks the invariants §3 places on a test case: title length,
// the custom field vocabulary, and the File-kind/original_filename pairing.
// knownCustomFields may be nil, in which case custom field membership is
// not checked (used when validating a model not yet attached to a
// package's declared fields).
func Validate(c Case, knownCustomFields func(string) bool) error {
	if c.Metadata.Title == "" {
		return &InvalidError{ID: c.ID, Reason: "title must not be empty"}
	}
	if utf8.RuneCountInString(c.Metadata.Title) > 30 {
		return &InvalidError{ID: c.ID, Reason: "title exceeds 30 characters"}
	}
	if knownCustomFields != nil {
		for key := range c.Metadata.Custom {
			if !knownCustomFields(key) {
				return &InvalidError{ID: c.ID, Reason: fmt.Sprintf("custom field %q is not declared by the package", key)}
			}
		}
	}
	for i, e := range c.Evidence {
		hasFilename := e.OriginalFilename != ""
		if hasFilename != (e.Kind == KindFile) {
			return &InvalidError{ID: c.ID, Reason: fmt.Sprintf("evidence[%d]: original_filename must be present iff kind is File", i)}
		}
	}
	return nil
}
