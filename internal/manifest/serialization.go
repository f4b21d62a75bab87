package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
)

// InvalidError reports that a manifest failed schema validation, either on
// load or just before save.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid manifest: %s", e.Reason)
}

type jsonAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type jsonCustomField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
}

type jsonMediaEntry struct {
	SHA256   string `json:"sha256_checksum"`
	MimeType string `json:"mime_type"`
}

type jsonTestCaseRef struct {
	ID uuid.UUID `json:"id"`
}

// UnmarshalJSON accepts the current "id" key and, for manifests written
// before it was introduced, falls back to the legacy "name" key holding
// the same UUID. Save always writes "id".
func (r *jsonTestCaseRef) UnmarshalJSON(data []byte) error {
	var current struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(data, &current); err == nil && current.ID != uuid.Nil {
		r.ID = current.ID
		return nil
	}
	var legacy struct {
		Name uuid.UUID `json:"name"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	r.ID = legacy.Name
	return nil
}

type jsonMetadata struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Authors     []jsonAuthor `json:"authors"`
}

type jsonDocument struct {
	Schema                 string                     `json:"$schema,omitempty"`
	Metadata               json.RawMessage            `json:"metadata"`
	CustomTestCaseMetadata map[string]json.RawMessage `json:"custom_test_case_metadata"`
	Media                  []jsonMediaEntry           `json:"media"`
	TestCases              []jsonTestCaseRef          `json:"test_cases"`
}

// Marshal encodes a manifest as canonical UTF-8 JSON: known fields in their
// schema-declared order, 2-space indentation, then any fields the loading
// call left unclaimed, in their originally observed order.
func Marshal(doc Document, extras jsonextra.Bag) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	metadataKnown, err := json.Marshal(jsonMetadata{
		Title:       doc.Metadata.Title,
		Description: doc.Metadata.Description,
		Authors:     authorsToJSON(doc.Metadata.Authors),
	})
	if err != nil {
		return nil, err
	}
	metadataEncoded, err := doc.Metadata.Extras.Extend(metadataKnown)
	if err != nil {
		return nil, err
	}

	customFields := doc.CustomTestCaseMetadata.Ordered()
	customEncoded := make(map[string]json.RawMessage, len(customFields))
	for _, field := range customFields {
		fieldKnown, err := json.Marshal(jsonCustomField{
			Name:        field.Name,
			Description: field.Description,
			Primary:     field.Primary,
		})
		if err != nil {
			return nil, err
		}
		fieldEncoded, err := field.Extras.Extend(fieldKnown)
		if err != nil {
			return nil, err
		}
		customEncoded[field.ID] = fieldEncoded
	}

	jd := jsonDocument{
		Schema:                 doc.Schema,
		Metadata:               metadataEncoded,
		CustomTestCaseMetadata: customEncoded,
		Media:                  make([]jsonMediaEntry, 0, len(doc.Media)),
		TestCases:              make([]jsonTestCaseRef, 0, len(doc.TestCases)),
	}
	for _, m := range doc.Media {
		jd.Media = append(jd.Media, jsonMediaEntry{SHA256: m.SHA256, MimeType: m.MimeType})
	}
	for _, tc := range doc.TestCases {
		jd.TestCases = append(jd.TestCases, jsonTestCaseRef{ID: tc.ID})
	}

	encoded, err := json.Marshal(jd)
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

func authorsToJSON(authors []Author) []jsonAuthor {
	out := make([]jsonAuthor, 0, len(authors))
	for _, author := range authors {
		out = append(out, jsonAuthor{Name: author.Name, Email: author.Email})
	}
	return out
}

// Unmarshal decodes a manifest, returning both the typed model and the
// bag of unrecognized top-level members so the caller can carry them
// forward to the next Marshal call unchanged.
func Unmarshal(data []byte) (Document, jsonextra.Bag, error) {
	obj, err := jsonextra.Decode(data)
	if err != nil {
		return Document{}, jsonextra.Bag{}, &InvalidError{Reason: err.Error()}
	}

	var jd jsonDocument
	if raw, ok := obj.Take("$schema"); ok {
		if err := json.Unmarshal(raw, &jd.Schema); err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "$schema: " + err.Error()}
		}
	}
	rawMetadata, ok := obj.Take("metadata")
	if !ok {
		return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "missing \"metadata\""}
	}
	metadataObj, err := jsonextra.Decode(rawMetadata)
	if err != nil {
		return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "metadata: " + err.Error()}
	}
	var jm jsonMetadata
	if raw, ok := metadataObj.Take("title"); ok {
		if err := json.Unmarshal(raw, &jm.Title); err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "metadata.title: " + err.Error()}
		}
	}
	if raw, ok := metadataObj.Take("description"); ok {
		if err := json.Unmarshal(raw, &jm.Description); err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "metadata.description: " + err.Error()}
		}
	}
	if raw, ok := metadataObj.Take("authors"); ok {
		if err := json.Unmarshal(raw, &jm.Authors); err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "metadata.authors: " + err.Error()}
		}
	}
	metadataExtras := metadataObj.Remaining()

	var customFieldOrder []string
	customFieldExtras := map[string]jsonextra.Bag{}
	customFieldsByID := map[string]jsonCustomField{}
	if rawCustom, ok := obj.Take("custom_test_case_metadata"); ok {
		customObj, err := jsonextra.Decode(rawCustom)
		if err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "custom_test_case_metadata: " + err.Error()}
		}
		entries := customObj.Remaining().Entries()
		for _, entry := range entries {
			fieldObj, err := jsonextra.Decode(entry.Value)
			if err != nil {
				return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "custom_test_case_metadata." + entry.Key + ": " + err.Error()}
			}
			var field jsonCustomField
			if raw, ok := fieldObj.Take("name"); ok {
				if err := json.Unmarshal(raw, &field.Name); err != nil {
					return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "custom_test_case_metadata." + entry.Key + ".name: " + err.Error()}
				}
			}
			if raw, ok := fieldObj.Take("description"); ok {
				if err := json.Unmarshal(raw, &field.Description); err != nil {
					return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "custom_test_case_metadata." + entry.Key + ".description: " + err.Error()}
				}
			}
			if raw, ok := fieldObj.Take("primary"); ok {
				if err := json.Unmarshal(raw, &field.Primary); err != nil {
					return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "custom_test_case_metadata." + entry.Key + ".primary: " + err.Error()}
				}
			}
			customFieldsByID[entry.Key] = field
			customFieldExtras[entry.Key] = fieldObj.Remaining()
			customFieldOrder = append(customFieldOrder, entry.Key)
		}
	}
	if rawMedia, ok := obj.Take("media"); ok {
		if err := json.Unmarshal(rawMedia, &jd.Media); err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "media: " + err.Error()}
		}
	}
	if rawCases, ok := obj.Take("test_cases"); ok {
		if err := json.Unmarshal(rawCases, &jd.TestCases); err != nil {
			return Document{}, jsonextra.Bag{}, &InvalidError{Reason: "test_cases: " + err.Error()}
		}
	}

	doc := Document{
		Schema: jd.Schema,
		Metadata: Metadata{
			Title:       jm.Title,
			Description: jm.Description,
			Extras:      metadataExtras,
		},
		CustomTestCaseMetadata: NewCustomFieldSet(),
	}
	for _, a := range jm.Authors {
		doc.Metadata.Authors = append(doc.Metadata.Authors, Author{Name: a.Name, Email: a.Email})
	}
	for _, id := range customFieldOrder {
		f := customFieldsByID[id]
		doc.CustomTestCaseMetadata.Put(CustomMetadataField{
			ID:          id,
			Name:        f.Name,
			Description: f.Description,
			Primary:     f.Primary,
			Extras:      customFieldExtras[id],
		})
	}
	for _, m := range jd.Media {
		doc.Media = append(doc.Media, MediaEntry{SHA256: m.SHA256, MimeType: m.MimeType})
	}
	for _, tc := range jd.TestCases {
		doc.TestCases = append(doc.TestCases, TestCaseRef{ID: tc.ID})
	}

	if err := Validate(doc); err != nil {
		return Document{}, jsonextra.Bag{}, err
	}
	return doc, obj.Remaining(), nil
}

// Validate checks the invariants §3 places on a manifest: title length,
// at-most-one primary custom field, and well-formed media checksums.
func Validate(doc Document) error {
	if doc.Metadata.Title == "" {
		return &InvalidError{Reason: "title must not be empty"}
	}
	if utf8.RuneCountInString(doc.Metadata.Title) > 30 {
		return &InvalidError{Reason: "title exceeds 30 characters"}
	}
	for _, author := range doc.Metadata.Authors {
		if author.Name == "" {
			return &InvalidError{Reason: "author name must not be empty"}
		}
	}
	if doc.CustomTestCaseMetadata.CountPrimary() > 1 {
		return &InvalidError{Reason: "more than one custom field is marked primary"}
	}
	for _, field := range doc.CustomTestCaseMetadata.Ordered() {
		if field.ID == "" {
			return &InvalidError{Reason: "custom field id must not be empty"}
		}
	}
	for _, m := range doc.Media {
		if len(m.SHA256) != 64 || strings.Trim(m.SHA256, "0123456789abcdef") != "" {
			return &InvalidError{Reason: fmt.Sprintf("media checksum %q is not 64 lowercase hex characters", m.SHA256)}
		}
	}
	return nil
}
