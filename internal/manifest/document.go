package manifest

import "github.com/google/uuid"

// CurrentSchema is stamped into manifests this package creates fresh. It is
// never forced onto a manifest loaded with a different (or absent)
// $schema: the loaded value is written back unchanged on every save.
const CurrentSchema = "https://evidenceangel-schemas.hpkns.uk/manifest.2.schema.json"

// TestCaseRef is a manifest-level pointer to a test case stored at
// testcases/<id>.json. The manifest only carries identity and order; the
// full document lives in its own file.
type TestCaseRef struct {
	ID uuid.UUID
}

// Document is the whole manifest.json: package metadata, the custom
// test-case metadata field declarations, the media index, and the ordered
// list of test-case references.
type Document struct {
	Schema                 string
	Metadata               Metadata
	CustomTestCaseMetadata CustomFieldSet
	Media                  []MediaEntry
	TestCases              []TestCaseRef
}

// New returns the manifest of a freshly created, empty evidence package.
func New() Document {
	return Document{
		Schema: CurrentSchema,
		Metadata: Metadata{
			Title:   "Unnamed Evidence Package",
			Authors: []Author{{Name: "Anonymous Author"}},
		},
		CustomTestCaseMetadata: NewCustomFieldSet(),
	}
}

// CustomFieldSet holds a package's custom test-case metadata field
// declarations in the order they were declared, while still allowing
// O(1) lookup by ID. The at-most-one-primary invariant is enforced by
// callers (the package engine) and checked by Validate, not by the set
// itself.
type CustomFieldSet struct {
	order []string
	byID  map[string]CustomMetadataField
}

// NewCustomFieldSet returns an empty field set.
func NewCustomFieldSet() CustomFieldSet {
	return CustomFieldSet{byID: make(map[string]CustomMetadataField)}
}

// Len reports the number of declared fields.
func (s CustomFieldSet) Len() int {
	return len(s.order)
}

// Get looks up a field by ID.
func (s CustomFieldSet) Get(id string) (CustomMetadataField, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// Ordered returns the fields in declaration order.
func (s CustomFieldSet) Ordered() []CustomMetadataField {
	fields := make([]CustomMetadataField, 0, len(s.order))
	for _, id := range s.order {
		fields = append(fields, s.byID[id])
	}
	return fields
}

// Put inserts or replaces a field, preserving its original position in
// declaration order if it already existed.
func (s *CustomFieldSet) Put(field CustomMetadataField) {
	if s.byID == nil {
		s.byID = make(map[string]CustomMetadataField)
	}
	if _, exists := s.byID[field.ID]; !exists {
		s.order = append(s.order, field.ID)
	}
	s.byID[field.ID] = field
}

// Remove deletes a field by ID. It reports whether a field was removed.
func (s *CustomFieldSet) Remove(id string) bool {
	if _, exists := s.byID[id]; !exists {
		return false
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// PrimaryID returns the ID of the field marked primary, if any.
func (s CustomFieldSet) PrimaryID() (string, bool) {
	for _, id := range s.order {
		if s.byID[id].Primary {
			return id, true
		}
	}
	return "", false
}

// CountPrimary reports how many fields are marked primary, used to validate
// the at-most-one invariant on load.
func (s CustomFieldSet) CountPrimary() int {
	count := 0
	for _, id := range s.order {
		if s.byID[id].Primary {
			count++
		}
	}
	return count
}
