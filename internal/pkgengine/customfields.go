package pkgengine

import "github.com/hpkns/evidenceangel/internal/manifest"

// CustomFields returns the package's declared custom test-case metadata
// fields, in declaration order.
func (e *Engine) CustomFields() []manifest.CustomMetadataField {
	return e.manifest.CustomTestCaseMetadata.Ordered()
}

// DeclareCustomField adds or replaces a custom test-case metadata field.
// Declaring a field with Primary set demotes any previously primary
// field, enforcing §3's at-most-one-primary invariant at the call site
// rather than leaving two fields briefly both marked primary.
func (e *Engine) DeclareCustomField(field manifest.CustomMetadataField) error {
	if field.ID == "" {
		return &manifest.InvalidError{Reason: "custom field id must not be empty"}
	}
	if field.Primary {
		for _, existing := range e.manifest.CustomTestCaseMetadata.Ordered() {
			if existing.ID != field.ID && existing.Primary {
				existing.Primary = false
				e.manifest.CustomTestCaseMetadata.Put(existing)
			}
		}
	}
	e.manifest.CustomTestCaseMetadata.Put(field)
	e.markDirty()
	return nil
}

// PromotePrimaryField marks id as the sole primary custom field,
// demoting any other. It reports whether the field exists.
func (e *Engine) PromotePrimaryField(id string) bool {
	field, ok := e.manifest.CustomTestCaseMetadata.Get(id)
	if !ok {
		return false
	}
	for _, existing := range e.manifest.CustomTestCaseMetadata.Ordered() {
		if existing.ID != id && existing.Primary {
			existing.Primary = false
			e.manifest.CustomTestCaseMetadata.Put(existing)
		}
	}
	field.Primary = true
	e.manifest.CustomTestCaseMetadata.Put(field)
	e.markDirty()
	return true
}

// RemoveCustomField deletes a declared field. It does not scrub any
// values test cases already recorded for it; those become unvalidatable
// extras the next time the package is strictly checked, rather than
// being silently dropped from documents this call never touched.
func (e *Engine) RemoveCustomField(id string) bool {
	removed := e.manifest.CustomTestCaseMetadata.Remove(id)
	if removed {
		e.markDirty()
	}
	return removed
}
