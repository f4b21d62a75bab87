package evidenceangel

import "github.com/hpkns/evidenceangel/internal/manifest"

// CustomField declares a per-package schema extension: a string field
// every test case may optionally populate. At most one field in a
// package may be Primary.
type CustomField struct {
	ID          string
	Name        string
	Description string
	Primary     bool
}

// CustomFields returns the package's declared custom test-case metadata
// fields, in declaration order.
func (p *Package) CustomFields() []CustomField {
	declared := p.engine.CustomFields()
	fields := make([]CustomField, 0, len(declared))
	for _, f := range declared {
		fields = append(fields, CustomField{ID: f.ID, Name: f.Name, Description: f.Description, Primary: f.Primary})
	}
	return fields
}

// DeclareCustomField adds or replaces a custom field declaration.
// Declaring a field with Primary set demotes any previously primary
// field.
func (p *Package) DeclareCustomField(field CustomField) error {
	err := p.engine.DeclareCustomField(manifest.CustomMetadataField{
		ID:          field.ID,
		Name:        field.Name,
		Description: field.Description,
		Primary:     field.Primary,
	})
	if err != nil {
		return classifyErr("declare custom field", err)
	}
	return nil
}

// PromotePrimaryField marks id as the package's sole primary custom
// field. It reports whether the field exists.
func (p *Package) PromotePrimaryField(id string) bool {
	return p.engine.PromotePrimaryField(id)
}

// RemoveCustomField deletes a declared custom field.
func (p *Package) RemoveCustomField(id string) bool {
	return p.engine.RemoveCustomField(id)
}
