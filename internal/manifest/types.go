// Package manifest models an evidence package's manifest.json: title,
// authors, custom test-case metadata field declarations, and the media
// index.
package manifest

import "github.com/hpkns/evidenceangel/internal/jsonextra"

// Metadata describes an evidence package as a whole.
type Metadata struct {
	Title       string
	Description string // empty means absent
	Authors     []Author
	// Extras holds members of the "metadata" object that this schema
	// version doesn't recognize, so a load/save cycle doesn't drop fields
	// a newer version wrote.
	Extras jsonextra.Bag
}

// Author is a named contributor to an evidence package, with an optional
// free-form email address (not validated, per spec).
type Author struct {
	Name  string
	Email string // empty means absent
}

// CustomMetadataField declares a per-package schema extension: a string
// field that every test case may optionally populate. At most one field in
// a package may have Primary set.
type CustomMetadataField struct {
	ID          string
	Name        string
	Description string
	Primary     bool
	// Extras holds members of this field's declaration object that this
	// schema version doesn't recognize.
	Extras jsonextra.Bag
}

// MediaEntry records a media blob's checksum and declared MIME type. The
// blob itself lives in the mediastore, content-addressed by SHA256.
type MediaEntry struct {
	SHA256   string
	MimeType string
}
