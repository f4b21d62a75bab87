package pkgengine

import "github.com/hpkns/evidenceangel/internal/manifest"

// Metadata returns a copy of the package's title, description, and
// authors.
func (e *Engine) Metadata() manifest.Metadata {
	return e.manifest.Metadata
}

// SetTitle renames the package. title must be 1..30 characters.
func (e *Engine) SetTitle(title string) error {
	previous := e.manifest.Metadata.Title
	e.manifest.Metadata.Title = title
	if err := manifest.Validate(e.manifest); err != nil {
		e.manifest.Metadata.Title = previous
		return err
	}
	e.markDirty()
	return nil
}

// SetDescription replaces the package's description. An empty string
// clears it.
func (e *Engine) SetDescription(description string) {
	e.manifest.Metadata.Description = description
	e.markDirty()
}

// AddAuthor appends an author to the package's ordered author list.
func (e *Engine) AddAuthor(author manifest.Author) error {
	if author.Name == "" {
		return &manifest.InvalidError{Reason: "author name must not be empty"}
	}
	e.manifest.Metadata.Authors = append(e.manifest.Metadata.Authors, author)
	e.markDirty()
	return nil
}

// RemoveAuthor removes the author at index. It reports whether an author
// was removed.
func (e *Engine) RemoveAuthor(index int) bool {
	authors := e.manifest.Metadata.Authors
	if index < 0 || index >= len(authors) {
		return false
	}
	e.manifest.Metadata.Authors = append(authors[:index], authors[index+1:]...)
	e.markDirty()
	return true
}
