// Package angelmark parses the constrained Markdown-like markup used in
// rich-text evidence into an AST: headings, paragraphs of formatted text,
// and alignment-aware tables. It never panics on malformed input; callers
// get a *ParseError and fall back to the literal source.
package angelmark

// File is the root of a parsed AngelMark document: its lines, in order.
type File struct {
	Lines []Line
}

// Line is one top-level element of a File: a heading, a table, or a
// paragraph.
type Line interface {
	line()
}

// Heading is a "#"-prefixed line. Level is 1..6, the length of the
// longest leading run of "#" characters.
type Heading struct {
	Level   int
	Content []TextContent
}

func (Heading) line() {}

// Paragraph is a single line of formatted text; each non-blank line that
// is neither a heading nor part of a table becomes its own Paragraph.
type Paragraph struct {
	Content []TextContent
}

func (Paragraph) line() {}

// Table is a header row, a following alignment row, and zero or more
// body rows. Body rows shorter than the header are padded with empty
// cells to the header's cell count; longer rows keep their extra cells.
type Table struct {
	Header    Row
	Alignment []Alignment
	Rows      []Row
}

func (Table) line() {}

// Row is one table row: a sequence of cells, each its own formatted text
// run.
type Row struct {
	Cells [][]TextContent
}

// Alignment is a table column's declared text alignment, from its
// alignment-row cell.
type Alignment int

const (
	AlignDefault Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
)

// TextContent is inline formatted text: bold, italic, monospace, or raw.
// Bold/Italic/Monospace nest recursively through Content.
type TextContent interface {
	textContent()
}

// RawText is literal text with no further formatting applied.
type RawText struct {
	Text string
}

func (RawText) textContent() {}

// Bold is "**...**"-delimited text. Content holds the formatted runs
// inside the markers, which may themselves nest further emphasis.
type Bold struct {
	Content []TextContent
}

func (Bold) textContent() {}

// Italic is "_..._" or "*...*"-delimited text.
type Italic struct {
	Content []TextContent
}

func (Italic) textContent() {}

// Monospace is "`...`"-delimited text.
type Monospace struct {
	Content []TextContent
}

func (Monospace) textContent() {}
