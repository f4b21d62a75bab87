package angelmark

import "strings"

// Render serializes a File back to AngelMark source. It is the inverse
// of Parse closely enough to satisfy the round-trip property in §8:
// Parse(Render(a)) is structurally equal to a, for any a Parse produced.
func Render(f *File) string {
	var b strings.Builder
	for i, line := range f.Lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		renderLine(&b, line)
	}
	return b.String()
}

func renderLine(b *strings.Builder, line Line) {
	switch l := line.(type) {
	case Heading:
		b.WriteString(strings.Repeat("#", l.Level))
		b.WriteByte(' ')
		renderContent(b, l.Content)
	case Paragraph:
		renderContent(b, l.Content)
	case Table:
		renderRow(b, l.Header)
		b.WriteByte('\n')
		renderAlignmentRow(b, l.Alignment)
		for _, row := range l.Rows {
			b.WriteByte('\n')
			renderRow(b, row)
		}
	}
}

func renderRow(b *strings.Builder, row Row) {
	b.WriteByte('|')
	for _, cell := range row.Cells {
		b.WriteByte(' ')
		renderContent(b, cell)
		b.WriteString(" |")
	}
}

func renderAlignmentRow(b *strings.Builder, alignment []Alignment) {
	b.WriteByte('|')
	for _, a := range alignment {
		b.WriteByte(' ')
		switch a {
		case AlignLeft:
			b.WriteString(":-")
		case AlignRight:
			b.WriteString("-:")
		case AlignCenter:
			b.WriteString(":-:")
		default:
			b.WriteString("-")
		}
		b.WriteString(" |")
	}
}

func renderContent(b *strings.Builder, content []TextContent) {
	for _, c := range content {
		renderTextContent(b, c)
	}
}

func renderTextContent(b *strings.Builder, c TextContent) {
	switch v := c.(type) {
	case RawText:
		b.WriteString(escapeRaw(v.Text))
	case Bold:
		b.WriteString("**")
		renderContent(b, v.Content)
		b.WriteString("**")
	case Italic:
		b.WriteByte('_')
		renderContent(b, v.Content)
		b.WriteByte('_')
	case Monospace:
		b.WriteByte('`')
		renderContent(b, v.Content)
		b.WriteByte('`')
	}
}

func escapeRaw(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(escapable, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
