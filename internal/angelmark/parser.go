package angelmark

import (
	"regexp"
	"strings"
)

var alignmentCellPattern = regexp.MustCompile(`^(:)?-+(:)?$`)

// Parse parses AngelMark source into a File, or fails with a *ParseError.
// It never panics.
func Parse(source string) (*File, error) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	physicalLines := strings.Split(source, "\n")

	f := &File{}
	lineNo := 0
	for lineNo < len(physicalLines) {
		text := physicalLines[lineNo]
		if strings.TrimSpace(text) == "" {
			lineNo++
			continue
		}

		if level, rest, ok := headingPrefix(text); ok {
			f.Lines = append(f.Lines, Heading{Level: level, Content: parseInline(rest)})
			lineNo++
			continue
		}

		if cells, ok := rowCells(text); ok {
			table, consumed, err := parseTable(physicalLines, lineNo, cells)
			if err != nil {
				return nil, err
			}
			f.Lines = append(f.Lines, *table)
			lineNo += consumed
			continue
		}

		f.Lines = append(f.Lines, Paragraph{Content: parseInline(text)})
		lineNo++
	}
	return f, nil
}

// headingPrefix reports the heading level of a line (the longest leading
// run of "#", 1..6) and the remainder of the line after it and at most
// one following space. A run outside 1..6 is not a heading at all; the
// line falls through to Paragraph.
func headingPrefix(line string) (level int, rest string, ok bool) {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0, "", false
	}
	rest = line[n:]
	rest = strings.TrimPrefix(rest, " ")
	return n, rest, true
}

// rowCells reports whether line is shaped like a table row (an optional
// leading/trailing "|", with at least one unescaped "|" separating at
// least two cells) and returns its cells, trimmed of surrounding
// whitespace, with escape sequences still intact for the inline parser.
func rowCells(line string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, false
	}
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")

	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range trimmed {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			cur.WriteRune(r)
			escaped = true
			continue
		}
		if r == '|' {
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	cells = append(cells, strings.TrimSpace(cur.String()))

	if len(cells) < 2 {
		return nil, false
	}
	return cells, true
}

// alignmentCells parses a candidate alignment row into its per-column
// Alignment values, failing if any cell doesn't match the ":"? "-"+ ":"?
// shape.
func alignmentCells(line string) ([]Alignment, bool) {
	cells, ok := rowCells(line)
	if !ok {
		return nil, false
	}
	out := make([]Alignment, len(cells))
	for i, cell := range cells {
		m := alignmentCellPattern.FindStringSubmatch(cell)
		if m == nil {
			return nil, false
		}
		left, right := m[1] == ":", m[2] == ":"
		switch {
		case left && right:
			out[i] = AlignCenter
		case left:
			out[i] = AlignLeft
		case right:
			out[i] = AlignRight
		default:
			out[i] = AlignDefault
		}
	}
	return out, true
}

// parseTable consumes a header row, its mandatory alignment row, and any
// following row-shaped lines, returning the Table and the number of
// physical lines it consumed. A header row not immediately followed by a
// well-formed alignment row is a parse error, per §4.4.
func parseTable(lines []string, start int, headerCells []string) (*Table, int, error) {
	if start+1 >= len(lines) {
		return nil, 0, &ParseError{Line: start + 1, Column: 1, Expected: "alignment row"}
	}
	alignment, ok := alignmentCells(lines[start+1])
	if !ok {
		return nil, 0, &ParseError{Line: start + 2, Column: 1, Expected: "alignment row"}
	}

	header := rowFromCells(headerCells)
	table := &Table{Header: header, Alignment: alignment}

	consumed := 2
	for start+consumed < len(lines) {
		candidate := lines[start+consumed]
		cells, ok := rowCells(candidate)
		if !ok {
			// A body row with a leading "|" but only one cell ("| 1 |")
			// is still a row; it is padded below like any short row.
			trimmed := strings.TrimSpace(candidate)
			if !strings.HasPrefix(trimmed, "|") {
				break
			}
			cells = []string{strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "|"), "|"))}
		}
		table.Rows = append(table.Rows, rowFromCells(padOrAccept(cells, len(header.Cells))))
		consumed++
	}
	return table, consumed, nil
}

// padOrAccept pads a short row with empty trailing cells and leaves an
// overlong row as-is, per §4.4's lenient handling of ragged tables.
func padOrAccept(cells []string, width int) []string {
	if len(cells) >= width {
		return cells
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}

func rowFromCells(cells []string) Row {
	row := Row{Cells: make([][]TextContent, len(cells))}
	for i, cell := range cells {
		row.Cells[i] = parseInline(cell)
	}
	return row
}
